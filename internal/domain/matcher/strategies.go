package matcher

import (
	"fmt"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/extractor"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/index"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/normalize"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

// orderIDStrategy joins both sides on the normalized order id. Highest
// trust: both records name the same business object explicitly. The amount
// is still verified, effectively exactly, to catch ingestion mix-ups.
type orderIDStrategy struct{ cfg Config }

func (s *orderIDStrategy) Name() string    { return StrategyOrderID }
func (s *orderIDStrategy) Confidence() int { return confidenceOrderID }

func (s *orderIDStrategy) Match(tx *record.Transaction, idx *index.Candidates, taken func(string) bool) (*record.Invoice, []string) {
	if tx.OrderID == "" {
		return nil, nil
	}
	for _, inv := range idx.ByOrderID(tx.OrderID) {
		if taken(inv.ID) {
			continue
		}
		diff := inv.TotalAmount.Abs().Sub(tx.Amount.Abs()).Abs()
		if diff.GreaterThanOrEqual(s.cfg.OrderIDTolerance) {
			continue
		}
		return inv, []string{
			fmt.Sprintf("order id %q matches invoice order id %q", tx.OrderID, inv.OrderID),
			fmt.Sprintf("amount verified, diff %s", diff.StringFixed(2)),
		}
	}
	return nil, nil
}

// emailAmountStrategy looks candidates up by the customer email and accepts
// the first one within the amount tolerance. Not confidence 100: one email
// routinely covers several orders.
type emailAmountStrategy struct{ cfg Config }

func (s *emailAmountStrategy) Name() string    { return StrategyEmailAmount }
func (s *emailAmountStrategy) Confidence() int { return confidenceEmailAmount }

func (s *emailAmountStrategy) Match(tx *record.Transaction, idx *index.Candidates, taken func(string) bool) (*record.Invoice, []string) {
	if tx.CustomerEmail == "" {
		return nil, nil
	}
	for _, inv := range idx.ByEmail(tx.CustomerEmail) {
		if taken(inv.ID) {
			continue
		}
		diff := inv.TotalAmount.Abs().Sub(tx.Amount.Abs()).Abs()
		if diff.GreaterThanOrEqual(s.cfg.AmountTolerance) {
			continue
		}
		return inv, []string{
			fmt.Sprintf("email %s", normalize.Email(tx.CustomerEmail)),
			fmt.Sprintf("amount diff %s within %s", diff.StringFixed(2), s.cfg.AmountTolerance),
		}
	}
	return nil, nil
}

// domainAmountDateStrategy covers transactions whose email found nothing
// (or was absent on the invoice side) but whose domain plus rounded amount
// plus a tight date window still identify the payer company.
type domainAmountDateStrategy struct{ cfg Config }

func (s *domainAmountDateStrategy) Name() string    { return StrategyDomainAmountDate }
func (s *domainAmountDateStrategy) Confidence() int { return confidenceDomainAmountDate }

func (s *domainAmountDateStrategy) Match(tx *record.Transaction, idx *index.Candidates, taken func(string) bool) (*record.Invoice, []string) {
	domain := normalize.EmailDomain(tx.CustomerEmail)
	if domain == "" {
		return nil, nil
	}
	bucket := normalize.AmountBucket(tx.Amount)
	for _, inv := range idx.ByDomainAmount(domain, bucket) {
		if taken(inv.ID) {
			continue
		}
		days := normalize.DayDiff(tx.Date, inv.IssueDate)
		if days > s.cfg.DomainDateWindowDays {
			continue
		}
		diff := inv.TotalAmount.Abs().Sub(tx.Amount.Abs()).Abs()
		if diff.GreaterThanOrEqual(s.cfg.AmountTolerance) {
			continue
		}
		return inv, []string{
			fmt.Sprintf("email domain %s", domain),
			fmt.Sprintf("amount diff %s within %s", diff.StringFixed(2), s.cfg.AmountTolerance),
			fmt.Sprintf("date diff %dd within %dd", days, s.cfg.DomainDateWindowDays),
		}
	}
	return nil, nil
}

// payerNameStrategy parses the bank narration into a payer name and matches
// it against the customer-name index. Used by bank feeds, where the
// narration is the only identifying field the statement carries.
type payerNameStrategy struct{ cfg Config }

func (s *payerNameStrategy) Name() string    { return StrategyPayerName }
func (s *payerNameStrategy) Confidence() int { return confidencePayerName }

func (s *payerNameStrategy) Match(tx *record.Transaction, idx *index.Candidates, taken func(string) bool) (*record.Invoice, []string) {
	name, rule, ok := extractor.ExtractPayerName(tx.Description)
	if !ok {
		return nil, nil
	}
	for _, inv := range extractor.MatchName(name, idx) {
		if taken(inv.ID) {
			continue
		}
		days := normalize.DayDiff(tx.Date, inv.IssueDate)
		if days > s.cfg.WideDateWindowDays {
			continue
		}
		diff := inv.TotalAmount.Abs().Sub(tx.Amount.Abs()).Abs()
		if diff.GreaterThanOrEqual(s.cfg.AmountTolerance) {
			continue
		}
		return inv, []string{
			fmt.Sprintf("payer %q extracted via %s grammar", name, rule),
			fmt.Sprintf("matched customer %q", inv.CustomerName),
			fmt.Sprintf("amount diff %s, date diff %dd", diff.StringFixed(2), days),
		}
	}
	return nil, nil
}

// amountDateStrategy is the last resort for sources without a reliable
// email or order id (direct-debit style gateways): rounded amount bucket
// plus a wide date window. Lowest confidence; always labeled as such.
type amountDateStrategy struct{ cfg Config }

func (s *amountDateStrategy) Name() string    { return StrategyAmountDate }
func (s *amountDateStrategy) Confidence() int { return confidenceAmountDate }

func (s *amountDateStrategy) Match(tx *record.Transaction, idx *index.Candidates, taken func(string) bool) (*record.Invoice, []string) {
	bucket := normalize.AmountBucket(tx.Amount)
	for _, inv := range idx.ByAmountBucket(bucket) {
		if taken(inv.ID) {
			continue
		}
		days := normalize.DayDiff(tx.Date, inv.IssueDate)
		if days > s.cfg.WideDateWindowDays {
			continue
		}
		diff := inv.TotalAmount.Abs().Sub(tx.Amount.Abs()).Abs()
		if diff.GreaterThanOrEqual(s.cfg.AmountTolerance) {
			continue
		}
		return inv, []string{
			fmt.Sprintf("amount bucket %d, diff %s", bucket, diff.StringFixed(2)),
			fmt.Sprintf("date diff %dd within %dd", days, s.cfg.WideDateWindowDays),
			"low-confidence fallback",
		}
	}
	return nil, nil
}
