// Package index builds the candidate lookup structures the match cascade
// works against. The index is a pure snapshot of the invoice set taken at
// the start of a run; it is never mutated afterwards.
package index

import (
	"fmt"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/normalize"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
)

// Candidates holds the per-run invoice lookup maps.
type Candidates struct {
	byOrderID      map[string][]*record.Invoice
	byEmail        map[string][]*record.Invoice
	byAmountBucket map[int64][]*record.Invoice
	byName         map[string][]*record.Invoice

	nameKeys []string // insertion order of byName, for deterministic scans
	total    int
}

// Build indexes the given invoices. Invoices with missing fields are simply
// absent from the corresponding map; nothing here raises. Already reconciled
// invoices are excluded so a second run over the same data finds nothing new.
func Build(invoices []*record.Invoice) *Candidates {
	c := &Candidates{
		byOrderID:      make(map[string][]*record.Invoice),
		byEmail:        make(map[string][]*record.Invoice),
		byAmountBucket: make(map[int64][]*record.Invoice),
		byName:         make(map[string][]*record.Invoice),
	}

	for _, inv := range invoices {
		if inv == nil || inv.Reconciled {
			continue
		}
		c.total++

		if key := normalize.OrderID(inv.OrderID); key != "" {
			c.byOrderID[key] = append(c.byOrderID[key], inv)
		}
		if key := normalize.Email(inv.CustomerEmail); key != "" {
			c.byEmail[key] = append(c.byEmail[key], inv)
		}
		c.byAmountBucket[normalize.AmountBucket(inv.TotalAmount)] = append(
			c.byAmountBucket[normalize.AmountBucket(inv.TotalAmount)], inv)

		if key := normalize.Name(inv.CustomerName); key != "" {
			if _, seen := c.byName[key]; !seen {
				c.nameKeys = append(c.nameKeys, key)
			}
			c.byName[key] = append(c.byName[key], inv)
		}
	}

	return c
}

// ByOrderID returns invoices sharing the normalized order id.
func (c *Candidates) ByOrderID(orderID string) []*record.Invoice {
	return c.byOrderID[normalize.OrderID(orderID)]
}

// ByEmail returns invoices for the normalized email address.
func (c *Candidates) ByEmail(email string) []*record.Invoice {
	return c.byEmail[normalize.Email(email)]
}

// ByAmountBucket returns invoices whose total falls in the same integer
// currency-unit bucket as amount.
func (c *Candidates) ByAmountBucket(bucket int64) []*record.Invoice {
	return c.byAmountBucket[bucket]
}

// ByDomainAmount returns invoices matching a "domain:bucket" compound key:
// same email domain and same rounded-amount bucket.
func (c *Candidates) ByDomainAmount(domain string, bucket int64) []*record.Invoice {
	if domain == "" {
		return nil
	}
	var out []*record.Invoice
	for _, inv := range c.byAmountBucket[bucket] {
		if normalize.EmailDomain(inv.CustomerEmail) == domain {
			out = append(out, inv)
		}
	}
	return out
}

// ByName returns invoices for an exactly matching normalized customer name.
func (c *Candidates) ByName(normalizedName string) []*record.Invoice {
	return c.byName[normalizedName]
}

// NameKeys returns every normalized customer name in first-seen order.
func (c *Candidates) NameKeys() []string {
	return c.nameKeys
}

// Len reports how many unreconciled invoices were indexed.
func (c *Candidates) Len() int { return c.total }

// String summarizes index sizes for run logs.
func (c *Candidates) String() string {
	return fmt.Sprintf("candidates{invoices=%d order_ids=%d emails=%d buckets=%d names=%d}",
		c.total, len(c.byOrderID), len(c.byEmail), len(c.byAmountBucket), len(c.byName))
}
