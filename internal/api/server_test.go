package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/api"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/domain/record"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/config"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/storage"
)

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	server := api.NewServer(config.APIConfig{Port: 8080}, repo, logger)
	return server, repo
}

func get(t *testing.T, server *api.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	server, _ := newTestServer(t)

	rec := get(t, server, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestServer_EmptyOriginsFallsBackToLocalhost(t *testing.T) {
	// A sparse config leaves AllowedOrigins empty; the server must still
	// come up with the localhost development origins instead of panicking.
	repo := storage.NewMockRepository()
	server := api.NewServer(config.APIConfig{Port: 8080}, repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Stats(t *testing.T) {
	server, repo := newTestServer(t)
	repo.AddTransaction(&record.Transaction{
		ID:         "tx-1",
		Source:     "stripe",
		Date:       time.Now(),
		Amount:     decimal.NewFromInt(10),
		Reconciled: true,
		MatchType:  "order-id",
	})

	rec := get(t, server, "/api/stats")
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats storage.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Transactions)
	assert.Equal(t, 1, stats.ReconciledTransactions)
	assert.Equal(t, 1, stats.PerStrategy["order-id"])
}

func TestServer_Runs(t *testing.T) {
	server, repo := newTestServer(t)

	rec := get(t, server, "/api/runs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	_, err := repo.StartRun(context.Background(), "run-uuid-1", "reconcile", "stripe", true)
	require.NoError(t, err)

	rec = get(t, server, "/api/runs")
	var runs []storage.ReconRun
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-uuid-1", runs[0].RunUUID)
}

func TestServer_Unmatched(t *testing.T) {
	server, repo := newTestServer(t)
	repo.AddTransaction(&record.Transaction{
		ID:     "tx-open",
		Source: "stripe",
		Date:   time.Now(),
		Amount: decimal.NewFromInt(10),
	})
	repo.AddTransaction(&record.Transaction{
		ID:         "tx-done",
		Source:     "stripe",
		Date:       time.Now(),
		Amount:     decimal.NewFromInt(20),
		Reconciled: true,
	})

	rec := get(t, server, "/api/unmatched?source=stripe")
	assert.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Count        int                   `json:"count"`
		Transactions []*record.Transaction `json:"transactions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "tx-open", response.Transactions[0].ID)
}

func TestServer_Corrections(t *testing.T) {
	server, repo := newTestServer(t)
	require.NoError(t, repo.SaveCorrection(context.Background(), &storage.Correction{
		AccountCode:   "70500000",
		TransactionID: "tx-1",
		Mismatch:      "wrong-value",
		OldAmount:     "10",
		NewAmount:     "4000.50",
		CorrectedAt:   time.Now(),
	}))

	rec := get(t, server, "/api/corrections")
	assert.Equal(t, http.StatusOK, rec.Code)

	var corrections []storage.Correction
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&corrections))
	require.Len(t, corrections, 1)
	assert.Equal(t, "wrong-value", corrections[0].Mismatch)
}

func TestServer_TransactionByID(t *testing.T) {
	server, repo := newTestServer(t)
	repo.AddTransaction(&record.Transaction{
		ID:     "tx-1",
		Source: "stripe",
		Date:   time.Now(),
		Amount: decimal.NewFromInt(10),
	})

	rec := get(t, server, "/api/transactions/tx-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, server, "/api/transactions/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
