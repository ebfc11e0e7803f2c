package worker_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger/src/app"
	"ledger/src/clients/prices"
	"ledger/src/config"
	"ledger/src/models"
	"ledger/src/repositories/memory"
	"ledger/src/worker"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(cron string) *config.Config {
	return &config.Config{
		Service:   config.ServiceConfig{Type: config.WORKER},
		Snapshots: config.SnapshotsConfig{ConcurrencyPolicy: config.QueuePolicy, MaxPriceFetches: 2, ExtendCron: cron},
		Prices:    config.PricesConfig{Source: config.MemoryPriceSource},
	}
}

func TestWorkerServer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	priceStore := prices.NewMemoryPriceStore()
	cfg := testConfig("0 3 * * *")
	deps, err := app.NewWithStores(cfg,
		memory.NewTransactionRepository(store),
		memory.NewHoldingRepository(store),
		memory.NewSnapshotRepository(store),
		priceStore,
	)
	require.NoError(t, err)
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	deps.SnapshotService.WithClock(func() time.Time { return today })

	require.NoError(t, priceStore.SetPrice(ctx, "MSFT", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(50)))
	require.NoError(t, deps.Transactions.Create(ctx, &models.Transaction{
		ID:           "t1",
		PortfolioID:  "portfolio-9",
		AssetID:      "MSFT",
		Type:         models.Buy,
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Quantity:     decimal.NewFromInt(2),
		PricePerUnit: decimal.NewFromInt(50),
		TotalAmount:  decimal.NewFromInt(100),
	}))

	logger, _ := test.NewNullLogger()
	server, err := worker.NewServer(cfg, deps, logger)
	require.NoError(t, err)
	t.Cleanup(server.Close)

	t.Run("should schedule the extension task", func(t *testing.T) {
		entry := server.Handler.Controller.Scheduler.Entry()
		assert.True(t, entry.Valid())
	})

	t.Run("should report the next extension in the healthcheck", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alive", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var status map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "alive", status["status"])
		assert.NotEmpty(t, status["nextExtension"])
	})

	t.Run("should handle a manual refresh", func(t *testing.T) {
		body := bytes.NewBufferString(`{"type":"MANUAL_REFRESH","portfolioId":"portfolio-9"}`)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events", body))
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		latest, err := deps.Snapshots.GetLatest(ctx, "portfolio-9")
		require.NoError(t, err)
		assert.Equal(t, today, latest.Date)
		assert.Equal(t, "100", latest.TotalValue.String())
	})

	t.Run("should extend every series to today", func(t *testing.T) {
		today = today.AddDate(0, 0, 2)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/snapshots/extend", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		latest, err := deps.Snapshots.GetLatest(ctx, "portfolio-9")
		require.NoError(t, err)
		assert.Equal(t, today, latest.Date)
	})

	t.Run("should reject an event without a portfolio", func(t *testing.T) {
		body := bytes.NewBufferString(`{"type":"TRANSACTION_ADDED","date":"2024-03-01"}`)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/events", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWorkerServerRejectsBadCron(t *testing.T) {
	cfg := testConfig("not a cron")
	deps, err := app.NewWithStores(cfg, nil, nil, nil, prices.NewMemoryPriceStore())
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	_, err = worker.NewServer(cfg, deps, logger)
	require.Error(t, err)
}
