package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger/src/api"
	"ledger/src/app"
	"ledger/src/clients/prices"
	"ledger/src/config"
	"ledger/src/models"
	"ledger/src/repositories/memory"
	"ledger/src/schemas"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	cfg := &config.Config{
		Service:   config.ServiceConfig{Type: config.API, Port: "0"},
		Snapshots: config.SnapshotsConfig{ConcurrencyPolicy: config.RejectPolicy, MaxPriceFetches: 4},
		Holdings:  config.HoldingsConfig{CostBasisMethod: "average"},
		Prices:    config.PricesConfig{Source: config.MemoryPriceSource, CacheTTLSeconds: 60},
	}
	store := memory.NewStore()
	deps, err := app.NewWithStores(cfg,
		memory.NewTransactionRepository(store),
		memory.NewHoldingRepository(store),
		memory.NewSnapshotRepository(store),
		prices.NewMemoryPriceStore(),
	)
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC) }
	deps.HoldingsService.WithClock(now)
	deps.SnapshotService.WithClock(now)
	deps.TaxLotService.WithClock(now)

	logger, _ := test.NewNullLogger()
	return api.NewServer(cfg, deps, logger)
}

func do(t *testing.T, server http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPortfolioRoutes(t *testing.T) {
	server := newTestServer(t)

	t.Run("should answer the healthcheck", func(t *testing.T) {
		rec := do(t, server, http.MethodGet, "/alive", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Im alive!", rec.Body.String())
	})

	t.Run("should record prices", func(t *testing.T) {
		for _, p := range []map[string]string{
			{"date": "2024-01-02", "price": "100"},
			{"date": "2024-01-05", "price": "110"},
		} {
			rec := do(t, server, http.MethodPut, "/api/prices/AAPL", p)
			require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		}
	})

	t.Run("should add a transaction and compute its snapshots", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/portfolios/portfolio-1/transactions", map[string]string{
			"id":           "t1",
			"assetId":      "AAPL",
			"type":         "buy",
			"date":         "2024-01-02",
			"quantity":     "10",
			"pricePerUnit": "100",
			"totalAmount":  "1000",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		tx := decode[models.Transaction](t, rec)
		assert.Equal(t, "USD", tx.Currency)

		rec = do(t, server, http.MethodGet, "/api/portfolios/portfolio-1/snapshots?startDate=2024-01-01&endDate=2024-01-31", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		snaps := decode[[]models.PerformanceSnapshot](t, rec)
		require.Len(t, snaps, 4)
		assert.Equal(t, "1000", snaps[0].TotalValue.String())
		assert.True(t, snaps[1].HasInterpolatedPrices)
		assert.Equal(t, "1100", snaps[3].TotalValue.String())

		rec = do(t, server, http.MethodGet, "/api/portfolios/portfolio-1/snapshots/latest", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		latest := decode[models.PerformanceSnapshot](t, rec)
		assert.Equal(t, 5, latest.Date.Day())
	})

	t.Run("should list transactions and holdings", func(t *testing.T) {
		rec := do(t, server, http.MethodGet, "/api/portfolios/portfolio-1/transactions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]models.Transaction](t, rec), 1)

		rec = do(t, server, http.MethodGet, "/api/portfolios/portfolio-1/holdings", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		holdings := decode[[]models.Holding](t, rec)
		require.Len(t, holdings, 1)
		assert.Equal(t, "10", holdings[0].Quantity.String())
		assert.Equal(t, "1000", holdings[0].CostBasis.String())
		assert.Equal(t, "1100", holdings[0].CurrentValue.String())
	})

	t.Run("should recompute the whole series", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/portfolios/portfolio-1/snapshots/recompute", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[schemas.ComputeSnapshotsResponse](t, rec)
		assert.Equal(t, 4, res.Computed)
	})

	t.Run("should estimate taxes", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/portfolios/portfolio-1/tax-estimate", map[string]string{
			"shortTermRate": "0.3",
			"longTermRate":  "0.15",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		estimate := decode[models.PortfolioTaxEstimate](t, rec)
		assert.Equal(t, "100", estimate.ShortTermGains.String())
		assert.Equal(t, "30", estimate.EstimatedTax.String())
	})

	t.Run("should reject tax rates outside the unit interval", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/portfolios/portfolio-1/tax-estimate", map[string]string{
			"shortTermRate": "1.5",
			"longTermRate":  "0.15",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject malformed input", func(t *testing.T) {
		rec := do(t, server, http.MethodPost, "/api/portfolios/portfolio-1/transactions", map[string]string{
			"assetId": "AAPL",
			"type":    "buy",
			"date":    "02/01/2024",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, server, http.MethodGet, "/api/portfolios/portfolio-1/snapshots?startDate=2024-02-01&endDate=2024-01-01", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, server, http.MethodPost, "/api/events", map[string]string{"type": "SOMETHING", "portfolioId": "portfolio-1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should report a missing series as not found", func(t *testing.T) {
		rec := do(t, server, http.MethodGet, "/api/portfolios/unknown/snapshots/latest", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decode[map[string]string](t, rec)
		assert.NotEmpty(t, body["error"])
	})

	t.Run("should delete the series", func(t *testing.T) {
		rec := do(t, server, http.MethodDelete, "/api/portfolios/portfolio-1/snapshots", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(t, server, http.MethodGet, "/api/portfolios/portfolio-1/snapshots/latest", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
