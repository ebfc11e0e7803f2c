package services_test

import (
	"context"
	"testing"
	"time"

	"ledger/src/clients/prices"
	"ledger/src/models"
	"ledger/src/repositories"
	"ledger/src/repositories/memory"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := utils.ParseDay(value)
	require.NoError(t, err)
	return d
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, dec(expected).Equal(actual), "expected %s, got %s %v", expected, actual.String(), msgAndArgs)
}

func trade(t *testing.T, id string, typ models.TransactionType, asset, date, quantity, price string) models.Transaction {
	t.Helper()
	q, p := dec(quantity), dec(price)
	return models.Transaction{
		ID:           id,
		PortfolioID:  "portfolio-1",
		AssetID:      asset,
		Type:         typ,
		Date:         day(t, date),
		Quantity:     q,
		PricePerUnit: p,
		TotalAmount:  q.Mul(p),
		Currency:     "USD",
	}
}

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

type fixture struct {
	store        *memory.Store
	transactions repositories.TransactionRepository
	holdings     repositories.HoldingRepository
	snapshots    repositories.SnapshotRepository
	prices       *prices.MemoryPriceStore
}

func newFixture(t *testing.T, txs ...models.Transaction) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:        store,
		transactions: memory.NewTransactionRepository(store),
		holdings:     memory.NewHoldingRepository(store),
		snapshots:    memory.NewSnapshotRepository(store),
		prices:       prices.NewMemoryPriceStore(),
	}
	for i := range txs {
		require.NoError(t, f.transactions.Create(context.Background(), &txs[i]))
	}
	return f
}

func (f *fixture) price(t *testing.T, asset, date, price string) {
	t.Helper()
	require.NoError(t, f.prices.SetPrice(context.Background(), asset, day(t, date), dec(price)))
}
