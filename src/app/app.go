// Package app wires configuration to repositories, price sources and services.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/src/clients/prices"
	"ledger/src/config"
	"ledger/src/database"
	"ledger/src/models"
	"ledger/src/repositories"
	"ledger/src/repositories/memory"
	"ledger/src/services"
	"ledger/src/utils"
	redis_utils "ledger/src/utils/redis"
)

type Dependencies struct {
	Transactions repositories.TransactionRepository
	Holdings     repositories.HoldingRepository
	Snapshots    repositories.SnapshotRepository
	Prices       prices.Store

	HoldingsService *services.HoldingsService
	SnapshotService *services.SnapshotService
	TaxLotService   *services.TaxLotService

	closers []func()
}

// New connects the storage driver and price source selected in cfg.
func New(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	switch cfg.Databases.SQL.Driver {
	case config.MemoryDriver:
		store := memory.NewStore()
		deps.Transactions = memory.NewTransactionRepository(store)
		deps.Holdings = memory.NewHoldingRepository(store)
		deps.Snapshots = memory.NewSnapshotRepository(store)
	default:
		pool, err := database.SetupDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, pool.Close)
		deps.Transactions = repositories.NewTransactionRepository(pool)
		deps.Holdings = repositories.NewHoldingRepository(pool)
		deps.Snapshots = repositories.NewSnapshotRepository(pool)
	}

	switch cfg.Prices.Source {
	case config.RedisPriceSource:
		client, err := redis_utils.NewRedisClient(ctx, cfg)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.closers = append(deps.closers, func() { _ = client.Close() })
		deps.Prices = prices.NewRedisPriceStore(client, cfg.Prices.KeyPrefix, cfg.Prices.MaxRetries)
	default:
		deps.Prices = prices.NewMemoryPriceStore()
	}

	if err := deps.buildServices(cfg); err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

// NewWithStores builds the services over repositories and a price store the
// caller already owns.
func NewWithStores(cfg *config.Config, transactions repositories.TransactionRepository, holdings repositories.HoldingRepository, snapshots repositories.SnapshotRepository, priceStore prices.Store) (*Dependencies, error) {
	deps := &Dependencies{
		Transactions: transactions,
		Holdings:     holdings,
		Snapshots:    snapshots,
		Prices:       priceStore,
	}
	return deps, deps.buildServices(cfg)
}

func (d *Dependencies) buildServices(cfg *config.Config) error {
	method, err := services.ParseCostBasisMethod(cfg.Holdings.CostBasisMethod)
	if err != nil {
		return err
	}
	d.HoldingsService = services.NewHoldingsService(d.Transactions, d.Holdings, d.Prices, method)
	d.SnapshotService = services.NewSnapshotService(d.Transactions, d.Snapshots, d.HoldingsService, d.Prices, services.SnapshotOptions{
		Policy:          cfg.Snapshots.ConcurrencyPolicy,
		MaxPriceFetches: cfg.Snapshots.MaxPriceFetches,
		CacheTTL:        time.Duration(cfg.Prices.CacheTTLSeconds) * time.Second,
		Method:          method,
	})
	d.TaxLotService = services.NewTaxLotService(d.HoldingsService, d.Prices)
	return nil
}

// Close releases connections in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// TranslateError maps service errors to the HTTP error the handlers render.
func TranslateError(err error) error {
	var httpErr *utils.HTTPError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &httpErr):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return utils.NotFound(err.Error())
	case errors.Is(err, services.ErrComputationInProgress):
		return utils.Conflict(err.Error())
	case errors.Is(err, utils.ErrInvalidDate),
		errors.Is(err, models.ErrInvalidTransaction),
		errors.Is(err, services.ErrReferenceBeforePurchase),
		errors.Is(err, services.ErrInvalidPeriod),
		errors.Is(err, services.ErrInvalidTaxSettings),
		errors.Is(err, services.ErrInvalidEvent):
		return utils.BadRequest(err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	default:
		return utils.InternalServerError(fmt.Sprintf("internal error: %v", err))
	}
}
