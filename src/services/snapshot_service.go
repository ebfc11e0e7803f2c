package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledger/src/config"
	"ledger/src/models"
	"ledger/src/repositories"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

var (
	ErrComputationInProgress = errors.New("snapshot computation already in progress")
	ErrInvalidEvent          = errors.New("invalid trigger event")
)

type SnapshotServiceI interface {
	ComputeSnapshots(ctx context.Context, portfolioID string, fromDate, toDate time.Time, prices *PriceCache) (int, error)
	RecomputeAll(ctx context.Context, portfolioID string, prices *PriceCache) (int, error)
	GetSnapshots(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]models.PerformanceSnapshot, error)
	GetLatestSnapshot(ctx context.Context, portfolioID string) (*models.PerformanceSnapshot, error)
	DeleteSnapshots(ctx context.Context, portfolioID string) error
	GetAggregatedSnapshots(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]models.PerformanceSnapshot, error)
	HandleEvent(ctx context.Context, event models.TriggerEvent) error
	ExtendAll(ctx context.Context) error
}

// SnapshotOptions tune how computations are scheduled.
type SnapshotOptions struct {
	Policy          config.ConcurrencyPolicy
	MaxPriceFetches int
	CacheTTL        time.Duration
	Method          CostBasisMethod
}

type SnapshotService struct {
	transactionRepository repositories.TransactionRepository
	snapshotRepository    repositories.SnapshotRepository
	holdingsService       HoldingsServiceI
	prices                PriceLookup
	opts                  SnapshotOptions
	locks                 *portfolioLocks
	now                   func() time.Time
}

func NewSnapshotService(transactionRepository repositories.TransactionRepository, snapshotRepository repositories.SnapshotRepository, holdingsService HoldingsServiceI, prices PriceLookup, opts SnapshotOptions) *SnapshotService {
	if opts.Policy == "" {
		opts.Policy = config.QueuePolicy
	}
	if opts.MaxPriceFetches <= 0 {
		opts.MaxPriceFetches = 8
	}
	return &SnapshotService{
		transactionRepository: transactionRepository,
		snapshotRepository:    snapshotRepository,
		holdingsService:       holdingsService,
		prices:                prices,
		opts:                  opts,
		locks:                 newPortfolioLocks(),
		now:                   time.Now,
	}
}

// WithClock replaces the clock that decides what "today" is.
func (s *SnapshotService) WithClock(now func() time.Time) *SnapshotService {
	s.now = now
	return s
}

func (s *SnapshotService) today() time.Time {
	return utils.Day(s.now().UTC())
}

// ComputeSnapshots values the portfolio for every day in
// [max(fromDate, first transaction), toDate] and upserts one snapshot per day
// that has holdings. A zero toDate means today. Days already persisted when
// an error occurs are kept.
func (s *SnapshotService) ComputeSnapshots(ctx context.Context, portfolioID string, fromDate, toDate time.Time, prices *PriceCache) (int, error) {
	release, err := s.locks.acquire(ctx, portfolioID, s.opts.Policy == config.RejectPolicy)
	if err != nil {
		return 0, err
	}
	defer release()

	prices, done := s.priceCache(prices)
	defer done()
	return s.compute(ctx, portfolioID, fromDate, toDate, prices)
}

// RecomputeAll drops every snapshot of the portfolio and rebuilds the series
// from the first transaction to today.
func (s *SnapshotService) RecomputeAll(ctx context.Context, portfolioID string, prices *PriceCache) (int, error) {
	release, err := s.locks.acquire(ctx, portfolioID, s.opts.Policy == config.RejectPolicy)
	if err != nil {
		return 0, err
	}
	defer release()

	if err := s.snapshotRepository.DeleteAllForPortfolio(ctx, portfolioID); err != nil {
		return 0, err
	}
	prices, done := s.priceCache(prices)
	defer done()
	return s.compute(ctx, portfolioID, time.Time{}, time.Time{}, prices)
}

func (s *SnapshotService) priceCache(prices *PriceCache) (*PriceCache, func()) {
	if prices != nil {
		return prices, func() {}
	}
	owned := NewPriceCache(s.prices, s.opts.CacheTTL)
	return owned, owned.Close
}

// chainSeed is the state carried into the first computed day.
type chainSeed struct {
	prevValue decimal.Decimal
	prevTWR   decimal.Decimal
}

func (s *SnapshotService) compute(ctx context.Context, portfolioID string, fromDate, toDate time.Time, prices *PriceCache) (int, error) {
	logger := utils.LoggerFromContext(ctx).WithField("portfolio_id", portfolioID)

	txs, err := s.transactionRepository.GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return 0, err
	}
	if err := validateLedger(txs); err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		logger.Debug("empty ledger, dropping snapshots")
		return 0, s.snapshotRepository.DeleteAllForPortfolio(ctx, portfolioID)
	}
	sortLedger(txs)

	earliest := utils.Day(txs[0].Date)
	to := s.today()
	if !toDate.IsZero() {
		to = utils.Day(toDate)
	}
	from := earliest
	if !fromDate.IsZero() {
		from = utils.Day(fromDate)
	}
	if from.Before(earliest) {
		// Rows from before the first transaction belong to a ledger that no
		// longer exists.
		if err := s.snapshotRepository.DeleteRange(ctx, portfolioID, from, utils.AddDays(earliest, -1)); err != nil {
			return 0, err
		}
	}
	effectiveFrom := utils.MaxDay(from, earliest)
	if to.Before(effectiveFrom) {
		return 0, nil
	}

	state := newBook()
	next := 0
	for next < len(txs) && utils.Day(txs[next].Date).Before(effectiveFrom) {
		state.apply(txs[next])
		next++
	}

	seed := chainSeed{prevValue: decimal.Zero, prevTWR: decimal.Zero}
	if effectiveFrom.After(earliest) {
		var ok bool
		seed, ok, err = s.seed(ctx, portfolioID, earliest, effectiveFrom, state)
		if err != nil {
			return 0, err
		}
		if !ok {
			logger.WithField("from", effectiveFrom.Format(utils.ShortDashDateLayout)).
				Info("return chain broken before range, recomputing from first transaction")
			effectiveFrom = earliest
			state = newBook()
			next = 0
			seed = chainSeed{prevValue: decimal.Zero, prevTWR: decimal.Zero}
		}
	}

	logger.WithFields(logrus.Fields{
		"from": effectiveFrom.Format(utils.ShortDashDateLayout),
		"to":   to.Format(utils.ShortDashDateLayout),
	}).Info("computing snapshots")

	shares, err := s.ownershipShares(ctx, portfolioID)
	if err != nil {
		return 0, err
	}

	method := s.opts.Method
	prevValue, prevTWR := seed.prevValue, seed.prevTWR
	count := 0
	for day := effectiveFrom; !day.After(to); day = utils.AddDays(day, 1) {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		var dayTxs []models.Transaction
		for next < len(txs) && !utils.Day(txs[next].Date).After(day) {
			state.apply(txs[next])
			dayTxs = append(dayTxs, txs[next])
			next++
		}

		held := state.held()
		if len(held) == 0 {
			if err := s.snapshotRepository.DeleteRange(ctx, portfolioID, day, day); err != nil {
				return count, err
			}
			prevValue = decimal.Zero
			continue
		}

		totalValue, interpolated, err := s.valueDay(ctx, prices, state, shares, held, day, method)
		if err != nil {
			return count, fmt.Errorf("valuing %s on %s: %w", portfolioID, day.Format(utils.ShortDashDateLayout), err)
		}

		dayReturn, err := PeriodReturn(prevValue, totalValue, CashFlowsFromTransactions(dayTxs), utils.AddDays(day, -1), day)
		if err != nil {
			return count, err
		}
		twr := Compound([]decimal.Decimal{prevTWR, dayReturn})
		totalCost := state.totalCost(held, method)
		dayChange := totalValue.Sub(prevValue)

		snapshot := &models.PerformanceSnapshot{
			ID:                    utils.GenerateUUID(portfolioID, day.Format(utils.ShortDashDateLayout)),
			PortfolioID:           portfolioID,
			Date:                  day,
			TotalValue:            totalValue,
			TotalCost:             totalCost,
			DayChange:             dayChange,
			DayChangePercent:      utils.Percent(dayChange, prevValue),
			CumulativeReturn:      utils.SafeDiv(totalValue.Sub(totalCost), totalCost),
			TimeWeightedReturn:    twr,
			HoldingCount:          len(held),
			HasInterpolatedPrices: interpolated,
		}
		if err := s.snapshotRepository.Upsert(ctx, snapshot); err != nil {
			return count, err
		}
		count++
		prevValue, prevTWR = totalValue, twr
	}

	logger.WithField("snapshots", count).Info("snapshots computed")
	return count, nil
}

// seed finds the chain state at the end of the day before from. It reports
// false when the day before had holdings but no stored snapshot, or when no
// snapshot exists at all although positions were opened before from.
func (s *SnapshotService) seed(ctx context.Context, portfolioID string, earliest, from time.Time, state *book) (chainSeed, bool, error) {
	prevDay := utils.AddDays(from, -1)
	previous, err := s.snapshotRepository.GetRange(ctx, portfolioID, earliest, prevDay)
	if err != nil {
		return chainSeed{}, false, err
	}
	if len(previous) == 0 {
		return chainSeed{}, false, nil
	}
	last := previous[len(previous)-1]

	if len(state.held()) == 0 {
		return chainSeed{prevValue: decimal.Zero, prevTWR: last.TimeWeightedReturn}, true, nil
	}
	if !utils.Day(last.Date).Equal(prevDay) {
		return chainSeed{}, false, nil
	}
	return chainSeed{prevValue: last.TotalValue, prevTWR: last.TimeWeightedReturn}, true, nil
}

type assetValuation struct {
	value        decimal.Decimal
	interpolated bool
}

func (s *SnapshotService) ownershipShares(ctx context.Context, portfolioID string) (map[string]decimal.Decimal, error) {
	if s.holdingsService == nil {
		return nil, nil
	}
	return s.holdingsService.OwnershipShares(ctx, portfolioID)
}

// valueDay prices every held asset concurrently. Quotes are for the whole
// asset and get scaled by the owned share. An asset without any price is
// valued at its average cost and counts as interpolated.
func (s *SnapshotService) valueDay(ctx context.Context, prices *PriceCache, state *book, shares map[string]decimal.Decimal, held []string, day time.Time, method CostBasisMethod) (decimal.Decimal, bool, error) {
	p := pool.NewWithResults[assetValuation]().
		WithMaxGoroutines(s.opts.MaxPriceFetches).
		WithContext(ctx).
		WithCancelOnError()

	for _, assetID := range held {
		assetID := assetID
		pos := state.positions[assetID]
		quantity := pos.quantity
		fallback := pos.averageCost(method)
		share, owned := shares[assetID]
		p.Go(func(ctx context.Context) (assetValuation, error) {
			quote, err := prices.GetPriceAtDate(ctx, assetID, day)
			if errors.Is(err, models.ErrPriceUnavailable) {
				return assetValuation{value: quantity.Mul(fallback), interpolated: true}, nil
			}
			if err != nil {
				return assetValuation{}, fmt.Errorf("price of %s: %w", assetID, err)
			}
			value := quantity.Mul(quote.Price)
			if owned {
				value = value.Mul(share)
			}
			return assetValuation{value: value, interpolated: quote.IsInterpolated}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return decimal.Zero, false, err
	}
	total := decimal.Zero
	interpolated := false
	for _, r := range results {
		total = total.Add(r.value)
		interpolated = interpolated || r.interpolated
	}
	return total, interpolated, nil
}

func (s *SnapshotService) GetSnapshots(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]models.PerformanceSnapshot, error) {
	return s.snapshotRepository.GetRange(ctx, portfolioID, utils.Day(startDate), utils.Day(endDate))
}

func (s *SnapshotService) GetLatestSnapshot(ctx context.Context, portfolioID string) (*models.PerformanceSnapshot, error) {
	return s.snapshotRepository.GetLatest(ctx, portfolioID)
}

func (s *SnapshotService) DeleteSnapshots(ctx context.Context, portfolioID string) error {
	release, err := s.locks.acquire(ctx, portfolioID, s.opts.Policy == config.RejectPolicy)
	if err != nil {
		return err
	}
	defer release()
	return s.snapshotRepository.DeleteAllForPortfolio(ctx, portfolioID)
}

// GetAggregatedSnapshots downsamples for charts: daily below 90 days, the last
// snapshot of each ISO week up to 365 days, the last of each month beyond.
func (s *SnapshotService) GetAggregatedSnapshots(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]models.PerformanceSnapshot, error) {
	snapshots, err := s.GetSnapshots(ctx, portfolioID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	return AggregateSnapshots(snapshots, utils.DaysBetween(startDate, endDate)), nil
}

// AggregateSnapshots keeps the last snapshot of every bucket; snapshots must
// be sorted by date.
func AggregateSnapshots(snapshots []models.PerformanceSnapshot, rangeDays int) []models.PerformanceSnapshot {
	var bucket func(time.Time) [2]int
	switch {
	case rangeDays < utils.DailyBucketMaxDays:
		return snapshots
	case rangeDays <= utils.WeeklyBucketMaxDays:
		bucket = func(t time.Time) [2]int {
			y, w := t.ISOWeek()
			return [2]int{y, w}
		}
	default:
		bucket = func(t time.Time) [2]int {
			return [2]int{t.Year(), int(t.Month())}
		}
	}

	var out []models.PerformanceSnapshot
	for i, snap := range snapshots {
		if i+1 < len(snapshots) && bucket(snapshots[i+1].Date) == bucket(snap.Date) {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// HandleEvent is the entry point for ledger mutations. It replaces storage
// hooks: the ledger side sends the event, the snapshot series is recomputed
// from the affected day.
func (s *SnapshotService) HandleEvent(ctx context.Context, event models.TriggerEvent) error {
	if event.PortfolioID == "" {
		return fmt.Errorf("%w: missing portfolio id", ErrInvalidEvent)
	}
	logger := utils.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"portfolio_id": event.PortfolioID,
		"event":        event.Type,
	})

	var from time.Time
	switch event.Type {
	case models.TransactionAdded, models.TransactionDeleted:
		if event.Date.IsZero() {
			return fmt.Errorf("%w: %s without date", ErrInvalidEvent, event.Type)
		}
		from = event.Date
	case models.TransactionModified:
		switch {
		case event.OldDate.IsZero() && event.NewDate.IsZero():
			return fmt.Errorf("%w: %s without dates", ErrInvalidEvent, event.Type)
		case event.OldDate.IsZero():
			from = event.NewDate
		case event.NewDate.IsZero():
			from = event.OldDate
		default:
			from = utils.MinDay(event.OldDate, event.NewDate)
		}
	case models.ManualRefresh:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.Type)
	}

	if s.holdingsService != nil {
		var err error
		if event.AssetID != "" {
			_, err = s.holdingsService.RecalculateHolding(ctx, event.PortfolioID, event.AssetID)
		} else if event.Type == models.ManualRefresh {
			_, err = s.holdingsService.RecalculatePortfolio(ctx, event.PortfolioID)
		}
		if err != nil {
			return err
		}
	}

	logger.Info("handling trigger event")
	if event.Type == models.ManualRefresh {
		_, err := s.RecomputeAll(ctx, event.PortfolioID, nil)
		return err
	}
	_, err := s.ComputeSnapshots(ctx, event.PortfolioID, from, time.Time{}, nil)
	return err
}

// ExtendAll brings every portfolio's series up to today, starting from its
// latest snapshot. Portfolios already being computed are skipped.
func (s *SnapshotService) ExtendAll(ctx context.Context) error {
	logger := utils.LoggerFromContext(ctx)
	ids, err := s.transactionRepository.ListPortfolioIDs(ctx)
	if err != nil {
		return err
	}

	prices := NewPriceCache(s.prices, s.opts.CacheTTL)
	defer prices.Close()

	var errs []error
	for _, id := range ids {
		var from time.Time
		latest, err := s.snapshotRepository.GetLatest(ctx, id)
		switch {
		case err == nil:
			from = latest.Date
		case !errors.Is(err, repositories.ErrNotFound):
			errs = append(errs, err)
			continue
		}
		_, err = s.ComputeSnapshots(ctx, id, from, time.Time{}, prices)
		if errors.Is(err, ErrComputationInProgress) {
			logger.WithField("portfolio_id", id).Info("computation in progress, skipping")
			continue
		}
		if err != nil {
			logger.WithField("portfolio_id", id).WithError(err).Error("extending snapshots failed")
			errs = append(errs, fmt.Errorf("portfolio %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// portfolioLocks allows one computation per portfolio at a time. A slot lives
// only while someone holds or waits for it.
type portfolioLocks struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newPortfolioLocks() *portfolioLocks {
	return &portfolioLocks{slots: make(map[string]*lockSlot)}
}

// acquire waits for the portfolio's slot, or fails immediately when reject is
// set and the slot is taken.
func (l *portfolioLocks) acquire(ctx context.Context, portfolioID string, reject bool) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[portfolioID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[portfolioID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	if reject {
		select {
		case slot.ch <- struct{}{}:
		default:
			l.unref(portfolioID, slot)
			return nil, fmt.Errorf("%w: %s", ErrComputationInProgress, portfolioID)
		}
	} else {
		select {
		case slot.ch <- struct{}{}:
		case <-ctx.Done():
			l.unref(portfolioID, slot)
			return nil, ctx.Err()
		}
	}
	return func() {
		<-slot.ch
		l.unref(portfolioID, slot)
	}, nil
}

func (l *portfolioLocks) unref(portfolioID string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, portfolioID)
	}
}
