// Package memory holds map-backed implementations of the repository
// interfaces, used by the memory storage driver and by tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ledger/src/models"
	"ledger/src/repositories"
)

// Store keys everything by portfolio id; holdings are further keyed by asset
// and snapshots by calendar day.
type Store struct {
	mu           sync.RWMutex
	transactions map[string][]models.Transaction
	holdings     map[string]map[string]models.Holding
	snapshots    map[string]map[time.Time]models.PerformanceSnapshot
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[string][]models.Transaction),
		holdings:     make(map[string]map[string]models.Holding),
		snapshots:    make(map[string]map[time.Time]models.PerformanceSnapshot),
		now:          time.Now,
	}
}

/* ---- Transactions ---- */

type transactionRepo struct{ s *Store }

func NewTransactionRepository(s *Store) repositories.TransactionRepository {
	return &transactionRepo{s: s}
}

func (r *transactionRepo) GetByPortfolio(_ context.Context, portfolioID string) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]models.Transaction(nil), r.s.transactions[portfolioID]...), nil
}

func (r *transactionRepo) GetByPortfolioAndAsset(_ context.Context, portfolioID, assetID string) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Transaction
	for _, t := range r.s.transactions[portfolioID] {
		if t.AssetID == assetID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *transactionRepo) ListPortfolioIDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]string, 0, len(r.s.transactions))
	for id := range r.s.transactions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *transactionRepo) Create(_ context.Context, t *models.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.s.now()
	}
	r.s.transactions[t.PortfolioID] = append(r.s.transactions[t.PortfolioID], *t)
	return nil
}

// DeleteTransaction removes a ledger entry. The ledger itself is owned by the
// ledger-entry collaborator; this exists for fixtures and the memory driver.
func (s *Store) DeleteTransaction(portfolioID, transactionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.transactions[portfolioID]
	for i, t := range txs {
		if t.ID == transactionID {
			s.transactions[portfolioID] = append(txs[:i:i], txs[i+1:]...)
			return true
		}
	}
	return false
}

/* ---- Holdings ---- */

type holdingRepo struct{ s *Store }

func NewHoldingRepository(s *Store) repositories.HoldingRepository {
	return &holdingRepo{s: s}
}

func (r *holdingRepo) Upsert(_ context.Context, h *models.Holding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byAsset, ok := r.s.holdings[h.PortfolioID]
	if !ok {
		byAsset = make(map[string]models.Holding)
		r.s.holdings[h.PortfolioID] = byAsset
	}
	stored := *h
	stored.TaxLots = append([]models.TaxLot(nil), h.TaxLots...)
	byAsset[h.AssetID] = stored
	return nil
}

func (r *holdingRepo) Delete(_ context.Context, holdingID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, byAsset := range r.s.holdings {
		for assetID, h := range byAsset {
			if h.ID == holdingID {
				delete(byAsset, assetID)
				return nil
			}
		}
	}
	return nil
}

func (r *holdingRepo) GetByPortfolioAndAsset(_ context.Context, portfolioID, assetID string) (*models.Holding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.holdings[portfolioID][assetID]
	if !ok {
		return nil, fmt.Errorf("holding %s/%s: %w", portfolioID, assetID, repositories.ErrNotFound)
	}
	return &h, nil
}

func (r *holdingRepo) GetByPortfolio(_ context.Context, portfolioID string) ([]models.Holding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Holding, 0, len(r.s.holdings[portfolioID]))
	for _, h := range r.s.holdings[portfolioID] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

/* ---- Snapshots ---- */

type snapshotRepo struct{ s *Store }

func NewSnapshotRepository(s *Store) repositories.SnapshotRepository {
	return &snapshotRepo{s: s}
}

func (r *snapshotRepo) Upsert(_ context.Context, snap *models.PerformanceSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byDay, ok := r.s.snapshots[snap.PortfolioID]
	if !ok {
		byDay = make(map[time.Time]models.PerformanceSnapshot)
		r.s.snapshots[snap.PortfolioID] = byDay
	}
	key := dayKey(snap.Date)
	if existing, ok := byDay[key]; ok {
		snap.ID = existing.ID
		snap.CreatedAt = existing.CreatedAt
	} else if snap.CreatedAt.IsZero() {
		snap.CreatedAt = r.s.now()
	}
	byDay[key] = *snap
	return nil
}

func (r *snapshotRepo) GetRange(_ context.Context, portfolioID string, startDate, endDate time.Time) ([]models.PerformanceSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	start, end := dayKey(startDate), dayKey(endDate)
	var out []models.PerformanceSnapshot
	for day, snap := range r.s.snapshots[portfolioID] {
		if !day.Before(start) && !day.After(end) {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *snapshotRepo) GetLatest(_ context.Context, portfolioID string) (*models.PerformanceSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *models.PerformanceSnapshot
	for _, snap := range r.s.snapshots[portfolioID] {
		if latest == nil || snap.Date.After(latest.Date) {
			s := snap
			latest = &s
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("latest snapshot of %s: %w", portfolioID, repositories.ErrNotFound)
	}
	return latest, nil
}

func (r *snapshotRepo) DeleteAllForPortfolio(_ context.Context, portfolioID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.snapshots, portfolioID)
	return nil
}

func (r *snapshotRepo) DeleteRange(_ context.Context, portfolioID string, startDate, endDate time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	start, end := dayKey(startDate), dayKey(endDate)
	for day := range r.s.snapshots[portfolioID] {
		if !day.Before(start) && !day.After(end) {
			delete(r.s.snapshots[portfolioID], day)
		}
	}
	return nil
}

func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
