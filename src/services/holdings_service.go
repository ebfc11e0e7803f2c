package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"ledger/src/models"
	"ledger/src/repositories"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type HoldingsServiceI interface {
	CalculateHolding(portfolioID, assetID string, transactions []models.Transaction) (*models.Holding, error)
	RecalculateHolding(ctx context.Context, portfolioID, assetID string) (*models.Holding, error)
	RecalculatePortfolio(ctx context.Context, portfolioID string) ([]models.Holding, error)
	GetHoldings(ctx context.Context, portfolioID string) ([]models.Holding, error)
	GetHoldingsAt(ctx context.Context, portfolioID string, day time.Time) ([]models.Holding, error)
	OwnershipShares(ctx context.Context, portfolioID string) (map[string]decimal.Decimal, error)
}

type HoldingsService struct {
	transactionRepository repositories.TransactionRepository
	holdingRepository     repositories.HoldingRepository
	prices                PriceLookup
	method                CostBasisMethod
	now                   func() time.Time
}

func NewHoldingsService(transactionRepository repositories.TransactionRepository, holdingRepository repositories.HoldingRepository, prices PriceLookup, method CostBasisMethod) *HoldingsService {
	return &HoldingsService{
		transactionRepository: transactionRepository,
		holdingRepository:     holdingRepository,
		prices:                prices,
		method:                method,
		now:                   time.Now,
	}
}

// WithClock replaces the clock used for LastUpdated and for "today".
func (s *HoldingsService) WithClock(now func() time.Time) *HoldingsService {
	s.now = now
	return s
}

// CalculateHolding folds one asset's transactions into a holding. It returns
// nil when the resulting quantity is zero. Current value is left at the cost
// basis; RecalculateHolding prices it.
func (s *HoldingsService) CalculateHolding(portfolioID, assetID string, transactions []models.Transaction) (*models.Holding, error) {
	txs := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.AssetID == assetID {
			txs = append(txs, tx)
		}
	}
	if err := validateLedger(txs); err != nil {
		return nil, err
	}
	sortLedger(txs)

	var p position
	for _, tx := range txs {
		p.apply(tx)
	}
	if p.quantity.IsZero() {
		return nil, nil
	}

	costBasis := p.basis(s.method)
	return &models.Holding{
		ID:                    utils.GenerateUUID(portfolioID, assetID),
		PortfolioID:           portfolioID,
		AssetID:               assetID,
		Quantity:              p.quantity,
		CostBasis:             costBasis,
		AverageCost:           p.averageCost(s.method),
		CurrentValue:          costBasis,
		UnrealizedGain:        decimal.Zero,
		UnrealizedGainPercent: decimal.Zero,
		TaxLots:               p.openLots(),
		LastUpdated:           s.now().UTC(),
	}, nil
}

// RecalculateHolding rebuilds the holding of one asset from the full ledger
// and replaces the stored record, or deletes it when the position is closed.
func (s *HoldingsService) RecalculateHolding(ctx context.Context, portfolioID, assetID string) (*models.Holding, error) {
	logger := utils.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"portfolio_id": portfolioID,
		"asset_id":     assetID,
	})

	txs, err := s.transactionRepository.GetByPortfolioAndAsset(ctx, portfolioID, assetID)
	if err != nil {
		return nil, err
	}
	holding, err := s.CalculateHolding(portfolioID, assetID, txs)
	if err != nil {
		return nil, err
	}

	existing, err := s.holdingRepository.GetByPortfolioAndAsset(ctx, portfolioID, assetID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	if holding == nil {
		if existing != nil {
			logger.Debug("position closed, deleting holding")
			return nil, s.holdingRepository.Delete(ctx, existing.ID)
		}
		return nil, nil
	}

	if existing != nil {
		holding.OwnershipPercent = existing.OwnershipPercent
	}
	if err := s.value(ctx, holding); err != nil {
		return nil, err
	}
	if err := s.holdingRepository.Upsert(ctx, holding); err != nil {
		return nil, err
	}
	logger.WithField("quantity", holding.Quantity.String()).Debug("holding recalculated")
	return holding, nil
}

// RecalculatePortfolio recalculates every asset that appears in the ledger or
// in the stored holdings of a portfolio.
func (s *HoldingsService) RecalculatePortfolio(ctx context.Context, portfolioID string) ([]models.Holding, error) {
	txs, err := s.transactionRepository.GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	stored, err := s.holdingRepository.GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	assets := make(map[string]struct{})
	for _, tx := range txs {
		assets[tx.AssetID] = struct{}{}
	}
	for _, h := range stored {
		assets[h.AssetID] = struct{}{}
	}
	ids := make([]string, 0, len(assets))
	for id := range assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var holdings []models.Holding
	for _, assetID := range ids {
		h, err := s.RecalculateHolding(ctx, portfolioID, assetID)
		if err != nil {
			return nil, err
		}
		if h != nil {
			holdings = append(holdings, *h)
		}
	}
	return holdings, nil
}

// GetHoldings computes the current positions of a portfolio without
// persisting them.
func (s *HoldingsService) GetHoldings(ctx context.Context, portfolioID string) ([]models.Holding, error) {
	return s.GetHoldingsAt(ctx, portfolioID, s.now().UTC())
}

// GetHoldingsAt replays the ledger up to and including day and prices the
// positions as of that day.
func (s *HoldingsService) GetHoldingsAt(ctx context.Context, portfolioID string, day time.Time) ([]models.Holding, error) {
	day = utils.Day(day)
	txs, err := s.transactionRepository.GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	upTo := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !utils.Day(tx.Date).After(day) {
			upTo = append(upTo, tx)
		}
	}
	holdings, err := s.calculateAll(portfolioID, upTo)
	if err != nil {
		return nil, err
	}
	shares, err := s.storedOwnership(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	for i := range holdings {
		if pct, ok := shares[holdings[i].AssetID]; ok {
			pct := pct
			holdings[i].OwnershipPercent = &pct
		}
		if err := s.valueAt(ctx, &holdings[i], day); err != nil {
			return nil, err
		}
	}
	return holdings, nil
}

// OwnershipShares returns the owned fraction (percent / 100) of every stored
// holding that carries an ownership percent.
func (s *HoldingsService) OwnershipShares(ctx context.Context, portfolioID string) (map[string]decimal.Decimal, error) {
	percents, err := s.storedOwnership(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	shares := make(map[string]decimal.Decimal, len(percents))
	for assetID, pct := range percents {
		shares[assetID] = pct.Div(decimal.NewFromInt(100))
	}
	return shares, nil
}

func (s *HoldingsService) storedOwnership(ctx context.Context, portfolioID string) (map[string]decimal.Decimal, error) {
	percents := make(map[string]decimal.Decimal)
	if s.holdingRepository == nil {
		return percents, nil
	}
	stored, err := s.holdingRepository.GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	for _, h := range stored {
		if h.OwnershipPercent != nil {
			percents[h.AssetID] = *h.OwnershipPercent
		}
	}
	return percents, nil
}

func (s *HoldingsService) calculateAll(portfolioID string, txs []models.Transaction) ([]models.Holding, error) {
	byAsset := make(map[string][]models.Transaction)
	for _, tx := range txs {
		byAsset[tx.AssetID] = append(byAsset[tx.AssetID], tx)
	}
	ids := make([]string, 0, len(byAsset))
	for id := range byAsset {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var holdings []models.Holding
	for _, assetID := range ids {
		h, err := s.CalculateHolding(portfolioID, assetID, byAsset[assetID])
		if err != nil {
			return nil, err
		}
		if h != nil {
			holdings = append(holdings, *h)
		}
	}
	return holdings, nil
}

// value prices a holding as of today.
func (s *HoldingsService) value(ctx context.Context, h *models.Holding) error {
	return s.valueAt(ctx, h, s.now().UTC())
}

// valueAt prices a holding as of day. Without a price the holding keeps its
// cost basis as value. Quotes are for the whole asset, so fractional
// ownership scales the value; the cost basis is what the portfolio paid for
// its share and stays as recorded.
func (s *HoldingsService) valueAt(ctx context.Context, h *models.Holding, day time.Time) error {
	if s.prices == nil {
		return nil
	}
	quote, err := s.prices.GetPriceAtDate(ctx, h.AssetID, utils.Day(day))
	if errors.Is(err, models.ErrPriceUnavailable) {
		return nil
	}
	if err != nil {
		return err
	}
	value := h.Quantity.Mul(quote.Price)
	if h.OwnershipPercent != nil {
		value = value.Mul(*h.OwnershipPercent).Div(decimal.NewFromInt(100))
	}
	h.CurrentValue = value
	h.UnrealizedGain = value.Sub(h.CostBasis)
	h.UnrealizedGainPercent = utils.Percent(h.UnrealizedGain, h.CostBasis)
	return nil
}
