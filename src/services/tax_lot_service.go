package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/src/models"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrInvalidTaxSettings = errors.New("invalid tax settings")

type TaxLotServiceI interface {
	AnalyzeLot(lot models.TaxLot, symbol string, currentPrice decimal.Decimal, referenceDate time.Time) (models.LotAnalysis, error)
	EstimateForHolding(holding models.Holding, currentPrice decimal.Decimal, settings models.TaxSettings, referenceDate time.Time) (models.HoldingTaxEstimate, error)
	EstimateTaxLiability(holdings []models.Holding, currentPrices map[string]decimal.Decimal, settings models.TaxSettings, referenceDate time.Time) (models.PortfolioTaxEstimate, error)
	EstimatePortfolio(ctx context.Context, portfolioID string, settings models.TaxSettings, referenceDate time.Time) (models.PortfolioTaxEstimate, error)
}

type TaxLotService struct {
	holdingsService HoldingsServiceI
	prices          PriceLookup
	now             func() time.Time
}

func NewTaxLotService(holdingsService HoldingsServiceI, prices PriceLookup) *TaxLotService {
	return &TaxLotService{
		holdingsService: holdingsService,
		prices:          prices,
		now:             time.Now,
	}
}

func (s *TaxLotService) WithClock(now func() time.Time) *TaxLotService {
	s.now = now
	return s
}

func (s *TaxLotService) referenceDate(t time.Time) time.Time {
	if t.IsZero() {
		return utils.Day(s.now().UTC())
	}
	return utils.Day(t)
}

// AnalyzeLot values the open part of a lot at currentPrice. For ESPP lots the
// bargain element raises the basis the capital gain is measured against.
func (s *TaxLotService) AnalyzeLot(lot models.TaxLot, symbol string, currentPrice decimal.Decimal, referenceDate time.Time) (models.LotAnalysis, error) {
	refDate := s.referenceDate(referenceDate)
	period, err := Classify(lot.PurchaseDate, refDate)
	if err != nil {
		return models.LotAnalysis{}, err
	}
	days, err := DaysHeld(lot.PurchaseDate, refDate)
	if err != nil {
		return models.LotAnalysis{}, err
	}
	threshold, err := LongTermThresholdDate(lot.PurchaseDate)
	if err != nil {
		return models.LotAnalysis{}, err
	}

	remaining := lot.RemainingQuantity()
	costBasis := lot.CostBasis()
	currentValue := currentPrice.Mul(remaining)
	gain := currentValue.Sub(costBasis)

	analysis := models.LotAnalysis{
		LotID:                 lot.ID,
		Symbol:                symbol,
		LotType:               lot.LotType,
		PurchaseDate:          utils.Day(lot.PurchaseDate),
		RemainingQuantity:     remaining,
		CostBasis:             costBasis,
		CurrentValue:          currentValue,
		UnrealizedGain:        gain,
		TaxableGain:           gain,
		HoldingPeriod:         period,
		DaysHeld:              days,
		LongTermThresholdDate: threshold,
	}
	if income := lot.OpenBargainIncome(); lot.LotType == models.ESPPLot && income != nil {
		adjusted := costBasis.Add(*income)
		analysis.AdjustedCostBasis = &adjusted
		analysis.TaxableGain = currentValue.Sub(adjusted)
	}
	return analysis, nil
}

// EstimateForHolding analyzes every open lot of the holding and applies the
// rates to the gain buckets.
func (s *TaxLotService) EstimateForHolding(holding models.Holding, currentPrice decimal.Decimal, settings models.TaxSettings, referenceDate time.Time) (models.HoldingTaxEstimate, error) {
	if err := validateTaxSettings(settings); err != nil {
		return models.HoldingTaxEstimate{}, err
	}
	refDate := s.referenceDate(referenceDate)

	estimate := models.HoldingTaxEstimate{
		AssetID:      holding.AssetID,
		Symbol:       holding.AssetID,
		CurrentPrice: currentPrice,
		Lots:         []models.LotAnalysis{},
	}
	for _, lot := range holding.TaxLots {
		if !lot.RemainingQuantity().IsPositive() {
			continue
		}
		analysis, err := s.AnalyzeLot(lot, holding.AssetID, currentPrice, refDate)
		if err != nil {
			return models.HoldingTaxEstimate{}, fmt.Errorf("lot %s of %s: %w", lot.ID, holding.AssetID, err)
		}
		estimate.Lots = append(estimate.Lots, analysis)
		estimate.UnrealizedGain = estimate.UnrealizedGain.Add(analysis.UnrealizedGain)
		estimate.GainBuckets = estimate.GainBuckets.Add(bucketFor(analysis))
	}
	estimate.EstimatedShortTermTax, estimate.EstimatedLongTermTax, estimate.EstimatedTax = applyRates(estimate.GainBuckets, settings)
	return estimate, nil
}

// bucketFor places a lot's taxable gain in exactly one of the four buckets.
func bucketFor(a models.LotAnalysis) models.GainBuckets {
	var b models.GainBuckets
	gain := a.TaxableGain
	switch {
	case a.HoldingPeriod == models.LongTerm && gain.IsPositive():
		b.LongTermGains = gain
	case a.HoldingPeriod == models.LongTerm:
		b.LongTermLosses = gain.Abs()
	case gain.IsPositive():
		b.ShortTermGains = gain
	default:
		b.ShortTermLosses = gain.Abs()
	}
	return b
}

// applyRates taxes gains only; losses are not offset against them.
func applyRates(b models.GainBuckets, settings models.TaxSettings) (shortTerm, longTerm, total decimal.Decimal) {
	shortTerm = b.ShortTermGains.Mul(settings.ShortTermRate)
	longTerm = b.LongTermGains.Mul(settings.LongTermRate)
	return shortTerm, longTerm, shortTerm.Add(longTerm)
}

func validateTaxSettings(settings models.TaxSettings) error {
	one := decimal.NewFromInt(1)
	for name, rate := range map[string]decimal.Decimal{
		"short term": settings.ShortTermRate,
		"long term":  settings.LongTermRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(one) {
			return fmt.Errorf("%w: %s rate %s outside [0, 1]", ErrInvalidTaxSettings, name, rate)
		}
	}
	return nil
}

// EstimateTaxLiability aggregates the holdings that have a price in
// currentPrices; the others are listed in SkippedAssets.
func (s *TaxLotService) EstimateTaxLiability(holdings []models.Holding, currentPrices map[string]decimal.Decimal, settings models.TaxSettings, referenceDate time.Time) (models.PortfolioTaxEstimate, error) {
	if err := validateTaxSettings(settings); err != nil {
		return models.PortfolioTaxEstimate{}, err
	}
	refDate := s.referenceDate(referenceDate)

	result := models.PortfolioTaxEstimate{
		ReferenceDate: refDate,
		Holdings:      []models.HoldingTaxEstimate{},
	}
	for _, holding := range holdings {
		price, ok := currentPrices[holding.AssetID]
		if !ok {
			result.SkippedAssets = append(result.SkippedAssets, holding.AssetID)
			continue
		}
		estimate, err := s.EstimateForHolding(holding, price, settings, refDate)
		if err != nil {
			return models.PortfolioTaxEstimate{}, err
		}
		result.Holdings = append(result.Holdings, estimate)
		result.UnrealizedGain = result.UnrealizedGain.Add(estimate.UnrealizedGain)
		result.GainBuckets = result.GainBuckets.Add(estimate.GainBuckets)
	}
	result.EstimatedShortTermTax, result.EstimatedLongTermTax, result.EstimatedTax = applyRates(result.GainBuckets, settings)
	return result, nil
}

// EstimatePortfolio computes the portfolio's holdings as of the reference date
// and prices them on that date before estimating.
func (s *TaxLotService) EstimatePortfolio(ctx context.Context, portfolioID string, settings models.TaxSettings, referenceDate time.Time) (models.PortfolioTaxEstimate, error) {
	if err := validateTaxSettings(settings); err != nil {
		return models.PortfolioTaxEstimate{}, err
	}
	refDate := s.referenceDate(referenceDate)
	logger := utils.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"portfolio_id":   portfolioID,
		"reference_date": refDate.Format(utils.ShortDashDateLayout),
	})

	holdings, err := s.holdingsService.GetHoldingsAt(ctx, portfolioID, refDate)
	if err != nil {
		return models.PortfolioTaxEstimate{}, err
	}

	prices := make(map[string]decimal.Decimal, len(holdings))
	for _, h := range holdings {
		quote, err := s.prices.GetPriceAtDate(ctx, h.AssetID, refDate)
		if errors.Is(err, models.ErrPriceUnavailable) {
			logger.WithField("asset_id", h.AssetID).Debug("no price, skipping holding")
			continue
		}
		if err != nil {
			return models.PortfolioTaxEstimate{}, err
		}
		prices[h.AssetID] = quote.Price
	}

	estimate, err := s.EstimateTaxLiability(holdings, prices, settings, refDate)
	if err != nil {
		return models.PortfolioTaxEstimate{}, err
	}
	logger.WithField("estimated_tax", estimate.EstimatedTax.String()).Info("tax estimate computed")
	return estimate, nil
}
