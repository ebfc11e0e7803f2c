package services_test

import (
	"context"
	"testing"
	"time"

	"ledger/src/models"
	"ledger/src/services"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardLot(t *testing.T, id, purchased, quantity, price string) models.TaxLot {
	return models.TaxLot{
		ID:            id,
		Quantity:      dec(quantity),
		PurchasePrice: dec(price),
		PurchaseDate:  day(t, purchased),
		SoldQuantity:  decimal.Zero,
		LotType:       models.StandardLot,
	}
}

func rates(shortTerm, longTerm string) models.TaxSettings {
	return models.TaxSettings{ShortTermRate: dec(shortTerm), LongTermRate: dec(longTerm)}
}

func TestAnalyzeLot(t *testing.T) {
	svc := services.NewTaxLotService(nil, nil)
	lot := standardLot(t, "lot-1", "2023-01-01", "100", "120")

	t.Run("should classify a lot held 200 days as short term", func(t *testing.T) {
		analysis, err := svc.AnalyzeLot(lot, "AAPL", dec("150"), utils.AddDays(lot.PurchaseDate, 200))
		require.NoError(t, err)
		requireDecimal(t, "12000", analysis.CostBasis)
		requireDecimal(t, "15000", analysis.CurrentValue)
		requireDecimal(t, "3000", analysis.UnrealizedGain)
		assert.Equal(t, models.ShortTerm, analysis.HoldingPeriod)
		assert.Equal(t, 200, analysis.DaysHeld)
		assert.Equal(t, day(t, "2024-01-02"), analysis.LongTermThresholdDate)
		assert.Nil(t, analysis.AdjustedCostBasis)
	})

	t.Run("should classify a lot held 400 days as long term", func(t *testing.T) {
		analysis, err := svc.AnalyzeLot(lot, "AAPL", dec("150"), utils.AddDays(lot.PurchaseDate, 400))
		require.NoError(t, err)
		assert.Equal(t, models.LongTerm, analysis.HoldingPeriod)
	})

	t.Run("should raise the basis of an ESPP lot by the bargain element", func(t *testing.T) {
		bargain := dec("15")
		espp := standardLot(t, "espp-1", "2024-01-01", "100", "50")
		espp.LotType = models.ESPPLot
		espp.BargainElement = &bargain

		analysis, err := svc.AnalyzeLot(espp, "ACME", dec("70"), day(t, "2024-06-01"))
		require.NoError(t, err)
		requireDecimal(t, "5000", analysis.CostBasis)
		require.NotNil(t, analysis.AdjustedCostBasis)
		requireDecimal(t, "6500", *analysis.AdjustedCostBasis)
		requireDecimal(t, "2000", analysis.UnrealizedGain)
		requireDecimal(t, "500", analysis.TaxableGain)
	})

	t.Run("should only count the remaining quantity", func(t *testing.T) {
		partly := standardLot(t, "lot-2", "2024-01-01", "100", "10")
		partly.SoldQuantity = dec("40")
		analysis, err := svc.AnalyzeLot(partly, "AAPL", dec("12"), day(t, "2024-02-01"))
		require.NoError(t, err)
		requireDecimal(t, "60", analysis.RemainingQuantity)
		requireDecimal(t, "120", analysis.UnrealizedGain)
	})

	t.Run("should keep the lot basis exact after a 3:1 split", func(t *testing.T) {
		txs := []models.Transaction{
			trade(t, "buy", models.Buy, "AAPL", "2024-01-01", "100", "100"),
			trade(t, "split", models.Split, "AAPL", "2024-02-01", "3", "0"),
		}
		h, err := services.NewHoldingsService(nil, nil, nil, services.FIFO).CalculateHolding("portfolio-1", "AAPL", txs)
		require.NoError(t, err)
		require.Len(t, h.TaxLots, 1)

		analysis, err := svc.AnalyzeLot(h.TaxLots[0], "AAPL", dec("40"), day(t, "2024-06-01"))
		require.NoError(t, err)
		requireDecimal(t, "300", analysis.RemainingQuantity)
		requireDecimal(t, "10000", analysis.CostBasis)
		requireDecimal(t, "12000", analysis.CurrentValue)
		requireDecimal(t, "2000", analysis.UnrealizedGain)
	})

	t.Run("should prorate the total cost of a partly sold lot", func(t *testing.T) {
		partly := models.TaxLot{
			ID:           "lot-3",
			Quantity:     dec("300"),
			TotalCost:    dec("10000"),
			PurchaseDate: day(t, "2024-01-01"),
			SoldQuantity: dec("150"),
			LotType:      models.StandardLot,
		}
		analysis, err := svc.AnalyzeLot(partly, "AAPL", dec("40"), day(t, "2024-06-01"))
		require.NoError(t, err)
		requireDecimal(t, "5000", analysis.CostBasis)
		requireDecimal(t, "1000", analysis.UnrealizedGain)
	})

	t.Run("should fail when the reference precedes the purchase", func(t *testing.T) {
		_, err := svc.AnalyzeLot(lot, "AAPL", dec("150"), day(t, "2022-12-31"))
		require.ErrorIs(t, err, services.ErrReferenceBeforePurchase)
	})
}

func TestEstimateForHolding(t *testing.T) {
	svc := services.NewTaxLotService(nil, nil)
	purchase := day(t, "2023-01-01")

	t.Run("should tax a short term gain at the short term rate", func(t *testing.T) {
		holding := models.Holding{AssetID: "AAPL", TaxLots: []models.TaxLot{standardLot(t, "lot-1", "2023-01-01", "100", "120")}}
		estimate, err := svc.EstimateForHolding(holding, dec("150"), rates("0.24", "0.15"), utils.AddDays(purchase, 200))
		require.NoError(t, err)
		requireDecimal(t, "3000", estimate.UnrealizedGain)
		requireDecimal(t, "3000", estimate.ShortTermGains)
		requireDecimal(t, "720", estimate.EstimatedShortTermTax)
		requireDecimal(t, "0", estimate.EstimatedLongTermTax)
		requireDecimal(t, "720", estimate.EstimatedTax)
	})

	t.Run("should tax a long term gain at the long term rate", func(t *testing.T) {
		holding := models.Holding{AssetID: "AAPL", TaxLots: []models.TaxLot{standardLot(t, "lot-1", "2023-01-01", "100", "120")}}
		estimate, err := svc.EstimateForHolding(holding, dec("150"), rates("0.24", "0.15"), utils.AddDays(purchase, 400))
		require.NoError(t, err)
		requireDecimal(t, "3000", estimate.LongTermGains)
		requireDecimal(t, "450", estimate.EstimatedLongTermTax)
		requireDecimal(t, "450", estimate.EstimatedTax)
	})

	t.Run("should keep gains and losses apart", func(t *testing.T) {
		holding := models.Holding{AssetID: "AAPL", TaxLots: []models.TaxLot{
			standardLot(t, "gain", "2023-01-01", "100", "120"),
			standardLot(t, "loss", "2023-02-01", "100", "165"),
		}}
		estimate, err := svc.EstimateForHolding(holding, dec("150"), rates("0.24", "0.15"), day(t, "2023-06-01"))
		require.NoError(t, err)
		requireDecimal(t, "3000", estimate.ShortTermGains)
		requireDecimal(t, "1500", estimate.ShortTermLosses)
		requireDecimal(t, "1500", estimate.UnrealizedGain)
		requireDecimal(t, "720", estimate.EstimatedShortTermTax)
	})

	t.Run("should skip fully sold lots", func(t *testing.T) {
		sold := standardLot(t, "sold", "2023-01-01", "10", "100")
		sold.SoldQuantity = dec("10")
		holding := models.Holding{AssetID: "AAPL", TaxLots: []models.TaxLot{sold, standardLot(t, "open", "2023-01-01", "1", "100")}}
		estimate, err := svc.EstimateForHolding(holding, dec("110"), rates("0.3", "0.1"), day(t, "2023-03-01"))
		require.NoError(t, err)
		require.Len(t, estimate.Lots, 1)
		assert.Equal(t, "open", estimate.Lots[0].LotID)
	})

	t.Run("should reject rates outside zero to one", func(t *testing.T) {
		_, err := svc.EstimateForHolding(models.Holding{}, dec("1"), rates("24", "0.15"), day(t, "2023-03-01"))
		require.ErrorIs(t, err, services.ErrInvalidTaxSettings)
		_, err = svc.EstimateForHolding(models.Holding{}, dec("1"), rates("0.2", "-0.1"), day(t, "2023-03-01"))
		require.ErrorIs(t, err, services.ErrInvalidTaxSettings)
	})
}

func TestEstimateTaxLiability(t *testing.T) {
	svc := services.NewTaxLotService(nil, nil)

	t.Run("should aggregate priced holdings and list the rest", func(t *testing.T) {
		holdings := []models.Holding{
			{AssetID: "AAPL", TaxLots: []models.TaxLot{standardLot(t, "a", "2022-01-01", "10", "100")}},
			{AssetID: "MSFT", TaxLots: []models.TaxLot{standardLot(t, "b", "2023-05-01", "10", "300")}},
			{AssetID: "PRIVATE", TaxLots: []models.TaxLot{standardLot(t, "c", "2023-05-01", "1", "1000")}},
		}
		prices := map[string]decimal.Decimal{"AAPL": dec("150"), "MSFT": dec("280")}

		estimate, err := svc.EstimateTaxLiability(holdings, prices, rates("0.3", "0.15"), day(t, "2023-09-01"))
		require.NoError(t, err)
		require.Len(t, estimate.Holdings, 2)
		assert.Equal(t, []string{"PRIVATE"}, estimate.SkippedAssets)
		requireDecimal(t, "500", estimate.LongTermGains)
		requireDecimal(t, "200", estimate.ShortTermLosses)
		requireDecimal(t, "300", estimate.UnrealizedGain)
		requireDecimal(t, "75", estimate.EstimatedLongTermTax)
		requireDecimal(t, "0", estimate.EstimatedShortTermTax)
		requireDecimal(t, "75", estimate.EstimatedTax)
	})
}

func TestEstimatePortfolio(t *testing.T) {
	ctx := context.Background()

	t.Run("should price the current holdings at the reference date", func(t *testing.T) {
		now := day(t, "2024-06-01")
		f := newFixture(t,
			trade(t, "a", models.Buy, "AAPL", "2023-01-01", "100", "120"),
			trade(t, "b", models.Buy, "HOUSE", "2023-01-01", "1", "300000"),
		)
		f.price(t, "AAPL", "2023-07-20", "150")
		holdings := services.NewHoldingsService(f.transactions, f.holdings, f.prices, services.AverageCost).WithClock(fixedClock(&now))
		svc := services.NewTaxLotService(holdings, f.prices).WithClock(fixedClock(&now))

		estimate, err := svc.EstimatePortfolio(ctx, "portfolio-1", rates("0.24", "0.15"), day(t, "2023-07-20"))
		require.NoError(t, err)
		assert.Equal(t, []string{"HOUSE"}, estimate.SkippedAssets)
		requireDecimal(t, "720", estimate.EstimatedTax)

		estimate, err = svc.EstimatePortfolio(ctx, "portfolio-1", rates("0.24", "0.15"), time.Time{})
		require.NoError(t, err)
		assert.Equal(t, now, estimate.ReferenceDate)
		requireDecimal(t, "450", estimate.EstimatedTax)
	})

	t.Run("should leave out lots bought after the reference date", func(t *testing.T) {
		now := day(t, "2024-06-01")
		f := newFixture(t,
			trade(t, "a", models.Buy, "AAPL", "2023-01-01", "100", "120"),
			trade(t, "b", models.Buy, "AAPL", "2024-03-01", "50", "180"),
		)
		f.price(t, "AAPL", "2023-07-20", "150")
		f.price(t, "AAPL", "2024-05-01", "190")
		holdings := services.NewHoldingsService(f.transactions, f.holdings, f.prices, services.FIFO).WithClock(fixedClock(&now))
		svc := services.NewTaxLotService(holdings, f.prices).WithClock(fixedClock(&now))

		estimate, err := svc.EstimatePortfolio(ctx, "portfolio-1", rates("0.24", "0.15"), day(t, "2023-07-20"))
		require.NoError(t, err)
		require.Len(t, estimate.Holdings, 1)
		require.Len(t, estimate.Holdings[0].Lots, 1)
		assert.Equal(t, "a", estimate.Holdings[0].Lots[0].LotID)
		requireDecimal(t, "3000", estimate.ShortTermGains)
		requireDecimal(t, "720", estimate.EstimatedTax)

		estimate, err = svc.EstimatePortfolio(ctx, "portfolio-1", rates("0.24", "0.15"), time.Time{})
		require.NoError(t, err)
		require.Len(t, estimate.Holdings[0].Lots, 2)
		requireDecimal(t, "7000", estimate.LongTermGains)
		requireDecimal(t, "500", estimate.ShortTermGains)
	})
}
