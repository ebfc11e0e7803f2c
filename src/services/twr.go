package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ledger/src/models"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
)

var ErrInvalidPeriod = errors.New("invalid return period")

var one = decimal.NewFromInt(1)

// PeriodReturn is the Modified Dietz return of one sub-period:
//
//	(end − start − ΣCF) / (start + Σ w·CF)
//
// where w is the fraction of the period left after the flow. A period that
// starts from nothing has no baseline and returns zero.
func PeriodReturn(startValue, endValue decimal.Decimal, cashFlows []models.CashFlowEvent, periodStart, periodEnd time.Time) (decimal.Decimal, error) {
	start, end := utils.Day(periodStart), utils.Day(periodEnd)
	if periodStart.IsZero() || periodEnd.IsZero() || end.Before(start) {
		return decimal.Zero, fmt.Errorf("%w: %v to %v", ErrInvalidPeriod, periodStart, periodEnd)
	}
	length := decimal.NewFromInt(int64(utils.DaysBetween(start, end)))

	netFlow := decimal.Zero
	weightedFlow := decimal.Zero
	for _, cf := range cashFlows {
		at := utils.Day(cf.Date)
		if at.Before(start) || at.After(end) {
			return decimal.Zero, fmt.Errorf("%w: cash flow on %s outside %s..%s", ErrInvalidPeriod,
				at.Format(utils.ShortDashDateLayout), start.Format(utils.ShortDashDateLayout), end.Format(utils.ShortDashDateLayout))
		}
		netFlow = netFlow.Add(cf.Amount)
		if length.IsPositive() {
			weight := decimal.NewFromInt(int64(utils.DaysBetween(at, end))).Div(length)
			weightedFlow = weightedFlow.Add(cf.Amount.Mul(weight))
		}
	}

	if startValue.IsZero() {
		return decimal.Zero, nil
	}
	denominator := startValue.Add(weightedFlow)
	if denominator.IsZero() {
		return decimal.Zero, nil
	}
	return endValue.Sub(startValue).Sub(netFlow).Div(denominator), nil
}

// Compound links sub-period returns geometrically: ∏(1 + r) − 1.
func Compound(returns []decimal.Decimal) decimal.Decimal {
	growth := one
	for _, r := range returns {
		growth = growth.Mul(one.Add(r))
	}
	return growth.Sub(one)
}

// CashFlowsFromTransactions derives external flows from the ledger. Buys and
// transfers in are contributions, sells and transfers out withdrawals.
// Reinvested income stays inside the portfolio and is not a flow.
func CashFlowsFromTransactions(txs []models.Transaction) []models.CashFlowEvent {
	var flows []models.CashFlowEvent
	for _, tx := range txs {
		switch tx.Type {
		case models.Buy, models.TransferIn:
			flows = append(flows, models.CashFlowEvent{Date: utils.Day(tx.Date), Amount: tx.TotalAmount})
		case models.Sell, models.TransferOut:
			flows = append(flows, models.CashFlowEvent{Date: utils.Day(tx.Date), Amount: tx.TotalAmount.Neg()})
		}
	}
	return flows
}

// ValuationPoint is the value of a portfolio at the end of a day.
type ValuationPoint struct {
	Date  time.Time
	Value decimal.Decimal
}

// SeriesReturn splits a value series into sub-periods bounded by consecutive
// valuation points, assigns each flow to the sub-period ending on or after it,
// and compounds the sub-period returns.
func SeriesReturn(points []ValuationPoint, flows []models.CashFlowEvent) (decimal.Decimal, []decimal.Decimal, error) {
	if len(points) < 2 {
		return decimal.Zero, nil, nil
	}
	sorted := append([]ValuationPoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	returns := make([]decimal.Decimal, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		from, to := utils.Day(sorted[i-1].Date), utils.Day(sorted[i].Date)
		var inPeriod []models.CashFlowEvent
		for _, cf := range flows {
			at := utils.Day(cf.Date)
			if at.After(from) && !at.After(to) {
				inPeriod = append(inPeriod, cf)
			}
		}
		r, err := PeriodReturn(sorted[i-1].Value, sorted[i].Value, inPeriod, from, to)
		if err != nil {
			return decimal.Zero, nil, err
		}
		returns = append(returns, r)
	}
	return Compound(returns), returns, nil
}
