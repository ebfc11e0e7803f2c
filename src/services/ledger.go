package services

import (
	"fmt"
	"sort"
	"time"

	"ledger/src/models"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
)

// CostBasisMethod defines how a holding's cost basis is derived.
type CostBasisMethod int

const (
	// AverageCost reduces the basis proportionally to the quantity sold.
	AverageCost CostBasisMethod = iota
	// FIFO takes the basis from the open tax lots, earliest consumed first.
	FIFO
)

func (m CostBasisMethod) String() string {
	switch m {
	case AverageCost:
		return "average"
	case FIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// ParseCostBasisMethod parses a string into a CostBasisMethod.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch s {
	case "", "average":
		return AverageCost, nil
	case "fifo":
		return FIFO, nil
	default:
		return 0, fmt.Errorf("unknown cost basis method: %q", s)
	}
}

// sortLedger orders transactions by day. Within a day acquisitions come
// before disposals so that a same-day buy and sell finds the shares, then
// creation time and id make the order total.
func sortLedger(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		di, dj := utils.Day(txs[i].Date), utils.Day(txs[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		ri, rj := sameDayRank(txs[i].Type), sameDayRank(txs[j].Type)
		if ri != rj {
			return ri < rj
		}
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return txs[i].ID < txs[j].ID
	})
}

func sameDayRank(t models.TransactionType) int {
	switch {
	case t.Acquires():
		return 0
	case t == models.Split:
		return 1
	case t.Disposes():
		return 3
	default:
		return 2
	}
}

func validateLedger(txs []models.Transaction) error {
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// position is the running state of one asset while the ledger is replayed.
type position struct {
	quantity  decimal.Decimal
	costBasis decimal.Decimal
	lots      []models.TaxLot
}

func (p *position) apply(tx models.Transaction) {
	switch tx.Type {
	case models.Buy, models.TransferIn, models.Reinvestment:
		p.quantity = p.quantity.Add(tx.Quantity)
		p.costBasis = p.costBasis.Add(tx.TotalAmount)
		if tx.Quantity.IsPositive() {
			p.lots = append(p.lots, newLot(tx))
		}
	case models.Sell, models.TransferOut:
		if !p.quantity.IsZero() {
			p.costBasis = p.costBasis.Sub(p.costBasis.Mul(tx.Quantity).Div(p.quantity))
		}
		p.quantity = p.quantity.Sub(tx.Quantity)
		p.consumeFIFO(tx.Quantity)
	case models.Split:
		p.quantity = p.quantity.Mul(tx.Quantity)
		for i := range p.lots {
			p.lots[i] = splitLot(p.lots[i], tx.Quantity)
		}
	case models.Fee, models.Tax:
		p.costBasis = p.costBasis.Sub(tx.TotalAmount)
	case models.Dividend, models.Interest, models.Spinoff, models.Merger:
		// Income, or corporate actions not modelled yet.
	}
	p.quantity = utils.ClampZero(p.quantity)
	p.costBasis = utils.ClampZero(p.costBasis)
}

// consumeFIFO marks quantity as sold from the earliest open lots.
func (p *position) consumeFIFO(quantity decimal.Decimal) {
	remaining := quantity
	for i := range p.lots {
		if !remaining.IsPositive() {
			return
		}
		open := p.lots[i].RemainingQuantity()
		if !open.IsPositive() {
			continue
		}
		take := decimal.Min(open, remaining)
		p.lots[i].SoldQuantity = p.lots[i].SoldQuantity.Add(take)
		remaining = remaining.Sub(take)
	}
}

// lotCostBasis is the basis of the shares still open, FIFO style.
func (p *position) lotCostBasis() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.lots {
		total = total.Add(l.CostBasis())
	}
	return total
}

func (p *position) basis(method CostBasisMethod) decimal.Decimal {
	if method == FIFO {
		return p.lotCostBasis()
	}
	return p.costBasis
}

func (p *position) averageCost(method CostBasisMethod) decimal.Decimal {
	return utils.SafeDiv(p.basis(method), p.quantity)
}

func (p *position) openLots() []models.TaxLot {
	lots := make([]models.TaxLot, len(p.lots))
	copy(lots, p.lots)
	return lots
}

func newLot(tx models.Transaction) models.TaxLot {
	total := tx.TotalAmount
	if !total.IsPositive() {
		total = tx.PricePerUnit.Mul(tx.Quantity)
	}
	lot := models.TaxLot{
		ID:           tx.ID,
		Quantity:     tx.Quantity,
		TotalCost:    total,
		PurchaseDate: utils.Day(tx.Date),
		SoldQuantity: decimal.Zero,
		LotType:      models.StandardLot,
	}
	meta := tx.TaxMetadata
	if meta != nil {
		if meta.GrantDate != nil {
			grant := utils.Day(*meta.GrantDate)
			lot.GrantDate = &grant
		}
		switch {
		case meta.DiscountPercent != nil:
			lot.LotType = models.ESPPLot
			income := esppBargainIncome(tx, *meta)
			lot.BargainIncome = &income
		case meta.VestingDate != nil:
			// RSU shares are acquired at market value on the vesting date, which
			// already is the basis; no bargain element applies.
			lot.LotType = models.RSULot
			lot.PurchaseDate = utils.Day(*meta.VestingDate)
		}
	}
	return withPerShare(lot)
}

// withPerShare refreshes the per-share figures from the lot totals.
func withPerShare(l models.TaxLot) models.TaxLot {
	if !l.Quantity.IsPositive() {
		return l
	}
	l.PurchasePrice = l.TotalCost.Div(l.Quantity)
	if l.BargainIncome != nil {
		perShare := l.BargainIncome.Div(l.Quantity)
		l.BargainElement = &perShare
	}
	return l
}

// esppBargainIncome is the discount of the whole lot taxed as ordinary
// income. The reported ordinary income wins; otherwise it is derived from the
// discount off market value: price = fmv × (1 − d), so per share
// fmv − price = price × d / (1 − d).
func esppBargainIncome(tx models.Transaction, meta models.TaxMetadata) decimal.Decimal {
	if meta.OrdinaryIncomeAmount != nil {
		return *meta.OrdinaryIncomeAmount
	}
	d := meta.DiscountPercent.Div(decimal.NewFromInt(100))
	if d.GreaterThanOrEqual(decimal.NewFromInt(1)) || d.IsNegative() {
		return decimal.Zero
	}
	return tx.PricePerUnit.Mul(tx.Quantity).Mul(d).Div(decimal.NewFromInt(1).Sub(d))
}

// splitLot rescales the quantities of a lot. Its totals are unchanged.
func splitLot(l models.TaxLot, ratio decimal.Decimal) models.TaxLot {
	l.Quantity = l.Quantity.Mul(ratio)
	l.SoldQuantity = l.SoldQuantity.Mul(ratio)
	return withPerShare(l)
}

// book replays a multi-asset ledger one transaction at a time so the state
// can be read at any day boundary.
type book struct {
	positions map[string]*position
}

func newBook() *book {
	return &book{positions: make(map[string]*position)}
}

func (b *book) apply(tx models.Transaction) {
	p, ok := b.positions[tx.AssetID]
	if !ok {
		p = &position{}
		b.positions[tx.AssetID] = p
	}
	p.apply(tx)
}

// held returns the ids of the assets with a positive quantity, sorted.
func (b *book) held() []string {
	var ids []string
	for id, p := range b.positions {
		if p.quantity.IsPositive() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (b *book) totalCost(assetIDs []string, method CostBasisMethod) decimal.Decimal {
	total := decimal.Zero
	for _, id := range assetIDs {
		total = total.Add(b.positions[id].basis(method))
	}
	return total
}

func earliestDate(txs []models.Transaction) time.Time {
	var earliest time.Time
	for _, tx := range txs {
		d := utils.Day(tx.Date)
		if earliest.IsZero() || d.Before(earliest) {
			earliest = d
		}
	}
	return earliest
}
