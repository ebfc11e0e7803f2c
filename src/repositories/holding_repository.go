package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ledger/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type HoldingRepository interface {
	Upsert(ctx context.Context, h *models.Holding) error
	Delete(ctx context.Context, holdingID string) error
	GetByPortfolioAndAsset(ctx context.Context, portfolioID, assetID string) (*models.Holding, error)
	GetByPortfolio(ctx context.Context, portfolioID string) ([]models.Holding, error)
}

type holdingRepo struct {
	db *pgxpool.Pool
}

func NewHoldingRepository(db *pgxpool.Pool) HoldingRepository {
	return &holdingRepo{db: db}
}

const holdingColumns = `id, portfolio_id, asset_id, quantity, cost_basis, average_cost, current_value,
	unrealized_gain, unrealized_gain_percent, tax_lots, last_updated, ownership_percent`

func (r *holdingRepo) Upsert(ctx context.Context, h *models.Holding) error {
	lots, err := json.Marshal(h.TaxLots)
	if err != nil {
		return err
	}
	ownership := decimal.NullDecimal{}
	if h.OwnershipPercent != nil {
		ownership = decimal.NewNullDecimal(*h.OwnershipPercent)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// A holding row is keyed by (portfolio, asset); the id is derived from
	// both so a recomputation replaces the row in place.
	_, err = tx.Exec(ctx, `
		INSERT INTO holdings (`+holdingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (portfolio_id, asset_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			cost_basis = EXCLUDED.cost_basis,
			average_cost = EXCLUDED.average_cost,
			current_value = EXCLUDED.current_value,
			unrealized_gain = EXCLUDED.unrealized_gain,
			unrealized_gain_percent = EXCLUDED.unrealized_gain_percent,
			tax_lots = EXCLUDED.tax_lots,
			last_updated = EXCLUDED.last_updated,
			ownership_percent = EXCLUDED.ownership_percent`,
		h.ID, h.PortfolioID, h.AssetID, h.Quantity, h.CostBasis, h.AverageCost, h.CurrentValue,
		h.UnrealizedGain, h.UnrealizedGainPercent, lots, h.LastUpdated, ownership,
	)
	if err != nil {
		return err
	}
	err = tx.Commit(ctx)
	return err
}

func (r *holdingRepo) Delete(ctx context.Context, holdingID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM holdings WHERE id = $1`, holdingID)
	return err
}

func (r *holdingRepo) GetByPortfolioAndAsset(ctx context.Context, portfolioID, assetID string) (*models.Holding, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = $1 AND asset_id = $2`,
		portfolioID, assetID)
	h, err := scanHolding(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("holding %s/%s: %w", portfolioID, assetID, ErrNotFound)
	}
	return h, err
}

func (r *holdingRepo) GetByPortfolio(ctx context.Context, portfolioID string) ([]models.Holding, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = $1 ORDER BY asset_id`,
		portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}
	return holdings, rows.Err()
}

func scanHolding(row pgx.Row) (*models.Holding, error) {
	var h models.Holding
	var lots []byte
	var ownership decimal.NullDecimal
	if err := row.Scan(&h.ID, &h.PortfolioID, &h.AssetID, &h.Quantity, &h.CostBasis, &h.AverageCost, &h.CurrentValue,
		&h.UnrealizedGain, &h.UnrealizedGainPercent, &lots, &h.LastUpdated, &ownership); err != nil {
		return nil, err
	}
	if len(lots) > 0 {
		if err := json.Unmarshal(lots, &h.TaxLots); err != nil {
			return nil, fmt.Errorf("decoding tax lots of holding %s: %w", h.ID, err)
		}
	}
	if ownership.Valid {
		h.OwnershipPercent = &ownership.Decimal
	}
	return &h, nil
}
