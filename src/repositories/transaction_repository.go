package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository is the read side of the ledger, plus Create for the
// ledger-entry collaborator and fixtures.
type TransactionRepository interface {
	GetByPortfolio(ctx context.Context, portfolioID string) ([]models.Transaction, error)
	GetByPortfolioAndAsset(ctx context.Context, portfolioID, assetID string) ([]models.Transaction, error)
	ListPortfolioIDs(ctx context.Context) ([]string, error)
	Create(ctx context.Context, t *models.Transaction) error
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

const transactionColumns = `id, portfolio_id, asset_id, type, date, quantity, price_per_unit, total_amount, fees, currency, notes, tax_metadata, created_at`

func (r *transactionRepo) GetByPortfolio(ctx context.Context, portfolioID string) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE portfolio_id = $1`,
		portfolioID,
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func (r *transactionRepo) GetByPortfolioAndAsset(ctx context.Context, portfolioID, assetID string) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE portfolio_id = $1 AND asset_id = $2`,
		portfolioID, assetID,
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func (r *transactionRepo) ListPortfolioIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT portfolio_id FROM transactions ORDER BY portfolio_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var date, createdAt time.Time
		var taxMetadata []byte
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.AssetID, &t.Type, &date, &t.Quantity, &t.PricePerUnit,
			&t.TotalAmount, &t.Fees, &t.Currency, &t.Notes, &taxMetadata, &createdAt); err != nil {
			return nil, err
		}
		if len(taxMetadata) > 0 && string(taxMetadata) != "null" {
			var meta models.TaxMetadata
			if err := json.Unmarshal(taxMetadata, &meta); err != nil {
				return nil, fmt.Errorf("decoding tax metadata of transaction %s: %w", t.ID, err)
			}
			t.TaxMetadata = &meta
		}
		t.Date = date
		t.CreatedAt = createdAt
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *transactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	var taxMetadata []byte
	if t.TaxMetadata != nil {
		var err error
		taxMetadata, err = json.Marshal(t.TaxMetadata)
		if err != nil {
			return err
		}
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO transactions (id, portfolio_id, asset_id, type, date, quantity, price_per_unit, total_amount, fees, currency, notes, tax_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		t.ID, t.PortfolioID, t.AssetID, t.Type, t.Date, t.Quantity, t.PricePerUnit, t.TotalAmount, t.Fees, t.Currency, t.Notes, taxMetadata,
	).Scan(&t.CreatedAt)
}
