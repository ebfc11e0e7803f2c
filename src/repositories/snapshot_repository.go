package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SnapshotRepository interface {
	Upsert(ctx context.Context, s *models.PerformanceSnapshot) error
	GetRange(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]models.PerformanceSnapshot, error)
	GetLatest(ctx context.Context, portfolioID string) (*models.PerformanceSnapshot, error)
	DeleteAllForPortfolio(ctx context.Context, portfolioID string) error
	DeleteRange(ctx context.Context, portfolioID string, startDate, endDate time.Time) error
}

type snapshotRepo struct {
	db *pgxpool.Pool
}

func NewSnapshotRepository(db *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepo{db: db}
}

const snapshotColumns = `id, portfolio_id, date, total_value, total_cost, day_change, day_change_percent,
	cumulative_return, time_weighted_return, holding_count, has_interpolated_prices, created_at`

func (r *snapshotRepo) Upsert(ctx context.Context, s *models.PerformanceSnapshot) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO performance_snapshots (id, portfolio_id, date, total_value, total_cost, day_change, day_change_percent,
			cumulative_return, time_weighted_return, holding_count, has_interpolated_prices)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (portfolio_id, date) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			total_cost = EXCLUDED.total_cost,
			day_change = EXCLUDED.day_change,
			day_change_percent = EXCLUDED.day_change_percent,
			cumulative_return = EXCLUDED.cumulative_return,
			time_weighted_return = EXCLUDED.time_weighted_return,
			holding_count = EXCLUDED.holding_count,
			has_interpolated_prices = EXCLUDED.has_interpolated_prices
		RETURNING id, created_at`,
		s.ID, s.PortfolioID, s.Date, s.TotalValue, s.TotalCost, s.DayChange, s.DayChangePercent,
		s.CumulativeReturn, s.TimeWeightedReturn, s.HoldingCount, s.HasInterpolatedPrices,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *snapshotRepo) GetRange(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]models.PerformanceSnapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+snapshotColumns+` FROM performance_snapshots
		WHERE portfolio_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC`,
		portfolioID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.PerformanceSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, rows.Err()
}

func (r *snapshotRepo) GetLatest(ctx context.Context, portfolioID string) (*models.PerformanceSnapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM performance_snapshots
		WHERE portfolio_id = $1 ORDER BY date DESC LIMIT 1`,
		portfolioID)
	s, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("latest snapshot of %s: %w", portfolioID, ErrNotFound)
	}
	return s, err
}

func (r *snapshotRepo) DeleteAllForPortfolio(ctx context.Context, portfolioID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM performance_snapshots WHERE portfolio_id = $1`, portfolioID)
	return err
}

func (r *snapshotRepo) DeleteRange(ctx context.Context, portfolioID string, startDate, endDate time.Time) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM performance_snapshots WHERE portfolio_id = $1 AND date BETWEEN $2 AND $3`,
		portfolioID, startDate, endDate)
	return err
}

func scanSnapshot(row pgx.Row) (*models.PerformanceSnapshot, error) {
	var s models.PerformanceSnapshot
	var date time.Time
	if err := row.Scan(&s.ID, &s.PortfolioID, &date, &s.TotalValue, &s.TotalCost, &s.DayChange, &s.DayChangePercent,
		&s.CumulativeReturn, &s.TimeWeightedReturn, &s.HoldingCount, &s.HasInterpolatedPrices, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Date = date.UTC()
	return &s, nil
}
