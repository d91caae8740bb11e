package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RunnerRepository struct {
	pool *pgxpool.Pool
}

func NewRunnerRepository(pool *pgxpool.Pool) *RunnerRepository {
	return &RunnerRepository{pool: pool}
}

func (r *RunnerRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM runners ORDER BY id")
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

// DistanceRepository resolves the routing estimate recorded for an
// order at checkout time. Unknown distances surface as ErrNoDistance so
// the estimator can fall back to its default.
type DistanceRepository struct {
	pool *pgxpool.Pool
}

var ErrNoDistance = errors.New("no distance estimate for order")

func NewDistanceRepository(pool *pgxpool.Pool) *DistanceRepository {
	return &DistanceRepository{pool: pool}
}

func (r *DistanceRepository) EstimatedDistanceKm(ctx context.Context, orderID string) (float64, error) {
	var km *float64
	err := r.pool.QueryRow(ctx,
		"SELECT distance_km FROM orders WHERE id = $1", orderID,
	).Scan(&km)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoDistance
	}
	if err != nil {
		return 0, err
	}
	if km == nil || *km <= 0 {
		return 0, ErrNoDistance
	}
	return *km, nil
}
