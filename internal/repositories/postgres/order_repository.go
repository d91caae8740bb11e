package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// statusTimestampColumns maps a target status to the column stamped on
// transition. Keys double as the allow-list for column interpolation.
var statusTimestampColumns = map[string]string{
	models.OrderStatusPacked:         "packed_at",
	models.OrderStatusOutForDelivery: "out_for_delivery_at",
	models.OrderStatusDelivered:      "delivered_at",
	models.OrderStatusCancelled:      "cancelled_at",
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
        INSERT INTO orders (
            id, customer_id, runner_id, is_express, distance_km,
            total_amount, status, version, placed_at
        ) VALUES (
            $1, $2, NULLIF($3, ''), $4, $5, $6, $7::order_status, $8, $9
        )
    `

	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.CustomerID,
		order.RunnerID,
		order.IsExpress,
		order.DistanceKm,
		order.TotalAmount,
		order.Status,
		order.Version,
		order.PlacedAt,
	)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `
        SELECT
            id, customer_id, COALESCE(runner_id, ''), is_express, COALESCE(distance_km, 0),
            total_amount, status, version, placed_at,
            packed_at, out_for_delivery_at, delivered_at, cancelled_at
        FROM orders
        WHERE id = $1
    `

	order := &models.Order{}
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.CustomerID,
		&order.RunnerID,
		&order.IsExpress,
		&order.DistanceKm,
		&order.TotalAmount,
		&order.Status,
		&order.Version,
		&order.PlacedAt,
		&order.PackedAt,
		&order.OutForDeliveryAt,
		&order.DeliveredAt,
		&order.CancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) ListActive(ctx context.Context) ([]*models.Order, error) {
	query := `
        SELECT
            id, customer_id, COALESCE(runner_id, ''), is_express, COALESCE(distance_km, 0),
            total_amount, status, version, placed_at,
            packed_at, out_for_delivery_at, delivered_at, cancelled_at
        FROM orders
        WHERE status NOT IN ('delivered'::order_status, 'cancelled'::order_status)
        ORDER BY placed_at
    `

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.RunnerID,
			&order.IsExpress,
			&order.DistanceKm,
			&order.TotalAmount,
			&order.Status,
			&order.Version,
			&order.PlacedAt,
			&order.PackedAt,
			&order.OutForDeliveryAt,
			&order.DeliveredAt,
			&order.CancelledAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) CountActiveForRunner(ctx context.Context, runnerID string) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM orders
        WHERE runner_id = $1
          AND status IN ('packed'::order_status, 'out_for_delivery'::order_status)
    `

	var count int
	err := r.pool.QueryRow(ctx, query, runnerID).Scan(&count)
	return count, err
}

func (r *OrderRepository) ListRecentDelivered(ctx context.Context, runnerID string, limit int) ([]models.DeliveryRecord, error) {
	query := `
        SELECT placed_at, delivered_at
        FROM orders
        WHERE runner_id = $1
          AND status = 'delivered'::order_status
          AND delivered_at IS NOT NULL
        ORDER BY delivered_at DESC
        LIMIT $2
    `

	rows, err := r.pool.Query(ctx, query, runnerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.DeliveryRecord
	for rows.Next() {
		var rec models.DeliveryRecord
		if err := rows.Scan(&rec.CreatedAt, &rec.DeliveredAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, order *models.Order, newStatus string) (bool, error) {
	column, ok := statusTimestampColumns[newStatus]
	if !ok {
		return false, fmt.Errorf("no timestamp column for status %q", newStatus)
	}

	query := fmt.Sprintf(`
        UPDATE orders
        SET
            status = $3::order_status,
            %s = $4,
            version = version + 1,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1
          AND status = $2::order_status
          AND version = $5
    `, column)

	tag, err := r.pool.Exec(ctx, query,
		order.ID,
		order.Status,
		newStatus,
		time.Now(),
		order.Version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
