package repositories

import (
	"context"

	"github.com/chrisdamba/foodeta/internal/models"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orderID string) (*models.Order, error)
	ListActive(ctx context.Context) ([]*models.Order, error)
	CountActiveForRunner(ctx context.Context, runnerID string) (int, error)
	ListRecentDelivered(ctx context.Context, runnerID string, limit int) ([]models.DeliveryRecord, error)
	// UpdateStatus applies an optimistic transition: the row is updated
	// only when its current status and version still match. It reports
	// whether the guarded update matched a row.
	UpdateStatus(ctx context.Context, order *models.Order, newStatus string) (bool, error)
}

type DistanceRepository interface {
	EstimatedDistanceKm(ctx context.Context, orderID string) (float64, error)
}

type RunnerRepository interface {
	ListIDs(ctx context.Context) ([]string, error)
}
