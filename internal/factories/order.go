package factories

import (
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
)

var fake = faker.New()

type OrderFactory struct{}

// CreateOrder builds a freshly placed order. Runner assignment is left
// empty; the dispatch flow owns that.
func (of *OrderFactory) CreateOrder(placedAt time.Time) *models.Order {
	return &models.Order{
		ID:          cuid.New(),
		CustomerID:  cuid.New(),
		IsExpress:   fake.Bool(),
		DistanceKm:  fake.Float64(2, 0, 8),
		TotalAmount: fake.Float64(2, 8, 120),
		Status:      models.OrderStatusPlaced,
		Version:     1,
		PlacedAt:    placedAt,
	}
}

// CreateDeliveredOrder builds a completed order for a runner, delivered
// after the given duration. Used to seed performance history.
func (of *OrderFactory) CreateDeliveredOrder(runnerID string, placedAt time.Time, duration time.Duration) *models.Order {
	deliveredAt := placedAt.Add(duration)
	order := of.CreateOrder(placedAt)
	order.RunnerID = runnerID
	order.Status = models.OrderStatusDelivered
	order.DeliveredAt = &deliveredAt
	return order
}
