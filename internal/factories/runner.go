package factories

import (
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
	"github.com/lucsky/cuid"
)

type RunnerFactory struct{}

func (rf *RunnerFactory) CreateRunner(now time.Time) *models.Runner {
	return &models.Runner{
		ID:       cuid.New(),
		Name:     fake.Person().Name(),
		JoinDate: fake.Time().TimeBetween(now.AddDate(-1, 0, 0), now),
		Rating:   fake.Float64(1, 1, 5),
		Status:   "available",
	}
}

// CreateDeliveryHistory produces n completed-delivery records for a
// runner, each taking between minMinutes and maxMinutes.
func (rf *RunnerFactory) CreateDeliveryHistory(n int, now time.Time, minMinutes, maxMinutes int) []models.DeliveryRecord {
	records := make([]models.DeliveryRecord, n)
	for i := range records {
		placed := now.Add(-time.Duration(i+1) * time.Hour)
		duration := time.Duration(fake.IntBetween(minMinutes, maxMinutes)) * time.Minute
		records[i] = models.DeliveryRecord{
			CreatedAt:   placed,
			DeliveredAt: placed.Add(duration),
		}
	}
	return records
}
