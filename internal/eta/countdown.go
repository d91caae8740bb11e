package eta

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
)

// ProjectAt converts a point-in-time estimate into whole remaining
// seconds. Remaining never goes negative; overdue turns on once the
// wall clock has passed the estimate.
func ProjectAt(estimatedTime, now time.Time) models.Projection {
	remaining := int(math.Floor(estimatedTime.Sub(now).Seconds()))
	if remaining <= 0 {
		return models.Projection{
			RemainingSeconds: 0,
			Overdue:          now.After(estimatedTime),
		}
	}
	return models.Projection{RemainingSeconds: remaining}
}

// Projector ticks a single estimate down at 1 Hz. Overdue is a one-way
// latch for the lifetime of the projection: only a fresh
// EstimationResult (and so a fresh Projector) clears it.
type Projector struct {
	estimatedTime time.Time
	clock         Clock
	overdue       bool
}

func NewProjector(estimatedTime time.Time, clock Clock) *Projector {
	return &Projector{estimatedTime: estimatedTime, clock: clock}
}

// Project computes the current countdown state and latches overdue.
func (p *Projector) Project() models.Projection {
	proj := ProjectAt(p.estimatedTime, p.clock.Now())
	if p.overdue {
		proj.RemainingSeconds = 0
		proj.Overdue = true
	}
	p.overdue = proj.Overdue
	return proj
}

// Run emits a projection every second until the context is cancelled.
// The channel closes when polling stops.
func (p *Projector) Run(ctx context.Context) <-chan models.Projection {
	out := make(chan models.Projection, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- p.Project():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// FormatRemaining renders a projection for a display surface:
// minutes:seconds above a minute, plain seconds below it, and the
// arrival strings at and past zero.
func FormatRemaining(proj models.Projection) string {
	switch {
	case proj.Overdue:
		return "Arriving"
	case proj.RemainingSeconds == 0:
		return "Arriving now"
	case proj.RemainingSeconds >= 60:
		return fmt.Sprintf("%d:%02d", proj.RemainingSeconds/60, proj.RemainingSeconds%60)
	default:
		return fmt.Sprintf("%ds", proj.RemainingSeconds)
	}
}
