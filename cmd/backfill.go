package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/chrisdamba/foodeta/internal/eta"
	"github.com/chrisdamba/foodeta/internal/models"
	"github.com/chrisdamba/foodeta/internal/repositories/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute rolling performance stats for every runner",
	Long:  `backfill walks all runners and recomputes their rolling average delivery duration from recent completed deliveries, reporting how many runners have usable history.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := models.LoadConfig(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if err := runBackfill(cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func runBackfill(cfg *models.Config) error {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.ConnString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	orders := postgres.NewOrderRepository(pool)
	runners := postgres.NewRunnerRepository(pool)
	clock := eta.SystemClock{}
	tracker := eta.NewPerformanceTracker(orders, clock, cfg.PerformanceCacheTTL, cfg.PerformanceWindow)

	ids, err := runners.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing runners: %w", err)
	}

	bar := progressbar.Default(int64(len(ids)), "recomputing runner stats")

	var withHistory int
	var totalAvg float64
	for _, id := range ids {
		if perf := tracker.Get(ctx, id); perf != nil {
			withHistory++
			totalAvg += perf.AvgDeliveryMinutes
		}
		bar.Add(1)
	}

	log.Printf("Backfill complete: %d/%d runners have usable delivery history", withHistory, len(ids))
	if withHistory > 0 {
		log.Printf("Mean of rolling averages: %.1f minutes", totalAvg/float64(withHistory))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
