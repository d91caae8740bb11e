package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrisdamba/foodeta/internal/eta"
	"github.com/chrisdamba/foodeta/internal/lifecycle"
	"github.com/chrisdamba/foodeta/internal/models"
	"github.com/chrisdamba/foodeta/internal/repositories/postgres"
	"github.com/chrisdamba/foodeta/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "foodeta",
	Short: "Live delivery ETA tracking engine",
	Long:  `foodeta continuously estimates delivery arrival times for active orders, drives the order-status lifecycle, and publishes ETA and status events for downstream notification dispatch.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := models.LoadConfig(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if err := runTracker(cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func runTracker(cfg *models.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.ConnString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	output, err := service.NewOutputDestination(cfg)
	if err != nil {
		return err
	}
	defer output.Close()

	orders := postgres.NewOrderRepository(pool)
	distances := postgres.NewDistanceRepository(pool)
	clock := eta.SystemClock{}

	signals := eta.NewSignalProvider(orders, distances)
	performance := eta.NewPerformanceTracker(orders, clock, cfg.PerformanceCacheTTL, cfg.PerformanceWindow)
	estimator := eta.NewEstimator(signals, performance, clock)
	machine := lifecycle.NewMachine(orders, output, clock)

	tracker := service.NewTracker(cfg, orders, estimator, machine, clock, output)

	log.Printf("Starting ETA tracker, refresh interval %s", cfg.RefreshInterval)
	if err := tracker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is examples/config.json)")

	rootCmd.Flags().Bool("kafka-enabled", false, "Enable Kafka output")
	rootCmd.Flags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	rootCmd.Flags().String("output-destination", "console", "Event sink: console, json, kafka or parquet")
	rootCmd.Flags().String("output-path", "", "Base path for file outputs")
	rootCmd.Flags().Duration("refresh-interval", 0, "Cadence for re-estimating tracked orders")

	viper.BindPFlags(rootCmd.Flags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
