package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imageAttach/cmd/app"
	"imageAttach/internal/config"
	"imageAttach/internal/logger"
	"imageAttach/internal/queue"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cleanupLimit  int
	cleanupMinAge time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "imagectl",
		Short:        "Image attachment maintenance tasks",
		SilenceUsage: true,
	}

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume variant jobs from the Redis stream",
		RunE:  runWorker,
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup-orphans",
		Short: "Delete old images that are attached to nothing",
		RunE:  runCleanup,
	}
	cleanupCmd.Flags().IntVar(&cleanupLimit, "limit", 500, "Maximum number of images to delete")
	cleanupCmd.Flags().DurationVar(&cleanupMinAge, "min-age", 24*time.Hour, "Only delete images older than this")

	rootCmd.AddCommand(workerCmd, cleanupCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *app.App) {
	cfg := config.LoadConfig()
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	return cfg, app.New(cfg)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, a := setup()
	defer logger.Sync()
	defer a.Close()

	if a.Redis == nil {
		return errors.New("REDIS_ADDR is required to run the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := queue.NewWorker(a.Redis, cfg.Variants, a.Services.Variant)
	if err := worker.Start(ctx); err != nil {
		return errors.Wrap(err, "variant worker")
	}
	return nil
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	if cleanupLimit < 1 {
		return fmt.Errorf("--limit must be positive, got %d", cleanupLimit)
	}
	if cleanupMinAge < 0 {
		return fmt.Errorf("--min-age must not be negative, got %s", cleanupMinAge)
	}

	_, a := setup()
	defer logger.Sync()
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deleted, err := a.Services.Cleanup.CleanupOrphans(ctx, cleanupMinAge, cleanupLimit)
	if err != nil {
		return errors.Wrap(err, "cleanup orphans")
	}

	logger.Log.Info("cleanup finished",
		zap.Int("deleted", deleted),
		zap.Duration("min_age", cleanupMinAge),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d orphaned images\n", deleted)
	return nil
}
