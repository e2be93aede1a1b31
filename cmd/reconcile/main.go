// Command reconcile repairs the search index of one user.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/infrastructure/config"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/di"
)

func main() {
	userID := flag.String("user", "", "user whose search index is rebuilt")
	flag.Parse()
	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger
	defer func() { _ = logger.Sync() }()

	report, err := container.Reconciler.ReconcileSearchIndex(ctx, *userID)
	if err != nil {
		logger.Fatal("Reconcile failed", zap.String("userId", *userID), zap.Error(err))
	}

	logger.Info("Search index reconciled",
		zap.String("userId", *userID),
		zap.Int("itemsScanned", report.ItemsScanned),
		zap.Int("rowsScanned", report.RowsScanned),
		zap.Int("rowsDeleted", report.RowsDeleted),
		zap.Int("rowsWritten", report.RowsWritten),
	)
}
