package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/jfs-fashion/storefront/internal/storage/postgres"
)

func main() {
	var (
		dataDir      string
		manifestPath string
		databaseURL  string
		opts         options
	)

	flag.StringVar(&dataDir, "data-dir", "data/campaigns", "directory containing the gzipped campaign code files")
	flag.StringVar(&manifestPath, "manifest", "data/campaigns/campaigns.json", "campaign manifest JSON")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&opts.bloomCapacity, "bloom-capacity", 10_000_000, "expected codes per campaign file")
	flag.Float64Var(&opts.bloomFPR, "bloom-fpr", 0.001, "bloom filter false positive rate")
	flag.IntVar(&opts.batchSize, "batch-size", 1000, "promotions per upsert batch")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, manifestPath, databaseURL, opts); err != nil {
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully")
}

func run(ctx context.Context, dataDir, manifestPath, databaseURL string, opts options) error {
	campaigns, err := loadManifest(manifestPath, dataDir)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	stats, err := ingest(ctx, campaigns, postgres.NewPromotionRepository(pool), opts)
	if err != nil {
		return err
	}
	slog.Info("ingest summary",
		slog.Int("campaigns", len(campaigns)),
		slog.Int("written", stats.written),
		slog.Int("conflicting", stats.conflicting),
		slog.Int("rejected", stats.rejected),
	)
	return nil
}
