package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/audit"
	"github.com/raaihank/packlist-sanitizer/internal/batch"
	"github.com/raaihank/packlist-sanitizer/internal/config"
	"github.com/raaihank/packlist-sanitizer/internal/logger"
	"github.com/raaihank/packlist-sanitizer/internal/sanitizer"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Configuration file path")
		inputFile    = flag.String("input", "", "Input dataset (CSV, JSON lines or Parquet) with document_id and text")
		outputFile   = flag.String("output", "", "Report file (CSV, JSON lines or Parquet)")
		workers      = flag.Int("workers", 0, "Number of worker goroutines (default from config)")
		maxTextBytes = flag.Int("max-text-bytes", 0, "Skip documents longer than this (0 = unlimited)")
		withAudit    = flag.Bool("audit", false, "Record every document in the audit database")
		showStats    = flag.Bool("stats", false, "Show audit statistics and exit")
	)
	flag.Parse()

	if (*inputFile == "" || *outputFile == "") && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input lists.csv --output report.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input lists.parquet --output report.parquet --workers 8\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	var recorder audit.Recorder = audit.Noop{}
	if *withAudit || *showStats {
		store, err := audit.NewStore(ctx, audit.Config{
			DatabaseURL:     cfg.Audit.DatabaseURL,
			MaxOpenConns:    cfg.Audit.MaxConnections,
			MaxIdleConns:    cfg.Audit.MaxIdle,
			ConnMaxLifetime: cfg.Audit.ConnMaxLifetime,
		}, log.WithComponent("audit"))
		if err != nil {
			log.Fatal("Failed to connect to audit database", zap.Error(err))
		}
		defer store.Close()
		recorder = store
	}

	if *showStats {
		if err := printStats(ctx, recorder); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
		return
	}

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("file", *inputFile))
	}

	batchConfig := &batch.Config{
		Workers:        cfg.Batch.Workers,
		ProgressReport: 1000,
		MaxTextBytes:   *maxTextBytes,
	}
	if *workers > 0 {
		batchConfig.Workers = *workers
	}

	pipeline := batch.NewPipeline(sanitizer.New(nil, log.WithComponent("sanitizer")), recorder, batchConfig, log)

	result, err := pipeline.ProcessFile(ctx, *inputFile, *outputFile)
	if err != nil {
		log.Fatal("Batch processing failed", zap.Error(err))
	}

	log.Info("Dataset processing completed",
		zap.String("input", *inputFile),
		zap.String("output", *outputFile),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("ok", result.OK),
		zap.Int64("blocked", result.Blocked),
		zap.Int64("skipped", result.Skipped),
		zap.Duration("total_duration", result.Duration),
		zap.Float64("records_per_second", float64(result.TotalRecords)/max(result.Duration.Seconds(), time.Millisecond.Seconds())))

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}
}

// printStats displays audit statistics
func printStats(ctx context.Context, recorder audit.Recorder) error {
	summary, err := recorder.Summary(ctx)
	if err != nil {
		return fmt.Errorf("failed to get audit summary: %w", err)
	}

	pct := func(n int64) float64 {
		if summary.Total == 0 {
			return 0
		}
		return float64(n) / float64(summary.Total) * 100
	}

	fmt.Printf("\n=== Packing List Sanitizer Audit Statistics ===\n")
	fmt.Printf("Total Jobs:    %d\n", summary.Total)
	fmt.Printf("OK:            %d (%.1f%%)\n", summary.OK, pct(summary.OK))
	fmt.Printf("Blocked:       %d (%.1f%%)\n", summary.Blocked, pct(summary.Blocked))
	fmt.Printf("Failed:        %d (%.1f%%)\n", summary.Failed, pct(summary.Failed))
	return nil
}
