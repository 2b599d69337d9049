package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	pb "gopkg.in/cheggaaa/pb.v1"

	"epw-platform/internal/config"
	"epw-platform/internal/epw"
	"epw-platform/internal/models"
	"epw-platform/internal/repository"
	"epw-platform/internal/services"
	"epw-platform/pkg/database"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	dataDir := flag.StringP("data-dir", "d", "", "Directory containing EPW files (defaults to the configured data dir)")
	batchSize := flag.IntP("batch-size", "b", 0, "Number of observations per insert batch (defaults to the configured batch size)")
	calculateStats := flag.Bool("calculate-stats", false, "Calculate monthly statistics after ingestion")
	quiet := flag.BoolP("quiet", "q", false, "Do not draw a progress bar")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dataDir == "" {
		*dataDir = cfg.Ingestion.DataDir
	}
	if *batchSize <= 0 {
		*batchSize = cfg.Ingestion.BatchSize
	}

	logger := logging.NewStructuredLogger("epw-ingester", version, logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()
	zap.ReplaceGlobals(logger.Zap())

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting EPW ingestion", logging.Fields{
		"version":         version,
		"data_dir":        *dataDir,
		"batch_size":      *batchSize,
		"calculate_stats": *calculateStats,
	})

	metricsCollector := metrics.NewCollector("epw_ingester")

	db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	epwRepo := repository.NewEpwRepository(db, logger, metricsCollector)

	opts := services.LoadOptions{StoreData: true, StrictActualYear: cfg.Ingestion.StrictActualYear}
	ingestionService := services.NewIngestionService(epwRepo, opts, logger, metricsCollector)
	statsService := services.NewStatisticsService(epwRepo, logger, metricsCollector)

	var bar *pb.ProgressBar
	progress := func(done, total int) {
		if *quiet {
			return
		}
		if bar == nil {
			bar = pb.StartNew(total)
		}
		bar.Set(done)
	}

	result, err := ingestionService.IngestDirectory(ctx, *dataDir, *batchSize, progress)
	if bar != nil {
		bar.FinishPrint("Files processed")
	}
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"data_dir": *dataDir,
		}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:        %d\n", result.TotalFiles)
	fmt.Printf("Skipped Files:      %d\n", result.SkippedFiles)
	fmt.Printf("Stations Stored:    %d\n", result.StationsStored)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Records/Second:     %.2f\n", float64(result.SuccessfulRecords)/secs)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	if *calculateStats {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Println("CALCULATING STATISTICS")
		fmt.Println(strings.Repeat("=", 80))

		rows, failed := calculateStatistics(ctx, *dataDir, statsService, cfg.Ingestion.StrictActualYear)
		fmt.Printf("Statistics Rows:    %d\n", rows)
		if failed > 0 {
			fmt.Printf("Failed Files:       %d\n", failed)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion finished", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"skipped_files":      result.SkippedFiles,
		"duration_seconds":   result.Duration.Seconds(),
	})
}

// calculateStatistics reloads every file in dir and stores the default
// field statistics under its checksum-derived station.
func calculateStatistics(ctx context.Context, dir string, stats *services.StatisticsService, strict bool) (rows, failed int) {
	paths, err := services.FindEpwFiles(dir)
	if err != nil {
		fmt.Printf("Statistics calculation failed: %v\n", err)
		return 0, 1
	}

	opts := []epw.Option{epw.WithStoreData()}
	if strict {
		opts = append(opts, epw.WithStrictActualYear())
	}

	for _, path := range paths {
		f, err := epw.Load(path, opts...)
		if err != nil {
			fmt.Printf("  - %s: %v\n", filepath.Base(path), err)
			failed++
			continue
		}
		n, err := stats.CalculateAll(ctx, models.StationID(f.Checksum()), f, services.DefaultStatisticsFields)
		if err != nil {
			fmt.Printf("  - %s: %v\n", filepath.Base(path), err)
			failed++
			continue
		}
		rows += n
	}
	return rows, failed
}
