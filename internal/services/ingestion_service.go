package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"epw-platform/internal/epw"
	"epw-platform/internal/models"
	"epw-platform/internal/repository"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// FileStore is the part of the repository ingestion writes through.
type FileStore interface {
	GetStationByChecksum(ctx context.Context, checksum string) (*models.Station, error)
	StoreFile(ctx context.Context, file *repository.StoredFile, batchSize int) error
}

// IngestionService loads weather files and stores them in the database.
type IngestionService struct {
	store   FileStore
	opts    LoadOptions
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles        int
	SkippedFiles      int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	StationsStored    int
	Duration          time.Duration
	Errors            []string
}

// ProgressFunc is told how many of total files have been handled.
type ProgressFunc func(done, total int)

func NewIngestionService(store FileStore, opts LoadOptions, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		store:   store,
		opts:    opts,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestDirectory ingests every EPW file in dataDir. A file whose checksum
// is already stored is skipped.
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int, progress ProgressFunc) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting EPW ingestion", logging.Fields{
		"data_dir":   dataDir,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	files, err := FindEpwFiles(dataDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no EPW files found in %s", dataDir)
	}

	result := &IngestionResult{TotalFiles: len(files), Errors: make([]string, 0)}

	s.logger.Info(ctx, "[INGEST_FILES] Found EPW files", logging.Fields{
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		fileResult, err := s.IngestFile(ctx, path, batchSize)
		if progress != nil {
			progress(i+1, len(files))
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", path, err))
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": path,
				"stage":     "FILE_PROCESSING",
			}, err)
			continue
		}
		if fileResult.Skipped {
			result.SkippedFiles++
			continue
		}

		result.StationsStored++
		result.TotalRecords += fileResult.TotalRecords
		result.SuccessfulRecords += fileResult.SuccessfulRecords
		result.FailedRecords += fileResult.FailedRecords
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] EPW ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"skipped_files":      result.SkippedFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	StationID         string
	Skipped           bool
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
}

// IngestFile parses and stores one file.
func (s *IngestionService) IngestFile(ctx context.Context, path string, batchSize int) (*FileIngestionResult, error) {
	opts := []epw.Option{epw.WithStoreData(), epw.WithLogger(s.logger.Zap())}
	if s.opts.StrictActualYear {
		opts = append(opts, epw.WithStrictActualYear())
	}

	timer := s.metrics.NewTimer(s.metrics.ParseDuration)
	f, err := epw.Load(path, opts...)
	timer.ObserveDuration()
	if err != nil {
		var pErr *epw.ParseError
		stage := ""
		if errors.As(err, &pErr) {
			stage = pErr.Stage
		}
		s.metrics.RecordParseFailure(stage)
		s.metrics.RecordIngestionError("parse_error")
		return nil, err
	}
	s.metrics.RecordParsed(f.IsActual())

	existing, err := s.store.GetStationByChecksum(ctx, f.Checksum())
	switch {
	case err == nil && existing != nil:
		s.logger.Info(ctx, "[INGEST_SKIP] Weather file already stored", logging.Fields{
			"file_path":  path,
			"station_id": existing.ID.String(),
			"checksum":   f.Checksum(),
			"stage":      "DEDUPLICATION",
		})
		return &FileIngestionResult{StationID: existing.ID.String(), Skipped: true}, nil
	case err != nil && !isNotFound(err):
		s.metrics.RecordIngestionError("lookup_error")
		return nil, fmt.Errorf("failed to look up station: %w", err)
	}

	stored, result, err := BuildStoredFile(f)
	if err != nil {
		s.metrics.RecordIngestionError("conversion_error")
		return nil, err
	}
	if err := s.store.StoreFile(ctx, stored, batchSize); err != nil {
		s.metrics.RecordIngestionError("store_error")
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested successfully", logging.Fields{
		"file_path":          path,
		"station_id":         result.StationID,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"stage":              "FILE_COMPLETE",
	})
	return result, nil
}

// BuildStoredFile maps a loaded file onto its database rows. Records that
// cannot be converted are counted as failed and left out.
func BuildStoredFile(f *epw.File) (*repository.StoredFile, *FileIngestionResult, error) {
	station := models.NewStation(f)
	result := &FileIngestionResult{StationID: station.ID.String()}

	data, err := f.Data()
	if err != nil {
		return nil, nil, err
	}
	stored := &repository.StoredFile{
		Station:      station,
		Observations: make([]*models.Observation, 0, len(data)),
	}
	for _, p := range data {
		result.TotalRecords++
		obs, err := models.ToObservation(station.ID, p)
		if err != nil {
			result.FailedRecords++
			continue
		}
		stored.Observations = append(stored.Observations, obs)
		result.SuccessfulRecords++
	}

	designs, err := f.DesignConditions()
	if err != nil {
		return nil, nil, err
	}
	for _, dc := range designs {
		row, err := models.ToDesignCondition(station.ID, dc)
		if err != nil {
			return nil, nil, err
		}
		stored.DesignConditions = append(stored.DesignConditions, row)
	}

	depths, err := f.GroundTemperatureDepths()
	if err != nil {
		return nil, nil, err
	}
	for _, g := range depths {
		stored.GroundTemperatures = append(stored.GroundTemperatures, models.ToGroundTemperature(station.ID, g))
	}
	for _, h := range f.Holidays() {
		stored.Holidays = append(stored.Holidays, models.ToHoliday(station.ID, h))
	}
	return stored, result, nil
}

func isNotFound(err error) bool {
	var nf *repository.NotFoundError
	return errors.As(err, &nf) || errors.Is(err, sql.ErrNoRows)
}
