package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"epw-platform/internal/calendar"
	"epw-platform/internal/epw"
	"epw-platform/internal/models"
	"epw-platform/internal/timeseries"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// StatisticsStore persists computed statistics.
type StatisticsStore interface {
	UpsertStatistics(ctx context.Context, stats []*models.FieldStatistics) error
}

// DefaultStatisticsFields are summarized for every stored station.
var DefaultStatisticsFields = []string{
	"Dry Bulb Temperature",
	"Dew Point Temperature",
	"Relative Humidity",
	"Atmospheric Station Pressure",
	"Global Horizontal Radiation",
	"Wind Speed",
	"Enthalpy",
	"Humidity Ratio",
}

// StatisticsService summarizes data and computed fields by month.
type StatisticsService struct {
	store   StatisticsStore
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func NewStatisticsService(store StatisticsStore, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		store:   store,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// FieldSeries resolves name as a data field first and as a computed field
// second.
func FieldSeries(f *epw.File, name string) (timeseries.TimeSeries, error) {
	ts, err := f.GetTimeSeries(name)
	if errors.Is(err, epw.ErrUnknownField) {
		return f.GetComputedTimeSeries(name)
	}
	return ts, err
}

// ComputeMonthly returns one row per month with data plus month 0 for the
// whole file.
func (s *StatisticsService) ComputeMonthly(stationID uuid.UUID, f *epw.File, field string) ([]*models.FieldStatistics, error) {
	timer := s.metrics.NewTimer(s.metrics.StatsCalculationDuration)
	defer timer.ObserveDuration()

	ts, err := FieldSeries(f, field)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := func(month int, sum timeseries.Summary) *models.FieldStatistics {
		return &models.FieldStatistics{
			StationID: stationID,
			Field:     field,
			Month:     month,
			Count:     sum.Count,
			Mean:      sum.Mean,
			Min:       sum.Min,
			Max:       sum.Max,
			StdDev:    sum.StdDev,
			UpdatedAt: now,
		}
	}

	out := []*models.FieldStatistics{row(0, ts.Summary())}
	monthly := ts.MonthlySummaries()
	for m := calendar.Jan; m <= calendar.Dec; m++ {
		if sum, ok := monthly[m]; ok {
			out = append(out, row(int(m), sum))
		}
	}
	return out, nil
}

// CalculateAll summarizes fields for one file and stores the result. Fields
// the file has no data for are skipped.
func (s *StatisticsService) CalculateAll(ctx context.Context, stationID uuid.UUID, f *epw.File, fields []string) (int, error) {
	startTime := time.Now()
	if len(fields) == 0 {
		fields = DefaultStatisticsFields
	}

	s.logger.Info(ctx, "[STATS_CALC_START] Starting statistics calculation", logging.Fields{
		"station_id": stationID.String(),
		"fields":     len(fields),
		"stage":      "INITIALIZATION",
	})

	var all []*models.FieldStatistics
	for _, field := range fields {
		rows, err := s.ComputeMonthly(stationID, f, field)
		if errors.Is(err, epw.ErrNoData) {
			s.logger.Debug(ctx, "[STATS_NO_DATA] Field has no values", logging.Fields{
				"station_id": stationID.String(),
				"field":      field,
			})
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("statistics for %q: %w", field, err)
		}
		all = append(all, rows...)
	}

	if err := s.store.UpsertStatistics(ctx, all); err != nil {
		s.logger.Error(ctx, "[STATS_SAVE_ERROR] Failed to save statistics", logging.Fields{
			"station_id": stationID.String(),
		}, err)
		return 0, err
	}

	s.logger.Info(ctx, "[STATS_CALC_COMPLETE] Statistics calculation completed", logging.Fields{
		"station_id":       stationID.String(),
		"total_statistics": len(all),
		"duration_seconds": time.Since(startTime).Seconds(),
		"stage":            "COMPLETE",
	})
	return len(all), nil
}
