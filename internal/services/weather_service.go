package services

import (
	"context"

	"github.com/google/uuid"

	"epw-platform/internal/models"
	"epw-platform/internal/repository"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// WeatherService reads stored weather files back out of the database.
type WeatherService struct {
	repo    repository.EpwRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func NewWeatherService(repo repository.EpwRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherService {
	return &WeatherService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetStations lists stored stations with filtering and pagination.
func (s *WeatherService) GetStations(ctx context.Context, filter repository.StationFilter) ([]*models.Station, int, error) {
	return s.repo.ListStations(ctx, filter)
}

func (s *WeatherService) GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error) {
	return s.repo.GetStation(ctx, id)
}

// GetObservations retrieves stored data records with filtering
func (s *WeatherService) GetObservations(ctx context.Context, filter repository.ObservationFilter) ([]*models.Observation, int, error) {
	return s.repo.GetObservations(ctx, filter)
}

// StationDetail is a station with its header blocks.
type StationDetail struct {
	Station            *models.Station             `json:"station"`
	DesignConditions   []*models.DesignCondition   `json:"design_conditions"`
	GroundTemperatures []*models.GroundTemperature `json:"ground_temperatures"`
	Holidays           []*models.Holiday           `json:"holidays"`
}

// GetStationDetail loads a station and every header block stored with it.
func (s *WeatherService) GetStationDetail(ctx context.Context, id uuid.UUID) (*StationDetail, error) {
	station, err := s.repo.GetStation(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &StationDetail{Station: station}
	if detail.DesignConditions, err = s.repo.GetDesignConditions(ctx, id); err != nil {
		return nil, err
	}
	if detail.GroundTemperatures, err = s.repo.GetGroundTemperatures(ctx, id); err != nil {
		return nil, err
	}
	if detail.Holidays, err = s.repo.GetHolidays(ctx, id); err != nil {
		return nil, err
	}
	return detail, nil
}

// GetStatistics returns stored statistics; an empty field returns all.
func (s *WeatherService) GetStatistics(ctx context.Context, stationID uuid.UUID, field string) ([]*models.FieldStatistics, error) {
	return s.repo.GetStatistics(ctx, stationID, field)
}

func (s *WeatherService) DeleteStation(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteStation(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "[STATION_DELETED] Station removed", logging.Fields{
		"station_id": id.String(),
	})
	return nil
}

func (s *WeatherService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
