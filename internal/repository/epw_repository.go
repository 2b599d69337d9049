package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"epw-platform/internal/models"
	"epw-platform/pkg/database"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// EpwRepository provides data access for ingested weather files
type EpwRepository interface {
	// Station operations
	GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error)
	GetStationByChecksum(ctx context.Context, checksum string) (*models.Station, error)
	ListStations(ctx context.Context, filter StationFilter) ([]*models.Station, int, error)
	DeleteStation(ctx context.Context, id uuid.UUID) error

	// StoreFile replaces everything stored for the station in one transaction.
	StoreFile(ctx context.Context, file *StoredFile, batchSize int) error

	GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.Observation, int, error)
	GetDesignConditions(ctx context.Context, stationID uuid.UUID) ([]*models.DesignCondition, error)
	GetGroundTemperatures(ctx context.Context, stationID uuid.UUID) ([]*models.GroundTemperature, error)
	GetHolidays(ctx context.Context, stationID uuid.UUID) ([]*models.Holiday, error)

	// Statistics operations
	UpsertStatistics(ctx context.Context, stats []*models.FieldStatistics) error
	GetStatistics(ctx context.Context, stationID uuid.UUID, field string) ([]*models.FieldStatistics, error)

	HealthCheck(ctx context.Context) error
}

// StoredFile is one weather file mapped onto the schema.
type StoredFile struct {
	Station            *models.Station
	Observations       []*models.Observation
	DesignConditions   []*models.DesignCondition
	GroundTemperatures []*models.GroundTemperature
	Holidays           []*models.Holiday
}

// StationFilter narrows a station listing.
type StationFilter struct {
	Country  *string
	IsActual *bool
	Limit    int
	Offset   int
}

// ObservationFilter defines filters for querying observations
type ObservationFilter struct {
	StationID uuid.UUID
	Start     *time.Time
	End       *time.Time
	Month     *int
	Limit     int
	Offset    int
}

type epwRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func NewEpwRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) EpwRepository {
	return &epwRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const stationColumns = `id, city, state_province_region, country, data_source, wmo_number,
	latitude, longitude, time_zone, elevation, records_per_hour, start_day_of_week,
	start_date, end_date, is_actual, source_path, checksum, created_at, updated_at`

func (r *epwRepository) GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error) {
	var station models.Station
	err := r.db.GetContext(ctx, "get_station", &station,
		`SELECT `+stationColumns+` FROM epw_stations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "station", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	return &station, nil
}

func (r *epwRepository) GetStationByChecksum(ctx context.Context, checksum string) (*models.Station, error) {
	var station models.Station
	err := r.db.GetContext(ctx, "get_station_by_checksum", &station,
		`SELECT `+stationColumns+` FROM epw_stations WHERE checksum = $1`, checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "station", ID: "checksum " + checksum}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station by checksum: %w", err)
	}
	return &station, nil
}

// ListStations retrieves stations with filtering and pagination
func (r *epwRepository) ListStations(ctx context.Context, filter StationFilter) ([]*models.Station, int, error) {
	where, args := buildStationWhere(filter)

	var total int
	if err := r.db.GetContext(ctx, "count_stations", &total, `SELECT COUNT(*) FROM epw_stations`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count stations: %w", err)
	}

	query := `SELECT ` + stationColumns + ` FROM epw_stations` + where +
		fmt.Sprintf(" ORDER BY country, city LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var stations []*models.Station
	if err := r.db.SelectContext(ctx, "list_stations", &stations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, total, nil
}

func buildStationWhere(filter StationFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if filter.Country != nil {
		args = append(args, *filter.Country)
		clauses = append(clauses, fmt.Sprintf("country = $%d", len(args)))
	}
	if filter.IsActual != nil {
		args = append(args, *filter.IsActual)
		clauses = append(clauses, fmt.Sprintf("is_actual = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// DeleteStation removes a station; child rows go with it by cascade.
func (r *epwRepository) DeleteStation(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "delete_station", `DELETE FROM epw_stations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Resource: "station", ID: id.String()}
	}
	return nil
}

const (
	upsertStation = `
		INSERT INTO epw_stations (` + stationColumns + `)
		VALUES (:id, :city, :state_province_region, :country, :data_source, :wmo_number,
			:latitude, :longitude, :time_zone, :elevation, :records_per_hour, :start_day_of_week,
			:start_date, :end_date, :is_actual, :source_path, :checksum, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			source_path = EXCLUDED.source_path,
			updated_at = EXCLUDED.updated_at`

	insertObservation = `
		INSERT INTO epw_observations (
			station_id, observed_at, year, month, day, hour, minute,
			dry_bulb_temperature, dew_point_temperature, relative_humidity, atmospheric_station_pressure,
			global_horizontal_radiation, direct_normal_radiation, diffuse_horizontal_radiation,
			wind_direction, wind_speed, total_sky_cover, opaque_sky_cover, snow_depth,
			liquid_precipitation_depth, created_at)
		VALUES (
			:station_id, :observed_at, :year, :month, :day, :hour, :minute,
			:dry_bulb_temperature, :dew_point_temperature, :relative_humidity, :atmospheric_station_pressure,
			:global_horizontal_radiation, :direct_normal_radiation, :diffuse_horizontal_radiation,
			:wind_direction, :wind_speed, :total_sky_cover, :opaque_sky_cover, :snow_depth,
			:liquid_precipitation_depth, :created_at)`

	insertDesignCondition = `
		INSERT INTO epw_design_conditions (station_id, title, design_values)
		VALUES (:station_id, :title, :design_values)`

	insertGroundTemperature = `
		INSERT INTO epw_ground_temperatures (
			station_id, depth_m, soil_conductivity, soil_density, soil_specific_heat, monthly_temperatures)
		VALUES (:station_id, :depth_m, :soil_conductivity, :soil_density, :soil_specific_heat, :monthly_temperatures)`

	insertHoliday = `
		INSERT INTO epw_holidays (station_id, name, date)
		VALUES (:station_id, :name, :date)`
)

// StoreFile upserts the station and replaces its child rows. Observations
// are written in multi-row batches of batchSize.
func (r *epwRepository) StoreFile(ctx context.Context, file *StoredFile, batchSize int) error {
	if file == nil || file.Station == nil {
		return &models.ValidationError{Field: "station", Message: "stored file needs a station"}
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	id := file.Station.ID

	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_STORE_FILE] Weather file stored", logging.Fields{
			"station_id":   id.String(),
			"observations": len(file.Observations),
			"duration_ms":  time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, upsertStation, file.Station); err != nil {
		return fmt.Errorf("failed to upsert station: %w", err)
	}
	for _, table := range []string{"epw_observations", "epw_design_conditions", "epw_ground_temperatures", "epw_holidays"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE station_id = $1`, id); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for start := 0; start < len(file.Observations); start += batchSize {
		end := start + batchSize
		if end > len(file.Observations) {
			end = len(file.Observations)
		}
		batch := file.Observations[start:end]
		if _, err := tx.NamedExecContext(ctx, insertObservation, batch); err != nil {
			return fmt.Errorf("failed to insert observations %d-%d: %w", start, end, err)
		}
		r.metrics.IngestionBatchSize.Observe(float64(len(batch)))
	}
	if len(file.DesignConditions) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertDesignCondition, file.DesignConditions); err != nil {
			return fmt.Errorf("failed to insert design conditions: %w", err)
		}
	}
	if len(file.GroundTemperatures) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertGroundTemperature, file.GroundTemperatures); err != nil {
			return fmt.Errorf("failed to insert ground temperatures: %w", err)
		}
	}
	if len(file.Holidays) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertHoliday, file.Holidays); err != nil {
			return fmt.Errorf("failed to insert holidays: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.metrics.IngestionPointsTotal.Add(float64(len(file.Observations)))
	return nil
}

// GetObservations retrieves one station's observations in time order.
func (r *epwRepository) GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.Observation, int, error) {
	where, args := buildObservationWhere(filter)

	var total int
	if err := r.db.GetContext(ctx, "count_observations", &total, `SELECT COUNT(*) FROM epw_observations`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count observations: %w", err)
	}

	query := `SELECT * FROM epw_observations` + where +
		fmt.Sprintf(" ORDER BY observed_at LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var observations []*models.Observation
	if err := r.db.SelectContext(ctx, "get_observations", &observations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get observations: %w", err)
	}
	return observations, total, nil
}

func buildObservationWhere(filter ObservationFilter) (string, []interface{}) {
	args := []interface{}{filter.StationID}
	clauses := []string{"station_id = $1"}
	if filter.Start != nil {
		args = append(args, *filter.Start)
		clauses = append(clauses, fmt.Sprintf("observed_at >= $%d", len(args)))
	}
	if filter.End != nil {
		args = append(args, *filter.End)
		clauses = append(clauses, fmt.Sprintf("observed_at <= $%d", len(args)))
	}
	if filter.Month != nil {
		args = append(args, *filter.Month)
		clauses = append(clauses, fmt.Sprintf("month = $%d", len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *epwRepository) GetDesignConditions(ctx context.Context, stationID uuid.UUID) ([]*models.DesignCondition, error) {
	var out []*models.DesignCondition
	err := r.db.SelectContext(ctx, "get_design_conditions", &out,
		`SELECT * FROM epw_design_conditions WHERE station_id = $1 ORDER BY id`, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get design conditions: %w", err)
	}
	return out, nil
}

func (r *epwRepository) GetGroundTemperatures(ctx context.Context, stationID uuid.UUID) ([]*models.GroundTemperature, error) {
	var out []*models.GroundTemperature
	err := r.db.SelectContext(ctx, "get_ground_temperatures", &out,
		`SELECT * FROM epw_ground_temperatures WHERE station_id = $1 ORDER BY depth_m`, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ground temperatures: %w", err)
	}
	return out, nil
}

func (r *epwRepository) GetHolidays(ctx context.Context, stationID uuid.UUID) ([]*models.Holiday, error) {
	var out []*models.Holiday
	err := r.db.SelectContext(ctx, "get_holidays", &out,
		`SELECT * FROM epw_holidays WHERE station_id = $1 ORDER BY id`, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holidays: %w", err)
	}
	return out, nil
}

const upsertStatistics = `
	INSERT INTO epw_field_statistics (station_id, field, month, count, mean, min, max, std_dev, updated_at)
	VALUES (:station_id, :field, :month, :count, :mean, :min, :max, :std_dev, :updated_at)
	ON CONFLICT (station_id, field, month) DO UPDATE SET
		count = EXCLUDED.count,
		mean = EXCLUDED.mean,
		min = EXCLUDED.min,
		max = EXCLUDED.max,
		std_dev = EXCLUDED.std_dev,
		updated_at = EXCLUDED.updated_at`

// UpsertStatistics creates or updates monthly field statistics
func (r *epwRepository) UpsertStatistics(ctx context.Context, stats []*models.FieldStatistics) error {
	if len(stats) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range stats {
		if _, err := tx.NamedExecContext(ctx, upsertStatistics, s); err != nil {
			return fmt.Errorf("failed to upsert statistics for %s month %d: %w", s.Field, s.Month, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetStatistics returns stored statistics of a station; an empty field
// returns every field.
func (r *epwRepository) GetStatistics(ctx context.Context, stationID uuid.UUID, field string) ([]*models.FieldStatistics, error) {
	query := `SELECT * FROM epw_field_statistics WHERE station_id = $1`
	args := []interface{}{stationID}
	if field != "" {
		query += ` AND field = $2`
		args = append(args, field)
	}
	query += ` ORDER BY field, month`

	var out []*models.FieldStatistics
	if err := r.db.SelectContext(ctx, "get_statistics", &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return out, nil
}

func (r *epwRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
