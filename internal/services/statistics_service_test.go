package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epw-platform/internal/epw"
	"epw-platform/internal/models"
	"epw-platform/pkg/metrics"
)

type fakeStatisticsStore struct {
	rows []*models.FieldStatistics
	err  error
}

func (s *fakeStatisticsStore) UpsertStatistics(_ context.Context, stats []*models.FieldStatistics) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, stats...)
	return nil
}

func TestStatisticsService_ComputeMonthly(t *testing.T) {
	f, err := epw.Load(tmyFixture, epw.WithStoreData())
	require.NoError(t, err)
	svc := NewStatisticsService(&fakeStatisticsStore{}, testLogger(), metrics.NewCollector("epw_test"))
	id := uuid.New()

	tests := []struct {
		name        string
		field       string
		wantErr     error
		checkValues func(*testing.T, []*models.FieldStatistics)
	}{
		{
			name:  "data field",
			field: "Dry Bulb Temperature",
			checkValues: func(t *testing.T, rows []*models.FieldStatistics) {
				require.Len(t, rows, 2)
				assert.Equal(t, 0, rows[0].Month)
				assert.Equal(t, 24, rows[0].Count)
				assert.Equal(t, 1, rows[1].Month)
				assert.Equal(t, 24, rows[1].Count)
				assert.Equal(t, rows[0].Mean, rows[1].Mean)
				assert.LessOrEqual(t, rows[0].Min, rows[0].Max)
				assert.Equal(t, id, rows[0].StationID)
			},
		},
		{
			name:  "computed field falls back",
			field: "Enthalpy",
			checkValues: func(t *testing.T, rows []*models.FieldStatistics) {
				require.NotEmpty(t, rows)
				assert.Equal(t, "Enthalpy", rows[0].Field)
				assert.Equal(t, 24, rows[0].Count)
			},
		},
		{
			name:    "unknown field",
			field:   "Cloudiness",
			wantErr: epw.ErrUnknownField,
		},
		{
			name:    "field without data",
			field:   "Snow Depth",
			wantErr: epw.ErrNoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := svc.ComputeMonthly(id, f, tt.field)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checkValues(t, rows)
		})
	}
}

func TestStatisticsService_CalculateAll(t *testing.T) {
	f, err := epw.Load(tmyFixture, epw.WithStoreData())
	require.NoError(t, err)

	store := &fakeStatisticsStore{}
	svc := NewStatisticsService(store, testLogger(), metrics.NewCollector("epw_test"))

	n, err := svc.CalculateAll(context.Background(), uuid.New(), f,
		[]string{"Dry Bulb Temperature", "Snow Depth", "Humidity Ratio"})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, store.rows, 4)

	_, err = svc.CalculateAll(context.Background(), uuid.New(), f, []string{"Cloudiness"})
	assert.ErrorIs(t, err, epw.ErrUnknownField)

	failing := NewStatisticsService(&fakeStatisticsStore{err: errors.New("down")}, testLogger(), metrics.NewCollector("epw_test"))
	_, err = failing.CalculateAll(context.Background(), uuid.New(), f, nil)
	assert.EqualError(t, err, "down")
}
