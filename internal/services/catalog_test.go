package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epw-platform/internal/epw"
	"epw-platform/internal/models"
)

func TestCatalog_LoadFile(t *testing.T) {
	c, m := newTestCatalog()

	station, err := c.LoadFile(context.Background(), tmyFixture)
	require.NoError(t, err)
	assert.Equal(t, "724666", station.WMONumber)
	assert.Equal(t, 1, c.Len())

	f, got, ok := c.Get(station.ID)
	require.True(t, ok)
	assert.Same(t, station, got)
	assert.Equal(t, station.Checksum, f.Checksum())

	_, _, ok = c.Get(uuid.New())
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogLookupsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesParsedTotal.WithLabelValues("typical")))

	assert.True(t, c.Remove(station.ID))
	assert.False(t, c.Remove(station.ID))
	assert.Equal(t, 0, c.Len())
}

func TestCatalog_LoadFileFailures(t *testing.T) {
	tests := []struct {
		name      string
		load      func(c *Catalog) error
		wantStage string
	}{
		{
			name: "missing file counts as io",
			load: func(c *Catalog) error {
				_, err := c.LoadFile(context.Background(), "testdata/missing.epw")
				return err
			},
			wantStage: "io",
		},
		{
			name: "bad header counts under its stage",
			load: func(c *Catalog) error {
				_, err := c.LoadBytes(context.Background(), "memory", []byte("LOCATION,only\n"))
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m := newTestCatalog()
			err := tt.load(c)
			require.Error(t, err)
			assert.Equal(t, 0, c.Len())

			stage := tt.wantStage
			if stage == "" {
				var pErr *epw.ParseError
				require.True(t, errors.As(err, &pErr))
				stage = pErr.Stage
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseFailuresTotal.WithLabelValues(stage)))
		})
	}
}

func TestCatalog_LoadDirectory(t *testing.T) {
	dir := dataDir(t, map[string][]byte{
		"tmy.epw":    readFixture(t, tmyFixture),
		"amy.EPW":    readFixture(t, amyFixture),
		"broken.epw": []byte("not a weather file\n"),
		"notes.txt":  []byte("ignored"),
	})

	c, _ := newTestCatalog()
	loaded, failed, err := c.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Len(t, failed, 1)
	assert.Equal(t, 2, c.Len())

	stations := c.Stations()
	require.Len(t, stations, 2)
	ids := []uuid.UUID{stations[0].ID, stations[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{loaded[0].ID, loaded[1].ID}, ids)
	assert.Equal(t, models.StationID(stations[0].Checksum), stations[0].ID)

	_, _, err = c.LoadDirectory(context.Background(), dir+"/nope")
	assert.Error(t, err)
}

func TestFindEpwFiles(t *testing.T) {
	dir := dataDir(t, map[string][]byte{
		"b.epw": nil,
		"a.EPW": nil,
		"c.wth": nil,
	})
	paths, err := FindEpwFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "a.EPW", paths[0][len(dir)+1:])
	assert.Equal(t, "b.epw", paths[1][len(dir)+1:])
}
