package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	c, _ := newTestCatalog()

	tests := []struct {
		name     string
		cfg      SchedulerConfig
		wantJobs int
		wantErr  bool
	}{
		{name: "nothing scheduled", cfg: SchedulerConfig{}},
		{name: "rescan only", cfg: SchedulerConfig{RescanSpec: "@every 1h"}, wantJobs: 1},
		{
			name:     "fetch without fetcher is ignored",
			cfg:      SchedulerConfig{RescanSpec: "*/5 * * * *", FetchSpec: "@daily", FetchURLs: []string{"https://example.com/a.epw"}},
			wantJobs: 1,
		},
		{name: "bad spec", cfg: SchedulerConfig{RescanSpec: "every day"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(tt.cfg, t.TempDir(), c, nil, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantJobs, s.Jobs())
		})
	}
}

func TestScheduler_Rescan(t *testing.T) {
	dir := dataDir(t, map[string][]byte{"tmy.epw": readFixture(t, tmyFixture)})
	c, _ := newTestCatalog()

	s, err := NewScheduler(SchedulerConfig{RescanSpec: "@every 1h"}, dir, c, nil, testLogger())
	require.NoError(t, err)
	s.Start()

	s.Rescan(context.Background())
	assert.Equal(t, 1, c.Len())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
