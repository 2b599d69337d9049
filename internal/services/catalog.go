package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"epw-platform/internal/epw"
	"epw-platform/internal/models"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// LoadOptions control how the catalog parses files.
type LoadOptions struct {
	StoreData        bool
	StrictActualYear bool
}

type catalogEntry struct {
	station *models.Station
	file    *epw.File
}

// Catalog keeps loaded weather files in memory keyed by station ID.
type Catalog struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]catalogEntry

	opts    LoadOptions
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func NewCatalog(opts LoadOptions, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Catalog {
	return &Catalog{
		entries: make(map[uuid.UUID]catalogEntry),
		opts:    opts,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (c *Catalog) epwOptions() []epw.Option {
	opts := []epw.Option{epw.WithLogger(c.logger.Zap())}
	if c.opts.StoreData {
		opts = append(opts, epw.WithStoreData())
	}
	if c.opts.StrictActualYear {
		opts = append(opts, epw.WithStrictActualYear())
	}
	return opts
}

// LoadFile parses the file at path and adds it to the catalog.
func (c *Catalog) LoadFile(ctx context.Context, path string) (*models.Station, error) {
	return c.load(ctx, path, func(opts []epw.Option) (*epw.File, error) {
		return epw.Load(path, opts...)
	})
}

// LoadBytes parses downloaded content and adds it to the catalog.
func (c *Catalog) LoadBytes(ctx context.Context, origin string, content []byte) (*models.Station, error) {
	return c.load(ctx, origin, func(opts []epw.Option) (*epw.File, error) {
		return epw.LoadBytes(origin, content, opts...)
	})
}

func (c *Catalog) load(ctx context.Context, origin string, open func([]epw.Option) (*epw.File, error)) (*models.Station, error) {
	f, duration, err := c.parse(open)
	if err != nil {
		return nil, err
	}
	return c.add(ctx, origin, f, duration), nil
}

// parseBytes parses content without adding it to the catalog.
func (c *Catalog) parseBytes(origin string, content []byte) (*epw.File, time.Duration, error) {
	return c.parse(func(opts []epw.Option) (*epw.File, error) {
		return epw.LoadBytes(origin, content, opts...)
	})
}

func (c *Catalog) parse(open func([]epw.Option) (*epw.File, error)) (*epw.File, time.Duration, error) {
	timer := c.metrics.NewTimer(c.metrics.ParseDuration)
	f, err := open(c.epwOptions())
	duration := timer.ObserveDuration()
	if err != nil {
		var pErr *epw.ParseError
		stage := ""
		if errors.As(err, &pErr) {
			stage = pErr.Stage
		}
		c.metrics.RecordParseFailure(stage)
		return nil, duration, err
	}
	c.metrics.RecordParsed(f.IsActual())
	return f, duration, nil
}

func (c *Catalog) add(ctx context.Context, origin string, f *epw.File, duration time.Duration) *models.Station {
	station := models.NewStation(f)
	c.mu.Lock()
	c.entries[station.ID] = catalogEntry{station: station, file: f}
	c.mu.Unlock()

	c.logger.Info(ctx, "[CATALOG_LOAD] Weather file loaded", logging.Fields{
		"station_id":  station.ID.String(),
		"origin":      origin,
		"city":        station.City,
		"is_actual":   station.IsActual,
		"duration_ms": duration.Milliseconds(),
	})
	return station
}

// LoadDirectory loads every *.epw file under dir. Files that fail to parse
// are reported in the returned map and skipped.
func (c *Catalog) LoadDirectory(ctx context.Context, dir string) ([]*models.Station, map[string]error, error) {
	paths, err := FindEpwFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	failed := make(map[string]error)
	var loaded []*models.Station
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return loaded, failed, err
		}
		station, err := c.LoadFile(ctx, path)
		if err != nil {
			failed[path] = err
			c.logger.Warn(ctx, "[CATALOG_LOAD_FAILED] Skipping weather file", logging.Fields{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		loaded = append(loaded, station)
	}
	return loaded, failed, nil
}

// FindEpwFiles lists *.epw files in dir, case-insensitively and sorted.
func FindEpwFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".epw") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// Get returns the file and station header for id.
func (c *Catalog) Get(id uuid.UUID) (*epw.File, *models.Station, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	c.metrics.RecordCatalogLookup(ok)
	return e.file, e.station, ok
}

// Stations lists the catalog ordered by country, city and ID.
func (c *Catalog) Stations() []*models.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := maps.Keys(c.entries)
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		sa, sb := c.entries[a].station, c.entries[b].station
		if d := strings.Compare(sa.Country, sb.Country); d != 0 {
			return d
		}
		if d := strings.Compare(sa.City, sb.City); d != 0 {
			return d
		}
		return strings.Compare(a.String(), b.String())
	})
	out := make([]*models.Station, len(ids))
	for i, id := range ids {
		out[i] = c.entries[id].station
	}
	return out
}

func (c *Catalog) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	delete(c.entries, id)
	return ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
