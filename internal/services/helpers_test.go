package services

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

var (
	tmyFixture = filepath.Join("..", "epw", "testdata", "denver_day.epw")
	amyFixture = filepath.Join("..", "epw", "testdata", "denver_amy.epw")
)

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("epw-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

// dataDir copies the named fixtures into a fresh directory.
func dataDir(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
	}
	return dir
}

func newTestCatalog() (*Catalog, *metrics.Collector) {
	m := metrics.NewCollector("epw_test")
	return NewCatalog(LoadOptions{StoreData: true}, testLogger(), m), m
}
