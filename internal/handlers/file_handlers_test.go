package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epw-platform/internal/services"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

var tmyFixture = filepath.Join("..", "epw", "testdata", "denver_day.epw")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("epw-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

// newTestRouter serves a catalog holding the typical-year fixture.
func newTestRouter(t *testing.T) (*mux.Router, uuid.UUID) {
	t.Helper()
	logger := testLogger()
	m := metrics.NewCollector("epw_test")
	catalog := services.NewCatalog(services.LoadOptions{StoreData: true}, logger, m)
	station, err := catalog.LoadFile(context.Background(), tmyFixture)
	require.NoError(t, err)

	stats := services.NewStatisticsService(nil, logger, m)
	files := NewFileHandler(catalog, stats, nil, logger, m)
	return NewRouter(files, nil, nil, catalog, logger, m), station.ID
}

func do(t *testing.T, router http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestFileHandler_Routes(t *testing.T) {
	router, id := newTestRouter(t)
	base := "/api/files/" + id.String()
	field := func(path, name string, extra ...string) string {
		q := url.Values{"field": {name}}
		for i := 0; i+1 < len(extra); i += 2 {
			q.Set(extra[i], extra[i+1])
		}
		return base + path + "?" + q.Encode()
	}

	tests := []struct {
		name        string
		method      string
		target      string
		wantStatus  int
		checkValues func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:       "list files",
			target:     "/api/files",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out []map[string]interface{}
				decode(t, rec, &out)
				require.Len(t, out, 1)
				assert.Equal(t, id.String(), out[0]["id"])
			},
		},
		{
			name:       "file header",
			target:     base,
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out map[string]interface{}
				decode(t, rec, &out)
				assert.Equal(t, "724666", out["wmo_number"])
				assert.Equal(t, 60.0, out["time_step_minutes"])
				assert.Equal(t, false, out["is_actual"])
			},
		},
		{name: "bad id", target: "/api/files/nope", wantStatus: http.StatusBadRequest},
		{name: "unknown id", target: "/api/files/" + uuid.NewString(), wantStatus: http.StatusNotFound},
		{
			name:       "paginated data",
			target:     base + "/data?page=2&limit=5",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out struct {
					Data       []DataPointView `json:"data"`
					Total      int             `json:"total"`
					TotalPages int             `json:"total_pages"`
				}
				decode(t, rec, &out)
				assert.Equal(t, 24, out.Total)
				assert.Equal(t, 5, out.TotalPages)
				require.Len(t, out.Data, 5)
				assert.Equal(t, 6, out.Data[0].Hour)
				assert.Equal(t, -1.0, out.Data[0].Values["Dry Bulb Temperature"])
			},
		},
		{
			name:       "series as json",
			target:     field("/series", "Dry Bulb Temperature"),
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out SeriesResponse
				decode(t, rec, &out)
				assert.Equal(t, "C", out.Units)
				assert.Equal(t, "2009-Jan-01 00:00:00", out.Start)
				assert.Len(t, out.Points, 24)
				assert.Equal(t, 24, out.Summary.Count)
			},
		},
		{
			name:       "series as csv",
			target:     field("/series", "Wind Speed", "format", "csv"),
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
				assert.True(t, strings.HasPrefix(rec.Body.String(), "datetime,value,units\n"))
			},
		},
		{
			name:       "series as png",
			target:     field("/series", "Dry Bulb Temperature", "format", "png"),
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
			},
		},
		{name: "unknown format", target: field("/series", "Wind Speed", "format", "xml"), wantStatus: http.StatusBadRequest},
		{name: "unknown field", target: field("/series", "Cloudiness"), wantStatus: http.StatusBadRequest},
		{name: "field without data", target: field("/series", "Snow Depth"), wantStatus: http.StatusNotFound},
		{name: "missing field", target: base + "/series", wantStatus: http.StatusBadRequest},
		{
			name:       "computed series",
			target:     field("/computed", "Enthalpy"),
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out SeriesResponse
				decode(t, rec, &out)
				assert.Equal(t, "kJ/kg", out.Units)
			},
		},
		{
			name:       "design conditions",
			target:     base + "/design",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out []map[string]interface{}
				decode(t, rec, &out)
				require.Len(t, out, 1)
				assert.Equal(t, "Climate Design Data 2009 ASHRAE Handbook", out[0]["title"])
			},
		},
		{
			name:       "ground temperatures",
			target:     base + "/ground",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out []map[string]interface{}
				decode(t, rec, &out)
				assert.Len(t, out, 3)
			},
		},
		{
			name:       "no holidays is an empty list",
			target:     base + "/holidays",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, "[]", rec.Body.String())
			},
		},
		{
			name:       "wth export",
			target:     base + "/wth",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.True(t, strings.HasPrefix(rec.Body.String(), "WeatherFile ContamW 2.0\n"))
				assert.Contains(t, rec.Header().Get("Content-Disposition"), ".wth")
			},
		},
		{
			name:       "idf record",
			target:     base + "/idf",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out struct {
					Type   string     `json:"type"`
					Fields []IdfField `json:"fields"`
				}
				decode(t, rec, &out)
				assert.Equal(t, "OS:WeatherFile", out.Type)
				require.NotEmpty(t, out.Fields)
				assert.Equal(t, "City", out.Fields[0].Name)
				assert.Equal(t, "Denver Centennial  Golden   Nr", out.Fields[0].Value)
			},
		},
		{
			name:       "monthly statistics",
			target:     field("/stats", "Dry Bulb Temperature"),
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out []map[string]interface{}
				decode(t, rec, &out)
				require.Len(t, out, 2)
				assert.Equal(t, 0.0, out[0]["month"])
				assert.Equal(t, 24.0, out[0]["count"])
			},
		},
		{
			name:       "fetch is disabled without a fetcher",
			method:     http.MethodPost,
			target:     "/api/files/fetch",
			wantStatus: http.StatusNotImplemented,
		},
		{
			name:       "health",
			target:     "/health",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out map[string]interface{}
				decode(t, rec, &out)
				assert.Equal(t, "healthy", out["status"])
				assert.Equal(t, 1.0, out["files"])
				assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			},
		},
		{
			name:       "openapi document",
			target:     "/api/docs/openapi.json",
			wantStatus: http.StatusOK,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var out map[string]interface{}
				decode(t, rec, &out)
				assert.Contains(t, out["paths"], "/api/files/{id}/wth")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := do(t, router, method, tt.target, nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.checkValues != nil {
				tt.checkValues(t, rec)
			}
		})
	}
}

func TestFileHandler_Delete(t *testing.T) {
	router, id := newTestRouter(t)

	rec := do(t, router, http.MethodDelete, "/api/files/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/files/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodDelete, "/api/files/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MetricsUseRouteTemplates(t *testing.T) {
	router, id := newTestRouter(t)
	do(t, router, http.MethodGet, "/api/files/"+id.String(), nil)

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `epw_test_api_requests_total{endpoint="/api/files/{id}",method="GET",status="200"} 1`)
	assert.NotContains(t, body, id.String())
}
