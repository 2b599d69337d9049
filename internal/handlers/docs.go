package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func queryParam(name, description, typ string, required bool) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      object{"type": typ},
	}
}

var idParam = object{
	"name":        "id",
	"in":          "path",
	"description": "Station ID, derived from the file checksum",
	"required":    true,
	"schema":      object{"type": "string", "format": "uuid"},
}

var pageParams = []object{
	queryParam("page", "Page number (default: 1)", "integer", false),
	queryParam("limit", "Records per page (default: 100, max: 1000)", "integer", false),
}

func operation(summary, contentType string, params ...object) object {
	op := object{
		"summary": summary,
		"responses": object{
			"200": object{
				"description": "Successful response",
				"content":     object{contentType: object{"schema": object{"type": "object"}}},
			},
			"400": object{"description": "Invalid request"},
			"404": object{"description": "Not found"},
		},
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	return op
}

func withPaging(params ...object) []object {
	return append(params, pageParams...)
}

// OpenAPISpec returns the OpenAPI 3.0 description of the EPW API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	field := queryParam("field", "Field display name, e.g. Dry Bulb Temperature", "string", true)
	format := queryParam("format", "json (default), csv or png", "string", false)

	spec := object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "EPW Platform API",
			"description": "EnergyPlus weather files: header metadata, time series, psychrometrics and exports",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/files": object{
				"get": operation("List loaded weather files", "application/json"),
			},
			"/api/files/fetch": object{
				"post": object{
					"summary": "Download a weather file by URL and load it",
					"requestBody": object{
						"required": true,
						"content": object{"application/json": object{"schema": object{
							"type":       "object",
							"properties": object{"url": object{"type": "string"}},
						}}},
					},
					"responses": object{
						"201": object{"description": "Loaded"},
						"502": object{"description": "Download or parse failed"},
					},
				},
			},
			"/api/files/{id}": object{
				"get":    operation("File header", "application/json", idParam),
				"delete": operation("Unload a file", "application/json", idParam),
			},
			"/api/files/{id}/data": object{
				"get": operation("Data records", "application/json", withPaging(idParam)...),
			},
			"/api/files/{id}/series": object{
				"get": operation("Time series of a data field", "application/json", idParam, field, format),
			},
			"/api/files/{id}/computed": object{
				"get": operation("Time series of a psychrometric quantity", "application/json", idParam, field, format),
			},
			"/api/files/{id}/design": object{
				"get": operation("Design conditions", "application/json", idParam),
			},
			"/api/files/{id}/ground": object{
				"get": operation("Ground temperatures by depth", "application/json", idParam),
			},
			"/api/files/{id}/holidays": object{
				"get": operation("Holidays", "application/json", idParam),
			},
			"/api/files/{id}/wth": object{
				"get": operation("CONTAM WTH export", "text/plain", idParam),
			},
			"/api/files/{id}/idf": object{
				"get": operation("Site:WeatherFile record", "application/json", idParam),
			},
			"/api/files/{id}/stats": object{
				"get": operation("Monthly statistics of a field", "application/json", idParam, field),
			},
			"/api/stations": object{
				"get": operation("Stored stations", "application/json", withPaging(
					queryParam("country", "Filter by country", "string", false),
					queryParam("is_actual", "Filter actual-year files", "boolean", false),
				)...),
			},
			"/api/stations/{id}": object{
				"get":    operation("Stored station with header blocks", "application/json", idParam),
				"delete": operation("Delete a stored station", "application/json", idParam),
			},
			"/api/stations/{id}/observations": object{
				"get": operation("Stored observations", "application/json", withPaging(idParam,
					queryParam("start_date", "From date (YYYY-MM-DD)", "string", false),
					queryParam("end_date", "Until date (YYYY-MM-DD)", "string", false),
					queryParam("month", "Month 1 to 12", "integer", false),
				)...),
			},
			"/api/stations/{id}/stats": object{
				"get": operation("Stored monthly statistics", "application/json", idParam,
					queryParam("field", "Field display name", "string", false)),
			},
			"/health": object{
				"get": operation("Health check", "application/json"),
			},
			"/metrics": object{
				"get": operation("Prometheus metrics", "text/plain"),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
