package handlers

import (
	"encoding/json"
	"net/http"
)

type object = map[string]interface{}

func queryParam(name, description string, schema object) object {
	return object{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func pathParam(name, description string) object {
	return object{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      object{"type": "string"},
	}
}

func jsonResponse(description string, schema object) object {
	return object{
		"description": description,
		"content": object{
			"application/json": object{"schema": schema},
		},
	}
}

func properties(props object) object {
	return object{"type": "object", "properties": props}
}

var (
	nullableNumber = object{"type": "number", "nullable": true}
	str            = object{"type": "string"}
	integer        = object{"type": "integer"}
	number         = object{"type": "number"}
	yearMonth      = properties(object{"year": integer, "month": integer})

	paginationParams = []object{
		queryParam("page", "Page number (default: 1)", object{"type": "integer", "default": 1}),
		queryParam("limit", "Records per page (default: 100, max: 1000)", object{"type": "integer", "default": 100}),
	}

	aggregateSchema = properties(object{
		"station_id":                  str,
		"station_name":                str,
		"climate_id":                  str,
		"month":                       integer,
		"year":                        integer,
		"latitude":                    number,
		"longitude":                   number,
		"feature_id":                  str,
		"map":                         str,
		"temperature_celsius_avg":     nullableNumber,
		"temperature_celsius_min":     nullableNumber,
		"temperature_celsius_max":     nullableNumber,
		"date_month":                  str,
		"temperature_celsius_yoy_avg": nullableNumber,
		"ingest_timestamp":            object{"type": "string", "format": "date-time"},
		"run_id":                      str,
	})

	stationSchema = properties(object{
		"station_id":   str,
		"station_name": str,
		"climate_id":   str,
		"latitude":     number,
		"longitude":    number,
		"feature_id":   str,
		"map":          str,
		"updated_at":   object{"type": "string", "format": "date-time"},
	})

	errorSchema = properties(object{"error": str, "message": str, "code": integer})
)

// OpenAPISpec returns the OpenAPI 3.0 document for the read API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	monthlyParams := append([]object{
		queryParam("station_id", "Filter by station ID", str),
		queryParam("year", "Filter by year", integer),
		queryParam("month", "Filter by month (1-12)", object{"type": "integer", "minimum": 1, "maximum": 12}),
	}, paginationParams...)

	spec := object{
		"openapi": "3.0.0",
		"info": object{
			"title":       "Climate Harvester API",
			"description": "Monthly temperature aggregates harvested per weather station, with year-over-year deltas",
			"version":     "1.0.0",
		},
		"servers": []object{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": object{
			"/api/weather/monthly": object{
				"get": object{
					"summary":     "List monthly aggregates",
					"description": "Published monthly aggregates with filtering and pagination",
					"parameters":  monthlyParams,
					"responses": object{
						"200": jsonResponse("Successful response", properties(object{
							"data":        object{"type": "array", "items": aggregateSchema},
							"total":       integer,
							"page":        integer,
							"limit":       integer,
							"total_pages": integer,
						})),
						"400": jsonResponse("Invalid filter", errorSchema),
					},
				},
			},
			"/api/weather/stations": object{
				"get": object{
					"summary":    "List stations",
					"parameters": paginationParams,
					"responses": object{
						"200": jsonResponse("Station reference rows", object{"type": "array", "items": stationSchema}),
					},
				},
			},
			"/api/weather/stations/{station_id}/summary": object{
				"get": object{
					"summary":    "Summarize a station",
					"parameters": []object{pathParam("station_id", "Station ID")},
					"responses": object{
						"200": jsonResponse("Covered range and temperature extremes", properties(object{
							"station_id":               str,
							"station_name":             str,
							"months":                   integer,
							"first":                    yearMonth,
							"last":                     yearMonth,
							"mean_temperature_celsius": nullableNumber,
							"warmest_max_celsius":      nullableNumber,
							"warmest_month":            yearMonth,
							"coldest_min_celsius":      nullableNumber,
							"coldest_month":            yearMonth,
						})),
						"404": jsonResponse("No published data", errorSchema),
					},
				},
			},
			"/api/weather/coverage/{station_id}": object{
				"get": object{
					"summary":     "Latest published month",
					"description": "status is found or not_found; latest is present only when found",
					"parameters":  []object{pathParam("station_id", "Station ID")},
					"responses": object{
						"200": jsonResponse("Coverage", properties(object{
							"station_id": str,
							"status":     object{"type": "string", "enum": []string{"found", "not_found"}},
							"latest":     yearMonth,
						})),
						"503": jsonResponse("Coverage lookup failed", errorSchema),
					},
				},
			},
			"/health": object{
				"get": object{
					"summary": "Health check",
					"responses": object{
						"200": jsonResponse("API and database are healthy", properties(object{"status": str, "timestamp": str})),
						"503": jsonResponse("Database unreachable", properties(object{"status": str, "timestamp": str})),
					},
				},
			},
			"/metrics": object{
				"get": object{
					"summary": "Prometheus metrics",
					"responses": object{
						"200": object{
							"description": "Prometheus metrics in text format",
							"content":     object{"text/plain": object{"schema": str}},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
