package models

import (
	"fmt"
	"time"
)

// Station is the reference row for one weather-observation site.
// Built once per station per run by the extractor and stored in the station reference file.
type Station struct {
	StationID   string    `json:"station_id" db:"station_id" parquet:"station_id"`
	StationName string    `json:"station_name" db:"station_name" parquet:"station_name"`
	ClimateID   string    `json:"climate_id" db:"climate_id" parquet:"climate_id"`
	Latitude    float64   `json:"latitude" db:"latitude" parquet:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude" parquet:"longitude"`
	FeatureID   string    `json:"feature_id" db:"feature_id" parquet:"feature_id"`
	Map         string    `json:"map" db:"map" parquet:"map"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" parquet:"updated_at"`
}

// RawObservation is one upstream row as fetched, tagged with the owning station id.
// Temperature is nil when the upstream cell was empty.
type RawObservation struct {
	StationID          string   `json:"station_id" parquet:"station_id"`
	StationName        string   `json:"station_name" parquet:"station_name"`
	ClimateID          string   `json:"climate_id" parquet:"climate_id"`
	Latitude           float64  `json:"latitude" parquet:"latitude"`
	Longitude          float64  `json:"longitude" parquet:"longitude"`
	DateTime           string   `json:"date_time" parquet:"date_time"`
	Year               int      `json:"year" parquet:"year"`
	Month              int      `json:"month" parquet:"month"`
	Day                int      `json:"day" parquet:"day"`
	TemperatureCelsius *float64 `json:"temp,omitempty" parquet:"temp,optional"`
}

// MonthlyAggregate is one row per (station, year, month) as published to weather_data.
// Nullable statistics stay nil until the cleaner zero-fills them.
type MonthlyAggregate struct {
	StationID                string    `json:"station_id" db:"station_id"`
	StationName              string    `json:"station_name" db:"station_name"`
	ClimateID                string    `json:"climate_id" db:"climate_id"`
	Month                    int       `json:"month" db:"month"`
	Year                     int       `json:"year" db:"year"`
	Latitude                 float64   `json:"latitude" db:"latitude"`
	Longitude                float64   `json:"longitude" db:"longitude"`
	FeatureID                string    `json:"feature_id" db:"feature_id"`
	Map                      string    `json:"map" db:"map"`
	TemperatureCelsiusAvg    *float64  `json:"temperature_celsius_avg" db:"temperature_celsius_avg"`
	TemperatureCelsiusMin    *float64  `json:"temperature_celsius_min" db:"temperature_celsius_min"`
	TemperatureCelsiusMax    *float64  `json:"temperature_celsius_max" db:"temperature_celsius_max"`
	DateMonth                string    `json:"date_month" db:"date_month"`
	TemperatureCelsiusYoYAvg *float64  `json:"temperature_celsius_yoy_avg" db:"temperature_celsius_yoy_avg"`
	IngestTimestamp          time.Time `json:"ingest_timestamp" db:"ingest_timestamp"`
	RunID                    string    `json:"run_id" db:"run_id"`
}

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// YearMonthOf returns the calendar month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// Index returns a monotonically increasing month number, handy for comparisons.
func (ym YearMonth) Index() int {
	return ym.Year*12 + ym.Month - 1
}

// Next returns the following calendar month, rolling December into January of the next year.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == 12 {
		return YearMonth{Year: ym.Year + 1, Month: 1}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Index() < other.Index()
}

// Valid reports whether the month is within 1..12 and the year is positive.
func (ym YearMonth) Valid() bool {
	return ym.Year > 0 && ym.Month >= 1 && ym.Month <= 12
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%d-%02d", ym.Year, ym.Month)
}

// DateMonthLabel is the "<month>_<year>" label carried by every aggregate row.
func DateMonthLabel(month, year int) string {
	return fmt.Sprintf("%d_%d", month, year)
}

// CoverageStatus tags the result of a coverage lookup.
type CoverageStatus int

const (
	CoverageNotFound CoverageStatus = iota
	CoverageFound
	CoverageError
)

func (s CoverageStatus) String() string {
	switch s {
	case CoverageNotFound:
		return "not_found"
	case CoverageFound:
		return "found"
	case CoverageError:
		return "error"
	default:
		return "unknown"
	}
}

// Coverage is the latest month already persisted for a station.
// Latest is only meaningful when Status is CoverageFound; Err only when CoverageError.
type Coverage struct {
	StationID string
	Status    CoverageStatus
	Latest    YearMonth
	Err       error
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%q)", e.Field, e.Message, e.Value)
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// StationSummary describes the published range and temperature extremes of one station.
type StationSummary struct {
	StationID       string    `json:"station_id"`
	StationName     string    `json:"station_name"`
	Months          int       `json:"months"`
	First           YearMonth `json:"first"`
	Last            YearMonth `json:"last"`
	MeanTemperature *float64  `json:"mean_temperature_celsius"`
	WarmestMax      *float64  `json:"warmest_max_celsius"`
	WarmestMonth    YearMonth `json:"warmest_month"`
	ColdestMin      *float64  `json:"coldest_min_celsius"`
	ColdestMonth    YearMonth `json:"coldest_month"`
}
