package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"k8s.io/utils/ptr"

	"climate-harvester/internal/models"
)

// Format is a published artifact encoding
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"

	DefaultFormat = FormatCSV
	DefaultName   = "final_dataset"
)

// ParseFormat returns the format named by s. Unknown names yield DefaultFormat and ok=false.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatParquet:
		return f, true
	case "":
		return DefaultFormat, true
	default:
		return DefaultFormat, false
	}
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// FileName returns name with the format's extension appended.
func FileName(name string, f Format) string {
	if name == "" {
		name = DefaultName
	}
	return name + f.Extension()
}

// Record is the flat published row.
type Record struct {
	StationID                string  `json:"station_id" parquet:"station_id"`
	StationName              string  `json:"station_name" parquet:"station_name"`
	ClimateID                string  `json:"climate_id" parquet:"climate_id"`
	Month                    int     `json:"month" parquet:"month"`
	Year                     int     `json:"year" parquet:"year"`
	Latitude                 float64 `json:"latitude" parquet:"latitude"`
	Longitude                float64 `json:"longitude" parquet:"longitude"`
	FeatureID                string  `json:"feature_id" parquet:"feature_id"`
	Map                      string  `json:"map" parquet:"map"`
	TemperatureCelsiusAvg    float64 `json:"temperature_celsius_avg" parquet:"temperature_celsius_avg"`
	TemperatureCelsiusMin    float64 `json:"temperature_celsius_min" parquet:"temperature_celsius_min"`
	TemperatureCelsiusMax    float64 `json:"temperature_celsius_max" parquet:"temperature_celsius_max"`
	DateMonth                string  `json:"date_month" parquet:"date_month"`
	TemperatureCelsiusYoYAvg float64 `json:"temperature_celsius_yoy_avg" parquet:"temperature_celsius_yoy_avg"`
	IngestTimestamp          string  `json:"ingest_timestamp" parquet:"ingest_timestamp"`
	RunID                    string  `json:"run_id" parquet:"run_id"`
}

var csvHeader = []string{
	"station_id", "station_name", "climate_id", "month", "year",
	"latitude", "longitude", "feature_id", "map",
	"temperature_celsius_avg", "temperature_celsius_min", "temperature_celsius_max",
	"date_month", "temperature_celsius_yoy_avg", "ingest_timestamp", "run_id",
}

// Records flattens aggregates. Missing statistics become 0.
func Records(rows []*models.MonthlyAggregate) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			StationID:                row.StationID,
			StationName:              row.StationName,
			ClimateID:                row.ClimateID,
			Month:                    row.Month,
			Year:                     row.Year,
			Latitude:                 row.Latitude,
			Longitude:                row.Longitude,
			FeatureID:                row.FeatureID,
			Map:                      row.Map,
			TemperatureCelsiusAvg:    ptr.Deref(row.TemperatureCelsiusAvg, 0),
			TemperatureCelsiusMin:    ptr.Deref(row.TemperatureCelsiusMin, 0),
			TemperatureCelsiusMax:    ptr.Deref(row.TemperatureCelsiusMax, 0),
			DateMonth:                row.DateMonth,
			TemperatureCelsiusYoYAvg: ptr.Deref(row.TemperatureCelsiusYoYAvg, 0),
			IngestTimestamp:          row.IngestTimestamp.UTC().Format(time.RFC3339),
			RunID:                    row.RunID,
		})
	}
	return records
}

// WriteFile encodes rows into dir/name.<ext> atomically and returns the written path.
func WriteFile(dir, name string, f Format, rows []*models.MonthlyAggregate) (string, error) {
	path := filepath.Join(dir, FileName(name, f))
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if err := Encode(file, f, rows); err != nil {
		file.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return path, nil
}

// Encode writes rows to w in format f.
func Encode(w io.Writer, f Format, rows []*models.MonthlyAggregate) error {
	records := Records(rows)

	switch f {
	case FormatCSV:
		return encodeCSV(w, records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatParquet:
		pw := parquet.NewGenericWriter[Record](w)
		if _, err := pw.Write(records); err != nil {
			return fmt.Errorf("failed to encode parquet: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("failed to finalize parquet: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func encodeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}

	for _, r := range records {
		if err := cw.Write([]string{
			r.StationID,
			r.StationName,
			r.ClimateID,
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Year),
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			r.FeatureID,
			r.Map,
			formatFloat(r.TemperatureCelsiusAvg),
			formatFloat(r.TemperatureCelsiusMin),
			formatFloat(r.TemperatureCelsiusMax),
			r.DateMonth,
			formatFloat(r.TemperatureCelsiusYoYAvg),
			r.IngestTimestamp,
			r.RunID,
		}); err != nil {
			return fmt.Errorf("failed to encode csv: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
