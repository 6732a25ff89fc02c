package upstream

import (
	"context"
	"fmt"
	"strconv"

	"climate-harvester/internal/models"
	"climate-harvester/pkg/metrics"
)

// Day is always 1: the bulk endpoint returns the whole month regardless.
const Day = 1

// Upstream column names
const (
	ColLatitude    = "Latitude (y)"
	ColLongitude   = "Longitude (x)"
	ColStationName = "Station Name"
	ColClimateID   = "Climate ID"
	ColDateTime    = "Date/Time (LST)"
	ColYear        = "Year"
	ColMonth       = "Month"
	ColDay         = "Day"
	ColTemperature = "Temp (°C)"
)

// ClimateClient downloads monthly bulk observations from the climate data service.
// Options.URLTemplate takes (format string, stationID string, year int, month int, day int).
type ClimateClient struct {
	urlTemplate string
	fetcher     *csvFetcher
}

// NewClimateClient creates a climate data client
func NewClimateClient(opts Options, m *metrics.Collector) *ClimateClient {
	return &ClimateClient{
		urlTemplate: opts.URLTemplate,
		fetcher:     newCSVFetcher("climate", opts, m),
	}
}

// FetchMonth returns every observation row the service holds for one station and month,
// each stamped with stationID.
func (c *ClimateClient) FetchMonth(ctx context.Context, format, stationID string, year, month int) ([]models.RawObservation, error) {
	if format != "csv" {
		return nil, &models.ValidationError{Field: "format", Value: format, Message: "only csv downloads can be parsed"}
	}

	url := fmt.Sprintf(c.urlTemplate, format, stationID, year, month, Day)
	header, rows, err := c.fetcher.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	return parseObservations(stationID, header, rows)
}

func parseObservations(stationID string, header map[string]int, rows [][]string) ([]models.RawObservation, error) {
	if err := requireColumns(header, ColLatitude, ColLongitude, ColStationName, ColClimateID, ColYear, ColMonth, ColTemperature); err != nil {
		return nil, err
	}

	observations := make([]models.RawObservation, 0, len(rows))
	for i, row := range rows {
		if len(row) == 1 && row[0] == "" {
			continue
		}

		obs := models.RawObservation{
			StationID:   stationID,
			StationName: column(header, row, ColStationName),
			ClimateID:   column(header, row, ColClimateID),
			DateTime:    column(header, row, ColDateTime),
		}

		var err error
		if obs.Latitude, err = parseFloat(header, row, ColLatitude); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if obs.Longitude, err = parseFloat(header, row, ColLongitude); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if obs.Year, err = parseInt(header, row, ColYear); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if obs.Month, err = parseInt(header, row, ColMonth); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if _, ok := header[ColDay]; ok {
			if obs.Day, err = parseInt(header, row, ColDay); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
		}

		if raw := column(header, row, ColTemperature); raw != "" {
			temp, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, &models.ValidationError{Field: ColTemperature, Value: raw, Message: "invalid temperature"})
			}
			obs.TemperatureCelsius = &temp
		}

		observations = append(observations, obs)
	}

	if len(observations) == 0 {
		return nil, ErrEmptyResponse
	}

	return observations, nil
}

func parseFloat(header map[string]int, row []string, name string) (float64, error) {
	raw := column(header, row, name)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.ValidationError{Field: name, Value: raw, Message: "invalid number"}
	}
	return v, nil
}

func parseInt(header map[string]int, row []string, name string) (int, error) {
	raw := column(header, row, name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.ValidationError{Field: name, Value: raw, Message: "invalid integer"}
	}
	return v, nil
}
