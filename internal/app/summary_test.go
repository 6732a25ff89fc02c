package app

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"climate-harvester/internal/models"
	"climate-harvester/internal/services"
)

func init() {
	color.NoColor = true
}

func TestPrintExtraction(t *testing.T) {
	result := &services.ExtractionResult{
		RunID:           "run-1",
		MonthsExtracted: 1200,
		RowsExtracted:   36000,
		FilesUploaded:   2,
		BytesUploaded:   2048,
		Duration:        3 * time.Second,
		Stations: []*services.StationResult{
			{StationID: "26953", Planned: []models.YearMonth{{Year: 2023, Month: 1}}, Extracted: []models.YearMonth{{Year: 2023, Month: 1}}},
			{StationID: "1", Coverage: models.Coverage{Status: models.CoverageError}, Err: errors.New("db down")},
			{StationID: "2", Coverage: models.Coverage{Status: models.CoverageFound}},
		},
	}

	var buf bytes.Buffer
	PrintExtraction(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "EXTRACTION COMPLETE")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "36,000")
	assert.Contains(t, out, "2 files (2.0 kB)")
	assert.Contains(t, out, "26953      1/1 months")
	assert.Contains(t, out, "1          skipped: db down")
	assert.Contains(t, out, "2          up to date")
}

func TestPrintTransformation_Degraded(t *testing.T) {
	result := &services.TransformResult{
		RunID:      "run-2",
		Aggregated: 3,
		Publish: &services.PublishResult{
			Path:      "data/final_dataset.csv",
			Rows:      3,
			RemoteKey: "processed_data/final_dataset.csv",
			RemoteErr: errors.New("permission denied"),
		},
	}

	var buf bytes.Buffer
	PrintTransformation(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "OK data/final_dataset.csv")
	assert.Contains(t, out, "FAILED permission denied")
	assert.Contains(t, out, "Saved locally/db but not to remote store")
}

func TestPrintTransformation_RemoteDisabled(t *testing.T) {
	var buf bytes.Buffer
	PrintTransformation(&buf, &services.TransformResult{Publish: &services.PublishResult{Path: "x.csv"}})

	assert.Contains(t, buf.String(), "disabled")
	assert.NotContains(t, buf.String(), "not to remote store")
}

func TestPrintStationSummary(t *testing.T) {
	mean := 4.25
	summary := &models.StationSummary{
		StationID:       "26953",
		StationName:     "TORONTO CITY",
		Months:          3,
		First:           models.YearMonth{Year: 2023, Month: 1},
		Last:            models.YearMonth{Year: 2023, Month: 3},
		MeanTemperature: &mean,
	}

	var buf bytes.Buffer
	PrintStationSummary(&buf, summary)
	out := buf.String()

	assert.Contains(t, out, "Station: 26953 TORONTO CITY")
	assert.Contains(t, out, "3 (2023-01 to 2023-03)")
	assert.Contains(t, out, "4.25°C")
	assert.Contains(t, out, "NULL")
}
