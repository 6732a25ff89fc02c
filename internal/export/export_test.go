package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"climate-harvester/internal/models"
)

func sampleRows() []*models.MonthlyAggregate {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*models.MonthlyAggregate{
		{
			StationID: "26953", StationName: "TORONTO CITY", ClimateID: "6158355",
			Month: 1, Year: 2023, Latitude: 43.67, Longitude: -79.4,
			FeatureID: "ab123", Map: "30M11",
			TemperatureCelsiusAvg: ptr.To(7.5), TemperatureCelsiusMin: ptr.To(5.0), TemperatureCelsiusMax: ptr.To(10.0),
			DateMonth: "1_2023", IngestTimestamp: ts, RunID: "run-1",
		},
		{
			StationID: "26953", StationName: "TORONTO CITY", ClimateID: "6158355",
			Month: 2, Year: 2023, Latitude: 43.67, Longitude: -79.4,
			TemperatureCelsiusAvg: ptr.To(8.5), TemperatureCelsiusMin: ptr.To(6.0), TemperatureCelsiusMax: ptr.To(11.0),
			DateMonth: "2_2023", TemperatureCelsiusYoYAvg: ptr.To(1.0), IngestTimestamp: ts, RunID: "run-1",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in     string
		want   Format
		wantOK bool
	}{
		{"csv", FormatCSV, true},
		{"JSON", FormatJSON, true},
		{" parquet ", FormatParquet, true},
		{"", DefaultFormat, true},
		{"xlsx", DefaultFormat, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFormat(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "final_dataset.csv", FileName("", FormatCSV))
	assert.Equal(t, "out.parquet", FileName("out", FormatParquet))
}

func TestEncode_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatCSV, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "26953", records[1][0])
	assert.Equal(t, "7.5", records[1][9])
	assert.Equal(t, "0", records[1][13], "missing yoy is written as zero")
	assert.Equal(t, "2024-03-01T12:00:00Z", records[1][14])
	assert.Equal(t, "1", records[2][13])
}

func TestEncode_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, sampleRows()))

	var records []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "2_2023", records[1].DateMonth)
	assert.Equal(t, 1.0, records[1].TemperatureCelsiusYoYAvg)
}

func TestWriteFile_Parquet(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, "final_dataset", FormatParquet, sampleRows())
	require.NoError(t, err)

	records, err := parquet.ReadFile[Record](path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ab123", records[0].FeatureID)
	assert.Equal(t, 8.5, records[1].TemperatureCelsiusAvg)
}

func TestEncode_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, Format("xml"), sampleRows()))
}
