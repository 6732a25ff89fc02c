package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"climate-harvester/internal/models"
	"climate-harvester/internal/services"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgWhite)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed)
)

const maxListedErrors = 10

func header(w io.Writer, title string) {
	line := strings.Repeat("=", 80)
	fmt.Fprintln(w, line)
	headerColor.Fprintln(w, title)
	fmt.Fprintln(w, line)
}

func row(w io.Writer, label string, value string) {
	labelColor.Fprintf(w, "%-20s", label+":")
	fmt.Fprintln(w, value)
}

// PrintExtraction writes a human-readable extraction summary to w.
func PrintExtraction(w io.Writer, result *services.ExtractionResult) {
	header(w, "EXTRACTION COMPLETE")

	row(w, "Run ID", result.RunID)
	row(w, "Stations", humanize.Comma(int64(len(result.Stations))))
	row(w, "Months Extracted", humanize.Comma(int64(result.MonthsExtracted)))
	row(w, "Months Failed", humanize.Comma(int64(result.MonthsFailed)))
	row(w, "Rows", humanize.Comma(int64(result.RowsExtracted)))
	row(w, "Stations Updated", humanize.Comma(int64(result.StationsUpdated)))
	row(w, "Uploaded", fmt.Sprintf("%d files (%s)", result.FilesUploaded, humanize.Bytes(uint64(result.BytesUploaded))))
	row(w, "Duration", result.Duration.String())

	fmt.Fprintln(w)
	for _, sr := range result.Stations {
		switch {
		case sr.Skipped():
			failColor.Fprintf(w, "  %-10s skipped: %v\n", sr.StationID, sr.Err)
		case sr.Err != nil:
			warnColor.Fprintf(w, "  %-10s %d/%d months, %v\n", sr.StationID, len(sr.Extracted), len(sr.Planned), sr.Err)
		case len(sr.Failed) > 0:
			warnColor.Fprintf(w, "  %-10s %d/%d months\n", sr.StationID, len(sr.Extracted), len(sr.Planned))
		case len(sr.Planned) == 0:
			okColor.Fprintf(w, "  %-10s up to date\n", sr.StationID)
		default:
			okColor.Fprintf(w, "  %-10s %d/%d months\n", sr.StationID, len(sr.Extracted), len(sr.Planned))
		}
	}

	if len(result.RemoteErrors) > 0 {
		warnColor.Fprintf(w, "\nRemote upload errors (%d):\n", len(result.RemoteErrors))
		for i, msg := range result.RemoteErrors {
			if i == maxListedErrors {
				fmt.Fprintf(w, "  ... and %d more errors\n", len(result.RemoteErrors)-maxListedErrors)
				break
			}
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
}

// PrintTransformation writes a human-readable transformation summary to w.
func PrintTransformation(w io.Writer, result *services.TransformResult) {
	header(w, "TRANSFORMATION COMPLETE")

	row(w, "Run ID", result.RunID)
	row(w, "Observations", humanize.Comma(int64(result.Observations)))
	row(w, "Aggregates", humanize.Comma(int64(result.Aggregated)))
	row(w, "Dropped (future)", humanize.Comma(int64(result.Dropped)))
	row(w, "Duration", result.Duration.String())

	pub := result.Publish
	if pub == nil {
		return
	}

	fmt.Fprintln(w)
	status(w, "File", pub.Path, pub.FileErr)
	status(w, "Database", fmt.Sprintf("%s rows", humanize.Comma(int64(pub.Rows))), pub.DBErr)
	switch {
	case pub.RemoteKey == "":
		row(w, "Remote", "disabled")
	default:
		status(w, "Remote", fmt.Sprintf("%s (%s)", pub.RemoteKey, humanize.Bytes(uint64(pub.Bytes))), pub.RemoteErr)
	}

	if pub.Degraded() {
		warnColor.Fprintln(w, "\nSaved locally/db but not to remote store")
	}
}

func status(w io.Writer, label, detail string, err error) {
	labelColor.Fprintf(w, "%-20s", label+":")
	if err != nil {
		failColor.Fprintf(w, "FAILED %v\n", err)
		return
	}
	okColor.Fprintf(w, "OK %s\n", detail)
}

// PrintStationSummary writes one station's monthly overview to w. Absent values print as NULL.
func PrintStationSummary(w io.Writer, summary *models.StationSummary) {
	fmt.Fprintln(w, strings.Repeat("-", 80))
	headerColor.Fprintf(w, "Station: %s %s\n", summary.StationID, summary.StationName)
	fmt.Fprintln(w, strings.Repeat("-", 80))

	row(w, "Months", fmt.Sprintf("%d (%s to %s)", summary.Months, summary.First, summary.Last))
	row(w, "Mean Temperature", celsius(summary.MeanTemperature))
	row(w, "Warmest Max", fmt.Sprintf("%s in %s", celsius(summary.WarmestMax), summary.WarmestMonth))
	row(w, "Coldest Min", fmt.Sprintf("%s in %s", celsius(summary.ColdestMin), summary.ColdestMonth))
}

func celsius(v *float64) string {
	if v == nil {
		return warnColor.Sprint("NULL")
	}
	return fmt.Sprintf("%.2f°C", *v)
}
