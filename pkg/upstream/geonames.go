package upstream

import (
	"context"
	"fmt"

	"climate-harvester/pkg/metrics"
)

// Radius is the search radius (km) passed to the geocoding service; 1 pins the exact site.
const Radius = 1

// GeoName is the geocoding match for a station's coordinates.
type GeoName struct {
	FeatureID string
	Map       string
}

// GeonamesClient resolves coordinates against the geographical names service.
// Options.URLTemplate takes (lat, lon float64, radius int).
type GeonamesClient struct {
	urlTemplate string
	fetcher     *csvFetcher
}

// NewGeonamesClient creates a geocoding client
func NewGeonamesClient(opts Options, m *metrics.Collector) *GeonamesClient {
	return &GeonamesClient{
		urlTemplate: opts.URLTemplate,
		fetcher:     newCSVFetcher("geonames", opts, m),
	}
}

// Lookup returns the first geographical name within radius of (lat, lon).
func (c *GeonamesClient) Lookup(ctx context.Context, lat, lon float64, radius int) (GeoName, error) {
	url := fmt.Sprintf(c.urlTemplate, lat, lon, radius)
	header, rows, err := c.fetcher.fetch(ctx, url)
	if err != nil {
		return GeoName{}, err
	}

	if err := requireColumns(header, "feature.id", "map"); err != nil {
		return GeoName{}, err
	}
	if len(rows) == 0 {
		return GeoName{}, ErrEmptyResponse
	}

	return GeoName{
		FeatureID: column(header, rows[0], "feature.id"),
		Map:       column(header, rows[0], "map"),
	}, nil
}
