package services

import (
	"fmt"
	"sort"

	"climate-harvester/internal/models"
)

// DuplicateGroupError reports two aggregate groups for the same station and month,
// which would make the year-over-year difference ambiguous.
type DuplicateGroupError struct {
	StationID string
	Year      int
	Month     int
}

func (e *DuplicateGroupError) Error() string {
	return fmt.Sprintf("duplicate aggregate group for station %s %d-%02d", e.StationID, e.Year, e.Month)
}

func (e *DuplicateGroupError) IsTransient() bool {
	return false
}

type stationKey struct {
	stationID   string
	climateID   string
	stationName string
}

type groupKey struct {
	stationID   string
	stationName string
	climateID   string
	month       int
	year        int
	latitude    float64
	longitude   float64
	featureID   string
	mapRef      string
}

type groupStats struct {
	sum   float64
	count int
	min   float64
	max   float64
}

func (g *groupStats) add(v float64) {
	if g.count == 0 || v < g.min {
		g.min = v
	}
	if g.count == 0 || v > g.max {
		g.max = v
	}
	g.sum += v
	g.count++
}

// Aggregate left-joins observations with station metadata and reduces them to one row per
// station, year and month with mean, min and max temperature plus the year-over-year delta.
// Groups without a single temperature reading are dropped.
func Aggregate(observations []models.RawObservation, stations []models.Station) ([]*models.MonthlyAggregate, error) {
	reference := make(map[stationKey]models.Station, len(stations))
	for _, st := range stations {
		reference[stationKey{st.StationID, st.ClimateID, st.StationName}] = st
	}

	groups := make(map[groupKey]*groupStats)
	for _, obs := range observations {
		st := reference[stationKey{obs.StationID, obs.ClimateID, obs.StationName}]

		key := groupKey{
			stationID:   obs.StationID,
			stationName: obs.StationName,
			climateID:   obs.ClimateID,
			month:       obs.Month,
			year:        obs.Year,
			latitude:    obs.Latitude,
			longitude:   obs.Longitude,
			featureID:   st.FeatureID,
			mapRef:      st.Map,
		}

		g, ok := groups[key]
		if !ok {
			g = &groupStats{}
			groups[key] = g
		}
		if obs.TemperatureCelsius != nil {
			g.add(*obs.TemperatureCelsius)
		}
	}

	rows := make([]*models.MonthlyAggregate, 0, len(groups))
	for key, g := range groups {
		if g.count == 0 {
			continue
		}

		avg := g.sum / float64(g.count)
		minTemp, maxTemp := g.min, g.max
		rows = append(rows, &models.MonthlyAggregate{
			StationID:             key.stationID,
			StationName:           key.stationName,
			ClimateID:             key.climateID,
			Month:                 key.month,
			Year:                  key.year,
			Latitude:              key.latitude,
			Longitude:             key.longitude,
			FeatureID:             key.featureID,
			Map:                   key.mapRef,
			TemperatureCelsiusAvg: &avg,
			TemperatureCelsiusMin: &minTemp,
			TemperatureCelsiusMax: &maxTemp,
			DateMonth:             models.DateMonthLabel(key.month, key.year),
		})
	}

	// (station, month, year) order puts each calendar month's occurrences side by side.
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.StationID != b.StationID {
			return a.StationID < b.StationID
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Year < b.Year
	})

	if err := assertUniqueMonths(rows); err != nil {
		return nil, err
	}

	for i, row := range rows {
		if i == 0 {
			continue
		}
		prev := rows[i-1]
		if prev.StationID == row.StationID && prev.Month == row.Month {
			delta := *row.TemperatureCelsiusAvg - *prev.TemperatureCelsiusAvg
			row.TemperatureCelsiusYoYAvg = &delta
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.StationID != b.StationID {
			return a.StationID < b.StationID
		}
		return models.YearMonth{Year: a.Year, Month: a.Month}.Before(models.YearMonth{Year: b.Year, Month: b.Month})
	})

	return rows, nil
}

// assertUniqueMonths expects rows sorted by (station, month, year).
func assertUniqueMonths(rows []*models.MonthlyAggregate) error {
	for i := 1; i < len(rows); i++ {
		a, b := rows[i-1], rows[i]
		if a.StationID == b.StationID && a.Month == b.Month && a.Year == b.Year {
			return &DuplicateGroupError{StationID: b.StationID, Year: b.Year, Month: b.Month}
		}
	}
	return nil
}
