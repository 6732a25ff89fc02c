package services

import (
	"sort"

	"climate-harvester/internal/models"
)

// PlanGaps returns the ordered months still to extract for one station.
//
// With no stored data every requested year is planned in full (12 months each).
// With stored data the plan runs from the month after the latest stored one through now
// inclusive, ignoring years; it is empty once coverage reaches now.
// A failed coverage lookup plans nothing so a storage outage never triggers a full re-extract.
func PlanGaps(coverage models.Coverage, years []int, now models.YearMonth) []models.YearMonth {
	switch coverage.Status {
	case models.CoverageNotFound:
		return fullYears(years)
	case models.CoverageFound:
		return monthsBetween(coverage.Latest.Next(), now)
	default:
		return nil
	}
}

func fullYears(years []int) []models.YearMonth {
	seen := make(map[int]bool, len(years))
	distinct := make([]int, 0, len(years))
	for _, y := range years {
		if !seen[y] {
			seen[y] = true
			distinct = append(distinct, y)
		}
	}
	sort.Ints(distinct)

	plan := make([]models.YearMonth, 0, len(distinct)*12)
	for _, y := range distinct {
		for m := 1; m <= 12; m++ {
			plan = append(plan, models.YearMonth{Year: y, Month: m})
		}
	}
	return plan
}

// monthsBetween enumerates from..to inclusive; empty when from is after to.
func monthsBetween(from, to models.YearMonth) []models.YearMonth {
	if to.Before(from) {
		return nil
	}

	plan := make([]models.YearMonth, 0, to.Index()-from.Index()+1)
	for ym := from; !to.Before(ym); ym = ym.Next() {
		plan = append(plan, ym)
	}
	return plan
}
