package services

import (
	"k8s.io/utils/ptr"

	"climate-harvester/internal/models"
)

// Clean drops rows dated after now and zero-fills missing statistics in the rest.
// Zero-filling loses the difference between "no reading" and 0 °C.
func Clean(rows []*models.MonthlyAggregate, now models.YearMonth) (kept []*models.MonthlyAggregate, dropped int) {
	kept = make([]*models.MonthlyAggregate, 0, len(rows))
	for _, row := range rows {
		if now.Before(models.YearMonth{Year: row.Year, Month: row.Month}) {
			dropped++
			continue
		}

		row.TemperatureCelsiusAvg = zeroIfNil(row.TemperatureCelsiusAvg)
		row.TemperatureCelsiusMin = zeroIfNil(row.TemperatureCelsiusMin)
		row.TemperatureCelsiusMax = zeroIfNil(row.TemperatureCelsiusMax)
		row.TemperatureCelsiusYoYAvg = zeroIfNil(row.TemperatureCelsiusYoYAvg)

		kept = append(kept, row)
	}
	return kept, dropped
}

func zeroIfNil(v *float64) *float64 {
	if v == nil {
		return ptr.To(0.0)
	}
	return v
}
