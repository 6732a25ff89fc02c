package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-harvester/internal/models"
)

func ym(year, month int) models.YearMonth {
	return models.YearMonth{Year: year, Month: month}
}

func TestPlanGaps_NoCoverage(t *testing.T) {
	years := []int{2021, 2023, 2022}
	plan := PlanGaps(models.Coverage{Status: models.CoverageNotFound}, years, ym(2024, 6))

	require.Len(t, plan, 12*len(years))

	seen := make(map[models.YearMonth]bool)
	for _, p := range plan {
		assert.False(t, seen[p], "duplicate %s", p)
		seen[p] = true
	}
	for _, y := range years {
		for m := 1; m <= 12; m++ {
			assert.True(t, seen[ym(y, m)], "missing %d-%d", y, m)
		}
	}
	assert.Equal(t, ym(2021, 1), plan[0])
	assert.Equal(t, ym(2023, 12), plan[len(plan)-1])
}

func TestPlanGaps_NoCoverage_DuplicateYears(t *testing.T) {
	plan := PlanGaps(models.Coverage{Status: models.CoverageNotFound}, []int{2023, 2023}, ym(2024, 6))
	assert.Len(t, plan, 12)
}

func TestPlanGaps_DecemberWrap(t *testing.T) {
	coverage := models.Coverage{Status: models.CoverageFound, Latest: ym(2021, 12)}
	plan := PlanGaps(coverage, nil, ym(2023, 3))

	require.NotEmpty(t, plan)
	assert.Equal(t, ym(2022, 1), plan[0], "enumeration starts at January of the following year")
	assert.Equal(t, ym(2023, 3), plan[len(plan)-1])
	assert.Len(t, plan, 15)

	seen := make(map[models.YearMonth]bool)
	for i, p := range plan {
		assert.False(t, seen[p], "duplicate %s", p)
		seen[p] = true
		if i > 0 {
			assert.True(t, plan[i-1].Before(p))
		}
	}
}

func TestPlanGaps_Caught(t *testing.T) {
	tests := []struct {
		name   string
		latest models.YearMonth
	}{
		{"current month", ym(2024, 6)},
		{"future month", ym(2024, 9)},
		{"future year", ym(2025, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coverage := models.Coverage{Status: models.CoverageFound, Latest: tt.latest}
			assert.Empty(t, PlanGaps(coverage, []int{2024}, ym(2024, 6)))
		})
	}
}

func TestPlanGaps_MidYear(t *testing.T) {
	coverage := models.Coverage{Status: models.CoverageFound, Latest: ym(2024, 3)}
	plan := PlanGaps(coverage, []int{2000}, ym(2024, 6))

	assert.Equal(t, []models.YearMonth{ym(2024, 4), ym(2024, 5), ym(2024, 6)}, plan)
}

func TestPlanGaps_CoverageError(t *testing.T) {
	coverage := models.Coverage{Status: models.CoverageError, Err: errors.New("db down")}
	assert.Empty(t, PlanGaps(coverage, []int{2023}, ym(2024, 6)))
}
