package demand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandLoop/internal/domain/models"
)

func TestComputeForecast_Shape(t *testing.T) {
	nows := []time.Time{
		testNow,
		time.Date(2025, 3, 7, 21, 59, 59, 999, time.UTC),
		time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC),
	}
	for _, now := range nows {
		for _, cat := range []models.Category{models.CategoryCafe, models.CategoryRestaurant} {
			points := ComputeForecast(cat, models.CrowdMedium, now)

			require.Len(t, points, ForecastHours)
			assert.True(t, points[0].Hour.Equal(now.Truncate(time.Hour).Add(time.Hour)))
			for i := 1; i < len(points); i++ {
				assert.Equal(t, time.Hour, points[i].Hour.Sub(points[i-1].Hour))
			}
			for _, p := range points {
				assert.Zero(t, p.Hour.Minute())
				assert.Zero(t, p.Hour.Second())
				assert.Zero(t, p.Hour.Nanosecond())
				assert.NotEqual(t, models.Wait40Plus, p.WaitBand)
			}
		}
	}
}

func TestComputeForecast_CafeWeekdayEveningWithMomentum(t *testing.T) {
	points := ComputeForecast(models.CategoryCafe, models.CrowdHigh, testNow)

	// +1 is local 21h: 2.5 + 0.5
	assert.Equal(t, models.CrowdHigh, points[0].CrowdLevel)
	assert.Equal(t, models.Wait20To40, points[0].WaitBand)
	// +3 is local 23h: 1.5, no momentum
	assert.Equal(t, models.CrowdMedium, points[2].CrowdLevel)
	assert.Equal(t, models.Wait10To20, points[2].WaitBand)
}

func TestComputeForecast_MomentumOnlyForHigh(t *testing.T) {
	morning := time.Date(2025, 3, 4, 6, 15, 0, 0, time.UTC) // Tuesday 09:15 local
	medium := ComputeForecast(models.CategoryCafe, models.CrowdMedium, morning)
	high := ComputeForecast(models.CategoryCafe, models.CrowdHigh, morning)

	// local 10h and 11h have baseline 2; momentum lifts them to 2.5 which rounds up
	assert.Equal(t, models.CrowdMedium, medium[0].CrowdLevel)
	assert.Equal(t, models.CrowdHigh, high[0].CrowdLevel)
	assert.Equal(t, models.CrowdHigh, high[1].CrowdLevel)
	assert.Equal(t, models.Wait20To40, high[1].WaitBand)
	assert.Equal(t, medium[2:], high[2:])
}

func TestComputeForecast_Idempotent(t *testing.T) {
	a := ComputeForecast(models.CategoryRestaurant, models.CrowdHigh, testNow)
	b := ComputeForecast(models.CategoryRestaurant, models.CrowdHigh, testNow)
	assert.Equal(t, a, b)
}

func TestIsWeekend_UsesLocalDay(t *testing.T) {
	// Thursday 22:00 UTC is Friday 01:00 local
	assert.True(t, IsWeekend(time.Date(2025, 3, 6, 22, 0, 0, 0, time.UTC)))
	// Saturday 21:00 UTC is Sunday 00:00 local
	assert.False(t, IsWeekend(time.Date(2025, 3, 8, 21, 0, 0, 0, time.UTC)))
	assert.True(t, IsWeekend(time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)))
}

func TestBaselineCrowd_BreakPoints(t *testing.T) {
	tests := []struct {
		cat     models.Category
		weekend bool
		hour    int
		want    float64
	}{
		{models.CategoryCafe, true, 8, 2},
		{models.CategoryCafe, true, 14, 2.5},
		{models.CategoryCafe, true, 18, 3},
		{models.CategoryCafe, true, 0, 2},
		{models.CategoryCafe, true, 2, 1},
		{models.CategoryCafe, false, 7, 2.5},
		{models.CategoryCafe, false, 13, 1.5},
		{models.CategoryCafe, false, 23, 1.5},
		{models.CategoryCafe, false, 6, 1},
		{models.CategoryRestaurant, true, 12, 3},
		{models.CategoryRestaurant, true, 22, 3},
		{models.CategoryRestaurant, true, 23, 2},
		{models.CategoryRestaurant, true, 8, 1.5},
		{models.CategoryRestaurant, true, 5, 1},
		{models.CategoryRestaurant, false, 21, 2.5},
		{models.CategoryRestaurant, false, 22, 1.5},
		{models.CategoryRestaurant, false, 9, 1.5},
		{models.CategoryRestaurant, false, 10, 1},
	}
	for _, tt := range tests {
		got := BaselineCrowd(tt.cat, tt.hour, tt.weekend)
		assert.Equal(t, tt.want, got, "%s weekend=%v hour=%d", tt.cat, tt.weekend, tt.hour)
	}
}
