package load

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/pkg/types"
)

func TestAnnualProfile(t *testing.T) {
	wd := shape(func(h int) float64 { return 1 })
	we := shape(func(h int) float64 { return 2 })

	t.Run("non leap year", func(t *testing.T) {
		out := AnnualProfile(wd, we, 2023, nil)
		require.Len(t, out, types.HoursPerYear)
		// 2023-01-01 is a Sunday, 2023-01-02 a Monday
		assert.Equal(t, 2.0, out[0])
		assert.Equal(t, 1.0, out[24])
	})

	t.Run("leap year", func(t *testing.T) {
		assert.Len(t, AnnualProfile(wd, we, 2024, nil), types.HoursPerYear+types.HoursPerDay)
	})

	t.Run("custom weekend", func(t *testing.T) {
		out := AnnualProfile(wd, we, 2023, func(d time.Time) bool { return d.YearDay() == 2 })
		assert.Equal(t, 1.0, out[0])
		assert.Equal(t, 2.0, out[24])
	})
}

func TestWindowBetween(t *testing.T) {
	// Monday 2024-03-04 to Sunday 2024-03-17
	w := WindowBetween(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 17, 23, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, Window{WeekdayDays: 10, WeekendDays: 4}, w)

	assert.Equal(t, Window{}, WindowBetween(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), nil))
}

func TestMatchMeters(t *testing.T) {
	imports := []types.MeterImport{
		{ID: "m1", ShopName: "Burger-Place"},
		{ID: "m2", ShopNumber: "G12"},
		{ID: "m3", ShopName: "Pharmacy Plus"},
		{ID: "m4", ShopName: "Pharmacy Express"},
	}
	tenants := []types.Tenant{
		{ID: "t1", Name: "burger place"},
		{ID: "t2", Name: "Shop G12 - Books"},
		{ID: "t3", Name: "Pharmacy"},
		{ID: "t4", Name: "Burger Place", MeterImportID: "m1"},
		{ID: "t5", Name: "Nobody"},
	}
	matches := MatchMeters(tenants, imports)
	assert.Equal(t, []MeterMatch{
		{TenantID: "t1", MeterImportID: "m1", Reason: MatchShopName},
		{TenantID: "t2", MeterImportID: "m2", Reason: MatchShopNumber},
	}, matches)
}
