package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSettings(t *testing.T) {
	t.Run("v1: initial defaults", func(t *testing.T) {
		s, changed, err := MigrateSettings(ProjectSettings{}, 0)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 0.21, s.ModuleEfficiency)
		assert.Equal(t, 90.0, s.Battery.RoundTripEfficiencyPercent)
		assert.Equal(t, 10.0, s.Battery.ReserveSOCPercent)
		assert.Equal(t, 25, s.Projection.Years)
		assert.Equal(t, DefaultTimezone, s.Timezone)
		assert.Equal(t, "DMY", s.DateOrder)
		assert.Equal(t, 0.5, s.Projection.DegradationPercent)
	})

	t.Run("v1 keeps explicit values", func(t *testing.T) {
		s, _, err := MigrateSettings(ProjectSettings{ModuleEfficiency: 0.19, Projection: ProjectionSettings{Years: 20}}, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.19, s.ModuleEfficiency)
		assert.Equal(t, 20, s.Projection.Years)
	})

	t.Run("v2 to v3: date order untouched", func(t *testing.T) {
		s, changed, err := MigrateSettings(ProjectSettings{DateOrder: "MDY", Timezone: "UTC"}, 2)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "MDY", s.DateOrder)
		assert.Equal(t, "UTC", s.Timezone)
	})

	t.Run("v3 to v4: decimal separator", func(t *testing.T) {
		s, changed, err := MigrateSettings(ProjectSettings{TariffID: "flat_example"}, 3)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "auto", s.DecimalSeparator)
		assert.Equal(t, "flat_example", s.TariffID)

		s, changed, err = MigrateSettings(ProjectSettings{DecimalSeparator: ","}, 3)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, ",", s.DecimalSeparator)
	})

	t.Run("no change: current version", func(t *testing.T) {
		current := ProjectSettings{
			TariffID:  "flat_example",
			Timezone:  DefaultTimezone,
			DateOrder: "DMY",
		}
		s, changed, err := MigrateSettings(current, CurrentSettingsVersion)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, current, s)
	})
}
