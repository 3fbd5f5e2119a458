package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/pkg/storage/storagemock"
	"github.com/solarroi/solarroi/pkg/types"
)

func TestParseSeed(t *testing.T) {
	t.Run("built-in seed", func(t *testing.T) {
		sf, err := parseSeed(bytes.NewReader(defaultSeed))
		require.NoError(t, err)
		require.NotEmpty(t, sf.ShopTypes)
		require.NotEmpty(t, sf.Tariffs)
		for _, st := range sf.ShopTypes {
			var wd, we float64
			for h := range types.HoursPerDay {
				wd += st.LoadProfileWeekday[h]
				we += st.LoadProfileWeekend[h]
			}
			assert.InDelta(t, 100, wd, 0.5, st.ID)
			assert.InDelta(t, 100, we, 0.5, st.ID)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := parseSeed(strings.NewReader("shop_typez: []\n"))
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := parseSeed(strings.NewReader(""))
		assert.ErrorContains(t, err, "empty")
	})

	t.Run("duplicate shop type", func(t *testing.T) {
		_, err := parseSeed(strings.NewReader("shop_types:\n  - id: a\n  - id: a\n"))
		assert.ErrorContains(t, err, "duplicate shop type a")
	})

	t.Run("invalid tariff", func(t *testing.T) {
		_, err := parseSeed(strings.NewReader("tariffs:\n  - id: x\n    type: incliningBlock\n"))
		assert.ErrorContains(t, err, "no blocks")
	})

	t.Run("short profile", func(t *testing.T) {
		_, err := parseSeed(strings.NewReader("shop_types:\n  - id: a\n    load_profile_weekday: [1, 2]\n"))
		assert.Error(t, err)
	})
}

func TestApplySeed(t *testing.T) {
	ctx := context.Background()
	sf := seedFile{
		ShopTypes: []types.ShopTypeTemplate{{ID: "retail"}, {ID: "grocer"}},
		Tariffs:   []types.Tariff{{ID: "flat", Type: types.TariffTypeFixed, FlatRatePerKWh: 3}},
	}

	t.Run("upserts everything", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("UpsertShopType", mock.Anything, mock.Anything).Return(nil).Twice()
		db.On("UpsertTariff", mock.Anything, sf.Tariffs[0]).Return(nil).Once()
		require.NoError(t, applySeed(ctx, db, sf))
		db.AssertExpectations(t)
	})

	t.Run("stops on error", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("UpsertShopType", mock.Anything, mock.Anything).Return(errors.New("unavailable")).Once()
		assert.Error(t, applySeed(ctx, db, sf))
		db.AssertNotCalled(t, "UpsertTariff", mock.Anything, mock.Anything)
	})
}
