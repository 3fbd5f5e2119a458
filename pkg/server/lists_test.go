package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/pkg/storage"
	"github.com/solarroi/solarroi/pkg/storage/storagemock"
	"github.com/solarroi/solarroi/pkg/types"
)

func TestHandleListTariffs(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("ListTariffs", mock.Anything).Return([]types.Tariff{
		{ID: "city_flat", Name: "City flat", Type: types.TariffTypeFixed, FlatRatePerKWh: 3.1},
		// invalid tariffs are skipped
		{ID: "broken", Type: types.TariffTypeIncliningBlock},
	}, nil)
	srv := newTestServer(db)

	w := doRequest(srv, http.MethodGet, "/api/list/tariffs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var infos []types.TariffInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&infos))
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
		if info.ID == "city_flat" {
			assert.True(t, info.Custom)
		}
	}
	assert.Contains(t, ids, "city_flat")
	assert.Contains(t, ids, "flat_example")
	assert.NotContains(t, ids, "broken")
}

func TestHandleListTariffsStorageError(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("ListTariffs", mock.Anything).Return(nil, errors.New("unavailable"))
	srv := newTestServer(db)

	w := doRequest(srv, http.MethodGet, "/api/list/tariffs", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleListShopTypes(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("ListShopTypes", mock.Anything).Return(testShopTypes(), nil)
	srv := newTestServer(db)

	w := doRequest(srv, http.MethodGet, "/api/list/shopTypes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []types.ShopTypeTemplate
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "retail", got[0].ID)
}

func TestHandleTariffBlocks(t *testing.T) {
	srv := newTestServer(nil)

	t.Run("tou weekday", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/tariffs/eskom_megaflex_example/blocks?season=highWinter", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res TariffBlocksRes
		require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
		assert.Equal(t, types.DayTypeWeekday, res.DayType)
		assert.Equal(t, types.SeasonHighWinter, res.Season)
		require.NotEmpty(t, res.Blocks)
		assert.Equal(t, 0, res.Blocks[0].StartHour)
		assert.Equal(t, types.HoursPerDay, res.Blocks[len(res.Blocks)-1].EndHour)
		for i := 1; i < len(res.Blocks); i++ {
			assert.Equal(t, res.Blocks[i-1].EndHour, res.Blocks[i].StartHour)
			assert.NotEqual(t, res.Blocks[i-1].Period, res.Blocks[i].Period)
		}
	})

	t.Run("unknown tariff", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/tariffs/nope/blocks", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid day type", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/tariffs/flat_example/blocks?dayType=holiday", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid dayType", decodeError(t, w))
	})

	t.Run("invalid season", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/tariffs/flat_example/blocks?season=spring", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("all year", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListTariffs", mock.Anything).Return([]types.Tariff{{
			ID:   "municipal_tou",
			Name: "Municipal TOU",
			Type: types.TariffTypeTimeOfUse,
			Rates: []types.TOURate{
				{Period: types.TOUPeriodOffPeak, DayType: types.DayTypeWeekday, Season: types.SeasonAllYear, HourStart: 0, HourEnd: 17, RatePerKWh: 1},
				{Period: types.TOUPeriodPeak, DayType: types.DayTypeWeekday, Season: types.SeasonAllYear, HourStart: 17, HourEnd: 24, RatePerKWh: 4},
				{Period: types.TOUPeriodStandard, DayType: types.DayTypeWeekday, Season: types.SeasonHighWinter, HourStart: 0, HourEnd: 24, RatePerKWh: 9},
			},
		}}, nil)
		srv := newTestServer(db)

		w := doRequest(srv, http.MethodGet, "/api/tariffs/municipal_tou/blocks?season=allYear", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res TariffBlocksRes
		require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
		assert.Equal(t, types.SeasonAllYear, res.Season)
		require.Len(t, res.Blocks, 2)
		assert.Equal(t, types.TOUPeriodOffPeak, res.Blocks[0].Period)
		assert.Equal(t, 17, res.Blocks[0].EndHour)
		assert.Equal(t, types.TOUPeriodPeak, res.Blocks[1].Period)
		assert.Equal(t, 4.0, res.Blocks[1].RatePerKWh)
	})
}

func TestHandleLatestResult(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetLatestResult", mock.Anything, "p1").Return(types.CalculationResult{ID: "r1", ProjectID: "p1", AnnualSavings: 42}, nil)
		srv := newTestServer(db)

		w := doRequest(srv, http.MethodGet, "/api/projects/p1/results/latest", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var res types.CalculationResult
		require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
		assert.Equal(t, "r1", res.ID)
		assert.Equal(t, 42.0, res.AnnualSavings)
	})

	t.Run("none yet", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetLatestResult", mock.Anything, "p1").Return(types.CalculationResult{}, storage.ErrResultNotFound)
		srv := newTestServer(db)

		w := doRequest(srv, http.MethodGet, "/api/projects/p1/results/latest", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
