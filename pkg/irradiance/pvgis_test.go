package irradiance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/pkg/types"
)

func tmyServer(t *testing.T, hours int, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "json", r.URL.Query().Get("outputformat"))
		assert.Equal(t, "-26.2041", r.URL.Query().Get("lat"))

		rows := make([]map[string]any, hours)
		for i := range rows {
			ghi := 0.0
			if h := i % 24; h >= 6 && h < 16 {
				ghi = float64(h * 10)
			}
			if i == 0 {
				// PVGIS occasionally reports tiny negatives at night
				ghi = -1
			}
			rows[i] = map[string]any{
				"time(UTC)": "20070101:0000",
				"G(h)":      ghi,
				"T2m":       20.5,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"inputs":  map[string]any{"location": map[string]any{"latitude": -26.2041, "longitude": 28.0473}},
			"outputs": map[string]any{"tmy_hourly": rows},
		})
		if err != nil {
			panic(http.ErrAbortHandler)
		}
	}))
}

func TestClientTMY(t *testing.T) {
	ctx := context.Background()

	t.Run("fetch and cache", func(t *testing.T) {
		var calls int32
		server := tmyServer(t, types.HoursPerYear, &calls)
		defer server.Close()

		c := NewClient(server.URL, server.Client(), nil, nil)
		require.NoError(t, c.Validate())

		s, err := c.TMY(ctx, -26.2041, 28.0473, nil)
		require.NoError(t, err)
		require.Len(t, s.HourlyGHIWm2, types.HoursPerYear)
		require.Len(t, s.HourlyTempC, types.HoursPerYear)
		assert.Zero(t, s.HourlyGHIWm2[0])
		assert.Equal(t, 60.0, s.HourlyGHIWm2[6])
		assert.Equal(t, 20.5, s.HourlyTempC[100])

		_, err = c.TMY(ctx, -26.2041, 28.0473, nil)
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		assert.Equal(t, 1, c.cache.Len())
	})

	t.Run("aligned to local time", func(t *testing.T) {
		var calls int32
		server := tmyServer(t, types.HoursPerYear, &calls)
		defer server.Close()

		c := NewClient(server.URL, server.Client(), nil, time.FixedZone("SAST", 2*60*60))
		s, err := c.TMY(ctx, -26.2041, 28.0473, nil)
		require.NoError(t, err)
		// 06:00 UTC is 08:00 SAST
		assert.Zero(t, s.HourlyGHIWm2[6])
		assert.Equal(t, 60.0, s.HourlyGHIWm2[8])
	})

	t.Run("zone per request shares the cache", func(t *testing.T) {
		var calls int32
		server := tmyServer(t, types.HoursPerYear, &calls)
		defer server.Close()

		c := NewClient(server.URL, server.Client(), nil, nil)
		local, err := c.TMY(ctx, -26.2041, 28.0473, time.FixedZone("SAST", 2*60*60))
		require.NoError(t, err)
		utc, err := c.TMY(ctx, -26.2041, 28.0473, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

		assert.Equal(t, 60.0, local.HourlyGHIWm2[8])
		assert.Equal(t, 60.0, utc.HourlyGHIWm2[6])
		assert.Zero(t, utc.HourlyGHIWm2[4])
		// the cached series is not rotated by earlier requests
		again, err := c.TMY(ctx, -26.2041, 28.0473, time.FixedZone("SAST", 2*60*60))
		require.NoError(t, err)
		assert.Equal(t, local.HourlyGHIWm2, again.HourlyGHIWm2)
	})

	t.Run("wrong length", func(t *testing.T) {
		var calls int32
		server := tmyServer(t, 100, &calls)
		defer server.Close()

		_, err := NewClient(server.URL, server.Client(), nil, nil).TMY(ctx, -26.2041, 28.0473, nil)
		assert.Error(t, err)
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		_, err := NewClient("http://unused", nil, nil, nil).TMY(ctx, 91, 0, nil)
		assert.Error(t, err)
	})

	t.Run("upstream error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, server.Client(), nil, nil).TMY(ctx, -26.2041, 28.0473, nil)
		assert.Error(t, err)
	})
}

func TestShiftHours(t *testing.T) {
	assert.Equal(t, []float64{3, 4, 1, 2}, ShiftHours([]float64{1, 2, 3, 4}, 2))
	assert.Equal(t, []float64{2, 3, 4, 1}, ShiftHours([]float64{1, 2, 3, 4}, -1))
	assert.Equal(t, []float64{1, 2}, ShiftHours([]float64{1, 2}, 0))
}

func TestCache(t *testing.T) {
	c := NewCache()
	c.Put(-33.9249, 18.4241, types.IrradianceSeries{Latitude: -33.9249})
	s, ok := c.Get(-33.92, 18.42)
	require.True(t, ok)
	assert.Equal(t, -33.9249, s.Latitude)

	_, ok = c.Get(-33.95, 18.42)
	assert.False(t, ok)
}
