package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/pkg/calculator"
	"github.com/solarroi/solarroi/pkg/pvsyst"
	"github.com/solarroi/solarroi/pkg/storage"
	"github.com/solarroi/solarroi/pkg/storage/storagemock"
	"github.com/solarroi/solarroi/pkg/tariff"
	"github.com/solarroi/solarroi/pkg/types"
)

func newTestServer(db storage.Database) *Server {
	c := calculator.New(tariff.Configured(), nil, pvsyst.DefaultLossChain())
	return &Server{
		calculator: c,
		tariffs:    c.Tariffs(),
		storage:    db,
		bypassAuth: true,
		serverName: "solarroi-test",
	}
}

func doRequest(srv *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	var res struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	return res.Error
}

func flatShape() [types.HoursPerDay]float64 {
	var out [types.HoursPerDay]float64
	for h := range out {
		out[h] = 1
	}
	return out
}

func syntheticTMY() types.IrradianceSeries {
	s := types.IrradianceSeries{
		Latitude:     -33.9,
		Longitude:    18.4,
		HourlyGHIWm2: make([]float64, types.HoursPerYear),
	}
	for i := range s.HourlyGHIWm2 {
		if h := i % types.HoursPerDay; h >= 8 && h < 16 {
			s.HourlyGHIWm2[i] = 800
		}
	}
	return s
}

func testShopTypes() []types.ShopTypeTemplate {
	return []types.ShopTypeTemplate{{
		ID:                 "retail",
		Name:               "Retail",
		KWhPerSqmMonth:     10,
		LoadProfileWeekday: flatShape(),
		LoadProfileWeekend: flatShape(),
	}}
}

func testProject(t *testing.T) types.Project {
	settings, _, err := types.MigrateSettings(types.ProjectSettings{
		Latitude:  -33.9,
		Longitude: 18.4,
		SolarKWp:  100,
		TariffID:  "flat_example",
		Costs: types.CostSchedule{
			CostPerKWp: decimal.NewFromInt(12000),
		},
	}, 0)
	require.NoError(t, err)
	return types.Project{
		ID:   "p1",
		Name: "Canal Walk",
		Tenants: []types.Tenant{
			{ID: "a", Name: "Grocer", AreaSqm: 1000, ShopTypeID: "retail"},
		},
		Settings: settings,
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(nil)
	w := doRequest(srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "solarroi-test", w.Header().Get("Server"))
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(nil)

	w := doRequest(srv, http.MethodGet, "/api/list/tariffs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = doRequest(srv, http.MethodGet, "/healthz", nil)
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestGzip(t *testing.T) {
	db := &storagemock.MockDatabase{}
	shopTypes := make([]types.ShopTypeTemplate, 0, 50)
	for range 50 {
		shopTypes = append(shopTypes, testShopTypes()...)
	}
	db.On("ListShopTypes", mock.Anything).Return(shopTypes, nil)
	srv := newTestServer(db)

	req := httptest.NewRequest(http.MethodGet, "/api/list/shopTypes", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	var got []types.ShopTypeTemplate
	require.NoError(t, json.NewDecoder(gz).Decode(&got))
	assert.Len(t, got, 50)
}

func TestAuthMiddleware(t *testing.T) {
	newAuthServer := func(verify tokenVerifier) *Server {
		srv := newTestServer(nil)
		srv.bypassAuth = false
		srv.oidcVerifier = verify
		return srv
	}

	t.Run("missing header", func(t *testing.T) {
		srv := newAuthServer(nil)
		w := doRequest(srv, http.MethodGet, "/api/list/tariffs", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("not a bearer token", func(t *testing.T) {
		srv := newAuthServer(nil)
		req := httptest.NewRequest(http.MethodGet, "/api/list/tariffs", nil)
		req.Header.Set("Authorization", "Basic abc")
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid auth header", decodeError(t, w))
	})

	t.Run("invalid token", func(t *testing.T) {
		var gotToken string
		srv := newAuthServer(func(ctx context.Context, raw string) (*oidc.IDToken, error) {
			gotToken = raw
			return nil, errors.New("expired")
		})
		req := httptest.NewRequest(http.MethodGet, "/api/list/tariffs", nil)
		req.Header.Set("Authorization", "Bearer tok123")
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "tok123", gotToken)
	})

	t.Run("no verifier", func(t *testing.T) {
		srv := newAuthServer(nil)
		req := httptest.NewRequest(http.MethodGet, "/api/list/tariffs", nil)
		req.Header.Set("Authorization", "Bearer tok123")
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("healthz is public", func(t *testing.T) {
		srv := newAuthServer(nil)
		w := doRequest(srv, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bypass", func(t *testing.T) {
		srv := newTestServer(nil)
		w := doRequest(srv, http.MethodGet, "/api/list/tariffs", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
