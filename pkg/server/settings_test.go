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

func TestGetProjectWithMigration(t *testing.T) {
	t.Run("current version is not saved", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetProject", mock.Anything, "p1").Return(testProject(t), types.CurrentSettingsVersion, nil)
		srv := newTestServer(db)

		w := doRequest(srv, http.MethodGet, "/api/projects/p1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got types.Project
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "Canal Walk", got.Name)
		db.AssertNotCalled(t, "SaveProject", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("old version is migrated and saved", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetProject", mock.Anything, "p1").Return(types.Project{ID: "p1", Name: "Old"}, 0, nil)
		db.On("SaveProject", mock.Anything, mock.MatchedBy(func(p types.Project) bool {
			return p.Settings.ModuleEfficiency == 0.21 && p.Settings.Timezone == types.DefaultTimezone
		}), types.CurrentSettingsVersion).Return(nil)
		srv := newTestServer(db)

		pv, err := srv.getProjectWithMigration(t.Context(), "p1")
		require.NoError(t, err)
		assert.Equal(t, types.CurrentSettingsVersion, pv.version)
		assert.Equal(t, 25, pv.Settings.Projection.Years)
		db.AssertExpectations(t)
	})

	t.Run("save failure still returns migrated settings", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetProject", mock.Anything, "p1").Return(types.Project{ID: "p1"}, 1, nil)
		db.On("SaveProject", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("unavailable"))
		srv := newTestServer(db)

		pv, err := srv.getProjectWithMigration(t.Context(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "DMY", pv.Settings.DateOrder)
	})

	t.Run("not found", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetProject", mock.Anything, "nope").Return(types.Project{}, 0, storage.ErrProjectNotFound)
		srv := newTestServer(db)

		w := doRequest(srv, http.MethodGet, "/api/projects/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "project not found", decodeError(t, w))
	})
}

func TestHandleListProjects(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("ListProjects", mock.Anything).Return(nil, nil)
	srv := newTestServer(db)

	w := doRequest(srv, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandleSaveProject(t *testing.T) {
	t.Run("assigns ids and defaults", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListTariffs", mock.Anything).Return(nil, nil)
		db.On("SaveProject", mock.Anything, mock.MatchedBy(func(p types.Project) bool {
			return p.ID != "" && p.Tenants[0].ID != "" && p.Settings.ModuleEfficiency == 0.21
		}), types.CurrentSettingsVersion).Return(nil)
		srv := newTestServer(db)

		w := doRequest(srv, http.MethodPost, "/api/projects", jsonBody(t, types.Project{
			Name:     " Menlyn ",
			Tenants:  []types.Tenant{{Name: "Pharmacy", AreaSqm: 300}},
			Settings: types.ProjectSettings{TariffID: "flat_example"},
		}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got types.Project
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "Menlyn", got.Name)
		assert.NotEmpty(t, got.ID)
		db.AssertExpectations(t)
	})

	t.Run("missing name", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})
		w := doRequest(srv, http.MethodPost, "/api/projects", jsonBody(t, types.Project{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate tenant", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})
		w := doRequest(srv, http.MethodPost, "/api/projects", jsonBody(t, types.Project{
			Name:    "Mall",
			Tenants: []types.Tenant{{ID: "x"}, {ID: "x"}},
		}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "duplicate tenant id: x", decodeError(t, w))
	})

	t.Run("stacked profile must exist", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{})
		w := doRequest(srv, http.MethodPost, "/api/projects", jsonBody(t, types.Project{
			Name:            "Mall",
			Tenants:         []types.Tenant{{ID: "x", StackedProfileID: "s2"}},
			StackedProfiles: []types.StackedProfile{{ID: "s1", MeterImportIDs: []string{"m1", "m2"}}},
		}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "unknown stacked profile: s2", decodeError(t, w))
	})

	t.Run("unknown tariff", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListTariffs", mock.Anything).Return(nil, nil)
		srv := newTestServer(db)
		w := doRequest(srv, http.MethodPost, "/api/projects", jsonBody(t, types.Project{
			Name:     "Mall",
			Settings: types.ProjectSettings{TariffID: "nope"},
		}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		db.AssertNotCalled(t, "SaveProject", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandleUpdateSettings(t *testing.T) {
	t.Run("replaces settings", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListTariffs", mock.Anything).Return(nil, nil)
		db.On("GetProject", mock.Anything, "p1").Return(testProject(t), types.CurrentSettingsVersion, nil)
		db.On("SaveProject", mock.Anything, mock.MatchedBy(func(p types.Project) bool {
			return p.Settings.SolarKWp == 250 && p.Name == "Canal Walk"
		}), types.CurrentSettingsVersion).Return(nil)
		srv := newTestServer(db)

		settings := testProject(t).Settings
		settings.SolarKWp = 250
		w := doRequest(srv, http.MethodPost, "/api/projects/p1/settings", jsonBody(t, settings))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		db.AssertExpectations(t)
	})

	t.Run("bad decimal separator", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListTariffs", mock.Anything).Return(nil, nil)
		srv := newTestServer(db)

		settings := testProject(t).Settings
		settings.DecimalSeparator = ";"
		w := doRequest(srv, http.MethodPost, "/api/projects/p1/settings", jsonBody(t, settings))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		db.AssertNotCalled(t, "GetProject", mock.Anything, mock.Anything)
	})

	t.Run("negative size", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("ListTariffs", mock.Anything).Return(nil, nil)
		srv := newTestServer(db)

		settings := testProject(t).Settings
		settings.Battery.CapacityKWh = -1
		w := doRequest(srv, http.MethodPost, "/api/projects/p1/settings", jsonBody(t, settings))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
