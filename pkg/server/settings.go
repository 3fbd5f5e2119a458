package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/meter"
	"github.com/solarroi/solarroi/pkg/storage"
	"github.com/solarroi/solarroi/pkg/types"
)

type projectWithVersion struct {
	types.Project
	version int
}

// getProjectWithMigration loads a project and migrates its settings to the
// current version, saving them back when they changed.
func (s *Server) getProjectWithMigration(ctx context.Context, projectID string) (projectWithVersion, error) {
	project, version, err := s.storage.GetProject(ctx, projectID)
	if err != nil {
		return projectWithVersion{}, err
	}
	pv := projectWithVersion{
		Project: project,
		version: version,
	}

	// Check for migration
	if version < types.CurrentSettingsVersion {
		log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
		newSettings, changed, err := types.MigrateSettings(project.Settings, version)
		if err != nil {
			// Log error but return settings as is (best effort)
			log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
		} else if changed {
			pv.Settings = newSettings
			pv.version = types.CurrentSettingsVersion
			if err := s.storage.SaveProject(ctx, pv.Project, types.CurrentSettingsVersion); err != nil {
				// the migrated settings are still used for this request
				log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
			} else {
				log.Ctx(ctx).InfoContext(ctx, "saved migrated settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
			}
		}
	}

	return pv, nil
}

// writeProjectError writes the response for a failed project lookup.
func writeProjectError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrProjectNotFound) {
		writeJSONError(w, "project not found", http.StatusNotFound)
		return
	}
	log.Ctx(ctx).ErrorContext(ctx, "failed to get project", slog.Any("error", err))
	writeJSONError(w, "failed to get project", http.StatusInternalServerError)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list projects", slog.Any("error", err))
		writeJSONError(w, "failed to list projects", http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []types.Project{}
	}
	writeJSON(w, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pv, err := s.getProjectWithMigration(ctx, r.PathValue("projectID"))
	if err != nil {
		writeProjectError(ctx, w, err)
		return
	}
	writeJSON(w, pv.Project)
}

// handleSaveProject creates or replaces a project. Meter imports in the body
// are ignored, they are added with the imports endpoint.
func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var project types.Project
	if err := decodeBody(w, r, &project); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode project", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		writeJSONError(w, "project name is required", http.StatusBadRequest)
		return
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	seen := make(map[string]struct{}, len(project.Tenants))
	for i, t := range project.Tenants {
		if t.ID == "" {
			project.Tenants[i].ID = uuid.NewString()
			continue
		}
		if _, ok := seen[t.ID]; ok {
			writeJSONError(w, "duplicate tenant id: "+t.ID, http.StatusBadRequest)
			return
		}
		seen[t.ID] = struct{}{}
	}
	for _, t := range project.Tenants {
		if t.StackedProfileID == "" {
			continue
		}
		if _, ok := project.StackedProfile(t.StackedProfileID); !ok {
			writeJSONError(w, "unknown stacked profile: "+t.StackedProfileID, http.StatusBadRequest)
			return
		}
	}

	// new projects get the current defaults
	settings, _, err := types.MigrateSettings(project.Settings, 0)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to apply default settings", slog.Any("error", err))
		writeJSONError(w, "failed to apply default settings", http.StatusInternalServerError)
		return
	}
	project.Settings = settings
	if !s.knownTariff(ctx, settings.TariffID) {
		writeJSONError(w, "unknown tariff: "+settings.TariffID, http.StatusBadRequest)
		return
	}

	if err := s.storage.SaveProject(ctx, project, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save project", slog.Any("error", err))
		writeJSONError(w, "failed to save project", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "saved project", slog.String("projectID", project.ID), slog.Int("tenants", len(project.Tenants)))
	project.MeterImports = nil
	writeJSON(w, project)
}

// handleUpdateSettings replaces the settings of a project.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var settings types.ProjectSettings
	if err := decodeBody(w, r, &settings); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode settings", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !s.knownTariff(ctx, settings.TariffID) {
		writeJSONError(w, "unknown tariff: "+settings.TariffID, http.StatusBadRequest)
		return
	}
	if settings.SolarKWp < 0 || settings.Battery.CapacityKWh < 0 || settings.Battery.PowerKW < 0 {
		writeJSONError(w, "system sizes cannot be negative", http.StatusBadRequest)
		return
	}
	if _, err := meter.ParseDateOrder(settings.DateOrder); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := meter.ParseDecimalSeparator(settings.DecimalSeparator); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	pv, err := s.getProjectWithMigration(ctx, r.PathValue("projectID"))
	if err != nil {
		writeProjectError(ctx, w, err)
		return
	}
	pv.Settings = settings
	if err := s.storage.SaveProject(ctx, pv.Project, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "updated project settings", slog.String("projectID", pv.ID), slog.String("user", s.getUser(r).Email))
	writeJSON(w, pv.Settings)
}
