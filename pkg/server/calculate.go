package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/solarroi/solarroi/pkg/calculator"
	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/pvsyst"
	"github.com/solarroi/solarroi/pkg/tariff"
	"github.com/solarroi/solarroi/pkg/types"
)

// CalculateReq is the body of a stateless calculation.
type CalculateReq struct {
	Project    types.Project            `json:"project"`
	ShopTypes  []types.ShopTypeTemplate `json:"shopTypes"`
	Irradiance *types.IrradianceSeries  `json:"irradiance,omitempty"`
	// SettingsVersion is the version the project settings were written
	// against. Older settings are migrated before calculating. Omitted means
	// current.
	SettingsVersion *int `json:"settingsVersion,omitempty"`
	Year            int  `json:"year,omitempty"`
}

// writeCalculateError maps a calculator error to a response.
func writeCalculateError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tariff.ErrUnknownTariff):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, calculator.ErrNoIrradiance),
		errors.Is(err, calculator.ErrInvalidInput),
		errors.Is(err, pvsyst.ErrMissingStage):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Ctx(ctx).WarnContext(ctx, "calculation canceled", slog.Any("error", err))
		writeJSONError(w, "calculation canceled", http.StatusServiceUnavailable)
	default:
		log.Ctx(ctx).ErrorContext(ctx, "failed to calculate", slog.Any("error", err))
		writeJSONError(w, "failed to calculate", http.StatusInternalServerError)
	}
}

// handleCalculate runs a calculation on the project in the body without
// touching storage.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CalculateReq
	if err := decodeBody(w, r, &req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode calculate request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SettingsVersion != nil && *req.SettingsVersion < types.CurrentSettingsVersion {
		settings, _, err := types.MigrateSettings(req.Project.Settings, *req.SettingsVersion)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Project.Settings = settings
	}

	res, err := s.calculator.Run(ctx, calculator.Input{
		Project:    req.Project,
		ShopTypes:  req.ShopTypes,
		Irradiance: req.Irradiance,
		Year:       req.Year,
	})
	if err != nil {
		writeCalculateError(ctx, w, err)
		return
	}
	writeJSON(w, res)
}

// handleCalculateProject calculates a stored project and stores the result.
func (s *Server) handleCalculateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pv, err := s.getProjectWithMigration(ctx, r.PathValue("projectID"))
	if err != nil {
		writeProjectError(ctx, w, err)
		return
	}
	shopTypes, err := s.storage.ListShopTypes(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list shop types", slog.Any("error", err))
		writeJSONError(w, "failed to list shop types", http.StatusInternalServerError)
		return
	}
	if err := s.refreshTariffs(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load custom tariffs", slog.Any("error", err))
		writeJSONError(w, "failed to load tariffs", http.StatusInternalServerError)
		return
	}

	res, err := s.calculator.Run(ctx, calculator.Input{
		Project:   pv.Project,
		ShopTypes: shopTypes,
	})
	if err != nil {
		writeCalculateError(ctx, w, err)
		return
	}
	if err := s.storage.InsertResult(ctx, res); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store result", slog.Any("error", err))
		writeJSONError(w, "failed to store result", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}
