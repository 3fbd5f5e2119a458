package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/tariff"
	"github.com/solarroi/solarroi/pkg/types"
)

// refreshTariffs registers the custom tariffs from storage with the tariff
// registry.
func (s *Server) refreshTariffs(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	custom, err := s.storage.ListTariffs(ctx)
	if err != nil {
		return err
	}
	for _, t := range custom {
		if err := s.tariffs.SetTariff(t); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping invalid custom tariff", slog.String("tariffID", t.ID), slog.Any("error", err))
		}
	}
	return nil
}

// knownTariff returns true when id is empty or registered.
func (s *Server) knownTariff(ctx context.Context, id string) bool {
	if id == "" {
		return true
	}
	if err := s.refreshTariffs(ctx); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to load custom tariffs", slog.Any("error", err))
	}
	_, err := s.tariffs.Tariff(id)
	return err == nil
}

func (s *Server) handleListTariffs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.refreshTariffs(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load custom tariffs", slog.Any("error", err))
		writeJSONError(w, "failed to load tariffs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.tariffs.List())
}

func (s *Server) handleListShopTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shopTypes, err := s.storage.ListShopTypes(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list shop types", slog.Any("error", err))
		writeJSONError(w, "failed to list shop types", http.StatusInternalServerError)
		return
	}
	if shopTypes == nil {
		shopTypes = []types.ShopTypeTemplate{}
	}
	writeJSON(w, shopTypes)
}

// TariffBlocksRes is the response type for the tariff blocks endpoint.
type TariffBlocksRes struct {
	TariffID string         `json:"tariffID"`
	DayType  types.DayType  `json:"dayType"`
	Season   types.Season   `json:"season"`
	Blocks   []tariff.Block `json:"blocks"`
}

// handleTariffBlocks returns the merged TOU blocks of one day, used to chart
// a tariff.
func (s *Server) handleTariffBlocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.refreshTariffs(ctx); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to load custom tariffs", slog.Any("error", err))
	}
	t, err := s.tariffs.Tariff(r.PathValue("tariffID"))
	if err != nil {
		writeJSONError(w, "tariff not found", http.StatusNotFound)
		return
	}

	dayType := types.DayType(r.URL.Query().Get("dayType"))
	switch dayType {
	case "":
		dayType = types.DayTypeWeekday
	case types.DayTypeWeekday, types.DayTypeSaturday, types.DayTypeSunday:
	default:
		writeJSONError(w, "invalid dayType", http.StatusBadRequest)
		return
	}
	season := types.Season(r.URL.Query().Get("season"))
	switch season {
	case "":
		season = types.SeasonLowSummer
	case types.SeasonAllYear, types.SeasonHighWinter, types.SeasonLowSummer:
	default:
		writeJSONError(w, "invalid season", http.StatusBadRequest)
		return
	}

	writeJSON(w, TariffBlocksRes{
		TariffID: t.ID,
		DayType:  dayType,
		Season:   season,
		Blocks:   tariff.DayBlocks(t, dayType, season),
	})
}
