package server

import (
	"log/slog"
	"net/http"

	"github.com/solarroi/solarroi/pkg/load"
	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/types"
)

// MeterMatchesRes lists proposed tenant to meter assignments.
type MeterMatchesRes struct {
	Matches []load.MeterMatch `json:"matches"`
}

func proposeMatches(tenants []types.Tenant, imports []types.MeterImport) []load.MeterMatch {
	matches := load.MatchMeters(tenants, imports)
	if matches == nil {
		matches = []load.MeterMatch{}
	}
	return matches
}

// handleMeterMatches proposes meter imports for tenants that have no meter.
func (s *Server) handleMeterMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pv, err := s.getProjectWithMigration(ctx, r.PathValue("projectID"))
	if err != nil {
		writeProjectError(ctx, w, err)
		return
	}
	writeJSON(w, MeterMatchesRes{Matches: proposeMatches(pv.Tenants, pv.MeterImports)})
}

// handleApplyMeterMatches assigns meter imports to tenants. The body is a
// list of matches, usually the accepted subset of the proposals.
func (s *Server) handleApplyMeterMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var matches []load.MeterMatch
	if err := decodeBody(w, r, &matches); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode meter matches", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pv, err := s.getProjectWithMigration(ctx, r.PathValue("projectID"))
	if err != nil {
		writeProjectError(ctx, w, err)
		return
	}
	tenantIdx := make(map[string]int, len(pv.Tenants))
	for i, t := range pv.Tenants {
		tenantIdx[t.ID] = i
	}
	for _, m := range matches {
		i, ok := tenantIdx[m.TenantID]
		if !ok {
			writeJSONError(w, "tenant not found: "+m.TenantID, http.StatusBadRequest)
			return
		}
		if _, ok := pv.MeterImport(m.MeterImportID); !ok {
			writeJSONError(w, "meter import not found: "+m.MeterImportID, http.StatusBadRequest)
			return
		}
		pv.Tenants[i].MeterImportID = m.MeterImportID
	}

	if err := s.storage.SaveProject(ctx, pv.Project, pv.version); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save meter assignments", slog.Any("error", err))
		writeJSONError(w, "failed to save meter assignments", http.StatusInternalServerError)
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "assigned meters", slog.String("projectID", pv.ID), slog.Int("matches", len(matches)))
	writeJSON(w, pv.Project)
}
