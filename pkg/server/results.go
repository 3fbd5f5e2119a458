package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/storage"
)

func (s *Server) handleLatestResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.storage.GetLatestResult(ctx, r.PathValue("projectID"))
	if err != nil {
		if errors.Is(err, storage.ErrResultNotFound) {
			writeJSONError(w, "no results for project", http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest result", slog.Any("error", err))
		writeJSONError(w, "failed to get latest result", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}
