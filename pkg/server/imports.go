package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/solarroi/solarroi/pkg/load"
	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/meter"
	"github.com/solarroi/solarroi/pkg/types"
)

// ImportRes is the response type for a meter CSV import.
type ImportRes struct {
	Import      types.MeterImport `json:"import"`
	Readings    int               `json:"readings"`
	SkippedRows int               `json:"skippedRows"`
	// AmbiguousRows are skipped rows whose values need an explicit decimal separator.
	AmbiguousRows int `json:"ambiguousRows"`
	Rollovers     int `json:"rollovers"`
	Decreases     int `json:"decreases"`
	// Matches proposes tenants for the new meter when no tenantID was given.
	Matches []load.MeterMatch `json:"matches,omitempty"`
}

// handleImport reads a SCADA CSV export from the body, builds the meter
// import and stores it on the project. When tenantID is set the meter is
// assigned to that tenant, otherwise matching tenants are proposed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	pv, err := s.getProjectWithMigration(ctx, r.PathValue("projectID"))
	if err != nil {
		writeProjectError(ctx, w, err)
		return
	}

	orderStr := q.Get("order")
	if orderStr == "" {
		orderStr = pv.Settings.DateOrder
	}
	order, err := meter.ParseDateOrder(orderStr)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var loc *time.Location
	if pv.Settings.Timezone != "" {
		loc, err = time.LoadLocation(pv.Settings.Timezone)
		if err != nil {
			writeJSONError(w, "invalid project timezone", http.StatusBadRequest)
			return
		}
	}
	decimalStr := q.Get("decimal")
	if decimalStr == "" {
		decimalStr = pv.Settings.DecimalSeparator
	}
	decimalSep, err := meter.ParseDecimalSeparator(decimalStr)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var cumulative bool
	if v := q.Get("cumulative"); v != "" {
		cumulative, err = strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, "invalid cumulative", http.StatusBadRequest)
			return
		}
	}
	var referenceArea float64
	if v := q.Get("referenceArea"); v != "" {
		referenceArea, err = strconv.ParseFloat(v, 64)
		if err != nil || referenceArea < 0 {
			writeJSONError(w, "invalid referenceArea", http.StatusBadRequest)
			return
		}
	}
	tenantIdx := -1
	if tenantID := q.Get("tenantID"); tenantID != "" {
		for i, t := range pv.Tenants {
			if t.ID == tenantID {
				tenantIdx = i
				break
			}
		}
		if tenantIdx < 0 {
			writeJSONError(w, "tenant not found", http.StatusBadRequest)
			return
		}
	}
	siteName := q.Get("siteName")
	if siteName == "" {
		siteName = pv.Name
	}

	maxBytes := s.maxImportBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	imported, err := meter.ImportCSV(ctx, body, meter.ImportOptions{
		DateColumn:  q.Get("dateColumn"),
		TimeColumn:  q.Get("timeColumn"),
		ValueColumn: q.Get("valueColumn"),
		Parser:      meter.NewParser(order, loc),
		Decimal:     decimalSep,
		Cumulative:  cumulative,
		Delta:       meter.DeltaCalculator{RolloverFraction: meter.DefaultRolloverFraction},
	})
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, "csv too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Ctx(ctx).WarnContext(ctx, "failed to import csv", slog.Any("error", err))
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(imported.Readings) == 0 {
		writeJSONError(w, "csv has no usable readings", http.StatusBadRequest)
		return
	}

	mi := meter.BuildMeterImport(ctx, imported.Readings, meter.ImportMeta{
		SiteName:         siteName,
		ShopName:         q.Get("shopName"),
		ShopNumber:       q.Get("shopNumber"),
		MeterLabel:       q.Get("meterLabel"),
		ReferenceAreaSqm: referenceArea,
		SkippedRows:      imported.SkippedRows,
	})
	if err := s.storage.SaveMeterImport(ctx, pv.ID, mi); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save meter import", slog.Any("error", err))
		writeJSONError(w, "failed to save meter import", http.StatusInternalServerError)
		return
	}
	var matches []load.MeterMatch
	if tenantIdx < 0 {
		matches = load.MatchMeters(pv.Tenants, []types.MeterImport{mi})
	} else {
		pv.Tenants[tenantIdx].MeterImportID = mi.ID
		if err := s.storage.SaveProject(ctx, pv.Project, pv.version); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to assign meter import", slog.Any("error", err))
			writeJSONError(w, "failed to assign meter import", http.StatusInternalServerError)
			return
		}
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"imported meter csv",
		slog.String("projectID", pv.ID),
		slog.String("importID", mi.ID),
		slog.Int("readings", len(imported.Readings)),
		slog.Int("skipped", imported.SkippedRows),
	)
	writeJSON(w, ImportRes{
		Import:        mi,
		Readings:      len(imported.Readings),
		SkippedRows:   imported.SkippedRows,
		AmbiguousRows: imported.AmbiguousRows,
		Rollovers:     imported.Rollovers,
		Decreases:     imported.Decreases,
		Matches:       matches,
	})
}
