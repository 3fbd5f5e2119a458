package meter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/types"
)

// ImportOptions configures how a SCADA CSV export is read. Empty column names
// are detected from the header.
type ImportOptions struct {
	DateColumn  string
	TimeColumn  string
	ValueColumn string

	Parser  *Parser
	Decimal DecimalSeparator

	// Cumulative means the value column is a running counter that has to be
	// converted to per-interval usage.
	Cumulative bool
	Delta      DeltaCalculator
}

// ImportResult is the outcome of reading a CSV export.
type ImportResult struct {
	Readings    []types.Reading
	SkippedRows int
	// AmbiguousRows are the skipped rows whose value could be read with
	// either decimal separator. They are included in SkippedRows.
	AmbiguousRows int
	Rollovers     int
	Decreases     int
}

var (
	dateColumnNames  = []string{"date", "datetime", "date/time", "timestamp", "time stamp", "reading date", "read date"}
	timeColumnNames  = []string{"time", "reading time", "read time"}
	valueColumnNames = []string{"kwh", "value", "consumption", "reading", "usage", "energy", "kwh reading", "active energy"}
)

// ImportCSV reads timestamped readings from a CSV export. Rows with an
// unparseable timestamp or value are skipped and counted instead of failing
// the whole import.
func ImportCSV(ctx context.Context, r io.Reader, opts ImportOptions) (ImportResult, error) {
	parser := opts.Parser
	if parser == nil {
		parser = NewParser(DMY, nil)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ImportResult{}, errors.New("csv is empty")
		}
		return ImportResult{}, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	dateIdx := findColumn(header, opts.DateColumn, dateColumnNames)
	if dateIdx < 0 {
		return ImportResult{}, fmt.Errorf("csv missing date column (header: %v)", header)
	}
	valueIdx := findColumn(header, opts.ValueColumn, valueColumnNames)
	if valueIdx < 0 {
		return ImportResult{}, fmt.Errorf("csv missing value column (header: %v)", header)
	}
	timeIdx := findColumn(header, opts.TimeColumn, timeColumnNames)
	if timeIdx == dateIdx {
		timeIdx = -1
	}

	var res ImportResult
	row := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return ImportResult{}, fmt.Errorf("failed to read csv row %d: %w", row, err)
			}
			log.Ctx(ctx).WarnContext(ctx, "csv parse error", slog.Int("row", row), slog.Any("error", err))
			res.SkippedRows++
			continue
		}
		if isBlank(record) {
			continue
		}
		if dateIdx >= len(record) || valueIdx >= len(record) {
			log.Ctx(ctx).DebugContext(ctx, "csv row missing columns", slog.Int("row", row), slog.Any("record", record))
			res.SkippedRows++
			continue
		}
		var clock string
		if timeIdx >= 0 && timeIdx < len(record) {
			clock = record[timeIdx]
		}
		ts, ok := parser.Parse(record[dateIdx], clock)
		if !ok {
			log.Ctx(ctx).DebugContext(ctx, "skipping row with unparseable timestamp", slog.Int("row", row), slog.String("date", record[dateIdx]), slog.String("time", clock))
			res.SkippedRows++
			continue
		}
		value, err := opts.Decimal.parse(record[valueIdx])
		if errors.Is(err, errAmbiguousValue) {
			log.Ctx(ctx).DebugContext(ctx, "skipping row with ambiguous value", slog.Int("row", row), slog.String("value", record[valueIdx]))
			res.SkippedRows++
			res.AmbiguousRows++
			continue
		} else if err != nil {
			log.Ctx(ctx).DebugContext(ctx, "skipping row with unparseable value", slog.Int("row", row), slog.String("value", record[valueIdx]))
			res.SkippedRows++
			continue
		}
		res.Readings = append(res.Readings, types.Reading{Timestamp: ts, Value: value})
	}

	slices.SortStableFunc(res.Readings, func(a, b types.Reading) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	if opts.Cumulative && len(res.Readings) > 0 {
		deltas := make([]types.Reading, 0, len(res.Readings)-1)
		for i := 1; i < len(res.Readings); i++ {
			d, status := opts.Delta.Delta(res.Readings[i-1].Value, res.Readings[i].Value)
			switch status {
			case DeltaRollover:
				res.Rollovers++
			case DeltaDecrease:
				res.Decreases++
				log.Ctx(ctx).WarnContext(
					ctx,
					"cumulative reading decreased",
					slog.Time("ts", res.Readings[i].Timestamp),
					slog.Float64("previous", res.Readings[i-1].Value),
					slog.Float64("current", res.Readings[i].Value),
				)
			}
			deltas = append(deltas, types.Reading{Timestamp: res.Readings[i-1].Timestamp, Value: d})
		}
		res.Readings = deltas
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"imported meter csv",
		slog.Int("readings", len(res.Readings)),
		slog.Int("skipped", res.SkippedRows),
		slog.Int("ambiguous", res.AmbiguousRows),
		slog.Int("rollovers", res.Rollovers),
	)
	if res.AmbiguousRows > 0 {
		log.Ctx(ctx).WarnContext(ctx, "csv values are ambiguous without a decimal separator", slog.Int("rows", res.AmbiguousRows))
	}
	return res, nil
}

func findColumn(header []string, want string, candidates []string) int {
	if want != "" {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(want)) {
				return i
			}
		}
		return -1
	}
	for _, c := range candidates {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), c) {
				return i
			}
		}
	}
	return -1
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
