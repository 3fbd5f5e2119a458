package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"
	"gopkg.in/yaml.v3"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/storage"
	"github.com/solarroi/solarroi/pkg/types"
)

//go:embed seed.yaml
var defaultSeed []byte

// seedFile is the layout of a seed YAML file.
type seedFile struct {
	ShopTypes []types.ShopTypeTemplate `yaml:"shop_types"`
	Tariffs   []types.Tariff           `yaml:"tariffs"`
}

// parseSeed decodes and validates a seed file. Unknown keys are an error so
// typos don't silently drop data.
func parseSeed(r io.Reader) (seedFile, error) {
	var sf seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		if err == io.EOF {
			return seedFile{}, fmt.Errorf("seed file is empty")
		}
		return seedFile{}, fmt.Errorf("failed to decode seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(sf.ShopTypes))
	for i, st := range sf.ShopTypes {
		if st.ID == "" {
			return seedFile{}, fmt.Errorf("shop type %d has no id", i)
		}
		if _, ok := seen[st.ID]; ok {
			return seedFile{}, fmt.Errorf("duplicate shop type %s", st.ID)
		}
		seen[st.ID] = struct{}{}
		if st.KWhPerSqmMonth < 0 {
			return seedFile{}, fmt.Errorf("shop type %s has negative consumption", st.ID)
		}
	}
	for _, t := range sf.Tariffs {
		if err := t.Validate(); err != nil {
			return seedFile{}, err
		}
	}
	return sf, nil
}

// applySeed upserts every shop type and tariff.
func applySeed(ctx context.Context, db storage.Database, sf seedFile) error {
	for _, st := range sf.ShopTypes {
		if err := db.UpsertShopType(ctx, st); err != nil {
			return err
		}
		log.Ctx(ctx).InfoContext(ctx, "seeded shop type", slog.String("id", st.ID))
	}
	for _, t := range sf.Tariffs {
		if err := db.UpsertTariff(ctx, t); err != nil {
			return err
		}
		log.Ctx(ctx).InfoContext(ctx, "seeded tariff", slog.String("id", t.ID), slog.String("type", string(t.Type)))
	}
	return nil
}

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	seedPath := lflag.String("seed-file", "", "YAML file of shop types and tariffs. Empty uses the built-in seed")
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	var r io.Reader = bytes.NewReader(defaultSeed)
	if *seedPath != "" {
		f, err := os.Open(*seedPath)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to open seed file", slog.Any("error", err))
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	sf, err := parseSeed(r)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid seed file", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding reference data", slog.Int("shopTypes", len(sf.ShopTypes)), slog.Int("tariffs", len(sf.Tariffs)))
	if err := applySeed(ctx, s, sf); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete")
}
