package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/types"
)

// FirestoreProvider implements the Database interface using Google Cloud Firestore.
// Every record is stored as a JSON blob in a "json" field next to the few
// fields that are queried on.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// the project id may be empty, it is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(projectID, name string) (*firestore.CollectionRef, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID cannot be empty")
	}
	return f.client.Collection("projects").Doc(projectID).Collection(name), nil
}

// decodeDoc unmarshals the "json" field of doc. kind names the record in
// logs and errors.
func decodeDoc[T any](ctx context.Context, doc *firestore.DocumentSnapshot, kind string) (T, error) {
	var v T
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, kind+" doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return v, fmt.Errorf("%s document %s missing 'json' field: %w", kind, doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, kind+" doc json not string", slog.String("docID", doc.Ref.ID))
		return v, fmt.Errorf("%s document %s 'json' field is not string", kind, doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal "+kind, slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return v, fmt.Errorf("failed to unmarshal %s (id=%s): %w", kind, doc.Ref.ID, err)
	}
	return v, nil
}

// readVersion reads the "version" field, defaulting to 0.
func readVersion(doc *firestore.DocumentSnapshot) int {
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			return int(vInt)
		}
	}
	return 0
}

// decodeAll drains iter. Malformed documents fail the whole read unless
// skipMalformed is set, in which case they are logged and skipped.
func decodeAll[T any](ctx context.Context, iter *firestore.DocumentIterator, kind string, skipMalformed bool) ([]T, error) {
	defer iter.Stop()

	var out []T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating %s: %w", kind, err)
		}
		v, err := decodeDoc[T](ctx, doc, kind)
		if err != nil {
			if skipMalformed {
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetProject retrieves a project from the "projects" collection together with
// its meter imports.
func (f *FirestoreProvider) GetProject(ctx context.Context, projectID string) (types.Project, int, error) {
	if projectID == "" {
		return types.Project{}, 0, fmt.Errorf("projectID cannot be empty")
	}
	doc, err := f.client.Collection("projects").Doc(projectID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Project{}, 0, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return types.Project{}, 0, fmt.Errorf("failed to get project %s: %w", projectID, err)
	}
	p, err := decodeDoc[types.Project](ctx, doc, "project")
	if err != nil {
		return types.Project{}, 0, err
	}
	p.MeterImports, err = f.ListMeterImports(ctx, projectID)
	if err != nil {
		return types.Project{}, 0, err
	}
	return p, readVersion(doc), nil
}

// ListProjects retrieves all projects without their meter imports. Malformed
// projects are skipped.
func (f *FirestoreProvider) ListProjects(ctx context.Context) ([]types.Project, error) {
	return decodeAll[types.Project](ctx, f.client.Collection("projects").Documents(ctx), "project", true)
}

// SaveProject stores the project document. Meter imports are left out of the
// document, they live in the "meter_imports" sub-collection.
func (f *FirestoreProvider) SaveProject(ctx context.Context, project types.Project, version int) error {
	if project.ID == "" {
		return fmt.Errorf("projectID cannot be empty")
	}
	project.MeterImports = nil
	projectJSON, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to marshal project %s: %w", project.ID, err)
	}
	_, err = f.client.Collection("projects").Doc(project.ID).Set(ctx, map[string]interface{}{
		"json":    string(projectJSON),
		"name":    project.Name,
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", project.ID, err)
	}
	return nil
}

// SaveMeterImport stores a meter import under its project. Raw readings are
// not persisted, only the derived profiles, to stay well inside the
// document size limit.
func (f *FirestoreProvider) SaveMeterImport(ctx context.Context, projectID string, m types.MeterImport) error {
	if m.ID == "" {
		return fmt.Errorf("meter import id cannot be empty")
	}
	m.Readings = nil
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal meter import: %w", err)
	}
	coll, err := f.getCollection(projectID, "meter_imports")
	if err != nil {
		return err
	}
	_, err = coll.Doc(m.ID).Set(ctx, map[string]interface{}{
		"json":       string(jsonBytes),
		"importedAt": m.ImportedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save meter import: %w", err)
	}
	return nil
}

// ListMeterImports retrieves every meter import of a project in import order.
func (f *FirestoreProvider) ListMeterImports(ctx context.Context, projectID string) ([]types.MeterImport, error) {
	coll, err := f.getCollection(projectID, "meter_imports")
	if err != nil {
		return nil, err
	}
	return decodeAll[types.MeterImport](ctx, coll.OrderBy("importedAt", firestore.Asc).Documents(ctx), "meter import", false)
}

// ListShopTypes retrieves all shop-type templates. Malformed templates are
// skipped.
func (f *FirestoreProvider) ListShopTypes(ctx context.Context) ([]types.ShopTypeTemplate, error) {
	return decodeAll[types.ShopTypeTemplate](ctx, f.client.Collection("shop_types").OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx), "shop type", true)
}

// UpsertShopType adds or replaces a shop-type template.
func (f *FirestoreProvider) UpsertShopType(ctx context.Context, t types.ShopTypeTemplate) error {
	if t.ID == "" {
		return fmt.Errorf("shop type id cannot be empty")
	}
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal shop type %s: %w", t.ID, err)
	}
	_, err = f.client.Collection("shop_types").Doc(t.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert shop type %s: %w", t.ID, err)
	}
	return nil
}

// ListTariffs retrieves all custom tariffs. Malformed tariffs are skipped.
func (f *FirestoreProvider) ListTariffs(ctx context.Context) ([]types.Tariff, error) {
	return decodeAll[types.Tariff](ctx, f.client.Collection("tariffs").OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx), "tariff", true)
}

// UpsertTariff validates and stores a custom tariff.
func (f *FirestoreProvider) UpsertTariff(ctx context.Context, t types.Tariff) error {
	if err := t.Validate(); err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal tariff %s: %w", t.ID, err)
	}
	_, err = f.client.Collection("tariffs").Doc(t.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
		"type": string(t.Type),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert tariff %s: %w", t.ID, err)
	}
	return nil
}

// InsertResult adds a calculation result to the "results" sub-collection of
// its project.
func (f *FirestoreProvider) InsertResult(ctx context.Context, r types.CalculationResult) error {
	if r.ID == "" {
		return fmt.Errorf("result id cannot be empty")
	}
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	coll, err := f.getCollection(r.ProjectID, "results")
	if err != nil {
		return err
	}
	_, err = coll.Doc(r.ID).Create(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": r.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

// GetLatestResult retrieves the most recent calculation result of a project.
func (f *FirestoreProvider) GetLatestResult(ctx context.Context, projectID string) (types.CalculationResult, error) {
	coll, err := f.getCollection(projectID, "results")
	if err != nil {
		return types.CalculationResult{}, err
	}
	// firestore automatically creates indexes for top-level fields
	iter := coll.
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return types.CalculationResult{}, fmt.Errorf("%w: %s", ErrResultNotFound, projectID)
	}
	if err != nil {
		return types.CalculationResult{}, fmt.Errorf("failed to get latest result: %w", err)
	}
	return decodeDoc[types.CalculationResult](ctx, doc, "result")
}
