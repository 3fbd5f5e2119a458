package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/solarroi/solarroi/pkg/types"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrResultNotFound  = errors.New("result not found")
)

// Database defines the interface for persisting projects and their inputs and
// calculation results.
type Database interface {
	// Projects
	// GetProject returns the project with its meter imports and the version
	// of its settings.
	GetProject(ctx context.Context, projectID string) (types.Project, int, error)
	ListProjects(ctx context.Context) ([]types.Project, error)
	// SaveProject stores the project and its settings version. Meter imports
	// are stored separately with SaveMeterImport.
	SaveProject(ctx context.Context, project types.Project, version int) error

	// Meter imports
	SaveMeterImport(ctx context.Context, projectID string, m types.MeterImport) error
	ListMeterImports(ctx context.Context, projectID string) ([]types.MeterImport, error)

	// Reference data
	ListShopTypes(ctx context.Context) ([]types.ShopTypeTemplate, error)
	UpsertShopType(ctx context.Context, t types.ShopTypeTemplate) error
	ListTariffs(ctx context.Context) ([]types.Tariff, error)
	UpsertTariff(ctx context.Context, t types.Tariff) error

	// Results
	InsertResult(ctx context.Context, r types.CalculationResult) error
	GetLatestResult(ctx context.Context, projectID string) (types.CalculationResult, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
