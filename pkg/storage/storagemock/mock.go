package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/solarroi/solarroi/pkg/storage"
	"github.com/solarroi/solarroi/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetProject(ctx context.Context, projectID string) (types.Project, int, error) {
	args := m.Called(ctx, projectID)
	if len(args) > 0 {
		return args.Get(0).(types.Project), args.Int(1), args.Error(2)
	}
	return types.Project{}, 0, nil
}

func (m *MockDatabase) ListProjects(ctx context.Context) ([]types.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Project), args.Error(1)
}

func (m *MockDatabase) SaveProject(ctx context.Context, project types.Project, version int) error {
	args := m.Called(ctx, project, version)
	return args.Error(0)
}

func (m *MockDatabase) SaveMeterImport(ctx context.Context, projectID string, mi types.MeterImport) error {
	args := m.Called(ctx, projectID, mi)
	return args.Error(0)
}

func (m *MockDatabase) ListMeterImports(ctx context.Context, projectID string) ([]types.MeterImport, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.MeterImport), args.Error(1)
}

func (m *MockDatabase) ListShopTypes(ctx context.Context) ([]types.ShopTypeTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ShopTypeTemplate), args.Error(1)
}

func (m *MockDatabase) UpsertShopType(ctx context.Context, t types.ShopTypeTemplate) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockDatabase) ListTariffs(ctx context.Context) ([]types.Tariff, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Tariff), args.Error(1)
}

func (m *MockDatabase) UpsertTariff(ctx context.Context, t types.Tariff) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockDatabase) InsertResult(ctx context.Context, r types.CalculationResult) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockDatabase) GetLatestResult(ctx context.Context, projectID string) (types.CalculationResult, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(types.CalculationResult), args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
