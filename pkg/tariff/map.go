package tariff

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/solarroi/solarroi/pkg/types"
)

// ErrUnknownTariff is returned when a tariff id is not registered.
var ErrUnknownTariff = errors.New("unknown tariff")

// Configured returns a Map with the built-in tariffs.
func Configured() *Map {
	m := NewMap()
	for _, t := range Builtin() {
		m.builtin[t.ID] = t
	}
	return m
}

// Map manages the available tariffs. Custom tariffs override built-in ones
// with the same id.
type Map struct {
	mu      sync.Mutex
	builtin map[string]types.Tariff
	custom  map[string]types.Tariff
}

// NewMap creates an empty tariff Map.
func NewMap() *Map {
	return &Map{
		builtin: make(map[string]types.Tariff),
		custom:  make(map[string]types.Tariff),
	}
}

// Tariff returns the tariff for the given id.
func (m *Map) Tariff(id string) (types.Tariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.custom[id]; ok {
		return t, nil
	}
	if t, ok := m.builtin[id]; ok {
		return t, nil
	}
	return types.Tariff{}, fmt.Errorf("%w: %s", ErrUnknownTariff, id)
}

// SetTariff validates and registers a custom tariff.
func (m *Map) SetTariff(t types.Tariff) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custom[t.ID] = t
	return nil
}

// List returns metadata for every tariff sorted by id.
func (m *Map) List() []types.TariffInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.TariffInfo, 0, len(m.builtin)+len(m.custom))
	for id, t := range m.builtin {
		if _, ok := m.custom[id]; ok {
			continue
		}
		out = append(out, types.TariffInfo{ID: t.ID, Name: t.Name, Type: t.Type, VoltageLevel: t.VoltageLevel})
	}
	for _, t := range m.custom {
		out = append(out, types.TariffInfo{ID: t.ID, Name: t.Name, Type: t.Type, VoltageLevel: t.VoltageLevel, Custom: true})
	}
	slices.SortFunc(out, func(a, b types.TariffInfo) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
