// Package load resolves the hourly consumption of each tenant from the best
// available data source and aggregates it for a property.
package load

import (
	"fmt"

	"github.com/solarroi/solarroi/pkg/types"
)

// Source is where a tenant's load comes from. It is one of StackedSource,
// MeterSource or ShopTypeSource.
type Source interface {
	Kind() types.LoadSourceKind
	source()
}

// StackedSource averages several meters, e.g. tenants sharing one physical meter.
type StackedSource struct {
	Profile types.StackedProfile
	Meters  []types.MeterImport
}

// MeterSource is a single directly assigned meter.
type MeterSource struct {
	Meter types.MeterImport
}

// ShopTypeSource estimates load from a shop-type template and the tenant's area.
type ShopTypeSource struct {
	Template types.ShopTypeTemplate
}

func (StackedSource) Kind() types.LoadSourceKind  { return types.LoadSourceStacked }
func (MeterSource) Kind() types.LoadSourceKind    { return types.LoadSourceMeter }
func (ShopTypeSource) Kind() types.LoadSourceKind { return types.LoadSourceShopType }

func (StackedSource) source()  {}
func (MeterSource) source()    {}
func (ShopTypeSource) source() {}

// Catalog holds the project's meter data and the shared shop-type templates
// keyed by id.
type Catalog struct {
	MeterImports    map[string]types.MeterImport
	StackedProfiles map[string]types.StackedProfile
	ShopTypes       map[string]types.ShopTypeTemplate
}

// NewCatalog indexes the given records by id.
func NewCatalog(imports []types.MeterImport, stacked []types.StackedProfile, shopTypes []types.ShopTypeTemplate) *Catalog {
	c := &Catalog{
		MeterImports:    make(map[string]types.MeterImport, len(imports)),
		StackedProfiles: make(map[string]types.StackedProfile, len(stacked)),
		ShopTypes:       make(map[string]types.ShopTypeTemplate, len(shopTypes)),
	}
	for _, m := range imports {
		c.MeterImports[m.ID] = m
	}
	for _, s := range stacked {
		c.StackedProfiles[s.ID] = s
	}
	for _, s := range shopTypes {
		c.ShopTypes[s.ID] = s
	}
	return c
}

// SelectSource returns the candidate sources for a tenant in priority order:
// stacked meters (2 or more), a single meter, then the shop-type template.
// Dangling references are reported as warnings. Area requirements are not
// checked here since a later source may still be usable.
func SelectSource(t types.Tenant, c *Catalog) ([]Source, []string) {
	var (
		sources  []Source
		warnings []string
	)
	if c == nil {
		c = &Catalog{}
	}

	if t.StackedProfileID != "" {
		sp, ok := c.StackedProfiles[t.StackedProfileID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("stacked profile %s not found", t.StackedProfileID))
		} else {
			var meters []types.MeterImport
			for _, id := range sp.MeterImportIDs {
				m, ok := c.MeterImports[id]
				if !ok {
					warnings = append(warnings, fmt.Sprintf("stacked profile %s references missing meter import %s", sp.ID, id))
					continue
				}
				meters = append(meters, m)
			}
			switch {
			case len(meters) >= 2:
				sources = append(sources, StackedSource{Profile: sp, Meters: meters})
			case len(meters) == 1 && t.MeterImportID == "":
				// a stack of one is just that meter
				sources = append(sources, MeterSource{Meter: meters[0]})
			}
		}
	}

	if t.MeterImportID != "" {
		m, ok := c.MeterImports[t.MeterImportID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("meter import %s not found", t.MeterImportID))
		} else {
			sources = append(sources, MeterSource{Meter: m})
		}
	}

	if t.ShopTypeID != "" {
		st, ok := c.ShopTypes[t.ShopTypeID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("shop type %s not found", t.ShopTypeID))
		} else {
			sources = append(sources, ShopTypeSource{Template: st})
		}
	}

	return sources, warnings
}
