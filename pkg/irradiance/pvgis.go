// Package irradiance fetches typical meteorological year irradiance for a site.
package irradiance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/solarroi/solarroi/pkg/common"
	"github.com/solarroi/solarroi/pkg/log"
	"github.com/solarroi/solarroi/pkg/types"
)

// Provider returns hourly irradiance for a location with index 0 at local
// midnight in loc. A nil loc uses the provider's default zone.
type Provider interface {
	TMY(ctx context.Context, lat, lon float64, loc *time.Location) (types.IrradianceSeries, error)
}

// Client fetches TMY data from the PVGIS API.
type Client struct {
	apiURL   string
	client   *http.Client
	cache    *Cache
	location *time.Location
}

// Configured registers the PVGIS flags and returns a client using them.
func Configured() *Client {
	c := &Client{
		client:   common.HTTPClient(30 * time.Second),
		cache:    NewCache(),
		location: time.UTC,
	}
	apiURL := lflag.String("pvgis-api-url", "https://re.jrc.ec.europa.eu/api/v5_2/tmy", "URL for the PVGIS TMY API")
	timezone := lflag.String("timezone", types.DefaultTimezone, "default timezone TMY series are aligned to when a request has none")

	lflag.Do(func() {
		c.apiURL = *apiURL
		if err := c.Validate(); err != nil {
			panic(fmt.Sprintf("pvgis validation failed: %v", err))
		}
		loc, err := time.LoadLocation(*timezone)
		if err != nil {
			panic(fmt.Sprintf("invalid timezone %q: %v", *timezone, err))
		}
		c.location = loc
	})
	return c
}

// NewClient returns a client for apiURL. loc is the default timezone the
// hourly series start in, PVGIS itself reports UTC.
func NewClient(apiURL string, client *http.Client, cache *Cache, loc *time.Location) *Client {
	if client == nil {
		client = common.HTTPClient(30 * time.Second)
	}
	if cache == nil {
		cache = NewCache()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		apiURL:   apiURL,
		client:   client,
		cache:    cache,
		location: loc,
	}
}

// Validate ensures the configuration is valid.
func (c *Client) Validate() error {
	if c.apiURL == "" {
		return fmt.Errorf("pvgis-api-url is required")
	}
	if _, err := url.Parse(c.apiURL); err != nil {
		return fmt.Errorf("failed to parse pvgis url (%s): %w", c.apiURL, err)
	}
	return nil
}

type tmyResponse struct {
	Inputs struct {
		Location struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"inputs"`
	Outputs struct {
		TMYHourly []tmyHour `json:"tmy_hourly"`
	} `json:"outputs"`
}

type tmyHour struct {
	Time string  `json:"time(UTC)"`
	GHI  float64 `json:"G(h)"`
	Temp float64 `json:"T2m"`
}

// TMY returns the hourly GHI and air temperature for the location aligned to
// loc. The UTC series is cached so one fetch serves every zone.
func (c *Client) TMY(ctx context.Context, lat, lon float64, loc *time.Location) (types.IrradianceSeries, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return types.IrradianceSeries{}, fmt.Errorf("invalid coordinates: %v, %v", lat, lon)
	}
	if loc == nil {
		loc = c.location
	}
	if series, ok := c.cache.Get(lat, lon); ok {
		log.Ctx(ctx).DebugContext(ctx, "using cached tmy", slog.Float64("lat", lat), slog.Float64("lon", lon))
		return inZone(series, loc), nil
	}
	series, err := c.fetch(ctx, lat, lon)
	if err != nil {
		return types.IrradianceSeries{}, err
	}
	c.cache.Put(lat, lon, series)
	return inZone(series, loc), nil
}

// inZone returns a copy of a UTC series rotated to start at local midnight.
func inZone(utc types.IrradianceSeries, loc *time.Location) types.IrradianceSeries {
	offset := utcOffsetHours(loc)
	out := utc
	out.HourlyGHIWm2 = ShiftHours(slices.Clone(utc.HourlyGHIWm2), offset)
	out.HourlyTempC = ShiftHours(slices.Clone(utc.HourlyTempC), offset)
	return out
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (types.IrradianceSeries, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return types.IrradianceSeries{}, fmt.Errorf("failed to parse pvgis url: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("outputformat", "json")
	u.RawQuery = q.Encode()

	var resp tmyResponse
	if err := common.GetJSON(ctx, c.client, u.String(), &resp); err != nil {
		return types.IrradianceSeries{}, fmt.Errorf("failed to fetch tmy: %w", err)
	}
	rows := resp.Outputs.TMYHourly
	if len(rows) != types.HoursPerYear {
		return types.IrradianceSeries{}, fmt.Errorf("tmy returned %d hours, expected %d", len(rows), types.HoursPerYear)
	}

	series := types.IrradianceSeries{
		Latitude:     lat,
		Longitude:    lon,
		HourlyGHIWm2: make([]float64, len(rows)),
		HourlyTempC:  make([]float64, len(rows)),
	}
	for i, r := range rows {
		series.HourlyGHIWm2[i] = math.Max(r.GHI, 0)
		series.HourlyTempC[i] = r.Temp
	}

	log.Ctx(ctx).InfoContext(ctx, "fetched tmy", slog.Float64("lat", lat), slog.Float64("lon", lon))
	return series, nil
}

// utcOffsetHours is the standard offset of loc in whole hours, taken in
// January of a recent year.
func utcOffsetHours(loc *time.Location) int {
	_, offset := time.Date(2023, time.January, 1, 0, 0, 0, 0, loc).Zone()
	return offset / 3600
}

// ShiftHours rotates a yearly series so index 0 is local midnight for a zone
// offset hours ahead of UTC. The hours shifted off the end wrap to the start.
func ShiftHours(series []float64, offset int) []float64 {
	n := len(series)
	if n == 0 || offset%n == 0 {
		return series
	}
	out := make([]float64, n)
	for i, v := range series {
		out[((i+offset)%n+n)%n] = v
	}
	return out
}

// Cache holds fetched UTC series for the life of the process. Locations are
// keyed to two decimal places, roughly one kilometre. There is no eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]types.IrradianceSeries
}

type cacheKey struct {
	lat, lon int64
}

func keyFor(lat, lon float64) cacheKey {
	return cacheKey{lat: int64(math.Round(lat * 100)), lon: int64(math.Round(lon * 100))}
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]types.IrradianceSeries)}
}

// Get returns the cached series for the location.
func (c *Cache) Get(lat, lon float64) (types.IrradianceSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[keyFor(lat, lon)]
	return s, ok
}

// Put stores the series for the location.
func (c *Cache) Put(lat, lon float64, s types.IrradianceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[keyFor(lat, lon)] = s
}

// Len returns the number of cached locations.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
