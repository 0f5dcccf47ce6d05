package weather

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/pkg/logger"
)

// sampleCacheSize bounds the entries held per provider
const sampleCacheSize = 4096

// CachedProvider keeps recent samples of another provider in memory, keyed by
// position and flight level. Only waypoints missing from the cache are sent
// upstream, except for route-scoped providers which always see the whole
// route. Waypoints the provider had nothing for are not cached.
type CachedProvider struct {
	next       Provider
	wholeRoute bool
	cache      *expirable.LRU[string, turbulence.TurbulenceSample]
	metrics    *observability.Metrics
	logger     *logger.Logger
}

// routeScoped is implemented by providers whose sample at one waypoint
// depends on the other waypoints of the request
type routeScoped interface {
	routeScoped()
}

// NewCachedProvider wraps next with a sample cache whose entries live for ttl
func NewCachedProvider(next Provider, ttl time.Duration, metrics *observability.Metrics, log *logger.Logger) *CachedProvider {
	_, wholeRoute := next.(routeScoped)
	return &CachedProvider{
		next:       next,
		wholeRoute: wholeRoute,
		cache:      expirable.NewLRU[string, turbulence.TurbulenceSample](sampleCacheSize, nil, ttl),
		metrics:    metrics,
		logger:     log.Named("sample-cache").With(logger.String("provider", next.Name())),
	}
}

// Name returns the wrapped provider's name
func (c *CachedProvider) Name() string {
	return c.next.Name()
}

// FetchSamples answers from the cache where possible and asks the wrapped
// provider for the rest. Cached samples are returned even when the upstream
// call fails; the error is returned only when nothing could be answered.
func (c *CachedProvider) FetchSamples(ctx context.Context, waypoints []geo.Waypoint, flightLevelFt int, timeout time.Duration) ([]turbulence.TurbulenceSample, error) {
	scope := c.scope(waypoints)

	var samples []turbulence.TurbulenceSample
	missing := make(map[int]geo.Waypoint)
	for _, wp := range waypoints {
		cached, ok := c.cache.Get(scope + cacheKey(wp.Coordinate, flightLevelFt))
		if !ok {
			missing[wp.Index] = wp
			continue
		}
		s := turbulence.NewSample(wp, cached.Severity, cached.Probability, cached.SourceID, cached.HasRealObservation)
		s.ReportCount = cached.ReportCount
		samples = append(samples, s)
	}
	c.record("hit", len(samples))
	c.record("miss", len(missing))

	if len(missing) == 0 {
		return samples, nil
	}

	upstream := waypoints
	if !c.wholeRoute {
		upstream = make([]geo.Waypoint, 0, len(missing))
		for _, wp := range waypoints {
			if _, ok := missing[wp.Index]; ok {
				upstream = append(upstream, wp)
			}
		}
	}

	fetched, err := c.next.FetchSamples(ctx, upstream, flightLevelFt, timeout)
	if err != nil {
		if len(samples) == 0 {
			return nil, err
		}
		c.logger.Debug("Upstream failed, answering from cache only",
			logger.Int("cached", len(samples)),
			logger.Error(err))
		return samples, nil
	}

	// cached waypoints keep their cached sample
	for _, s := range fetched {
		wp, ok := missing[s.Waypoint.Index]
		if !ok {
			continue
		}
		c.cache.Add(scope+cacheKey(wp.Coordinate, flightLevelFt), s)
		samples = append(samples, s)
		delete(missing, s.Waypoint.Index)
	}
	return samples, nil
}

// scope prefixes keys of route-scoped providers with the route, so a sample is
// only reused for the same set of waypoints
func (c *CachedProvider) scope(waypoints []geo.Waypoint) string {
	if !c.wholeRoute || len(waypoints) == 0 {
		return ""
	}
	first := waypoints[0].Coordinate
	last := waypoints[len(waypoints)-1].Coordinate
	return fmt.Sprintf("%s>%s/%d|", cacheKey(first, 0), cacheKey(last, 0), len(waypoints))
}

// Len returns the number of cached samples
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

func (c *CachedProvider) record(result string, n int) {
	if c.metrics != nil && n > 0 {
		c.metrics.SampleCache.WithLabelValues(c.next.Name(), result).Add(float64(n))
	}
}

// cacheKey rounds positions to 0.01 degrees (about 1 km) and flight levels to
// 1000 ft
func cacheKey(c geo.Coordinate, flightLevelFt int) string {
	return fmt.Sprintf("%.2f,%.2f,%d", c.Lat, c.Lon, int(math.Round(float64(flightLevelFt)/1000)))
}
