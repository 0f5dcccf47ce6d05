package airports

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/pkg/logger"
)

// CachedDirectory keeps recent code lookups in memory in front of another
// Directory. Searches are not cached.
type CachedDirectory struct {
	next    Directory
	cache   *expirable.LRU[string, Airport]
	metrics *observability.Metrics
	logger  *logger.Logger
}

// NewCachedDirectory wraps next with an LRU of at most size entries, each
// valid for ttl
func NewCachedDirectory(next Directory, size int, ttl time.Duration, metrics *observability.Metrics, log *logger.Logger) *CachedDirectory {
	return &CachedDirectory{
		next:    next,
		cache:   expirable.NewLRU[string, Airport](size, nil, ttl),
		metrics: metrics,
		logger:  log.Named("airport-cache"),
	}
}

func (d *CachedDirectory) GetByCode(ctx context.Context, code string) (Airport, error) {
	key := NormalizeCode(code)
	if a, ok := d.cache.Get(key); ok {
		d.record("hit")
		return a, nil
	}
	d.record("miss")

	a, err := d.next.GetByCode(ctx, key)
	if err != nil {
		return Airport{}, err
	}
	d.cache.Add(key, a)
	d.logger.Debug("Cached airport lookup",
		logger.String("code", key),
		logger.String("ident", a.Ident))
	return a, nil
}

func (d *CachedDirectory) Search(ctx context.Context, query string, limit int) ([]Airport, error) {
	return d.next.Search(ctx, query, limit)
}

// Len returns the number of cached entries
func (d *CachedDirectory) Len() int {
	return d.cache.Len()
}

func (d *CachedDirectory) record(result string) {
	if d.metrics != nil {
		d.metrics.AirportCache.WithLabelValues(result).Inc()
	}
}
