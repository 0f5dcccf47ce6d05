package weather

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/turbulence"
)

const defaultConcurrency = 10

// sampleFunc resolves one waypoint. ok is false when the upstream had no data
// for it.
type sampleFunc func(ctx context.Context, wp geo.Waypoint) (s turbulence.TurbulenceSample, ok bool, err error)

type waypointResult struct {
	sample turbulence.TurbulenceSample
	ok     bool
	err    error
}

// sampleEach runs fn for every waypoint with at most limit calls in flight,
// each bounded by its own timeout. Failed waypoints are left out; an error is
// returned only when no waypoint produced a sample and at least one failed.
func sampleEach(ctx context.Context, provider string, waypoints []geo.Waypoint, limit int, timeout time.Duration, fn sampleFunc) ([]turbulence.TurbulenceSample, error) {
	if limit <= 0 {
		limit = defaultConcurrency
	}

	results := make([]waypointResult, len(waypoints))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, wp := range waypoints {
		if ctx.Err() != nil {
			results[i] = waypointResult{err: newProviderError(provider, classify(ctx, ctx.Err()), ctx.Err())}
			continue
		}
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			s, ok, err := fn(callCtx, wp)
			results[i] = waypointResult{sample: s, ok: ok, err: err}
			return nil
		})
	}
	_ = g.Wait()

	samples := make([]turbulence.TurbulenceSample, 0, len(waypoints))
	var errs []error
	for _, r := range results {
		switch {
		case r.err != nil:
			errs = append(errs, r.err)
		case r.ok:
			samples = append(samples, r.sample)
		}
	}

	if len(samples) == 0 && len(errs) > 0 {
		err := dominantError(errs)
		var pe *ProviderError
		if !errors.As(err, &pe) {
			err = newProviderError(provider, classify(ctx, err), err)
		}
		return nil, err
	}
	return samples, nil
}

// dominantError picks the error that best describes a batch where every
// waypoint failed: no coverage only if all agree, then timeouts, then the rest.
func dominantError(errs []error) error {
	allNoCoverage := true
	var timeout error
	for _, err := range errs {
		if !errors.Is(err, ErrNoCoverage) {
			allNoCoverage = false
		}
		if timeout == nil && errors.Is(err, ErrTimeout) {
			timeout = err
		}
	}
	switch {
	case allNoCoverage:
		return errs[0]
	case timeout != nil:
		return timeout
	}
	for _, err := range errs {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
	}
	return errs[0]
}
