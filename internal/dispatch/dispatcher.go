package dispatch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mapknit/geocache/internal/coalesce"
	"github.com/mapknit/geocache/internal/geoerr"
)

// Callback receives the outcome of one dispatched coalesce call. It is
// invoked exactly once: synchronously from Dispatch when the request
// fails validation, otherwise from the worker goroutine that ran the call.
type Callback func(contexts []coalesce.Context, err error)

// Dispatcher runs coalesce invocations on a bounded worker pool. The
// host control path stays single-threaded and cooperative: Dispatch
// returns immediately, and results arrive through callback.
type Dispatcher struct {
	logger *slog.Logger
	group  *errgroup.Group
}

// New returns a Dispatcher whose worker pool admits at most workers
// concurrent coalesce calls. ctx is not consulted after New returns:
// cancelling it does not stop Dispatch from admitting work, and Wait
// does not report it.
func New(ctx context.Context, workers int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	return &Dispatcher{logger: logger, group: g}
}

// Dispatch validates req and schedules its coalesce call on a worker.
// Validation failures are reported synchronously as an InvalidInput
// error, before any worker activity; req.Pins are released in either
// case, exactly once, only after callback has run.
func (d *Dispatcher) Dispatch(req Request, callback Callback) {
	subqs, err := req.toSubqueries()
	if err != nil {
		callback(nil, err)
		releaseAll(req.Pins)
		return
	}

	d.group.Go(func() error {
		defer releaseAll(req.Pins)

		radius := req.Radius
		if radius <= 0 {
			radius = 40
		}

		contexts, err := coalesce.Coalesce(subqs, req.Proximity, req.BBox, radius)
		if err != nil {
			err = geoerr.Internal("coalesce failed", err)
		}
		d.logger.Debug("dispatch complete",
			"subqueries", len(subqs),
			"contexts", len(contexts),
			"error", err,
		)
		callback(contexts, err)
		return nil
	})
}

// Wait blocks until every dispatched call has returned. It always
// returns nil; coalesce failures reach each call's callback instead.
func (d *Dispatcher) Wait() error {
	return d.group.Wait()
}

func releaseAll(pins []func()) {
	for _, release := range pins {
		if release != nil {
			release()
		}
	}
}
