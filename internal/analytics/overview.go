package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/usagelens/internal/filter"
)

// Overview runs the dashboard projections concurrently. The first failure
// cancels the others and is returned.
func (e *Engine) Overview(ctx context.Context, f filter.Filter) (o Overview, err error) {
	defer e.track(ctx, "overview", time.Now(), &err)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		o.Usage, err = e.Usage(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		o.Daily, err = e.DailyUsage(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		o.Distributions, err = e.Distributions(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		o.Heatmap, err = e.Heatmap(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		o.Performance, err = e.Performance(gctx, f)
		return err
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return o, nil
}
