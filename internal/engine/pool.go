package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/picklr-io/relish/internal/logging"
	"github.com/picklr-io/relish/internal/meta"
)

// poolTask is one unit of work for runPool: a resource name for
// logging plus the closure doing the provisioning or removal.
type poolTask struct {
	name string
	run  func(ctx context.Context) (meta.DeploymentRecord, error)
}

// runPool fans tasks out over at most workers goroutines and waits for
// all of them. A failing task never cancels its siblings; its error is
// captured in the slot-aligned error slice and the survivors' records
// are merged and returned regardless.
func (e *Engine) runPool(ctx context.Context, workers int, tasks []poolTask) (meta.DeploymentRecord, []error) {
	if workers < 1 {
		workers = 1
	}
	records := make([]meta.DeploymentRecord, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, t := range tasks {
		g.Go(func() error {
			rec, err := t.run(ctx)
			if err != nil {
				logging.Error("task failed", "resource", t.name, "error", err)
				errs[i] = err
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	// Task failures land in errs; the group itself never errors.
	_ = g.Wait()

	merged := meta.DeploymentRecord{}
	for i, rec := range records {
		if rec == nil {
			continue
		}
		if err := merged.Merge(rec); err != nil {
			errs[i] = err
		}
	}
	return merged, errs
}
