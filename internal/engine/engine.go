// Package engine deploys the resources declared in a bundle's build
// meta and removes them again from a recorded deployment. Resources
// are grouped by kind and processed kind by kind, each kind fanned out
// over a bounded worker pool; inside one resource, provisioning is a
// strict sequence of provider calls and settle waits.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/picklr-io/relish/internal/meta"
)

// Worker caps per kind. Function deployment fans out triggers and
// permissions, so it runs narrower than the plain kinds.
const (
	functionWorkers = 3
	defaultWorkers  = 5
)

// Waits are the fixed settle delays between a provider mutation and
// the read or follow-up mutation that depends on it. The provider
// offers no read-your-writes guarantee, so each wait is a single flat
// delay; nothing re-checks afterwards.
type Waits struct {
	PostCreate        time.Duration
	StreamDeletion    time.Duration
	StreamActivation  time.Duration
	PolicyPropagation time.Duration
	APIRemoval        time.Duration
}

// DefaultWaits returns the settle delays used against the real
// provider.
func DefaultWaits() Waits {
	return Waits{
		PostCreate:        10 * time.Second,
		StreamDeletion:    120 * time.Second,
		StreamActivation:  120 * time.Second,
		PolicyPropagation: 10 * time.Second,
		APIRemoval:        60 * time.Second,
	}
}

// Config scopes an engine to one account, region and deploy bucket.
type Config struct {
	Region       string
	AccountID    string
	DeployBucket string
	Waits        Waits
	Retry        *RetryPolicy
}

// Engine turns resource descriptors into live resources plus a
// deployment record, and removes recorded resources again. All cloud
// access goes through the injected clients.
type Engine struct {
	clients Clients
	cfg     Config
	binders map[meta.TriggerType]binderFunc
	kinds   []kindHandler
}

// kindHandler binds one resource kind to its provisioner, its remover
// and its worker caps.
type kindHandler struct {
	kind          meta.ResourceKind
	create        func(ctx context.Context, d meta.ResourceDescriptor) (meta.DeploymentRecord, error)
	remove        func(ctx context.Context, id meta.ResourceID, obj meta.DescriptionObject) error
	workers       int
	removeWorkers int
}

// New constructs an engine. Deploy order follows the kinds slice: the
// sources functions consume come first, functions next, the API layer
// on top of them last. Clean walks the same slice in reverse.
func New(clients Clients, cfg Config) *Engine {
	e := &Engine{clients: clients, cfg: cfg}
	e.binders = map[meta.TriggerType]binderFunc{
		meta.TriggerDynamoDB: e.bindDynamoDB,
		meta.TriggerSchedule: e.bindSchedule,
		meta.TriggerS3:       e.bindS3,
		meta.TriggerSNS:      e.bindSNS,
		meta.TriggerKinesis:  e.bindKinesis,
		meta.TriggerSQS:      e.bindSQS,
	}
	e.kinds = []kindHandler{
		{
			kind:          meta.KindKinesisStream,
			create:        e.reconcileStream,
			remove:        e.removeStream,
			workers:       defaultWorkers,
			removeWorkers: defaultWorkers,
		},
		{
			kind:          meta.KindScheduleRule,
			create:        e.reconcileRule,
			remove:        e.removeRule,
			workers:       defaultWorkers,
			removeWorkers: defaultWorkers,
		},
		{
			kind:          meta.KindLambda,
			create:        e.reconcileFunction,
			remove:        e.removeFunction,
			workers:       functionWorkers,
			removeWorkers: defaultWorkers,
		},
		{
			// API deletions share a coarse provider rate limit, so
			// removal is sequential.
			kind:          meta.KindRestAPI,
			create:        e.reconcileRestAPI,
			remove:        e.removeRestAPI,
			workers:       defaultWorkers,
			removeWorkers: 1,
		},
	}
	return e
}

// Deploy provisions every descriptor and returns the merged deployment
// record. Failures are collected per resource; one resource failing
// never stops the others, and the returned record always reflects what
// actually deployed, even when err is non-nil.
func (e *Engine) Deploy(ctx context.Context, descriptors []meta.ResourceDescriptor) (meta.DeploymentRecord, error) {
	var errs []error
	grouped := make(map[meta.ResourceKind][]meta.ResourceDescriptor)
	for _, d := range descriptors {
		if !e.knownKind(d.Kind) {
			errs = append(errs, fmt.Errorf("resource %s: %w %q", d.Name, ErrUnknownKind, d.Kind))
			continue
		}
		grouped[d.Kind] = append(grouped[d.Kind], d)
	}

	record := meta.DeploymentRecord{}
	for _, h := range e.kinds {
		batch := grouped[h.kind]
		if len(batch) == 0 {
			continue
		}
		tasks := make([]poolTask, len(batch))
		for i, d := range batch {
			tasks[i] = poolTask{
				name: d.Name,
				run: func(ctx context.Context) (meta.DeploymentRecord, error) {
					return h.create(ctx, d)
				},
			}
		}
		partial, taskErrs := e.runPool(ctx, h.workers, tasks)
		for _, err := range taskErrs {
			if err != nil {
				errs = append(errs, err)
			}
		}
		if err := record.Merge(partial); err != nil {
			errs = append(errs, err)
		}
	}
	return record, errors.Join(errs...)
}

// Clean removes every recorded resource, walking kinds in reverse
// deploy order. Resources already gone count as removed. The returned
// record holds the entries that could not be removed, so the caller
// can persist the remainder.
func (e *Engine) Clean(ctx context.Context, record meta.DeploymentRecord) (meta.DeploymentRecord, error) {
	type entry struct {
		id  meta.ResourceID
		obj meta.DescriptionObject
	}

	var errs []error
	remaining := meta.DeploymentRecord{}
	grouped := make(map[meta.ResourceKind][]entry)
	for id, obj := range record {
		kind := obj.Kind()
		if !e.knownKind(kind) {
			errs = append(errs, fmt.Errorf("resource %s: %w %q", obj.ResourceName, ErrUnknownKind, kind))
			remaining[id] = obj
			continue
		}
		grouped[kind] = append(grouped[kind], entry{id: id, obj: obj})
	}

	for i := len(e.kinds) - 1; i >= 0; i-- {
		h := e.kinds[i]
		batch := grouped[h.kind]
		if len(batch) == 0 {
			continue
		}
		sort.Slice(batch, func(a, b int) bool {
			return batch[a].obj.ResourceName < batch[b].obj.ResourceName
		})
		tasks := make([]poolTask, len(batch))
		for j, en := range batch {
			tasks[j] = poolTask{
				name: en.obj.ResourceName,
				run: func(ctx context.Context) (meta.DeploymentRecord, error) {
					return nil, h.remove(ctx, en.id, en.obj)
				},
			}
		}
		_, taskErrs := e.runPool(ctx, h.removeWorkers, tasks)
		for j, err := range taskErrs {
			if err != nil {
				errs = append(errs, err)
				remaining[batch[j].id] = batch[j].obj
			}
		}
	}
	return remaining, errors.Join(errs...)
}

func (e *Engine) knownKind(kind meta.ResourceKind) bool {
	for _, h := range e.kinds {
		if h.kind == kind {
			return true
		}
	}
	return false
}

// sleep waits out one settle delay, returning early only when the
// context is cancelled.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
