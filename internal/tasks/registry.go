// Package tasks builds the named task graph: units that each run one adapter,
// and Series/Batch composites over earlier handles.
//
// Names are unique; registering a name twice is an error rather than a
// silent replacement. A series stops at the first failing step and hands
// each step's result to the next. A batch runs every step and reports all
// failures joined.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethstha/wpforge/internal/adapters"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/logging"
)

// Kind distinguishes units from composites.
type Kind int

const (
	KindUnit Kind = iota
	KindSeries
	KindBatch
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "task"
	case KindSeries:
		return "series"
	case KindBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// Source resolves an invocation when its task runs, so globs that must be
// expanded at call time see the current tree.
type Source func() (adapters.Invocation, error)

// Static returns a Source for a fixed invocation.
func Static(inv adapters.Invocation) Source {
	return func() (adapters.Invocation, error) { return inv, nil }
}

// Handle refers to a registered task.
type Handle struct {
	name string
}

// Name returns the task name.
func (h Handle) Name() string { return h.name }

// Notifier receives the notification carried by a Signal result.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// Info describes a registered task.
type Info struct {
	Name        string   `json:"name" yaml:"name"`
	Kind        string   `json:"kind" yaml:"kind"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []string `json:"steps,omitempty" yaml:"steps,omitempty"`
}

type task struct {
	name        string
	kind        Kind
	description string
	adapter     adapters.Adapter
	source      Source
	steps       []string
}

// Registry holds the task graph.
type Registry struct {
	tasks    map[string]*task
	order    []string
	mutex    sync.RWMutex
	logger   logging.Logger
	notifier Notifier
}

// NewRegistry creates an empty registry. notifier may be nil.
func NewRegistry(logger logging.Logger, notifier Notifier) *Registry {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Registry{
		tasks:    make(map[string]*task),
		logger:   logger.WithComponent("tasks"),
		notifier: notifier,
	}
}

// Define registers a unit task that runs adapter with the invocation from
// source.
func (r *Registry) Define(name, description string, adapter adapters.Adapter, source Source) (Handle, error) {
	if adapter == nil || source == nil {
		return Handle{}, forgeerrors.NewInternalError(forgeerrors.ErrCodeInternalError,
			fmt.Sprintf("task %q needs an adapter and an invocation", name), nil)
	}
	return r.add(&task{
		name:        name,
		kind:        KindUnit,
		description: description,
		adapter:     adapter,
		source:      source,
	})
}

// Series registers a composite that runs steps in order and stops at the
// first failure.
func (r *Registry) Series(name, description string, steps ...Handle) (Handle, error) {
	return r.composite(name, description, KindSeries, steps)
}

// Batch registers a composite that runs every step in order and reports all
// failures.
func (r *Registry) Batch(name, description string, steps ...Handle) (Handle, error) {
	return r.composite(name, description, KindBatch, steps)
}

func (r *Registry) composite(name, description string, kind Kind, steps []Handle) (Handle, error) {
	if len(steps) == 0 {
		return Handle{}, forgeerrors.NewInternalError(forgeerrors.ErrCodeInternalError,
			fmt.Sprintf("%s %q has no steps", kind, name), nil)
	}

	names := make([]string, 0, len(steps))
	seen := make(map[string]bool, len(steps))
	r.mutex.RLock()
	for _, h := range steps {
		if _, ok := r.tasks[h.name]; !ok {
			r.mutex.RUnlock()
			return Handle{}, forgeerrors.NewUnknownTaskError(h.name)
		}
		if seen[h.name] {
			r.mutex.RUnlock()
			return Handle{}, forgeerrors.NewInternalError(forgeerrors.ErrCodeInternalError,
				fmt.Sprintf("%s %q lists %q twice", kind, name, h.name), nil)
		}
		seen[h.name] = true
		names = append(names, h.name)
	}
	r.mutex.RUnlock()

	return r.add(&task{name: name, kind: kind, description: description, steps: names})
}

func (r *Registry) add(t *task) (Handle, error) {
	if t.name == "" {
		return Handle{}, forgeerrors.NewInternalError(forgeerrors.ErrCodeInternalError, "task name is empty", nil)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.tasks[t.name]; exists {
		return Handle{}, forgeerrors.NewDuplicateTaskError(t.name)
	}
	r.tasks[t.name] = t
	r.order = append(r.order, t.name)
	return Handle{name: t.name}, nil
}

// Lookup returns the handle of a registered task.
func (r *Registry) Lookup(name string) (Handle, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, ok := r.tasks[name]
	return Handle{name: name}, ok
}

// Tasks lists every task in registration order.
func (r *Registry) Tasks() []Info {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		t := r.tasks[name]
		out = append(out, Info{
			Name:        t.name,
			Kind:        t.kind.String(),
			Description: t.description,
			Steps:       append([]string(nil), t.steps...),
		})
	}
	return out
}

// Run executes the named task and returns the first failure of a series or
// the joined failures of a batch.
func (r *Registry) Run(ctx context.Context, name string) error {
	_, err := r.run(ctx, name, adapters.Result{})
	return err
}

func (r *Registry) run(ctx context.Context, name string, input adapters.Result) (adapters.Result, error) {
	r.mutex.RLock()
	t, ok := r.tasks[name]
	r.mutex.RUnlock()
	if !ok {
		return adapters.Result{}, forgeerrors.NewUnknownTaskError(name)
	}
	if err := ctx.Err(); err != nil {
		return adapters.Result{}, err
	}

	switch t.kind {
	case KindSeries:
		prev := input
		for _, step := range t.steps {
			res, err := r.run(ctx, step, prev)
			if err != nil {
				return adapters.Result{}, err
			}
			prev = res
		}
		return prev, nil

	case KindBatch:
		var errs []error
		var last adapters.Result
		for _, step := range t.steps {
			res, err := r.run(ctx, step, input)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			last = res
		}
		if len(errs) > 0 {
			return adapters.Result{}, errors.Join(errs...)
		}
		return last, nil

	default:
		return r.runUnit(ctx, t, input)
	}
}

func (r *Registry) runUnit(ctx context.Context, t *task, input adapters.Result) (adapters.Result, error) {
	inv, err := t.source()
	if err != nil {
		return adapters.Result{}, forgeerrors.WrapTask(err, t.name)
	}
	inv.Input = input

	start := time.Now()
	r.logger.Debug(ctx, "Starting task", "task", t.name, "adapter", t.adapter.Name())

	res, err := t.adapter.Run(ctx, inv)
	if err != nil {
		r.logger.Debug(ctx, "Task failed", "task", t.name, "duration", time.Since(start), "error", err)
		return adapters.Result{}, forgeerrors.WrapTask(err, t.name)
	}

	r.logger.Info(ctx, "Finished task",
		"task", t.name,
		"duration", time.Since(start),
		"files", len(res.Files),
		"message", res.Message)

	if res.Kind == adapters.KindSignal && res.Title != "" && r.notifier != nil {
		r.notifier.Notify(ctx, res.Title, res.Message)
	}
	return res, nil
}
