package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
	"github.com/sethstha/wpforge/internal/logging"
)

// State is the controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateWatching
	StateDispatching
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateDispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

// Binding maps a set of globs to the task run when a matching file changes.
type Binding struct {
	Name  string
	Globs []string
	Task  string
}

// Dispatcher runs a named task.
type Dispatcher interface {
	Run(ctx context.Context, task string) error
}

// ErrorHandler reports a failed dispatch.
type ErrorHandler interface {
	Handle(ctx context.Context, err error)
}

type boundTask struct {
	Binding
	rules   []glob.Rule
	trigger chan struct{}
}

// Controller dispatches tasks for changed files. Each binding has one
// dispatch loop, so runs of the same binding never overlap; changes that
// arrive while a run is in flight collapse into a single follow-up run.
type Controller struct {
	root       string
	debounce   time.Duration
	bindings   []*boundTask
	dispatcher Dispatcher
	errors     ErrorHandler
	logger     logging.Logger

	mutex    sync.Mutex
	state    State
	inFlight int
}

// NewController validates the bindings' globs and creates an idle
// controller.
func NewController(root string, debounce time.Duration, bindings []Binding, dispatcher Dispatcher, errs ErrorHandler, logger logging.Logger) (*Controller, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	bound := make([]*boundTask, 0, len(bindings))
	for _, b := range bindings {
		rules, err := glob.Parse(b.Globs)
		if err != nil {
			return nil, forgeerrors.Wrap(err, forgeerrors.ErrorTypeConfig, forgeerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("watch binding %q", b.Name))
		}
		bound = append(bound, &boundTask{
			Binding: b,
			rules:   rules,
			trigger: make(chan struct{}, 1),
		})
	}

	return &Controller{
		root:       root,
		debounce:   debounce,
		bindings:   bound,
		dispatcher: dispatcher,
		errors:     errs,
		logger:     logger.WithComponent("watch"),
	}, nil
}

// State reports the current state.
func (c *Controller) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

// Watch watches the project tree and dispatches until ctx is done.
func (c *Controller) Watch(ctx context.Context) error {
	fw, err := NewFileWatcher(c.root, c.debounce, c.logger)
	if err != nil {
		return forgeerrors.NewIOError(forgeerrors.ErrCodeReadFailed, "starting file watcher", err)
	}
	defer fw.Stop()

	if err := fw.AddRecursive(""); err != nil {
		return forgeerrors.WrapIO(err, forgeerrors.ErrCodeReadFailed, c.root)
	}
	fw.AddHandler(func(events []ChangeEvent) error {
		c.Notify(events)
		return nil
	})

	// Every early return cancels whatever was already started.
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := fw.Start(watchCtx); err != nil {
		return err
	}
	wait, err := c.Start(watchCtx)
	if err != nil {
		return err
	}

	c.logger.Info(ctx, "Watching for changes", "root", c.root, "bindings", len(c.bindings))
	<-watchCtx.Done()
	wait()
	return nil
}

// Start moves the controller from Idle to Watching and launches one
// dispatch loop per binding. The returned function blocks until every loop
// has exited after ctx is done.
func (c *Controller) Start(ctx context.Context) (func(), error) {
	c.mutex.Lock()
	if c.state != StateIdle {
		c.mutex.Unlock()
		return nil, forgeerrors.NewInternalError(forgeerrors.ErrCodeInternalError, "watcher is already running", nil)
	}
	c.state = StateWatching
	c.mutex.Unlock()

	var wg sync.WaitGroup
	for _, b := range c.bindings {
		wg.Add(1)
		go func(b *boundTask) {
			defer wg.Done()
			c.loop(ctx, b)
		}(b)
	}

	return func() {
		wg.Wait()
		c.mutex.Lock()
		c.state = StateIdle
		c.mutex.Unlock()
	}, nil
}

// Notify triggers every binding that matches at least one changed path.
func (c *Controller) Notify(events []ChangeEvent) {
	for _, b := range c.bindings {
		for _, e := range events {
			if !glob.Match(b.rules, e.Path) {
				continue
			}
			select {
			case b.trigger <- struct{}{}:
			default:
				// A run is already pending for this binding.
			}
			break
		}
	}
}

func (c *Controller) loop(ctx context.Context, b *boundTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.trigger:
			c.dispatch(ctx, b)
		}
	}
}

func (c *Controller) dispatch(ctx context.Context, b *boundTask) {
	c.mutex.Lock()
	c.inFlight++
	c.state = StateDispatching
	c.mutex.Unlock()

	defer func() {
		c.mutex.Lock()
		c.inFlight--
		if c.inFlight == 0 && c.state == StateDispatching {
			c.state = StateWatching
		}
		c.mutex.Unlock()
	}()

	c.logger.Info(ctx, "Change detected", "binding", b.Name, "task", b.Task)
	if err := c.dispatcher.Run(ctx, b.Task); err != nil && ctx.Err() == nil {
		if c.errors != nil {
			c.errors.Handle(ctx, err)
		} else {
			c.logger.Error(ctx, err, "Task failed", "task", b.Task)
		}
	}
}
