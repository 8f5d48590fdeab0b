// Package notify surfaces task outcomes to the developer: on the console
// and, while the dev server runs, in connected browsers.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	forgeerrors "github.com/sethstha/wpforge/internal/errors"
)

// ErrorNotifier receives failures.
type ErrorNotifier interface {
	NotifyError(ctx context.Context, title string, err error)
}

// Notifier receives both successes and failures.
type Notifier interface {
	ErrorNotifier
	Notify(ctx context.Context, title, message string)
}

var (
	titlePrinter   = color.New(color.Bold)
	successPrinter = color.New(color.FgGreen, color.Bold)
	errorPrinter   = color.New(color.FgRed, color.Bold)
	detailPrinter  = color.New(color.Faint)
)

// Console writes notifications to a terminal.
type Console struct {
	w     io.Writer
	mutex sync.Mutex
}

// NewConsole creates a console notifier writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Notify prints a success banner.
func (c *Console) Notify(_ context.Context, title, message string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	successPrinter.Fprint(c.w, "✔ ")
	titlePrinter.Fprint(c.w, title)
	if message != "" {
		fmt.Fprintf(c.w, ": %s", message)
	}
	fmt.Fprintln(c.w)
}

// NotifyError prints a failure banner followed by every lint report the
// error carries.
func (c *Console) NotifyError(_ context.Context, title string, err error) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	errorPrinter.Fprint(c.w, "✖ ")
	titlePrinter.Fprint(c.w, title)
	fmt.Fprintf(c.w, ": %v\n", err)

	for _, le := range forgeerrors.LintErrors(err) {
		for _, line := range strings.Split(strings.TrimRight(le.Report(), "\n"), "\n") {
			detailPrinter.Fprintf(c.w, "  %s\n", line)
		}
	}
}

// Multi fans notifications out to several sinks. Sinks that only accept
// errors are skipped for successes.
type Multi struct {
	sinks []ErrorNotifier
}

// NewMulti combines sinks, ignoring nil entries.
func NewMulti(sinks ...ErrorNotifier) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Add appends a sink.
func (m *Multi) Add(s ErrorNotifier) {
	if s != nil {
		m.sinks = append(m.sinks, s)
	}
}

// Notify forwards to every sink implementing Notifier.
func (m *Multi) Notify(ctx context.Context, title, message string) {
	for _, s := range m.sinks {
		if n, ok := s.(Notifier); ok {
			n.Notify(ctx, title, message)
		}
	}
}

// NotifyError forwards to every sink.
func (m *Multi) NotifyError(ctx context.Context, title string, err error) {
	for _, s := range m.sinks {
		s.NotifyError(ctx, title, err)
	}
}
