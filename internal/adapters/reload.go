package adapters

import "context"

// Reloader is the browser side of the dev server.
type Reloader interface {
	// Reload asks every connected browser to reload the page.
	Reload(ctx context.Context)
	// Stream pushes changed stylesheets to connected browsers so they are
	// swapped in without a full reload.
	Stream(ctx context.Context, files []string)
}

// NewReload returns the adapter that triggers a full page reload.
func NewReload(r Reloader) Adapter {
	return Func{
		ID: "reload",
		Fn: func(ctx context.Context, _ Invocation) (Result, error) {
			r.Reload(ctx)
			return Result{Kind: KindSignal, Message: "browser reloaded"}, nil
		},
	}
}

// NewStream returns the adapter that injects the previous stage's
// stylesheets. With no stylesheet input it falls back to a reload.
func NewStream(r Reloader) Adapter {
	return Func{
		ID: "stream",
		Fn: func(ctx context.Context, inv Invocation) (Result, error) {
			files := inv.Input.Files
			if len(files) == 0 {
				files = inv.Files
			}
			if len(files) == 0 {
				r.Reload(ctx)
				return Result{Kind: KindSignal, Message: "browser reloaded"}, nil
			}
			r.Stream(ctx, files)
			return Result{Kind: KindStream, Files: files}, nil
		},
	}
}

// streaming pushes a Stream result to the browser once the wrapped adapter
// has written it.
type streaming struct {
	Adapter
	r Reloader
}

// WithStream wraps an adapter so its stylesheet output is injected into
// connected browsers.
func WithStream(a Adapter, r Reloader) Adapter {
	return streaming{Adapter: a, r: r}
}

// Run runs the wrapped adapter and streams its files on success.
func (s streaming) Run(ctx context.Context, inv Invocation) (Result, error) {
	res, err := s.Adapter.Run(ctx, inv)
	if err != nil {
		return res, err
	}
	if res.Kind == KindStream && len(res.Files) > 0 {
		s.r.Stream(ctx, res.Files)
	}
	return res, nil
}
