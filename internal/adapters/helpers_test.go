package adapters

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sethstha/wpforge/internal/logging"
)

// fakeRunner records every command and answers with respond, which may
// write the files a real tool would produce.
type fakeRunner struct {
	mu       sync.Mutex
	commands []Command
	respond  func(cmd Command) Output
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	if f.respond == nil {
		return Output{}, nil
	}
	return f.respond(cmd), nil
}

func (f *fakeRunner) calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.commands...)
}

type fakeReloader struct {
	reloads  int
	streamed [][]string
}

func (r *fakeReloader) Reload(context.Context) { r.reloads++ }

func (r *fakeReloader) Stream(_ context.Context, files []string) {
	r.streamed = append(r.streamed, files)
}

// newTestEnv roots an Env at a fresh temporary directory.
func newTestEnv(t *testing.T, runner Runner) Env {
	t.Helper()
	root := t.TempDir()
	return Env{
		Root:   root,
		FS:     afero.NewBasePathFs(afero.NewOsFs(), root),
		Runner: runner,
		Logger: logging.NewNopLogger(),
	}
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	return string(data)
}
