package adapters

import (
	"context"
	stderrors "errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
)

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := NewExecRunner()

	t.Run("captures output", func(t *testing.T) {
		out, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}})
		require.NoError(t, err)
		assert.Equal(t, "out\n", string(out.Stdout))
		assert.Equal(t, "err\n", string(out.Stderr))
		assert.Zero(t, out.ExitCode)
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		out, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
		require.NoError(t, err)
		assert.Equal(t, 3, out.ExitCode)
	})

	t.Run("environment is passed", func(t *testing.T) {
		out, err := r.Run(context.Background(), Command{
			Name: "sh",
			Args: []string{"-c", "printf %s \"$BROWSERSLIST\""},
			Env:  []string{"BROWSERSLIST=last 2 versions"},
		})
		require.NoError(t, err)
		assert.Equal(t, "last 2 versions", string(out.Stdout))
	})

	t.Run("missing tool", func(t *testing.T) {
		_, err := r.Run(context.Background(), Command{Name: "wpforge-no-such-tool"})
		require.Error(t, err)
		var fe *forgeerrors.ForgeError
		require.True(t, stderrors.As(err, &fe))
		assert.Equal(t, forgeerrors.ErrCodeToolNotFound, fe.Code)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
		require.Error(t, err)
	})
}

func TestToolCommand(t *testing.T) {
	tl := newTool(config.ToolConfig{Command: "npx", Args: []string{"postcss"}})
	cmd := tl.cmdline("/project", "style.css", "--replace")

	assert.Equal(t, "npx", cmd.Name)
	assert.Equal(t, []string{"postcss", "style.css", "--replace"}, cmd.Args)
	assert.Equal(t, "/project", cmd.Dir)
	assert.Equal(t, "npx postcss style.css --replace", cmd.String())
}
