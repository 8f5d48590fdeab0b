package adapters

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
)

const eslintReport = `[
  {"filePath": "assets/js/navigation-custom.js", "messages": [
    {"ruleId": "no-unused-vars", "severity": 2, "message": "'x' is defined but never used.", "line": 4, "column": 7},
    {"ruleId": "eqeqeq", "severity": 1, "message": "Expected '==='.", "line": 2, "column": 9}
  ]},
  {"filePath": "assets/js/app-custom.js", "messages": [
    {"ruleId": "no-undef", "severity": 2, "message": "'jQuery' is not defined.", "line": 1, "column": 1}
  ]}
]`

const phpcsReport = `{
  "totals": {"errors": 1, "warnings": 1},
  "files": {
    "functions.php": {"errors": 1, "warnings": 1, "messages": [
      {"message": "Missing doc comment", "source": "Squiz.Commenting.FunctionComment.Missing", "severity": 5, "type": "ERROR", "line": 12, "column": 1},
      {"message": "Line exceeds 100 characters", "source": "Generic.Files.LineLength.TooLong", "severity": 5, "type": "WARNING", "line": 40, "column": 101}
    ]}
  }
}`

func lintEnv(t *testing.T, runner *fakeRunner) Env {
	env := newTestEnv(t, runner)
	writeFiles(t, env.FS, map[string]string{
		"assets/js/navigation-custom.js": "var x = 1;",
		"assets/js/app-custom.js":        "jQuery();",
		"assets/js/app.min.js":           "",
		"functions.php":                  "<?php",
	})
	return env
}

func TestScriptLinterAggregatesViolations(t *testing.T) {
	runner := &fakeRunner{respond: func(Command) Output {
		return Output{Stdout: []byte(eslintReport), ExitCode: 1}
	}}
	env := lintEnv(t, runner)

	linter := NewScriptLinter(env, config.ToolConfig{Command: "npx", Args: []string{"eslint"}}, config.LintConfig{})
	_, err := linter.Run(context.Background(), Invocation{
		Sources: []string{"./assets/js/*-custom.js", "!./assets/js/*.min.js"},
	})
	require.Error(t, err)
	assert.True(t, forgeerrors.IsLintError(err))

	var lintErr *forgeerrors.LintError
	require.True(t, stderrors.As(err, &lintErr))
	assert.Equal(t, "eslint", lintErr.Tool)
	require.Len(t, lintErr.Violations, 2, "warnings are below the eslint threshold")
	assert.Equal(t, "assets/js/app-custom.js", lintErr.Violations[0].File)
	assert.Equal(t, "no-unused-vars", lintErr.Violations[1].Rule)
	assert.Equal(t, 4, lintErr.Violations[1].Line)

	calls := runner.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"eslint", "--format", "json", "assets/js/app-custom.js", "assets/js/navigation-custom.js"}, calls[0].Args)
}

func TestPHPLinterWarningSeverity(t *testing.T) {
	tests := []struct {
		name     string
		severity int
		want     int
	}{
		{"warnings ignored at zero", 0, 1},
		{"warnings reported", 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{respond: func(Command) Output {
				return Output{Stdout: []byte(phpcsReport), ExitCode: 2}
			}}
			env := lintEnv(t, runner)

			linter := NewPHPLinter(env, config.ToolConfig{Command: "vendor/bin/phpcs"},
				config.LintConfig{PHPStandard: "phpcs.xml", PHPWarningSeverity: tt.severity})
			_, err := linter.Run(context.Background(), Invocation{Sources: []string{"./*.php"}})

			var lintErr *forgeerrors.LintError
			require.True(t, stderrors.As(err, &lintErr))
			assert.Len(t, lintErr.Violations, tt.want)
			assert.Contains(t, runner.calls()[0].Args, "--report=json")
		})
	}
}

func TestLinterCleanRun(t *testing.T) {
	runner := &fakeRunner{respond: func(Command) Output {
		return Output{Stdout: []byte(`[{"source": "assets/sass/style.scss", "warnings": []}]`)}
	}}
	env := newTestEnv(t, runner)
	writeFiles(t, env.FS, map[string]string{"assets/sass/style.scss": "a {}"})

	linter := NewStyleLinter(env, config.ToolConfig{Command: "npx", Args: []string{"stylelint"}}, config.LintConfig{})
	res, err := linter.Run(context.Background(), Invocation{Sources: []string{"assets/sass/**/*.scss"}})
	require.NoError(t, err)
	assert.Equal(t, KindSignal, res.Kind)
}

func TestLinterNoFiles(t *testing.T) {
	runner := &fakeRunner{}
	env := newTestEnv(t, runner)

	linter := NewStyleLinter(env, config.ToolConfig{Command: "stylelint"}, config.LintConfig{})
	res, err := linter.Run(context.Background(), Invocation{Sources: []string{"assets/sass/**/*.scss"}})
	require.NoError(t, err)
	assert.Equal(t, KindSignal, res.Kind)
	assert.Empty(t, runner.calls())
}

func TestLinterToolFailure(t *testing.T) {
	runner := &fakeRunner{respond: func(Command) Output {
		return Output{Stderr: []byte("Error: No ESLint configuration found"), ExitCode: 2}
	}}
	env := lintEnv(t, runner)

	linter := NewScriptLinter(env, config.ToolConfig{Command: "eslint"}, config.LintConfig{})
	_, err := linter.Run(context.Background(), Invocation{Sources: []string{"assets/js/*-custom.js"}})
	require.Error(t, err)
	assert.False(t, forgeerrors.IsLintError(err))

	var fe *forgeerrors.ForgeError
	require.True(t, stderrors.As(err, &fe))
	assert.Equal(t, forgeerrors.ErrCodeToolFailed, fe.Code)
	assert.Contains(t, fe.Error(), "No ESLint configuration found")
}
