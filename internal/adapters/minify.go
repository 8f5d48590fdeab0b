package adapters

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"golang.org/x/sync/errgroup"

	"github.com/sethstha/wpforge/internal/config"
	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

const (
	mediaCSS = "text/css"
	mediaJS  = "application/javascript"
)

// Minifier minifies stylesheets or scripts in process and writes each result
// next to a ".min" name, leaving the original untouched.
type Minifier struct {
	env       Env
	mediaType string
	m         *minify.M
}

// NewCSSMinifier creates the stylesheet minifier.
func NewCSSMinifier(env Env) *Minifier {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	return &Minifier{env: env, mediaType: mediaCSS, m: m}
}

// NewJSMinifier creates the script minifier.
func NewJSMinifier(env Env) *Minifier {
	m := minify.New()
	m.AddFunc(mediaJS, js.Minify)
	return &Minifier{env: env, mediaType: mediaJS, m: m}
}

// Name returns the adapter name.
func (mn *Minifier) Name() string {
	if mn.mediaType == mediaCSS {
		return "minify-css"
	}
	return "minify-js"
}

// Run minifies each matched file. Inputs that already carry ".min." in their
// name are skipped so the output of a previous run is never minified again.
func (mn *Minifier) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := mn.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}

	var written []string
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if IsMinified(src) {
			continue
		}

		out := MinName(src, inv.Dest)
		if out == glob.Normalize(src) {
			return Result{}, fmt.Errorf("minified output would overwrite %s", src)
		}

		data, err := afero.ReadFile(mn.env.FS, src)
		if err != nil {
			return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeReadFailed, src)
		}

		var buf bytes.Buffer
		if err := mn.m.Minify(mn.mediaType, &buf, bytes.NewReader(data)); err != nil {
			return Result{}, forgeerrors.NewIOError(forgeerrors.ErrCodeToolFailed,
				fmt.Sprintf("minifying %s", src), err).WithLocation(src, 0, 0)
		}

		if err := mn.env.FS.MkdirAll(path.Dir(out), 0o755); err != nil {
			return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, out)
		}
		if err := afero.WriteFile(mn.env.FS, out, buf.Bytes(), 0o644); err != nil {
			return Result{}, forgeerrors.WrapIO(err, forgeerrors.ErrCodeWriteFailed, out)
		}
		written = append(written, out)
	}

	return Result{Kind: KindFileSet, Files: written}, nil
}

// MinName maps "dir/site.css" to "<dest>/site.min.css".
func MinName(src, dest string) string {
	base := path.Base(src)
	ext := path.Ext(base)
	return path.Join(glob.Normalize(dest), strings.TrimSuffix(base, ext)+".min"+ext)
}

// IsMinified reports whether a file name already carries the ".min" suffix.
func IsMinified(name string) bool {
	base := path.Base(name)
	return strings.HasSuffix(strings.TrimSuffix(base, path.Ext(base)), ".min")
}

// ImageOptimizer re-encodes images in place through the configured optimizer.
type ImageOptimizer struct {
	env         Env
	tool        tool
	concurrency int
}

// NewImageOptimizer creates the image minifier.
func NewImageOptimizer(env Env, t config.ToolConfig) *ImageOptimizer {
	return &ImageOptimizer{env: env, tool: newTool(t), concurrency: 4}
}

// Name returns the adapter name.
func (o *ImageOptimizer) Name() string { return "imagemin" }

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
}

// Run optimizes every matched image, writing each back into the directory
// it maps to under Dest. Images are processed with bounded concurrency; the
// first failure cancels the rest.
func (o *ImageOptimizer) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := o.env.inputs(inv)
	if err != nil {
		return Result{}, err
	}
	rules, err := glob.Parse(inv.Sources)
	if err != nil {
		return Result{}, err
	}

	var images []string
	for _, f := range files {
		if imageExtensions[strings.ToLower(path.Ext(f))] {
			images = append(images, f)
		}
	}

	outputs := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, src := range images {
		i, src := i, src
		outDir := path.Join(glob.Normalize(inv.Dest), path.Dir(glob.Relative(rules, src)))
		if outDir == "" {
			outDir = "."
		}
		g.Go(func() error {
			res, err := o.env.Runner.Run(gctx, o.tool.cmdline(o.env.Root, src, "--out-dir="+outDir))
			if err != nil {
				return err
			}
			if res.ExitCode != 0 {
				return toolFailure(o.tool.command, res)
			}
			outputs[i] = path.Join(outDir, path.Base(src))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{Kind: KindFileSet, Files: outputs}, nil
}
