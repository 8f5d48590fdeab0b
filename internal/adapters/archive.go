package adapters

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	forgeerrors "github.com/sethstha/wpforge/internal/errors"
	"github.com/sethstha/wpforge/internal/glob"
)

// Archiver packages the distributable theme into a single zip.
type Archiver struct {
	env  Env
	slug string
}

// NewArchiver creates the packaging adapter. slug names the default archive.
func NewArchiver(env Env, slug string) *Archiver {
	return &Archiver{env: env, slug: slug}
}

// Name returns the adapter name.
func (a *Archiver) Name() string { return "zip" }

// Run writes every matched file into "<dest>/<file>" with paths relative to
// the project root. The archive is assembled in a temporary file and renamed
// into place, so a failed run leaves no partial package behind.
func (a *Archiver) Run(ctx context.Context, inv Invocation) (Result, error) {
	files, err := a.env.inputs(inv)
	if err != nil {
		return Result{}, forgeerrors.NewPackagingError("resolving package contents", err)
	}

	dest := glob.Normalize(inv.Dest)
	out := path.Join(dest, inv.Opt("file", a.slug+".zip"))
	if err := a.env.FS.MkdirAll(dest, 0o755); err != nil {
		return Result{}, forgeerrors.NewPackagingError("creating "+dest, err)
	}

	tmp, err := afero.TempFile(a.env.FS, dest, ".wpforge-zip-*")
	if err != nil {
		return Result{}, forgeerrors.NewPackagingError("creating temporary archive", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = a.env.FS.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)
	count := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if f == out || path.Base(f) == path.Base(tmpName) {
			continue
		}
		if err := a.add(zw, f); err != nil {
			return Result{}, forgeerrors.NewPackagingError("adding "+f, err)
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return Result{}, forgeerrors.NewPackagingError("finalizing archive", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, forgeerrors.NewPackagingError("finalizing archive", err)
	}
	if err := a.env.FS.Rename(tmpName, out); err != nil {
		return Result{}, forgeerrors.NewPackagingError("moving archive into place", err)
	}
	committed = true

	a.env.Logger.Info(ctx, "Package written", "file", out, "entries", count)
	return Result{
		Kind:    KindSignal,
		Files:   []string{out},
		Title:   "Build successful",
		Message: "Great! Package is ready",
	}, nil
}

func (a *Archiver) add(zw *zip.Writer, name string) error {
	info, err := a.env.FS.Stat(name)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = glob.Normalize(name)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	f, err := a.env.FS.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copying %s: %w", name, err)
	}
	return nil
}
