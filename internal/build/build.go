// Package build runs generated build scripts and collects their results.
package build

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/goplus/appimagecraft/internal/appimage"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Runner executes the main script of a build directory.
type Runner struct {
	ProjectRootDir string
	BuildDir       string

	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner returns a Runner passing script output through to the process.
func NewRunner(projectRootDir, buildDir string) *Runner {
	return &Runner{
		ProjectRootDir: projectRootDir,
		BuildDir:       buildDir,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
	}
}

// Run executes mainScript inside the build directory.
func (r *Runner) Run(ctx context.Context, mainScript string) error {
	zerolog.Ctx(ctx).Info().Str("script", mainScript).Msg("calling main build script")

	cmd := exec.CommandContext(ctx, mainScript)
	cmd.Dir = r.BuildDir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return eris.Wrapf(err, "build script %s failed with exit status %d", mainScript, exitErr.ExitCode())
		}
		return eris.Wrapf(err, "failed to run build script %s", mainScript)
	}
	return nil
}

// CollectArtifacts moves everything in the artifacts directory into the
// project root and returns the new paths.
func (r *Runner) CollectArtifacts(ctx context.Context) ([]string, error) {
	log := zerolog.Ctx(ctx)
	dir := filepath.Join(r.BuildDir, appimage.ArtifactsDirName)

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "failed to read artifacts directory %s", dir)
	}
	if len(entries) == 0 {
		log.Warn().Str("dir", dir).Msg("could not find any artifacts to move to project root dir")
		return nil, nil
	}

	moved := make([]string, 0, len(entries))
	for _, e := range entries {
		src := filepath.Join(dir, e.Name())
		dst := filepath.Join(r.ProjectRootDir, e.Name())
		log.Info().Str("artifact", e.Name()).Msg("moving artifact to project root dir")
		if err := move(src, dst); err != nil {
			return moved, err
		}
		moved = append(moved, dst)
	}
	return moved, nil
}

// Cleanup removes the build directory.
func (r *Runner) Cleanup(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Str("dir", r.BuildDir).Msg("cleaning up build directory")
	if err := os.RemoveAll(r.BuildDir); err != nil {
		return eris.Wrapf(err, "failed to remove build directory %s", r.BuildDir)
	}
	return nil
}

// move renames src to dst, copying regular files when both are on different
// file systems.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return eris.Wrapf(err, "failed to move %s", src)
	}
	if !info.Mode().IsRegular() {
		return eris.Errorf("failed to move %s to %s", src, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "failed to move %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return eris.Wrapf(err, "failed to copy %s", src)
	}
	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "failed to write %s", dst)
	}
	return os.Remove(src)
}
