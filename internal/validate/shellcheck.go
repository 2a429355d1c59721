package validate

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/goplus/appimagecraft/internal/env"
	"github.com/rotisserie/eris"
)

// Default returns the validators used for generated scripts.
func Default(settings env.Settings) []Validator {
	return []Validator{Syntax{}, NewShellCheck(settings)}
}

// ShellCheck lints bash scripts with shellcheck.
type ShellCheck struct {
	// Binary is empty when shellcheck could not be found.
	Binary string
}

// NewShellCheck locates shellcheck through settings, falling back to PATH.
func NewShellCheck(settings env.Settings) *ShellCheck {
	if settings.ShellCheck != "" {
		return &ShellCheck{Binary: settings.ShellCheck}
	}
	binary, err := exec.LookPath("shellcheck")
	if err != nil {
		return &ShellCheck{}
	}
	return &ShellCheck{Binary: binary}
}

func (*ShellCheck) Name() string {
	return "shellcheck"
}

func (*ShellCheck) SupportedFileTypes() []string {
	return []string{"*.sh", "*.bash"}
}

func (s *ShellCheck) Available() bool {
	if s.Binary == "" {
		return false
	}
	info, err := os.Stat(s.Binary)
	return err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0
}

// Validate runs shellcheck from the directory of path, so sourced scripts are
// followed. SC2116 is excluded, project version commands are often plain
// echo calls.
func (s *ShellCheck) Validate(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, s.Binary, "-e", "SC2116", "-x", path)
	cmd.Dir = filepath.Dir(path)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "failed to run shellcheck: %s", strings.TrimSpace(out.String()))
	}
	return nil
}
