// Package shscript accumulates shell lines and writes them out as
// self-contained, executable bash scripts.
package shscript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// header is written in front of every script. DEBUG switches on tracing.
var header = []string{
	"#! /bin/bash",
	"",
	"# make sure to quit on errors in subcommands",
	"set -e",
	"set -o pipefail",
	"",
	"# print every command if requested",
	`if [ "${DEBUG:-}" != "" ]; then`,
	"    set -x",
	"fi",
	"",
}

// Vars is an ordered set of environment variables.
type Vars interface {
	Each(fn func(name, value string) error) error
}

// Script collects the lines of a single shell script. Nothing touches the
// file system until Build is called.
type Script struct {
	path  string
	lines []string
}

// New returns an empty script which will be written to path.
func New(path string) *Script {
	return &Script{path: path}
}

// NewProjectAware returns a script which exports PROJECT_ROOT and BUILD_DIR
// before anything else, so it can be run without the main script.
func NewProjectAware(path, projectRootDir, buildDir string) (*Script, error) {
	s := New(path)

	root, err := filepath.Abs(projectRootDir)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve project root %s", projectRootDir)
	}
	build, err := filepath.Abs(buildDir)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve build dir %s", buildDir)
	}

	s.Line("# convenience variables, may be used in config file")
	if err := s.Export("PROJECT_ROOT", root); err != nil {
		return nil, err
	}
	if err := s.Export("BUILD_DIR", build); err != nil {
		return nil, err
	}
	s.EmptyLine()

	return s, nil
}

// Path returns the file the script is written to.
func (s *Script) Path() string {
	return s.path
}

// Line appends a single line.
func (s *Script) Line(text string) {
	s.lines = append(s.lines, text)
}

// Linef appends a formatted line.
func (s *Script) Linef(format string, arguments ...interface{}) {
	s.Line(fmt.Sprintf(format, arguments...))
}

// Lines appends all lines in order.
func (s *Script) Lines(lines ...string) {
	s.lines = append(s.lines, lines...)
}

func (s *Script) EmptyLine() {
	s.Line("")
}

// Export assigns value to name and exports it. The value is quoted.
func (s *Script) Export(name, value string) error {
	quoted, err := Quote(value)
	if err != nil {
		return eris.Wrapf(err, "cannot export %s", name)
	}
	s.ExportRaw(name, quoted)
	return nil
}

// ExportRaw is like Export but writes value as is. The caller is responsible
// for any quoting.
func (s *Script) ExportRaw(name, value string) {
	// assignment and export on separate lines keep the exit status of
	// command substitutions visible to set -e
	s.Line(name + "=" + value)
	s.Line("export " + name)
}

// ExportVars exports every variable in vars, quoting values unless raw is set.
func (s *Script) ExportVars(vars Vars, raw bool) error {
	return vars.Each(func(name, value string) error {
		if raw {
			s.ExportRaw(name, value)
			return nil
		}
		return s.Export(name, value)
	})
}

// Content renders the full script text.
func (s *Script) Content() string {
	var b strings.Builder
	for _, line := range header {
		b.WriteString(line + "\n")
	}
	for _, line := range s.lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Build writes the script and makes it executable.
func (s *Script) Build() error {
	if err := os.WriteFile(s.path, []byte(s.Content()), 0o755); err != nil {
		return eris.Wrapf(err, "failed to write script %s", s.path)
	}
	// WriteFile honours the umask, and keeps the mode of existing files
	if err := os.Chmod(s.path, 0o755); err != nil {
		return eris.Wrapf(err, "failed to make %s executable", s.path)
	}
	return nil
}
