package shscript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairs [][2]string

func (p pairs) Each(fn func(name, value string) error) error {
	for _, kv := range p {
		if err := fn(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func TestContentHeaderAndTrailer(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "x.sh"))
	s.Line("echo hello")

	content := s.Content()
	assert.True(t, strings.HasPrefix(content, "#! /bin/bash\n"))
	assert.Contains(t, content, "\nset -e\n")
	assert.Contains(t, content, "\nset -o pipefail\n")
	assert.Contains(t, content, `if [ "${DEBUG:-}" != "" ]; then`)
	assert.True(t, strings.HasSuffix(content, "echo hello\n\n"))
}

func TestNothingWrittenBeforeBuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.sh")
	s := New(path)
	s.Line("true")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestBuildMakesExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.sh")
	s := New(path)
	s.Lines("a", "b")
	require.NoError(t, s.Build())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s.Content(), string(data))
}

func TestBuildOverwritesExistingFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.sh")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, New(path).Build())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestExport(t *testing.T) {
	s := New("x.sh")
	require.NoError(t, s.Export("FOO", "hello world"))
	s.ExportRaw("BAR", "$(date)")

	assert.Equal(t, []string{
		"FOO='hello world'",
		"export FOO",
		"BAR=$(date)",
		"export BAR",
	}, s.lines)
}

func TestExportVars(t *testing.T) {
	vars := pairs{{"A", "1"}, {"B", "two words"}}

	escaped := New("x.sh")
	require.NoError(t, escaped.ExportVars(vars, false))
	assert.Equal(t, []string{"A=1", "export A", "B='two words'", "export B"}, escaped.lines)

	raw := New("x.sh")
	require.NoError(t, raw.ExportVars(vars, true))
	assert.Equal(t, []string{"A=1", "export A", "B=two words", "export B"}, raw.lines)
}

func TestNewProjectAware(t *testing.T) {
	root := t.TempDir()
	build := t.TempDir()

	s, err := NewProjectAware(filepath.Join(build, "x.sh"), root, build)
	require.NoError(t, err)

	content := s.Content()
	assert.Contains(t, content, "PROJECT_ROOT="+root+"\nexport PROJECT_ROOT\n")
	assert.Contains(t, content, "BUILD_DIR="+build+"\nexport BUILD_DIR\n")
}

func TestQuote(t *testing.T) {
	for in, want := range map[string]string{
		"":            "''",
		"/usr":        "/usr",
		"Release":     "Release",
		"a b":         "'a b'",
		"$HOME":       "'$HOME'",
		"--prefix=/x": "'--prefix=/x'",
	} {
		got, err := Quote(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "Quote(%q)", in)
	}

	joined, err := QuoteAll("a", "b c")
	require.NoError(t, err)
	assert.Equal(t, "a 'b c'", joined)
}
