package buildsys

import (
	"path/filepath"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/internal/shscript"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AppDirName is the staging directory below the build directory every
// builder installs into.
const AppDirName = "AppDir"

// MakeParallel builds with one job per CPU.
const MakeParallel = `make -j"$(nproc)"`

// Common holds the settings shared by all builders.
type Common struct {
	SourceDir      string      `yaml:"source_dir"`
	Environment    *config.Env `yaml:"environment"`
	RawEnvironment *config.Env `yaml:"raw_environment"`
}

// ResolveSourceDir returns the configured source directory, relative paths
// taken against projectRootDir, or projectRootDir itself.
func (c *Common) ResolveSourceDir(projectRootDir string) string {
	if c.SourceDir == "" {
		return projectRootDir
	}
	if filepath.IsAbs(c.SourceDir) {
		return c.SourceDir
	}
	return filepath.Join(projectRootDir, c.SourceDir)
}

// ExportEnv emits the builder local environment, escaped values first.
func (c *Common) ExportEnv(s *shscript.Script) error {
	for _, set := range []struct {
		key  string
		vars *config.Env
		raw  bool
	}{
		{"environment", c.Environment, false},
		{"raw_environment", c.RawEnvironment, true},
	} {
		if set.vars == nil {
			continue
		}
		s.Line("# environment variables from " + set.key)
		if err := s.ExportVars(set.vars, set.raw); err != nil {
			return err
		}
		s.EmptyLine()
	}
	return nil
}

// AppDirPath returns the AppDir below buildDir.
func AppDirPath(buildDir string) string {
	return filepath.Join(buildDir, AppDirName)
}

// EnterBuildDir emits the commands to change into a builder specific
// directory below buildDir, so builders never mix their artifacts.
func EnterBuildDir(s *shscript.Script, buildDir, subdir string) error {
	quoted, err := shscript.Quote(buildDir)
	if err != nil {
		return err
	}
	s.Lines(
		"# make sure we're in the build directory",
		"cd "+quoted,
		"",
		"# build in separate directory to avoid a mess in the build dir",
		"mkdir -p "+subdir,
		"cd "+subdir,
		"",
	)
	return nil
}

// Decode decodes a builder section into out. Nil and null sections leave out
// untouched.
func Decode(node *yaml.Node, out interface{}) error {
	if node == nil {
		return nil
	}
	if err := node.Decode(out); err != nil {
		if eris.Is(err, config.ErrInvalidConfig) {
			return err
		}
		return eris.Wrapf(config.ErrInvalidConfig, "line %d: %v", node.Line, err)
	}
	return nil
}

// NewScript returns a project aware script for filename inside buildDir.
func NewScript(projectRootDir, buildDir, filename string) (*shscript.Script, error) {
	return shscript.NewProjectAware(filepath.Join(buildDir, filename), projectRootDir, buildDir)
}
