// Package cmake generates build scripts for CMake projects.
package cmake

import (
	"context"
	"regexp"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/internal/shscript"
	"github.com/goplus/appimagecraft/pkgs/buildsys"
	"github.com/rotisserie/eris"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// ScriptName is the file name of the generated script.
const ScriptName = "build-cmake.sh"

var generatorPattern = regexp.MustCompile(`^[A-Z]+$`)

// Config is the cmake section of the build configuration.
type Config struct {
	buildsys.Common `yaml:",inline"`

	// ExtraVariables extend or override the default -D definitions.
	ExtraVariables *config.Env `yaml:"extra_variables"`

	// CPack enables packaging with cpack when present, even if empty.
	CPack yaml.Node `yaml:"cpack"`
}

type cpackConfig struct {
	Generators []string `yaml:"generators"`
}

// CMake drives CMake-based builds.
type CMake struct {
	cfg       Config
	variables *orderedmap.OrderedMap[string, string]

	cpack           bool
	cpackGenerators []string
}

var _ buildsys.Builder = (*CMake)(nil)

func init() {
	buildsys.Register("cmake", func(node *yaml.Node) (buildsys.Builder, error) {
		c, err := New(node)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// New parses the cmake section and validates variable names and cpack
// generators.
func New(node *yaml.Node) (*CMake, error) {
	c := &CMake{variables: orderedmap.New[string, string]()}
	if err := buildsys.Decode(node, &c.cfg); err != nil {
		return nil, err
	}

	c.variables.Set("CMAKE_INSTALL_PREFIX", "/usr")
	c.variables.Set("CMAKE_BUILD_TYPE", "Release")
	err := c.cfg.ExtraVariables.Each(func(name, value string) error {
		c.variables.Set(name, value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for pair := c.variables.Oldest(); pair != nil; pair = pair.Next() {
		if err := config.ValidateVarName(pair.Key); err != nil {
			return nil, eris.Wrap(err, "spaces are not allowed in CMake argument names")
		}
	}

	if err := c.parseCPack(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CMake) parseCPack() error {
	node := &c.cfg.CPack
	if node.Kind == 0 {
		return nil
	}
	c.cpack = true
	if node.ShortTag() == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return eris.Wrapf(config.ErrInvalidConfig, "line %d: cpack: data must be in key: value format", node.Line)
	}

	var cfg cpackConfig
	if err := node.Decode(&cfg); err != nil {
		return eris.Wrapf(config.ErrInvalidConfig, "line %d: cpack generators: must be list: %v", node.Line, err)
	}
	for _, gen := range cfg.Generators {
		if !generatorPattern.MatchString(gen) {
			return eris.Wrapf(config.ErrInvalidConfig, "cpack generator in invalid format: %s", gen)
		}
	}
	c.cpackGenerators = cfg.Generators
	return nil
}

// Variables returns the -D definitions in the order they are passed to cmake.
func (c *CMake) Variables() [][2]string {
	vars := make([][2]string, 0, c.variables.Len())
	for pair := c.variables.Oldest(); pair != nil; pair = pair.Next() {
		vars = append(vars, [2]string{pair.Key, pair.Value})
	}
	return vars
}

func (c *CMake) configureCommand(sourceDir string) (string, error) {
	cmd := "cmake"
	for pair := c.variables.Oldest(); pair != nil; pair = pair.Next() {
		value, err := shscript.Quote(pair.Value)
		if err != nil {
			return "", err
		}
		cmd += " -D" + pair.Key + "=" + value
	}
	dir, err := shscript.Quote(sourceDir)
	if err != nil {
		return "", err
	}
	return cmd + " " + dir, nil
}

// GenerateBuildScript writes build-cmake.sh.
func (c *CMake) GenerateBuildScript(ctx context.Context, projectRootDir, buildDir string) (string, error) {
	s, err := buildsys.NewScript(projectRootDir, buildDir, ScriptName)
	if err != nil {
		return "", err
	}
	if err := c.cfg.ExportEnv(s); err != nil {
		return "", err
	}
	if err := buildsys.EnterBuildDir(s, buildDir, "cmake-build"); err != nil {
		return "", err
	}

	configure, err := c.configureCommand(c.cfg.ResolveSourceDir(projectRootDir))
	if err != nil {
		return "", err
	}
	appDir, err := shscript.Quote(buildsys.AppDirPath(buildDir))
	if err != nil {
		return "", err
	}
	s.Lines(
		"# set up build",
		configure,
		"",
		"# build project",
		buildsys.MakeParallel,
		"",
		"# install binaries into AppDir (requires correct CMake install(...) configuration)",
		"make install DESTDIR="+appDir,
	)

	if c.cpack {
		s.Lines("", "# build packages with cpack")
		if len(c.cpackGenerators) == 0 {
			s.Line("cpack -V")
		}
		for _, gen := range c.cpackGenerators {
			s.Linef("cpack -V %s", gen)
		}
	}

	if err := s.Build(); err != nil {
		return "", err
	}
	return ScriptName, nil
}
