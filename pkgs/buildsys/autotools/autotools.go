// Package autotools generates build scripts for configure based projects.
package autotools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/internal/shscript"
	"github.com/goplus/appimagecraft/pkgs/buildsys"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ScriptName is the file name of the generated script.
const ScriptName = "build-autotools.sh"

// Config is the autotools section of the build configuration.
type Config struct {
	buildsys.Common `yaml:",inline"`

	// AllowInsource permits running autogen.sh inside the source tree.
	AllowInsource bool `yaml:"allow_insource"`

	// Configure enables the configure step when present.
	Configure yaml.Node `yaml:"configure"`
}

type configureConfig struct {
	ExtraParams []string `yaml:"extra_params"`
}

// AutoTools drives configure && make builds.
type AutoTools struct {
	cfg Config

	configure   bool
	extraParams []string
}

var _ buildsys.Builder = (*AutoTools)(nil)

func init() {
	buildsys.Register("autotools", func(node *yaml.Node) (buildsys.Builder, error) {
		a, err := New(node)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}

// New parses the autotools section.
func New(node *yaml.Node) (*AutoTools, error) {
	a := &AutoTools{}
	if err := buildsys.Decode(node, &a.cfg); err != nil {
		return nil, err
	}

	section := &a.cfg.Configure
	if section.Kind == 0 {
		return a, nil
	}
	a.configure = true
	if section.ShortTag() == "!!null" {
		return a, nil
	}
	if section.Kind != yaml.MappingNode {
		return nil, eris.Wrapf(config.ErrInvalidConfig, "line %d: configure: data must be in key: value format", section.Line)
	}
	var cfg configureConfig
	if err := section.Decode(&cfg); err != nil {
		return nil, eris.Wrapf(config.ErrInvalidConfig, "line %d: configure extra_params: must be list: %v", section.Line, err)
	}
	a.extraParams = cfg.ExtraParams
	return a, nil
}

// ConfigureArgs returns the parameters passed to configure, unquoted.
func (a *AutoTools) ConfigureArgs() []string {
	return append([]string{"--prefix=/usr"}, a.extraParams...)
}

// GenerateBuildScript writes build-autotools.sh.
func (a *AutoTools) GenerateBuildScript(ctx context.Context, projectRootDir, buildDir string) (string, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "autotools").Logger()

	s, err := buildsys.NewScript(projectRootDir, buildDir, ScriptName)
	if err != nil {
		return "", err
	}
	if err := a.cfg.ExportEnv(s); err != nil {
		return "", err
	}
	if err := buildsys.EnterBuildDir(s, buildDir, "autotools-build"); err != nil {
		return "", err
	}

	sourceDir := a.cfg.ResolveSourceDir(projectRootDir)
	autogen := filepath.Join(sourceDir, "autogen.sh")
	quotedAutogen, err := shscript.Quote(autogen)
	if err != nil {
		return "", err
	}
	quotedSource, err := shscript.Quote(sourceDir)
	if err != nil {
		return "", err
	}

	if a.cfg.AllowInsource {
		s.Lines(
			"# in case the project uses autogen.sh, we have to call that script to generate the configure script",
			"if [ -f "+quotedAutogen+" ]; then",
			"    (cd "+quotedSource+" && ./autogen.sh)",
			"fi",
			"",
		)
	} else {
		if _, err := os.Stat(autogen); err == nil {
			log.Warn().Str("path", autogen).Msg("autogen.sh found but allow_insource is not set, it will not be called")
		}
		s.Lines(
			"# the user needs to explicitly allow in source operations in order to be able to auto call autogen.sh",
			"if [ -f "+quotedAutogen+" ]; then",
			`    echo "Warning: autogen.sh found, might have to be called by us"`,
			`    echo "If so, please add allow_insource: true to the autotools builder config"`,
			"fi",
			"",
		)
	}

	// without a configure section the project is expected to ship a Makefile
	if a.configure {
		args, err := shscript.QuoteAll(append([]string{filepath.Join(sourceDir, "configure")}, a.ConfigureArgs()...)...)
		if err != nil {
			return "", err
		}
		s.Lines(
			"# set up build directory with configure",
			args,
			"",
		)
	}

	appDir, err := shscript.Quote(buildsys.AppDirPath(buildDir))
	if err != nil {
		return "", err
	}
	s.Lines(
		"# build project",
		buildsys.MakeParallel,
		"",
		"# install binaries into AppDir",
		"make install DESTDIR="+appDir,
	)

	if err := s.Build(); err != nil {
		return "", err
	}
	return ScriptName, nil
}
