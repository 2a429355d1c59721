// Package script runs user supplied shell commands as the build step.
package script

import (
	"context"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/pkgs/buildsys"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ScriptName is the file name of the generated script.
const ScriptName = "build-script.sh"

// Config is the script section of the build configuration.
type Config struct {
	buildsys.Common `yaml:",inline"`

	// Commands are copied into the script verbatim.
	Commands []string `yaml:"commands"`
}

// Script emits the configured commands without any scaffolding.
type Script struct {
	cfg Config
}

var _ buildsys.Builder = (*Script)(nil)

func init() {
	buildsys.Register("script", func(node *yaml.Node) (buildsys.Builder, error) {
		s, err := New(node)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func New(node *yaml.Node) (*Script, error) {
	s := &Script{}
	if err := buildsys.Decode(node, &s.cfg); err != nil {
		return nil, err
	}
	if len(s.cfg.Commands) == 0 {
		return nil, eris.Wrap(config.ErrInvalidConfig, "script builder requires a list of commands")
	}
	return s, nil
}

// GenerateBuildScript writes build-script.sh.
func (b *Script) GenerateBuildScript(_ context.Context, projectRootDir, buildDir string) (string, error) {
	s, err := buildsys.NewScript(projectRootDir, buildDir, ScriptName)
	if err != nil {
		return "", err
	}
	if err := b.cfg.ExportEnv(s); err != nil {
		return "", err
	}
	s.Lines(b.cfg.Commands...)

	if err := s.Build(); err != nil {
		return "", err
	}
	return ScriptName, nil
}
