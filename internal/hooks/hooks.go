// Package hooks generates the optional scripts run before and after the
// build.
package hooks

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/internal/shscript"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	PreBuild  = "pre_build"
	PostBuild = "post_build"
)

// Stages lists the supported hook stages in execution order.
var Stages = []string{PreBuild, PostBuild}

// ScriptName returns the file name of the script for stage.
func ScriptName(stage string) string {
	return stage + ".sh"
}

// Validate rejects stages other than pre_build and post_build.
func Validate(scripts map[string][]string) error {
	invalid := lo.Without(lo.Keys(scripts), Stages...)
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return eris.Wrapf(config.ErrInvalidConfig, "invalid script stage: %s", invalid[0])
}

// Generate writes one script per configured stage into buildDir and returns
// the written file names. Stages without configuration produce no file.
func Generate(ctx context.Context, scripts map[string][]string, projectRootDir, buildDir string) ([]string, error) {
	if err := Validate(scripts); err != nil {
		return nil, err
	}

	var written []string
	for _, stage := range Stages {
		lines, ok := scripts[stage]
		if !ok {
			continue
		}
		name := ScriptName(stage)
		s, err := shscript.NewProjectAware(filepath.Join(buildDir, name), projectRootDir, buildDir)
		if err != nil {
			return nil, err
		}
		s.Lines(lines...)
		if err := s.Build(); err != nil {
			return nil, err
		}
		zerolog.Ctx(ctx).Debug().Str("component", "hooks").Str("script", name).Msg("generated hook script")
		written = append(written, name)
	}
	return written, nil
}
