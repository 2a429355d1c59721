package internal

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/internal/env"
	"github.com/goplus/appimagecraft/internal/scriptgen"
	"github.com/goplus/appimagecraft/internal/validate"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// project is a loaded configuration together with the choices made on the
// command line.
type project struct {
	cfg      *config.Config
	rootDir  string
	builder  string
	buildDir string
}

func loadProject(ctx context.Context, configFile, builder string) (*project, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	rootDir, err := filepath.Abs(filepath.Dir(configFile))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve project root of %s", configFile)
	}
	builder, err = selectBuilder(cfg, builder)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("project", cfg.Project.Name).Msg("building project")
	return &project{cfg: cfg, rootDir: rootDir, builder: builder}, nil
}

// selectBuilder returns requested, or the first configured builder when
// nothing was requested.
func selectBuilder(cfg *config.Config, requested string) (string, error) {
	if requested == "" {
		name, ok := cfg.DefaultBuilder()
		if !ok {
			return "", eris.Wrap(config.ErrInvalidConfig, "no builder configured in config file")
		}
		return name, nil
	}
	if !cfg.HasBuilder(requested) {
		return "", eris.Errorf("builder %s is not configured in the build section", requested)
	}
	return requested, nil
}

// useBuildDir makes dir the absolute, existing build directory of p.
func (p *project) useBuildDir(ctx context.Context, dir string) error {
	buildDir, err := env.PrepareBuildDir(dir)
	if err != nil {
		return err
	}
	p.buildDir = buildDir

	zerolog.Ctx(ctx).Info().
		Str("build_dir", buildDir).
		Str("builder", p.builder).
		Msg("building in directory")
	return nil
}

// generate writes all scripts into the build directory and returns the main
// script. A failed validation of the main script is reported as an error.
func (p *project) generate(ctx context.Context) (string, error) {
	log := zerolog.Ctx(ctx)
	log.Info().Str("build_dir", p.buildDir).Msg("generating build scripts")

	gen, err := scriptgen.New(p.cfg, p.rootDir, p.builder)
	if err != nil {
		return "", err
	}
	mainScript, err := gen.GenerateAll(ctx, p.buildDir)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			log.Error().Err(err).Str("script", mainScript).Msg("validation of shell scripts failed")
			return "", eris.Wrapf(err, "validation of %s failed", mainScript)
		}
		return "", err
	}
	return mainScript, nil
}
