// Package scriptgen composes the complete set of build scripts for a project:
// hooks, one script per configured builder, the AppImage script and the main
// script tying them together.
package scriptgen

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/goplus/appimagecraft/internal/appimage"
	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/internal/env"
	"github.com/goplus/appimagecraft/internal/hooks"
	"github.com/goplus/appimagecraft/internal/shscript"
	"github.com/goplus/appimagecraft/internal/validate"
	"github.com/goplus/appimagecraft/pkgs/buildsys"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/mod/semver"

	_ "github.com/goplus/appimagecraft/pkgs/buildsys/autotools"
	_ "github.com/goplus/appimagecraft/pkgs/buildsys/cmake"
	_ "github.com/goplus/appimagecraft/pkgs/buildsys/qmake"
	_ "github.com/goplus/appimagecraft/pkgs/buildsys/script"
)

// MainScriptName is the file name of the main script.
const MainScriptName = "build.sh"

// ErrNoBuildDir is returned when GenerateAll is called without a build
// directory.
var ErrNoBuildDir = eris.New("build dir has not been set")

// Option configures a Generator.
type Option func(*Generator)

// WithValidators replaces the validators run on the main script. Without
// validators nothing is validated.
func WithValidators(validators ...validate.Validator) Option {
	return func(g *Generator) {
		g.validators = validators
	}
}

// Generator generates all scripts for one configuration.
type Generator struct {
	cfg            *config.Config
	projectRootDir string
	builderName    string
	validators     []validate.Validator
}

// New returns a Generator building with builderName. The default validators
// are located through the process environment.
func New(cfg *config.Config, projectRootDir, builderName string, opts ...Option) (*Generator, error) {
	settings, err := env.LoadSettings()
	if err != nil {
		return nil, err
	}
	g := &Generator{
		cfg:            cfg,
		projectRootDir: projectRootDir,
		builderName:    builderName,
		validators:     validate.Default(settings),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateBuilderScripts writes the script of every configured builder and
// returns the script names by builder in configuration order. Null builders
// and builders nobody registered are skipped.
func (g *Generator) GenerateBuilderScripts(ctx context.Context, buildDir string) (*orderedmap.OrderedMap[string, string], error) {
	log := zerolog.Ctx(ctx).With().Str("component", "scriptgen").Logger()

	scripts := orderedmap.New[string, string]()
	for _, name := range g.cfg.Build.Names() {
		if buildsys.IsNull(name) {
			log.Debug().Msg("skipping generation of build script for null builder")
			continue
		}

		node, _ := g.cfg.Build.Get(name)
		builder, err := buildsys.New(name, node)
		if err != nil {
			if eris.Is(err, buildsys.ErrUnknownBuilder) {
				log.Error().Str("builder", name).Msg("no builder with this name available, skipping")
				continue
			}
			return nil, err
		}

		script, err := builder.GenerateBuildScript(ctx, g.projectRootDir, buildDir)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to generate build script for builder %s", name)
		}
		log.Debug().Str("builder", name).Str("script", script).Msg("generated build script")
		scripts.Set(name, script)
	}
	return scripts, nil
}

// GenerateAll writes all scripts into buildDir and returns the path of the
// main script. If validation of the main script fails, the path is returned
// together with a *multierror.Error of *validate.Error values.
func (g *Generator) GenerateAll(ctx context.Context, buildDir string) (string, error) {
	if buildDir == "" {
		return "", ErrNoBuildDir
	}
	buildDir, err := filepath.Abs(buildDir)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve build dir")
	}

	if _, err := hooks.Generate(ctx, g.cfg.Scripts, g.projectRootDir, buildDir); err != nil {
		return "", err
	}

	scripts, err := g.GenerateBuilderScripts(ctx, buildDir)
	if err != nil {
		return "", err
	}

	mainScript, err := g.generateMainScript(ctx, buildDir, scripts)
	if err != nil {
		return "", err
	}

	if err := validate.File(ctx, mainScript, g.validators...); err != nil {
		return mainScript, err
	}
	return mainScript, nil
}

func (g *Generator) generateMainScript(ctx context.Context, buildDir string, scripts *orderedmap.OrderedMap[string, string]) (string, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "scriptgen").Logger()

	path := filepath.Join(buildDir, MainScriptName)
	s, err := shscript.NewProjectAware(path, g.projectRootDir, buildDir)
	if err != nil {
		return "", err
	}

	if err := g.exportVersion(ctx, s); err != nil {
		return "", err
	}

	if g.cfg.Environment.Len() > 0 {
		s.Line("# user specified environment variables")
		if err := s.ExportVars(g.cfg.Environment, false); err != nil {
			return "", err
		}
		s.EmptyLine()
	}

	quotedBuild, err := shscript.Quote(buildDir)
	if err != nil {
		return "", err
	}
	s.Lines(
		"# make sure to be in the build dir",
		"cd "+quotedBuild,
		"",
		"# create artifacts directory (called scripts shall put their build results into this directory)",
		"mkdir -p "+appimage.ArtifactsDirName,
		"",
	)
	sourceHook(s, "pre-build", hooks.ScriptName(hooks.PreBuild))
	s.Lines(
		"# create AppDir so that tools which are sensitive to that won't complain",
		"mkdir -p "+buildsys.AppDirName,
		"",
	)

	if buildsys.IsNull(g.builderName) {
		log.Debug().Msg("skipping entry for null builder as main builder")
	} else {
		script, ok := scripts.Get(g.builderName)
		if !ok {
			return "", eris.Errorf("no build script available for selected builder %s", g.builderName)
		}
		s.Lines(
			"# call script for main builder "+g.builderName,
			"# shellcheck disable=SC1091",
			"(source "+script+")",
			"",
		)
	}

	var alternates [][2]string
	for pair := scripts.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != g.builderName {
			alternates = append(alternates, [2]string{pair.Key, pair.Value})
		}
	}
	if len(alternates) > 0 {
		s.Line("# additional available builders (call appimagecraft with --builder <name> to switch)")
		for _, alt := range alternates {
			s.Lines(
				"# script for builder "+alt[0],
				"#(source "+alt[1]+")",
			)
		}
		s.EmptyLine()
	}

	sourceHook(s, "post-build", hooks.ScriptName(hooks.PostBuild))

	gen, err := appimage.New(ctx, g.cfg.AppImage)
	if err != nil {
		return "", err
	}
	appImageScript, err := gen.GenerateScript(ctx, g.projectRootDir, buildDir)
	if err != nil {
		return "", err
	}
	s.Lines(
		"# build AppImage",
		"# shellcheck disable=SC1091",
		"(source "+appImageScript+")",
	)

	if err := s.Build(); err != nil {
		return "", err
	}
	return path, nil
}

// exportVersion exports VERSION, preferring the configured value over the
// output of the version command.
func (g *Generator) exportVersion(ctx context.Context, s *shscript.Script) error {
	project := g.cfg.Project
	switch {
	case project.Version != "":
		if v := "v" + strings.TrimPrefix(project.Version, "v"); !semver.IsValid(v) {
			zerolog.Ctx(ctx).Warn().
				Str("component", "scriptgen").
				Str("version", project.Version).
				Msg("project version is not a semantic version")
		}
		s.Line("# project version")
		if err := s.Export("VERSION", project.Version); err != nil {
			return err
		}
		s.EmptyLine()
	case project.VersionCommand != "":
		s.Line("# project version")
		s.ExportRaw("VERSION", "$("+project.VersionCommand+")")
		s.EmptyLine()
	}
	return nil
}

func sourceHook(s *shscript.Script, stage, script string) {
	s.Lines(
		"# call "+stage+" script (if available)",
		"# shellcheck disable=SC1091",
		"if [ -f "+script+" ]; then (source "+script+"); fi",
		"",
	)
}
