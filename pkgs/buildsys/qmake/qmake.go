// Package qmake generates build scripts for qmake projects.
package qmake

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goplus/appimagecraft/internal/shscript"
	"github.com/goplus/appimagecraft/pkgs/buildsys"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ScriptName is the file name of the generated script.
const ScriptName = "build-qmake.sh"

// ErrNoProjectFile is returned when no .pro file is configured or found.
var ErrNoProjectFile = eris.New("could not find QMake project file in source dir, please specify a different source_dir or a project_file")

// Config is the qmake section of the build configuration.
type Config struct {
	buildsys.Common `yaml:",inline"`

	// ProjectFile is relative to the source dir unless absolute.
	ProjectFile string `yaml:"project_file"`
}

type QMake struct {
	cfg Config
}

var _ buildsys.Builder = (*QMake)(nil)

func init() {
	buildsys.Register("qmake", func(node *yaml.Node) (buildsys.Builder, error) {
		q, err := New(node)
		if err != nil {
			return nil, err
		}
		return q, nil
	})
}

func New(node *yaml.Node) (*QMake, error) {
	q := &QMake{}
	if err := buildsys.Decode(node, &q.cfg); err != nil {
		return nil, err
	}
	return q, nil
}

// ProjectFile returns the absolute path of the .pro file. Without explicit
// configuration the first *.pro file in the source dir is used.
func (q *QMake) ProjectFile(ctx context.Context, projectRootDir string) (string, error) {
	sourceDir := q.cfg.ResolveSourceDir(projectRootDir)

	projectFile := q.cfg.ProjectFile
	if projectFile == "" {
		matches, err := doublestar.Glob(os.DirFS(sourceDir), "*.pro")
		if err != nil {
			return "", eris.Wrapf(err, "failed to search %s for project files", sourceDir)
		}
		if len(matches) == 0 {
			return "", eris.Wrapf(ErrNoProjectFile, "source dir: %s", sourceDir)
		}
		projectFile = matches[0]
		zerolog.Ctx(ctx).Warn().
			Str("component", "qmake").
			Str("project_file", projectFile).
			Msg("project_file not specified, using first found .pro file")
	}

	if !filepath.IsAbs(projectFile) {
		projectFile = filepath.Join(sourceDir, projectFile)
	}
	return projectFile, nil
}

// GenerateBuildScript writes build-qmake.sh.
func (q *QMake) GenerateBuildScript(ctx context.Context, projectRootDir, buildDir string) (string, error) {
	projectFile, err := q.ProjectFile(ctx, projectRootDir)
	if err != nil {
		return "", err
	}

	s, err := buildsys.NewScript(projectRootDir, buildDir, ScriptName)
	if err != nil {
		return "", err
	}
	if err := q.cfg.ExportEnv(s); err != nil {
		return "", err
	}
	if err := buildsys.EnterBuildDir(s, buildDir, "qmake-build"); err != nil {
		return "", err
	}

	quotedProject, err := shscript.Quote(projectFile)
	if err != nil {
		return "", err
	}
	appDir, err := shscript.Quote(buildsys.AppDirPath(buildDir))
	if err != nil {
		return "", err
	}
	s.Lines(
		"# it's always a good idea to print the qmake version in use",
		"qmake --version",
		"",
		"# set up build",
		"qmake "+quotedProject,
		"",
		"# build project",
		buildsys.MakeParallel,
		"",
		"# install binaries into AppDir (requires correct qmake install(...) configuration)",
		"make install INSTALL_ROOT="+appDir,
	)

	if err := s.Build(); err != nil {
		return "", err
	}
	return ScriptName, nil
}
