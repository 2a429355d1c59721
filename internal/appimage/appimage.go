// Package appimage generates the script which bundles the AppDir into an
// AppImage with linuxdeploy.
package appimage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/internal/env"
	"github.com/goplus/appimagecraft/internal/shscript"
	"github.com/goplus/appimagecraft/pkgs/buildsys"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

const (
	// ScriptName is the file name of the generated script.
	ScriptName = "build-appimage.sh"

	// WorkDirName is the packaging directory below the build directory.
	WorkDirName = "appimage-build"

	// DownloadsDirName holds linuxdeploy and its plugins below WorkDirName.
	DownloadsDirName = "downloads"

	// ArtifactsDirName receives the finished AppImages below the build
	// directory.
	ArtifactsDirName = "artifacts"
)

// ValidArchs lists the architectures linuxdeploy is published for.
var ValidArchs = []string{"x86_64", "i386"}

var archAliases = map[string]string{
	"amd64": "x86_64",
	"i586":  "i386",
	"i686":  "i386",
}

const linuxdeployURL = "https://github.com/linuxdeploy/linuxdeploy/releases/download/continuous/linuxdeploy-%s.AppImage"

var knownPlugins = map[string]string{
	"qt":    "https://github.com/linuxdeploy/linuxdeploy-plugin-qt/releases/download/continuous/linuxdeploy-plugin-qt-$ARCH.AppImage",
	"conda": "https://raw.githubusercontent.com/linuxdeploy/linuxdeploy-plugin-conda/master/linuxdeploy-plugin-conda.sh",
}

var pluginFilePattern = regexp.MustCompile(`^linuxdeploy-plugin-([^\s.-]+)(?:-[^.]+)?(?:\..+)?$`)

// hostArch is replaced in tests.
var hostArch = env.HostArch

// Plugin is a resolved linuxdeploy plugin.
type Plugin struct {
	Name string
	// URL may contain $ARCH, which is replaced before downloading.
	URL string
}

// Generator emits build-appimage.sh.
type Generator struct {
	arch      string
	plugins   *orderedmap.OrderedMap[string, string]
	env       buildsys.Common
	extraArgs []string
}

// New resolves architecture, plugins and extra arguments of cfg. A nil cfg
// packages for the host architecture without plugins.
func New(ctx context.Context, cfg *config.AppImage) (*Generator, error) {
	if cfg == nil {
		cfg = &config.AppImage{}
	}
	ld := cfg.LinuxDeploy
	if ld == nil {
		ld = &config.LinuxDeploy{}
	}

	arch := cfg.Arch
	if arch == "" {
		arch = hostArch()
	}
	arch, err := ResolveArch(arch)
	if err != nil {
		return nil, err
	}

	plugins, err := ResolvePlugins(ld.Plugins)
	if err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx)
	for pair := plugins.Oldest(); pair != nil; pair = pair.Next() {
		log.Debug().
			Str("component", "appimage").
			Str("plugin", pair.Key).
			Str("url", pair.Value).
			Msg("resolved linuxdeploy plugin")
	}

	extraArgs, err := parseExtraArgs(&ld.ExtraArgs)
	if err != nil {
		return nil, err
	}

	return &Generator{
		arch:      arch,
		plugins:   plugins,
		env:       buildsys.Common{Environment: ld.Environment, RawEnvironment: ld.RawEnvironment},
		extraArgs: extraArgs,
	}, nil
}

// ResolveArch substitutes known aliases and rejects architectures linuxdeploy
// does not support.
func ResolveArch(arch string) (string, error) {
	if alias, ok := archAliases[arch]; ok {
		arch = alias
	}
	if !lo.Contains(ValidArchs, arch) {
		return "", eris.Wrapf(config.ErrInvalidConfig, "invalid arch: %s", arch)
	}
	return arch, nil
}

// ToolURL returns the download location of linuxdeploy for arch.
func ToolURL(arch string) string {
	return fmt.Sprintf(linuxdeployURL, arch)
}

// ResolvePlugins maps every entry to a plugin name and download URL. Entries
// are either absolute URLs, whose file name must follow linuxdeploy's plugin
// naming scheme, or names of well known plugins. Later entries resolving to
// the same name replace earlier ones.
func ResolvePlugins(entries []string) (*orderedmap.OrderedMap[string, string], error) {
	plugins := orderedmap.New[string, string]()
	for _, entry := range entries {
		if isURL(entry) {
			u, _ := url.Parse(entry)
			filename := path.Base(u.Path)
			m := pluginFilePattern.FindStringSubmatch(filename)
			if m == nil {
				return nil, eris.Wrapf(config.ErrInvalidConfig, "could not detect linuxdeploy plugin name from URL %s", entry)
			}
			plugins.Set(m[1], entry)
			continue
		}

		pluginURL, ok := knownPlugins[entry]
		if !ok {
			return nil, eris.Wrapf(config.ErrInvalidConfig, "unknown plugin: %s", entry)
		}
		plugins.Set(entry, pluginURL)
	}
	return plugins, nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != "" && u.Path != ""
}

func parseExtraArgs(node *yaml.Node) ([]string, error) {
	if node.Kind == 0 || node.ShortTag() == "!!null" {
		return nil, nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!str" {
			return []string{node.Value}, nil
		}
	case yaml.SequenceNode:
		args := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
				return nil, eris.Wrapf(config.ErrInvalidConfig, "line %d: extra_args entries must be strings", item.Line)
			}
			args = append(args, item.Value)
		}
		return args, nil
	}
	return nil, eris.Wrapf(config.ErrInvalidConfig, "line %d: invalid type for extra_args, must be a string or a list of strings", node.Line)
}

// Arch returns the resolved architecture.
func (g *Generator) Arch() string {
	return g.arch
}

// Plugins returns the resolved plugins in declaration order.
func (g *Generator) Plugins() []Plugin {
	plugins := make([]Plugin, 0, g.plugins.Len())
	for pair := g.plugins.Oldest(); pair != nil; pair = pair.Next() {
		plugins = append(plugins, Plugin{Name: pair.Key, URL: pair.Value})
	}
	return plugins
}

// GenerateScript writes build-appimage.sh into buildDir and returns its base
// name.
func (g *Generator) GenerateScript(_ context.Context, projectRootDir, buildDir string) (string, error) {
	s, err := buildsys.NewScript(projectRootDir, buildDir, ScriptName)
	if err != nil {
		return "", err
	}

	quotedBuild, err := shscript.Quote(buildDir)
	if err != nil {
		return "", err
	}
	artifacts, err := shscript.Quote(filepath.Join(buildDir, ArtifactsDirName))
	if err != nil {
		return "", err
	}
	s.Lines(
		"# make sure we're in the build directory",
		"cd "+quotedBuild,
		"",
		"# downloads are kept apart so they are not mistaken for artifacts",
		"mkdir -p "+WorkDirName+"/"+DownloadsDirName,
		"cd "+WorkDirName,
		"",
		"mkdir -p "+artifacts,
		"",
	)

	toolURL, err := shscript.Quote(ToolURL(g.arch))
	if err != nil {
		return "", err
	}
	tool := DownloadsDirName + "/linuxdeploy-" + g.arch + ".AppImage"
	s.Lines(
		"# fetch linuxdeploy from GitHub releases",
		"wget -c -P "+DownloadsDirName+" "+toolURL,
		"chmod +x "+tool,
	)

	for _, p := range g.Plugins() {
		pluginURL, err := shscript.Quote(strings.ReplaceAll(p.URL, "$ARCH", g.arch))
		if err != nil {
			return "", err
		}
		name, err := shscript.Quote(p.Name)
		if err != nil {
			return "", err
		}
		s.Lines(
			"# fetch "+p.Name+" plugin",
			"wget -c -P "+DownloadsDirName+" "+pluginURL,
			"chmod +x "+DownloadsDirName+"/linuxdeploy-plugin-"+name+"*",
		)
	}
	s.EmptyLine()

	if err := g.env.ExportEnv(s); err != nil {
		return "", err
	}

	appDir, err := shscript.Quote(buildsys.AppDirPath(buildDir))
	if err != nil {
		return "", err
	}
	cmd := []string{tool, "--appdir", appDir, "--output", "appimage"}
	for _, p := range g.Plugins() {
		name, err := shscript.Quote(p.Name)
		if err != nil {
			return "", err
		}
		cmd = append(cmd, "--plugin", name)
	}
	cmd = append(cmd, g.extraArgs...)
	s.Lines(
		"# run linuxdeploy with the configured plugins",
		strings.Join(cmd, " "),
		"",
		"# move AppImages into the artifacts directory",
		"find . -path ./"+DownloadsDirName+" -prune -o -type f -name '*.AppImage*' -exec mv {} "+artifacts+` \;`,
	)

	if err := s.Build(); err != nil {
		return "", err
	}
	return ScriptName, nil
}
