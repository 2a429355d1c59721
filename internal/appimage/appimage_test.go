package appimage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parse(t *testing.T, doc string) *config.AppImage {
	t.Helper()
	var cfg config.AppImage
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	return &cfg
}

func withHostArch(t *testing.T, arch string) {
	t.Helper()
	old := hostArch
	hostArch = func() string { return arch }
	t.Cleanup(func() { hostArch = old })
}

func generate(t *testing.T, cfg *config.AppImage) (build, content string) {
	t.Helper()
	root := t.TempDir()
	build = t.TempDir()

	g, err := New(context.Background(), cfg)
	require.NoError(t, err)

	name, err := g.GenerateScript(context.Background(), root, build)
	require.NoError(t, err)
	assert.Equal(t, ScriptName, name)

	data, err := os.ReadFile(filepath.Join(build, name))
	require.NoError(t, err)
	return build, string(data)
}

func TestResolveArch(t *testing.T) {
	for in, want := range map[string]string{
		"x86_64": "x86_64",
		"amd64":  "x86_64",
		"i386":   "i386",
		"i586":   "i386",
		"i686":   "i386",
	} {
		got, err := ResolveArch(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"arm64", "aarch64", "X86_64", ""} {
		_, err := ResolveArch(in)
		require.Error(t, err, in)
		assert.True(t, eris.Is(err, config.ErrInvalidConfig))
	}
}

func TestArchAliasesShareURL(t *testing.T) {
	a, err := New(context.Background(), parse(t, `{arch: amd64}`))
	require.NoError(t, err)
	b, err := New(context.Background(), parse(t, `{arch: x86_64}`))
	require.NoError(t, err)

	assert.Equal(t, ToolURL(a.Arch()), ToolURL(b.Arch()))
	assert.Contains(t, ToolURL(a.Arch()), "linuxdeploy-x86_64.AppImage")
}

func TestHostArchFallback(t *testing.T) {
	withHostArch(t, "i686")
	g, err := New(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "i386", g.Arch())

	withHostArch(t, "aarch64")
	_, err = New(context.Background(), &config.AppImage{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, config.ErrInvalidConfig))
}

func TestResolvePlugins(t *testing.T) {
	plugins, err := ResolvePlugins([]string{
		"qt",
		"https://example.com/releases/linuxdeploy-plugin-gtk.AppImage",
		"https://example.com/linuxdeploy-plugin-gstreamer-x86_64.sh",
		"conda",
	})
	require.NoError(t, err)

	var names []string
	for pair := plugins.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	assert.Equal(t, []string{"qt", "gtk", "gstreamer", "conda"}, names)

	qt, _ := plugins.Get("qt")
	assert.Equal(t, knownPlugins["qt"], qt)
	gtk, _ := plugins.Get("gtk")
	assert.Equal(t, "https://example.com/releases/linuxdeploy-plugin-gtk.AppImage", gtk)
}

func TestResolvePluginsLastWins(t *testing.T) {
	plugins, err := ResolvePlugins([]string{
		"qt",
		"conda",
		"https://example.com/linuxdeploy-plugin-qt-custom.AppImage",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, plugins.Len())
	assert.Equal(t, "qt", plugins.Oldest().Key)
	assert.Equal(t, "https://example.com/linuxdeploy-plugin-qt-custom.AppImage", plugins.Oldest().Value)
}

func TestResolvePluginsErrors(t *testing.T) {
	for _, entry := range []string{
		"nonexistent",
		"https://example.com/some-tool.AppImage",
		"https://example.com/",
	} {
		_, err := ResolvePlugins([]string{entry})
		require.Error(t, err, entry)
		assert.True(t, eris.Is(err, config.ErrInvalidConfig), entry)
	}
}

func TestScript(t *testing.T) {
	build, content := generate(t, parse(t, `
arch: x86_64
linuxdeploy:
  plugins: [qt]
  environment: {QML_SOURCES_PATHS: "$PROJECT_ROOT/qml"}
  raw_environment: ["EXTRA_QT_PLUGINS=$PLUGINS"]
  extra_args: [--icon-file, "$PROJECT_ROOT/icon.png"]
`))

	assert.Contains(t, content, "cd "+build+"\n")
	assert.Contains(t, content, "mkdir -p appimage-build/downloads\ncd appimage-build\n")
	assert.Contains(t, content, "mkdir -p "+filepath.Join(build, "artifacts")+"\n")
	assert.Contains(t, content,
		"wget -c -P downloads https://github.com/linuxdeploy/linuxdeploy/releases/download/continuous/linuxdeploy-x86_64.AppImage\n"+
			"chmod +x downloads/linuxdeploy-x86_64.AppImage\n")
	assert.Contains(t, content,
		"wget -c -P downloads https://github.com/linuxdeploy/linuxdeploy-plugin-qt/releases/download/continuous/linuxdeploy-plugin-qt-x86_64.AppImage\n"+
			"chmod +x downloads/linuxdeploy-plugin-qt*\n")
	assert.Contains(t, content, "QML_SOURCES_PATHS='$PROJECT_ROOT/qml'\nexport QML_SOURCES_PATHS\n")
	assert.Contains(t, content, "EXTRA_QT_PLUGINS=$PLUGINS\nexport EXTRA_QT_PLUGINS\n")
	assert.Contains(t, content,
		"downloads/linuxdeploy-x86_64.AppImage --appdir "+filepath.Join(build, "AppDir")+
			" --output appimage --plugin qt --icon-file $PROJECT_ROOT/icon.png\n")
	assert.Contains(t, content,
		"find . -path ./downloads -prune -o -type f -name '*.AppImage*' -exec mv {} "+filepath.Join(build, "artifacts")+" \\;\n")

	assert.Less(t, strings.Index(content, "export EXTRA_QT_PLUGINS"), strings.Index(content, "--appdir"))
	assert.Less(t, strings.Index(content, "--appdir"), strings.Index(content, "find . -path"))
}

func TestScriptWithoutPlugins(t *testing.T) {
	build, content := generate(t, parse(t, `{arch: i686}`))

	assert.Contains(t, content, "chmod +x downloads/linuxdeploy-i386.AppImage\n")
	assert.Contains(t, content, "downloads/linuxdeploy-i386.AppImage --appdir "+filepath.Join(build, "AppDir")+" --output appimage\n")
	assert.NotContains(t, content, "--plugin")
	assert.NotContains(t, content, "environment variables from")
}

func TestExtraArgs(t *testing.T) {
	for name, tc := range map[string]struct {
		doc  string
		want []string
	}{
		"string": {`{arch: x86_64, linuxdeploy: {extra_args: "--verbosity 1"}}`, []string{"--verbosity 1"}},
		"list":   {`{arch: x86_64, linuxdeploy: {extra_args: [-d, app.desktop]}}`, []string{"-d", "app.desktop"}},
		"null":   {`{arch: x86_64, linuxdeploy: {extra_args: }}`, nil},
		"absent": {`{arch: x86_64, linuxdeploy: {}}`, nil},
	} {
		t.Run(name, func(t *testing.T) {
			g, err := New(context.Background(), parse(t, tc.doc))
			require.NoError(t, err)
			assert.Equal(t, tc.want, g.extraArgs)
		})
	}

	for name, doc := range map[string]string{
		"mapping": `{arch: x86_64, linuxdeploy: {extra_args: {a: b}}}`,
		"number":  `{arch: x86_64, linuxdeploy: {extra_args: 5}}`,
		"nested":  `{arch: x86_64, linuxdeploy: {extra_args: [[a]]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(context.Background(), parse(t, doc))
			require.Error(t, err)
			assert.True(t, eris.Is(err, config.ErrInvalidConfig))
		})
	}
}
