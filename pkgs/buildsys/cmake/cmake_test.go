package cmake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/pkgs/buildsys"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func section(t *testing.T, doc string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &node))
	if node.Kind == 0 {
		return nil
	}
	return node.Content[0]
}

func generate(t *testing.T, doc string) (root, build, content string) {
	t.Helper()
	root = t.TempDir()
	build = t.TempDir()

	c, err := New(section(t, doc))
	require.NoError(t, err)

	name, err := c.GenerateBuildScript(context.Background(), root, build)
	require.NoError(t, err)
	assert.Equal(t, ScriptName, name)

	data, err := os.ReadFile(filepath.Join(build, name))
	require.NoError(t, err)
	return root, build, string(data)
}

func lines(content string) []string {
	return strings.Split(content, "\n")
}

func TestDefaultScript(t *testing.T) {
	root, build, content := generate(t, `{}`)

	assert.Contains(t, lines(content), "cmake -DCMAKE_INSTALL_PREFIX=/usr -DCMAKE_BUILD_TYPE=Release "+root)
	assert.Contains(t, lines(content), "cd "+build)
	assert.Contains(t, lines(content), "mkdir -p cmake-build")
	assert.Contains(t, lines(content), buildsys.MakeParallel)
	assert.Contains(t, lines(content), "make install DESTDIR="+filepath.Join(build, "AppDir"))
	assert.NotContains(t, content, "cpack")
	assert.Contains(t, content, "export PROJECT_ROOT")
}

func TestEmptySection(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"CMAKE_INSTALL_PREFIX", "/usr"},
		{"CMAKE_BUILD_TYPE", "Release"},
	}, c.Variables())
}

func TestExtraVariables(t *testing.T) {
	for name, doc := range map[string]string{
		"list":    `{extra_variables: ["CMAKE_BUILD_TYPE=Debug", "FOO=a b"]}`,
		"mapping": `{extra_variables: {CMAKE_BUILD_TYPE: Debug, FOO: a b}}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, err := New(section(t, doc))
			require.NoError(t, err)
			assert.Equal(t, [][2]string{
				{"CMAKE_INSTALL_PREFIX", "/usr"},
				{"CMAKE_BUILD_TYPE", "Debug"},
				{"FOO", "a b"},
			}, c.Variables())
		})
	}

	root, _, content := generate(t, `{extra_variables: ["FOO=a b"]}`)
	assert.Contains(t, lines(content), "cmake -DCMAKE_INSTALL_PREFIX=/usr -DCMAKE_BUILD_TYPE=Release -DFOO='a b' "+root)
}

func TestInvalidVariableName(t *testing.T) {
	_, err := New(section(t, `{extra_variables: {"MY VAR": 1}}`))
	require.Error(t, err)
	assert.True(t, eris.Is(err, config.ErrInvalidConfig))
}

func TestSourceDir(t *testing.T) {
	root, _, content := generate(t, `{source_dir: src}`)
	assert.Contains(t, content, "-DCMAKE_BUILD_TYPE=Release "+filepath.Join(root, "src")+"\n")

	_, _, content = generate(t, `{source_dir: /opt/src}`)
	assert.Contains(t, content, "-DCMAKE_BUILD_TYPE=Release /opt/src\n")
}

func TestEnvironment(t *testing.T) {
	_, _, content := generate(t, `{environment: {CC: clang}, raw_environment: ["CFLAGS=$EXTRA"]}`)

	assert.Contains(t, content, "# environment variables from environment\nCC=clang\nexport CC\n")
	assert.Contains(t, content, "# environment variables from raw_environment\nCFLAGS=$EXTRA\nexport CFLAGS\n")
	assert.Less(t, strings.Index(content, "export CFLAGS"), strings.Index(content, "mkdir -p cmake-build"))
}

func TestCPack(t *testing.T) {
	_, _, content := generate(t, `{cpack: {}}`)
	assert.Contains(t, lines(content), "cpack -V")

	_, _, content = generate(t, `{cpack: }`)
	assert.Contains(t, lines(content), "cpack -V")

	_, _, content = generate(t, `{cpack: {generators: [ZIP, TGZ]}}`)
	assert.Contains(t, content, "cpack -V ZIP\ncpack -V TGZ\n")
	assert.NotContains(t, lines(content), "cpack -V")
}

func TestCPackInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"lowercase":  `{cpack: {generators: [zip]}}`,
		"mixed":      `{cpack: {generators: [Zip]}}`,
		"not a list": `{cpack: {generators: ZIP}}`,
		"scalar":     `{cpack: yes}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(section(t, doc))
			require.Error(t, err)
			assert.True(t, eris.Is(err, config.ErrInvalidConfig))
		})
	}
}

func TestRegistered(t *testing.T) {
	b, err := buildsys.New("cmake", nil)
	require.NoError(t, err)
	assert.IsType(t, &CMake{}, b)
}
