package buildsys

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/appimagecraft/internal/config"
	"github.com/goplus/appimagecraft/internal/shscript"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeBuilder struct{}

func (fakeBuilder) GenerateBuildScript(context.Context, string, string) (string, error) {
	return "build-fake.sh", nil
}

func TestIsNull(t *testing.T) {
	for _, name := range []string{"", "null", "NULL", "Null"} {
		assert.True(t, IsNull(name), name)
	}
	for _, name := range []string{"cmake", "nul", "nullable"} {
		assert.False(t, IsNull(name), name)
	}
}

func TestRegistry(t *testing.T) {
	Register("fake-registry", func(*yaml.Node) (Builder, error) { return fakeBuilder{}, nil })
	t.Cleanup(func() { delete(factories, "fake-registry") })

	b, err := New("fake-registry", nil)
	require.NoError(t, err)
	assert.Equal(t, fakeBuilder{}, b)
	assert.Contains(t, Names(), "fake-registry")

	assert.Panics(t, func() {
		Register("fake-registry", func(*yaml.Node) (Builder, error) { return fakeBuilder{}, nil })
	})
	assert.Panics(t, func() {
		Register("Null", func(*yaml.Node) (Builder, error) { return fakeBuilder{}, nil })
	})
}

func TestUnknownBuilder(t *testing.T) {
	_, err := New("ninja", nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownBuilder))
	assert.Contains(t, err.Error(), "ninja")
}

func TestFactoryError(t *testing.T) {
	Register("fake-broken", func(*yaml.Node) (Builder, error) {
		return nil, eris.Wrap(config.ErrInvalidConfig, "broken")
	})
	t.Cleanup(func() { delete(factories, "fake-broken") })

	_, err := New("fake-broken", nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, config.ErrInvalidConfig))
	assert.False(t, eris.Is(err, ErrUnknownBuilder))
}

func TestResolveSourceDir(t *testing.T) {
	c := Common{}
	assert.Equal(t, "/project", c.ResolveSourceDir("/project"))

	c.SourceDir = "src"
	assert.Equal(t, "/project/src", c.ResolveSourceDir("/project"))

	c.SourceDir = "/elsewhere"
	assert.Equal(t, "/elsewhere", c.ResolveSourceDir("/project"))
}

func TestEnterBuildDir(t *testing.T) {
	s := shscript.New(filepath.Join(t.TempDir(), "x.sh"))
	require.NoError(t, EnterBuildDir(s, "/build dir", "cmake-build"))

	assert.Contains(t, s.Content(), "cd '/build dir'\n\n# build in separate directory to avoid a mess in the build dir\nmkdir -p cmake-build\ncd cmake-build\n")
}

func TestExportEnv(t *testing.T) {
	var c Common
	node := `{environment: {A: "x y"}, raw_environment: ["B=$A"]}`
	require.NoError(t, yaml.Unmarshal([]byte(node), &c))

	s := shscript.New(filepath.Join(t.TempDir(), "x.sh"))
	require.NoError(t, c.ExportEnv(s))

	content := s.Content()
	assert.Contains(t, content, "# environment variables from environment\nA='x y'\nexport A\n\n")
	assert.Contains(t, content, "# environment variables from raw_environment\nB=$A\nexport B\n\n")
	assert.Less(t, strings.Index(content, "export A"), strings.Index(content, "export B"))
}

func TestDecode(t *testing.T) {
	var c Common
	require.NoError(t, Decode(nil, &c))

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`{source_dir: [a]}`), &doc))
	err := Decode(doc.Content[0], &c)
	require.Error(t, err)
	assert.True(t, eris.Is(err, config.ErrInvalidConfig))
}
