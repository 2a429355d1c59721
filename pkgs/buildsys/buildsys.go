package buildsys

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrUnknownBuilder is returned by New for names nobody registered.
var ErrUnknownBuilder = eris.New("unknown builder")

// Builder emits the build script of one native build system (CMake, qmake,
// Autotools, etc). Implementations configure, build and install the project
// into the AppDir below the build directory.
type Builder interface {
	// GenerateBuildScript writes the script into buildDir and returns its
	// base name. Both directories must be absolute.
	GenerateBuildScript(ctx context.Context, projectRootDir, buildDir string) (string, error)
}

// Factory creates a Builder from its raw configuration section. The node is
// nil or a null node for empty sections.
type Factory func(cfg *yaml.Node) (Builder, error)

var factories = map[string]Factory{}

// Register makes a builder available under name. It is meant to be called
// from init functions.
func Register(name string, factory Factory) {
	if IsNull(name) {
		panic(fmt.Sprintf("buildsys: %q is reserved for the null builder", name))
	}
	if _, ok := factories[name]; ok {
		panic(fmt.Sprintf("buildsys: builder %s registered twice", name))
	}
	factories[name] = factory
}

// New looks up the builder called name and constructs it from cfg.
func New(name string, cfg *yaml.Node) (Builder, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownBuilder, "could not find matching builder for name: %s", name)
	}
	b, err := factory(cfg)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid configuration for builder %s", name)
	}
	return b, nil
}

// Names returns all registered builder names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsNull reports whether name selects the null builder, which produces no
// script at all. Any capitalization of "null" is reserved for it.
func IsNull(name string) bool {
	return name == "" || strings.EqualFold(name, "null")
}
