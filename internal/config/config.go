// Package config loads and validates appimagecraft.yml.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = eris.New("invalid configuration")

// FileVersion is the only supported config file version.
const FileVersion = 1

var (
	validRootKeys    = []string{"version", "project", "build", "environment", "appimage", "scripts"}
	requiredRootKeys = []string{"version", "project", "build"}
)

// Config is the parsed content of a config file.
type Config struct {
	Version     int                 `yaml:"version"`
	Project     Project             `yaml:"project"`
	Build       *Builders           `yaml:"build"`
	Environment *Env                `yaml:"environment"`
	AppImage    *AppImage           `yaml:"appimage"`
	Scripts     map[string][]string `yaml:"scripts"`
}

// Project describes the packaged application.
type Project struct {
	Name string `yaml:"name"`
	// Version takes priority over VersionCommand.
	Version        string `yaml:"version"`
	VersionCommand string `yaml:"version_command"`
}

// AppImage configures the packaging step.
type AppImage struct {
	Arch        string       `yaml:"arch"`
	LinuxDeploy *LinuxDeploy `yaml:"linuxdeploy"`
}

// LinuxDeploy configures the bundling tool.
type LinuxDeploy struct {
	Plugins        Plugins `yaml:"plugins"`
	Environment    *Env    `yaml:"environment"`
	RawEnvironment *Env    `yaml:"raw_environment"`
	// ExtraArgs is either a string or a list of strings; the packaging
	// generator checks the shape.
	ExtraArgs yaml.Node `yaml:"extra_args"`
}

// Plugins lists plugin names or URLs. It may be written as a list, or as a
// mapping whose keys are the entries.
type Plugins []string

func (p *Plugins) UnmarshalYAML(node *yaml.Node) error {
	var entries []string
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&entries); err != nil {
			return eris.Wrapf(ErrInvalidConfig, "line %d: plugins must be strings: %v", node.Line, err)
		}
	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			entries = append(entries, node.Content[i].Value)
		}
	default:
		return eris.Wrapf(ErrInvalidConfig, "line %d: plugins must be a list", node.Line)
	}
	*p = entries
	return nil
}

// Builders maps builder names to their raw, builder specific configuration
// in declaration order.
type Builders struct {
	nodes *orderedmap.OrderedMap[string, *yaml.Node]
}

// NewBuilders returns an empty table.
func NewBuilders() *Builders {
	return &Builders{nodes: orderedmap.New[string, *yaml.Node]()}
}

// Set adds or replaces the configuration of a builder. A nil node stands for
// an empty section.
func (b *Builders) Set(name string, node *yaml.Node) {
	if b.nodes == nil {
		b.nodes = orderedmap.New[string, *yaml.Node]()
	}
	b.nodes.Set(name, node)
}

// Get returns the raw configuration of a builder.
func (b *Builders) Get(name string) (*yaml.Node, bool) {
	if b == nil || b.nodes == nil {
		return nil, false
	}
	return b.nodes.Get(name)
}

// Names returns the builder names in declaration order.
func (b *Builders) Names() []string {
	if b == nil || b.nodes == nil {
		return nil
	}
	names := make([]string, 0, b.nodes.Len())
	for pair := b.nodes.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

func (b *Builders) Len() int {
	if b == nil || b.nodes == nil {
		return 0
	}
	return b.nodes.Len()
}

func (b *Builders) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return eris.Wrapf(ErrInvalidConfig, "line %d: build: data must be in key: value format", node.Line)
	}
	builders := NewBuilders()
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if _, ok := builders.Get(key.Value); ok {
			return eris.Wrapf(ErrInvalidConfig, "line %d: builder %s configured more than once", key.Line, key.Value)
		}
		builders.Set(key.Value, value)
	}
	*b = *builders
	return nil
}

// DefaultBuilder returns the first configured builder.
func (c *Config) DefaultBuilder() (string, bool) {
	names := c.Build.Names()
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// HasBuilder reports whether name is configured in the build section.
func (c *Config) HasBuilder(name string) bool {
	_, ok := c.Build.Get(name)
	return ok
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "config file %s does not exist", path)
		}
		return nil, eris.Wrapf(err, "failed to read config file %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", path)
	}
	return c, nil
}

// Parse decodes and validates a config document. Only the root level is
// validated here; builder sections are checked by the builders themselves.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(ErrInvalidConfig, "malformed YAML: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, eris.Wrap(ErrInvalidConfig, "config is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, eris.Wrap(ErrInvalidConfig, "config must be a mapping")
	}

	keys := make([]string, 0, len(root.Content)/2)
	for i := 0; i < len(root.Content); i += 2 {
		keys = append(keys, root.Content[i].Value)
	}
	if invalid := lo.Without(keys, validRootKeys...); len(invalid) > 0 {
		return nil, eris.Wrapf(ErrInvalidConfig, "invalid key in config: %s", invalid[0])
	}
	if missing := lo.Without(requiredRootKeys, keys...); len(missing) > 0 {
		return nil, eris.Wrapf(ErrInvalidConfig, "missing key in config: %s", missing[0])
	}

	var c Config
	if err := root.Decode(&c); err != nil {
		if eris.Is(err, ErrInvalidConfig) {
			return nil, err
		}
		return nil, eris.Wrapf(ErrInvalidConfig, "%v", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the root level of the configuration.
func (c *Config) Validate() error {
	if c.Version != FileVersion {
		return eris.Wrapf(ErrInvalidConfig, "unsupported config file version: %d", c.Version)
	}
	if c.Project.Name == "" {
		return eris.Wrap(ErrInvalidConfig, "project name missing")
	}
	if err := validateReverseDNS(c.Project.Name); err != nil {
		return err
	}
	if c.Build.Len() == 0 {
		return eris.Wrap(ErrInvalidConfig, "no builder configured in build section")
	}
	return nil
}

// validateReverseDNS accepts names like org.example.app, similar to AppStream
// IDs.
func validateReverseDNS(name string) error {
	segments := strings.Split(name, ".")
	if len(segments) < 2 || lo.Contains(segments, "") {
		return eris.Wrapf(ErrInvalidConfig, "project name must be in reverse DNS format (e.g., org.example.app): %s", name)
	}
	return nil
}
