package config

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Env is an ordered set of environment variables. In YAML it is written
// either as a mapping or as a list of KEY=VALUE strings; both decode to the
// same Env.
type Env struct {
	vars *orderedmap.OrderedMap[string, string]
}

// NewEnv returns an empty Env.
func NewEnv() *Env {
	return &Env{vars: orderedmap.New[string, string]()}
}

// ParseEnvList converts a list of KEY=VALUE strings. Only the first "="
// separates key and value. Keys must be unique.
func ParseEnvList(list []string) (*Env, error) {
	env := NewEnv()
	for _, item := range list {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, eris.Wrapf(ErrInvalidConfig, "invalid environment entry %q, expected KEY=VALUE", item)
		}
		if err := env.Add(key, value); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Add appends a variable. Empty keys, keys containing whitespace and keys
// that are already present are rejected.
func (e *Env) Add(name, value string) error {
	if err := ValidateVarName(name); err != nil {
		return err
	}
	if e.vars == nil {
		e.vars = orderedmap.New[string, string]()
	}
	if _, ok := e.vars.Get(name); ok {
		return eris.Wrapf(ErrInvalidConfig, "keys must be unique (%s occurred more than once)", name)
	}
	e.vars.Set(name, value)
	return nil
}

// Get returns the value of name.
func (e *Env) Get(name string) (string, bool) {
	if e == nil || e.vars == nil {
		return "", false
	}
	return e.vars.Get(name)
}

// Len returns the number of variables.
func (e *Env) Len() int {
	if e == nil || e.vars == nil {
		return 0
	}
	return e.vars.Len()
}

// Each calls fn for every variable in declaration order and stops at the
// first error.
func (e *Env) Each(fn func(name, value string) error) error {
	if e == nil || e.vars == nil {
		return nil
	}
	for pair := e.vars.Oldest(); pair != nil; pair = pair.Next() {
		if err := fn(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the variable names in declaration order.
func (e *Env) Names() []string {
	names := make([]string, 0, e.Len())
	_ = e.Each(func(name, _ string) error {
		names = append(names, name)
		return nil
	})
	return names
}

func (e *Env) UnmarshalYAML(node *yaml.Node) error {
	env := NewEnv()

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return eris.Wrapf(ErrInvalidConfig, "line %d: value of %s must be a scalar", value.Line, key.Value)
			}
			v := value.Value
			if value.ShortTag() == "!!null" {
				v = ""
			}
			if err := env.Add(key.Value, v); err != nil {
				return eris.Wrapf(err, "line %d", key.Line)
			}
		}

	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return eris.Wrapf(ErrInvalidConfig, "line %d: environment list must contain KEY=VALUE strings: %v", node.Line, err)
		}
		parsed, err := ParseEnvList(list)
		if err != nil {
			return eris.Wrapf(err, "line %d", node.Line)
		}
		env = parsed

	default:
		return eris.Wrapf(ErrInvalidConfig, "line %d: environment must be a mapping or a list of KEY=VALUE strings", node.Line)
	}

	*e = *env
	return nil
}

// ValidateVarName rejects names which cannot be used as a shell variable or
// a -D definition.
func ValidateVarName(name string) error {
	if name == "" {
		return eris.Wrap(ErrInvalidConfig, "variable name must not be empty")
	}
	if strings.ContainsFunc(name, unicode.IsSpace) {
		return eris.Wrapf(ErrInvalidConfig, "invalid key format: %q contains whitespace", name)
	}
	return nil
}
