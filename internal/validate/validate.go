// Package validate checks generated scripts with the available linters.
package validate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Validator checks a single file.
type Validator interface {
	Name() string

	// SupportedFileTypes returns glob patterns matched against the base name
	// of a file.
	SupportedFileTypes() []string

	// Available reports whether the validator can run on this host.
	Available() bool

	Validate(ctx context.Context, path string) error
}

// Error is a failed validation of one file by one validator.
type Error struct {
	Validator string
	Path      string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: validation of %s failed: %v", e.Validator, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ForPath returns the available validators which support path, in the order
// given.
func ForPath(ctx context.Context, path string, validators ...Validator) []Validator {
	log := zerolog.Ctx(ctx)
	name := filepath.Base(path)

	var matching []Validator
	for _, v := range validators {
		if !supports(v, name) {
			continue
		}
		if !v.Available() {
			log.Debug().Str("component", "validate").Str("validator", v.Name()).Msg("validator not available, skipping")
			continue
		}
		matching = append(matching, v)
	}
	return matching
}

func supports(v Validator, name string) bool {
	for _, pattern := range v.SupportedFileTypes() {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// File runs every matching available validator on path. All failures are
// collected; the result is nil or a *multierror.Error of *Error values.
func File(ctx context.Context, path string, validators ...Validator) error {
	log := zerolog.Ctx(ctx)

	var result *multierror.Error
	for _, v := range ForPath(ctx, path, validators...) {
		log.Debug().Str("component", "validate").Str("validator", v.Name()).Str("path", path).Msg("validating")
		if err := v.Validate(ctx, path); err != nil {
			result = multierror.Append(result, &Error{Validator: v.Name(), Path: path, Err: err})
		}
	}
	return result.ErrorOrNil()
}
