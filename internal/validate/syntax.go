package validate

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/syntax"
)

// Syntax parses scripts as bash without running anything.
type Syntax struct{}

func (Syntax) Name() string {
	return "syntax"
}

func (Syntax) SupportedFileTypes() []string {
	return []string{"*.sh", "*.bash"}
}

func (Syntax) Available() bool {
	return true
}

func (Syntax) Validate(_ context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(f, path); err != nil {
		return eris.Wrap(err, "invalid bash syntax")
	}
	return nil
}
