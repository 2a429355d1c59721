package shscript

import (
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/syntax"
)

// Quote returns s in a form bash reads back as a single word with the same
// value. Strings which need no quoting are returned unchanged.
func Quote(s string) (string, error) {
	quoted, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "", eris.Wrapf(err, "cannot quote %q", s)
	}
	return quoted, nil
}

// QuoteAll quotes every argument and joins them with spaces.
func QuoteAll(args ...string) (string, error) {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		q, err := Quote(arg)
		if err != nil {
			return "", err
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " "), nil
}
