// Package frontend bridges a type-checked module tree, serialized as JSON by
// the lexer/parser/checker pipeline this repository does not implement (see
// internal/ast's package doc), into the internal/ast shapes the emission
// engine consumes. It owns exactly one concern: decoding, never lexing,
// parsing, or checking.
package frontend

import (
	"encoding/json"
	"os"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/pkg/errors"
)

// LoadModule reads the JSON-encoded module tree at path and decodes it into
// an *ast.Module ready for llvm.Context.Generate.
func LoadModule(path string) (*ast.Module, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	var doc moduleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return doc.toModule()
}
