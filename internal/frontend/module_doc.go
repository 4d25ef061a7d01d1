package frontend

import (
	"github.com/hivellm/tml-sub014/internal/ast"
)

// moduleDoc is the JSON shape of a whole compilation unit: a name and an
// ordered declaration list. Cross-module imports are resolved by the driver
// wiring multiple loaded modules together, not by this package.
type moduleDoc struct {
	Name  string    `json:"name"`
	Decls []declDoc `json:"decls"`
}

func (m *moduleDoc) toModule() (*ast.Module, error) {
	decls := make([]ast.Decl, len(m.Decls))
	for i := range m.Decls {
		d, err := m.Decls[i].toDecl()
		if err != nil {
			return nil, err
		}
		decls[i] = d
	}
	return ast.NewModule(m.Name, decls), nil
}
