package frontend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/codegen/llvm"
)

const addModuleJSON = `{
  "name": "arith",
  "decls": [
    {
      "kind": "func",
      "name": "add",
      "vis": "public",
      "params": [
        {"name": "a", "type": {"kind": "primitive", "primitive": "I32"}},
        {"name": "b", "type": {"kind": "primitive", "primitive": "I32"}}
      ],
      "returnType": {"kind": "primitive", "primitive": "I32"},
      "body": {
        "stmts": [
          {
            "kind": "return",
            "value": {
              "kind": "binary", "op": "add",
              "type": {"kind": "primitive", "primitive": "I32"},
              "left": {"kind": "ident", "name": "a", "type": {"kind": "primitive", "primitive": "I32"}},
              "right": {"kind": "ident", "name": "b", "type": {"kind": "primitive", "primitive": "I32"}}
            }
          }
        ]
      }
    }
  ]
}`

func TestLoadModuleDecodesAndGenerates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arith.json")
	if err := os.WriteFile(path, []byte(addModuleJSON), 0o644); err != nil {
		t.Fatalf("writeFile error = %v", err)
	}

	mod, err := LoadModule(path)
	if err != nil {
		t.Fatalf("LoadModule error = %v", err)
	}
	if mod.Name != "arith" {
		t.Fatalf("mod.Name = %q, want arith", mod.Name)
	}
	if len(mod.Decls) != 1 {
		t.Fatalf("len(mod.Decls) = %d, want 1", len(mod.Decls))
	}

	ctx := llvm.NewContext(llvm.Options{})
	out, err := ctx.Generate(mod)
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "define external i32 @tml_add(i32 %arg0.in, i32 %arg1.in)") {
		t.Errorf("expected the decoded function to generate, got:\n%s", out)
	}
	if !strings.Contains(out, "add i32") {
		t.Errorf("expected the decoded binary expression to lower to add, got:\n%s", out)
	}
}

func TestLoadModuleRejectsUnknownDeclKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"name": "bad", "decls": [{"kind": "bogus"}]}`), 0o644); err != nil {
		t.Fatalf("writeFile error = %v", err)
	}
	if _, err := LoadModule(path); err == nil {
		t.Error("expected an error decoding an unknown declaration kind")
	}
}
