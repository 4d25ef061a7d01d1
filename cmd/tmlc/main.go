// Command tmlc drives the LLVM IR emission engine end to end: it takes a
// type-checked module (produced by the separate lexer/parser/checker
// pipeline that this repository does not implement — see internal/ast's
// package doc) and writes the generated .ll text to stdout or a file.
package main

import (
	"flag"
	"fmt"
	"os"

	llvm "github.com/hivellm/tml-sub014/internal/codegen/llvm"
	"github.com/hivellm/tml-sub014/internal/frontend"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: tmlc [flags] <module.json>\n\n")
		fmt.Fprintf(os.Stderr, "Emits LLVM IR for a type-checked module tree.\n\n")
		flag.PrintDefaults()
	}

	out := flag.String("o", "", "output .ll path (default: stdout)")
	debug := flag.Bool("g", false, "emit debug info")
	debugLevel := flag.Int("debug-level", 2, "DWARF debug info level")
	coverage := flag.Bool("coverage", false, "instrument for coverage")
	dllExport := flag.Bool("dllexport", false, "mark public symbols dllexport")
	internalLinkage := flag.Bool("internal", false, "force internal linkage on every symbol")
	suiteIndex := flag.Int("suite-index", 0, "test suite index, for derive symbol namespacing")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	mod, err := frontend.LoadModule(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmlc: %v\n", err)
		os.Exit(1)
	}

	opts := llvm.Options{
		EmitDebugInfo:        *debug,
		DebugLevel:           *debugLevel,
		CoverageEnabled:      *coverage,
		DLLExport:            *dllExport,
		ForceInternalLinkage: *internalLinkage,
		SuiteTestIndex:       int32(*suiteIndex),
	}
	ctx := llvm.NewContext(opts)

	ir, err := ctx.Generate(mod)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmlc: codegen failed: %v\n", err)
		os.Exit(1)
	}
	if ctx.Diags.HasErrors() {
		for _, d := range ctx.Diags.All() {
			fmt.Fprintln(os.Stderr, d.String())
		}
		os.Exit(1)
	}

	if *out == "" {
		fmt.Print(ir)
		return
	}
	if err := os.WriteFile(*out, []byte(ir), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "tmlc: writing %s: %v\n", *out, err)
		os.Exit(1)
	}
}
