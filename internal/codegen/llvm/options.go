package llvm

import "strconv"

// Options are the driver-facing knobs passed to NewContext. Every field
// follows §6's options table verbatim.
type Options struct {
	// EmitDebugInfo attaches DI scopes and location metadata.
	EmitDebugInfo bool
	// DebugLevel: with EmitDebugInfo set, 2 or more adds parameter debug
	// records to the per-function ones. No level emits statement locations
	// or local-variable records.
	DebugLevel int
	// CoverageEnabled injects tml_cover_func at function entry.
	CoverageEnabled bool
	// DLLExport annotates public functions with dllexport.
	DLLExport bool
	// ForceInternalLinkage puts the engine in test-suite mode: every
	// function internal, suite prefix enabled.
	ForceInternalLinkage bool
	// SuiteTestIndex, when >= 0 and ForceInternalLinkage is set, is used as
	// the sN_ prefix for derived-method names. Type names and generic
	// instantiation names are not prefixed.
	SuiteTestIndex int32
}

// SuitePrefix returns the "sN_" prefix to apply to test-local symbols, or
// "" when suite mode is off.
func (o Options) SuitePrefix() string {
	if o.ForceInternalLinkage && o.SuiteTestIndex >= 0 {
		return suitePrefixFor(o.SuiteTestIndex)
	}
	return ""
}

func suitePrefixFor(idx int32) string {
	return "s" + strconv.FormatInt(int64(idx), 10) + "_"
}
