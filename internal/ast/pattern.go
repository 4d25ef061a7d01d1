package ast

// Pattern is one `when` arm pattern. An or-pattern is a single OrPattern
// holding its alternatives inside one MatchArm; the tree has no separate
// arm per alternative.
type Pattern interface {
	patternNode()
}

// WildcardPattern matches anything, binding nothing (`_`).
type WildcardPattern struct{}

func (WildcardPattern) patternNode() {}

// BindPattern matches anything, binding it to a name.
type BindPattern struct{ Name string }

func (BindPattern) patternNode() {}

// LiteralPattern matches an exact literal value.
type LiteralPattern struct{ Value Literal }

func (LiteralPattern) patternNode() {}

// VariantPattern matches an enum variant, optionally destructuring payload
// fields into bindings.
type VariantPattern struct {
	EnumName    string
	VariantName string
	Bindings    []string
}

func (VariantPattern) patternNode() {}

// OrPattern matches if any alternative matches.
type OrPattern struct{ Alts []Pattern }

func (OrPattern) patternNode() {}
