package cfgenius

import (
	"fmt"
	"strings"
)

// Predicate is a parsed node of the predicate grammar. The grammar is closed:
// true(), false(), cfg(...), not(...), all(...), any(...), macro(...).
type Predicate interface {
	// Pos reports where the predicate head appears in the directive source.
	Pos() Position
	fmt.Stringer
}

// TruePred always resolves to the yes branch.
type TruePred struct {
	pos Position
}

// FalsePred always resolves to the no branch.
type FalsePred struct {
	pos Position
}

// CfgPred resolves against the compilation configuration.
type CfgPred struct {
	pos  Position
	Cond CfgExpr
}

// NotPred resolves to the opposite branch of its inner predicate.
type NotPred struct {
	pos   Position
	Inner Predicate
}

// AllPred resolves to yes only if every operand does; all() is vacuously yes.
type AllPred struct {
	pos      Position
	Operands []Predicate
}

// AnyPred resolves to yes if at least one operand does; any() is no.
type AnyPred struct {
	pos      Position
	Operands []Predicate
}

// MacroPred delegates resolution to the macro predicate bound to Path.
// Args is the raw token block following "=>", or nil when absent.
type MacroPred struct {
	pos  Position
	Path string
	Args *TokenSeq
}

func (p TruePred) Pos() Position  { return p.pos }
func (p FalsePred) Pos() Position { return p.pos }
func (p CfgPred) Pos() Position   { return p.pos }
func (p NotPred) Pos() Position   { return p.pos }
func (p AllPred) Pos() Position   { return p.pos }
func (p AnyPred) Pos() Position   { return p.pos }
func (p MacroPred) Pos() Position { return p.pos }

func (p TruePred) String() string  { return "true()" }
func (p FalsePred) String() string { return "false()" }
func (p CfgPred) String() string   { return fmt.Sprintf("cfg(%s)", p.Cond) }
func (p NotPred) String() string   { return fmt.Sprintf("not(%s)", p.Inner) }

func (p AllPred) String() string { return joinPreds("all", p.Operands) }
func (p AnyPred) String() string { return joinPreds("any", p.Operands) }

func (p MacroPred) String() string {
	if p.Args != nil {
		return fmt.Sprintf("macro(%s => %s)", p.Path, p.Args.Text)
	}
	return fmt.Sprintf("macro(%s)", p.Path)
}

func joinPreds(head string, preds []Predicate) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", head, strings.Join(parts, ", "))
}

// CfgExpr is a parsed attribute condition, the argument of cfg(...). It has
// its own small grammar: a bare flag, key = "value", and not/all/any over
// those.
type CfgExpr interface {
	fmt.Stringer
}

// CfgFlag tests whether a bare flag (e.g. unix) is set.
type CfgFlag struct {
	Name string
}

// CfgValue tests whether a key carries a given value, e.g.
// target_pointer_width = "64". Keys may carry several values at once.
type CfgValue struct {
	Key   string
	Value string
}

// CfgNot negates a condition.
type CfgNot struct {
	Inner CfgExpr
}

// CfgAll holds iff every operand holds; empty is vacuously true.
type CfgAll struct {
	Operands []CfgExpr
}

// CfgAny holds iff at least one operand holds; empty is false.
type CfgAny struct {
	Operands []CfgExpr
}

func (c CfgFlag) String() string  { return c.Name }
func (c CfgValue) String() string { return fmt.Sprintf("%s = %q", c.Key, c.Value) }
func (c CfgNot) String() string   { return fmt.Sprintf("not(%s)", c.Inner) }
func (c CfgAll) String() string   { return joinCfg("all", c.Operands) }
func (c CfgAny) String() string   { return joinCfg("any", c.Operands) }

func joinCfg(head string, exprs []CfgExpr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%s(%s)", head, strings.Join(parts, ", "))
}
