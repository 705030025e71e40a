package cfgenius

// Directive form names, used for validator registration and event reporting.
const (
	DirectiveCond     = "cond"
	DirectiveCondExpr = "cond_expr"
	DirectiveDefine   = "define"
)

// Engine resolves predicates against a compilation configuration and a macro
// registry, and emits exactly one branch per conditional. Resolution is pure:
// the same input always expands to the same output, and nothing happens
// besides producing it.
type Engine struct {
	cfg        *Config
	reg        *Registry
	validators *ValidatorRegistry
}

// NewEngine creates an engine. A nil config means an empty configuration; a
// nil registry means no macro predicates are bound.
func NewEngine(cfg *Config, reg *Registry, opts ...func(*Engine)) *Engine {
	if cfg == nil {
		cfg = NewConfig()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	e := &Engine{cfg: cfg, reg: reg}
	for _, o := range opts {
		o(e)
	}
	return e
}

// WithValidators installs a validator registry; its validators run against
// every parsed branch before resolution starts.
func WithValidators(vr *ValidatorRegistry) func(*Engine) {
	return func(e *Engine) { e.validators = vr }
}

// Config returns the compilation configuration the engine resolves against.
func (e *Engine) Config() *Config { return e.cfg }

// Registry returns the macro registry the engine resolves macro(...) through.
func (e *Engine) Registry() *Registry { return e.reg }

// Expand resolves a statement-form chain:
//
//	if pred() { tokens } else if pred() { tokens } else { tokens }
//
// and returns the selected branch's tokens verbatim. The trailing else is
// optional; if no arm matches and there is none, the result is empty. The
// whole chain is parsed and validated before any arm is resolved.
func (e *Engine) Expand(src string) (string, error) {
	ch, err := ParseChain(src)
	if err != nil {
		return "", err
	}
	if err := e.validateChain(DirectiveCond, ch); err != nil {
		return "", err
	}
	out, err := e.resolveChain(ch, 0)
	if err != nil {
		return "", err
	}
	seq, err := out.force()
	if err != nil {
		return "", err
	}
	return seq.Text, nil
}

// ExpandExpr resolves the expression form. With a chain, every arm must be a
// single expression and a trailing else is mandatory; the selected arm's
// expression is returned. With a bare predicate, the result is the literal
// "true" or "false".
func (e *Engine) ExpandExpr(src string) (string, error) {
	p, err := newParser(src)
	if err != nil {
		return "", err
	}

	// Bare-predicate shorthand: anything not starting with "if".
	if !(p.tok.kind == tIdent && p.tok.text == "if") {
		pred, err := p.parsePredicate()
		if err != nil {
			return "", err
		}
		if _, err := p.expect(tEOF); err != nil {
			return "", err
		}
		out, err := e.resolve(pred,
			Lit(TokenSeq{Text: "true", Pos: pred.Pos()}),
			Lit(TokenSeq{Text: "false", Pos: pred.Pos()}))
		if err != nil {
			return "", err
		}
		seq, err := out.force()
		if err != nil {
			return "", err
		}
		return seq.Text, nil
	}

	ch, err := p.parseChain()
	if err != nil {
		return "", err
	}
	if ch.Else == nil {
		return "", NewMissingElseError(ch.Pos, src)
	}
	for _, cl := range ch.Clauses {
		if cl.Body.Text == "" {
			return "", NewExprBranchError(cl.Body.Pos, "branch must be a single expression", src)
		}
	}
	if ch.Else.Text == "" {
		return "", NewExprBranchError(ch.Else.Pos, "branch must be a single expression", src)
	}
	if err := e.validateChain(DirectiveCondExpr, ch); err != nil {
		return "", err
	}

	out, err := e.resolveChain(ch, 0)
	if err != nil {
		return "", err
	}
	seq, err := out.force()
	if err != nil {
		return "", err
	}
	return seq.Text, nil
}

// Define resolves variable declarations of the form
//
//	pub name = predicate; other = predicate
//
// binding each name to the Truthy or Falsy selector according to its
// predicate's result. Definitions are processed left to right, so a later
// definition may reference an earlier one from the same call. Returns the
// bound names in declaration order.
func (e *Engine) Define(src string) ([]string, error) {
	defs, err := ParseDefinitions(src)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		yes := Lit(TokenSeq{Text: "yes", Pos: def.Pos})
		no := Lit(TokenSeq{Text: "no", Pos: def.Pos})
		out, err := e.resolve(def.Pred, yes, no)
		if err != nil {
			return nil, err
		}
		seq, err := out.force()
		if err != nil {
			return nil, err
		}
		selector := Falsy
		if seq.Text == "yes" {
			selector = Truthy
		}
		e.reg.RegisterScoped(def.Name, def.Vis, selector)
		names = append(names, def.Name)
	}
	return names, nil
}

// validateChain runs registered branch validators over every arm, selected or
// not, before resolution begins.
func (e *Engine) validateChain(directive string, ch *Chain) error {
	if e.validators == nil {
		return nil
	}
	for _, cl := range ch.Clauses {
		if err := e.validators.ValidateBranch(directive, cl.Body); err != nil {
			return err
		}
	}
	if ch.Else != nil {
		if err := e.validators.ValidateBranch(directive, *ch.Else); err != nil {
			return err
		}
	}
	return nil
}

// resolveChain desugars "if P1 {B1} else if P2 {B2} ... else {Bn}" into
// nested single-level resolutions: test the clause at i, falling through to
// the rest of the chain on the no side. The fallthrough is deferred so
// untaken tails are never resolved.
func (e *Engine) resolveChain(ch *Chain, i int) (Branch, error) {
	if i == len(ch.Clauses) {
		if ch.Else != nil {
			return Lit(*ch.Else), nil
		}
		// No trailing else: implicit empty branch.
		return Lit(TokenSeq{Pos: ch.Pos}), nil
	}
	cl := ch.Clauses[i]
	return e.resolve(cl.Pred,
		Lit(cl.Body),
		deferred(func() (Branch, error) { return e.resolveChain(ch, i+1) }))
}

// resolve selects one of the two branches according to the predicate. It is
// the heart of the engine: primitives terminate, not swaps the branches,
// all/any right-fold with the untested remainder kept behind a deferred
// branch so short-circuiting never touches it, and macro delegates to the
// registry. The returned branch is left unforced; only the finally selected
// path is ever forced.
func (e *Engine) resolve(pred Predicate, yes, no Branch) (Branch, error) {
	switch p := pred.(type) {
	case TruePred:
		return yes, nil

	case FalsePred:
		return no, nil

	case CfgPred:
		if e.cfg.Eval(p.Cond) {
			return yes, nil
		}
		return no, nil

	case NotPred:
		return e.resolve(p.Inner, no, yes)

	case AllPred:
		if len(p.Operands) == 0 {
			return yes, nil // vacuous truth
		}
		rest := AllPred{pos: p.pos, Operands: p.Operands[1:]}
		return e.resolve(p.Operands[0],
			deferred(func() (Branch, error) { return e.resolve(rest, yes, no) }),
			no)

	case AnyPred:
		if len(p.Operands) == 0 {
			return no, nil
		}
		rest := AnyPred{pos: p.pos, Operands: p.Operands[1:]}
		return e.resolve(p.Operands[0],
			yes,
			deferred(func() (Branch, error) { return e.resolve(rest, yes, no) }))

	case MacroPred:
		m, ok := e.reg.lookup(p.Path)
		if !ok {
			return Branch{}, &UnknownMacroError{Pos: p.Pos(), Path: p.Path}
		}
		return m.Expand(p.Args, yes, no)
	}

	return Branch{}, NewParseError(pred.Pos(), "unsupported predicate", "")
}
