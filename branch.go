package cfgenius

// TokenSeq is an opaque run of raw source text together with the position it
// was captured at. The engine never interprets the contents of a TokenSeq; it
// only reproduces one of them verbatim in its output.
type TokenSeq struct {
	Text string
	Pos  Position
}

// Branch is one of the two alternatives handed to a predicate resolution. A
// Branch may be deferred: the continuations built while folding all(...) and
// any(...) (and while desugaring an else-if chain) are thunks that are only
// forced if that path is actually selected. This is what keeps short-circuit
// semantics intact: a macro reference sitting behind an untaken path is never
// invoked, and its branches are never constructed.
//
// Branch values are opaque. A MacroPredicate receives two of them and must
// hand one back unchanged; it has no way to look inside.
type Branch struct {
	seq  TokenSeq
	next func() (Branch, error) // nil for a literal branch
}

// Lit wraps a token sequence as an immediately available branch.
func Lit(seq TokenSeq) Branch {
	return Branch{seq: seq}
}

// deferred wraps a continuation that produces a branch only when forced.
func deferred(next func() (Branch, error)) Branch {
	return Branch{next: next}
}

// force runs deferred continuations until a literal branch remains.
func (b Branch) force() (TokenSeq, error) {
	for b.next != nil {
		var err error
		b, err = b.next()
		if err != nil {
			return TokenSeq{}, err
		}
	}
	return b.seq, nil
}
