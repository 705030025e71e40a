package cfgenius

import (
	"fmt"
	"strings"
)

// Clause is one "if predicate { body }" arm of a chain.
type Clause struct {
	Pred Predicate
	Body TokenSeq
}

// Chain is a fully parsed conditional: one or more arms plus an optional
// trailing else body. Parsing consumes and validates the whole chain before
// any arm is resolved, so malformed grammar inside a never-taken arm is still
// rejected.
type Chain struct {
	Pos     Position
	Clauses []Clause
	Else    *TokenSeq
}

// Definition is one parsed "name = predicate" binding.
type Definition struct {
	Pos  Position
	Vis  Visibility
	Name string
	Pred Predicate
}

type parser struct {
	src string
	sc  *scanner
	tok token
}

func newParser(src string) (*parser, error) {
	p := &parser{src: src, sc: newScanner(src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) next() error {
	tok, err := p.sc.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.tok
	if tok.kind != kind {
		return token{}, NewParseError(tok.pos,
			fmt.Sprintf("expected %s, found %s", kind, p.describe(tok)), p.src)
	}
	return tok, p.next()
}

// expectKeyword consumes an identifier with an exact spelling.
func (p *parser) expectKeyword(word string) (token, error) {
	tok := p.tok
	if tok.kind != tIdent || tok.text != word {
		return token{}, NewParseError(tok.pos,
			fmt.Sprintf("expected %q, found %s", word, p.describe(tok)), p.src)
	}
	return tok, p.next()
}

// acceptKeyword consumes the identifier if it matches and reports whether it did.
func (p *parser) acceptKeyword(word string) (bool, error) {
	if p.tok.kind == tIdent && p.tok.text == word {
		return true, p.next()
	}
	return false, nil
}

func (p *parser) describe(tok token) string {
	if tok.kind == tIdent {
		return fmt.Sprintf("%q", tok.text)
	}
	return tok.kind.String()
}

// parseBlock captures the raw body of a brace-delimited block. Contents are
// opaque: only delimiter balance is checked.
func (p *parser) parseBlock() (TokenSeq, error) {
	if p.tok.kind != tLBrace {
		return TokenSeq{}, NewParseError(p.tok.pos,
			fmt.Sprintf("expected '{', found %s", p.describe(p.tok)), p.src)
	}
	// The lookahead token is the '{' itself, so the scanner sits just past it.
	seq, err := p.sc.captureBalanced('{', '}')
	if err != nil {
		return TokenSeq{}, err
	}
	return seq, p.next()
}

// parsePredicate parses one predicate of the closed grammar.
func (p *parser) parsePredicate() (Predicate, error) {
	head := p.tok
	if head.kind != tIdent {
		return nil, NewParseError(head.pos,
			fmt.Sprintf("expected a predicate, found %s", p.describe(head)), p.src)
	}
	if err := p.next(); err != nil {
		return nil, err
	}

	switch head.text {
	case "true", "false":
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		if head.text == "true" {
			return TruePred{pos: head.pos}, nil
		}
		return FalsePred{pos: head.pos}, nil

	case "cfg":
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		cond, err := p.parseCfgExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return CfgPred{pos: head.pos, Cond: cond}, nil

	case "not":
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		inner, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return NotPred{pos: head.pos, Inner: inner}, nil

	case "all", "any":
		operands, err := p.parsePredicateList()
		if err != nil {
			return nil, err
		}
		if head.text == "all" {
			return AllPred{pos: head.pos, Operands: operands}, nil
		}
		return AnyPred{pos: head.pos, Operands: operands}, nil

	case "macro":
		return p.parseMacroPred(head.pos)
	}

	return nil, NewUnknownPredicateError(head.pos, head.text, p.src)
}

func (p *parser) parsePredicateList() ([]Predicate, error) {
	if _, err := p.expect(tLParen); err != nil {
		return nil, err
	}
	var operands []Predicate
	if p.tok.kind == tRParen {
		return operands, p.next()
	}
	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		operands = append(operands, pred)
		if p.tok.kind == tComma {
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tRParen); err != nil {
		return nil, err
	}
	return operands, nil
}

// parseMacroPred parses macro(path) and macro(path => raw args).
func (p *parser) parseMacroPred(pos Position) (Predicate, error) {
	if _, err := p.expect(tLParen); err != nil {
		return nil, err
	}
	seg, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	path := []string{seg.text}
	for p.tok.kind == tDot {
		if err := p.next(); err != nil {
			return nil, err
		}
		seg, err = p.expect(tIdent)
		if err != nil {
			return nil, err
		}
		path = append(path, seg.text)
	}

	pred := MacroPred{pos: pos, Path: strings.Join(path, ".")}
	switch p.tok.kind {
	case tArrow:
		// The scanner sits just past "=>"; everything up to the paren that
		// closes the macro(...) head is the opaque argument block.
		args, err := p.sc.captureBalanced('(', ')')
		if err != nil {
			return nil, err
		}
		pred.Args = &args
		return pred, p.next()
	case tRParen:
		return pred, p.next()
	}
	return nil, NewParseError(p.tok.pos,
		fmt.Sprintf("expected '=>' or ')', found %s", p.describe(p.tok)), p.src)
}

// parseCfgExpr parses the attribute-condition grammar inside cfg(...).
func (p *parser) parseCfgExpr() (CfgExpr, error) {
	id, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}

	switch id.text {
	case "not":
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		inner, err := p.parseCfgExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return CfgNot{Inner: inner}, nil

	case "all", "any":
		if _, err := p.expect(tLParen); err != nil {
			return nil, err
		}
		var operands []CfgExpr
		if p.tok.kind != tRParen {
			for {
				e, err := p.parseCfgExpr()
				if err != nil {
					return nil, err
				}
				operands = append(operands, e)
				if p.tok.kind == tComma {
					if err := p.next(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		if id.text == "all" {
			return CfgAll{Operands: operands}, nil
		}
		return CfgAny{Operands: operands}, nil
	}

	if p.tok.kind == tEq {
		if err := p.next(); err != nil {
			return nil, err
		}
		val, err := p.expect(tString)
		if err != nil {
			return nil, err
		}
		return CfgValue{Key: id.text, Value: val.text}, nil
	}
	return CfgFlag{Name: id.text}, nil
}

// parseChain parses a full "if ... else if ... else ..." chain and requires
// the input to end there.
func (p *parser) parseChain() (*Chain, error) {
	ch := &Chain{Pos: p.tok.pos}
	if _, err := p.expectKeyword("if"); err != nil {
		return nil, err
	}
	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		ch.Clauses = append(ch.Clauses, Clause{Pred: pred, Body: body})

		hasElse, err := p.acceptKeyword("else")
		if err != nil {
			return nil, err
		}
		if !hasElse {
			break
		}
		hasIf, err := p.acceptKeyword("if")
		if err != nil {
			return nil, err
		}
		if hasIf {
			continue
		}
		body, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
		ch.Else = &body
		break
	}
	if _, err := p.expect(tEOF); err != nil {
		return nil, err
	}
	return ch, nil
}

// parseDefinitions parses "[pub] name = predicate" bindings separated by
// semicolons, with an optional trailing semicolon.
func (p *parser) parseDefinitions() ([]Definition, error) {
	var defs []Definition
	for {
		pos := p.tok.pos
		vis := Private
		isPub, err := p.acceptKeyword("pub")
		if err != nil {
			return nil, err
		}
		if isPub {
			vis = Public
		}
		name, err := p.expect(tIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tEq); err != nil {
			return nil, err
		}
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		defs = append(defs, Definition{Pos: pos, Vis: vis, Name: name.text, Pred: pred})

		if p.tok.kind == tSemi {
			if err := p.next(); err != nil {
				return nil, err
			}
			if p.tok.kind == tEOF {
				break
			}
			continue
		}
		if _, err := p.expect(tEOF); err != nil {
			return nil, err
		}
		break
	}
	return defs, nil
}

// ParseChain parses and validates a conditional chain without resolving it.
func ParseChain(src string) (*Chain, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	return p.parseChain()
}

// ParsePredicate parses a single bare predicate, requiring it to span the
// whole input.
func ParsePredicate(src string) (Predicate, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	pred, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tEOF); err != nil {
		return nil, err
	}
	return pred, nil
}

// ParseDefinitions parses a variable-declaration body without binding it.
func ParseDefinitions(src string) ([]Definition, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	return p.parseDefinitions()
}
