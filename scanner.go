package cfgenius

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tString // decoded value in token.text
	tLParen
	tRParen
	tLBrace
	tRBrace
	tComma
	tSemi
	tEq
	tArrow // =>
	tDot
)

func (k tokenKind) String() string {
	switch k {
	case tEOF:
		return "end of input"
	case tIdent:
		return "identifier"
	case tString:
		return "string"
	case tLParen:
		return "'('"
	case tRParen:
		return "')'"
	case tLBrace:
		return "'{'"
	case tRBrace:
		return "'}'"
	case tComma:
		return "','"
	case tSemi:
		return "';'"
	case tEq:
		return "'='"
	case tArrow:
		return "'=>'"
	case tDot:
		return "'.'"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	text string
	pos  Position
}

// scanner walks directive source one rune at a time, tracking 1-based
// line/column positions for error reporting.
type scanner struct {
	src  string
	off  int
	line int
	col  int
}

func newScanner(src string) *scanner {
	return &scanner{src: src, line: 1, col: 1}
}

func (s *scanner) pos() Position {
	return Position{Line: s.line, Column: s.col}
}

func (s *scanner) eof() bool { return s.off >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.off]
}

func (s *scanner) peekAt(n int) byte {
	if s.off+n >= len(s.src) {
		return 0
	}
	return s.src[s.off+n]
}

// advance consumes one rune and keeps the line/column counters in sync.
func (s *scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.src[s.off:])
	s.off += size
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

// skipSpace consumes whitespace and // line comments between tokens.
func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\r', '\n':
			s.advance()
		case '/':
			if s.peekAt(1) != '/' {
				return
			}
			for !s.eof() && s.peek() != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

// next scans the next grammar token.
func (s *scanner) next() (token, error) {
	s.skipSpace()
	pos := s.pos()
	if s.eof() {
		return token{kind: tEOF, pos: pos}, nil
	}

	c := s.peek()
	switch {
	case isIdentStart(c):
		start := s.off
		for !s.eof() && isIdentPart(s.peek()) {
			s.advance()
		}
		return token{kind: tIdent, text: s.src[start:s.off], pos: pos}, nil

	case c == '"':
		raw, err := s.scanString()
		if err != nil {
			return token{}, err
		}
		val, err := strconv.Unquote(raw)
		if err != nil {
			return token{}, NewParseError(pos, fmt.Sprintf("invalid string literal %s", raw), s.src)
		}
		return token{kind: tString, text: val, pos: pos}, nil

	case c == '=':
		s.advance()
		if s.peek() == '>' {
			s.advance()
			return token{kind: tArrow, pos: pos}, nil
		}
		return token{kind: tEq, pos: pos}, nil
	}

	s.advance()
	switch c {
	case '(':
		return token{kind: tLParen, pos: pos}, nil
	case ')':
		return token{kind: tRParen, pos: pos}, nil
	case '{':
		return token{kind: tLBrace, pos: pos}, nil
	case '}':
		return token{kind: tRBrace, pos: pos}, nil
	case ',':
		return token{kind: tComma, pos: pos}, nil
	case ';':
		return token{kind: tSemi, pos: pos}, nil
	case '.':
		return token{kind: tDot, pos: pos}, nil
	}
	return token{}, NewParseError(pos, fmt.Sprintf("unexpected character %q", c), s.src)
}

// scanString consumes a double-quoted literal (escapes included) and returns
// the raw text, quotes and all.
func (s *scanner) scanString() (string, error) {
	start := s.off
	startPos := s.pos()
	s.advance() // opening quote
	for !s.eof() {
		switch s.peek() {
		case '\\':
			s.advance()
			if !s.eof() {
				s.advance()
			}
		case '"':
			s.advance()
			return s.src[start:s.off], nil
		case '\n':
			return "", NewParseError(startPos, "unterminated string literal", s.src)
		default:
			s.advance()
		}
	}
	return "", NewParseError(startPos, "unterminated string literal", s.src)
}

// captureBalanced consumes raw text up to (and including) the delimiter that
// closes an already-consumed open delimiter, and returns everything before it
// as an opaque token sequence. Nested delimiters must balance; string
// literals, rune literals, raw strings, and comments are skipped opaquely so
// a stray brace inside them does not count. Branch bodies and macro argument
// blocks are captured this way and never otherwise inspected.
func (s *scanner) captureBalanced(open, close byte) (TokenSeq, error) {
	openPos := s.pos()
	start := s.off
	depth := 1
	for !s.eof() {
		c := s.peek()
		switch c {
		case open:
			depth++
			s.advance()
		case close:
			depth--
			if depth == 0 {
				text := s.src[start:s.off]
				s.advance()
				return TokenSeq{Text: strings.TrimSpace(text), Pos: openPos}, nil
			}
			s.advance()
		case '"', '\'', '`':
			if err := s.skipLiteral(c); err != nil {
				return TokenSeq{}, err
			}
		case '/':
			switch s.peekAt(1) {
			case '/':
				for !s.eof() && s.peek() != '\n' {
					s.advance()
				}
			case '*':
				s.advance()
				s.advance()
				for !s.eof() && !(s.peek() == '*' && s.peekAt(1) == '/') {
					s.advance()
				}
				if !s.eof() {
					s.advance()
					s.advance()
				}
			default:
				s.advance()
			}
		default:
			s.advance()
		}
	}
	return TokenSeq{}, NewParseError(openPos, fmt.Sprintf("unbalanced %q: reached end of input", string(open)), s.src)
}

// skipLiteral consumes a quoted literal starting at quote. Backquoted raw
// strings take no escapes; the others honor backslash escapes.
func (s *scanner) skipLiteral(quote byte) error {
	startPos := s.pos()
	s.advance()
	for !s.eof() {
		c := s.peek()
		if c == '\\' && quote != '`' {
			s.advance()
			if !s.eof() {
				s.advance()
			}
			continue
		}
		s.advance()
		if c == quote {
			return nil
		}
	}
	return NewParseError(startPos, "unterminated literal in captured block", s.src)
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}
