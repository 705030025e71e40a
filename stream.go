package cfgenius

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// UnknownDirectivePolicy decides what happens to "name! { ... }" markers the
// processor does not recognize.
type UnknownDirectivePolicy int

const (
	UnknownPassthrough UnknownDirectivePolicy = iota // copy through untouched
	UnknownError                                     // fail processing
	UnknownAudit                                     // copy through, but report via the sink
)

// ===== Events =====

type Event interface{ isEvent() }

// TextEvent is a run of plain text copied through verbatim.
type TextEvent struct {
	Content string
}

func (TextEvent) isEvent() {}

// ExpandEvent is one resolved cond!/cond_expr! directive.
type ExpandEvent struct {
	Directive string // DirectiveCond or DirectiveCondExpr
	Pos       Position
	Output    string
}

func (ExpandEvent) isEvent() {}

// DefineEvent is one processed define! directive.
type DefineEvent struct {
	Pos   Position
	Names []string // bound names in declaration order
}

func (DefineEvent) isEvent() {}

// UnknownDirectiveEvent reports a passed-through unrecognized marker under
// the audit policy.
type UnknownDirectiveEvent struct {
	Name string
	Pos  Position
}

func (UnknownDirectiveEvent) isEvent() {}

// ===== Sink =====

type EventSink interface {
	OnEvent(ev Event)
}

type EventSinkFunc func(ev Event)

func (f EventSinkFunc) OnEvent(ev Event) { f(ev) }

// ===== Processor =====

// Directive marker: an identifier, a bang, then an opening bracket.
var markerRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)!\s*([({])`)

// Processor streams source text, copying plain text through and expanding
// embedded cond! { ... }, cond_expr!( ... ) and define! { ... } directives in
// place. Directives buffer until their balanced closing delimiter arrives;
// everything else flows through incrementally.
type Processor struct {
	engine *Engine
	policy UnknownDirectivePolicy
	sink   EventSink
}

func NewProcessor(engine *Engine, opts ...func(*Processor)) *Processor {
	p := &Processor{engine: engine, policy: UnknownPassthrough}
	for _, o := range opts {
		o(p)
	}
	return p
}

func WithUnknownPolicy(policy UnknownDirectivePolicy) func(*Processor) {
	return func(p *Processor) { p.policy = policy }
}

func WithSink(sink EventSink) func(*Processor) {
	return func(p *Processor) { p.sink = sink }
}

// Process reads from r in chunks and incrementally writes the expanded text
// to w. It keeps expanding as long as the buffer contains a complete unit.
// At EOF, it drains the buffer by repeatedly calling tryExpand until no
// progress; an unterminated directive at that point is an error.
func (p *Processor) Process(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	run := &procRun{proc: p, w: w, line: 1, col: 1}
	var buf bytes.Buffer

	for {
		chunk := make([]byte, 4096)
		n, err := br.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			// Expand as much as we can from the current buffer.
			for {
				progress, perr := run.tryExpand(&buf, false)
				if perr != nil {
					return perr
				}
				if !progress {
					break
				}
			}
		}
		if err == io.EOF {
			// Fully drain whatever remains after the last read.
			for {
				progress, perr := run.tryExpand(&buf, true)
				if perr != nil {
					return perr
				}
				if !progress {
					break
				}
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ProcessString expands a whole source string in one call.
func (p *Processor) ProcessString(src string) (string, error) {
	var out strings.Builder
	if err := p.Process(strings.NewReader(src), &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

// procRun is the per-Process state: the output writer plus the position of
// the next unconsumed byte, for directive error reporting.
type procRun struct {
	proc *Processor
	w    io.Writer
	line int
	col  int
}

func (r *procRun) pos() Position { return Position{Line: r.line, Column: r.col} }

func (r *procRun) emit(ev Event) {
	if r.proc.sink != nil {
		r.proc.sink.OnEvent(ev)
	}
}

// flush writes n consumed bytes through verbatim and advances the position.
func (r *procRun) flush(buf *bytes.Buffer, n int) error {
	b := buf.Next(n)
	if _, err := r.w.Write(b); err != nil {
		return err
	}
	r.advance(b)
	r.emit(TextEvent{Content: string(b)})
	return nil
}

func (r *procRun) advance(b []byte) {
	for _, c := range b {
		if c == '\n' {
			r.line++
			r.col = 1
		} else {
			r.col++
		}
	}
}

// tryExpand consumes at most one unit from the buffer: a run of plain text,
// or one complete directive. It reports whether it made progress.
func (r *procRun) tryExpand(buf *bytes.Buffer, atEOF bool) (bool, error) {
	b := buf.Bytes()
	if len(b) == 0 {
		return false, nil
	}

	loc := markerRe.FindSubmatchIndex(b)
	if loc == nil {
		// No marker in sight. Hold back a possible marker prefix unless the
		// input is finished.
		keep := 0
		if !atEOF {
			keep = markerPrefixLen(b)
		}
		if len(b) > keep {
			return true, r.flush(buf, len(b)-keep)
		}
		return false, nil
	}

	if loc[0] > 0 {
		// Plain text before the marker.
		return true, r.flush(buf, loc[0])
	}

	name := string(b[loc[2]:loc[3]])
	open := b[loc[4]]
	close := byte(')')
	if open == '{' {
		close = '}'
	}
	end, ok := findBalancedBlock(b, loc[5], open, close)
	if !ok {
		if atEOF {
			return false, NewParseError(r.pos(),
				fmt.Sprintf("unterminated %s! directive", name), string(b))
		}
		return false, nil // wait for the closing delimiter
	}

	dirPos := r.pos()
	body := string(b[loc[5] : end-1])

	switch name {
	case DirectiveCond:
		out, err := r.proc.engine.Expand(body)
		if err != nil {
			return false, fmt.Errorf("cond! directive at %s: %w", dirPos, err)
		}
		if _, err := r.w.Write([]byte(out)); err != nil {
			return false, err
		}
		r.emit(ExpandEvent{Directive: DirectiveCond, Pos: dirPos, Output: out})

	case DirectiveCondExpr:
		out, err := r.proc.engine.ExpandExpr(body)
		if err != nil {
			return false, fmt.Errorf("cond_expr! directive at %s: %w", dirPos, err)
		}
		if _, err := r.w.Write([]byte(out)); err != nil {
			return false, err
		}
		r.emit(ExpandEvent{Directive: DirectiveCondExpr, Pos: dirPos, Output: out})

	case DirectiveDefine:
		names, err := r.proc.engine.Define(body)
		if err != nil {
			return false, fmt.Errorf("define! directive at %s: %w", dirPos, err)
		}
		r.emit(DefineEvent{Pos: dirPos, Names: names})

	default:
		switch r.proc.policy {
		case UnknownError:
			return false, NewParseError(dirPos,
				fmt.Sprintf("unknown directive %q", name), string(b[:end]))
		case UnknownAudit:
			r.emit(UnknownDirectiveEvent{Name: name, Pos: dirPos})
			fallthrough
		default:
			// Pass the whole marker and block through untouched.
			if _, err := r.w.Write(b[:end]); err != nil {
				return false, err
			}
		}
	}

	r.advance(b[:end])
	buf.Next(end)
	return true, nil
}

// markerPrefixLen reports how many trailing bytes could still grow into a
// directive marker once more input arrives.
func markerPrefixLen(b []byte) int {
	i := len(b)
	// Trailing whitespace after a bang may precede the bracket.
	for i > 0 && (b[i-1] == ' ' || b[i-1] == '\t' || b[i-1] == '\r' || b[i-1] == '\n') {
		i--
	}
	if i > 0 && b[i-1] == '!' {
		i--
	}
	for i > 0 && isIdentPart(b[i-1]) {
		i--
	}
	return len(b) - i
}

// findBalancedBlock scans from start (just past the opening delimiter) to the
// matching closing delimiter, skipping string/rune/raw literals and comments
// so their brackets do not count. Returns the index just past the close.
func findBalancedBlock(b []byte, start int, open, close byte) (end int, ok bool) {
	depth := 1
	i := start
	for i < len(b) {
		switch c := b[i]; c {
		case open:
			depth++
			i++
		case close:
			depth--
			i++
			if depth == 0 {
				return i, true
			}
		case '"', '\'', '`':
			j, ok := skipQuoted(b, i, c)
			if !ok {
				return 0, false
			}
			i = j
		case '/':
			if i+1 < len(b) && b[i+1] == '/' {
				for i < len(b) && b[i] != '\n' {
					i++
				}
			} else if i+1 < len(b) && b[i+1] == '*' {
				j := bytes.Index(b[i+2:], []byte("*/"))
				if j == -1 {
					return 0, false
				}
				i += 2 + j + 2
			} else {
				i++
			}
		default:
			i++
		}
	}
	return 0, false
}

// skipQuoted advances past a quoted literal starting at i; backquoted raw
// strings take no escapes.
func skipQuoted(b []byte, i int, quote byte) (int, bool) {
	i++
	for i < len(b) {
		c := b[i]
		if c == '\\' && quote != '`' {
			i += 2
			continue
		}
		i++
		if c == quote {
			return i, true
		}
	}
	return 0, false
}
