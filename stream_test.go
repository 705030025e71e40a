package cfgenius

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderSink struct{ events []Event }

func (r *recorderSink) OnEvent(ev Event) { r.events = append(r.events, ev) }

// chunkedReader simulates streaming input in tests.
type chunkedReader struct {
	data   string
	chunks []int
	idx    int
	pos    int
}

func newChunkedReader(s string, chunks []int) *chunkedReader {
	return &chunkedReader{data: s, chunks: chunks}
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	if c.idx >= len(c.chunks) {
		c.chunks = append(c.chunks, 8)
	}
	n := c.chunks[c.idx]
	c.idx++
	if c.pos+n > len(c.data) {
		n = len(c.data) - c.pos
	}
	copy(p, c.data[c.pos:c.pos+n])
	c.pos += n
	return n, nil
}

func newTestProcessor(opts ...func(*Processor)) *Processor {
	engine := NewEngine(cfg64(), NewRegistry())
	return NewProcessor(engine, opts...)
}

func Test_Processor(t *testing.T) {
	t.Run("should copy plain text through verbatim", func(t *testing.T) {
		input := "no directives here.\njust text { with } braces! and bangs!\n"
		out, err := newTestProcessor().ProcessString(input)
		require.NoError(t, err)
		assert.Equal(t, input, out)
	})

	t.Run("should expand a cond directive in place", func(t *testing.T) {
		out, err := newTestProcessor().ProcessString(
			"before\ncond! { if cfg(unix) { posix code } else { other code } }\nafter\n")
		require.NoError(t, err)
		assert.Equal(t, "before\nposix code\nafter\n", out)
	})

	t.Run("should expand a cond_expr directive inside an expression", func(t *testing.T) {
		out, err := newTestProcessor().ProcessString(
			`const wordBytes = cond_expr!(if cfg(target_pointer_width = "64") { 8 } else { 4 })` + "\n")
		require.NoError(t, err)
		assert.Equal(t, "const wordBytes = 8\n", out)
	})

	t.Run("should make define bindings visible to later directives", func(t *testing.T) {
		out, err := newTestProcessor().ProcessString(strings.Join([]string{
			`define! { pub is_big = cfg(target_pointer_width = "64") }`,
			`cond! { if macro(is_big) { emit A } else { emit B } }`,
			"",
		}, "\n"))
		require.NoError(t, err)
		assert.Equal(t, "\nemit A\n", out)
	})

	t.Run("should expand identically across chunk boundaries", func(t *testing.T) {
		input := "head text\ncond! { if any(false(), cfg(unix)) { yes tokens } else { no tokens } }\ntail text\n"

		whole, err := newTestProcessor().ProcessString(input)
		require.NoError(t, err)

		var chunked strings.Builder
		err = newTestProcessor().Process(newChunkedReader(input, []int{5, 7, 3, 11, 2}), &chunked)
		require.NoError(t, err)

		assert.Equal(t, whole, chunked.String())
		assert.Equal(t, "head text\nyes tokens\ntail text\n", whole)
	})

	t.Run("should fail on an unterminated directive at EOF", func(t *testing.T) {
		_, err := newTestProcessor().ProcessString("cond! { if true() { never closed ")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unterminated cond! directive")
	})

	t.Run("should reject malformed grammar even in untaken arms", func(t *testing.T) {
		_, err := newTestProcessor().ProcessString(
			"cond! { if false() { fine } else if maybe() { broken } }")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown predicate")
	})
}

func Test_Processor_UnknownDirectives(t *testing.T) {
	input := "vec! { 1, 2, 3 }\n"

	t.Run("should pass unknown directives through by default", func(t *testing.T) {
		out, err := newTestProcessor().ProcessString(input)
		require.NoError(t, err)
		assert.Equal(t, input, out)
	})

	t.Run("should fail on unknown directives under the error policy", func(t *testing.T) {
		_, err := newTestProcessor(WithUnknownPolicy(UnknownError)).ProcessString(input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown directive "vec"`)
	})

	t.Run("should pass through and report under the audit policy", func(t *testing.T) {
		sink := &recorderSink{}
		out, err := newTestProcessor(WithUnknownPolicy(UnknownAudit), WithSink(sink)).ProcessString(input)
		require.NoError(t, err)
		assert.Equal(t, input, out)

		var seen []UnknownDirectiveEvent
		for _, ev := range sink.events {
			if u, ok := ev.(UnknownDirectiveEvent); ok {
				seen = append(seen, u)
			}
		}
		require.Len(t, seen, 1)
		assert.Equal(t, "vec", seen[0].Name)
	})
}

func Test_Processor_Events(t *testing.T) {
	t.Run("should report directive positions and outputs", func(t *testing.T) {
		sink := &recorderSink{}
		_, err := newTestProcessor(WithSink(sink)).ProcessString(strings.Join([]string{
			"line one",
			`define! { flag = true() }`,
			`cond! { if macro(flag) { out } else { none } }`,
			"",
		}, "\n"))
		require.NoError(t, err)

		var defines []DefineEvent
		var expands []ExpandEvent
		for _, ev := range sink.events {
			switch ev := ev.(type) {
			case DefineEvent:
				defines = append(defines, ev)
			case ExpandEvent:
				expands = append(expands, ev)
			}
		}

		require.Len(t, defines, 1)
		assert.Equal(t, []string{"flag"}, defines[0].Names)
		assert.Equal(t, 2, defines[0].Pos.Line)

		require.Len(t, expands, 1)
		assert.Equal(t, DirectiveCond, expands[0].Directive)
		assert.Equal(t, "out", expands[0].Output)
		assert.Equal(t, 3, expands[0].Pos.Line)
	})
}
