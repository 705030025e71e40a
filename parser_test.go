package cfgenius

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseChain(t *testing.T) {
	t.Run("should parse a full else-if chain", func(t *testing.T) {
		ch, err := ParseChain(`
			if cfg(unix) { a }
			else if all(true(), not(false())) { b }
			else { c }
		`)
		require.NoError(t, err)
		require.Len(t, ch.Clauses, 2)
		assert.Equal(t, `cfg(unix)`, ch.Clauses[0].Pred.String())
		assert.Equal(t, "a", ch.Clauses[0].Body.Text)
		assert.Equal(t, `all(true(), not(false()))`, ch.Clauses[1].Pred.String())
		require.NotNil(t, ch.Else)
		assert.Equal(t, "c", ch.Else.Text)
	})

	t.Run("should parse a chain without a trailing else", func(t *testing.T) {
		ch, err := ParseChain(`if true() { a } else if false() { b }`)
		require.NoError(t, err)
		assert.Len(t, ch.Clauses, 2)
		assert.Nil(t, ch.Else)
	})

	t.Run("should capture macro argument blocks raw", func(t *testing.T) {
		ch, err := ParseChain(`if macro(target.pick => (nested, "parens )") rest) { a } else { b }`)
		require.NoError(t, err)

		mp, ok := ch.Clauses[0].Pred.(MacroPred)
		require.True(t, ok)
		assert.Equal(t, "target.pick", mp.Path)
		require.NotNil(t, mp.Args)
		assert.Equal(t, `(nested, "parens )") rest`, mp.Args.Text)
	})

	t.Run("should reject an unknown predicate head", func(t *testing.T) {
		_, err := ParseChain(`if maybe() { a } else { b }`)
		require.Error(t, err)

		var unknown *UnknownPredicateError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "maybe", unknown.Head)
	})

	t.Run("should reject malformed grammar in a never-taken position", func(t *testing.T) {
		// all(false(), ...) short-circuits, but the whole chain is parsed
		// before any resolution, so the bad tail is still caught.
		_, err := ParseChain(`if all(false(), bogus) { a } else { b }`)
		require.Error(t, err)

		_, err = ParseChain(`if false() { a } else if maybe() { b } else { c }`)
		var unknown *UnknownPredicateError
		require.True(t, errors.As(err, &unknown))
	})

	t.Run("should reject unbalanced branch delimiters", func(t *testing.T) {
		_, err := ParseChain(`if true() { a `)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unbalanced")
	})

	t.Run("should reject trailing tokens after the chain", func(t *testing.T) {
		_, err := ParseChain(`if true() { a } else { b } extra`)
		require.Error(t, err)
	})

	t.Run("should report positions in grammar errors", func(t *testing.T) {
		_, err := ParseChain("if true() { a }\nelse if maybe() { b }\nelse { c }")
		require.Error(t, err)

		var unknown *UnknownPredicateError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, 2, unknown.Pos.Line)
	})
}

func Test_ParsePredicate(t *testing.T) {
	t.Run("should parse the cfg condition grammar", func(t *testing.T) {
		pred, err := ParsePredicate(`cfg(all(unix, not(target_pointer_width = "32"), any()))`)
		require.NoError(t, err)

		cp, ok := pred.(CfgPred)
		require.True(t, ok)
		all, ok := cp.Cond.(CfgAll)
		require.True(t, ok)
		require.Len(t, all.Operands, 3)
		assert.Equal(t, CfgFlag{Name: "unix"}, all.Operands[0])
		assert.Equal(t, CfgNot{Inner: CfgValue{Key: "target_pointer_width", Value: "32"}}, all.Operands[1])
		assert.Equal(t, CfgAny{}, all.Operands[2])
	})

	t.Run("should parse nested compound predicates", func(t *testing.T) {
		pred, err := ParsePredicate(`any(all(), not(macro(a.b)), true())`)
		require.NoError(t, err)
		assert.Equal(t, `any(all(), not(macro(a.b)), true())`, pred.String())
	})

	t.Run("should require parentheses on primitives", func(t *testing.T) {
		_, err := ParsePredicate(`true`)
		require.Error(t, err)
	})

	t.Run("should reject input past the predicate", func(t *testing.T) {
		_, err := ParsePredicate(`true() false()`)
		require.Error(t, err)
	})
}

func Test_ParseDefinitions(t *testing.T) {
	t.Run("should parse visibility, names and predicates", func(t *testing.T) {
		defs, err := ParseDefinitions(`
			pub is_big = cfg(target_pointer_width = "64");
			has_simd = all(macro(is_big), cfg(feature = "simd"));
		`)
		require.NoError(t, err)
		require.Len(t, defs, 2)

		assert.Equal(t, Public, defs[0].Vis)
		assert.Equal(t, "is_big", defs[0].Name)
		assert.Equal(t, `cfg(target_pointer_width = "64")`, defs[0].Pred.String())

		assert.Equal(t, Private, defs[1].Vis)
		assert.Equal(t, "has_simd", defs[1].Name)
	})

	t.Run("should accept a single definition without a semicolon", func(t *testing.T) {
		defs, err := ParseDefinitions(`flag = true()`)
		require.NoError(t, err)
		require.Len(t, defs, 1)
		assert.Equal(t, "flag", defs[0].Name)
	})

	t.Run("should reject a definition without a predicate", func(t *testing.T) {
		_, err := ParseDefinitions(`name = ;`)
		require.Error(t, err)
	})
}

func Test_Scanner(t *testing.T) {
	t.Run("should skip line comments between tokens", func(t *testing.T) {
		pred, err := ParsePredicate("all( // platform gate\n\ttrue(),\n\tfalse()\n)")
		require.NoError(t, err)
		assert.Equal(t, `all(true(), false())`, pred.String())
	})

	t.Run("should decode string escapes in cfg values", func(t *testing.T) {
		pred, err := ParsePredicate(`cfg(feature = "a\"b")`)
		require.NoError(t, err)
		cp := pred.(CfgPred)
		assert.Equal(t, CfgValue{Key: "feature", Value: `a"b`}, cp.Cond)
	})

	t.Run("should reject unterminated strings", func(t *testing.T) {
		_, err := ParsePredicate(`cfg(feature = "oops)`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unterminated")
	})
}
