package cfgenius

import (
	"fmt"
	"strings"
)

// Position represents a position in the directive source.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

// String returns a string representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// ParseError is the base error type for all grammar errors.
type ParseError struct {
	Pos     Position // Position where the error occurred
	Message string   // Error message
	Context string   // Surrounding source for context
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s at %s\nContext: %s", e.Message, e.Pos, e.Context)
	}
	return fmt.Sprintf("%s at %s", e.Message, e.Pos)
}

// UnknownPredicateError reports a predicate head outside the fixed grammar
// (true, false, cfg, not, all, any, macro). It is raised during the upfront
// validation pass, so it fires even inside arms that would never be selected.
type UnknownPredicateError struct {
	ParseError
	Head string // Name of the unrecognized predicate
}

// Error implements the error interface.
func (e *UnknownPredicateError) Error() string {
	return fmt.Sprintf("unknown predicate %q at %s: %s\nContext: %s",
		e.Head, e.Pos, e.Message, e.Context)
}

// UnknownMacroError reports a macro(path) reference whose path is not bound in
// the registry. Unlike grammar errors this surfaces during resolution, so a
// reference that short-circuiting discards is never looked up at all.
type UnknownMacroError struct {
	Pos  Position
	Path string // Dotted path of the unresolved macro
}

// Error implements the error interface.
func (e *UnknownMacroError) Error() string {
	return fmt.Sprintf("no macro predicate bound for %q at %s", e.Path, e.Pos)
}

// MissingElseError reports an expression-form chain with no trailing else.
type MissingElseError struct {
	ParseError
}

// Error implements the error interface.
func (e *MissingElseError) Error() string {
	return fmt.Sprintf("conditional expression requires a trailing else at %s: %s",
		e.Pos, e.Message)
}

// ExprBranchError reports an expression-form arm whose body cannot stand as a
// single expression value (for example, an empty body).
type ExprBranchError struct {
	ParseError
}

// Error implements the error interface.
func (e *ExprBranchError) Error() string {
	return fmt.Sprintf("invalid expression branch at %s: %s\nContext: %s",
		e.Pos, e.Message, e.Context)
}

// ValidationError represents a branch body that failed a registered validator.
type ValidationError struct {
	ParseError
	Directive string // Directive form the branch belongs to (cond, cond_expr, define)
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s branch at %s: %s\nContext: %s",
		e.Directive, e.Pos, e.Message, e.Context)
}

// NewParseError creates a new ParseError with context.
func NewParseError(pos Position, message, source string) *ParseError {
	return &ParseError{
		Pos:     pos,
		Message: message,
		Context: extractContext(source, pos),
	}
}

// NewUnknownPredicateError creates a new UnknownPredicateError.
func NewUnknownPredicateError(pos Position, head, source string) *UnknownPredicateError {
	return &UnknownPredicateError{
		ParseError: ParseError{
			Pos:     pos,
			Message: "expected one of true, false, cfg, not, all, any, macro",
			Context: extractContext(source, pos),
		},
		Head: head,
	}
}

// NewMissingElseError creates a new MissingElseError.
func NewMissingElseError(pos Position, source string) *MissingElseError {
	return &MissingElseError{
		ParseError: ParseError{
			Pos:     pos,
			Message: "every path of a conditional expression must yield a value",
			Context: extractContext(source, pos),
		},
	}
}

// NewExprBranchError creates a new ExprBranchError.
func NewExprBranchError(pos Position, message, source string) *ExprBranchError {
	return &ExprBranchError{
		ParseError: ParseError{
			Pos:     pos,
			Message: message,
			Context: extractContext(source, pos),
		},
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(pos Position, directive, message, source string) *ValidationError {
	return &ValidationError{
		ParseError: ParseError{
			Pos:     pos,
			Message: message,
			Context: extractContext(source, pos),
		},
		Directive: directive,
	}
}

// extractContext extracts a snippet of text around the error position for context.
// It tries to include a few lines before and after the error.
func extractContext(content string, pos Position) string {
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	if pos.Line > len(lines) {
		return content // Fallback if position is out of range
	}

	// Determine the range of lines to include
	startLine := max(0, pos.Line-3)
	endLine := min(len(lines)-1, pos.Line+1)

	// Build the context with line numbers
	var contextBuilder strings.Builder
	for i := startLine; i <= endLine; i++ {
		lineNum := i + 1 // Convert to 1-based line number
		if lineNum == pos.Line {
			// Highlight the error line
			contextBuilder.WriteString(fmt.Sprintf("-> %d: %s\n", lineNum, lines[i]))

			// Add a pointer to the column if possible
			if pos.Column <= len(lines[i])+1 {
				contextBuilder.WriteString(strings.Repeat(" ", pos.Column+5) + "^\n")
			}
		} else {
			contextBuilder.WriteString(fmt.Sprintf("   %d: %s\n", lineNum, lines[i]))
		}
	}

	return contextBuilder.String()
}

// Helper functions
func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a > b {
		return b
	}
	return a
}
