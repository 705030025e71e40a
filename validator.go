package cfgenius

import (
	"fmt"
	"regexp"
)

// Validator is an interface for validating branch bodies. Validators run
// during the upfront validation pass, so they see every branch of a chain,
// including the arms that resolution later discards.
type Validator interface {
	// Validate checks one captured branch body.
	// Returns nil if valid, or an error if invalid.
	Validate(directive string, branch TokenSeq) error
}

// RegexValidator validates branch bodies against a regular expression.
type RegexValidator struct {
	Pattern     *regexp.Regexp
	Description string // Human-readable description of what the pattern expects
}

// Validate implements the Validator interface.
func (v *RegexValidator) Validate(directive string, branch TokenSeq) error {
	if !v.Pattern.MatchString(branch.Text) {
		return NewValidationError(
			branch.Pos,
			directive,
			fmt.Sprintf("branch does not match expected pattern: %s", v.Description),
			branch.Text,
		)
	}
	return nil
}

// FuncValidator uses a custom function to validate branch bodies.
type FuncValidator struct {
	ValidateFunc func(directive string, branch TokenSeq) error
}

// Validate implements the Validator interface.
func (v *FuncValidator) Validate(directive string, branch TokenSeq) error {
	return v.ValidateFunc(directive, branch)
}

// ValidatorRegistry manages validators per directive form.
type ValidatorRegistry struct {
	validators map[string][]Validator
}

// NewValidatorRegistry creates a new validator registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{
		validators: make(map[string][]Validator),
	}
}

// Register adds a validator for a directive form (DirectiveCond,
// DirectiveCondExpr). Multiple validators can be registered for the same form.
func (r *ValidatorRegistry) Register(directive string, validator Validator) {
	if validator == nil {
		return
	}
	r.validators[directive] = append(r.validators[directive], validator)
}

// RegisterRegex creates and registers a RegexValidator.
func (r *ValidatorRegistry) RegisterRegex(directive, pattern, description string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern for directive %s: %w", directive, err)
	}

	r.Register(directive, &RegexValidator{
		Pattern:     re,
		Description: description,
	})
	return nil
}

// RegisterFunc creates and registers a FuncValidator.
func (r *ValidatorRegistry) RegisterFunc(directive string, validateFunc func(string, TokenSeq) error) {
	r.Register(directive, &FuncValidator{
		ValidateFunc: validateFunc,
	})
}

// ValidateBranch validates one branch body for a directive form.
// Returns nil if valid, or an error if any validator fails.
func (r *ValidatorRegistry) ValidateBranch(directive string, branch TokenSeq) error {
	validators, ok := r.validators[directive]
	if !ok {
		// No validators registered for this directive form
		return nil
	}

	for _, validator := range validators {
		if err := validator.Validate(directive, branch); err != nil {
			return err
		}
	}

	return nil
}
