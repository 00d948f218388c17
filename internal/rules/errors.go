package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration issue codes (E100-E199)
const (
	ErrDecode              = "E100" // document could not be decoded
	ErrUndeclaredOrderType = "E101" // rule references an undeclared order type
	ErrUnknownOperator     = "E102" // operator not in the operator table
	ErrMalformedTarget     = "E103" // target specifier syntax error
	ErrConflictingSeverity = "E104" // same order type, target and operator with different severities
	ErrMissingField        = "E105" // required field missing
	ErrInvalidOperand      = "E106" // operand missing, malformed or does not compile
	ErrDuplicateRuleID     = "E107" // two rules share an id
	ErrUnknownRole         = "E108" // target uses an undeclared hierarchy role
	ErrInvalidSeverity     = "E109" // severity not blocking/advisory
	ErrDuplicateAlias      = "E110" // two order types claim the same raw type string
	ErrInvalidRole         = "E111" // role definition is malformed
	ErrInvalidQuantifier   = "E112" // quantifier not one/any/all
)

// Issue is a single problem found in a rule document.
type Issue struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	if i.Path == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Code, i.Path, i.Message)
}

// ConfigError reports every issue found while loading a rule document.
// A ConfigError means no RuleSet was produced; loading never partially
// succeeds.
type ConfigError struct {
	Issues []Issue
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "invalid rule configuration"
	case 1:
		return "invalid rule configuration: " + e.Issues[0].Error()
	}
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Error()
	}
	return fmt.Sprintf("invalid rule configuration (%d issues): %s", len(e.Issues), strings.Join(msgs, "; "))
}

// Has reports whether any issue carries code.
func (e *ConfigError) Has(code string) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// IsConfigError returns true if err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// issues accumulates problems during a load pass.
type issues []Issue

func (is *issues) add(code, path, format string, args ...any) {
	*is = append(*is, Issue{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}
