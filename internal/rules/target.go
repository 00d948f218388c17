package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/esungul/UniveralValidator/internal/hierarchy"
	"github.com/esungul/UniveralValidator/internal/ir"
)

// TargetKind is the closed set of places a rule can read a value from.
type TargetKind string

const (
	TargetOrderField    TargetKind = "order-field"    // order.<field>
	TargetHierarchyRole TargetKind = "hierarchy-role" // hierarchy(<role>).<field>
	TargetLiteral       TargetKind = "literal"        // literal(<json scalar>)
)

// TargetKinds returns every target kind.
func TargetKinds() []TargetKind {
	return []TargetKind{TargetOrderField, TargetHierarchyRole, TargetLiteral}
}

var (
	orderFieldPattern = regexp.MustCompile(`^order\.([A-Za-z_][A-Za-z0-9_]*)$`)
	hierarchyPattern  = regexp.MustCompile(`^hierarchy\(([A-Za-z0-9_](?:[A-Za-z0-9_ -]*[A-Za-z0-9_])?)\)\.([A-Za-z_][A-Za-z0-9_]*)$`)
	literalPattern    = regexp.MustCompile(`^literal\((.*)\)$`)
)

// Target is a parsed target specifier.
type Target struct {
	Kind     TargetKind
	Raw      string
	Field    string         // order-field and hierarchy-role
	RoleName string         // hierarchy-role
	Role     hierarchy.Role // hierarchy-role, bound by Load
	Literal  ir.Value       // literal
}

// String returns the specifier as written in configuration.
func (t Target) String() string {
	return t.Raw
}

// ParseTarget parses a target specifier. Role names are not checked here;
// Load binds them against the document's roles.
func ParseTarget(spec string) (Target, error) {
	if m := orderFieldPattern.FindStringSubmatch(spec); m != nil {
		return Target{Kind: TargetOrderField, Raw: spec, Field: m[1]}, nil
	}
	if m := hierarchyPattern.FindStringSubmatch(spec); m != nil {
		return Target{Kind: TargetHierarchyRole, Raw: spec, RoleName: m[1], Field: m[2]}, nil
	}
	if m := literalPattern.FindStringSubmatch(spec); m != nil {
		v, err := parseScalar([]byte(m[1]))
		if err != nil {
			return Target{}, fmt.Errorf("literal %s: %w", m[1], err)
		}
		return Target{Kind: TargetLiteral, Raw: spec, Literal: v}, nil
	}
	return Target{}, fmt.Errorf("malformed target %q: expected order.<field>, hierarchy(<role>).<field> or literal(<value>)", spec)
}

// parseScalar decodes a JSON scalar into an ir.Value.
func parseScalar(data []byte) (ir.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after value")
	}
	return ir.FromAny(raw)
}
