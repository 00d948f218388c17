package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/esungul/UniveralValidator/internal/hierarchy"
	"github.com/esungul/UniveralValidator/internal/ir"
)

// DefaultReasonField is the order field the filter reads reasons from.
const DefaultReasonField = "reason"

// DefaultSkipReasonsContaining applies when order_filter does not set
// skip_reasons_containing at all. An explicit empty list disables it.
var DefaultSkipReasonsContaining = []string{"disconnect"}

// Load validates an already-decoded rule document and builds a RuleSet.
//
// Every problem is collected before returning; the error is a *ConfigError
// listing all of them. Load performs no I/O and never returns a partially
// built RuleSet. Loading the same document twice yields RuleSets that
// evaluate identically and share a digest.
func Load(doc map[string]any) (*RuleSet, error) {
	d, normalized, err := decodeDocument(doc)
	if err != nil {
		return nil, &ConfigError{Issues: []Issue{{Code: ErrDecode, Message: err.Error()}}}
	}

	l := &loader{
		rs: &RuleSet{
			orderTypes: make(map[string]OrderType),
			classify:   make(map[string]string),
			roles:      make(map[string]hierarchy.Role),
		},
	}

	if d.Version != 0 && d.Version != ir.RuleDocumentVersion {
		l.is.add(ErrDecode, "version", "unsupported rule document version %d (want %d)", d.Version, ir.RuleDocumentVersion)
	}

	l.loadSelection(d.Selection)
	l.loadFilter(d.OrderFilter)
	l.loadOrderTypes(d.OrderTypes)
	l.loadRoles(d.Roles)
	l.loadRules(d.Rules)

	if len(l.is) > 0 {
		return nil, &ConfigError{Issues: l.is}
	}

	digest, err := ir.RuleSetDigest(normalized)
	if err != nil {
		return nil, &ConfigError{Issues: []Issue{{Code: ErrDecode, Message: err.Error()}}}
	}
	l.rs.digest = digest
	return l.rs, nil
}

// decodeDocument round-trips doc through JSON so YAML, JSON and CUE inputs
// share one strict decoder. It also returns the normalized map used for
// the digest.
func decodeDocument(doc map[string]any) (document, map[string]any, error) {
	var d document
	data, err := json.Marshal(doc)
	if err != nil {
		return d, nil, fmt.Errorf("encode document: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return d, nil, fmt.Errorf("decode document: %w", err)
	}

	normalized := map[string]any{}
	dec = json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&normalized); err != nil {
		return d, nil, fmt.Errorf("decode document: %w", err)
	}
	return d, normalized, nil
}

type loader struct {
	is issues
	rs *RuleSet
}

func (l *loader) loadSelection(s selectionDoc) {
	l.rs.selection = Selection{Discriminator: strings.TrimSpace(s.Discriminator)}
}

func (l *loader) loadFilter(f filterDoc) {
	filter := Filter{
		ReasonField:           f.ReasonField,
		IgnoreReasons:         slices.Clone(f.IgnoreOrderReasons),
		IgnoreTypes:           slices.Clone(f.IgnoreOrderTypes),
		SkipReasonsContaining: slices.Clone(f.SkipReasonsContaining),
	}
	if filter.ReasonField == "" {
		filter.ReasonField = DefaultReasonField
	}
	if f.SkipReasonsContaining == nil {
		filter.SkipReasonsContaining = slices.Clone(DefaultSkipReasonsContaining)
	}
	l.rs.filter = filter
}

func (l *loader) loadOrderTypes(types map[string]orderTypeDoc) {
	names := sortedKeys(types)
	for _, name := range names {
		path := "order_types." + name
		if strings.TrimSpace(name) == "" {
			l.is.add(ErrMissingField, path, "order type name is empty")
			continue
		}
		if name == AllOrderTypes {
			l.is.add(ErrDuplicateAlias, path, "%q is reserved for rules that apply to every order type", AllOrderTypes)
			continue
		}

		doc := types[name]
		l.rs.orderTypes[name] = OrderType{
			Name:        name,
			Description: doc.Description,
			Aliases:     slices.Clone(doc.Aliases),
		}
		l.claim(path, name, name)
		for i, alias := range doc.Aliases {
			l.claim(fmt.Sprintf("%s.aliases[%d]", path, i), alias, name)
		}
	}
}

// claim maps a raw type string to an order type, rejecting collisions.
func (l *loader) claim(path, raw, orderType string) {
	key := classifyKey(raw)
	if key == "" {
		l.is.add(ErrMissingField, path, "alias is empty")
		return
	}
	if owner, taken := l.rs.classify[key]; taken && owner != orderType {
		l.is.add(ErrDuplicateAlias, path, "%q already maps to order type %q", raw, owner)
		return
	}
	l.rs.classify[key] = orderType
}

func (l *loader) loadRoles(roles map[string]roleDoc) {
	for _, name := range sortedKeys(roles) {
		path := "roles." + name
		doc := roles[name]
		role := hierarchy.Role{
			Name:     name,
			Anchor:   doc.Anchor,
			Relation: hierarchy.Relation(doc.Relation),
			Type:     doc.Type,
		}
		if strings.TrimSpace(name) == "" {
			l.is.add(ErrInvalidRole, path, "role name is empty")
			continue
		}
		if role.Anchor == "" {
			l.is.add(ErrInvalidRole, path+".anchor", "anchor asset type is required")
		}
		if !role.Relation.Valid() {
			l.is.add(ErrInvalidRole, path+".relation", "unknown relation %q (want one of %v)", doc.Relation, hierarchy.Relations())
		}
		l.rs.roles[name] = role
	}
}

func (l *loader) loadRules(docs []ruleDoc) {
	seen := make(map[string]int)
	paths := make([]string, 0, len(docs))
	for i, doc := range docs {
		path := fmt.Sprintf("rules[%d]", i)
		if doc.ID != "" {
			if first, dup := seen[doc.ID]; dup {
				l.is.add(ErrDuplicateRuleID, path+".id", "rule id %q already used by rules[%d]", doc.ID, first)
			} else {
				seen[doc.ID] = i
			}
		}
		rule, ok := l.buildRule(path, doc)
		if ok {
			l.rs.rules = append(l.rs.rules, rule)
			paths = append(paths, path)
		}
	}
	l.checkSeverityConflicts(paths)
}

func (l *loader) buildRule(path string, doc ruleDoc) (Rule, bool) {
	before := len(l.is)
	r := Rule{
		ID:          doc.ID,
		Description: doc.Description,
		OrderTypes:  slices.Clone(doc.OrderTypes),
		Operator:    Operator(doc.Operator),
		Optional:    doc.Optional,
		Expression:  doc.Expression,
	}

	if doc.ID == "" {
		l.is.add(ErrMissingField, path+".id", "id is required")
	}

	if len(doc.OrderTypes) == 0 {
		l.is.add(ErrMissingField, path+".order_types", "at least one order type is required")
	}
	for i, t := range doc.OrderTypes {
		if t == AllOrderTypes {
			continue
		}
		if _, ok := l.rs.orderTypes[t]; !ok {
			l.is.add(ErrUndeclaredOrderType, fmt.Sprintf("%s.order_types[%d]", path, i), "order type %q is not declared", t)
		}
	}

	if doc.Target == "" {
		l.is.add(ErrMissingField, path+".target", "target is required")
	} else if target, ok := l.parseTarget(path+".target", doc.Target); ok {
		r.Target = target
	}

	if doc.Ref != "" {
		if ref, ok := l.parseTarget(path+".ref", doc.Ref); ok {
			r.Ref = &ref
		}
	}

	switch doc.Severity {
	case "", string(ir.SeverityBlocking):
		r.Severity = ir.SeverityBlocking
	case string(ir.SeverityAdvisory):
		r.Severity = ir.SeverityAdvisory
	default:
		l.is.add(ErrInvalidSeverity, path+".severity", "severity must be %q or %q, got %q", ir.SeverityBlocking, ir.SeverityAdvisory, doc.Severity)
	}

	switch Quantifier(doc.Quantifier) {
	case "", QuantifierOne:
		r.Quantifier = QuantifierOne
	case QuantifierAny, QuantifierAll:
		r.Quantifier = Quantifier(doc.Quantifier)
	default:
		l.is.add(ErrInvalidQuantifier, path+".quantifier", "quantifier must be one, any or all, got %q", doc.Quantifier)
	}

	for i, n := range doc.Normalize {
		switch Normalization(n) {
		case NormalizeTrim, NormalizeCaseFold:
			r.Normalize = append(r.Normalize, Normalization(n))
		default:
			l.is.add(ErrInvalidOperand, fmt.Sprintf("%s.normalize[%d]", path, i), "unknown normalization %q", n)
		}
	}

	switch {
	case doc.Operator == "":
		l.is.add(ErrMissingField, path+".operator", "operator is required")
	case !r.Operator.Valid():
		l.is.add(ErrUnknownOperator, path+".operator", "unknown operator %q", doc.Operator)
	default:
		l.loadOperands(path, doc, &r)
	}

	return r, len(l.is) == before
}

// parseTarget parses a specifier and binds its hierarchy role.
func (l *loader) parseTarget(path, spec string) (Target, bool) {
	target, err := ParseTarget(spec)
	if err != nil {
		l.is.add(ErrMalformedTarget, path, "%v", err)
		return Target{}, false
	}
	if target.Kind == TargetHierarchyRole {
		role, ok := l.rs.roles[target.RoleName]
		if !ok {
			l.is.add(ErrUnknownRole, path, "hierarchy role %q is not declared", target.RoleName)
			return Target{}, false
		}
		target.Role = role
	}
	return target, true
}

func (l *loader) loadOperands(path string, doc ruleDoc, r *Rule) {
	switch r.Operator {
	case OpEquals, OpNotEquals:
		hasValue := doc.Value != nil
		if hasValue == (doc.Ref != "") {
			l.is.add(ErrInvalidOperand, path, "%s requires exactly one of value or ref", r.Operator)
			return
		}
		if hasValue {
			v, err := parseScalar(doc.Value)
			if err != nil {
				l.is.add(ErrInvalidOperand, path+".value", "%v", err)
				return
			}
			r.Value = v
		}

	case OpPresent:

	case OpMatchesPattern:
		if doc.Pattern == "" {
			l.is.add(ErrMissingField, path+".pattern", "matches-pattern requires pattern")
			return
		}
		re, err := regexp.Compile(doc.Pattern)
		if err != nil {
			l.is.add(ErrInvalidOperand, path+".pattern", "invalid pattern: %v", err)
			return
		}
		r.Pattern = re

	case OpOneOf:
		if len(doc.Values) == 0 {
			l.is.add(ErrMissingField, path+".values", "one-of requires a non-empty values list")
			return
		}
		for i, raw := range doc.Values {
			v, err := parseScalar(raw)
			if err != nil {
				l.is.add(ErrInvalidOperand, fmt.Sprintf("%s.values[%d]", path, i), "%v", err)
				continue
			}
			r.Values = append(r.Values, v)
		}

	case OpNumericRange:
		if doc.Min == nil && doc.Max == nil {
			l.is.add(ErrMissingField, path, "numeric-range requires min, max or both")
			return
		}
		if doc.Min != nil && doc.Max != nil && *doc.Min > *doc.Max {
			l.is.add(ErrInvalidOperand, path, "min %v is greater than max %v", *doc.Min, *doc.Max)
			return
		}
		r.Min, r.Max = doc.Min, doc.Max

	case OpHierarchyConsistency:
		if doc.Ref == "" {
			l.is.add(ErrMissingField, path+".ref", "hierarchy-consistency requires ref")
			return
		}
		if r.Ref != nil && r.Ref.Kind != TargetHierarchyRole {
			l.is.add(ErrMalformedTarget, path+".ref", "hierarchy-consistency ref must be a hierarchy(<role>).<field> specifier")
		}

	case OpExpression:
		if strings.TrimSpace(doc.Expression) == "" {
			l.is.add(ErrMissingField, path+".expression", "expression requires a CEL expression")
			return
		}
		prg, err := compileExpression(doc.Expression)
		if err != nil {
			l.is.add(ErrInvalidOperand, path+".expression", "%v", err)
			return
		}
		r.program = prg

	case OpLogic:
		if len(doc.Logic) == 0 || string(doc.Logic) == "null" {
			l.is.add(ErrMissingField, path+".logic", "logic requires a JSONLogic rule")
			return
		}
		if err := validateLogic(doc.Logic); err != nil {
			l.is.add(ErrInvalidOperand, path+".logic", "%v", err)
			return
		}
		r.Logic = slices.Clone(doc.Logic)
	}
}

// checkSeverityConflicts rejects rules that target the same value with the
// same operator for the same order type but disagree on severity.
func (l *loader) checkSeverityConflicts(paths []string) {
	type key struct {
		orderType string
		target    string
		op        Operator
		program   string // expression and logic rules differ by program
	}
	first := make(map[key]int)
	reported := make(map[[2]int]bool)

	for i, r := range l.rs.rules {
		for _, orderType := range l.expandOrderTypes(r.OrderTypes) {
			k := key{orderType: orderType, target: r.Target.Raw, op: r.Operator, program: r.Expression + string(r.Logic)}
			j, ok := first[k]
			if !ok {
				first[k] = i
				continue
			}
			other := l.rs.rules[j]
			if other.Severity != r.Severity && !reported[[2]int{j, i}] {
				reported[[2]int{j, i}] = true
				l.is.add(ErrConflictingSeverity, paths[i],
					"rule %q declares %s severity for %s %s on order type %q but rule %q declares %s",
					r.ID, r.Severity, r.Target.Raw, r.Operator, orderType, other.ID, other.Severity)
			}
		}
	}
}

func (l *loader) expandOrderTypes(types []string) []string {
	if !slices.Contains(types, AllOrderTypes) {
		return types
	}
	return l.rs.OrderTypes()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
