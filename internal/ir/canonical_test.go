package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"integer number", Number(42), "42"},
		{"negative number", Number(-100), "-100"},
		{"fraction", Number(39.99), "39.99"},
		{"negative zero", Number(-0.0), "0"},
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"bool true", Bool(true), "true"},
		{"bool false", false, "false"},
		{"int", 7, "7"},
		{"exact int", Int(9007199254740993), "9007199254740993"},
		{"json integer", json.Number("9007199254740993"), "9007199254740993"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"string slice", []string{"b", "a"}, `["b","a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": map[string]any{"b": 1, "a": 2},
		"beta":  Fields{"y": String("1"), "x": Null{}},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"beta":{"x":null,"y":"1"},"zebra":1}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	result, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by "u2028" text stays escaped.
	result, err = MarshalCanonical(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301" // e + combining acute
	result, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalUnsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestResultDigest_IgnoresRunID(t *testing.T) {
	r := ValidationResult{
		Subscriber: "12218071145",
		OrderID:    "801",
		Status:     StatusPass,
		Outcomes: []RuleOutcome{
			{RuleID: "r1", Target: "order.plan", Operator: "present", Actual: String("P1"), Result: ResultPass, Severity: SeverityBlocking},
		},
		OrderCount: 1,
	}

	a, err := ResultDigest(r)
	require.NoError(t, err)

	r.RunID = "another-run"
	r.Digest = "stale"
	b, err := ResultDigest(r)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestResultDigest_ChangesWithOutcome(t *testing.T) {
	base := ValidationResult{
		Subscriber: "1",
		Status:     StatusPass,
		Outcomes:   []RuleOutcome{{RuleID: "r1", Result: ResultPass, Severity: SeverityBlocking}},
	}
	changed := base
	changed.Outcomes = []RuleOutcome{{RuleID: "r1", Result: ResultFail, Severity: SeverityBlocking}}
	changed.Status = StatusFail

	a, err := ResultDigest(base)
	require.NoError(t, err)
	b, err := ResultDigest(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashWithDomain_Separation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainResult, data), hashWithDomain(DomainRuleSet, data))
}
