package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSingleRule(t *testing.T, rule string) Rule {
	t.Helper()
	rs, err := Load(withRules(t, "["+rule+"]"))
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	return rs.Rules()[0]
}

func TestEvalExpression(t *testing.T) {
	r := loadSingleRule(t, `{id: charges, order_types: [activation], target: hierarchy(account).charge, operator: expression,
		expression: "value > 0.0 || (has(asset.allow_zero) && asset.allow_zero == 'Y')"}`)

	ok, err := r.EvalExpression(map[string]any{"value": 12.5, "order": map[string]any{}, "asset": map[string]any{}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.EvalExpression(map[string]any{"value": 0.0, "order": map[string]any{}, "asset": map[string]any{"allow_zero": "Y"}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.EvalExpression(map[string]any{"value": 0.0, "order": map[string]any{}, "asset": map[string]any{}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalExpressionRuntimeError(t *testing.T) {
	r := loadSingleRule(t, `{id: r1, order_types: [activation], target: order.qty, operator: expression, expression: "value > 1"}`)

	_, err := r.EvalExpression(map[string]any{"value": "text", "order": map[string]any{}, "asset": map[string]any{}})
	assert.Error(t, err)
}

func TestEvalExpressionWithoutProgram(t *testing.T) {
	_, err := Rule{ID: "bare"}.EvalExpression(nil)
	assert.Error(t, err)
}

func TestEvalLogic(t *testing.T) {
	r := loadSingleRule(t, `{id: qty, order_types: [activation], target: order.qty, operator: logic,
		logic: {"and": [{">=": [{"var": "value"}, 1]}, {"<=": [{"var": "value"}, 4]}]}}`)

	ok, err := r.EvalLogic(map[string]any{"value": 2})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.EvalLogic(map[string]any{"value": 9})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalLogicReadsOrderFacts(t *testing.T) {
	r := loadSingleRule(t, `{id: plan, order_types: [activation], target: order.plan, operator: logic,
		logic: {"==": [{"var": "value"}, {"var": "order.plan"}]}}`)

	ok, err := r.EvalLogic(map[string]any{"value": "GOLD", "order": map[string]any{"plan": "GOLD"}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.False(t, truthy(0.0))
	assert.False(t, truthy(""))
	assert.False(t, truthy([]any{}))
	assert.True(t, truthy(true))
	assert.True(t, truthy(1.0))
	assert.True(t, truthy("x"))
	assert.True(t, truthy(map[string]any{}))
}

const cueDoc = `
version: 1
order_types: activation: aliases: ["Activate"]
rules: [{
	id:          "plan-present"
	order_types: ["activation"]
	target:      "order.plan"
	operator:    "present"
}]
`

const jsonDoc = `{
  "version": 1,
  "order_types": {"activation": {"aliases": ["Activate"]}},
  "rules": [{"id": "plan-present", "order_types": ["activation"], "target": "order.plan", "operator": "present"}]
}`

const yamlDoc = `
version: 1
order_types:
  activation:
    aliases: [Activate]
rules:
  - id: plan-present
    order_types: [activation]
    target: order.plan
    operator: present
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileFormats(t *testing.T) {
	files := map[string]string{
		"rules.yaml": yamlDoc,
		"rules.json": jsonDoc,
		"rules.cue":  cueDoc,
	}
	var digests []string
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			rs, err := LoadFile(writeFile(t, name, content))
			require.NoError(t, err)
			assert.Equal(t, 1, rs.Len())
			got, ok := rs.Lookup("ACTIVATE")
			assert.True(t, ok)
			assert.Equal(t, "activation", got)
			digests = append(digests, rs.Digest())
		})
	}
	require.Len(t, digests, 3)
	assert.Equal(t, digests[0], digests[1])
	assert.Equal(t, digests[1], digests[2])
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		requireIssue(t, err, ErrDecode)
	})
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "rules.toml", "x = 1"))
		requireIssue(t, err, ErrDecode)
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "rules.yaml", "rules: [unclosed"))
		requireIssue(t, err, ErrDecode)
	})
	t.Run("incomplete cue", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "rules.cue", "version: int\n"))
		requireIssue(t, err, ErrDecode)
	})
}

func TestRegistryReload(t *testing.T) {
	path := writeFile(t, "rules.yaml", yamlDoc)
	first, err := LoadFile(path)
	require.NoError(t, err)

	reg := NewRegistry(first)
	assert.Same(t, first, reg.Current())

	require.NoError(t, os.WriteFile(path, []byte("rules: [unclosed"), 0o644))
	_, err = reg.ReloadFile(path)
	require.Error(t, err)
	assert.Same(t, first, reg.Current(), "failed reload keeps the active rule set")

	require.NoError(t, os.WriteFile(path, []byte(jsonDoc), 0o644))
	next, err := reg.ReloadFile(path)
	require.NoError(t, err)
	assert.Same(t, next, reg.Current())
	assert.NotSame(t, first, reg.Current())
}
