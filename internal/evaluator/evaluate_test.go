package evaluator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/esungul/UniveralValidator/internal/hierarchy"
	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
	"github.com/esungul/UniveralValidator/internal/testutil"
)

const header = `
order_types:
  change-device:
    aliases: ["Change Device"]
roles:
  parent device: {anchor: line, relation: children, type: device}
  sims: {anchor: line, relation: children, type: sim}
  line: {anchor: device, relation: parent, type: line}
  account: {anchor: line, relation: parent}
  self line: {anchor: line, relation: self}
`

// rule loads a single rule written as a YAML flow mapping.
func rule(t *testing.T, body string) rules.Rule {
	t.Helper()
	doc := map[string]any{}
	require.NoError(t, yaml.Unmarshal([]byte(header+"rules: ["+body+"]\n"), &doc))
	rs, err := rules.Load(doc)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	return rs.Rules()[0]
}

func tree(t *testing.T, assets ...ir.Asset) *hierarchy.Tree {
	t.Helper()
	tr, err := hierarchy.Build(assets)
	require.NoError(t, err)
	return tr
}

func changeDevice(kv ...any) ir.Order {
	return testutil.Order("O1", "12218071145", "change-device", testutil.At(0), kv...)
}

const consistencyRule = `{id: device-type, order_types: [change-device], target: order.newDeviceType,
	operator: hierarchy-consistency, ref: "hierarchy(parent device).deviceType", severity: blocking}`

func TestEvaluate_DeviceTypeConsistent(t *testing.T) {
	order := changeDevice("newDeviceType", "smartphone")
	tr := tree(t,
		testutil.Asset("A1", "line", ""),
		testutil.Asset("A2", "device", "A1", "deviceType", "smartphone"),
	)

	out := Evaluate(order, tr, rule(t, consistencyRule))
	assert.Equal(t, ir.ResultPass, out.Result)
	assert.Equal(t, ir.String("smartphone"), out.Actual)
	assert.Equal(t, ir.SeverityBlocking, out.Severity)
	assert.Equal(t, "device-type", out.RuleID)
	assert.Empty(t, out.Reason)
}

func TestEvaluate_DeviceTypeMismatch(t *testing.T) {
	order := changeDevice("newDeviceType", "smartphone")
	tr := tree(t,
		testutil.Asset("A1", "line", ""),
		testutil.Asset("A2", "device", "A1", "deviceType", "feature-phone"),
	)

	out := Evaluate(order, tr, rule(t, consistencyRule))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Contains(t, out.Reason, `"feature-phone"`)
	assert.Contains(t, out.Reason, "asset A2")
}

func TestEvaluate_TwoParentDevicesAreAmbiguous(t *testing.T) {
	order := changeDevice("newDeviceType", "smartphone")
	tr := tree(t,
		testutil.Asset("A1", "line", ""),
		testutil.Asset("A2", "device", "A1", "deviceType", "smartphone"),
		testutil.Asset("A3", "device", "A1", "deviceType", "smartphone"),
	)

	out := Evaluate(order, tr, rule(t, consistencyRule))
	assert.Equal(t, ir.ResultAmbiguous, out.Result)
	assert.Nil(t, out.Actual)
	assert.Contains(t, out.Reason, "A2, A3")
}

func TestEvaluate_MissingTarget(t *testing.T) {
	tr := tree(t, testutil.Asset("A1", "line", ""))

	out := Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: order.plan, operator: present}`))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Equal(t, ReasonMissingTarget, out.Reason)
	assert.Nil(t, out.Actual)

	out = Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: order.plan, operator: present, optional: true}`))
	assert.Equal(t, ir.ResultNotApplicable, out.Result)
}

func TestEvaluate_NullCountsAsMissing(t *testing.T) {
	out := Evaluate(changeDevice("plan", nil), nil, rule(t, `{id: r, order_types: [change-device], target: order.plan, operator: present}`))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Equal(t, ReasonMissingTarget, out.Reason)
}

func TestEvaluate_MissingReference(t *testing.T) {
	order := changeDevice("newDeviceType", "smartphone")
	tr := tree(t, testutil.Asset("A1", "line", ""))

	out := Evaluate(order, tr, rule(t, consistencyRule))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Contains(t, out.Reason, "missing reference")
}

func TestEvaluate_DanglingParentIsReported(t *testing.T) {
	tr := tree(t, testutil.Asset("D1", "device", "L404", "status", "active"))

	out := Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: hierarchy(line).status, operator: present, optional: true}`))
	assert.Equal(t, ir.ResultFail, out.Result, "a broken chain is never silently not-applicable")
	assert.Equal(t, "missing parent L404", out.Reason)
}

func TestEvaluate_DanglingParentFailsAlongsideHealthyAnchors(t *testing.T) {
	tr := tree(t,
		testutil.Asset("L1", "line", "", "status", "active"),
		testutil.Asset("D1", "device", "L1"),
		testutil.Asset("D2", "device", "L-GONE"),
	)

	out := Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: hierarchy(line).id, operator: present}`))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Equal(t, "missing parent L-GONE", out.Reason)

	out = Evaluate(changeDevice("lineStatus", "active"), tr, rule(t, `{id: r, order_types: [change-device], target: order.lineStatus, operator: equals, ref: hierarchy(line).status}`))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Equal(t, "missing parent L-GONE", out.Reason)

	healthy := tree(t,
		testutil.Asset("L1", "line", "", "status", "active"),
		testutil.Asset("D1", "device", "L1"),
	)
	out = Evaluate(changeDevice(), healthy, rule(t, `{id: r, order_types: [change-device], target: hierarchy(line).id, operator: present}`))
	assert.Equal(t, ir.ResultPass, out.Result, out.Reason)
}

func TestEvaluate_AmbiguousTargetWinsOverMissingRef(t *testing.T) {
	tr := tree(t,
		testutil.Asset("A1", "line", ""),
		testutil.Asset("A2", "device", "A1", "deviceType", "smartphone"),
		testutil.Asset("A3", "device", "A1", "deviceType", "tablet"),
	)

	out := Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: hierarchy(parent device).deviceType, operator: equals, ref: order.newDeviceType}`))
	assert.Equal(t, ir.ResultAmbiguous, out.Result)
	assert.Equal(t, "hierarchy(parent device).deviceType resolved to 2 assets: A2, A3", out.Reason)
}

func TestEvaluate_Operators(t *testing.T) {
	tr := tree(t,
		testutil.Asset("ACC", "account", "", "plan", "GOLD", "charge", 0),
		testutil.Asset("L1", "line", "ACC", "msisdn", "12218071145", "status", " Active "),
	)
	order := changeDevice("qty", "3", "units", 3, "plan", "gold ", "channel", "web", "paperless", true)

	tests := []struct {
		name string
		body string
		want ir.Result
	}{
		{"equals literal", `{id: r, order_types: [change-device], target: order.channel, operator: equals, value: web}`, ir.ResultPass},
		{"equals case sensitive", `{id: r, order_types: [change-device], target: order.channel, operator: equals, value: WEB}`, ir.ResultFail},
		{"equals normalized", `{id: r, order_types: [change-device], target: order.channel, operator: equals, value: " WEB", normalize: [trim, casefold]}`, ir.ResultPass},
		{"equals ref normalized", `{id: r, order_types: [change-device], target: order.plan, operator: equals, ref: hierarchy(account).plan, normalize: [trim, casefold]}`, ir.ResultPass},
		{"equals number", `{id: r, order_types: [change-device], target: order.units, operator: equals, value: 3}`, ir.ResultPass},
		{"equals integral float", `{id: r, order_types: [change-device], target: order.units, operator: equals, value: 3.0}`, ir.ResultPass},
		{"equals text never matches number", `{id: r, order_types: [change-device], target: order.qty, operator: equals, value: 3}`, ir.ResultFail},
		{"equals number never matches text", `{id: r, order_types: [change-device], target: order.units, operator: equals, value: "3"}`, ir.ResultFail},
		{"equals bool", `{id: r, order_types: [change-device], target: order.paperless, operator: equals, value: true}`, ir.ResultPass},
		{"equals bool never matches text", `{id: r, order_types: [change-device], target: order.paperless, operator: equals, value: "true", normalize: [trim, casefold]}`, ir.ResultFail},
		{"not-equals across kinds", `{id: r, order_types: [change-device], target: order.qty, operator: not-equals, value: 3}`, ir.ResultPass},
		{"one-of mixed kinds", `{id: r, order_types: [change-device], target: order.units, operator: one-of, values: ["3", 4]}`, ir.ResultFail},
		{"not-equals", `{id: r, order_types: [change-device], target: order.channel, operator: not-equals, value: store}`, ir.ResultPass},
		{"not-equals same", `{id: r, order_types: [change-device], target: order.channel, operator: not-equals, value: web}`, ir.ResultFail},
		{"present", `{id: r, order_types: [change-device], target: hierarchy(self line).msisdn, operator: present}`, ir.ResultPass},
		{"pattern", `{id: r, order_types: [change-device], target: hierarchy(self line).msisdn, operator: matches-pattern, pattern: '^[0-9]{11}$'}`, ir.ResultPass},
		{"pattern mismatch", `{id: r, order_types: [change-device], target: hierarchy(self line).msisdn, operator: matches-pattern, pattern: '^[0-9]{10}$'}`, ir.ResultFail},
		{"one-of normalized", `{id: r, order_types: [change-device], target: hierarchy(self line).status, operator: one-of, values: [active, provisioned], normalize: [trim, casefold]}`, ir.ResultPass},
		{"one-of miss", `{id: r, order_types: [change-device], target: hierarchy(self line).status, operator: one-of, values: [active]}`, ir.ResultFail},
		{"range inside", `{id: r, order_types: [change-device], target: order.qty, operator: numeric-range, min: 1, max: 3}`, ir.ResultPass},
		{"range above", `{id: r, order_types: [change-device], target: order.qty, operator: numeric-range, max: 2}`, ir.ResultFail},
		{"range non numeric", `{id: r, order_types: [change-device], target: order.channel, operator: numeric-range, min: 0}`, ir.ResultFail},
		{"literal target", `{id: r, order_types: [change-device], target: 'literal("x")', operator: present}`, ir.ResultPass},
		{"expression", `{id: r, order_types: [change-device], target: hierarchy(account).charge, operator: expression, expression: "value == 0.0 && asset.plan == 'GOLD' && order.channel == 'web'"}`, ir.ResultPass},
		{"expression runtime error", `{id: r, order_types: [change-device], target: order.channel, operator: expression, expression: "value > 1"}`, ir.ResultFail},
		{"logic", `{id: r, order_types: [change-device], target: order.qty, operator: logic, logic: {"==": [{"var": "value"}, "3"]}}`, ir.ResultPass},
		{"logic false", `{id: r, order_types: [change-device], target: order.qty, operator: logic, logic: {"==": [{"var": "order.channel"}, "store"]}}`, ir.ResultFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(order, tr, rule(t, tt.body))
			assert.Equal(t, tt.want, out.Result, out.Reason)
			if tt.want == ir.ResultFail {
				assert.NotEmpty(t, out.Reason)
			}
		})
	}
}

func TestEvaluate_LargeIntegersCompareExactly(t *testing.T) {
	var fields ir.Fields
	require.NoError(t, json.Unmarshal([]byte(`{"account": 9007199254740993}`), &fields))
	require.Equal(t, ir.Int(9007199254740993), fields["account"])
	order := changeDevice()
	order.Fields = fields

	out := Evaluate(order, nil, rule(t, `{id: r, order_types: [change-device], target: order.account, operator: equals, value: 9007199254740992}`))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Equal(t, "expected 9007199254740992, got 9007199254740993", out.Reason)

	out = Evaluate(order, nil, rule(t, `{id: r, order_types: [change-device], target: order.account, operator: equals, value: 9007199254740993}`))
	assert.Equal(t, ir.ResultPass, out.Result, out.Reason)
}

func TestEvaluate_Quantifiers(t *testing.T) {
	tr := tree(t,
		testutil.Asset("L1", "line", ""),
		testutil.Asset("S1", "sim", "L1", "iccid", "8901"),
		testutil.Asset("S2", "sim", "L1"),
	)

	out := Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: hierarchy(sims).iccid, operator: present, quantifier: any}`))
	assert.Equal(t, ir.ResultPass, out.Result)
	assert.Equal(t, ir.String("8901"), out.Actual)

	out = Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: hierarchy(sims).iccid, operator: present, quantifier: all}`))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Contains(t, out.Reason, "asset S2 has no iccid")

	out = Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: hierarchy(sims).iccid, operator: present}`))
	assert.Equal(t, ir.ResultAmbiguous, out.Result)

	out = Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: hierarchy(sims).iccid, operator: equals, value: "0000", quantifier: any}`))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Contains(t, out.Reason, "no value")
}

func TestEvaluate_QuantifierWithNoCandidates(t *testing.T) {
	tr := tree(t, testutil.Asset("L1", "line", ""))

	out := Evaluate(changeDevice(), tr, rule(t, `{id: r, order_types: [change-device], target: hierarchy(sims).iccid, operator: present, quantifier: any}`))
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Equal(t, ReasonMissingTarget, out.Reason)
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	order := changeDevice("newDeviceType", "smartphone")
	tr := tree(t,
		testutil.Asset("A1", "line", ""),
		testutil.Asset("A2", "device", "A1", "deviceType", "feature-phone"),
	)
	r := rule(t, consistencyRule)

	first := Evaluate(order, tr, r)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Evaluate(order, tr, r))
	}
}

func TestEvaluateAll_KeepsRuleOrder(t *testing.T) {
	doc := map[string]any{}
	require.NoError(t, yaml.Unmarshal([]byte(header+`
rules:
  - {id: b, order_types: [change-device], target: order.x, operator: present, optional: true}
  - {id: a, order_types: [change-device], target: order.channel, operator: present}
`), &doc))
	rs, err := rules.Load(doc)
	require.NoError(t, err)

	outs := EvaluateAll(changeDevice("channel", "web"), nil, rs.RulesFor("change-device"))
	require.Len(t, outs, 2)
	assert.Equal(t, "b", outs[0].RuleID)
	assert.Equal(t, ir.ResultNotApplicable, outs[0].Result)
	assert.Equal(t, "a", outs[1].RuleID)
	assert.Equal(t, ir.ResultPass, outs[1].Result)
}

func TestDispatchTablesAreTotal(t *testing.T) {
	for _, op := range rules.Operators() {
		_, ok := operators[op]
		assert.True(t, ok, "operator %q has no evaluator", op)
	}
	assert.Len(t, operators, len(rules.Operators()))

	for _, kind := range rules.TargetKinds() {
		_, ok := resolvers[kind]
		assert.True(t, ok, "target kind %q has no resolver", kind)
	}
	assert.Len(t, resolvers, len(rules.TargetKinds()))
}

func TestEvaluate_UnknownOperatorIsAnOutcome(t *testing.T) {
	r := rules.Rule{ID: "x", Operator: "approx", Severity: ir.SeverityBlocking}
	out := Evaluate(changeDevice(), nil, r)
	assert.Equal(t, ir.ResultFail, out.Result)
	assert.Contains(t, out.Reason, "unsupported operator")
}
