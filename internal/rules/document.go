package rules

import "encoding/json"

// document mirrors the rule configuration file. Unknown keys are rejected.
type document struct {
	Version     int                     `json:"version"`
	Selection   selectionDoc            `json:"selection"`
	OrderFilter filterDoc               `json:"order_filter"`
	OrderTypes  map[string]orderTypeDoc `json:"order_types"`
	Roles       map[string]roleDoc      `json:"roles"`
	Rules       []ruleDoc               `json:"rules"`
}

type selectionDoc struct {
	Discriminator string `json:"discriminator"`
}

type filterDoc struct {
	ReasonField           string   `json:"reason_field"`
	IgnoreOrderReasons    []string `json:"ignore_order_reasons"`
	IgnoreOrderTypes      []string `json:"ignore_order_types"`
	SkipReasonsContaining []string `json:"skip_reasons_containing"`
}

type orderTypeDoc struct {
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
}

type roleDoc struct {
	Anchor   string `json:"anchor"`
	Relation string `json:"relation"`
	Type     string `json:"type"`
}

type ruleDoc struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	OrderTypes  []string `json:"order_types"`
	Target      string   `json:"target"`
	Operator    string   `json:"operator"`
	Ref         string   `json:"ref"`
	Severity    string   `json:"severity"`
	Optional    bool     `json:"optional"`
	Quantifier  string   `json:"quantifier"`
	Normalize   []string `json:"normalize"`

	// RawMessage keeps an explicit null distinguishable from an absent key.
	Value  json.RawMessage   `json:"value"`
	Values []json.RawMessage `json:"values"`

	Pattern    string          `json:"pattern"`
	Min        *float64        `json:"min"`
	Max        *float64        `json:"max"`
	Expression string          `json:"expression"`
	Logic      json.RawMessage `json:"logic"`
}
