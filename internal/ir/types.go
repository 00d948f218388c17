package ir

import "time"

// Order is a fetched service order. It is read-only inside the validator
// and discarded after one run.
type Order struct {
	ID         string    `json:"id" yaml:"id"`
	Subscriber string    `json:"subscriber" yaml:"subscriber"`
	Type       string    `json:"type" yaml:"type"` // raw upstream type string
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Fields     Fields    `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field resolves name against the order's field map, falling back to the
// record attributes id, type, subscriber and created_at.
func (o Order) Field(name string) (Value, bool) {
	if v, ok := o.Fields[name]; ok {
		return v, true
	}
	switch name {
	case "id":
		return String(o.ID), true
	case "type":
		return String(o.Type), true
	case "subscriber":
		return String(o.Subscriber), true
	case "created_at":
		if o.CreatedAt.IsZero() {
			return nil, false
		}
		return String(o.CreatedAt.UTC().Format(time.RFC3339Nano)), true
	}
	return nil, false
}

// Facts returns the order as a plain map for expression engines.
func (o Order) Facts() map[string]any {
	facts := o.Fields.Native()
	for _, k := range []string{"id", "type", "subscriber", "created_at"} {
		if _, ok := facts[k]; ok {
			continue
		}
		if v, ok := o.Field(k); ok {
			facts[k] = Native(v)
		}
	}
	return facts
}

// Asset is a fetched subscriber asset (line, device, plan, add-on).
// An empty ParentID means the asset declares no parent.
type Asset struct {
	ID         string `json:"id" yaml:"id"`
	Subscriber string `json:"subscriber" yaml:"subscriber"`
	Type       string `json:"type" yaml:"type"`
	ParentID   string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Status     string `json:"status,omitempty" yaml:"status,omitempty"`
	Fields     Fields `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field resolves name against the asset's field map, falling back to the
// record attributes id, type, status and parent_id.
func (a Asset) Field(name string) (Value, bool) {
	if v, ok := a.Fields[name]; ok {
		return v, true
	}
	switch name {
	case "id":
		return String(a.ID), true
	case "type":
		return String(a.Type), true
	case "status":
		if a.Status == "" {
			return nil, false
		}
		return String(a.Status), true
	case "parent_id":
		if a.ParentID == "" {
			return nil, false
		}
		return String(a.ParentID), true
	}
	return nil, false
}

// Facts returns the asset as a plain map for expression engines.
func (a Asset) Facts() map[string]any {
	facts := a.Fields.Native()
	for _, k := range []string{"id", "type", "status", "parent_id"} {
		if _, ok := facts[k]; ok {
			continue
		}
		if v, ok := a.Field(k); ok {
			facts[k] = Native(v)
		}
	}
	return facts
}

// Snapshot is everything fetched for one subscriber: the unit of work for
// a single validation.
type Snapshot struct {
	Subscriber string  `json:"subscriber" yaml:"subscriber"`
	Orders     []Order `json:"orders" yaml:"orders"`
	Assets     []Asset `json:"assets" yaml:"assets"`
}
