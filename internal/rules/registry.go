package rules

import "sync/atomic"

// Registry holds the active RuleSet. Validations read the current pointer
// once per run; a reload swaps the pointer and never mutates a RuleSet
// that readers may hold.
type Registry struct {
	current atomic.Pointer[RuleSet]
}

// NewRegistry creates a registry holding rs.
func NewRegistry(rs *RuleSet) *Registry {
	r := &Registry{}
	r.current.Store(rs)
	return r
}

// Current returns the active RuleSet.
func (r *Registry) Current() *RuleSet {
	return r.current.Load()
}

// Swap installs rs and returns the previous RuleSet.
func (r *Registry) Swap(rs *RuleSet) *RuleSet {
	return r.current.Swap(rs)
}

// ReloadFile loads path and swaps it in. On error the active RuleSet is
// left untouched.
func (r *Registry) ReloadFile(path string) (*RuleSet, error) {
	rs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	r.Swap(rs)
	return rs, nil
}
