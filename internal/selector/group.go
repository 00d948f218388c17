package selector

import (
	"slices"

	"github.com/esungul/UniveralValidator/internal/ir"
)

// Group splits flat order and asset lists into one snapshot per subscriber,
// sorted by subscriber. Records keep their input order inside a snapshot.
//
// When subscribers are given, exactly those snapshots are returned in the
// given order (duplicates collapsed), including empty ones, so a batch
// reports on every requested subscriber.
func Group(orders []ir.Order, assets []ir.Asset, subscribers ...string) []ir.Snapshot {
	bySub := make(map[string]*ir.Snapshot)
	get := func(sub string) *ir.Snapshot {
		s, ok := bySub[sub]
		if !ok {
			s = &ir.Snapshot{Subscriber: sub, Orders: []ir.Order{}, Assets: []ir.Asset{}}
			bySub[sub] = s
		}
		return s
	}
	for _, o := range orders {
		s := get(o.Subscriber)
		s.Orders = append(s.Orders, o)
	}
	for _, a := range assets {
		s := get(a.Subscriber)
		s.Assets = append(s.Assets, a)
	}

	if len(subscribers) > 0 {
		out := make([]ir.Snapshot, 0, len(subscribers))
		seen := make(map[string]bool)
		for _, sub := range subscribers {
			if seen[sub] {
				continue
			}
			seen[sub] = true
			out = append(out, *get(sub))
		}
		return out
	}

	keys := make([]string, 0, len(bySub))
	for k := range bySub {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]ir.Snapshot, len(keys))
	for i, k := range keys {
		out[i] = *bySub[k]
	}
	return out
}
