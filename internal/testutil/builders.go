package testutil

import (
	"fmt"
	"time"

	"github.com/esungul/UniveralValidator/internal/ir"
)

// Fields builds ir.Fields from alternating key/value arguments. It panics
// on odd argument counts or unsupported values; it is for tests only.
func Fields(kv ...any) ir.Fields {
	if len(kv)%2 != 0 {
		panic("testutil.Fields: odd number of arguments")
	}
	fields := make(ir.Fields, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("testutil.Fields: key %v is not a string", kv[i]))
		}
		v, err := ir.FromAny(kv[i+1])
		if err != nil {
			panic(fmt.Sprintf("testutil.Fields: %s: %v", key, err))
		}
		fields[key] = v
	}
	return fields
}

// Order builds an order. Fields are alternating key/value pairs.
func Order(id, subscriber, orderType string, createdAt time.Time, kv ...any) ir.Order {
	return ir.Order{
		ID:         id,
		Subscriber: subscriber,
		Type:       orderType,
		CreatedAt:  createdAt,
		Fields:     Fields(kv...),
	}
}

// Asset builds an asset with no subscriber or status. Fields are
// alternating key/value pairs.
func Asset(id, assetType, parentID string, kv ...any) ir.Asset {
	return ir.Asset{
		ID:       id,
		Type:     assetType,
		ParentID: parentID,
		Fields:   Fields(kv...),
	}
}

// Owned sets the subscriber on every asset.
func Owned(subscriber string, assets ...ir.Asset) []ir.Asset {
	out := make([]ir.Asset, len(assets))
	for i, a := range assets {
		a.Subscriber = subscriber
		out[i] = a
	}
	return out
}

// At returns Epoch shifted by minutes.
func At(minutes int) time.Time {
	return Epoch.Add(time.Duration(minutes) * time.Minute)
}
