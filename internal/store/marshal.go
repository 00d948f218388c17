package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/esungul/UniveralValidator/internal/ir"
)

// marshalFields stores a field map as canonical JSON so identical records
// produce identical rows.
func marshalFields(f ir.Fields) (string, error) {
	if f == nil {
		f = ir.Fields{}
	}
	data, err := ir.MarshalCanonical(f)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

func unmarshalFields(data string) (ir.Fields, error) {
	f := ir.Fields{}
	if data == "" || data == "{}" {
		return f, nil
	}
	if err := f.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return f, nil
}

// marshalResult encodes a result body without HTML escaping.
func marshalResult(r ir.ValidationResult) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

func unmarshalResult(data string) (ir.ValidationResult, error) {
	var r ir.ValidationResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return r, fmt.Errorf("unmarshal result: %w", err)
	}
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
