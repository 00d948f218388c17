package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// DecodeFile reads a rule document from disk. The format follows the file
// extension: .yaml/.yml, .json or .cue. CUE documents must be concrete.
func DecodeFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	doc := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("compile %s: %s", path, cueerrors.Details(err, nil))
		}
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("validate %s: %s", path, cueerrors.Details(err, nil))
		}
		if err := v.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported rule file extension %q (want .yaml, .yml, .json or .cue)", ext)
	}
	return doc, nil
}

// LoadFile decodes and loads a rule document. Read and parse failures are
// reported as a ConfigError with code E100.
func LoadFile(path string) (*RuleSet, error) {
	doc, err := DecodeFile(path)
	if err != nil {
		return nil, &ConfigError{Issues: []Issue{{Code: ErrDecode, Path: path, Message: err.Error()}}}
	}
	return Load(doc)
}
