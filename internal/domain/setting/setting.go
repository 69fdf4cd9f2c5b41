// Package setting defines the global catalog of per-wiki overridable settings.
//
// The catalog is the allow-list: only keys present in it may appear in a
// wiki's settings overlay, and each key declares a Kind that fixes how
// submitted values are validated and normalised.
package setting

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wikifarm/farmd/internal/domain"
)

// Kind is the closed set of value types a setting can declare. Validation is
// exhaustive over this enum; there is no permissive fallthrough.
type Kind int

// Setting kinds.
const (
	Text Kind = iota
	Check
	Select
	Language
	Array
)

// maxLanguageLen caps language codes (BCP 47 fits comfortably).
const maxLanguageLen = 12

// String returns the config-file spelling of the kind.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Check:
		return "check"
	case Select:
		return "select"
	case Language:
		return "language"
	case Array:
		return "array"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a config-file kind string. Unknown strings are rejected
// at catalog load time rather than admitting unvalidated values later.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "text":
		return Text, nil
	case "check":
		return Check, nil
	case "select":
		return Select, nil
	case "language":
		return Language, nil
	case "array":
		return Array, nil
	}
	return 0, fmt.Errorf("setting kind %q: %w", s, domain.ErrValidation)
}

// Definition describes one allow-listed setting.
type Definition struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Kind    Kind     `json:"-"`
	KindStr string   `json:"kind"`
	Help    string   `json:"help,omitempty"`
	Section string   `json:"section"`
	Options []string `json:"options,omitempty"` // select only; membership left to the caller
}

// Validate checks raw against the definition's kind and returns the
// normalised JSON encoding. The input is a JSON value as submitted by the
// caller.
func (d Definition) Validate(raw json.RawMessage) (json.RawMessage, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("setting %s: decode value: %w", d.Key, domain.ErrValidation)
	}

	switch d.Kind {
	case Text, Select:
		if _, ok := v.(string); !ok {
			return nil, fmt.Errorf("setting %s: %s value must be a string: %w", d.Key, d.Kind, domain.ErrValidation)
		}
		return raw, nil

	case Language:
		s, ok := v.(string)
		if !ok || len(s) > maxLanguageLen {
			return nil, fmt.Errorf("setting %s: language code must be a string of at most %d characters: %w",
				d.Key, maxLanguageLen, domain.ErrValidation)
		}
		return raw, nil

	case Check:
		return marshalValue(d.Key, coerceBool(v))

	case Array:
		switch val := v.(type) {
		case string:
			parts := strings.Split(val, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return marshalValue(d.Key, parts)
		case []any:
			return raw, nil
		default:
			return nil, fmt.Errorf("setting %s: array value must be a list or comma-separated string: %w",
				d.Key, domain.ErrValidation)
		}
	}

	return nil, fmt.Errorf("setting %s: unhandled kind %v: %w", d.Key, d.Kind, domain.ErrValidation)
}

// coerceBool applies loose truthiness to checkbox input: JSON false, 0, "",
// "0" and "false" are false, everything else is true.
func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != "" && val != "0" && !strings.EqualFold(val, "false")
	case nil:
		return false
	}
	return true
}

func marshalValue(key string, v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("setting %s: encode value: %w", key, err)
	}
	return data, nil
}

// Catalog is the keyed set of allow-listed definitions.
type Catalog map[string]Definition

// Lookup returns the definition for key, if allow-listed.
func (c Catalog) Lookup(key string) (Definition, bool) {
	d, ok := c[key]
	return d, ok
}

// BySection groups definitions under their UI section tag.
func (c Catalog) BySection() map[string][]Definition {
	sections := make(map[string][]Definition)
	for _, d := range c {
		sections[d.Section] = append(sections[d.Section], d)
	}
	return sections
}
