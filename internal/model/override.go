package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/goccy/go-json"
)

// Override replaces individual attributes of a stored provider record for one
// claim. The zero Override changes nothing.
type Override struct {
	variant Variant
	values  map[string]any
}

// ParseOverride validates raw against the attribute schema of v. Every key
// must name an attribute of v and every value must already have the
// attribute's type: JSON numbers for int/real attributes, strings for text.
func ParseOverride(v Variant, raw map[string]any) (Override, error) {
	if _, ok := schemas[v]; !ok {
		return Override{}, fmt.Errorf("unknown provider variant %q", v)
	}
	values := make(map[string]any, len(raw))
	for _, key := range sortedKeys(raw) {
		attr, ok := LookupAttribute(v, key)
		if !ok {
			return Override{}, fmt.Errorf("%s override: unknown attribute %q", v, key)
		}
		val, err := checkValue(attr, raw[key])
		if err != nil {
			return Override{}, fmt.Errorf("%s override %q: %w", v, key, err)
		}
		values[key] = val
	}
	// Decode once into a scratch record so any conversion mapstructure would
	// refuse at apply time is refused here instead.
	scratch, _ := NewRecord(v)
	if err := decodeInto(scratch, values, false); err != nil {
		return Override{}, fmt.Errorf("%s override: %w", v, err)
	}
	return Override{variant: v, values: values}, nil
}

func checkValue(attr Attribute, val any) (any, error) {
	if n, ok := val.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", n)
		}
		val = f
	}
	switch attr.Kind {
	case KindText:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected text, got %T", val)
		}
		return s, nil
	case KindInt:
		switch n := val.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int(n), nil
		}
		return nil, fmt.Errorf("expected integer, got %T", val)
	default:
		switch n := val.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("expected number, got %T", val)
	}
}

// Variant reports which provider file the override targets.
func (o Override) Variant() Variant { return o.variant }

// IsZero reports whether the override changes nothing.
func (o Override) IsZero() bool { return len(o.values) == 0 }

// Keys returns the overridden attribute names, sorted.
func (o Override) Keys() []string { return sortedKeys(o.values) }

// Value returns the override value for an attribute.
func (o Override) Value(name string) (any, bool) {
	v, ok := o.values[name]
	return v, ok
}

// MarshalJSON renders the override as its attribute map.
func (o Override) MarshalJSON() ([]byte, error) {
	if o.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.values)
}

// ApplyOverride returns a copy of r with each overridden attribute replaced.
// All other attributes keep their stored values.
func ApplyOverride(r ProviderRecord, o Override) (ProviderRecord, error) {
	out := CloneRecord(r)
	if o.IsZero() {
		return out, nil
	}
	if o.variant != r.Variant() {
		return nil, fmt.Errorf("apply %s override to %s record", o.variant, r.Variant())
	}
	if err := decodeInto(out, o.values, false); err != nil {
		return nil, fmt.Errorf("apply %s override: %w", o.variant, err)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
