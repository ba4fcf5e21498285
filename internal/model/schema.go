package model

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// AttrKind is the storage type of a provider attribute.
type AttrKind int

const (
	KindText AttrKind = iota
	KindInt
	KindReal
)

func (k AttrKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	}
	return "text"
}

// Attribute describes one named economic factor of a provider record.
// Position is the column index in the CMS CSV layout.
type Attribute struct {
	Name     string
	Kind     AttrKind
	Position int
}

var schemas = map[Variant][]Attribute{
	Inpatient:  attributesOf(reflect.TypeOf(InpatientProvider{})),
	Outpatient: attributesOf(reflect.TypeOf(OutpatientProvider{})),
}

func attributesOf(t reflect.Type) []Attribute {
	attrs := make([]Attribute, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		kind := KindText
		switch f.Type.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
			kind = KindInt
		case reflect.Float32, reflect.Float64:
			kind = KindReal
		}
		attrs = append(attrs, Attribute{Name: name, Kind: kind, Position: i})
	}
	return attrs
}

// Attributes returns the attribute schema of a variant in column order.
func Attributes(v Variant) []Attribute {
	return schemas[v]
}

// AttributeNames returns the attribute names of a variant in column order.
func AttributeNames(v Variant) []string {
	attrs := schemas[v]
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	return names
}

// LookupAttribute finds a named attribute of a variant.
func LookupAttribute(v Variant, name string) (Attribute, bool) {
	for _, a := range schemas[v] {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// DecodeRecord builds a record of variant v from attribute values. String
// values are converted to the attribute type; unknown attribute names fail.
func DecodeRecord(v Variant, values map[string]any) (ProviderRecord, error) {
	rec, err := NewRecord(v)
	if err != nil {
		return nil, err
	}
	if err := decodeInto(rec, values, true); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", v, err)
	}
	return rec, nil
}

func decodeInto(target any, values map[string]any, weak bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: weak,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(values)
}
