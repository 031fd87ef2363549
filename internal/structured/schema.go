package structured

import (
	"encoding/json"
)

// Field describes one key of a repairable object.
type Field struct {
	// Name is the JSON key.
	Name string

	// Default builds the value used when the key is missing or undecodable.
	// It is called once per repair so defaults are never shared.
	Default func() any

	// List marks keys whose value must be a JSON array. A scalar value is
	// promoted to a one-element list.
	List bool
}

// Schema is an ordered field table applied uniformly by every stage.
type Schema []Field

// Names returns the field names in table order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Missing reports which fields are absent from obj.
func (s Schema) Missing(obj map[string]any) []string {
	var missing []string
	for _, f := range s {
		if _, ok := obj[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Repair fills missing keys from their defaults and promotes scalars on list
// fields. It mutates and returns obj; a nil obj yields a fully defaulted map.
func (s Schema) Repair(obj map[string]any) map[string]any {
	if obj == nil {
		obj = make(map[string]any, len(s))
	}
	for _, f := range s {
		v, ok := obj[f.Name]
		if !ok || v == nil {
			obj[f.Name] = f.defaultValue()
			continue
		}
		if f.List {
			if _, isList := v.([]any); !isList {
				obj[f.Name] = []any{v}
			}
		}
	}
	return obj
}

func (f Field) defaultValue() any {
	if f.Default == nil {
		if f.List {
			return []any{}
		}
		return ""
	}
	return f.Default()
}

// Decode copies obj into a T field by field. A value that does not decode
// into its Go field is replaced by the field default, so one bad key never
// discards the rest of the object. List fields are decoded element by
// element and only the bad elements are dropped; the default applies when
// none survive. obj is expected to be repaired already.
func Decode[T any](obj map[string]any, s Schema) T {
	var out T
	for _, f := range s {
		v, ok := obj[f.Name]
		if !ok {
			v = f.defaultValue()
		}
		if err := decodeField(&out, f.Name, v); err == nil {
			continue
		}
		if items, isList := v.([]any); f.List && isList {
			if kept := decodableItems[T](f.Name, items); len(kept) > 0 {
				if err := decodeField(&out, f.Name, kept); err == nil {
					continue
				}
			}
		}
		_ = decodeField(&out, f.Name, f.defaultValue())
	}
	return out
}

// decodableItems returns the elements of items that decode on their own into
// the name field of a T.
func decodableItems[T any](name string, items []any) []any {
	kept := make([]any, 0, len(items))
	for _, item := range items {
		var scratch T
		if decodeField(&scratch, name, []any{item}) == nil {
			kept = append(kept, item)
		}
	}
	return kept
}

func decodeField(dst any, name string, value any) error {
	data, err := json.Marshal(map[string]any{name: value})
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// IsObject reports whether v decoded as a JSON object.
func IsObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}
