package structured

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

var (
	textType = reflect.TypeOf(Text(""))
	listType = reflect.TypeOf(List(nil))
)

// Text is a string that also accepts numbers, booleans and lists of strings
// from generated JSON. Lists are joined with ", ".
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}

	var parts []any
	if err := json.Unmarshal(data, &parts); err == nil {
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			if str := scalarString(p); str != "" {
				items = append(items, str)
			}
		}
		*t = Text(strings.Join(items, ", "))
		return nil
	}

	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return err
	}
	if _, isObj := scalar.(map[string]any); isObj {
		return &json.UnmarshalTypeError{Value: "object", Type: textType}
	}
	*t = Text(scalarString(scalar))
	return nil
}

// String returns the plain string value.
func (t Text) String() string { return string(t) }

// List is a list of strings that also accepts a single scalar.
type List []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = List{}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case []any:
		out := make(List, 0, len(v))
		for _, item := range v {
			out = append(out, itemString(item))
		}
		*l = out
	case map[string]any:
		return &json.UnmarshalTypeError{Value: "object", Type: listType}
	default:
		*l = List{scalarString(v)}
	}
	return nil
}

// itemString renders a list element. Objects are kept as compact JSON so
// nothing the model produced is silently dropped.
func itemString(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
	return scalarString(v)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
