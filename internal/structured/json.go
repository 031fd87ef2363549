// Package structured extracts JSON payloads from free-form model output and
// repairs them against a field table. Generated text is never trusted: every
// helper here degrades to nil or a default rather than returning an error.
package structured

import (
	"encoding/json"
	"strings"
)

var fenceMarkers = []string{"```json", "```"}

// CleanJSONString strips code fences and surrounding whitespace and, when an
// object opener is present, slices from the first '{' to the last '}'.
// It is idempotent.
func CleanJSONString(raw string) string {
	return clean(raw, '{', '}')
}

// CleanJSONArrayString is CleanJSONString for array-shaped payloads.
func CleanJSONArrayString(raw string) string {
	return clean(raw, '[', ']')
}

func clean(raw string, open, close byte) string {
	s := stripFences(raw)
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, open)
	if start < 0 {
		return s
	}
	end := strings.LastIndexByte(s, close)
	if end > start {
		s = s[start : end+1]
	}
	return s
}

// stripFences removes fence markers until none remain, so removing one marker
// can never expose another.
func stripFences(s string) string {
	for {
		before := s
		for _, marker := range fenceMarkers {
			s = strings.ReplaceAll(s, marker, "")
		}
		if s == before {
			return s
		}
	}
}

// ExtractJSON decodes the object embedded in raw. It returns nil when nothing
// decodes or the payload is not an object.
func ExtractJSON(raw string) map[string]any {
	var obj map[string]any
	if !extract(raw, '{', '}', &obj) {
		return nil
	}
	return obj
}

// ExtractJSONArray decodes the array embedded in raw. It returns nil when
// nothing decodes or the payload is not an array.
func ExtractJSONArray(raw string) []any {
	var arr []any
	if !extract(raw, '[', ']', &arr) || arr == nil {
		return nil
	}
	return arr
}

// extract decodes the cleaned payload into v. When that fails and the prose
// before the payload holds a stray opener, each later opener is tried in turn
// up to the last closer.
func extract(raw string, open, close byte, v any) bool {
	if json.Unmarshal([]byte(clean(raw, open, close)), v) == nil {
		return true
	}

	s := strings.TrimSpace(stripFences(raw))
	end := strings.LastIndexByte(s, close)
	start := strings.IndexByte(s, open)
	for start >= 0 && start < end {
		next := strings.IndexByte(s[start+1:end], open)
		if next < 0 {
			return false
		}
		start += next + 1
		if json.Unmarshal([]byte(s[start:end+1]), v) == nil {
			return true
		}
	}
	return false
}
