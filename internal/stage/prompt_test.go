package stage

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPromptSchemas(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		array  bool
		want   string
	}{
		{"perspectives", perspectivesSchema, true, `"preview"`},
		{"flash cards", flashCardsSchema, false, `"plot_points"`},
		{"bible", bibleSchema, false, `"worldBuilding"`},
		{"episodes", episodesSchema, true, `"type": "array"`},
		{"scene outline", sceneOutlineSchema, false, `"properties"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.schema == "" {
				t.Fatal("schema is empty")
			}
			var doc map[string]any
			if err := json.Unmarshal([]byte(tt.schema), &doc); err != nil {
				t.Fatalf("schema is not JSON: %v", err)
			}
			if tt.array {
				if doc["type"] != "array" {
					t.Errorf("type = %v, want array", doc["type"])
				}
				items, ok := doc["items"].(map[string]any)
				if !ok {
					t.Fatalf("items missing: %s", tt.schema)
				}
				if _, ok := items["properties"]; !ok {
					t.Errorf("items are not expanded: %s", tt.schema)
				}
			}
			if !strings.Contains(tt.schema, tt.want) {
				t.Errorf("schema missing %s", tt.want)
			}
		})
	}
}
