package story

import (
	"strings"
	"testing"

	"github.com/Yates-Labs/storyforge/internal/structured"
)

func TestFallbackPerspectives(t *testing.T) {
	ps := FallbackPerspectives("a lost key")

	if len(ps) != PerspectiveCount {
		t.Fatalf("expected %d perspectives, got %d", PerspectiveCount, len(ps))
	}
	wantTitles := []string{"Fantasy Quest", "Sci-Fi Paradox", "Twisted Clues", "Philosophical Reflection"}
	for i, p := range ps {
		if !p.Valid() {
			t.Errorf("perspective %d invalid: %+v", i, p)
		}
		if p.Title != wantTitles[i] {
			t.Errorf("perspective %d: expected %q, got %q", i, wantTitles[i], p.Title)
		}
		if !strings.Contains(p.Preview, "a lost key") {
			t.Errorf("perspective %d preview does not mention query: %q", i, p.Preview)
		}
	}
}

func TestDefaultEpisodes(t *testing.T) {
	tests := []struct {
		n      int
		titles []string
	}{
		{n: 0, titles: nil},
		{n: 1, titles: []string{"Episode 1: Beginning"}},
		{n: 2, titles: []string{"Episode 1: Beginning", "Episode 2: Resolution"}},
		{n: 4, titles: []string{"Episode 1: Beginning", "Episode 2: Development 2", "Episode 3: Development 3", "Episode 4: Resolution"}},
	}

	for _, tt := range tests {
		eps := DefaultEpisodes(tt.n)
		if len(eps) != len(tt.titles) {
			t.Fatalf("n=%d: expected %d episodes, got %d", tt.n, len(tt.titles), len(eps))
		}
		for i, ep := range eps {
			if string(ep.Title) != tt.titles[i] {
				t.Errorf("n=%d episode %d: expected %q, got %q", tt.n, i, tt.titles[i], ep.Title)
			}
			if len(ep.CharacterFocus) != 3 || len(ep.KeyEvents) != 3 {
				t.Errorf("n=%d episode %d: unexpected lists %+v", tt.n, i, ep)
			}
		}
	}
}

func TestDefaultBible_UsesPerspectiveAndParameters(t *testing.T) {
	b := DefaultBible(Perspective{Title: "Ember Crown", Preview: "A kingdom burns"}, Parameters{Genre: "sci-fi"})

	if b.Title != "Ember Crown" {
		t.Errorf("expected perspective title, got %q", b.Title)
	}
	if b.Tagline != "A sci-fi tale of adventure and discovery" {
		t.Errorf("unexpected tagline %q", b.Tagline)
	}
	if b.Tone != "dramatic" {
		t.Errorf("expected default tone, got %q", b.Tone)
	}
	if !strings.Contains(string(b.Premise), "A kingdom burns") {
		t.Errorf("premise does not mention preview: %q", b.Premise)
	}
	if len(b.Characters) != 3 || len(b.Plot.KeyEvents) != 5 || len(b.WorldBuilding.Locations) != 3 {
		t.Errorf("unexpected default bible shape: %+v", b)
	}
	if len(b.Themes.Central) != 2 || len(b.Conflicts) != 3 {
		t.Errorf("unexpected themes/conflicts: %+v", b)
	}

	untitled := DefaultBible(Perspective{}, Parameters{})
	if untitled.Title != "Untitled Story" || untitled.Genre != "fantasy" {
		t.Errorf("unexpected fallbacks: title=%q genre=%q", untitled.Title, untitled.Genre)
	}
}

func TestBibleSchema_BackfillsFromDefault(t *testing.T) {
	def := DefaultBible(Perspective{Title: "Default Title"}, Parameters{})
	schema := BibleSchema(def)

	obj := schema.Repair(map[string]any{"title": "X"})
	got := structured.Decode[StoryBible](obj, schema)

	if got.Title != "X" {
		t.Errorf("expected title X, got %q", got.Title)
	}
	if got.Tagline != def.Tagline || got.Genre != def.Genre {
		t.Errorf("scalar keys not backfilled: %+v", got)
	}
	if len(got.Characters) != 3 || got.Characters[0].Name != "Protagonist" {
		t.Errorf("characters not backfilled: %+v", got.Characters)
	}
	if len(got.Plot.KeyEvents) != 5 || len(got.WorldBuilding.Locations) != 3 {
		t.Errorf("nested keys not backfilled: %+v", got)
	}
	if len(schema.Names()) != 12 {
		t.Errorf("expected 12 bible keys, got %d", len(schema.Names()))
	}
}

func TestBibleSchema_DropsOnlyBadCharacters(t *testing.T) {
	def := DefaultBible(Perspective{Title: "Default Title"}, Parameters{})
	schema := BibleSchema(def)

	obj := schema.Repair(map[string]any{
		"title":      "X",
		"characters": []any{map[string]any{"name": "Ann"}, "Bob"},
	})
	got := structured.Decode[StoryBible](obj, schema)

	if len(got.Characters) != 1 || got.Characters[0].Name != "Ann" {
		t.Errorf("expected only Ann to survive, got %+v", got.Characters)
	}
}

func TestEpisodeSchema_Defaults(t *testing.T) {
	schema := EpisodeSchema(2)
	got := structured.Decode[EpisodeOutline](schema.Repair(map[string]any{"key_events": "single event"}), schema)

	if got.Title != "Episode 2 title" || got.ConnectionToArc != "Episode 2 connection_to_arc" {
		t.Errorf("unexpected string defaults: %+v", got)
	}
	if got.CharacterFocus == nil || len(got.CharacterFocus) != 0 {
		t.Errorf("expected empty character focus, got %#v", got.CharacterFocus)
	}
	if len(got.KeyEvents) != 1 || got.KeyEvents[0] != "single event" {
		t.Errorf("expected promoted key events, got %v", got.KeyEvents)
	}
}

func TestSceneOutlineSchema_Defaults(t *testing.T) {
	schema := SceneOutlineSchema(3)
	got := structured.Decode[SceneOutline](schema.Repair(map[string]any{"tone": "grim"}), schema)

	if got.Tone != "grim" {
		t.Errorf("expected tone grim, got %q", got.Tone)
	}
	if got.Setting != "Default setting for scene 3" || got.Purpose != "Default purpose for scene 3" {
		t.Errorf("unexpected string defaults: %+v", got)
	}
}

func TestFlashCardSchema_Defaults(t *testing.T) {
	got := structured.Decode[FlashCardSet](FlashCardSchema.Repair(map[string]any{
		"characters": []any{"Mira"},
	}), FlashCardSchema)

	if len(got.Characters) != 1 || got.Characters[0] != "Mira" {
		t.Errorf("unexpected characters: %v", got.Characters)
	}
	if len(got.PlotPoints) != 1 || got.PlotPoints[0] != "Default plot points item" {
		t.Errorf("unexpected plot points default: %v", got.PlotPoints)
	}
	if got.WorldBuilding[0] != "Default world building item" {
		t.Errorf("unexpected world building default: %v", got.WorldBuilding)
	}
}
