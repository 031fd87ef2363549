package story

import (
	"fmt"

	"github.com/Yates-Labs/storyforge/internal/structured"
)

// Repair tables for each generated artifact. Defaults are built per call so
// callers never share them.

// FlashCardSchema fills a missing section with a single placeholder item.
var FlashCardSchema = structured.Schema{
	flashCardField("characters"),
	flashCardField("plot_points"),
	flashCardField("world_building"),
	flashCardField("conflicts"),
}

func flashCardField(key string) structured.Field {
	return structured.Field{
		Name:    key,
		List:    true,
		Default: func() any { return []any{DefaultFlashCardItem(key)} },
	}
}

// BibleSchema backfills missing keys from def, the default bible for the same
// perspective and parameters.
func BibleSchema(def StoryBible) structured.Schema {
	return structured.Schema{
		{Name: "title", Default: func() any { return def.Title }},
		{Name: "tagline", Default: func() any { return def.Tagline }},
		{Name: "premise", Default: func() any { return def.Premise }},
		{Name: "theme", Default: func() any { return def.Theme }},
		{Name: "setting", Default: func() any { return def.Setting }},
		{Name: "tone", Default: func() any { return def.Tone }},
		{Name: "genre", Default: func() any { return def.Genre }},
		{Name: "characters", List: true, Default: func() any { return def.Characters }},
		{Name: "plot", Default: func() any { return def.Plot }},
		{Name: "worldBuilding", Default: func() any { return def.WorldBuilding }},
		{Name: "themes", Default: func() any { return def.Themes }},
		{Name: "conflicts", List: true, Default: func() any { return def.Conflicts }},
	}
}

// EpisodeSchema repairs the outline at 1-based position n.
func EpisodeSchema(n int) structured.Schema {
	text := func(key string) structured.Field {
		return structured.Field{Name: key, Default: func() any { return fmt.Sprintf("Episode %d %s", n, key) }}
	}
	return structured.Schema{
		text("title"),
		text("objective"),
		{Name: "character_focus", List: true},
		{Name: "key_events", List: true},
		text("connection_to_arc"),
	}
}

// SceneOutlineSchema repairs the outline of scene n.
func SceneOutlineSchema(n int) structured.Schema {
	text := func(key string) structured.Field {
		return structured.Field{Name: key, Default: func() any { return fmt.Sprintf("Default %s for scene %d", key, n) }}
	}
	return structured.Schema{
		text("setting"),
		{Name: "characters", List: true},
		text("purpose"),
		text("tone"),
		{Name: "key_beats", List: true},
	}
}
