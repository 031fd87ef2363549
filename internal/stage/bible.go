package stage

import (
	"context"
	"encoding/json"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
	"github.com/Yates-Labs/storyforge/internal/story"
	"github.com/Yates-Labs/storyforge/internal/structured"
)

// Sampling settings for story bible generation.
const (
	BibleTemperature = 0.7
	BibleMaxTokens   = 4000
)

// BibleInput is everything the story bible is built from.
type BibleInput struct {
	Perspective story.Perspective   `json:"perspective"`
	Parameters  story.Parameters    `json:"parameters"`
	Importance  story.Importance    `json:"importance"`
	Query       string              `json:"query"`
	FlashCards  *story.FlashCardSet `json:"flash_cards,omitempty"`
}

// GenerateStoryBible elaborates the chosen perspective into a story bible.
// A partial object keeps what it has and takes every missing key from the
// default bible for the same perspective and parameters.
func (s *Stages) GenerateStoryBible(ctx context.Context, in BibleInput) story.StoryBible {
	def := story.DefaultBible(in.Perspective, in.Parameters)

	raw, ok := s.generate(ctx, "story_bible", narrative.Request{
		Prompt:      biblePrompt(in),
		Temperature: narrative.Float(BibleTemperature),
		MaxTokens:   BibleMaxTokens,
	})
	if !ok {
		return def
	}

	obj := structured.ExtractJSON(raw)
	if obj == nil {
		s.logger.Warn("malformed story bible, using defaults", "perspective", in.Perspective.Title)
		return def
	}

	schema := story.BibleSchema(def)
	if missing := schema.Missing(obj); len(missing) > 0 {
		s.logger.Warn("story bible missing keys, backfilling", "missing", missing)
	}
	bible := structured.Decode[story.StoryBible](schema.Repair(obj), schema)

	if data, err := json.Marshal(bible); err == nil {
		s.mem.Store(ctx, string(data), memory.Metadata{
			"type":        "story_bible",
			"title":       string(bible.Title),
			"perspective": in.Perspective.Title,
		})
	}
	return bible
}
