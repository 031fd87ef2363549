package stage

import (
	"context"
	"encoding/json"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
	"github.com/Yates-Labs/storyforge/internal/story"
	"github.com/Yates-Labs/storyforge/internal/structured"
)

// FlashCardTemperature keeps flash cards close to the perspective.
const FlashCardTemperature = 0.3

// GeneratePerspectives returns exactly four interpretations of query. The
// generated list is accepted only as a whole: any other shape yields the
// canned perspectives.
func (s *Stages) GeneratePerspectives(ctx context.Context, query string) []story.Perspective {
	raw, ok := s.generate(ctx, "perspectives", narrative.Request{Prompt: perspectivesPrompt(query)})
	if !ok {
		return story.FallbackPerspectives(query)
	}

	ps, ok := parsePerspectives(raw)
	if !ok {
		s.logger.Warn("malformed perspectives, using defaults")
		return story.FallbackPerspectives(query)
	}
	return ps
}

func parsePerspectives(raw string) ([]story.Perspective, bool) {
	items := structured.ExtractJSONArray(raw)
	if len(items) != story.PerspectiveCount {
		return nil, false
	}

	out := make([]story.Perspective, 0, story.PerspectiveCount)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		p := story.Perspective{
			Type:    stringField(obj, "type"),
			Icon:    stringField(obj, "icon"),
			Title:   stringField(obj, "title"),
			Preview: stringField(obj, "preview"),
		}
		if !p.Valid() {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// GenerateFlashCards condenses one perspective. On success the perspective
// and its cards are both recorded, the cards pointing back at the
// perspective record.
func (s *Stages) GenerateFlashCards(ctx context.Context, p story.Perspective) story.FlashCardSet {
	text := describePerspective(p)

	raw, ok := s.generate(ctx, "flash_cards", narrative.Request{
		Prompt:      flashCardsPrompt(text),
		Temperature: narrative.Float(FlashCardTemperature),
	})
	if !ok {
		return story.DefaultFlashCards(text)
	}

	obj := structured.ExtractJSON(raw)
	if obj == nil {
		s.logger.Warn("malformed flash cards, using defaults", "perspective", p.Title)
		return story.DefaultFlashCards(text)
	}
	if missing := story.FlashCardSchema.Missing(obj); len(missing) > 0 {
		s.logger.Warn("flash cards missing sections", "perspective", p.Title, "missing", missing)
	}
	cards := structured.Decode[story.FlashCardSet](story.FlashCardSchema.Repair(obj), story.FlashCardSchema)

	id := s.mem.Store(ctx, text, memory.Metadata{
		"type":            "perspective",
		"has_flash_cards": true,
		"title":           p.Title,
	})
	if data, err := json.Marshal(cards); err == nil {
		s.mem.Store(ctx, string(data), memory.Metadata{
			"type":        "flash_cards",
			"related_to":  id,
			"perspective": text,
		})
	}

	return cards
}
