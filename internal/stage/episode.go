package stage

import (
	"context"
	"strings"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
	"github.com/Yates-Labs/storyforge/internal/story"
)

const (
	// EpisodeTemperature and EpisodeMaxTokens are the sampling settings for
	// episode prose.
	EpisodeTemperature = 0.7
	EpisodeMaxTokens   = 4000

	// UntitledEpisode is used when no title can be found in the prose.
	UntitledEpisode = "Untitled Episode"

	// EpisodeFailure is the reply parsed when an episode cannot be generated.
	EpisodeFailure = "EPISODE TITLE: Error Episode\n\nUnable to generate episode content. Please try again."

	defaultHook = "\n\nHOOK: To be continued..."
)

var (
	titleMarkers = []string{"EPISODE TITLE:", "Title:", "Episode Title:"}
	hookPhrases  = []string{"hook:", "to be continued", "what happens next", "little did they know", "but that was just the beginning"}
	titleStrip   = strings.NewReplacer("*", "", "_", "", `"`, "", "'", "")
)

// GenerateEpisode writes episode number of the story in one pass, continuing
// from the previous episodes.
func (s *Stages) GenerateEpisode(ctx context.Context, bible story.StoryBible, number int, previous []story.PreviousEpisode, query string) story.Episode {
	if number <= 0 {
		number = len(previous) + 1
	}

	raw, ok := s.generate(ctx, "episode", narrative.Request{
		Prompt:      s.episodePrompt(bible, number, previous, query),
		Temperature: narrative.Float(EpisodeTemperature),
		MaxTokens:   EpisodeMaxTokens,
	})
	if !ok {
		raw = EpisodeFailure
	}

	ep := ParseEpisode(raw)
	ep.Number = number
	if ok {
		s.mem.Store(ctx, ep.Title, memory.Metadata{
			"type":    "episode",
			"number":  number,
			"story":   string(bible.Title),
			"content": ep.Content,
		})
	}
	return ep
}

// ParseEpisode splits generated prose into a title and body and guarantees
// the body ends on a hook.
func ParseEpisode(raw string) story.Episode {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	title, content, found := "", raw, false

	for i, line := range lines {
		if !hasTitleMarker(line) {
			continue
		}
		if _, after, ok := strings.Cut(line, ":"); ok {
			title = strings.TrimSpace(after)
			content = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			found = true
			break
		}
	}

	if !found && len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		if len(first) < 100 && !strings.HasSuffix(first, ".") && !strings.HasPrefix(first, "#") {
			title = first
			content = strings.TrimSpace(strings.Join(lines[1:], "\n"))
		}
	}

	title = strings.TrimSpace(titleStrip.Replace(title))
	if title == "" {
		title = UntitledEpisode
	}
	if !hasHook(content) {
		content += defaultHook
	}

	return story.Episode{Title: title, Content: content, Scenes: []story.Scene{}}
}

func hasTitleMarker(line string) bool {
	for _, m := range titleMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

func hasHook(content string) bool {
	lower := strings.ToLower(content)
	for _, p := range hookPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
