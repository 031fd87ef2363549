package orchestrator

import (
	"fmt"
	"strings"

	"github.com/Yates-Labs/storyforge/internal/story"
)

// EmptyStory is the compiled text of a run with no episodes.
const EmptyStory = "No story content available."

// CompileStory assembles episodes and scenes into one plain-text manuscript.
// Absent fields are omitted, never treated as errors.
func CompileStory(episodes []story.EpisodeWithScenes) string {
	if len(episodes) == 0 {
		return EmptyStory
	}

	var b strings.Builder
	b.WriteString("# COMPLETE STORY\n\n")

	for i, ep := range episodes {
		title := string(ep.Episode.Title)
		if title == "" {
			title = fmt.Sprintf("Episode %d", i+1)
		}
		b.WriteString(fmt.Sprintf("\n\nEPISODE %d: %s\n", i+1, title))
		b.WriteString(strings.Repeat("=", 50) + "\n\n")

		if ep.Episode.Objective != "" {
			b.WriteString(fmt.Sprintf("Objective: %s\n\n", ep.Episode.Objective))
		}

		for j, sc := range ep.Scenes {
			b.WriteString(fmt.Sprintf("\nScene %d\n", j+1))
			b.WriteString(strings.Repeat("-", 30) + "\n")

			if sc.Outline.Setting != "" {
				b.WriteString(fmt.Sprintf("Setting: %s\n", sc.Outline.Setting))
			}
			if len(sc.Outline.Characters) > 0 {
				b.WriteString(fmt.Sprintf("Characters: %s\n", strings.Join(sc.Outline.Characters, ", ")))
			}
			if sc.Outline.Tone != "" {
				b.WriteString(fmt.Sprintf("Tone: %s\n", sc.Outline.Tone))
			}
			b.WriteString("\n")

			if sc.Content != "" {
				b.WriteString(sc.Content + "\n")
			} else {
				b.WriteString("[Scene content missing]\n")
			}
		}
	}

	return b.String()
}
