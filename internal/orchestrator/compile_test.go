package orchestrator

import (
	"strings"
	"testing"

	"github.com/Yates-Labs/storyforge/internal/story"
)

func TestCompileStory_Empty(t *testing.T) {
	if got := CompileStory(nil); got != EmptyStory {
		t.Errorf("expected %q, got %q", EmptyStory, got)
	}
}

func TestCompileStory_Format(t *testing.T) {
	episodes := []story.EpisodeWithScenes{
		{
			Episode: story.EpisodeOutline{Title: "Arrival", Objective: "Reach the coast"},
			Scenes: []story.Scene{
				{
					Outline: story.SceneOutline{Setting: "The pier", Characters: story.List{"Mira", "Tom"}, Tone: "grim"},
					Content: "The ferry docked.",
				},
				{Outline: story.SceneOutline{}},
			},
		},
		{
			Episode: story.EpisodeOutline{},
		},
	}

	want := "# COMPLETE STORY\n\n" +
		"\n\nEPISODE 1: Arrival\n" + strings.Repeat("=", 50) + "\n\n" +
		"Objective: Reach the coast\n\n" +
		"\nScene 1\n" + strings.Repeat("-", 30) + "\n" +
		"Setting: The pier\n" +
		"Characters: Mira, Tom\n" +
		"Tone: grim\n" +
		"\n" +
		"The ferry docked.\n" +
		"\nScene 2\n" + strings.Repeat("-", 30) + "\n" +
		"\n" +
		"[Scene content missing]\n" +
		"\n\nEPISODE 2: Episode 2\n" + strings.Repeat("=", 50) + "\n\n"

	if got := CompileStory(episodes); got != want {
		t.Errorf("compiled story mismatch\n got: %q\nwant: %q", got, want)
	}
}
