package stage

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/Yates-Labs/storyforge/internal/story"
)

// schemaFor renders the JSON schema of T for embedding in a prompt. Slices
// are rendered as an array of their expanded element schema.
func schemaFor[T any]() string {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}

	t := reflect.TypeFor[T]()
	var schema *jsonschema.Schema
	if t.Kind() == reflect.Slice {
		items := r.ReflectFromType(t.Elem())
		items.Version = ""
		items.ID = ""
		schema = &jsonschema.Schema{Version: jsonschema.Version, Type: "array", Items: items}
	} else {
		schema = r.ReflectFromType(t)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

var (
	perspectivesSchema = schemaFor[[]story.Perspective]()
	flashCardsSchema   = schemaFor[story.FlashCardSet]()
	bibleSchema        = schemaFor[story.StoryBible]()
	episodesSchema     = schemaFor[[]story.EpisodeOutline]()
	sceneOutlineSchema = schemaFor[story.SceneOutline]()
)

func writeSchema(b *strings.Builder, schema string) {
	if schema == "" {
		return
	}
	b.WriteString("# Output Schema\n\n")
	b.WriteString("Respond with JSON only, matching this schema:\n\n")
	b.WriteString("```json\n")
	b.WriteString(schema)
	b.WriteString("\n```\n")
}

func perspectivesPrompt(query string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("The user has provided the following story idea: %q\n\n", query))
	b.WriteString("# Task\n\n")
	b.WriteString(fmt.Sprintf("Generate %d distinct, detailed perspectives that explore different interpretations of this idea. ", story.PerspectiveCount))
	b.WriteString("Each perspective should:\n")
	b.WriteString("1. Be 3-4 sentences long\n")
	b.WriteString("2. Clearly articulate a unique interpretation\n")
	b.WriteString("3. Provide concrete details that bring the perspective to life\n")
	b.WriteString("4. Cover a different aspect of storytelling\n\n")
	b.WriteString("Use these perspective types:\n")
	b.WriteString("1. Character-Driven: the protagonist's personal journey\n")
	b.WriteString("2. Plot-Driven: key events and conflicts\n")
	b.WriteString("3. World-Driven: setting and atmosphere\n")
	b.WriteString("4. Theme-Driven: deeper meaning and message\n\n")
	b.WriteString("Every item needs a type, a Font Awesome icon class, a creative title and a 2-3 sentence atmospheric preview. ")
	b.WriteString(fmt.Sprintf("Output a JSON list of exactly %d objects.\n\n", story.PerspectiveCount))
	writeSchema(&b, perspectivesSchema)

	return b.String()
}

// describePerspective is the text form of a perspective used in prompts and
// memory.
func describePerspective(p story.Perspective) string {
	return fmt.Sprintf("%s (%s): %s", p.Title, p.Type, p.Preview)
}

func flashCardsPrompt(perspective string) string {
	var b strings.Builder

	b.WriteString("Create detailed flash cards for the following story perspective:\n\n")
	b.WriteString(fmt.Sprintf("%q\n\n", perspective))
	b.WriteString("# Sections\n\n")
	b.WriteString("1. characters: 3 main characters with names, traits and motivations\n")
	b.WriteString("2. plot_points: 5 key events in the story\n")
	b.WriteString("3. world_building: 3 important aspects of the setting\n")
	b.WriteString("4. conflicts: 3 major conflicts that could drive the story\n\n")
	b.WriteString("Each section is an array of strings.\n\n")
	writeSchema(&b, flashCardsSchema)

	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func orScale(v int) int {
	if v == 0 {
		return 3
	}
	return v
}

func biblePrompt(in BibleInput) string {
	var b strings.Builder
	p, params, imp := in.Perspective, in.Parameters, in.Importance

	b.WriteString("Generate a comprehensive, detailed story bible based on the following perspective and parameters.\n\n")

	b.WriteString("# Original Story Idea\n\n")
	b.WriteString(fmt.Sprintf("%q\n\n", in.Query))

	b.WriteString("# Selected Perspective\n\n")
	b.WriteString(fmt.Sprintf("**Title:** %s\n", orDefault(p.Title, "Untitled Perspective")))
	b.WriteString(fmt.Sprintf("**Type:** %s\n", orDefault(p.Type, "Unknown")))
	b.WriteString(fmt.Sprintf("**Description:** %s\n\n", orDefault(p.Preview, "No description provided")))

	if in.FlashCards != nil {
		b.WriteString("# Flash Cards\n\n")
		writeList(&b, "Characters", in.FlashCards.Characters)
		writeList(&b, "Plot Points", in.FlashCards.PlotPoints)
		writeList(&b, "World Building", in.FlashCards.WorldBuilding)
		writeList(&b, "Conflicts", in.FlashCards.Conflicts)
	}

	b.WriteString("# User Parameters\n\n")
	b.WriteString(fmt.Sprintf("- Genre: %s\n", orDefault(params.Genre, "fantasy")))
	b.WriteString(fmt.Sprintf("- Target Audience: %s\n", orDefault(params.TargetAudience, "young adult")))
	b.WriteString(fmt.Sprintf("- Tone & Mood: %s\n", orDefault(params.ToneAndMood, "dramatic")))
	b.WriteString(fmt.Sprintf("- Story Length: %s\n", orDefault(params.StoryLength, "medium")))
	b.WriteString(fmt.Sprintf("- Complexity (1-5): %d\n", orScale(params.Complexity)))
	b.WriteString(fmt.Sprintf("- Pacing (1-5): %d\n", orScale(params.Pacing)))
	b.WriteString(fmt.Sprintf("- World Building Depth (1-5): %d\n", orScale(params.WorldBuildingDepth)))
	b.WriteString(fmt.Sprintf("- Character Development (1-5): %d\n", orScale(params.CharacterDevelopment)))
	b.WriteString(fmt.Sprintf("- Theme Emphasis (1-5): %d\n\n", orScale(params.ThemeEmphasis)))

	b.WriteString("# Element Importance (1-5)\n\n")
	b.WriteString(fmt.Sprintf("- Characters: %d\n", orScale(imp.Characters)))
	b.WriteString(fmt.Sprintf("- Plot: %d\n", orScale(imp.Plot)))
	b.WriteString(fmt.Sprintf("- World Building: %d\n", orScale(imp.WorldBuilding)))
	b.WriteString(fmt.Sprintf("- Theme: %d\n", orScale(imp.Theme)))
	b.WriteString(fmt.Sprintf("- Conflict: %d\n\n", orScale(imp.Conflict)))

	b.WriteString("# Task\n\n")
	b.WriteString("Combine the original idea with the selected perspective so the narrative keeps the core concept while exploring it through the chosen lens. ")
	b.WriteString("Include 3-5 characters, 5-7 key events, 3-4 locations, 2-3 central themes and 2-4 conflicts. ")
	b.WriteString("Put extra emphasis and detail on the elements with higher importance values, and keep the bible internally consistent.\n\n")
	writeSchema(&b, bibleSchema)

	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("**%s:**\n", heading))
	for _, it := range items {
		b.WriteString(fmt.Sprintf("- %s\n", it))
	}
	b.WriteString("\n")
}

// bibleDigest is the reduced bible handed to episode planning.
type bibleDigest struct {
	Title      story.Text        `json:"title"`
	Premise    story.Text        `json:"premise"`
	Plot       story.Plot        `json:"plot"`
	Characters []story.Character `json:"characters"`
	Conflicts  []story.Conflict  `json:"conflicts"`
}

func digest(bible story.StoryBible) bibleDigest {
	d := bibleDigest{
		Title:      bible.Title,
		Premise:    bible.Premise,
		Plot:       bible.Plot,
		Characters: bible.Characters,
		Conflicts:  bible.Conflicts,
	}
	if len(d.Characters) > 3 {
		d.Characters = d.Characters[:3]
	}
	if len(d.Conflicts) > 3 {
		d.Conflicts = d.Conflicts[:3]
	}
	return d
}

func (s *Stages) episodesPrompt(bible story.StoryBible, n int) string {
	var b strings.Builder

	data, _ := json.MarshalIndent(digest(bible), "", "  ")

	b.WriteString(fmt.Sprintf("Based on the following story bible, divide the narrative into %d episodes.\n\n", n))
	b.WriteString("# Story Bible\n\n")
	b.WriteString("```json\n")
	b.WriteString(s.fit(string(data)))
	b.WriteString("\n```\n\n")
	b.WriteString("# Task\n\n")
	b.WriteString("For each episode, provide:\n")
	b.WriteString("1. title\n")
	b.WriteString("2. objective: what this episode accomplishes\n")
	b.WriteString("3. character_focus: which characters matter most (array of names)\n")
	b.WriteString("4. key_events: 3-5 important things that happen (array)\n")
	b.WriteString("5. connection_to_arc: how this moves the main story forward\n\n")
	b.WriteString(fmt.Sprintf("Output a JSON array of %d episodes.\n\n", n))
	writeSchema(&b, episodesSchema)

	return b.String()
}

func sceneOutlinePrompt(ep story.EpisodeOutline, n int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Create a detailed outline for Scene %d of the following episode.\n\n", n))
	b.WriteString("# Episode\n\n")
	b.WriteString(fmt.Sprintf("**Episode Title:** %s\n", orDefault(string(ep.Title), "Untitled")))
	b.WriteString(fmt.Sprintf("**Objective:** %s\n", ep.Objective))
	b.WriteString(fmt.Sprintf("**Key Events:** %s\n\n", strings.Join(ep.KeyEvents, ", ")))
	b.WriteString("# Task\n\n")
	b.WriteString("The scene outline should include:\n")
	b.WriteString("1. setting: where and when the scene takes place\n")
	b.WriteString("2. characters: who is present (array of names)\n")
	b.WriteString("3. purpose: what this scene accomplishes\n")
	b.WriteString("4. tone: the mood of the scene\n")
	b.WriteString("5. key_beats: 3-5 important moments (array)\n\n")
	writeSchema(&b, sceneOutlineSchema)

	return b.String()
}

func scenePrompt(ep story.EpisodeOutline, outline story.SceneOutline) string {
	var b strings.Builder

	data, _ := json.MarshalIndent(outline, "", "  ")

	b.WriteString(fmt.Sprintf("Write the full narrative for a scene in the episode %q.\n\n", orDefault(string(ep.Title), "Untitled")))
	b.WriteString("# Scene Outline\n\n")
	b.WriteString("```json\n")
	b.WriteString(string(data))
	b.WriteString("\n```\n\n")
	b.WriteString("# Task\n\n")
	b.WriteString("Write the scene in third-person narrative style, including:\n")
	b.WriteString("- Vivid descriptions of the setting\n")
	b.WriteString("- Character actions and dialogue\n")
	b.WriteString("- Emotional depth\n")
	b.WriteString("- Smooth transitions between beats\n\n")
	b.WriteString("The scene should be approximately 500 words. Output prose only.\n")

	return b.String()
}

func (s *Stages) episodePrompt(bible story.StoryBible, number int, previous []story.PreviousEpisode, query string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Write Episode %d of the story described below.\n\n", number))

	if strings.TrimSpace(query) != "" {
		b.WriteString("# Original Story Idea\n\n")
		b.WriteString(fmt.Sprintf("%q\n\n", query))
	}

	b.WriteString("# Story\n\n")
	b.WriteString(fmt.Sprintf("**Title:** %s\n", orDefault(string(bible.Title), "Untitled Story")))
	b.WriteString(fmt.Sprintf("**Tagline:** %s\n", orDefault(string(bible.Tagline), "A compelling tale")))
	b.WriteString(fmt.Sprintf("**Premise:** %s\n", orDefault(string(bible.Premise), "A story waiting to be told")))
	b.WriteString(fmt.Sprintf("**Genre:** %s\n", orDefault(string(bible.Genre), "fiction")))
	b.WriteString(fmt.Sprintf("**Tone:** %s\n\n", orDefault(string(bible.Tone), "balanced")))

	if len(bible.Characters) > 0 {
		b.WriteString("# Characters\n\n")
		for _, c := range bible.Characters {
			b.WriteString(fmt.Sprintf("- **%s** (%s): %s. Motivation: %s\n",
				orDefault(string(c.Name), "Unnamed"), orDefault(string(c.Role), "Character"), c.Traits, c.Motivation))
		}
		b.WriteString("\n")
	}

	b.WriteString("# Plot Structure\n\n")
	b.WriteString(fmt.Sprintf("- Act 1: %s\n", bible.Plot.Act1))
	b.WriteString(fmt.Sprintf("- Act 2: %s\n", bible.Plot.Act2))
	b.WriteString(fmt.Sprintf("- Act 3: %s\n\n", bible.Plot.Act3))

	b.WriteString("# World Context\n\n")
	b.WriteString(fmt.Sprintf("- Environment: %s\n", bible.WorldBuilding.Environment))
	b.WriteString(fmt.Sprintf("- Society: %s\n", bible.WorldBuilding.Society))
	b.WriteString(fmt.Sprintf("- Rules: %s\n\n", bible.WorldBuilding.Rules))

	if len(previous) > 0 {
		var prev strings.Builder
		for i, ep := range previous {
			n := ep.Number
			if n == 0 {
				n = i + 1
			}
			summary := ep.Content
			if len(summary) > 300 {
				summary = summary[:300]
			}
			prev.WriteString(fmt.Sprintf("- Episode %d: %s - %s...\n", n, orDefault(ep.Title, "Untitled"), summary))
		}
		b.WriteString("# Previous Episodes Summary\n\n")
		b.WriteString(s.fit(prev.String()))
		b.WriteString("\n\n")
	}

	b.WriteString("# Task\n\n")
	b.WriteString("Write the complete episode in about 1500-2000 words of engaging prose with dialogue, ")
	b.WriteString("keeping continuity with the previous episodes and moving the plot structure forward. ")
	b.WriteString("Start with a line of the form \"EPISODE TITLE: <title>\". ")
	b.WriteString("End with a final paragraph starting with \"HOOK:\" that leaves the reader wanting the next episode.\n")

	return b.String()
}
