// Package story defines the artifacts produced by each pipeline stage and the
// canned defaults that stand in for them when generation fails.
package story

import (
	"errors"
	"time"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/structured"
)

var (
	// ErrInvalidInput marks a missing or malformed caller-supplied field. It is
	// the only error class that reaches an end caller.
	ErrInvalidInput = errors.New("invalid input")
)

type (
	// Text is a tolerant string field.
	Text = structured.Text

	// List is a tolerant list-of-strings field.
	List = structured.List
)

// PerspectiveCount is the number of perspectives produced per query.
const PerspectiveCount = 4

// Perspective is one candidate narrative angle on the user's idea.
type Perspective struct {
	Type    string `json:"type"`
	Icon    string `json:"icon"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// Valid reports whether every field is a non-empty string.
func (p Perspective) Valid() bool {
	return p.Type != "" && p.Icon != "" && p.Title != "" && p.Preview != ""
}

// FlashCardSet condenses one perspective into characters, plot, world and
// conflicts.
type FlashCardSet struct {
	Characters    List `json:"characters"`
	PlotPoints    List `json:"plot_points"`
	WorldBuilding List `json:"world_building"`
	Conflicts     List `json:"conflicts"`
}

// StoryBible is the canonical structured description of a story.
type StoryBible struct {
	Title         Text          `json:"title"`
	Tagline       Text          `json:"tagline"`
	Premise       Text          `json:"premise"`
	Theme         Text          `json:"theme"`
	Setting       Text          `json:"setting"`
	Tone          Text          `json:"tone"`
	Genre         Text          `json:"genre"`
	Characters    []Character   `json:"characters"`
	Plot          Plot          `json:"plot"`
	WorldBuilding WorldBuilding `json:"worldBuilding"`
	Themes        Themes        `json:"themes"`
	Conflicts     []Conflict    `json:"conflicts"`
}

// Character is one major character of the story bible.
type Character struct {
	Name       Text `json:"name"`
	Role       Text `json:"role"`
	Traits     Text `json:"traits"`
	Motivation Text `json:"motivation"`
	Background Text `json:"background"`
	Arc        Text `json:"arc"`
}

// Plot is the three-act structure plus key events.
type Plot struct {
	Act1      Text       `json:"act1"`
	Act2      Text       `json:"act2"`
	Act3      Text       `json:"act3"`
	KeyEvents []KeyEvent `json:"keyEvents"`
}

// KeyEvent is one turning point of the plot.
type KeyEvent struct {
	Title       Text `json:"title"`
	Description Text `json:"description"`
}

// WorldBuilding describes the setting and its named locations.
type WorldBuilding struct {
	Environment Text       `json:"environment"`
	Society     Text       `json:"society"`
	Rules       Text       `json:"rules"`
	History     Text       `json:"history"`
	Locations   []Location `json:"locations"`
}

// Location is a named place in the world.
type Location struct {
	Name        Text `json:"name"`
	Description Text `json:"description"`
}

// Themes groups the central themes of a story.
type Themes struct {
	Central []Theme `json:"central"`
}

// Theme names a theme and how the story explores it.
type Theme struct {
	Name        Text `json:"name"`
	Exploration Text `json:"exploration"`
}

// Conflict is one source of tension, such as "Character vs. Self".
type Conflict struct {
	Type        Text `json:"type"`
	Description Text `json:"description"`
}

// Parameters are the user-tunable knobs for story bible generation.
type Parameters struct {
	Genre                string `json:"genre,omitempty" yaml:"genre,omitempty"`
	TargetAudience       string `json:"targetAudience,omitempty" yaml:"targetAudience,omitempty"`
	ToneAndMood          string `json:"toneAndMood,omitempty" yaml:"toneAndMood,omitempty"`
	StoryLength          string `json:"storyLength,omitempty" yaml:"storyLength,omitempty"`
	Complexity           int    `json:"complexity,omitempty" yaml:"complexity,omitempty" validate:"omitempty,min=1,max=5"`
	Pacing               int    `json:"pacing,omitempty" yaml:"pacing,omitempty" validate:"omitempty,min=1,max=5"`
	WorldBuildingDepth   int    `json:"worldBuildingDepth,omitempty" yaml:"worldBuildingDepth,omitempty" validate:"omitempty,min=1,max=5"`
	CharacterDevelopment int    `json:"characterDevelopment,omitempty" yaml:"characterDevelopment,omitempty" validate:"omitempty,min=1,max=5"`
	ThemeEmphasis        int    `json:"themeEmphasis,omitempty" yaml:"themeEmphasis,omitempty" validate:"omitempty,min=1,max=5"`
}

// Importance weights story elements from 1 to 5.
type Importance struct {
	Characters    int `json:"charactersImportance,omitempty" yaml:"charactersImportance,omitempty" validate:"omitempty,min=1,max=5"`
	Plot          int `json:"plotImportance,omitempty" yaml:"plotImportance,omitempty" validate:"omitempty,min=1,max=5"`
	WorldBuilding int `json:"worldBuildingImportance,omitempty" yaml:"worldBuildingImportance,omitempty" validate:"omitempty,min=1,max=5"`
	Theme         int `json:"themeImportance,omitempty" yaml:"themeImportance,omitempty" validate:"omitempty,min=1,max=5"`
	Conflict      int `json:"conflictImportance,omitempty" yaml:"conflictImportance,omitempty" validate:"omitempty,min=1,max=5"`
}

// EpisodeOutline is one episode of the story arc.
type EpisodeOutline struct {
	Title           Text `json:"title"`
	Objective       Text `json:"objective"`
	CharacterFocus  List `json:"character_focus"`
	KeyEvents       List `json:"key_events"`
	ConnectionToArc Text `json:"connection_to_arc"`
}

// SceneOutline plans a single scene.
type SceneOutline struct {
	Setting    Text `json:"setting"`
	Characters List `json:"characters"`
	Purpose    Text `json:"purpose"`
	Tone       Text `json:"tone"`
	KeyBeats   List `json:"key_beats"`
}

// Scene pairs an outline with its prose.
type Scene struct {
	Outline SceneOutline `json:"outline"`
	Content string       `json:"content"`
}

// EpisodeWithScenes is an episode outline with its generated scenes.
type EpisodeWithScenes struct {
	Episode EpisodeOutline `json:"episode"`
	Scenes  []Scene        `json:"scenes"`
}

// Episode is a long-form episode written in one pass from the story bible.
type Episode struct {
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Scenes  []Scene `json:"scenes"`
}

// PreviousEpisode summarises an already written episode for continuity.
type PreviousEpisode struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Result aggregates everything one pipeline run produced. Fields after a
// failing stage keep their zero value.
type Result struct {
	RunID            string              `json:"run_id"`
	Query            string              `json:"query"`
	Success          bool                `json:"success"`
	Error            string              `json:"error,omitempty"`
	Perspectives     []Perspective       `json:"perspectives"`
	FlashCards       []FlashCardSet      `json:"flash_cards"`
	StoryBible       *StoryBible         `json:"story_bible,omitempty"`
	Episodes         []EpisodeWithScenes `json:"episodes"`
	FullStory        string              `json:"full_story"`
	CoverImageURL    string              `json:"cover_image_url"`
	ConsistencyCheck []memory.Match      `json:"consistency_check"`
	StartedAt        time.Time           `json:"started_at"`
	FinishedAt       time.Time           `json:"finished_at"`
}
