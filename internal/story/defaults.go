package story

import (
	"fmt"
	"strings"
)

// SceneFallback is the prose used when a scene cannot be generated.
const SceneFallback = "The scene unfolds with characters navigating their circumstances, moving the story forward."

// FallbackPerspectives returns the four canned perspectives for query.
func FallbackPerspectives(query string) []Perspective {
	return []Perspective{
		{
			Type:    "fantasy",
			Icon:    "fas fa-dragon",
			Title:   "Fantasy Quest",
			Preview: fmt.Sprintf("A mystical journey unfolds as a hero confronts ancient magic sparked by: '%s'.", query),
		},
		{
			Type:    "scifi",
			Icon:    "fas fa-rocket",
			Title:   "Sci-Fi Paradox",
			Preview: fmt.Sprintf("Advanced tech collides with human emotion when a discovery about '%s' threatens the timeline.", query),
		},
		{
			Type:    "mystery",
			Icon:    "fas fa-magnifying-glass",
			Title:   "Twisted Clues",
			Preview: fmt.Sprintf("An investigator peels back layers of deception after '%s' leads to a dark secret.", query),
		},
		{
			Type:    "theme",
			Icon:    "fas fa-brain",
			Title:   "Philosophical Reflection",
			Preview: fmt.Sprintf("'%s' becomes a lens to explore human nature, destiny, and moral complexity.", query),
		},
	}
}

// DefaultFlashCardItem is the filler for a missing flash card section.
func DefaultFlashCardItem(key string) string {
	return fmt.Sprintf("Default %s item", strings.ReplaceAll(key, "_", " "))
}

// DefaultFlashCards builds canned cards around a perspective summary.
func DefaultFlashCards(perspective string) FlashCardSet {
	return FlashCardSet{
		Characters: List{
			fmt.Sprintf("Character 1: A protagonist related to %s", perspective),
			"Character 2: An antagonist challenging the protagonist",
			"Character 3: A supporting character with their own motivations",
		},
		PlotPoints: List{
			fmt.Sprintf("Beginning: Introduction to the world of %s", perspective),
			"Rising Action: The protagonist faces initial challenges",
			"Complication: Unexpected obstacles arise",
			"Climax: The protagonist confronts the main conflict",
			"Resolution: The aftermath and consequences",
		},
		WorldBuilding: List{
			fmt.Sprintf("Setting: The primary location where %s takes place", perspective),
			"Social Structure: The hierarchies and relationships in this world",
			"Technology/Magic: Special elements that define this world",
		},
		Conflicts: List{
			"Internal Conflict: The protagonist's personal struggle",
			"Interpersonal Conflict: Tensions between characters",
			"External Conflict: Challenges from the environment or society",
		},
	}
}

// DefaultBible builds a complete story bible from the perspective and
// parameters alone.
func DefaultBible(p Perspective, params Parameters) StoryBible {
	title := p.Title
	if title == "" {
		title = "Untitled Story"
	}
	genre := params.Genre
	if genre == "" {
		genre = "fantasy"
	}
	tone := params.ToneAndMood
	if tone == "" {
		tone = "dramatic"
	}
	preview := p.Preview
	if preview == "" {
		preview = "a unique premise"
	}

	return StoryBible{
		Title:   Text(title),
		Tagline: Text(fmt.Sprintf("A %s tale of adventure and discovery", genre)),
		Premise: Text(fmt.Sprintf("In this %s story, a protagonist embarks on an exciting journey based on: '%s'. "+
			"Through challenges and growth, they discover something profound about themselves and their world.", genre, preview)),
		Theme:   "Identity and self-discovery",
		Setting: Text(fmt.Sprintf("A richly detailed %s world with unique cultures and landscapes.", genre)),
		Tone:    Text(tone),
		Genre:   Text(genre),
		Characters: []Character{
			{
				Name:       "Protagonist",
				Role:       "Main character",
				Traits:     "Determined, curious, resourceful",
				Motivation: "To discover their true purpose",
				Background: "Ordinary upbringing with a mysterious heritage",
				Arc:        "From self-doubt to self-confidence and purpose",
			},
			{
				Name:       "Antagonist",
				Role:       "Primary obstacle",
				Traits:     "Ambitious, calculating, powerful",
				Motivation: "To maintain control and power",
				Background: "Rose to power through questionable means",
				Arc:        "From seemingly invincible to exposed and defeated",
			},
			{
				Name:       "Mentor",
				Role:       "Guide and teacher",
				Traits:     "Wise, experienced, mysterious",
				Motivation: "To prepare the protagonist for their destiny",
				Background: "Has encountered similar challenges in the past",
				Arc:        "From reluctant guide to proud teacher",
			},
		},
		Plot: Plot{
			Act1: "Introduction to the protagonist's ordinary world, followed by an inciting incident that disrupts their normal life and forces them to embark on a journey.",
			Act2: "The protagonist faces escalating challenges, makes allies and enemies, learns new skills, and gradually uncovers the true nature of their quest.",
			Act3: "The protagonist confronts the antagonist in a climactic showdown, overcomes their internal and external obstacles, and returns transformed.",
			KeyEvents: []KeyEvent{
				{Title: "Inciting Incident", Description: "An unexpected event forces the protagonist out of their comfort zone."},
				{Title: "Meeting the Mentor", Description: "The protagonist encounters a wise figure who offers guidance and knowledge."},
				{Title: "First Challenge", Description: "The protagonist faces their first significant obstacle and learns an important lesson."},
				{Title: "Midpoint Revelation", Description: "A surprising discovery changes the protagonist's understanding of their quest."},
				{Title: "Climactic Battle", Description: "The final confrontation between the protagonist and the primary antagonist."},
			},
		},
		WorldBuilding: WorldBuilding{
			Environment: "A diverse landscape with distinctive natural features that influence the culture and lifestyle of its inhabitants.",
			Society:     "A structured society with clear hierarchies, traditions, and customs that the protagonist must navigate.",
			Rules:       "Special systems (magic/technology/etc.) that operate according to consistent rules and limitations.",
			History:     "A rich backstory of conflicts, alliances, and legendary figures that continue to influence present events.",
			Locations: []Location{
				{Name: "Protagonist's Home", Description: "The familiar setting that represents comfort and the status quo."},
				{Name: "Journey Location", Description: "A challenging environment that tests the protagonist's abilities."},
				{Name: "Antagonist's Domain", Description: "The forbidding place where the final confrontation occurs."},
			},
		},
		Themes: Themes{
			Central: []Theme{
				{Name: "Identity", Exploration: "The protagonist's journey to discover who they truly are and their place in the world."},
				{Name: "Power and Responsibility", Exploration: "Examining how characters use their abilities and the consequences of their choices."},
			},
		},
		Conflicts: []Conflict{
			{Type: "Character vs. Self", Description: "The protagonist's internal struggle to overcome fear, doubt, or other personal limitations."},
			{Type: "Character vs. Character", Description: "The opposition between the protagonist and antagonist, representing conflicting values or goals."},
			{Type: "Character vs. Society", Description: "The protagonist's challenge to navigate or change social expectations and structures."},
		},
	}
}

// DefaultEpisodes builds n canned outlines: a beginning, n-2 developments and
// a resolution.
func DefaultEpisodes(n int) []EpisodeOutline {
	episodes := make([]EpisodeOutline, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		var title, objective, phase string
		switch {
		case i == 1:
			title, objective, phase = "Beginning", "Introduce characters and setting", "setup"
		case i == n:
			title, objective, phase = "Resolution", "Resolve the main conflicts", "conclusion"
		default:
			title, objective, phase = fmt.Sprintf("Development %d", i), "Advance the plot and develop characters", "middle"
		}

		episodes = append(episodes, EpisodeOutline{
			Title:          Text(fmt.Sprintf("Episode %d: %s", i, title)),
			Objective:      Text(objective),
			CharacterFocus: List{"Protagonist", "Supporting Character", "Antagonist"},
			KeyEvents: List{
				fmt.Sprintf("Event 1: Introduction of %s elements", phase),
				fmt.Sprintf("Event 2: Complication in %s", phase),
				"Event 3: Transition to next phase",
			},
			ConnectionToArc: Text(fmt.Sprintf("This episode represents the %s phase of the story arc.", phase)),
		})
	}
	return episodes
}

// DefaultSceneOutline builds the canned outline for scene n.
func DefaultSceneOutline(n int) SceneOutline {
	return SceneOutline{
		Setting:    Text(fmt.Sprintf("Default setting for scene %d", n)),
		Characters: List{"Character 1", "Character 2"},
		Purpose:    Text(fmt.Sprintf("Scene %d advances the plot", n)),
		Tone:       "Neutral with elements of tension",
		KeyBeats: List{
			"Characters enter the scene",
			"Main conversation or action occurs",
			"Scene resolves with a hook to the next scene",
		},
	}
}
