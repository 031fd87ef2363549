package stage

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/narrative"
	"github.com/Yates-Labs/storyforge/internal/story"
	"github.com/Yates-Labs/storyforge/internal/structured"
)

const (
	EpisodesMaxTokens = 4000
	SceneMaxTokens    = 2000

	// SceneFailure is the prose recorded when a scene task panics.
	SceneFailure = "An unexpected error occurred in scene generation."
)

// GenerateEpisodeOutlines splits the bible into n episodes. Elements that are
// not objects are dropped, kept ones are repaired, and the list is padded
// from the canned episodes or capped so exactly n come back.
func (s *Stages) GenerateEpisodeOutlines(ctx context.Context, bible story.StoryBible, n int) []story.EpisodeOutline {
	if n <= 0 {
		return []story.EpisodeOutline{}
	}
	defaults := story.DefaultEpisodes(n)

	raw, ok := s.generate(ctx, "episodes", narrative.Request{
		Prompt:    s.episodesPrompt(bible, n),
		MaxTokens: EpisodesMaxTokens,
	})
	if !ok {
		return defaults
	}

	items := structured.ExtractJSONArray(raw)
	if items == nil {
		s.logger.Warn("malformed episode outlines, using defaults")
		return defaults
	}

	episodes := make([]story.EpisodeOutline, 0, n)
	for i, item := range items {
		if len(episodes) == n {
			s.logger.Warn("extra episode outlines dropped", "requested", n, "received", len(items))
			break
		}
		obj, ok := item.(map[string]any)
		if !ok {
			s.logger.Warn("episode outline is not an object, dropping", "index", i)
			continue
		}

		number := len(episodes) + 1
		schema := story.EpisodeSchema(number)
		ep := structured.Decode[story.EpisodeOutline](schema.Repair(obj), schema)
		episodes = append(episodes, ep)

		if data, err := json.Marshal(ep); err == nil {
			s.mem.Store(ctx, fmt.Sprintf("Episode %d: %s", number, ep.Title), memory.Metadata{
				"type":    "episode",
				"content": string(data),
			})
		}
	}

	for idx := len(episodes); idx < n; idx++ {
		episodes = append(episodes, defaults[idx])
	}
	return episodes
}

// GenerateSceneOutline plans scene n of ep.
func (s *Stages) GenerateSceneOutline(ctx context.Context, ep story.EpisodeOutline, n int) story.SceneOutline {
	raw, ok := s.generate(ctx, "scene_outline", narrative.Request{Prompt: sceneOutlinePrompt(ep, n)})
	if !ok {
		return story.DefaultSceneOutline(n)
	}

	obj := structured.ExtractJSON(raw)
	if obj == nil {
		s.logger.Warn("malformed scene outline, using defaults", "episode", ep.Title, "scene", n)
		return story.DefaultSceneOutline(n)
	}
	schema := story.SceneOutlineSchema(n)
	return structured.Decode[story.SceneOutline](schema.Repair(obj), schema)
}

// GenerateScene writes the prose for one outlined scene.
func (s *Stages) GenerateScene(ctx context.Context, ep story.EpisodeOutline, outline story.SceneOutline) string {
	prose, ok := s.generate(ctx, "scene", narrative.Request{
		Prompt:    scenePrompt(ep, outline),
		MaxTokens: SceneMaxTokens,
	})
	if !ok {
		return story.SceneFallback
	}

	title := string(ep.Title)
	if title == "" {
		title = "Untitled"
	}
	outlineJSON, _ := json.Marshal(outline)
	s.mem.Store(ctx, "Scene from "+title, memory.Metadata{
		"type":    "scene",
		"episode": title,
		"outline": string(outlineJSON),
		"content": prose,
	})
	return prose
}

// GenerateScenes outlines and writes m scenes of ep concurrently. Scenes come
// back in order; a scene whose task panics gets the default outline and a
// failure note instead of sinking the episode.
func (s *Stages) GenerateScenes(ctx context.Context, ep story.EpisodeOutline, m int) []story.Scene {
	if m <= 0 {
		return []story.Scene{}
	}
	scenes := make([]story.Scene, m)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range m {
		g.Go(func() error {
			n := i + 1
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("scene generation panicked", "episode", ep.Title, "scene", n, "panic", r)
					scenes[i] = story.Scene{Outline: story.DefaultSceneOutline(n), Content: SceneFailure}
				}
			}()

			if err := gctx.Err(); err != nil {
				scenes[i] = story.Scene{Outline: story.DefaultSceneOutline(n), Content: story.SceneFallback}
				return nil
			}
			outline := s.GenerateSceneOutline(gctx, ep, n)
			scenes[i] = story.Scene{Outline: outline, Content: s.GenerateScene(gctx, ep, outline)}
			return nil
		})
	}
	_ = g.Wait()

	return scenes
}
