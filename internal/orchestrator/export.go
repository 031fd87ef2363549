package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Yates-Labs/storyforge/internal/story"
)

// ExportFormat represents supported export formats
type ExportFormat string

const (
	FormatJSON    ExportFormat = "json"
	FormatSummary ExportFormat = "summary"
	FormatText    ExportFormat = "text"
)

// ResultSummary is a run condensed to counts and titles.
type ResultSummary struct {
	RunID         string    `json:"run_id"`
	Query         string    `json:"query"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	Title         string    `json:"title"`
	EpisodeCount  int       `json:"episode_count"`
	SceneCount    int       `json:"scene_count"`
	WordCount     int       `json:"word_count"`
	EpisodeTitles []string  `json:"episode_titles"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
}

// ExportResult writes res as full JSON, a JSON summary or the compiled
// manuscript.
func ExportResult(res *story.Result, format string, writer io.Writer) error {
	switch ExportFormat(strings.ToLower(format)) {
	case FormatJSON:
		return exportJSON(res, writer)
	case FormatSummary:
		return exportJSON(Summarize(res), writer)
	case FormatText:
		text := res.FullStory
		if text == "" {
			text = CompileStory(res.Episodes)
		}
		_, err := io.WriteString(writer, text)
		return err
	}
	return fmt.Errorf("unsupported export format: %s (supported: json, summary, text)", format)
}

// Summarize condenses res into a ResultSummary.
func Summarize(res *story.Result) ResultSummary {
	sum := ResultSummary{
		RunID:         res.RunID,
		Query:         res.Query,
		Success:       res.Success,
		Error:         res.Error,
		EpisodeCount:  len(res.Episodes),
		EpisodeTitles: make([]string, len(res.Episodes)),
		CoverImageURL: res.CoverImageURL,
		StartedAt:     res.StartedAt,
		Duration:      res.FinishedAt.Sub(res.StartedAt).String(),
	}
	if res.StoryBible != nil {
		sum.Title = string(res.StoryBible.Title)
	}
	for i, ep := range res.Episodes {
		sum.EpisodeTitles[i] = string(ep.Episode.Title)
		sum.SceneCount += len(ep.Scenes)
		for _, sc := range ep.Scenes {
			sum.WordCount += len(strings.Fields(sc.Content))
		}
	}
	return sum
}

func exportJSON(v any, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
