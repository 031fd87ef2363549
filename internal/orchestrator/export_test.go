package orchestrator

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Yates-Labs/storyforge/internal/story"
)

func createTestResult() *story.Result {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &story.Result{
		RunID:      "run-1",
		Query:      "a lighthouse keeper",
		Success:    true,
		StoryBible: &story.StoryBible{Title: "The Fog Ledger"},
		Episodes: []story.EpisodeWithScenes{
			{
				Episode: story.EpisodeOutline{Title: "Arrival"},
				Scenes:  []story.Scene{{Content: "The ferry docked."}, {Content: "Mira waited."}},
			},
			{
				Episode: story.EpisodeOutline{Title: "Low Tide"},
				Scenes:  []story.Scene{{Content: "The wreck surfaced at dawn."}},
			},
		},
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}
}

func TestExportResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportResult(createTestResult(), "JSON", &buf); err != nil {
		t.Fatalf("ExportResult failed: %v", err)
	}

	var got story.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if got.RunID != "run-1" || len(got.Episodes) != 2 {
		t.Errorf("unexpected round trip: %+v", got)
	}
}

func TestExportResult_Summary(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportResult(createTestResult(), "summary", &buf); err != nil {
		t.Fatalf("ExportResult failed: %v", err)
	}

	var sum ResultSummary
	if err := json.Unmarshal(buf.Bytes(), &sum); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if sum.Title != "The Fog Ledger" || sum.EpisodeCount != 2 || sum.SceneCount != 3 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if sum.WordCount != 10 {
		t.Errorf("expected 10 words, got %d", sum.WordCount)
	}
	if sum.Duration != "1m30s" {
		t.Errorf("expected duration 1m30s, got %q", sum.Duration)
	}
	if strings.Join(sum.EpisodeTitles, ",") != "Arrival,Low Tide" {
		t.Errorf("unexpected titles: %v", sum.EpisodeTitles)
	}
}

func TestExportResult_TextCompilesWhenMissing(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportResult(createTestResult(), "text", &buf); err != nil {
		t.Fatalf("ExportResult failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "# COMPLETE STORY") || !strings.Contains(buf.String(), "EPISODE 2: Low Tide") {
		t.Errorf("unexpected manuscript: %.80q", buf.String())
	}
}

func TestExportResult_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer

	err := ExportResult(createTestResult(), "xml", &buf)
	if err == nil {
		t.Fatal("Expected error for unsupported format, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported export format") {
		t.Errorf("Expected 'unsupported export format' error, got: %v", err)
	}
}
