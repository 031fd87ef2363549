package cmd

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/storyforge/internal/config"
	"github.com/Yates-Labs/storyforge/internal/memory"
)

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"forge", "perspectives", "submit", "work", "serve"}

	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("expected subcommand %q", name)
		}
	}

	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("expected a persistent --config flag")
	}
	for _, flag := range []string{"export", "format", "episodes", "scenes", "perspective"} {
		if forgeCmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected forge --%s", flag)
		}
	}
}

func TestBuildMemory(t *testing.T) {
	quiet := log.New(io.Discard)

	tests := []struct {
		name      string
		embedder  string
		storage   bool
		wantDocs  bool
		wantMatch bool
	}{
		{name: "hash with storage", embedder: "hash", storage: true, wantDocs: true, wantMatch: true},
		{name: "hash in memory", embedder: "hash", wantMatch: true},
		{name: "no embedder", embedder: "none", storage: true, wantDocs: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			c.Embedding.Provider = tt.embedder
			c.Embedding.Dimension = 64
			if tt.storage {
				c.Storage.Path = filepath.Join(t.TempDir(), "forge.db")
			}

			mem := buildMemory(context.Background(), &c, quiet)
			defer mem.Close()

			if got := mem.Documents() != nil; got != tt.wantDocs {
				t.Errorf("expected documents=%v, got %v", tt.wantDocs, got)
			}

			ctx := context.Background()
			mem.Store(ctx, "Mira is stubborn and loyal", memory.Metadata{"type": "story_bible"})
			matches := mem.Retrieve(ctx, "stubborn", 3)
			if got := len(matches) > 0; got != tt.wantMatch {
				t.Errorf("expected matches=%v, got %d", tt.wantMatch, len(matches))
			}
		})
	}
}

func TestBuildMemory_BadStoragePath(t *testing.T) {
	c := config.Default()
	c.Storage.Path = filepath.Join(t.TempDir(), "missing", "dir", "forge.db")

	mem := buildMemory(context.Background(), &c, log.New(io.Discard))
	defer mem.Close()

	if mem.Documents() != nil {
		t.Error("expected no document store for an unopenable path")
	}

	ctx := context.Background()
	if id := mem.Store(ctx, "Mira keeps the lighthouse", memory.Metadata{"type": "story_bible"}); id == "" {
		t.Error("expected the store to keep recording without documents")
	}

	prevCfg, prevLogger := cfg, logger
	cfg, logger = &c, log.New(io.Discard)
	defer func() { cfg, logger = prevCfg, prevLogger }()

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	if err := runSubmit(cmd, []string{"a lighthouse"}); !errors.Is(err, errNoStorage) {
		t.Errorf("expected errNoStorage from submit, got %v", err)
	}
}
