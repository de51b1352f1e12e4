// Command research is a thin entry point that wires a Config, an
// LLM Gateway backed by the deterministic mock AI provider
// (github.com/BrianMills2718/OSINT-sub007/llm/mock, grounded on the
// teacher's ai/providers/mock/provider.go), and the integration/mock
// registry seeded with a handful of records, then calls engine.Execute.
// It proves the whole decomposition -> hypothesis -> coverage ->
// saturation -> synthesis path is wired end to end without requiring
// live model or data-source credentials. CLI UX itself (flag surface,
// interactive prompts) stays out of scope here — this accepts
// only the question, an output directory, and the -max-tasks and
// -max-minutes run ceilings.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BrianMills2718/OSINT-sub007/engine"
	"github.com/BrianMills2718/OSINT-sub007/integration"
	"github.com/BrianMills2718/OSINT-sub007/integration/mock"
	llmmock "github.com/BrianMills2718/OSINT-sub007/llm/mock"
	"github.com/BrianMills2718/OSINT-sub007/obslog"
)

func main() {
	question := flag.String("question", "", "research question (required)")
	outputDir := flag.String("output", "./runs", "output root directory")
	maxTasks := flag.Int("max-tasks", 6, "hard ceiling on total tasks")
	maxMinutes := flag.Int("max-minutes", 5, "hard wall-clock ceiling in minutes")
	flag.Parse()

	if *question == "" {
		fmt.Fprintln(os.Stderr, "research: -question is required")
		os.Exit(2)
	}

	logger := obslog.New("research")

	cfg, err := engine.NewConfig(
		engine.WithOutputRoot(*outputDir),
		engine.WithMaxTasks(*maxTasks),
		engine.WithMaxTimeMinutes(*maxMinutes),
		engine.WithLogger(logger),
		engine.WithFallbackModels([]string{"mock-fallback"}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "research: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	registry := integration.NewRegistry(logger)
	seedRegistry(registry)

	models := engine.ModelChain{
		PrimaryAlias: "mock-primary",
		Primary:      llmmock.NewAutopilot(),
		Fallbacks: []engine.NamedClient{
			{Alias: "mock-fallback", Client: llmmock.NewAutopilot()},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*maxMinutes+1)*time.Minute)
	defer cancel()

	artifacts, err := engine.Execute(ctx, cfg, *question, models, registry, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "research: run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("run %s complete: %d results written to %s\n", artifacts.RunID, artifacts.ResultCount, artifacts.Dir)
}

// seedRegistry registers a small set of deterministic mock sources so a
// run produces results without any external network access or API keys.
func seedRegistry(registry *integration.Registry) {
	webSearch := mock.New("web_search", "Web Search")
	webSearch.Seed([]integration.Record{
		mock.NewSeededRecord("Example Organization overview", "https://example.org/overview", "Web Search"),
		mock.NewSeededRecord("Profile: Jane Researcher", "https://example.org/profile/jane", "Web Search"),
	})
	registry.Register("web_search", func() (integration.Integration, error) { return webSearch, nil })

	newsArchive := mock.New("news_archive", "News Archive")
	newsArchive.Seed([]integration.Record{
		mock.NewSeededRecord("Recent coverage of the program", "https://news.example.org/story-1", "News Archive"),
	})
	registry.Register("news_archive", func() (integration.Integration, error) { return newsArchive, nil })
}
