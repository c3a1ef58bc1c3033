package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/config"
	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/editor"
	"github.com/minbar-app/minbar/pkg/ledger"
	"github.com/minbar-app/minbar/pkg/media"
	"github.com/minbar-app/minbar/pkg/pipeline"
	"github.com/minbar-app/minbar/pkg/service"
	"github.com/minbar-app/minbar/pkg/store"
	"github.com/minbar-app/minbar/pkg/transcript"
)

// formatSeconds renders a duration as mm:ss, or hh:mm:ss past the hour.
func formatSeconds(total int) string {
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// newProgressObserver prints one line per stage transition.
func newProgressObserver(out io.Writer) func([]ledger.Stage) {
	last := map[string]ledger.Status{}
	return func(stages []ledger.Stage) {
		for _, stage := range stages {
			if last[stage.Name] == stage.Status {
				continue
			}
			last[stage.Name] = stage.Status
			switch stage.Status {
			case ledger.StatusActive:
				fmt.Fprintf(out, "  %s...\n", stage.Name)
			case ledger.StatusDone:
				line := fmt.Sprintf("  %s done (%.1fs", stage.Name, stage.Duration.Seconds())
				if stage.CostUSD != nil {
					line += ", " + cost.Format(*stage.CostUSD)
				}
				fmt.Fprintln(out, line+")")
			case ledger.StatusFailed:
				fmt.Fprintf(out, "  %s failed\n", stage.Name)
			}
		}
	}
}

// printCosts renders a cost breakdown summary.
func printCosts(out io.Writer, b cost.Breakdown) {
	if b.TranscriptionUSD != nil {
		fmt.Fprintf(out, "Transcription:  %s (%.0fs audio)\n", cost.Format(*b.TranscriptionUSD), b.TranscriptionSeconds)
	}
	if b.TranslationUSD != nil {
		fmt.Fprintf(out, "Translation:    %s (%d in / %d out tokens)\n",
			cost.Format(*b.TranslationUSD), b.TranslationInputTokens, b.TranslationOutputTokens)
	}
	if b.ArticleUSD != nil {
		fmt.Fprintf(out, "Article:        %s (%d in / %d out tokens)\n",
			cost.Format(*b.ArticleUSD), b.ArticleInputTokens, b.ArticleOutputTokens)
	}
	fmt.Fprintf(out, "Total:          %s\n", cost.Format(b.Total()))
}

// recordToAnalysis rebuilds the editable analysis from a persisted record.
func recordToAnalysis(rec *store.Record) editor.Analysis {
	analysis := editor.Analysis{
		ID:           rec.ID,
		Title:        rec.Title,
		SourceURL:    rec.SourceURL,
		ThumbnailURL: rec.ThumbnailURL,
		StartSeconds: rec.StartSeconds,
		EndSeconds:   rec.EndSeconds,
		Article:      rec.ArticleMarkdown,
	}
	if rec.Segments != nil && len(rec.Segments.Source) > 0 {
		analysis.Source = transcript.FromSegments(rec.Segments.Source)
		analysis.Target = transcript.FromSegments(rec.Segments.Target)
	} else {
		analysis.Source = transcript.FromText(rec.SourceText)
		analysis.Target = transcript.FromText(rec.TargetText)
	}
	if rec.Costs != nil {
		analysis.Costs = rec.Costs.Clone()
	}
	return analysis
}

// buildServices wires the full service set for a pipeline run.
func buildServices(cfg *config.Config, st *store.Store, extractor *media.Extractor, log zerolog.Logger) (pipeline.Services, error) {
	stt, err := adapter.NewGroqTranscriber(cfg.GroqAPIKey, cfg.Models.Transcription)
	if err != nil {
		return pipeline.Services{}, fmt.Errorf("transcription adapter: %w", err)
	}

	translationGen, err := createGenerator(cfg, cfg.Adapters.Translation)
	if err != nil {
		return pipeline.Services{}, fmt.Errorf("translation adapter: %w", err)
	}
	articleGen := translationGen
	if cfg.Adapters.Article != cfg.Adapters.Translation {
		articleGen, err = createGenerator(cfg, cfg.Adapters.Article)
		if err != nil {
			return pipeline.Services{}, fmt.Errorf("article adapter: %w", err)
		}
	}

	return pipeline.Services{
		Transcriber: service.NewTranscribe(extractor, stt, cfg, log),
		Translator:  service.NewTranslate(translationGen, st, cfg, log),
		Articles:    service.NewArticle(articleGen, st, cfg, log),
	}, nil
}
