package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/config"
	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/pipeline"
	"github.com/minbar-app/minbar/pkg/store"
)

// Article implements the generate-document interface: a second-model call
// that turns the source transcript into a faithful sectioned article in the
// target language.
type Article struct {
	gen     adapter.TextGenerator
	model   string
	pricing config.TokenPricing
	priced  bool
	langs   config.Languages
	store   *store.Store
	log     zerolog.Logger
}

// NewArticle wires the article service.
func NewArticle(gen adapter.TextGenerator, st *store.Store, cfg *config.Config, log zerolog.Logger) *Article {
	pricing, priced := cfg.TokenPricing(cfg.Models.Article)
	return &Article{
		gen:     gen,
		model:   cfg.Models.Article,
		pricing: pricing,
		priced:  priced,
		langs:   cfg.Languages,
		store:   st,
		log:     log,
	}
}

// GenerateArticle generates the article, persists it on the existing
// record, and returns the markdown with the incremental cost fields.
func (a *Article) GenerateArticle(ctx context.Context, analysisID, sourceText string) (*pipeline.Article, error) {
	rec, err := a.store.Get(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("load analysis %s: %w", analysisID, err)
	}

	prompt := fmt.Sprintf(articlePrompt, a.langs.SourceName, a.langs.TargetName, sourceText)
	result, err := a.gen.Generate(ctx, a.model, prompt)
	if err != nil {
		return nil, err
	}

	markdown := strings.TrimSpace(result.Text)
	delta := cost.Breakdown{
		ArticleInputTokens:  result.Usage.InputTokens,
		ArticleOutputTokens: result.Usage.OutputTokens,
	}
	if a.priced {
		delta.ArticleUSD = cost.Amount(cost.TokenCost(result.Usage.InputTokens, result.Usage.OutputTokens, a.pricing.InputPerM, a.pricing.OutputPerM))
	}

	merged := delta
	if rec.Costs != nil {
		merged = rec.Costs.Merge(delta)
	}
	if err := a.store.UpdateArticle(ctx, analysisID, markdown, &merged); err != nil {
		a.log.Error().Err(err).Str("analysis_id", analysisID).Msg("persisting article failed")
	}

	a.log.Info().Str("analysis_id", analysisID).
		Int("input_tokens", result.Usage.InputTokens).
		Int("output_tokens", result.Usage.OutputTokens).
		Msg("article generated")

	return &pipeline.Article{Markdown: markdown, Costs: delta}, nil
}
