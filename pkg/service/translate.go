package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/config"
	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/pipeline"
	"github.com/minbar-app/minbar/pkg/store"
	"github.com/minbar-app/minbar/pkg/transcript"
)

// Translate implements the translate-and-persist interface. The call is
// not idempotent: every invocation creates a new durable record.
type Translate struct {
	gen     adapter.TextGenerator
	model   string
	pricing config.TokenPricing
	priced  bool
	langs   config.Languages
	store   *store.Store
	log     zerolog.Logger
}

// NewTranslate wires the translation service.
func NewTranslate(gen adapter.TextGenerator, st *store.Store, cfg *config.Config, log zerolog.Logger) *Translate {
	pricing, priced := cfg.TokenPricing(cfg.Models.Translation)
	return &Translate{
		gen:     gen,
		model:   cfg.Models.Translation,
		pricing: pricing,
		priced:  priced,
		langs:   cfg.Languages,
		store:   st,
		log:     log,
	}
}

// TranslateAndPersist translates the source transcript, persists the
// analysis, and returns the target transcript with the record identifier
// and cost breakdown. Persistence failures are non-fatal: the translation
// is still returned, with an empty identifier.
func (t *Translate) TranslateAndPersist(ctx context.Context, in pipeline.TranslationInput) (*pipeline.Translation, error) {
	target, usage, err := translateTranscript(ctx, t.gen, t.model, t.langs, in.Source, t.log)
	if err != nil {
		return nil, err
	}

	costs := cost.Breakdown{
		TranscriptionSeconds:    in.AudioSeconds,
		TranslationInputTokens:  usage.InputTokens,
		TranslationOutputTokens: usage.OutputTokens,
	}
	if in.TranscriptionUSD != nil {
		costs.TranscriptionUSD = cost.Amount(*in.TranscriptionUSD)
	}
	if t.priced {
		costs.TranslationUSD = cost.Amount(cost.TokenCost(usage.InputTokens, usage.OutputTokens, t.pricing.InputPerM, t.pricing.OutputPerM))
	}

	rec := &store.Record{
		SourceURL:         in.SourceURL,
		Title:             in.Title,
		ThumbnailURL:      in.ThumbnailURL,
		StartSeconds:      in.StartSeconds,
		EndSeconds:        in.EndSeconds,
		SourceText:        in.Source.Text,
		TargetText:        target.Text,
		Costs:             &costs,
		ProcessingSeconds: in.ElapsedSeconds,
	}
	if in.Source.Segmented {
		rec.Segments = &store.SegmentsDoc{
			Source: in.Source.Segments,
			Target: target.Segments,
		}
	}

	id, err := t.store.Create(ctx, rec)
	if err != nil {
		// Best effort: the translation is worth more than the record.
		t.log.Error().Err(err).Msg("persisting analysis failed")
		id = ""
	} else {
		t.log.Info().Str("analysis_id", id).
			Str("total_cost", cost.Format(costs.Total())).
			Msg("analysis saved")
	}

	return &pipeline.Translation{
		Target:     target,
		AnalysisID: id,
		Costs:      costs,
	}, nil
}

// translateTranscript runs one translation call in the transcript's own
// representation: segmented input asks for a JSON segment array back,
// full text asks for plain text.
func translateTranscript(ctx context.Context, gen adapter.TextGenerator, model string, langs config.Languages, src transcript.Transcript, log zerolog.Logger) (transcript.Transcript, adapter.Usage, error) {
	var prompt string
	if src.Segmented {
		segmentsJSON, err := json.Marshal(src.Segments)
		if err != nil {
			return transcript.Transcript{}, adapter.Usage{}, fmt.Errorf("marshal segments: %w", err)
		}
		prompt = fmt.Sprintf(segmentTranslationPrompt, langs.SourceName, langs.TargetName, string(segmentsJSON))
	} else {
		prompt = fmt.Sprintf(plainTranslationPrompt, langs.SourceName, langs.TargetName, src.Text)
	}

	result, err := gen.Generate(ctx, model, prompt)
	if err != nil {
		return transcript.Transcript{}, adapter.Usage{}, err
	}

	if !src.Segmented {
		return transcript.FromText(result.Text), result.Usage, nil
	}

	segments, parsed := transcript.ParseModelSegments(result.Text)
	if !parsed {
		log.Warn().Msg("could not parse translated segments JSON, keeping raw text as one segment")
	}
	return transcript.FromSegments(segments), result.Usage, nil
}
