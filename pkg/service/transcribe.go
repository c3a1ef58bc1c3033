// Package service implements the external-call interfaces the pipeline
// and editor consume: acquire-and-transcribe, translate-and-persist,
// generate-document, and edit-save.
package service

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/config"
	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/media"
	"github.com/minbar-app/minbar/pkg/pipeline"
)

// Transcribe implements the acquire-and-transcribe interface: pull the
// selected audio window from the source, send it to the speech-to-text
// provider, price the call by audio length.
type Transcribe struct {
	extractor    *media.Extractor
	stt          adapter.Transcriber
	limits       media.Limits
	languageCode string
	perSecondUSD float64
	log          zerolog.Logger
}

// NewTranscribe wires the transcription service.
func NewTranscribe(extractor *media.Extractor, stt adapter.Transcriber, cfg *config.Config, log zerolog.Logger) *Transcribe {
	return &Transcribe{
		extractor: extractor,
		stt:       stt,
		limits: media.Limits{
			MaxWindowSeconds:  cfg.Limits.MaxWindowSeconds,
			MaxFileSizeBytes:  cfg.Limits.MaxFileSizeBytes,
			AllowedExtensions: cfg.Limits.AllowedExtensions,
		},
		languageCode: cfg.Languages.SourceCode,
		perSecondUSD: cfg.Pricing.TranscriptionPerSecond,
		log:          log,
	}
}

// AcquireTranscript validates the selection, extracts the audio window,
// and transcribes it. The temp audio file is removed before returning.
func (t *Transcribe) AcquireTranscript(ctx context.Context, req pipeline.Request) (*pipeline.Transcription, error) {
	if err := t.limits.ValidateWindow(req.StartSeconds, req.EndSeconds); err != nil {
		return nil, err
	}

	var audioPath string
	var err error
	switch {
	case req.FilePath != "":
		if err := t.limits.ValidateFile(req.FilePath); err != nil {
			return nil, err
		}
		audioPath, err = t.extractor.ClipAudio(ctx, req.FilePath, req.StartSeconds, req.EndSeconds)
	case media.ValidateURL(req.SourceURL):
		audioPath, err = t.extractor.ExtractAudio(ctx, req.SourceURL, req.StartSeconds, req.EndSeconds)
	default:
		return nil, fmt.Errorf("invalid YouTube URL")
	}
	if err != nil {
		return nil, fmt.Errorf("audio extraction failed: %w", err)
	}
	defer os.Remove(audioPath)

	result, err := t.stt.Transcribe(ctx, audioPath, adapter.TranscribeOptions{
		Language:   t.languageCode,
		Timestamps: req.IncludeTimestamps,
	})
	if err != nil {
		return nil, err
	}

	// Priced by the requested window, which is what the provider bills.
	audioSeconds := float64(req.EndSeconds - req.StartSeconds)
	amount := cost.SecondsCost(audioSeconds, t.perSecondUSD)

	t.log.Info().Int("segments", len(result.Segments)).
		Float64("audio_seconds", audioSeconds).
		Str("cost", cost.Format(amount)).
		Msg("transcription returned")

	return &pipeline.Transcription{
		Segments:     result.Segments,
		Text:         result.Text,
		AudioSeconds: audioSeconds,
		CostUSD:      cost.Amount(amount),
	}, nil
}
