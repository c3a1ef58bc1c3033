// Package pipeline drives the fixed transcribe -> parse -> translate ->
// article stage sequence, threading each stage's output into the next and
// aborting the run on the first failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/editor"
	"github.com/minbar-app/minbar/pkg/ledger"
	"github.com/minbar-app/minbar/pkg/transcript"
)

// Stage names, in execution order. The article stage is reachable only
// after the first three are done and is triggered by the user, not by the
// automatic chain.
const (
	StageTranscribe = "transcribe"
	StageParse      = "parse"
	StageTranslate  = "translate"
	StageArticle    = "article"
)

// StageNames returns the fixed stage sequence.
func StageNames() []string {
	return []string{StageTranscribe, StageParse, StageTranslate, StageArticle}
}

// Request describes one pipeline run: a media source and a bounded time
// window within it.
type Request struct {
	SourceURL         string
	FilePath          string
	Title             string
	ThumbnailURL      string
	StartSeconds      int
	EndSeconds        int
	IncludeTimestamps bool
}

// Transcription is the acquire-and-transcribe stage output.
type Transcription struct {
	Segments     []transcript.Segment
	Text         string
	AudioSeconds float64
	CostUSD      *float64
}

// TranslationInput feeds the translate-and-persist stage.
type TranslationInput struct {
	Request
	Source           transcript.Transcript
	AudioSeconds     float64
	TranscriptionUSD *float64
	ElapsedSeconds   float64
}

// Translation is the translate-and-persist stage output. AnalysisID is the
// server-assigned identifier of the persisted record; it may be empty when
// persistence failed non-fatally.
type Translation struct {
	Target     transcript.Transcript
	AnalysisID string
	Costs      cost.Breakdown
}

// Article is the generate-document stage output.
type Article struct {
	Markdown string
	Costs    cost.Breakdown
}

// Transcriber is the acquire-and-transcribe external call.
type Transcriber interface {
	AcquireTranscript(ctx context.Context, req Request) (*Transcription, error)
}

// Translator is the translate-and-persist external call. Calling it twice
// creates two records.
type Translator interface {
	TranslateAndPersist(ctx context.Context, in TranslationInput) (*Translation, error)
}

// ArticleGenerator is the generate-document external call. Only callable
// once a persisted-record identifier exists.
type ArticleGenerator interface {
	GenerateArticle(ctx context.Context, analysisID, sourceText string) (*Article, error)
}

// Services bundles the external-call interfaces consumed by the controller.
type Services struct {
	Transcriber Transcriber
	Translator  Translator
	Articles    ArticleGenerator
}

// AbortError ends a run. Reason is the user-facing message: the
// service-supplied detail when one exists, a generic stage message
// otherwise.
type AbortError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *AbortError) Error() string {
	return e.Reason
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// ErrRunInFlight rejects a second run while one is executing. Recovery
// from an aborted run is to resubmit from the selection step; there is no
// resume-from-stage.
var ErrRunInFlight = errors.New("a pipeline run is already in flight")

// Controller executes the stage sequence against a single ledger.
type Controller struct {
	svc     Services
	ledger  *ledger.Ledger
	log     zerolog.Logger
	running atomic.Bool
}

// New creates a controller with a fresh ledger.
func New(svc Services, log zerolog.Logger) *Controller {
	return &Controller{
		svc:    svc,
		ledger: ledger.New(StageNames()...),
		log:    log,
	}
}

// Ledger exposes the stage table for observation.
func (c *Controller) Ledger() *ledger.Ledger {
	return c.ledger
}

// Run executes the automatic chain: transcribe, parse, translate. The
// article stage stays pending. On any stage failure the run aborts: later
// stages are never attempted and no partial result is surfaced.
func (c *Controller) Run(ctx context.Context, req Request) (*editor.Analysis, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrRunInFlight
	}
	defer c.running.Store(false)

	c.ledger.Reset(StageNames()...)
	runStart := time.Now()

	// Stage 1: acquire and transcribe.
	if err := c.ledger.MarkActive(StageTranscribe); err != nil {
		return nil, err
	}
	start := time.Now()
	trans, err := c.svc.Transcriber.AcquireTranscript(ctx, req)
	if err != nil {
		return nil, c.fail(StageTranscribe, start, err, "transcription failed")
	}
	if err := c.ledger.MarkDone(StageTranscribe, time.Since(start), trans.CostUSD); err != nil {
		return nil, err
	}
	c.log.Info().Float64("audio_seconds", trans.AudioSeconds).
		Dur("elapsed", time.Since(start)).Msg("transcription completed")

	// Stage 2: parse the transcription output into the run's fixed
	// representation.
	if err := c.ledger.MarkActive(StageParse); err != nil {
		return nil, err
	}
	start = time.Now()
	source, err := parseTranscription(trans, req.IncludeTimestamps)
	if err != nil {
		return nil, c.fail(StageParse, start, err, "transcription output was empty")
	}
	if err := c.ledger.MarkDone(StageParse, time.Since(start), nil); err != nil {
		return nil, err
	}

	// Stage 3: translate and persist.
	if err := c.ledger.MarkActive(StageTranslate); err != nil {
		return nil, err
	}
	start = time.Now()
	translation, err := c.svc.Translator.TranslateAndPersist(ctx, TranslationInput{
		Request:          req,
		Source:           source,
		AudioSeconds:     trans.AudioSeconds,
		TranscriptionUSD: trans.CostUSD,
		ElapsedSeconds:   time.Since(runStart).Seconds(),
	})
	if err != nil {
		return nil, c.fail(StageTranslate, start, err, "translation failed")
	}
	if err := c.ledger.MarkDone(StageTranslate, time.Since(start), translation.Costs.TranslationUSD); err != nil {
		return nil, err
	}
	c.log.Info().Str("analysis_id", translation.AnalysisID).
		Dur("elapsed", time.Since(start)).Msg("translation completed")

	costs := translation.Costs.Clone()
	costs.TranscriptionSeconds = trans.AudioSeconds
	if trans.CostUSD != nil {
		costs.TranscriptionUSD = cost.Amount(*trans.CostUSD)
	}

	return &editor.Analysis{
		ID:           translation.AnalysisID,
		Title:        req.Title,
		SourceURL:    req.SourceURL,
		ThumbnailURL: req.ThumbnailURL,
		StartSeconds: req.StartSeconds,
		EndSeconds:   req.EndSeconds,
		Source:       source,
		Target:       translation.Target,
		Costs:        costs,
	}, nil
}

// GenerateArticle runs the user-triggered article stage under the same
// ledger semantics. When invoked against a historical record the ledger is
// fast-forwarded through the first three stages first.
func (c *Controller) GenerateArticle(ctx context.Context, analysisID, sourceText string) (*Article, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrRunInFlight
	}
	defer c.running.Store(false)

	if analysisID == "" {
		return nil, fmt.Errorf("article generation requires a persisted analysis")
	}

	if stage, ok := c.ledger.Stage(StageTranslate); !ok || stage.Status != ledger.StatusDone {
		if err := c.fastForward(StageTranscribe, StageParse, StageTranslate); err != nil {
			return nil, err
		}
	}

	if err := c.ledger.MarkActive(StageArticle); err != nil {
		return nil, err
	}
	start := time.Now()
	article, err := c.svc.Articles.GenerateArticle(ctx, analysisID, sourceText)
	if err != nil {
		return nil, c.fail(StageArticle, start, err, "article generation failed")
	}
	if err := c.ledger.MarkDone(StageArticle, time.Since(start), article.Costs.ArticleUSD); err != nil {
		return nil, err
	}
	c.log.Info().Str("analysis_id", analysisID).
		Dur("elapsed", time.Since(start)).Msg("article generation completed")
	return article, nil
}

func (c *Controller) fastForward(stages ...string) error {
	c.ledger.Reset(StageNames()...)
	for _, name := range stages {
		if err := c.ledger.MarkActive(name); err != nil {
			return err
		}
		if err := c.ledger.MarkDone(name, 0, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) fail(stage string, start time.Time, err error, generic string) error {
	elapsed := time.Since(start)
	if markErr := c.ledger.MarkFailed(stage, &elapsed); markErr != nil {
		return markErr
	}
	reason := adapter.Detail(err)
	if reason == "" {
		reason = generic
	}
	c.log.Error().Err(err).Str("stage", stage).Msg("pipeline aborted")
	return &AbortError{Stage: stage, Reason: reason, Err: err}
}

// parseTranscription fixes the run's transcript representation: segmented
// when timestamps were requested and the service returned spans, full text
// otherwise.
func parseTranscription(trans *Transcription, includeTimestamps bool) (transcript.Transcript, error) {
	if includeTimestamps {
		segments := transcript.Normalize(trans.Segments)
		if len(segments) > 0 {
			return transcript.FromSegments(segments), nil
		}
		// Service produced no usable spans; fall back to a single
		// untimed segment so downstream stages still work.
		if text := trans.Text; text != "" {
			return transcript.FromSegments([]transcript.Segment{{Text: text}}), nil
		}
		return transcript.Transcript{}, fmt.Errorf("no segments or text in transcription")
	}
	if trans.Text == "" {
		return transcript.Transcript{}, fmt.Errorf("no text in transcription")
	}
	return transcript.FromText(trans.Text), nil
}
