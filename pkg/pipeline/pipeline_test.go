package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/ledger"
	"github.com/minbar-app/minbar/pkg/transcript"
)

type fakeTranscriber struct {
	trans   *Transcription
	err     error
	started chan struct{}
	gate    chan struct{}
}

func (f *fakeTranscriber) AcquireTranscript(ctx context.Context, req Request) (*Transcription, error) {
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.trans, nil
}

type fakeTranslator struct {
	out *Translation
	err error
	got TranslationInput
}

func (f *fakeTranslator) TranslateAndPersist(ctx context.Context, in TranslationInput) (*Translation, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeArticles struct {
	out *Article
	err error
}

func (f *fakeArticles) GenerateArticle(ctx context.Context, analysisID, sourceText string) (*Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func stageStatuses(l *ledger.Ledger) map[string]ledger.Status {
	out := map[string]ledger.Status{}
	for _, stage := range l.Stages() {
		out[stage.Name] = stage.Status
	}
	return out
}

func TestRunCompletesChainAndFoldsCosts(t *testing.T) {
	transcriber := &fakeTranscriber{trans: &Transcription{
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: "one"},
			{Start: 2, End: 4, Text: "two"},
			{Start: 4, End: 6, Text: "three"},
		},
		AudioSeconds: 6,
		CostUSD:      cost.Amount(0.02),
	}}
	translator := &fakeTranslator{out: &Translation{
		Target:     transcript.FromSegments([]transcript.Segment{{Start: 0, End: 6, Text: "un deux trois"}}),
		AnalysisID: "abc123",
		Costs: cost.Breakdown{
			TranslationInputTokens:  100,
			TranslationOutputTokens: 80,
			TranslationUSD:          cost.Amount(0.01),
		},
	}}

	ctrl := New(Services{Transcriber: transcriber, Translator: translator}, zerolog.Nop())
	analysis, err := ctrl.Run(context.Background(), Request{
		SourceURL:         "https://www.youtube.com/watch?v=x",
		Title:             "lecture",
		EndSeconds:        6,
		IncludeTimestamps: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if analysis.ID != "abc123" {
		t.Fatalf("analysis id = %q", analysis.ID)
	}
	if len(analysis.Source.Segments) != 3 {
		t.Fatalf("source segments = %d, want 3", len(analysis.Source.Segments))
	}
	if total := analysis.Costs.Total(); math.Abs(total-0.03) > 1e-9 {
		t.Fatalf("total cost = %v, want 0.03", total)
	}

	statuses := stageStatuses(ctrl.Ledger())
	for _, name := range []string{StageTranscribe, StageParse, StageTranslate} {
		if statuses[name] != ledger.StatusDone {
			t.Fatalf("stage %s = %s, want done", name, statuses[name])
		}
	}
	if statuses[StageArticle] != ledger.StatusPending {
		t.Fatalf("article stage = %s, want pending", statuses[StageArticle])
	}

	// The translate stage receives the parsed source and transcription cost.
	if !translator.got.Source.Segmented || translator.got.TranscriptionUSD == nil {
		t.Fatalf("translator input = %+v", translator.got)
	}
}

func TestRunAbortsWithServiceDetail(t *testing.T) {
	transcriber := &fakeTranscriber{err: &adapter.ProviderError{Status: 429, Detail: "quota exceeded", Temporary: true}}
	ctrl := New(Services{Transcriber: transcriber}, zerolog.Nop())

	_, err := ctrl.Run(context.Background(), Request{SourceURL: "u", EndSeconds: 10})
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err = %v, want AbortError", err)
	}
	if abort.Stage != StageTranscribe {
		t.Fatalf("abort stage = %s", abort.Stage)
	}
	if abort.Reason != "quota exceeded" {
		t.Fatalf("abort reason = %q, want the service detail", abort.Reason)
	}

	statuses := stageStatuses(ctrl.Ledger())
	if statuses[StageTranscribe] != ledger.StatusFailed {
		t.Fatalf("transcribe stage = %s, want failed", statuses[StageTranscribe])
	}
	for _, name := range []string{StageParse, StageTranslate, StageArticle} {
		if statuses[name] != ledger.StatusPending {
			t.Fatalf("stage %s = %s, want pending", name, statuses[name])
		}
	}
}

func TestRunAbortsWithGenericReason(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("socket closed")}
	ctrl := New(Services{Transcriber: transcriber}, zerolog.Nop())

	_, err := ctrl.Run(context.Background(), Request{SourceURL: "u", EndSeconds: 10})
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err = %v, want AbortError", err)
	}
	if abort.Reason != "transcription failed" {
		t.Fatalf("abort reason = %q", abort.Reason)
	}
	if !errors.Is(err, abort.Err) {
		t.Fatal("AbortError does not wrap the cause")
	}
}

func TestRunFailsParseOnEmptyTranscription(t *testing.T) {
	transcriber := &fakeTranscriber{trans: &Transcription{AudioSeconds: 6}}
	ctrl := New(Services{Transcriber: transcriber}, zerolog.Nop())

	_, err := ctrl.Run(context.Background(), Request{SourceURL: "u", EndSeconds: 6, IncludeTimestamps: true})
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err = %v, want AbortError", err)
	}
	if abort.Stage != StageParse || abort.Reason != "transcription output was empty" {
		t.Fatalf("abort = %+v", abort)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	transcriber := &fakeTranscriber{gate: gate, started: started, err: errors.New("released")}
	ctrl := New(Services{Transcriber: transcriber}, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Run(context.Background(), Request{SourceURL: "u", EndSeconds: 5})
		done <- err
	}()

	// Wait until the first run holds the slot.
	<-started

	if _, err := ctrl.Run(context.Background(), Request{SourceURL: "u", EndSeconds: 5}); !errors.Is(err, ErrRunInFlight) {
		t.Fatalf("second run err = %v, want ErrRunInFlight", err)
	}

	close(gate)
	if err := <-done; err == nil {
		t.Fatal("first run should have failed after release")
	}

	// The slot is free again once the run returns.
	if _, err := ctrl.Run(context.Background(), Request{SourceURL: "u", EndSeconds: 5}); errors.Is(err, ErrRunInFlight) {
		t.Fatal("slot not released after run finished")
	}
}

func TestGenerateArticleAfterRun(t *testing.T) {
	transcriber := &fakeTranscriber{trans: &Transcription{Text: "text", AudioSeconds: 5}}
	translator := &fakeTranslator{out: &Translation{
		Target:     transcript.FromText("texte"),
		AnalysisID: "id-1",
	}}
	articles := &fakeArticles{out: &Article{
		Markdown: "# Article",
		Costs:    cost.Breakdown{ArticleUSD: cost.Amount(0.02)},
	}}
	ctrl := New(Services{Transcriber: transcriber, Translator: translator, Articles: articles}, zerolog.Nop())

	if _, err := ctrl.Run(context.Background(), Request{SourceURL: "u", EndSeconds: 5}); err != nil {
		t.Fatalf("run: %v", err)
	}
	article, err := ctrl.GenerateArticle(context.Background(), "id-1", "text")
	if err != nil {
		t.Fatalf("article: %v", err)
	}
	if article.Markdown != "# Article" {
		t.Fatalf("markdown = %q", article.Markdown)
	}

	statuses := stageStatuses(ctrl.Ledger())
	if statuses[StageArticle] != ledger.StatusDone {
		t.Fatalf("article stage = %s, want done", statuses[StageArticle])
	}
}

func TestGenerateArticleFastForwardsForHistoricalRecord(t *testing.T) {
	articles := &fakeArticles{out: &Article{Markdown: "# A"}}
	ctrl := New(Services{Articles: articles}, zerolog.Nop())

	if _, err := ctrl.GenerateArticle(context.Background(), "old-id", "text"); err != nil {
		t.Fatalf("article: %v", err)
	}

	statuses := stageStatuses(ctrl.Ledger())
	for _, name := range StageNames() {
		if statuses[name] != ledger.StatusDone {
			t.Fatalf("stage %s = %s, want done", name, statuses[name])
		}
	}
}

func TestGenerateArticleRequiresPersistedRecord(t *testing.T) {
	ctrl := New(Services{Articles: &fakeArticles{}}, zerolog.Nop())
	if _, err := ctrl.GenerateArticle(context.Background(), "", "text"); err == nil {
		t.Fatal("article generated without a persisted record")
	}
}

func TestParseTranscriptionFallsBackToUntimedSegment(t *testing.T) {
	tr, err := parseTranscription(&Transcription{Text: "plain words"}, true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !tr.Segmented || len(tr.Segments) != 1 || tr.Segments[0].Text != "plain words" {
		t.Fatalf("transcript = %+v", tr)
	}
}

func TestParseTranscriptionPlainText(t *testing.T) {
	tr, err := parseTranscription(&Transcription{Text: "plain words", Segments: []transcript.Segment{{Text: "ignored"}}}, false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tr.Segmented || tr.Text != "plain words" {
		t.Fatalf("transcript = %+v", tr)
	}
}
