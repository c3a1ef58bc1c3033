package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/minbar-app/minbar/pkg/adapter"
	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/store"
)

func TestGenerateArticlePersistsAndReturnsDelta(t *testing.T) {
	gen := &adapter.MockGenerator{
		Response: "\n# Titre\n\n## Partie 1\n\nTexte.\n",
		Usage:    adapter.Usage{InputTokens: 2000, OutputTokens: 1500},
	}
	st := openTestStore(t)
	id, err := st.Create(context.Background(), &store.Record{
		Title:      "lecture",
		SourceText: "kalam",
		TargetText: "parole",
		Costs:      &cost.Breakdown{TranslationUSD: cost.Amount(0.01)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc := NewArticle(gen, st, testConfig(), zerolog.Nop())
	out, err := svc.GenerateArticle(context.Background(), id, "kalam")
	if err != nil {
		t.Fatalf("article: %v", err)
	}

	if !strings.HasPrefix(out.Markdown, "# Titre") {
		t.Fatalf("markdown = %q, want trimmed", out.Markdown)
	}
	// The returned costs are the increment only.
	if out.Costs.TranslationUSD != nil {
		t.Fatalf("delta carries translation cost: %+v", out.Costs)
	}
	wantArticle := cost.TokenCost(2000, 1500, 1.25, 10.00)
	if out.Costs.ArticleUSD == nil || *out.Costs.ArticleUSD != wantArticle {
		t.Fatalf("article cost = %v, want %v", out.Costs.ArticleUSD, wantArticle)
	}

	// The prompt carries the source transcript.
	if len(gen.Prompts) != 1 || !strings.Contains(gen.Prompts[0], "kalam") {
		t.Fatalf("prompts = %v", gen.Prompts)
	}

	// The stored record gets the article and the merged breakdown.
	rec, err := st.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.HasPrefix(rec.ArticleMarkdown, "# Titre") {
		t.Fatalf("stored article = %q", rec.ArticleMarkdown)
	}
	if rec.Costs.TranslationUSD == nil || rec.Costs.ArticleUSD == nil {
		t.Fatalf("stored costs = %+v, want translation kept and article added", rec.Costs)
	}
}

func TestGenerateArticleRequiresExistingRecord(t *testing.T) {
	st := openTestStore(t)
	svc := NewArticle(&adapter.MockGenerator{Response: "# A"}, st, testConfig(), zerolog.Nop())
	if _, err := svc.GenerateArticle(context.Background(), "missing", "text"); err == nil {
		t.Fatal("article generated for a missing record")
	}
}

func TestGenerateArticlePropagatesProviderError(t *testing.T) {
	gen := &adapter.MockGenerator{Err: &adapter.ProviderError{Status: 429, Detail: "quota exceeded"}}
	st := openTestStore(t)
	id, err := st.Create(context.Background(), &store.Record{Title: "t", SourceText: "s"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc := NewArticle(gen, st, testConfig(), zerolog.Nop())
	_, err = svc.GenerateArticle(context.Background(), id, "s")
	if adapter.Detail(err) != "quota exceeded" {
		t.Fatalf("err = %v, want the provider detail preserved", err)
	}
}
