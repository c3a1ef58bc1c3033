package cost

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTotalTreatsAbsentAsZero(t *testing.T) {
	var b Breakdown
	if got := b.Total(); got != 0 {
		t.Fatalf("empty breakdown total = %v, want 0", got)
	}

	b.TranscriptionUSD = Amount(2.00)
	b.ArticleUSD = Amount(0.0003)
	if got := b.Total(); !approx(got, 2.0003) {
		t.Fatalf("total = %v, want 2.0003", got)
	}
}

func TestAbsentDistinctFromZero(t *testing.T) {
	withZero := Breakdown{TranslationUSD: Amount(0)}
	if withZero.TranslationUSD == nil {
		t.Fatal("reported zero collapsed to absent")
	}
	if got := withZero.Total(); got != 0 {
		t.Fatalf("total = %v, want 0", got)
	}
}

func TestAddIsOrderIndependent(t *testing.T) {
	a, b, c := Amount(0.02), Amount(0.01), (*float64)(nil)

	forward := Add(Add(Add(0, a), b), c)
	backward := Add(Add(Add(0, c), b), a)
	if !approx(forward, backward) {
		t.Fatalf("fold order changed the total: %v vs %v", forward, backward)
	}
	if !approx(forward, 0.03) {
		t.Fatalf("total = %v, want 0.03", forward)
	}
}

func TestMergeOverlaysPresentFields(t *testing.T) {
	base := Breakdown{
		TranscriptionSeconds:    120,
		TranscriptionUSD:        Amount(0.0013),
		TranslationInputTokens:  1000,
		TranslationOutputTokens: 800,
		TranslationUSD:          Amount(0.01),
	}
	delta := Breakdown{
		ArticleInputTokens:  2000,
		ArticleOutputTokens: 1500,
		ArticleUSD:          Amount(0.02),
	}

	merged := base.Merge(delta)
	if merged.TranscriptionUSD == nil || *merged.TranscriptionUSD != 0.0013 {
		t.Fatalf("transcription cost lost in merge: %+v", merged)
	}
	if merged.TranslationUSD == nil || *merged.TranslationUSD != 0.01 {
		t.Fatalf("translation cost lost in merge: %+v", merged)
	}
	if merged.ArticleUSD == nil || *merged.ArticleUSD != 0.02 {
		t.Fatalf("article cost not merged: %+v", merged)
	}
	if merged.ArticleInputTokens != 2000 || merged.ArticleOutputTokens != 1500 {
		t.Fatalf("article tokens not merged: %+v", merged)
	}

	// Merge must not mutate the receiver.
	if base.ArticleUSD != nil {
		t.Fatal("Merge mutated the receiver")
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	b := Breakdown{TranslationUSD: Amount(0.01)}
	clone := b.Clone()
	*clone.TranslationUSD = 9
	if *b.TranslationUSD != 0.01 {
		t.Fatal("Clone aliases cost pointers")
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{0.0003, "$0.0003"},
		{0.0099, "$0.0099"},
		{0.01, "$0.01"},
		{2.5, "$2.50"},
	}
	for _, tc := range cases {
		if got := Format(tc.amount); got != tc.want {
			t.Fatalf("Format(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func TestTokenCost(t *testing.T) {
	// 1M input at $0.30 plus 1M output at $2.50.
	if got := TokenCost(1_000_000, 1_000_000, 0.30, 2.50); !approx(got, 2.80) {
		t.Fatalf("TokenCost = %v, want 2.80", got)
	}
	if got := TokenCost(0, 0, 0.30, 2.50); got != 0 {
		t.Fatalf("TokenCost with no tokens = %v, want 0", got)
	}
}

func TestSecondsCost(t *testing.T) {
	if got := SecondsCost(300, 0.0000111); got != 300*0.0000111 {
		t.Fatalf("SecondsCost = %v", got)
	}
}
