// Package cost folds per-stage spend into displayable totals. Fields are
// pointers where a stage may not have run yet: an absent cost contributes
// exactly zero and is distinct from a reported zero.
package cost

import "fmt"

// Breakdown carries the per-stage cost fields of one analysis.
type Breakdown struct {
	TranscriptionSeconds    float64  `json:"transcription_audio_seconds,omitempty"`
	TranscriptionUSD        *float64 `json:"transcription_cost_usd,omitempty"`
	TranslationInputTokens  int      `json:"translation_input_tokens,omitempty"`
	TranslationOutputTokens int      `json:"translation_output_tokens,omitempty"`
	TranslationUSD          *float64 `json:"translation_cost_usd,omitempty"`
	ArticleInputTokens      int      `json:"article_input_tokens,omitempty"`
	ArticleOutputTokens     int      `json:"article_output_tokens,omitempty"`
	ArticleUSD              *float64 `json:"article_cost_usd,omitempty"`
}

// Total sums every present cost field. Order-independent and associative:
// summing a breakdown gives the same result however the stages completed.
func (b Breakdown) Total() float64 {
	total := 0.0
	total = Add(total, b.TranscriptionUSD)
	total = Add(total, b.TranslationUSD)
	total = Add(total, b.ArticleUSD)
	return total
}

// Add accumulates a possibly-absent delta onto a running total. A later
// stage's cost can be folded into a previously displayed total without
// recomputing from scratch.
func Add(total float64, delta *float64) float64 {
	if delta == nil {
		return total
	}
	return total + *delta
}

// Merge overlays present fields of delta onto b. Used when the article
// stage runs after the main pipeline has already produced a breakdown.
func (b Breakdown) Merge(delta Breakdown) Breakdown {
	out := b
	if delta.TranscriptionSeconds != 0 {
		out.TranscriptionSeconds = delta.TranscriptionSeconds
	}
	if delta.TranscriptionUSD != nil {
		out.TranscriptionUSD = Amount(*delta.TranscriptionUSD)
	}
	if delta.TranslationUSD != nil {
		out.TranslationUSD = Amount(*delta.TranslationUSD)
		out.TranslationInputTokens = delta.TranslationInputTokens
		out.TranslationOutputTokens = delta.TranslationOutputTokens
	}
	if delta.ArticleUSD != nil {
		out.ArticleUSD = Amount(*delta.ArticleUSD)
		out.ArticleInputTokens = delta.ArticleInputTokens
		out.ArticleOutputTokens = delta.ArticleOutputTokens
	}
	return out
}

// Clone deep-copies the breakdown.
func (b Breakdown) Clone() Breakdown {
	out := b
	if b.TranscriptionUSD != nil {
		out.TranscriptionUSD = Amount(*b.TranscriptionUSD)
	}
	if b.TranslationUSD != nil {
		out.TranslationUSD = Amount(*b.TranslationUSD)
	}
	if b.ArticleUSD != nil {
		out.ArticleUSD = Amount(*b.ArticleUSD)
	}
	return out
}

// Amount returns a pointer to v, for populating optional cost fields.
func Amount(v float64) *float64 {
	return &v
}

// Format renders a USD amount for display. Sub-cent amounts keep four
// decimals so small per-call costs don't render as $0.00.
func Format(amount float64) string {
	if amount != 0 && amount < 0.01 {
		return fmt.Sprintf("$%.4f", amount)
	}
	return fmt.Sprintf("$%.2f", amount)
}

// TokenCost prices a token count against per-million-token rates.
func TokenCost(inputTokens, outputTokens int, inputPerM, outputPerM float64) float64 {
	return (float64(inputTokens)*inputPerM + float64(outputTokens)*outputPerM) / 1_000_000
}

// SecondsCost prices audio duration against a per-second rate.
func SecondsCost(seconds, perSecond float64) float64 {
	return seconds * perSecond
}
