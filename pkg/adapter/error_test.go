package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestProviderErrorMessagePrefersDetail(t *testing.T) {
	err := &ProviderError{Status: 429, Detail: "quota exceeded", Err: errors.New("http 429")}
	if err.Error() != "quota exceeded" {
		t.Fatalf("Error() = %q", err.Error())
	}

	noDetail := &ProviderError{Status: 500, Err: errors.New("http 500")}
	if noDetail.Error() != "http 500" {
		t.Fatalf("Error() = %q", noDetail.Error())
	}
}

func TestDetailWalksErrorChain(t *testing.T) {
	inner := &ProviderError{Status: 429, Detail: "quota exceeded"}
	wrapped := fmt.Errorf("translate: %w", inner)
	if got := Detail(wrapped); got != "quota exceeded" {
		t.Fatalf("Detail = %q", got)
	}
	if got := Detail(errors.New("plain")); got != "" {
		t.Fatalf("Detail of plain error = %q, want empty", got)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"rate limited", &ProviderError{Status: 429}, true},
		{"server error", &ProviderError{Status: 503}, true},
		{"flagged temporary", &ProviderError{Status: 400, Temporary: true}, true},
		{"client error", &ProviderError{Status: 400}, false},
		{"wrapped rate limit", fmt.Errorf("call: %w", &ProviderError{Status: 429}), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("%s: IsTransient = %v, want %v", tc.name, got, tc.want)
		}
	}
}
