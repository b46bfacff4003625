package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("You exceeded your current Quota"), true},
		{errors.New("RESOURCE_EXHAUSTED"), true},
		{errors.New("invalid api key"), false},
		{fmt.Errorf("wrapped: %w", &RateLimitError{APIError: &APIError{StatusCode: 429}}), true},
		{&QuotaExceededError{APIError: &APIError{StatusCode: 403}}, true},
		{&APIError{StatusCode: http.StatusTooManyRequests}, true},
		{&ServerError{APIError: &APIError{StatusCode: 503, Message: "overloaded"}}, false},
		{errors.New("googleapi: Error 429: slow down"), true},
		{&APIError{StatusCode: 500, RequestID: "req-429", Message: "internal"}, false},
		{&ServerError{APIError: &APIError{StatusCode: 502, RequestID: "a1429b", Message: "bad gateway"}}, false},
		{errors.New("upstream failed: request req-8f429c1"), false},
		{&APIError{StatusCode: 400, Code: "RESOURCE_EXHAUSTED"}, true},
	}
	for i, tc := range cases {
		if got := IsQuotaError(tc.err); got != tc.want {
			t.Fatalf("case %d (%v): got %v want %v", i, tc.err, got, tc.want)
		}
	}
}

func TestClassifyAPIError(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "5")
	if _, ok := classifyAPIError(&APIError{StatusCode: 429}, h).(*RateLimitError); !ok {
		t.Fatalf("expected RateLimitError")
	}
	if _, ok := classifyAPIError(&APIError{StatusCode: 403}, nil).(*AuthError); !ok {
		t.Fatalf("expected AuthError")
	}
	if _, ok := classifyAPIError(&APIError{StatusCode: 404, Message: "model xyz not found"}, nil).(*ModelNotFoundError); !ok {
		t.Fatalf("expected ModelNotFoundError")
	}
	if _, ok := classifyAPIError(&APIError{StatusCode: 400, Code: "RESOURCE_EXHAUSTED"}, nil).(*QuotaExceededError); !ok {
		t.Fatalf("expected QuotaExceededError")
	}
	if _, ok := classifyAPIError(&APIError{StatusCode: 418}, nil).(*APIError); !ok {
		t.Fatalf("expected plain APIError")
	}
}

func TestFallbackChainIsCopy(t *testing.T) {
	chain := FallbackChain(ProviderGemini)
	want := []string{"gemini-3-flash-preview", "gemini-2.5-flash", "gemini-2.0-flash"}
	if fmt.Sprint(chain) != fmt.Sprint(want) {
		t.Fatalf("unexpected gemini chain: %v", chain)
	}
	chain[0] = "mutated"
	if FallbackChain(ProviderGemini)[0] != want[0] {
		t.Fatalf("fallback chain must not be shared")
	}
	if len(FallbackChain("nope")) != 0 {
		t.Fatalf("unknown provider should have an empty chain")
	}
}

func TestRegistry(t *testing.T) {
	for _, p := range []string{ProviderGemini, ProviderOpenAI, ProviderOpenRouter, ProviderOllama} {
		if _, ok := GetRuntime(p, RuntimeConfig{APIKey: "k"}); !ok {
			t.Fatalf("provider %s not registered", p)
		}
	}
	if _, err := NewRuntime("anthropic", RuntimeConfig{}); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	if RequiresAPIKey(ProviderOllama) || !RequiresAPIKey(ProviderGemini) {
		t.Fatalf("unexpected RequiresAPIKey result")
	}
	if cost, ok := EstimateCostUSD("gpt-4o-mini", 1000, 1000); !ok || cost <= 0 {
		t.Fatalf("expected a positive estimate, got %v %v", cost, ok)
	}
}
