package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRun swaps the CLI invocation for canned output.
func fakeClaude(outputs ...string) *Claude {
	c := NewClaude(ClaudeOpts{})
	i := 0
	c.run = func(_ context.Context, _ string) (string, error) {
		out := outputs[i%len(outputs)]
		i++
		return out, nil
	}
	return c
}

func TestClassifyIntent_ValidLabel(t *testing.T) {
	c := fakeClaude("order_inquiry\n")
	intent, err := c.ClassifyIntent(context.Background(), "where is TF-10001?")
	if err != nil {
		t.Fatalf("ClassifyIntent: %v", err)
	}
	if intent != "order_inquiry" {
		t.Errorf("intent = %s", intent)
	}
}

func TestClassifyIntent_UnknownLabelFallsBack(t *testing.T) {
	c := fakeClaude("Sure! The category is: billing_question")
	intent, err := c.ClassifyIntent(context.Background(), "hm")
	if err != nil {
		t.Fatalf("ClassifyIntent: %v", err)
	}
	if intent != "general" {
		t.Errorf("intent = %s, want general fallback", intent)
	}
}

func TestParseSentiment(t *testing.T) {
	cases := []struct {
		name        string
		output      string
		score       float64
		frustration string
	}{
		{"well formed", "SENTIMENT: -0.8\nFRUSTRATION: high", -0.8, "high"},
		{"clamped", "SENTIMENT: -3.5\nFRUSTRATION: medium", -1.0, "medium"},
		{"garbage score", "SENTIMENT: very bad\nFRUSTRATION: high", 0.0, "high"},
		{"garbage level", "SENTIMENT: 0.2\nFRUSTRATION: apoplectic", 0.2, "low"},
		{"empty", "", 0.0, "low"},
		{"extra prose", "Here is my analysis:\nSENTIMENT: 0.5\nFRUSTRATION: low\nHope that helps!", 0.5, "low"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := parseSentiment(tc.output)
			if s.Score != tc.score {
				t.Errorf("score = %v, want %v", s.Score, tc.score)
			}
			if s.Frustration != tc.frustration {
				t.Errorf("frustration = %s, want %s", s.Frustration, tc.frustration)
			}
		})
	}
}

func TestGenerateResponse_Empty(t *testing.T) {
	c := fakeClaude("   \n")
	if _, err := c.GenerateResponse(context.Background(), ResponseRequest{Intent: "faq"}); err == nil {
		t.Fatal("expected error for empty model output")
	}
}

func TestGenerateResponse_PromptCarriesContext(t *testing.T) {
	c := NewClaude(ClaudeOpts{})
	var captured string
	c.run = func(_ context.Context, prompt string) (string, error) {
		captured = prompt
		return "Your order shipped yesterday.", nil
	}

	_, err := c.GenerateResponse(context.Background(), ResponseRequest{
		Intent:  "order_inquiry",
		Handler: "order_inquiry",
		Context: "Order TF-10001 status shipped",
		History: "Customer: where is my order?",
	})
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if !strings.Contains(captured, "Order TF-10001 status shipped") {
		t.Error("prompt should include gathered context")
	}
	if !strings.Contains(captured, "where is my order?") {
		t.Error("prompt should include conversation history")
	}
}

func TestMock_Classify(t *testing.T) {
	m := &Mock{}
	cases := map[string]string{
		"I want to speak to a human":      "handoff_request",
		"Where is my package?":            "order_inquiry",
		"This is unacceptable, refund me": "complaint",
		"I forgot my password":            "account",
		"What is your return policy?":     "faq",
		"hello":                           "general",
	}
	for msg, want := range cases {
		got, err := m.ClassifyIntent(context.Background(), msg)
		if err != nil {
			t.Fatalf("ClassifyIntent(%q): %v", msg, err)
		}
		if got != want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", msg, got, want)
		}
	}
}

type flaky struct {
	Mock
	failures int
	calls    int
}

func (f *flaky) ClassifyIntent(ctx context.Context, message string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("deadline exceeded")
	}
	return f.Mock.ClassifyIntent(ctx, message)
}

func TestRetrying_RecoversOnce(t *testing.T) {
	inner := &flaky{failures: 1}
	retries := 0
	r := WithRetry(inner, nil)
	r.OnRetry = func(string) { retries++ }

	intent, err := r.ClassifyIntent(context.Background(), "what is your return policy?")
	if err != nil {
		t.Fatalf("ClassifyIntent: %v", err)
	}
	if intent != "faq" {
		t.Errorf("intent = %s", intent)
	}
	if retries != 1 {
		t.Errorf("retries = %d, want 1", retries)
	}
}

func TestRetrying_GivesUpAfterSecondFailure(t *testing.T) {
	inner := &flaky{failures: 2}
	r := WithRetry(inner, nil)
	if _, err := r.ClassifyIntent(context.Background(), "hello"); err == nil {
		t.Fatal("expected error after two failures")
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want exactly 2", inner.calls)
	}
}

func TestRetrying_NoRetryWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flaky{failures: 10}
	r := WithRetry(inner, nil)
	if _, err := r.ClassifyIntent(ctx, "hello"); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on cancelled context)", inner.calls)
	}
}
