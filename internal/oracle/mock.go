package oracle

import (
	"context"
	"strings"
)

// Mock is a deterministic, offline Oracle for tests and local runs.
// Classification and sentiment are keyword driven; responses are canned
// per intent.
type Mock struct {
	// Overrides, checked before the keyword heuristics.
	Intent       string
	Sent         *Sentiment
	Reply        string
	ClassifyErr  error
	SentimentErr error
	ResponseErr  error
}

// ClassifyIntent implements IntentClassifier.
func (m *Mock) ClassifyIntent(_ context.Context, message string) (string, error) {
	if m.ClassifyErr != nil {
		return "", m.ClassifyErr
	}
	if m.Intent != "" {
		return m.Intent, nil
	}

	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "human") || strings.Contains(msg, "representative") ||
		strings.Contains(msg, "real person") || strings.Contains(msg, "speak to someone"):
		return "handoff_request", nil
	case strings.Contains(msg, "order") || strings.Contains(msg, "tracking") ||
		strings.Contains(msg, "package") || strings.Contains(msg, "tf-"):
		return "order_inquiry", nil
	case strings.Contains(msg, "refund") || strings.Contains(msg, "terrible") ||
		strings.Contains(msg, "unacceptable") || strings.Contains(msg, "complaint") ||
		strings.Contains(msg, "broken"):
		return "complaint", nil
	case strings.Contains(msg, "account") || strings.Contains(msg, "password") ||
		strings.Contains(msg, "login"):
		return "account", nil
	case strings.Contains(msg, "policy") || strings.Contains(msg, "how long") ||
		strings.Contains(msg, "warranty") || strings.Contains(msg, "shipping take"):
		return "faq", nil
	default:
		return "general", nil
	}
}

// AnalyzeSentiment implements SentimentAnalyzer.
func (m *Mock) AnalyzeSentiment(_ context.Context, transcript string) (Sentiment, error) {
	if m.SentimentErr != nil {
		return Sentiment{Frustration: "low"}, m.SentimentErr
	}
	if m.Sent != nil {
		return *m.Sent, nil
	}

	text := strings.ToLower(transcript)
	switch {
	case strings.Contains(text, "furious") || strings.Contains(text, "unacceptable") ||
		strings.Contains(text, "worst"):
		return Sentiment{Score: -0.9, Frustration: "high"}, nil
	case strings.Contains(text, "frustrated") || strings.Contains(text, "annoyed") ||
		strings.Contains(text, "disappointed"):
		return Sentiment{Score: -0.6, Frustration: "medium"}, nil
	case strings.Contains(text, "thank") || strings.Contains(text, "great"):
		return Sentiment{Score: 0.7, Frustration: "low"}, nil
	default:
		return Sentiment{Score: 0.0, Frustration: "low"}, nil
	}
}

// GenerateResponse implements ResponseGenerator.
func (m *Mock) GenerateResponse(_ context.Context, req ResponseRequest) (string, error) {
	if m.ResponseErr != nil {
		return "", m.ResponseErr
	}
	if m.Reply != "" {
		return m.Reply, nil
	}

	switch req.Intent {
	case "complaint":
		return "I'm sorry to hear about this experience. " + firstLine(req.Context), nil
	case "order_inquiry":
		return "Here's what I found about your order. " + firstLine(req.Context), nil
	case "faq", "general":
		return "Happy to help with that. " + firstLine(req.Context), nil
	case "account":
		return "Let's get your account sorted out. " + firstLine(req.Context), nil
	default:
		return "Thanks for reaching out. How can I help?", nil
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
