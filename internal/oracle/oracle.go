// Package oracle wraps the language model behind small purpose-built
// interfaces. The production implementation shells out to the claude CLI
// with focused prompts and parses structured one-line answers; tests and
// offline runs use the Mock.
package oracle

import "context"

// Valid intent labels. Anything else from the model collapses to general.
var ValidIntents = []string{
	"faq", "order_inquiry", "account", "complaint", "handoff_request", "general",
}

// Sentiment is the model's read of the customer's emotional state.
type Sentiment struct {
	Score       float64 // -1.0 (very negative) to 1.0 (very positive)
	Frustration string  // low, medium, high
}

// ResponseRequest carries everything the responder needs to draft a reply.
type ResponseRequest struct {
	Intent  string
	Handler string
	Context string // information gathered by the intent handler
	History string // recent conversation transcript
}

// IntentClassifier labels a customer message with one of ValidIntents.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, message string) (string, error)
}

// SentimentAnalyzer scores the customer's emotional state from a
// transcript of the recent conversation.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, transcript string) (Sentiment, error)
}

// ResponseGenerator drafts the agent's reply to the customer.
type ResponseGenerator interface {
	GenerateResponse(ctx context.Context, req ResponseRequest) (string, error)
}

// Oracle bundles the three model surfaces the conversation agent uses.
type Oracle interface {
	IntentClassifier
	SentimentAnalyzer
	ResponseGenerator
}

func validIntent(s string) bool {
	for _, v := range ValidIntents {
		if s == v {
			return true
		}
	}
	return false
}
