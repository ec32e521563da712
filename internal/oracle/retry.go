package oracle

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Retrying wraps an Oracle and retries each call once on failure. Model
// timeouts are transient often enough that a single retry recovers most
// turns; a second failure is surfaced to the caller.
type Retrying struct {
	inner Oracle
	log   *logrus.Logger

	// Called after each failed attempt, for metrics.
	OnRetry func(op string)
}

// WithRetry wraps an Oracle with one-retry semantics.
func WithRetry(inner Oracle, log *logrus.Logger) *Retrying {
	if log == nil {
		log = logrus.New()
	}
	return &Retrying{inner: inner, log: log}
}

func (r *Retrying) retry(ctx context.Context, op string, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	r.log.WithError(err).WithField("op", op).Warn("model call failed, retrying once")
	if r.OnRetry != nil {
		r.OnRetry(op)
	}
	return true
}

// ClassifyIntent implements IntentClassifier.
func (r *Retrying) ClassifyIntent(ctx context.Context, message string) (string, error) {
	intent, err := r.inner.ClassifyIntent(ctx, message)
	if r.retry(ctx, "classify_intent", err) {
		return r.inner.ClassifyIntent(ctx, message)
	}
	return intent, err
}

// AnalyzeSentiment implements SentimentAnalyzer.
func (r *Retrying) AnalyzeSentiment(ctx context.Context, transcript string) (Sentiment, error) {
	s, err := r.inner.AnalyzeSentiment(ctx, transcript)
	if r.retry(ctx, "analyze_sentiment", err) {
		return r.inner.AnalyzeSentiment(ctx, transcript)
	}
	return s, err
}

// GenerateResponse implements ResponseGenerator.
func (r *Retrying) GenerateResponse(ctx context.Context, req ResponseRequest) (string, error) {
	reply, err := r.inner.GenerateResponse(ctx, req)
	if r.retry(ctx, "generate_response", err) {
		return r.inner.GenerateResponse(ctx, req)
	}
	return reply, err
}
