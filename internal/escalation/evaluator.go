// Package escalation decides when a conversation needs a human agent.
package escalation

import (
	"fmt"
	"strings"
)

// Trigger identifies one condition that contributes to an escalation.
type Trigger string

const (
	ExplicitRequest  Trigger = "explicit_request"
	HighFrustration  Trigger = "high_frustration"
	RepeatedFailures Trigger = "repeated_failures"
	PolicyException  Trigger = "policy_exception"
	VipCustomer      Trigger = "vip_customer"
	SensitiveTopic   Trigger = "sensitive_topic"
	ComplexIssue     Trigger = "complex_issue"
	MaxTurnsReached  Trigger = "max_turns_reached"
)

// Priority orders handoff requests: urgent is served first.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to its ordering key (urgent=0 ... low=3). Unknown
// priorities rank as medium.
func Rank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Result is the outcome of an escalation check, computed fresh each turn.
type Result struct {
	ShouldEscalate bool
	Triggers       []Trigger
	Priority       Priority
	Reason         string
}

// HasTrigger reports whether the result contains the given trigger.
func (r Result) HasTrigger(t Trigger) bool {
	for _, tr := range r.Triggers {
		if tr == t {
			return true
		}
	}
	return false
}

// Signals carries the per-turn conversation facts the evaluator reads.
// OrderTotal is only meaningful when HasOrder is true.
type Signals struct {
	Intent              string
	SentimentScore      float64
	FrustrationLevel    string
	TurnCount           int
	LastCustomerMessage string
	HasOrder            bool
	OrderTotal          float64
}

// Thresholds tunes the evaluator. Zero value is not usable; use
// DefaultThresholds or values from config.
type Thresholds struct {
	SentimentThreshold  float64 // escalate below this sentiment
	MaxTurns            int     // escalate at or beyond this many turns
	OrderValueThreshold float64 // complaint + order above this is a policy exception
}

// DefaultThresholds mirrors the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SentimentThreshold:  -0.5,
		MaxTurns:            50,
		OrderValueThreshold: 500,
	}
}

// Evaluate checks all escalation triggers against the turn's signals.
// Checks run in a fixed order and each contributes independently; multiple
// triggers may fire on one turn. Deterministic and side-effect free.
func Evaluate(sig Signals, customerTier string, th Thresholds) Result {
	var triggers []Trigger
	var reasons []string

	if sig.Intent == "handoff_request" {
		triggers = append(triggers, ExplicitRequest)
		reasons = append(reasons, "Customer requested human agent")
	}

	frustration := sig.FrustrationLevel
	if frustration == "" {
		frustration = "low"
	}
	if sig.SentimentScore < th.SentimentThreshold || frustration == "high" {
		triggers = append(triggers, HighFrustration)
		reasons = append(reasons, fmt.Sprintf("High frustration detected (sentiment: %.2f)", sig.SentimentScore))
	}

	if sig.TurnCount >= th.MaxTurns {
		triggers = append(triggers, MaxTurnsReached)
		reasons = append(reasons, fmt.Sprintf("Conversation exceeded %d turns", th.MaxTurns))
	}

	if customerTier == "gold" || customerTier == "platinum" {
		if sig.Intent == "complaint" || frustration == "medium" || frustration == "high" {
			triggers = append(triggers, VipCustomer)
			reasons = append(reasons, fmt.Sprintf("VIP customer (%s tier) with issue", customerTier))
		}
	}

	if sig.HasOrder && sig.OrderTotal > th.OrderValueThreshold && sig.Intent == "complaint" {
		triggers = append(triggers, PolicyException)
		reasons = append(reasons, fmt.Sprintf("High-value order ($%.2f) with complaint", sig.OrderTotal))
	}

	if ContainsSensitiveTopic(sig.LastCustomerMessage) {
		triggers = append(triggers, SensitiveTopic)
		reasons = append(reasons, "Sensitive topic detected - requires human handling")
	}

	reason := "No escalation needed"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	return Result{
		ShouldEscalate: len(triggers) > 0,
		Triggers:       triggers,
		Priority:       calculatePriority(triggers),
		Reason:         reason,
	}
}

// calculatePriority resolves fired triggers into a single priority.
// Two or more triggers escalate to high even when each alone is medium.
func calculatePriority(triggers []Trigger) Priority {
	if len(triggers) == 0 {
		return PriorityLow
	}

	urgent := map[Trigger]bool{
		ExplicitRequest: true,
		HighFrustration: true,
		SensitiveTopic:  true,
	}
	high := map[Trigger]bool{
		VipCustomer:      true,
		PolicyException:  true,
		RepeatedFailures: true,
	}

	for _, t := range triggers {
		if urgent[t] {
			return PriorityUrgent
		}
	}
	for _, t := range triggers {
		if high[t] {
			return PriorityHigh
		}
	}
	if len(triggers) >= 2 {
		return PriorityHigh
	}
	return PriorityMedium
}
