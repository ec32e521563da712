package handoff

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/helpline/internal/escalation"
)

// TranscriptEntry is one line of the conversation handed to the human agent.
type TranscriptEntry struct {
	Role    string // "customer" or "agent"
	Content string
}

// AgentContext is the briefing package a human agent receives with a
// handoff: who the customer is, what happened, and what to do next.
type AgentContext struct {
	ConversationID string
	CustomerID     string
	RequestID      string

	CustomerName    string
	CustomerEmail   string
	CustomerTier    string
	CustomerHistory string

	Summary      string
	MessageCount int

	Intent           string
	Triggers         []escalation.Trigger
	EscalationReason string
	SentimentScore   float64
	FrustrationLevel string

	OrderSummary string
	TicketID     string

	Transcript       []TranscriptEntry
	SuggestedActions []string
	PackagedAt       time.Time
}

// Summarize builds the conversation summary from a transcript: the initial
// inquiry, the most recent customer message, and the exchange count.
func Summarize(transcript []TranscriptEntry) string {
	if len(transcript) == 0 {
		return "No messages in conversation."
	}

	var first, last string
	for _, e := range transcript {
		if e.Role == "customer" {
			if first == "" {
				first = e.Content
			}
			last = e.Content
		}
	}

	var parts []string
	if first != "" {
		parts = append(parts, "Initial inquiry: "+truncate(first, 150))
	}
	if last != "" && last != first {
		parts = append(parts, "Most recent message: "+truncate(last, 150))
	}
	parts = append(parts, fmt.Sprintf("Total exchanges: %d messages", len(transcript)))
	return strings.Join(parts, "\n")
}

// SuggestActions derives next-step recommendations for the human agent
// from the detected intent, fired triggers, and order state.
func SuggestActions(intent string, triggers []escalation.Trigger, orderStatus string) []string {
	var out []string

	switch intent {
	case "complaint":
		out = append(out,
			"Acknowledge the customer's frustration and apologize for the inconvenience",
			"Review order history for context")
	case "order_inquiry":
		out = append(out,
			"Verify order status in the system",
			"Check for any shipping delays or issues")
	}

	for _, t := range triggers {
		switch t {
		case escalation.HighFrustration:
			out = append(out,
				"Customer is highly frustrated - prioritize empathy",
				"Consider offering a goodwill gesture (discount, expedited shipping)")
		case escalation.VipCustomer:
			out = append(out, "VIP customer - consider premium resolution options")
		case escalation.PolicyException:
			out = append(out, "This may require manager approval for policy exception")
		}
	}

	switch orderStatus {
	case "processing":
		out = append(out, "Order is still processing - can offer to expedite if needed")
	case "shipped":
		out = append(out, "Order is in transit - check tracking for delays")
	}

	if len(out) == 0 {
		out = append(out,
			"Review the conversation transcript for context",
			"Ask clarifying questions if needed")
	}
	return out
}

// FormatForDisplay renders the context as readable text for the agent
// notification body.
func (c *AgentContext) FormatForDisplay() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Conversation: %s | Customer: %s\n", c.ConversationID, c.CustomerID)
	if c.CustomerName != "" {
		fmt.Fprintf(&b, "Name: %s", c.CustomerName)
		if c.CustomerTier != "" {
			fmt.Fprintf(&b, " (%s tier)", c.CustomerTier)
		}
		b.WriteString("\n")
	}
	if c.CustomerHistory != "" {
		fmt.Fprintf(&b, "History: %s\n", c.CustomerHistory)
	}

	fmt.Fprintf(&b, "Intent: %s | Sentiment: %.2f | Frustration: %s\n",
		c.Intent, c.SentimentScore, c.FrustrationLevel)
	fmt.Fprintf(&b, "Reason: %s\n", c.EscalationReason)
	if c.TicketID != "" {
		fmt.Fprintf(&b, "Ticket: %s\n", c.TicketID)
	}
	if c.OrderSummary != "" {
		fmt.Fprintf(&b, "Order: %s\n", c.OrderSummary)
	}

	if c.Summary != "" {
		b.WriteString("\n")
		b.WriteString(c.Summary)
		b.WriteString("\n")
	}

	if len(c.SuggestedActions) > 0 {
		b.WriteString("\nSuggested actions:\n")
		for _, a := range c.SuggestedActions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
