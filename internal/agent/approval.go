package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/helpline/internal/checkpoint"
	"github.com/zulandar/helpline/internal/config"
)

// ApprovalSignals are the facts the gate inspects before a response goes
// out. TenureDays defaults to a year for unknown customers so only
// verifiably new customers trip the new-customer rule.
type ApprovalSignals struct {
	PendingRefundAmount float64
	PolicyException     bool
	SentimentScore      float64
	Intent              string
	TenureDays          int
}

// Decision is a reviewer's verdict on a suspended response.
type Decision struct {
	Approved   bool
	EditedText string // optional replacement for the pending response
	ReviewerID string
}

// suspendedTurn is the checkpoint payload written when a turn suspends
// for approval. It carries everything needed to commit the turn later
// without replaying earlier nodes.
type suspendedTurn struct {
	ConversationID  string    `json:"conversation_id"`
	CustomerMessage string    `json:"customer_message"`
	Intent          string    `json:"intent"`
	Context         string    `json:"context"`
	SentimentScore  float64   `json:"sentiment_score"`
	Frustration     string    `json:"frustration_level"`
	TicketID        string    `json:"ticket_id,omitempty"`
	PendingResponse string    `json:"pending_response"`
	Reason          string    `json:"reason"`
	HasOrder        bool      `json:"has_order"`
	OrderTotal      float64   `json:"order_total"`
	CreatedAt       time.Time `json:"created_at"`
}

// ApprovalGate suspends high-stakes responses for human review. The
// durable checkpoint store is mandatory; the gate cannot run without it.
type ApprovalGate struct {
	store              checkpoint.Store
	refundThreshold    float64
	sentimentThreshold float64
	tenureDays         int
	log                *logrus.Logger
}

// GateOpts holds parameters for creating an ApprovalGate.
type GateOpts struct {
	Store  checkpoint.Store
	Config config.ApprovalConfig
	Logger *logrus.Logger
}

// NewGate creates an approval gate. A nil checkpoint store is a usage
// error, not a degraded mode.
func NewGate(opts GateOpts) (*ApprovalGate, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("agent: approval gate: checkpoint store is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	refund := opts.Config.RefundThreshold
	if refund == 0 {
		refund = 100
	}
	sentiment := opts.Config.SentimentThreshold
	if sentiment == 0 {
		sentiment = -0.7
	}
	tenure := opts.Config.TenureDays
	if tenure == 0 {
		tenure = 30
	}
	return &ApprovalGate{
		store:              opts.Store,
		refundThreshold:    refund,
		sentimentThreshold: sentiment,
		tenureDays:         tenure,
		log:                log,
	}, nil
}

// NeedsApproval reports whether the response must be reviewed, and why.
func (g *ApprovalGate) NeedsApproval(sig ApprovalSignals) (bool, string) {
	var reasons []string

	if sig.PendingRefundAmount > g.refundThreshold {
		reasons = append(reasons, fmt.Sprintf("High-value refund: $%.2f", sig.PendingRefundAmount))
	}
	if sig.PolicyException {
		reasons = append(reasons, "Policy exception requested")
	}
	if sig.SentimentScore < g.sentimentThreshold {
		reasons = append(reasons, "Customer appears very upset")
	}
	if sig.Intent == "complaint" && sig.TenureDays < g.tenureDays {
		reasons = append(reasons, "New customer complaint - retention risk")
	}

	if len(reasons) == 0 {
		return false, ""
	}
	return true, strings.Join(reasons, "; ")
}

// suspend writes the turn checkpoint. The thread ID is the conversation
// ID: one pending approval per conversation.
func (g *ApprovalGate) suspend(st suspendedTurn) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("agent: approval gate: marshal checkpoint: %w", err)
	}
	if err := g.store.Save(st.ConversationID, string(payload)); err != nil {
		return err
	}
	g.log.WithFields(logrus.Fields{
		"conversation_id": st.ConversationID,
		"reason":          st.Reason,
	}).Info("response suspended for approval")
	return nil
}

// Pending loads the suspended turn for a conversation. ok is false when
// nothing is awaiting approval.
func (g *ApprovalGate) Pending(conversationID string) (*suspendedTurn, bool, error) {
	raw, ok, err := g.store.Load(conversationID)
	if err != nil || !ok {
		return nil, false, err
	}
	var st suspendedTurn
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, false, fmt.Errorf("agent: approval gate: decode checkpoint: %w", err)
	}
	return &st, true, nil
}

// clear removes the checkpoint after a decision is applied.
func (g *ApprovalGate) clear(conversationID string) {
	if err := g.store.Delete(conversationID); err != nil {
		g.log.WithError(err).WithField("conversation_id", conversationID).
			Warn("checkpoint cleanup failed")
	}
}
