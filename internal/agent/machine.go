package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/helpline/internal/escalation"
	"github.com/zulandar/helpline/internal/handoff"
	"github.com/zulandar/helpline/internal/metrics"
	"github.com/zulandar/helpline/internal/oracle"
	"github.com/zulandar/helpline/internal/tools"
)

// turnDraft accumulates one turn's node outputs. The session is only
// touched by commit; a failed turn leaves it exactly as it was.
type turnDraft struct {
	ConversationID  string
	CustomerID      string
	CustomerMessage string

	Intent       string
	Handler      string
	Context      string
	TicketID     string
	Sentiment    oracle.Sentiment
	HasOrder     bool
	OrderTotal   float64
	OrderStatus  string
	OrderSummary string

	PendingRefundAmount float64

	NeedsEscalation  bool
	EscalationReason string
	EscalationResult escalation.Result
	Response         string
	Request          *handoff.Request
}

// TurnResult is what the caller gets back from a completed or suspended
// turn.
type TurnResult struct {
	AgentMessage   string
	Intent         string
	Escalated      bool
	Request        *handoff.Request
	TicketID       string
	Suspended      bool
	ApprovalReason string
}

// Opts holds the collaborators a Machine needs.
type Opts struct {
	Oracle     oracle.Oracle
	Orders     *tools.Catalog
	Accounts   *tools.Directory
	Desk       *tools.Desk
	Retriever  tools.Retriever
	Queue      *handoff.Queue
	Dispatcher *handoff.Dispatcher
	Gate       *ApprovalGate // optional; nil disables the approval path
	Thresholds escalation.Thresholds
	RetrievalK int
	Metrics    *metrics.Metrics // optional
	Logger     *logrus.Logger
}

// Machine is the conversation state machine. One ProcessTurn call runs
// the full per-turn pipeline for one conversation; separate
// conversations may run turns concurrently.
type Machine struct {
	oracle     oracle.Oracle
	orders     *tools.Catalog
	accounts   *tools.Directory
	desk       *tools.Desk
	retriever  tools.Retriever
	queue      *handoff.Queue
	dispatcher *handoff.Dispatcher
	gate       *ApprovalGate
	thresholds escalation.Thresholds
	retrievalK int
	metrics    *metrics.Metrics
	log        *logrus.Logger
}

// New creates a Machine.
func New(opts Opts) (*Machine, error) {
	switch {
	case opts.Oracle == nil:
		return nil, fmt.Errorf("agent: oracle is required")
	case opts.Orders == nil:
		return nil, fmt.Errorf("agent: order catalog is required")
	case opts.Accounts == nil:
		return nil, fmt.Errorf("agent: account directory is required")
	case opts.Desk == nil:
		return nil, fmt.Errorf("agent: ticket desk is required")
	case opts.Retriever == nil:
		return nil, fmt.Errorf("agent: knowledge retriever is required")
	case opts.Queue == nil:
		return nil, fmt.Errorf("agent: handoff queue is required")
	case opts.Dispatcher == nil:
		return nil, fmt.Errorf("agent: notification dispatcher is required")
	}

	th := opts.Thresholds
	if th == (escalation.Thresholds{}) {
		th = escalation.DefaultThresholds()
	}
	k := opts.RetrievalK
	if k <= 0 {
		k = 4
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}

	return &Machine{
		oracle:     opts.Oracle,
		orders:     opts.Orders,
		accounts:   opts.Accounts,
		desk:       opts.Desk,
		retriever:  opts.Retriever,
		queue:      opts.Queue,
		dispatcher: opts.Dispatcher,
		gate:       opts.Gate,
		thresholds: th,
		retrievalK: k,
		metrics:    opts.Metrics,
		log:        log,
	}, nil
}

// ProcessTurn runs one customer message through the pipeline and commits
// the updated session. On normal completion exactly one agent message is
// appended. On the approval path the customer message and turn fields
// commit but the agent message is withheld until a reviewer decides; the
// result carries Suspended=true. On error the session is untouched.
func (m *Machine) ProcessTurn(ctx context.Context, s *Session, message string) (*TurnResult, error) {
	if s == nil {
		return nil, fmt.Errorf("agent: session is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("agent: empty customer message")
	}
	start := time.Now()

	d := &turnDraft{
		ConversationID:  s.ConversationID,
		CustomerID:      s.CustomerID,
		CustomerMessage: message,
		TicketID:        s.TicketID,
		Sentiment: oracle.Sentiment{
			Score:       s.SentimentScore,
			Frustration: s.FrustrationLevel,
		},
	}

	// Classifying. Repeated classifier failure degrades to general
	// rather than failing the turn.
	intent, err := m.oracle.ClassifyIntent(ctx, message)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("agent: classify: %w", err)
		}
		m.log.WithError(err).Warn("intent classification failed, defaulting to general")
		intent = "general"
	}
	d.Intent = intent

	if intent == "handoff_request" {
		// Straight to Escalating; no handler, no sentiment pass.
		if err := m.escalate(ctx, s, d); err != nil {
			return nil, err
		}
		return m.commit(s, d, start), nil
	}

	// Handling.
	switch intent {
	case "faq":
		m.handleFAQ(d)
	case "order_inquiry":
		m.handleOrder(d)
	case "account":
		m.handleAccount(d)
	case "complaint":
		if err := m.handleComplaint(d); err != nil {
			return nil, err
		}
	default:
		m.handleGeneral(d)
	}

	// SentimentCheck over the last three messages including this one.
	window := append(append([]Message(nil), s.Messages...), Message{Role: "customer", Content: message})
	sentiment, err := m.analyzeSentiment(ctx, transcript(window, 3))
	if err != nil {
		return nil, fmt.Errorf("agent: sentiment: %w", err)
	}
	d.Sentiment = sentiment

	tier := m.accounts.Tier(s.CustomerID)
	result := escalation.Evaluate(escalation.Signals{
		Intent:              d.Intent,
		SentimentScore:      sentiment.Score,
		FrustrationLevel:    sentiment.Frustration,
		TurnCount:           s.TurnCount + 1,
		LastCustomerMessage: message,
		HasOrder:            d.HasOrder,
		OrderTotal:          d.OrderTotal,
	}, tier, m.thresholds)

	d.EscalationResult = result
	if result.ShouldEscalate {
		if err := m.escalate(ctx, s, d); err != nil {
			return nil, err
		}
		return m.commit(s, d, start), nil
	}

	// Responding.
	reply, err := m.generateResponse(ctx, d, window)
	if err != nil {
		return nil, fmt.Errorf("agent: respond: %w", err)
	}
	d.Response = reply

	// ApprovalPending.
	if m.gate != nil {
		if res, suspended, err := m.maybeSuspend(s, d, start); err != nil {
			return nil, err
		} else if suspended {
			return res, nil
		}
	}

	return m.commit(s, d, start), nil
}

func (m *Machine) analyzeSentiment(ctx context.Context, window string) (oracle.Sentiment, error) {
	start := time.Now()
	s, err := m.oracle.AnalyzeSentiment(ctx, window)
	if m.metrics != nil {
		m.metrics.OracleCallDuration.WithLabelValues("analyze_sentiment").Observe(time.Since(start).Seconds())
		if err != nil {
			m.metrics.OracleFailures.WithLabelValues("analyze_sentiment").Inc()
		}
	}
	return s, err
}

func (m *Machine) generateResponse(ctx context.Context, d *turnDraft, window []Message) (string, error) {
	start := time.Now()
	reply, err := m.oracle.GenerateResponse(ctx, oracle.ResponseRequest{
		Intent:  d.Intent,
		Handler: d.Handler,
		Context: d.Context,
		History: transcript(window, 5),
	})
	if m.metrics != nil {
		m.metrics.OracleCallDuration.WithLabelValues("generate_response").Observe(time.Since(start).Seconds())
		if err != nil {
			m.metrics.OracleFailures.WithLabelValues("generate_response").Inc()
		}
	}
	return reply, err
}

// maybeSuspend runs the approval gate. When approval is needed it
// commits the turn without the agent message and checkpoints the pending
// response.
func (m *Machine) maybeSuspend(s *Session, d *turnDraft, start time.Time) (*TurnResult, bool, error) {
	tenure := 365
	if account, found := m.accounts.Get(s.CustomerID); found {
		tenure = account.TenureDays(time.Now())
	}
	needed, reason := m.gate.NeedsApproval(ApprovalSignals{
		PendingRefundAmount: d.PendingRefundAmount,
		PolicyException:     d.EscalationResult.HasTrigger(escalation.PolicyException),
		SentimentScore:      d.Sentiment.Score,
		Intent:              d.Intent,
		TenureDays:          tenure,
	})
	if !needed {
		return nil, false, nil
	}

	err := m.gate.suspend(suspendedTurn{
		ConversationID:  s.ConversationID,
		CustomerMessage: d.CustomerMessage,
		Intent:          d.Intent,
		Context:         d.Context,
		SentimentScore:  d.Sentiment.Score,
		Frustration:     d.Sentiment.Frustration,
		TicketID:        d.TicketID,
		PendingResponse: d.Response,
		Reason:          reason,
		HasOrder:        d.HasOrder,
		OrderTotal:      d.OrderTotal,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("agent: suspend for approval: %w", err)
	}

	// Commit the customer message and turn fields now; the agent
	// message lands when the reviewer decides.
	m.applyDraft(s, d)
	s.Messages = append(s.Messages, Message{Role: "customer", Content: d.CustomerMessage})
	s.TurnCount++
	s.UpdatedAt = time.Now()

	if m.metrics != nil {
		m.metrics.ApprovalsRequested.Inc()
		m.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}
	return &TurnResult{
		Intent:         d.Intent,
		TicketID:       d.TicketID,
		Suspended:      true,
		ApprovalReason: reason,
	}, true, nil
}

// ResumeApproval applies a reviewer decision to a suspended turn.
// Approved emits the (possibly edited) response; rejected escalates the
// conversation instead.
func (m *Machine) ResumeApproval(ctx context.Context, s *Session, dec Decision) (*TurnResult, error) {
	if m.gate == nil {
		return nil, fmt.Errorf("agent: approval gate is not configured")
	}
	st, ok, err := m.gate.Pending(s.ConversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("agent: no pending approval for %s", s.ConversationID)
	}

	if m.metrics != nil {
		outcome := "rejected"
		if dec.Approved {
			outcome = "approved"
		}
		m.metrics.ApprovalDecisions.WithLabelValues(outcome).Inc()
	}

	if dec.Approved {
		response := st.PendingResponse
		if dec.EditedText != "" {
			response = dec.EditedText
		}
		s.Messages = append(s.Messages, Message{Role: "agent", Content: response})
		s.UpdatedAt = time.Now()
		m.gate.clear(s.ConversationID)

		m.log.WithFields(logrus.Fields{
			"conversation_id": s.ConversationID,
			"reviewer_id":     dec.ReviewerID,
			"edited":          dec.EditedText != "",
		}).Info("response approved")

		return &TurnResult{AgentMessage: response, Intent: st.Intent, TicketID: st.TicketID}, nil
	}

	// Rejected: the conversation goes to a human.
	d := &turnDraft{
		ConversationID:  s.ConversationID,
		CustomerID:      s.CustomerID,
		CustomerMessage: st.CustomerMessage,
		Intent:          st.Intent,
		TicketID:        st.TicketID,
		Sentiment:       oracle.Sentiment{Score: st.SentimentScore, Frustration: st.Frustration},
		HasOrder:        st.HasOrder,
		OrderTotal:      st.OrderTotal,
		EscalationResult: escalation.Result{
			ShouldEscalate: true,
			Priority:       escalation.PriorityMedium,
			Reason:         "Response rejected by reviewer - human follow-up required",
		},
	}
	if err := m.escalate(ctx, s, d); err != nil {
		return nil, err
	}
	m.gate.clear(s.ConversationID)

	s.Intent = d.Intent
	s.NeedsEscalation = true
	s.EscalationReason = d.EscalationReason
	s.TicketID = d.TicketID
	s.Messages = append(s.Messages, Message{Role: "agent", Content: d.Response})
	s.UpdatedAt = time.Now()

	m.log.WithFields(logrus.Fields{
		"conversation_id": s.ConversationID,
		"reviewer_id":     dec.ReviewerID,
	}).Info("response rejected, conversation escalated")

	return &TurnResult{
		AgentMessage: d.Response,
		Intent:       d.Intent,
		Escalated:    true,
		Request:      d.Request,
		TicketID:     d.TicketID,
	}, nil
}

// escalate runs the Escalating node: evaluate (if not already done),
// ensure a ticket, queue the handoff, notify agents, and synthesize the
// customer-facing message. Notification failures never fail the turn.
func (m *Machine) escalate(ctx context.Context, s *Session, d *turnDraft) error {
	result := d.EscalationResult
	if !result.ShouldEscalate {
		tier := m.accounts.Tier(s.CustomerID)
		result = escalation.Evaluate(escalation.Signals{
			Intent:              d.Intent,
			SentimentScore:      d.Sentiment.Score,
			FrustrationLevel:    d.Sentiment.Frustration,
			TurnCount:           s.TurnCount + 1,
			LastCustomerMessage: d.CustomerMessage,
			HasOrder:            d.HasOrder,
			OrderTotal:          d.OrderTotal,
		}, tier, m.thresholds)
		d.EscalationResult = result
	}

	if d.TicketID == "" {
		ticket, err := m.desk.Create(tools.TicketOpts{
			CustomerID:     d.CustomerID,
			ConversationID: d.ConversationID,
			Category:       "general",
			Subject:        "Human Agent Requested",
			Description:    result.Reason,
			Priority:       string(result.Priority),
		})
		if err != nil {
			return fmt.Errorf("agent: escalation ticket: %w", err)
		}
		d.TicketID = ticket.ID
	}

	req, err := m.queue.Add(handoff.AddOpts{
		ConversationID: d.ConversationID,
		CustomerID:     d.CustomerID,
		Priority:       result.Priority,
		Triggers:       result.Triggers,
		Reason:         result.Reason,
		TicketID:       d.TicketID,
	})
	if err != nil {
		return fmt.Errorf("agent: queue handoff: %w", err)
	}
	d.Request = req

	agentCtx := m.packageContext(s, d, req)
	notes, err := m.dispatcher.Dispatch(ctx, req, agentCtx)
	if err != nil {
		// Agents can still pull from the queue; the handoff stands.
		m.log.WithError(err).WithField("request_id", req.RequestID).
			Warn("agent notification dispatch failed")
	}
	if m.metrics != nil {
		m.metrics.EscalationsTriggered.WithLabelValues(string(result.Priority)).Inc()
		for _, n := range notes {
			m.metrics.NotificationsSent.WithLabelValues(n.Channel).Inc()
		}
	}

	position := m.queue.Position(req.RequestID)
	wait := req.EstimatedWait
	if wait <= 0 {
		wait = 5
	}
	d.NeedsEscalation = true
	d.EscalationReason = result.Reason
	d.Response = handoffMessage(d.TicketID, position, wait, result.Priority)
	return nil
}

// packageContext assembles the briefing the human agent receives.
func (m *Machine) packageContext(s *Session, d *turnDraft, req *handoff.Request) *handoff.AgentContext {
	full := append(append([]Message(nil), s.Messages...), Message{Role: "customer", Content: d.CustomerMessage})
	entries := make([]handoff.TranscriptEntry, len(full))
	for i, msg := range full {
		entries[i] = handoff.TranscriptEntry{Role: msg.Role, Content: msg.Content}
	}

	agentCtx := &handoff.AgentContext{
		ConversationID:   s.ConversationID,
		CustomerID:       s.CustomerID,
		RequestID:        req.RequestID,
		Summary:          handoff.Summarize(entries),
		MessageCount:     len(entries),
		Intent:           d.Intent,
		Triggers:         d.EscalationResult.Triggers,
		EscalationReason: d.EscalationResult.Reason,
		SentimentScore:   d.Sentiment.Score,
		FrustrationLevel: d.Sentiment.Frustration,
		OrderSummary:     d.OrderSummary,
		TicketID:         d.TicketID,
		Transcript:       entries,
		SuggestedActions: handoff.SuggestActions(d.Intent, d.EscalationResult.Triggers, d.OrderStatus),
		PackagedAt:       time.Now(),
	}
	if account, found := m.accounts.Get(s.CustomerID); found {
		agentCtx.CustomerName = account.Name
		agentCtx.CustomerEmail = account.Email
		agentCtx.CustomerTier = account.LoyaltyTier
		agentCtx.CustomerHistory = fmt.Sprintf("%d orders, $%.2f lifetime, member since %s",
			account.TotalOrders, account.TotalSpent, account.MemberSince)
	}
	return agentCtx
}

// commit applies the draft to the session and builds the result. The
// only place the session is mutated on the normal path.
func (m *Machine) commit(s *Session, d *turnDraft, start time.Time) *TurnResult {
	m.applyDraft(s, d)
	s.Messages = append(s.Messages,
		Message{Role: "customer", Content: d.CustomerMessage},
		Message{Role: "agent", Content: d.Response},
	)
	s.TurnCount++
	s.UpdatedAt = time.Now()

	if m.metrics != nil {
		m.metrics.TurnsProcessed.WithLabelValues(d.Intent).Inc()
		m.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}
	m.log.WithFields(logrus.Fields{
		"conversation_id": s.ConversationID,
		"intent":          d.Intent,
		"escalated":       d.NeedsEscalation,
		"turn":            s.TurnCount,
	}).Info("turn completed")

	return &TurnResult{
		AgentMessage: d.Response,
		Intent:       d.Intent,
		Escalated:    d.NeedsEscalation,
		Request:      d.Request,
		TicketID:     d.TicketID,
	}
}

// applyDraft copies the draft's scalar fields onto the session.
func (m *Machine) applyDraft(s *Session, d *turnDraft) {
	s.Intent = d.Intent
	s.SentimentScore = d.Sentiment.Score
	s.FrustrationLevel = d.Sentiment.Frustration
	s.Context = d.Context
	s.NeedsEscalation = d.NeedsEscalation
	s.EscalationReason = d.EscalationReason
	if d.TicketID != "" {
		s.TicketID = d.TicketID
	}
}

// handoffMessage builds the customer-facing escalation message.
func handoffMessage(ticketID string, position, wait int, priority escalation.Priority) string {
	reassurance := map[escalation.Priority]string{
		escalation.PriorityUrgent: "I've flagged this as urgent, and a team member will be with you very shortly.",
		escalation.PriorityHigh:   "I've marked this as high priority. A team member will be with you soon.",
		escalation.PriorityMedium: "A team member will be with you as soon as possible.",
		escalation.PriorityLow:    "A team member will reach out to help you.",
	}
	line, ok := reassurance[priority]
	if !ok {
		line = reassurance[escalation.PriorityMedium]
	}

	parts := []string{
		"I understand you'd like to speak with a human agent, and I've arranged that for you.",
		"",
		fmt.Sprintf("**Your Reference Number: %s**", ticketID),
		"",
		line,
		"",
	}
	if position > 0 {
		parts = append(parts, fmt.Sprintf("You're currently #%d in our queue.", position))
	}
	parts = append(parts,
		fmt.Sprintf("Estimated wait time: approximately %d minutes.", wait),
		"",
		"While you wait:",
		"- You don't need to stay on this chat - we'll reach out to you",
		"- You can reference your ticket number in any follow-up",
		"- Our team has the full context of our conversation",
		"",
		"Is there anything else I can help you with while you wait?",
	)
	return strings.Join(parts, "\n")
}
