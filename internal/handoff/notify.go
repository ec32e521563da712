package handoff

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/helpline/internal/escalation"
	"github.com/zulandar/helpline/internal/models"
	"github.com/zulandar/helpline/internal/notify"
)

// AgentPool lists available human agents, optionally filtered by skills.
// An empty filter returns every available agent.
type AgentPool interface {
	Available(requiredSkills []string) ([]models.SupportAgent, error)
}

// Notification is the ephemeral record of one agent being told about a
// handoff request. Not persisted beyond dispatch.
type Notification struct {
	NotificationID string
	RequestID      string
	AgentID        string
	Priority       escalation.Priority
	CustomerID     string
	BriefReason    string
	EstimatedWait  int
	SentAt         time.Time
	Channel        string
}

// DispatcherOpts holds parameters for creating a Dispatcher.
type DispatcherOpts struct {
	Pool      AgentPool
	Notifiers []notify.Notifier // optional; log-only dispatch when empty
	Logger    *logrus.Logger
}

// Dispatcher matches a queued handoff request to available agents and
// pushes notifications through the configured channels.
type Dispatcher struct {
	pool      AgentPool
	notifiers []notify.Notifier
	log       *logrus.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOpts) (*Dispatcher, error) {
	if opts.Pool == nil {
		return nil, fmt.Errorf("handoff: dispatcher: agent pool is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Dispatcher{pool: opts.Pool, notifiers: opts.Notifiers, log: log}, nil
}

// Dispatch notifies available agents about a handoff request. Agents are
// matched by skills derived from the request's triggers, falling back to
// all available agents when nobody matches. Channel delivery is
// best-effort; failures are logged and never fail the dispatch. Returns
// the notifications sent.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request, agentCtx *AgentContext) ([]Notification, error) {
	if req == nil {
		return nil, fmt.Errorf("handoff: dispatch: request is required")
	}

	agents, err := d.pool.Available(RequiredSkills(req))
	if err != nil {
		return nil, fmt.Errorf("handoff: dispatch: list agents: %w", err)
	}
	if len(agents) == 0 {
		agents, err = d.pool.Available(nil)
		if err != nil {
			return nil, fmt.Errorf("handoff: dispatch: list agents (fallback): %w", err)
		}
	}

	briefReason := truncate(req.Reason, 100)
	body := ""
	if agentCtx != nil {
		body = agentCtx.FormatForDisplay()
	}
	urgent := req.Priority == escalation.PriorityUrgent

	var sent []Notification
	for _, agent := range agents {
		n := Notification{
			NotificationID: fmt.Sprintf("NOTIF-%s-%s", req.RequestID, agent.ID),
			RequestID:      req.RequestID,
			AgentID:        agent.ID,
			Priority:       req.Priority,
			CustomerID:     req.CustomerID,
			BriefReason:    briefReason,
			EstimatedWait:  req.EstimatedWait,
			SentAt:         time.Now(),
			Channel:        "dashboard",
		}

		msg := notify.Message{
			Subject:  fmt.Sprintf("Handoff %s for %s [%s]: %s", req.RequestID, req.CustomerID, strings.ToUpper(string(req.Priority)), briefReason),
			Body:     body,
			Priority: string(req.Priority),
			Urgent:   urgent,
		}
		for _, notifier := range d.notifiers {
			if err := notifier.Send(ctx, msg); err != nil {
				d.log.WithError(err).WithFields(logrus.Fields{
					"channel":    notifier.Name(),
					"request_id": req.RequestID,
				}).Warn("notification delivery failed")
				continue
			}
			n.Channel = notifier.Name()
		}

		d.log.WithFields(logrus.Fields{
			"agent_id":   agent.ID,
			"agent_name": agent.Name,
			"request_id": req.RequestID,
			"priority":   req.Priority,
		}).Info("agent notified")

		sent = append(sent, n)
	}

	return sent, nil
}

// RequiredSkills derives the skill filter for a request: VIP handoffs want
// the vip desk, complaint-driven handoffs want complaint handlers.
func RequiredSkills(req *Request) []string {
	var skills []string
	for _, t := range req.Triggers {
		if t == escalation.VipCustomer {
			skills = append(skills, "vip")
			break
		}
	}
	if strings.Contains(strings.ToLower(req.Reason), "complaint") {
		skills = append(skills, "complaints")
	}
	return skills
}
