// Package handoff manages the queue of conversations waiting for a human
// agent and the notifications that route them to one.
package handoff

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/helpline/internal/escalation"
	"github.com/zulandar/helpline/internal/models"
	"gorm.io/gorm"
)

// Status of a handoff request.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusAbandoned  Status = "abandoned"
)

// active reports whether the status still occupies the conversation index.
func (s Status) active() bool {
	return s == StatusQueued || s == StatusAssigned || s == StatusInProgress
}

// Request is one conversation waiting for (or being helped by) a human.
type Request struct {
	RequestID      string
	ConversationID string
	CustomerID     string
	TicketID       string
	Priority       escalation.Priority
	Triggers       []escalation.Trigger
	Reason         string
	Status         Status
	AssignedAgent  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AssignedAt     *time.Time
	ResolvedAt     *time.Time
	EstimatedWait  int // minutes
}

// QueueOpts holds parameters for creating a Queue.
type QueueOpts struct {
	Logger            *logrus.Logger
	MinutesPerRequest int      // wait-estimate weight per queued request; default 5
	ArchiveDB         *gorm.DB // optional; terminal requests are archived here
}

// Queue is the registry of handoff requests. Every operation takes the
// single mutex: position and wait answers are only meaningful against a
// consistent snapshot of the whole request set.
type Queue struct {
	mu             sync.Mutex
	requests       map[string]*Request
	byConversation map[string]string // conversationID -> requestID (active only)

	log               *logrus.Logger
	minutesPerRequest int
	archiveDB         *gorm.DB
	now               func() time.Time
}

// NewQueue creates an empty handoff queue.
func NewQueue(opts QueueOpts) *Queue {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	mpr := opts.MinutesPerRequest
	if mpr <= 0 {
		mpr = 5
	}
	return &Queue{
		requests:          make(map[string]*Request),
		byConversation:    make(map[string]string),
		log:               log,
		minutesPerRequest: mpr,
		archiveDB:         opts.ArchiveDB,
		now:               time.Now,
	}
}

// AddOpts holds parameters for queueing a handoff request.
type AddOpts struct {
	ConversationID string
	CustomerID     string
	Priority       escalation.Priority
	Triggers       []escalation.Trigger
	Reason         string
	TicketID       string
}

// Add queues a new handoff request. If the conversation already has a
// Queued request, that request is returned unchanged: repeated escalation
// triggers within one unresolved conversation must not create duplicates.
func (q *Queue) Add(opts AddOpts) (*Request, error) {
	if opts.ConversationID == "" {
		return nil, fmt.Errorf("handoff: conversation id is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if existingID, ok := q.byConversation[opts.ConversationID]; ok {
		existing := q.requests[existingID]
		if existing != nil && existing.Status == StatusQueued {
			q.log.WithFields(logrus.Fields{
				"conversation_id": opts.ConversationID,
				"request_id":      existingID,
			}).Info("handoff already queued")
			return existing.clone(), nil
		}
	}

	now := q.now()
	req := &Request{
		RequestID:      newRequestID(),
		ConversationID: opts.ConversationID,
		CustomerID:     opts.CustomerID,
		TicketID:       opts.TicketID,
		Priority:       opts.Priority,
		Triggers:       opts.Triggers,
		Reason:         opts.Reason,
		Status:         StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
		EstimatedWait:  q.estimateWaitLocked(opts.Priority),
	}

	q.requests[req.RequestID] = req
	q.byConversation[opts.ConversationID] = req.RequestID

	q.log.WithFields(logrus.Fields{
		"request_id":      req.RequestID,
		"conversation_id": opts.ConversationID,
		"priority":        req.Priority,
		"position":        q.positionLocked(req.RequestID),
	}).Info("handoff queued")

	return req.clone(), nil
}

// estimateWaitLocked computes the wait estimate for a request about to be
// queued: count existing Queued requests of equal or higher urgency, weight
// by minutes per request, then adjust by priority band. Caller holds q.mu.
func (q *Queue) estimateWaitLocked(priority escalation.Priority) int {
	myRank := escalation.Rank(priority)
	ahead := 0
	for _, r := range q.requests {
		if r.Status == StatusQueued && escalation.Rank(r.Priority) <= myRank {
			ahead++
		}
	}

	base := ahead * q.minutesPerRequest
	switch priority {
	case escalation.PriorityUrgent:
		if half := base / 2; half > 2 {
			return half
		}
		return 2
	case escalation.PriorityHigh:
		if base > 5 {
			return base
		}
		return 5
	default:
		return base + q.minutesPerRequest
	}
}

// Get returns a copy of the request, or nil if absent.
func (q *Queue) Get(requestID string) *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r, ok := q.requests[requestID]; ok {
		return r.clone()
	}
	return nil
}

// GetByConversation returns the active request for a conversation, or nil.
func (q *Queue) GetByConversation(conversationID string) *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if id, ok := q.byConversation[conversationID]; ok {
		if r, ok := q.requests[id]; ok {
			return r.clone()
		}
	}
	return nil
}

// Position returns the 1-indexed rank of a Queued request among all Queued
// requests, ordered by (priority rank asc, created_at asc). Non-Queued or
// unknown requests return 0.
func (q *Queue) Position(requestID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.positionLocked(requestID)
}

func (q *Queue) positionLocked(requestID string) int {
	req, ok := q.requests[requestID]
	if !ok || req.Status != StatusQueued {
		return 0
	}

	queued := make([]*Request, 0, len(q.requests))
	for _, r := range q.requests {
		if r.Status == StatusQueued {
			queued = append(queued, r)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		ri, rj := escalation.Rank(queued[i].Priority), escalation.Rank(queued[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return queued[i].CreatedAt.Before(queued[j].CreatedAt)
	})

	for i, r := range queued {
		if r.RequestID == requestID {
			return i + 1
		}
	}
	return 0
}

// Assign binds a Queued request to an agent. Returns nil if the request is
// absent or not Queued; that is a no-op for the caller, not a failure.
func (q *Queue) Assign(requestID, agentID string) *Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[requestID]
	if !ok || req.Status != StatusQueued {
		return nil
	}

	now := q.now()
	req.Status = StatusAssigned
	req.AssignedAgent = agentID
	req.AssignedAt = &now
	req.UpdatedAt = now

	q.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"agent_id":   agentID,
	}).Info("handoff assigned")

	return req.clone()
}

// Start moves an Assigned request to InProgress. Returns nil if the request
// is absent or not Assigned.
func (q *Queue) Start(requestID string) *Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[requestID]
	if !ok || req.Status != StatusAssigned {
		return nil
	}
	req.Status = StatusInProgress
	req.UpdatedAt = q.now()
	return req.clone()
}

// Resolve marks any active request Resolved and frees the conversation for
// future escalations. Returns nil if the request is absent or already
// terminal.
func (q *Queue) Resolve(requestID string) *Request {
	return q.finish(requestID, StatusResolved)
}

// Abandon marks any active request Abandoned and frees the conversation.
func (q *Queue) Abandon(requestID string) *Request {
	return q.finish(requestID, StatusAbandoned)
}

func (q *Queue) finish(requestID string, terminal Status) *Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[requestID]
	if !ok || !req.Status.active() {
		return nil
	}

	now := q.now()
	req.Status = terminal
	req.ResolvedAt = &now
	req.UpdatedAt = now

	if q.byConversation[req.ConversationID] == requestID {
		delete(q.byConversation, req.ConversationID)
	}

	q.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"status":     terminal,
	}).Info("handoff closed")

	q.archiveLocked(req)
	return req.clone()
}

// SweepStale abandons Queued requests created before the cutoff age.
// Returns the abandoned requests.
func (q *Queue) SweepStale(olderThan time.Duration) []*Request {
	q.mu.Lock()
	cutoff := q.now().Add(-olderThan)
	var stale []string
	for id, r := range q.requests {
		if r.Status == StatusQueued && r.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	q.mu.Unlock()

	var swept []*Request
	for _, id := range stale {
		if r := q.Abandon(id); r != nil {
			swept = append(swept, r)
		}
	}
	if len(swept) > 0 {
		q.log.WithField("count", len(swept)).Warn("abandoned stale handoff requests")
	}
	return swept
}

// PendingByPriority returns counts of Queued requests for each priority.
func (q *Queue) PendingByPriority() map[escalation.Priority]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := map[escalation.Priority]int{
		escalation.PriorityUrgent: 0,
		escalation.PriorityHigh:   0,
		escalation.PriorityMedium: 0,
		escalation.PriorityLow:    0,
	}
	for _, r := range q.requests {
		if r.Status == StatusQueued {
			counts[r.Priority]++
		}
	}
	return counts
}

// Snapshot returns copies of all requests in queue order (Queued first by
// position, then everything else by creation time).
func (q *Queue) Snapshot() []*Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	all := make([]*Request, 0, len(q.requests))
	for _, r := range q.requests {
		all = append(all, r.clone())
	}
	sort.Slice(all, func(i, j int) bool {
		qi, qj := all[i].Status == StatusQueued, all[j].Status == StatusQueued
		if qi != qj {
			return qi
		}
		ri, rj := escalation.Rank(all[i].Priority), escalation.Rank(all[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}

// archiveLocked writes a terminal request to the history table. Best-effort:
// failures are logged, never surfaced. Caller holds q.mu.
func (q *Queue) archiveLocked(req *Request) {
	if q.archiveDB == nil {
		return
	}
	tags := make([]string, len(req.Triggers))
	for i, t := range req.Triggers {
		tags[i] = string(t)
	}
	row := models.HandoffArchive{
		RequestID:      req.RequestID,
		ConversationID: req.ConversationID,
		CustomerID:     req.CustomerID,
		TicketID:       req.TicketID,
		Priority:       string(req.Priority),
		Triggers:       strings.Join(tags, ","),
		Reason:         req.Reason,
		Status:         string(req.Status),
		AssignedAgent:  req.AssignedAgent,
		CreatedAt:      req.CreatedAt,
		ResolvedAt:     req.ResolvedAt,
	}
	if err := q.archiveDB.Create(&row).Error; err != nil {
		q.log.WithError(err).WithField("request_id", req.RequestID).Warn("handoff archive write failed")
	}
}

func (r *Request) clone() *Request {
	cp := *r
	cp.Triggers = append([]escalation.Trigger(nil), r.Triggers...)
	return &cp
}

// newRequestID generates a handoff request ID in HO-XXXXXXXX format.
func newRequestID() string {
	return "HO-" + strings.ToUpper(uuid.NewString()[:8])
}
