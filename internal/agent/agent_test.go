package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zulandar/helpline/internal/checkpoint"
	"github.com/zulandar/helpline/internal/config"
	"github.com/zulandar/helpline/internal/handoff"
	"github.com/zulandar/helpline/internal/models"
	"github.com/zulandar/helpline/internal/oracle"
	"github.com/zulandar/helpline/internal/tools"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Conversation{}, &models.ConversationMessage{},
		&models.Ticket{}, &models.SupportAgent{}, &models.Checkpoint{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Create(&models.SupportAgent{ID: "AGENT-001", Name: "Sarah Johnson", Status: "available", Skills: "technical,billing"})
	db.Create(&models.SupportAgent{ID: "AGENT-003", Name: "Emily Davis", Status: "available", Skills: "vip,complaints"})
	return db
}

type fixture struct {
	machine *Machine
	mock    *oracle.Mock
	queue   *handoff.Queue
	desk    *tools.Desk
	db      *gorm.DB
}

func newFixture(t *testing.T, withGate bool) *fixture {
	t.Helper()
	db := openTestDB(t)

	desk, err := tools.NewDesk(tools.DeskOpts{DB: db})
	if err != nil {
		t.Fatalf("NewDesk: %v", err)
	}
	pool, err := tools.NewAgentDirectory(db)
	if err != nil {
		t.Fatalf("NewAgentDirectory: %v", err)
	}
	queue := handoff.NewQueue(handoff.QueueOpts{})
	dispatcher, err := handoff.NewDispatcher(handoff.DispatcherOpts{Pool: pool})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	var gate *ApprovalGate
	if withGate {
		store, err := checkpoint.NewGormStore(db)
		if err != nil {
			t.Fatalf("NewGormStore: %v", err)
		}
		gate, err = NewGate(GateOpts{Store: store, Config: config.ApprovalConfig{}})
		if err != nil {
			t.Fatalf("NewGate: %v", err)
		}
	}

	mock := &oracle.Mock{}
	machine, err := New(Opts{
		Oracle:     mock,
		Orders:     tools.NewCatalog(nil),
		Accounts:   tools.NewDirectory(nil),
		Desk:       desk,
		Retriever:  tools.NewKeywordRetriever(nil),
		Queue:      queue,
		Dispatcher: dispatcher,
		Gate:       gate,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{machine: machine, mock: mock, queue: queue, desk: desk, db: db}
}

func agentMessages(s *Session) []Message {
	var out []Message
	for _, m := range s.Messages {
		if m.Role == "agent" {
			out = append(out, m)
		}
	}
	return out
}

func TestProcessTurn_AppendsExactlyOneAgentMessage(t *testing.T) {
	f := newFixture(t, false)
	s := NewSession("conv-1", "CUST-1000")

	res, err := f.machine.ProcessTurn(context.Background(), s, "What is your return policy?")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if len(agentMessages(s)) != 1 {
		t.Fatalf("agent messages = %d, want exactly 1", len(agentMessages(s)))
	}
	if s.Messages[len(s.Messages)-1].Role != "agent" {
		t.Error("last message should be the agent reply")
	}
	if res.Intent != "faq" {
		t.Errorf("intent = %s, want faq", res.Intent)
	}
	if s.Intent != "faq" || s.TurnCount != 1 {
		t.Errorf("session intent=%s turns=%d", s.Intent, s.TurnCount)
	}
}

func TestProcessTurn_ComplaintAlwaysOpensTicket(t *testing.T) {
	f := newFixture(t, false)
	f.mock.Intent = "complaint"
	s := NewSession("conv-2", "CUST-1000")

	res, err := f.machine.ProcessTurn(context.Background(), s, "The hub you sold me fell apart")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.TicketID == "" {
		t.Fatal("complaint turn must carry a ticket id")
	}
	ticket, err := f.desk.Get(res.TicketID)
	if err != nil || ticket == nil {
		t.Fatalf("ticket not persisted: %v", err)
	}
	if ticket.Priority != "high" {
		t.Errorf("complaint ticket priority = %s, want high", ticket.Priority)
	}
}

func TestProcessTurn_HandoffRequestEscalatesDirectly(t *testing.T) {
	f := newFixture(t, false)
	s := NewSession("conv-3", "CUST-1000")

	res, err := f.machine.ProcessTurn(context.Background(), s, "I want to talk to a human please")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if !res.Escalated || res.Request == nil {
		t.Fatal("explicit handoff request must escalate")
	}
	if res.Request.Priority != "urgent" {
		t.Errorf("priority = %s, want urgent", res.Request.Priority)
	}
	if got := f.queue.GetByConversation("conv-3"); got == nil {
		t.Error("conversation should have an active queue entry")
	}
	if !strings.Contains(res.AgentMessage, res.TicketID) {
		t.Error("customer message should reference the ticket")
	}
	if !strings.Contains(res.AgentMessage, "#1 in our queue") {
		t.Errorf("customer message should state queue position:\n%s", res.AgentMessage)
	}
	if !s.NeedsEscalation {
		t.Error("session should be flagged for escalation")
	}
}

func TestProcessTurn_HighFrustrationEscalates(t *testing.T) {
	f := newFixture(t, false)
	f.mock.Intent = "complaint"
	f.mock.Sent = &oracle.Sentiment{Score: -0.9, Frustration: "high"}
	s := NewSession("conv-4", "CUST-1000")

	res, err := f.machine.ProcessTurn(context.Background(), s, "This is the worst service ever")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if !res.Escalated {
		t.Fatal("high frustration must escalate")
	}
	if res.Request.Priority != "urgent" {
		t.Errorf("priority = %s, want urgent", res.Request.Priority)
	}
	if s.SentimentScore != -0.9 || s.FrustrationLevel != "high" {
		t.Errorf("session sentiment = %v/%s", s.SentimentScore, s.FrustrationLevel)
	}
}

func TestProcessTurn_OrderInquiryGathersContext(t *testing.T) {
	f := newFixture(t, false)
	s := NewSession("conv-5", "CUST-1001")

	// TF-10001 belongs to CUST-1001 and is shipped.
	res, err := f.machine.ProcessTurn(context.Background(), s, "Where is my order TF-10001?")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Intent != "order_inquiry" {
		t.Fatalf("intent = %s", res.Intent)
	}
	if !strings.Contains(s.Context, "TF-10001") || !strings.Contains(s.Context, "shipped") {
		t.Errorf("context missing order facts:\n%s", s.Context)
	}
}

func TestProcessTurn_MissingOrderIDIsNotAFailure(t *testing.T) {
	f := newFixture(t, false)
	f.mock.Intent = "order_inquiry"
	s := NewSession("conv-6", "CUST-1001")

	_, err := f.machine.ProcessTurn(context.Background(), s, "My package has not arrived")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if !strings.Contains(s.Context, "No order ID provided") {
		t.Errorf("context = %q", s.Context)
	}
}

func TestProcessTurn_FailureLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t, false)
	f.mock.ResponseErr = errors.New("model unavailable")
	s := NewSession("conv-7", "CUST-1000")
	s.Messages = append(s.Messages, Message{Role: "customer", Content: "hi"}, Message{Role: "agent", Content: "hello"})
	s.TurnCount = 1
	s.Intent = "general"

	_, err := f.machine.ProcessTurn(context.Background(), s, "What's your warranty?")
	if err == nil {
		t.Fatal("expected turn failure")
	}
	if len(s.Messages) != 2 || s.TurnCount != 1 || s.Intent != "general" {
		t.Error("failed turn must not mutate the session")
	}
}

func TestProcessTurn_ClassifierFailureDefaultsToGeneral(t *testing.T) {
	f := newFixture(t, false)
	f.mock.ClassifyErr = errors.New("deadline exceeded")
	s := NewSession("conv-8", "CUST-1000")

	res, err := f.machine.ProcessTurn(context.Background(), s, "hello there")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Intent != "general" {
		t.Errorf("intent = %s, want general fallback", res.Intent)
	}
}

func TestProcessTurn_RepeatEscalationIsIdempotent(t *testing.T) {
	f := newFixture(t, false)
	s := NewSession("conv-9", "CUST-1000")

	first, err := f.machine.ProcessTurn(context.Background(), s, "Get me a human now")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	second, err := f.machine.ProcessTurn(context.Background(), s, "I said I want a real person")
	if err != nil {
		t.Fatalf("ProcessTurn (second): %v", err)
	}
	if first.Request.RequestID != second.Request.RequestID {
		t.Errorf("repeat escalation created a new request: %s vs %s",
			first.Request.RequestID, second.Request.RequestID)
	}
}

func TestApproval_SuspendAndApprove(t *testing.T) {
	f := newFixture(t, true)
	s := NewSession("conv-10", "CUST-1000")

	// CUST-1000 owns TF-10000 ($1299); a refund demand above the $100
	// threshold suspends the response.
	res, err := f.machine.ProcessTurn(context.Background(), s, "I want a refund for order TF-10000")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if !res.Suspended {
		t.Fatal("high-value refund should suspend for approval")
	}
	if !strings.Contains(res.ApprovalReason, "High-value refund") {
		t.Errorf("reason = %q", res.ApprovalReason)
	}
	if len(agentMessages(s)) != 0 {
		t.Error("no agent message may be emitted while suspended")
	}
	if s.TurnCount != 1 {
		t.Errorf("turn count = %d, want 1 (customer message committed)", s.TurnCount)
	}

	done, err := f.machine.ResumeApproval(context.Background(), s, Decision{
		Approved:   true,
		EditedText: "We've started your refund for order TF-10000.",
		ReviewerID: "AGENT-001",
	})
	if err != nil {
		t.Fatalf("ResumeApproval: %v", err)
	}
	if done.AgentMessage != "We've started your refund for order TF-10000." {
		t.Errorf("agent message = %q", done.AgentMessage)
	}
	if len(agentMessages(s)) != 1 {
		t.Error("approved turn must emit exactly one agent message")
	}

	// The checkpoint is consumed.
	if _, err := f.machine.ResumeApproval(context.Background(), s, Decision{Approved: true}); err == nil {
		t.Error("second decision should fail, nothing pending")
	}
}

func TestApproval_RejectEscalates(t *testing.T) {
	f := newFixture(t, true)
	s := NewSession("conv-11", "CUST-1000")

	res, err := f.machine.ProcessTurn(context.Background(), s, "I want a refund for order TF-10000")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if !res.Suspended {
		t.Fatal("expected suspension")
	}

	done, err := f.machine.ResumeApproval(context.Background(), s, Decision{Approved: false, ReviewerID: "AGENT-001"})
	if err != nil {
		t.Fatalf("ResumeApproval: %v", err)
	}
	if !done.Escalated || done.Request == nil {
		t.Fatal("rejection must escalate to a human")
	}
	if !s.NeedsEscalation {
		t.Error("session should be flagged for escalation")
	}
	if f.queue.GetByConversation("conv-11") == nil {
		t.Error("rejected conversation should be queued for handoff")
	}
	if !strings.Contains(done.AgentMessage, "Reference Number") {
		t.Errorf("customer should get the handoff message:\n%s", done.AgentMessage)
	}
}

func TestNewGate_RequiresStore(t *testing.T) {
	if _, err := NewGate(GateOpts{}); err == nil {
		t.Fatal("expected error for missing checkpoint store")
	}
}

func TestExtractOrderID(t *testing.T) {
	cases := map[string]string{
		"where is TF-10001":        "TF-10001",
		"order tf10003 is late":    "TF-10003",
		"my order number is 10007": "TF-10007",
		"no order here":            "",
		"call me at 555-1234":      "",
	}
	for msg, want := range cases {
		if got := extractOrderID(msg); got != want {
			t.Errorf("extractOrderID(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	store, err := NewSessionStore(db)
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}

	s := NewSession("conv-store", "CUST-1001")
	s.Intent = "faq"
	s.SentimentScore = 0.3
	s.TurnCount = 2
	s.Messages = []Message{
		{Role: "customer", Content: "hi"},
		{Role: "agent", Content: "hello"},
		{Role: "customer", Content: "what's your return policy?"},
		{Role: "agent", Content: "30 days"},
	}
	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("conv-store")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("session not found after save")
	}
	if loaded.Intent != "faq" || loaded.TurnCount != 2 {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Messages) != 4 || loaded.Messages[3].Content != "30 days" {
		t.Errorf("messages = %v", loaded.Messages)
	}

	// Absent conversations load as nil, not an error.
	missing, err := store.Load("conv-none")
	if err != nil || missing != nil {
		t.Errorf("Load(absent) = %v, %v", missing, err)
	}
}
