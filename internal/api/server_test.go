package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zulandar/helpline/internal/agent"
	"github.com/zulandar/helpline/internal/handoff"
	"github.com/zulandar/helpline/internal/models"
	"github.com/zulandar/helpline/internal/oracle"
	"github.com/zulandar/helpline/internal/tools"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	srv  *Server
	mock *oracle.Mock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Conversation{}, &models.ConversationMessage{},
		&models.Ticket{}, &models.SupportAgent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Create(&models.SupportAgent{ID: "AGENT-001", Name: "Sarah Johnson", Status: "available", Skills: "technical"})

	desk, _ := tools.NewDesk(tools.DeskOpts{DB: db})
	pool, _ := tools.NewAgentDirectory(db)
	queue := handoff.NewQueue(handoff.QueueOpts{})
	dispatcher, _ := handoff.NewDispatcher(handoff.DispatcherOpts{Pool: pool})

	mock := &oracle.Mock{}
	machine, err := agent.New(agent.Opts{
		Oracle:     mock,
		Orders:     tools.NewCatalog(nil),
		Accounts:   tools.NewDirectory(nil),
		Desk:       desk,
		Retriever:  tools.NewKeywordRetriever(nil),
		Queue:      queue,
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	store, _ := agent.NewSessionStore(db)

	srv, err := New(Opts{Machine: machine, Store: store, Queue: queue})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testServer{srv: srv, mock: mock}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body.String())
	}
	return out
}

func (ts *testServer) startConversation(t *testing.T, customerID string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/conversations", map[string]string{"customer_id": customerID})
	if w.Code != http.StatusCreated {
		t.Fatalf("start conversation: %d %s", w.Code, w.Body.String())
	}
	return decode(t, w)["conversation_id"].(string)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
}

func TestConversationFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startConversation(t, "CUST-1001")

	w := ts.do(t, http.MethodPost, "/api/conversations/"+id+"/messages",
		map[string]string{"message": "What is your return policy?"})
	if w.Code != http.StatusOK {
		t.Fatalf("message: %d %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["intent"] != "faq" {
		t.Errorf("intent = %v", body["intent"])
	}
	if body["response"] == "" {
		t.Error("expected a response")
	}

	w = ts.do(t, http.MethodGet, "/api/conversations/"+id, nil)
	status := decode(t, w)
	if status["turn_count"].(float64) != 1 {
		t.Errorf("turn_count = %v", status["turn_count"])
	}
	if status["message_count"].(float64) != 2 {
		t.Errorf("message_count = %v", status["message_count"])
	}
}

func TestMessage_UnknownConversation(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/conversations/conv-nope/messages",
		map[string]string{"message": "hi"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", w.Code)
	}
}

func TestMessage_TurnFailureReturnsApology(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startConversation(t, "CUST-1001")

	ts.mock.SentimentErr = errors.New("model down")
	w := ts.do(t, http.MethodPost, "/api/conversations/"+id+"/messages",
		map[string]string{"message": "What is your warranty?"})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	body := decode(t, w)
	if body["response"] != apologyMessage {
		t.Errorf("response = %v, want the generic apology", body["response"])
	}
	if body["degraded"] != true {
		t.Error("degraded flag should be set")
	}

	// The failed turn must not have mutated the conversation.
	w = ts.do(t, http.MethodGet, "/api/conversations/"+id, nil)
	if decode(t, w)["turn_count"].(float64) != 0 {
		t.Error("failed turn should not increment turn count")
	}
}

func TestEscalationAndQueueEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startConversation(t, "CUST-1000")

	w := ts.do(t, http.MethodPost, "/api/conversations/"+id+"/messages",
		map[string]string{"message": "I need to speak to a human"})
	if w.Code != http.StatusOK {
		t.Fatalf("message: %d %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["escalated"] != true {
		t.Fatal("expected escalation")
	}
	requestID := body["request_id"].(string)

	w = ts.do(t, http.MethodGet, "/api/queue", nil)
	queueBody := decode(t, w)
	pending := queueBody["pending"].(map[string]any)
	if pending["urgent"].(float64) != 1 {
		t.Errorf("urgent pending = %v", pending["urgent"])
	}

	w = ts.do(t, http.MethodPost, "/api/queue/"+requestID+"/assign",
		map[string]string{"agent_id": "AGENT-001"})
	if w.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", w.Code, w.Body.String())
	}
	if decode(t, w)["status"] != "assigned" {
		t.Error("expected assigned status")
	}

	w = ts.do(t, http.MethodPost, "/api/queue/"+requestID+"/resolve", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: %d", w.Code)
	}

	// Double resolve is a 404, not a crash.
	w = ts.do(t, http.MethodPost, "/api/queue/"+requestID+"/resolve", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("double resolve = %d, want 404", w.Code)
	}
}

func TestQueueAssign_Unknown(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/queue/HO-NOPE/assign",
		map[string]string{"agent_id": "AGENT-001"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", w.Code)
	}
}

func TestApprovalDecision_NothingPending(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startConversation(t, "CUST-1001")

	w := ts.do(t, http.MethodPost, "/api/approvals/"+id+"/decision",
		map[string]any{"approved": true, "reviewer_id": "AGENT-001"})
	if w.Code != http.StatusConflict {
		t.Fatalf("code = %d, want 409", w.Code)
	}
}
