package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulandar/helpline/internal/agent"
)

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/conversations", s.handleStartConversation)
		api.POST("/conversations/:id/messages", s.handleMessage)
		api.GET("/conversations/:id", s.handleConversationStatus)

		api.GET("/queue", s.handleQueueList)
		api.POST("/queue/:request_id/assign", s.handleQueueAssign)
		api.POST("/queue/:request_id/resolve", s.handleQueueResolve)

		api.POST("/approvals/:id/decision", s.handleApprovalDecision)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type startConversationRequest struct {
	CustomerID string `json:"customer_id"`
}

func (s *Server) handleStartConversation(c *gin.Context) {
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := "conv-" + strings.ToLower(uuid.NewString()[:8])
	session := agent.NewSession(id, req.CustomerID)
	if err := s.store.Save(session); err != nil {
		s.log.WithError(err).Error("create conversation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"conversation_id": id,
		"customer_id":     req.CustomerID,
	})
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleMessage(c *gin.Context) {
	conversationID := c.Param("id")

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	mu := s.lock(conversationID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.store.Load(conversationID)
	if err != nil {
		s.log.WithError(err).Error("load session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	result, err := s.machine.ProcessTurn(c.Request.Context(), session, req.Message)
	if err != nil {
		s.log.WithError(err).WithField("conversation_id", conversationID).Error("turn failed")
		if s.metrics != nil {
			s.metrics.TurnFailures.Inc()
		}
		c.JSON(http.StatusOK, gin.H{
			"conversation_id": conversationID,
			"response":        apologyMessage,
			"degraded":        true,
		})
		return
	}

	if err := s.store.Save(session); err != nil {
		s.log.WithError(err).Error("save session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist conversation"})
		return
	}
	s.syncQueueGauge()

	if result.Suspended {
		c.JSON(http.StatusAccepted, gin.H{
			"conversation_id": conversationID,
			"status":          "pending_approval",
			"reason":          result.ApprovalReason,
		})
		return
	}

	resp := gin.H{
		"conversation_id": conversationID,
		"response":        result.AgentMessage,
		"intent":          result.Intent,
		"escalated":       result.Escalated,
	}
	if result.TicketID != "" {
		resp["ticket_id"] = result.TicketID
	}
	if result.Request != nil {
		resp["request_id"] = result.Request.RequestID
		resp["estimated_wait_minutes"] = result.Request.EstimatedWait
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleConversationStatus(c *gin.Context) {
	session, err := s.store.Load(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id":   session.ConversationID,
		"customer_id":       session.CustomerID,
		"intent":            session.Intent,
		"sentiment_score":   session.SentimentScore,
		"frustration_level": session.FrustrationLevel,
		"needs_escalation":  session.NeedsEscalation,
		"escalation_reason": session.EscalationReason,
		"ticket_id":         session.TicketID,
		"turn_count":        session.TurnCount,
		"message_count":     len(session.Messages),
	})
}

func (s *Server) handleQueueList(c *gin.Context) {
	counts := s.queue.PendingByPriority()
	pending := make(map[string]int, len(counts))
	for p, n := range counts {
		pending[string(p)] = n
	}

	var requests []gin.H
	for _, r := range s.queue.Snapshot() {
		requests = append(requests, gin.H{
			"request_id":             r.RequestID,
			"conversation_id":        r.ConversationID,
			"customer_id":            r.CustomerID,
			"priority":               r.Priority,
			"status":                 r.Status,
			"reason":                 r.Reason,
			"assigned_agent":         r.AssignedAgent,
			"position":               s.queue.Position(r.RequestID),
			"estimated_wait_minutes": r.EstimatedWait,
			"created_at":             r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"pending": pending, "requests": requests})
}

type assignRequest struct {
	AgentID string `json:"agent_id" binding:"required"`
}

func (s *Server) handleQueueAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_id is required"})
		return
	}

	r := s.queue.Assign(c.Param("request_id"), req.AgentID)
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found or not queued"})
		return
	}
	s.syncQueueGauge()
	c.JSON(http.StatusOK, gin.H{
		"request_id":     r.RequestID,
		"status":         r.Status,
		"assigned_agent": r.AssignedAgent,
	})
}

func (s *Server) handleQueueResolve(c *gin.Context) {
	r := s.queue.Resolve(c.Param("request_id"))
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found or already closed"})
		return
	}
	s.syncQueueGauge()
	c.JSON(http.StatusOK, gin.H{
		"request_id": r.RequestID,
		"status":     r.Status,
	})
}

type decisionRequest struct {
	Approved       bool   `json:"approved"`
	EditedResponse string `json:"edited_response"`
	ReviewerID     string `json:"reviewer_id"`
}

func (s *Server) handleApprovalDecision(c *gin.Context) {
	conversationID := c.Param("id")

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	mu := s.lock(conversationID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.store.Load(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	result, err := s.machine.ResumeApproval(c.Request.Context(), session, agent.Decision{
		Approved:   req.Approved,
		EditedText: req.EditedResponse,
		ReviewerID: req.ReviewerID,
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no pending approval for this conversation"})
		return
	}

	if err := s.store.Save(session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist conversation"})
		return
	}
	s.syncQueueGauge()

	resp := gin.H{
		"conversation_id": conversationID,
		"response":        result.AgentMessage,
		"escalated":       result.Escalated,
	}
	if result.Request != nil {
		resp["request_id"] = result.Request.RequestID
	}
	c.JSON(http.StatusOK, resp)
}
