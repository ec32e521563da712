package tools

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/helpline/internal/models"
	"gorm.io/gorm"
)

var (
	validCategories = map[string]bool{
		"return": true, "refund": true, "technical": true,
		"billing": true, "shipping": true, "general": true,
	}
	validPriorities = map[string]bool{
		"low": true, "medium": true, "high": true, "urgent": true,
	}
)

// Desk creates and retrieves support tickets, persisted through GORM.
type Desk struct {
	db  *gorm.DB
	log *logrus.Logger
}

// DeskOpts holds parameters for creating a Desk.
type DeskOpts struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

// NewDesk creates a ticket desk.
func NewDesk(opts DeskOpts) (*Desk, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("tools: desk: database is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	return &Desk{db: opts.DB, log: log}, nil
}

// TicketOpts holds parameters for opening a ticket.
type TicketOpts struct {
	CustomerID     string
	ConversationID string
	Category       string
	Subject        string
	Description    string
	Priority       string
}

// Create opens a new support ticket. Unknown categories fall back to
// general and unknown priorities to medium, so a misbehaving classifier
// never blocks ticket creation.
func (d *Desk) Create(opts TicketOpts) (*models.Ticket, error) {
	if opts.CustomerID == "" {
		return nil, fmt.Errorf("tools: create ticket: customer id is required")
	}

	category := strings.ToLower(strings.TrimSpace(opts.Category))
	if !validCategories[category] {
		category = "general"
	}
	priority := strings.ToLower(strings.TrimSpace(opts.Priority))
	if !validPriorities[priority] {
		priority = "medium"
	}

	ticket := &models.Ticket{
		ID:             newTicketID(),
		CustomerID:     opts.CustomerID,
		ConversationID: opts.ConversationID,
		Category:       category,
		Subject:        opts.Subject,
		Description:    opts.Description,
		Priority:       priority,
		Status:         "open",
	}
	if err := d.db.Create(ticket).Error; err != nil {
		return nil, fmt.Errorf("tools: create ticket: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"customer_id": ticket.CustomerID,
		"category":    category,
		"priority":    priority,
	}).Info("ticket created")

	return ticket, nil
}

// Get retrieves a ticket by ID, or nil if absent.
func (d *Desk) Get(ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.db.First(&ticket, "id = ?", ticketID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tools: get ticket: %w", err)
	}
	return &ticket, nil
}

// ForCustomer lists a customer's tickets, newest first.
func (d *Desk) ForCustomer(customerID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.db.Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("tools: list tickets: %w", err)
	}
	return tickets, nil
}

// FormatConfirmation renders a ticket confirmation for the customer,
// including the response-time commitment per priority.
func (d *Desk) FormatConfirmation(t *models.Ticket) string {
	return fmt.Sprintf(`**Support Ticket Created**

Ticket ID: %s
Category: %s
Priority: %s
Subject: %s

Our team will review your ticket and respond within:
- Urgent: 2 hours
- High: 4 hours
- Medium: 24 hours
- Low: 48 hours

You can reference ticket %s in future conversations.`,
		t.ID, titleCase(t.Category), titleCase(t.Priority), t.Subject, t.ID)
}

// newTicketID generates a ticket ID in TKT-XXXXXXXX format.
func newTicketID() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
