package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zulandar/helpline/internal/tools"
)

// orderIDPattern matches TF-prefixed or bare five-digit order numbers.
var orderIDPattern = regexp.MustCompile(`(?i)\b(?:TF-?)?(\d{5})\b`)

// extractOrderID pulls an order identifier out of free text, normalized
// to the TF- prefix. Returns "" when no identifier is present; that is a
// handler fact, never an error.
func extractOrderID(message string) string {
	m := orderIDPattern.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return "TF-" + m[1]
}

// handleFAQ gathers knowledge base passages for policy questions.
func (m *Machine) handleFAQ(d *turnDraft) {
	docs := m.retriever.Retrieve(d.CustomerMessage, m.retrievalK)
	var parts []string
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	d.Context = strings.Join(parts, "\n\n")
	d.Handler = "faq"
}

// handleOrder looks up the order mentioned in the message. Ownership is
// enforced; a mismatched or unknown order reads as not-found.
func (m *Machine) handleOrder(d *turnDraft) {
	d.Handler = "order_inquiry"

	orderID := extractOrderID(d.CustomerMessage)
	if orderID == "" {
		d.Context = "No order ID provided. Ask customer for their order number."
		return
	}

	order, found := m.orders.Lookup(orderID, d.CustomerID)
	if !found {
		d.Context = fmt.Sprintf("Order %s not found in system.", orderID)
		return
	}

	var items []string
	for _, it := range order.Items {
		items = append(items, it.Name)
	}
	tracking := order.TrackingNumber
	if tracking == "" {
		tracking = "Not yet available"
	}
	delivery := order.EstimatedDelivery
	if delivery == "" {
		delivery = "TBD"
	}
	d.Context = fmt.Sprintf(`Order Information:
- Order ID: %s
- Status: %s
- Items: %s
- Shipping: %s
- Tracking: %s
- Estimated Delivery: %s`,
		order.OrderID, order.Status, strings.Join(items, ", "),
		order.ShippingMethod, tracking, delivery)

	d.HasOrder = true
	d.OrderTotal = order.Total
	d.OrderStatus = order.Status
	d.OrderSummary = fmt.Sprintf("%s (%s, $%.2f)", order.OrderID, order.Status, order.Total)

	// A refund demand against a located order is a pending refund for
	// the approval gate.
	if strings.Contains(strings.ToLower(d.CustomerMessage), "refund") {
		d.PendingRefundAmount = order.Total
	}
}

// handleAccount retrieves the customer's account profile.
func (m *Machine) handleAccount(d *turnDraft) {
	d.Handler = "account"

	if d.CustomerID == "" {
		d.Context = "No customer ID available. Ask customer to verify their identity."
		return
	}
	account, found := m.accounts.Get(d.CustomerID)
	if !found {
		d.Context = "Customer account not found."
		return
	}
	d.Context = fmt.Sprintf(`Customer Account Information:
- Name: %s
- Email: %s
- Loyalty Tier: %s
- Member Since: %s`,
		account.Name, account.Email, account.LoyaltyTier, account.MemberSince)
}

// handleComplaint opens a ticket and primes an empathetic response.
// Ticket creation failing fails the turn; a complaint without a ticket
// is a lost complaint.
func (m *Machine) handleComplaint(d *turnDraft) error {
	d.Handler = "complaint"

	// An order reference in a complaint feeds the policy-exception and
	// refund checks.
	if orderID := extractOrderID(d.CustomerMessage); orderID != "" {
		if order, found := m.orders.Lookup(orderID, d.CustomerID); found {
			d.HasOrder = true
			d.OrderTotal = order.Total
			d.OrderStatus = order.Status
			d.OrderSummary = fmt.Sprintf("%s (%s, $%.2f)", order.OrderID, order.Status, order.Total)
			if strings.Contains(strings.ToLower(d.CustomerMessage), "refund") {
				d.PendingRefundAmount = order.Total
			}
		}
	}

	ticket, err := m.desk.Create(tools.TicketOpts{
		CustomerID:     d.CustomerID,
		ConversationID: d.ConversationID,
		Category:       "general",
		Subject:        "Customer Complaint",
		Description:    d.CustomerMessage,
		Priority:       "high",
	})
	if err != nil {
		return fmt.Errorf("agent: complaint ticket: %w", err)
	}
	d.TicketID = ticket.ID

	d.Context = fmt.Sprintf(`Complaint ticket created:
- Ticket ID: %s
- Priority: High
- Status: Open

Acknowledge the customer's frustration with empathy. Reference the ticket number.
Assure them their concern is being taken seriously.`, ticket.ID)
	return nil
}

// handleGeneral falls back to the knowledge base for anything else.
func (m *Machine) handleGeneral(d *turnDraft) {
	docs := m.retriever.Retrieve(d.CustomerMessage, m.retrievalK)
	var parts []string
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	d.Context = strings.Join(parts, "\n\n")
	d.Handler = "general"
}
