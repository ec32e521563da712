// Package tools holds the action surfaces the conversation agent calls
// into: order lookup, account info, ticket creation, the agent directory,
// and knowledge retrieval. Order and account data are deterministic mock
// catalogs standing in for the order management system and CRM.
package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// OrderItem is one line of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order is a customer order as the order management system reports it.
type Order struct {
	OrderID           string      `json:"order_id"`
	CustomerID        string      `json:"customer_id"`
	Status            string      `json:"status"` // processing, shipped, delivered, cancelled, returned
	Items             []OrderItem `json:"items"`
	Total             float64     `json:"total"`
	OrderDate         string      `json:"order_date"`
	ShippingMethod    string      `json:"shipping_method"`
	TrackingNumber    string      `json:"tracking_number,omitempty"`
	EstimatedDelivery string      `json:"estimated_delivery,omitempty"`
	DeliveryDate      string      `json:"delivery_date,omitempty"`
}

// Catalog looks up orders. Backed by a fixed in-memory set of twenty
// orders spread across the five mock customers.
type Catalog struct {
	orders map[string]*Order
	log    *logrus.Logger
}

var catalogProducts = []OrderItem{
	{Name: "TechFlow Pro 15 Laptop", Price: 1299.00, Quantity: 1},
	{Name: "TechFlow Wireless Earbuds", Price: 129.00, Quantity: 1},
	{Name: "TechFlow USB-C Hub", Price: 79.00, Quantity: 2},
	{Name: "TechFlow Phone 12", Price: 799.00, Quantity: 1},
	{Name: "TechFlow Tab 10", Price: 449.00, Quantity: 1},
}

// NewCatalog builds the mock order catalog.
func NewCatalog(log *logrus.Logger) *Catalog {
	if log == nil {
		log = logrus.New()
	}

	statuses := []string{"processing", "shipped", "delivered", "shipped", "delivered"}
	shipping := []string{"standard", "express", "overnight"}
	estDays := map[string]int{"standard": 7, "express": 3, "overnight": 1}
	base := time.Now()

	orders := make(map[string]*Order, 20)
	for i := 0; i < 20; i++ {
		item := catalogProducts[i%len(catalogProducts)]
		o := &Order{
			OrderID:        fmt.Sprintf("TF-%d", 10000+i),
			CustomerID:     fmt.Sprintf("CUST-%d", 1000+(i%5)),
			Status:         statuses[i%len(statuses)],
			Items:          []OrderItem{item},
			Total:          item.Price * float64(item.Quantity),
			OrderDate:      base.AddDate(0, 0, -(i + 1)).Format("2006-01-02"),
			ShippingMethod: shipping[i%len(shipping)],
		}
		if o.Status == "shipped" || o.Status == "delivered" {
			o.TrackingNumber = fmt.Sprintf("1Z999AA%d", 10000000+i)
			est := base.AddDate(0, 0, -(i+1)+estDays[o.ShippingMethod])
			o.EstimatedDelivery = est.Format("2006-01-02")
			if o.Status == "delivered" {
				o.DeliveryDate = o.EstimatedDelivery
			}
		}
		orders[o.OrderID] = o
	}

	return &Catalog{orders: orders, log: log}
}

// Lookup finds an order by ID. Bare numbers are accepted and normalized
// to the TF- prefix. When customerID is non-empty the order must belong
// to that customer; a mismatch reports not-found rather than leaking the
// order's existence. The boolean is false when no order is available.
func (c *Catalog) Lookup(orderID, customerID string) (*Order, bool) {
	id := strings.ToUpper(strings.TrimSpace(orderID))
	if !strings.HasPrefix(id, "TF-") {
		id = "TF-" + id
	}

	o, ok := c.orders[id]
	if !ok {
		c.log.WithField("order_id", id).Warn("order not found")
		return nil, false
	}
	if customerID != "" && o.CustomerID != customerID {
		c.log.WithFields(logrus.Fields{
			"order_id":    id,
			"customer_id": customerID,
		}).Warn("order customer mismatch")
		return nil, false
	}

	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp, true
}

// TrackingURL builds the customer-facing tracking link for a shipment.
func (c *Catalog) TrackingURL(trackingNumber string) string {
	return "https://track.techflow.com/" + trackingNumber
}

// FormatSummary renders an order for display to the customer.
func (c *Catalog) FormatSummary(o *Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Order %s**\n", o.OrderID)
	fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(o.Status))
	fmt.Fprintf(&b, "Order Date: %s\n", o.OrderDate)
	fmt.Fprintf(&b, "Shipping: %s\n\nItems:\n", titleCase(o.ShippingMethod))
	for _, item := range o.Items {
		fmt.Fprintf(&b, "  - %s (x%d) - $%.2f\n", item.Name, item.Quantity, item.Price)
	}
	fmt.Fprintf(&b, "\nTotal: $%.2f\n", o.Total)

	if o.TrackingNumber != "" {
		fmt.Fprintf(&b, "\nTracking: %s\n", o.TrackingNumber)
		fmt.Fprintf(&b, "Track at: %s\n", c.TrackingURL(o.TrackingNumber))
	}
	switch {
	case o.Status == "shipped" && o.EstimatedDelivery != "":
		fmt.Fprintf(&b, "Expected Delivery: %s\n", o.EstimatedDelivery)
	case o.Status == "delivered" && o.DeliveryDate != "":
		fmt.Fprintf(&b, "Delivered: %s\n", o.DeliveryDate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
