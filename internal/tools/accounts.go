package tools

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Account is a customer profile as the CRM reports it.
type Account struct {
	CustomerID   string  `json:"customer_id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone,omitempty"`
	MemberSince  string  `json:"member_since"`
	LoyaltyTier  string  `json:"loyalty_tier"` // bronze, silver, gold, platinum
	TotalOrders  int     `json:"total_orders"`
	TotalSpent   float64 `json:"total_spent"`
	TwoFactorOn  bool    `json:"two_factor_enabled"`
	memberSinceT time.Time
}

// TenureDays reports how long the customer has held the account.
func (a *Account) TenureDays(now time.Time) int {
	if a.memberSinceT.IsZero() {
		t, err := time.Parse("2006-01-02", a.MemberSince)
		if err != nil {
			return 0
		}
		a.memberSinceT = t
	}
	return int(now.Sub(a.memberSinceT).Hours() / 24)
}

// Directory looks up customer accounts. Backed by a fixed mock CRM of
// five customers whose loyalty tier grows with seniority.
type Directory struct {
	accounts map[string]*Account
	log      *logrus.Logger
}

// NewDirectory builds the mock account directory.
func NewDirectory(log *logrus.Logger) *Directory {
	if log == nil {
		log = logrus.New()
	}

	tiers := []string{"bronze", "silver", "gold", "platinum"}
	seed := []struct {
		id, email, name string
	}{
		{"CUST-1000", "john.doe@email.com", "John Doe"},
		{"CUST-1001", "jane.smith@email.com", "Jane Smith"},
		{"CUST-1002", "bob.wilson@email.com", "Bob Wilson"},
		{"CUST-1003", "alice.jones@email.com", "Alice Jones"},
		{"CUST-1004", "charlie.brown@email.com", "Charlie Brown"},
	}

	now := time.Now()
	accounts := make(map[string]*Account, len(seed))
	for i, s := range seed {
		tier := i
		if tier > len(tiers)-1 {
			tier = len(tiers) - 1
		}
		orders := (i + 1) * 5
		since := now.AddDate(0, 0, -365*(i+1))
		a := &Account{
			CustomerID:   s.id,
			Email:        s.email,
			Name:         s.name,
			MemberSince:  since.Format("2006-01-02"),
			LoyaltyTier:  tiers[tier],
			TotalOrders:  orders,
			TotalSpent:   float64(orders) * 250,
			TwoFactorOn:  i > 2,
			memberSinceT: since,
		}
		if i%2 == 0 {
			a.Phone = fmt.Sprintf("+1-555-%04d", 1000+i)
		}
		accounts[s.id] = a
	}

	return &Directory{accounts: accounts, log: log}
}

// Get finds an account by customer ID. The boolean is false when the
// customer is unknown.
func (d *Directory) Get(customerID string) (*Account, bool) {
	a, ok := d.accounts[customerID]
	if !ok {
		d.log.WithField("customer_id", customerID).Warn("account not found")
		return nil, false
	}
	cp := *a
	return &cp, true
}

// Tier reports the loyalty tier for a customer, or "bronze" for unknown
// customers so downstream checks stay conservative.
func (d *Directory) Tier(customerID string) string {
	if a, ok := d.accounts[customerID]; ok {
		return a.LoyaltyTier
	}
	return "bronze"
}
