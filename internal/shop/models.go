package shop

import (
	"encoding/json"
	"github.com/shopspring/decimal"
	"time"
)

type Tenant struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ShopDomain  string `json:"shop_domain"`
	AccessToken string `json:"-"` // plaintext in the tenants table
}

// Configured reports whether the tenant can be used against the platform API.
func (t Tenant) Configured() bool {
	return t.ShopDomain != "" && t.AccessToken != ""
}

type Customer struct {
	ID         int64
	ExternalID string
	FirstName  *string
	LastName   *string
	Email      *string
	TenantID   int64
	TotalSpent decimal.Decimal
	CreatedAt  time.Time
}

type Order struct {
	ID         int64
	ExternalID string
	Total      decimal.Decimal
	Currency   string
	// CustomerID is resolved at write time; nil until the customer is synced.
	CustomerID         *int64
	CustomerExternalID *string
	TenantID           int64
	CreatedAt          time.Time
}

type Product struct {
	ID         int64
	ExternalID string
	Title      string
	Price      decimal.Decimal
	TenantID   int64
	CreatedAt  time.Time
}

// Event is the append-only record of an inbound webhook delivery.
type Event struct {
	ID        int64
	TenantID  int64
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}
