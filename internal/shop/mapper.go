package shop

import (
	"encoding/json"
	"github.com/shopspring/decimal"
	"time"
)

// now is swapped in tests.
var now = time.Now

var maxPrice = decimal.New(1, 8)

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func MapCustomer(tenantID int64, p CustomerPayload) (Customer, bool) {
	if p.ID == "" {
		return Customer{}, false
	}
	return Customer{
		ExternalID: string(p.ID),
		Email:      nullable(string(p.Email)),
		FirstName:  nullable(string(p.FirstName)),
		LastName:   nullable(string(p.LastName)),
		TenantID:   tenantID,
		TotalSpent: p.TotalSpent.Decimal,
		CreatedAt:  p.CreatedAt.OrDefault(now()),
	}, true
}

func MapOrder(tenantID int64, p OrderPayload) (Order, bool) {
	if p.ID == "" {
		return Order{}, false
	}
	currency := string(p.Currency)
	if currency == "" {
		currency = string(p.CurrencyCode)
	}
	o := Order{
		ExternalID: string(p.ID),
		Total:      p.TotalPrice.Decimal,
		Currency:   currency,
		TenantID:   tenantID,
		CreatedAt:  p.CreatedAt.OrDefault(now()),
	}
	if p.Customer != nil {
		o.CustomerExternalID = nullable(string(p.Customer.ID))
	}
	return o, true
}

func MapProduct(tenantID int64, p ProductPayload) (Product, bool) {
	if p.ID == "" {
		return Product{}, false
	}
	pr := Product{
		ExternalID: string(p.ID),
		Title:      string(p.Title),
		TenantID:   tenantID,
		CreatedAt:  p.CreatedAt.OrDefault(now()),
	}
	if len(p.Variants) > 0 {
		pr.Price = p.Variants[0].Price.Decimal
	}
	// products.price is NUMERIC(10,2).
	if pr.Price.Abs().GreaterThanOrEqual(maxPrice) {
		pr.Price = decimal.Zero
	}
	return pr, true
}

// mapAll decodes each raw record and maps it; records that do not decode or
// carry no external ID are skipped and counted.
func mapAll[P any, R any](raws []json.RawMessage, tenantID int64, fn func(int64, P) (R, bool)) ([]R, int) {
	out := make([]R, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		var p P
		if err := json.Unmarshal(raw, &p); err != nil {
			skipped++
			continue
		}
		r, ok := fn(tenantID, p)
		if !ok {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

func MapCustomers(tenantID int64, raws []json.RawMessage) ([]Customer, int) {
	return mapAll(raws, tenantID, MapCustomer)
}

func MapOrders(tenantID int64, raws []json.RawMessage) ([]Order, int) {
	return mapAll(raws, tenantID, MapOrder)
}

func MapProducts(tenantID int64, raws []json.RawMessage) ([]Product, int) {
	return mapAll(raws, tenantID, MapProduct)
}
