package shop

import "fmt"

// Kind is one of the three resource collections pulled from the platform.
type Kind string

const (
	KindCustomers Kind = "customers"
	KindProducts  Kind = "products"
	KindOrders    Kind = "orders"
)

// SyncOrder is the fixed per-tenant pipeline order. Orders go last because
// customer links are resolved against rows written by the customers step.
var SyncOrder = []Kind{KindCustomers, KindProducts, KindOrders}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCustomers, KindProducts, KindOrders:
		return k, nil
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

func (k Kind) String() string { return string(k) }
