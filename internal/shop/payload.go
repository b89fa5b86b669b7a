package shop

import (
	"bytes"
	"encoding/json"
	"github.com/shopspring/decimal"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ExternalID holds a platform identifier in string form. The platform sends
// numeric IDs; strings are accepted as-is.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
	case b[0] == '"':
		s, err := strconv.Unquote(string(b))
		if err != nil {
			*id = ""
			return nil
		}
		*id = ExternalID(s)
	case json.Valid(b) && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*id = ExternalID(b)
	default:
		*id = ""
	}
	return nil
}

// Amount is a money value with lenient decoding: numbers and numeric strings
// are parsed by their leading numeric prefix, anything else is zero.
type Amount struct {
	decimal.Decimal
}

var leadingNumber = regexp.MustCompile(`^\s*([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

const (
	// Money columns are NUMERIC(12,2); larger magnitudes cannot be stored.
	amountIntDigits = 10
	maxAmountShift  = 32
)

var maxAmount = decimal.New(1, amountIntDigits)

// ParseAmount never fails; unparseable or out-of-range input yields zero.
// The result is rounded to cents.
func ParseAmount(s string) decimal.Decimal {
	m := leadingNumber.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero
	}
	num, shift := m[1], 0
	if i := strings.IndexAny(num, "eE"); i >= 0 {
		e, err := strconv.Atoi(num[i+1:])
		if err != nil || e > maxAmountShift || e < -maxAmountShift {
			return decimal.Zero
		}
		num, shift = num[:i], e
	}
	whole, frac, _ := strings.Cut(num, ".")
	if len(whole) > amountIntDigits+maxAmountShift+1 {
		return decimal.Zero
	}
	if len(frac) > maxAmountShift {
		frac = frac[:maxAmountShift]
	}
	if frac != "" {
		num = whole + "." + frac
	} else {
		num = whole
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	d = d.Shift(int32(shift)).Round(2)
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero
	}
	return d
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	a.Decimal = decimal.Zero
	if len(b) == 0 {
		return nil
	}
	switch {
	case b[0] == '"':
		s, err := strconv.Unquote(string(b))
		if err == nil {
			a.Decimal = ParseAmount(s)
		}
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		a.Decimal = ParseAmount(string(b))
	}
	return nil
}

// Text is a string field that tolerates the wrong JSON type: numbers keep
// their literal form, anything else that is not a string is empty.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	b = bytes.TrimSpace(b)
	if len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')) && json.Valid(b) {
		*t = Text(b)
	}
	return nil
}

// Timestamp decodes RFC 3339 strings; anything else leaves it zero.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		return nil
	}
	if v, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = v
	}
	return nil
}

// OrDefault returns the decoded time, or def when the payload had none.
func (t Timestamp) OrDefault(def time.Time) time.Time {
	if t.IsZero() {
		return def
	}
	return t.Time
}

type CustomerPayload struct {
	ID         ExternalID `json:"id"`
	Email      Text       `json:"email"`
	FirstName  Text       `json:"first_name"`
	LastName   Text       `json:"last_name"`
	TotalSpent Amount     `json:"total_spent"`
	CreatedAt  Timestamp  `json:"created_at"`
}

type OrderCustomerRef struct {
	ID ExternalID `json:"id"`
}

type OrderPayload struct {
	ID           ExternalID        `json:"id"`
	TotalPrice   Amount            `json:"total_price"`
	Currency     Text              `json:"currency"`
	CurrencyCode Text              `json:"currency_code"`
	Customer     *OrderCustomerRef `json:"customer"`
	CreatedAt    Timestamp         `json:"created_at"`
}

type ProductVariant struct {
	Price Amount `json:"price"`
}

type ProductPayload struct {
	ID        ExternalID       `json:"id"`
	Title     Text             `json:"title"`
	Variants  []ProductVariant `json:"variants"`
	CreatedAt Timestamp        `json:"created_at"`
}
