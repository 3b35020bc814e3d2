// Package trade standardizes the canonical trade record shared between
// data acquisition and detection layers.
package trade

import "fmt"

// Side is the direction of the aggressive order.
type Side string

const (
	Buy  Side = "Buy"
	Sell Side = "Sell"
)

// Trade models a single executed trade after source-specific mapping.
type Trade struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Qty    float64 `json:"qty"`
	Side   Side    `json:"side"`
	Time   int64   `json:"time"` // milliseconds since epoch, source-reported
	ID     string  `json:"trade_id"`
	Source string  `json:"source"`
}

// USDValue is the notional value of the trade in quote currency.
func (t Trade) USDValue() float64 {
	return t.Qty * t.Price
}

// Valid reports whether the trade carries usable numeric fields.
func (t Trade) Valid() bool {
	return t.Price > 0 && t.Qty > 0
}

// Key returns a stable identifier for dedup purposes. Sources that do
// not provide a trade ID fall back to a composite of the observable
// fields, which survives pagination overlap across polls.
func (t Trade) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("%s_%v_%v_%d", t.Symbol, t.Price, t.Qty, t.Time)
}
