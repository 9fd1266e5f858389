// Package intent defines the execution ticket: the immutable statement of
// what upstream decision logic wants to do. Gates and the audit trail
// consume it read-only.
package intent

// Action values.
const (
	Buy  = "BUY"
	Sell = "SELL"
	Hold = "HOLD"
)

// Order types.
const (
	Market = "MARKET"
	Limit  = "LIMIT"
)

// Ticket is a proposed capital-affecting action. Construct once, never
// mutate; every component that sees it gets the same facts.
type Ticket struct {
	TicketID     string  `json:"ticket_id"`
	Symbol       string  `json:"symbol"`
	Action       string  `json:"action"`
	OrderType    string  `json:"order_type"`
	Quantity     float64 `json:"quantity"`
	LimitPrice   float64 `json:"limit_price"`
	Reason       string  `json:"reason"`
	Regime       string  `json:"regime"`
	AIConfidence float64 `json:"ai_confidence"`
}
