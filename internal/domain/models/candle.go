package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CandleRecord is the durable unit of the system: one OHLCV candle inside a
// trading session. All monetary values use decimal.Decimal so structural
// comparisons (high >= max(open, close) and friends) are exact rather than
// float-approximate. A record is immutable once committed; undo/redo replaces
// it as a whole.
type CandleRecord struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	SeqIndex  int             `json:"seq_index"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`

	// Spread is derived (high - low) at commit time.
	Spread decimal.Decimal `json:"spread"`

	// Prediction carries optional model annotations. Storage-only; the
	// pipeline never interprets it.
	Prediction map[string]string `json:"prediction,omitempty"`
}

// Bullish reports whether the candle closed above its open.
func (c *CandleRecord) Bullish() bool {
	return c.Close.GreaterThan(c.Open)
}

// Bearish reports whether the candle closed below its open.
func (c *CandleRecord) Bearish() bool {
	return c.Close.LessThan(c.Open)
}

// Range returns high - low.
func (c *CandleRecord) Range() decimal.Decimal {
	return c.High.Sub(c.Low)
}

// Body returns the absolute open/close distance.
func (c *CandleRecord) Body() decimal.Decimal {
	return c.Close.Sub(c.Open).Abs()
}

// FormInput holds the five raw text fields as entered by the operator.
// Values are never mutated in place: every pipeline stage returns a new copy.
type FormInput struct {
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// Values returns the fields in canonical order (open, high, low, close, volume).
func (f FormInput) Values() [5]string {
	return [5]string{f.Open, f.High, f.Low, f.Close, f.Volume}
}

// HistoryOp names the operation that produced a history entry.
type HistoryOp string

const (
	HistoryOpAdd    HistoryOp = "add"
	HistoryOpRemove HistoryOp = "remove"
	HistoryOpUpdate HistoryOp = "update"
)

// HistoryEntry is one committed record on a session's undo/redo stacks.
type HistoryEntry struct {
	Record    *CandleRecord `json:"record"`
	Op        HistoryOp     `json:"op"`
	SessionID string        `json:"session_id"`
	At        time.Time     `json:"at"`
}
