package models

// Requests for the candle HTTP endpoints. Defined in domain for consistency and reuse.

type SubmitCandleRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	SeqIndex  int    `json:"seq_index" validate:"gte=0"`
	Timestamp string `json:"timestamp"`
	Open      string `json:"open" validate:"required"`
	High      string `json:"high" validate:"required"`
	Low       string `json:"low" validate:"required"`
	Close     string `json:"close" validate:"required"`
	Volume    string `json:"volume" validate:"required"`

	// Prediction is stored verbatim on the committed record.
	Prediction map[string]string `json:"prediction,omitempty"`
}

// Input converts the request body into the pipeline's raw form input.
func (r *SubmitCandleRequest) Input() FormInput {
	return FormInput{Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

type SubmitBatchRequest struct {
	SessionID string           `json:"session_id" validate:"required"`
	Rows      []BatchCandleRow `json:"rows" validate:"required,min=1,max=1000,dive"`
}

// BatchCandleRow is one row of a batch submission. SessionID is optional
// and falls back to the batch-level session.
type BatchCandleRow struct {
	SessionID  string            `json:"session_id"`
	SeqIndex   int               `json:"seq_index" validate:"gte=0"`
	Timestamp  string            `json:"timestamp"`
	Open       string            `json:"open" validate:"required"`
	High       string            `json:"high" validate:"required"`
	Low        string            `json:"low" validate:"required"`
	Close      string            `json:"close" validate:"required"`
	Volume     string            `json:"volume" validate:"required"`
	Prediction map[string]string `json:"prediction,omitempty"`
}

// Input converts the row into the pipeline's raw form input.
func (r *BatchCandleRow) Input() FormInput {
	return FormInput{Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

type SuggestRequest struct {
	SessionID string `query:"session_id" json:"session_id" validate:"required"`
	Field     string `query:"field" json:"field" validate:"required,oneof=open high low close volume"`
	Open      string `query:"open" json:"open"`
	High      string `query:"high" json:"high"`
	Low       string `query:"low" json:"low"`
	Close     string `query:"close" json:"close"`
	Volume    string `query:"volume" json:"volume"`
}

// Partial converts the request's already-entered fields into a form input.
func (r *SuggestRequest) Partial() FormInput {
	return FormInput{Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

type ListCandlesRequest struct {
	SessionID string `query:"session_id" json:"session_id" validate:"required"`
	FromIndex int    `query:"from_index" json:"from_index" validate:"gte=0"`
	ToIndex   int    `query:"to_index" json:"to_index" default:"-1"`
	Latest    int    `query:"latest" json:"latest" default:"0" validate:"gte=0,lte=5000"`
}
