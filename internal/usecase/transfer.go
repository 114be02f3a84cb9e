package usecase

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"CandleVault/internal/domain/models"
)

// csvHeader is the canonical column order for CSV transfer. The trailing
// spread column is derived data: always written on export, optional on
// import and recomputed from high-low either way.
var csvHeader = []string{"session_id", "seq_index", "timestamp", "open", "high", "low", "close", "volume", "spread"}

// ImportReport summarizes one bulk import run.
type ImportReport struct {
	Total     int             `json:"total"`
	Committed int             `json:"committed"`
	Rejected  int             `json:"rejected"`
	Results   []*SubmitResult `json:"results"`
}

// Transfer moves candle batches in and out of the pipeline as CSV or JSON.
// Every imported row passes through the full validation pipeline; transfer
// grants no shortcut around screening, validation or analysis.
type Transfer struct {
	pipeline *Pipeline
}

// NewTransfer creates a new Transfer instance.
func NewTransfer(p *Pipeline) *Transfer {
	return &Transfer{pipeline: p}
}

// ImportCSV reads header-prefixed CSV rows and submits each one. Malformed
// rows count as rejected; a backend commit failure aborts the run.
func (t *Transfer) ImportCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	// Row width locks to the header width, so files with and without the
	// trailing spread column both import.
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if !headerMatches(header) {
		return nil, fmt.Errorf("unexpected csv header: %v", header)
	}

	report := &ImportReport{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return report, fmt.Errorf("read csv row: %w", err)
		}

		params, perr := rowToParams(row)
		report.Total++
		if perr != nil {
			report.Rejected++
			out := &models.ValidationOutcome{}
			out.AddError("", "ERR_MALFORMED_ROW", perr.Error())
			report.Results = append(report.Results, &SubmitResult{Outcome: out})
			continue
		}

		res, serr := t.pipeline.Submit(ctx, params)
		report.Results = append(report.Results, res)
		if res.Committed {
			report.Committed++
		} else {
			report.Rejected++
		}
		if serr != nil {
			return report, fmt.Errorf("row %d: %w", report.Total, serr)
		}
	}
	return report, nil
}

// importRow is the JSON wire shape for bulk import.
type importRow struct {
	SessionID string           `json:"session_id"`
	SeqIndex  int              `json:"seq_index"`
	Timestamp time.Time        `json:"timestamp"`
	Input     models.FormInput `json:"input"`
}

// ImportJSON reads a JSON array of rows and submits each one.
func (t *Transfer) ImportJSON(ctx context.Context, r io.Reader) (*ImportReport, error) {
	var rows []importRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode import payload: %w", err)
	}

	report := &ImportReport{}
	for i, row := range rows {
		res, err := t.pipeline.Submit(ctx, SubmitParams{
			SessionID: row.SessionID,
			SeqIndex:  row.SeqIndex,
			Timestamp: row.Timestamp,
			Input:     row.Input,
		})
		report.Total++
		report.Results = append(report.Results, res)
		if res.Committed {
			report.Committed++
		} else {
			report.Rejected++
		}
		if err != nil {
			return report, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return report, nil
}

// ExportCSV writes the session's committed candles, oldest first.
func (t *Transfer) ExportCSV(w io.Writer, sessionID string) error {
	recs := t.pipeline.Index().BySession(sessionID)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range recs {
		row := []string{
			rec.SessionID,
			strconv.Itoa(rec.SeqIndex),
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			rec.Open.String(),
			rec.High.String(),
			rec.Low.String(),
			rec.Close.String(),
			rec.Volume.String(),
			rec.Spread.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes the session's committed candles as a JSON array.
func (t *Transfer) ExportJSON(w io.Writer, sessionID string) error {
	recs := t.pipeline.Index().BySession(sessionID)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("encode export payload: %w", err)
	}
	return nil
}

func headerMatches(header []string) bool {
	if len(header) != len(csvHeader) && len(header) != len(csvHeader)-1 {
		return false
	}
	for i, col := range header {
		if col != csvHeader[i] {
			return false
		}
	}
	return true
}

func rowToParams(row []string) (SubmitParams, error) {
	seq, err := strconv.Atoi(row[1])
	if err != nil {
		return SubmitParams{}, fmt.Errorf("seq_index %q: %w", row[1], err)
	}
	var ts time.Time
	if row[2] != "" {
		ts, err = time.Parse(time.RFC3339Nano, row[2])
		if err != nil {
			return SubmitParams{}, fmt.Errorf("timestamp %q: %w", row[2], err)
		}
	}
	return SubmitParams{
		SessionID: row[0],
		SeqIndex:  seq,
		Timestamp: ts,
		Input: models.FormInput{
			Open:   row[3],
			High:   row[4],
			Low:    row[5],
			Close:  row[6],
			Volume: row[7],
		},
	}, nil
}
