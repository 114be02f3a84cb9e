package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleVault/internal/domain/models"
)

const importCSV = `session_id,seq_index,timestamp,open,high,low,close,volume
s1,0,2024-03-01T09:00:00Z,100,105,99,103,5000
s1,1,2024-03-01T09:01:00Z,103,108,102,107,6200
s1,2,2024-03-01T09:02:00Z,107,98,106,108,4100
`

func TestImportCSV(t *testing.T) {
	tr := NewTransfer(newTestPipeline(t, nil))

	report, err := tr.ImportCSV(context.Background(), strings.NewReader(importCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Committed)
	assert.Equal(t, 1, report.Rejected, "row with high below low fails validation")
	require.Len(t, report.Results, 3)
	assert.True(t, report.Results[0].Committed)
	assert.True(t, report.Results[1].Committed)
	assert.False(t, report.Results[2].Committed)
}

func TestImportCSVBadHeader(t *testing.T) {
	tr := NewTransfer(newTestPipeline(t, nil))

	_, err := tr.ImportCSV(context.Background(), strings.NewReader("a,b,c,d,e,f,g,h\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected csv header")
}

func TestImportCSVMalformedRow(t *testing.T) {
	tr := NewTransfer(newTestPipeline(t, nil))

	payload := "session_id,seq_index,timestamp,open,high,low,close,volume\n" +
		"s1,notanumber,2024-03-01T09:00:00Z,100,105,99,103,5000\n"
	report, err := tr.ImportCSV(context.Background(), strings.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Rejected)
	require.Len(t, report.Results, 1)
	require.Len(t, report.Results[0].Outcome.Errors, 1)
	assert.Equal(t, "ERR_MALFORMED_ROW", report.Results[0].Outcome.Errors[0].Code)
}

func TestImportJSON(t *testing.T) {
	tr := NewTransfer(newTestPipeline(t, nil))

	payload := `[
		{"session_id": "s1", "seq_index": 0, "input": {"open": "100", "high": "105", "low": "99", "close": "103", "volume": "5000"}},
		{"session_id": "s1", "seq_index": 1, "input": {"open": "103", "high": "110", "low": "101", "close": "109", "volume": "7000"}}
	]`
	report, err := tr.ImportJSON(context.Background(), strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Committed)
	assert.Zero(t, report.Rejected)
}

func TestExportCSVRoundTrip(t *testing.T) {
	p := newTestPipeline(t, nil)
	tr := NewTransfer(p)
	ctx := context.Background()

	payload := "session_id,seq_index,timestamp,open,high,low,close,volume\n" +
		"s1,0,2024-03-01T09:00:00Z,100,105,99,103,5000\n" +
		"s1,1,2024-03-01T09:01:00Z,103,108,102,107,6200\n"
	_, err := tr.ImportCSV(ctx, strings.NewReader(payload))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tr.ExportCSV(&buf, "s1"))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header plus the two committed candles
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"s1", "0", "2024-03-01T09:00:00Z", "100", "105", "99", "103", "5000", "6"}, rows[1])
	assert.Equal(t, []string{"s1", "1", "2024-03-01T09:01:00Z", "103", "108", "102", "107", "6200", "6"}, rows[2])
}

func TestImportCSVWithSpreadColumn(t *testing.T) {
	tr := NewTransfer(newTestPipeline(t, nil))

	// Spread is derived; an imported value is ignored and recomputed.
	payload := "session_id,seq_index,timestamp,open,high,low,close,volume,spread\n" +
		"s1,0,2024-03-01T09:00:00Z,100,105,99,103,5000,42\n"
	report, err := tr.ImportCSV(context.Background(), strings.NewReader(payload))
	require.NoError(t, err)

	require.Equal(t, 1, report.Committed)
	assert.Equal(t, "6", report.Results[0].Record.Spread.String())
}

func TestExportJSON(t *testing.T) {
	p := newTestPipeline(t, nil)
	tr := NewTransfer(p)

	_, err := p.Submit(context.Background(), SubmitParams{SessionID: "s1", Input: validInput()})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tr.ExportJSON(&buf, "s1"))

	var recs []*models.CandleRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "s1", recs[0].SessionID)
	assert.Equal(t, "105", recs[0].High.String())
}

func TestExportJSONEmptySession(t *testing.T) {
	tr := NewTransfer(newTestPipeline(t, nil))

	var buf bytes.Buffer
	require.NoError(t, tr.ExportJSON(&buf, "nothing"))
	assert.JSONEq(t, "null", buf.String())
}
