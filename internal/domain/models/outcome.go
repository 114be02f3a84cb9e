package models

import "github.com/shopspring/decimal"

// WarningSeverity grades non-blocking structural warnings.
type WarningSeverity string

const (
	WarnLow    WarningSeverity = "low"
	WarnMedium WarningSeverity = "medium"
	WarnHigh   WarningSeverity = "high"
)

// FieldError is a blocking, field-scoped validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldWarning is a non-blocking, field-scoped advisory.
type FieldWarning struct {
	Field    string          `json:"field"`
	Message  string          `json:"message"`
	Severity WarningSeverity `json:"severity"`
}

// ValidationOutcome is the result of one pipeline run. Ephemeral: it is
// surfaced to the caller and may be cached, never persisted.
type ValidationOutcome struct {
	Valid    bool           `json:"valid"`
	Errors   []FieldError   `json:"errors,omitempty"`
	Warnings []FieldWarning `json:"warnings,omitempty"`
}

// AddError appends a field error and marks the outcome invalid.
func (o *ValidationOutcome) AddError(field, code, message string) {
	o.Valid = false
	o.Errors = append(o.Errors, FieldError{Field: field, Code: code, Message: message})
}

// AddWarning appends a field warning without affecting validity.
func (o *ValidationOutcome) AddWarning(field, message string, sev WarningSeverity) {
	o.Warnings = append(o.Warnings, FieldWarning{Field: field, Message: message, Severity: sev})
}

// ViolationSeverity grades business-rule findings.
type ViolationSeverity string

const (
	ViolationInfo    ViolationSeverity = "info"
	ViolationWarning ViolationSeverity = "warning"
	ViolationError   ViolationSeverity = "error"
)

// BusinessViolation is a named contextual anomaly. Advisory only: it never
// blocks a commit, whatever its severity.
type BusinessViolation struct {
	Rule     string            `json:"rule"`
	Severity ViolationSeverity `json:"severity"`
	Message  string            `json:"message"`
	Hint     string            `json:"hint,omitempty"`
}

// Suggestion is one autofill candidate for a form field.
type Suggestion struct {
	Value      decimal.Decimal `json:"value"`
	Confidence int             `json:"confidence"`
	Rationale  string          `json:"rationale"`
}
