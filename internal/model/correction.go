package model

import "time"

// CorrectionKind is the type of a human edit.
type CorrectionKind string

const (
	CorrectionAdd     CorrectionKind = "add"
	CorrectionCorrect CorrectionKind = "correct"
	CorrectionRemove  CorrectionKind = "remove"
)

// CorrectionAction is a single human edit to an extraction result, produced
// during validation.
type CorrectionAction struct {
	Action   CorrectionKind `json:"action"`
	Field    string         `json:"field"`
	Value    any            `json:"value,omitempty"`     // add: value to insert; correct: new value
	OldValue any            `json:"old_value,omitempty"` // correct: value being replaced
	Reason   string         `json:"reason,omitempty"`
}

// ChangeType classifies a field-level diff between original and validated sheets.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// FieldDiff is one field-level difference between the original and validated
// sheets of a correction record.
type FieldDiff struct {
	Field      string     `json:"field"`
	OldValue   any        `json:"old_value"`
	NewValue   any        `json:"new_value"`
	ChangeType ChangeType `json:"change_type"`
}

// SheetSnapshot captures a sheet plus its confidence and missing fields at a
// point in time.
type SheetSnapshot struct {
	Sheet         map[string]any `json:"sheet"`
	Confidence    float64        `json:"confidence"`
	MissingFields []string       `json:"missing_fields"`
}

// CorrectionRecord is one persisted, append-only record of a human validation.
type CorrectionRecord struct {
	ID              string        `json:"id"`
	Timestamp       time.Time     `json:"timestamp"`
	DocumentSources []string      `json:"document_sources"`
	DocumentTypes   []string      `json:"document_types"`
	Original        SheetSnapshot `json:"original"`
	Validated       SheetSnapshot `json:"validated"`
	Diffs           []FieldDiff   `json:"corrections"`
}

// QACorrectionRecord is one persisted, append-only record of a corrected
// question answer.
type QACorrectionRecord struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	Question            string    `json:"question"`
	OriginalAnswer      string    `json:"original_answer"`
	OriginalConfidence  float64   `json:"original_confidence"`
	CorrectedAnswer     string    `json:"corrected_answer"`
	CorrectedConfidence float64   `json:"corrected_confidence"`
	Sources             []string  `json:"sources"`
}

// Suggestion is one field-level recall hint derived from a stored correction.
type Suggestion struct {
	Field          string    `json:"field"`
	CorrectedValue any       `json:"corrected_value"`
	Confidence     float64   `json:"confidence"`
	Timestamp      time.Time `json:"timestamp"`
}

// MemoryStats summarizes the correction store.
type MemoryStats struct {
	ExtractionCorrections int            `json:"total_extraction_corrections"`
	FieldCorrections      int            `json:"total_field_corrections"`
	QACorrections         int            `json:"total_qa_corrections"`
	MostCorrectedFields   map[string]int `json:"most_corrected_fields"`
}
