package model

import "time"

// FieldType is the declared type of a schema field.
type FieldType string

const (
	FieldTypeInteger FieldType = "integer"
	FieldTypeDecimal FieldType = "decimal"
	FieldTypeString  FieldType = "string"
)

// Field defines one extractable datum: identifier, declared type, and the
// alias vocabulary used to build retrieval queries.
type Field struct {
	ID      string    `json:"id" yaml:"id" mapstructure:"id"`
	Type    FieldType `json:"type" yaml:"type" mapstructure:"type"`
	Aliases []string  `json:"aliases" yaml:"aliases" mapstructure:"aliases"`
}

// Passage is one retrieved chunk of indexed document text.
type Passage struct {
	Text     string  `json:"text"`
	SourceID string  `json:"source_id"`
	DocType  string  `json:"doc_type"`
	Score    float64 `json:"score"`
}

// FieldOutcome is the result of extracting a single field. Value is nil when
// the field could not be found; Source holds the supporting text snippet.
type FieldOutcome struct {
	FieldID    string  `json:"field_id"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// ExtractionResult is the output of one extraction run. Results are immutable:
// corrections produce a new result rather than mutating in place.
type ExtractionResult struct {
	ID                    string             `json:"id"`
	Sheet                 map[string]any     `json:"sheet"`
	ConfidenceScore       float64            `json:"confidence_score"`
	MissingFields         []string           `json:"missing_fields"`
	AdditionalInformation []AnomalyNote      `json:"additional_information"`
	DocumentSources       []string           `json:"document_sources,omitempty"`
	DocumentTypes         []string           `json:"document_types,omitempty"`
	CorrectionsRecalled   int                `json:"corrections_recalled,omitempty"`
	ValidatedByHuman      bool               `json:"validated_by_human,omitempty"`
	OriginalConfidence    *float64           `json:"original_confidence,omitempty"`
	Corrections           []CorrectionAction `json:"corrections,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
}

// Clone returns a deep copy of the result. CorrectionApplier works on copies
// so the pre-correction result is never mutated.
func (r *ExtractionResult) Clone() *ExtractionResult {
	out := *r

	out.Sheet = make(map[string]any, len(r.Sheet))
	for k, v := range r.Sheet {
		out.Sheet[k] = v
	}

	out.MissingFields = append([]string(nil), r.MissingFields...)
	out.AdditionalInformation = append([]AnomalyNote(nil), r.AdditionalInformation...)
	out.DocumentSources = append([]string(nil), r.DocumentSources...)
	out.DocumentTypes = append([]string(nil), r.DocumentTypes...)
	out.Corrections = append([]CorrectionAction(nil), r.Corrections...)

	if r.OriginalConfidence != nil {
		oc := *r.OriginalConfidence
		out.OriginalConfidence = &oc
	}

	return &out
}

// AnomalyKind classifies an advisory annotation.
type AnomalyKind string

const (
	AnomalyMediumConfidence        AnomalyKind = "medium_confidence"
	AnomalyCalculationVerification AnomalyKind = "calculation_verification"
	AnomalyDataValidation          AnomalyKind = "data_validation"
	AnomalyNegativeValue           AnomalyKind = "negative_value"
)

// AnomalyNote is an advisory annotation attached to an extraction result.
// Notes never change the sheet or the confidence score.
type AnomalyNote struct {
	Field           string      `json:"field"`
	Kind            AnomalyKind `json:"type"`
	Value           any         `json:"value"`
	CalculatedValue *float64    `json:"calculated_value,omitempty"`
	Difference      *float64    `json:"difference,omitempty"`
	Confidence      *float64    `json:"confidence,omitempty"`
	Reason          string      `json:"reason"`
	Suggestion      string      `json:"suggestion"`
}
