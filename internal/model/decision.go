package model

// ValidationRule identifies which policy rule produced a decision. Rules are
// evaluated in order; the first matching rule wins.
type ValidationRule string

const (
	RuleLowConfidence   ValidationRule = "low_confidence"   // score below the hard floor
	RuleTooManyMissing  ValidationRule = "too_many_missing" // missing-field count over threshold
	RuleCriticalMissing ValidationRule = "critical_missing" // a critical field is missing
	RuleAutoValidated   ValidationRule = "auto_validated"   // score at or above the auto-validate ceiling
	RuleConfidenceBand  ValidationRule = "confidence_band"  // score between the two thresholds
	RuleDefault         ValidationRule = "default"          // none of the above matched
)

// ValidationDecision is the outcome of the validation policy, with the
// triggering rule retained for explainability.
type ValidationDecision struct {
	NeedsValidation bool           `json:"needs_validation"`
	Rule            ValidationRule `json:"rule"`
}

// Answer is the output of the question-answering pipeline.
type Answer struct {
	Question        string   `json:"question"`
	Text            string   `json:"answer"`
	Confidence      float64  `json:"confidence"`
	Sources         []string `json:"sources"`
	ContextChunks   int      `json:"context_chunks,omitempty"`
	NeedsValidation bool     `json:"needs_validation"`
	FromMemory      bool     `json:"from_memory,omitempty"`
}
