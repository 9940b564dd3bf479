// Package oracle models the external scoring and drafting capabilities the
// workflow consumes. Implementations call out to an inference service; the
// workflow only depends on the two interfaces so models can be swapped
// without touching orchestration logic.
package oracle

import "context"

// Scores is the classification output for a ticket.
type Scores struct {
	Queue           string  `json:"predicted_queue"`
	QueueConfidence float64 `json:"queue_confidence"`
	CriticalProb    float64 `json:"critical_prob"`
	Language        string  `json:"language,omitempty"`
}

// ScoringOracle classifies a ticket into a queue with a criticality estimate.
type ScoringOracle interface {
	Score(ctx context.Context, subject, body string) (*Scores, error)
}

// Snippet is one reference example fed to the drafting oracle.
type Snippet struct {
	Subject string `json:"subject"`
	Answer  string `json:"answer"`
	Queue   string `json:"queue,omitempty"`
}

// DraftRequest carries everything the drafting oracle needs.
type DraftRequest struct {
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Queue      string    `json:"queue"`
	IsCritical bool      `json:"is_critical"`
	Context    []Snippet `json:"context,omitempty"`
}

// DraftResult is a candidate reply produced by the drafting oracle.
type DraftResult struct {
	Language      string   `json:"language"`
	Subject       string   `json:"subject"`
	Body          string   `json:"body"`
	Confidence    float64  `json:"confidence"`
	SuggestedTags []string `json:"suggested_tags,omitempty"`
}

// DraftingOracle produces a candidate response for a triaged ticket.
type DraftingOracle interface {
	Draft(ctx context.Context, req DraftRequest) (*DraftResult, error)
}
