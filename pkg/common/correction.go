package common

import "time"

// UnitState tracks a structural unit through extraction.
type UnitState string

const (
	UnitPending   UnitState = "pending"
	UnitExtracted UnitState = "extracted"
	UnitEscalated UnitState = "escalated"
	UnitFailed    UnitState = "failed"
)

// UnitSummary is the per-unit extraction outcome carried into the report.
type UnitSummary struct {
	Unit     string    `json:"unit"`
	State    UnitState `json:"state"`
	Score    float64   `json:"score"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Correction is one human edit to an extracted value, persisted as a
// replayable log entry. FieldPath addresses the target value, e.g.
// "units/block a/boards/db1/circuits/C3/breaker_a".
type Correction struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	FieldPath string    `json:"field_path"`
	Original  string    `json:"original"`
	Corrected string    `json:"corrected"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
