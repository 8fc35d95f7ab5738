package common

// Severity grades a validation finding. Findings never abort the pipeline;
// critical failures only depress the compliance score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityPass     Severity = "pass"
)

// Finding is the outcome of one validation rule applied to one subject.
type Finding struct {
	ID             string   `json:"id"`
	Rule           string   `json:"rule"`
	Severity       Severity `json:"severity"`
	Passed         bool     `json:"passed"`
	AutoCorrected  bool     `json:"auto_corrected,omitempty"`
	CorrectedValue string   `json:"corrected_value,omitempty"`
	Detail         string   `json:"detail"`
	Circuit        string   `json:"circuit,omitempty"`
	Board          string   `json:"board,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	StandardRef    string   `json:"standard_ref,omitempty"`
}

// MatchStatus grades how well a register circuit lines up with the layout
// demand that references it.
type MatchStatus string

const (
	MatchMatched   MatchStatus = "matched"
	MatchPartial   MatchStatus = "partial"
	MatchConflict  MatchStatus = "conflict"
	MatchUnmatched MatchStatus = "unmatched"
)

// CircuitRoomLink records one circuit-to-room cross reference.
type CircuitRoomLink struct {
	CircuitID    string      `json:"circuit_id"`
	RoomName     string      `json:"room_name"`
	Status       MatchStatus `json:"status"`
	LayoutPoints int         `json:"layout_points"`
	CircuitWays  int         `json:"circuit_ways"`
	Detail       string      `json:"detail,omitempty"`
}

// ValidationReport aggregates all findings with the derived compliance
// score in [0, 100].
type ValidationReport struct {
	Findings        []Finding         `json:"findings"`
	CrossReferences []CircuitRoomLink `json:"cross_references,omitempty"`
	ComplianceScore float64           `json:"compliance_score"`
}

// CountBySeverity returns how many non-passing findings carry the given
// severity.
func (r *ValidationReport) CountBySeverity(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if !f.Passed && f.Severity == s {
			n++
		}
	}
	return n
}
