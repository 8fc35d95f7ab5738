// Package validate grades a merged take-off against wiring-code rules.
// Findings are graded, never fatal: validation always returns a report, and
// critical failures only depress the compliance score.
package validate

import (
	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Engine applies the rule set with its configured thresholds.
//
// An Engine should be created using NewEngine.
type Engine struct {
	params Params
}

// NewEngine creates a validation engine with the given thresholds.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Validate runs every rule over the project and returns the graded report.
func (e *Engine) Validate(project common.Project) common.ValidationReport {
	var report common.ValidationReport

	for _, unit := range project.Units {
		report.Findings = append(report.Findings, e.boardRules(unit)...)
		report.Findings = append(report.Findings, e.circuitRules(unit)...)
		report.Findings = append(report.Findings, e.equipmentRules(unit)...)
		report.Findings = append(report.Findings, e.externalRules(unit)...)

		links, findings := e.crossReference(unit)
		report.CrossReferences = append(report.CrossReferences, links...)
		report.Findings = append(report.Findings, findings...)
	}

	report.Findings = append(report.Findings, e.crossUnitRules(project)...)

	report.ComplianceScore = complianceScore(report.Findings)
	logger.Info("[Validate] Report ready",
		"findings", len(report.Findings),
		"critical", report.CountBySeverity(common.SeverityCritical),
		"score", report.ComplianceScore)
	return report
}

// complianceScore is passed/total x 100, less 10 points per critical
// failure, floored at 0.
func complianceScore(findings []common.Finding) float64 {
	if len(findings) == 0 {
		return 100
	}

	passed, critical := 0, 0
	for _, f := range findings {
		if f.Passed {
			passed++
		} else if f.Severity == common.SeverityCritical {
			critical++
		}
	}

	score := float64(passed)/float64(len(findings))*100 - float64(critical)*10
	if score < 0 {
		return 0
	}
	return score
}

func newFinding(rule string, severity common.Severity, passed bool, detail string) common.Finding {
	id, err := gonanoid.New()
	if err != nil {
		id = rule
	}
	return common.Finding{
		ID:       id,
		Rule:     rule,
		Severity: severity,
		Passed:   passed,
		Detail:   detail,
	}
}
