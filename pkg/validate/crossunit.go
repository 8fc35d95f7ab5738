package validate

import (
	"fmt"

	"github.com/afriplan/takeoff/pkg/common"
)

// crossUnitRules checks consistency across structural units: duplicated
// board names, site supplies that feed nothing, and cross-unit feeds with
// no site cable run backing them.
func (e *Engine) crossUnitRules(project common.Project) []common.Finding {
	if len(project.Units) == 0 {
		return nil
	}

	var findings []common.Finding

	boardUnits := map[string][]string{}
	allBoards := map[string]bool{}
	for _, u := range project.Units {
		for _, b := range u.Boards {
			norm := common.NormalizeName(b.Name)
			boardUnits[norm] = append(boardUnits[norm], u.Unit)
			allBoards[norm] = true
		}
	}

	for norm, units := range boardUnits {
		if len(units) > 1 {
			f := newFinding(RuleDuplicateBoardName, common.SeverityMinor, false,
				fmt.Sprintf("board name %q appears in units %v", norm, units))
			findings = append(findings, f)
		}
	}

	for _, u := range project.Units {
		for _, s := range u.SupplyPoints {
			feeds := common.NormalizeName(s.FeedsBoard)
			passed := feeds != "" && allBoards[feeds]
			f := newFinding(RuleSupplyFeedsNothing, common.SeverityMajor, passed,
				fmt.Sprintf("supply %s feeds %q", s.Type, s.FeedsBoard))
			f.Unit = u.Unit
			findings = append(findings, f)
		}
	}

	// a board fed from another unit needs a site run connecting the two
	if len(project.Units) > 1 {
		runs := siteRunEndpoints(project)
		for _, u := range project.Units {
			for _, b := range u.Boards {
				feeder := common.NormalizeName(b.SupplyFrom)
				if feeder == "" {
					continue
				}
				feederUnit, ok := unitOfBoard(project, feeder)
				if !ok || feederUnit == u.Unit {
					continue
				}
				backed := runs[common.NormalizeName(b.Name)] || runs[feeder]
				f := newFinding(RuleUnitFeedWithoutRun, common.SeverityMinor, backed,
					fmt.Sprintf("board %s/%s fed from %s/%s, site cable run present",
						u.Unit, b.Name, feederUnit, b.SupplyFrom))
				f.Board, f.Unit = b.Name, u.Unit
				findings = append(findings, f)
			}
		}
	}

	return findings
}

func siteRunEndpoints(project common.Project) map[string]bool {
	endpoints := map[string]bool{}
	for _, u := range project.Units {
		for _, run := range u.CableRuns {
			endpoints[common.NormalizeName(run.FromPoint)] = true
			endpoints[common.NormalizeName(run.ToPoint)] = true
		}
	}
	return endpoints
}

func unitOfBoard(project common.Project, normName string) (string, bool) {
	for _, u := range project.Units {
		for _, b := range u.Boards {
			if common.NormalizeName(b.Name) == normName {
				return u.Unit, true
			}
		}
	}
	return "", false
}
