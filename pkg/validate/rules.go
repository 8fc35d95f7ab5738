package validate

import (
	"fmt"
	"strings"

	"github.com/afriplan/takeoff/pkg/common"
)

// Rule names double as the stable identifiers findings are reported under.
const (
	RuleELCBRequired        = "ELCB_REQUIRED"
	RuleSurgeProtection     = "SURGE_PROTECTION"
	RuleMaxLightsPerCircuit = "MAX_LIGHTS_PER_CIRCUIT"
	RuleMaxSocketsPerCircuit = "MAX_SOCKETS_PER_CIRCUIT"
	RuleMinSpareWays        = "MIN_SPARE_WAYS"
	RuleDedicatedStove      = "DEDICATED_STOVE_CIRCUIT"
	RuleDedicatedGeyser     = "DEDICATED_GEYSER_CIRCUIT"
	RuleCableOvercurrent    = "CABLE_OVERCURRENT_PROTECTION"
	RuleCableBreakerMatch   = "CABLE_BREAKER_MISMATCH"
	RuleMinCableLighting    = "MIN_CABLE_SIZE_LIGHTING"
	RuleMinCablePower       = "MIN_CABLE_SIZE_POWER"
	RuleWetAreaProtection   = "WET_AREA_PROTECTION"
	RuleACIsolator          = "AC_ISOLATOR"
	RuleExternalCableRating = "EXTERNAL_CABLE_RATING"
	RuleVoltageDrop         = "VOLTAGE_DROP"
	RuleCrossReference      = "CIRCUIT_ROOM_CROSSREF"
	RuleDuplicateBoardName  = "DUPLICATE_BOARD_NAME"
	RuleSupplyFeedsNothing  = "SUPPLY_FEEDS_NOTHING"
	RuleUnitFeedWithoutRun  = "UNIT_FEED_WITHOUT_SITE_RUN"
)

const sansRef = "SANS 10142-1"

func (e *Engine) boardRules(unit common.UnitTakeoff) []common.Finding {
	var findings []common.Finding

	for _, b := range unit.Boards {
		if hasFinalCircuits(b) {
			f := newFinding(RuleELCBRequired, common.SeverityCritical, b.EarthLeakage,
				fmt.Sprintf("board %s earth leakage protection (%gA/%gmA)",
					b.Name, e.params.ELCBRatingA, e.params.ELCBSensitivityMA))
			if !b.EarthLeakage {
				f.AutoCorrected = true
				f.CorrectedValue = fmt.Sprintf("add %gA/%gmA earth leakage unit",
					e.params.ELCBRatingA, e.params.ELCBSensitivityMA)
			}
			f.Board, f.Unit, f.StandardRef = b.Name, unit.Unit, sansRef
			findings = append(findings, f)
		}

		if b.IsMain {
			f := newFinding(RuleSurgeProtection, common.SeverityMinor, b.SurgeProtection,
				fmt.Sprintf("main board %s surge protection device", b.Name))
			if !b.SurgeProtection {
				f.AutoCorrected = true
				f.CorrectedValue = "add Type 2 surge protection device"
			}
			f.Board, f.Unit, f.StandardRef = b.Name, unit.Unit, sansRef
			findings = append(findings, f)
		}

		if total := b.TotalWays(); total > 0 {
			sparePct := float64(b.SpareWays) / float64(total) * 100
			f := newFinding(RuleMinSpareWays, common.SeverityMinor, sparePct >= e.params.MinSpareWaysPct,
				fmt.Sprintf("board %s spare ways %.0f%% (minimum %.0f%%)",
					b.Name, sparePct, e.params.MinSpareWaysPct))
			f.Board, f.Unit = b.Name, unit.Unit
			findings = append(findings, f)
		}
	}

	return findings
}

func (e *Engine) circuitRules(unit common.UnitTakeoff) []common.Finding {
	var findings []common.Finding

	for _, b := range unit.Boards {
		for _, c := range b.Circuits {
			if c.IsSpare {
				continue
			}
			findings = append(findings, e.pointCountRules(unit.Unit, b, c)...)
			findings = append(findings, e.cableRules(unit.Unit, b, c)...)
		}
		findings = append(findings, e.voltageDropRule(unit.Unit, b)...)
	}

	return findings
}

func (e *Engine) pointCountRules(unit string, b common.Board, c common.Circuit) []common.Finding {
	var findings []common.Finding

	isLighting := circuitTypeIs(c, "lighting")
	isPower := circuitTypeIs(c, "power", "plug", "socket")

	if isLighting && c.NumPoints > 0 {
		passed := c.NumPoints <= e.params.MaxLightsPerCircuit
		f := newFinding(RuleMaxLightsPerCircuit, common.SeverityCritical, passed,
			fmt.Sprintf("circuit %s carries %d lights (maximum %d)",
				c.ID, c.NumPoints, e.params.MaxLightsPerCircuit))
		if !passed {
			// the overload is fixable on paper by splitting the way
			splits := (c.NumPoints + e.params.MaxLightsPerCircuit - 1) / e.params.MaxLightsPerCircuit
			f.AutoCorrected = true
			f.CorrectedValue = fmt.Sprintf("split into %d circuits of at most %d points",
				splits, e.params.MaxLightsPerCircuit)
		}
		f.Circuit, f.Board, f.Unit, f.StandardRef = c.ID, b.Name, unit, sansRef
		findings = append(findings, f)
	}

	if isPower && c.NumPoints > 0 {
		passed := c.NumPoints <= e.params.MaxSocketsPerCircuit
		f := newFinding(RuleMaxSocketsPerCircuit, common.SeverityCritical, passed,
			fmt.Sprintf("circuit %s carries %d sockets (maximum %d)",
				c.ID, c.NumPoints, e.params.MaxSocketsPerCircuit))
		if !passed {
			splits := (c.NumPoints + e.params.MaxSocketsPerCircuit - 1) / e.params.MaxSocketsPerCircuit
			f.AutoCorrected = true
			f.CorrectedValue = fmt.Sprintf("split into %d circuits of at most %d points",
				splits, e.params.MaxSocketsPerCircuit)
		}
		f.Circuit, f.Board, f.Unit, f.StandardRef = c.ID, b.Name, unit, sansRef
		findings = append(findings, f)
	}

	return findings
}

func (e *Engine) cableRules(unit string, b common.Board, c common.Circuit) []common.Finding {
	var findings []common.Finding

	if c.CableSizeMM2 > 0 && c.BreakerA > 0 {
		if ampacity, ok := e.params.CableAmpacity[c.CableSizeMM2]; ok {
			f := newFinding(RuleCableOvercurrent, common.SeverityCritical, c.BreakerA <= ampacity,
				fmt.Sprintf("circuit %s: %gA breaker on %gmm2 cable rated %gA",
					c.ID, c.BreakerA, c.CableSizeMM2, ampacity))
			f.Circuit, f.Board, f.Unit, f.StandardRef = c.ID, b.Name, unit, sansRef
			findings = append(findings, f)
		}
		if maxBreaker, ok := e.params.CableMaxBreaker[c.CableSizeMM2]; ok {
			f := newFinding(RuleCableBreakerMatch, common.SeverityMajor, c.BreakerA <= maxBreaker,
				fmt.Sprintf("circuit %s: %gA breaker exceeds %gA maximum for %gmm2",
					c.ID, c.BreakerA, maxBreaker, c.CableSizeMM2))
			f.Circuit, f.Board, f.Unit, f.StandardRef = c.ID, b.Name, unit, sansRef
			findings = append(findings, f)
		}
	}

	if c.CableSizeMM2 > 0 {
		if circuitTypeIs(c, "lighting") {
			f := newFinding(RuleMinCableLighting, common.SeverityMajor,
				c.CableSizeMM2 >= e.params.MinCableLightingMM2,
				fmt.Sprintf("circuit %s: %gmm2 lighting cable (minimum %gmm2)",
					c.ID, c.CableSizeMM2, e.params.MinCableLightingMM2))
			f.Circuit, f.Board, f.Unit, f.StandardRef = c.ID, b.Name, unit, sansRef
			findings = append(findings, f)
		}
		if circuitTypeIs(c, "power", "plug", "socket", "stove", "geyser") {
			f := newFinding(RuleMinCablePower, common.SeverityMajor,
				c.CableSizeMM2 >= e.params.MinCablePowerMM2,
				fmt.Sprintf("circuit %s: %gmm2 power cable (minimum %gmm2)",
					c.ID, c.CableSizeMM2, e.params.MinCablePowerMM2))
			f.Circuit, f.Board, f.Unit, f.StandardRef = c.ID, b.Name, unit, sansRef
			findings = append(findings, f)
		}
	}

	return findings
}

// voltageDropRule checks the board's feed at full main-breaker load over
// the default feed length when no measured run exists.
func (e *Engine) voltageDropRule(unit string, b common.Board) []common.Finding {
	if b.SupplyCableSizeMM2 <= 0 || b.MainBreakerA <= 0 {
		return nil
	}
	mvPerAM, ok := e.params.CableMVPerAM[b.SupplyCableSizeMM2]
	if !ok {
		return nil
	}

	const assumedFeedLengthM = 15
	dropV := mvPerAM * b.MainBreakerA * assumedFeedLengthM / 1000
	dropPct := dropV / e.params.SupplyVoltage * 100

	f := newFinding(RuleVoltageDrop, common.SeverityMinor, dropPct <= e.params.MaxVoltageDropPct,
		fmt.Sprintf("board %s feed drops %.1f%% at %gA over %dm (maximum %.0f%%)",
			b.Name, dropPct, b.MainBreakerA, assumedFeedLengthM, e.params.MaxVoltageDropPct))
	f.Board, f.Unit, f.StandardRef = b.Name, unit, sansRef
	return []common.Finding{f}
}

func (e *Engine) equipmentRules(unit common.UnitTakeoff) []common.Finding {
	var findings []common.Finding

	hasStove, hasGeyser := false, false
	for _, eq := range unit.Equipment {
		switch strings.ToLower(eq.Type) {
		case "stove":
			hasStove = true
		case "geyser":
			hasGeyser = true
		case "ac":
			f := newFinding(RuleACIsolator, common.SeverityMajor, eq.HasIsolator,
				fmt.Sprintf("AC unit %s isolator", eq.Name))
			f.Unit, f.StandardRef = unit.Unit, sansRef
			findings = append(findings, f)
		}
	}

	if hasStove {
		f := newFinding(RuleDedicatedStove, common.SeverityMajor,
			hasCircuitOfType(unit, "stove"),
			"stove present, dedicated stove circuit")
		f.Unit, f.StandardRef = unit.Unit, sansRef
		findings = append(findings, f)
	}
	if hasGeyser {
		f := newFinding(RuleDedicatedGeyser, common.SeverityMajor,
			hasCircuitOfType(unit, "geyser"),
			"geyser present, dedicated geyser circuit")
		f.Unit, f.StandardRef = unit.Unit, sansRef
		findings = append(findings, f)
	}

	// wet-area rooms must sit on earth-leakage protected boards
	for _, r := range unit.Rooms {
		if !r.IsWetArea || len(r.CircuitRefs) == 0 {
			continue
		}
		protected := true
		for _, ref := range r.CircuitRefs {
			if board := boardOfCircuit(unit, ref); board != nil && !board.EarthLeakage {
				protected = false
			}
		}
		f := newFinding(RuleWetAreaProtection, common.SeverityCritical, protected,
			fmt.Sprintf("wet area %s on earth-leakage protected supply", r.Name))
		f.Unit, f.StandardRef = unit.Unit, sansRef
		findings = append(findings, f)
	}

	return findings
}

func (e *Engine) externalRules(unit common.UnitTakeoff) []common.Finding {
	var findings []common.Finding

	for _, run := range unit.CableRuns {
		if !run.IsUnderground {
			continue
		}
		spec := strings.ToLower(run.CableSpec)
		armoured := strings.Contains(spec, "swa") || strings.Contains(spec, "sleeve") ||
			strings.Contains(spec, "conduit")
		f := newFinding(RuleExternalCableRating, common.SeverityMajor, armoured,
			fmt.Sprintf("underground run %s to %s uses %q", run.FromPoint, run.ToPoint, run.CableSpec))
		f.Unit, f.StandardRef = unit.Unit, sansRef
		findings = append(findings, f)
	}

	return findings
}

func hasFinalCircuits(b common.Board) bool {
	for _, c := range b.Circuits {
		if !c.IsSpare && !circuitTypeIs(c, "sub_board_feed") {
			return true
		}
	}
	return false
}

func hasCircuitOfType(unit common.UnitTakeoff, t string) bool {
	for _, b := range unit.Boards {
		for _, c := range b.Circuits {
			if circuitTypeIs(c, t) {
				return true
			}
		}
	}
	return false
}

func boardOfCircuit(unit common.UnitTakeoff, circuitID string) *common.Board {
	norm := common.NormalizeName(circuitID)
	for i := range unit.Boards {
		for _, c := range unit.Boards[i].Circuits {
			if common.NormalizeName(c.ID) == norm {
				return &unit.Boards[i]
			}
		}
	}
	return nil
}

func circuitTypeIs(c common.Circuit, types ...string) bool {
	ct := strings.ToLower(c.Type)
	for _, t := range types {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}
