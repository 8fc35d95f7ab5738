// Package merge folds partial extraction results into a single take-off.
// Entities match by normalized name, tallies add, lists concatenate and
// booleans OR. Exclusive fields (cable sizes, breaker ratings, phases) keep
// the first value seen; a conflicting later value becomes a warning, never
// an average.
package merge

import (
	"fmt"
	"sort"

	"github.com/afriplan/takeoff/pkg/common"
)

// Partials merges the page-group results of one structural unit. The unit
// name of the first non-empty partial wins. Merging is independent of input
// order for all additive fields; exclusive-field conflicts are reported in
// the returned warnings.
func Partials(unit string, parts []common.UnitTakeoff) (common.UnitTakeoff, []string) {
	out := common.UnitTakeoff{Unit: unit}
	var warnings []string

	for _, p := range parts {
		for _, b := range p.Boards {
			warnings = append(warnings, mergeBoard(&out, b)...)
		}
		for _, r := range p.Rooms {
			mergeRoom(&out, r)
		}
		for _, e := range p.Equipment {
			mergeEquipment(&out, e)
		}
		for _, s := range p.SupplyPoints {
			mergeSupplyPoint(&out, s)
		}
		out.CableRuns = append(out.CableRuns, p.CableRuns...)
		out.Warnings = append(out.Warnings, p.Warnings...)
	}

	warnings = append(warnings, inferMissingCircuits(&out)...)
	out.Warnings = append(out.Warnings, warnings...)
	return out, warnings
}

// Project assembles the merged units into a project, ordered by unit name.
func Project(units []common.UnitTakeoff) common.Project {
	sorted := make([]common.UnitTakeoff, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Unit < sorted[j].Unit })

	proj := common.Project{Units: sorted}
	for _, u := range sorted {
		for _, w := range u.Warnings {
			proj.MergeWarnings = append(proj.MergeWarnings, fmt.Sprintf("%s: %s", u.Unit, w))
		}
	}
	return proj
}

func mergeBoard(out *common.UnitTakeoff, b common.Board) []string {
	var warnings []string

	for i := range out.Boards {
		existing := &out.Boards[i]
		if common.NormalizeName(existing.Name) != common.NormalizeName(b.Name) {
			continue
		}

		warnings = append(warnings, mergeExclusiveFloat(&existing.SupplyCableSizeMM2, b.SupplyCableSizeMM2,
			fmt.Sprintf("board %s supply cable size", b.Name))...)
		warnings = append(warnings, mergeExclusiveFloat(&existing.MainBreakerA, b.MainBreakerA,
			fmt.Sprintf("board %s main breaker", b.Name))...)
		warnings = append(warnings, mergeExclusiveString(&existing.Phase, b.Phase,
			fmt.Sprintf("board %s phase", b.Name))...)
		warnings = append(warnings, mergeExclusiveString(&existing.SupplyFrom, b.SupplyFrom,
			fmt.Sprintf("board %s supply source", b.Name))...)
		if existing.SpareWays == 0 {
			existing.SpareWays = b.SpareWays
		} else if b.SpareWays != 0 && b.SpareWays != existing.SpareWays {
			warnings = append(warnings, fmt.Sprintf("board %s spare ways differ (%d vs %d), kept %d",
				b.Name, existing.SpareWays, b.SpareWays, existing.SpareWays))
		}
		existing.EarthLeakage = existing.EarthLeakage || b.EarthLeakage
		existing.SurgeProtection = existing.SurgeProtection || b.SurgeProtection
		existing.IsMain = existing.IsMain || b.IsMain
		existing.Confidence = higherConfidence(existing.Confidence, b.Confidence)

		for _, c := range b.Circuits {
			warnings = append(warnings, mergeCircuit(existing, c)...)
		}
		return warnings
	}

	out.Boards = append(out.Boards, b)
	return warnings
}

func mergeCircuit(board *common.Board, c common.Circuit) []string {
	var warnings []string

	for i := range board.Circuits {
		existing := &board.Circuits[i]
		if common.NormalizeName(existing.ID) != common.NormalizeName(c.ID) {
			continue
		}

		existing.NumPoints += c.NumPoints
		existing.IsSpare = existing.IsSpare && c.IsSpare
		existing.HasIsolator = existing.HasIsolator || c.HasIsolator

		warnings = append(warnings, mergeExclusiveFloat(&existing.CableSizeMM2, c.CableSizeMM2,
			fmt.Sprintf("circuit %s cable size", c.ID))...)
		warnings = append(warnings, mergeExclusiveFloat(&existing.BreakerA, c.BreakerA,
			fmt.Sprintf("circuit %s breaker", c.ID))...)
		warnings = append(warnings, mergeExclusiveString(&existing.CableType, c.CableType,
			fmt.Sprintf("circuit %s cable type", c.ID))...)
		warnings = append(warnings, mergeExclusiveString(&existing.FeedsBoard, c.FeedsBoard,
			fmt.Sprintf("circuit %s fed board", c.ID))...)

		// A stated wattage always beats a formula result
		if existing.WattageW == 0 {
			existing.WattageW = c.WattageW
		}
		if existing.WattageFormula == "" {
			existing.WattageFormula = c.WattageFormula
		}
		if existing.Type == "" {
			existing.Type = c.Type
		}
		if existing.Description == "" {
			existing.Description = c.Description
		}
		if existing.CableCores == 0 {
			existing.CableCores = c.CableCores
		}
		existing.Confidence = higherConfidence(existing.Confidence, c.Confidence)
		return warnings
	}

	board.Circuits = append(board.Circuits, c)
	return warnings
}

func mergeRoom(out *common.UnitTakeoff, r common.Room) {
	for i := range out.Rooms {
		existing := &out.Rooms[i]
		if common.NormalizeName(existing.Name) != common.NormalizeName(r.Name) {
			continue
		}

		existing.Fixtures.Add(r.Fixtures)
		existing.IsWetArea = existing.IsWetArea || r.IsWetArea
		if existing.AreaM2 == 0 {
			existing.AreaM2 = r.AreaM2
		}
		for _, ref := range r.CircuitRefs {
			if !containsNormalized(existing.CircuitRefs, ref) {
				existing.CircuitRefs = append(existing.CircuitRefs, ref)
			}
		}
		existing.Confidence = higherConfidence(existing.Confidence, r.Confidence)
		return
	}
	out.Rooms = append(out.Rooms, r)
}

func mergeEquipment(out *common.UnitTakeoff, e common.HeavyEquipment) {
	for i := range out.Equipment {
		existing := &out.Equipment[i]
		if common.NormalizeName(existing.Name) != common.NormalizeName(e.Name) {
			continue
		}
		existing.HasIsolator = existing.HasIsolator || e.HasIsolator
		if existing.PowerKW == 0 {
			existing.PowerKW = e.PowerKW
		}
		if existing.CircuitRef == "" {
			existing.CircuitRef = e.CircuitRef
		}
		if existing.Voltage == "" {
			existing.Voltage = e.Voltage
		}
		if existing.Phase == "" {
			existing.Phase = e.Phase
		}
		existing.Confidence = higherConfidence(existing.Confidence, e.Confidence)
		return
	}
	out.Equipment = append(out.Equipment, e)
}

func mergeSupplyPoint(out *common.UnitTakeoff, s common.SupplyPoint) {
	for i := range out.SupplyPoints {
		existing := &out.SupplyPoints[i]
		if common.NormalizeName(existing.Type) != common.NormalizeName(s.Type) {
			continue
		}
		if existing.RatingKVA == 0 {
			existing.RatingKVA = s.RatingKVA
		}
		if existing.CableToFirstDB == "" {
			existing.CableToFirstDB = s.CableToFirstDB
		}
		if existing.FeedsBoard == "" {
			existing.FeedsBoard = s.FeedsBoard
		}
		existing.Confidence = higherConfidence(existing.Confidence, s.Confidence)
		return
	}
	out.SupplyPoints = append(out.SupplyPoints, s)
}

// inferMissingCircuits appends a circuit for every layout reference that no
// board carries. Layout demand is evidence the circuit exists even when the
// register missed it.
func inferMissingCircuits(out *common.UnitTakeoff) []string {
	known := map[string]bool{}
	for _, b := range out.Boards {
		for _, c := range b.Circuits {
			known[common.NormalizeName(c.ID)] = true
		}
	}

	var warnings []string
	for _, r := range out.Rooms {
		for _, ref := range r.CircuitRefs {
			norm := common.NormalizeName(ref)
			if norm == "" || known[norm] {
				continue
			}
			known[norm] = true

			circuitType := "power"
			if r.Fixtures.TotalLights() >= r.Fixtures.TotalSockets() {
				circuitType = "lighting"
			}
			target := mainBoard(out)
			target.Circuits = append(target.Circuits, common.Circuit{
				ID:         ref,
				Type:       circuitType,
				Confidence: common.ConfidenceInferred,
			})
			warnings = append(warnings, fmt.Sprintf(
				"circuit %s referenced by room %s but missing from register, added as inferred", ref, r.Name))
		}
	}
	return warnings
}

func mainBoard(out *common.UnitTakeoff) *common.Board {
	for i := range out.Boards {
		if out.Boards[i].IsMain {
			return &out.Boards[i]
		}
	}
	if len(out.Boards) == 0 {
		out.Boards = append(out.Boards, common.Board{
			Name:       "DB1",
			IsMain:     true,
			Confidence: common.ConfidenceInferred,
		})
	}
	return &out.Boards[0]
}

func mergeExclusiveFloat(dst *float64, val float64, field string) []string {
	if *dst == 0 {
		*dst = val
		return nil
	}
	if val != 0 && val != *dst {
		return []string{fmt.Sprintf("%s differs (%g vs %g), kept %g", field, *dst, val, *dst)}
	}
	return nil
}

func mergeExclusiveString(dst *string, val string, field string) []string {
	if *dst == "" {
		*dst = val
		return nil
	}
	if val != "" && common.NormalizeName(val) != common.NormalizeName(*dst) {
		return []string{fmt.Sprintf("%s differs (%q vs %q), kept %q", field, *dst, val, *dst)}
	}
	return nil
}

var confidenceRank = map[common.Confidence]int{
	common.ConfidenceEstimated: 0,
	common.ConfidenceInferred:  1,
	common.ConfidenceExtracted: 2,
	common.ConfidenceManual:    3,
}

func higherConfidence(a, b common.Confidence) common.Confidence {
	if confidenceRank[b] > confidenceRank[a] {
		return b
	}
	return a
}

func containsNormalized(list []string, v string) bool {
	norm := common.NormalizeName(v)
	for _, s := range list {
		if common.NormalizeName(s) == norm {
			return true
		}
	}
	return false
}
