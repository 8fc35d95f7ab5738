// Package review replays human corrections over a merged take-off. Each
// correction addresses one field by path, sets it, and tags the owning
// entity manual so the value survives later re-validation and pricing.
package review

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/logger"
)

// Apply replays the corrections over the project in order. Replay is
// idempotent: applying the same log twice leaves the project unchanged
// after the first pass. Corrections that address nothing or carry an
// unparseable value are skipped and reported as warnings.
func Apply(project *common.Project, corrections []common.Correction) []string {
	var warnings []string

	applied := 0
	for _, c := range corrections {
		if err := applyOne(project, c); err != nil {
			warnings = append(warnings, fmt.Sprintf("correction %s: %v", c.FieldPath, err))
			continue
		}
		applied++
	}

	if len(corrections) > 0 {
		logger.Info("[Review] Corrections replayed",
			"applied", applied, "skipped", len(corrections)-applied)
	}
	return warnings
}

func applyOne(project *common.Project, c common.Correction) error {
	segs := strings.Split(c.FieldPath, "/")
	if len(segs) < 4 || segs[0] != "units" {
		return fmt.Errorf("unsupported path")
	}

	unit := findUnit(project, segs[1])
	if unit == nil {
		return fmt.Errorf("unit %q not found", segs[1])
	}

	switch segs[2] {
	case "boards":
		return applyToBoard(unit, segs[3:], c.Corrected)
	case "rooms":
		return applyToRoom(unit, segs[3:], c.Corrected)
	case "equipment":
		return applyToEquipment(unit, segs[3:], c.Corrected)
	default:
		return fmt.Errorf("unsupported collection %q", segs[2])
	}
}

func findUnit(project *common.Project, name string) *common.UnitTakeoff {
	norm := common.NormalizeName(name)
	for i := range project.Units {
		if common.NormalizeName(project.Units[i].Unit) == norm {
			return &project.Units[i]
		}
	}
	return nil
}

func applyToBoard(unit *common.UnitTakeoff, segs []string, value string) error {
	board := findBoard(unit, segs[0])
	if board == nil {
		return fmt.Errorf("board %q not found", segs[0])
	}

	if len(segs) >= 4 && segs[1] == "circuits" {
		return applyToCircuit(board, segs[2], segs[3], value)
	}
	if len(segs) != 2 {
		return fmt.Errorf("unsupported board path")
	}

	// mutate a copy so a failed parse leaves the board untouched
	b := *board
	var err error
	switch segs[1] {
	case "supply_from":
		b.SupplyFrom = value
	case "supply_cable_size_mm2":
		b.SupplyCableSizeMM2, err = parseFloat(value)
	case "main_breaker_a":
		b.MainBreakerA, err = parseFloat(value)
	case "earth_leakage":
		b.EarthLeakage, err = parseBool(value)
	case "surge_protection":
		b.SurgeProtection, err = parseBool(value)
	case "is_main":
		b.IsMain, err = parseBool(value)
	case "phase":
		b.Phase = value
	case "spare_ways":
		b.SpareWays, err = parseInt(value)
	default:
		return fmt.Errorf("unknown board field %q", segs[1])
	}
	if err != nil {
		return err
	}

	b.Confidence = common.ConfidenceManual
	*board = b
	return nil
}

func applyToCircuit(board *common.Board, circuitID, field, value string) error {
	norm := common.NormalizeName(circuitID)
	var circuit *common.Circuit
	for i := range board.Circuits {
		if common.NormalizeName(board.Circuits[i].ID) == norm {
			circuit = &board.Circuits[i]
			break
		}
	}
	if circuit == nil {
		return fmt.Errorf("circuit %q not found", circuitID)
	}

	c := *circuit
	var err error
	switch field {
	case "type":
		c.Type = value
	case "description":
		c.Description = value
	case "wattage_w":
		c.WattageW, err = parseFloat(value)
	case "cable_size_mm2":
		c.CableSizeMM2, err = parseFloat(value)
	case "cable_cores":
		c.CableCores, err = parseInt(value)
	case "breaker_a":
		c.BreakerA, err = parseFloat(value)
	case "num_points":
		c.NumPoints, err = parseInt(value)
	case "is_spare":
		c.IsSpare, err = parseBool(value)
	case "has_isolator":
		c.HasIsolator, err = parseBool(value)
	case "feeds_board":
		c.FeedsBoard = value
	default:
		return fmt.Errorf("unknown circuit field %q", field)
	}
	if err != nil {
		return err
	}

	c.Confidence = common.ConfidenceManual
	*circuit = c
	return nil
}

func applyToRoom(unit *common.UnitTakeoff, segs []string, value string) error {
	norm := common.NormalizeName(segs[0])
	var room *common.Room
	for i := range unit.Rooms {
		if common.NormalizeName(unit.Rooms[i].Name) == norm {
			room = &unit.Rooms[i]
			break
		}
	}
	if room == nil {
		return fmt.Errorf("room %q not found", segs[0])
	}

	if len(segs) == 3 && segs[1] == "fixtures" {
		if err := setFixtureCount(&room.Fixtures, segs[2], value); err != nil {
			return err
		}
		room.Confidence = common.ConfidenceManual
		return nil
	}
	if len(segs) != 2 {
		return fmt.Errorf("unsupported room path")
	}

	r := *room
	var err error
	switch segs[1] {
	case "area_m2":
		r.AreaM2, err = parseFloat(value)
	case "is_wet_area":
		r.IsWetArea, err = parseBool(value)
	default:
		return fmt.Errorf("unknown room field %q", segs[1])
	}
	if err != nil {
		return err
	}

	r.Confidence = common.ConfidenceManual
	*room = r
	return nil
}

func setFixtureCount(f *common.FixtureCounts, field, value string) error {
	n, err := parseInt(value)
	if err != nil {
		return err
	}
	switch field {
	case "ceiling_lights":
		f.CeilingLights = n
	case "downlights":
		f.Downlights = n
	case "floodlights":
		f.Floodlights = n
	case "security_lights":
		f.SecurityLights = n
	case "bulkhead_lights":
		f.BulkheadLights = n
	case "tube_lights":
		f.TubeLights = n
	case "pendant_lights":
		f.PendantLights = n
	case "wall_lights":
		f.WallLights = n
	case "emergency_lights":
		f.EmergencyLights = n
	case "other_lights":
		f.OtherLights = n
	case "single_plugs":
		f.SinglePlugs = n
	case "double_plugs":
		f.DoublePlugs = n
	case "weatherproof_plugs":
		f.WeatherproofPlugs = n
	case "floor_plugs":
		f.FloorPlugs = n
	case "usb_plugs":
		f.USBPlugs = n
	case "tv_points":
		f.TVPoints = n
	case "data_points":
		f.DataPoints = n
	case "other_sockets":
		f.OtherSockets = n
	case "one_lever_switches":
		f.OneLeverSwitches = n
	case "two_lever_switches":
		f.TwoLeverSwitches = n
	case "dimmer_switches":
		f.DimmerSwitches = n
	case "motion_sensors":
		f.MotionSensors = n
	case "isolator_switches":
		f.IsolatorSwitches = n
	default:
		return fmt.Errorf("unknown fixture field %q", field)
	}
	return nil
}

func applyToEquipment(unit *common.UnitTakeoff, segs []string, value string) error {
	if len(segs) != 2 {
		return fmt.Errorf("unsupported equipment path")
	}
	norm := common.NormalizeName(segs[0])
	var eq *common.HeavyEquipment
	for i := range unit.Equipment {
		if common.NormalizeName(unit.Equipment[i].Name) == norm {
			eq = &unit.Equipment[i]
			break
		}
	}
	if eq == nil {
		return fmt.Errorf("equipment %q not found", segs[0])
	}

	e := *eq
	var err error
	switch segs[1] {
	case "type":
		e.Type = value
	case "power_kw":
		e.PowerKW, err = parseFloat(value)
	case "voltage":
		e.Voltage = value
	case "phase":
		e.Phase = value
	case "has_isolator":
		e.HasIsolator, err = parseBool(value)
	case "circuit_ref":
		e.CircuitRef = value
	default:
		return fmt.Errorf("unknown equipment field %q", segs[1])
	}
	if err != nil {
		return err
	}

	e.Confidence = common.ConfidenceManual
	*eq = e
	return nil
}

func findBoard(unit *common.UnitTakeoff, name string) *common.Board {
	norm := common.NormalizeName(name)
	for i := range unit.Boards {
		if common.NormalizeName(unit.Boards[i].Name) == norm {
			return &unit.Boards[i]
		}
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("not a boolean: %q", s)
	}
	return v, nil
}
