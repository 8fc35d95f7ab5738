package common

import "strings"

// Confidence tags where a value came from. Quantities that survive to the
// bill of quantities keep their tag so reviewers can tell measured values
// from guessed ones.
type Confidence string

const (
	ConfidenceExtracted Confidence = "extracted" // read directly off a page
	ConfidenceInferred  Confidence = "inferred"  // deduced from other pages
	ConfidenceEstimated Confidence = "estimated" // filled from defaults
	ConfidenceManual    Confidence = "manual"    // set by a human correction
)

// ParseConfidence maps a free-form tag to a Confidence. Anything
// unrecognized, including the empty string, parses as estimated.
func ParseConfidence(s string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceExtracted:
		return ConfidenceExtracted
	case ConfidenceInferred:
		return ConfidenceInferred
	case ConfidenceManual:
		return ConfidenceManual
	default:
		return ConfidenceEstimated
	}
}

// Circuit is one way on a distribution board.
type Circuit struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Description    string     `json:"description,omitempty"`
	WattageW       float64    `json:"wattage_w,omitempty"`
	WattageFormula string     `json:"wattage_formula,omitempty"`
	CableSizeMM2   float64    `json:"cable_size_mm2,omitempty"`
	CableCores     int        `json:"cable_cores,omitempty"`
	CableType      string     `json:"cable_type,omitempty"`
	BreakerA       float64    `json:"breaker_a,omitempty"`
	NumPoints      int        `json:"num_points,omitempty"`
	IsSpare        bool       `json:"is_spare,omitempty"`
	HasIsolator    bool       `json:"has_isolator,omitempty"`
	FeedsBoard     string     `json:"feeds_board,omitempty"`
	Confidence     Confidence `json:"confidence"`
	PageSource     string     `json:"page_source,omitempty"`
}

// Board is a distribution board with its circuit schedule. SupplyFrom names
// the feeding board or supply point and drives the supply hierarchy.
type Board struct {
	Name               string     `json:"name"`
	SupplyFrom         string     `json:"supply_from,omitempty"`
	SupplyCableSizeMM2 float64    `json:"supply_cable_size_mm2,omitempty"`
	MainBreakerA       float64    `json:"main_breaker_a,omitempty"`
	EarthLeakage       bool       `json:"earth_leakage"`
	SurgeProtection    bool       `json:"surge_protection"`
	IsMain             bool       `json:"is_main,omitempty"`
	Phase              string     `json:"phase,omitempty"`
	SpareWays          int        `json:"spare_ways,omitempty"`
	Circuits           []Circuit  `json:"circuits"`
	Confidence         Confidence `json:"confidence"`
}

// TotalWays is the number of occupied ways plus declared spares.
func (b *Board) TotalWays() int {
	return len(b.Circuits) + b.SpareWays
}

// SupplyPoint is the site's incoming supply (kiosk, transformer, meter).
type SupplyPoint struct {
	Type            string     `json:"type"`
	RatingKVA       float64    `json:"rating_kva,omitempty"`
	CableToFirstDB  string     `json:"cable_to_first_db,omitempty"`
	FeedsBoard      string     `json:"feeds_board,omitempty"`
	Confidence      Confidence `json:"confidence"`
}

// FixtureCounts tallies the fixtures counted off a layout page. All fields
// are additive under merge.
type FixtureCounts struct {
	CeilingLights   int `json:"ceiling_lights,omitempty"`
	Downlights      int `json:"downlights,omitempty"`
	Floodlights     int `json:"floodlights,omitempty"`
	SecurityLights  int `json:"security_lights,omitempty"`
	BulkheadLights  int `json:"bulkhead_lights,omitempty"`
	TubeLights      int `json:"tube_lights,omitempty"`
	PendantLights   int `json:"pendant_lights,omitempty"`
	WallLights      int `json:"wall_lights,omitempty"`
	EmergencyLights int `json:"emergency_lights,omitempty"`
	OtherLights     int `json:"other_lights,omitempty"`

	SinglePlugs       int `json:"single_plugs,omitempty"`
	DoublePlugs       int `json:"double_plugs,omitempty"`
	WeatherproofPlugs int `json:"weatherproof_plugs,omitempty"`
	FloorPlugs        int `json:"floor_plugs,omitempty"`
	USBPlugs          int `json:"usb_plugs,omitempty"`
	TVPoints          int `json:"tv_points,omitempty"`
	DataPoints        int `json:"data_points,omitempty"`
	OtherSockets      int `json:"other_sockets,omitempty"`

	OneLeverSwitches int `json:"one_lever_switches,omitempty"`
	TwoLeverSwitches int `json:"two_lever_switches,omitempty"`
	DimmerSwitches   int `json:"dimmer_switches,omitempty"`
	MotionSensors    int `json:"motion_sensors,omitempty"`
	IsolatorSwitches int `json:"isolator_switches,omitempty"`
}

// TotalLights sums all light fixture tallies.
func (f *FixtureCounts) TotalLights() int {
	return f.CeilingLights + f.Downlights + f.Floodlights + f.SecurityLights +
		f.BulkheadLights + f.TubeLights + f.PendantLights + f.WallLights +
		f.EmergencyLights + f.OtherLights
}

// TotalSockets sums all socket outlet tallies.
func (f *FixtureCounts) TotalSockets() int {
	return f.SinglePlugs + f.DoublePlugs + f.WeatherproofPlugs + f.FloorPlugs +
		f.USBPlugs + f.TVPoints + f.DataPoints + f.OtherSockets
}

// TotalSwitches sums all switch tallies.
func (f *FixtureCounts) TotalSwitches() int {
	return f.OneLeverSwitches + f.TwoLeverSwitches + f.DimmerSwitches +
		f.MotionSensors + f.IsolatorSwitches
}

// Add accumulates other into f field by field.
func (f *FixtureCounts) Add(other FixtureCounts) {
	f.CeilingLights += other.CeilingLights
	f.Downlights += other.Downlights
	f.Floodlights += other.Floodlights
	f.SecurityLights += other.SecurityLights
	f.BulkheadLights += other.BulkheadLights
	f.TubeLights += other.TubeLights
	f.PendantLights += other.PendantLights
	f.WallLights += other.WallLights
	f.EmergencyLights += other.EmergencyLights
	f.OtherLights += other.OtherLights

	f.SinglePlugs += other.SinglePlugs
	f.DoublePlugs += other.DoublePlugs
	f.WeatherproofPlugs += other.WeatherproofPlugs
	f.FloorPlugs += other.FloorPlugs
	f.USBPlugs += other.USBPlugs
	f.TVPoints += other.TVPoints
	f.DataPoints += other.DataPoints
	f.OtherSockets += other.OtherSockets

	f.OneLeverSwitches += other.OneLeverSwitches
	f.TwoLeverSwitches += other.TwoLeverSwitches
	f.DimmerSwitches += other.DimmerSwitches
	f.MotionSensors += other.MotionSensors
	f.IsolatorSwitches += other.IsolatorSwitches
}

// Room is a named area on a layout page with its fixture tallies and the
// circuits the page links it to.
type Room struct {
	Name        string        `json:"name"`
	AreaM2      float64       `json:"area_m2,omitempty"`
	Fixtures    FixtureCounts `json:"fixtures"`
	CircuitRefs []string      `json:"circuit_refs,omitempty"`
	IsWetArea   bool          `json:"is_wet_area,omitempty"`
	Confidence  Confidence    `json:"confidence"`
}

// HeavyEquipment is a fixed appliance or machine with its own supply
// requirement (stove, geyser, AC unit, pump, motor).
type HeavyEquipment struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	PowerKW     float64    `json:"power_kw,omitempty"`
	Voltage     string     `json:"voltage,omitempty"`
	Phase       string     `json:"phase,omitempty"`
	HasIsolator bool       `json:"has_isolator,omitempty"`
	CircuitRef  string     `json:"circuit_ref,omitempty"`
	Confidence  Confidence `json:"confidence"`
}

// CableRun is an external cable route between two site points.
type CableRun struct {
	FromPoint      string     `json:"from_point"`
	ToPoint        string     `json:"to_point"`
	CableSpec      string     `json:"cable_spec,omitempty"`
	LengthM        float64    `json:"length_m,omitempty"`
	IsUnderground  bool       `json:"is_underground,omitempty"`
	NeedsTrenching bool       `json:"needs_trenching,omitempty"`
	Confidence     Confidence `json:"confidence"`
}

// UnitTakeoff is everything extracted and merged for one structural unit.
type UnitTakeoff struct {
	Unit         string           `json:"unit"`
	Boards       []Board          `json:"boards"`
	Rooms        []Room           `json:"rooms"`
	Equipment    []HeavyEquipment `json:"equipment"`
	SupplyPoints []SupplyPoint    `json:"supply_points"`
	CableRuns    []CableRun       `json:"cable_runs"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// Project is the merged take-off across all structural units.
type Project struct {
	Units         []UnitTakeoff `json:"units"`
	MergeWarnings []string      `json:"merge_warnings,omitempty"`
}

// NormalizeName lowercases, trims and collapses internal whitespace so
// entity names from different pages can be matched.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}
