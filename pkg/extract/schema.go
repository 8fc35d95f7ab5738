package extract

import (
	"github.com/afriplan/takeoff/pkg/common"
)

// Response shapes for the schema-constrained extraction calls. The
// jsonschema_description tags become field descriptions in the generated
// schema, which is the main steering the model gets besides the prompt.

type circuitExtract struct {
	ID             string  `json:"id" jsonschema_description:"Circuit or way identifier as written on the drawing, e.g. C1, L2, P3"`
	Type           string  `json:"type" jsonschema_description:"Circuit type: lighting, power, stove, geyser, ac, pump, sub_board_feed or other"`
	Description    string  `json:"description" jsonschema_description:"Circuit description as written on the register"`
	WattageW       float64 `json:"wattage_w" jsonschema_description:"Connected load in watts if stated, 0 if not"`
	WattageFormula string  `json:"wattage_formula" jsonschema_description:"Load formula as written, e.g. 10x60W, empty if none"`
	CableSizeMM2   float64 `json:"cable_size_mm2" jsonschema_description:"Conductor size in mm2, 0 if not stated"`
	CableCores     int     `json:"cable_cores" jsonschema_description:"Number of cores, 0 if not stated"`
	CableType      string  `json:"cable_type" jsonschema_description:"Cable type such as surfix, swa, house wire, empty if not stated"`
	BreakerA       float64 `json:"breaker_a" jsonschema_description:"Breaker rating in amps, 0 if not stated"`
	NumPoints      int     `json:"num_points" jsonschema_description:"Number of points served, 0 if not stated"`
	IsSpare        bool    `json:"is_spare" jsonschema_description:"True when the way is marked spare"`
	HasIsolator    bool    `json:"has_isolator" jsonschema_description:"True when an isolator is shown for this circuit"`
	FeedsBoard     string  `json:"feeds_board" jsonschema_description:"Name of the sub-board this circuit feeds, empty if none"`
	Confidence     string  `json:"confidence" jsonschema_description:"extracted when read off the page, inferred when deduced, estimated when guessed"`
}

type boardExtract struct {
	Name               string           `json:"name" jsonschema_description:"Board designation, e.g. DB1, DB-A, MDB"`
	SupplyFrom         string           `json:"supply_from" jsonschema_description:"Feeding board or supply point name, empty if not shown"`
	SupplyCableSizeMM2 float64          `json:"supply_cable_size_mm2" jsonschema_description:"Feed cable size in mm2, 0 if not stated"`
	MainBreakerA       float64          `json:"main_breaker_a" jsonschema_description:"Main breaker rating in amps, 0 if not stated"`
	EarthLeakage       bool             `json:"earth_leakage" jsonschema_description:"True when an earth leakage unit is shown"`
	SurgeProtection    bool             `json:"surge_protection" jsonschema_description:"True when a surge protection device is shown"`
	IsMain             bool             `json:"is_main" jsonschema_description:"True when this is the main board of the installation"`
	Phase              string           `json:"phase" jsonschema_description:"single or three, empty if not stated"`
	SpareWays          int              `json:"spare_ways" jsonschema_description:"Number of ways marked spare"`
	Circuits           []circuitExtract `json:"circuits" jsonschema_description:"All circuits on this board"`
	Confidence         string           `json:"confidence" jsonschema_description:"extracted, inferred or estimated"`
}

type supplyPointExtract struct {
	Type           string  `json:"type" jsonschema_description:"Supply type: eskom_kiosk, transformer, meter, generator or other"`
	RatingKVA      float64 `json:"rating_kva" jsonschema_description:"Rating in kVA, 0 if not stated"`
	CableToFirstDB string  `json:"cable_to_first_db" jsonschema_description:"Cable spec from supply to first board, empty if not shown"`
	FeedsBoard     string  `json:"feeds_board" jsonschema_description:"Board the supply feeds"`
	Confidence     string  `json:"confidence" jsonschema_description:"extracted, inferred or estimated"`
}

// registerExtraction is the response shape for register and SLD pages.
type registerExtraction struct {
	Boards       []boardExtract       `json:"boards" jsonschema_description:"Distribution boards with their circuit schedules"`
	SupplyPoints []supplyPointExtract `json:"supply_points" jsonschema_description:"Incoming supplies shown on these pages"`
}

type roomExtract struct {
	Name        string               `json:"name" jsonschema_description:"Room or area name as labelled"`
	AreaM2      float64              `json:"area_m2" jsonschema_description:"Floor area in m2 if stated, 0 otherwise"`
	IsWetArea   bool                 `json:"is_wet_area" jsonschema_description:"True for bathrooms, kitchens, sculleries, laundries and other wet areas"`
	Fixtures    common.FixtureCounts `json:"fixtures" jsonschema_description:"Count of every fixture symbol in this room"`
	CircuitRefs []string             `json:"circuit_refs" jsonschema_description:"Circuit identifiers annotated in this room"`
	Confidence  string               `json:"confidence" jsonschema_description:"extracted, inferred or estimated"`
}

// layoutExtraction is the response shape for lighting, plug and combined
// layout pages.
type layoutExtraction struct {
	Rooms []roomExtract `json:"rooms" jsonschema_description:"Every labelled room with its fixture counts"`
}

type equipmentExtract struct {
	Name        string  `json:"name" jsonschema_description:"Equipment label, e.g. stove, geyser, AC unit, pool pump"`
	Type        string  `json:"type" jsonschema_description:"stove, geyser, ac, pump, motor or other"`
	PowerKW     float64 `json:"power_kw" jsonschema_description:"Rated power in kW, 0 if not stated"`
	Voltage     string  `json:"voltage" jsonschema_description:"Voltage if stated, e.g. 230V, 400V"`
	Phase       string  `json:"phase" jsonschema_description:"single or three, empty if not stated"`
	HasIsolator bool    `json:"has_isolator" jsonschema_description:"True when an isolator is shown next to the equipment"`
	CircuitRef  string  `json:"circuit_ref" jsonschema_description:"Circuit identifier feeding this equipment, empty if not shown"`
	Confidence  string  `json:"confidence" jsonschema_description:"extracted, inferred or estimated"`
}

// plugExtraction is the response shape for plug layout pages, which also
// carry fixed equipment.
type plugExtraction struct {
	Rooms     []roomExtract      `json:"rooms" jsonschema_description:"Every labelled room with its socket counts"`
	Equipment []equipmentExtract `json:"equipment" jsonschema_description:"Fixed equipment with dedicated supplies"`
}

type cableRunExtract struct {
	FromPoint      string  `json:"from_point" jsonschema_description:"Run origin, e.g. main gate kiosk, DB1"`
	ToPoint        string  `json:"to_point" jsonschema_description:"Run destination"`
	CableSpec      string  `json:"cable_spec" jsonschema_description:"Cable spec as annotated, e.g. 4 x 16mm SWA"`
	LengthM        float64 `json:"length_m" jsonschema_description:"Measured length in metres, 0 if not stated"`
	IsUnderground  bool    `json:"is_underground" jsonschema_description:"True when the run is buried"`
	NeedsTrenching bool    `json:"needs_trenching" jsonschema_description:"True when trenching is called for"`
	Confidence     string  `json:"confidence" jsonschema_description:"extracted, inferred or estimated"`
}

// outsideExtraction is the response shape for external works pages.
type outsideExtraction struct {
	Fixtures  common.FixtureCounts `json:"fixtures" jsonschema_description:"External light and socket fixtures counted on these pages"`
	CableRuns []cableRunExtract    `json:"cable_runs" jsonschema_description:"Site cable runs between buildings and supply points"`
	Equipment []equipmentExtract   `json:"equipment" jsonschema_description:"External equipment such as gate motors and pool pumps"`
}

func (r registerExtraction) toTakeoff(pageSource string) common.UnitTakeoff {
	var out common.UnitTakeoff
	for _, b := range r.Boards {
		board := common.Board{
			Name:               b.Name,
			SupplyFrom:         b.SupplyFrom,
			SupplyCableSizeMM2: b.SupplyCableSizeMM2,
			MainBreakerA:       b.MainBreakerA,
			EarthLeakage:       b.EarthLeakage,
			SurgeProtection:    b.SurgeProtection,
			IsMain:             b.IsMain,
			Phase:              b.Phase,
			SpareWays:          b.SpareWays,
			Confidence:         common.ParseConfidence(b.Confidence),
		}
		for _, c := range b.Circuits {
			board.Circuits = append(board.Circuits, common.Circuit{
				ID:             c.ID,
				Type:           c.Type,
				Description:    c.Description,
				WattageW:       c.WattageW,
				WattageFormula: c.WattageFormula,
				CableSizeMM2:   c.CableSizeMM2,
				CableCores:     c.CableCores,
				CableType:      c.CableType,
				BreakerA:       c.BreakerA,
				NumPoints:      c.NumPoints,
				IsSpare:        c.IsSpare,
				HasIsolator:    c.HasIsolator,
				FeedsBoard:     c.FeedsBoard,
				Confidence:     common.ParseConfidence(c.Confidence),
				PageSource:     pageSource,
			})
		}
		out.Boards = append(out.Boards, board)
	}
	for _, s := range r.SupplyPoints {
		out.SupplyPoints = append(out.SupplyPoints, common.SupplyPoint{
			Type:           s.Type,
			RatingKVA:      s.RatingKVA,
			CableToFirstDB: s.CableToFirstDB,
			FeedsBoard:     s.FeedsBoard,
			Confidence:     common.ParseConfidence(s.Confidence),
		})
	}
	return out
}

func roomsToCommon(rooms []roomExtract) []common.Room {
	var out []common.Room
	for _, r := range rooms {
		out = append(out, common.Room{
			Name:        r.Name,
			AreaM2:      r.AreaM2,
			IsWetArea:   r.IsWetArea,
			Fixtures:    r.Fixtures,
			CircuitRefs: r.CircuitRefs,
			Confidence:  common.ParseConfidence(r.Confidence),
		})
	}
	return out
}

func equipmentToCommon(equipment []equipmentExtract) []common.HeavyEquipment {
	var out []common.HeavyEquipment
	for _, e := range equipment {
		out = append(out, common.HeavyEquipment{
			Name:        e.Name,
			Type:        e.Type,
			PowerKW:     e.PowerKW,
			Voltage:     e.Voltage,
			Phase:       e.Phase,
			HasIsolator: e.HasIsolator,
			CircuitRef:  e.CircuitRef,
			Confidence:  common.ParseConfidence(e.Confidence),
		})
	}
	return out
}

func (l layoutExtraction) toTakeoff() common.UnitTakeoff {
	return common.UnitTakeoff{Rooms: roomsToCommon(l.Rooms)}
}

func (p plugExtraction) toTakeoff() common.UnitTakeoff {
	return common.UnitTakeoff{
		Rooms:     roomsToCommon(p.Rooms),
		Equipment: equipmentToCommon(p.Equipment),
	}
}

func (o outsideExtraction) toTakeoff() common.UnitTakeoff {
	out := common.UnitTakeoff{Equipment: equipmentToCommon(o.Equipment)}
	if o.Fixtures != (common.FixtureCounts{}) {
		out.Rooms = append(out.Rooms, common.Room{
			Name:       "external",
			Fixtures:   o.Fixtures,
			Confidence: common.ConfidenceExtracted,
		})
	}
	for _, cr := range o.CableRuns {
		out.CableRuns = append(out.CableRuns, common.CableRun{
			FromPoint:      cr.FromPoint,
			ToPoint:        cr.ToPoint,
			CableSpec:      cr.CableSpec,
			LengthM:        cr.LengthM,
			IsUnderground:  cr.IsUnderground,
			NeedsTrenching: cr.NeedsTrenching,
			Confidence:     common.ParseConfidence(cr.Confidence),
		})
	}
	return out
}
