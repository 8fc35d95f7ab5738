package validate

import (
	"fmt"

	"github.com/afriplan/takeoff/pkg/common"
)

// crossReference lines up the layout demand of each room against the
// register circuits it names. A layout demanding more points than the
// register circuit carries is a conflict; demand on an inferred circuit is
// a minor finding because the register never saw it.
func (e *Engine) crossReference(unit common.UnitTakeoff) ([]common.CircuitRoomLink, []common.Finding) {
	var (
		links    []common.CircuitRoomLink
		findings []common.Finding
	)

	for _, room := range unit.Rooms {
		for _, ref := range room.CircuitRefs {
			circuit := circuitByID(unit, ref)
			if circuit == nil {
				// merge appends inferred circuits for every layout
				// reference, so this only happens on a raw take-off
				links = append(links, common.CircuitRoomLink{
					CircuitID: ref,
					RoomName:  room.Name,
					Status:    common.MatchUnmatched,
					Detail:    "circuit not found on any board",
				})
				f := newFinding(RuleCrossReference, common.SeverityMajor, false,
					fmt.Sprintf("room %s references unknown circuit %s", room.Name, ref))
				f.Circuit, f.Unit = ref, unit.Unit
				findings = append(findings, f)
				continue
			}

			demand := roomDemandFor(room, circuit)
			link := common.CircuitRoomLink{
				CircuitID:    circuit.ID,
				RoomName:     room.Name,
				LayoutPoints: demand,
				CircuitWays:  circuit.NumPoints,
			}

			switch {
			case circuit.Confidence == common.ConfidenceInferred:
				link.Status = common.MatchPartial
				link.Detail = "circuit absent from register, inferred from layout"
				f := newFinding(RuleCrossReference, common.SeverityMinor, false,
					fmt.Sprintf("layout demand in %s has no register circuit %s", room.Name, circuit.ID))
				f.Circuit, f.Unit = circuit.ID, unit.Unit
				findings = append(findings, f)

			case circuit.NumPoints == 0 || demand == 0:
				link.Status = common.MatchPartial
				link.Detail = "point counts incomplete on one side"

			case demand > circuit.NumPoints:
				link.Status = common.MatchConflict
				link.Detail = fmt.Sprintf("layout counts %d points, register carries %d", demand, circuit.NumPoints)
				f := newFinding(RuleCrossReference, common.SeverityMajor, false,
					fmt.Sprintf("room %s demands %d points on circuit %s which carries %d",
						room.Name, demand, circuit.ID, circuit.NumPoints))
				f.Circuit, f.Unit = circuit.ID, unit.Unit
				findings = append(findings, f)

			default:
				link.Status = common.MatchMatched
			}

			links = append(links, link)
		}
	}

	return links, findings
}

func circuitByID(unit common.UnitTakeoff, id string) *common.Circuit {
	norm := common.NormalizeName(id)
	for i := range unit.Boards {
		for j := range unit.Boards[i].Circuits {
			if common.NormalizeName(unit.Boards[i].Circuits[j].ID) == norm {
				return &unit.Boards[i].Circuits[j]
			}
		}
	}
	return nil
}

// roomDemandFor counts the room fixtures the circuit type is responsible
// for. Unknown circuit types count everything.
func roomDemandFor(room common.Room, c *common.Circuit) int {
	switch {
	case circuitTypeIs(*c, "lighting"):
		return room.Fixtures.TotalLights()
	case circuitTypeIs(*c, "power", "plug", "socket"):
		return room.Fixtures.TotalSockets()
	default:
		return room.Fixtures.TotalLights() + room.Fixtures.TotalSockets()
	}
}
