package hierarchy

import (
	"testing"

	"github.com/afriplan/takeoff/pkg/common"
)

func project(boards ...common.Board) common.Project {
	return common.Project{Units: []common.UnitTakeoff{{Unit: "block a", Boards: boards}}}
}

func TestBuildForest(t *testing.T) {
	proj := project(
		common.Board{
			Name:   "MDB",
			IsMain: true,
			Circuits: []common.Circuit{
				{ID: "C1", WattageW: 1000},
				{ID: "F1", Type: "sub_board_feed", FeedsBoard: "DB1"},
			},
		},
		common.Board{
			Name:       "DB1",
			SupplyFrom: "MDB",
			Circuits:   []common.Circuit{{ID: "C1", WattageW: 600}},
		},
		common.Board{
			Name:       "DB2",
			SupplyFrom: "DB1",
			Circuits:   []common.Circuit{{ID: "C1", WattageW: 400}},
		},
	)

	h := Build(proj)

	if len(h.Roots) != 1 {
		t.Fatalf("got %d roots, want 1: %+v", len(h.Roots), h.Roots)
	}
	root := h.Roots[0]
	if root.Board != "MDB" || root.Depth != 0 {
		t.Errorf("root = %s depth %d, want MDB depth 0", root.Board, root.Depth)
	}
	if root.DownstreamW != 2000 {
		t.Errorf("root downstream = %g, want 2000 (1000+600+400)", root.DownstreamW)
	}

	if len(root.Children) != 1 || root.Children[0].Board != "DB1" {
		t.Fatalf("MDB children = %+v, want [DB1]", root.Children)
	}
	db1 := root.Children[0]
	if db1.DownstreamW != 1000 || db1.Depth != 1 {
		t.Errorf("DB1 downstream %g depth %d, want 1000 depth 1", db1.DownstreamW, db1.Depth)
	}
	if len(h.Orphans) != 0 || len(h.Cycles) != 0 {
		t.Errorf("clean forest reported orphans %v cycles %v", h.Orphans, h.Cycles)
	}
}

func TestBuildOrphan(t *testing.T) {
	proj := project(
		common.Board{Name: "DB1", SupplyFrom: "GHOST"},
	)

	h := Build(proj)

	if len(h.Orphans) != 1 || h.Orphans[0] != "block a/db1" {
		t.Fatalf("orphans = %v, want [block a/db1]", h.Orphans)
	}
	if len(h.Roots) != 1 || !h.Roots[0].Orphan {
		t.Error("orphan board must stay in the forest as a flagged root")
	}
}

func TestBuildCycle(t *testing.T) {
	proj := project(
		common.Board{Name: "DB1", SupplyFrom: "DB2", Circuits: []common.Circuit{{ID: "C1", WattageW: 100}}},
		common.Board{Name: "DB2", SupplyFrom: "DB1", Circuits: []common.Circuit{{ID: "C1", WattageW: 200}}},
	)

	h := Build(proj)

	if len(h.Cycles) != 1 {
		t.Fatalf("cycles = %v, want one cycle", h.Cycles)
	}
	if len(h.Roots) != 1 {
		t.Fatalf("got %d roots, want 1 after cutting the back edge", len(h.Roots))
	}
	// both boards still present and the rollup still sums everything
	if h.TotalDownstreamW() != 300 {
		t.Errorf("TotalDownstreamW = %g, want 300", h.TotalDownstreamW())
	}
}

func TestBuildCrossUnitFeeder(t *testing.T) {
	proj := common.Project{Units: []common.UnitTakeoff{
		{Unit: "block a", Boards: []common.Board{{Name: "MDB", IsMain: true}}},
		{Unit: "block b", Boards: []common.Board{{Name: "DB-B", SupplyFrom: "MDB"}}},
	}}

	h := Build(proj)

	if len(h.Roots) != 1 || h.Roots[0].Board != "MDB" {
		t.Fatalf("roots = %+v, want single MDB root", h.Roots)
	}
	if len(h.Roots[0].Children) != 1 || h.Roots[0].Children[0].Unit != "block b" {
		t.Errorf("cross-unit feed not resolved: %+v", h.Roots[0].Children)
	}
}

func TestBuildSupplyFedBoardIsRoot(t *testing.T) {
	proj := common.Project{Units: []common.UnitTakeoff{{
		Unit:   "block a",
		Boards: []common.Board{{Name: "MDB", SupplyFrom: "Eskom Kiosk"}},
		SupplyPoints: []common.SupplyPoint{{
			Type:       "eskom_kiosk",
			FeedsBoard: "MDB",
		}},
	}}}

	h := Build(proj)

	if len(h.Orphans) != 0 {
		t.Errorf("supply-fed board flagged as orphan: %v", h.Orphans)
	}
	if len(h.Roots) != 1 || h.Roots[0].Board != "MDB" {
		t.Errorf("roots = %+v, want MDB", h.Roots)
	}
}
