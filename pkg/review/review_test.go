package review

import (
	"reflect"
	"testing"

	"github.com/afriplan/takeoff/pkg/common"
)

func testProject() common.Project {
	return common.Project{
		Units: []common.UnitTakeoff{{
			Unit: "block a",
			Boards: []common.Board{{
				Name:         "DB1",
				EarthLeakage: false,
				Confidence:   common.ConfidenceExtracted,
				Circuits: []common.Circuit{
					{ID: "C3", Type: "power", BreakerA: 20, NumPoints: 6,
						Confidence: common.ConfidenceExtracted},
				},
			}},
			Rooms: []common.Room{{
				Name:       "Kitchen",
				Fixtures:   common.FixtureCounts{DoublePlugs: 4},
				Confidence: common.ConfidenceExtracted,
			}},
			Equipment: []common.HeavyEquipment{{
				Name: "150L geyser", Type: "geyser", PowerKW: 3,
				Confidence: common.ConfidenceExtracted,
			}},
		}},
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		correction common.Correction
		check      func(t *testing.T, p common.Project)
	}{
		{
			name: "circuit breaker rating",
			correction: common.Correction{
				FieldPath: "units/block a/boards/db1/circuits/c3/breaker_a",
				Corrected: "16",
			},
			check: func(t *testing.T, p common.Project) {
				c := p.Units[0].Boards[0].Circuits[0]
				if c.BreakerA != 16 {
					t.Errorf("BreakerA = %v, want 16", c.BreakerA)
				}
				if c.Confidence != common.ConfidenceManual {
					t.Errorf("Confidence = %s, want manual", c.Confidence)
				}
			},
		},
		{
			name: "board earth leakage flag",
			correction: common.Correction{
				FieldPath: "units/block a/boards/DB1/earth_leakage",
				Corrected: "true",
			},
			check: func(t *testing.T, p common.Project) {
				b := p.Units[0].Boards[0]
				if !b.EarthLeakage {
					t.Error("EarthLeakage not set")
				}
				if b.Confidence != common.ConfidenceManual {
					t.Errorf("Confidence = %s, want manual", b.Confidence)
				}
			},
		},
		{
			name: "room fixture count",
			correction: common.Correction{
				FieldPath: "units/block a/rooms/kitchen/fixtures/double_plugs",
				Corrected: "6",
			},
			check: func(t *testing.T, p common.Project) {
				r := p.Units[0].Rooms[0]
				if r.Fixtures.DoublePlugs != 6 {
					t.Errorf("DoublePlugs = %d, want 6", r.Fixtures.DoublePlugs)
				}
				if r.Confidence != common.ConfidenceManual {
					t.Errorf("Confidence = %s, want manual", r.Confidence)
				}
			},
		},
		{
			name: "equipment power",
			correction: common.Correction{
				FieldPath: "units/block a/equipment/150l geyser/power_kw",
				Corrected: "4",
			},
			check: func(t *testing.T, p common.Project) {
				eq := p.Units[0].Equipment[0]
				if eq.PowerKW != 4 {
					t.Errorf("PowerKW = %v, want 4", eq.PowerKW)
				}
				if eq.Confidence != common.ConfidenceManual {
					t.Errorf("Confidence = %s, want manual", eq.Confidence)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := testProject()
			warnings := Apply(&project, []common.Correction{tt.correction})
			if len(warnings) != 0 {
				t.Fatalf("unexpected warnings: %v", warnings)
			}
			tt.check(t, project)
		})
	}
}

func TestApplyIdempotent(t *testing.T) {
	corrections := []common.Correction{
		{FieldPath: "units/block a/boards/db1/circuits/c3/breaker_a", Corrected: "16"},
		{FieldPath: "units/block a/boards/db1/earth_leakage", Corrected: "true"},
	}

	once := testProject()
	Apply(&once, corrections)

	twice := testProject()
	Apply(&twice, corrections)
	Apply(&twice, corrections)

	if !reflect.DeepEqual(once, twice) {
		t.Error("replaying the same log twice changed the project")
	}
}

func TestApplyWarnings(t *testing.T) {
	tests := []struct {
		name      string
		fieldPath string
		corrected string
	}{
		{"unknown unit", "units/block z/boards/db1/earth_leakage", "true"},
		{"unknown board", "units/block a/boards/db9/earth_leakage", "true"},
		{"unknown circuit", "units/block a/boards/db1/circuits/c99/breaker_a", "16"},
		{"unknown field", "units/block a/boards/db1/circuits/c3/colour", "blue"},
		{"bad number", "units/block a/boards/db1/circuits/c3/breaker_a", "sixteen"},
		{"unsupported path", "projects/1/name", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := testProject()
			warnings := Apply(&project, []common.Correction{
				{FieldPath: tt.fieldPath, Corrected: tt.corrected},
			})
			if len(warnings) != 1 {
				t.Fatalf("expected one warning, got %v", warnings)
			}
			if !reflect.DeepEqual(project, testProject()) {
				t.Error("skipped correction mutated the project")
			}
		})
	}
}

func TestApplyOrder(t *testing.T) {
	// later corrections win over earlier ones on the same field
	project := testProject()
	Apply(&project, []common.Correction{
		{FieldPath: "units/block a/boards/db1/circuits/c3/num_points", Corrected: "8"},
		{FieldPath: "units/block a/boards/db1/circuits/c3/num_points", Corrected: "10"},
	})
	if got := project.Units[0].Boards[0].Circuits[0].NumPoints; got != 10 {
		t.Errorf("NumPoints = %d, want the last correction's 10", got)
	}
}
