package extract

import (
	"testing"

	"github.com/afriplan/takeoff/pkg/common"
)

func TestScoreUnit(t *testing.T) {
	tests := []struct {
		name string
		t    common.UnitTakeoff
		want float64
	}{
		{
			name: "empty take-off scores zero",
			t:    common.UnitTakeoff{},
			want: 0,
		},
		{
			name: "complete extracted take-off scores one",
			t: common.UnitTakeoff{
				Boards: []common.Board{{
					Name:         "DB1",
					MainBreakerA: 60,
					Confidence:   common.ConfidenceExtracted,
					Circuits: []common.Circuit{{
						ID:           "C1",
						CableSizeMM2: 2.5,
						BreakerA:     20,
						Confidence:   common.ConfidenceExtracted,
					}},
				}},
			},
			want: 1,
		},
		{
			name: "estimated values cap the score at completeness weight",
			t: common.UnitTakeoff{
				Boards: []common.Board{{
					Name:         "DB1",
					MainBreakerA: 60,
					Confidence:   common.ConfidenceEstimated,
					Circuits: []common.Circuit{{
						ID:           "C1",
						CableSizeMM2: 2.5,
						BreakerA:     20,
						Confidence:   common.ConfidenceEstimated,
					}},
				}},
			},
			want: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreUnit(tt.t)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("scoreUnit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreUnitManualCountsAsExtracted(t *testing.T) {
	base := common.UnitTakeoff{
		Rooms: []common.Room{{
			Name:       "kitchen",
			Fixtures:   common.FixtureCounts{Downlights: 4},
			Confidence: common.ConfidenceEstimated,
		}},
	}
	corrected := base
	corrected.Rooms = []common.Room{base.Rooms[0]}
	corrected.Rooms[0].Confidence = common.ConfidenceManual

	if scoreUnit(corrected) <= scoreUnit(base) {
		t.Error("a manual correction should not score below the estimated original")
	}
}
