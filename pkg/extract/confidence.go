package extract

import (
	"github.com/afriplan/takeoff/pkg/common"
)

// scoreUnit grades a merged unit take-off in [0, 1]. Completeness measures
// how many key fields are filled; the extracted ratio measures how much of
// the result was actually read off the pages rather than guessed. The
// weighting favours provenance over volume.
func scoreUnit(t common.UnitTakeoff) float64 {
	return 0.4*completeness(t) + 0.6*extractedRatio(t)
}

func completeness(t common.UnitTakeoff) float64 {
	checks, filled := 0, 0

	mark := func(ok bool) {
		checks++
		if ok {
			filled++
		}
	}

	for _, b := range t.Boards {
		mark(b.Name != "")
		mark(b.MainBreakerA > 0)
		mark(len(b.Circuits) > 0)
		for _, c := range b.Circuits {
			mark(c.ID != "")
			mark(c.CableSizeMM2 > 0)
			mark(c.BreakerA > 0)
		}
	}
	for _, r := range t.Rooms {
		mark(r.Name != "")
		mark(r.Fixtures.TotalLights()+r.Fixtures.TotalSockets()+r.Fixtures.TotalSwitches() > 0)
	}
	for _, e := range t.Equipment {
		mark(e.Name != "")
		mark(e.Type != "")
	}
	for _, s := range t.SupplyPoints {
		mark(s.Type != "")
	}
	for _, cr := range t.CableRuns {
		mark(cr.FromPoint != "" && cr.ToPoint != "")
		mark(cr.CableSpec != "")
	}

	if checks == 0 {
		return 0
	}
	return float64(filled) / float64(checks)
}

func extractedRatio(t common.UnitTakeoff) float64 {
	total, extracted := 0, 0

	count := func(c common.Confidence) {
		total++
		if c == common.ConfidenceExtracted || c == common.ConfidenceManual {
			extracted++
		}
	}

	for _, b := range t.Boards {
		count(b.Confidence)
		for _, c := range b.Circuits {
			count(c.Confidence)
		}
	}
	for _, r := range t.Rooms {
		count(r.Confidence)
	}
	for _, e := range t.Equipment {
		count(e.Confidence)
	}
	for _, s := range t.SupplyPoints {
		count(s.Confidence)
	}
	for _, cr := range t.CableRuns {
		count(cr.Confidence)
	}

	if total == 0 {
		return 0
	}
	return float64(extracted) / float64(total)
}
