package pricing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/hierarchy"
)

func fixtureProject() common.Project {
	return common.Project{
		Units: []common.UnitTakeoff{{
			Unit: "house 1",
			Boards: []common.Board{
				{
					Name:         "DB1",
					IsMain:       true,
					EarthLeakage: true,
					MainBreakerA: 60,
					Confidence:   common.ConfidenceExtracted,
					Circuits: []common.Circuit{
						{ID: "L1", Type: "lighting", CableSizeMM2: 1.5, NumPoints: 6,
							Confidence: common.ConfidenceExtracted},
						{ID: "P1", Type: "power", CableSizeMM2: 2.5, NumPoints: 8,
							Confidence: common.ConfidenceExtracted},
						{ID: "SP", Type: "power", IsSpare: true},
					},
				},
				{
					Name:               "DB2",
					SupplyFrom:         "DB1",
					SupplyCableSizeMM2: 10,
					Confidence:         common.ConfidenceInferred,
					Circuits: []common.Circuit{
						{ID: "P2", Type: "power", CableSizeMM2: 2.5, NumPoints: 4,
							Confidence: common.ConfidenceExtracted},
					},
				},
			},
			Rooms: []common.Room{
				{
					Name:       "Lounge",
					Fixtures:   common.FixtureCounts{Downlights: 4, DoublePlugs: 3},
					Confidence: common.ConfidenceExtracted,
				},
				{
					Name:       "Kitchen",
					Fixtures:   common.FixtureCounts{Downlights: 2, DoublePlugs: 4},
					Confidence: common.ConfidenceInferred,
				},
			},
			Equipment: []common.HeavyEquipment{
				{Name: "150L geyser", Type: "geyser", HasIsolator: true,
					Confidence: common.ConfidenceExtracted},
			},
			SupplyPoints: []common.SupplyPoint{
				{Type: "kiosk", FeedsBoard: "DB1", Confidence: common.ConfidenceExtracted},
			},
			CableRuns: []common.CableRun{
				{FromPoint: "kiosk", ToPoint: "DB1", CableSpec: "16mm SWA",
					LengthM: 20, IsUnderground: true, Confidence: common.ConfidenceExtracted},
			},
		}},
	}
}

func priceFixture(t *testing.T, conditions []string) common.PricingResult {
	t.Helper()
	project := fixtureProject()
	engine := NewEngine(NewEngineParams{Rates: DefaultRates(), SiteConditions: conditions})
	return engine.Price(project, hierarchy.Build(project), common.ValidationReport{})
}

func findLine(items []common.LineItem, description string) *common.LineItem {
	norm := common.NormalizeName(description)
	for i := range items {
		if common.NormalizeName(items[i].Description) == norm {
			return &items[i]
		}
	}
	return nil
}

func TestPriceDualRenditions(t *testing.T) {
	result := priceFixture(t, nil)

	if len(result.QuantityBQ) == 0 {
		t.Fatal("empty quantity BQ")
	}
	if len(result.QuantityBQ) != len(result.EstimatedBQ) {
		t.Fatalf("rendition lengths differ: %d vs %d",
			len(result.QuantityBQ), len(result.EstimatedBQ))
	}

	for i := range result.QuantityBQ {
		q, est := result.QuantityBQ[i], result.EstimatedBQ[i]
		if q.Qty != est.Qty {
			t.Errorf("line %s quantity differs: %v vs %v", q.ItemNo, q.Qty, est.Qty)
		}
		if q.Description != est.Description || q.Section != est.Section || q.ItemNo != est.ItemNo {
			t.Errorf("line %d renditions describe different items", i)
		}
		if !q.RateOnly || q.UnitPrice != 0 || q.Total != 0 {
			t.Errorf("quantity line %s should carry no prices", q.ItemNo)
		}
	}
}

func TestPriceLineItems(t *testing.T) {
	result := priceFixture(t, nil)

	t.Run("fixture counts aggregate across rooms", func(t *testing.T) {
		line := findLine(result.EstimatedBQ, "Downlight point")
		if line == nil {
			t.Fatal("no downlight line")
		}
		if line.Qty != 6 {
			t.Errorf("downlight qty = %v, want 6", line.Qty)
		}
		if line.Source != common.ConfidenceInferred {
			t.Errorf("aggregated line should keep the weaker confidence, got %s", line.Source)
		}
		if line.Total != 6*280 {
			t.Errorf("downlight total = %v, want %v", line.Total, 6*280.0)
		}
	})

	t.Run("spare circuits carry no wiring or breakers", func(t *testing.T) {
		breakers := findLine(result.EstimatedBQ, "Circuit breaker")
		if breakers == nil {
			t.Fatal("no circuit breaker line")
		}
		if breakers.Qty != 3 {
			t.Errorf("breaker qty = %v, want 3 non-spare circuits", breakers.Qty)
		}
	})

	t.Run("sub-board feed cable priced from the hierarchy", func(t *testing.T) {
		line := findLine(result.EstimatedBQ, "10mm2 cable, wired in conduit")
		if line == nil {
			t.Fatal("no feed cable line")
		}
		if line.Section != common.SectionSupplyMains {
			t.Errorf("feed cable in section %s, want %s", line.Section, common.SectionSupplyMains)
		}
		if line.Qty != 15 {
			t.Errorf("feed length = %v, want default 15m", line.Qty)
		}
	})

	t.Run("circuit wiring uses default lengths", func(t *testing.T) {
		// two 2.5mm power circuits at 8m each
		line := findLine(result.EstimatedBQ, "2.5mm2 cable, wired in conduit")
		if line == nil {
			t.Fatal("no 2.5mm wiring line")
		}
		if line.Qty != 16 {
			t.Errorf("2.5mm wiring qty = %v, want 16", line.Qty)
		}
	})

	t.Run("underground run priced at measured length", func(t *testing.T) {
		trench := findLine(result.EstimatedBQ, "Trenching and backfill")
		if trench == nil {
			t.Fatal("no trenching line")
		}
		if trench.Qty != 20 {
			t.Errorf("trenching qty = %v, want measured 20m", trench.Qty)
		}
		if trench.Total != 20*95 {
			t.Errorf("trenching total = %v, want %v", trench.Total, 20*95.0)
		}
	})

	t.Run("geyser connection and isolator", func(t *testing.T) {
		if findLine(result.EstimatedBQ, "Geyser connection") == nil {
			t.Error("no geyser connection line")
		}
		iso := findLine(result.EstimatedBQ, "Equipment isolator")
		if iso == nil || iso.Qty != 1 {
			t.Errorf("expected one equipment isolator, got %+v", iso)
		}
	})

	t.Run("provisional sums stay rate-only in the estimate", func(t *testing.T) {
		line := findLine(result.EstimatedBQ, "Allow for builder's work and chasing")
		if line == nil {
			t.Fatal("no provisional sum line")
		}
		if !line.RateOnly || line.Total != 0 {
			t.Errorf("provisional sum should be rate-only, got %+v", line)
		}
	})
}

func TestPriceTotalsChain(t *testing.T) {
	result := priceFixture(t, nil)

	var sum float64
	for _, l := range result.EstimatedBQ {
		sum += l.Total
	}
	if round2(sum) != result.Subtotal {
		t.Errorf("subtotal %v does not match line sum %v", result.Subtotal, round2(sum))
	}

	if got := round2(result.Subtotal * 0.10); result.ContingencyAmount != got {
		t.Errorf("contingency = %v, want %v", result.ContingencyAmount, got)
	}
	afterContingency := result.Subtotal + result.ContingencyAmount
	if got := round2(afterContingency * 0.20); result.MarkupAmount != got {
		t.Errorf("markup = %v, want %v", result.MarkupAmount, got)
	}
	afterMarkup := afterContingency + result.MarkupAmount
	if got := round2(afterMarkup * 0.15); result.VATAmount != got {
		t.Errorf("VAT = %v, want %v", result.VATAmount, got)
	}
	if got := round2(afterMarkup + result.VATAmount); result.GrandTotal != got {
		t.Errorf("grand total = %v, want %v", result.GrandTotal, got)
	}

	p := result.Payments
	if round2(p.Deposit+p.Progress+p.Completion) != result.GrandTotal {
		t.Errorf("payments %v+%v+%v do not sum to grand total %v",
			p.Deposit, p.Progress, p.Completion, result.GrandTotal)
	}
	if p.DepositPct != 40 || p.ProgressPct != 40 || p.CompletionPct != 20 {
		t.Errorf("payment split = %v/%v/%v, want 40/40/20",
			p.DepositPct, p.ProgressPct, p.CompletionPct)
	}
}

func TestPriceDeterministic(t *testing.T) {
	a := priceFixture(t, nil)
	b := priceFixture(t, nil)

	if a.GrandTotal != b.GrandTotal || a.Subtotal != b.Subtotal {
		t.Fatalf("totals differ between runs: %v vs %v", a.GrandTotal, b.GrandTotal)
	}
	if len(a.EstimatedBQ) != len(b.EstimatedBQ) {
		t.Fatalf("line counts differ: %d vs %d", len(a.EstimatedBQ), len(b.EstimatedBQ))
	}
	for i := range a.EstimatedBQ {
		x, y := a.EstimatedBQ[i], b.EstimatedBQ[i]
		if x.ItemNo != y.ItemNo || x.Description != y.Description ||
			x.Qty != y.Qty || x.Total != y.Total {
			t.Errorf("line %d differs between runs: %+v vs %+v", i, x, y)
		}
	}
}

func TestSiteConditionMultipliers(t *testing.T) {
	flat := priceFixture(t, nil)
	rocky := priceFixture(t, []string{"rocky_soil"})

	base := findLine(flat.EstimatedBQ, "Trenching and backfill")
	scaled := findLine(rocky.EstimatedBQ, "Trenching and backfill")
	if base == nil || scaled == nil {
		t.Fatal("missing trenching lines")
	}
	if want := round2(base.UnitPrice * 1.35); scaled.UnitPrice != want {
		t.Errorf("rocky soil rate = %v, want %v", scaled.UnitPrice, want)
	}

	// multipliers only touch external works
	baseLights := findLine(flat.EstimatedBQ, "Downlight point")
	rockyLights := findLine(rocky.EstimatedBQ, "Downlight point")
	if baseLights.UnitPrice != rockyLights.UnitPrice {
		t.Errorf("lighting rate moved with site conditions: %v vs %v",
			baseLights.UnitPrice, rockyLights.UnitPrice)
	}
}

func TestRectificationProvisionalSum(t *testing.T) {
	project := fixtureProject()
	engine := NewEngine(NewEngineParams{Rates: DefaultRates()})
	report := common.ValidationReport{Findings: []common.Finding{
		{Severity: common.SeverityCritical, Passed: false},
		{Severity: common.SeverityMajor, Passed: false},
		{Severity: common.SeverityMinor, Passed: false},
		// corrected failures are priced as compliance items, not lumped
		// into the rectification sum
		{Severity: common.SeverityCritical, Passed: false, AutoCorrected: true,
			CorrectedValue: "add 63A/30mA earth leakage unit", Board: "DB1"},
	}}

	result := engine.Price(project, hierarchy.Build(project), report)
	line := findLine(result.EstimatedBQ, "Allow for rectification of 2 non-compliant items")
	if line == nil {
		t.Fatal("expected a rectification provisional sum")
	}
	if !line.RateOnly {
		t.Error("rectification sum should be rate-only")
	}
}

func TestComplianceLineItems(t *testing.T) {
	project := fixtureProject()
	engine := NewEngine(NewEngineParams{Rates: DefaultRates()})
	report := common.ValidationReport{Findings: []common.Finding{
		{Rule: "ELCB_REQUIRED", Severity: common.SeverityCritical, Passed: false,
			AutoCorrected: true, CorrectedValue: "add 63A/30mA earth leakage unit", Board: "DB2"},
		{Rule: "MAX_LIGHTS_PER_CIRCUIT", Severity: common.SeverityCritical, Passed: false,
			AutoCorrected: true, CorrectedValue: "split into 2 circuits of at most 10 points",
			Circuit: "L1", Board: "DB1"},
		{Rule: "SURGE_PROTECTION", Severity: common.SeverityMinor, Passed: true},
	}}

	result := engine.Price(project, hierarchy.Build(project), report)

	elcb := findLine(result.EstimatedBQ, "Compliance: add 63A/30mA earth leakage unit (DB2)")
	if elcb == nil {
		t.Fatal("expected a compliance line for the missing ELCB")
	}
	if elcb.Section != common.SectionBoards {
		t.Errorf("ELCB compliance section = %s, want %s", elcb.Section, common.SectionBoards)
	}
	if elcb.Qty != 1 || elcb.Source != common.ConfidenceInferred {
		t.Errorf("ELCB compliance line qty=%v source=%s, want 1/inferred", elcb.Qty, elcb.Source)
	}

	split := findLine(result.EstimatedBQ, "Compliance: split into 2 circuits of at most 10 points (L1)")
	if split == nil {
		t.Fatal("expected a compliance line for the circuit split")
	}
	if split.Section != common.SectionWiring {
		t.Errorf("circuit split compliance section = %s, want %s", split.Section, common.SectionWiring)
	}

	// both renditions carry the same compliance lines
	if findLine(result.QuantityBQ, "Compliance: add 63A/30mA earth leakage unit (DB2)") == nil {
		t.Error("quantity BQ missing the ELCB compliance line")
	}
	if findLine(result.QuantityBQ, "Compliance: split into 2 circuits of at most 10 points (L1)") == nil {
		t.Error("quantity BQ missing the circuit split compliance line")
	}

	// a passing finding adds nothing
	count := 0
	for _, item := range result.EstimatedBQ {
		if strings.HasPrefix(item.Description, "Compliance:") {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected exactly 2 compliance lines, got %d", count)
	}
}

func TestLoadRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	content := `
markup_pct: 25
item_rates:
  "Downlight point": 300
  "Solar disconnect": 520
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rates, err := LoadRates(path)
	if err != nil {
		t.Fatalf("LoadRates: %v", err)
	}
	if rates.MarkupPct != 25 {
		t.Errorf("MarkupPct = %v, want 25", rates.MarkupPct)
	}
	if rates.ContingencyPct != 10 {
		t.Errorf("ContingencyPct = %v, want default 10", rates.ContingencyPct)
	}
	if rates.ItemRates["downlight point"] != 300 {
		t.Errorf("overlay rate not applied: %v", rates.ItemRates["downlight point"])
	}
	if rates.ItemRates["solar disconnect"] != 520 {
		t.Errorf("new rate not added: %v", rates.ItemRates["solar disconnect"])
	}
	if rates.ItemRates["ceiling light point"] != 320 {
		t.Errorf("default rates lost on overlay")
	}

	t.Run("missing file keeps defaults", func(t *testing.T) {
		rates, err := LoadRates(filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil {
			t.Fatal("expected an error for a missing file")
		}
		if rates.VATPct != 15 {
			t.Errorf("defaults should survive, got VAT %v", rates.VATPct)
		}
	})
}
