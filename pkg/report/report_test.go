package report

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/afriplan/takeoff/pkg/ai"
	"github.com/afriplan/takeoff/pkg/classify"
	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/extract"
	"github.com/afriplan/takeoff/pkg/pricing"
	"github.com/afriplan/takeoff/pkg/validate"
)

// mockClient answers every schema-constrained call with the same canned
// payload. Each response type picks out the keys it knows.
type mockClient struct {
	mu      sync.Mutex
	calls   int
	payload string
	err     error
}

func (m *mockClient) answer(out any) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	return json.Unmarshal([]byte(m.payload), out)
}

func (m *mockClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (m *mockClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return m.answer(out)
}

func (m *mockClient) GenerateVisionCompletionWithFormat(ctx context.Context, name, description, prompt string, images []ai.PageImage, out any, opts ...ai.GenerateOption) error {
	return m.answer(out)
}

func (m *mockClient) ResetMetrics() {}
func (m *mockClient) GetMetrics() ai.ModelMetrics {
	return ai.ModelMetrics{TotalTokens: 1234}
}

const registerPayload = `{
	"boards": [{
		"name": "DB1",
		"is_main": true,
		"earth_leakage": true,
		"surge_protection": true,
		"main_breaker_a": 60,
		"spare_ways": 2,
		"confidence": "extracted",
		"circuits": [
			{"id": "L1", "type": "lighting", "cable_size_mm2": 1.5, "breaker_a": 10,
			 "num_points": 6, "confidence": "extracted"},
			{"id": "P1", "type": "power", "cable_size_mm2": 2.5, "breaker_a": 16,
			 "num_points": 8, "confidence": "extracted"}
		]
	}],
	"supply_points": [],
	"rooms": [{
		"name": "Kitchen",
		"is_wet_area": true,
		"fixtures": {"downlights": 4, "double_plugs": 3},
		"circuit_refs": ["L1"],
		"confidence": "extracted"
	}]
}`

func testPages() []common.Page {
	return []common.Page{
		{
			ID:   "p1",
			Name: "house 1 - db schedule.pdf",
			Text: "circuit schedule way breaker mcb phase DB1",
		},
		{
			ID:   "p2",
			Name: "house 1 - lighting layout.pdf",
			Text: "kitchen downlight dimmer two lever switch",
		},
	}
}

func newTestPipeline(client ai.DrawingAIClient) *Pipeline {
	return NewPipeline(NewPipelineParams{
		Client: client,
		Extractor: extract.NewExtractor(extract.NewExtractorParams{
			Client:        client,
			ExtractModel:  "extract-model",
			EscalateModel: "escalate-model",
			MaxRetries:    1,
		}),
		Validator: validate.NewEngine(validate.DefaultParams()),
		Pricer:    pricing.NewEngine(pricing.NewEngineParams{Rates: pricing.DefaultRates()}),
		Classify:  classify.Options{MaxRetries: 1},
	})
}

func TestPipelineRun(t *testing.T) {
	client := &mockClient{payload: registerPayload}
	pipeline := newTestPipeline(client)

	report, err := pipeline.Run(context.Background(), "run-1", "proj-1", testPages(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.RunID != "run-1" || report.ProjectID != "proj-1" {
		t.Errorf("report identity = %s/%s", report.RunID, report.ProjectID)
	}
	if report.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if report.Metrics.TotalTokens != 1234 {
		t.Errorf("metrics not carried: %+v", report.Metrics)
	}

	// structured pages present, so the decision table answers without a call
	if report.Classification.Mode != common.ModeAsBuilt || report.Classification.Source != "table" {
		t.Errorf("classification = %+v, want as_built from the table", report.Classification)
	}

	if len(report.Units) != 1 || report.Units[0].Unit != "house 1" {
		t.Fatalf("units = %+v, want one summary for house 1", report.Units)
	}
	if report.Units[0].State == common.UnitFailed {
		t.Errorf("unit failed: %+v", report.Units[0])
	}

	if len(report.Project.Units) != 1 {
		t.Fatalf("project units = %d, want 1", len(report.Project.Units))
	}
	unit := report.Project.Units[0]
	if len(unit.Boards) == 0 || unit.Boards[0].Name != "DB1" {
		t.Fatalf("boards = %+v, want DB1", unit.Boards)
	}
	if len(unit.Rooms) == 0 {
		t.Fatal("rooms missing after merge")
	}

	if len(report.Hierarchy.Roots) == 0 {
		t.Error("empty supply hierarchy")
	}
	if len(report.Validation.Findings) == 0 {
		t.Error("validation produced no findings")
	}
	if report.Pricing.GrandTotal <= 0 {
		t.Errorf("grand total = %v, want > 0", report.Pricing.GrandTotal)
	}
	if len(report.Pricing.QuantityBQ) != len(report.Pricing.EstimatedBQ) {
		t.Error("BQ renditions differ in length")
	}
}

func TestPipelineRunWithCorrections(t *testing.T) {
	client := &mockClient{payload: registerPayload}
	pipeline := newTestPipeline(client)

	corrections := []common.Correction{{
		RunID:     "run-2",
		FieldPath: "units/house 1/boards/db1/circuits/l1/num_points",
		Corrected: "9",
	}}

	report, err := pipeline.Run(context.Background(), "run-2", "proj-1", testPages(), corrections)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	circuit := report.Project.Units[0].Boards[0].Circuits[0]
	if circuit.NumPoints != 9 {
		t.Errorf("NumPoints = %d, want corrected 9", circuit.NumPoints)
	}
	if circuit.Confidence != common.ConfidenceManual {
		t.Errorf("Confidence = %s, want manual", circuit.Confidence)
	}
}

func TestPipelineRunDegradesOnModelFailure(t *testing.T) {
	client := &mockClient{err: errors.New("model unavailable")}
	pipeline := newTestPipeline(client)

	report, err := pipeline.Run(context.Background(), "run-3", "proj-1", testPages(), nil)
	if err != nil {
		t.Fatalf("Run should not fail outright: %v", err)
	}

	if len(report.Units) != 1 {
		t.Fatalf("units = %+v", report.Units)
	}
	if report.Units[0].State != common.UnitFailed {
		t.Errorf("state = %s, want failed", report.Units[0].State)
	}
	if report.Units[0].Score != 0 {
		t.Errorf("score = %v, want 0", report.Units[0].Score)
	}
	// the run still prices what little survived
	if len(report.Pricing.QuantityBQ) == 0 {
		t.Error("expected at least the preliminaries lines")
	}
}
