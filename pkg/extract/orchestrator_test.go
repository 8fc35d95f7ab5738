package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/afriplan/takeoff/pkg/ai"
	"github.com/afriplan/takeoff/pkg/common"
)

type recordedCall struct {
	name   string
	prompt string
	model  string
	vision bool
}

type mockClient struct {
	mu    sync.Mutex
	calls []recordedCall
	// fill is invoked per call to populate the response struct; returning
	// an error simulates a failed model call.
	fill func(call recordedCall, out any) error
}

func (m *mockClient) record(call recordedCall, out any) error {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	fill := m.fill
	m.mu.Unlock()
	if fill != nil {
		return fill(call, out)
	}
	return nil
}

func (m *mockClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (m *mockClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	options := ai.GenerateOptions{}
	for _, o := range opts {
		o(&options)
	}
	return m.record(recordedCall{name: name, prompt: prompt, model: options.Model}, out)
}

func (m *mockClient) GenerateVisionCompletionWithFormat(ctx context.Context, name, description, prompt string, images []ai.PageImage, out any, opts ...ai.GenerateOption) error {
	options := ai.GenerateOptions{}
	for _, o := range opts {
		o(&options)
	}
	return m.record(recordedCall{name: name, prompt: prompt, model: options.Model, vision: true}, out)
}

func (m *mockClient) ResetMetrics()                {}
func (m *mockClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// completeRegister fills a register response that scores above any
// escalation threshold: all key fields present, everything extracted.
func completeRegister(out any) {
	r := out.(*registerExtraction)
	*r = registerExtraction{
		Boards: []boardExtract{{
			Name:         "DB1",
			MainBreakerA: 60,
			IsMain:       true,
			EarthLeakage: true,
			Confidence:   "extracted",
			Circuits: []circuitExtract{
				{ID: "C1", Type: "lighting", CableSizeMM2: 1.5, BreakerA: 10, Confidence: "extracted"},
				{ID: "C2", Type: "power", CableSizeMM2: 2.5, BreakerA: 20, Confidence: "extracted"},
			},
		}},
	}
}

func registerPages(unit string, n int) []common.Page {
	pages := make([]common.Page, 0, n)
	for i := 0; i < n; i++ {
		pages = append(pages, common.Page{
			ID:   string(rune('a' + i)),
			Name: "register.pdf",
			Text: "WAY DESCRIPTION BREAKER",
			Type: common.PageTypeRegister,
			Unit: unit,
		})
	}
	return pages
}

func TestExtractBatchesPages(t *testing.T) {
	client := &mockClient{fill: func(call recordedCall, out any) error {
		completeRegister(out)
		return nil
	}}
	e := NewExtractor(NewExtractorParams{Client: client})

	// 7 register pages must split into batches of 5 and 2
	set := common.PageSet{Pages: registerPages("block a", 7)}
	results, err := e.Extract(context.Background(), set, common.Classification{Mode: common.ModeAsBuilt})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if client.callCount() != 2 {
		t.Errorf("model called %d times, want 2 batches", client.callCount())
	}
	if len(results) != 1 || results[0].Summary.State != common.UnitExtracted {
		t.Fatalf("results = %+v, want one extracted unit", results)
	}
}

func TestExtractFailedUnitDegrades(t *testing.T) {
	client := &mockClient{fill: func(call recordedCall, out any) error {
		if strings.Contains(call.prompt, "block b") {
			return errors.New("model unavailable")
		}
		completeRegister(out)
		return nil
	}}
	e := NewExtractor(NewExtractorParams{Client: client, MaxRetries: 1})

	set := common.PageSet{Pages: append(registerPages("block a", 1), registerPages("block b", 1)...)}
	results, err := e.Extract(context.Background(), set, common.Classification{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (failed sibling kept)", len(results))
	}

	var failed *UnitResult
	for i := range results {
		if results[i].Summary.Unit == "block b" {
			failed = &results[i]
		}
	}
	if failed == nil {
		t.Fatal("block b result missing")
	}
	if failed.Summary.State != common.UnitFailed || failed.Summary.Score != 0 {
		t.Errorf("failed unit summary = %+v, want failed state with zero score", failed.Summary)
	}
	if len(failed.Summary.Warnings) == 0 {
		t.Error("failed unit should carry a warning")
	}
	if len(failed.Takeoff.Boards) != 0 {
		t.Error("failed unit should degrade to an empty take-off")
	}
}

func TestExtractEscalatesOnce(t *testing.T) {
	// First pass returns a sparse result (everything estimated), which
	// scores under the threshold; the escalated pass returns a complete one.
	var mu sync.Mutex
	pass := 0
	client := &mockClient{}
	client.fill = func(call recordedCall, out any) error {
		mu.Lock()
		pass++
		current := pass
		mu.Unlock()

		if current == 1 {
			r := out.(*registerExtraction)
			*r = registerExtraction{Boards: []boardExtract{{Name: "DB1", Confidence: "estimated"}}}
			return nil
		}
		completeRegister(out)
		return nil
	}

	e := NewExtractor(NewExtractorParams{
		Client:        client,
		EscalateModel: "bigger-model",
	})

	set := common.PageSet{Pages: registerPages("block a", 1)}
	results, err := e.Extract(context.Background(), set, common.Classification{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	r := results[0]
	if r.Summary.State != common.UnitEscalated {
		t.Errorf("state = %v, want escalated", r.Summary.State)
	}
	if client.callCount() != 2 {
		t.Errorf("model called %d times, want exactly 2 (no second escalation)", client.callCount())
	}
	if client.calls[1].model != "bigger-model" {
		t.Errorf("escalated call used model %q, want bigger-model", client.calls[1].model)
	}
	// escalated pass was better and must win
	if len(r.Takeoff.Boards) != 1 || len(r.Takeoff.Boards[0].Circuits) != 2 {
		t.Errorf("kept result = %+v, want the complete escalated attempt", r.Takeoff)
	}
}

func TestExtractEscalationKeepsBetterAttempt(t *testing.T) {
	// The escalated attempt is worse; the first result must be kept.
	var mu sync.Mutex
	pass := 0
	client := &mockClient{}
	client.fill = func(call recordedCall, out any) error {
		mu.Lock()
		pass++
		current := pass
		mu.Unlock()

		r := out.(*registerExtraction)
		if current == 1 {
			*r = registerExtraction{Boards: []boardExtract{{
				Name:       "DB1",
				Confidence: "extracted",
				Circuits:   []circuitExtract{{ID: "C1", Confidence: "estimated"}},
			}}}
		} else {
			*r = registerExtraction{Boards: []boardExtract{{Name: "DB1", Confidence: "estimated"}}}
		}
		return nil
	}

	e := NewExtractor(NewExtractorParams{Client: client})
	set := common.PageSet{Pages: registerPages("block a", 1)}
	results, err := e.Extract(context.Background(), set, common.Classification{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	r := results[0]
	if r.Summary.State != common.UnitEscalated {
		t.Errorf("state = %v, want escalated", r.Summary.State)
	}
	if len(r.Takeoff.Boards[0].Circuits) != 1 {
		t.Errorf("kept result lost the better first attempt: %+v", r.Takeoff)
	}
}

func TestExtractVisionOnEscalationOnly(t *testing.T) {
	var mu sync.Mutex
	pass := 0
	client := &mockClient{}
	client.fill = func(call recordedCall, out any) error {
		mu.Lock()
		pass++
		current := pass
		mu.Unlock()
		if current == 1 {
			r := out.(*registerExtraction)
			*r = registerExtraction{Boards: []boardExtract{{Name: "DB1", Confidence: "estimated"}}}
			return nil
		}
		completeRegister(out)
		return nil
	}

	loaderCalls := 0
	e := NewExtractor(NewExtractorParams{
		Client: client,
		ImageLoader: func(ctx context.Context, key string) (ai.PageImage, error) {
			loaderCalls++
			return ai.PageImage{Base64: "aGk=", MimeType: "data:image/png;base64,"}, nil
		},
	})

	pages := registerPages("block a", 1)
	pages[0].ImageKey = "pages/p1.png"
	set := common.PageSet{Pages: pages}

	_, err := e.Extract(context.Background(), set, common.Classification{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if client.calls[0].vision {
		t.Error("first pass must be text-only")
	}
	if !client.calls[1].vision {
		t.Error("escalated pass should use vision when images are available")
	}
	if loaderCalls != 1 {
		t.Errorf("image loader called %d times, want 1", loaderCalls)
	}
}
