package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/afriplan/takeoff/pkg/ai"
	"github.com/afriplan/takeoff/pkg/common"
)

type mockClient struct {
	formatErr   error
	formatCalls int
	fill        func(out any)
}

func (m *mockClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (m *mockClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	m.formatCalls++
	if m.formatErr != nil {
		return m.formatErr
	}
	if m.fill != nil {
		m.fill(out)
	}
	return nil
}

func (m *mockClient) GenerateVisionCompletionWithFormat(ctx context.Context, name, description, prompt string, images []ai.PageImage, out any, opts ...ai.GenerateOption) error {
	return errors.New("not implemented")
}

func (m *mockClient) ResetMetrics()                {}
func (m *mockClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func pageSet(types ...common.PageType) common.PageSet {
	set := common.PageSet{}
	for i, t := range types {
		set.Pages = append(set.Pages, common.Page{
			ID:   string(rune('a' + i)),
			Type: t,
			Text: "bedroom kitchen geyser",
		})
	}
	return set
}

func TestClassifyDecisionTable(t *testing.T) {
	tests := []struct {
		name     string
		set      common.PageSet
		opts     Options
		wantMode common.ExtractionMode
	}{
		{
			name:     "sld present means as built",
			set:      pageSet(common.PageTypeSLD, common.PageTypeLayoutLighting),
			wantMode: common.ModeAsBuilt,
		},
		{
			name:     "register present means as built",
			set:      pageSet(common.PageTypeRegister),
			wantMode: common.ModeAsBuilt,
		},
		{
			name:     "layouts only means estimation",
			set:      pageSet(common.PageTypeLayoutLighting, common.PageTypeLayoutPlugs),
			wantMode: common.ModeEstimation,
		},
		{
			name:     "inspection request wins",
			set:      pageSet(common.PageTypeSLD),
			opts:     Options{InspectionRequested: true},
			wantMode: common.ModeInspection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			got := Classify(context.Background(), tt.set, client, tt.opts)
			if got.Mode != tt.wantMode {
				t.Errorf("Classify().Mode = %v, want %v", got.Mode, tt.wantMode)
			}
			if client.formatCalls != 0 {
				t.Errorf("decision table case reached the model (%d calls)", client.formatCalls)
			}
		})
	}
}

func TestClassifyModelPath(t *testing.T) {
	set := pageSet(common.PageTypeUnknown, common.PageTypeLayoutLighting)
	client := &mockClient{
		fill: func(out any) {
			r := out.(*classifyResponse)
			r.Mode = "hybrid"
			r.Tier = "commercial"
			r.Confidence = 0.75
			r.Reasoning = "mixed evidence"
		},
	}

	got := Classify(context.Background(), set, client, Options{})
	if got.Mode != common.ModeHybrid || got.Tier != common.TierCommercial {
		t.Errorf("Classify() = %v/%v, want hybrid/commercial", got.Mode, got.Tier)
	}
	if got.Source != "model" {
		t.Errorf("Source = %q, want model", got.Source)
	}
}

func TestClassifyFallback(t *testing.T) {
	set := pageSet(common.PageTypeUnknown)
	client := &mockClient{formatErr: errors.New("model down")}

	got := Classify(context.Background(), set, client, Options{})
	if got.Source != "fallback" {
		t.Fatalf("Source = %q, want fallback", got.Source)
	}
	if got.Confidence < 0.3 || got.Confidence > 0.8 {
		t.Errorf("fallback confidence %.2f outside [0.3, 0.8]", got.Confidence)
	}
	if client.formatCalls != 2 {
		t.Errorf("model attempted %d times, want 2", client.formatCalls)
	}
}

func TestDetectTier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want common.ServiceTier
	}{
		{name: "residential", text: "bedroom kitchen geyser garage", want: common.TierResidential},
		{name: "industrial", text: "three phase motor dol 400v kva", want: common.TierIndustrial},
		{name: "commercial", text: "shop office tenant", want: common.TierCommercial},
		{name: "mixed", text: "shop office bedroom kitchen motor kva", want: common.TierMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := common.PageSet{Pages: []common.Page{{Text: tt.text}}}
			if got := detectTier(set); got != tt.want {
				t.Errorf("detectTier() = %v, want %v", got, tt.want)
			}
		})
	}
}
