// Package report assembles the final take-off report and drives the
// pipeline end to end: ingest, classify, extract, merge, corrections,
// hierarchy, validation and pricing.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/afriplan/takeoff/pkg/ai"
	"github.com/afriplan/takeoff/pkg/classify"
	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/extract"
	"github.com/afriplan/takeoff/pkg/hierarchy"
	"github.com/afriplan/takeoff/pkg/ingest"
	"github.com/afriplan/takeoff/pkg/logger"
	"github.com/afriplan/takeoff/pkg/merge"
	"github.com/afriplan/takeoff/pkg/pricing"
	"github.com/afriplan/takeoff/pkg/review"
	"github.com/afriplan/takeoff/pkg/validate"
)

// Report is the complete outcome of one take-off run. JSON is the only
// contract; the worker stores it as-is and the API serves it back.
type Report struct {
	RunID          string                  `json:"run_id"`
	ProjectID      string                  `json:"project_id"`
	Classification common.Classification   `json:"classification"`
	Units          []common.UnitSummary    `json:"units"`
	Project        common.Project          `json:"project"`
	Hierarchy      hierarchy.Hierarchy     `json:"hierarchy"`
	Validation     common.ValidationReport `json:"validation"`
	Pricing        common.PricingResult    `json:"pricing"`
	Metrics        ai.ModelMetrics         `json:"metrics"`
	CreatedAt      time.Time               `json:"created_at"`
}

// NewPipelineParams are the arguments for NewPipeline.
type NewPipelineParams struct {
	Client    ai.DrawingAIClient
	Extractor *extract.Extractor
	Validator *validate.Engine
	Pricer    *pricing.Engine
	Classify  classify.Options
}

// Pipeline runs the full take-off over a page set.
//
// A Pipeline should be created using NewPipeline.
type Pipeline struct {
	client       ai.DrawingAIClient
	extractor    *extract.Extractor
	validator    *validate.Engine
	pricer       *pricing.Engine
	classifyOpts classify.Options
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(params NewPipelineParams) *Pipeline {
	return &Pipeline{
		client:       params.Client,
		extractor:    params.Extractor,
		validator:    params.Validator,
		pricer:       params.Pricer,
		classifyOpts: params.Classify,
	}
}

// Run executes the pipeline over the given pages and returns the report.
// Corrections recorded against earlier runs of the same project replay over
// the merged take-off before validation and pricing.
func (p *Pipeline) Run(
	ctx context.Context,
	runID string,
	projectID string,
	pages []common.Page,
	corrections []common.Correction,
) (*Report, error) {
	start := time.Now()
	p.client.ResetMetrics()

	set := ingest.Ingest(pages)
	classification := classify.Classify(ctx, set, p.client, p.classifyOpts)

	results, err := p.extractor.Extract(ctx, set, classification)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	summaries := make([]common.UnitSummary, 0, len(results))
	takeoffs := make([]common.UnitTakeoff, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, r.Summary)
		takeoffs = append(takeoffs, r.Takeoff)
	}

	project := merge.Project(takeoffs)
	if warnings := review.Apply(&project, corrections); len(warnings) > 0 {
		project.MergeWarnings = append(project.MergeWarnings, warnings...)
	}

	hier := hierarchy.Build(project)
	validation := p.validator.Validate(project)
	priced := p.pricer.Price(project, hier, validation)

	report := &Report{
		RunID:          runID,
		ProjectID:      projectID,
		Classification: classification,
		Units:          summaries,
		Project:        project,
		Hierarchy:      hier,
		Validation:     validation,
		Pricing:        priced,
		Metrics:        p.client.GetMetrics(),
		CreatedAt:      time.Now().UTC(),
	}

	logger.Info("[Report] Run complete",
		"run_id", runID,
		"units", len(summaries),
		"score", validation.ComplianceScore,
		"grand_total", priced.GrandTotal,
		"duration", time.Since(start).Round(time.Millisecond))
	return report, nil
}
