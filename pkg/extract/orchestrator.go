// Package extract turns tagged drawing pages into structured take-off data
// through schema-constrained model calls. Units fan out concurrently; a
// unit that scores below the escalation threshold is re-extracted once with
// the stronger model tier before results are accepted.
package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/afriplan/takeoff/internal/util"
	"github.com/afriplan/takeoff/pkg/ai"
	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/logger"
	"github.com/afriplan/takeoff/pkg/merge"

	"golang.org/x/sync/errgroup"
)

const (
	// maxPagesPerRequest bounds how many same-type pages share one model
	// call.
	maxPagesPerRequest = 5

	defaultParallelUnits       = 4
	defaultMaxRetries          = 3
	defaultEscalationThreshold = 0.70
)

// ImageLoader fetches the rendered image of a page for vision escalation.
type ImageLoader func(ctx context.Context, imageKey string) (ai.PageImage, error)

// UnitResult is the extraction outcome for one structural unit.
type UnitResult struct {
	Summary common.UnitSummary
	Takeoff common.UnitTakeoff
}

// Extractor runs the per-unit extraction fan-out.
//
// An Extractor should be created using NewExtractor.
type Extractor struct {
	client              ai.DrawingAIClient
	extractModel        string
	escalateModel       string
	parallelUnits       int
	maxRetries          int
	escalationThreshold float64
	imageLoader         ImageLoader
}

// NewExtractorParams configures an Extractor. Model names are optional;
// when empty the client's configured defaults apply, which means
// EscalateModel empty degrades escalation to a plain re-run.
type NewExtractorParams struct {
	Client              ai.DrawingAIClient
	ExtractModel        string
	EscalateModel       string
	ParallelUnits       int
	MaxRetries          int
	EscalationThreshold float64
	ImageLoader         ImageLoader
}

// NewExtractor creates an Extractor with the provided parameters, applying
// defaults for anything unset.
func NewExtractor(params NewExtractorParams) *Extractor {
	parallel := params.ParallelUnits
	if parallel <= 0 {
		parallel = defaultParallelUnits
	}
	retries := params.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	threshold := params.EscalationThreshold
	if threshold <= 0 {
		threshold = defaultEscalationThreshold
	}

	return &Extractor{
		client:              params.Client,
		extractModel:        params.ExtractModel,
		escalateModel:       params.EscalateModel,
		parallelUnits:       parallel,
		maxRetries:          retries,
		escalationThreshold: threshold,
		imageLoader:         params.ImageLoader,
	}
}

// Extract processes every structural unit of the page set concurrently and
// returns one result per unit. A unit whose extraction fails entirely
// degrades to an empty zero-confidence result with a warning; sibling units
// are never discarded.
func (e *Extractor) Extract(
	ctx context.Context,
	set common.PageSet,
	classification common.Classification,
) ([]UnitResult, error) {
	units := unitsOf(set)

	// every unit starts pending; the fan-out overwrites each entry with
	// its terminal result
	var mu sync.Mutex
	results := make(map[string]UnitResult, len(units))
	for _, unit := range units {
		results[unit] = UnitResult{
			Summary: common.UnitSummary{Unit: unit, State: common.UnitPending},
			Takeoff: common.UnitTakeoff{Unit: unit},
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.parallelUnits)

	for _, unit := range units {
		eg.Go(func() error {
			result := e.extractUnit(egCtx, set, unit, classification)

			mu.Lock()
			results[unit] = result
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// restore deterministic unit order after the fan-out
	ordered := make([]UnitResult, 0, len(units))
	for _, unit := range units {
		ordered = append(ordered, results[unit])
	}
	return ordered, nil
}

func (e *Extractor) extractUnit(
	ctx context.Context,
	set common.PageSet,
	unit string,
	classification common.Classification,
) UnitResult {
	logger.Info("[Extract] Processing unit", "unit", unit)

	takeoff, warnings, failed := e.runPass(ctx, set, unit, e.extractModel, false)
	if failed {
		logger.Warn("[Extract] Unit failed, degrading to empty result", "unit", unit)
		return UnitResult{
			Summary: common.UnitSummary{
				Unit:     unit,
				State:    common.UnitFailed,
				Score:    0,
				Warnings: append(warnings, "extraction failed for every page group"),
			},
			Takeoff: common.UnitTakeoff{Unit: unit},
		}
	}

	score := scoreUnit(takeoff)
	state := common.UnitExtracted

	if score < e.escalationThreshold {
		logger.Info("[Extract] Escalating unit", "unit", unit, "score", score)
		escTakeoff, escWarnings, escFailed := e.runPass(ctx, set, unit, e.escalateModel, true)
		state = common.UnitEscalated

		if !escFailed {
			escScore := scoreUnit(escTakeoff)
			// keep whichever attempt scored better
			if escScore > score {
				takeoff, warnings, score = escTakeoff, escWarnings, escScore
			}
		} else {
			warnings = append(warnings, "escalation pass failed, kept first attempt")
		}
	}

	logger.Info("[Extract] Unit done", "unit", unit, "state", state, "score", score)
	return UnitResult{
		Summary: common.UnitSummary{
			Unit:     unit,
			State:    state,
			Score:    score,
			Warnings: warnings,
		},
		Takeoff: takeoff,
	}
}

// runPass extracts every page group of the unit once with the given model.
// failed is true only when every single request errored.
func (e *Extractor) runPass(
	ctx context.Context,
	set common.PageSet,
	unit string,
	model string,
	escalated bool,
) (common.UnitTakeoff, []string, bool) {
	var (
		partials []common.UnitTakeoff
		warnings []string
		requests int
		failures int
	)

	for _, pageType := range []common.PageType{
		common.PageTypeRegister,
		common.PageTypeSLD,
		common.PageTypeLayoutLighting,
		common.PageTypeLayoutPlugs,
		common.PageTypeLayoutCombined,
		common.PageTypeOutsideLights,
	} {
		pages := set.PagesFor(unit, pageType)
		for _, batch := range batchPages(pages, maxPagesPerRequest) {
			requests++
			partial, err := e.extractBatch(ctx, unit, pageType, batch, model, escalated)
			if err != nil {
				failures++
				warnings = append(warnings, fmt.Sprintf("%s pages: %v", pageType, err))
				logger.Warn("[Extract] Page group failed", "unit", unit, "type", pageType, "err", err)
				continue
			}
			partials = append(partials, partial)
		}
	}

	merged, mergeWarnings := merge.Partials(unit, partials)
	warnings = append(warnings, mergeWarnings...)
	return merged, warnings, requests > 0 && failures == requests
}

func (e *Extractor) extractBatch(
	ctx context.Context,
	unit string,
	pageType common.PageType,
	pages []common.Page,
	model string,
	escalated bool,
) (common.UnitTakeoff, error) {
	prompt := buildPrompt(pageType, unit, pages)
	pageSource := pages[0].Name

	var opts []ai.GenerateOption
	if model != "" {
		opts = append(opts, ai.WithModel(model))
	}

	images := e.loadImages(ctx, pages, escalated)

	call := func(name, description string, out any) error {
		return util.RetryErrWithContext(ctx, e.maxRetries, func() error {
			if len(images) > 0 {
				return e.client.GenerateVisionCompletionWithFormat(ctx, name, description, prompt, images, out, opts...)
			}
			return e.client.GenerateCompletionWithFormat(ctx, name, description, prompt, out, opts...)
		})
	}

	switch pageType {
	case common.PageTypeRegister, common.PageTypeSLD:
		var resp registerExtraction
		if err := call("register_extraction", "Boards, circuits and supplies from register or SLD pages", &resp); err != nil {
			return common.UnitTakeoff{}, err
		}
		return resp.toTakeoff(pageSource), nil

	case common.PageTypeLayoutLighting, common.PageTypeLayoutCombined:
		var resp layoutExtraction
		if err := call("layout_extraction", "Rooms with fixture counts from layout pages", &resp); err != nil {
			return common.UnitTakeoff{}, err
		}
		return resp.toTakeoff(), nil

	case common.PageTypeLayoutPlugs:
		var resp plugExtraction
		if err := call("plug_extraction", "Rooms with socket counts and fixed equipment from plug layout pages", &resp); err != nil {
			return common.UnitTakeoff{}, err
		}
		return resp.toTakeoff(), nil

	case common.PageTypeOutsideLights:
		var resp outsideExtraction
		if err := call("outside_extraction", "External fixtures and site cable runs", &resp); err != nil {
			return common.UnitTakeoff{}, err
		}
		return resp.toTakeoff(), nil
	}

	return common.UnitTakeoff{}, fmt.Errorf("no extraction schema for page type %s", pageType)
}

// loadImages fetches rendered page images for vision requests. Images only
// join escalated calls; failures degrade to a text-only request.
func (e *Extractor) loadImages(ctx context.Context, pages []common.Page, escalated bool) []ai.PageImage {
	if !escalated || e.imageLoader == nil {
		return nil
	}

	var images []ai.PageImage
	for _, p := range pages {
		if p.ImageKey == "" {
			continue
		}
		img, err := e.imageLoader(ctx, p.ImageKey)
		if err != nil {
			logger.Warn("[Extract] Could not load page image", "page", p.Name, "err", err)
			continue
		}
		images = append(images, img)
	}
	return images
}

func batchPages(pages []common.Page, size int) [][]common.Page {
	var batches [][]common.Page
	for start := 0; start < len(pages); start += size {
		end := start + size
		if end > len(pages) {
			end = len(pages)
		}
		batches = append(batches, pages[start:end])
	}
	return batches
}

// unitsOf lists the units present on the pages, in first-seen order, so
// unit-less pages (unit "") are processed too.
func unitsOf(set common.PageSet) []string {
	seen := map[string]bool{}
	var units []string
	for _, p := range set.Pages {
		if !seen[p.Unit] {
			seen[p.Unit] = true
			units = append(units, p.Unit)
		}
	}
	return units
}
