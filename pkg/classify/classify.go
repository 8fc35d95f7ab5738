// Package classify decides the extraction mode and service tier for a
// drawing set. A decision table handles the clear-cut cases; only ambiguous
// sets cost a model call, and a keyword fallback covers model failure.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/afriplan/takeoff/internal/util"
	"github.com/afriplan/takeoff/pkg/ai"
	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/logger"
)

// Options tweaks classification behaviour.
type Options struct {
	// InspectionRequested forces inspection mode regardless of page mix.
	InspectionRequested bool
	// MaxRetries bounds model attempts before the keyword fallback kicks
	// in. Zero means 2.
	MaxRetries int
}

type classifyResponse struct {
	Mode       string  `json:"mode" jsonschema_description:"Extraction mode: as_built, estimation, inspection or hybrid"`
	Tier       string  `json:"tier" jsonschema_description:"Service tier: residential, commercial, industrial, maintenance or mixed"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence in this classification between 0 and 1"`
	Reasoning  string  `json:"reasoning" jsonschema_description:"One sentence explaining the decision"`
}

// Classify determines the extraction mode and service tier for the page
// set. It never fails: when the decision table is not decisive and the
// model call errors out, a keyword fallback answers with clamped
// confidence.
func Classify(
	ctx context.Context,
	set common.PageSet,
	client ai.DrawingAIClient,
	opts Options,
) common.Classification {
	if opts.InspectionRequested {
		return common.Classification{
			Mode:       common.ModeInspection,
			Tier:       detectTier(set),
			Confidence: 1.0,
			Reasoning:  "inspection requested by caller",
			Source:     "table",
		}
	}

	counts := map[common.PageType]int{}
	for _, p := range set.Pages {
		counts[p.Type]++
	}
	structured := counts[common.PageTypeSLD] + counts[common.PageTypeRegister]
	layouts := counts[common.PageTypeLayoutLighting] + counts[common.PageTypeLayoutPlugs] +
		counts[common.PageTypeLayoutCombined] + counts[common.PageTypeOutsideLights]

	switch {
	case structured > 0:
		// SLDs and registers record what was actually installed
		return common.Classification{
			Mode:       common.ModeAsBuilt,
			Tier:       detectTier(set),
			Confidence: 0.9,
			Reasoning:  fmt.Sprintf("%d structured pages present", structured),
			Source:     "table",
		}
	case layouts > 0 && counts[common.PageTypeUnknown] == 0:
		return common.Classification{
			Mode:       common.ModeEstimation,
			Tier:       detectTier(set),
			Confidence: 0.85,
			Reasoning:  "layout pages only, quantities must be counted",
			Source:     "table",
		}
	}

	retries := opts.MaxRetries
	if retries <= 0 {
		retries = 2
	}

	var resp classifyResponse
	err := util.RetryErrWithContext(ctx, retries, func() error {
		return client.GenerateCompletionWithFormat(
			ctx,
			"drawing_classification",
			"Mode and tier classification of an electrical drawing set",
			buildPrompt(set),
			&resp,
		)
	})
	if err != nil {
		logger.Warn("[Classify] Model classification failed, using keyword fallback", "err", err)
		return fallbackClassify(set)
	}

	c := common.Classification{
		Mode:       parseMode(resp.Mode),
		Tier:       parseTier(resp.Tier),
		Confidence: clamp(resp.Confidence, 0, 1),
		Reasoning:  resp.Reasoning,
		Source:     "model",
	}
	logger.Info("[Classify] Classified drawing set", "mode", c.Mode, "tier", c.Tier, "confidence", c.Confidence)
	return c
}

func buildPrompt(set common.PageSet) string {
	var b strings.Builder
	b.WriteString("Classify this set of scanned electrical drawing pages.\n")
	b.WriteString("Decide the extraction mode (as_built, estimation, inspection, hybrid) ")
	b.WriteString("and the service tier (residential, commercial, industrial, maintenance, mixed).\n\n")
	for _, p := range set.Pages {
		text := p.Text
		if len(text) > 300 {
			text = text[:300]
		}
		fmt.Fprintf(&b, "Page %q (tagged %s): %s\n", p.Name, p.Type, text)
	}
	return b.String()
}

// fallbackClassify scores mode keywords over all page text. Confidence is
// clamped to [0.3, 0.8] because keyword evidence is weak either way.
func fallbackClassify(set common.PageSet) common.Classification {
	text := allText(set)

	asBuiltHits := countHits(text, []string{"as built", "as-built", "existing", "installed", "circuit schedule"})
	estimateHits := countHits(text, []string{"proposed", "new installation", "tender", "layout"})

	mode := common.ModeEstimation
	hits := estimateHits
	if asBuiltHits > estimateHits {
		mode = common.ModeAsBuilt
		hits = asBuiltHits
	} else if asBuiltHits == estimateHits && asBuiltHits > 0 {
		mode = common.ModeHybrid
	}

	conf := clamp(0.3+float64(hits)*0.1, 0.3, 0.8)
	return common.Classification{
		Mode:       mode,
		Tier:       detectTier(set),
		Confidence: conf,
		Reasoning:  "keyword fallback",
		Source:     "fallback",
	}
}

func detectTier(set common.PageSet) common.ServiceTier {
	text := allText(set)

	industrial := countHits(text, []string{"three phase", "3 phase", "400v", "kva", "motor", "dol", "vsd", "busbar"})
	commercial := countHits(text, []string{"shop", "office", "retail", "reception", "tenant", "mall"})
	residential := countHits(text, []string{"bedroom", "kitchen", "lounge", "geyser", "dwelling", "house", "garage"})

	strong := 0
	for _, n := range []int{industrial, commercial, residential} {
		if n >= 2 {
			strong++
		}
	}
	if strong > 1 {
		return common.TierMixed
	}
	switch {
	case industrial >= commercial && industrial >= residential && industrial > 0:
		return common.TierIndustrial
	case commercial >= residential && commercial > 0:
		return common.TierCommercial
	case residential > 0:
		return common.TierResidential
	default:
		return common.TierResidential
	}
}

func allText(set common.PageSet) string {
	var b strings.Builder
	for _, p := range set.Pages {
		b.WriteString(strings.ToLower(p.Name))
		b.WriteString(" ")
		b.WriteString(strings.ToLower(p.Text))
		b.WriteString(" ")
	}
	return b.String()
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func parseMode(s string) common.ExtractionMode {
	switch common.ExtractionMode(strings.ToLower(strings.TrimSpace(s))) {
	case common.ModeAsBuilt:
		return common.ModeAsBuilt
	case common.ModeInspection:
		return common.ModeInspection
	case common.ModeHybrid:
		return common.ModeHybrid
	default:
		return common.ModeEstimation
	}
}

func parseTier(s string) common.ServiceTier {
	switch common.ServiceTier(strings.ToLower(strings.TrimSpace(s))) {
	case common.TierCommercial:
		return common.TierCommercial
	case common.TierIndustrial:
		return common.TierIndustrial
	case common.TierMaintenance:
		return common.TierMaintenance
	case common.TierMixed:
		return common.TierMixed
	default:
		return common.TierResidential
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
