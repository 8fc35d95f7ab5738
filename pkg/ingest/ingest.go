// Package ingest tags scanned drawing pages with a page type and a
// structural unit. Tagging is purely rule-based so a drawing set always
// ingests the same way; no model calls happen here.
package ingest

import (
	"regexp"
	"sort"
	"strings"

	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/logger"
)

const (
	filenameWeight = 10.0
	textHintWeight = 15.0
	minTypeScore   = 10.0
)

// Filename keywords per page type. A hit in the page name is a strong
// signal because drawing offices name sheets by content.
var filenameKeywords = map[common.PageType][]string{
	common.PageTypeRegister:       {"register", "schedule", "legend", "db schedule", "circuit list"},
	common.PageTypeSLD:            {"sld", "single line", "single-line", "schematic", "distribution"},
	common.PageTypeLayoutLighting: {"lighting", "lights", "luminaire"},
	common.PageTypeLayoutPlugs:    {"plug", "power", "socket", "small power"},
	common.PageTypeLayoutCombined: {"electrical layout", "combined", "services"},
	common.PageTypeOutsideLights:  {"outside", "external", "site lighting", "yard", "street"},
}

// Body text hints per page type. Register sheets OCR into tabular
// vocabulary; layouts into room names and fixture labels.
var textHints = map[common.PageType][]string{
	common.PageTypeRegister: {
		"way", "circuit description", "breaker", "circuit schedule",
		"db legend", "mcb", "curve", "phase",
	},
	common.PageTypeSLD: {
		"earth leakage", "elcb", "main switch", "surge", "busbar",
		"kwh", "meter", "supply",
	},
	common.PageTypeLayoutLighting: {
		"downlight", "ceiling light", "floodlight", "bulkhead", "pendant",
		"dimmer", "lever switch", "emergency light",
	},
	common.PageTypeLayoutPlugs: {
		"double plug", "single plug", "socket outlet", "16a", "weatherproof",
		"isolator", "stove", "geyser",
	},
	common.PageTypeOutsideLights: {
		"pole", "street light", "gate motor", "trench", "sleeve",
		"paving", "boundary",
	},
}

var roomNames = []string{
	"kitchen", "bedroom", "bathroom", "lounge", "garage", "passage",
	"scullery", "pantry", "store", "office", "toilet", "laundry",
	"dining", "patio", "balcony", "entrance",
}

// Graphics-heavy SLD sheets OCR to little more than cable annotations, so
// cable specs are scored toward sld rather than treated as noise.
var cableSpecRe = regexp.MustCompile(`(?i)\b\d+\s*x\s*\d+(\.\d+)?\s*mm`)
var swaRe = regexp.MustCompile(`(?i)\b(swa|ecc|surfix|cabtyre)\b`)

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(block\s+[a-z0-9]+)\b`),
	regexp.MustCompile(`(?i)\b(house\s+\d+)\b`),
	regexp.MustCompile(`(?i)\b(unit\s+[a-z0-9]+)\b`),
	regexp.MustCompile(`(?i)\b(phase\s+\d+)\b`),
}

// Ingest tags every page with a type, a confidence and a structural unit,
// and returns the assembled PageSet. Pages that match nothing are tagged
// unknown and kept.
func Ingest(pages []common.Page) common.PageSet {
	set := common.PageSet{Pages: make([]common.Page, 0, len(pages))}
	seenUnits := map[string]bool{}

	for _, p := range pages {
		p.Type, p.TypeConfidence = classifyPage(p.Name, p.Text)
		p.Unit = detectUnit(p.Name, p.Text)
		if p.Unit != "" && !seenUnits[p.Unit] {
			seenUnits[p.Unit] = true
			set.Units = append(set.Units, p.Unit)
			set.BlockNames = append(set.BlockNames, p.Unit)
		}
		set.Pages = append(set.Pages, p)
	}

	// A set with only unit-less pages still needs one unit to extract
	if len(set.Units) == 0 {
		set.Units = []string{""}
	}
	sort.Strings(set.Units)

	logger.Info("[Ingest] Tagged pages", "pages", len(set.Pages), "units", len(set.Units))
	return set
}

func classifyPage(name, text string) (common.PageType, float64) {
	lname := strings.ToLower(name)
	ltext := strings.ToLower(text)

	scores := map[common.PageType]float64{}

	for pt, kws := range filenameKeywords {
		for _, kw := range kws {
			if strings.Contains(lname, kw) {
				scores[pt] += filenameWeight
			}
		}
	}
	for pt, hints := range textHints {
		for _, h := range hints {
			if strings.Contains(ltext, h) {
				scores[pt] += textHintWeight
			}
		}
	}

	// Cable annotations on an otherwise sparse page point at an SLD
	cableHits := len(cableSpecRe.FindAllString(ltext, 10))
	scores[common.PageTypeSLD] += float64(cableHits) * 5
	if swaRe.MatchString(ltext) {
		scores[common.PageTypeSLD] += 5
		scores[common.PageTypeOutsideLights] += 5
	}

	roomHits := 0
	for _, rn := range roomNames {
		if strings.Contains(ltext, rn) {
			roomHits++
		}
	}
	if roomHits > 0 {
		lightScore := scores[common.PageTypeLayoutLighting]
		plugScore := scores[common.PageTypeLayoutPlugs]
		switch {
		case lightScore > 0 && plugScore > 0:
			scores[common.PageTypeLayoutCombined] += float64(roomHits)*5 + lightScore + plugScore
		case lightScore > 0:
			scores[common.PageTypeLayoutLighting] += float64(roomHits) * 5
		case plugScore > 0:
			scores[common.PageTypeLayoutPlugs] += float64(roomHits) * 5
		default:
			scores[common.PageTypeLayoutCombined] += float64(roomHits) * 5
		}
	}

	best := common.PageTypeUnknown
	var bestScore, secondScore float64
	// iterate in fixed order so ties resolve deterministically
	for _, pt := range []common.PageType{
		common.PageTypeRegister,
		common.PageTypeSLD,
		common.PageTypeLayoutLighting,
		common.PageTypeLayoutPlugs,
		common.PageTypeLayoutCombined,
		common.PageTypeOutsideLights,
	} {
		s := scores[pt]
		if s > bestScore {
			secondScore = bestScore
			best, bestScore = pt, s
		} else if s > secondScore {
			secondScore = s
		}
	}

	if bestScore < minTypeScore {
		return common.PageTypeUnknown, 0
	}

	conf := 0.5
	if bestScore > 0 {
		conf += 0.45 * (bestScore - secondScore) / bestScore
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return best, conf
}

func detectUnit(name, text string) string {
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(name); m != nil {
			return common.NormalizeName(m[1])
		}
	}
	// sheet titles usually land in the first OCR lines
	head := text
	if len(head) > 400 {
		head = head[:400]
	}
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(head); m != nil {
			return common.NormalizeName(m[1])
		}
	}
	return ""
}
