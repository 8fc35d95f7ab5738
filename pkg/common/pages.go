// Package common defines the shared domain model of the take-off pipeline:
// drawing pages, extracted electrical entities, validation findings and
// bill-of-quantities line items.
package common

// PageType tags what a scanned drawing page contains. Tagging is rule-based
// and happens during ingest; unknown pages are carried through, never
// dropped.
type PageType string

const (
	PageTypeRegister       PageType = "register"
	PageTypeSLD            PageType = "sld"
	PageTypeLayoutLighting PageType = "layout_lighting"
	PageTypeLayoutPlugs    PageType = "layout_plugs"
	PageTypeLayoutCombined PageType = "layout_combined"
	PageTypeOutsideLights  PageType = "outside_lights"
	PageTypeUnknown        PageType = "unknown"
)

// Page is one scanned drawing sheet after rasterization and OCR. Text holds
// the OCR output; ImageKey optionally points at the rendered page in object
// storage for vision escalation.
type Page struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Text           string   `json:"text"`
	ImageKey       string   `json:"image_key,omitempty"`
	Type           PageType `json:"type"`
	Unit           string   `json:"unit"`
	TypeConfidence float64  `json:"type_confidence"`
}

// PageSet is the ingest result: all pages tagged with a type and a
// structural unit. Units lists the detected buildings/blocks; pages without
// a unit marker carry the empty unit "".
type PageSet struct {
	Pages      []Page   `json:"pages"`
	Units      []string `json:"units"`
	BlockNames []string `json:"block_names"`
}

// PagesFor returns the pages of the given unit and type, in input order.
func (ps *PageSet) PagesFor(unit string, t PageType) []Page {
	var out []Page
	for _, p := range ps.Pages {
		if p.Unit == unit && p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// ExtractionMode selects how the pipeline treats the drawing set.
type ExtractionMode string

const (
	ModeAsBuilt    ExtractionMode = "as_built"
	ModeEstimation ExtractionMode = "estimation"
	ModeInspection ExtractionMode = "inspection"
	ModeHybrid     ExtractionMode = "hybrid"
)

// ServiceTier is the installation class of the project.
type ServiceTier string

const (
	TierResidential ServiceTier = "residential"
	TierCommercial  ServiceTier = "commercial"
	TierIndustrial  ServiceTier = "industrial"
	TierMaintenance ServiceTier = "maintenance"
	TierMixed       ServiceTier = "mixed"
)

// Classification is the classifier's verdict on the drawing set. Source
// records whether it came from the decision table, the model, or the
// keyword fallback.
type Classification struct {
	Mode       ExtractionMode `json:"mode"`
	Tier       ServiceTier    `json:"tier"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Source     string         `json:"source"`
}
