package common

// BQSection identifies a section of the bill of quantities. The ordering
// A through K is the order sections appear in the final document.
type BQSection string

const (
	SectionPreliminaries   BQSection = "A"
	SectionSupplyMains     BQSection = "B"
	SectionBoards          BQSection = "C"
	SectionWiring          BQSection = "D"
	SectionLighting        BQSection = "E"
	SectionPower           BQSection = "F"
	SectionFixedEquipment  BQSection = "G"
	SectionExternalWorks   BQSection = "H"
	SectionEarthingBonding BQSection = "I"
	SectionTesting         BQSection = "J"
	SectionProvisionalSums BQSection = "K"
)

// SectionTitles maps each section to its document heading.
var SectionTitles = map[BQSection]string{
	SectionPreliminaries:   "Preliminaries & General",
	SectionSupplyMains:     "Supply & Mains",
	SectionBoards:          "Distribution Boards",
	SectionWiring:          "Wiring & Cabling",
	SectionLighting:        "Lighting",
	SectionPower:           "Power Outlets",
	SectionFixedEquipment:  "Fixed Equipment Connections",
	SectionExternalWorks:   "External & Site Works",
	SectionEarthingBonding: "Earthing & Bonding",
	SectionTesting:         "Testing & Commissioning",
	SectionProvisionalSums: "Provisional Sums",
}

// LineItem is one priced (or rate-only) row of the bill of quantities.
// Source carries the confidence tag of the quantity it was derived from.
type LineItem struct {
	ID          string     `json:"id"`
	ItemNo      string     `json:"item_no"`
	Section     BQSection  `json:"section"`
	Description string     `json:"description"`
	Unit        string     `json:"unit"`
	Qty         float64    `json:"qty"`
	UnitPrice   float64    `json:"unit_price"`
	Total       float64    `json:"total"`
	Source      Confidence `json:"source"`
	RateOnly    bool       `json:"rate_only,omitempty"`
}

// PaymentSchedule splits the grand total into the standard deposit,
// progress and completion payments.
type PaymentSchedule struct {
	DepositPct    float64 `json:"deposit_pct"`
	ProgressPct   float64 `json:"progress_pct"`
	CompletionPct float64 `json:"completion_pct"`
	Deposit       float64 `json:"deposit"`
	Progress      float64 `json:"progress"`
	Completion    float64 `json:"completion"`
}

// PricingResult carries both renditions of the bill of quantities. The
// quantity BQ has blank rates for the client to price; the estimated BQ
// prices the same quantities from the rate tables. Quantities are always
// identical between the two.
type PricingResult struct {
	QuantityBQ  []LineItem `json:"quantity_bq"`
	EstimatedBQ []LineItem `json:"estimated_bq"`

	Subtotal          float64 `json:"subtotal"`
	ContingencyPct    float64 `json:"contingency_pct"`
	ContingencyAmount float64 `json:"contingency_amount"`
	MarkupPct         float64 `json:"markup_pct"`
	MarkupAmount      float64 `json:"markup_amount"`
	VATPct            float64 `json:"vat_pct"`
	VATAmount         float64 `json:"vat_amount"`
	GrandTotal        float64 `json:"grand_total"`

	Payments PaymentSchedule `json:"payments"`
}
