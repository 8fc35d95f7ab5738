package pricing

import (
	"fmt"
	"os"

	"github.com/afriplan/takeoff/pkg/common"

	"gopkg.in/yaml.v3"
)

// RateTable drives the estimated bill of quantities. Rates are matched by
// normalized description first, then by section default. Everything here is
// YAML-overridable so contractors can load their own price books.
type RateTable struct {
	Currency string `yaml:"currency"`

	ContingencyPct float64 `yaml:"contingency_pct"`
	MarkupPct      float64 `yaml:"markup_pct"`
	VATPct         float64 `yaml:"vat_pct"`

	DepositPct    float64 `yaml:"deposit_pct"`
	ProgressPct   float64 `yaml:"progress_pct"`
	CompletionPct float64 `yaml:"completion_pct"`

	// ItemRates maps a normalized line description to its unit rate.
	ItemRates map[string]float64 `yaml:"item_rates"`
	// SectionDefaults backstops items with no exact rate, keyed by section
	// letter.
	SectionDefaults map[common.BQSection]float64 `yaml:"section_defaults"`
	// SiteMultipliers scale external works rates for named site conditions
	// (rocky soil, steep terrain, remote site).
	SiteMultipliers map[string]float64 `yaml:"site_multipliers"`
}

// DefaultRates returns the compiled-in price book. Rates are in ZAR and
// reflect typical residential contractor pricing.
func DefaultRates() RateTable {
	return RateTable{
		Currency: "ZAR",

		ContingencyPct: 10,
		MarkupPct:      20,
		VATPct:         15,

		DepositPct:    40,
		ProgressPct:   40,
		CompletionPct: 20,

		ItemRates: map[string]float64{
			"site establishment":                    3500,
			"certificate of compliance":             1500,
			"supply connection and metering":        4500,
			"distribution board, flush mounted":     2800,
			"earth leakage unit 63a/30ma":           950,
			"surge protection device":               850,
			"main switch / isolator":                450,
			"circuit breaker":                       180,
			"1.5mm2 cable, wired in conduit":        38,
			"2.5mm2 cable, wired in conduit":        48,
			"4mm2 cable, wired in conduit":          62,
			"6mm2 cable, wired in conduit":          85,
			"10mm2 cable, wired in conduit":         135,
			"16mm2 cable, wired in conduit":         190,
			"ceiling light point":                   320,
			"downlight point":                       280,
			"floodlight point":                      450,
			"security light point":                  420,
			"bulkhead light point":                  350,
			"tube light point":                      380,
			"pendant light point":                   340,
			"wall light point":                      330,
			"emergency light point":                 650,
			"light point":                           320,
			"one lever switch":                      140,
			"two lever switch":                      180,
			"dimmer switch":                         350,
			"motion sensor":                         480,
			"single socket outlet":                  260,
			"double socket outlet":                  310,
			"weatherproof socket outlet":            420,
			"floor socket outlet":                   520,
			"usb socket outlet":                     450,
			"tv point":                              380,
			"data point":                            420,
			"socket outlet":                         280,
			"stove connection":                      850,
			"geyser connection":                     780,
			"ac unit connection":                    950,
			"pump connection":                       880,
			"equipment isolator":                    450,
			"equipment connection":                  750,
			"trenching and backfill":                95,
			"underground cable, laid in trench":     160,
			"external cable, surface or catenary":   110,
			"earth spike and connection":            650,
			"main earth bar and bonding":            850,
			"bonding of metalwork":                  320,
			"testing and commissioning, per unit":   950,
		},
		SectionDefaults: map[common.BQSection]float64{
			common.SectionPreliminaries:   2500,
			common.SectionSupplyMains:     1800,
			common.SectionBoards:          1200,
			common.SectionWiring:          55,
			common.SectionLighting:        320,
			common.SectionPower:           280,
			common.SectionFixedEquipment:  750,
			common.SectionExternalWorks:   120,
			common.SectionEarthingBonding: 500,
			common.SectionTesting:         950,
		},
		SiteMultipliers: map[string]float64{
			"rocky_soil":    1.35,
			"clay_soil":     1.15,
			"steep_terrain": 1.2,
			"remote_site":   1.25,
		},
	}
}

// LoadRates overlays a YAML price book onto the defaults. Fields absent
// from the file keep their default values; maps are replaced per key.
func LoadRates(path string) (RateTable, error) {
	rates := DefaultRates()

	data, err := os.ReadFile(path)
	if err != nil {
		return rates, fmt.Errorf("read rate table: %w", err)
	}

	var overlay RateTable
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return rates, fmt.Errorf("parse rate table: %w", err)
	}

	if overlay.Currency != "" {
		rates.Currency = overlay.Currency
	}
	if overlay.ContingencyPct != 0 {
		rates.ContingencyPct = overlay.ContingencyPct
	}
	if overlay.MarkupPct != 0 {
		rates.MarkupPct = overlay.MarkupPct
	}
	if overlay.VATPct != 0 {
		rates.VATPct = overlay.VATPct
	}
	if overlay.DepositPct != 0 {
		rates.DepositPct = overlay.DepositPct
	}
	if overlay.ProgressPct != 0 {
		rates.ProgressPct = overlay.ProgressPct
	}
	if overlay.CompletionPct != 0 {
		rates.CompletionPct = overlay.CompletionPct
	}
	for k, v := range overlay.ItemRates {
		rates.ItemRates[common.NormalizeName(k)] = v
	}
	for k, v := range overlay.SectionDefaults {
		rates.SectionDefaults[k] = v
	}
	for k, v := range overlay.SiteMultipliers {
		rates.SiteMultipliers[k] = v
	}

	return rates, nil
}

// rateFor resolves the unit rate for a line. The bool reports whether any
// rate was found at all.
func (r *RateTable) rateFor(section common.BQSection, description string) (float64, bool) {
	if rate, ok := r.ItemRates[common.NormalizeName(description)]; ok {
		return rate, true
	}
	if rate, ok := r.SectionDefaults[section]; ok {
		return rate, true
	}
	return 0, false
}

// externalMultiplier compounds the multipliers for the named site
// conditions. Unknown conditions count as 1.
func (r *RateTable) externalMultiplier(conditions []string) float64 {
	m := 1.0
	for _, c := range conditions {
		if f, ok := r.SiteMultipliers[common.NormalizeName(c)]; ok && f > 0 {
			m *= f
		}
	}
	return m
}
