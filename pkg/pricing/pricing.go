// Package pricing folds a merged take-off into the dual bill of quantities.
// Everything here is deterministic arithmetic over the take-off; no model
// calls happen at or below this layer.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/hierarchy"
	"github.com/afriplan/takeoff/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Estimated cable lengths per circuit type, used when no measured run
// exists. Site cable runs always use their measured lengths.
const (
	feedLengthSubBoardM = 15
	feedLengthFinalM    = 8
	feedLengthHeavyM    = 12
	feedLengthDefaultM  = 10
)

// NewEngineParams are the arguments for NewEngine.
type NewEngineParams struct {
	Rates RateTable
	// SiteConditions name the conditions whose multipliers scale external
	// works rates (rocky_soil, steep_terrain, remote_site).
	SiteConditions []string
}

// Engine prices take-offs against a rate table.
//
// An Engine should be created using NewEngine.
type Engine struct {
	rates      RateTable
	conditions []string
}

// NewEngine creates a pricing engine over the given rate table.
func NewEngine(params NewEngineParams) *Engine {
	return &Engine{rates: params.Rates, conditions: params.SiteConditions}
}

// Price builds both renditions of the bill of quantities. The quantity BQ
// leaves every rate blank for the client to price; the estimated BQ prices
// identical quantities from the rate table.
func (e *Engine) Price(project common.Project, hier hierarchy.Hierarchy, report common.ValidationReport) common.PricingResult {
	b := newLineBuilder()

	e.preliminaries(b, project)
	e.supplyAndMains(b, project, hier)
	e.boards(b, project)
	e.wiring(b, project)
	e.lightingAndPower(b, project)
	e.fixedEquipment(b, project)
	e.externalWorks(b, project)
	e.earthing(b, project)
	e.testing(b, project)
	e.complianceItems(b, report)
	e.provisionalSums(b, report)

	result := e.materialize(b)
	logger.Info("[Price] Bill of quantities ready",
		"lines", len(result.EstimatedBQ),
		"subtotal", result.Subtotal,
		"grand_total", result.GrandTotal)
	return result
}

func (e *Engine) preliminaries(b *lineBuilder, project common.Project) {
	if len(project.Units) == 0 {
		return
	}
	b.add(common.SectionPreliminaries, "Site establishment", "sum", 1, common.ConfidenceEstimated, false)
	b.add(common.SectionPreliminaries, "Certificate of Compliance", "no",
		float64(len(project.Units)), common.ConfidenceEstimated, false)
}

func (e *Engine) supplyAndMains(b *lineBuilder, project common.Project, hier hierarchy.Hierarchy) {
	for _, u := range project.Units {
		for _, s := range u.SupplyPoints {
			b.add(common.SectionSupplyMains, "Supply connection and metering", "no", 1, s.Confidence, false)
		}
	}

	// every fed board in the supply forest gets a feed cable at the
	// sub-board default length
	boards := boardIndex(project)
	for _, root := range hier.Roots {
		walkFeeds(b, root, boards)
	}
}

func walkFeeds(b *lineBuilder, n *hierarchy.Node, boards map[string]common.Board) {
	for _, child := range n.Children {
		if board, ok := boards[child.Unit+"|"+common.NormalizeName(child.Board)]; ok {
			size := board.SupplyCableSizeMM2
			if size <= 0 {
				size = 10
			}
			b.add(common.SectionSupplyMains, cableDescription(size), "m",
				feedLengthSubBoardM, board.Confidence, false)
		}
		walkFeeds(b, child, boards)
	}
}

func (e *Engine) boards(b *lineBuilder, project common.Project) {
	for _, u := range project.Units {
		for _, board := range u.Boards {
			b.add(common.SectionBoards, "Distribution board, flush mounted", "no", 1, board.Confidence, false)
			if board.EarthLeakage {
				b.add(common.SectionBoards, "Earth leakage unit 63A/30mA", "no", 1, board.Confidence, false)
			}
			if board.SurgeProtection {
				b.add(common.SectionBoards, "Surge protection device", "no", 1, board.Confidence, false)
			}
			if board.MainBreakerA > 0 {
				b.add(common.SectionBoards, "Main switch / isolator", "no", 1, board.Confidence, false)
			}
			breakers := 0
			for _, c := range board.Circuits {
				if !c.IsSpare {
					breakers++
				}
			}
			if breakers > 0 {
				b.add(common.SectionBoards, "Circuit breaker", "no", float64(breakers), board.Confidence, false)
			}
		}
	}
}

func (e *Engine) wiring(b *lineBuilder, project common.Project) {
	for _, u := range project.Units {
		for _, board := range u.Boards {
			for _, c := range board.Circuits {
				if c.IsSpare || circuitTypeIs(c.Type, "sub_board_feed") {
					continue
				}
				size := c.CableSizeMM2
				if size <= 0 {
					if circuitTypeIs(c.Type, "lighting") {
						size = 1.5
					} else {
						size = 2.5
					}
				}
				b.add(common.SectionWiring, cableDescription(size), "m",
					estimatedCircuitLengthM(c.Type), c.Confidence, false)
			}
		}
	}
}

func (e *Engine) lightingAndPower(b *lineBuilder, project common.Project) {
	for _, u := range project.Units {
		for _, room := range u.Rooms {
			f, conf := room.Fixtures, room.Confidence

			addCount(b, common.SectionLighting, "Ceiling light point", f.CeilingLights, conf)
			addCount(b, common.SectionLighting, "Downlight point", f.Downlights, conf)
			addCount(b, common.SectionLighting, "Floodlight point", f.Floodlights, conf)
			addCount(b, common.SectionLighting, "Security light point", f.SecurityLights, conf)
			addCount(b, common.SectionLighting, "Bulkhead light point", f.BulkheadLights, conf)
			addCount(b, common.SectionLighting, "Tube light point", f.TubeLights, conf)
			addCount(b, common.SectionLighting, "Pendant light point", f.PendantLights, conf)
			addCount(b, common.SectionLighting, "Wall light point", f.WallLights, conf)
			addCount(b, common.SectionLighting, "Emergency light point", f.EmergencyLights, conf)
			addCount(b, common.SectionLighting, "Light point", f.OtherLights, conf)
			addCount(b, common.SectionLighting, "One lever switch", f.OneLeverSwitches, conf)
			addCount(b, common.SectionLighting, "Two lever switch", f.TwoLeverSwitches, conf)
			addCount(b, common.SectionLighting, "Dimmer switch", f.DimmerSwitches, conf)
			addCount(b, common.SectionLighting, "Motion sensor", f.MotionSensors, conf)

			addCount(b, common.SectionPower, "Single socket outlet", f.SinglePlugs, conf)
			addCount(b, common.SectionPower, "Double socket outlet", f.DoublePlugs, conf)
			addCount(b, common.SectionPower, "Weatherproof socket outlet", f.WeatherproofPlugs, conf)
			addCount(b, common.SectionPower, "Floor socket outlet", f.FloorPlugs, conf)
			addCount(b, common.SectionPower, "USB socket outlet", f.USBPlugs, conf)
			addCount(b, common.SectionPower, "TV point", f.TVPoints, conf)
			addCount(b, common.SectionPower, "Data point", f.DataPoints, conf)
			addCount(b, common.SectionPower, "Socket outlet", f.OtherSockets, conf)
			addCount(b, common.SectionPower, "Equipment isolator", f.IsolatorSwitches, conf)
		}
	}
}

func (e *Engine) fixedEquipment(b *lineBuilder, project common.Project) {
	for _, u := range project.Units {
		for _, eq := range u.Equipment {
			var desc string
			switch strings.ToLower(eq.Type) {
			case "stove":
				desc = "Stove connection"
			case "geyser":
				desc = "Geyser connection"
			case "ac":
				desc = "AC unit connection"
			case "pump":
				desc = "Pump connection"
			default:
				desc = "Equipment connection"
			}
			b.add(common.SectionFixedEquipment, desc, "no", 1, eq.Confidence, false)
			if eq.HasIsolator {
				b.add(common.SectionFixedEquipment, "Equipment isolator", "no", 1, eq.Confidence, false)
			}
		}
	}
}

func (e *Engine) externalWorks(b *lineBuilder, project common.Project) {
	for _, u := range project.Units {
		for _, run := range u.CableRuns {
			length := run.LengthM
			if length <= 0 {
				length = feedLengthDefaultM
			}
			if run.IsUnderground || run.NeedsTrenching {
				b.add(common.SectionExternalWorks, "Trenching and backfill", "m", length, run.Confidence, false)
				b.add(common.SectionExternalWorks, "Underground cable, laid in trench", "m", length, run.Confidence, false)
			} else {
				b.add(common.SectionExternalWorks, "External cable, surface or catenary", "m", length, run.Confidence, false)
			}
		}
	}
}

func (e *Engine) earthing(b *lineBuilder, project common.Project) {
	spikes, bars := 0, 0
	for _, u := range project.Units {
		for _, board := range u.Boards {
			bars++
			if board.IsMain {
				spikes++
			}
		}
	}
	addCount(b, common.SectionEarthingBonding, "Earth spike and connection", spikes, common.ConfidenceEstimated)
	addCount(b, common.SectionEarthingBonding, "Main earth bar and bonding", bars, common.ConfidenceEstimated)
	addCount(b, common.SectionEarthingBonding, "Bonding of metalwork", len(project.Units), common.ConfidenceEstimated)
}

func (e *Engine) testing(b *lineBuilder, project common.Project) {
	addCount(b, common.SectionTesting, "Testing and commissioning, per unit",
		len(project.Units), common.ConfidenceEstimated)
}

// complianceItems turns every auto-corrected validation failure into one
// remedial line item, routed to the section the correction belongs to.
func (e *Engine) complianceItems(b *lineBuilder, report common.ValidationReport) {
	for _, f := range report.Findings {
		if f.Passed || !f.AutoCorrected || f.CorrectedValue == "" {
			continue
		}
		desc := fmt.Sprintf("Compliance: %s", f.CorrectedValue)
		if ref := findingRef(f); ref != "" {
			desc = fmt.Sprintf("%s (%s)", desc, ref)
		}
		b.add(complianceSection(f.CorrectedValue), desc, "no", 1, common.ConfidenceInferred, false)
	}
}

func findingRef(f common.Finding) string {
	switch {
	case f.Circuit != "":
		return f.Circuit
	case f.Board != "":
		return f.Board
	default:
		return f.Unit
	}
}

func complianceSection(correctedValue string) common.BQSection {
	v := strings.ToLower(correctedValue)
	switch {
	case strings.Contains(v, "earth leakage") || strings.Contains(v, "elcb") ||
		strings.Contains(v, "surge") || strings.Contains(v, "spd"):
		return common.SectionBoards
	case strings.Contains(v, "earth") || strings.Contains(v, "bond"):
		return common.SectionEarthingBonding
	case strings.Contains(v, "circuit"):
		return common.SectionWiring
	default:
		return common.SectionBoards
	}
}

// provisionalSums covers the failures nothing auto-corrected; corrected
// failures are already priced as compliance line items.
func (e *Engine) provisionalSums(b *lineBuilder, report common.ValidationReport) {
	b.add(common.SectionProvisionalSums, "Allow for builder's work and chasing", "sum", 1,
		common.ConfidenceEstimated, true)

	failed := 0
	for _, f := range report.Findings {
		if f.Passed || f.AutoCorrected {
			continue
		}
		if f.Severity == common.SeverityCritical || f.Severity == common.SeverityMajor {
			failed++
		}
	}
	if failed > 0 {
		b.add(common.SectionProvisionalSums,
			fmt.Sprintf("Allow for rectification of %d non-compliant items", failed),
			"sum", 1, common.ConfidenceEstimated, true)
	}
}

// materialize turns the accumulated entries into the two renditions and
// runs the totals chain over the estimated one.
func (e *Engine) materialize(b *lineBuilder) common.PricingResult {
	var result common.PricingResult

	sectionCounters := map[common.BQSection]int{}
	externalFactor := e.rates.externalMultiplier(e.conditions)

	for _, entry := range b.entries {
		sectionCounters[entry.section]++
		itemNo := fmt.Sprintf("%s%d", entry.section, sectionCounters[entry.section])

		base := common.LineItem{
			ItemNo:      itemNo,
			Section:     entry.section,
			Description: entry.description,
			Unit:        entry.unit,
			Qty:         entry.qty,
			Source:      entry.confidence,
		}

		quantity := base
		quantity.ID = newLineID()
		quantity.RateOnly = true
		result.QuantityBQ = append(result.QuantityBQ, quantity)

		estimated := base
		estimated.ID = newLineID()
		if entry.rateOnly {
			estimated.RateOnly = true
		} else if rate, ok := e.rates.rateFor(entry.section, entry.description); ok {
			if entry.section == common.SectionExternalWorks {
				rate = rate * externalFactor
			}
			estimated.UnitPrice = round2(rate)
			estimated.Total = round2(entry.qty * estimated.UnitPrice)
		} else {
			estimated.RateOnly = true
		}
		result.EstimatedBQ = append(result.EstimatedBQ, estimated)

		result.Subtotal += estimated.Total
	}

	result.Subtotal = round2(result.Subtotal)
	result.ContingencyPct = e.rates.ContingencyPct
	result.ContingencyAmount = round2(result.Subtotal * e.rates.ContingencyPct / 100)
	afterContingency := result.Subtotal + result.ContingencyAmount

	result.MarkupPct = e.rates.MarkupPct
	result.MarkupAmount = round2(afterContingency * e.rates.MarkupPct / 100)
	afterMarkup := afterContingency + result.MarkupAmount

	result.VATPct = e.rates.VATPct
	result.VATAmount = round2(afterMarkup * e.rates.VATPct / 100)
	result.GrandTotal = round2(afterMarkup + result.VATAmount)

	result.Payments = common.PaymentSchedule{
		DepositPct:    e.rates.DepositPct,
		ProgressPct:   e.rates.ProgressPct,
		CompletionPct: e.rates.CompletionPct,
	}
	result.Payments.Deposit = round2(result.GrandTotal * e.rates.DepositPct / 100)
	result.Payments.Progress = round2(result.GrandTotal * e.rates.ProgressPct / 100)
	// completion takes the rounding remainder so the three always sum to
	// the grand total
	result.Payments.Completion = round2(result.GrandTotal - result.Payments.Deposit - result.Payments.Progress)

	return result
}

type lineEntry struct {
	section     common.BQSection
	description string
	unit        string
	qty         float64
	confidence  common.Confidence
	rateOnly    bool
}

// lineBuilder accumulates entries in insertion order, merging quantities
// for repeated descriptions within a section.
type lineBuilder struct {
	entries []lineEntry
	index   map[string]int
}

func newLineBuilder() *lineBuilder {
	return &lineBuilder{index: map[string]int{}}
}

func (b *lineBuilder) add(section common.BQSection, description, unit string, qty float64, conf common.Confidence, rateOnly bool) {
	key := string(section) + "|" + common.NormalizeName(description) + "|" + unit
	if i, ok := b.index[key]; ok {
		b.entries[i].qty += qty
		b.entries[i].confidence = weakerConfidence(b.entries[i].confidence, conf)
		return
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, lineEntry{
		section:     section,
		description: description,
		unit:        unit,
		qty:         qty,
		confidence:  conf,
		rateOnly:    rateOnly,
	})
}

func addCount(b *lineBuilder, section common.BQSection, description string, count int, conf common.Confidence) {
	if count > 0 {
		b.add(section, description, "no", float64(count), conf, false)
	}
}

var confidenceStrength = map[common.Confidence]int{
	common.ConfidenceEstimated: 0,
	common.ConfidenceInferred:  1,
	common.ConfidenceExtracted: 2,
	common.ConfidenceManual:    3,
}

// weakerConfidence keeps the least trustworthy tag so an aggregated line
// never looks more certain than its weakest contributor.
func weakerConfidence(a, b common.Confidence) common.Confidence {
	if confidenceStrength[a] <= confidenceStrength[b] {
		return a
	}
	return b
}

func estimatedCircuitLengthM(circuitType string) float64 {
	switch {
	case circuitTypeIs(circuitType, "sub_board_feed"):
		return feedLengthSubBoardM
	case circuitTypeIs(circuitType, "lighting", "power", "plug", "socket"):
		return feedLengthFinalM
	case circuitTypeIs(circuitType, "ac", "geyser", "pump"):
		return feedLengthHeavyM
	default:
		return feedLengthDefaultM
	}
}

func circuitTypeIs(circuitType string, types ...string) bool {
	ct := strings.ToLower(circuitType)
	for _, t := range types {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}

func cableDescription(sizeMM2 float64) string {
	return fmt.Sprintf("%gmm2 cable, wired in conduit", sizeMM2)
}

func boardIndex(project common.Project) map[string]common.Board {
	idx := map[string]common.Board{}
	for _, u := range project.Units {
		for _, board := range u.Boards {
			idx[u.Unit+"|"+common.NormalizeName(board.Name)] = board
		}
	}
	return idx
}

func newLineID() string {
	id, err := gonanoid.New()
	if err != nil {
		return ""
	}
	return id
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
