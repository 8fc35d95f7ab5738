package extract

import (
	"fmt"
	"strings"

	"github.com/afriplan/takeoff/pkg/common"

	"github.com/pkoukk/tiktoken-go"
)

// maxPromptTokensPerPage caps how much OCR text one page contributes to a
// request. Register sheets with long schedules get truncated rather than
// blowing the request budget.
const maxPromptTokensPerPage = 3000

var promptIntros = map[common.PageType]string{
	common.PageTypeRegister: "The following pages are OCR text of circuit registers / DB schedules " +
		"from scanned electrical drawings. Extract every distribution board with its full circuit " +
		"schedule. Read values exactly as written; tag a value extracted only when it appears on the page.",
	common.PageTypeSLD: "The following pages are OCR text of single line diagrams. The OCR is sparse " +
		"because these sheets are mostly graphics; the surviving text is board names, breaker ratings " +
		"and cable annotations. Extract the boards, their supply relationships and any supply points.",
	common.PageTypeLayoutLighting: "The following pages are OCR text of lighting layout drawings. " +
		"Count the light fittings and switches per labelled room and note any circuit identifiers " +
		"annotated in each room.",
	common.PageTypeLayoutPlugs: "The following pages are OCR text of plug/power layout drawings. " +
		"Count the socket outlets per labelled room, note circuit identifiers, and list fixed " +
		"equipment (stoves, geysers, AC units, pumps) with their isolators.",
	common.PageTypeLayoutCombined: "The following pages are OCR text of combined electrical layout " +
		"drawings showing both lighting and power. Count all fixtures per labelled room and note " +
		"circuit identifiers and fixed equipment.",
	common.PageTypeOutsideLights: "The following pages are OCR text of external works / site " +
		"electrical drawings. Count external light fittings, list site cable runs between points " +
		"with their specs and lengths, and list external equipment.",
}

// buildPrompt renders the extraction prompt for a batch of same-type pages,
// truncating each page's text to the per-page token budget.
func buildPrompt(pageType common.PageType, unit string, pages []common.Page) string {
	var b strings.Builder
	b.WriteString(promptIntros[pageType])
	b.WriteString("\n")
	if unit != "" {
		fmt.Fprintf(&b, "All pages belong to structural unit %q.\n", unit)
	}
	b.WriteString("Use 0 or an empty string for anything the pages do not state; never invent values.\n\n")

	for _, p := range pages {
		fmt.Fprintf(&b, "--- Page %q ---\n%s\n\n", p.Name, truncateTokens(p.Text, maxPromptTokensPerPage))
	}
	return b.String()
}

func truncateTokens(text string, budget int) string {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		// encoder assets unavailable, fall back to a byte cap
		if len(text) > budget*4 {
			return text[:budget*4]
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}
