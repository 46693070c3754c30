// Package widgets enriches a result page by running detectors over the
// query and merged results in a fixed order.
package widgets

import (
	"sort"
	"strings"

	"github.com/glimpse-search/glimpse/pkg/instant"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// Settings is the user's read-only widget configuration. Missing
// entries default to enabled at position 0.
type Settings struct {
	Disabled  map[string]bool `json:"disabled,omitempty"`
	Positions map[string]int  `json:"positions,omitempty"`
}

func (s Settings) enabled(widgetType string) bool {
	return !s.Disabled[widgetType]
}

func (s Settings) position(widgetType string) int {
	return s.Positions[widgetType]
}

// Cheatsheet is the payload for a programming-cheatsheet widget.
type Cheatsheet struct {
	Language string              `json:"language"`
	Sections []CheatsheetSection `json:"sections"`
}

// CheatsheetSection is one titled block of entries.
type CheatsheetSection struct {
	Title   string   `json:"title"`
	Entries []string `json:"entries"`
}

// Pipeline runs the detectors. Related searches come from the merged
// result's suggestion list plus the suggester's history.
type Pipeline struct {
	instant     *instant.Service
	cheatsheets map[string]Cheatsheet
}

// NewPipeline creates a pipeline over the instant service and the
// built-in cheatsheet table.
func NewPipeline(svc *instant.Service) *Pipeline {
	return &Pipeline{instant: svc, cheatsheets: builtinCheatsheets}
}

// Enrich applies the detectors in order — cheatsheet, related
// searches, knowledge panel, instant answer — and attaches the
// surviving widgets to page sorted by the user's configured position,
// ties broken by detection order.
func (p *Pipeline) Enrich(q types.Query, page *types.MergedResult, settings Settings) {
	var detected []types.Widget

	if settings.enabled("cheatsheet") {
		if cs, ok := p.detectCheatsheet(q.Text); ok {
			detected = append(detected, types.Widget{Type: "cheatsheet", Data: cs})
		}
	}

	if settings.enabled("related") {
		related := page.RelatedSearches
		if len(related) < 2 && p.instant != nil {
			related = append(related, p.instant.Suggest.Suggest(q.Text)...)
		}
		if len(related) >= 2 {
			detected = append(detected, types.Widget{Type: "related", Data: related})
			page.RelatedSearches = related
		}
	}

	if settings.enabled("knowledge") && p.instant != nil {
		if panel, ok := p.instant.Knowledge.Lookup(q.Text); ok {
			detected = append(detected, types.Widget{Type: "knowledge", Data: panel})
			page.KnowledgePanel = panel
		}
	}

	if settings.enabled("instant") && p.instant != nil {
		if answer := p.instant.Detect(q.Text); answer != nil {
			detected = append(detected, types.Widget{Type: "instant", Data: answer})
			page.InstantAnswer = answer
		}
	}

	for i := range detected {
		detected[i].Position = settings.position(detected[i].Type)
	}
	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Position < detected[j].Position
	})
	page.Widgets = detected
}

// detectCheatsheet matches the first known language token in the query.
func (p *Pipeline) detectCheatsheet(text string) (Cheatsheet, bool) {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if cs, ok := p.cheatsheets[tok]; ok {
			return cs, true
		}
	}
	return Cheatsheet{}, false
}
