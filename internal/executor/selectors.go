package executor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fetchweave/fetchsvc/internal/models"
)

// applySelectorChains tries every learned selector in every candidate
// chain against the rendered HTML, recording one SelectorAttempt per
// selector tried (spec.md §3 "Decision Trace": selectors tried). The first
// matching selector in a chain is marked Selected and its extracted text
// becomes that chain's resolved value; later selectors in the same chain
// are recorded with a skip reason rather than tried, since the chain
// already has a winner.
func applySelectorChains(html string, chains []models.SelectorChain) ([]models.SelectorAttempt, map[string]string) {
	resolved := map[string]string{}
	var attempts []models.SelectorAttempt

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return attempts, resolved
	}

	for _, chain := range chains {
		satisfied := false
		for _, sel := range chain.Selectors {
			if satisfied {
				attempts = append(attempts, models.SelectorAttempt{
					Selector: sel.Selector, Source: "learned", SkipReason: "chain already satisfied",
				})
				continue
			}

			text := strings.TrimSpace(doc.Find(sel.Selector).First().Text())
			attempt := models.SelectorAttempt{
				Selector:      sel.Selector,
				Source:        "learned",
				Matched:       text != "",
				ContentLength: len(text),
				Confidence:    selectorRate(sel),
			}
			if text != "" {
				attempt.Selected = true
				resolved[chain.Purpose] = text
				satisfied = true
			} else {
				attempt.SkipReason = "no match"
			}
			attempts = append(attempts, attempt)
		}
	}
	return attempts, resolved
}

func selectorRate(s models.ChainedSelector) float64 {
	total := s.SuccessCount + s.FailureCount
	if total == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(total)
}
