// Package retrieval implements the question-to-context engine: query
// expansion, multi-query retrieval with merge, relevance re-ranking and
// context selection.
package retrieval

// TaxonomyHint maps enumeration-style questions in one domain to query
// paraphrases and boosting keyword sets. The table is injected into the
// Expander and the ranker so the heuristic can be swapped per deployment
// without code changes.
type TaxonomyHint struct {
	// TriggerTokens mark a question as enumeration-style ("what are the
	// three types of X"). Matched as substrings of the lower-cased question.
	TriggerTokens []string
	// AnchorTokens tie the trigger to this domain. At least one must appear
	// as a token of the question for the hint to apply.
	AnchorTokens []string
	// Paraphrases are appended as extra query variants for enumeration
	// questions, designed to surface category-defining chunks.
	Paraphrases []string
	// CoverageMarkers is the fixed keyword set whose full presence in a
	// chunk signals complete taxonomy coverage.
	CoverageMarkers []string
	// AcronymMarkers are category/acronym keywords; any one present in a
	// chunk signals partial taxonomy coverage.
	AcronymMarkers []string
}

// DefaultTaxonomy returns the built-in hint table for the AI-types domain
// (ANI / AGI / ASI). Ordered; the first matching hint wins.
func DefaultTaxonomy() []TaxonomyHint {
	return []TaxonomyHint{
		{
			TriggerTokens: []string{"type", "types", "kind", "kinds", "list"},
			AnchorTokens:  []string{"ai", "intelligence", "artificial"},
			Paraphrases: []string{
				"types of artificial intelligence narrow general super",
				"ANI artificial narrow intelligence AGI artificial general intelligence ASI artificial super intelligence",
				"categories of AI capability levels",
			},
			CoverageMarkers: []string{"narrow", "general", "super"},
			AcronymMarkers:  []string{"ani", "agi", "asi"},
		},
	}
}
