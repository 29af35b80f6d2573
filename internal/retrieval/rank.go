package retrieval

import (
	"sort"
	"strings"
)

// Weights configures the composite relevance score. The defaults were
// tuned on one domain's sample data; deployments may override them.
type Weights struct {
	// Lexical scales the question-token overlap ratio.
	Lexical float64
	// FullCoverage is added when a chunk contains every coverage marker
	// of the matched taxonomy hint (enumeration questions only).
	FullCoverage float64
	// Acronym is added when a chunk contains any acronym marker
	// (enumeration questions only).
	Acronym float64
	// LeadChunk is added for chunk_index 0; lead chunks often carry
	// definitional overviews (enumeration questions only).
	LeadChunk float64
}

// DefaultWeights returns the starting-default scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Lexical:      0.2,
		FullCoverage: 0.25,
		Acronym:      0.15,
		LeadChunk:    0.03,
	}
}

// Rank orders candidates by descending composite relevance. The sort is
// stable, so candidates with equal scores keep their merge order. For
// enumeration questions a secondary stable pass floats taxonomy-defining
// chunks to the top regardless of raw score: priority 0 for full coverage,
// 1 for any acronym marker, 2 otherwise; within a priority band the
// composite-score order is preserved.
func Rank(question string, candidates []Candidate, hint *TaxonomyHint, w Weights) []Candidate {
	tokens := questionTokens(question)

	type scored struct {
		cand      Candidate
		composite float64
		priority  int
	}

	rows := make([]scored, len(candidates))
	for i, c := range candidates {
		text := strings.ToLower(c.Text)

		composite := float64(c.Score) + w.Lexical*overlapRatio(tokens, text)
		priority := 2
		if hint != nil {
			// Bonuses are additive, not exclusive.
			if containsAll(text, hint.CoverageMarkers) {
				composite += w.FullCoverage
				priority = 0
			}
			if containsAnySubstring(text, hint.AcronymMarkers) {
				composite += w.Acronym
				if priority == 2 {
					priority = 1
				}
			}
			if c.Metadata["chunk_index"] == "0" {
				composite += w.LeadChunk
			}
		}
		rows[i] = scored{cand: c, composite: composite, priority: priority}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].composite > rows[j].composite
	})

	if hint != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].priority < rows[j].priority
		})
	}

	out := make([]Candidate, len(rows))
	for i, r := range rows {
		out[i] = r.cand
	}
	return out
}

// Select truncates the ranked list to at most max entries.
func Select(ranked []Candidate, max int) []Candidate {
	if max <= 0 || len(ranked) <= max {
		return ranked
	}
	return ranked[:max]
}

// questionTokens extracts lower-cased alphanumeric runs longer than two
// characters from the question.
func questionTokens(question string) []string {
	lower := strings.ToLower(question)
	var tokens []string
	start := -1
	for i, r := range lower {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if tok := lower[start:i]; len(tok) > 2 {
				tokens = append(tokens, tok)
			}
			start = -1
		}
	}
	if start >= 0 {
		if tok := lower[start:]; len(tok) > 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// overlapRatio is the fraction of question tokens found as literal
// substrings of the lower-cased candidate text. Zero tokens yields zero.
func overlapRatio(tokens []string, lowerText string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	found := 0
	for _, t := range tokens {
		if strings.Contains(lowerText, t) {
			found++
		}
	}
	return float64(found) / float64(len(tokens))
}

func containsAll(s string, subs []string) bool {
	if len(subs) == 0 {
		return false
	}
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
