package retrieval

import "strings"

// digit expansions for standalone tokens 1-5.
var digitWords = map[string]string{
	"1": "one",
	"2": "two",
	"3": "three",
	"4": "four",
	"5": "five",
}

// Expander derives a small ordered set of query variants from a question.
type Expander struct {
	hints []TaxonomyHint
}

// NewExpander creates an Expander over the given taxonomy hint table.
// A nil table falls back to the default taxonomy.
func NewExpander(hints []TaxonomyHint) *Expander {
	if hints == nil {
		hints = DefaultTaxonomy()
	}
	return &Expander{hints: hints}
}

// Classify returns the matching taxonomy hint when the question is
// enumeration-style, nil otherwise. A question matches when it contains
// one of the hint's trigger tokens and at least one domain anchor token.
func (e *Expander) Classify(question string) *TaxonomyHint {
	lower := strings.ToLower(question)
	tokens := strings.Fields(lower)

	for i := range e.hints {
		hint := &e.hints[i]
		if !containsAnySubstring(lower, hint.TriggerTokens) {
			continue
		}
		if hasAnyToken(tokens, hint.AnchorTokens) {
			return hint
		}
	}
	return nil
}

// Expand produces the ordered, deduplicated variant set for a question:
// the original verbatim, a normalized form, a digit-to-word form, and the
// taxonomy paraphrases for enumeration questions. An empty question
// expands to [""].
func (e *Expander) Expand(question string) []string {
	if strings.TrimSpace(question) == "" {
		return []string{""}
	}

	normalized := normalize(question)
	variants := []string{question, normalized}

	if worded := expandDigits(normalized); worded != normalized {
		variants = append(variants, worded)
	}

	if hint := e.Classify(question); hint != nil {
		variants = append(variants, hint.Paraphrases...)
	}

	return dedupeVariants(variants)
}

// normalize collapses whitespace to single spaces and lower-cases.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// expandDigits rewrites standalone 1-5 tokens to their word form.
func expandDigits(normalized string) string {
	fields := strings.Fields(normalized)
	changed := false
	for i, f := range fields {
		if word, ok := digitWords[f]; ok {
			fields[i] = word
			changed = true
		}
	}
	if !changed {
		return normalized
	}
	return strings.Join(fields, " ")
}

// dedupeVariants keeps the first occurrence of each trimmed variant,
// dropping empty strings, preserving order.
func dedupeVariants(variants []string) []string {
	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		key := strings.TrimSpace(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

func containsAnySubstring(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyToken(tokens []string, wanted []string) bool {
	for _, t := range tokens {
		t = strings.Trim(t, ".,;:!?\"'()")
		for _, w := range wanted {
			if t == w {
				return true
			}
		}
	}
	return false
}
