package retrieval

import (
	"testing"
)

func hintForTest() *TaxonomyHint {
	hints := DefaultTaxonomy()
	return &hints[0]
}

func TestRank_LexicalOverlapBoost(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Score: 0.50, Text: "completely unrelated content about cooking"},
		{ID: "b", Score: 0.50, Text: "the speaker explains machine learning models"},
	}

	ranked := Rank("explain machine learning models", candidates, nil, DefaultWeights())

	if ranked[0].ID != "b" {
		t.Errorf("expected lexical overlap to rank b first, got %s", ranked[0].ID)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", Score: 0.40, Text: "xyzzy"},
		{ID: "second", Score: 0.40, Text: "xyzzy"},
		{ID: "third", Score: 0.40, Text: "xyzzy"},
	}

	ranked := Rank("unrelated question", candidates, nil, DefaultWeights())

	for i, want := range []string{"first", "second", "third"} {
		if ranked[i].ID != want {
			t.Errorf("position %d: got %s, want %s (merge order must survive ties)", i, ranked[i].ID, want)
		}
	}
}

func TestRank_FullCoverageFloatsToTop(t *testing.T) {
	candidates := []Candidate{
		{ID: "high-score", Score: 0.99, Text: "an anecdote about a robot vacuum"},
		{ID: "coverage", Score: 0.10, Text: "narrow AI, general AI and super AI are the three categories"},
	}

	ranked := Rank("what are the 3 types of ai", candidates, hintForTest(), DefaultWeights())

	if ranked[0].ID != "coverage" {
		t.Errorf("expected full-coverage chunk first despite lower raw score, got %s", ranked[0].ID)
	}
}

func TestRank_AcronymAboveUnmarked(t *testing.T) {
	candidates := []Candidate{
		{ID: "plain", Score: 0.90, Text: "a long digression about training data"},
		{ID: "acronym", Score: 0.20, Text: "AGI would match human capability across domains"},
	}

	ranked := Rank("what are the types of ai", candidates, hintForTest(), DefaultWeights())

	if ranked[0].ID != "acronym" {
		t.Errorf("expected acronym-marked chunk first, got %s", ranked[0].ID)
	}
}

func TestRank_CoverageOutranksAcronym(t *testing.T) {
	candidates := []Candidate{
		{ID: "acronym", Score: 0.95, Text: "ANI is what we have today"},
		{ID: "coverage", Score: 0.05, Text: "narrow, general and super intelligence"},
	}

	ranked := Rank("list the types of ai", candidates, hintForTest(), DefaultWeights())

	if ranked[0].ID != "coverage" {
		t.Errorf("expected coverage priority above acronym priority, got %s", ranked[0].ID)
	}
}

func TestRank_NoReorderWithoutHint(t *testing.T) {
	candidates := []Candidate{
		{ID: "high", Score: 0.90, Text: "zzz"},
		{ID: "coverage", Score: 0.10, Text: "narrow general super ANI AGI ASI"},
	}

	ranked := Rank("qqq", candidates, nil, DefaultWeights())

	if ranked[0].ID != "high" {
		t.Errorf("expected plain score ordering without a hint, got %s", ranked[0].ID)
	}
}

func TestRank_LeadChunkBonusBreaksTie(t *testing.T) {
	candidates := []Candidate{
		{ID: "later", Score: 0.50, Text: "agi discussion", Metadata: map[string]string{"chunk_index": "4"}},
		{ID: "lead", Score: 0.50, Text: "agi discussion", Metadata: map[string]string{"chunk_index": "0"}},
	}

	ranked := Rank("qqq types of ai", candidates, hintForTest(), DefaultWeights())

	if ranked[0].ID != "lead" {
		t.Errorf("expected lead chunk bonus to break the tie, got %s", ranked[0].ID)
	}
}

func TestSelect(t *testing.T) {
	ranked := []Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	tests := []struct {
		name string
		max  int
		want int
	}{
		{"truncates", 2, 2},
		{"exact", 3, 3},
		{"larger than input", 10, 3},
		{"zero keeps all", 0, 3},
		{"negative keeps all", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(ranked, tt.max)
			if len(got) != tt.want {
				t.Errorf("Select(max=%d) returned %d, want %d", tt.max, len(got), tt.want)
			}
		})
	}
}

func TestQuestionTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"What are the 3 types of AI?", []string{"what", "are", "the", "types"}},
		{"a an to", nil},
		{"machine-learning models", []string{"machine", "learning", "models"}},
	}

	for _, tt := range tests {
		got := questionTokens(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("questionTokens(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("questionTokens(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestOverlapRatio(t *testing.T) {
	tokens := []string{"machine", "learning", "models"}

	if got := overlapRatio(tokens, "machine learning is discussed"); got < 0.66 || got > 0.67 {
		t.Errorf("expected 2/3 overlap, got %f", got)
	}
	if got := overlapRatio(nil, "anything"); got != 0 {
		t.Errorf("expected zero for no tokens, got %f", got)
	}
	if got := overlapRatio(tokens, ""); got != 0 {
		t.Errorf("expected zero for empty text, got %f", got)
	}
}
