package retrieval

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	e := NewExpander(nil)

	tests := []struct {
		name     string
		question string
		want     bool
	}{
		{"trigger and anchor", "What are the 3 types of AI?", true},
		{"trigger kinds and anchor", "name the kinds of artificial intelligence", true},
		{"trigger without anchor", "what types of pasta exist?", false},
		{"anchor without trigger", "how does AI work?", false},
		{"empty", "", false},
		{"anchor punctuation stripped", "list the stages of AI.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Classify(tt.question)
			if (got != nil) != tt.want {
				t.Errorf("Classify(%q) = %v, want match=%v", tt.question, got, tt.want)
			}
		})
	}
}

func TestExpand_OriginalAlwaysFirst(t *testing.T) {
	e := NewExpander(nil)

	question := "What are the 3 types of AI?"
	variants := e.Expand(question)

	if len(variants) == 0 {
		t.Fatal("expected at least one variant")
	}
	if variants[0] != question {
		t.Errorf("expected original question first, got %q", variants[0])
	}
}

func TestExpand_DigitToWord(t *testing.T) {
	e := NewExpander(nil)

	variants := e.Expand("What are the 3 types of AI?")

	found := false
	for _, v := range variants {
		if v == "what are the three types of ai?" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected digit-to-word variant, got %v", variants)
	}
}

func TestExpand_EnumerationAddsParaphrases(t *testing.T) {
	e := NewExpander(nil)

	plain := e.Expand("What did the speaker say about robots?")
	enum := e.Expand("What are the 3 types of AI?")

	if len(enum) <= len(plain) {
		t.Errorf("expected enumeration expansion to add paraphrases: plain=%d enum=%d", len(plain), len(enum))
	}
	// The default taxonomy carries three paraphrases.
	if len(enum) < 5 {
		t.Errorf("expected at least 5 variants for an enumeration question, got %d: %v", len(enum), enum)
	}
}

func TestExpand_NoDuplicates(t *testing.T) {
	e := NewExpander(nil)

	questions := []string{
		"What are the 3 types of AI?",
		"what are the three types of ai",
		"how does it work",
		"   spaced    out   question  ",
	}
	for _, q := range questions {
		variants := e.Expand(q)
		seen := make(map[string]bool)
		for _, v := range variants {
			key := strings.TrimSpace(v)
			if seen[key] {
				t.Errorf("Expand(%q) produced duplicate variant %q", q, v)
			}
			seen[key] = true
		}
	}
}

func TestExpand_EmptyQuestion(t *testing.T) {
	e := NewExpander(nil)

	for _, q := range []string{"", "   ", "\n\t"} {
		variants := e.Expand(q)
		if len(variants) != 1 || variants[0] != "" {
			t.Errorf("Expand(%q) = %v, want [\"\"]", q, variants)
		}
	}
}

func TestExpandDigits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"the 3 types", "the three types"},
		{"1 2 3 4 5", "one two three four five"},
		{"top 10 results", "top 10 results"},
		{"chunk3 is fine", "chunk3 is fine"},
		{"no digits here", "no digits here"},
	}

	for _, tt := range tests {
		if got := expandDigits(tt.in); got != tt.want {
			t.Errorf("expandDigits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := normalize("  What   ARE\tthe Types? "); got != "what are the types?" {
		t.Errorf("normalize = %q", got)
	}
}
