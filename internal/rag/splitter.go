package rag

import "strings"

// Default chunking geometry for transcript text.
const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// transcript-friendly separators, coarsest first; the empty string is the
// hard-cut fallback for text with no usable separator.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter slices transcript text into overlapping chunks, preferring to
// break on the coarsest separator that keeps pieces within the chunk size.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter. Non-positive arguments fall back to the
// defaults; overlap is clamped below the chunk size.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split returns the ordered chunk texts for the given transcript. Empty
// input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, c := range s.split(text, s.separators) {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (s *Splitter) split(text string, seps []string) []string {
	// Pick the first separator that occurs in the text; the remaining,
	// finer separators handle oversized pieces recursively.
	sep := ""
	var rest []string
	for i, cand := range seps {
		if cand == "" {
			sep = ""
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return s.hardSplit(text)
	}

	parts := strings.Split(text, sep)
	var chunks []string
	var pending []string
	for _, part := range parts {
		if len(part) > s.chunkSize {
			chunks = append(chunks, s.merge(pending, sep)...)
			pending = pending[:0]
			chunks = append(chunks, s.split(part, rest)...)
			continue
		}
		pending = append(pending, part)
	}
	return append(chunks, s.merge(pending, sep)...)
}

// merge greedily joins parts into chunks up to the chunk size, carrying
// a tail of parts up to the overlap budget into the next chunk.
func (s *Splitter) merge(parts []string, sep string) []string {
	var chunks []string
	var current []string
	length := 0

	joinedLen := func(n int, add string) int {
		l := length + len(add)
		if n > 0 {
			l += len(sep)
		}
		return l
	}

	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(current) > 0 && joinedLen(len(current), part) > s.chunkSize {
			chunks = append(chunks, strings.Join(current, sep))
			// Keep trailing parts within the overlap budget.
			for len(current) > 0 && length > s.overlap {
				length -= len(current[0])
				current = current[1:]
				if len(current) > 0 {
					length -= len(sep)
				}
			}
		}
		if len(current) > 0 {
			length += len(sep)
		}
		current = append(current, part)
		length += len(part)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, sep))
	}
	return chunks
}

// hardSplit cuts text into fixed windows when no separator applies.
func (s *Splitter) hardSplit(text string) []string {
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
