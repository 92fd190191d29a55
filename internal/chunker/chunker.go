// Package chunker splits raw ingested documents into overlapping,
// sentence-respecting, size-bounded segments.
package chunker

import (
	"regexp"
	"strings"

	"context-resolver/internal/domain"
)

// sentenceSplitter matches one sentence up to and including its
// terminator. Text after the last terminator is handled separately.
var sentenceSplitter = regexp.MustCompile(`(?m)(?U)[^.!?]+[.!?]+`)

// Chunker packs sentences into size-bounded chunks. Same input and
// config always produce the same chunk boundaries.
type Chunker struct {
	cfg Config
}

// New validates the bounds and returns a ready chunker.
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// estimateTokens approximates token count at ~4 chars per token.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

type span struct {
	text  string
	start int
	end   int
}

// Chunk splits text into chunks per the configured bounds.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	sentences := c.collectSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	var current []span
	overlapPrefix := ""
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, 0, len(current)+1)
		if overlapPrefix != "" {
			parts = append(parts, overlapPrefix)
		}
		for _, s := range current {
			parts = append(parts, s.text)
		}
		content := strings.Join(parts, " ")
		chunks = append(chunks, domain.Chunk{
			Content:    content,
			Index:      len(chunks),
			StartChar:  current[0].start,
			EndChar:    current[len(current)-1].end,
			TokenCount: estimateTokens(content),
		})
		overlapPrefix = c.overlapTail(content)
		current = nil
		currentTokens = estimateTokens(overlapPrefix)
	}

	for _, s := range sentences {
		tokens := estimateTokens(s.text)

		// A single sentence beyond MaxChunkSize bypasses sentence
		// packing and is split on word boundaries.
		if tokens > c.cfg.MaxChunkSize {
			flush()
			for _, piece := range c.forceSplit(s) {
				current = append(current, piece)
				flush()
			}
			continue
		}

		if len(current) > 0 && currentTokens+tokens > c.cfg.ChunkSize {
			flush()
		}
		current = append(current, s)
		currentTokens += tokens
	}
	flush()

	// A short trailing chunk is dropped, not emitted.
	if n := len(chunks); n > 1 && chunks[n-1].TokenCount < c.cfg.MinChunkSize {
		chunks = chunks[:n-1]
	}
	return chunks
}

// collectSentences returns ordered sentence spans with offsets into text.
func (c *Chunker) collectSentences(text string) []span {
	blocks := []string{text}
	if c.cfg.SplitParagraphs {
		normalized := strings.ReplaceAll(text, "\r\n", "\n")
		blocks = strings.Split(normalized, "\n\n")
	}

	var spans []span
	cursor := 0
	for _, block := range blocks {
		trimmedBlock := strings.TrimSpace(block)
		if trimmedBlock == "" {
			continue
		}
		raw := sentenceSplitter.FindAllString(trimmedBlock, -1)
		matched := strings.Join(raw, "")
		if rest := strings.TrimSpace(trimmedBlock[len(matched):]); rest != "" {
			raw = append(raw, rest)
		}
		if len(raw) == 0 {
			raw = []string{trimmedBlock}
		}
		for _, sentence := range raw {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			start := indexFrom(text, sentence, cursor)
			end := start + len(sentence)
			spans = append(spans, span{text: sentence, start: start, end: end})
			cursor = end
		}
	}
	return spans
}

// forceSplit breaks one oversized sentence into word-aligned pieces of
// at most ChunkSize tokens.
func (c *Chunker) forceSplit(s span) []span {
	words := strings.Fields(s.text)
	budget := c.cfg.ChunkSize * 4

	var pieces []span
	var buf []string
	bufLen := 0
	cursor := s.start
	pieceStart := -1

	flushPiece := func(end int) {
		if len(buf) == 0 {
			return
		}
		pieces = append(pieces, span{
			text:  strings.Join(buf, " "),
			start: pieceStart,
			end:   end,
		})
		buf = nil
		bufLen = 0
		pieceStart = -1
	}

	lastEnd := s.start
	for _, w := range words {
		start := indexFrom(s.text, w, cursor-s.start) + s.start
		end := start + len(w)
		if bufLen > 0 && bufLen+1+len(w) > budget {
			flushPiece(lastEnd)
		}
		if len(buf) == 0 {
			pieceStart = start
		}
		buf = append(buf, w)
		bufLen += len(w) + 1
		cursor = end
		lastEnd = end
	}
	flushPiece(lastEnd)
	return pieces
}

// overlapTail takes a word-boundary-aligned tail of content worth
// ChunkOverlap tokens to seed the next chunk.
func (c *Chunker) overlapTail(content string) string {
	if c.cfg.ChunkOverlap <= 0 {
		return ""
	}
	budget := c.cfg.ChunkOverlap * 4
	words := strings.Fields(content)
	taken := 0
	i := len(words)
	for i > 0 {
		next := len(words[i-1]) + 1
		if taken+next > budget && taken > 0 {
			break
		}
		taken += next
		i--
	}
	return strings.Join(words[i:], " ")
}

func indexFrom(text, sub string, from int) int {
	if from < 0 || from > len(text) {
		from = 0
	}
	if idx := strings.Index(text[from:], sub); idx >= 0 {
		return from + idx
	}
	return from
}
