// ABOUTME: Splitter packs document text into chunks under an approximate token budget
// ABOUTME: Splits on paragraph, then sentence, then word boundaries
package indexer

import (
	"strings"
)

// CharsPerToken approximates the tokenizer for Swedish prose
const CharsPerToken = 4

// DefaultMaxTokens is the chunk budget used when none is configured
const DefaultMaxTokens = 3000

// Splitter splits text into chunks of at most MaxTokens approximate tokens
type Splitter struct {
	MaxTokens int
}

// NewSplitter creates a Splitter; non-positive budgets use DefaultMaxTokens
func NewSplitter(maxTokens int) *Splitter {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Splitter{MaxTokens: maxTokens}
}

// Split returns the chunks of text in document order. Blank input gives nil.
func (s *Splitter) Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	limit := s.MaxTokens * CharsPerToken
	p := &packer{limit: limit}

	for _, para := range splitParagraphs(text) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= limit {
			p.add(para, "\n\n")
			continue
		}
		for _, sent := range splitSentences(para) {
			if len(sent) <= limit {
				p.add(sent, " ")
				continue
			}
			for _, word := range strings.Fields(sent) {
				p.addWord(word)
			}
		}
	}

	return p.finish()
}

// packer accumulates pieces until the next one would exceed limit
type packer struct {
	limit  int
	buf    strings.Builder
	chunks []string
}

func (p *packer) add(piece, sep string) {
	if p.buf.Len() > 0 && p.buf.Len()+len(sep)+len(piece) > p.limit {
		p.flush()
	}
	if p.buf.Len() > 0 {
		p.buf.WriteString(sep)
	}
	p.buf.WriteString(piece)
}

// addWord hard-cuts words longer than limit
func (p *packer) addWord(word string) {
	for len(word) > p.limit {
		p.flush()
		cut := runeBoundary(word, p.limit)
		p.chunks = append(p.chunks, word[:cut])
		word = word[cut:]
	}
	p.add(word, " ")
}

func (p *packer) flush() {
	if s := strings.TrimSpace(p.buf.String()); s != "" {
		p.chunks = append(p.chunks, s)
	}
	p.buf.Reset()
}

func (p *packer) finish() []string {
	p.flush()
	return p.chunks
}

// runeBoundary returns the largest index <= n that starts a rune in s
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	if n == 0 {
		return len(s)
	}
	return n
}

// splitParagraphs splits text by blank lines
func splitParagraphs(text string) []string {
	return strings.Split(text, "\n\n")
}

// splitSentences splits text by ". " (period + space)
func splitSentences(text string) []string {
	sentences := strings.Split(text, ". ")

	var result []string
	for i, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}

		// Add back the period (except for the last sentence which might already have it)
		if i < len(sentences)-1 && !strings.HasSuffix(sent, ".") {
			sent = sent + "."
		}

		result = append(result, sent)
	}

	return result
}
