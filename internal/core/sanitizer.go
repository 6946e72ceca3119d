// ABOUTME: Sanitizer post-processes generated answers
// ABOUTME: Removes citation-marker lines, collapses blank runs, applies the citation policy
package core

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/harper/fkguiden/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CitationPolicy controls what happens to source references in answers
type CitationPolicy string

const (
	// CitationSuppress removes every citation line
	CitationSuppress CitationPolicy = "suppress"
	// CitationAppend removes model-written citation lines and appends one
	// built from the grounded chunks
	CitationAppend CitationPolicy = "append"
)

const citationWords = `(kalla|kallor|kallhanvisning|kallhanvisningar|kallforteckning|referens|referenser|source|sources|reference|references)`

var (
	// citationPattern matches a citation marker after case and diacritic
	// folding: "kalla: x", "kalla (fk.se): x" or "kalla – x"
	citationPattern = regexp.MustCompile(`^` + citationWords + `(\s*\([^)]*\))?(\s*:|\s+[-–—](\s|$))`)

	// citationHeader matches a marker with nothing after it, which
	// introduces a list of sources on the following lines
	citationHeader = regexp.MustCompile(`^` + citationWords + `\s*:\s*$`)

	listNumber = regexp.MustCompile(`^\d+[.)]\s*`)
)

// citationLead is stripped from the start of a line before matching
const citationLead = "*_->#•([\"'”“„‘’«»"

// maxBlankRun is the longest run of blank lines kept in an answer
const maxBlankRun = 2

// Sanitizer cleans generated answers according to a citation policy
type Sanitizer struct {
	policy CitationPolicy
}

// NewSanitizer creates a Sanitizer; unknown policies behave as suppress
func NewSanitizer(policy CitationPolicy) *Sanitizer {
	if policy != CitationAppend {
		policy = CitationSuppress
	}
	return &Sanitizer{policy: policy}
}

// Policy returns the effective citation policy
func (s *Sanitizer) Policy() CitationPolicy {
	return s.policy
}

// Clean strips citation lines, collapses blank runs and trims the text.
// Under CitationAppend a single "Källa:" line naming the sources of
// chunks is appended.
func (s *Sanitizer) Clean(text string, chunks []models.ScoredChunk) string {
	out := CollapseBlankLines(StripCitations(text))
	out = strings.TrimSpace(out)

	if s.policy == CitationAppend && out != "" {
		if sources := sourceNames(chunks); len(sources) > 0 {
			out += "\n\nKälla: " + strings.Join(sources, ", ")
		}
	}
	return out
}

// IsCitationLine reports whether line is a citation marker such as
// "Källa: ...", "**Källor:**", "1. Källa: ...", "”Källa: ...”" or
// "Källa – ..."
func IsCitationLine(line string) bool {
	return citationPattern.MatchString(citationText(line))
}

// citationText folds line and strips the bullets, quotes, emphasis and
// list numbers that may precede a marker
func citationText(line string) string {
	lead := func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(citationLead, r)
	}
	s := strings.TrimLeftFunc(line, lead)
	s = strings.TrimLeftFunc(listNumber.ReplaceAllString(s, ""), lead)
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, "_", "")
	return fold(s)
}

// StripCitations removes every citation line from text. A bare header
// such as "Källor:" also takes the list of sources directly below it.
func StripCitations(text string) string {
	lines := strings.Split(normalizeNewlines(text), "\n")
	kept := make([]string, 0, len(lines))
	inSources := false
	for _, line := range lines {
		if IsCitationLine(line) {
			inSources = citationHeader.MatchString(strings.TrimRight(citationText(line), " \t\"'”“»"))
			continue
		}
		if inSources && isSourceItem(line) {
			continue
		}
		inSources = false
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// isSourceItem reports whether line looks like an entry of a source list:
// a bullet or numbered item, or a bare URL or domain
func isSourceItem(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return false
	}
	if strings.TrimLeft(s, "-*•") != s || listNumber.MatchString(s) {
		return true
	}
	return !strings.ContainsAny(s, " \t") && strings.Contains(s, ".")
}

// CollapseBlankLines reduces every run of three or more blank lines to two
func CollapseBlankLines(text string) string {
	lines := strings.Split(normalizeNewlines(text), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > maxBlankRun {
				continue
			}
			out = append(out, "")
			continue
		}
		blank = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}

// fold lowercases s and removes combining marks so "Källa" matches "kalla"
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// sourceNames returns the distinct source names of chunks in rank order
func sourceNames(chunks []models.ScoredChunk) []string {
	seen := make(map[string]bool, len(chunks))
	var names []string
	for _, c := range chunks {
		if c.SourceRef == "" {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(c.SourceRef), filepath.Ext(c.SourceRef))
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
