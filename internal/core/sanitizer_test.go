// ABOUTME: Tests for answer sanitization
// ABOUTME: Citation lines never survive, blank runs are bounded, append policy adds one source line
package core

import (
	"strings"
	"testing"

	"github.com/harper/fkguiden/internal/models"
)

func TestIsCitationLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Källa: forsakringskassan.se", true},
		{"källa: x", true},
		{"KÄLLA: x", true},
		{"Kalla: x", true},
		{"Källor: a, b", true},
		{"**Källa:** Föräldrapenning", true},
		{"- Källa: x", true},
		{"  Source: fk.se", true},
		{"Sources : x", true},
		{"Källhänvisning: x", true},
		{"_Referenser:_ x", true},
		{"”Källa: Föräldrapenning”", true},
		{"\"Källa: fk.se\"", true},
		{"“Källa: fk.se”", true},
		{"1. Källa: fk.se", true},
		{"2) Källor: a, b", true},
		{"Källa (fk.se): x", true},
		{"Källa – forsakringskassan.se", true},
		{"Källa - forsakringskassan.se", true},
		{"(”Källa: Sjukpenning”)", true},
		{"1. Ansök om föräldrapenning på Mina sidor.", false},
		{"Referensnummer finns i beslutet.", false},
		{"Referens-ID står i brevet.", false},
		{"Föräldrapenning betalas i 480 dagar.", false},
		{"Källan till detta är okänd", false},
		{"Du kan läsa mer, källa finns på webben: fk.se", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := IsCitationLine(tt.line); got != tt.want {
				t.Errorf("IsCitationLine(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestStripCitations_SourceList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bullets under header",
			in:   "Svar.\nKällor:\n- forsakringskassan.se/a\n- forsakringskassan.se/b",
			want: "Svar.",
		},
		{
			name: "bare urls under bold header",
			in:   "Svar.\n**Källor:**\nhttps://www.forsakringskassan.se/a\n1. forsakringskassan.se/b\nMer text.",
			want: "Svar.\nMer text.",
		},
		{
			name: "list after inline citation is kept",
			in:   "Källa: fk.se\n- Ansök på Mina sidor\n- Bifoga intyg",
			want: "- Ansök på Mina sidor\n- Bifoga intyg",
		},
		{
			name: "blank line ends source list",
			in:   "Källor:\n- fk.se\n\n- Nästa steg",
			want: "\n- Nästa steg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCitations(tt.in); got != tt.want {
				t.Errorf("StripCitations() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollapseBlankLines(t *testing.T) {
	in := "a\n\n\n\n\nb\n\nc\n \n\t\n \nd"
	got := CollapseBlankLines(in)
	want := "a\n\n\nb\n\nc\n\n\nd"
	if got != want {
		t.Errorf("CollapseBlankLines() = %q, want %q", got, want)
	}
}

func TestSanitizer_SuppressNeverLeavesCitations(t *testing.T) {
	outputs := []string{
		"480 dagar.\nKälla: forsakringskassan.se",
		"Källa: först\n480 dagar.",
		"Svar.\r\n\r\n**Källor:**\r\n- fk.se",
		"Svar.\n\n\n\n\nSOURCE: x\nkällhänvisningar: y",
		"Svar.\n(”Källa: Föräldrapenning”)",
		"Svar.\n1. Källa: fk.se\n2. Källa – forsakringskassan.se",
	}

	s := NewSanitizer(CitationSuppress)
	for _, out := range outputs {
		got := s.Clean(out, []models.ScoredChunk{scored("foraldrapenning", "t", 0.9)})
		for _, line := range strings.Split(got, "\n") {
			if IsCitationLine(line) {
				t.Errorf("citation line %q survived in %q", line, got)
			}
		}
		if strings.Contains(got, "\n\n\n\n") {
			t.Errorf("more than two blank lines in %q", got)
		}
	}
}

func TestSanitizer_AppendAddsSources(t *testing.T) {
	s := NewSanitizer(CitationAppend)
	chunks := []models.ScoredChunk{
		{Chunk: models.Chunk{ID: "1", SourceRef: "chunks/foraldrapenning.txt"}},
		{Chunk: models.Chunk{ID: "2", SourceRef: "foraldrapenning.txt"}},
		{Chunk: models.Chunk{ID: "3", SourceRef: "vab.pdf"}},
		{Chunk: models.Chunk{ID: "4"}},
	}

	got := s.Clean("480 dagar.\nKälla: påhittad", chunks)
	want := "480 dagar.\n\nKälla: foraldrapenning, vab"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestSanitizer_AppendWithoutChunks(t *testing.T) {
	s := NewSanitizer(CitationAppend)
	if got := s.Clean("Svar.\nKälla: x", nil); got != "Svar." {
		t.Errorf("Clean() = %q, want no source line when ungrounded", got)
	}
}

func TestNewSanitizer_UnknownPolicy(t *testing.T) {
	if NewSanitizer(CitationPolicy("inline")).Policy() != CitationSuppress {
		t.Error("unknown policy should fall back to suppress")
	}
}
