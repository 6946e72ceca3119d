// ABOUTME: Tests for budgeted text splitting
// ABOUTME: Verifies paragraph packing, sentence and word fallbacks, and the size bound
package indexer

import (
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	s := NewSplitter(10)
	for _, text := range []string{"", "   ", "\n\n\r\n"} {
		if got := s.Split(text); got != nil {
			t.Errorf("Split(%q) = %v, want nil", text, got)
		}
	}
}

func TestSplit_SmallDocumentIsOneChunk(t *testing.T) {
	text := "Föräldrapenning betalas i 480 dagar.\n\nTvillingar ger 180 extra dagar."
	got := NewSplitter(DefaultMaxTokens).Split(text)
	if len(got) != 1 || got[0] != text {
		t.Errorf("Split() = %q, want the whole document", got)
	}
}

func TestSplit_PacksParagraphs(t *testing.T) {
	// budget 5 tokens = 20 chars
	s := NewSplitter(5)
	got := s.Split("aaaa bbbb\n\ncccc\n\ndddd eeee ffff gggg")

	want := []string{"aaaa bbbb\n\ncccc", "dddd eeee ffff gggg"}
	if len(got) != len(want) {
		t.Fatalf("Split() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplit_RespectsBudget(t *testing.T) {
	s := NewSplitter(5)
	long := strings.Repeat("Sjukpenning betalas ut. ", 20) + "\n\n" + strings.Repeat("ord ", 30) + strings.Repeat("x", 55)

	chunks := s.Split(long)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 5*CharsPerToken {
			t.Errorf("chunk %d has %d chars, over budget: %q", i, len(c), c)
		}
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestSplit_CRLF(t *testing.T) {
	got := NewSplitter(5).Split("aaaa bbbb cccc dd\r\n\r\ndddd")
	if len(got) != 2 || got[1] != "dddd" {
		t.Errorf("Split() = %q", got)
	}
}

func TestRuneBoundary(t *testing.T) {
	s := "åäö"
	if n := runeBoundary(s, 3); n != 2 {
		t.Errorf("runeBoundary() = %d, want 2", n)
	}
	if n := runeBoundary(s, 4); n != 4 {
		t.Errorf("runeBoundary() = %d, want 4", n)
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"foraldrapenning.txt", true},
		{"Broschyr.PDF", true},
		{".DS_Store", false},
		{".hidden.txt", false},
		{"notes.md", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Supported(tt.name); got != tt.want {
				t.Errorf("Supported(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
