// ABOUTME: End-to-end tests for the query pipeline over fake collaborators
// ABOUTME: Covers smalltalk short-circuit, fallback, condensation and sanitization together
package core

import (
	"context"
	"strings"
	"testing"

	"github.com/harper/fkguiden/internal/models"
)

func newTestPipeline(embedder *fakeEmbedder, gen *fakeGenerator, store *fakeStore) *Pipeline {
	opts := DefaultOptions()
	opts.Logger = quietLogger()
	return NewPipeline(embedder, gen, store, opts)
}

func TestPipeline_SmalltalkShortCircuits(t *testing.T) {
	tests := []struct {
		question string
		kind     Kind
	}{
		{"hej", Greeting},
		{"Tack så mycket!", Thanks},
		{"hej då", Goodbye},
		{"", Greeting},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			embedder := &fakeEmbedder{}
			gen := &fakeGenerator{reply: "ska inte användas"}
			store := &fakeStore{}
			p := newTestPipeline(embedder, gen, store)

			resp := p.Answer(context.Background(), Request{Question: tt.question})
			if resp.Answer.Text != tt.kind.Reply() {
				t.Errorf("Answer = %q, want %q", resp.Answer.Text, tt.kind.Reply())
			}
			if resp.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", resp.Kind, tt.kind)
			}
			if embedder.callCount() != 0 || gen.callCount() != 0 || store.callCount() != 0 {
				t.Errorf("smalltalk made %d embed, %d generate, %d search calls",
					embedder.callCount(), gen.callCount(), store.callCount())
			}
			if resp.Retrieval != nil {
				t.Error("smalltalk should carry no retrieval result")
			}
		})
	}
}

func TestPipeline_GreetingExactReply(t *testing.T) {
	p := newTestPipeline(&fakeEmbedder{}, &fakeGenerator{}, &fakeStore{})
	resp := p.Answer(context.Background(), Request{Question: "hej"})
	if resp.Answer.Text != "Hej! Jag är FK-Guiden. Vad vill du veta om Försäkringskassan?" {
		t.Errorf("greeting reply = %q", resp.Answer.Text)
	}
}

func TestPipeline_StoreFailureStillAnswers(t *testing.T) {
	gen := &fakeGenerator{reply: "Föräldrapenning kan tas ut i 480 dagar per barn."}
	p := newTestPipeline(&fakeEmbedder{}, gen, &fakeStore{err: errUpstream})

	resp := p.Answer(context.Background(), Request{Question: "Hur många dagar föräldrapenning?"})
	if strings.TrimSpace(resp.Answer.Text) == "" {
		t.Fatal("expected a non-empty answer")
	}
	if resp.Retrieval == nil || !resp.Retrieval.UsedFallback {
		t.Fatalf("expected fallback, got %+v", resp.Retrieval)
	}
	if gen.callCount() != 1 {
		t.Errorf("generate calls = %d, want 1", gen.callCount())
	}
}

func TestPipeline_UngroundedPromptCarriesRules(t *testing.T) {
	gen := &fakeGenerator{reply: "Hur gamla är barnen?"}
	p := newTestPipeline(&fakeEmbedder{}, gen, &fakeStore{})

	resp := p.Answer(context.Background(), Request{Question: "Hur många dagar får jag?"})
	if !resp.Retrieval.UsedFallback {
		t.Fatal("zero chunks should fall back")
	}

	msgs := gen.lastCall().messages
	if !strings.Contains(msgs[0].Content, UnknownSentinel) {
		t.Error("ungrounded system prompt must contain the unknown sentinel")
	}
	if !strings.Contains(msgs[0].Content, "exakt en följdfråga") {
		t.Error("ungrounded system prompt must ask for at most one clarifying question")
	}
	if strings.Contains(msgs[1].Content, ContextDelimiter) {
		t.Error("ungrounded prompt must not carry context")
	}
}

func TestPipeline_TwinsFollowUp(t *testing.T) {
	const standalone = "Hur många dagar föräldrapenning får man för tvillingar?"

	gen := &fakeGenerator{respond: func(msgs []models.Message) (string, error) {
		if strings.Contains(msgs[len(msgs)-1].Content, "Fristående fråga:") {
			return standalone, nil
		}
		return "För tvillingar får ni 660 dagar.\nKälla: forsakringskassan.se", nil
	}}
	embedder := &fakeEmbedder{}
	store := &fakeStore{results: []models.ScoredChunk{
		scored("tvillingar", "Vid tvillingfödsel får föräldrarna 180 extra dagar.", 0.82),
	}}
	p := newTestPipeline(embedder, gen, store)

	resp := p.Answer(context.Background(), Request{
		Question: "Och om det är tvillingar?",
		History: []models.ConversationTurn{
			{Role: models.RoleUser, Content: "Hur många dagar föräldrapenning får man?"},
			{Role: models.RoleAssistant, Content: "480 dagar per barn."},
		},
	})

	if resp.Retrieval.StandaloneQuestion != standalone {
		t.Errorf("StandaloneQuestion = %q", resp.Retrieval.StandaloneQuestion)
	}
	if !strings.Contains(resp.Retrieval.StandaloneQuestion, "tvillingar") || !strings.Contains(resp.Retrieval.StandaloneQuestion, "föräldrapenning") {
		t.Error("standalone question should carry both topic and follow-up")
	}
	if embedder.calls[0] != standalone {
		t.Errorf("embedded %q, want the standalone question", embedder.calls[0])
	}
	if resp.Retrieval.UsedFallback {
		t.Error("expected grounded mode")
	}
	if resp.Answer.Text != "För tvillingar får ni 660 dagar." {
		t.Errorf("Answer = %q, citation line should be stripped", resp.Answer.Text)
	}

	grounded := gen.lastCall().messages[1].Content
	if !strings.Contains(grounded, "Vid tvillingfödsel") || !strings.Contains(grounded, standalone) {
		t.Errorf("grounded prompt missing context or question:\n%s", grounded)
	}
}

func TestPipeline_StripsCitationsWithChunks(t *testing.T) {
	gen := &fakeGenerator{reply: "Sjukpenning är cirka 80 procent av SGI.\n\n**Källor:**\nKälla: fk.se\n\n\n\nMer info finns."}
	store := &fakeStore{results: []models.ScoredChunk{
		scored("a", "Sjukpenning är knappt 80 procent.", 0.9),
		scored("b", "SGI är sjukpenninggrundande inkomst.", 0.7),
	}}
	p := newTestPipeline(&fakeEmbedder{}, gen, store)

	resp := p.Answer(context.Background(), Request{Question: "Hur mycket är sjukpenning?"})
	for _, line := range strings.Split(resp.Answer.Text, "\n") {
		if IsCitationLine(line) {
			t.Errorf("citation line survived: %q", line)
		}
	}
	if strings.Contains(resp.Answer.Text, "\n\n\n\n") {
		t.Error("blank line runs should be collapsed")
	}
	if len(resp.Retrieval.Chunks) != 2 {
		t.Errorf("chunks = %d, want 2", len(resp.Retrieval.Chunks))
	}
}

func TestPipeline_GenerationFailure(t *testing.T) {
	p := newTestPipeline(&fakeEmbedder{}, &fakeGenerator{err: errUpstream}, &fakeStore{})
	resp := p.Answer(context.Background(), Request{Question: "Vad är VAB?"})
	if resp.Answer.Text != TechnicalErrorMessage {
		t.Errorf("Answer = %q, want technical error text", resp.Answer.Text)
	}
}

func TestPipeline_Search(t *testing.T) {
	store := &fakeStore{results: []models.ScoredChunk{
		scored("a", "ett", 0.9),
		scored("b", "två", 0.8),
		scored("c", "tre", 0.1),
	}}
	gen := &fakeGenerator{}
	p := newTestPipeline(&fakeEmbedder{}, gen, store)

	chunks, err := p.Search(context.Background(), "fråga", 3)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("Search() returned %d chunks, want 2 above threshold", len(chunks))
	}
	if gen.callCount() != 0 {
		t.Error("Search must not generate")
	}
}
