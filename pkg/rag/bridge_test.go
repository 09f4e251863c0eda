package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/pkg/autorag"
	"chat-relay-be/pkg/llm"
)

type fakeSearcher struct {
	aiAnswer  string
	aiErr     error
	passages  []autorag.Passage
	searchErr error

	gotScope string
	gotQuery string
}

func (f *fakeSearcher) AISearch(_ context.Context, query, scopeFilter string, _ autorag.SearchOptions) (string, error) {
	f.gotScope = scopeFilter
	f.gotQuery = query
	return f.aiAnswer, f.aiErr
}

func (f *fakeSearcher) Search(_ context.Context, _, scopeFilter string, _ autorag.SearchOptions) ([]autorag.Passage, error) {
	f.gotScope = scopeFilter
	return f.passages, f.searchErr
}

type fakeProvider struct {
	response string
	err      error

	called    bool
	gotSystem string
	gotQuery  string
}

func (f *fakeProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	f.called = true
	for _, msg := range history {
		switch msg.Role {
		case "system":
			f.gotSystem = msg.Content
		case "user":
			f.gotQuery = msg.Content
		}
	}
	return f.response, f.err
}

func (f *fakeProvider) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.called = true
	f.gotQuery = prompt
	return f.response, f.err
}

func newTestBridge(searcher autorag.Searcher, provider llm.LLMProvider) *Bridge {
	return NewBridge(searcher, provider, DefaultConfig(), logger.NewNopLogger())
}

func TestGenerateDirectAnswer(t *testing.T) {
	searcher := &fakeSearcher{aiAnswer: "PT-1 is a pressure transmitter."}
	provider := &fakeProvider{}
	bridge := newTestBridge(searcher, provider)

	got := bridge.Generate(context.Background(), "What is PT-1?", "user-1/proj-9")

	if got != "PT-1 is a pressure transmitter." {
		t.Errorf("unexpected answer: %q", got)
	}
	if provider.called {
		t.Error("secondary generation should not run when the direct answer succeeds")
	}
	if searcher.gotScope != "user-1/proj-9" {
		t.Errorf("scope filter not forwarded, got %q", searcher.gotScope)
	}
}

func TestGenerateCleansDirectAnswer(t *testing.T) {
	searcher := &fakeSearcher{aiAnswer: "According to the documents, yes [manual.pdf]."}
	bridge := newTestBridge(searcher, &fakeProvider{})

	got := bridge.Generate(context.Background(), "q", "user-1")

	if got != "yes." {
		t.Errorf("cleaning not applied, got %q", got)
	}
}

func TestGenerateFromPassages(t *testing.T) {
	searcher := &fakeSearcher{
		passages: []autorag.Passage{
			{Content: "PT-1 measures line pressure.", SourceID: "instruments.pdf", Score: 0.8},
			{Content: "Calibrate PT-1 yearly.", SourceID: "maintenance.pdf", Score: 0.6},
		},
	}
	provider := &fakeProvider{response: "PT-1 measures line pressure and needs yearly calibration."}
	bridge := newTestBridge(searcher, provider)

	got := bridge.Generate(context.Background(), "Tell me about PT-1", "user-1")

	if got != provider.response {
		t.Errorf("unexpected answer: %q", got)
	}
	if !provider.called {
		t.Fatal("secondary generation was not invoked")
	}
	if !strings.Contains(provider.gotSystem, "PT-1 measures line pressure.") {
		t.Error("passage content missing from the system prompt")
	}
	if !strings.Contains(provider.gotSystem, "[instruments.pdf]") {
		t.Error("passage source tag missing from the system prompt")
	}
	if provider.gotQuery != "Tell me about PT-1" {
		t.Errorf("query not forwarded to the provider, got %q", provider.gotQuery)
	}
}

func TestGenerateFallbackWhenAllTiersFail(t *testing.T) {
	searcher := &fakeSearcher{
		aiErr:     errors.New("ai search down"),
		searchErr: errors.New("search down"),
	}
	bridge := newTestBridge(searcher, &fakeProvider{err: errors.New("llm down")})

	got := bridge.Generate(context.Background(), "What is PT-1?", "user-1")

	if !strings.Contains(got, `"What is PT-1?"`) {
		t.Errorf("fallback does not embed the original query: %q", got)
	}
	if !strings.Contains(got, "I apologize") {
		t.Errorf("fallback text not used: %q", got)
	}
}

func TestGenerateFallbackWhenProviderFails(t *testing.T) {
	searcher := &fakeSearcher{
		passages: []autorag.Passage{{Content: "some context", SourceID: "a.pdf"}},
	}
	bridge := newTestBridge(searcher, &fakeProvider{err: errors.New("llm down")})

	got := bridge.Generate(context.Background(), "query text", "user-1")

	if !strings.Contains(got, `"query text"`) {
		t.Errorf("fallback does not embed the original query: %q", got)
	}
}

func TestGenerateFallbackWhenNothingRetrieved(t *testing.T) {
	bridge := newTestBridge(&fakeSearcher{}, &fakeProvider{})

	got := bridge.Generate(context.Background(), "obscure question", "user-1")

	if !strings.Contains(got, `"obscure question"`) {
		t.Errorf("fallback does not embed the original query: %q", got)
	}
}
