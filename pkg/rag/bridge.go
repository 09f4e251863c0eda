package rag

import (
	"context"
	"fmt"
	"strings"

	"chat-relay-be/internal/constant"
	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/pkg/autorag"
	"chat-relay-be/pkg/llm"
	"chat-relay-be/pkg/rag/clean"
)

// Config caps the retrieval calls shared by both search tiers.
type Config struct {
	MaxResults     int
	ScoreThreshold float64
	MaxTokens      int
}

// DefaultConfig returns the retrieval defaults.
func DefaultConfig() Config {
	return Config{
		MaxResults:     10,
		ScoreThreshold: 0.3,
		MaxTokens:      512,
	}
}

// Bridge turns a user query into one response text. It degrades through
// three tiers: direct AI Search answer, ranked passages plus a secondary
// generation call, and finally a canned fallback. It never returns an
// error; every failure lands on the fallback text.
type Bridge struct {
	searcher autorag.Searcher
	provider llm.LLMProvider
	cleaner  *clean.Pipeline
	config   Config
	logger   logger.ILogger
}

func NewBridge(searcher autorag.Searcher, provider llm.LLMProvider, config Config, log logger.ILogger) *Bridge {
	return &Bridge{
		searcher: searcher,
		provider: provider,
		cleaner:  clean.NewPipeline(),
		config:   config,
		logger:   log,
	}
}

// Generate resolves the query against the retrieval backend, scoped by
// scopeFilter, and returns the cleaned response text.
func (b *Bridge) Generate(ctx context.Context, query, scopeFilter string) string {
	opts := autorag.SearchOptions{
		MaxResults:        b.config.MaxResults,
		ScoreThreshold:    b.config.ScoreThreshold,
		SystemInstruction: constant.DirectAnswerInstruction,
	}

	// Tier 1: direct answer from AI Search
	answer, err := b.searcher.AISearch(ctx, query, scopeFilter, opts)
	if err != nil {
		b.logger.Warn("Bridge", "AI Search failed, falling through to ranked passages", map[string]interface{}{
			"error": err.Error(),
			"scope": scopeFilter,
		})
	} else if answer != "" {
		return b.cleaner.Clean(answer)
	}

	// Tier 2: ranked passages + secondary generation call
	if answer = b.generateFromPassages(ctx, query, scopeFilter, opts); answer != "" {
		return b.cleaner.Clean(answer)
	}

	// Tier 3: canned fallback embedding the original query
	return b.cleaner.Clean(b.fallback(query))
}

func (b *Bridge) generateFromPassages(ctx context.Context, query, scopeFilter string, opts autorag.SearchOptions) string {
	passages, err := b.searcher.Search(ctx, query, scopeFilter, opts)
	if err != nil {
		b.logger.Warn("Bridge", "Passage search failed", map[string]interface{}{
			"error": err.Error(),
			"scope": scopeFilter,
		})
		return ""
	}
	if len(passages) == 0 {
		b.logger.Info("Bridge", "No passages above threshold", map[string]interface{}{
			"scope": scopeFilter,
			"query": query,
		})
		return ""
	}

	// Concatenate passages tagged by source document. The tags stay
	// internal; the cleaning pass strips any that leak into the answer.
	var contextBuilder strings.Builder
	for _, passage := range passages {
		contextBuilder.WriteString(fmt.Sprintf("[%s]\n%s\n\n", passage.SourceID, passage.Content))
	}

	systemPrompt := fmt.Sprintf(constant.PassageSynthesisPrompt, contextBuilder.String())

	response, err := b.provider.Chat(ctx,
		[]llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: query},
		},
		llm.WithMaxTokens(b.config.MaxTokens),
	)
	if err != nil {
		b.logger.Warn("Bridge", "Secondary generation failed", map[string]interface{}{
			"error":    err.Error(),
			"passages": len(passages),
		})
		return ""
	}

	return strings.TrimSpace(response)
}

func (b *Bridge) fallback(query string) string {
	return fmt.Sprintf(constant.FallbackTemplate, fmt.Sprintf("%q", query))
}
