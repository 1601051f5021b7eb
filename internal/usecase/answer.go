package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"docqa/internal/adapter/cache"
	"docqa/internal/domain"
	"docqa/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

const systemPrompt = "You are a documentation assistant. Answer strictly from the provided context and cite nothing you were not given."

// noContextMarker replaces the context block when retrieval yields
// nothing usable. The answer still goes through generation; the empty
// Sources slice is the caller's signal that it is ungrounded.
const noContextMarker = "(no context available: no indexed documents matched this question)"

const blockSeparator = "\n\n---\n\n"

// AnswerUseCase answers questions over the indexed corpus: retrieve,
// assemble a bounded context, generate, attribute sources.
type AnswerUseCase struct {
	embedder        port.Embedder
	index           port.VectorIndex
	generator       port.Generator
	cache           *cache.RetrievalCache
	topK            int
	maxContextChars int

	mu      sync.Mutex
	history []domain.ConversationTurn
}

func NewAnswerUseCase(
	embedder port.Embedder,
	index port.VectorIndex,
	generator port.Generator,
	retrievalCache *cache.RetrievalCache,
	topK int,
	maxContextChars int,
) *AnswerUseCase {
	if topK <= 0 {
		topK = 5
	}
	if maxContextChars <= 0 {
		maxContextChars = 8000
	}
	return &AnswerUseCase{
		embedder:        embedder,
		index:           index,
		generator:       generator,
		cache:           retrievalCache,
		topK:            topK,
		maxContextChars: maxContextChars,
	}
}

// Answer runs the full question pipeline and records the exchange in
// the conversation history. A generation failure yields no partial
// answer and no history entry.
func (u *AnswerUseCase) Answer(ctx context.Context, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("question is empty")
	}

	results, err := u.retrieve(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}

	contextText, sources := u.assembleContext(results)
	if contextText == "" {
		contextText = noContextMarker
		sources = []string{}
	}

	userPrompt, err := renderPrompt(question, contextText)
	if err != nil {
		return domain.Answer{}, err
	}

	text, err := u.generator.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return domain.Answer{}, err
	}

	answer := domain.Answer{Text: text, Sources: sources}
	u.record(question, answer)
	return answer, nil
}

// Retrieve returns the ranked chunks for a question without generating
// an answer.
func (u *AnswerUseCase) Retrieve(ctx context.Context, question string) ([]domain.ScoredChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}
	return u.retrieve(ctx, question)
}

// History returns the recorded conversation turns, oldest first.
func (u *AnswerUseCase) History() []domain.ConversationTurn {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]domain.ConversationTurn, len(u.history))
	copy(out, u.history)
	return out
}

func (u *AnswerUseCase) retrieve(ctx context.Context, question string) ([]domain.ScoredChunk, error) {
	gen := u.index.Generation()
	if u.cache != nil {
		if results, hit := u.cache.Get(question, u.topK, gen); hit {
			return results, nil
		}
	}

	query, err := u.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := u.index.Search(query, u.topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	if u.cache != nil {
		u.cache.Put(question, u.topK, gen, results)
	}
	return results, nil
}

// assembleContext concatenates retrieved chunks in rank order until the
// next block would push the context past the character budget. Sources
// are the distinct source ids of included chunks, in rank order.
func (u *AnswerUseCase) assembleContext(results []domain.ScoredChunk) (string, []string) {
	var b strings.Builder
	var sources []string
	seen := make(map[string]bool)

	for _, r := range results {
		block := fmt.Sprintf("[Document: %s]\n%s", r.Chunk.SourceID, r.Chunk.Text)
		cost := len(block)
		if b.Len() > 0 {
			cost += len(blockSeparator)
		}
		if b.Len()+cost > u.maxContextChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString(block)
		if !seen[r.Chunk.SourceID] {
			seen[r.Chunk.SourceID] = true
			sources = append(sources, r.Chunk.SourceID)
		}
	}

	return b.String(), sources
}

func (u *AnswerUseCase) record(question string, answer domain.Answer) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.history = append(u.history, domain.ConversationTurn{
		Question: question,
		Answer:   answer.Text,
		Sources:  answer.Sources,
		AskedAt:  time.Now(),
	})
}

func renderPrompt(question, contextText string) (string, error) {
	tmpl, err := template.ParseFS(promptTemplates, "templates/answer_prompt.txt")
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Question string
		Context  string
	}{Question: question, Context: contextText})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
