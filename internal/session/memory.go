package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultTokenBudget caps the rendered history size before older turns are
// folded into a running summary.
const DefaultTokenBudget = 500

const summaryPrompt = `Progressively summarize the conversation below, adding to the previous summary.
Keep the summary concise and factual.

Previous summary:
%s

New conversation lines:
%s

New summary:`

// Summarizer condenses old conversation turns. The LLM client satisfies it.
type Summarizer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TokenCounter counts tokens for the memory budget. When the encoding is
// unavailable it falls back to a 4-characters-per-token estimate.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter loads the o200k_base encoding used by the chat models.
func NewTokenCounter() *TokenCounter {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return &TokenCounter{}
	}
	return &TokenCounter{enc: enc}
}

// Count returns the token count of s.
func (t *TokenCounter) Count(s string) int {
	if t == nil || t.enc == nil {
		return len(s) / 4
	}
	return len(t.enc.Encode(s, nil, nil))
}

type turn struct {
	input  string
	output string
}

func (t turn) render() string {
	return fmt.Sprintf("Human: %s\nAI: %s", t.input, t.output)
}

// Memory is a summarizing conversation buffer bound to a token budget.
// Recent turns are kept verbatim; once the rendered history exceeds the
// budget, the oldest turns are folded into a running summary so the buffer
// never grows unbounded.
type Memory struct {
	mu         sync.Mutex
	summary    string
	turns      []turn
	budget     int
	counter    *TokenCounter
	summarizer Summarizer
}

// NewMemory creates an empty buffer. A budget of 0 selects
// DefaultTokenBudget.
func NewMemory(budget int, counter *TokenCounter, summarizer Summarizer) *Memory {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	return &Memory{
		budget:     budget,
		counter:    counter,
		summarizer: summarizer,
	}
}

// History renders the buffer: the running summary, if any, followed by the
// retained turns.
func (m *Memory) History() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderLocked()
}

func (m *Memory) renderLocked() string {
	var parts []string
	if m.summary != "" {
		parts = append(parts, m.summary)
	}
	for _, t := range m.turns {
		parts = append(parts, t.render())
	}
	return strings.Join(parts, "\n")
}

// AddExchange appends one question/answer turn, then folds the oldest turns
// into the summary while the rendered history exceeds the token budget.
// When summarization fails the oldest turns are dropped instead, degrading
// recall rather than growing the buffer.
func (m *Memory) AddExchange(ctx context.Context, input, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turn{input: input, output: output})

	var pruned []turn
	for len(m.turns) > 1 && m.counter.Count(m.renderLocked()) > m.budget {
		pruned = append(pruned, m.turns[0])
		m.turns = m.turns[1:]
	}
	if len(pruned) == 0 {
		return
	}

	lines := make([]string, len(pruned))
	for i, t := range pruned {
		lines[i] = t.render()
	}

	summary, err := m.summarizer.Complete(ctx, fmt.Sprintf(summaryPrompt, m.summary, strings.Join(lines, "\n")))
	if err != nil {
		return
	}
	m.summary = strings.TrimSpace(summary)
}
