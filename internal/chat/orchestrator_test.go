package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/horizon-ai/docchat/internal/retrieval"
	"github.com/horizon-ai/docchat/internal/session"
)

// scriptedLLM routes prompts by their shape: classification and rewrite
// prompts get canned replies, anything else is treated as the answer prompt.
type scriptedLLM struct {
	classification    string
	classificationErr error
	rewrite           string
	rewriteErr        error
	answer            string
	answerErr         error

	answerPrompts []string
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Respond with only"):
		return s.classification, s.classificationErr
	case strings.Contains(prompt, "Rewrite the following") || strings.Contains(prompt, "الاستعلام:"):
		return s.rewrite, s.rewriteErr
	case strings.Contains(prompt, "Progressively summarize"):
		return "summary", nil
	default:
		s.answerPrompts = append(s.answerPrompts, prompt)
		return s.answer, s.answerErr
	}
}

type fakeRetriever struct {
	context string
	queries []string
}

func (f *fakeRetriever) Context(ctx context.Context, searchQuery, lang string, topK int) (string, retrieval.Strategy) {
	f.queries = append(f.queries, searchQuery)
	return f.context, retrieval.StrategyHybrid
}

func newTestOrchestrator(t *testing.T, llm *scriptedLLM, retriever *fakeRetriever) (*Orchestrator, *session.Store) {
	t.Helper()
	sessions := session.NewStore(session.Config{}, llm, nil, nil)
	dates, err := NewDateAgent("UTC", fixedClock{now: time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("NewDateAgent: %v", err)
	}
	return NewOrchestrator(llm, retriever, sessions, dates, nil), sessions
}

func TestAnswerNewQuestionOmitsHistory(t *testing.T) {
	llm := &scriptedLLM{
		classification: "new question",
		rewrite:        "chairman of Horizon position",
		answer:         "The chairman is named in our filings.",
	}
	retriever := &fakeRetriever{context: "retrieved chunk text"}
	orch, sessions := newTestOrchestrator(t, llm, retriever)

	// Seed history from an earlier exchange.
	sess := sessions.Acquire("u1", "en")
	sess.Memory.AddExchange(context.Background(), "earlier question", "earlier answer")

	answer := orch.Answer(context.Background(), "who is the chairman?", "u1", 7)
	if answer != "The chairman is named in our filings." {
		t.Fatalf("answer = %q", answer)
	}
	if len(llm.answerPrompts) != 1 {
		t.Fatalf("expected 1 answer prompt, got %d", len(llm.answerPrompts))
	}
	if strings.Contains(llm.answerPrompts[0], "earlier question") {
		t.Error("new question must not carry history into the prompt")
	}
}

func TestAnswerFollowUpInjectsHistory(t *testing.T) {
	llm := &scriptedLLM{
		classification: "follow-up",
		rewrite:        "chairman tenure",
		answer:         "Since 2019.",
	}
	retriever := &fakeRetriever{context: "retrieved chunk text"}
	orch, sessions := newTestOrchestrator(t, llm, retriever)

	sess := sessions.Acquire("u1", "en")
	sess.Memory.AddExchange(context.Background(), "who is the chairman?", "The chairman is Jane Doe.")

	orch.Answer(context.Background(), "since when?", "u1", 7)
	if len(llm.answerPrompts) != 1 {
		t.Fatalf("expected 1 answer prompt, got %d", len(llm.answerPrompts))
	}
	if !strings.Contains(llm.answerPrompts[0], "The chairman is Jane Doe.") {
		t.Error("follow-up must carry history into the prompt")
	}
}

func TestAnswerClassificationFailureDefaultsToNewQuestion(t *testing.T) {
	llm := &scriptedLLM{
		classificationErr: errors.New("llm down"),
		rewrite:           "office hours",
		answer:            "Nine to five.",
	}
	retriever := &fakeRetriever{context: "ctx"}
	orch, sessions := newTestOrchestrator(t, llm, retriever)

	sess := sessions.Acquire("u1", "en")
	sess.Memory.AddExchange(context.Background(), "old question", "old answer")

	orch.Answer(context.Background(), "what are the office hours?", "u1", 7)
	if strings.Contains(llm.answerPrompts[0], "old question") {
		t.Error("classification failure must default to omitting history")
	}
}

func TestAnswerRewriteFailureUsesRawQuestion(t *testing.T) {
	llm := &scriptedLLM{
		classification: "new question",
		rewriteErr:     errors.New("llm down"),
		answer:         "An answer.",
	}
	retriever := &fakeRetriever{context: "ctx"}
	orch, _ := newTestOrchestrator(t, llm, retriever)

	orch.Answer(context.Background(), "who runs the treasury desk?", "u1", 7)
	if len(retriever.queries) != 1 || retriever.queries[0] != "who runs the treasury desk?" {
		t.Errorf("rewrite failure should search with the raw question, got %v", retriever.queries)
	}
}

func TestAnswerGenerationFailureReturnsErrorMessage(t *testing.T) {
	llm := &scriptedLLM{
		classification: "new question",
		rewrite:        "anything",
		answerErr:      errors.New("llm down"),
	}
	retriever := &fakeRetriever{context: "ctx"}
	orch, sessions := newTestOrchestrator(t, llm, retriever)

	answer := orch.Answer(context.Background(), "who is the CFO?", "u1", 7)
	if answer != generationErrorMessage {
		t.Errorf("answer = %q, want the user-facing error message", answer)
	}

	sess := sessions.Acquire("u1", "en")
	if got := sess.Memory.History(); got != "" {
		t.Errorf("failed generation must not be recorded, history = %q", got)
	}
}

func TestAnswerSanitizesResponse(t *testing.T) {
	llm := &scriptedLLM{
		classification: "new question",
		rewrite:        "anything",
		answer:         "<think>internal</think>**The** answer",
	}
	retriever := &fakeRetriever{context: "ctx"}
	orch, _ := newTestOrchestrator(t, llm, retriever)

	if got := orch.Answer(context.Background(), "a question", "u1", 7); got != "The answer" {
		t.Errorf("answer = %q, want sanitized text", got)
	}
}

func TestAnswerArabicQuestionUsesArabicPrompt(t *testing.T) {
	llm := &scriptedLLM{
		classification: "new question",
		rewrite:        "استعلام محسن",
		answer:         "إجابة",
	}
	retriever := &fakeRetriever{context: "ctx"}
	orch, _ := newTestOrchestrator(t, llm, retriever)

	orch.Answer(context.Background(), "من هو رئيس مجلس الإدارة؟", "u1", 7)
	if len(llm.answerPrompts) != 1 {
		t.Fatalf("expected 1 answer prompt, got %d", len(llm.answerPrompts))
	}
	if !strings.Contains(llm.answerPrompts[0], "الهوية:") {
		t.Error("Arabic question should render the Arabic template")
	}
}
