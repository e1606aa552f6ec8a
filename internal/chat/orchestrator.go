package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/horizon-ai/docchat/internal/retrieval"
	"github.com/horizon-ai/docchat/internal/session"
)

// generationErrorMessage is returned to the user when answer generation
// fails. It is a user-facing string, never an error value.
const generationErrorMessage = "An error occurred. Please try again."

// Completer is the LLM surface the orchestrator needs. The llm.Client
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContextProvider retrieves document context for a search query. The
// retrieval.Engine satisfies it.
type ContextProvider interface {
	Context(ctx context.Context, searchQuery, lang string, topK int) (string, retrieval.Strategy)
}

// Orchestrator runs the full answer pipeline for one question: detect
// language, acquire the user's session, classify the question against
// history, rewrite the retrieval query, fetch and date-enrich context,
// render the prompt, generate, sanitize, and record the exchange.
type Orchestrator struct {
	llm       Completer
	retriever ContextProvider
	sessions  *session.Store
	dates     *DateAgent
	logger    *slog.Logger
}

// NewOrchestrator wires the answer pipeline.
func NewOrchestrator(llm Completer, retriever ContextProvider, sessions *session.Store, dates *DateAgent, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		llm:       llm,
		retriever: retriever,
		sessions:  sessions,
		dates:     dates,
		logger:    logger,
	}
}

// Answer generates a reply to the user's question. It always returns a
// user-visible string: generation failures surface as an apology message,
// and the session history is only updated on success.
func (o *Orchestrator) Answer(ctx context.Context, question, userID string, topK int) string {
	lang := DetectLanguage(question)
	sess := o.sessions.Acquire(userID, lang)
	history := sess.Memory.History()

	questionType := o.classifyQuestion(ctx, question, history)
	searchQuery := o.rewriteQuery(ctx, question, lang)

	ragContext, strategy := o.retriever.Context(ctx, searchQuery, lang, topK)
	ragContext = o.dates.EnhanceContext(ragContext, question)

	o.logger.Info("answering",
		"user", userID,
		"lang", lang,
		"type", questionType,
		"strategy", strategy,
		"context_chars", len(ragContext))

	// History feeds the prompt only when the question builds on it.
	injectedHistory := ""
	if questionType == "follow-up" {
		injectedHistory = history
	}

	prompt, err := renderAnswerPrompt(lang, promptData{
		Context:  ragContext,
		History:  injectedHistory,
		Question: question,
	})
	if err != nil {
		o.logger.Error("prompt rendering failed", "error", err)
		return generationErrorMessage
	}

	response, err := o.llm.Complete(ctx, prompt)
	if err != nil {
		o.logger.Error("answer generation failed", "user", userID, "error", err)
		return generationErrorMessage
	}

	answer := sanitizeResponse(response)
	sess.Memory.AddExchange(ctx, question, answer)
	return answer
}

// classifyQuestion asks the model whether the question is a follow-up.
// Any failure or unexpected reply degrades to "new question".
func (o *Orchestrator) classifyQuestion(ctx context.Context, question, history string) string {
	reply, err := o.llm.Complete(ctx, classificationPrompt(question, history))
	if err != nil {
		o.logger.Warn("question classification failed", "error", err)
		return "new question"
	}
	if strings.Contains(strings.ToLower(reply), "follow-up") {
		return "follow-up"
	}
	return "new question"
}

// rewriteQuery optimizes the question for retrieval. Any failure or empty
// rewrite falls back to the raw question.
func (o *Orchestrator) rewriteQuery(ctx context.Context, question, lang string) string {
	rewritten, err := o.llm.Complete(ctx, rewritePrompt(question, lang))
	if err != nil {
		o.logger.Warn("query rewrite failed", "error", err)
		return question
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question
	}
	o.logger.Debug("query rewritten", "from", question, "to", rewritten)
	return rewritten
}
