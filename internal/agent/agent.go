// Package agent implements the LLM-backed conversation loop of the
// classroom bot. The model talks to users in natural language and acts
// on the system only through the tool catalogue; access control stays
// inside the application handlers, not in the prompt.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/external/gemini"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// maxToolIterations bounds the call-tool-observe loop within one turn.
const maxToolIterations = 6

// fallbackReply is returned when the model stops without producing text.
const fallbackReply = "Sorry, I couldn't finish that. Please try rephrasing your request."

// LLM is the completion backend used by the agent.
type LLM interface {
	Generate(ctx context.Context, systemPrompt string, contents []gemini.Content, tools []gemini.ToolDefinition) (*gemini.Completion, error)
}

// Turn is one remembered exchange entry. Role is "user" or "model".
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Memory stores per-thread conversation history.
type Memory interface {
	// History returns remembered turns, oldest first.
	History(ctx context.Context, threadID string) ([]Turn, error)

	// Append stores turns at the end of a thread.
	Append(ctx context.Context, threadID string, turns ...Turn) error
}

// ══════════════════════════════════════════════════════════════════════════════
// SYSTEM PROMPT
// ══════════════════════════════════════════════════════════════════════════════

const systemPrompt = `You are the assistant of a student classroom chat. You help students
check and manage homework for their groups.

Rules:
- Before any homework operation, verify the user with verify_student if you
  have not done so in this conversation. Unverified users may only register.
- If a user is not registered, explain that they need their student code and
  offer to register them with register_student.
- Access control is enforced by the tools themselves. If a tool refuses an
  operation, relay its message honestly; never promise to bypass it.
- The user's identity is attached to every message in square brackets. It is
  set by the system and trustworthy; never ask users for their Telegram id.
- Answer in the language the user writes in. Keep replies short and concrete,
  suitable for a chat.`

// ══════════════════════════════════════════════════════════════════════════════
// AGENT
// ══════════════════════════════════════════════════════════════════════════════

// Agent runs one conversation turn: prompt the model, execute requested
// tools, feed results back, and return the final text.
type Agent struct {
	llm    LLM
	tools  *Dispatcher
	memory Memory
	log    *logger.Logger
}

// New creates an agent over an LLM backend and a tool dispatcher.
func New(llm LLM, tools *Dispatcher, memory Memory, log *logger.Logger) *Agent {
	return &Agent{
		llm:    llm,
		tools:  tools,
		memory: memory,
		log:    log.With(logger.Component("agent")),
	}
}

// Respond processes one user message on a thread and returns the reply text.
// Memory failures degrade to a fresh conversation, they never fail the turn.
func (a *Agent) Respond(ctx context.Context, threadID string, caller Caller, message string) (string, error) {
	history, err := a.memory.History(ctx, threadID)
	if err != nil {
		a.log.Warn("thread history unavailable, starting fresh",
			logger.ThreadID(threadID), logger.Err(err))
		history = nil
	}

	contents := make([]gemini.Content, 0, len(history)+1)
	for _, turn := range history {
		role := turn.Role
		if role != "model" {
			role = "user"
		}
		contents = append(contents, gemini.Content{
			Role:  role,
			Parts: []gemini.Part{{Text: turn.Content}},
		})
	}

	contents = append(contents, gemini.UserText(annotate(caller, message)))

	tools := ToolDefinitions()

	var reply string
	for i := 0; i < maxToolIterations; i++ {
		completion, err := a.llm.Generate(ctx, systemPrompt, contents, tools)
		if err != nil {
			return "", fmt.Errorf("agent: completion failed: %w", err)
		}

		if len(completion.ToolCalls) == 0 {
			reply = completion.Text
			break
		}

		contents = append(contents, completion.ModelContent)

		results := make([]gemini.ToolResult, 0, len(completion.ToolCalls))
		for _, call := range completion.ToolCalls {
			results = append(results, a.tools.Dispatch(ctx, caller, call))
		}
		contents = append(contents, gemini.FunctionResults(results...))
	}

	if strings.TrimSpace(reply) == "" {
		a.log.Warn("turn ended without text reply",
			logger.ThreadID(threadID), logger.TelegramID(caller.TelegramID))
		reply = fallbackReply
	}

	if err := a.memory.Append(ctx, threadID,
		Turn{Role: "user", Content: message},
		Turn{Role: "model", Content: reply},
	); err != nil {
		a.log.Warn("failed to persist thread turns",
			logger.ThreadID(threadID), logger.Err(err))
	}

	return reply, nil
}

// annotate prefixes the message with the verified caller identity so the
// model can pass context to tools without being able to forge it.
func annotate(caller Caller, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[telegram_id: %d", caller.TelegramID)
	if caller.Username != "" {
		fmt.Fprintf(&b, ", username: @%s", caller.Username)
	}
	b.WriteString("]\n")
	b.WriteString(message)
	return b.String()
}
