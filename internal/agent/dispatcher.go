package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/command"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/application/query"
	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/external/gemini"
	"github.com/artemkaplagg/upiontelegram-classbot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOOL DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Caller is the authenticated Telegram identity behind a tool call.
// It comes from the update, never from model-provided arguments.
type Caller struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// Dispatcher routes model tool calls to the application handlers.
type Dispatcher struct {
	verify   *query.VerifyStudentHandler
	register *command.RegisterStudentHandler
	add      *command.AddHomeworkHandler
	list     *query.ListHomeworkHandler
	delete   *command.DeleteHomeworkHandler
	log      *logger.Logger
}

// NewDispatcher creates a tool dispatcher over the application handlers.
func NewDispatcher(
	verify *query.VerifyStudentHandler,
	register *command.RegisterStudentHandler,
	add *command.AddHomeworkHandler,
	list *query.ListHomeworkHandler,
	del *command.DeleteHomeworkHandler,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		verify:   verify,
		register: register,
		add:      add,
		list:     list,
		delete:   del,
		log:      log.With(logger.Component("dispatcher")),
	}
}

// Dispatch executes one tool call on behalf of the caller and returns
// the result as JSON. Business failures come back as structured results
// with success=false; only unexpected handler errors produce an error
// result, with the cause logged rather than exposed to the model.
func (d *Dispatcher) Dispatch(ctx context.Context, caller Caller, call gemini.ToolCall) gemini.ToolResult {
	d.log.Debug("dispatching tool call",
		logger.Tool(call.Name),
		logger.TelegramID(caller.TelegramID),
	)

	var (
		payload interface{}
		err     error
	)

	switch call.Name {
	case ToolVerifyStudent:
		payload, err = d.verify.Handle(ctx, query.VerifyStudentQuery{
			TelegramID: caller.TelegramID,
			Username:   caller.Username,
		})

	case ToolRegisterStudent:
		payload, err = d.register.Handle(ctx, command.RegisterStudentCommand{
			TelegramID:  caller.TelegramID,
			Username:    caller.Username,
			StudentCode: argString(call.Args, "student_id"),
			FirstName:   caller.FirstName,
			LastName:    caller.LastName,
		})

	case ToolAddHomework:
		payload, err = d.add.Handle(ctx, command.AddHomeworkCommand{
			TelegramID:  caller.TelegramID,
			Title:       argString(call.Args, "title"),
			Description: argString(call.Args, "description"),
			Subject:     argString(call.Args, "subject"),
			DueDate:     argString(call.Args, "due_date"),
			GroupName:   argString(call.Args, "group_name"),
		})

	case ToolListHomework:
		payload, err = d.list.Handle(ctx, query.ListHomeworkQuery{
			TelegramID: caller.TelegramID,
			GroupName:  argString(call.Args, "group_name"),
			Limit:      argInt(call.Args, "limit"),
		})

	case ToolDeleteHomework:
		payload, err = d.delete.Handle(ctx, command.DeleteHomeworkCommand{
			TelegramID: caller.TelegramID,
			HomeworkID: argString(call.Args, "homework_id"),
		})

	default:
		return errorResult(call.Name, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	if err != nil {
		d.log.Error("tool call failed",
			logger.Tool(call.Name),
			logger.TelegramID(caller.TelegramID),
			logger.Err(err),
		)
		return errorResult(call.Name, "The operation could not be completed, please try again later.")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("tool result serialization failed", logger.Tool(call.Name), logger.Err(err))
		return errorResult(call.Name, "The operation could not be completed, please try again later.")
	}

	return gemini.ToolResult{
		Name:    call.Name,
		Content: string(data),
	}
}

func errorResult(name, message string) gemini.ToolResult {
	data, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"message": message,
	})
	return gemini.ToolResult{
		Name:    name,
		Content: string(data),
		IsError: true,
	}
}

func argString(args map[string]interface{}, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]interface{}, key string) int {
	if args == nil {
		return 0
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
