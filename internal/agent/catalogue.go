package agent

import (
	"github.com/artemkaplagg/upiontelegram-classbot/internal/infrastructure/external/gemini"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOOL CATALOGUE
// ══════════════════════════════════════════════════════════════════════════════

// Tool names form a closed set. The dispatcher rejects anything else.
const (
	ToolVerifyStudent   = "verify_student"
	ToolRegisterStudent = "register_student"
	ToolAddHomework     = "add_homework"
	ToolListHomework    = "list_homework"
	ToolDeleteHomework  = "delete_homework"
)

// ToolDefinitions returns the function declarations offered to the model.
// The caller's Telegram identity is never part of a schema: it is injected
// by the dispatcher from the session, so the model cannot spoof it.
func ToolDefinitions() []gemini.ToolDefinition {
	return []gemini.ToolDefinition{
		{
			Name: ToolVerifyStudent,
			Description: "Check whether the current user is a registered student. " +
				"Returns their name, group and access level. Call this before any " +
				"homework operation if the user's status is unknown.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name: ToolRegisterStudent,
			Description: "Register the current user as a student using their student code. " +
				"The code must be on the class roster. Safe to repeat: registering again " +
				"with the same code succeeds without changes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"student_id": map[string]interface{}{
						"type":        "string",
						"description": "The student code from the class roster, e.g. 'st2024015'.",
					},
				},
				"required": []string{"student_id"},
			},
		},
		{
			Name: ToolAddHomework,
			Description: "Create a homework entry for a group. Requires monitor access or higher. " +
				"Without group_name the entry goes to the caller's own group.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Short homework title.",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "Full assignment text.",
					},
					"subject": map[string]interface{}{
						"type":        "string",
						"description": "Subject or course name.",
					},
					"due_date": map[string]interface{}{
						"type":        "string",
						"description": "Due date, e.g. '2026-09-15' or '15.09.2026 18:00'.",
					},
					"group_name": map[string]interface{}{
						"type":        "string",
						"description": "Target group name. Defaults to the caller's group.",
					},
				},
				"required": []string{"title"},
			},
		},
		{
			Name: ToolListHomework,
			Description: "List recent homework for a group, newest first. Students always " +
				"see their own group; admins may name another group.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"group_name": map[string]interface{}{
						"type":        "string",
						"description": "Group to list. Ignored unless the caller is an admin.",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of entries to return.",
					},
				},
			},
		},
		{
			Name: ToolDeleteHomework,
			Description: "Delete a homework entry by its id. Requires monitor access or higher.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"homework_id": map[string]interface{}{
						"type":        "string",
						"description": "The id of the homework entry to delete.",
					},
				},
				"required": []string{"homework_id"},
			},
		},
	}
}
