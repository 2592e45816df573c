package chat

import "strings"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the client-supplied conversation history. The
// server keeps no conversation state of its own.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// DefaultInstructions is the grounding preamble placed at the top of every
// composed prompt.
const DefaultInstructions = `You are a friendly assistant on a personal portfolio website. ` +
	`Answer visitor questions about the site owner using only the facts below. ` +
	`If the answer is not covered by the facts, say you don't know and suggest ` +
	`contacting the owner directly. Keep answers short and conversational.`

// BuildPrompt linearizes instructions, grounding context, conversation
// history, and the new message into the exact text sent to the generator.
// History is rendered in the order supplied, and the result always ends with
// a bare "Assistant:" continuation marker. Pure string transform; empty
// inputs are valid and render as empty sections.
func BuildPrompt(instructions, contextBlock string, history []Turn, message string) string {
	var sb strings.Builder

	if instructions != "" {
		sb.WriteString(instructions)
		sb.WriteString("\n\n")
	}
	if contextBlock != "" {
		sb.WriteString(contextBlock)
		sb.WriteString("\n")
	}

	for _, turn := range history {
		sb.WriteString(speakerLabel(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}

	sb.WriteString("User: ")
	sb.WriteString(message)
	sb.WriteString("\nAssistant:")
	return sb.String()
}

func speakerLabel(r Role) string {
	if r == RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// capHistory keeps only the most recent max turns. A non-positive max leaves
// history unchanged.
func capHistory(history []Turn, max int) []Turn {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
