// ABOUTME: ConversationTurn is a caller-supplied history entry
// ABOUTME: Message is a single entry of a generation request
package models

import "strings"

// Role identifies who produced a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of the conversation history
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IsWellFormed reports whether the turn has a known role and non-blank content
func (t ConversationTurn) IsWellFormed() bool {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return false
	}
	return strings.TrimSpace(t.Content) != ""
}

// Message is one entry in a chat generation request
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RecentTurns keeps the well-formed turns of history and returns at most the
// last n of them. The input slice is never modified.
func RecentTurns(history []ConversationTurn, n int) []ConversationTurn {
	if n <= 0 {
		return nil
	}
	var kept []ConversationTurn
	for _, turn := range history {
		if turn.IsWellFormed() {
			kept = append(kept, ConversationTurn{Role: turn.Role, Content: strings.TrimSpace(turn.Content)})
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}
