package message

import (
	"time"

	"github.com/nadavsuissa/AiChatManager1/provider"
)

const (
	FallbackID = "fallback"

	fallbackText           = "לא התקבלה תשובה מהעוזר. נסה שוב."
	unsupportedAssistant   = "[תוכן הודעה לא נתמך]"
	unsupportedUserContent = "[Unsupported content]"
)

type (
	Citation struct {
		FileID string `json:"fileId"`
		Quote  string `json:"quote,omitempty"`
	}

	Message struct {
		ID        string        `json:"id"`
		Role      provider.Role `json:"role"`
		Content   string        `json:"content"`
		Citations []Citation    `json:"citations"`
		CreatedAt time.Time     `json:"createdAt"`
		RunID     string        `json:"runId,omitempty"`
	}
)

// FromProvider converts a raw thread message for display. Messages without a
// text part get a placeholder instead of failing.
func FromProvider(m provider.Message) Message {
	res := Message{
		ID:        m.ID,
		Role:      m.Role,
		Citations: []Citation{},
		CreatedAt: m.CreatedAt,
		RunID:     m.RunID,
	}

	text, ok := m.Text()
	if !ok {
		res.Content = Placeholder(m.Role)
		return res
	}
	res.Content = Normalize(text, m.Role)
	return res
}

func Placeholder(role provider.Role) string {
	if role == provider.RoleAssistant {
		return WrapRTL(unsupportedAssistant)
	}
	return unsupportedUserContent
}

func FallbackText() string {
	return WrapRTL(fallbackText)
}

func Fallback(now time.Time) Message {
	return Message{
		ID:        FallbackID,
		Role:      provider.RoleAssistant,
		Content:   FallbackText(),
		Citations: []Citation{},
		CreatedAt: now,
	}
}
