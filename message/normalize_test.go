package message_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadavsuissa/AiChatManager1/message"
	"github.com/nadavsuissa/AiChatManager1/provider"
)

const (
	rle = "\u202B"
	pdf = "\u202C"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		text string
		role provider.Role
		want string
	}{
		{"citation between words", "Hello 【doc.pdf】 world", provider.RoleAssistant, "Hello world"},
		{"many citations", "a【4:0†source】b 【x】c【】", provider.RoleAssistant, "ab c"},
		{"citation before word keeps space", "see 【1】text", provider.RoleUser, "see text"},
		{"citation glued to next word", "a 【x】b", provider.RoleUser, "a b"},
		{"citation before newline", "end 【1】\nnext", provider.RoleUser, "end\nnext"},
		{"source phrase before word", `x (המידע מופיע במסמך "a.pdf")y`, provider.RoleUser, "x y"},
		{"no brackets is identity", "  plain text, kept as is.  ", provider.RoleAssistant, "plain text, kept as is."},
		{"newlines are preserved", "line one【1】\nline two", provider.RoleAssistant, "line one\nline two"},
		{"source phrase", `התשובה היא 42 (המידע מופיע במסמך "report.pdf")`, provider.RoleAssistant, rle + "התשובה היא 42" + pdf},
		{"hebrew assistant wrapped", "שלום【a.pdf】", provider.RoleAssistant, rle + "שלום" + pdf},
		{"hebrew user not wrapped", "שלום", provider.RoleUser, "שלום"},
		{"only citation is empty", " 【doc.pdf】 ", provider.RoleAssistant, ""},
		{"unterminated bracket kept", "open 【 only", provider.RoleAssistant, "open 【 only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, message.Normalize(tt.text, tt.role))
		})
	}
}

func TestNormalizeNeverLeavesCitations(t *testing.T) {
	inputs := []string{
		"【a】【b】【c】",
		"x 【1】 y 【2】 z",
		"【nested 【inner】 outer】",
		"tab\t【t】",
	}
	for _, in := range inputs {
		out := message.Normalize(in, provider.RoleAssistant)
		assert.NotRegexp(t, `【[^】]*】`, out, "input %q", in)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	in := "שלום 【doc】 עולם"
	first := message.Normalize(in, provider.RoleAssistant)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, message.Normalize(in, provider.RoleAssistant))
	}
}

func TestRTLWrapping(t *testing.T) {
	for _, in := range []string{"א", "mixed עברית text", "123 ת"} {
		out := message.Normalize(in, provider.RoleAssistant)
		assert.True(t, strings.HasPrefix(out, rle), in)
		assert.True(t, strings.HasSuffix(out, pdf), in)

		out = message.Normalize(in, provider.RoleUser)
		assert.False(t, strings.HasPrefix(out, rle), in)
		assert.False(t, strings.HasSuffix(out, pdf), in)
	}

	assert.Equal(t, "English only", message.Normalize("English only", provider.RoleAssistant))
}

func TestFromProvider(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("text part", func(t *testing.T) {
		msg := message.FromProvider(provider.Message{
			ID:        "msg_1",
			Role:      provider.RoleAssistant,
			Content:   []provider.ContentPart{{Type: "text", Text: "Hello 【doc.pdf】 world"}},
			CreatedAt: createdAt,
			RunID:     "run_1",
		})
		assert.Equal(t, "msg_1", msg.ID)
		assert.Equal(t, "Hello world", msg.Content)
		assert.Equal(t, createdAt, msg.CreatedAt)
		assert.Equal(t, "run_1", msg.RunID)
		require.NotNil(t, msg.Citations)
		assert.Empty(t, msg.Citations)
	})

	t.Run("unsupported content", func(t *testing.T) {
		assistant := message.FromProvider(provider.Message{
			ID:      "msg_2",
			Role:    provider.RoleAssistant,
			Content: []provider.ContentPart{{Type: "image_file"}},
		})
		assert.Equal(t, message.Placeholder(provider.RoleAssistant), assistant.Content)
		assert.True(t, strings.HasPrefix(assistant.Content, rle))

		user := message.FromProvider(provider.Message{ID: "msg_3", Role: provider.RoleUser})
		assert.Equal(t, "[Unsupported content]", user.Content)
	})
}

func TestFallback(t *testing.T) {
	now := time.Now()
	msg := message.Fallback(now)
	assert.Equal(t, message.FallbackID, msg.ID)
	assert.Equal(t, provider.RoleAssistant, msg.Role)
	assert.Equal(t, rle+"לא התקבלה תשובה מהעוזר. נסה שוב."+pdf, msg.Content)
	assert.Equal(t, now, msg.CreatedAt)
	assert.Empty(t, msg.Citations)
}
