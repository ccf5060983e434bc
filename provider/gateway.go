package provider

import (
	"context"
	"io"
	"time"
)

type (
	Role      string
	RunStatus string
	Order     string
	Tool      string
)

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"

	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"

	ToolFileSearch Tool = "file_search"
)

// IsTerminal reports whether the provider will never move the run to another
// status.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	default:
		return false
	}
}

type (
	Assistant struct {
		ID           string
		Name         string
		Instructions string
		Model        string
		Tools        []Tool
		// VectorStoreIDs are the file_search tool resources of the assistant.
		VectorStoreIDs []string
		CreatedAt      time.Time
	}

	CreateAssistantParams struct {
		Name         string
		Instructions string
		Model        string
		Tools        []Tool
	}

	Thread struct {
		ID        string
		CreatedAt time.Time
	}

	Attachment struct {
		FileID string
		Tools  []Tool
	}

	AppendMessageParams struct {
		Role        Role
		Content     string
		Attachments []Attachment
	}

	ContentPart struct {
		// Type is the provider content type, "text" for text parts.
		Type string
		Text string
	}

	Message struct {
		ID        string
		ThreadID  string
		Role      Role
		Content   []ContentPart
		CreatedAt time.Time
		RunID     string
	}

	// ListMessagesParams limits the listing to Limit messages in total; zero
	// lists the whole thread.
	ListMessagesParams struct {
		Limit int
		Order Order
	}

	Run struct {
		ID          string
		ThreadID    string
		AssistantID string
		Status      RunStatus
		LastError   *RunError
	}

	RunError struct {
		Code    string
		Message string
	}

	File struct {
		ID        string
		Filename  string
		Bytes     int64
		CreatedAt time.Time
	}

	VectorStore struct {
		ID        string
		Name      string
		CreatedAt time.Time
	}

	VectorStoreFile struct {
		ID            string `json:"id"`
		VectorStoreID string `json:"vector_store_id"`
		Status        string `json:"status"`
		UsageBytes    int64  `json:"usage_bytes"`
		CreatedAt     int64  `json:"created_at"`
	}

	// Gateway is a typed pass-through to the AI provider. Implementations do
	// not retry, poll or interpret content.
	Gateway interface {
		CreateAssistant(ctx context.Context, params CreateAssistantParams) (*Assistant, error)
		GetAssistant(ctx context.Context, assistantID string) (*Assistant, error)
		UpdateAssistantToolResources(ctx context.Context, assistantID string, vectorStoreIDs []string) (*Assistant, error)

		CreateThread(ctx context.Context) (*Thread, error)
		AppendMessage(ctx context.Context, threadID string, params AppendMessageParams) (*Message, error)
		ListMessages(ctx context.Context, threadID string, params ListMessagesParams) ([]Message, error)

		CreateRun(ctx context.Context, threadID string, assistantID string) (*Run, error)
		GetRun(ctx context.Context, threadID string, runID string) (*Run, error)

		// UploadFile infers the filename from the reader when it exposes one.
		UploadFile(ctx context.Context, file io.Reader) (*File, error)

		CreateVectorStore(ctx context.Context, name string) (*VectorStore, error)
		AddFileToVectorStore(ctx context.Context, vectorStoreID string, fileID string) (*VectorStoreFile, error)
		ListVectorStoreFiles(ctx context.Context, vectorStoreID string) ([]VectorStoreFile, error)
	}
)

// Text returns the first text part of the message.
func (m Message) Text() (string, bool) {
	for _, part := range m.Content {
		if part.Type == "text" {
			return part.Text, true
		}
	}
	return "", false
}

func (e *RunError) String() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}
