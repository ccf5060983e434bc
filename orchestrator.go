package aichatmanager

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/grounding"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/nadavsuissa/AiChatManager1/message"
	"github.com/nadavsuissa/AiChatManager1/provider"
	"github.com/nadavsuissa/AiChatManager1/run"
	"github.com/nadavsuissa/AiChatManager1/thread"
	"github.com/nadavsuissa/AiChatManager1/upload"
)

type (
	Orchestrator struct {
		gateway   provider.Gateway
		threads   thread.Manager
		grounding *grounding.Manager
		runs      *run.Executor
		uploader  *upload.Uploader
		logger    *slog.Logger

		openAIConfig       config.OpenAIConfig
		conversationConfig config.ConversationConfig
		logConfig          config.LogConfig
		clock              run.Clock
		uploadTempDir      string
	}
	Option func(*Orchestrator)

	SendMessageRequest struct {
		ThreadID    string
		AssistantID string
		Text        string
		FileIDs     []string
		// ProjectID enables thread rotation; without it the thread is used as-is.
		ProjectID string
	}

	// SendResponse is the assistant reply. The rotation fields are for the
	// caller only and must be stripped before the reply leaves the system.
	SendResponse struct {
		message.Message
		ThreadRotated bool   `json:"threadRotated,omitempty"`
		NewThreadID   string `json:"newThreadId,omitempty"`
	}

	AttachResult struct {
		AssistantID   string `json:"assistantId"`
		FileID        string `json:"fileId"`
		VectorStoreID string `json:"vectorStoreId"`
	}

	ProjectAssistant struct {
		AssistantID string `json:"assistantId"`
		Name        string `json:"name"`
		ThreadID    string `json:"threadId"`
	}
)

func NewOrchestrator(optionFuncs ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		openAIConfig:       config.NewOpenAIConfig(),
		conversationConfig: config.NewConversationConfig(),
		logConfig:          config.NewLogConfig(),
	}
	for _, f := range optionFuncs {
		f(o)
	}

	if o.logger == nil {
		o.logger = mylog.NewLogger(o.logConfig.LogLevel, o.logConfig.LogHandler)
	}
	if err := o.conversationConfig.Validate(); err != nil {
		return nil, err
	}

	if o.gateway == nil {
		gateway, err := provider.NewOpenAIGateway(o.openAIConfig, o.logger)
		if err != nil {
			return nil, err
		}
		o.gateway = gateway
	}

	runOpts := []run.Option{run.WithLogger(o.logger)}
	if o.clock != nil {
		runOpts = append(runOpts, run.WithClock(o.clock))
	}
	uploadOpts := []upload.Option{upload.WithLogger(o.logger)}
	if o.uploadTempDir != "" {
		uploadOpts = append(uploadOpts, upload.WithTempDir(o.uploadTempDir))
	}

	o.threads = thread.NewManager(o.gateway, o.conversationConfig.RotationThreshold, o.logger)
	o.grounding = grounding.NewManager(o.gateway, o.logger)
	o.runs = run.NewExecutor(o.gateway, o.conversationConfig, runOpts...)
	o.uploader = upload.NewUploader(o.gateway, o.conversationConfig, uploadOpts...)
	o.logger = o.logger.With("component", "orchestrator")

	return o, nil
}

func (o *Orchestrator) ConversationConfig() config.ConversationConfig {
	return o.conversationConfig
}

// SendMessage rotates the thread when a project id is given, runs the
// assistant and returns its normalized reply. When the thread was rotated
// the caller must persist NewThreadID.
func (o *Orchestrator) SendMessage(ctx context.Context, req SendMessageRequest) (*SendResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "message text is required")
	}

	threadID := req.ThreadID
	var rotation thread.Rotation
	if req.ProjectID != "" {
		rotation = o.threads.MaybeRotate(ctx, req.ProjectID, req.ThreadID, req.AssistantID)
		threadID = rotation.ThreadID
	}

	msg, err := o.runs.SendAndRun(ctx, run.SendRequest{
		ThreadID:    threadID,
		AssistantID: req.AssistantID,
		Content:     req.Text,
		FileIDs:     req.FileIDs,
	})
	if err != nil {
		return nil, err
	}

	resp := &SendResponse{Message: *msg}
	if rotation.IsNew {
		resp.ThreadRotated = true
		resp.NewThreadID = rotation.ThreadID
	}
	return resp, nil
}

// GetMessages returns the whole thread in display order. Messages with
// unsupported content are replaced by a placeholder.
func (o *Orchestrator) GetMessages(ctx context.Context, threadID string) ([]message.Message, error) {
	if threadID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "thread id is required")
	}

	raw, err := o.gateway.ListMessages(ctx, threadID, provider.ListMessagesParams{Order: provider.OrderAsc})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get messages")
	}

	msgs := lo.Map(raw, func(m provider.Message, _ int) message.Message {
		return message.FromProvider(m)
	})
	slices.SortStableFunc(msgs, func(a, b message.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return msgs, nil
}

func (o *Orchestrator) UploadFile(ctx context.Context, data []byte, filename string) (string, error) {
	file, err := o.uploader.Upload(ctx, data, filename)
	if err != nil {
		return "", err
	}
	return file.ID, nil
}

func (o *Orchestrator) MaxUploadBytes() int64 {
	return o.uploader.MaxBytes()
}

// AttachFileToAssistant returns *errors.GroundingError on failure.
func (o *Orchestrator) AttachFileToAssistant(ctx context.Context, assistantID string, fileID string) (*AttachResult, error) {
	storeID, err := o.grounding.AttachFile(ctx, assistantID, fileID)
	if err != nil {
		return nil, err
	}
	return &AttachResult{
		AssistantID:   assistantID,
		FileID:        fileID,
		VectorStoreID: storeID,
	}, nil
}

func (o *Orchestrator) GetAssistantFiles(ctx context.Context, assistantID string) ([]provider.VectorStoreFile, error) {
	return o.grounding.ListFiles(ctx, assistantID)
}

// RunOnceAndGetText returns the raw reply of a single prompt. Citation
// markers are not stripped.
func (o *Orchestrator) RunOnceAndGetText(ctx context.Context, threadID string, assistantID string, prompt string, timeout time.Duration) (string, error) {
	return o.runs.RunOnceAndGetRawText(ctx, threadID, assistantID, prompt, timeout)
}

// CreateProjectAssistant creates the assistant of a new project together
// with its first thread.
func (o *Orchestrator) CreateProjectAssistant(ctx context.Context, projectName string) (*ProjectAssistant, error) {
	projectName = cmp.Or(strings.TrimSpace(projectName), "Project")

	instructions, err := RenderAssistantInstructions(DefaultAssistantInstructions(projectName))
	if err != nil {
		return nil, err
	}

	assistant, err := o.gateway.CreateAssistant(ctx, provider.CreateAssistantParams{
		Name:         projectName + " Assistant",
		Instructions: instructions,
		Model:        o.openAIConfig.Model,
		Tools:        []provider.Tool{provider.ToolFileSearch},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create assistant")
	}

	threadID, err := o.threads.CreateThread(ctx)
	if err != nil {
		return nil, err
	}

	o.logger.Info("created project assistant", "name", assistant.Name, "assistant_id", assistant.ID, "thread_id", threadID)
	return &ProjectAssistant{
		AssistantID: assistant.ID,
		Name:        assistant.Name,
		ThreadID:    threadID,
	}, nil
}

func WithOpenAIAPIKey(apiKey string) Option {
	return func(o *Orchestrator) {
		o.openAIConfig.APIKey = apiKey
	}
}

func WithOpenAIConfig(conf config.OpenAIConfig) Option {
	return func(o *Orchestrator) {
		o.openAIConfig = conf
	}
}

func WithConversationConfig(conf config.ConversationConfig) Option {
	return func(o *Orchestrator) {
		o.conversationConfig = conf
	}
}

func WithLogConfig(conf config.LogConfig) Option {
	return func(o *Orchestrator) {
		o.logConfig = conf
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithGateway replaces the OpenAI gateway, mostly with a test double.
func WithGateway(gateway provider.Gateway) Option {
	return func(o *Orchestrator) {
		o.gateway = gateway
	}
}

func WithClock(clock run.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

func WithUploadTempDir(dir string) Option {
	return func(o *Orchestrator) {
		o.uploadTempDir = dir
	}
}
