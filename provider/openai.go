package provider

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
)

const listPageSize = 100

type OpenAIGateway struct {
	client  openai.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var (
	_ Gateway = (*OpenAIGateway)(nil)
)

// NewOpenAIGateway builds the gateway with SDK retries disabled; retry
// policy belongs to the callers that need one.
func NewOpenAIGateway(conf config.OpenAIConfig, logger *slog.Logger, opts ...option.RequestOption) (*OpenAIGateway, error) {
	if conf.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "openai api key is required")
	}
	if logger == nil {
		logger = mylog.Discard()
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(conf.APIKey),
		option.WithMaxRetries(0),
	}
	if conf.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(conf.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	var limiter *rate.Limiter
	if conf.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(conf.RequestsPerSecond), max(conf.Burst, 1))
	}

	return &OpenAIGateway{
		client:  openai.NewClient(clientOpts...),
		limiter: limiter,
		logger:  logger.With("component", "openai"),
	}, nil
}

func (g *OpenAIGateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter")
	}
	return nil
}

func (g *OpenAIGateway) CreateAssistant(ctx context.Context, params CreateAssistantParams) (*Assistant, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	assistant, err := g.client.Beta.Assistants.New(ctx, openai.BetaAssistantNewParams{
		Model:        shared.ChatModel(params.Model),
		Name:         openai.String(params.Name),
		Instructions: openai.String(params.Instructions),
		Tools:        toAssistantTools(params.Tools),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create assistant")
	}

	g.logger.Debug("created assistant", "assistant_id", assistant.ID, "name", assistant.Name)
	return fromAssistant(assistant), nil
}

func (g *OpenAIGateway) GetAssistant(ctx context.Context, assistantID string) (*Assistant, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	assistant, err := g.client.Beta.Assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get assistant %s", assistantID)
	}

	return fromAssistant(assistant), nil
}

func (g *OpenAIGateway) UpdateAssistantToolResources(ctx context.Context, assistantID string, vectorStoreIDs []string) (*Assistant, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	assistant, err := g.client.Beta.Assistants.Update(ctx, assistantID, openai.BetaAssistantUpdateParams{
		ToolResources: openai.BetaAssistantUpdateParamsToolResources{
			FileSearch: openai.BetaAssistantUpdateParamsToolResourcesFileSearch{
				VectorStoreIDs: vectorStoreIDs,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update tool resources of assistant %s", assistantID)
	}

	return fromAssistant(assistant), nil
}

func (g *OpenAIGateway) CreateThread(ctx context.Context) (*Thread, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	thread, err := g.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create thread")
	}

	g.logger.Debug("created thread", "thread_id", thread.ID)
	return &Thread{
		ID:        thread.ID,
		CreatedAt: time.Unix(thread.CreatedAt, 0),
	}, nil
}

func (g *OpenAIGateway) AppendMessage(ctx context.Context, threadID string, params AppendMessageParams) (*Message, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	req := openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRole(params.Role),
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(params.Content),
		},
	}
	if len(params.Attachments) > 0 {
		req.Attachments = lo.Map(params.Attachments, func(a Attachment, _ int) openai.BetaThreadMessageNewParamsAttachment {
			return openai.BetaThreadMessageNewParamsAttachment{
				FileID: openai.String(a.FileID),
				Tools:  toAttachmentTools(a.Tools),
			}
		})
	}

	msg, err := g.client.Beta.Threads.Messages.New(ctx, threadID, req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to add message to thread %s", threadID)
	}

	g.logger.Debug("added message", "thread_id", threadID, "message_id", msg.ID, "attachments", len(params.Attachments))
	return lo.ToPtr(fromMessage(*msg)), nil
}

func (g *OpenAIGateway) ListMessages(ctx context.Context, threadID string, params ListMessagesParams) ([]Message, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	pageSize := listPageSize
	if params.Limit > 0 && params.Limit < pageSize {
		pageSize = params.Limit
	}
	req := openai.BetaThreadMessageListParams{
		Limit: openai.Int(int64(pageSize)),
	}
	if params.Order != "" {
		req.Order = openai.BetaThreadMessageListParamsOrder(params.Order)
	}

	var messages []Message
	iter := g.client.Beta.Threads.Messages.ListAutoPaging(ctx, threadID, req)
	for iter.Next() {
		messages = append(messages, fromMessage(iter.Current()))
		if params.Limit > 0 && len(messages) >= params.Limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to list messages of thread %s", threadID)
	}

	return messages, nil
}

func (g *OpenAIGateway) CreateRun(ctx context.Context, threadID string, assistantID string) (*Run, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	run, err := g.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create run on thread %s", threadID)
	}

	g.logger.Debug("created run", "thread_id", threadID, "run_id", run.ID)
	return fromRun(run), nil
}

func (g *OpenAIGateway) GetRun(ctx context.Context, threadID string, runID string) (*Run, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	run, err := g.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get run %s", runID)
	}

	return fromRun(run), nil
}

func (g *OpenAIGateway) UploadFile(ctx context.Context, file io.Reader) (*File, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	obj, err := g.client.Files.New(ctx, openai.FileNewParams{
		File:    file,
		Purpose: openai.FilePurposeAssistants,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upload file")
	}

	g.logger.Debug("uploaded file", "file_id", obj.ID, "filename", obj.Filename, "bytes", obj.Bytes)
	return &File{
		ID:        obj.ID,
		Filename:  obj.Filename,
		Bytes:     obj.Bytes,
		CreatedAt: time.Unix(obj.CreatedAt, 0),
	}, nil
}

func (g *OpenAIGateway) CreateVectorStore(ctx context.Context, name string) (*VectorStore, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	store, err := g.client.VectorStores.New(ctx, openai.VectorStoreNewParams{
		Name: openai.String(name),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create vector store")
	}

	g.logger.Debug("created vector store", "vector_store_id", store.ID, "name", store.Name)
	return &VectorStore{
		ID:        store.ID,
		Name:      store.Name,
		CreatedAt: time.Unix(store.CreatedAt, 0),
	}, nil
}

func (g *OpenAIGateway) AddFileToVectorStore(ctx context.Context, vectorStoreID string, fileID string) (*VectorStoreFile, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	file, err := g.client.VectorStores.Files.New(ctx, vectorStoreID, openai.VectorStoreFileNewParams{
		FileID: fileID,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to add file %s to vector store %s", fileID, vectorStoreID)
	}

	return lo.ToPtr(fromVectorStoreFile(*file)), nil
}

func (g *OpenAIGateway) ListVectorStoreFiles(ctx context.Context, vectorStoreID string) ([]VectorStoreFile, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	files := make([]VectorStoreFile, 0)
	iter := g.client.VectorStores.Files.ListAutoPaging(ctx, vectorStoreID, openai.VectorStoreFileListParams{
		Limit: openai.Int(listPageSize),
	})
	for iter.Next() {
		files = append(files, fromVectorStoreFile(iter.Current()))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to list files of vector store %s", vectorStoreID)
	}

	return files, nil
}

func toAssistantTools(tools []Tool) []openai.AssistantToolUnionParam {
	res := make([]openai.AssistantToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		if tool == ToolFileSearch {
			res = append(res, openai.AssistantToolUnionParam{
				OfFileSearch: &openai.FileSearchToolParam{},
			})
		}
	}
	return res
}

func toAttachmentTools(tools []Tool) []openai.BetaThreadMessageNewParamsAttachmentToolUnion {
	res := make([]openai.BetaThreadMessageNewParamsAttachmentToolUnion, 0, len(tools))
	for _, tool := range tools {
		if tool == ToolFileSearch {
			res = append(res, openai.BetaThreadMessageNewParamsAttachmentToolUnion{
				OfFileSearch: &openai.BetaThreadMessageNewParamsAttachmentToolFileSearch{},
			})
		}
	}
	return res
}

func fromAssistant(a *openai.Assistant) *Assistant {
	return &Assistant{
		ID:           a.ID,
		Name:         a.Name,
		Instructions: a.Instructions,
		Model:        a.Model,
		Tools: lo.Map(a.Tools, func(t openai.AssistantToolUnion, _ int) Tool {
			return Tool(t.Type)
		}),
		VectorStoreIDs: a.ToolResources.FileSearch.VectorStoreIDs,
		CreatedAt:      time.Unix(a.CreatedAt, 0),
	}
}

func fromMessage(m openai.Message) Message {
	return Message{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		Role:     Role(m.Role),
		Content: lo.Map(m.Content, func(c openai.MessageContentUnion, _ int) ContentPart {
			part := ContentPart{Type: c.Type}
			if c.Type == "text" {
				part.Text = c.Text.Value
			}
			return part
		}),
		CreatedAt: time.Unix(m.CreatedAt, 0),
		RunID:     m.RunID,
	}
}

func fromRun(r *openai.Run) *Run {
	run := &Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		AssistantID: r.AssistantID,
		Status:      RunStatus(r.Status),
	}
	if r.LastError.Message != "" || r.LastError.Code != "" {
		run.LastError = &RunError{
			Code:    string(r.LastError.Code),
			Message: r.LastError.Message,
		}
	}
	return run
}

func fromVectorStoreFile(f openai.VectorStoreFile) VectorStoreFile {
	return VectorStoreFile{
		ID:            f.ID,
		VectorStoreID: f.VectorStoreID,
		Status:        string(f.Status),
		UsageBytes:    f.UsageBytes,
		CreatedAt:     f.CreatedAt,
	}
}
