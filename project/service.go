package project

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jcooky/go-din"
	"github.com/mokiat/gog"
	"github.com/samber/lo"

	aichatmanager "github.com/nadavsuissa/AiChatManager1"
	"github.com/nadavsuissa/AiChatManager1/entity"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/nadavsuissa/AiChatManager1/message"
	"github.com/nadavsuissa/AiChatManager1/provider"
	"github.com/nadavsuissa/AiChatManager1/upload"
)

type (
	// Conversations is the part of the orchestrator a project needs.
	Conversations interface {
		CreateProjectAssistant(ctx context.Context, projectName string) (*aichatmanager.ProjectAssistant, error)
		SendMessage(ctx context.Context, req aichatmanager.SendMessageRequest) (*aichatmanager.SendResponse, error)
		GetMessages(ctx context.Context, threadID string) ([]message.Message, error)
		UploadFile(ctx context.Context, data []byte, filename string) (string, error)
		AttachFileToAssistant(ctx context.Context, assistantID string, fileID string) (*aichatmanager.AttachResult, error)
		GetAssistantFiles(ctx context.Context, assistantID string) ([]provider.VectorStoreFile, error)
		RunOnceAndGetText(ctx context.Context, threadID string, assistantID string, prompt string, timeout time.Duration) (string, error)
	}

	Service struct {
		store         Store
		conversations Conversations
		logger        *slog.Logger
		locks         *keyedMutex
	}

	Messages struct {
		ProjectID string            `json:"projectId"`
		ThreadID  string            `json:"threadId"`
		Messages  []message.Message `json:"messages"`
	}

	AssistantFiles struct {
		ProjectID      string                     `json:"projectId"`
		AssistantID    string                     `json:"assistantId"`
		AssistantFiles []provider.VectorStoreFile `json:"assistantFiles"`
		// FixedFiles counts records re-attached by this call.
		FixedFiles int `json:"fixedFiles"`
	}
)

func NewService(store Store, conversations Conversations, logger *slog.Logger) *Service {
	if logger == nil {
		logger = mylog.Discard()
	}
	return &Service{
		store:         store,
		conversations: conversations,
		logger:        logger.With("component", "project"),
		locks:         newKeyedMutex(),
	}
}

func (s *Service) CreateProject(ctx context.Context, name string) (*entity.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "project name is required")
	}

	pa, err := s.conversations.CreateProjectAssistant(ctx, name)
	if err != nil {
		return nil, err
	}

	project := &entity.Project{
		Name:        name,
		AssistantID: pa.AssistantID,
		ThreadID:    pa.ThreadID,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("created project", "project_id", project.ID, "assistant_id", project.AssistantID, "thread_id", project.ThreadID)
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	return s.store.GetProject(ctx, id)
}

// SendMessage sends text on the project's active thread. Sends of one
// project are serialized so a rotation is persisted before the next send
// reads the thread id.
func (s *Service) SendMessage(ctx context.Context, projectID string, text string, fileIDs []string) (*message.Message, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	project, err := s.conversationProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	resp, err := s.conversations.SendMessage(ctx, aichatmanager.SendMessageRequest{
		ThreadID:    project.ThreadID,
		AssistantID: project.AssistantID,
		Text:        text,
		FileIDs:     fileIDs,
		ProjectID:   project.ID,
	})
	if err != nil {
		return nil, err
	}

	if resp.ThreadRotated && resp.NewThreadID != "" {
		if _, err := s.store.UpdateThread(ctx, project.ID, resp.NewThreadID); err != nil {
			return nil, errors.Wrapf(err, "failed to persist rotated thread %s", resp.NewThreadID)
		}
		s.logger.Info("project thread rotated", "project_id", project.ID, "old_thread_id", project.ThreadID, "new_thread_id", resp.NewThreadID)
	}

	return &resp.Message, nil
}

func (s *Service) Messages(ctx context.Context, projectID string) (*Messages, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ThreadID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "project %s has no thread", projectID)
	}

	msgs, err := s.conversations.GetMessages(ctx, project.ThreadID)
	if err != nil {
		return nil, err
	}

	return &Messages{
		ProjectID: project.ID,
		ThreadID:  project.ThreadID,
		Messages:  msgs,
	}, nil
}

// UploadFile uploads data and grounds it in the project assistant. A
// grounding failure is not returned: the record is kept unattached and
// AssistantFiles repairs it later.
func (s *Service) UploadFile(ctx context.Context, projectID string, name string, mimeType string, data []byte) (*entity.File, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.AssistantID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "project %s has no assistant", projectID)
	}

	name = upload.SanitizeFilename(name)
	fileID, err := s.conversations.UploadFile(ctx, data, name)
	if err != nil {
		return nil, err
	}

	record := &entity.File{
		ProjectID:      project.ID,
		Name:           name,
		MimeType:       mimeType,
		Size:           int64(len(data)),
		ProviderFileID: fileID,
		UploadedAt:     time.Now(),
	}

	var groundingErr *errors.GroundingError
	res, err := s.conversations.AttachFileToAssistant(ctx, project.AssistantID, fileID)
	switch {
	case errors.As(err, &groundingErr):
		s.logger.Warn("file uploaded but not attached", "project_id", project.ID, "file_id", fileID, mylog.Err(groundingErr))
	case err != nil:
		return nil, err
	default:
		record.VectorStoreID = res.VectorStoreID
		record.AttachedToAssistant = true
	}

	if err := s.store.AddFile(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// AssistantFiles lists the files grounded in the project assistant and
// re-attaches every project file missing from that list.
func (s *Service) AssistantFiles(ctx context.Context, projectID string) (*AssistantFiles, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.AssistantID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "project %s has no assistant", projectID)
	}

	grounded, err := s.conversations.GetAssistantFiles(ctx, project.AssistantID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListFiles(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	groundedIDs := gog.Map(grounded, func(f provider.VectorStoreFile) string {
		return f.ID
	})
	missing := lo.Filter(records, func(f entity.File, _ int) bool {
		return f.ProviderFileID != "" && !lo.Contains(groundedIDs, f.ProviderFileID)
	})

	fixed := make(map[string]string, len(missing))
	for _, f := range missing {
		res, err := s.conversations.AttachFileToAssistant(ctx, project.AssistantID, f.ProviderFileID)
		if err != nil {
			s.logger.Warn("failed to re-attach file", "project_id", project.ID, "file_id", f.ProviderFileID, mylog.Err(err))
			continue
		}
		fixed[f.ID] = res.VectorStoreID
	}

	if err := s.store.MarkFilesAttached(ctx, project.ID, fixed); err != nil {
		return nil, err
	}
	if len(fixed) > 0 {
		s.logger.Info("re-attached project files", "project_id", project.ID, "fixed", len(fixed))
	}

	return &AssistantFiles{
		ProjectID:      project.ID,
		AssistantID:    project.AssistantID,
		AssistantFiles: grounded,
		FixedFiles:     len(fixed),
	}, nil
}

// SuggestVisualizations asks the project assistant for chart suggestions
// over the grounded files. The prompt runs on the project thread.
func (s *Service) SuggestVisualizations(ctx context.Context, projectID string) (*Suggestions, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	project, err := s.conversationProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	prompt, err := RenderVisualizationPrompt()
	if err != nil {
		return nil, err
	}

	text, err := s.conversations.RunOnceAndGetText(ctx, project.ThreadID, project.AssistantID, prompt, 0)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "assistant returned empty content")
	}

	suggestions, err := ParseSuggestions(text)
	if err != nil {
		s.logger.Warn("failed to parse visualization suggestions", "project_id", project.ID, mylog.Err(err), "response", text)
		return nil, err
	}

	s.logger.Info("suggested visualizations", "project_id", project.ID, "count", len(suggestions.Visualizations))
	return suggestions, nil
}

func (s *Service) conversationProject(ctx context.Context, projectID string) (*entity.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.AssistantID == "" || project.ThreadID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "project %s is missing assistant or thread configuration", projectID)
	}
	return project, nil
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refMutex{}}
}

// Lock blocks until key is free and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func init() {
	din.RegisterT(func(c *din.Container) (*Service, error) {
		store, err := din.GetT[Store](c)
		if err != nil {
			return nil, err
		}
		orchestrator, err := din.GetT[*aichatmanager.Orchestrator](c)
		if err != nil {
			return nil, err
		}

		return NewService(store, orchestrator, din.MustGetT[*slog.Logger](c)), nil
	})
}
