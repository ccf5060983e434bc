package grounding

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/metrics"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/nadavsuissa/AiChatManager1/provider"
)

// Manager keeps exactly one grounding store per assistant.
//
// Store creation is a read-then-write against the provider. Concurrent first
// calls for one assistant are collapsed inside this process only; two
// processes grounding the same assistant at once can still create an orphan
// store.
type Manager struct {
	gateway provider.Gateway
	logger  *slog.Logger
	group   singleflight.Group
}

func NewManager(gateway provider.Gateway, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = mylog.Discard()
	}
	return &Manager{
		gateway: gateway,
		logger:  logger.With("component", "grounding"),
	}
}

func StoreName(assistantID string) string {
	return "vs_for_" + assistantID
}

func (m *Manager) EnsureStore(ctx context.Context, assistantID string) (string, error) {
	if assistantID == "" {
		return "", errors.Wrapf(errors.ErrInvalidParams, "assistant id is required")
	}

	// joined callers must not inherit the cancellation of the first one
	v, err, _ := m.group.Do(assistantID, func() (any, error) {
		return m.ensureStore(context.WithoutCancel(ctx), assistantID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) ensureStore(ctx context.Context, assistantID string) (string, error) {
	assistant, err := m.gateway.GetAssistant(ctx, assistantID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get assistant")
	}
	if len(assistant.VectorStoreIDs) > 0 {
		return assistant.VectorStoreIDs[0], nil
	}

	store, err := m.gateway.CreateVectorStore(ctx, StoreName(assistantID))
	if err != nil {
		return "", errors.Wrapf(err, "failed to create grounding store")
	}
	metrics.GroundingStoresCreated.Inc()

	if _, err := m.gateway.UpdateAssistantToolResources(ctx, assistantID, []string{store.ID}); err != nil {
		m.logger.Warn("grounding store left unreferenced", "assistant_id", assistantID, "vector_store_id", store.ID, mylog.Err(err))
		return "", errors.Wrapf(err, "failed to reference grounding store %s", store.ID)
	}

	m.logger.Info("created grounding store", "assistant_id", assistantID, "vector_store_id", store.ID)
	return store.ID, nil
}

// AttachFile makes fileID a member of the assistant's store. A file that is
// already a member is not added again.
func (m *Manager) AttachFile(ctx context.Context, assistantID string, fileID string) (string, error) {
	fail := func(err error) (string, error) {
		metrics.GroundingAttachments.WithLabelValues("error").Inc()
		return "", &errors.GroundingError{AssistantID: assistantID, FileID: fileID, Cause: err}
	}

	if assistantID == "" || fileID == "" {
		return fail(errors.Wrapf(errors.ErrInvalidParams, "assistant id and file id are required"))
	}

	storeID, err := m.EnsureStore(ctx, assistantID)
	if err != nil {
		return fail(err)
	}

	members, err := m.gateway.ListVectorStoreFiles(ctx, storeID)
	if err != nil {
		m.logger.Warn("membership check failed, adding anyway", "vector_store_id", storeID, "file_id", fileID, mylog.Err(err))
	} else if lo.ContainsBy(members, func(f provider.VectorStoreFile) bool { return f.ID == fileID }) {
		metrics.GroundingAttachments.WithLabelValues("present").Inc()
		return storeID, nil
	}

	if _, err := m.gateway.AddFileToVectorStore(ctx, storeID, fileID); err != nil {
		return fail(errors.Wrapf(err, "failed to add file to grounding store %s", storeID))
	}

	metrics.GroundingAttachments.WithLabelValues("added").Inc()
	m.logger.Debug("attached file", "assistant_id", assistantID, "vector_store_id", storeID, "file_id", fileID)
	return storeID, nil
}

// ListFiles returns the files of every store the assistant references. An
// assistant without a store has no files.
func (m *Manager) ListFiles(ctx context.Context, assistantID string) ([]provider.VectorStoreFile, error) {
	if assistantID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "assistant id is required")
	}

	assistant, err := m.gateway.GetAssistant(ctx, assistantID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get assistant")
	}

	files := make([]provider.VectorStoreFile, 0)
	for _, storeID := range assistant.VectorStoreIDs {
		storeFiles, err := m.gateway.ListVectorStoreFiles(ctx, storeID)
		if err != nil {
			m.logger.Warn("skipping grounding store", "vector_store_id", storeID, mylog.Err(err))
			continue
		}
		files = append(files, storeFiles...)
	}

	return files, nil
}
