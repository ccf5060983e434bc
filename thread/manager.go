package thread

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/metrics"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/nadavsuissa/AiChatManager1/provider"
)

const continuationFormat = "This is a continuation of a previous conversation about project %s. The conversation history was rotated due to length."

type (
	// Rotation is the thread a send must use. IsNew tells the caller to
	// persist ThreadID as the project's active thread.
	Rotation struct {
		ThreadID string
		IsNew    bool
	}

	Manager interface {
		CreateThread(ctx context.Context) (string, error)
		MaybeRotate(ctx context.Context, projectID string, threadID string, assistantID string) Rotation
	}

	manager struct {
		logger    *slog.Logger
		gateway   provider.Gateway
		threshold int
	}
)

var (
	_ Manager = (*manager)(nil)
)

func NewManager(gateway provider.Gateway, threshold int, logger *slog.Logger) Manager {
	if logger == nil {
		logger = mylog.Discard()
	}
	return &manager{
		logger:    logger.With("component", "thread"),
		gateway:   gateway,
		threshold: threshold,
	}
}

func ContinuationMessage(projectID string) string {
	return fmt.Sprintf(continuationFormat, projectID)
}

func (m *manager) CreateThread(ctx context.Context) (string, error) {
	thread, err := m.gateway.CreateThread(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create thread")
	}
	return thread.ID, nil
}

// MaybeRotate never fails: when checking or rotating goes wrong the original
// thread is kept.
func (m *manager) MaybeRotate(ctx context.Context, projectID string, threadID string, assistantID string) Rotation {
	logger := m.logger.With("project_id", projectID, "thread_id", threadID)

	if threadID == "" || assistantID == "" {
		newThreadID, err := m.CreateThread(ctx)
		if err != nil {
			m.logRotationError(logger, projectID, threadID, err)
			return Rotation{ThreadID: threadID}
		}
		metrics.ThreadRotations.WithLabelValues("bootstrap").Inc()
		logger.Info("created first thread", "new_thread_id", newThreadID)
		return Rotation{ThreadID: newThreadID, IsNew: true}
	}

	rotation, err := m.rotate(ctx, projectID, threadID)
	if err != nil {
		m.logRotationError(logger, projectID, threadID, err)
		return Rotation{ThreadID: threadID}
	}
	if rotation.IsNew {
		metrics.ThreadRotations.WithLabelValues("rotated").Inc()
		logger.Info("rotated thread", "new_thread_id", rotation.ThreadID, "threshold", m.threshold)
	}
	return rotation
}

func (m *manager) rotate(ctx context.Context, projectID string, threadID string) (Rotation, error) {
	msgs, err := m.gateway.ListMessages(ctx, threadID, provider.ListMessagesParams{
		Limit: m.threshold,
		Order: provider.OrderDesc,
	})
	if err != nil {
		return Rotation{}, errors.Wrapf(err, "failed to count messages")
	}
	if len(msgs) < m.threshold {
		return Rotation{ThreadID: threadID}, nil
	}

	newThreadID, err := m.CreateThread(ctx)
	if err != nil {
		return Rotation{}, err
	}

	if _, err := m.gateway.AppendMessage(ctx, newThreadID, provider.AppendMessageParams{
		Role:    provider.RoleUser,
		Content: ContinuationMessage(projectID),
	}); err != nil {
		return Rotation{}, errors.Wrapf(err, "failed to add continuation message")
	}

	return Rotation{ThreadID: newThreadID, IsNew: true}, nil
}

func (m *manager) logRotationError(logger *slog.Logger, projectID string, threadID string, err error) {
	metrics.ThreadRotations.WithLabelValues("error").Inc()
	logger.Warn("keeping current thread", mylog.Err(&errors.RotationError{
		ProjectID: projectID,
		ThreadID:  threadID,
		Cause:     err,
	}))
}
