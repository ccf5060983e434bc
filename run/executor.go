package run

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/metrics"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/nadavsuissa/AiChatManager1/message"
	"github.com/nadavsuissa/AiChatManager1/provider"
)

// replyWindow is how many of the newest thread messages are searched for the
// reply of a run.
const replyWindow = 20

type (
	Executor struct {
		gateway      provider.Gateway
		logger       *slog.Logger
		clock        Clock
		pollInterval time.Duration
		timeout      time.Duration
	}

	Option func(*Executor)

	SendRequest struct {
		ThreadID    string
		AssistantID string
		Content     string
		FileIDs     []string
		// Timeout overrides the configured run timeout when positive.
		Timeout time.Duration
	}
)

func WithClock(clock Clock) Option {
	return func(e *Executor) {
		e.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func NewExecutor(gateway provider.Gateway, conf config.ConversationConfig, opts ...Option) *Executor {
	e := &Executor{
		gateway:      gateway,
		logger:       mylog.Discard(),
		clock:        SystemClock(),
		pollInterval: conf.PollInterval,
		timeout:      conf.RunTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "run")
	return e
}

// SendAndRun appends the user message, runs the assistant and returns its
// normalized reply.
func (e *Executor) SendAndRun(ctx context.Context, req SendRequest) (*message.Message, error) {
	run, err := e.execute(ctx, req.ThreadID, req.AssistantID, req.Content, req.FileIDs, req.Timeout)
	if err != nil {
		return nil, err
	}

	reply, err := e.findReply(ctx, req.ThreadID, run)
	if err != nil {
		return nil, err
	}

	msg := message.FromProvider(*reply)
	if _, ok := reply.Text(); !ok || msg.Content == "" {
		e.logger.Warn("assistant reply has no usable text", "run_id", run.ID, "message_id", reply.ID)
		msg.Content = message.FallbackText()
	}
	return &msg, nil
}

// RunOnceAndGetRawText is SendAndRun without normalization, for prompts whose
// answer is parsed by the caller.
func (e *Executor) RunOnceAndGetRawText(ctx context.Context, threadID string, assistantID string, prompt string, timeout time.Duration) (string, error) {
	run, err := e.execute(ctx, threadID, assistantID, prompt, nil, timeout)
	if err != nil {
		return "", err
	}

	reply, err := e.findReply(ctx, threadID, run)
	if err != nil {
		return "", err
	}

	text, ok := reply.Text()
	if !ok {
		return "", errors.Wrapf(errors.ErrNoValidResponse, "run %s replied without text", run.ID)
	}
	return text, nil
}

func (e *Executor) execute(ctx context.Context, threadID string, assistantID string, content string, fileIDs []string, timeout time.Duration) (*provider.Run, error) {
	if threadID == "" || assistantID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "thread id and assistant id are required")
	}
	if timeout <= 0 {
		timeout = e.timeout
	}

	params := provider.AppendMessageParams{
		Role:    provider.RoleUser,
		Content: content,
	}
	fileIDs = lo.Compact(fileIDs)
	if len(fileIDs) > 0 {
		params.Attachments = lo.Map(fileIDs, func(id string, _ int) provider.Attachment {
			return provider.Attachment{FileID: id, Tools: []provider.Tool{provider.ToolFileSearch}}
		})
	}

	msg, err := e.gateway.AppendMessage(ctx, threadID, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to add user message")
	}

	run, err := e.gateway.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to start run")
	}
	e.logger.Debug("started run", "thread_id", threadID, "run_id", run.ID, "message_id", msg.ID, "attachments", len(fileIDs))

	return e.wait(ctx, threadID, run, timeout)
}

// wait polls the run every interval until it reaches a terminal status. The
// deadline is checked before every pause.
func (e *Executor) wait(ctx context.Context, threadID string, run *provider.Run, timeout time.Duration) (*provider.Run, error) {
	start := e.clock.Now()
	deadline := start.Add(timeout)
	last := run

	for {
		current, err := e.gateway.GetRun(ctx, threadID, run.ID)
		if err != nil {
			metrics.RunsTotal.WithLabelValues("error").Inc()
			return nil, &errors.RunFailure{RunID: run.ID, Status: string(last.Status), Elapsed: e.clock.Now().Sub(start), Cause: err}
		}
		last = current

		if current.Status.IsTerminal() {
			elapsed := e.clock.Now().Sub(start)
			metrics.RunsTotal.WithLabelValues(string(current.Status)).Inc()
			metrics.RunDuration.Observe(elapsed.Seconds())

			if current.Status != provider.RunStatusCompleted {
				e.logger.Warn("run did not complete", "run_id", run.ID, "status", current.Status, "last_error", current.LastError.String())
				return nil, &errors.RunFailure{
					RunID:     run.ID,
					Status:    string(current.Status),
					Elapsed:   elapsed,
					LastError: current.LastError.String(),
				}
			}
			return current, nil
		}

		now := e.clock.Now()
		if !now.Before(deadline) {
			metrics.RunsTotal.WithLabelValues("timeout").Inc()
			e.logger.Warn("run timed out", "run_id", run.ID, "status", current.Status, "timeout", timeout)
			return nil, &errors.RunFailure{
				RunID:     run.ID,
				Status:    string(current.Status),
				TimedOut:  true,
				Elapsed:   now.Sub(start),
				LastError: current.LastError.String(),
			}
		}

		select {
		case <-ctx.Done():
			return nil, &errors.RunFailure{
				RunID:   run.ID,
				Status:  string(current.Status),
				Elapsed: e.clock.Now().Sub(start),
				Cause:   ctx.Err(),
			}
		case <-e.clock.After(min(e.pollInterval, deadline.Sub(now))):
		}
	}
}

func (e *Executor) findReply(ctx context.Context, threadID string, run *provider.Run) (*provider.Message, error) {
	msgs, err := e.gateway.ListMessages(ctx, threadID, provider.ListMessagesParams{
		Limit: replyWindow,
		Order: provider.OrderDesc,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list messages of run %s", run.ID)
	}

	reply, ok := lo.Find(msgs, func(m provider.Message) bool {
		return m.Role == provider.RoleAssistant && m.RunID == run.ID
	})
	if !ok {
		return nil, errors.Wrapf(errors.ErrNoValidResponse, "no assistant message for run %s", run.ID)
	}
	return &reply, nil
}
