package aichatmanager_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	aichatmanager "github.com/nadavsuissa/AiChatManager1"
	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/mytesting"
	"github.com/nadavsuissa/AiChatManager1/message"
	"github.com/nadavsuissa/AiChatManager1/provider"
	providertest "github.com/nadavsuissa/AiChatManager1/provider/test"
	"github.com/nadavsuissa/AiChatManager1/thread"
)

type OrchestratorTestSuite struct {
	mytesting.Suite

	gateway      *providertest.Fake
	orchestrator *aichatmanager.Orchestrator
	assistantID  string
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.Suite.SetupTest()

	s.gateway = providertest.NewFake()
	s.gateway.Reply = func(string, string) (string, bool) {
		return "Hello 【doc.pdf】 world", true
	}

	conf := config.NewConversationConfig()
	conf.UploadBackoffBase = time.Millisecond

	var err error
	s.orchestrator, err = aichatmanager.NewOrchestrator(
		aichatmanager.WithGateway(s.gateway),
		aichatmanager.WithLogger(s.Logger),
		aichatmanager.WithConversationConfig(conf),
		aichatmanager.WithUploadTempDir(s.T().TempDir()),
	)
	s.Require().NoError(err)

	pa, err := s.orchestrator.CreateProjectAssistant(s.Context, "Tower A")
	s.Require().NoError(err)
	s.assistantID = pa.AssistantID
}

func (s *OrchestratorTestSuite) TestSendMessageBelowThreshold() {
	threadID := s.gateway.SeedThread(49)

	resp, err := s.orchestrator.SendMessage(s.Context, aichatmanager.SendMessageRequest{
		ThreadID:    threadID,
		AssistantID: s.assistantID,
		Text:        "status?",
		ProjectID:   "project-1",
	})
	s.Require().NoError(err)

	s.False(resp.ThreadRotated)
	s.Empty(resp.NewThreadID)
	s.Equal("Hello world", resp.Content)
	s.Empty(resp.Citations)
	s.Len(s.gateway.Messages(threadID), 51)

	raw, err := json.Marshal(resp)
	s.Require().NoError(err)
	var fields map[string]any
	s.Require().NoError(json.Unmarshal(raw, &fields))
	s.NotContains(fields, "threadRotated")
	s.NotContains(fields, "newThreadId")
	s.Equal([]any{}, fields["citations"])
}

func (s *OrchestratorTestSuite) TestSendMessageRotatesAtThreshold() {
	threadID := s.gateway.SeedThread(50)

	resp, err := s.orchestrator.SendMessage(s.Context, aichatmanager.SendMessageRequest{
		ThreadID:    threadID,
		AssistantID: s.assistantID,
		Text:        "status?",
		ProjectID:   "project-1",
	})
	s.Require().NoError(err)

	s.True(resp.ThreadRotated)
	s.NotEmpty(resp.NewThreadID)
	s.NotEqual(threadID, resp.NewThreadID)
	s.Len(s.gateway.Messages(threadID), 50)

	msgs := s.gateway.Messages(resp.NewThreadID)
	s.Require().Len(msgs, 3)
	continuation, _ := msgs[0].Text()
	s.Equal(thread.ContinuationMessage("project-1"), continuation)
	s.Contains(continuation, "project-1")
	prompt, _ := msgs[1].Text()
	s.Equal("status?", prompt)
	s.Equal(provider.RoleAssistant, msgs[2].Role)
}

func (s *OrchestratorTestSuite) TestSendMessageWithoutProjectSkipsRotation() {
	threadID := s.gateway.SeedThread(80)

	resp, err := s.orchestrator.SendMessage(s.Context, aichatmanager.SendMessageRequest{
		ThreadID:    threadID,
		AssistantID: s.assistantID,
		Text:        "status?",
	})
	s.Require().NoError(err)
	s.False(resp.ThreadRotated)
	s.Equal(1, s.gateway.Calls("ListMessages"))
}

func (s *OrchestratorTestSuite) TestSendMessageRunScenario() {
	s.gateway.RunStatuses = []provider.RunStatus{provider.RunStatusQueued, provider.RunStatusInProgress, provider.RunStatusCompleted}

	orchestrator, err := aichatmanager.NewOrchestrator(
		aichatmanager.WithGateway(s.gateway),
		aichatmanager.WithLogger(s.Logger),
		aichatmanager.WithClock(&instantClock{now: time.Now()}),
	)
	s.Require().NoError(err)

	threadID := s.gateway.SeedThread(0)
	resp, err := orchestrator.SendMessage(s.Context, aichatmanager.SendMessageRequest{
		ThreadID:    threadID,
		AssistantID: s.assistantID,
		Text:        "what does the doc say?",
		ProjectID:   "project-1",
	})
	s.Require().NoError(err)
	s.Equal("Hello world", resp.Content)
	s.NotNil(resp.Citations)
	s.Empty(resp.Citations)
	s.Equal(3, s.gateway.Calls("GetRun"))
}

func (s *OrchestratorTestSuite) TestSendMessageRequiresText() {
	_, err := s.orchestrator.SendMessage(s.Context, aichatmanager.SendMessageRequest{
		ThreadID:    "thread_1",
		AssistantID: s.assistantID,
		Text:        "   ",
	})
	s.ErrorIs(err, errors.ErrInvalidParams)
}

func (s *OrchestratorTestSuite) TestGetMessages() {
	threadID := s.gateway.SeedThread(0)
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	s.gateway.AddMessage(threadID, provider.Message{
		ID: "m2", Role: provider.RoleAssistant, CreatedAt: base.Add(2 * time.Minute),
		Content: []provider.ContentPart{{Type: "text", Text: "תשובה 【a.pdf】"}},
	})
	s.gateway.AddMessage(threadID, provider.Message{
		ID: "m1", Role: provider.RoleUser, CreatedAt: base.Add(time.Minute),
		Content: []provider.ContentPart{{Type: "text", Text: "שאלה"}},
	})
	s.gateway.AddMessage(threadID, provider.Message{
		ID: "m3", Role: provider.RoleAssistant, CreatedAt: base.Add(3 * time.Minute),
		Content: []provider.ContentPart{{Type: "image_file"}},
	})

	msgs, err := s.orchestrator.GetMessages(s.Context, threadID)
	s.Require().NoError(err)
	s.Require().Len(msgs, 3)

	s.Equal("m1", msgs[0].ID)
	s.Equal("שאלה", msgs[0].Content)
	s.Equal("m2", msgs[1].ID)
	s.Equal(message.WrapRTL("תשובה"), msgs[1].Content)
	s.Equal("m3", msgs[2].ID)
	s.Equal(message.Placeholder(provider.RoleAssistant), msgs[2].Content)
}

func (s *OrchestratorTestSuite) TestUploadOverCeiling() {
	calls := s.gateway.TotalCalls()

	_, err := s.orchestrator.UploadFile(s.Context, make([]byte, 25*1024*1024+1), "big.pdf")
	s.ErrorIs(err, errors.ErrFileTooLarge)
	s.Equal(calls, s.gateway.TotalCalls())
}

func (s *OrchestratorTestSuite) TestUploadAndGround() {
	fileID, err := s.orchestrator.UploadFile(s.Context, []byte("plans"), "plans.pdf")
	s.Require().NoError(err)

	res, err := s.orchestrator.AttachFileToAssistant(s.Context, s.assistantID, fileID)
	s.Require().NoError(err)
	s.Equal(fileID, res.FileID)
	s.NotEmpty(res.VectorStoreID)

	files, err := s.orchestrator.GetAssistantFiles(s.Context, s.assistantID)
	s.Require().NoError(err)
	s.Require().Len(files, 1)
	s.Equal(fileID, files[0].ID)
}

func (s *OrchestratorTestSuite) TestRunOnceAndGetText() {
	threadID := s.gateway.SeedThread(0)

	text, err := s.orchestrator.RunOnceAndGetText(s.Context, threadID, s.assistantID, "json please", 0)
	s.Require().NoError(err)
	s.Equal("Hello 【doc.pdf】 world", text)
}

func (s *OrchestratorTestSuite) TestCreateProjectAssistant() {
	pa, err := s.orchestrator.CreateProjectAssistant(s.Context, "  גשר צפוני ")
	s.Require().NoError(err)
	s.NotEmpty(pa.ThreadID)

	a, ok := s.gateway.Assistant(pa.AssistantID)
	s.Require().True(ok)
	s.Equal("גשר צפוני Assistant", a.Name)
	s.Equal("o3-mini", a.Model)
	s.Equal([]provider.Tool{provider.ToolFileSearch}, a.Tools)
	s.Contains(a.Instructions, `"גשר צפוני"`)
	s.Contains(a.Instructions, "right-to-left")
}

func TestOrchestrator(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func TestNewOrchestratorRequiresAPIKey(t *testing.T) {
	_, err := aichatmanager.NewOrchestrator(aichatmanager.WithLogger(nil))
	if !errors.Is(err, errors.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestRenderAssistantInstructions(t *testing.T) {
	in := aichatmanager.DefaultAssistantInstructions("Tower A")
	in.ExtraInstructions = "  Prefer metric units.  "

	out, err := aichatmanager.RenderAssistantInstructions(in)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"Tower A"`, "Hebrew", "right-to-left", "Prefer metric units."} {
		if !strings.Contains(out, want) {
			t.Errorf("instructions missing %q:\n%s", want, out)
		}
	}
}

type instantClock struct {
	now time.Time
}

func (c *instantClock) Now() time.Time { return c.now }

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}
