package thread_test

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/mytesting"
	"github.com/nadavsuissa/AiChatManager1/provider"
	providertest "github.com/nadavsuissa/AiChatManager1/provider/test"
	"github.com/nadavsuissa/AiChatManager1/thread"
)

type ThreadManagerTestSuite struct {
	mytesting.Suite

	gateway       *providertest.Fake
	threadManager thread.Manager
}

func (s *ThreadManagerTestSuite) SetupTest() {
	s.Suite.SetupTest()

	s.gateway = providertest.NewFake()
	s.threadManager = thread.NewManager(s.gateway, 50, s.Logger)
}

func (s *ThreadManagerTestSuite) TestBelowThresholdKeepsThread() {
	for _, n := range []int{0, 1, 49} {
		threadID := s.gateway.SeedThread(n)

		rotation := s.threadManager.MaybeRotate(s.Context, "project-1", threadID, "asst_1")

		s.False(rotation.IsNew, "messages=%d", n)
		s.Equal(threadID, rotation.ThreadID, "messages=%d", n)
		s.Len(s.gateway.Messages(threadID), n)
	}
	s.Equal(0, s.gateway.Calls("CreateThread"))
}

func (s *ThreadManagerTestSuite) TestAtThresholdRotates() {
	for _, n := range []int{50, 51, 120} {
		threadID := s.gateway.SeedThread(n)

		rotation := s.threadManager.MaybeRotate(s.Context, "project-1", threadID, "asst_1")

		s.True(rotation.IsNew, "messages=%d", n)
		s.NotEqual(threadID, rotation.ThreadID)

		msgs := s.gateway.Messages(rotation.ThreadID)
		s.Require().Len(msgs, 1)
		text, ok := msgs[0].Text()
		s.True(ok)
		s.Contains(text, "project-1")
		s.Equal(thread.ContinuationMessage("project-1"), text)

		// the old thread is left untouched
		s.Len(s.gateway.Messages(threadID), n)
	}
}

func (s *ThreadManagerTestSuite) TestBootstrap() {
	rotation := s.threadManager.MaybeRotate(s.Context, "project-1", "", "asst_1")
	s.True(rotation.IsNew)
	s.NotEmpty(rotation.ThreadID)
	s.Empty(s.gateway.Messages(rotation.ThreadID))

	rotation = s.threadManager.MaybeRotate(s.Context, "project-1", "thread_x", "")
	s.True(rotation.IsNew)
	s.NotEqual("thread_x", rotation.ThreadID)
	s.Equal(0, s.gateway.Calls("ListMessages"))
}

func (s *ThreadManagerTestSuite) TestFailuresKeepOriginalThread() {
	threadID := s.gateway.SeedThread(50)

	s.Run("listing fails", func() {
		s.gateway.Fail("ListMessages", 1, errors.New("network down"))
		rotation := s.threadManager.MaybeRotate(s.Context, "project-1", threadID, "asst_1")
		s.Equal(thread.Rotation{ThreadID: threadID}, rotation)
	})

	s.Run("thread creation fails", func() {
		s.gateway.Fail("CreateThread", 1, errors.New("provider unavailable"))
		rotation := s.threadManager.MaybeRotate(s.Context, "project-1", threadID, "asst_1")
		s.Equal(thread.Rotation{ThreadID: threadID}, rotation)
	})

	s.Run("continuation fails", func() {
		s.gateway.Fail("AppendMessage", 1, errors.New("rejected"))
		rotation := s.threadManager.MaybeRotate(s.Context, "project-1", threadID, "asst_1")
		s.Equal(thread.Rotation{ThreadID: threadID}, rotation)
	})

	s.Run("bootstrap fails", func() {
		s.gateway.Fail("CreateThread", 1, errors.New("provider unavailable"))
		rotation := s.threadManager.MaybeRotate(s.Context, "project-1", "", "asst_1")
		s.Equal(thread.Rotation{}, rotation)
	})
}

func (s *ThreadManagerTestSuite) TestCountsOnlyUpToThreshold() {
	gateway := &providertest.Gateway{}
	manager := thread.NewManager(gateway, 3, s.Logger)

	gateway.On("ListMessages", mock.Anything, "thread_1", provider.ListMessagesParams{Limit: 3, Order: provider.OrderDesc}).
		Return([]provider.Message{{ID: "m1"}, {ID: "m2"}}, nil).Once()

	rotation := manager.MaybeRotate(s.Context, "project-1", "thread_1", "asst_1")
	s.Equal(thread.Rotation{ThreadID: "thread_1"}, rotation)
	gateway.AssertExpectations(s.T())
}

func TestThreadManager(t *testing.T) {
	suite.Run(t, new(ThreadManagerTestSuite))
}
