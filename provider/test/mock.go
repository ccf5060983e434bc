package providertest

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/nadavsuissa/AiChatManager1/provider"
)

type Gateway struct {
	mock.Mock
}

var (
	_ provider.Gateway = (*Gateway)(nil)
)

func get[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

func (g *Gateway) CreateAssistant(ctx context.Context, params provider.CreateAssistantParams) (*provider.Assistant, error) {
	args := g.Called(ctx, params)
	return get[*provider.Assistant](args, 0), args.Error(1)
}

func (g *Gateway) GetAssistant(ctx context.Context, assistantID string) (*provider.Assistant, error) {
	args := g.Called(ctx, assistantID)
	return get[*provider.Assistant](args, 0), args.Error(1)
}

func (g *Gateway) UpdateAssistantToolResources(ctx context.Context, assistantID string, vectorStoreIDs []string) (*provider.Assistant, error) {
	args := g.Called(ctx, assistantID, vectorStoreIDs)
	return get[*provider.Assistant](args, 0), args.Error(1)
}

func (g *Gateway) CreateThread(ctx context.Context) (*provider.Thread, error) {
	args := g.Called(ctx)
	return get[*provider.Thread](args, 0), args.Error(1)
}

func (g *Gateway) AppendMessage(ctx context.Context, threadID string, params provider.AppendMessageParams) (*provider.Message, error) {
	args := g.Called(ctx, threadID, params)
	return get[*provider.Message](args, 0), args.Error(1)
}

func (g *Gateway) ListMessages(ctx context.Context, threadID string, params provider.ListMessagesParams) ([]provider.Message, error) {
	args := g.Called(ctx, threadID, params)
	return get[[]provider.Message](args, 0), args.Error(1)
}

func (g *Gateway) CreateRun(ctx context.Context, threadID string, assistantID string) (*provider.Run, error) {
	args := g.Called(ctx, threadID, assistantID)
	return get[*provider.Run](args, 0), args.Error(1)
}

func (g *Gateway) GetRun(ctx context.Context, threadID string, runID string) (*provider.Run, error) {
	args := g.Called(ctx, threadID, runID)
	return get[*provider.Run](args, 0), args.Error(1)
}

func (g *Gateway) UploadFile(ctx context.Context, file io.Reader) (*provider.File, error) {
	args := g.Called(ctx, file)
	return get[*provider.File](args, 0), args.Error(1)
}

func (g *Gateway) CreateVectorStore(ctx context.Context, name string) (*provider.VectorStore, error) {
	args := g.Called(ctx, name)
	return get[*provider.VectorStore](args, 0), args.Error(1)
}

func (g *Gateway) AddFileToVectorStore(ctx context.Context, vectorStoreID string, fileID string) (*provider.VectorStoreFile, error) {
	args := g.Called(ctx, vectorStoreID, fileID)
	return get[*provider.VectorStoreFile](args, 0), args.Error(1)
}

func (g *Gateway) ListVectorStoreFiles(ctx context.Context, vectorStoreID string) ([]provider.VectorStoreFile, error) {
	args := g.Called(ctx, vectorStoreID)
	return get[[]provider.VectorStoreFile](args, 0), args.Error(1)
}
