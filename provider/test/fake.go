package providertest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/provider"
)

// Fake is an in-memory provider. Runs walk through RunStatuses, one status per
// GetRun call, and Reply produces the assistant message once a run completes.
type Fake struct {
	mu sync.Mutex

	// RunStatuses is the status sequence of every new run; the last status
	// sticks. Empty means the run completes on the first GetRun.
	RunStatuses []provider.RunStatus
	// RunError is reported as LastError when a run ends in a non-completed
	// terminal status.
	RunError *provider.RunError
	// Reply, when set, returns the assistant text added to the thread when a
	// run completes. Returning ok=false adds no message.
	Reply func(threadID string, prompt string) (text string, ok bool)

	seq         int
	base        time.Time
	assistants  map[string]*provider.Assistant
	threads     map[string][]provider.Message
	runs        map[string]*fakeRun
	files       map[string]*provider.File
	fileData    map[string][]byte
	stores      map[string]*provider.VectorStore
	storeFiles  map[string][]provider.VectorStoreFile
	calls       map[string]int
	failures    map[string]*failure
	lastPrompts map[string]string
}

type fakeRun struct {
	run      provider.Run
	statuses []provider.RunStatus
	replied  bool
}

type failure struct {
	remaining int
	err       error
}

var (
	_ provider.Gateway = (*Fake)(nil)
)

func NewFake() *Fake {
	return &Fake{
		base:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		assistants:  map[string]*provider.Assistant{},
		threads:     map[string][]provider.Message{},
		runs:        map[string]*fakeRun{},
		files:       map[string]*provider.File{},
		fileData:    map[string][]byte{},
		stores:      map[string]*provider.VectorStore{},
		storeFiles:  map[string][]provider.VectorStoreFile{},
		calls:       map[string]int{},
		failures:    map[string]*failure{},
		lastPrompts: map[string]string{},
	}
}

// Fail makes the next n calls of method return err; n < 0 fails forever.
func (f *Fake) Fail(method string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = &failure{remaining: n, err: err}
}

// Calls returns how many times method was invoked, failed calls included.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// SeedThread creates a thread holding n alternating user/assistant messages.
func (f *Fake) SeedThread(n int) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID("thread")
	f.threads[id] = nil
	for i := 0; i < n; i++ {
		role := provider.RoleUser
		if i%2 == 1 {
			role = provider.RoleAssistant
		}
		f.appendLocked(id, role, fmt.Sprintf("message %d", i), "")
	}
	return id
}

// AddMessage appends a raw message, letting tests craft unusual content.
func (f *Fake) AddMessage(threadID string, msg provider.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg_%d", f.seq)
	}
	msg.ThreadID = threadID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = f.base.Add(time.Duration(f.seq) * time.Second)
	}
	f.threads[threadID] = append(f.threads[threadID], msg)
}

func (f *Fake) Messages(threadID string) []provider.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.threads[threadID])
}

func (f *Fake) Assistant(assistantID string) (provider.Assistant, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assistants[assistantID]
	if !ok {
		return provider.Assistant{}, false
	}
	return *a, true
}

func (f *Fake) VectorStores() []provider.VectorStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]provider.VectorStore, 0, len(f.stores))
	for _, s := range f.stores {
		res = append(res, *s)
	}
	return res
}

func (f *Fake) FileData(fileID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.fileData[fileID]
	return data, ok
}

// call records the invocation and returns the injected failure, if any. The
// caller must hold mu.
func (f *Fake) call(method string) error {
	f.calls[method]++
	fl, ok := f.failures[method]
	if !ok || fl.remaining == 0 {
		return nil
	}
	if fl.remaining > 0 {
		fl.remaining--
	}
	return fl.err
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%d", prefix, f.seq)
}

func (f *Fake) appendLocked(threadID string, role provider.Role, text string, runID string) provider.Message {
	id := f.nextID("msg")
	msg := provider.Message{
		ID:        id,
		ThreadID:  threadID,
		Role:      role,
		Content:   []provider.ContentPart{{Type: "text", Text: text}},
		CreatedAt: f.base.Add(time.Duration(f.seq) * time.Second),
		RunID:     runID,
	}
	f.threads[threadID] = append(f.threads[threadID], msg)
	return msg
}

func (f *Fake) CreateAssistant(_ context.Context, params provider.CreateAssistantParams) (*provider.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateAssistant"); err != nil {
		return nil, err
	}

	a := &provider.Assistant{
		ID:           f.nextID("asst"),
		Name:         params.Name,
		Instructions: params.Instructions,
		Model:        params.Model,
		Tools:        slices.Clone(params.Tools),
		CreatedAt:    f.base,
	}
	f.assistants[a.ID] = a
	res := *a
	return &res, nil
}

func (f *Fake) GetAssistant(_ context.Context, assistantID string) (*provider.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetAssistant"); err != nil {
		return nil, err
	}

	a, ok := f.assistants[assistantID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "assistant %s", assistantID)
	}
	res := *a
	res.VectorStoreIDs = slices.Clone(a.VectorStoreIDs)
	return &res, nil
}

func (f *Fake) UpdateAssistantToolResources(_ context.Context, assistantID string, vectorStoreIDs []string) (*provider.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpdateAssistantToolResources"); err != nil {
		return nil, err
	}

	a, ok := f.assistants[assistantID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "assistant %s", assistantID)
	}
	a.VectorStoreIDs = slices.Clone(vectorStoreIDs)
	res := *a
	return &res, nil
}

func (f *Fake) CreateThread(_ context.Context) (*provider.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateThread"); err != nil {
		return nil, err
	}

	id := f.nextID("thread")
	f.threads[id] = nil
	return &provider.Thread{ID: id, CreatedAt: f.base}, nil
}

func (f *Fake) AppendMessage(_ context.Context, threadID string, params provider.AppendMessageParams) (*provider.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AppendMessage"); err != nil {
		return nil, err
	}

	if _, ok := f.threads[threadID]; !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "thread %s", threadID)
	}
	msg := f.appendLocked(threadID, params.Role, params.Content, "")
	f.lastPrompts[threadID] = params.Content
	return &msg, nil
}

func (f *Fake) ListMessages(_ context.Context, threadID string, params provider.ListMessagesParams) ([]provider.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListMessages"); err != nil {
		return nil, err
	}

	msgs, ok := f.threads[threadID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "thread %s", threadID)
	}
	msgs = slices.Clone(msgs)
	if params.Order != provider.OrderAsc {
		slices.Reverse(msgs)
	}
	if params.Limit > 0 && len(msgs) > params.Limit {
		msgs = msgs[:params.Limit]
	}
	return msgs, nil
}

func (f *Fake) CreateRun(_ context.Context, threadID string, assistantID string) (*provider.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateRun"); err != nil {
		return nil, err
	}

	if _, ok := f.threads[threadID]; !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "thread %s", threadID)
	}
	r := &fakeRun{
		run: provider.Run{
			ID:          f.nextID("run"),
			ThreadID:    threadID,
			AssistantID: assistantID,
			Status:      provider.RunStatusQueued,
		},
		statuses: slices.Clone(f.RunStatuses),
	}
	if len(r.statuses) == 0 {
		r.statuses = []provider.RunStatus{provider.RunStatusCompleted}
	}
	f.runs[r.run.ID] = r
	res := r.run
	return &res, nil
}

func (f *Fake) GetRun(_ context.Context, threadID string, runID string) (*provider.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetRun"); err != nil {
		return nil, err
	}

	r, ok := f.runs[runID]
	if !ok || r.run.ThreadID != threadID {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", runID)
	}

	r.run.Status = r.statuses[0]
	if len(r.statuses) > 1 {
		r.statuses = r.statuses[1:]
	}

	switch {
	case r.run.Status == provider.RunStatusCompleted && !r.replied:
		r.replied = true
		if f.Reply != nil {
			if text, ok := f.Reply(threadID, f.lastPrompts[threadID]); ok {
				f.appendLocked(threadID, provider.RoleAssistant, text, runID)
			}
		}
	case r.run.Status.IsTerminal() && r.run.Status != provider.RunStatusCompleted:
		r.run.LastError = f.RunError
	}

	res := r.run
	return &res, nil
}

func (f *Fake) UploadFile(_ context.Context, file io.Reader) (*provider.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UploadFile"); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read upload")
	}
	name := "upload"
	if named, ok := file.(interface{ Name() string }); ok {
		name = named.Name()
	}

	obj := &provider.File{
		ID:        f.nextID("file"),
		Filename:  name,
		Bytes:     int64(len(data)),
		CreatedAt: f.base,
	}
	f.files[obj.ID] = obj
	f.fileData[obj.ID] = data
	res := *obj
	return &res, nil
}

func (f *Fake) CreateVectorStore(_ context.Context, name string) (*provider.VectorStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateVectorStore"); err != nil {
		return nil, err
	}

	s := &provider.VectorStore{
		ID:        f.nextID("vs"),
		Name:      name,
		CreatedAt: f.base,
	}
	f.stores[s.ID] = s
	res := *s
	return &res, nil
}

func (f *Fake) AddFileToVectorStore(_ context.Context, vectorStoreID string, fileID string) (*provider.VectorStoreFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AddFileToVectorStore"); err != nil {
		return nil, err
	}

	if _, ok := f.stores[vectorStoreID]; !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "vector store %s", vectorStoreID)
	}
	file := provider.VectorStoreFile{
		ID:            fileID,
		VectorStoreID: vectorStoreID,
		Status:        "completed",
		UsageBytes:    int64(len(f.fileData[fileID])),
		CreatedAt:     f.base.Unix(),
	}
	f.storeFiles[vectorStoreID] = append(f.storeFiles[vectorStoreID], file)
	return &file, nil
}

func (f *Fake) ListVectorStoreFiles(_ context.Context, vectorStoreID string) ([]provider.VectorStoreFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ListVectorStoreFiles"); err != nil {
		return nil, err
	}

	if _, ok := f.stores[vectorStoreID]; !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "vector store %s", vectorStoreID)
	}
	return slices.Clone(f.storeFiles[vectorStoreID]), nil
}
