package upload_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/suite"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/mytesting"
	providertest "github.com/nadavsuissa/AiChatManager1/provider/test"
	"github.com/nadavsuissa/AiChatManager1/upload"
)

type UploaderTestSuite struct {
	mytesting.Suite

	gateway  *providertest.Fake
	conf     config.ConversationConfig
	tempDir  string
	uploader *upload.Uploader
}

func (s *UploaderTestSuite) SetupTest() {
	s.Suite.SetupTest()

	s.gateway = providertest.NewFake()
	s.conf = config.NewConversationConfig()
	s.conf.UploadBackoffBase = time.Millisecond
	s.tempDir = s.T().TempDir()
	s.uploader = upload.NewUploader(s.gateway, s.conf, upload.WithTempDir(s.tempDir), upload.WithLogger(s.Logger))
}

func (s *UploaderTestSuite) requireTempDirEmpty() {
	entries, err := os.ReadDir(s.tempDir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *UploaderTestSuite) TestUpload() {
	file, err := s.uploader.Upload(s.Context, []byte("quarterly numbers"), "report.pdf")
	s.Require().NoError(err)

	s.Equal("report.pdf", filepath.Base(file.Filename))
	data, ok := s.gateway.FileData(file.ID)
	s.Require().True(ok)
	s.Equal("quarterly numbers", string(data))
	s.Equal(1, s.gateway.Calls("UploadFile"))
	s.requireTempDirEmpty()
}

func (s *UploaderTestSuite) TestOverCeilingNeverContactsProvider() {
	data := make([]byte, config.DefaultMaxUploadBytes+1)

	_, err := s.uploader.Upload(s.Context, data, "big.pdf")
	s.Require().Error(err)
	s.ErrorIs(err, errors.ErrFileTooLarge)
	s.ErrorIs(err, errors.ErrUploadFailed)

	var uploadErr *errors.UploadError
	s.Require().ErrorAs(err, &uploadErr)
	s.Equal(errors.UploadReasonTooLarge, uploadErr.Reason)
	s.Equal(0, uploadErr.Attempts)

	s.Equal(0, s.gateway.TotalCalls())
	s.requireTempDirEmpty()
}

func (s *UploaderTestSuite) TestCeilingBoundary() {
	conf := s.conf
	conf.MaxUploadBytes = 8
	uploader := upload.NewUploader(s.gateway, conf, upload.WithTempDir(s.tempDir))

	_, err := uploader.Upload(s.Context, []byte("12345678"), "a.txt")
	s.Require().NoError(err)

	_, err = uploader.Upload(s.Context, []byte("123456789"), "a.txt")
	s.ErrorIs(err, errors.ErrFileTooLarge)
	s.Equal(1, s.gateway.Calls("UploadFile"))
}

func (s *UploaderTestSuite) TestEmptyBuffer() {
	_, err := s.uploader.Upload(s.Context, nil, "empty.txt")
	s.ErrorIs(err, errors.ErrEmptyFile)
	s.Equal(0, s.gateway.TotalCalls())
}

func (s *UploaderTestSuite) TestBlankFilenameGetsDefault() {
	file, err := s.uploader.Upload(s.Context, []byte("x"), "   ")
	s.Require().NoError(err)
	s.Equal(upload.DefaultFilename, filepath.Base(file.Filename))
}

func (s *UploaderTestSuite) TestLongFilenameIsShortened() {
	name := strings.Repeat("ד", 150) + ".pdf"

	file, err := s.uploader.Upload(s.Context, []byte("data"), name)
	s.Require().NoError(err)

	base := filepath.Base(file.Filename)
	s.True(utf8.ValidString(base))
	s.LessOrEqual(len(base), 255)
	s.True(strings.HasPrefix(base, "דדד"))
	s.True(strings.HasSuffix(base, ".pdf"))
	s.Equal(1, s.gateway.Calls("UploadFile"))
	s.requireTempDirEmpty()
}

func (s *UploaderTestSuite) TestRetriesTransientFailures() {
	s.gateway.Fail("UploadFile", 2, errors.New("connection reset"))

	file, err := s.uploader.Upload(s.Context, []byte("data"), "notes.txt")
	s.Require().NoError(err)
	s.NotEmpty(file.ID)
	s.Equal(3, s.gateway.Calls("UploadFile"))
	s.requireTempDirEmpty()
}

func (s *UploaderTestSuite) TestGivesUpAfterMaxAttempts() {
	s.gateway.Fail("UploadFile", -1, errors.New("service unavailable"))

	_, err := s.uploader.Upload(s.Context, []byte("data"), "notes.txt")
	s.Require().Error(err)

	var uploadErr *errors.UploadError
	s.Require().ErrorAs(err, &uploadErr)
	s.Equal(errors.UploadReasonProvider, uploadErr.Reason)
	s.Equal(3, uploadErr.Attempts)
	s.ErrorContains(err, "service unavailable")
	s.Equal(3, s.gateway.Calls("UploadFile"))
	s.requireTempDirEmpty()
}

func (s *UploaderTestSuite) TestBackoffDoubles() {
	conf := s.conf
	conf.UploadBackoffBase = 20 * time.Millisecond
	uploader := upload.NewUploader(s.gateway, conf, upload.WithTempDir(s.tempDir))
	s.gateway.Fail("UploadFile", -1, errors.New("service unavailable"))

	start := time.Now()
	_, err := uploader.Upload(s.Context, []byte("data"), "notes.txt")
	s.Require().Error(err)

	// 20ms + 40ms between the three attempts
	s.GreaterOrEqual(time.Since(start), 60*time.Millisecond)
}

func TestUploader(t *testing.T) {
	suite.Run(t, new(UploaderTestSuite))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":            "report.pdf",
		"  spaced.docx ":        "spaced.docx",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\plan.xlsx`: "plan.xlsx",
		"":                      upload.DefaultFilename,
		"..":                    upload.DefaultFilename,
		"/":                     upload.DefaultFilename,
		"דוח.pdf":               "דוח.pdf",
		"bad\nname.txt":         "badname.txt",
	}
	for in, want := range tests {
		if got := upload.SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	long := strings.Repeat("a", 300)

	if got, want := upload.SanitizeFilename(long+".pdf"), strings.Repeat("a", 196)+".pdf"; got != want {
		t.Errorf("got %d bytes %q, want %q", len(got), got, want)
	}
	if got, want := upload.SanitizeFilename(long+"."+strings.Repeat("x", 40)), strings.Repeat("a", 200); got != want {
		t.Errorf("oversized extension: got %q, want %q", got, want)
	}
}
