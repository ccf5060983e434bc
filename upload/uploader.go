package upload

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/errors"
	"github.com/nadavsuissa/AiChatManager1/internal/metrics"
	"github.com/nadavsuissa/AiChatManager1/internal/mylog"
	"github.com/nadavsuissa/AiChatManager1/provider"
)

const (
	DefaultFilename = "uploaded_file"

	// most filesystems reject names over 255 bytes
	maxFilenameBytes = 200
	maxExtBytes      = 16
)

type (
	Uploader struct {
		gateway     provider.Gateway
		logger      *slog.Logger
		maxBytes    int64
		maxAttempts int
		backoffBase time.Duration
		tempDir     string
	}

	Option func(*Uploader)
)

// WithTempDir sets the parent of the per-upload scratch directories; the
// system temp dir is used otherwise.
func WithTempDir(dir string) Option {
	return func(u *Uploader) {
		u.tempDir = dir
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		u.logger = logger
	}
}

func NewUploader(gateway provider.Gateway, conf config.ConversationConfig, opts ...Option) *Uploader {
	u := &Uploader{
		gateway:     gateway,
		logger:      mylog.Discard(),
		maxBytes:    conf.MaxUploadBytes,
		maxAttempts: max(conf.UploadMaxAttempts, 1),
		backoffBase: conf.UploadBackoffBase,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = u.logger.With("component", "upload")
	return u
}

// SanitizeFilename keeps the base name only and substitutes DefaultFilename
// for names that are blank or unusable on disk.
func SanitizeFilename(filename string) string {
	filename = strings.TrimSpace(strings.ReplaceAll(filename, "\\", "/"))
	filename = filepath.Base(filename)
	filename = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, filename)
	switch filename {
	case "", ".", "..", "/":
		return DefaultFilename
	}
	return capFilename(filename)
}

// capFilename shortens the stem on a rune boundary and keeps the extension.
func capFilename(filename string) string {
	if len(filename) <= maxFilenameBytes {
		return filename
	}

	ext := filepath.Ext(filename)
	if len(ext) > maxExtBytes {
		ext = ""
	}
	stem := strings.TrimSuffix(filename, ext)
	limit := maxFilenameBytes - len(ext)
	for limit > 0 && !utf8.RuneStart(stem[limit]) {
		limit--
	}
	stem = strings.TrimSpace(stem[:limit])
	if stem == "" {
		stem = DefaultFilename
	}
	return stem + ext
}

func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload sends data to the provider under filename. Size checks happen before
// any provider call; the scratch copy on disk is removed on every path.
func (u *Uploader) Upload(ctx context.Context, data []byte, filename string) (*provider.File, error) {
	filename = SanitizeFilename(filename)
	size := int64(len(data))
	logger := u.logger.With("filename", filename, "size", size)

	if size == 0 {
		metrics.UploadsTotal.WithLabelValues(string(errors.UploadReasonEmpty)).Inc()
		return nil, &errors.UploadError{Filename: filename, Reason: errors.UploadReasonEmpty}
	}
	if size > u.maxBytes {
		metrics.UploadsTotal.WithLabelValues(string(errors.UploadReasonTooLarge)).Inc()
		return nil, &errors.UploadError{Filename: filename, Size: size, Limit: u.maxBytes, Reason: errors.UploadReasonTooLarge}
	}

	localFail := func(err error) (*provider.File, error) {
		metrics.UploadsTotal.WithLabelValues(string(errors.UploadReasonLocal)).Inc()
		return nil, &errors.UploadError{Filename: filename, Size: size, Reason: errors.UploadReasonLocal, Cause: err}
	}

	dir, err := os.MkdirTemp(u.tempDir, "upload-*")
	if err != nil {
		return localFail(errors.Wrapf(err, "failed to create temp dir"))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to remove temp dir", "dir", dir, mylog.Err(err))
		}
	}()

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return localFail(errors.Wrapf(err, "failed to write temp file"))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.backoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = u.backoffBase << u.maxAttempts

	attempts := 0
	local := false
	file, err := backoff.Retry(ctx, func() (*provider.File, error) {
		attempts++
		metrics.UploadAttempts.Inc()

		f, err := os.Open(path)
		if err != nil {
			local = true
			return nil, backoff.Permanent(errors.Wrapf(err, "failed to open temp file"))
		}
		defer f.Close()

		res, err := u.gateway.UploadFile(ctx, f)
		if err != nil {
			logger.Warn("upload attempt failed", "attempt", attempts, "max_attempts", u.maxAttempts, mylog.Err(err))
			return nil, err
		}
		return res, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(u.maxAttempts)))
	if err != nil {
		if local {
			return localFail(err)
		}
		metrics.UploadsTotal.WithLabelValues(string(errors.UploadReasonProvider)).Inc()
		return nil, &errors.UploadError{
			Filename: filename,
			Size:     size,
			Attempts: attempts,
			Reason:   errors.UploadReasonProvider,
			Cause:    err,
		}
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	logger.Info("uploaded file", "file_id", file.ID, "attempts", attempts)
	return file, nil
}
