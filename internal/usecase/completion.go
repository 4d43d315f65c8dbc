package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"pdf-form-filler/internal/domain"
)

const (
	opDownload = "download form"

	completedPrefix  = "completed_"
	fallbackFilename = "completed_form.pdf"
	defaultDirPerm   = 0o750
)

// Saver hands a downloaded payload to local storage and returns where it went.
type Saver interface {
	Save(name string, write func(io.Writer) error) (string, error)
}

// DirSaver writes files into Dir via a temp file and rename, so a failed
// download never leaves a partial file under the final name.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(name string, write func(io.Writer) error) (string, error) {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return "", fmt.Errorf("usecase: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".formfill-*")
	if err != nil {
		return "", fmt.Errorf("usecase: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("usecase: close temp file: %w", err)
	}
	dest := filepath.Join(dir, filepath.Base(name))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("usecase: save %s: %w", dest, err)
	}
	return dest, nil
}

// SuggestedFilename is the name the completed form is saved under.
func SuggestedFilename(original string) string {
	base := filepath.Base(original)
	if original == "" || base == "." || base == string(filepath.Separator) {
		return fallbackFilename
	}
	return completedPrefix + base
}

// Completion is the completion generator for one session. completeForm is
// only ever invoked by Generate and Retry, never automatically.
type Completion struct {
	client   SessionClient
	saver    Saver
	logger   *slog.Logger
	sess     *SessionContext
	result   *domain.Completion
	err      *domain.Error
	attempts int
}

func newCompletion(client SessionClient, saver Saver, sess *SessionContext, logger *slog.Logger) *Completion {
	return &Completion{client: client, saver: saver, sess: sess, logger: logger}
}

// Generate invokes completeForm once.
func (c *Completion) Generate(ctx context.Context) error {
	c.attempts++
	c.result = nil
	c.err = nil

	res, err := c.client.Complete(ctx, c.sess.ID)
	if err != nil {
		c.err = domain.Classify(err)
		c.logger.Warn("complete form failed", "session_id", c.sess.ID, "attempt", c.attempts, "err", c.err)
		return c.err
	}
	c.result = &res
	c.logger.Info("form completed", "session_id", c.sess.ID, "download_url", res.DownloadURL)
	return nil
}

// Retry is the user-triggered "try again".
func (c *Completion) Retry(ctx context.Context) error {
	return c.Generate(ctx)
}

func (c *Completion) Ready() bool {
	return c.result != nil
}

// Error returns the failure of the last attempt, or nil.
func (c *Completion) Error() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

func (c *Completion) Attempts() int {
	return c.attempts
}

// Result returns the completion payload; zero when not ready.
func (c *Completion) Result() domain.Completion {
	if c.result == nil {
		return domain.Completion{}
	}
	return *c.result
}

func (c *Completion) SuggestedFilename() string {
	return SuggestedFilename(c.sess.Filename)
}

// Download fetches the completed PDF and saves it as SuggestedFilename.
// A failure does not change readiness.
func (c *Completion) Download(ctx context.Context) (string, error) {
	if !c.Ready() {
		return "", domain.NewValidationError(opDownload, "The completed form is not ready yet")
	}
	if c.saver == nil {
		return "", domain.NewValidationError(opDownload, "No download destination is configured")
	}
	path, err := c.saver.Save(c.SuggestedFilename(), func(w io.Writer) error {
		_, err := c.client.Download(ctx, c.sess.ID, w)
		return err
	})
	if err != nil {
		classified := domain.Classify(err)
		c.logger.Warn("download failed", "session_id", c.sess.ID, "err", classified)
		return "", classified
	}
	c.logger.Info("completed form saved", "session_id", c.sess.ID, "path", path)
	return path, nil
}
