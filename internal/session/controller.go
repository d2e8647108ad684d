package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"penny/internal/chat"
	"penny/internal/verification"
)

const (
	TypingPlaceholder = chat.AssistantName + " is typing..."
	UploadNotice      = "We have received your document. Please wait while we complete the verification."

	uploadFailureNotice = "We could not complete your verification right now. Please try again in a few minutes."
	noSessionNotice     = "Please start a session with your email address before uploading your documents."

	DefaultTurnTimeout = 3 * time.Minute
)

// ErrEmptyQuestion is returned for blank input; nothing is appended.
var ErrEmptyQuestion = errors.New("question is empty")

// Gateway is the server as seen by the controller.
type Gateway interface {
	Ask(ctx context.Context, question string) (string, error)
	Upload(ctx context.Context, files UploadFiles) (UploadResult, error)
}

// Controller keeps a transcript consistent with in-flight requests. Every
// turn appends its own entries before its request is sent, so a turn
// started later never places entries ahead of one started earlier.
type Controller struct {
	gateway     Gateway
	transcript  *Transcript
	logger      *slog.Logger
	turnTimeout time.Duration

	wg sync.WaitGroup
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTurnTimeout bounds how long a turn waits for the server.
func WithTurnTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.turnTimeout = d
		}
	}
}

func NewController(gateway Gateway, transcript *Transcript, opts ...Option) *Controller {
	c := &Controller{
		gateway:     gateway,
		transcript:  transcript,
		logger:      slog.New(slog.DiscardHandler),
		turnTimeout: DefaultTurnTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Transcript() *Transcript {
	return c.transcript
}

// Announce appends an assistant entry that is not tied to a request, such
// as the greeting.
func (c *Controller) Announce(text string) Entry {
	return c.transcript.Append(SpeakerAssistant, text)
}

// Ask runs a chat turn and returns once the placeholder is resolved.
func (c *Controller) Ask(ctx context.Context, question string) (Entry, error) {
	pending, err := c.openChatTurn(question)
	if err != nil {
		return Entry{}, err
	}
	return c.finishChatTurn(ctx, question, pending), nil
}

// SubmitQuestion starts a chat turn in the background. The customer entry
// and placeholder are in the transcript when it returns.
func (c *Controller) SubmitQuestion(ctx context.Context, question string) error {
	pending, err := c.openChatTurn(question)
	if err != nil {
		return err
	}
	c.wg.Go(func() {
		c.finishChatTurn(ctx, question, pending)
	})
	return nil
}

func (c *Controller) openChatTurn(question string) (Entry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Entry{}, ErrEmptyQuestion
	}
	_, pending := c.transcript.Exchange(question, TypingPlaceholder)
	return pending, nil
}

func (c *Controller) finishChatTurn(ctx context.Context, question string, pending Entry) Entry {
	ctx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	defer cancel()

	text, err := c.gateway.Ask(ctx, strings.TrimSpace(question))
	if err != nil {
		c.logger.WarnContext(ctx, "question failed", "sequence", pending.Sequence, "error", err)
		text = chatFailureText(err)
	}

	resolved, rerr := c.transcript.Resolve(pending.Sequence, text)
	if rerr != nil {
		// Only this turn holds the sequence, so this is a programming error.
		c.logger.ErrorContext(ctx, "resolve placeholder", "sequence", pending.Sequence, "error", rerr)
	}
	return resolved
}

// Upload runs an upload turn and returns the outcome entry.
func (c *Controller) Upload(ctx context.Context, files UploadFiles) Entry {
	notice := c.transcript.Placeholder(SpeakerAssistant, UploadNotice)
	return c.finishUploadTurn(ctx, files, notice)
}

// SubmitUpload starts an upload turn in the background. The notice is in
// the transcript when it returns.
func (c *Controller) SubmitUpload(ctx context.Context, files UploadFiles) {
	notice := c.transcript.Placeholder(SpeakerAssistant, UploadNotice)
	c.wg.Go(func() {
		c.finishUploadTurn(ctx, files, notice)
	})
}

func (c *Controller) finishUploadTurn(ctx context.Context, files UploadFiles, notice Entry) Entry {
	ctx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	defer cancel()

	res, err := c.gateway.Upload(ctx, files)
	if err != nil {
		c.logger.WarnContext(ctx, "upload failed", "sequence", notice.Sequence, "error", err)
		res = uploadFailure(err)
	}

	// The notice keeps its text; the outcome is a separate entry.
	if _, rerr := c.transcript.Resolve(notice.Sequence, notice.Text); rerr != nil {
		c.logger.ErrorContext(ctx, "settle upload notice", "sequence", notice.Sequence, "error", rerr)
	}
	return c.transcript.AppendStatus(SpeakerAssistant, res.Message, res.Status)
}

// Wait blocks until every submitted turn has resolved.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func chatFailureText(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return chat.FailureMessage
}

func uploadFailure(err error) UploadResult {
	if errors.Is(err, ErrNoSession) {
		return UploadResult{Status: verification.StatusRejected, Message: noSessionNotice}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		status := verification.StatusFailed
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnauthorized:
			status = verification.StatusRejected
		}
		return UploadResult{Status: status, Message: apiErr.Detail}
	}
	return UploadResult{Status: verification.StatusFailed, Message: uploadFailureNotice}
}
