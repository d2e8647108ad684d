package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"penny/internal/verification"
)

const maxResponseBytes = 1 << 20

// ErrMalformedResponse is returned when a response lacks its expected fields.
var ErrMalformedResponse = errors.New("malformed server response")

// ErrNoSession is returned by Upload before StartSession succeeded.
var ErrNoSession = errors.New("no session: start a session before uploading")

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("server returned %d %s", e.Status, e.Code)
}

// UploadFiles is one document and selfie pair, with the details the
// customer declares for the document. Empty details are not sent.
type UploadFiles struct {
	Document     []byte
	DocumentName string
	Selfie       []byte
	SelfieName   string

	FirstName   string
	LastName    string
	AccountType string
}

// UploadResult is the terminal outcome reported by the server.
type UploadResult struct {
	Status  string
	Message string
}

// SessionInfo is returned when a session starts.
type SessionInfo struct {
	Email         string
	AccountExists bool
	Message       string
}

// HTTPGateway talks to the assistant server. It keeps the session token
// returned by StartSession and sends it with uploads.
type HTTPGateway struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

type ClientOption func(*HTTPGateway)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *HTTPGateway) {
		g.client = c
	}
}

// WithToken resumes an existing session.
func WithToken(token string) ClientOption {
	return func(g *HTTPGateway) {
		g.token = token
	}
}

func NewHTTPGateway(baseURL string, opts ...ClientOption) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *HTTPGateway) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

func (g *HTTPGateway) Greeting(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/", nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := g.do(req, &resp); err != nil {
		return "", err
	}
	if resp.Message == "" {
		return "", ErrMalformedResponse
	}
	return resp.Message, nil
}

func (g *HTTPGateway) StartSession(ctx context.Context, email string) (SessionInfo, error) {
	req, err := g.jsonRequest(ctx, "/session", map[string]string{"email": email})
	if err != nil {
		return SessionInfo{}, err
	}
	var resp struct {
		Token         string `json:"token"`
		Email         string `json:"email"`
		AccountExists bool   `json:"account_exists"`
		Message       string `json:"message"`
	}
	if err := g.do(req, &resp); err != nil {
		return SessionInfo{}, err
	}
	if resp.Token == "" || resp.Email == "" {
		return SessionInfo{}, ErrMalformedResponse
	}

	g.mu.Lock()
	g.token = resp.Token
	g.mu.Unlock()
	return SessionInfo{Email: resp.Email, AccountExists: resp.AccountExists, Message: resp.Message}, nil
}

func (g *HTTPGateway) Ask(ctx context.Context, question string) (string, error) {
	req, err := g.jsonRequest(ctx, "/question", map[string]string{"message": question})
	if err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := g.do(req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Message) == "" {
		return "", ErrMalformedResponse
	}
	return resp.Message, nil
}

func (g *HTTPGateway) Upload(ctx context.Context, files UploadFiles) (UploadResult, error) {
	token := g.Token()
	if token == "" {
		return UploadResult{}, ErrNoSession
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct {
		field, name string
		content     []byte
	}{
		{"document", files.DocumentName, files.Document},
		{"selfie", files.SelfieName, files.Selfie},
	} {
		name := part.name
		if name == "" {
			name = part.field
		}
		fw, err := mw.CreateFormFile(part.field, name)
		if err != nil {
			return UploadResult{}, err
		}
		if _, err := fw.Write(part.content); err != nil {
			return UploadResult{}, err
		}
	}
	for field, value := range map[string]string{
		"first_name":   files.FirstName,
		"last_name":    files.LastName,
		"account_type": files.AccountType,
	} {
		if value == "" {
			continue
		}
		if err := mw.WriteField(field, value); err != nil {
			return UploadResult{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/uploadDoc", &body)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := g.do(req, &resp); err != nil {
		return UploadResult{}, err
	}
	if resp.Message == "" || !knownStatus(resp.Status) {
		return UploadResult{}, ErrMalformedResponse
	}
	return UploadResult{Status: resp.Status, Message: resp.Message}, nil
}

func knownStatus(status string) bool {
	switch status {
	case verification.StatusCompleted, verification.StatusCompletedNotificationFailed,
		verification.StatusIdentityMismatch, verification.StatusRejected, verification.StatusFailed:
		return true
	default:
		return false
	}
}

func (g *HTTPGateway) jsonRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx body into out. Undecodable bodies are
// ErrMalformedResponse; non-2xx responses are *APIError.
func (g *HTTPGateway) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.Error
			apiErr.Detail = envelope.Detail
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
