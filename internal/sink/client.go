// Package sink talks to the remote note store over HTTP. All operations
// are idempotent: writes replace the full document at a path, deletes of
// an absent path succeed.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// ContentTimeout bounds write/read/delete calls.
	ContentTimeout = 10 * time.Second
	// HealthTimeout bounds health checks.
	HealthTimeout = 3 * time.Second
)

var ErrUnavailable = errors.New("note sink unavailable")

type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Client is the engine's view of the note sink. Implementations keep a
// single availability flag: any failed call clears it, and only a
// successful HealthCheck re-arms it.
type Client interface {
	Write(ctx context.Context, path, content string) error
	Delete(ctx context.Context, path string) error
	Read(ctx context.Context, path string) (string, bool, error)
	HealthCheck(ctx context.Context) bool
	Available() bool
}

type HTTPClientOptions struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	UserAgent  string
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	userAgent  string
	available  atomic.Bool
}

func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &HTTPClient{
		baseURL:    baseURL,
		token:      strings.TrimSpace(opts.Token),
		httpClient: httpClient,
		userAgent:  strings.TrimSpace(opts.UserAgent),
	}
	c.available.Store(true)
	return c
}

func (c *HTTPClient) Available() bool {
	return c.available.Load()
}

func (c *HTTPClient) Write(ctx context.Context, path, content string) error {
	body := map[string]string{"content": content}
	err := c.do(ctx, http.MethodPut, c.fileURL(path), body, nil, ContentTimeout)
	if err != nil {
		c.available.Store(false)
		return err
	}
	return nil
}

func (c *HTTPClient) Delete(ctx context.Context, path string) error {
	err := c.do(ctx, http.MethodDelete, c.fileURL(path), nil, nil, ContentTimeout)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		// Deleting an absent note converges to the same end state.
		return nil
	}
	if err != nil {
		c.available.Store(false)
		return err
	}
	return nil
}

func (c *HTTPClient) Read(ctx context.Context, path string) (string, bool, error) {
	var out struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	err := c.do(ctx, http.MethodGet, c.fileURL(path), nil, &out, ContentTimeout)
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if err != nil {
		c.available.Store(false)
		return "", false, err
	}
	return out.Content, true, nil
}

func (c *HTTPClient) HealthCheck(ctx context.Context) bool {
	err := c.do(ctx, http.MethodGet, "/v1/notes/health", nil, nil, HealthTimeout)
	c.available.Store(err == nil)
	return err == nil
}

func (c *HTTPClient) fileURL(path string) string {
	q := url.Values{}
	q.Set("path", strings.TrimSpace(path))
	return "/v1/notes/file?" + q.Encode()
}

func (c *HTTPClient) do(ctx context.Context, method, requestPath string, body, out any, timeout time.Duration) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A timeout and a refused connection are the same transient
		// failure from the engine's point of view.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if out == nil || len(payload) == 0 {
			return nil
		}
		return json.Unmarshal(payload, out)
	}

	var errPayload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(payload, &errPayload)
	if errPayload.Message == "" {
		errPayload.Message = strings.TrimSpace(string(payload))
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Code:       errPayload.Code,
		Message:    errPayload.Message,
	}
}
