package api

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
	"time"

	"github.com/roomtone/roomtone-go/pkg/log"
	"github.com/roomtone/roomtone-go/pkg/model"
)

// DefaultTimeout is the per-request timeout when none is configured.
const DefaultTimeout = 15 * time.Second

// Client errors.
var (
	ErrEmptyBaseURL = errors.New("empty base URL")
)

// StatusError is a non-success reply from the appliance.
type StatusError struct {
	// Code is the HTTP status code, or 0 for an application-level
	// failure envelope on a 200 reply.
	Code int

	// Message is the failure description from the reply body.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Code)
}

// writeResult is the success/failure envelope returned by write operations.
type writeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Client talks to one RoomTone appliance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a client for the appliance at baseURL,
// e.g. "http://living-room.local".
func NewClient(baseURL string, logger log.Logger) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.OrNoop(logger),
	}, nil
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// targetPath builds "/api/v1/targets/{id}" + suffix.
func targetPath(target model.TargetID, suffix string) string {
	return "/api/v1/targets/" + url.PathEscape(string(target)) + suffix
}

// doJSON performs a request with an optional JSON body and decodes the JSON
// reply into out (when out is non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Surface a context cancellation as the context error so
		// callers can swallow superseded requests cleanly.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding reply: %w", err)
		}
	}
	return nil
}

// doWrite performs a mutation and maps a non-success envelope to StatusError.
func (c *Client) doWrite(ctx context.Context, method, path string, body any) error {
	var result writeResult
	if err := c.doJSON(ctx, method, path, body, &result); err != nil {
		return err
	}
	if !result.Success {
		return &StatusError{Message: result.Message}
	}
	return nil
}

// errorMessage extracts a message from an error reply body, falling back to
// the raw text for non-JSON bodies.
func errorMessage(data []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(data))
}

// logRequest emits a request log event.
func (c *Client) logRequest(target model.TargetID, op model.Operation, err error) {
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		// Transport cancellation of a superseded request is not an error.
		return
	}
	e := log.NewEvent(log.CategoryRequest)
	e.Direction = log.DirectionOut
	e.Target = string(target)
	e.Operation = string(op)
	if err != nil {
		e.Category = log.CategoryError
		e.Err = err.Error()
	}
	c.logger.Log(e)
}
