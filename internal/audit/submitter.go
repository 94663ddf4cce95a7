package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/log"
)

const (
	// DefaultSubmitTimeout bounds one submission attempt. A timed-out
	// attempt behaves exactly like any other failed attempt.
	DefaultSubmitTimeout = 30 * time.Second

	// DefaultMaxRetries is how many times a failed attempt is retried
	// before the submission is reported as Failed.
	DefaultMaxRetries = 2

	retryBackoff = 500 * time.Millisecond
)

// HTTPSubmitter posts a governed form to its same-origin submission target as
// multipart/form-data: the native fields, the CSRF token and, when changes
// were detected, the four audit hidden fields.
type HTTPSubmitter struct {
	client     *http.Client
	baseURL    string
	timeout    time.Duration
	maxRetries int
	logger     log.Logger
}

// HTTPSubmitterOption configures an HTTPSubmitter.
type HTTPSubmitterOption func(*HTTPSubmitter)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) HTTPSubmitterOption {
	return func(s *HTTPSubmitter) { s.client = client }
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(timeout time.Duration) HTTPSubmitterOption {
	return func(s *HTTPSubmitter) { s.timeout = timeout }
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) HTTPSubmitterOption {
	return func(s *HTTPSubmitter) { s.maxRetries = n }
}

// WithSubmitterLogger sets the logger.
func WithSubmitterLogger(logger log.Logger) HTTPSubmitterOption {
	return func(s *HTTPSubmitter) { s.logger = logger }
}

// NewHTTPSubmitter builds a submitter targeting the given base URL, e.g.
// "https://ressync.example.org".
func NewHTTPSubmitter(baseURL string, options ...HTTPSubmitterOption) *HTTPSubmitter {
	s := &HTTPSubmitter{
		client:     &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    DefaultSubmitTimeout,
		maxRetries: DefaultMaxRetries,
		logger:     log.NewNopLogger(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// submitURL derives the target path from the record identifier and the form
// type resource segment.
func (s *HTTPSubmitter) submitURL(doc *FormDocument) string {
	if doc.IsNew() {
		return fmt.Sprintf("%s/forms/%s/records", s.baseURL, doc.FormType)
	}
	return fmt.Sprintf("%s/forms/%s/records/%s", s.baseURL, doc.FormType, doc.RecordID)
}

// Submit implements Submitter. Transport errors, timeouts and 5xx responses
// are retried up to the retry budget; a 4xx response carrying the standard
// {success, message, errors} document is returned to the caller as a
// validation failure, not retried.
func (s *HTTPSubmitter) Submit(ctx context.Context, doc *FormDocument, payload *AuditPayload) (*SubmitResult, error) {
	target := s.submitURL(doc)

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			_ = s.logger.Log("msg", "retrying submission", "url", target, "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		result, retryable, err := s.attempt(ctx, target, doc, payload)
		if err == nil {
			return result, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("submission failed after %d attempts: %w", s.maxRetries+1, lastErr)
}

func (s *HTTPSubmitter) attempt(ctx context.Context, target string, doc *FormDocument, payload *AuditPayload) (*SubmitResult, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, contentType, err := encodeMultipart(doc, payload)
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, target, body)
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("posting form: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("server error: %s", resp.Status)
	}

	var result SubmitResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("malformed response (%s): %w", resp.Status, err)
	}
	return &result, false, nil
}

// encodeMultipart writes the native fields, then the audit hidden fields when
// a payload exists. With no detected changes the audit fields are left
// unpopulated.
func encodeMultipart(doc *FormDocument, payload *AuditPayload) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for name, values := range doc.FormValues() {
		for _, value := range values {
			if err := writer.WriteField(name, value); err != nil {
				return nil, "", fmt.Errorf("encoding field %s: %w", name, err)
			}
		}
	}
	if payload != nil {
		for name, value := range payload.HiddenFields() {
			if err := writer.WriteField(name, value); err != nil {
				return nil, "", fmt.Errorf("encoding audit field %s: %w", name, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
