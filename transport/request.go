package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Request describes one call to the engine API. It is a stateless value
// constructed per call; the query string, if any, is carried pre-encoded in
// Path.
type Request struct {
	Method      string
	Path        string
	Body        io.Reader
	ContentType string
	Headers     http.Header
}

// Do sends the request through the backend's pooled client and classifies
// the response exactly once. For statuses 200, 201, 101, and 204 the raw
// body handle is returned un-consumed; any other status buffers the body,
// extracts the engine's error message, and returns a *Fault.
func (t *Transport) Do(ctx context.Context, req Request) (io.ReadCloser, error) {
	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := t.backend.Client().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach docker engine: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusSwitchingProtocols, http.StatusNoContent:
		return resp.Body, nil
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine error response: %w", err)
	}

	return nil, &Fault{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body, resp.StatusCode),
	}
}

// DoString sends the request and buffers the whole successful response body
// into a string.
func (t *Transport) DoString(ctx context.Context, req Request) (string, error) {
	body, err := t.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer body.Close()

	buf, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read engine response: %w", err)
	}

	return string(buf), nil
}

func (t *Transport) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.backend.URL(req.Path), req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %q: %w", req.Path, err)
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	return httpReq, nil
}

// errorMessage extracts the message from the engine's JSON error envelope,
// falling back to the HTTP reason phrase when the body does not parse.
func errorMessage(body []byte, statusCode int) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}

	if reason := http.StatusText(statusCode); reason != "" {
		return reason
	}

	return "unknown error code"
}
