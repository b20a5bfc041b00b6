package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"
)

// TestContext holds state between test steps. Each scenario runs against its
// own in-process server so scenarios cannot see each other's data.
type TestContext struct {
	server           *httptest.Server
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	UserID           string
}

// NewTestContext creates a new test context around a fresh server.
func NewTestContext() *TestContext {
	return &TestContext{
		server: newTestServer(),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Close shuts the scenario's server down.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

// POST makes a POST request and stores the response.
func (tc *TestContext) POST(path string, body any) error {
	return tc.send(http.MethodPost, path, body)
}

// PUT makes a PUT request and stores the response.
func (tc *TestContext) PUT(path string, body any) error {
	return tc.send(http.MethodPut, path, body)
}

// GET makes a GET request and stores the response.
func (tc *TestContext) GET(path string) error {
	return tc.send(http.MethodGet, path, nil)
}

// DELETE makes a DELETE request and stores the response.
func (tc *TestContext) DELETE(path string) error {
	return tc.send(http.MethodDelete, path, nil)
}

func (tc *TestContext) send(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a top-level field from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response body: %w", err)
	}
	value, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.LastResponseBody)
	}
	return value, nil
}

// ResponseList parses the last response as a JSON array of objects.
func (tc *TestContext) ResponseList() ([]map[string]any, error) {
	var payload []map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response body as list: %w", err)
	}
	return payload, nil
}
