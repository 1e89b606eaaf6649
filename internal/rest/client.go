package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"agora/internal/observability"
)

// ErrNotAuthenticated is returned when a call requires a session token and
// none is available.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError carries the server-side message of an envelope with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

// envelope is the {success, data, message?} wrapper every response follows.
// Data stays raw until success has been checked.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Doer is the transport the client issues requests through.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the REST API using the envelope convention. Every request
// gets a deadline so a stalled call resolves to an error instead of hanging.
type Client struct {
	base    string
	http    Doer
	timeout time.Duration
	token   func() string
}

// NewClient builds a Client. token may be nil for unauthenticated use.
func NewClient(baseURL string, timeout time.Duration, token func() string) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		token:   token,
	}
}

// SetDoer swaps the underlying transport.
func (c *Client) SetDoer(d Doer) {
	c.http = d
}

// Get issues a GET and decodes the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the envelope data into out.
// body and out may both be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, span := otel.Tracer("agora/rest").Start(ctx, "rest."+strings.ToLower(method))
	defer span.End()
	span.SetAttributes(attribute.String("http.route", path))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.IncAPIRequest(method, "transport_error")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		observability.IncAPIRequest(method, "transport_error")
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Success == nil {
		observability.IncAPIRequest(method, "bad_envelope")
		return &APIError{Status: resp.StatusCode, Message: "unexpected response shape"}
	}
	if !*env.Success {
		observability.IncAPIRequest(method, "rejected")
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	observability.IncAPIRequest(method, "ok")
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "unexpected data shape"}
	}
	return nil
}
