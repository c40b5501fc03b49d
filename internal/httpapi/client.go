package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("http %d: %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Client implements types.RemoteStore and types.StaffDirectory against a
// Server.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadState fetches a workspace document.
func (c *Client) LoadState(ctx context.Context, tenantID, workspaceID, actorEmail string) (types.Envelope, error) {
	if tenantID == "" {
		return types.Envelope{}, types.ErrInvalidTenant
	}
	if workspaceID == "" {
		return types.Envelope{}, types.ErrInvalidWorkspace
	}
	q := url.Values{}
	q.Set("locationId", tenantID)
	q.Set("workspaceId", workspaceID)
	if actorEmail != "" {
		q.Set("userEmail", actorEmail)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+StatePath+"?"+q.Encode(), nil)
	if err != nil {
		return types.Envelope{}, err
	}

	var resp StateResponse
	if err := c.do(req, &resp); err != nil {
		return types.Envelope{}, err
	}
	return types.Envelope{State: resp.State, Role: resp.Role, UpdatedAt: resp.UpdatedAt}, nil
}

// SaveState posts a full workspace document.
func (c *Client) SaveState(ctx context.Context, tenantID, workspaceID, actorEmail string, state *types.State) (types.Envelope, error) {
	if tenantID == "" {
		return types.Envelope{}, types.ErrInvalidTenant
	}
	if workspaceID == "" {
		return types.Envelope{}, types.ErrInvalidWorkspace
	}
	if state == nil {
		return types.Envelope{}, types.ErrMalformedState
	}
	body, err := json.Marshal(StateRequest{
		LocationID:  tenantID,
		WorkspaceID: workspaceID,
		UserEmail:   actorEmail,
		State:       state,
	})
	if err != nil {
		return types.Envelope{}, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+StatePath, bytes.NewReader(body))
	if err != nil {
		return types.Envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp StateResponse
	if err := c.do(req, &resp); err != nil {
		return types.Envelope{}, err
	}
	return types.Envelope{State: resp.State, Role: resp.Role, UpdatedAt: resp.UpdatedAt}, nil
}

// ListStaff fetches the staff directory of a tenant.
func (c *Client) ListStaff(ctx context.Context, tenantID string) ([]types.StaffMember, error) {
	if tenantID == "" {
		return nil, types.ErrInvalidTenant
	}
	q := url.Values{}
	q.Set("locationId", tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+StaffPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp StaffResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	staff := make([]types.StaffMember, 0, len(resp.Staff))
	for _, m := range resp.Staff {
		staff = append(staff, types.NewStaffMember(m.ID, m.Email, m.Name, "", ""))
	}
	return staff, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if id := GetRequestID(req.Context()); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Detail = e.Detail
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", types.ErrMalformedState, err)
	}
	return nil
}
