// Package caseapi wraps the external case-management HTTP API used to create
// cases and attorney applications and to store intake transcripts.
package caseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TenantGuard/intake-engine/internal/models"
)

// DefaultRequestTimeout bounds a single case-management API call when no
// custom HTTP client is injected.
const DefaultRequestTimeout = 15 * time.Second

// Opts holds configuration options for the case-management API client.
type Opts struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Option defines a configuration option for the case-management API client.
type Option func(*Opts)

// WithBaseURL sets the case-management API base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithHTTPClient injects a custom HTTP client (used in tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client talks to the case-management REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a case-management API client.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	// Fallback to environment variables if not provided via options
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("CASE_API_BASE_URL")
	}
	slog.Debug("Case API client config loaded", "BaseURL_set", cfg.BaseURL != "")

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("case API base URL must be provided")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.HTTPClient,
	}, nil
}

// CreateCase submits a tenant case for creation.
func (c *Client) CreateCase(ctx context.Context, req models.CaseRequest) (*models.CaseCreateResponse, error) {
	var resp models.CaseCreateResponse
	if err := c.postJSON(ctx, "/cases", req, &resp); err != nil {
		slog.Error("CaseAPI CreateCase failed", "error", err)
		return nil, fmt.Errorf("failed to create case: %w", err)
	}
	slog.Debug("CaseAPI CreateCase response", "success", resp.Success, "caseNumber", resp.Case.CaseNumber)
	return &resp, nil
}

// CreateAttorneyApplication submits an attorney application for creation.
func (c *Client) CreateAttorneyApplication(ctx context.Context, req models.AttorneyApplicationRequest) (*models.ApplicationCreateResponse, error) {
	var resp models.ApplicationCreateResponse
	if err := c.postJSON(ctx, "/attorneys/applications", req, &resp); err != nil {
		slog.Error("CaseAPI CreateAttorneyApplication failed", "error", err)
		return nil, fmt.Errorf("failed to create attorney application: %w", err)
	}
	slog.Debug("CaseAPI CreateAttorneyApplication response", "success", resp.Success, "applicationID", resp.Attorney.ApplicationID)
	return &resp, nil
}

// StoreConversation attaches an intake transcript to a created case or
// application, keyed by the identifier creation returned.
func (c *Client) StoreConversation(ctx context.Context, flow models.FlowType, referenceID string, req models.ConversationRequest) error {
	if referenceID == "" {
		return models.ErrMissingCaseReference
	}

	var path string
	switch flow {
	case models.FlowTypeTenant:
		path = fmt.Sprintf("/cases/%s/conversation", referenceID)
	case models.FlowTypeAttorney:
		path = fmt.Sprintf("/attorneys/applications/%s/conversation", referenceID)
	default:
		return fmt.Errorf("flow type %q: %w", flow, models.ErrInvalidFlowType)
	}

	var resp models.ConversationStoreResponse
	if err := c.postJSON(ctx, path, req, &resp); err != nil {
		slog.Error("CaseAPI StoreConversation failed", "reference", referenceID, "error", err)
		return fmt.Errorf("failed to store conversation for %s: %w", referenceID, err)
	}
	if !resp.Success {
		slog.Error("CaseAPI StoreConversation rejected", "reference", referenceID, "apiError", resp.Error)
		return fmt.Errorf("conversation store rejected for %s: %s", referenceID, resp.Error)
	}
	slog.Debug("CaseAPI StoreConversation succeeded", "reference", referenceID, "messages", len(req.Messages))
	return nil
}

// postJSON sends a JSON POST and decodes the JSON response into out. Responses
// with 4xx/5xx status codes that still carry a decodable body are decoded so
// callers see the API's structured error; anything else is a transport error.
func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}
