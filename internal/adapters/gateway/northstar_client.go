package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/ports"
)

// Ensure NorthstarClient implements UserService
var _ ports.UserService = (*NorthstarClient)(nil)

// NorthstarClient talks to the user-profile service.
type NorthstarClient struct {
	httpClient *http.Client
	baseURI    string
	apiKey     string
}

// NewNorthstarClient creates a user-service client.
func NewNorthstarClient(baseURI, apiKey string) *NorthstarClient {
	return &NorthstarClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURI: baseURI,
		apiKey:  apiKey,
	}
}

// userEnvelope wraps single-user responses.
type userEnvelope struct {
	Data domain.User `json:"data"`
}

// FetchByID looks a user up by their id.
func (c *NorthstarClient) FetchByID(ctx context.Context, id string) (*domain.User, error) {
	return c.fetchUser(ctx, "/users/id/"+url.PathEscape(id))
}

// FetchByMobile looks a user up by mobile number.
func (c *NorthstarClient) FetchByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	return c.fetchUser(ctx, "/users/mobile/"+url.PathEscape(mobile))
}

// FetchByEmail looks a user up by email address.
func (c *NorthstarClient) FetchByEmail(ctx context.Context, email string) (*domain.User, error) {
	return c.fetchUser(ctx, "/users/email/"+url.PathEscape(email))
}

// Create registers a new user profile and returns the stored record.
func (c *NorthstarClient) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	payload, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, "/users", payload)
	if err != nil {
		return nil, domain.NewUpstreamError("create user", err)
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewUpstreamError(fmt.Sprintf("create user: status %d", status), nil)
	}

	var envelope userEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domain.NewUpstreamError("decode created user", err)
	}

	slog.Info("User created", "user_id", envelope.Data.ID)
	return &envelope.Data, nil
}

// UpdateSMSStatus updates the user's SMS subscription status.
func (c *NorthstarClient) UpdateSMSStatus(ctx context.Context, id string, status string) error {
	payload, err := json.Marshal(map[string]string{"sms_status": status})
	if err != nil {
		return fmt.Errorf("encode sms status: %w", err)
	}

	_, code, err := c.do(ctx, http.MethodPut, "/users/id/"+url.PathEscape(id), payload)
	if err != nil {
		return domain.NewUpstreamError("update sms status", err)
	}
	if code == http.StatusNotFound {
		return domain.NewNotFoundError("user " + id + " not found")
	}
	if code < 200 || code >= 300 {
		return domain.NewUpstreamError(fmt.Sprintf("update sms status: status %d", code), nil)
	}

	slog.Debug("User sms status updated",
		"user_id", id,
		"sms_status", status,
	)
	return nil
}

func (c *NorthstarClient) fetchUser(ctx context.Context, path string) (*domain.User, error) {
	body, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, domain.NewUpstreamError("fetch user", err)
	}
	if status == http.StatusNotFound {
		return nil, domain.NewNotFoundError("user not found")
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewUpstreamError(fmt.Sprintf("fetch user: status %d", status), nil)
	}

	var envelope userEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domain.NewUpstreamError("decode user", err)
	}

	return &envelope.Data, nil
}

func (c *NorthstarClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURI+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-DS-REST-API-Key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("user service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
