package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/ports"
)

// Ensure ContentClient implements ContentService
var _ ports.ContentService = (*ContentClient)(nil)

// ContentClient fetches campaign and broadcast definitions from the
// content API.
type ContentClient struct {
	httpClient *http.Client
	baseURI    string
	apiKey     string
}

// NewContentClient creates a content-API client.
func NewContentClient(baseURI, apiKey string) *ContentClient {
	return &ContentClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURI: baseURI,
		apiKey:  apiKey,
	}
}

// FetchBroadcastByID loads one broadcast definition.
func (c *ContentClient) FetchBroadcastByID(ctx context.Context, id string) (*domain.Broadcast, error) {
	body, status, err := c.get(ctx, "/broadcasts/"+url.PathEscape(id))
	if err != nil {
		return nil, domain.NewUpstreamError("fetch broadcast", err)
	}
	if status == http.StatusNotFound {
		return nil, domain.NewNotFoundError("broadcast " + id + " not found")
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewUpstreamError(fmt.Sprintf("fetch broadcast: status %d", status), nil)
	}

	var envelope struct {
		Data domain.Broadcast `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domain.NewUpstreamError("decode broadcast", err)
	}

	return &envelope.Data, nil
}

// FetchCampaignByID loads one campaign's metadata.
func (c *ContentClient) FetchCampaignByID(ctx context.Context, id int) (*domain.Campaign, error) {
	body, status, err := c.get(ctx, "/campaigns/"+strconv.Itoa(id))
	if err != nil {
		return nil, domain.NewUpstreamError("fetch campaign", err)
	}
	if status == http.StatusNotFound {
		return nil, domain.NewNotFoundError(fmt.Sprintf("campaign %d not found", id))
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewUpstreamError(fmt.Sprintf("fetch campaign: status %d", status), nil)
	}

	var envelope struct {
		Data domain.Campaign `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domain.NewUpstreamError("decode campaign", err)
	}

	return &envelope.Data, nil
}

func (c *ContentClient) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURI+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Content-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("content api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
