package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"campaign-chat/internal/core/domain"
	"campaign-chat/internal/core/ports"
)

// Ensure DialogueClient implements ReplyOracle
var _ ports.ReplyOracle = (*DialogueClient)(nil)

// DialogueClient consults the scripted-dialogue engine for member
// replies. The engine is a black box: conversation + inbound text in,
// reply text + match metadata (+ optional topic) out.
type DialogueClient struct {
	httpClient *http.Client
	baseURI    string
}

// NewDialogueClient creates a dialogue engine client.
func NewDialogueClient(baseURI string) *DialogueClient {
	return &DialogueClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURI: baseURI,
	}
}

type dialogueRequest struct {
	UserID string       `json:"userId"`
	Topic  domain.Topic `json:"topic"`
	Text   string       `json:"text"`
}

// Reply fetches the scripted reply for the conversation's current topic.
func (c *DialogueClient) Reply(ctx context.Context, conversation *domain.Conversation, text string) (*domain.OracleReply, error) {
	payload, err := json.Marshal(dialogueRequest{
		UserID: conversation.PlatformUserID,
		Topic:  conversation.Topic,
		Text:   text,
	})
	if err != nil {
		return nil, fmt.Errorf("encode reply request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURI+"/reply", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dialogue engine request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dialogue engine error %d: %s", resp.StatusCode, string(body))
	}

	var reply domain.OracleReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	return &reply, nil
}
