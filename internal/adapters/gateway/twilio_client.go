// Package gateway implements external API adapters
// Following Hexagonal Architecture: Outbound adapters for external services
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campaign-chat/internal/core/ports"
)

// Custom errors for specific carrier API failures
var (
	// ErrUnsubscribedRecipient indicates the recipient has opted out
	// (Twilio error 21610). Never retried.
	ErrUnsubscribedRecipient = errors.New("recipient has unsubscribed")

	// ErrInvalidRecipient indicates the number cannot receive SMS
	// (error 21211, 21614).
	ErrInvalidRecipient = errors.New("recipient number is invalid")

	// ErrCarrierRateLimited indicates the carrier rate limit was hit
	// (error 20429).
	ErrCarrierRateLimited = errors.New("carrier rate limit exceeded")
)

// Ensure TwilioClient implements MessageSender
var _ ports.MessageSender = (*TwilioClient)(nil)

// TwilioClient posts outbound SMS through the Twilio Messages API.
type TwilioClient struct {
	httpClient *http.Client
	baseURI    string
	accountSID string
	authToken  string
	from       string
}

// NewTwilioClient creates a carrier client for the given account.
func NewTwilioClient(accountSID, authToken, from string) *TwilioClient {
	return &TwilioClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURI:    "https://api.twilio.com/2010-04-01",
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
	}
}

// twilioMessageResponse is the subset of the Messages API response we read.
type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts text to the recipient with a retry mechanism and returns
// the carrier-side message sid.
//
// Returns specific errors:
// - ErrUnsubscribedRecipient: recipient opted out, do not retry
// - ErrInvalidRecipient: number cannot receive SMS
// - ErrCarrierRateLimited: slow down, retry is the caller's concern
func (c *TwilioClient) Send(ctx context.Context, to string, text string) (string, error) {
	const maxRetries = 3

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		sid, err := c.sendAttempt(ctx, to, text, attempt)
		if err == nil {
			return sid, nil
		}
		lastErr = err

		// Don't retry on these specific errors
		if errors.Is(err, ErrUnsubscribedRecipient) ||
			errors.Is(err, ErrInvalidRecipient) ||
			errors.Is(err, ErrCarrierRateLimited) {
			return "", err
		}

		// Retry on network errors with backoff
		if attempt < maxRetries {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			slog.Warn("Retrying carrier API call",
				"attempt", attempt,
				"max_retries", maxRetries,
				"backoff_ms", backoff.Milliseconds(),
				"error", err,
			)
			time.Sleep(backoff)
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// sendAttempt performs a single attempt to post the message
func (c *TwilioClient) sendAttempt(ctx context.Context, to, text string, attempt int) (string, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURI, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	// Log outgoing request (without credentials)
	slog.Info("Posting message to carrier",
		"to", to,
		"text_length", len(text),
		"attempt", attempt,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to reach carrier API",
			"error", err,
			"attempt", attempt,
		)
		return "", fmt.Errorf("carrier api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var msgResp twilioMessageResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			slog.Warn("Failed to parse success response",
				"error", err,
				"body", string(body),
			)
			return "", nil
		}
		return "", fmt.Errorf("carrier api error %d: %s", resp.StatusCode, string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Carrier API error",
			"status_code", resp.StatusCode,
			"error_code", msgResp.Code,
			"error_message", msgResp.Message,
		)

		switch msgResp.Code {
		case 21610:
			return "", ErrUnsubscribedRecipient
		case 21211, 21614:
			return "", ErrInvalidRecipient
		case 20429:
			return "", ErrCarrierRateLimited
		default:
			return "", fmt.Errorf("carrier api error (code %d): %s", msgResp.Code, msgResp.Message)
		}
	}

	slog.Info("Message posted to carrier",
		"to", to,
		"message_sid", msgResp.SID,
		"attempt", attempt,
	)

	return msgResp.SID, nil
}
