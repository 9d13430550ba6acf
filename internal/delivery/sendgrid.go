package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

const sendGridSendURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridClient sends email through the SendGrid v3 REST API.
type SendGridClient struct {
	apiKey string
	from   string
	client *http.Client
	log    logger.Logger
}

func NewSendGridClient(apiKey, from string, log logger.Logger) *SendGridClient {
	return &SendGridClient{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

func (c *SendGridClient) SendEmail(ctx context.Context, msg EmailMessage) (string, error) {
	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": msg.To}}},
		},
		"from":    map[string]string{"email": c.from},
		"subject": msg.Subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": msg.Body},
		},
		"custom_args": map[string]string{
			"category": string(msg.Category),
			"priority": string(msg.Priority),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendGridSendURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		c.log.Error("SendGrid send failed",
			"status", resp.StatusCode,
			"to", msg.To,
			"response", string(respBody),
		)
		return "", fmt.Errorf("sendgrid api error (%d): %s", resp.StatusCode, string(respBody))
	}

	messageID := resp.Header.Get("X-Message-Id")
	c.log.Debug("Email sent", "to", msg.To, "message_id", messageID)
	return messageID, nil
}
