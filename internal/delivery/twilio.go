package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

// TwilioClient sends SMS through the Twilio Messages REST API.
type TwilioClient struct {
	accountSid string
	authToken  string
	from       string
	client     *http.Client
	log        logger.Logger
}

func NewTwilioClient(accountSid, authToken, from string, log logger.Logger) *TwilioClient {
	return &TwilioClient{
		accountSid: accountSid,
		authToken:  authToken,
		from:       from,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

func (c *TwilioClient) SendSMS(ctx context.Context, msg SMSMessage) (string, error) {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", c.from)
	form.Set("Body", msg.Body)

	apiURL := fmt.Sprintf(
		"https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json",
		c.accountSid,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSid, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("Twilio send failed",
			"status", resp.StatusCode,
			"to", msg.To,
			"response", string(respBody),
		)
		return "", fmt.Errorf("twilio api error (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Sid string `json:"sid"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse twilio response: %w", err)
	}

	c.log.Debug("SMS sent", "to", msg.To, "sid", parsed.Sid)
	return parsed.Sid, nil
}
