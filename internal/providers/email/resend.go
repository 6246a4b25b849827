package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultResendEndpoint = "https://api.resend.com/emails"

type Config struct {
	APIKey   string
	From     string
	Endpoint string
	Timeout  time.Duration
}

// ResendProvider sends transactional mail through the Resend HTTP API.
type ResendProvider struct {
	cfg  Config
	http *http.Client
}

func NewResend(cfg Config) *ResendProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultResendEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ResendProvider{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (p *ResendProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	body, err := json.Marshal(sendEmailRequest{
		From:    p.cfg.From,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email provider status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
