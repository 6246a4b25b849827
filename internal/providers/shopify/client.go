package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AdminAPI is the slice of the platform admin API the issuance pipeline
// needs: discount code creation and customer tagging.
type AdminAPI interface {
	CreateDiscountCode(ctx context.Context, shopDomain, accessToken string, input DiscountInput) (DiscountCode, error)
	TagCustomer(ctx context.Context, shopDomain, accessToken, customerID, tag string) error
}

type Config struct {
	APIVersion string
	Timeout    time.Duration
}

type Client struct {
	http       *http.Client
	log        *zap.Logger
	apiVersion string
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2025-10"
	}
	return &Client{
		http:       &http.Client{Timeout: timeout},
		log:        log.Named("providers.shopify"),
		apiVersion: apiVersion,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// graphql posts one admin GraphQL call and returns the raw data payload.
// Transport errors, non-2xx statuses and top-level GraphQL errors are
// all returned as plain errors; callers treat them as retryable.
func (c *Client) graphql(ctx context.Context, shopDomain, accessToken, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	url := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("admin api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("admin api status %d", resp.StatusCode)
	}

	var envelope graphqlEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("graphql response missing data")
	}
	return envelope.Data, nil
}
