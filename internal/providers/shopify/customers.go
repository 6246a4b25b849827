package shopify

import (
	"context"
	"encoding/json"
	"fmt"
)

const customerUpdateMutation = `mutation customerUpdate($input: CustomerInput!) {
  customerUpdate(input: $input) {
    customer {
      id
      tags
    }
    userErrors {
      field
      message
    }
  }
}`

type customerUpdateData struct {
	CustomerUpdate struct {
		UserErrors UserErrorList `json:"userErrors"`
	} `json:"customerUpdate"`
}

// TagCustomer adds a tag to the customer. Callers treat failures as
// best-effort: a missing tag never blocks issuance.
func (c *Client) TagCustomer(ctx context.Context, shopDomain, accessToken, customerID, tag string) error {
	variables := map[string]any{
		"input": map[string]any{
			"id":   customerGID(customerID),
			"tags": []string{tag},
		},
	}

	raw, err := c.graphql(ctx, shopDomain, accessToken, customerUpdateMutation, variables)
	if err != nil {
		return err
	}

	var data customerUpdateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode customer response: %w", err)
	}
	if len(data.CustomerUpdate.UserErrors) > 0 {
		return data.CustomerUpdate.UserErrors
	}
	return nil
}
