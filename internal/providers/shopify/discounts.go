package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountInput describes one usage-limited, fixed-amount discount code.
// An empty CustomerID scopes the code to all customers (guest fallback).
type DiscountInput struct {
	Title      string
	Code       string
	StartsAt   time.Time
	EndsAt     time.Time
	CustomerID string
	Amount     decimal.Decimal
}

// DiscountCode is the platform-confirmed result; Code may differ from
// the requested one, so callers must use this value.
type DiscountCode struct {
	ID   string
	Code string
}

// UserError is one structured rejection from a discount mutation.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
}

// UserErrorList carries every user error of a rejected mutation.
type UserErrorList []UserError

func (l UserErrorList) Error() string {
	parts := make([]string, 0, len(l))
	for _, ue := range l {
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", strings.Join(ue.Field, "."), ue.Message, ue.Code))
	}
	return "user errors: " + strings.Join(parts, "; ")
}

// IsInvalidCustomer reports whether err is the specific "customer
// reference is invalid" rejection that permits the all-customers
// fallback. Any other rejection must not be retried inline.
func IsInvalidCustomer(err error) bool {
	var list UserErrorList
	if !errors.As(err, &list) {
		return false
	}
	for _, ue := range list {
		if !strings.EqualFold(ue.Code, "INVALID") {
			continue
		}
		for _, field := range ue.Field {
			if strings.Contains(strings.ToLower(field), "customers") {
				return true
			}
		}
	}
	return false
}

const discountCodeBasicCreateMutation = `mutation discountCodeBasicCreate($basicCodeDiscount: DiscountCodeBasicInput!) {
  discountCodeBasicCreate(basicCodeDiscount: $basicCodeDiscount) {
    codeDiscountNode {
      id
      codeDiscount {
        ... on DiscountCodeBasic {
          title
          status
          codes(first: 1) {
            nodes {
              code
            }
          }
        }
      }
    }
    userErrors {
      field
      message
      code
    }
  }
}`

type discountCreateData struct {
	DiscountCodeBasicCreate struct {
		CodeDiscountNode *struct {
			ID           string `json:"id"`
			CodeDiscount struct {
				Title  string `json:"title"`
				Status string `json:"status"`
				Codes  struct {
					Nodes []struct {
						Code string `json:"code"`
					} `json:"nodes"`
				} `json:"codes"`
			} `json:"codeDiscount"`
		} `json:"codeDiscountNode"`
		UserErrors UserErrorList `json:"userErrors"`
	} `json:"discountCodeBasicCreate"`
}

// CreateDiscountCode creates a storewide fixed-amount code with usage
// limit 1 and one redemption per customer.
func (c *Client) CreateDiscountCode(ctx context.Context, shopDomain, accessToken string, input DiscountInput) (DiscountCode, error) {
	var scope map[string]any
	if input.CustomerID != "" {
		scope = map[string]any{
			"customers": map[string]any{
				"add": []string{customerGID(input.CustomerID)},
			},
		}
	} else {
		scope = map[string]any{"all": "ALL"}
	}

	variables := map[string]any{
		"basicCodeDiscount": map[string]any{
			"title":    input.Title,
			"code":     input.Code,
			"startsAt": input.StartsAt.UTC().Format(time.RFC3339),
			"endsAt":   input.EndsAt.UTC().Format(time.RFC3339),
			"context":  scope,
			"customerGets": map[string]any{
				"value": map[string]any{
					"discountAmount": map[string]any{
						"amount":            input.Amount.StringFixed(2),
						"appliesOnEachItem": false,
					},
				},
				"items": map[string]any{"all": true},
			},
			"usageLimit":             1,
			"appliesOncePerCustomer": true,
		},
	}

	raw, err := c.graphql(ctx, shopDomain, accessToken, discountCodeBasicCreateMutation, variables)
	if err != nil {
		return DiscountCode{}, err
	}

	var data discountCreateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return DiscountCode{}, fmt.Errorf("decode discount response: %w", err)
	}

	result := data.DiscountCodeBasicCreate
	if len(result.UserErrors) > 0 {
		return DiscountCode{}, result.UserErrors
	}
	if result.CodeDiscountNode == nil {
		return DiscountCode{}, fmt.Errorf("discount created but no codeDiscountNode returned")
	}
	nodes := result.CodeDiscountNode.CodeDiscount.Codes.Nodes
	if len(nodes) == 0 || nodes[0].Code == "" {
		return DiscountCode{}, fmt.Errorf("discount created but no code returned")
	}

	return DiscountCode{
		ID:   result.CodeDiscountNode.ID,
		Code: nodes[0].Code,
	}, nil
}

func customerGID(customerID string) string {
	if strings.HasPrefix(customerID, "gid://") {
		return customerID
	}
	return "gid://shopify/Customer/" + customerID
}
