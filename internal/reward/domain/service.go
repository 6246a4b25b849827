package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// NoteAttribute mirrors the commerce platform's order note attributes.
type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LineItem carries the fields intake inspects for the protection signal.
type LineItem struct {
	Title string `json:"title"`
	Name  string `json:"name"`
}

// OrderEvent is one purchase-completion event as delivered by the
// platform webhook, at-least-once.
type OrderEvent struct {
	OrderID           string
	OrderName         string
	Email             string
	CustomerID        string
	CustomerFirstName string
	TotalPrice        string
	NoteAttributes    []NoteAttribute
	LineItems         []LineItem
	CreatedAt         time.Time
	ShopDomain        string
}

// Attribute returns the value of the named note attribute, or "".
func (e OrderEvent) Attribute(name string) string {
	for _, attr := range e.NoteAttributes {
		if strings.EqualFold(attr.Name, name) {
			return attr.Value
		}
	}
	return ""
}

type IntakeOutcome string

const (
	// IntakeCreated means a new pending reward was scheduled.
	IntakeCreated IntakeOutcome = "created"
	// IntakeDuplicate means the order was already recorded; the call
	// is an idempotent no-op.
	IntakeDuplicate IntakeOutcome = "duplicate"
	// IntakeSkipped means the order did not opt into protection.
	IntakeSkipped IntakeOutcome = "skipped"
)

type IntakeResult struct {
	Outcome IntakeOutcome
	Reward  *PendingReward
}

type Service interface {
	Intake(ctx context.Context, event OrderEvent) (IntakeResult, error)
}

var (
	ErrMissingOrderID    = errors.New("missing_order_id")
	ErrMissingEmail      = errors.New("missing_email")
	ErrMissingShopDomain = errors.New("missing_shop_domain")
	ErrInvalidAmount     = errors.New("invalid_reward_amount")
	ErrNotFound          = errors.New("not_found")
)
