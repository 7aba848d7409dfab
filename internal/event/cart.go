package event

import "time"

const (
	// StorefrontCartsTopic carries events emitted by this service when
	// a customer saves or skips a week.
	StorefrontCartsTopic = "storefront.carts"
	// OrderCartsTopic carries authoritative cart status changes pushed
	// by the order platform.
	OrderCartsTopic = "orders.carts"

	EventCartSubmitted          = "storefront.cart.submitted"
	EventWeekSkipChanged        = "storefront.week.skip_changed"
	EventOrderCartStatusChanged = "order.cart.status_changed"
)

// CartSubmittedEvent is published after the order platform accepted a
// week's cart.
type CartSubmittedEvent struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	OrderCartID  string    `json:"order_cart_id"`
	OccurrenceID string    `json:"occurrence_id"`
	KeycloakID   string    `json:"keycloak_id"`
	CustomerID   string    `json:"customer_id"`
	IsSkipped    bool      `json:"is_skipped"`
	ItemCount    int       `json:"item_count"`
	GrandTotal   float64   `json:"grand_total"`
}

// WeekSkipChangedEvent mirrors a customer's skip toggle so downstream
// planners can react without polling.
type WeekSkipChangedEvent struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	OccurrenceID string    `json:"occurrence_id"`
	KeycloakID   string    `json:"keycloak_id"`
	IsSkipped    bool      `json:"is_skipped"`
}

// OrderCartStatusEvent is consumed from the order platform; PROCESS and
// ORDER_PLACED lock the week against further edits.
type OrderCartStatusEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	OrderCartID    string    `json:"order_cart_id"`
	OccurrenceID   string    `json:"occurrence_id,omitempty"`
	KeycloakID     string    `json:"keycloak_id,omitempty"`
	NewStatus      string    `json:"new_status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
}
