package subscription

import (
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// Address is the delivery address attached to a submission.
type Address struct {
	Line1   string `json:"line1" bson:"line1"`
	Line2   string `json:"line2,omitempty" bson:"line2,omitempty"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	Country string `json:"country" bson:"country"`
	Zipcode string `json:"zipcode" bson:"zipcode"`
	Notes   string `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Format renders the address as a single display line.
func (a Address) Format() string {
	parts := make([]string, 0, 6)
	for _, part := range []string{a.Line1, a.Line2, a.City, a.State, a.Country, a.Zipcode} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// Customer is the storefront's view of a subscriber. The authoritative
// record lives in the customer platform; this copy carries what menu
// selection and submission need.
type Customer struct {
	ID              uuid.UUID  `json:"id" bson:"_id"`
	KeycloakID      string     `json:"keycloak_id" bson:"keycloak_id"`
	BrandCustomerID *uuid.UUID `json:"brand_customer_id,omitempty" bson:"brand_customer_id,omitempty"`
	SubscriptionID  uuid.UUID  `json:"subscription_id" bson:"subscription_id"`
	Email           string     `json:"email" bson:"email"`
	Phone           string     `json:"phone,omitempty" bson:"phone,omitempty"`
	FirstName       string     `json:"first_name" bson:"first_name"`
	LastName        string     `json:"last_name" bson:"last_name"`
	PaymentMethodID string     `json:"payment_method_id,omitempty" bson:"payment_method_id,omitempty"`
	DefaultAddress  Address    `json:"default_address" bson:"default_address"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" bson:"updated_at"`
}

func (c *Customer) GetID() uuid.UUID {
	return c.ID
}

func (c *Customer) SetID(id uuid.UUID) {
	c.ID = id
}

func (c *Customer) ResourceType() string {
	return "customer"
}

func (c *Customer) EnsureID() {
	if c.ID == uuid.Nil {
		c.ID = apt.GenerateNewID()
	}
}

func (c *Customer) BeforeCreate() {
	c.EnsureID()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
}

func (c *Customer) BeforeUpdate() {
	c.UpdatedAt = time.Now()
}

// Subscription ties a customer to a plan. The plan reference never
// changes for the life of the subscription.
type Subscription struct {
	ID         uuid.UUID `json:"id" bson:"_id"`
	CustomerID uuid.UUID `json:"customer_id" bson:"customer_id"`
	PlanID     uuid.UUID `json:"plan_id" bson:"plan_id"`
	Zipcode    string    `json:"zipcode" bson:"zipcode"`
	Active     bool      `json:"active" bson:"active"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

func (s *Subscription) GetID() uuid.UUID {
	return s.ID
}

func (s *Subscription) SetID(id uuid.UUID) {
	s.ID = id
}

func (s *Subscription) ResourceType() string {
	return "subscription"
}

func (s *Subscription) EnsureID() {
	if s.ID == uuid.Nil {
		s.ID = apt.GenerateNewID()
	}
}

func (s *Subscription) BeforeCreate() {
	s.EnsureID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
}

func (s *Subscription) BeforeUpdate() {
	s.UpdatedAt = time.Now()
}
