package subscription

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// Occurrence is one weekly fulfillment opportunity for a subscription.
// Occurrences are owned by the fulfillment planner; this service only
// reads them and designates one as active per customer session.
type Occurrence struct {
	ID              uuid.UUID `json:"id" bson:"_id"`
	SubscriptionID  uuid.UUID `json:"subscription_id" bson:"subscription_id"`
	FulfillmentDate time.Time `json:"fulfillment_date" bson:"fulfillment_date"`
	CutoffDate      time.Time `json:"cutoff_date" bson:"cutoff_date"`
	IsValid         bool      `json:"is_valid" bson:"is_valid"`
	IsVisible       bool      `json:"is_visible" bson:"is_visible"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

func (o *Occurrence) GetID() uuid.UUID {
	return o.ID
}

func (o *Occurrence) SetID(id uuid.UUID) {
	o.ID = id
}

func (o *Occurrence) ResourceType() string {
	return "occurrence"
}

func NewOccurrence(subscriptionID uuid.UUID, fulfillmentDate time.Time) *Occurrence {
	return &Occurrence{
		ID:              apt.GenerateNewID(),
		SubscriptionID:  subscriptionID,
		FulfillmentDate: fulfillmentDate,
		IsVisible:       true,
	}
}

func (o *Occurrence) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Occurrence) BeforeCreate() {
	o.EnsureID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
}

func (o *Occurrence) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

// Deliverable reports whether the occurrence can be offered to the
// customer for menu selection.
func (o *Occurrence) Deliverable() bool {
	return o.IsValid && o.IsVisible
}

// FilterDeliverable keeps only occurrences the customer may select a
// menu for, preserving the planner's ordering.
func FilterDeliverable(occurrences []*Occurrence) []*Occurrence {
	filtered := make([]*Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if occ != nil && occ.Deliverable() {
			filtered = append(filtered, occ)
		}
	}
	return filtered
}
