package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CustomerRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByKeycloakID(ctx context.Context, keycloakID string) (*Customer, error)
}

type SubscriptionRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*Subscription, error)
}

type PlanRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*Plan, error)
}

type OccurrenceRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*Occurrence, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, from time.Time) ([]*Occurrence, error)
}

type OccurrenceProductRepo interface {
	ListByOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]*OccurrenceProduct, error)
	Get(ctx context.Context, id uuid.UUID) (*OccurrenceProduct, error)
}

type CartRecordRepo interface {
	Find(ctx context.Context, keycloakID string, occurrenceID uuid.UUID) (*CartRecord, error)
	FindByOrderCartID(ctx context.Context, orderCartID uuid.UUID) (*CartRecord, error)
	Upsert(ctx context.Context, record *CartRecord) error
	SetStatus(ctx context.Context, orderCartID uuid.UUID, status string) error
	SetSkipped(ctx context.Context, keycloakID string, occurrenceID uuid.UUID, skipped bool) error
}

type DeliveryZoneRepo interface {
	Find(ctx context.Context, subscriptionID uuid.UUID, zipcode string) (*DeliveryZone, error)
}
