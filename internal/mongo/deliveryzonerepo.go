package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mealkitclub/storefront/internal/subscription"
)

type DeliveryZoneRepo struct {
	base *BaseRepo
}

func NewDeliveryZoneRepo(base *BaseRepo) *DeliveryZoneRepo {
	return &DeliveryZoneRepo{base: base}
}

func (r *DeliveryZoneRepo) collection() *mongo.Collection {
	return r.base.Collection("delivery_zones")
}

func (r *DeliveryZoneRepo) Find(ctx context.Context, subscriptionID uuid.UUID, zipcode string) (*subscription.DeliveryZone, error) {
	filter := bson.M{
		"subscription_id": subscriptionID,
		"zipcode":         zipcode,
		"active":          true,
	}

	var zone subscription.DeliveryZone
	err := r.collection().FindOne(ctx, filter).Decode(&zone)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot find delivery zone: %w", err)
	}
	return &zone, nil
}

func (r *DeliveryZoneRepo) Create(ctx context.Context, zone *subscription.DeliveryZone) error {
	if zone == nil {
		return fmt.Errorf("delivery zone is nil")
	}

	if _, err := r.collection().InsertOne(ctx, zone); err != nil {
		return fmt.Errorf("cannot create delivery zone: %w", err)
	}

	return nil
}
