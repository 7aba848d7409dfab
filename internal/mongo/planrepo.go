package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mealkitclub/storefront/internal/subscription"
)

type PlanRepo struct {
	base *BaseRepo
}

func NewPlanRepo(base *BaseRepo) *PlanRepo {
	return &PlanRepo{base: base}
}

func (r *PlanRepo) collection() *mongo.Collection {
	return r.base.Collection("plans")
}

func (r *PlanRepo) Get(ctx context.Context, id uuid.UUID) (*subscription.Plan, error) {
	var p subscription.Plan
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get plan: %w", err)
	}
	return &p, nil
}

func (r *PlanRepo) List(ctx context.Context) ([]*subscription.Plan, error) {
	cursor, err := r.collection().Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("cannot list plans: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*subscription.Plan
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode plans: %w", err)
	}

	return result, nil
}

func (r *PlanRepo) Create(ctx context.Context, p *subscription.Plan) error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}

	if _, err := r.collection().InsertOne(ctx, p); err != nil {
		return fmt.Errorf("cannot create plan: %w", err)
	}

	return nil
}

type SubscriptionRepo struct {
	base *BaseRepo
}

func NewSubscriptionRepo(base *BaseRepo) *SubscriptionRepo {
	return &SubscriptionRepo{base: base}
}

func (r *SubscriptionRepo) collection() *mongo.Collection {
	return r.base.Collection("subscriptions")
}

func (r *SubscriptionRepo) Get(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get subscription: %w", err)
	}
	return &s, nil
}

func (r *SubscriptionRepo) Create(ctx context.Context, s *subscription.Subscription) error {
	if s == nil {
		return fmt.Errorf("subscription is nil")
	}

	if _, err := r.collection().InsertOne(ctx, s); err != nil {
		return fmt.Errorf("cannot create subscription: %w", err)
	}

	return nil
}
