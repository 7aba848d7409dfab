package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mealkitclub/storefront/internal/subscription"
)

type OccurrenceRepo struct {
	base *BaseRepo
}

func NewOccurrenceRepo(base *BaseRepo) *OccurrenceRepo {
	return &OccurrenceRepo{base: base}
}

func (r *OccurrenceRepo) collection() *mongo.Collection {
	return r.base.Collection("occurrences")
}

func (r *OccurrenceRepo) Get(ctx context.Context, id uuid.UUID) (*subscription.Occurrence, error) {
	var o subscription.Occurrence
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get occurrence: %w", err)
	}
	return &o, nil
}

// ListBySubscription returns occurrences whose fulfillment date is on
// or after the given time, in fulfillment order.
func (r *OccurrenceRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, from time.Time) ([]*subscription.Occurrence, error) {
	filter := bson.M{
		"subscription_id":  subscriptionID,
		"fulfillment_date": bson.M{"$gte": from},
	}
	opts := options.Find().SetSort(bson.D{{Key: "fulfillment_date", Value: 1}})

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list occurrences: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*subscription.Occurrence
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode occurrences: %w", err)
	}

	return result, nil
}

func (r *OccurrenceRepo) Create(ctx context.Context, o *subscription.Occurrence) error {
	if o == nil {
		return fmt.Errorf("occurrence is nil")
	}

	if _, err := r.collection().InsertOne(ctx, o); err != nil {
		return fmt.Errorf("cannot create occurrence: %w", err)
	}

	return nil
}

type OccurrenceProductRepo struct {
	base *BaseRepo
}

func NewOccurrenceProductRepo(base *BaseRepo) *OccurrenceProductRepo {
	return &OccurrenceProductRepo{base: base}
}

func (r *OccurrenceProductRepo) collection() *mongo.Collection {
	return r.base.Collection("occurrence_products")
}

func (r *OccurrenceProductRepo) Get(ctx context.Context, id uuid.UUID) (*subscription.OccurrenceProduct, error) {
	var p subscription.OccurrenceProduct
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get occurrence product: %w", err)
	}
	return &p, nil
}

func (r *OccurrenceProductRepo) ListByOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]*subscription.OccurrenceProduct, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}})

	cursor, err := r.collection().Find(ctx, bson.M{"occurrence_id": occurrenceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list occurrence products: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*subscription.OccurrenceProduct
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode occurrence products: %w", err)
	}

	return result, nil
}

func (r *OccurrenceProductRepo) Create(ctx context.Context, p *subscription.OccurrenceProduct) error {
	if p == nil {
		return fmt.Errorf("occurrence product is nil")
	}

	if _, err := r.collection().InsertOne(ctx, p); err != nil {
		return fmt.Errorf("cannot create occurrence product: %w", err)
	}

	return nil
}
