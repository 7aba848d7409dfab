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

// CartRecordRepo stores the server copy of each customer's weekly cart.
// A customer has at most one record per occurrence.
type CartRecordRepo struct {
	base *BaseRepo
}

func NewCartRecordRepo(base *BaseRepo) *CartRecordRepo {
	return &CartRecordRepo{base: base}
}

func (r *CartRecordRepo) collection() *mongo.Collection {
	return r.base.Collection("cart_records")
}

// EnsureIndexes creates the uniqueness index on (keycloak_id, occurrence_id)
// and the lookup index on order_cart_id.
func (r *CartRecordRepo) EnsureIndexes(ctx context.Context) error {
	customerWeekIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "keycloak_id", Value: 1},
			{Key: "occurrence_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection().Indexes().CreateOne(ctx, customerWeekIndex); err != nil {
		return fmt.Errorf("cannot create keycloak_id/occurrence_id index: %w", err)
	}

	orderCartIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "order_cart_id", Value: 1}},
	}
	if _, err := r.collection().Indexes().CreateOne(ctx, orderCartIndex); err != nil {
		return fmt.Errorf("cannot create order_cart_id index: %w", err)
	}

	return nil
}

func (r *CartRecordRepo) Find(ctx context.Context, keycloakID string, occurrenceID uuid.UUID) (*subscription.CartRecord, error) {
	filter := bson.M{
		"keycloak_id":   keycloakID,
		"occurrence_id": occurrenceID,
	}

	var record subscription.CartRecord
	err := r.collection().FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot find cart record: %w", err)
	}
	return &record, nil
}

func (r *CartRecordRepo) FindByOrderCartID(ctx context.Context, orderCartID uuid.UUID) (*subscription.CartRecord, error) {
	var record subscription.CartRecord
	err := r.collection().FindOne(ctx, bson.M{"order_cart_id": orderCartID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot find cart record by order cart id: %w", err)
	}
	return &record, nil
}

// Upsert writes the record keyed by (keycloak_id, occurrence_id) so the
// caller does not need to know whether a record already exists.
func (r *CartRecordRepo) Upsert(ctx context.Context, record *subscription.CartRecord) error {
	if record == nil {
		return fmt.Errorf("cart record is nil")
	}

	record.EnsureID()
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	filter := bson.M{
		"keycloak_id":   record.KeycloakID,
		"occurrence_id": record.OccurrenceID,
	}
	update := bson.M{
		"$set": bson.M{
			"is_auto":       record.IsAuto,
			"is_skipped":    record.IsSkipped,
			"order_cart_id": record.OrderCartID,
			"status":        record.Status,
			"valid_status":  record.ValidStatus,
			"products":      record.Products,
			"updated_at":    record.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":           record.ID,
			"keycloak_id":   record.KeycloakID,
			"occurrence_id": record.OccurrenceID,
			"created_at":    record.CreatedAt,
		},
	}

	_, err := r.collection().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot upsert cart record: %w", err)
	}

	return nil
}

func (r *CartRecordRepo) SetStatus(ctx context.Context, orderCartID uuid.UUID, status string) error {
	filter := bson.M{"order_cart_id": orderCartID}
	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot set cart record status: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("cart record not found for order cart %s", orderCartID)
	}

	return nil
}

func (r *CartRecordRepo) SetSkipped(ctx context.Context, keycloakID string, occurrenceID uuid.UUID, skipped bool) error {
	filter := bson.M{
		"keycloak_id":   keycloakID,
		"occurrence_id": occurrenceID,
	}
	update := bson.M{"$set": bson.M{
		"is_skipped": skipped,
		"updated_at": time.Now(),
	}}

	_, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot set cart record skip flag: %w", err)
	}

	return nil
}
