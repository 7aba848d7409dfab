package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mealkitclub/storefront/internal/subscription"
)

type CustomerRepo struct {
	base *BaseRepo
}

func NewCustomerRepo(base *BaseRepo) *CustomerRepo {
	return &CustomerRepo{base: base}
}

func (r *CustomerRepo) collection() *mongo.Collection {
	return r.base.Collection("customers")
}

func (r *CustomerRepo) Get(ctx context.Context, id uuid.UUID) (*subscription.Customer, error) {
	var c subscription.Customer
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepo) GetByKeycloakID(ctx context.Context, keycloakID string) (*subscription.Customer, error) {
	var c subscription.Customer
	err := r.collection().FindOne(ctx, bson.M{"keycloak_id": keycloakID}).Decode(&c)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get customer by keycloak id: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepo) Create(ctx context.Context, c *subscription.Customer) error {
	if c == nil {
		return fmt.Errorf("customer is nil")
	}

	if _, err := r.collection().InsertOne(ctx, c); err != nil {
		return fmt.Errorf("cannot create customer: %w", err)
	}

	return nil
}
