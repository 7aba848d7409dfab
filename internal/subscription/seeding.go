package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fixed identifiers so reseeding stays idempotent across restarts.
var (
	demoPlanID         = uuid.MustParse("30f0c9bd-52f1-4a3e-9d35-6c2a9e1d44a1")
	demoCustomerID     = uuid.MustParse("8b1f9c20-7e42-4c5b-a1de-3f6a8d902b17")
	demoSubscriptionID = uuid.MustParse("c5d7e8f1-2a3b-4c6d-8e90-1f2a3b4c5d6e")
	demoZoneID         = uuid.MustParse("f1e2d3c4-b5a6-4798-8190-a2b3c4d5e6f7")
)

// Seeds returns all seeds for the storefront service.
func Seeds(db *mongo.Database) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "2026-08-01_demo_plan_and_customer",
			Description: "Seed a demo plan with a subscribed customer and delivery zone",
			Run: func(ctx context.Context) error {
				return seedPlanAndCustomer(ctx, db)
			},
		},
		{
			ID:          "2026-08-01_demo_occurrences",
			Description: "Seed eight weekly occurrences with a small product catalog",
			Run: func(ctx context.Context) error {
				return seedOccurrences(ctx, db)
			},
		},
	}
}

func seedPlanAndCustomer(ctx context.Context, db *mongo.Database) error {
	now := time.Now()

	plan := &Plan{
		ID:            demoPlanID,
		Name:          "Family Box, 4 recipes",
		RecipeCount:   4,
		BasePrice:     40.00,
		TaxRate:       5,
		IsTaxIncluded: true,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := upsertByID(ctx, db.Collection("plans"), plan.ID, plan); err != nil {
		return fmt.Errorf("cannot seed demo plan: %w", err)
	}

	brandCustomerID := uuid.MustParse("9a8b7c6d-5e4f-4a3b-9c2d-1e0f9a8b7c6d")
	customer := &Customer{
		ID:              demoCustomerID,
		KeycloakID:      "demo-customer",
		BrandCustomerID: &brandCustomerID,
		SubscriptionID:  demoSubscriptionID,
		Email:           "demo@example.com",
		Phone:           "+919800000000",
		FirstName:       "Demo",
		LastName:        "Customer",
		PaymentMethodID: "pm_demo",
		DefaultAddress: Address{
			Line1:   "12 Residency Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Country: "IN",
			Zipcode: "560001",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := upsertByID(ctx, db.Collection("customers"), customer.ID, customer); err != nil {
		return fmt.Errorf("cannot seed demo customer: %w", err)
	}

	sub := &Subscription{
		ID:         demoSubscriptionID,
		CustomerID: demoCustomerID,
		PlanID:     demoPlanID,
		Zipcode:    "560001",
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := upsertByID(ctx, db.Collection("subscriptions"), sub.ID, sub); err != nil {
		return fmt.Errorf("cannot seed demo subscription: %w", err)
	}

	zone := &DeliveryZone{
		ID:             demoZoneID,
		SubscriptionID: demoSubscriptionID,
		Zipcode:        "560001",
		DeliveryPrice:  5.00,
		From:           "16:00",
		To:             "18:00",
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := upsertByID(ctx, db.Collection("delivery_zones"), zone.ID, zone); err != nil {
		return fmt.Errorf("cannot seed demo delivery zone: %w", err)
	}

	return nil
}

func seedOccurrences(ctx context.Context, db *mongo.Database) error {
	now := time.Now()
	monday := nextMonday(now)

	catalog := []struct {
		name       string
		isAddOn    bool
		addOnPrice float64
		category   string
		addOnLabel string
	}{
		{name: "Paneer Tikka Bowl", category: "recipe"},
		{name: "Thai Green Curry", category: "recipe"},
		{name: "Smoky Bean Chili", category: "recipe"},
		{name: "Lemon Herb Chicken", category: "recipe"},
		{name: "Mushroom Risotto", category: "recipe"},
		{name: "Garlic Bread", isAddOn: true, addOnPrice: 5.00, category: "add_on", addOnLabel: "Sides"},
		{name: "Tiramisu Cup", isAddOn: true, addOnPrice: 5.00, category: "add_on", addOnLabel: "Dessert"},
	}

	for week := 0; week < 8; week++ {
		fulfillment := monday.AddDate(0, 0, 7*week)
		occurrenceID := uuid.NewSHA1(demoSubscriptionID, []byte(fmt.Sprintf("occurrence-%d", week)))

		occ := &Occurrence{
			ID:              occurrenceID,
			SubscriptionID:  demoSubscriptionID,
			FulfillmentDate: fulfillment,
			CutoffDate:      fulfillment.AddDate(0, 0, -2),
			IsValid:         true,
			IsVisible:       true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := upsertByID(ctx, db.Collection("occurrences"), occ.ID, occ); err != nil {
			return fmt.Errorf("cannot seed occurrence for week %d: %w", week, err)
		}

		for i, entry := range catalog {
			productID := uuid.NewSHA1(occurrenceID, []byte(fmt.Sprintf("product-%d", i)))
			catalogEntry := &OccurrenceProduct{
				ID:             productID,
				OccurrenceID:   occurrenceID,
				SubscriptionID: demoSubscriptionID,
				Category:       entry.category,
				AddOnLabel:     entry.addOnLabel,
				CartItem: CartProduct{
					ProductID:           uuid.NewSHA1(productID, []byte("base")),
					OccurrenceProductID: productID,
					Name:                entry.name,
					IsAddOn:             entry.isAddOn,
					AddOnPrice:          entry.addOnPrice,
					IsSingleSelect:      entry.isAddOn,
				},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := upsertByID(ctx, db.Collection("occurrence_products"), catalogEntry.ID, catalogEntry); err != nil {
				return fmt.Errorf("cannot seed catalog entry %q: %w", entry.name, err)
			}
		}
	}

	return nil
}

func upsertByID(ctx context.Context, collection *mongo.Collection, id uuid.UUID, doc interface{}) error {
	_, err := collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	return err
}

// SeedingFunc returns a function for running seeds during service startup.
func SeedingFunc(appName string, dbFn func() *mongo.Database, logger apt.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Info("Applying storefront database seeds...")
		db := dbFn()
		tracker := seed.NewMongoTracker(db)
		if err := seed.Apply(ctx, tracker, Seeds(db), appName); err != nil {
			return fmt.Errorf("apply seeds: %w", err)
		}
		logger.Info("Storefront database seeds applied successfully")
		return nil
	}
}

func nextMonday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
