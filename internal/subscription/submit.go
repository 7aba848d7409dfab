package subscription

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mealkitclub/storefront/internal/orders"
)

// BuildSubmission assembles the order platform payload from a cart
// snapshot. It reads only the snapshot, so a failed submission leaves
// the live store untouched.
func BuildSubmission(customer *Customer, plan *Plan, zone *DeliveryZone, occurrence *Occurrence, cart *WeekCart, pricing PriceBreakdown) (orders.CartSubmission, error) {
	from, err := evalSlotTime(occurrence.FulfillmentDate, zone.From)
	if err != nil {
		return orders.CartSubmission{}, fmt.Errorf("invalid delivery window start: %w", err)
	}
	to, err := evalSlotTime(occurrence.FulfillmentDate, zone.To)
	if err != nil {
		return orders.CartSubmission{}, fmt.Errorf("invalid delivery window end: %w", err)
	}

	products := make([]interface{}, 0, len(cart.Products))
	for _, p := range cart.Products {
		products = append(products, p)
	}

	// The platform stores the base line net of add-ons and delivery
	// for tax-inclusive plans.
	total := plan.BasePrice
	if plan.IsTaxIncluded {
		total = pricing.WeekTotal - (pricing.AddOnTotal + pricing.DeliveryPrice)
	}

	submission := orders.CartSubmission{
		Status:        CartStatusPending,
		CustomerID:    customer.ID.String(),
		PaymentStatus: "PENDING",
		CartSource:    "subscription",
		CartInfo: orders.CartInfo{
			Tax:      pricing.Tax,
			Total:    total,
			Products: products,
		},
		Address: orders.Address{
			Line1:   customer.DefaultAddress.Line1,
			Line2:   customer.DefaultAddress.Line2,
			City:    customer.DefaultAddress.City,
			State:   customer.DefaultAddress.State,
			Country: customer.DefaultAddress.Country,
			Zipcode: customer.DefaultAddress.Zipcode,
			Notes:   customer.DefaultAddress.Notes,
		},
		CustomerKeycloakID: customer.KeycloakID,
		OccurrenceID:       occurrence.ID.String(),
		PaymentMethodID:    customer.PaymentMethodID,
		CustomerInfo: orders.CustomerInfo{
			Email:     customer.Email,
			Phone:     customer.Phone,
			LastName:  customer.LastName,
			FirstName: customer.FirstName,
		},
		FulfillmentInfo: orders.FulfillmentInfo{
			Type: "PREORDER_DELIVERY",
			Slot: orders.FulfillmentSlot{From: from, To: to},
		},
		OccurrenceRows: []orders.OccurrenceCustomer{
			{
				IsSkipped:    cart.IsSkipped,
				KeycloakID:   customer.KeycloakID,
				OccurrenceID: occurrence.ID.String(),
			},
		},
	}

	if customer.BrandCustomerID != nil {
		submission.OccurrenceRows[0].BrandCustomerID = customer.BrandCustomerID.String()
	}
	if cart.OrderCartID != nil {
		submission.ID = cart.OrderCartID.String()
	}

	return submission, nil
}

// evalSlotTime anchors a zone's "HH:MM" clock time on the fulfillment
// date, in the date's location.
func evalSlotTime(date time.Time, clock string) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed clock time %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("malformed hour in %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("malformed minute in %q", clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
