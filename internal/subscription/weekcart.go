package subscription

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// Order cart statuses reported by the order platform. The week becomes
// immutable once the status enters the terminal set.
const (
	CartStatusPending      = "PENDING"
	CartStatusCartPending  = "CART_PENDING"
	CartStatusOrderPending = "ORDER_PENDING"
	CartStatusProcess      = "PROCESS"
	CartStatusOrderPlaced  = "ORDER_PLACED"
)

// Valid statuses the order platform reports on its occurrence-customer
// row after an upsert. INVALID marks a server-side rejection of the
// week; the platform owns the authoritative copy, so the week locks.
const (
	ValidStatusValid   = "VALID"
	ValidStatusInvalid = "INVALID"
)

// IsTerminalCartStatus reports whether the order platform has taken the
// cart past the point of customer edits.
func IsTerminalCartStatus(status string) bool {
	return status == CartStatusProcess || status == CartStatusOrderPlaced
}

// AllowsReselection reports whether a single-select product already in
// the cart may be added again. Only carts the platform has not started
// processing ("" means no server cart yet) allow it.
func AllowsReselection(status string) bool {
	return status == "" || status == CartStatusCartPending
}

// CartProduct is the content of one cart slot. The zero value is the
// empty placeholder.
type CartProduct struct {
	ProductID           uuid.UUID `json:"product_id" bson:"product_id"`
	OccurrenceProductID uuid.UUID `json:"occurrence_product_id" bson:"occurrence_product_id"`
	Name                string    `json:"name" bson:"name"`
	Image               string    `json:"image,omitempty" bson:"image,omitempty"`
	IsAddOn             bool      `json:"is_add_on" bson:"is_add_on"`
	AddOnPrice          float64   `json:"add_on_price,omitempty" bson:"add_on_price,omitempty"`
	IsSingleSelect      bool      `json:"is_single_select" bson:"is_single_select"`
}

// IsEmpty reports whether the slot holds no selection.
func (p CartProduct) IsEmpty() bool {
	return p.ProductID == uuid.Nil && p.OccurrenceProductID == uuid.Nil
}

// WeekCart is the per-occurrence aggregate of slot selections. The slot
// count equals the plan's recipe count and never changes after the cart
// is created for an occurrence.
type WeekCart struct {
	OccurrenceID    uuid.UUID     `json:"occurrence_id"`
	Products        []CartProduct `json:"products"`
	IsSkipped       bool          `json:"is_skipped"`
	OrderCartID     *uuid.UUID    `json:"order_cart_id,omitempty"`
	OrderCartStatus string        `json:"order_cart_status,omitempty"`
	ValidStatus     string        `json:"valid_status,omitempty"`
	Hydrated        bool          `json:"hydrated"`
}

func NewWeekCart(occurrenceID uuid.UUID, capacity int) *WeekCart {
	return &WeekCart{
		OccurrenceID: occurrenceID,
		Products:     make([]CartProduct, capacity),
	}
}

// FilledCount returns how many slots hold a selection.
func (c *WeekCart) FilledCount() int {
	count := 0
	for _, p := range c.Products {
		if !p.IsEmpty() {
			count++
		}
	}
	return count
}

// FirstEmptySlot returns the index of the first empty slot, or -1 when
// the cart is full.
func (c *WeekCart) FirstEmptySlot() int {
	for i, p := range c.Products {
		if p.IsEmpty() {
			return i
		}
	}
	return -1
}

// HasOccurrenceProduct reports whether a selection for the given
// occurrence product is already present.
func (c *WeekCart) HasOccurrenceProduct(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	for _, p := range c.Products {
		if p.OccurrenceProductID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, used to snapshot the cart before a
// submission so a failed submission cannot leave partial edits behind.
func (c *WeekCart) Clone() *WeekCart {
	clone := *c
	clone.Products = make([]CartProduct, len(c.Products))
	copy(clone.Products, c.Products)
	if c.OrderCartID != nil {
		id := *c.OrderCartID
		clone.OrderCartID = &id
	}
	return &clone
}

// CartRecord is the server-side copy of a week cart, persisted once a
// submission succeeds or when the platform pre-fills a cart. The record,
// not the in-memory cart, is authoritative after persistence.
type CartRecord struct {
	ID           uuid.UUID     `json:"id" bson:"_id"`
	KeycloakID   string        `json:"keycloak_id" bson:"keycloak_id"`
	OccurrenceID uuid.UUID     `json:"occurrence_id" bson:"occurrence_id"`
	IsAuto       bool          `json:"is_auto" bson:"is_auto"`
	IsSkipped    bool          `json:"is_skipped" bson:"is_skipped"`
	OrderCartID  *uuid.UUID    `json:"order_cart_id,omitempty" bson:"order_cart_id,omitempty"`
	Status       string        `json:"status,omitempty" bson:"status,omitempty"`
	ValidStatus  string        `json:"valid_status,omitempty" bson:"valid_status,omitempty"`
	Products     []CartProduct `json:"products" bson:"products"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at"`
}

func (r *CartRecord) GetID() uuid.UUID {
	return r.ID
}

func (r *CartRecord) SetID(id uuid.UUID) {
	r.ID = id
}

func (r *CartRecord) ResourceType() string {
	return "cart-record"
}

func (r *CartRecord) EnsureID() {
	if r.ID == uuid.Nil {
		r.ID = apt.GenerateNewID()
	}
}

func (r *CartRecord) BeforeCreate() {
	r.EnsureID()
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
}

func (r *CartRecord) BeforeUpdate() {
	r.UpdatedAt = time.Now()
}

// OccurrenceProduct is a catalog entry offered for a given week. The
// embedded CartProduct is what lands in a slot when added.
type OccurrenceProduct struct {
	ID             uuid.UUID   `json:"id" bson:"_id"`
	OccurrenceID   uuid.UUID   `json:"occurrence_id" bson:"occurrence_id"`
	SubscriptionID uuid.UUID   `json:"subscription_id" bson:"subscription_id"`
	Category       string      `json:"category" bson:"category"`
	AddOnLabel     string      `json:"add_on_label,omitempty" bson:"add_on_label,omitempty"`
	AdditionalText string      `json:"additional_text,omitempty" bson:"additional_text,omitempty"`
	CartItem       CartProduct `json:"cart_item" bson:"cart_item"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" bson:"updated_at"`
}

func (p *OccurrenceProduct) GetID() uuid.UUID {
	return p.ID
}

func (p *OccurrenceProduct) SetID(id uuid.UUID) {
	p.ID = id
}

func (p *OccurrenceProduct) ResourceType() string {
	return "occurrence-product"
}

func (p *OccurrenceProduct) EnsureID() {
	if p.ID == uuid.Nil {
		p.ID = apt.GenerateNewID()
	}
}

func (p *OccurrenceProduct) BeforeCreate() {
	p.EnsureID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
}

func (p *OccurrenceProduct) BeforeUpdate() {
	p.UpdatedAt = time.Now()
}

// DeliveryZone carries the delivery price and time window for a
// subscription and zipcode pair. Read-only input to pricing and to the
// fulfillment slot on submission.
type DeliveryZone struct {
	ID             uuid.UUID `json:"id" bson:"_id"`
	SubscriptionID uuid.UUID `json:"subscription_id" bson:"subscription_id"`
	Zipcode        string    `json:"zipcode" bson:"zipcode"`
	DeliveryPrice  float64   `json:"delivery_price" bson:"delivery_price"`
	From           string    `json:"from" bson:"from"`
	To             string    `json:"to" bson:"to"`
	Active         bool      `json:"active" bson:"active"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

func (z *DeliveryZone) GetID() uuid.UUID {
	return z.ID
}

func (z *DeliveryZone) SetID(id uuid.UUID) {
	z.ID = id
}

func (z *DeliveryZone) ResourceType() string {
	return "delivery-zone"
}

func (z *DeliveryZone) EnsureID() {
	if z.ID == uuid.Nil {
		z.ID = apt.GenerateNewID()
	}
}

func (z *DeliveryZone) BeforeCreate() {
	z.EnsureID()
	z.CreatedAt = time.Now()
	z.UpdatedAt = time.Now()
}

func (z *DeliveryZone) BeforeUpdate() {
	z.UpdatedAt = time.Now()
}
