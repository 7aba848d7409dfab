package subscription

import (
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// CartStateStore holds the in-memory week carts for one customer
// session, keyed by occurrence id. Every cart carries exactly the
// plan's recipe count of slots; only slot contents change after the
// cart is created for an occurrence.
type CartStateStore struct {
	mu       sync.RWMutex
	capacity int
	carts    map[uuid.UUID]*WeekCart
	logger   apt.Logger
}

func NewCartStateStore(capacity int, logger apt.Logger) *CartStateStore {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &CartStateStore{
		capacity: capacity,
		carts:    make(map[uuid.UUID]*WeekCart),
		logger:   logger,
	}
}

// Capacity returns the fixed slot count carts are created with.
func (s *CartStateStore) Capacity() int {
	return s.capacity
}

// Snapshot returns a deep copy of the cart for the occurrence, creating
// an empty cart first if none exists. Callers get a copy so reads can
// never observe a cart mid-mutation.
func (s *CartStateStore) Snapshot(occurrenceID uuid.UUID) *WeekCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(occurrenceID).Clone()
}

// Hydrate applies a server cart record to the occurrence's cart. A nil
// record just marks the cart hydrated. Server products are adopted only
// when every local slot is empty: in-progress local edits win for the
// life of the session. The server's cart id, skip flag and statuses are
// adopted either way, since the customer cannot edit those locally. A
// record whose product count differs from the plan capacity fails with
// ErrPlanMismatch and is never padded or truncated.
func (s *CartStateStore) Hydrate(occurrenceID uuid.UUID, record *CartRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLocked(occurrenceID)
	cart.Hydrated = true
	if record == nil {
		return nil
	}

	if record.OrderCartID != nil {
		id := *record.OrderCartID
		cart.OrderCartID = &id
	}
	cart.OrderCartStatus = record.Status
	cart.ValidStatus = record.ValidStatus
	cart.IsSkipped = record.IsSkipped

	if cart.FilledCount() > 0 {
		s.logger.Debug("local cart edits present, keeping them over server cart",
			"occurrence_id", occurrenceID.String())
		return nil
	}

	if len(record.Products) == 0 {
		return nil
	}
	if len(record.Products) != s.capacity {
		s.logger.Error("server cart size differs from plan capacity",
			"occurrence_id", occurrenceID.String(),
			"server", len(record.Products), "capacity", s.capacity)
		return ErrPlanMismatch
	}

	copy(cart.Products, record.Products)
	return nil
}

// AddProduct fills the first empty slot of the occurrence's cart and
// returns its index. Rejections never mutate state.
func (s *CartStateStore) AddProduct(occurrence *Occurrence, product CartProduct) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLocked(occurrence.ID)
	if !IsModifiable(cart, occurrence) {
		return 0, ErrCartLocked
	}
	if !cart.Hydrated {
		return 0, ErrNotHydrated
	}
	if product.IsSingleSelect &&
		cart.HasOccurrenceProduct(product.OccurrenceProductID) &&
		!AllowsReselection(cart.OrderCartStatus) {
		return 0, ErrDuplicateSelection
	}

	slot := cart.FirstEmptySlot()
	if slot < 0 {
		return 0, ErrCartFull
	}

	cart.Products[slot] = product
	return slot, nil
}

// RemoveProduct clears the slot back to the empty placeholder. Removing
// an already-empty slot is a no-op, not an error.
func (s *CartStateStore) RemoveProduct(occurrence *Occurrence, slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLocked(occurrence.ID)
	if !IsModifiable(cart, occurrence) {
		return ErrCartLocked
	}
	if !cart.Hydrated {
		return ErrNotHydrated
	}
	if slot < 0 || slot >= len(cart.Products) {
		return ErrSlotIndex
	}

	cart.Products[slot] = CartProduct{}
	return nil
}

// SetSkipped toggles the skip flag. Skip and selection are independent:
// a pre-filled cart survives skipping the week.
func (s *CartStateStore) SetSkipped(occurrence *Occurrence, skipped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLocked(occurrence.ID)
	if !IsModifiable(cart, occurrence) {
		return ErrCartLocked
	}

	cart.IsSkipped = skipped
	return nil
}

// ApplySubmission merges the order platform's authoritative response
// back into the occurrence's cart after a successful submission: the
// cart id plus the server-corrected skip and validity flags.
func (s *CartStateStore) ApplySubmission(occurrenceID, orderCartID uuid.UUID, isSkipped bool, status, validStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLocked(occurrenceID)
	id := orderCartID
	cart.OrderCartID = &id
	cart.IsSkipped = isSkipped
	cart.OrderCartStatus = status
	cart.ValidStatus = validStatus
}

// ApplyStatus records a status change pushed by the order platform. It
// returns false when the occurrence has no cart in this store.
func (s *CartStateStore) ApplyStatus(occurrenceID uuid.UUID, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[occurrenceID]
	if !ok {
		return false
	}
	cart.OrderCartStatus = status
	return true
}

func (s *CartStateStore) ensureLocked(occurrenceID uuid.UUID) *WeekCart {
	cart, ok := s.carts[occurrenceID]
	if !ok {
		cart = NewWeekCart(occurrenceID, s.capacity)
		s.carts[occurrenceID] = cart
	}
	return cart
}
