package subscription

import (
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// MenuSession is the per-customer aggregate for one menu-selection
// visit: the customer's identity, their plan, the deliverable
// occurrence list with the active week, and the cart state store. All
// mutations go through the session mutex, which serializes cart
// mutations per occurrence as required in a concurrent server.
type MenuSession struct {
	mu sync.Mutex

	ID       uuid.UUID
	Customer *Customer
	Plan     *Plan
	Zone     *DeliveryZone

	selector *OccurrenceSelector
	store    *CartStateStore

	submitInFlight  bool
	staleHydrations int

	CreatedAt time.Time
	ExpiresAt time.Time

	logger apt.Logger
}

// NewMenuSession builds a session over an already-loaded occurrence
// list. The caller hydrates the first active week before serving it.
func NewMenuSession(customer *Customer, plan *Plan, zone *DeliveryZone, occurrences []*Occurrence, ttl time.Duration, logger apt.Logger) (*MenuSession, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	selector, err := NewOccurrenceSelector(occurrences)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &MenuSession{
		ID:        apt.GenerateNewID(),
		Customer:  customer,
		Plan:      plan,
		Zone:      zone,
		selector:  selector,
		store:     NewCartStateStore(plan.RecipeCount, logger),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		logger:    logger,
	}, nil
}

// ActiveOccurrence returns the currently designated week.
func (s *MenuSession) ActiveOccurrence() *Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Active()
}

// Occurrences returns the deliverable weeks for the session.
func (s *MenuSession) Occurrences() []*Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Occurrences()
}

// Advance rotates to the next or previous week and returns it. The
// caller must hydrate the returned occurrence's cart; until then the
// store rejects add and remove actions against it.
func (s *MenuSession) Advance(direction string) (*Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Advance(direction)
}

// ApplyHydration applies a fetched cart record for the occurrence it
// was requested for. A response arriving after the active week changed
// is discarded: counted and logged, never surfaced to the customer.
// Returns true when the record was applied.
func (s *MenuSession) ApplyHydration(occurrenceID uuid.UUID, record *CartRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selector.Active().ID != occurrenceID {
		s.staleHydrations++
		s.logger.Debug("discarding stale hydration",
			"occurrence_id", occurrenceID.String(),
			"active_id", s.selector.Active().ID.String())
		return false, nil
	}

	if err := s.store.Hydrate(occurrenceID, record); err != nil {
		return false, err
	}
	return true, nil
}

// StaleHydrations reports how many hydration responses were discarded.
func (s *MenuSession) StaleHydrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staleHydrations
}

// AddProduct adds a product to the active week's cart and returns the
// slot it landed in.
func (s *MenuSession) AddProduct(product CartProduct) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AddProduct(s.selector.Active(), product)
}

// RemoveProduct clears a slot of the active week's cart.
func (s *MenuSession) RemoveProduct(slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RemoveProduct(s.selector.Active(), slot)
}

// SetSkipped toggles the active week's skip flag.
func (s *MenuSession) SetSkipped(skipped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SetSkipped(s.selector.Active(), skipped)
}

// View assembles the read-only projection of the active week:
// slots, derived pricing, completeness and modifiability.
func (s *MenuSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.selector.Active()
	cart := s.store.Snapshot(active.ID)

	deliveryPrice := 0.0
	if s.Zone != nil {
		deliveryPrice = s.Zone.DeliveryPrice
	}

	return SessionView{
		SessionID:       s.ID,
		Occurrence:      active,
		OccurrenceCount: s.selector.Len(),
		Cart:            cart,
		FilledCount:     cart.FilledCount(),
		Capacity:        s.Plan.RecipeCount,
		IsComplete:      IsComplete(cart),
		IsModifiable:    IsModifiable(cart, active),
		CanSubmit:       CanSubmit(cart, active),
		Pricing:         ComputePricing(cart, s.Plan, deliveryPrice),
	}
}

// BeginSubmit flips the in-flight guard and returns a snapshot of the
// active week to build the submission from. A second submit while one
// is pending fails with ErrSubmitInFlight; an incomplete or locked week
// is rejected before the guard is taken.
func (s *MenuSession) BeginSubmit() (*Occurrence, *WeekCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitInFlight {
		return nil, nil, ErrSubmitInFlight
	}

	active := s.selector.Active()
	cart := s.store.Snapshot(active.ID)
	if !IsModifiable(cart, active) {
		return nil, nil, ErrCartLocked
	}
	if !CanSubmit(cart, active) {
		return nil, nil, ErrCartIncomplete
	}

	s.submitInFlight = true
	return active, cart, nil
}

// FinishSubmit releases the in-flight guard. On success the platform's
// response is merged into the store; on failure the store is left
// exactly as it was before BeginSubmit.
func (s *MenuSession) FinishSubmit(occurrenceID uuid.UUID, orderCartID *uuid.UUID, isSkipped bool, status, validStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitInFlight = false
	if orderCartID == nil {
		return
	}
	s.store.ApplySubmission(occurrenceID, *orderCartID, isSkipped, status, validStatus)
}

// ApplyStatus records an order-platform status change for one of the
// session's weeks. Returns false when the week is not in this session.
func (s *MenuSession) ApplyStatus(occurrenceID uuid.UUID, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ApplyStatus(occurrenceID, status)
}

// Expired reports whether the session passed its TTL.
func (s *MenuSession) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.ExpiresAt)
}

// SessionView is the projection handlers serve on every read.
type SessionView struct {
	SessionID       uuid.UUID      `json:"session_id"`
	Occurrence      *Occurrence    `json:"occurrence"`
	OccurrenceCount int            `json:"occurrence_count"`
	Cart            *WeekCart      `json:"cart"`
	FilledCount     int            `json:"filled_count"`
	Capacity        int            `json:"capacity"`
	IsComplete      bool           `json:"is_complete"`
	IsModifiable    bool           `json:"is_modifiable"`
	CanSubmit       bool           `json:"can_submit"`
	Pricing         PriceBreakdown `json:"pricing"`
}

// SessionRegistry owns the live menu sessions, with TTL cleanup.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*MenuSession
	ttl      time.Duration
}

func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	registry := &SessionRegistry{
		sessions: make(map[uuid.UUID]*MenuSession),
		ttl:      ttl,
	}

	go registry.cleanup()

	return registry
}

// TTL returns the registry's session lifetime.
func (r *SessionRegistry) TTL() time.Duration {
	return r.ttl
}

func (r *SessionRegistry) Save(session *MenuSession) error {
	if session == nil {
		return ErrSessionNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *SessionRegistry) Get(id uuid.UUID) (*MenuSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (r *SessionRegistry) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// ApplyStatus fans an order-platform status change out to every live
// session that holds the occurrence, returning how many were updated.
func (r *SessionRegistry) ApplyStatus(occurrenceID uuid.UUID, status string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	applied := 0
	for _, session := range r.sessions {
		if session.ApplyStatus(occurrenceID, status) {
			applied++
		}
	}
	return applied
}

func (r *SessionRegistry) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		r.mu.Lock()
		for id, session := range r.sessions {
			if session.Expired(now) {
				delete(r.sessions, id)
			}
		}
		r.mu.Unlock()
	}
}
