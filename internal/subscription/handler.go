package subscription

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mealkitclub/storefront/internal/event"
	"github.com/mealkitclub/storefront/internal/orders"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger    apt.Logger
	config    *apt.Config
	tlm       *telemetry.HTTP
	repos     Repos
	sessions  *SessionRegistry
	ordersAPI orders.Client
	publisher events.Publisher
}

type HandlerDeps struct {
	Repos     Repos
	Sessions  *SessionRegistry
	OrdersAPI orders.Client
	Publisher events.Publisher
}

type Repos struct {
	CustomerRepo          CustomerRepo
	SubscriptionRepo      SubscriptionRepo
	PlanRepo              PlanRepo
	OccurrenceRepo        OccurrenceRepo
	OccurrenceProductRepo OccurrenceProductRepo
	CartRecordRepo        CartRecordRepo
	DeliveryZoneRepo      DeliveryZoneRepo
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	sessions := hd.Sessions
	if sessions == nil {
		sessions = NewSessionRegistry(45 * time.Minute)
	}

	return &Handler{
		config:    config,
		logger:    logger,
		tlm:       telemetry.NewHTTP(),
		repos:     hd.Repos,
		sessions:  sessions,
		ordersAPI: hd.OrdersAPI,
		publisher: hd.Publisher,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/menu/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Post("/advance", h.AdvanceWeek)
			r.Get("/products", h.ListWeekProducts)
			r.Post("/products", h.AddProduct)
			r.Delete("/products/{index}", h.RemoveProduct)
			r.Patch("/skip", h.SetSkip)
			r.Post("/submit", h.SubmitWeek)
		})
	})

	r.Route("/occurrences", func(r chi.Router) {
		r.Get("/", h.ListOccurrences)
	})
}

// Session handlers

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenSession")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	req, ok := h.decodeOpenSessionPayload(w, r, log)
	if !ok {
		return
	}

	if req.CustomerID == uuid.Nil {
		log.Debug("missing customer id in open session request")
		apt.RespondError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	customer, err := h.repos.CustomerRepo.Get(ctx, req.CustomerID)
	if err != nil || customer == nil {
		log.Error("cannot load customer", "error", err, "customer_id", req.CustomerID.String())
		apt.RespondError(w, http.StatusNotFound, "Customer not found")
		return
	}

	sub, err := h.repos.SubscriptionRepo.Get(ctx, customer.SubscriptionID)
	if err != nil || sub == nil {
		log.Error("cannot load subscription", "error", err, "subscription_id", customer.SubscriptionID.String())
		apt.RespondError(w, http.StatusNotFound, "Subscription not found")
		return
	}

	plan, err := h.repos.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil || plan == nil {
		log.Error("cannot load plan", "error", err, "plan_id", sub.PlanID.String())
		apt.RespondError(w, http.StatusNotFound, "Plan not found")
		return
	}

	zone, err := h.repos.DeliveryZoneRepo.Find(ctx, sub.ID, customer.DefaultAddress.Zipcode)
	if err != nil || zone == nil {
		log.Error("cannot load delivery zone", "error", err, "zipcode", customer.DefaultAddress.Zipcode)
		apt.RespondError(w, http.StatusNotFound, "No delivery available for this address")
		return
	}

	from := req.DateFilter
	if from.IsZero() {
		from = time.Now()
	}

	occurrences, err := h.repos.OccurrenceRepo.ListBySubscription(ctx, sub.ID, from)
	if err != nil {
		log.Error("cannot list occurrences", "error", err, "subscription_id", sub.ID.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load delivery weeks")
		return
	}

	session, err := NewMenuSession(customer, plan, zone, occurrences, h.sessions.TTL(), h.logger)
	if err != nil {
		if errors.Is(err, ErrNoOccurrences) {
			log.Info("no deliverable occurrences", "subscription_id", sub.ID.String())
			apt.RespondError(w, http.StatusNotFound, "No deliverable weeks available, select a delivery day first")
			return
		}
		log.Error("cannot create menu session", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not start menu session")
		return
	}

	if err := h.hydrateActiveWeek(r, session); err != nil {
		h.respondDomainError(w, log, err)
		return
	}

	if err := h.sessions.Save(session); err != nil {
		log.Error("cannot save menu session", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not start menu session")
		return
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, session.View())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetSession")
	defer finish()

	log := h.log(r)

	session, ok := h.loadSession(w, r, log)
	if !ok {
		return
	}

	apt.RespondSuccess(w, session.View())
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CloseSession")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	h.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdvanceWeek(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AdvanceWeek")
	defer finish()

	log := h.log(r)

	session, ok := h.loadSession(w, r, log)
	if !ok {
		return
	}

	req, ok := h.decodeAdvancePayload(w, r, log)
	if !ok {
		return
	}

	if _, err := session.Advance(req.Direction); err != nil {
		log.Debug("invalid advance direction", "direction", req.Direction)
		apt.RespondError(w, http.StatusBadRequest, "direction must be next or previous")
		return
	}

	if err := h.hydrateActiveWeek(r, session); err != nil {
		h.respondDomainError(w, log, err)
		return
	}

	apt.RespondSuccess(w, session.View())
}

// Cart handlers

func (h *Handler) ListWeekProducts(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListWeekProducts")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	session, ok := h.loadSession(w, r, log)
	if !ok {
		return
	}

	active := session.ActiveOccurrence()
	products, err := h.repos.OccurrenceProductRepo.ListByOccurrence(ctx, active.ID)
	if err != nil {
		log.Error("cannot list occurrence products", "error", err, "occurrence_id", active.ID.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load this week's menu")
		return
	}

	apt.RespondCollection(w, products, "occurrence-product")
}

func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddProduct")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	session, ok := h.loadSession(w, r, log)
	if !ok {
		return
	}

	req, ok := h.decodeAddProductPayload(w, r, log)
	if !ok {
		return
	}

	if req.OccurrenceProductID == uuid.Nil {
		log.Debug("missing occurrence product id in add request")
		apt.RespondError(w, http.StatusBadRequest, "occurrence_product_id is required")
		return
	}

	catalog, err := h.repos.OccurrenceProductRepo.Get(ctx, req.OccurrenceProductID)
	if err != nil || catalog == nil {
		log.Error("cannot load occurrence product", "error", err, "occurrence_product_id", req.OccurrenceProductID.String())
		apt.RespondError(w, http.StatusNotFound, "Product not found")
		return
	}

	active := session.ActiveOccurrence()
	if catalog.OccurrenceID != active.ID {
		log.Debug("product belongs to a different week",
			"occurrence_product_id", catalog.ID.String(),
			"product_occurrence", catalog.OccurrenceID.String(),
			"active_occurrence", active.ID.String())
		apt.RespondError(w, http.StatusConflict, "Product is not on this week's menu")
		return
	}

	item := catalog.CartItem
	item.OccurrenceProductID = catalog.ID

	slot, err := session.AddProduct(item)
	if err != nil {
		h.respondDomainError(w, log, err)
		return
	}

	log.Info("added product to week cart",
		"occurrence_id", active.ID.String(),
		"product", item.Name, "slot", slot)
	apt.RespondSuccess(w, session.View())
}

func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveProduct")
	defer finish()

	log := h.log(r)

	session, ok := h.loadSession(w, r, log)
	if !ok {
		return
	}

	slot, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		log.Debug("invalid slot index", "index", chi.URLParam(r, "index"))
		apt.RespondError(w, http.StatusBadRequest, "Invalid slot index")
		return
	}

	if err := session.RemoveProduct(slot); err != nil {
		h.respondDomainError(w, log, err)
		return
	}

	apt.RespondSuccess(w, session.View())
}

func (h *Handler) SetSkip(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetSkip")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	session, ok := h.loadSession(w, r, log)
	if !ok {
		return
	}

	req, ok := h.decodeSkipPayload(w, r, log)
	if !ok {
		return
	}

	if err := session.SetSkipped(req.IsSkipped); err != nil {
		h.respondDomainError(w, log, err)
		return
	}

	active := session.ActiveOccurrence()
	if err := h.repos.CartRecordRepo.SetSkipped(ctx, session.Customer.KeycloakID, active.ID, req.IsSkipped); err != nil {
		log.Error("cannot persist skip flag", "error", err, "occurrence_id", active.ID.String())
	}

	h.publishSkipChanged(r, session, active, req.IsSkipped)

	apt.RespondSuccess(w, session.View())
}

func (h *Handler) SubmitWeek(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SubmitWeek")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	session, ok := h.loadSession(w, r, log)
	if !ok {
		return
	}

	if h.ordersAPI == nil {
		log.Error("order platform client not configured")
		apt.RespondError(w, http.StatusServiceUnavailable, "Submissions are unavailable right now")
		return
	}

	occurrence, cart, err := session.BeginSubmit()
	if err != nil {
		h.respondDomainError(w, log, err)
		return
	}

	pricing := ComputePricing(cart, session.Plan, session.Zone.DeliveryPrice)

	submission, err := BuildSubmission(session.Customer, session.Plan, session.Zone, occurrence, cart, pricing)
	if err != nil {
		session.FinishSubmit(occurrence.ID, nil, false, "", "")
		log.Error("cannot assemble submission", "error", err, "occurrence_id", occurrence.ID.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not assemble the order")
		return
	}

	result, err := h.ordersAPI.UpsertCart(ctx, submission)
	if err != nil {
		session.FinishSubmit(occurrence.ID, nil, false, "", "")
		log.Error("cart submission rejected", "error", err, "occurrence_id", occurrence.ID.String())
		apt.RespondError(w, http.StatusBadGateway, "The order platform rejected the submission")
		return
	}

	orderCartID, err := uuid.Parse(result.ID)
	if err != nil {
		session.FinishSubmit(occurrence.ID, nil, false, "", "")
		log.Error("order platform returned invalid cart id", "id", result.ID)
		apt.RespondError(w, http.StatusBadGateway, "The order platform returned an invalid response")
		return
	}

	session.FinishSubmit(occurrence.ID, &orderCartID,
		result.OccurrenceCustomer.IsSkipped, CartStatusPending, result.OccurrenceCustomer.ValidStatus)

	h.persistCartRecord(r, session, occurrence, orderCartID, result.OccurrenceCustomer.IsSkipped, result.OccurrenceCustomer.ValidStatus)
	h.publishCartSubmitted(r, session, occurrence, orderCartID, pricing)
	h.skipPreviousWeeks(r, session)

	apt.RespondSuccess(w, session.View())
}

// Occurrence handlers

func (h *Handler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOccurrences")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	subscriptionIDStr := r.URL.Query().Get("subscription_id")
	subscriptionID, err := uuid.Parse(subscriptionIDStr)
	if err != nil {
		log.Debug("invalid subscription_id parameter", "subscription_id", subscriptionIDStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid subscription_id parameter")
		return
	}

	occurrences, err := h.repos.OccurrenceRepo.ListBySubscription(ctx, subscriptionID, time.Now())
	if err != nil {
		log.Error("error retrieving occurrences", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve occurrences")
		return
	}

	apt.RespondCollection(w, FilterDeliverable(occurrences), "occurrence")
}

// Helpers

// hydrateActiveWeek fetches the server cart for the session's active
// occurrence and applies it. The fetch happens outside the session
// lock, so the active week may change while it is in flight; the
// session discards the response in that case. A failed fetch leaves
// the week un-hydrated: edits stay blocked until a retry succeeds,
// since accepting them against unknown server state would let local
// edits permanently shadow the persisted cart.
func (h *Handler) hydrateActiveWeek(r *http.Request, session *MenuSession) error {
	ctx := r.Context()
	target := session.ActiveOccurrence()

	record, err := h.repos.CartRecordRepo.Find(ctx, session.Customer.KeycloakID, target.ID)
	if err != nil {
		h.log(r).Error("cannot fetch server cart", "error", err, "occurrence_id", target.ID.String())
		return ErrServerCartUnavailable
	}

	applied, err := session.ApplyHydration(target.ID, record)
	if err != nil {
		return err
	}
	if !applied {
		h.log(r).Debug("hydration arrived for a stale week", "occurrence_id", target.ID.String())
	}
	return nil
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request, log apt.Logger) (*MenuSession, bool) {
	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return nil, false
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		log.Debug("menu session not found", "id", id.String())
		apt.RespondError(w, http.StatusNotFound, "Menu session not found")
		return nil, false
	}

	return session, true
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondDomainError(w http.ResponseWriter, log apt.Logger, err error) {
	switch {
	case errors.Is(err, ErrCartLocked):
		apt.RespondError(w, http.StatusConflict, "This week can no longer be modified")
	case errors.Is(err, ErrCartFull):
		apt.RespondError(w, http.StatusConflict, "Your cart is already full")
	case errors.Is(err, ErrDuplicateSelection):
		apt.RespondError(w, http.StatusConflict, "This product is already in your cart")
	case errors.Is(err, ErrCartIncomplete):
		apt.RespondError(w, http.StatusConflict, "Fill every slot before saving")
	case errors.Is(err, ErrSubmitInFlight):
		apt.RespondError(w, http.StatusConflict, "A submission is already in progress")
	case errors.Is(err, ErrPlanMismatch):
		apt.RespondError(w, http.StatusConflict, "Your plan has changed, start a new session")
	case errors.Is(err, ErrNotHydrated):
		apt.RespondError(w, http.StatusConflict, "This week is still loading, try again")
	case errors.Is(err, ErrServerCartUnavailable):
		apt.RespondError(w, http.StatusBadGateway, "Could not load your saved selections, try again")
	case errors.Is(err, ErrSlotIndex):
		apt.RespondError(w, http.StatusBadRequest, "Invalid slot index")
	case errors.Is(err, ErrSessionNotFound):
		apt.RespondError(w, http.StatusNotFound, "Menu session not found")
	default:
		log.Error("unexpected cart error", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// Payload decoding

type OpenSessionRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
	DateFilter time.Time `json:"date_filter,omitempty"`
}

type AdvanceRequest struct {
	Direction string `json:"direction"`
}

type AddProductRequest struct {
	OccurrenceProductID uuid.UUID `json:"occurrence_product_id"`
}

type SkipRequest struct {
	IsSkipped bool `json:"is_skipped"`
}

func (h *Handler) decodeOpenSessionPayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (OpenSessionRequest, bool) {
	var req OpenSessionRequest
	if !h.decodeJSON(w, r, log, &req) {
		return OpenSessionRequest{}, false
	}
	return req, true
}

func (h *Handler) decodeAdvancePayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (AdvanceRequest, bool) {
	var req AdvanceRequest
	if !h.decodeJSON(w, r, log, &req) {
		return AdvanceRequest{}, false
	}
	return req, true
}

func (h *Handler) decodeAddProductPayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (AddProductRequest, bool) {
	var req AddProductRequest
	if !h.decodeJSON(w, r, log, &req) {
		return AddProductRequest{}, false
	}
	return req, true
}

func (h *Handler) decodeSkipPayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (SkipRequest, bool) {
	var req SkipRequest
	if !h.decodeJSON(w, r, log, &req) {
		return SkipRequest{}, false
	}
	return req, true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, log apt.Logger, target interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, target); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}

// Publishing and persistence

func (h *Handler) persistCartRecord(r *http.Request, session *MenuSession, occurrence *Occurrence, orderCartID uuid.UUID, isSkipped bool, validStatus string) {
	ctx := r.Context()
	snapshot := session.View()

	record := &CartRecord{
		KeycloakID:   session.Customer.KeycloakID,
		OccurrenceID: occurrence.ID,
		IsSkipped:    isSkipped,
		OrderCartID:  &orderCartID,
		Status:       CartStatusPending,
		ValidStatus:  validStatus,
		Products:     snapshot.Cart.Products,
	}
	record.BeforeCreate()

	if err := h.repos.CartRecordRepo.Upsert(ctx, record); err != nil {
		// Best effort: the platform already owns the authoritative copy.
		h.log(r).Error("cannot persist cart record", "error", err, "occurrence_id", occurrence.ID.String())
	}
}

func (h *Handler) publishCartSubmitted(r *http.Request, session *MenuSession, occurrence *Occurrence, orderCartID uuid.UUID, pricing PriceBreakdown) {
	if h.publisher == nil {
		return
	}

	view := session.View()
	evt := event.CartSubmittedEvent{
		EventType:    event.EventCartSubmitted,
		OccurredAt:   time.Now().UTC(),
		OrderCartID:  orderCartID.String(),
		OccurrenceID: occurrence.ID.String(),
		KeycloakID:   session.Customer.KeycloakID,
		CustomerID:   session.Customer.ID.String(),
		IsSkipped:    view.Cart.IsSkipped,
		ItemCount:    view.FilledCount,
		GrandTotal:   pricing.GrandTotal,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal cart submitted event", "error", err)
		return
	}
	if err := h.publisher.Publish(r.Context(), event.StorefrontCartsTopic, payload); err != nil {
		h.logger.Error("cannot publish cart submitted event", "error", err)
	}
}

func (h *Handler) publishSkipChanged(r *http.Request, session *MenuSession, occurrence *Occurrence, isSkipped bool) {
	if h.publisher == nil {
		return
	}

	evt := event.WeekSkipChangedEvent{
		EventType:    event.EventWeekSkipChanged,
		OccurredAt:   time.Now().UTC(),
		OccurrenceID: occurrence.ID.String(),
		KeycloakID:   session.Customer.KeycloakID,
		IsSkipped:    isSkipped,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal skip changed event", "error", err)
		return
	}
	if err := h.publisher.Publish(r.Context(), event.StorefrontCartsTopic, payload); err != nil {
		h.logger.Error("cannot publish skip changed event", "error", err)
	}
}

// skipPreviousWeeks marks the weeks listed in the "previous" query
// parameter as skipped after a first successful save, mirroring the
// onboarding flow where earlier occurrences were never selectable.
func (h *Handler) skipPreviousWeeks(r *http.Request, session *MenuSession) {
	previous := r.URL.Query().Get("previous")
	if previous == "" {
		return
	}

	var rows []orders.OccurrenceCustomer
	for _, raw := range splitCommaList(previous) {
		if _, err := uuid.Parse(raw); err != nil {
			h.log(r).Debug("skipping malformed previous occurrence id", "id", raw)
			continue
		}
		rows = append(rows, orders.OccurrenceCustomer{
			IsSkipped:    true,
			KeycloakID:   session.Customer.KeycloakID,
			OccurrenceID: raw,
		})
	}

	if len(rows) == 0 {
		return
	}

	if err := h.ordersAPI.SkipOccurrences(r.Context(), rows); err != nil {
		h.log(r).Error("cannot skip previous weeks", "error", err)
	}
}

func splitCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}
