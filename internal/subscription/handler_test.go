package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mealkitclub/storefront/internal/orders"
)

type handlerEnv struct {
	handler     *Handler
	router      *chi.Mux
	customers   *MockCustomerRepo
	subs        *MockSubscriptionRepo
	plans       *MockPlanRepo
	occurrences *MockOccurrenceRepo
	catalog     *MockOccurrenceProductRepo
	records     *MockCartRecordRepo
	zones       *MockDeliveryZoneRepo
	ordersAPI   *MockOrdersClient
	publisher   *MockPublisher

	customer *Customer
	plan     *Plan
	weeks    []*Occurrence
	items    []*OccurrenceProduct
}

// newHandlerEnv seeds a customer with an active plan, three deliverable
// weeks and a catalog of five recipes plus one add-on per week.
func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	env := &handlerEnv{
		customers:   NewMockCustomerRepo(),
		subs:        NewMockSubscriptionRepo(),
		plans:       NewMockPlanRepo(),
		occurrences: NewMockOccurrenceRepo(),
		catalog:     NewMockOccurrenceProductRepo(),
		records:     NewMockCartRecordRepo(),
		zones:       NewMockDeliveryZoneRepo(),
		ordersAPI:   NewMockOrdersClient(),
		publisher:   NewMockPublisher(),
	}

	env.customer = testCustomer()
	env.plan = testPlan()
	env.customers.AddCustomer(env.customer)
	env.plans.AddPlan(env.plan)
	env.subs.AddSubscription(&Subscription{
		ID:         env.customer.SubscriptionID,
		CustomerID: env.customer.ID,
		PlanID:     env.plan.ID,
		Zipcode:    env.customer.DefaultAddress.Zipcode,
		Active:     true,
	})
	env.zones.AddZone(testZone())

	for week := 0; week < 3; week++ {
		occ := deliverableOccurrence(week)
		occ.SubscriptionID = env.customer.SubscriptionID
		env.occurrences.AddOccurrence(occ)
		env.weeks = append(env.weeks, occ)

		for i := 0; i < 5; i++ {
			item := &OccurrenceProduct{
				ID:             uuid.New(),
				OccurrenceID:   occ.ID,
				SubscriptionID: occ.SubscriptionID,
				Category:       "recipe",
				CartItem: CartProduct{
					ProductID: uuid.New(),
					Name:      fmt.Sprintf("Recipe %d", i),
				},
			}
			env.catalog.AddProduct(item)
			env.items = append(env.items, item)
		}
	}

	deps := HandlerDeps{
		Repos: Repos{
			CustomerRepo:          env.customers,
			SubscriptionRepo:      env.subs,
			PlanRepo:              env.plans,
			OccurrenceRepo:        env.occurrences,
			OccurrenceProductRepo: env.catalog,
			CartRecordRepo:        env.records,
			DeliveryZoneRepo:      env.zones,
		},
		OrdersAPI: env.ordersAPI,
		Publisher: env.publisher,
	}

	env.handler = NewHandler(deps, apt.NewConfig(), apt.NewNoopLogger())
	env.router = chi.NewRouter()
	env.handler.RegisterRoutes(env.router)

	return env
}

// weekItems returns the catalog entries for one seeded week.
func (env *handlerEnv) weekItems(week int) []*OccurrenceProduct {
	return env.items[week*5 : week*5+5]
}

func (env *handlerEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("cannot marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("cannot decode response %q: %v", w.Body.String(), err)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response does not contain data object: %s", w.Body.String())
	}
	return data
}

func (env *handlerEnv) openSession(t *testing.T) string {
	t.Helper()

	w := env.do(t, http.MethodPost, "/menu/sessions", OpenSessionRequest{CustomerID: env.customer.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("OpenSession status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	data := decodeData(t, w)
	id, ok := data["session_id"].(string)
	if !ok || id == "" {
		t.Fatalf("response has no session_id: %s", w.Body.String())
	}
	return id
}

func (env *handlerEnv) addItem(t *testing.T, sessionID string, item *OccurrenceProduct) *httptest.ResponseRecorder {
	t.Helper()
	return env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/products",
		AddProductRequest{OccurrenceProductID: item.ID})
}

func (env *handlerEnv) fillWeek(t *testing.T, sessionID string, week int) {
	t.Helper()
	for i := 0; i < env.plan.RecipeCount; i++ {
		w := env.addItem(t, sessionID, env.weekItems(week)[i])
		if w.Code != http.StatusOK {
			t.Fatalf("AddProduct status = %d: %s", w.Code, w.Body.String())
		}
	}
}

func TestHandlerOpenSession(t *testing.T) {
	t.Run("createsSessionForActiveWeek", func(t *testing.T) {
		env := newHandlerEnv(t)

		w := env.do(t, http.MethodPost, "/menu/sessions", OpenSessionRequest{CustomerID: env.customer.ID})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
		}

		data := decodeData(t, w)
		if int(data["capacity"].(float64)) != env.plan.RecipeCount {
			t.Errorf("capacity = %v, want %d", data["capacity"], env.plan.RecipeCount)
		}
		if int(data["occurrence_count"].(float64)) != 3 {
			t.Errorf("occurrence_count = %v, want 3", data["occurrence_count"])
		}
		if data["is_modifiable"] != true {
			t.Error("fresh week reported locked")
		}

		occ := data["occurrence"].(map[string]interface{})
		if occ["id"].(string) != env.weeks[0].ID.String() {
			t.Errorf("active occurrence = %v, want %s", occ["id"], env.weeks[0].ID)
		}
	})

	t.Run("missingCustomerID", func(t *testing.T) {
		env := newHandlerEnv(t)
		w := env.do(t, http.MethodPost, "/menu/sessions", OpenSessionRequest{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknownCustomer", func(t *testing.T) {
		env := newHandlerEnv(t)
		w := env.do(t, http.MethodPost, "/menu/sessions", OpenSessionRequest{CustomerID: uuid.New()})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("noDeliverableWeeks", func(t *testing.T) {
		env := newHandlerEnv(t)
		for _, occ := range env.weeks {
			occ.IsValid = false
		}

		w := env.do(t, http.MethodPost, "/menu/sessions", OpenSessionRequest{CustomerID: env.customer.ID})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("hydratesServerCart", func(t *testing.T) {
		env := newHandlerEnv(t)
		products := make([]CartProduct, env.plan.RecipeCount)
		for i := range products {
			products[i] = env.weekItems(0)[i].CartItem
			products[i].OccurrenceProductID = env.weekItems(0)[i].ID
		}
		env.records.AddRecord(&CartRecord{
			ID:           uuid.New(),
			KeycloakID:   env.customer.KeycloakID,
			OccurrenceID: env.weeks[0].ID,
			IsAuto:       true,
			Products:     products,
		})

		sessionID := env.openSession(t)

		w := env.do(t, http.MethodGet, "/menu/sessions/"+sessionID, nil)
		data := decodeData(t, w)
		if int(data["filled_count"].(float64)) != env.plan.RecipeCount {
			t.Errorf("filled_count = %v, want %d", data["filled_count"], env.plan.RecipeCount)
		}
		if data["is_complete"] != true {
			t.Error("pre-filled cart not reported complete")
		}
	})

	t.Run("invalidJSON", func(t *testing.T) {
		env := newHandlerEnv(t)
		req := httptest.NewRequest(http.MethodPost, "/menu/sessions", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandlerGetSession(t *testing.T) {
	env := newHandlerEnv(t)
	sessionID := env.openSession(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{name: "existingSession", path: "/menu/sessions/" + sessionID, expectedStatus: http.StatusOK},
		{name: "unknownSession", path: "/menu/sessions/" + uuid.New().String(), expectedStatus: http.StatusNotFound},
		{name: "malformedID", path: "/menu/sessions/not-a-uuid", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandlerCloseSession(t *testing.T) {
	env := newHandlerEnv(t)
	sessionID := env.openSession(t)

	w := env.do(t, http.MethodDelete, "/menu/sessions/"+sessionID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}

	w = env.do(t, http.MethodGet, "/menu/sessions/"+sessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("closed session still served, status = %d", w.Code)
	}
}

func TestHandlerAdvanceWeek(t *testing.T) {
	t.Run("rotatesAndHydratesTheNewWeek", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/advance", AdvanceRequest{Direction: DirectionNext})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		data := decodeData(t, w)
		occ := data["occurrence"].(map[string]interface{})
		if occ["id"].(string) != env.weeks[1].ID.String() {
			t.Errorf("active occurrence = %v, want %s", occ["id"], env.weeks[1].ID)
		}

		// The response week is already hydrated, so edits are allowed.
		resp := env.addItem(t, sessionID, env.weekItems(1)[0])
		if resp.Code != http.StatusOK {
			t.Errorf("AddProduct after advance status = %d: %s", resp.Code, resp.Body.String())
		}
	})

	t.Run("previousWrapsToLastWeek", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/advance", AdvanceRequest{Direction: DirectionPrevious})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		data := decodeData(t, w)
		occ := data["occurrence"].(map[string]interface{})
		if occ["id"].(string) != env.weeks[2].ID.String() {
			t.Errorf("active occurrence = %v, want %s", occ["id"], env.weeks[2].ID)
		}
	})

	t.Run("rejectsUnknownDirection", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/advance", AdvanceRequest{Direction: "sideways"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandlerServerCartFetchFailure(t *testing.T) {
	t.Run("openSessionFails", func(t *testing.T) {
		env := newHandlerEnv(t)
		env.records.FindFunc = func(ctx context.Context, keycloakID string, occurrenceID uuid.UUID) (*CartRecord, error) {
			return nil, errors.New("connection reset")
		}

		w := env.do(t, http.MethodPost, "/menu/sessions", OpenSessionRequest{CustomerID: env.customer.ID})
		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want %d: %s", w.Code, http.StatusBadGateway, w.Body.String())
		}
	})

	t.Run("editsStayBlockedUntilTheFetchSucceeds", func(t *testing.T) {
		env := newHandlerEnv(t)

		// A persisted cart exists for week 1; a transient fetch failure
		// must not let local edits shadow it.
		products := make([]CartProduct, env.plan.RecipeCount)
		for i := range products {
			products[i] = env.weekItems(1)[i].CartItem
			products[i].OccurrenceProductID = env.weekItems(1)[i].ID
		}
		env.records.AddRecord(&CartRecord{
			ID:           uuid.New(),
			KeycloakID:   env.customer.KeycloakID,
			OccurrenceID: env.weeks[1].ID,
			Products:     products,
		})

		sessionID := env.openSession(t)

		env.records.FindFunc = func(ctx context.Context, keycloakID string, occurrenceID uuid.UUID) (*CartRecord, error) {
			return nil, errors.New("connection reset")
		}

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/advance", AdvanceRequest{Direction: DirectionNext})
		if w.Code != http.StatusBadGateway {
			t.Fatalf("advance status = %d, want %d: %s", w.Code, http.StatusBadGateway, w.Body.String())
		}

		resp := env.addItem(t, sessionID, env.weekItems(1)[0])
		if resp.Code != http.StatusConflict {
			t.Errorf("AddProduct status = %d, want %d: %s", resp.Code, http.StatusConflict, resp.Body.String())
		}

		// The repo recovers; rotating away and back hydrates week 1 with
		// the persisted selections intact.
		env.records.FindFunc = nil

		w = env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/advance", AdvanceRequest{Direction: DirectionPrevious})
		if w.Code != http.StatusOK {
			t.Fatalf("advance back status = %d: %s", w.Code, w.Body.String())
		}
		w = env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/advance", AdvanceRequest{Direction: DirectionNext})
		if w.Code != http.StatusOK {
			t.Fatalf("advance forward status = %d: %s", w.Code, w.Body.String())
		}

		data := decodeData(t, w)
		occ := data["occurrence"].(map[string]interface{})
		if occ["id"].(string) != env.weeks[1].ID.String() {
			t.Fatalf("active occurrence = %v, want %s", occ["id"], env.weeks[1].ID)
		}
		if int(data["filled_count"].(float64)) != env.plan.RecipeCount {
			t.Errorf("filled_count = %v, want %d", data["filled_count"], env.plan.RecipeCount)
		}
	})
}

func TestHandlerListWeekProducts(t *testing.T) {
	env := newHandlerEnv(t)
	sessionID := env.openSession(t)

	w := env.do(t, http.MethodGet, "/menu/sessions/"+sessionID+"/products", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlerAddProduct(t *testing.T) {
	t.Run("fillsSlots", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.addItem(t, sessionID, env.weekItems(0)[0])
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		data := decodeData(t, w)
		if int(data["filled_count"].(float64)) != 1 {
			t.Errorf("filled_count = %v, want 1", data["filled_count"])
		}
	})

	t.Run("unknownProduct", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/products",
			AddProductRequest{OccurrenceProductID: uuid.New()})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("productFromAnotherWeek", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.addItem(t, sessionID, env.weekItems(1)[0])
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
		}
	})

	t.Run("fullCart", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)
		env.fillWeek(t, sessionID, 0)

		w := env.addItem(t, sessionID, env.weekItems(0)[4])
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
		}
	})
}

func TestHandlerRemoveProduct(t *testing.T) {
	t.Run("clearsTheSlot", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)
		env.fillWeek(t, sessionID, 0)

		w := env.do(t, http.MethodDelete, "/menu/sessions/"+sessionID+"/products/2", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		data := decodeData(t, w)
		if int(data["filled_count"].(float64)) != env.plan.RecipeCount-1 {
			t.Errorf("filled_count = %v, want %d", data["filled_count"], env.plan.RecipeCount-1)
		}
	})

	t.Run("nonNumericIndex", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.do(t, http.MethodDelete, "/menu/sessions/"+sessionID+"/products/two", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("outOfRangeIndex", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.do(t, http.MethodDelete, "/menu/sessions/"+sessionID+"/products/9", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandlerSetSkip(t *testing.T) {
	env := newHandlerEnv(t)
	sessionID := env.openSession(t)

	env.records.AddRecord(&CartRecord{
		ID:           uuid.New(),
		KeycloakID:   env.customer.KeycloakID,
		OccurrenceID: env.weeks[0].ID,
	})

	w := env.do(t, http.MethodPatch, "/menu/sessions/"+sessionID+"/skip", SkipRequest{IsSkipped: true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	data := decodeData(t, w)
	cart := data["cart"].(map[string]interface{})
	if cart["is_skipped"] != true {
		t.Error("skip flag not reflected in the view")
	}

	record, _ := env.records.Find(context.Background(), env.customer.KeycloakID, env.weeks[0].ID)
	if record == nil || !record.IsSkipped {
		t.Error("skip flag not persisted")
	}

	if len(env.publisher.PublishedEvents) != 1 {
		t.Fatalf("published events = %d, want 1", len(env.publisher.PublishedEvents))
	}
}

func TestHandlerSubmitWeek(t *testing.T) {
	t.Run("submitsACompleteWeek", func(t *testing.T) {
		env := newHandlerEnv(t)
		orderCartID := uuid.New()
		env.ordersAPI.UpsertCartFunc = func(ctx context.Context, submission orders.CartSubmission) (*orders.SubmissionResult, error) {
			result := &orders.SubmissionResult{ID: orderCartID.String()}
			result.OccurrenceCustomer.ValidStatus = ValidStatusValid
			return result, nil
		}

		sessionID := env.openSession(t)
		env.fillWeek(t, sessionID, 0)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/submit", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		data := decodeData(t, w)
		cart := data["cart"].(map[string]interface{})
		if cart["order_cart_id"].(string) != orderCartID.String() {
			t.Errorf("order_cart_id = %v, want %s", cart["order_cart_id"], orderCartID)
		}
		if cart["order_cart_status"].(string) != CartStatusPending {
			t.Errorf("order_cart_status = %v, want %s", cart["order_cart_status"], CartStatusPending)
		}
		if cart["valid_status"].(string) != ValidStatusValid {
			t.Errorf("valid_status = %v, want %s", cart["valid_status"], ValidStatusValid)
		}

		if len(env.ordersAPI.Submissions) != 1 {
			t.Fatalf("submissions = %d, want 1", len(env.ordersAPI.Submissions))
		}
		submission := env.ordersAPI.Submissions[0]
		if submission.OccurrenceID != env.weeks[0].ID.String() {
			t.Errorf("submission occurrence = %s, want %s", submission.OccurrenceID, env.weeks[0].ID)
		}

		record, _ := env.records.Find(context.Background(), env.customer.KeycloakID, env.weeks[0].ID)
		if record == nil {
			t.Fatal("cart record not persisted after submit")
		}
		if record.OrderCartID == nil || *record.OrderCartID != orderCartID {
			t.Error("persisted record missing order cart id")
		}
		if record.ValidStatus != ValidStatusValid {
			t.Errorf("persisted record ValidStatus = %q, want %q", record.ValidStatus, ValidStatusValid)
		}

		if len(env.publisher.PublishedEvents) != 1 {
			t.Fatalf("published events = %d, want 1", len(env.publisher.PublishedEvents))
		}
	})

	t.Run("platformInvalidationLocksTheWeek", func(t *testing.T) {
		env := newHandlerEnv(t)
		orderCartID := uuid.New()
		env.ordersAPI.UpsertCartFunc = func(ctx context.Context, submission orders.CartSubmission) (*orders.SubmissionResult, error) {
			result := &orders.SubmissionResult{ID: orderCartID.String()}
			result.OccurrenceCustomer.ValidStatus = ValidStatusInvalid
			return result, nil
		}

		sessionID := env.openSession(t)
		env.fillWeek(t, sessionID, 0)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/submit", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		data := decodeData(t, w)
		cart := data["cart"].(map[string]interface{})
		if cart["valid_status"].(string) != ValidStatusInvalid {
			t.Errorf("valid_status = %v, want %s", cart["valid_status"], ValidStatusInvalid)
		}
		if data["is_modifiable"] != false {
			t.Error("week still modifiable after the platform invalidated it")
		}

		w = env.do(t, http.MethodDelete, "/menu/sessions/"+sessionID+"/products/0", nil)
		if w.Code != http.StatusConflict {
			t.Errorf("RemoveProduct status = %d, want %d", w.Code, http.StatusConflict)
		}

		record, _ := env.records.Find(context.Background(), env.customer.KeycloakID, env.weeks[0].ID)
		if record == nil || record.ValidStatus != ValidStatusInvalid {
			t.Error("persisted record does not carry the platform's valid status")
		}
	})

	t.Run("incompleteCart", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/submit", nil)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
		}
	})

	t.Run("platformRejectionLeavesCartEditable", func(t *testing.T) {
		env := newHandlerEnv(t)
		env.ordersAPI.UpsertCartFunc = func(ctx context.Context, submission orders.CartSubmission) (*orders.SubmissionResult, error) {
			return nil, errors.New("upstream down")
		}

		sessionID := env.openSession(t)
		env.fillWeek(t, sessionID, 0)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/submit", nil)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusBadGateway)
		}

		// The failed submit left no platform state behind and the
		// week can be submitted again.
		view := env.do(t, http.MethodGet, "/menu/sessions/"+sessionID, nil)
		data := decodeData(t, view)
		cart := data["cart"].(map[string]interface{})
		if _, ok := cart["order_cart_id"]; ok {
			t.Error("failed submit recorded an order cart id")
		}
		if data["can_submit"] != true {
			t.Error("week no longer submittable after a failed submit")
		}

		env.ordersAPI.UpsertCartFunc = nil
		retry := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/submit", nil)
		if retry.Code != http.StatusOK {
			t.Errorf("retry status = %d: %s", retry.Code, retry.Body.String())
		}
	})

	t.Run("invalidPlatformCartID", func(t *testing.T) {
		env := newHandlerEnv(t)
		env.ordersAPI.UpsertCartFunc = func(ctx context.Context, submission orders.CartSubmission) (*orders.SubmissionResult, error) {
			return &orders.SubmissionResult{ID: "not-a-uuid"}, nil
		}

		sessionID := env.openSession(t)
		env.fillWeek(t, sessionID, 0)

		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/submit", nil)
		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("skipsPreviousWeeksFromQuery", func(t *testing.T) {
		env := newHandlerEnv(t)
		sessionID := env.openSession(t)
		env.fillWeek(t, sessionID, 0)

		previous := env.weeks[1].ID.String() + "," + env.weeks[2].ID.String()
		w := env.do(t, http.MethodPost, "/menu/sessions/"+sessionID+"/submit?previous="+previous, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}

		if len(env.ordersAPI.SkippedRows) != 1 {
			t.Fatalf("skip calls = %d, want 1", len(env.ordersAPI.SkippedRows))
		}
		if len(env.ordersAPI.SkippedRows[0]) != 2 {
			t.Errorf("skipped rows = %d, want 2", len(env.ordersAPI.SkippedRows[0]))
		}
	})
}

func TestHandlerListOccurrences(t *testing.T) {
	t.Run("filtersUndeliverable", func(t *testing.T) {
		env := newHandlerEnv(t)
		env.weeks[2].IsVisible = false

		w := env.do(t, http.MethodGet, "/occurrences?subscription_id="+env.customer.SubscriptionID.String(), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("missingSubscriptionID", func(t *testing.T) {
		env := newHandlerEnv(t)
		w := env.do(t, http.MethodGet, "/occurrences", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}
