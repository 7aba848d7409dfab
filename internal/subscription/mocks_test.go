package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mealkitclub/storefront/internal/orders"
)

// MockCustomerRepo is a test mock for CustomerRepo
type MockCustomerRepo struct {
	customers  map[uuid.UUID]*Customer
	byKeycloak map[string]*Customer
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Customer, error)
}

func NewMockCustomerRepo() *MockCustomerRepo {
	return &MockCustomerRepo{
		customers:  make(map[uuid.UUID]*Customer),
		byKeycloak: make(map[string]*Customer),
	}
}

func (m *MockCustomerRepo) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return m.customers[id], nil
}

func (m *MockCustomerRepo) GetByKeycloakID(ctx context.Context, keycloakID string) (*Customer, error) {
	return m.byKeycloak[keycloakID], nil
}

func (m *MockCustomerRepo) AddCustomer(c *Customer) {
	m.customers[c.ID] = c
	m.byKeycloak[c.KeycloakID] = c
}

// MockSubscriptionRepo is a test mock for SubscriptionRepo
type MockSubscriptionRepo struct {
	subscriptions map[uuid.UUID]*Subscription
	GetFunc       func(ctx context.Context, id uuid.UUID) (*Subscription, error)
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{subscriptions: make(map[uuid.UUID]*Subscription)}
}

func (m *MockSubscriptionRepo) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return m.subscriptions[id], nil
}

func (m *MockSubscriptionRepo) AddSubscription(s *Subscription) {
	m.subscriptions[s.ID] = s
}

// MockPlanRepo is a test mock for PlanRepo
type MockPlanRepo struct {
	plans   map[uuid.UUID]*Plan
	GetFunc func(ctx context.Context, id uuid.UUID) (*Plan, error)
}

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{plans: make(map[uuid.UUID]*Plan)}
}

func (m *MockPlanRepo) Get(ctx context.Context, id uuid.UUID) (*Plan, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return m.plans[id], nil
}

func (m *MockPlanRepo) AddPlan(p *Plan) {
	m.plans[p.ID] = p
}

// MockOccurrenceRepo is a test mock for OccurrenceRepo
type MockOccurrenceRepo struct {
	occurrences            []*Occurrence
	GetFunc                func(ctx context.Context, id uuid.UUID) (*Occurrence, error)
	ListBySubscriptionFunc func(ctx context.Context, subscriptionID uuid.UUID, from time.Time) ([]*Occurrence, error)
}

func NewMockOccurrenceRepo() *MockOccurrenceRepo {
	return &MockOccurrenceRepo{}
}

func (m *MockOccurrenceRepo) Get(ctx context.Context, id uuid.UUID) (*Occurrence, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	for _, occ := range m.occurrences {
		if occ.ID == id {
			return occ, nil
		}
	}
	return nil, nil
}

func (m *MockOccurrenceRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID, from time.Time) ([]*Occurrence, error) {
	if m.ListBySubscriptionFunc != nil {
		return m.ListBySubscriptionFunc(ctx, subscriptionID, from)
	}
	result := make([]*Occurrence, 0, len(m.occurrences))
	for _, occ := range m.occurrences {
		if occ.SubscriptionID == subscriptionID {
			result = append(result, occ)
		}
	}
	return result, nil
}

func (m *MockOccurrenceRepo) AddOccurrence(o *Occurrence) {
	m.occurrences = append(m.occurrences, o)
}

// MockOccurrenceProductRepo is a test mock for OccurrenceProductRepo
type MockOccurrenceProductRepo struct {
	products             map[uuid.UUID]*OccurrenceProduct
	GetFunc              func(ctx context.Context, id uuid.UUID) (*OccurrenceProduct, error)
	ListByOccurrenceFunc func(ctx context.Context, occurrenceID uuid.UUID) ([]*OccurrenceProduct, error)
}

func NewMockOccurrenceProductRepo() *MockOccurrenceProductRepo {
	return &MockOccurrenceProductRepo{products: make(map[uuid.UUID]*OccurrenceProduct)}
}

func (m *MockOccurrenceProductRepo) Get(ctx context.Context, id uuid.UUID) (*OccurrenceProduct, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return m.products[id], nil
}

func (m *MockOccurrenceProductRepo) ListByOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]*OccurrenceProduct, error) {
	if m.ListByOccurrenceFunc != nil {
		return m.ListByOccurrenceFunc(ctx, occurrenceID)
	}
	var result []*OccurrenceProduct
	for _, p := range m.products {
		if p.OccurrenceID == occurrenceID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *MockOccurrenceProductRepo) AddProduct(p *OccurrenceProduct) {
	m.products[p.ID] = p
}

// MockCartRecordRepo is a test mock for CartRecordRepo
type MockCartRecordRepo struct {
	records        map[string]*CartRecord
	FindFunc       func(ctx context.Context, keycloakID string, occurrenceID uuid.UUID) (*CartRecord, error)
	UpsertFunc     func(ctx context.Context, record *CartRecord) error
	SetStatusFunc  func(ctx context.Context, orderCartID uuid.UUID, status string) error
	SetSkippedFunc func(ctx context.Context, keycloakID string, occurrenceID uuid.UUID, skipped bool) error
}

func NewMockCartRecordRepo() *MockCartRecordRepo {
	return &MockCartRecordRepo{records: make(map[string]*CartRecord)}
}

func recordKey(keycloakID string, occurrenceID uuid.UUID) string {
	return keycloakID + "/" + occurrenceID.String()
}

func (m *MockCartRecordRepo) Find(ctx context.Context, keycloakID string, occurrenceID uuid.UUID) (*CartRecord, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, keycloakID, occurrenceID)
	}
	return m.records[recordKey(keycloakID, occurrenceID)], nil
}

func (m *MockCartRecordRepo) FindByOrderCartID(ctx context.Context, orderCartID uuid.UUID) (*CartRecord, error) {
	for _, record := range m.records {
		if record.OrderCartID != nil && *record.OrderCartID == orderCartID {
			return record, nil
		}
	}
	return nil, nil
}

func (m *MockCartRecordRepo) Upsert(ctx context.Context, record *CartRecord) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, record)
	}
	m.records[recordKey(record.KeycloakID, record.OccurrenceID)] = record
	return nil
}

func (m *MockCartRecordRepo) SetStatus(ctx context.Context, orderCartID uuid.UUID, status string) error {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, orderCartID, status)
	}
	for _, record := range m.records {
		if record.OrderCartID != nil && *record.OrderCartID == orderCartID {
			record.Status = status
			return nil
		}
	}
	return errors.New("cart record not found")
}

func (m *MockCartRecordRepo) SetSkipped(ctx context.Context, keycloakID string, occurrenceID uuid.UUID, skipped bool) error {
	if m.SetSkippedFunc != nil {
		return m.SetSkippedFunc(ctx, keycloakID, occurrenceID, skipped)
	}
	if record, ok := m.records[recordKey(keycloakID, occurrenceID)]; ok {
		record.IsSkipped = skipped
	}
	return nil
}

func (m *MockCartRecordRepo) AddRecord(record *CartRecord) {
	m.records[recordKey(record.KeycloakID, record.OccurrenceID)] = record
}

// MockDeliveryZoneRepo is a test mock for DeliveryZoneRepo
type MockDeliveryZoneRepo struct {
	zones    map[string]*DeliveryZone
	FindFunc func(ctx context.Context, subscriptionID uuid.UUID, zipcode string) (*DeliveryZone, error)
}

func NewMockDeliveryZoneRepo() *MockDeliveryZoneRepo {
	return &MockDeliveryZoneRepo{zones: make(map[string]*DeliveryZone)}
}

func (m *MockDeliveryZoneRepo) Find(ctx context.Context, subscriptionID uuid.UUID, zipcode string) (*DeliveryZone, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, subscriptionID, zipcode)
	}
	return m.zones[subscriptionID.String()+"/"+zipcode], nil
}

func (m *MockDeliveryZoneRepo) AddZone(z *DeliveryZone) {
	m.zones[z.SubscriptionID.String()+"/"+z.Zipcode] = z
}

// MockOrdersClient is a test mock for orders.Client
type MockOrdersClient struct {
	Submissions         []orders.CartSubmission
	SkippedRows         [][]orders.OccurrenceCustomer
	UpsertCartFunc      func(ctx context.Context, submission orders.CartSubmission) (*orders.SubmissionResult, error)
	SkipOccurrencesFunc func(ctx context.Context, rows []orders.OccurrenceCustomer) error
}

func NewMockOrdersClient() *MockOrdersClient {
	return &MockOrdersClient{}
}

func (m *MockOrdersClient) UpsertCart(ctx context.Context, submission orders.CartSubmission) (*orders.SubmissionResult, error) {
	m.Submissions = append(m.Submissions, submission)
	if m.UpsertCartFunc != nil {
		return m.UpsertCartFunc(ctx, submission)
	}
	return &orders.SubmissionResult{ID: uuid.New().String()}, nil
}

func (m *MockOrdersClient) SkipOccurrences(ctx context.Context, rows []orders.OccurrenceCustomer) error {
	m.SkippedRows = append(m.SkippedRows, rows)
	if m.SkipOccurrencesFunc != nil {
		return m.SkipOccurrencesFunc(ctx, rows)
	}
	return nil
}

// PublishedEvent captures one publish call
type PublishedEvent struct {
	Topic string
	Data  []byte
}

// MockPublisher is a test mock for events.Publisher
type MockPublisher struct {
	PublishedEvents []PublishedEvent
	PublishFunc     func(ctx context.Context, topic string, data []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, data)
	}
	m.PublishedEvents = append(m.PublishedEvents, PublishedEvent{Topic: topic, Data: data})
	return nil
}
