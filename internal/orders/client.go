package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the boundary to the order platform. The storefront sends a
// fully-assembled submission payload and gets back the authoritative
// cart identifier plus server-corrected skip and validity flags.
type Client interface {
	UpsertCart(ctx context.Context, submission CartSubmission) (*SubmissionResult, error)
	SkipOccurrences(ctx context.Context, rows []OccurrenceCustomer) error
}

// CartSubmission is the outbound payload. Field names follow the order
// platform's wire contract, including its spelling of "Occurence".
type CartSubmission struct {
	ID                 string               `json:"id,omitempty"`
	Status             string               `json:"status"`
	CustomerID         string               `json:"customerId"`
	PaymentStatus      string               `json:"paymentStatus"`
	PaymentMethodID    string               `json:"paymentMethodId,omitempty"`
	CartSource         string               `json:"cartSource"`
	CartInfo           CartInfo             `json:"cartInfo"`
	Address            Address              `json:"address"`
	CustomerKeycloakID string               `json:"customerKeycloakId"`
	OccurrenceID       string               `json:"subscriptionOccurenceId"`
	CustomerInfo       CustomerInfo         `json:"customerInfo"`
	FulfillmentInfo    FulfillmentInfo      `json:"fulfillmentInfo"`
	OccurrenceRows     []OccurrenceCustomer `json:"subscriptionOccurenceCustomers"`
}

// Address mirrors the platform's address object.
type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zipcode string `json:"zipcode"`
	Notes   string `json:"notes,omitempty"`
}

type CartInfo struct {
	Tax      float64       `json:"tax"`
	Total    float64       `json:"total"`
	Products []interface{} `json:"products"`
}

type CustomerInfo struct {
	Email     string `json:"customerEmail"`
	Phone     string `json:"customerPhone"`
	LastName  string `json:"customerLastName"`
	FirstName string `json:"customerFirstName"`
}

type FulfillmentInfo struct {
	Type string          `json:"type"`
	Slot FulfillmentSlot `json:"slot"`
}

type FulfillmentSlot struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// OccurrenceCustomer is one row of the occurrence-customer join the
// platform maintains per week and customer.
type OccurrenceCustomer struct {
	IsSkipped       bool   `json:"isSkipped"`
	KeycloakID      string `json:"keycloakId"`
	OccurrenceID    string `json:"subscriptionOccurenceId"`
	BrandCustomerID string `json:"brand_customerId,omitempty"`
}

// SubmissionResult is the platform's response to an upsert.
type SubmissionResult struct {
	ID                 string `json:"id"`
	OccurrenceCustomer struct {
		IsSkipped   bool   `json:"isSkipped"`
		ValidStatus string `json:"validStatus"`
	} `json:"subscriptionOccurenceCustomer"`
}

// HTTPClient implements Client over the platform's JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// UpsertCart creates or updates the order cart for a week.
func (c *HTTPClient) UpsertCart(ctx context.Context, submission CartSubmission) (*SubmissionResult, error) {
	body, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal cart submission: %w", err)
	}

	url := fmt.Sprintf("%s/carts", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cannot create cart request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cart submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("order platform returned %d: %s", resp.StatusCode, payload)
	}

	var result SubmissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("cannot decode submission result: %w", err)
	}

	return &result, nil
}

// SkipOccurrences marks previously missed weeks as skipped in a single
// call, used after the first successful submission of a new customer.
func (c *HTTPClient) SkipOccurrences(ctx context.Context, rows []OccurrenceCustomer) error {
	if len(rows) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{"objects": rows})
	if err != nil {
		return fmt.Errorf("cannot marshal skip rows: %w", err)
	}

	url := fmt.Sprintf("%s/occurrence-customers", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cannot create skip request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("skip submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("order platform returned %d: %s", resp.StatusCode, payload)
	}

	return nil
}
