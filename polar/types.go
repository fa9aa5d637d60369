package polar

import (
	"strconv"
	"time"
)

// Pagination mirrors the provider's list envelope metadata.
type Pagination struct {
	TotalCount int
	MaxPage    int
}

// Page is the normalized result of a list call. A missing data or
// pagination key in the response decodes to the zero value, never an error.
type Page struct {
	Data       []map[string]any
	Pagination Pagination
}

func decodePage(response map[string]any) Page {
	page := Page{Data: []map[string]any{}}
	if response == nil {
		return page
	}
	if rows, ok := response["data"].([]any); ok {
		for _, row := range rows {
			if item, ok := row.(map[string]any); ok {
				page.Data = append(page.Data, item)
			}
		}
	}
	if meta, ok := response["pagination"].(map[string]any); ok {
		page.Pagination = Pagination{
			TotalCount: FieldInt(meta, "total_count"),
			MaxPage:    FieldInt(meta, "max_page"),
		}
	}
	return page
}

// Customer is the typed projection of a customer payload. Raw retains the
// full decoded body for metadata passthrough.
type Customer struct {
	ID         string
	Email      string
	Name       string
	ExternalID string
	Metadata   map[string]any
	Raw        map[string]any
}

func DecodeCustomer(data map[string]any) Customer {
	return Customer{
		ID:         FieldString(data, "id"),
		Email:      FieldString(data, "email"),
		Name:       FieldString(data, "name"),
		ExternalID: FieldString(data, "external_id"),
		Metadata:   FieldMap(data, "metadata"),
		Raw:        data,
	}
}

type Product struct {
	ID          string
	Name        string
	Description string
	IsRecurring bool
	Metadata    map[string]any
	Raw         map[string]any
}

func DecodeProduct(data map[string]any) Product {
	return Product{
		ID:          FieldString(data, "id"),
		Name:        FieldString(data, "name"),
		Description: FieldString(data, "description"),
		IsRecurring: FieldBool(data, "is_recurring"),
		Metadata:    FieldMap(data, "metadata"),
		Raw:         data,
	}
}

type Subscription struct {
	ID                 string
	CustomerID         string
	ProductID          string
	Status             string
	AmountCents        int64
	Currency           string
	RecurringInterval  string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialEnd           *time.Time
	Metadata           map[string]any
	Raw                map[string]any
}

func DecodeSubscription(data map[string]any) Subscription {
	interval := FieldString(data, "recurring_interval")
	if recurring := FieldMap(data, "recurring"); interval == "" && recurring != nil {
		interval = FieldString(recurring, "interval")
	}
	return Subscription{
		ID:                 FieldString(data, "id"),
		CustomerID:         FieldString(data, "customer_id"),
		ProductID:          FieldString(data, "product_id"),
		Status:             FieldString(data, "status"),
		AmountCents:        FieldInt64(data, "amount"),
		Currency:           FieldString(data, "currency"),
		RecurringInterval:  interval,
		CancelAtPeriodEnd:  FieldBool(data, "cancel_at_period_end"),
		CurrentPeriodStart: FieldTime(data, "current_period_start"),
		CurrentPeriodEnd:   FieldTime(data, "current_period_end"),
		TrialEnd:           FieldTime(data, "trial_end"),
		Metadata:           FieldMap(data, "metadata"),
		Raw:                data,
	}
}

type Checkout struct {
	ID             string
	Status         string
	URL            string
	CustomerID     string
	ProductID      string
	SubscriptionID string
	AmountCents    int64
	Currency       string
	Metadata       map[string]any
	Subscription   map[string]any
	Raw            map[string]any
}

// CheckoutStatusCompleted is the terminal status confirming payment.
const CheckoutStatusCompleted = "completed"

func DecodeCheckout(data map[string]any) Checkout {
	return Checkout{
		ID:             FieldString(data, "id"),
		Status:         FieldString(data, "status"),
		URL:            FieldString(data, "url"),
		CustomerID:     FieldString(data, "customer_id"),
		ProductID:      FieldString(data, "product_id"),
		SubscriptionID: FieldString(data, "subscription_id"),
		AmountCents:    FieldInt64(data, "amount"),
		Currency:       FieldString(data, "currency"),
		Metadata:       FieldMap(data, "metadata"),
		Subscription:   FieldMap(data, "subscription"),
		Raw:            data,
	}
}

func (c Checkout) Completed() bool {
	return c.Status == CheckoutStatusCompleted
}

type Order struct {
	ID          string
	CustomerID  string
	ProductID   string
	AmountCents int64
	Currency    string
	Metadata    map[string]any
	Raw         map[string]any
}

func DecodeOrder(data map[string]any) Order {
	return Order{
		ID:          FieldString(data, "id"),
		CustomerID:  FieldString(data, "customer_id"),
		ProductID:   FieldString(data, "product_id"),
		AmountCents: FieldInt64(data, "amount"),
		Currency:    FieldString(data, "currency"),
		Metadata:    FieldMap(data, "metadata"),
		Raw:         data,
	}
}

type Benefit struct {
	ID          string
	Type        string
	Description string
	Metadata    map[string]any
	Raw         map[string]any
}

func DecodeBenefit(data map[string]any) Benefit {
	return Benefit{
		ID:          FieldString(data, "id"),
		Type:        FieldString(data, "type"),
		Description: FieldString(data, "description"),
		Metadata:    FieldMap(data, "metadata"),
		Raw:         data,
	}
}

// Field accessors tolerate the loose typing of decoded JSON: numbers arrive
// as float64, identifiers sometimes as numbers, timestamps as RFC 3339
// strings.

func FieldString(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	switch value := data[key].(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

func FieldBool(data map[string]any, key string) bool {
	if data == nil {
		return false
	}
	value, _ := data[key].(bool)
	return value
}

func FieldFloat(data map[string]any, key string) float64 {
	if data == nil {
		return 0
	}
	switch value := data[key].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func FieldInt(data map[string]any, key string) int {
	return int(FieldFloat(data, key))
}

func FieldInt64(data map[string]any, key string) int64 {
	return int64(FieldFloat(data, key))
}

func FieldMap(data map[string]any, key string) map[string]any {
	if data == nil {
		return nil
	}
	value, _ := data[key].(map[string]any)
	return value
}

func FieldTime(data map[string]any, key string) *time.Time {
	raw := FieldString(data, key)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}
