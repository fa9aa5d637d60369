package polar

import "context"

// CheckoutClient operates on /v1/checkouts.
type CheckoutClient struct {
	client *Client
}

func (r *CheckoutClient) List(ctx context.Context, params map[string]any) (Page, error) {
	return r.client.paginated(ctx, "/v1/checkouts", params)
}

func (r *CheckoutClient) Retrieve(ctx context.Context, id string) (Checkout, error) {
	response, err := r.client.Get(ctx, "/v1/checkouts/"+id, nil)
	if err != nil {
		return Checkout{}, err
	}
	return DecodeCheckout(response), nil
}

func (r *CheckoutClient) Create(ctx context.Context, params map[string]any) (Checkout, error) {
	response, err := r.client.Post(ctx, "/v1/checkouts", params)
	if err != nil {
		return Checkout{}, err
	}
	return DecodeCheckout(response), nil
}

func (r *CheckoutClient) Update(ctx context.Context, id string, params map[string]any) (Checkout, error) {
	response, err := r.client.Patch(ctx, "/v1/checkouts/"+id, params)
	if err != nil {
		return Checkout{}, err
	}
	return DecodeCheckout(response), nil
}

// CreateCustom validates the required fields locally before touching the
// network, so a missing product_id never issues a request.
func (r *CheckoutClient) CreateCustom(ctx context.Context, params map[string]any) (Checkout, error) {
	if FieldString(params, "product_id") == "" {
		return Checkout{}, validationError("Missing required fields: product_id", 0, nil)
	}
	return r.Create(ctx, params)
}

type SubscriptionTierUpgrade struct {
	CustomerID         string
	SubscriptionID     string
	SubscriptionTierID string
	Options            map[string]any
}

func (r *CheckoutClient) CreateSubscriptionTierUpgrade(ctx context.Context, upgrade SubscriptionTierUpgrade) (Checkout, error) {
	params := cloneParams(upgrade.Options)
	params["customer_id"] = upgrade.CustomerID
	params["subscription_id"] = upgrade.SubscriptionID
	params["subscription_tier_id"] = upgrade.SubscriptionTierID
	return r.Create(ctx, params)
}

func (r *CheckoutClient) Expire(ctx context.Context, id string) (Checkout, error) {
	response, err := r.client.Post(ctx, "/v1/checkouts/"+id+"/expire", nil)
	if err != nil {
		return Checkout{}, err
	}
	return DecodeCheckout(response), nil
}
