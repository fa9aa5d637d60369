package polar

import "context"

// SubscriptionClient operates on /v1/subscriptions.
type SubscriptionClient struct {
	client *Client
}

func (r *SubscriptionClient) List(ctx context.Context, params map[string]any) (Page, error) {
	return r.client.paginated(ctx, "/v1/subscriptions", params)
}

func (r *SubscriptionClient) Retrieve(ctx context.Context, id string) (Subscription, error) {
	response, err := r.client.Get(ctx, "/v1/subscriptions/"+id, nil)
	if err != nil {
		return Subscription{}, err
	}
	return DecodeSubscription(response), nil
}

func (r *SubscriptionClient) Create(ctx context.Context, params map[string]any) (Subscription, error) {
	response, err := r.client.Post(ctx, "/v1/subscriptions", params)
	if err != nil {
		return Subscription{}, err
	}
	return DecodeSubscription(response), nil
}

func (r *SubscriptionClient) Update(ctx context.Context, id string, params map[string]any) (Subscription, error) {
	response, err := r.client.Patch(ctx, "/v1/subscriptions/"+id, params)
	if err != nil {
		return Subscription{}, err
	}
	return DecodeSubscription(response), nil
}

func (r *SubscriptionClient) Cancel(ctx context.Context, id string, cancelAtPeriodEnd bool) (Subscription, error) {
	response, err := r.client.Post(ctx, "/v1/subscriptions/"+id+"/cancel", map[string]any{
		"cancel_at_period_end": cancelAtPeriodEnd,
	})
	if err != nil {
		return Subscription{}, err
	}
	return DecodeSubscription(response), nil
}

func (r *SubscriptionClient) Reactivate(ctx context.Context, id string) (Subscription, error) {
	response, err := r.client.Post(ctx, "/v1/subscriptions/"+id+"/reactivate", nil)
	if err != nil {
		return Subscription{}, err
	}
	return DecodeSubscription(response), nil
}

// ChangeProduct moves the subscription onto another product. priceID is
// optional and omitted from the request when empty.
func (r *SubscriptionClient) ChangeProduct(ctx context.Context, id string, productID string, priceID string) (Subscription, error) {
	body := map[string]any{"product_id": productID}
	if priceID != "" {
		body["price_id"] = priceID
	}
	response, err := r.client.Post(ctx, "/v1/subscriptions/"+id+"/change", body)
	if err != nil {
		return Subscription{}, err
	}
	return DecodeSubscription(response), nil
}

func (r *SubscriptionClient) ExportBenefits(ctx context.Context, id string, params map[string]any) (map[string]any, error) {
	return r.client.Get(ctx, "/v1/subscriptions/"+id+"/benefits", params)
}
