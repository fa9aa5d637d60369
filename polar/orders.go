package polar

import "context"

// OrderClient operates on /v1/orders.
type OrderClient struct {
	client *Client
}

func (r *OrderClient) List(ctx context.Context, params map[string]any) (Page, error) {
	return r.client.paginated(ctx, "/v1/orders", params)
}

func (r *OrderClient) Retrieve(ctx context.Context, id string) (Order, error) {
	response, err := r.client.Get(ctx, "/v1/orders/"+id, nil)
	if err != nil {
		return Order{}, err
	}
	return DecodeOrder(response), nil
}

func (r *OrderClient) Invoice(ctx context.Context, id string) (map[string]any, error) {
	return r.client.Get(ctx, "/v1/orders/"+id+"/invoice", nil)
}

func (r *OrderClient) ByCustomer(ctx context.Context, customerID string, params map[string]any) (Page, error) {
	filtered := cloneParams(params)
	filtered["customer_id"] = customerID
	return r.List(ctx, filtered)
}

func (r *OrderClient) BySubscription(ctx context.Context, subscriptionID string, params map[string]any) (Page, error) {
	filtered := cloneParams(params)
	filtered["subscription_id"] = subscriptionID
	return r.List(ctx, filtered)
}
