package polar

import "context"

// CustomerClient operates on /v1/customers.
type CustomerClient struct {
	client *Client
}

func (r *CustomerClient) List(ctx context.Context, params map[string]any) (Page, error) {
	return r.client.paginated(ctx, "/v1/customers", params)
}

func (r *CustomerClient) Retrieve(ctx context.Context, id string) (Customer, error) {
	response, err := r.client.Get(ctx, "/v1/customers/"+id, nil)
	if err != nil {
		return Customer{}, err
	}
	return DecodeCustomer(response), nil
}

func (r *CustomerClient) Create(ctx context.Context, params map[string]any) (Customer, error) {
	response, err := r.client.Post(ctx, "/v1/customers", params)
	if err != nil {
		return Customer{}, err
	}
	return DecodeCustomer(response), nil
}

func (r *CustomerClient) Update(ctx context.Context, id string, params map[string]any) (Customer, error) {
	response, err := r.client.Patch(ctx, "/v1/customers/"+id, params)
	if err != nil {
		return Customer{}, err
	}
	return DecodeCustomer(response), nil
}

func (r *CustomerClient) Delete(ctx context.Context, id string) error {
	_, err := r.client.Delete(ctx, "/v1/customers/"+id)
	return err
}

func (r *CustomerClient) LookupByEmail(ctx context.Context, email string) (Page, error) {
	return r.List(ctx, map[string]any{"email": email})
}

func (r *CustomerClient) LookupByExternalID(ctx context.Context, externalID string) (Page, error) {
	return r.List(ctx, map[string]any{"external_id": externalID})
}

// PortalSession creates a hosted customer-portal session. returnURL may be
// empty, in which case the provider default applies.
func (r *CustomerClient) PortalSession(ctx context.Context, id string, returnURL string) (map[string]any, error) {
	body := map[string]any{}
	if returnURL != "" {
		body["return_url"] = returnURL
	}
	return r.client.Post(ctx, "/v1/customers/"+id+"/portal", body)
}
