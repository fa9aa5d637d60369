package polar

import "context"

// ProductClient operates on /v1/products.
type ProductClient struct {
	client *Client
}

func (r *ProductClient) List(ctx context.Context, params map[string]any) (Page, error) {
	return r.client.paginated(ctx, "/v1/products", params)
}

func (r *ProductClient) Retrieve(ctx context.Context, id string) (Product, error) {
	response, err := r.client.Get(ctx, "/v1/products/"+id, nil)
	if err != nil {
		return Product{}, err
	}
	return DecodeProduct(response), nil
}

func (r *ProductClient) Create(ctx context.Context, params map[string]any) (Product, error) {
	response, err := r.client.Post(ctx, "/v1/products", params)
	if err != nil {
		return Product{}, err
	}
	return DecodeProduct(response), nil
}

func (r *ProductClient) Update(ctx context.Context, id string, params map[string]any) (Product, error) {
	response, err := r.client.Patch(ctx, "/v1/products/"+id, params)
	if err != nil {
		return Product{}, err
	}
	return DecodeProduct(response), nil
}

func (r *ProductClient) Benefits(ctx context.Context, id string, params map[string]any) (Page, error) {
	return r.client.paginated(ctx, "/v1/products/"+id+"/benefits", params)
}

func (r *ProductClient) UpdateBenefits(ctx context.Context, id string, benefits []string) (map[string]any, error) {
	return r.client.Post(ctx, "/v1/products/"+id+"/benefits", map[string]any{
		"benefits": benefits,
	})
}
