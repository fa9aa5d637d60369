package polar

import "context"

// BenefitClient operates on /v1/benefits.
type BenefitClient struct {
	client *Client
}

func (r *BenefitClient) List(ctx context.Context, params map[string]any) (Page, error) {
	return r.client.paginated(ctx, "/v1/benefits", params)
}

func (r *BenefitClient) Retrieve(ctx context.Context, id string) (Benefit, error) {
	response, err := r.client.Get(ctx, "/v1/benefits/"+id, nil)
	if err != nil {
		return Benefit{}, err
	}
	return DecodeBenefit(response), nil
}

func (r *BenefitClient) Create(ctx context.Context, params map[string]any) (Benefit, error) {
	response, err := r.client.Post(ctx, "/v1/benefits", params)
	if err != nil {
		return Benefit{}, err
	}
	return DecodeBenefit(response), nil
}

func (r *BenefitClient) Update(ctx context.Context, id string, params map[string]any) (Benefit, error) {
	response, err := r.client.Patch(ctx, "/v1/benefits/"+id, params)
	if err != nil {
		return Benefit{}, err
	}
	return DecodeBenefit(response), nil
}

func (r *BenefitClient) Delete(ctx context.Context, id string) error {
	_, err := r.client.Delete(ctx, "/v1/benefits/"+id)
	return err
}

func (r *BenefitClient) Grants(ctx context.Context, benefitID string, params map[string]any) (Page, error) {
	return r.client.paginated(ctx, "/v1/benefits/"+benefitID+"/grants", params)
}

func (r *BenefitClient) Grant(ctx context.Context, benefitID string, customerID string, options map[string]any) (map[string]any, error) {
	body := cloneParams(options)
	body["customer_id"] = customerID
	return r.client.Post(ctx, "/v1/benefits/"+benefitID+"/grants", body)
}

func (r *BenefitClient) RevokeGrant(ctx context.Context, benefitID string, grantID string) error {
	_, err := r.client.Delete(ctx, "/v1/benefits/"+benefitID+"/grants/"+grantID)
	return err
}
