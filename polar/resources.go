package polar

import "context"

func (c *Client) paginated(ctx context.Context, path string, params map[string]any) (Page, error) {
	response, err := c.Get(ctx, path, params)
	if err != nil {
		return Page{}, err
	}
	return decodePage(response), nil
}

func cloneParams(params map[string]any) map[string]any {
	copied := make(map[string]any, len(params))
	for key, value := range params {
		copied[key] = value
	}
	return copied
}
