package platform

import (
	"context"
	"net/http"
	"net/url"
)

// GetAsset returns a single asset's metadata.
func (c *Client) GetAsset(ctx context.Context, assetID string) (*Asset, error) {
	var resp struct {
		Asset Asset `json:"asset"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/assets/"+url.PathEscape(assetID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Asset, nil
}
