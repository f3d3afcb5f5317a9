package platform

import (
	"context"
	"net/http"
	"net/url"
)

// ListBrandTemplates returns one page of the account's brand templates.
func (c *Client) ListBrandTemplates(ctx context.Context, continuation string) (*BrandTemplateList, error) {
	query := url.Values{}
	if continuation != "" {
		query.Set("continuation", continuation)
	}

	var list BrandTemplateList
	if err := c.do(ctx, http.MethodGet, "/v1/brand-templates", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetBrandTemplate returns a single brand template's metadata.
func (c *Client) GetBrandTemplate(ctx context.Context, templateID string) (*BrandTemplate, error) {
	var resp struct {
		BrandTemplate BrandTemplate `json:"brand_template"`
	}
	path := "/v1/brand-templates/" + url.PathEscape(templateID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.BrandTemplate, nil
}
