package platform

import (
	"context"
	"net/http"
	"net/url"
)

// ListDesigns returns one page of the account's designs.
func (c *Client) ListDesigns(ctx context.Context, continuation string) (*DesignList, error) {
	query := url.Values{}
	if continuation != "" {
		query.Set("continuation", continuation)
	}

	var list DesignList
	if err := c.do(ctx, http.MethodGet, "/v1/designs", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetDesign returns a single design's metadata.
func (c *Client) GetDesign(ctx context.Context, designID string) (*Design, error) {
	var resp struct {
		Design Design `json:"design"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/designs/"+url.PathEscape(designID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Design, nil
}

// CreateExport starts an asynchronous export of a design in the given
// format (for example "pdf" or "png"). Poll GetExport until the job leaves
// "in_progress".
func (c *Client) CreateExport(ctx context.Context, designID, format string) (*ExportJob, error) {
	body := map[string]interface{}{
		"design_id": designID,
		"format":    map[string]string{"type": format},
	}

	var resp struct {
		Job ExportJob `json:"job"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/exports", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// GetExport returns the current state of an export job.
func (c *Client) GetExport(ctx context.Context, jobID string) (*ExportJob, error) {
	var resp struct {
		Job ExportJob `json:"job"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/exports/"+url.PathEscape(jobID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}
