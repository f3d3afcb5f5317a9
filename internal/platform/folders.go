package platform

import (
	"context"
	"net/http"
	"net/url"
)

// ListFolders returns one page of the account's folders. Pass the previous
// page's continuation token to fetch the next page, or "" for the first.
func (c *Client) ListFolders(ctx context.Context, continuation string) (*FolderList, error) {
	query := url.Values{}
	if continuation != "" {
		query.Set("continuation", continuation)
	}

	var list FolderList
	if err := c.do(ctx, http.MethodGet, "/v1/folders", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetFolder returns a single folder's metadata.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*Folder, error) {
	var resp struct {
		Folder Folder `json:"folder"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/folders/"+url.PathEscape(folderID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Folder, nil
}

// ListFolderAccess returns one page of a folder's permissions.
func (c *Client) ListFolderAccess(ctx context.Context, folderID, continuation string) (*FolderAccessList, error) {
	query := url.Values{}
	if continuation != "" {
		query.Set("continuation", continuation)
	}

	var list FolderAccessList
	path := "/v1/folders/" + url.PathEscape(folderID) + "/permissions"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}
