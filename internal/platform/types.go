package platform

// Folder is a design platform folder.
type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// FolderList is one page of folders.
type FolderList struct {
	Items        []Folder `json:"items"`
	Continuation string   `json:"continuation,omitempty"`
}

// FolderAccess describes one principal's permission on a folder.
type FolderAccess struct {
	PrincipalID string `json:"principal_id"`
	Role        string `json:"role"`
}

// FolderAccessList is one page of folder permissions.
type FolderAccessList struct {
	Items        []FolderAccess `json:"items"`
	Continuation string         `json:"continuation,omitempty"`
}

// Design is a design's metadata.
type Design struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	PageCount    int    `json:"page_count,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
	UpdatedAt    int64  `json:"updated_at,omitempty"`
}

// DesignList is one page of designs.
type DesignList struct {
	Items        []Design `json:"items"`
	Continuation string   `json:"continuation,omitempty"`
}

// ExportJob is an asynchronous design export.
type ExportJob struct {
	ID     string   `json:"id"`
	Status string   `json:"status"` // "in_progress", "success", "failed"
	URLs   []string `json:"urls,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Asset is an uploaded media asset.
type Asset struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`
}

// BrandTemplate is a brand template's metadata.
type BrandTemplate struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ViewURL   string `json:"view_url,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// BrandTemplateList is one page of brand templates.
type BrandTemplateList struct {
	Items        []BrandTemplate `json:"items"`
	Continuation string          `json:"continuation,omitempty"`
}
