package credstore

// CredentialRecord is one account's persisted credential set.
// All instants are epoch milliseconds.
type CredentialRecord struct {
	// AccountID is the stable key under which the record is stored.
	AccountID string `json:"account_id"`

	// AccessToken is the short-lived bearer token.
	AccessToken string `json:"access_token"`

	// RefreshToken is the longer-lived renewal credential. It is never
	// empty once a record exists.
	RefreshToken string `json:"refresh_token"`

	// ExpiresAt is the instant after which AccessToken must not be used.
	ExpiresAt int64 `json:"expires_at"`

	// Scope is the space-delimited set of granted capabilities.
	Scope string `json:"scope,omitempty"`

	// CreatedAt is when the record was first stored.
	CreatedAt int64 `json:"created_at"`

	// LastRefreshedAt is when the record was last renewed.
	LastRefreshedAt int64 `json:"last_refreshed_at,omitempty"`
}

// TokenUpdate carries the fields of a refresh response to apply to an
// existing record. Empty RefreshToken and Scope mean "retain the stored
// value"; providers may omit both on refresh.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	Scope        string
}
