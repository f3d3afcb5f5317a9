// Package credstore persists design-platform credentials encrypted at rest.
//
// The whole record map (account id -> credential record) is serialized as a
// single JSON document, encrypted as one unit with AES-256-GCM, and written
// atomically to a single file. The cipher key is derived once with SHA-256
// from an operator-supplied secret, so the secret is never used directly as
// key material and can be any length.
//
// SECURITY: the store handles sensitive OAuth credentials. Files are created
// with 0600 permissions inside a 0700 directory, token values are never
// logged, and a record that fails authentication on decrypt is reported as
// ErrCorrupt rather than silently treated as an empty store.
package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"designbridge/pkg/logging"
)

// ErrNotFound indicates no record exists for the account.
var ErrNotFound = errors.New("no credential record for account")

// ErrCorrupt indicates the persisted store could not be decrypted: either
// the encryption secret is wrong or the ciphertext was tampered with.
// Callers must surface this loudly; it is indistinguishable from an attack.
var ErrCorrupt = errors.New("credential store corrupt: decryption failed")

const (
	// gcmNonceSize is the AES-GCM nonce ("iv") length in bytes.
	gcmNonceSize = 12

	// gcmTagSize is the AES-GCM authentication tag length in bytes.
	gcmTagSize = 16
)

// Store is the encrypted, file-backed credential store. Every operation is a
// full read-modify-write of the single document, serialized behind one mutex
// so concurrent mutations cannot lose updates.
type Store struct {
	mu   sync.Mutex
	path string
	key  [32]byte

	nowFunc func() time.Time
}

// NewStore creates a store persisting to path, keyed by a cipher key derived
// from secret. The parent directory is created with owner-only permissions.
func NewStore(path, secret string) (*Store, error) {
	if secret == "" {
		return nil, errors.New("encryption secret must not be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential store directory: %w", err)
	}

	return &Store{
		path:    path,
		key:     sha256.Sum256([]byte(secret)),
		nowFunc: time.Now,
	}, nil
}

// StoreToken creates or replaces the record for an account. A record is only
// ever created from a successful authorization-code exchange, so the refresh
// token must be present.
func (s *Store) StoreToken(accountID string, rec *CredentialRecord) error {
	if accountID == "" {
		return errors.New("account id must not be empty")
	}
	if rec.RefreshToken == "" {
		return errors.New("refusing to store record without refresh token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	stored := *rec
	stored.AccountID = accountID
	if stored.CreatedAt == 0 {
		stored.CreatedAt = s.nowFunc().UnixMilli()
	}

	records[accountID] = &stored

	if err := s.save(records); err != nil {
		logging.Error("CredStore", err, "Failed to persist credential record for account=%s", accountID)
		return err
	}

	// SECURITY AUDIT: record stored; token values are never logged.
	logging.Info("CredStore", "Stored credential record for account=%s (expires_at=%d)", accountID, stored.ExpiresAt)
	return nil
}

// GetToken returns the record for an account, or nil when none exists.
// Callers must treat nil as "not authenticated", not as an error.
func (s *Store) GetToken(accountID string) (*CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	rec, ok := records[accountID]
	if !ok {
		return nil, nil
	}

	copied := *rec
	return &copied, nil
}

// UpdateToken applies a refresh response to an existing record. It fails
// with ErrNotFound when the record was deleted (for example by a logout that
// raced an in-flight refresh); a refresh never resurrects a deleted record.
func (s *Store) UpdateToken(accountID string, upd TokenUpdate) (*CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	rec, ok := records[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, accountID)
	}

	rec.AccessToken = upd.AccessToken
	rec.ExpiresAt = upd.ExpiresAt
	if upd.RefreshToken != "" {
		rec.RefreshToken = upd.RefreshToken
	}
	if upd.Scope != "" {
		rec.Scope = upd.Scope
	}
	rec.LastRefreshedAt = s.nowFunc().UnixMilli()

	if err := s.save(records); err != nil {
		logging.Error("CredStore", err, "Failed to persist refreshed record for account=%s", accountID)
		return nil, err
	}

	logging.Debug("CredStore", "Updated credential record for account=%s (expires_at=%d, rotated_refresh=%t)",
		accountID, rec.ExpiresAt, upd.RefreshToken != "")

	copied := *rec
	return &copied, nil
}

// DeleteToken removes the record for an account. Deleting an absent record
// is not an error.
func (s *Store) DeleteToken(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := records[accountID]; !ok {
		return nil
	}

	delete(records, accountID)

	if err := s.save(records); err != nil {
		return err
	}

	// SECURITY AUDIT: record deleted.
	logging.Info("CredStore", "Deleted credential record for account=%s", accountID)
	return nil
}

// HasToken reports whether a record exists for the account.
func (s *Store) HasToken(accountID string) (bool, error) {
	rec, err := s.GetToken(accountID)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// ListAccounts returns the account identifiers with stored records, sorted.
func (s *Store) ListAccounts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	accounts := make([]string, 0, len(records))
	for accountID := range records {
		accounts = append(accounts, accountID)
	}
	sort.Strings(accounts)

	return accounts, nil
}

// load reads and decrypts the record map. A missing file is an empty store;
// a file that fails to decrypt is ErrCorrupt.
// REQUIRES: s.mu must be held by the caller.
func (s *Store) load() (map[string]*CredentialRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]*CredentialRecord), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	plaintext, err := s.decrypt(string(data))
	if err != nil {
		return nil, err
	}

	var records map[string]*CredentialRecord
	if err := json.Unmarshal(plaintext, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if records == nil {
		records = make(map[string]*CredentialRecord)
	}

	return records, nil
}

// save encrypts and atomically replaces the store file.
// REQUIRES: s.mu must be held by the caller.
func (s *Store) save(records map[string]*CredentialRecord) error {
	plaintext, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal credential records: %w", err)
	}

	encrypted, err := s.encrypt(plaintext)
	if err != nil {
		return err
	}

	// Write to a temp file in the same directory, then rename over the
	// store so readers never observe a partial write.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict temp store permissions: %w", err)
	}
	if _, err := tmp.WriteString(encrypted); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace credential store: %w", err)
	}

	return nil
}

// encrypt seals plaintext with AES-256-GCM. The on-disk form is
// hex(iv) || hex(authTag) || hex(ciphertext).
func (s *Store) encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to initialize GCM: %w", err)
	}

	iv := make([]byte, gcmNonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	// gcm.Seal appends the auth tag to the ciphertext; split them to match
	// the persisted layout.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	return hex.EncodeToString(iv) + hex.EncodeToString(tag) + hex.EncodeToString(ciphertext), nil
}

// decrypt opens the persisted hex(iv)||hex(authTag)||hex(ciphertext) form.
// Any failure (bad hex, wrong key, flipped ciphertext byte) is ErrCorrupt.
func (s *Store) decrypt(encoded string) ([]byte, error) {
	const ivHexLen = gcmNonceSize * 2
	const tagHexLen = gcmTagSize * 2

	if len(encoded) < ivHexLen+tagHexLen {
		return nil, fmt.Errorf("%w: truncated store file", ErrCorrupt)
	}

	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	iv := raw[:gcmNonceSize]
	tag := raw[gcmNonceSize : gcmNonceSize+gcmTagSize]
	ciphertext := raw[gcmNonceSize+gcmTagSize:]

	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return plaintext, nil
}
