// Package cache provides the content-addressed, file-backed store that makes
// every expensive pipeline stage idempotent. Entries are keyed by a
// cryptographic digest of their semantic inputs, so identical inputs always
// map to the same cache file and recomputation is hash-triggered, never
// time-triggered.
package cache

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is a directory of JSON cache entries addressed by digest.
type Store struct {
	dir string
}

// NewStore creates the cache directory if needed and returns a store rooted
// at it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: cannot create directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Digest returns the hex SHA-512 digest of the concatenated byte slices.
func Digest(parts ...[]byte) string {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Key derives a cache key by hashing the underscore-joined string parts.
// Callers compose keys from input digests and artifact identifiers.
func Key(parts ...string) string {
	sum := sha512.Sum512([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(sum[:])
}

// Path returns the cache file path for a key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, "resolved_policy_"+key+".json")
}

// Load reads the entry for key into v. It returns false when no entry exists
// and an error when the entry is present but unreadable or corrupt; callers
// treat that error as a cache miss and recompute.
func (s *Store) Load(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.Path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: failed to read entry %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("cache: corrupt entry %s: %w", key, err)
	}
	return true, nil
}

// Save writes v as the entry for key. Caching is best-effort: callers log a
// save failure and still return their result.
func (s *Store) Save(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: failed to marshal entry %s: %w", key, err)
	}
	if err := os.WriteFile(s.Path(key), data, 0o644); err != nil {
		return fmt.Errorf("cache: failed to write entry %s: %w", key, err)
	}
	return nil
}
