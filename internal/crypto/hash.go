// Package crypto provides hashing for anonymous requester contact details,
// so quota and unique-requester identity keys never store raw contact info.
package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// contactHashCache caches HashContact results keyed by "contact:eventID".
// Entries are small and bounded by the number of distinct anonymous
// requesters per process lifetime.
var contactHashCache sync.Map

// Scrypt parameters: N=16384 (2^14), r=8, p=1 are recommended for
// interactive use.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// HashWithScrypt hashes an input string using scrypt with the given salt.
// The salt is lowercased before use. Returns hex-encoded hash.
func HashWithScrypt(input, salt string) (string, error) {
	saltBytes := []byte(strings.ToLower(salt))
	dk, err := scrypt.Key([]byte(input), saltBytes, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("scrypt key derivation failed: %w", err)
	}
	return hex.EncodeToString(dk), nil
}

// HashContact derives a stable identity key from an anonymous requester's
// contact info. Normalizes the contact (lowercase, trim) and salts with the
// event ID so the same contact cannot be correlated across events. Results
// are cached to avoid repeated scrypt computation.
func HashContact(contact, eventID string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(contact))
	cacheKey := normalized + ":" + eventID

	if cached, ok := contactHashCache.Load(cacheKey); ok {
		return cached.(string), nil
	}

	hash, err := HashWithScrypt(normalized, eventID)
	if err != nil {
		return "", err
	}

	contactHashCache.Store(cacheKey, hash)
	return hash, nil
}
