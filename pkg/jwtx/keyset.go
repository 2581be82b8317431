package jwtx

import (
	"sort"
	"sync"
	"time"
)

// SigningKey is one verification key published by the identity provider.
type SigningKey struct {
	KID       string
	Algorithm string // "alg" member of the JWK, may be empty
	Public    any    // *rsa.PublicKey | *ecdsa.PublicKey | ed25519.PublicKey
	FetchedAt time.Time
}

// KeySet holds the most recent successful JWKS fetch in memory, keyed by kid.
// It is safe for concurrent use; readers never block each other.
type KeySet struct {
	mu        sync.RWMutex
	keys      map[string]SigningKey
	fetchedAt time.Time
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{
		keys: make(map[string]SigningKey),
	}
}

// Get returns the key for kid. The bool is false when the kid is unknown.
func (k *KeySet) Get(kid string) (SigningKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	sk, ok := k.keys[kid]
	return sk, ok
}

// FetchedAt returns when the current key set was installed. Zero if never.
func (k *KeySet) FetchedAt() time.Time {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.fetchedAt
}

// Fresh reports whether the set was populated and is younger than ttl.
func (k *KeySet) Fresh(now time.Time, ttl time.Duration) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.fetchedAt.IsZero() {
		return false
	}
	return now.Sub(k.fetchedAt) < ttl
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}

// Snapshot returns the loaded keys ordered by kid.
func (k *KeySet) Snapshot() []SigningKey {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]SigningKey, 0, len(k.keys))
	for _, sk := range k.keys {
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KID < out[j].KID })
	return out
}

// Replace swaps the whole set atomically. Keys missing from the new set are
// dropped, which is how rotated-out keys disappear.
func (k *KeySet) Replace(keys map[string]SigningKey, fetchedAt time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = keys
	k.fetchedAt = fetchedAt
}

// ParseJWKS converts a JWKS document into signing keys. Encryption keys and
// key types we can't verify with are skipped and reported by kid in skipped.
// Keys without a kid can never be selected and are skipped as well.
func ParseJWKS(set JWKS, fetchedAt time.Time) (keys map[string]SigningKey, skipped []string) {
	keys = make(map[string]SigningKey, len(set.Keys))
	for _, j := range set.Keys {
		if j.Use == "enc" || j.Kid == "" {
			skipped = append(skipped, j.Kid)
			continue
		}
		pub, err := j.PublicKey()
		if err != nil {
			skipped = append(skipped, j.Kid)
			continue
		}
		keys[j.Kid] = SigningKey{
			KID:       j.Kid,
			Algorithm: j.Alg,
			Public:    pub,
			FetchedAt: fetchedAt,
		}
	}
	return keys, skipped
}
