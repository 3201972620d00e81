package jwtx

import (
	"crypto/ed25519"
	"errors"
	"sort"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds Ed25519 verification keys by kid. Safe for concurrent use.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]ed25519.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]ed25519.PublicKey)}
}

// AddSigner registers the signer's public key under its kid.
func (k *KeySet) AddSigner(s *EdDSASigner) {
	k.Add(s.KID(), s.PublicKey())
}

// Add registers pub under kid, replacing any existing key.
func (k *KeySet) Add(kid string, pub ed25519.PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[kid] = pub
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (ed25519.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// Len reports how many keys are loaded.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub)
}

// PublicJWKS returns the keys as a JWKS, ordered by kid.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()

	jwks := JWKS{Keys: make([]JWK, 0, len(k.pub))}
	for kid, pub := range k.pub {
		jwks.Keys = append(jwks.Keys, NewEd25519JWK(kid, pub))
	}
	sort.Slice(jwks.Keys, func(i, j int) bool { return jwks.Keys[i].Kid < jwks.Keys[j].Kid })
	return jwks
}

// ResetFromJWKS replaces every key with those in jwks, e.g. after fetching
// them from the accounts service.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	next := make(map[string]ed25519.PublicKey, len(jwks.Keys))
	for _, j := range jwks.Keys {
		pub, err := j.PublicKey()
		if err != nil {
			return err
		}
		next[j.Kid] = pub
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = next
	return nil
}
