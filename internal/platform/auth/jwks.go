package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Cached signing keys are considered fresh for this long.
	jwksCacheTTL = 5 * time.Minute
	// Minimum gap between refreshes triggered by an unknown kid, so a flood
	// of forged tokens cannot turn into a flood of requests to the IdP.
	jwksMissBackoff = 30 * time.Second
)

// jwk is one entry of the identity provider's published key set. Only RSA
// signing keys are used; encryption keys and other types are skipped.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// signingKey converts the JWK modulus/exponent pair into an *rsa.PublicKey.
func (k jwk) signingKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
	if k.Use != "" && k.Use != "sig" {
		return nil, errors.New("not a signing key")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	if len(eBytes) == 0 || len(eBytes) > 4 {
		return nil, fmt.Errorf("exponent length %d out of range", len(eBytes))
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

// JWKSCache holds the RSA signing keys published by the clinic's identity
// provider. Keys are refetched when the TTL lapses, or when a token arrives
// signed with a kid the cache has not seen, which is how key rotation shows
// up in practice.
type JWKSCache struct {
	jwksURL string
	ttl     time.Duration
	client  *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKSCache(jwksURL string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		jwksURL: jwksURL,
		ttl:     ttl,
		keys:    make(map[string]*rsa.PublicKey),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the signing key for kid, refreshing the cache if the kid is
// unknown or the cached set has gone stale.
func (c *JWKSCache) GetKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, known := c.keys[kid]
	fetchedAt := c.fetchedAt
	c.mu.RUnlock()

	fresh := time.Since(fetchedAt) <= c.ttl
	if known && fresh {
		return key, nil
	}
	if !known && fresh && !fetchedAt.IsZero() && time.Since(fetchedAt) < jwksMissBackoff {
		return nil, fmt.Errorf("signing key %q not in JWKS", kid)
	}

	if err := c.refresh(); err != nil {
		return nil, fmt.Errorf("refresh JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, known = c.keys[kid]
	if !known {
		return nil, fmt.Errorf("signing key %q not in JWKS", kid)
	}
	return key, nil
}

func (c *JWKSCache) refresh() error {
	resp, err := c.client.Get(c.jwksURL)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.jwksURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		pub, err := k.signingKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// jwksKeyFunc adapts a JWKSCache into the jwt parser's key lookup. The cache
// is shared across every token parsed with the returned func.
func jwksKeyFunc(jwksURL string) jwt.Keyfunc {
	cache := NewJWKSCache(jwksURL, jwksCacheTTL)
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return cache.GetKey(kid)
	}
}
