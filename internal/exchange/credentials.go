package exchange

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"holdingsd/internal/domain"
	"holdingsd/internal/secrets"
)

// CredentialSet is the three-part signing identity for the exchange API,
// validated and decoded. All fields are non-empty once construction succeeds.
type CredentialSet struct {
	APIKey     string
	Secret     []byte // decoded from the base64 document field
	Passphrase string
}

var credentialFields = []string{"api_key", "api_secret_b64", "passphrase"}

// parseCredentialDocument validates a raw secret document and builds a
// CredentialSet. Construction is atomic: any invalid field rejects the
// whole document.
func parseCredentialDocument(doc string) (CredentialSet, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return CredentialSet{}, &domain.ConfigError{Msg: "secret document is not a JSON object", Err: err}
	}

	clean := make(map[string]string, len(credentialFields))
	for _, field := range credentialFields {
		v, _ := raw[field].(string)
		v = stripWrappingQuotes(v)
		if v == "" {
			return CredentialSet{}, &domain.ConfigError{Msg: fmt.Sprintf("secret missing or invalid %q", field)}
		}
		clean[field] = v
	}

	secret, err := base64.StdEncoding.DecodeString(clean["api_secret_b64"])
	if err != nil {
		return CredentialSet{}, &domain.ConfigError{Msg: "secret \"api_secret_b64\" is not valid base64", Err: err}
	}

	return CredentialSet{
		APIKey:     clean["api_key"],
		Secret:     secret,
		Passphrase: clean["passphrase"],
	}, nil
}

// stripWrappingQuotes removes a single layer of quote characters, which
// sneak in when secret values are pasted with shell quoting intact.
func stripWrappingQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == s[len(s)-1] && (s[0] == '"' || s[0] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// CredentialCache holds the most recently fetched credential set until its
// TTL passes. The credential and its expiry are read and written together
// under one lock so concurrent requests never see a half-written pair.
// Concurrent refreshes may fetch the document more than once; duplicate
// fetches are harmless.
type CredentialCache struct {
	source     secrets.Source
	secretName string
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	cached    *CredentialSet
	expiresAt time.Time
}

func NewCredentialCache(source secrets.Source, secretName string, ttl time.Duration) *CredentialCache {
	return &CredentialCache{
		source:     source,
		secretName: secretName,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached credential set, fetching and validating a fresh
// secret document when the cache is empty, expired, or forceRefresh is set.
// Validation failures are fatal: nothing is cached and nothing is retried.
func (c *CredentialCache) Get(ctx context.Context, forceRefresh bool) (CredentialSet, error) {
	c.mu.Lock()
	if !forceRefresh && c.cached != nil && c.now().Before(c.expiresAt) {
		set := *c.cached
		c.mu.Unlock()
		return set, nil
	}
	c.mu.Unlock()

	doc, err := c.source.GetSecret(ctx, c.secretName, secrets.StageCurrent)
	if err != nil {
		return CredentialSet{}, &domain.ConfigError{Msg: fmt.Sprintf("read secret %q", c.secretName), Err: err}
	}
	set, err := parseCredentialDocument(doc)
	if err != nil {
		return CredentialSet{}, err
	}

	c.mu.Lock()
	c.cached = &set
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()
	return set, nil
}

// Invalidate drops the cached credential so the next Get refetches
// regardless of remaining TTL.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}
