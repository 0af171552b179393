package credential

import "errors"

// Tokens exposes the bearer token held in a Store. It satisfies the token
// sink used by the request builder and the token source used by the backend
// client.
type Tokens struct {
	store Store
}

func NewTokens(store Store) *Tokens {
	return &Tokens{store: store}
}

// Token returns the stored token, or "" when none is stored or the store
// cannot be read.
func (t *Tokens) Token() string {
	v, err := t.store.Get(TokenKey)
	if err != nil {
		return ""
	}
	return v
}

// HasToken reports whether a non-empty token is stored.
func (t *Tokens) HasToken() bool {
	return t.Token() != ""
}

// SetToken overwrites the stored token.
func (t *Tokens) SetToken(token string) error {
	return t.store.Set(TokenKey, token)
}

// ClearToken removes the stored token.
func (t *Tokens) ClearToken() error {
	return t.store.Delete(TokenKey)
}

// Lookup returns the value for key, or "" when it is absent.
func Lookup(s Store, key string) (string, error) {
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
