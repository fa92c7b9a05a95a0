package monitor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownCredential is returned by SetCredential for an unrecognised id.
var ErrUnknownCredential = errors.New("unknown credential")

// CredentialID identifies one mutable credential.
type CredentialID string

const (
	CredentialPoolAPIKey    CredentialID = "pool_api_key"
	CredentialWalletAddress CredentialID = "wallet_address"
)

// Credentials is the set of user-supplied identifiers the sources need.
// An empty value disables the source that depends on it.
type Credentials struct {
	PoolAPIKey    string `json:"pool_api_key"`
	WalletAddress string `json:"wallet_address"`
}

// Registry holds the configured sources and their credentials.
// Credential changes are picked up by the next cycle; a cycle that is
// already running keeps the copy it took when it started.
type Registry struct {
	mu      sync.RWMutex
	creds   Credentials
	sources []Source
}

func NewRegistry(creds Credentials) *Registry {
	return &Registry{creds: normalize(creds)}
}

// Register appends a source. Sources run in registration order.
func (r *Registry) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

// ActiveSources returns the registered sources in order.
func (r *Registry) ActiveSources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// SourceNames returns names of all registered sources.
func (r *Registry) SourceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

// Credentials returns a copy of the current credential set.
func (r *Registry) Credentials() Credentials {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.creds
}

// SetCredential updates one credential in place.
func (r *Registry) SetCredential(id CredentialID, value string) error {
	value = strings.TrimSpace(value)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch id {
	case CredentialPoolAPIKey:
		r.creds.PoolAPIKey = value
	case CredentialWalletAddress:
		r.creds.WalletAddress = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCredential, id)
	}
	return nil
}

func (r *Registry) SetPoolAPIKey(key string) {
	_ = r.SetCredential(CredentialPoolAPIKey, key)
}

func (r *Registry) SetWalletAddress(addr string) {
	_ = r.SetCredential(CredentialWalletAddress, addr)
}

func normalize(c Credentials) Credentials {
	return Credentials{
		PoolAPIKey:    strings.TrimSpace(c.PoolAPIKey),
		WalletAddress: strings.TrimSpace(c.WalletAddress),
	}
}
