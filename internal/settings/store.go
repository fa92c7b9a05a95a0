// Package settings persists the user-editable credentials between restarts.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

// ErrNotFound is returned by Get for a key that was never set.
var ErrNotFound = errors.New("setting not found")

// Store is a small string key/value store. An empty value is a real value,
// distinct from a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	KeyPoolAPIKey    = string(monitor.CredentialPoolAPIKey)
	KeyWalletAddress = string(monitor.CredentialWalletAddress)
)

// LoadCredentials reads the persisted credentials. A key that was never
// persisted is taken from seed and written back; a persisted empty value
// stays empty.
func LoadCredentials(ctx context.Context, s Store, seed monitor.Credentials) (monitor.Credentials, error) {
	var creds monitor.Credentials
	fields := []struct {
		key  string
		dst  *string
		seed string
	}{
		{KeyPoolAPIKey, &creds.PoolAPIKey, seed.PoolAPIKey},
		{KeyWalletAddress, &creds.WalletAddress, seed.WalletAddress},
	}
	for _, f := range fields {
		v, err := s.Get(ctx, f.key)
		switch {
		case errors.Is(err, ErrNotFound):
			v = f.seed
			if v != "" {
				if err := s.Set(ctx, f.key, v); err != nil {
					return seed, fmt.Errorf("seed %s: %w", f.key, err)
				}
			}
		case err != nil:
			return seed, fmt.Errorf("load %s: %w", f.key, err)
		}
		*f.dst = v
	}
	return creds, nil
}

// SaveCredentials writes both credentials.
func SaveCredentials(ctx context.Context, s Store, creds monitor.Credentials) error {
	if err := s.Set(ctx, KeyPoolAPIKey, creds.PoolAPIKey); err != nil {
		return fmt.Errorf("save %s: %w", KeyPoolAPIKey, err)
	}
	if err := s.Set(ctx, KeyWalletAddress, creds.WalletAddress); err != nil {
		return fmt.Errorf("save %s: %w", KeyWalletAddress, err)
	}
	return nil
}
