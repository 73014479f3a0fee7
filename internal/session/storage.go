package session

import (
	"fmt"

	"github.com/ezfix/portal/internal/config"
)

// Persisted keys. Older clients wrote "token" for the access token; it is
// read once during restore and never written.
const (
	KeyUser         = "user"
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"

	legacyKeyToken = "token"
)

// Storage is a flat string key/value store for session credentials.
type Storage interface {
	Get(key string) (string, bool)
	Set(values map[string]string) error
	Delete(keys ...string) error
}

// OpenStorage returns the storage tier named by cfg.
func OpenStorage(cfg *config.Config) (Storage, error) {
	switch cfg.SessionTier {
	case config.TierSession:
		return NewMemoryStorage(), nil
	case config.TierLocal:
		fs, err := NewFileStorage(cfg.SessionFile)
		if err != nil {
			return nil, fmt.Errorf("open session file: %w", err)
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown session tier %q", cfg.SessionTier)
	}
}
