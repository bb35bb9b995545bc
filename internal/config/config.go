package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	SessionConfig
	BackendConfig
	OIDCConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
	GetBaseURL() string
}

// SessionConfig controls where the session is persisted and how tabs are kept in sync.
type SessionConfig interface {
	GetSessionStore() string // memory | file | redis
	GetSessionStoreKey() string
	GetSyncBus() string // memory | redis
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetLoginPath() string
}

type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
	GetBackendRetryCount() int
}

type OIDCConfig interface {
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetOIDCScopes() []string
}

type mainConfig struct {
	EnvVars
	Session
	Backend
	OIDC
}

// New returns the environment backed configuration. Values from a .env file in the
// working directory are loaded first; variables already set in the environment win.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
