package config

import (
	"strings"
	"time"
)

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionStore() string {
	return strings.ToLower(GetEnv("SESSION_STORE", "file"))
}

// GetSessionStoreKey returns a 32 byte key (hex or raw) used to seal the file store.
// An empty value stores the session as plain JSON.
func (Session) GetSessionStoreKey() string {
	return GetEnv("SESSION_STORE_KEY", "")
}

func (Session) GetSyncBus() string {
	return strings.ToLower(GetEnv("SYNC_BUS", "memory"))
}

func (Session) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Session) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Session) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Session) GetLoginPath() string {
	return GetEnv("LOGIN_PATH", "/login")
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendURL() string {
	return GetEnv("BACKEND_URL", "http://localhost:9000/api")
}

func (Backend) GetBackendTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv("BACKEND_TIMEOUT", "15s"))
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetBackendRetryCount is handed to the HTTP client. The session store itself never retries.
func (Backend) GetBackendRetryCount() int {
	return GetEnvInt("BACKEND_RETRY_COUNT", 0)
}

type OIDC struct{}

var _ OIDCConfig = OIDC{}

// GetOIDCIssuer returns the SSO issuer. SSO login is disabled when empty.
func (OIDC) GetOIDCIssuer() string {
	return GetEnv("OIDC_ISSUER", "")
}

func (OIDC) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (OIDC) GetOIDCClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (OIDC) GetOIDCScopes() []string {
	return strings.Fields(GetEnv("OIDC_SCOPES", "openid profile email"))
}
