package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	portEnvVar     = "PORT"
	hostEnvVar     = "HOST"
	appNameVar     = "APP_NAME"
	folderEnvVar   = "FOLDER"
	baseURLVar     = "BASE_URL"
	logLevelEnvVar = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address. A bare PORT binds to HOST, which defaults
// to loopback; a PORT that already names a host (or ":8080" for all
// interfaces) is used as is.
func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if strings.Contains(port, ":") {
		return port
	}
	return fmt.Sprintf("%s:%s", GetEnv(hostEnvVar, "127.0.0.1"), port)
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Session")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the externally visible URL of the shell (e.g., "https://app.example.com").
// Used to build the SSO redirect URI.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}
