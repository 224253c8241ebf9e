package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	folderEnvVar      = "FOLDER"
	baseURLVar        = "BASE_URL"
	databaseURLVar    = "DATABASE_URL"
	tenantsFileVar    = "TENANTS_FILE"
	logLevelVar       = "LOG_LEVEL"
	envVar            = "ENV"
	DevelopmentEnvVal = "DEV"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Auth")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, DevelopmentEnvVal)
}

// GetBaseURL returns the externally visible base URL (e.g., "https://auth.example.com").
// Federated callback URLs are derived from it.
func (EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

// GetDatabaseURL returns the Postgres connection string. Empty selects the
// in-memory repositories.
func (EnvVars) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "")
}

// GetTenantsFile returns the YAML seed applied to in-memory repositories.
func (e EnvVars) GetTenantsFile() string {
	return GetEnv(tenantsFileVar, e.GetDataFolder()+"/tenants.yaml")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration parses a Go duration, falling back to defaultValue when unset
// or malformed.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func GetFloat(envVar string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(envVar), 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

func GetInt(envVar string, defaultValue int) int {
	i, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil || i <= 0 {
		return defaultValue
	}
	return i
}
