package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	FederationConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
	GetBaseURL() string
	GetDatabaseURL() string
	GetTenantsFile() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type SecurityConfig interface {
	GetSessionSigningKey() string
	GetMaxSessionAge() time.Duration
	GetDirectoryTimeout() time.Duration
	GetLoginRatePerSecond() float64
	GetLoginBurst() int
}

type FederationConfig interface {
	GetFlowTTL() time.Duration
	GetFederatedCallbackURL() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Federation
}

func New() Config {
	return mainConfig{}
}
