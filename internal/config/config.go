package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/axisfin/conductor/internal/domain"
)

// Load reads the .env file specified by CONDUCTOR_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CONDUCTOR_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func GoogleAPIKey() string {
	return os.Getenv("GOOGLE_API_KEY")
}

func OpenRouterAPIKey() string {
	return os.Getenv("OPENROUTER_API_KEY")
}

// ServiceAPIKey is the single shared API key used to authenticate requests
// when running without a tenant database.
func ServiceAPIKey() string {
	return os.Getenv("SERVICE_API_KEY")
}

// CredentialsBackend returns where provider API keys are verified and
// fetched from. Defaults to "postgres" when DATABASE_URL is set, "static"
// otherwise.
// Valid values: postgres, static
func CredentialsBackend() string {
	b := os.Getenv("CREDENTIALS_BACKEND")
	if b != "" {
		return b
	}
	if DatabaseURL() != "" {
		return "postgres"
	}
	return "static"
}

// StaticProviderKeys returns the env-configured provider keys used by the
// static credentials backend.
func StaticProviderKeys() map[domain.Provider]string {
	return map[domain.Provider]string{
		domain.ProviderGoogle:     GoogleAPIKey(),
		domain.ProviderOpenRouter: OpenRouterAPIKey(),
	}
}

// CredentialCacheTTL returns how long verified credentials are cached.
// Zero means the credential source's default applies.
func CredentialCacheTTL() time.Duration {
	ttl, err := time.ParseDuration(os.Getenv("CREDENTIAL_CACHE_TTL"))
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

// AgentRuntime returns the configured agent runtime.
// Defaults to "simulated" if not set.
// Valid values: simulated, http
func AgentRuntime() string {
	rt := os.Getenv("AGENT_RUNTIME")
	if rt == "" {
		return "simulated"
	}
	return rt
}

// AgentRuntimeURL returns the base URL of the external agent runtime.
// Required when AGENT_RUNTIME is "http".
func AgentRuntimeURL() string {
	return os.Getenv("AGENT_RUNTIME_URL")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
