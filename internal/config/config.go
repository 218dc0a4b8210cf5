package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by MANTIC_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("MANTIC_ENV")
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

// DatabaseURL returns the Postgres connection string. Empty means no
// persistence: sessions run in memory and history lookups return nothing.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// ExtractProvider returns the configured extraction provider.
// Defaults to "none" if not set.
// Valid values: openai, anthropic, mock, none
func ExtractProvider() string {
	p := os.Getenv("EXTRACT_PROVIDER")
	if p == "" {
		return "none"
	}
	return p
}

// ExtractAPIKey returns the API key for the configured extraction provider.
func ExtractAPIKey() string {
	switch ExtractProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "openai":
		return OpenAIAPIKey()
	default:
		return ""
	}
}

// SessionTTL returns how long an idle session survives before eviction.
// Defaults to 30m if not set.
func SessionTTL() time.Duration {
	ttl, err := time.ParseDuration(os.Getenv("SESSION_TTL"))
	if err != nil || ttl <= 0 {
		return 30 * time.Minute
	}
	return ttl
}

// ExtractTimeout returns the per-call budget for the extraction provider.
// Defaults to 8s if not set.
func ExtractTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("EXTRACT_TIMEOUT"))
	if err != nil || d <= 0 {
		return 8 * time.Second
	}
	return d
}

// MaxTheories returns how many theories one analysis may select.
// Defaults to 5 if not set.
func MaxTheories() int {
	n, err := strconv.Atoi(os.Getenv("MAX_THEORIES"))
	if err != nil || n < 1 {
		return 5
	}
	return n
}

// MinTheories returns the preferred minimum selection size before the
// fallback threshold kicks in. Defaults to 3 if not set.
func MinTheories() int {
	n, err := strconv.Atoi(os.Getenv("MIN_THEORIES"))
	if err != nil || n < 1 {
		return 3
	}
	return n
}

// EpsilonConsistent returns the level-delta band below which two readings
// count as consistent. Defaults to 0.2 if not set.
func EpsilonConsistent() float64 {
	return envFloat("EPSILON_CONSISTENT", 0.2)
}

// EpsilonMinor returns the upper bound of the minor-divergence band.
// Defaults to 0.4 if not set.
func EpsilonMinor() float64 {
	return envFloat("EPSILON_MINOR", 0.4)
}

// EpsilonSignificant returns the upper bound of the significant band for
// same-side readings. Defaults to 0.5 if not set.
func EpsilonSignificant() float64 {
	return envFloat("EPSILON_SIGNIFICANT", 0.5)
}

// ConfidenceExponent returns the exponent applied to confidence when
// blending divergent readings. Defaults to 1.5 if not set.
func ConfidenceExponent() float64 {
	return envFloat("CONFIDENCE_EXPONENT", 1.5)
}

func envFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
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
