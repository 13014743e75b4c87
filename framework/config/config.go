package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig
	Container ContainerConfig
	Log       LogConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
}

type ContainerConfig struct {
	Strategy string // direct_match | first_direct_match | best_match | first | none
}

type LogConfig struct {
	Level       string // debug | info | warn | error
	Development bool
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
//
// The aspect switches (ASPECTS_*) are not part of Config: they are load
// conditions, read through Env when the container resolves handlers.
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	debug := envBool("APP_DEBUG", true)
	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "GoInject"),
			Env:   env("APP_ENV", "local"),
			Debug: debug,
		},
		Container: ContainerConfig{
			Strategy: env("CONTAINER_STRATEGY", "direct_match"),
		},
		Log: LogConfig{
			Level:       env("LOG_LEVEL", "info"),
			Development: envBool("LOG_DEVELOPMENT", debug),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// ── Env ───────────────────────────────────────────────────────────────────────

// Env exposes the process environment to load conditions. Property names are
// looked up as given first, then in their variable form:
//
//	aspects.metrics  → ASPECTS_METRICS
//	container-mode   → CONTAINER_MODE
type Env struct{}

// Lookup implements condition.Environment.
func (Env) Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	return os.LookupEnv(VarName(key))
}

// VarName converts a property name to its environment variable name.
func VarName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
