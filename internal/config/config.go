// Package config loads assistant settings from layered INI files: a root
// setting.ini selects the environment, then config/<env>/assist.ini supplies
// the environment values. Environment variables (ASSIST_*) win over both.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	settingsFile     = "config/setting.ini"
	defaultEnv       = "dev"
	envConfigPattern = "config/%s/assist.ini"
)

// Settings contains global toggles such as the active environment.
type Settings struct {
	Environment string
	Defaults    map[string]string
}

// AssistConfig describes runtime options for the delivery daemon.
type AssistConfig struct {
	Environment string
	ListenAddr  string

	LogFile  string
	LogLevel string

	// Rate limiting for streaming deliveries
	RateLimitRequests int64
	RateLimitWindow   time.Duration
	RateLimitBackend  string // memory|redis

	// Session registry
	SessionTTL     time.Duration
	SessionBackend string // memory|redis
	SweepInterval  time.Duration

	// Shared Redis connection, used when any backend selects redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Usage ledger
	LedgerBackend   string // sqlite|postgres|off
	LedgerPath      string
	LedgerAsync     bool
	PostgresDSN     string
	PostgresMaxOpen int
	PostgresMaxIdle int

	// Answer generator
	GeneratorBaseURL string
	GeneratorAPIKey  string
	GeneratorModel   string
	UseLoopback      bool

	// Transport negotiation
	TransportHintsFile string

	// Delivery defaults applied when a request omits its own config
	DefaultChunkSize     int
	DefaultChunkDelayMs  int
	DefaultTypingEnabled bool
	DefaultHeartbeatSecs int
	DefaultMaxChunks     int
}

// LoadAssistConfig reads the current environment and loads the appropriate
// config file relative to root.
func LoadAssistConfig(root string) (AssistConfig, error) {
	if root == "" {
		root = "."
	}
	s, err := loadSettings(root)
	if err != nil {
		return AssistConfig{}, err
	}

	envValues, err := parseINI(filepath.Join(root, fmt.Sprintf(envConfigPattern, s.Environment)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			envValues = map[string]string{}
		} else {
			return AssistConfig{}, err
		}
	}

	merged := make(map[string]string)
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range envValues {
		merged[k] = v
	}

	cfg := AssistConfig{
		Environment: s.Environment,
		ListenAddr:  firstNonEmpty(os.Getenv("ASSIST_LISTEN_ADDR"), merged["listen_addr"], ":8086"),
		LogFile:     firstNonEmpty(os.Getenv("ASSIST_LOG_FILE"), merged["log_file"]),
		LogLevel:    firstNonEmpty(os.Getenv("ASSIST_LOG_LEVEL"), merged["log_level"], "info"),

		RateLimitRequests: int64(parseOptionalInt(firstNonEmpty(os.Getenv("ASSIST_RATE_LIMIT_REQUESTS"), merged["rate_limit_requests"]), 10)),
		RateLimitBackend:  firstNonEmpty(os.Getenv("ASSIST_RATE_LIMIT_BACKEND"), merged["rate_limit_backend"], "memory"),

		SessionBackend: firstNonEmpty(os.Getenv("ASSIST_SESSION_BACKEND"), merged["session_backend"], "memory"),

		RedisAddr:     firstNonEmpty(os.Getenv("ASSIST_REDIS_ADDR"), merged["redis_addr"], "localhost:6379"),
		RedisPassword: firstNonEmpty(os.Getenv("ASSIST_REDIS_PASSWORD"), merged["redis_password"]),
		RedisDB:       parseOptionalInt(firstNonEmpty(os.Getenv("ASSIST_REDIS_DB"), merged["redis_db"]), 0),

		LedgerBackend:   firstNonEmpty(os.Getenv("ASSIST_LEDGER_BACKEND"), merged["ledger_backend"], "sqlite"),
		LedgerPath:      firstNonEmpty(os.Getenv("ASSIST_LEDGER_PATH"), merged["ledger_path"], DefaultLedgerPath()),
		LedgerAsync:     parseOptionalBool(firstNonEmpty(os.Getenv("ASSIST_LEDGER_ASYNC"), merged["ledger_async"]), false),
		PostgresDSN:     firstNonEmpty(os.Getenv("ASSIST_POSTGRES_DSN"), merged["postgres_dsn"]),
		PostgresMaxOpen: parseOptionalInt(merged["postgres_max_open"], 10),
		PostgresMaxIdle: parseOptionalInt(merged["postgres_max_idle"], 5),

		GeneratorBaseURL: firstNonEmpty(os.Getenv("ASSIST_GENERATOR_BASE_URL"), merged["generator_base_url"]),
		GeneratorAPIKey:  firstNonEmpty(os.Getenv("ASSIST_GENERATOR_API_KEY"), merged["generator_api_key"]),
		GeneratorModel:   firstNonEmpty(os.Getenv("ASSIST_GENERATOR_MODEL"), merged["generator_model"], "gpt-4o-mini"),
		UseLoopback:      parseOptionalBool(firstNonEmpty(os.Getenv("ASSIST_USE_LOOPBACK"), merged["use_loopback"]), false),

		TransportHintsFile: firstNonEmpty(os.Getenv("ASSIST_TRANSPORT_HINTS_FILE"), merged["transport_hints_file"]),

		DefaultChunkSize:     parseOptionalInt(merged["default_chunk_size"], 120),
		DefaultChunkDelayMs:  parseOptionalInt(merged["default_chunk_delay_ms"], 50),
		DefaultTypingEnabled: parseOptionalBool(merged["default_typing_indicator"], true),
		DefaultHeartbeatSecs: parseOptionalInt(merged["default_heartbeat_seconds"], 15),
		DefaultMaxChunks:     parseOptionalInt(merged["default_max_chunks"], 100),
	}

	if v := firstNonEmpty(os.Getenv("ASSIST_RATE_LIMIT_WINDOW"), merged["rate_limit_window"]); v != "" {
		dur, err := time.ParseDuration(v)
		if err != nil {
			return AssistConfig{}, fmt.Errorf("invalid rate_limit_window %q: %w", v, err)
		}
		cfg.RateLimitWindow = dur
	} else {
		cfg.RateLimitWindow = time.Hour
	}

	if v := firstNonEmpty(os.Getenv("ASSIST_SESSION_TTL"), merged["session_ttl"]); v != "" {
		dur, err := time.ParseDuration(v)
		if err != nil {
			return AssistConfig{}, fmt.Errorf("invalid session_ttl %q: %w", v, err)
		}
		cfg.SessionTTL = dur
	}

	if v := firstNonEmpty(os.Getenv("ASSIST_SWEEP_INTERVAL"), merged["sweep_interval"]); v != "" {
		dur, err := time.ParseDuration(v)
		if err != nil {
			return AssistConfig{}, fmt.Errorf("invalid sweep_interval %q: %w", v, err)
		}
		cfg.SweepInterval = dur
	} else {
		cfg.SweepInterval = 30 * time.Second
	}

	switch cfg.RateLimitBackend {
	case "memory", "redis":
	default:
		return AssistConfig{}, fmt.Errorf("invalid rate_limit_backend %q", cfg.RateLimitBackend)
	}
	switch cfg.SessionBackend {
	case "memory", "redis":
	default:
		return AssistConfig{}, fmt.Errorf("invalid session_backend %q", cfg.SessionBackend)
	}
	switch cfg.LedgerBackend {
	case "sqlite", "postgres", "off":
	default:
		return AssistConfig{}, fmt.Errorf("invalid ledger_backend %q", cfg.LedgerBackend)
	}
	if cfg.LedgerBackend == "postgres" && cfg.PostgresDSN == "" {
		return AssistConfig{}, errors.New("ledger_backend postgres requires postgres_dsn")
	}

	return cfg, nil
}

func loadSettings(root string) (Settings, error) {
	values, err := parseINI(filepath.Join(root, settingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return Settings{Environment: defaultEnv, Defaults: map[string]string{}}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	env := values["environment"]
	if env == "" {
		env = defaultEnv
	}
	defaults := make(map[string]string)
	for k, v := range values {
		if k == "environment" {
			continue
		}
		defaults[k] = v
	}
	return Settings{Environment: env, Defaults: defaults}, nil
}

func parseINI(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		values[strings.ToLower(key)] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseOptionalBool(v string, fallback bool) bool {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return parseBool(v)
}

func parseOptionalInt(v string, fallback int) int {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return parsed
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// DefaultLedgerPath returns the fallback ledger location under the user's home directory.
func DefaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ledger.db"
	}
	return filepath.Join(home, ".woo-ai-assistant", "ledger.db")
}
