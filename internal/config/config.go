package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Escalation   EscalationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32

	// ConnectAttempts bounds startup retries while the database comes up.
	ConnectAttempts int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled               bool
	Addr                  string
	Password              string
	DB                    int
	PoolSize              int
	StatusCacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format  string
	Service string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	SeedAdminEmail        string
	SeedAdminPassword     string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// SLAConfig tunes the demand factor applied to new tickets.
type SLAConfig struct {
	Timezone         string
	PeakFactor       float64
	OffHoursFactor   float64
	NormalFactor     float64
	BusinessCalendar bool
	// Holidays are "MM-DD" or "MM-DD:Name" entries, comma separated in env.
	Holidays []string
	// FixedFactor overrides the hourly heuristic when positive.
	FixedFactor float64
}

// EscalationConfig controls the periodic escalation job.
type EscalationConfig struct {
	SchedulerEnabled bool
	Schedule         string
	SystemActorID    string
	RulesFile        string
	LockTTLSeconds   int
}

// Holiday is a parsed fixed-date holiday.
type Holiday struct {
	Name  string
	Month time.Month
	Day   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-escalation"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),

			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Enabled:               getEnvAsBool("REDIS_ENABLED", true),
			Addr:                  getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:              os.Getenv("REDIS_PASSWORD"),
			DB:                    redisDB,
			PoolSize:              getEnvAsInt("REDIS_POOL_SIZE", 10),
			StatusCacheTTLSeconds: getEnvAsInt("REDIS_STATUS_CACHE_TTL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			SeedAdminEmail:        getEnv("AUTH_SEED_ADMIN_EMAIL", "admin@example.com"),
			SeedAdminPassword:     getEnv("AUTH_SEED_ADMIN_PASSWORD", "admin-password"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		SLA: SLAConfig{
			Timezone:         getEnv("SLA_TIMEZONE", "UTC"),
			PeakFactor:       getEnvAsFloat("SLA_PEAK_FACTOR", 1.2),
			OffHoursFactor:   getEnvAsFloat("SLA_OFF_HOURS_FACTOR", 0.8),
			NormalFactor:     getEnvAsFloat("SLA_NORMAL_FACTOR", 1.0),
			BusinessCalendar: getEnvAsBool("SLA_BUSINESS_CALENDAR", false),
			Holidays:         getEnvAsList("SLA_HOLIDAYS"),
			FixedFactor:      getEnvAsFloat("SLA_FIXED_DEMAND_FACTOR", 0),
		},
		Escalation: EscalationConfig{
			SchedulerEnabled: getEnvAsBool("ESCALATION_SCHEDULER_ENABLED", true),
			Schedule:         getEnv("ESCALATION_SCHEDULE", "@every 5m"),
			SystemActorID:    getEnv("ESCALATION_SYSTEM_ACTOR_ID", "system"),
			RulesFile:        os.Getenv("ESCALATION_RULES_FILE"),
			LockTTLSeconds:   getEnvAsInt("ESCALATION_LOCK_TTL_SECONDS", 300),
		},
	}

	cfg.Logger.Service = cfg.App.Name

	if _, err := cfg.SLA.Location(); err != nil {
		return nil, err
	}
	if _, err := cfg.SLA.ParsedHolidays(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// StatusCacheTTL returns how long computed SLA statuses stay cached.
func (r RedisConfig) StatusCacheTTL() time.Duration {
	return time.Duration(r.StatusCacheTTLSeconds) * time.Second
}

// LockTTL returns the distributed job lock expiry.
func (e EscalationConfig) LockTTL() time.Duration {
	if e.LockTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(e.LockTTLSeconds) * time.Second
}

// Location resolves the SLA timezone.
func (s SLAConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_TIMEZONE %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// ParsedHolidays parses the holiday list.
func (s SLAConfig) ParsedHolidays() ([]Holiday, error) {
	out := make([]Holiday, 0, len(s.Holidays))
	for _, raw := range s.Holidays {
		date, name, _ := strings.Cut(raw, ":")
		parsed, err := time.Parse("01-02", strings.TrimSpace(date))
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", raw, err)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = parsed.Format("Jan 2")
		}
		out = append(out, Holiday{Name: name, Month: parsed.Month(), Day: parsed.Day()})
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
