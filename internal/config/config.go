package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// dev-only fallback, Validate refuses it anywhere else
const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Env  string
	Port int

	DBDriver   string
	DBURL      string
	SQLitePath string

	JWTSecret     string
	JWTTTLMinutes int

	EnforceOwnership bool
	SeedDepartments  []string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	CORSAllowedOrigins    []string
	RequestTimeoutSeconds int
	MaxBodyBytes          int64

	OTelEndpoint    string
	OTelInsecure    bool
	OTelSampleRatio float64
	ServiceName     string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	secret := getEnv("JWT_SECRET", "")
	if secret == "" && env == "dev" {
		secret = devJWTSecret
	}

	return Config{
		Env:  env,
		Port: getEnvInt("PORT", 3000),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBURL:      buildDBURL(),
		SQLitePath: getEnv("SQLITE_PATH", "data/mural.db"),

		JWTSecret:     secret,
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 24*60),

		EnforceOwnership: getEnvBool("ENFORCE_OWNERSHIP", false),
		SeedDepartments:  getEnvList("SEED_DEPARTMENTS", []string{"Geral", "RH", "TI", "Financeiro"}),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 10),

		CORSAllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RequestTimeoutSeconds: getEnvInt("REQUEST_TIMEOUT_SECONDS", 5),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelInsecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTelSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
		ServiceName:     getEnv("OTEL_SERVICE_NAME", "mural-api"),
	}
}

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET must be set outside dev")
	ErrUnknownDriver    = errors.New("DB_DRIVER must be postgres or sqlite")
)

func (c Config) Validate() error {
	if c.JWTSecret == "" || (c.Env != "dev" && c.JWTSecret == devJWTSecret) {
		return ErrMissingJWTSecret
	}

	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return ErrUnknownDriver
	}

	return nil
}

func (c Config) JWTTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "mural")
	pass := getEnv("DB_PASSWORD", "mural")
	name := getEnv("DB_NAME", "mural")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean in environment, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid number in environment, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
