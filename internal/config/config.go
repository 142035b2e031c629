// Package config defines the service configuration and its env loading.
// Every knob has a default that works for local development with the memory
// drivers; production wiring swaps drivers via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration, loaded once at startup and never
// mutated afterwards.
type Config struct {
	Env string // "dev" | "prod"

	Server struct {
		Addr               string
		CORSAllowedOrigins []string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
	}

	Log struct {
		Level string
	}

	JWT struct {
		Issuer    string
		AccessTTL time.Duration
		// KeyRefreshInterval bounds how stale the gateway's cached
		// verification material may be. A revoked key is rejected at most
		// this long after revocation.
		KeyRefreshInterval time.Duration
	}

	// ClientApp is the single public app registration allowed to request
	// tokens; its ID is the required token audience.
	ClientApp struct {
		ID   string
		Name string
	}

	Storage struct {
		// Driver selects the user store: "memory" | "postgres".
		Driver string
		// DSNSecret names the secret holding the Postgres DSN.
		DSNSecret string
		Postgres  struct {
			MaxConns        int
			MinConns        int
			ConnMaxLifetime time.Duration
		}
	}

	Ledger struct {
		// Driver selects the ride ledger: "memory" | "postgres" | "redis".
		Driver string
		// PutTimeout bounds a single ledger write; a timed-out put surfaces
		// as a storage error, never a hang.
		PutTimeout time.Duration
	}

	Cache struct {
		Kind       string // "memory" | "redis"
		DefaultTTL time.Duration
	}

	Redis struct {
		Addr   string
		DB     int
		Prefix string
	}

	Auth struct {
		Verify struct {
			TTL time.Duration
		}
		Password struct {
			MinLength    int
			RequireUpper bool
			RequireLower bool
			RequireDigit bool
		}
	}

	Rate struct {
		Enabled     bool
		Window      time.Duration
		MaxRequests int
	}

	Fleet struct {
		Path string
	}

	SMTP struct {
		Host           string
		Port           int
		Username       string
		PasswordSecret string
		From           string
		// DebugEchoCodes logs verification codes instead of sending mail.
		// Forced off when Env is "prod".
		DebugEchoCodes bool
	}
}

// LoadFromEnv builds a Config from the environment.
func LoadFromEnv() *Config {
	c := &Config{}
	c.Env = getenv("APP_ENV", "dev")

	c.Server.Addr = getenv("SERVER_ADDR", ":8080")
	c.Server.CORSAllowedOrigins = splitCSVEnv(getenv("SERVER_CORS_ALLOWED_ORIGINS", "http://localhost:3000"))
	c.Server.ReadTimeout = getenvDur("SERVER_READ_TIMEOUT", 10*time.Second)
	c.Server.WriteTimeout = getenvDur("SERVER_WRITE_TIMEOUT", 30*time.Second)

	c.Log.Level = getenv("LOG_LEVEL", "info")

	c.JWT.Issuer = getenv("JWT_ISSUER", "http://localhost:8080")
	c.JWT.AccessTTL = getenvDur("JWT_ACCESS_TTL", 15*time.Minute)
	c.JWT.KeyRefreshInterval = getenvDur("JWT_KEY_REFRESH_INTERVAL", 5*time.Minute)

	c.ClientApp.ID = getenv("CLIENT_APP_ID", "wildrydes-web")
	c.ClientApp.Name = getenv("CLIENT_APP_NAME", "WildRydes Web")

	c.Storage.Driver = getenv("STORAGE_DRIVER", "memory")
	c.Storage.DSNSecret = getenv("STORAGE_DSN_SECRET", "STORAGE_DSN")
	c.Storage.Postgres.MaxConns = getenvInt("POSTGRES_MAX_CONNS", 5)
	c.Storage.Postgres.MinConns = getenvInt("POSTGRES_MIN_CONNS", 2)
	c.Storage.Postgres.ConnMaxLifetime = getenvDur("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute)

	c.Ledger.Driver = getenv("LEDGER_DRIVER", c.Storage.Driver)
	c.Ledger.PutTimeout = getenvDur("LEDGER_PUT_TIMEOUT", 3*time.Second)

	c.Cache.Kind = getenv("CACHE_KIND", "memory")
	c.Cache.DefaultTTL = getenvDur("CACHE_DEFAULT_TTL", 2*time.Minute)

	c.Redis.Addr = getenv("REDIS_ADDR", "localhost:6379")
	c.Redis.DB = getenvInt("REDIS_DB", 0)
	c.Redis.Prefix = getenv("REDIS_PREFIX", "rydes:")

	c.Auth.Verify.TTL = getenvDur("AUTH_VERIFY_TTL", 48*time.Hour)
	c.Auth.Password.MinLength = getenvInt("SECURITY_PASSWORD_MIN_LENGTH", 10)
	c.Auth.Password.RequireUpper = getenvBool("SECURITY_PASSWORD_REQUIRE_UPPER", true)
	c.Auth.Password.RequireLower = getenvBool("SECURITY_PASSWORD_REQUIRE_LOWER", true)
	c.Auth.Password.RequireDigit = getenvBool("SECURITY_PASSWORD_REQUIRE_DIGIT", true)

	c.Rate.Enabled = getenvBool("RATE_ENABLED", true)
	c.Rate.Window = getenvDur("RATE_WINDOW", time.Minute)
	c.Rate.MaxRequests = getenvInt("RATE_MAX_REQUESTS", 60)

	c.Fleet.Path = getenv("FLEET_PATH", "./fleet.yaml")

	c.SMTP.Host = getenv("SMTP_HOST", "")
	c.SMTP.Port = getenvInt("SMTP_PORT", 587)
	c.SMTP.Username = getenv("SMTP_USERNAME", "")
	c.SMTP.PasswordSecret = getenv("SMTP_PASSWORD_SECRET", "SMTP_PASSWORD")
	c.SMTP.From = getenv("SMTP_FROM", c.SMTP.Username)
	c.SMTP.DebugEchoCodes = getenvBool("SMTP_DEBUG_ECHO_CODES", true)

	// never echo codes in prod
	if strings.EqualFold(c.Env, "prod") {
		c.SMTP.DebugEchoCodes = false
	}

	return c
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSVEnv(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
