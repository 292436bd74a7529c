package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
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

type Config struct {
	Port     string
	LogLevel string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	PrivateKey         string
	KeyID              string
	RefreshSecret      []byte
	JWKSURI            string
	JWKSRefreshEvery   time.Duration
	JWKSFetchPerMinute int

	CookieDomain string
	CookieSecure bool
	ClientURL    string

	KafkaBrokers []string
	KafkaTopic   string

	RedisAddr        string
	RedisPassword    string
	LoginMaxAttempts int
	LoginCooldown    time.Duration
}

// Load reads the environment (and an optional .env file). Missing required
// settings are reported together in one error.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found, using system environment variables")
	}

	cfg := &Config{
		Port:     EnvDefault("PORT", "5501"),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		DBDriver:   strings.ToLower(EnvDefault("DB_DRIVER", DriverPostgres)),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPath:     EnvDefault("DB_PATH", "auth.db"),

		PrivateKey:         os.Getenv("PRIVATE_KEY"),
		KeyID:              os.Getenv("JWT_KEY_ID"),
		RefreshSecret:      []byte(os.Getenv("REFRESH_TOKEN_SECRET_KEY")),
		JWKSURI:            os.Getenv("JWKS_URI"),
		JWKSRefreshEvery:   EnvDurationDefault("JWKS_REFRESH_INTERVAL", 10*time.Minute),
		JWKSFetchPerMinute: EnvIntDefault("JWKS_FETCH_RATE", 10),

		CookieDomain: os.Getenv("COOKIE_DOMAIN"),
		CookieSecure: EnvBoolDefault("COOKIE_SECURE", false),
		ClientURL:    os.Getenv("CLIENT_URL"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		LoginMaxAttempts: EnvIntDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginCooldown:    EnvDurationDefault("LOGIN_COOLDOWN", 15*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch c.DBDriver {
	case DriverPostgres:
		require(c.DBHost, "DB_HOST")
		require(c.DBPort, "DB_PORT")
		require(c.DBUser, "DB_USER")
		require(c.DBPassword, "DB_PASSWORD")
		require(c.DBName, "DB_NAME")
	case DriverSQLite:
		require(c.DBPath, "DB_PATH")
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	require(c.PrivateKey, "PRIVATE_KEY")
	require(string(c.RefreshSecret), "REFRESH_TOKEN_SECRET_KEY")
	require(c.JWKSURI, "JWKS_URI")

	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
