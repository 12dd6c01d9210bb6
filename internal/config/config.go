package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

const minJWTSecretBytes = 32

type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string
	Domain   string
}

type Config struct {
	AppPort  string
	Env      string
	LogLevel string

	DBDSN             string
	DBLogLevel        logger.LogLevel
	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret     string
	JWTExpiresMin int
	Cookie        CookieConfig
	CORSOrigins   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MaxBidRatio      float64
	BidAwardPolicy   string
	EnforceOwnership bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
}

// Load reads the configuration from the environment. godotenv is applied by the caller.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		AppPort:  get("APP_PORT", "8000"),
		Env:      get("APP_ENV", "development"),
		LogLevel: get("LOG_LEVEL", "info"),

		DBDSN:             get("DB_DSN", ""),
		DBLogLevel:        getLogLevel("DB_LOG_LEVEL", logger.Warn),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10, &errs),
		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 50, &errs),
		DBConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", time.Hour, &errs),

		JWTSecret:     get("JWT_SECRET", ""),
		JWTExpiresMin: getInt("JWT_EXPIRES_MIN", 10080, &errs),
		Cookie: CookieConfig{
			Name:     "token",
			Secure:   getBool("COOKIE_SECURE", false, &errs),
			SameSite: strings.ToLower(get("COOKIE_SAMESITE", fiber.CookieSameSiteLaxMode)),
			Domain:   get("COOKIE_DOMAIN", ""),
		},
		CORSOrigins: get("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"),

		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0, &errs),

		MaxBidRatio:      getFloat("MAX_BID_RATIO", 0.95, &errs),
		BidAwardPolicy:   get("BID_AWARD_POLICY", "reject_others"),
		EnforceOwnership: getBool("ENFORCE_PROJECT_OWNERSHIP", true, &errs),

		ReadTimeout:  getDuration("HTTP_READ_TIMEOUT", 15*time.Second, &errs),
		WriteTimeout: getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second, &errs),
		IdleTimeout:  getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second, &errs),

		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:5173"),
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	return cfg, errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	if c.DBDSN == "" {
		errs = append(errs, errors.New("missing env: DB_DSN"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing env: JWT_SECRET"))
	} else if len(c.JWTSecret) < minJWTSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretBytes))
	}
	if c.JWTExpiresMin <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_MIN must be positive"))
	}

	switch c.Cookie.SameSite {
	case fiber.CookieSameSiteLaxMode, fiber.CookieSameSiteStrictMode:
	case fiber.CookieSameSiteNoneMode:
		if !c.Cookie.Secure {
			errs = append(errs, errors.New("COOKIE_SAMESITE=None requires COOKIE_SECURE=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("COOKIE_SAMESITE must be Lax, Strict or None, got %q", c.Cookie.SameSite))
	}

	if strings.Contains(c.CORSOrigins, "*") {
		errs = append(errs, errors.New("CORS_ORIGINS must list explicit origins when credentials are enabled"))
	}
	if c.MaxBidRatio < 0 {
		errs = append(errs, errors.New("MAX_BID_RATIO must not be negative"))
	}
	switch c.BidAwardPolicy {
	case "reject_others", "keep_pending":
	default:
		errs = append(errs, fmt.Errorf("BID_AWARD_POLICY must be reject_others or keep_pending, got %q", c.BidAwardPolicy))
	}
	return errors.Join(errs...)
}

// GoogleEnabled reports whether every Google OAuth setting is present.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleSecret != "" && c.GoogleRedirect != ""
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// LogFields describes the configuration without secrets.
func (c Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Env),
		zap.String("port", c.AppPort),
		zap.String("redis_addr", c.RedisAddr),
		zap.String("cors_origins", c.CORSOrigins),
		zap.Bool("cookie_secure", c.Cookie.Secure),
		zap.String("cookie_samesite", c.Cookie.SameSite),
		zap.Float64("max_bid_ratio", c.MaxBidRatio),
		zap.String("bid_award_policy", c.BidAwardPolicy),
		zap.Bool("enforce_ownership", c.EnforceOwnership),
		zap.Bool("google_login", c.GoogleEnabled()),
	}
}

func get(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getInt(k string, def int, errs *[]error) int {
	v := get(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return n
}

func getFloat(k string, def float64, errs *[]error) float64 {
	v := get(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return f
}

func getBool(k string, def bool, errs *[]error) bool {
	v := get(k, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return b
}

func getDuration(k string, def time.Duration, errs *[]error) time.Duration {
	v := get(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return d
}

func getLogLevel(k string, def logger.LogLevel) logger.LogLevel {
	switch get(k, "") {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return def
	}
}
