package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is built once at startup and passed by injection; nothing reads
// ambient configuration after Load returns.
type Config struct {
	HTTPAddress string

	DatabaseURL string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	JWTIssuer          string
	JWTAudience        string

	PasswordPepper string

	ResetTokenTTL        time.Duration
	VerificationTokenTTL time.Duration

	AllowedOrigins   []string
	AllowCredentials bool
	CookieDomain     string
	CookieSecure     bool
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for _, key := range []string{
		"HTTP_ADDRESS",
		"DATABASE_URL",
		"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
		"ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET",
		"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL",
		"JWT_ISSUER", "JWT_AUDIENCE",
		"PASSWORD_PEPPER",
		"RESET_TOKEN_TTL", "VERIFICATION_TOKEN_TTL",
		"ALLOWED_ORIGINS", "ALLOW_CREDENTIALS",
		"COOKIE_DOMAIN", "COOKIE_SECURE",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h") // 30 days
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("VERIFICATION_TOKEN_TTL", "24h")
	v.SetDefault("JWT_ISSUER", "casaviva-auth")
	v.SetDefault("JWT_AUDIENCE", "casaviva")
	v.SetDefault("ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("ALLOW_CREDENTIALS", true)
	v.SetDefault("COOKIE_SECURE", true)

	for _, key := range []string{
		"DATABASE_URL",
		"REDIS_ADDRESS",
		"ACCESS_TOKEN_SECRET",
		"REFRESH_TOKEN_SECRET",
		"PASSWORD_PEPPER",
	} {
		if v.GetString(key) == "" {
			return nil, fmt.Errorf("required environment variable %s is not set", key)
		}
	}

	cfg := &Config{
		HTTPAddress:          v.GetString("HTTP_ADDRESS"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		RedisAddress:         v.GetString("REDIS_ADDRESS"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		AccessTokenSecret:    v.GetString("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret:   v.GetString("REFRESH_TOKEN_SECRET"),
		AccessTokenTTL:       v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:      v.GetDuration("REFRESH_TOKEN_TTL"),
		JWTIssuer:            v.GetString("JWT_ISSUER"),
		JWTAudience:          v.GetString("JWT_AUDIENCE"),
		PasswordPepper:       v.GetString("PASSWORD_PEPPER"),
		ResetTokenTTL:        v.GetDuration("RESET_TOKEN_TTL"),
		VerificationTokenTTL: v.GetDuration("VERIFICATION_TOKEN_TTL"),
		AllowedOrigins:       v.GetStringSlice("ALLOWED_ORIGINS"),
		AllowCredentials:     v.GetBool("ALLOW_CREDENTIALS"),
		CookieDomain:         v.GetString("COOKIE_DOMAIN"),
		CookieSecure:         v.GetBool("COOKIE_SECURE"),
	}

	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL (%v) must exceed ACCESS_TOKEN_TTL (%v)",
			cfg.RefreshTokenTTL, cfg.AccessTokenTTL)
	}

	return cfg, nil
}
