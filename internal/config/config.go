package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Port int

	// DatabaseURL selects the Postgres store. With RedisURL also set, auth
	// tokens move to Redis; RedisURL alone keeps everything in Redis.
	DatabaseURL string
	RedisURL    string

	AuthTokenTTL time.Duration
	BcryptCost   int

	MsgTemplateDir string

	WSPingInterval time.Duration
	AllowedOrigins []string

	ShutdownTimeout time.Duration
}

func (c *AppConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:            8080,
		AuthTokenTTL:    24 * time.Hour,
		WSPingInterval:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Port = n
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("BCRYPT_COST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %q", v)
		}
		cfg.BcryptCost = n
	}

	var err error
	if cfg.AuthTokenTTL, err = seconds("AUTH_TOKEN_TTL_SEC", cfg.AuthTokenTTL); err != nil {
		return nil, err
	}
	if cfg.WSPingInterval, err = seconds("WS_PING_INTERVAL_SEC", cfg.WSPingInterval); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = seconds("SHUTDOWN_TIMEOUT_SEC", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}

	if cfg.BcryptCost != 0 && (cfg.BcryptCost < 4 || cfg.BcryptCost > 31) {
		return nil, errors.New("BCRYPT_COST must be between 4 and 31")
	}
	return cfg, nil
}

// seconds reads a whole number of seconds. Zero is allowed and disables the
// feature where that makes sense (ping loop, token expiry).
func seconds(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
