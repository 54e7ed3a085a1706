package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=kasa port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort    string        `envconfig:"HTTP_PORT" default:"8080"`
	DatabaseDSN string        `envconfig:"DATABASE_DSN" default:"host=localhost user=postgres password=postgres dbname=kasa port=5432 sslmode=disable"`
	JWTSecret   string        `envconfig:"JWT_SECRET"`
	JWTTTL      time.Duration `envconfig:"JWT_TTL" default:"24h"`
	CORSOrigins string        `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	PinTTL    time.Duration `envconfig:"PIN_TTL" default:"12h"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// Açık vardiya çözümleme ayarları
	ReprobeDelay       time.Duration `envconfig:"RESOLVER_REPROBE_DELAY" default:"750ms"`
	ProbeTimeout       time.Duration `envconfig:"RESOLVER_PROBE_TIMEOUT" default:"3s"`
	SectionConcurrency int           `envconfig:"RESOLVER_SECTION_CONCURRENCY" default:"4"`
}

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET environment değişkeni tanımlanmamış")
	ErrShortJWTSecret   = errors.New("JWT_SECRET en az 32 karakter olmalıdır")
)

// Load ortam değişkenlerinden konfigürasyonu okur.
func Load() (*Config, error) {
	cfg, err := LoadStore()
	if err != nil {
		return nil, err
	}

	// Production güvenlik kontrolleri
	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, ErrShortJWTSecret
	}
	return cfg, nil
}

// LoadStore JWT kontrolü yapmadan okur; HTTP sunmayan araçlar (kasactl) için.
func LoadStore() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SectionConcurrency <= 0 {
		cfg.SectionConcurrency = 1
	}
	return &cfg, nil
}

// Warn varsayılan (güvensiz) değerler için uyarı loglar.
func (c *Config) Warn(logger *slog.Logger) {
	if c.DatabaseDSN == defaultDSN {
		logger.Warn("DATABASE_DSN varsayılan değer kullanılıyor, production için kendi Postgres bağlantı bilgini tanımla")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		logger.Warn("CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için kendi domain'ini tanımla")
	}
}

// AllowedOrigins CORS origins'i virgülle ayrılmış string'den temizlenmiş hale getirir.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
