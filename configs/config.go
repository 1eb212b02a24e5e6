package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BOOKSTORE_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
		BaseURL      string        `koanf:"base_url"` // optional; links are host-relative when empty
	} `koanf:"http"`

	Log struct {
		Level string `koanf:"level"`
		File  string `koanf:"file"`
	} `koanf:"log"`

	Storage struct {
		Driver string `koanf:"driver"` // memory | mysql
	} `koanf:"storage"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Cache struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cache"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Rabbit struct {
		URL      string `koanf:"url"`
		Exchange string `koanf:"exchange"`
		Prefetch int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers     []string `koanf:"brokers"`
		GroupID     string   `koanf:"group_id"`
		TopicIngest string   `koanf:"topic_ingest"`
	} `koanf:"kafka"`

	GRPC struct {
		Addr          string        `koanf:"addr"`
		CheckInterval time.Duration `koanf:"check_interval"`
	} `koanf:"grpc"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
		Users     []User        `koanf:"users"`
	} `koanf:"security"`

	Export struct {
		Directory string `koanf:"directory"`
	} `koanf:"export"`
}

// User seeds the in-memory user store. PasswordHash is a bcrypt hash; Password
// is accepted for local setups and hashed at startup.
type User struct {
	Username     string   `koanf:"username"`
	Password     string   `koanf:"password"`
	PasswordHash string   `koanf:"password_hash"`
	Roles        []string `koanf:"roles"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":                "bookstore-api",
		"app.http_addr":           ":8080",
		"http.read_timeout":       "10s",
		"http.write_timeout":      "10s",
		"http.idle_timeout":       "60s",
		"log.level":               "info",
		"log.file":                "./logs/app.log",
		"storage.driver":          "memory",
		"mysql.max_open_conns":    16,
		"mysql.max_idle_conns":    16,
		"mysql.conn_max_lifetime": "30m",
		"cache.ttl":               "5m",
		"idempotency.ttl":         "24h",
		"rabbitmq.exchange":       "bookstore.events",
		"rabbitmq.prefetch":       50,
		"kafka.group_id":          "catalog-group",
		"kafka.topic_ingest":      "book-topic",
		"grpc.check_interval":     "10s",
		"security.issuer":         "bookstore-api",
		"security.audience":       "bookstore-clients",
		"security.ttl":            "60m",
		"export.directory":        "./exports",
	}
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix BOOKSTORE_, nested with __)
	// e.g. BOOKSTORE_MYSQL__DSN, BOOKSTORE_SECURITY__JWT_SECRET
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	switch c.Storage.Driver {
	case "memory":
	case "mysql":
		if c.MySQL.DSN == "" {
			return fmt.Errorf("mysql.dsn required when storage.driver=mysql")
		}
	default:
		return fmt.Errorf("storage.driver must be memory or mysql, got %q", c.Storage.Driver)
	}
	if len(c.Security.JWTSecret) < 16 {
		return fmt.Errorf("security.jwt_secret required (min 16 chars)")
	}
	if c.Security.TTL <= 0 {
		return fmt.Errorf("security.ttl must be positive")
	}
	for i, u := range c.Security.Users {
		if u.Username == "" {
			return fmt.Errorf("security.users[%d].username required", i)
		}
		if u.Password == "" && u.PasswordHash == "" {
			return fmt.Errorf("security.users[%d] needs password or password_hash", i)
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.TopicIngest == "" {
		return fmt.Errorf("kafka.topic_ingest required when kafka.brokers set")
	}
	return nil
}
