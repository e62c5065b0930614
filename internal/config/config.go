package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

type ServerConfig struct {
	Addr string `yaml:"http_addr"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTTTLMin int    `yaml:"jwt_ttl_min"`
}

type StorageConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `yaml:"driver"`
	SQLiteDSN   string `yaml:"sqlite_dsn"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WebSocketConfig struct {
	SendBuffer     int      `yaml:"send_buffer"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, val)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FromEnv reads the configuration from environment variables, filling in
// defaults for anything unset.
func FromEnv() (Config, error) {
	jwtttl, err := getenvInt("JWT_TTL_MIN", 1440)
	if err != nil {
		return Config{}, err
	}
	sendBuf, err := getenvInt("WS_SEND_BUFFER", 256)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: ServerConfig{
			Addr: getenv("HTTP_ADDR", ":8080"),
		},
		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
			JWTTTLMin: jwtttl,
		},
		Storage: StorageConfig{
			Driver:      getenv("STORAGE_DRIVER", "sqlite"),
			SQLiteDSN:   getenv("SQLITE_DSN", "file:mmsocial.db?_pragma=foreign_keys(ON)"),
			PostgresDSN: getenv("POSTGRES_DSN", ""),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
		},
		WebSocket: WebSocketConfig{
			SendBuffer:     sendBuf,
			AllowedOrigins: splitList(getenv("WS_ALLOWED_ORIGINS", "")),
		},
	}, nil
}

// Load builds the configuration from the environment and, when path is not
// empty, overlays the YAML file at path. ${VAR} references in the file are
// expanded from the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable's value, or with nothing
// when it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate returns the first problem found.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.Auth.JWTTTLMin <= 0 {
		return fmt.Errorf("auth.jwt_ttl_min must be positive")
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLiteDSN == "" {
			return fmt.Errorf("storage.sqlite_dsn is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket.send_buffer must be positive")
	}
	return nil
}
