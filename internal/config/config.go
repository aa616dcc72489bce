package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is read when DASHBOARD_CONFIG is unset. A missing file is not
// an error: environment variables alone are enough.
const ConfigPath = "config.yaml"

const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config represents configuration loaded from YAML and the environment.
type Config struct {
	Port                      string   `yaml:"port"`
	JWTSecret                 string   `yaml:"jwtSecret"`
	TokenTTL                  string   `yaml:"tokenTTL"`
	StoreBackend              string   `yaml:"storeBackend"`
	DatabaseURL               string   `yaml:"databaseURL"`
	FirebaseCredentialsBase64 string   `yaml:"firebaseCredentialsBase64"`
	FirebaseCredentialsFile   string   `yaml:"firebaseCredentialsFile"`
	FirebaseProjectID         string   `yaml:"firebaseProjectID"`
	FirebaseAPIKey            string   `yaml:"firebaseAPIKey"`
	RedisAddr                 string   `yaml:"redisAddr"`
	RedisPassword             string   `yaml:"redisPassword"`
	RevocationChannel         string   `yaml:"revocationChannel"`
	GoogleMapsAPIKey          string   `yaml:"googleMapsAPIKey"`
	AllowedOrigins            []string `yaml:"allowedOrigins"`
	SearchDebounce            string   `yaml:"searchDebounce"`
}

// Load reads path (defaults to DASHBOARD_CONFIG, then config.yaml) and
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:           "8080",
		TokenTTL:       "168h",
		StoreBackend:   BackendFirestore,
		AllowedOrigins: []string{"*"},
		SearchDebounce: "300ms",
	}
	if path == "" {
		path = os.Getenv("DASHBOARD_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = ConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("APP_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("APP_TOKEN_TTL"); v != "" {
		cfg.TokenTTL = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.StoreBackend = strings.ToLower(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("FIREBASE_CREDENTIALS_BASE64"); v != "" {
		cfg.FirebaseCredentialsBase64 = v
	}
	if v := os.Getenv("FIREBASE_CREDENTIALS_FILE"); v != "" {
		cfg.FirebaseCredentialsFile = v
	}
	if v := os.Getenv("FIREBASE_PROJECT_ID"); v != "" {
		cfg.FirebaseProjectID = v
	}
	if v := os.Getenv("FIREBASE_API_KEY"); v != "" {
		cfg.FirebaseAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("REVOCATION_CHANNEL"); v != "" {
		cfg.RevocationChannel = v
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.GoogleMapsAPIKey = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("SEARCH_DEBOUNCE"); v != "" {
		cfg.SearchDebounce = v
	}

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateConfig(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or APP_JWT_SECRET)")
	}
	if _, err := time.ParseDuration(cfg.TokenTTL); err != nil {
		return fmt.Errorf("config: tokenTTL: %w", err)
	}
	if _, err := time.ParseDuration(cfg.SearchDebounce); err != nil {
		return fmt.Errorf("config: searchDebounce: %w", err)
	}
	switch cfg.StoreBackend {
	case BackendFirestore:
		if cfg.FirebaseCredentialsBase64 == "" && cfg.FirebaseCredentialsFile == "" {
			return errors.New("config: firestore backend requires FIREBASE_CREDENTIALS_BASE64 or FIREBASE_CREDENTIALS_FILE")
		}
		if cfg.FirebaseAPIKey == "" {
			return errors.New("config: firestore backend requires FIREBASE_API_KEY for password sign-in")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("config: postgres backend requires DATABASE_URL")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown storeBackend %q", cfg.StoreBackend)
	}
	return nil
}

// TokenLifetime is the parsed TokenTTL
func (c Config) TokenLifetime() time.Duration {
	d, _ := time.ParseDuration(c.TokenTTL)
	return d
}

// Debounce is the parsed SearchDebounce
func (c Config) Debounce() time.Duration {
	d, _ := time.ParseDuration(c.SearchDebounce)
	return d
}

// FirebaseEnabled reports whether Firebase credentials were supplied
func (c Config) FirebaseEnabled() bool {
	return c.FirebaseCredentialsBase64 != "" || c.FirebaseCredentialsFile != ""
}
