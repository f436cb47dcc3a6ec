package config

import (
	"fmt"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Auth modes
const (
	AuthModeJWT      = "jwt"
	AuthModeFirebase = "firebase"
)

type Config struct {
	Port     string         `yaml:"port"`
	Env      string         `yaml:"env"`
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Timeline TimelineConfig `yaml:"timeline"`
}

// DatabaseConfig picks the relational store and the optional content store.
// SQLitePath is used only when no PostgreSQL connection string is set.
type DatabaseConfig struct {
	PostgresConnStr string `yaml:"postgres_conn_str"`
	SQLitePath      string `yaml:"sqlite_path"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
}

type AuthConfig struct {
	Mode                    string `yaml:"mode"`
	JWTSecret               string `yaml:"jwt_secret"`
	FirebaseCredentialsPath string `yaml:"firebase_credentials_path"`
}

// TimelineConfig holds the feed batch sizes and nickname bounds
type TimelineConfig struct {
	RecentBatch     int `yaml:"recent_batch"`
	OldBatch        int `yaml:"old_batch"`
	NewBatch        int `yaml:"new_batch"`
	CommentsPreview int `yaml:"comments_preview"`
	NicknameMinLen  int `yaml:"nickname_min_len"`
	NicknameMaxLen  int `yaml:"nickname_max_len"`
}

// Load reads the configuration from the environment
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			PostgresConnStr: getEnv("POSTGRES_CONN_STR", ""),
			SQLitePath:      getEnv("SQLITE_PATH", ""),
			MongoURI:        getEnv("MONGO_URI", ""),
			MongoDatabase:   getEnv("MONGO_DATABASE", "timeline"),
		},
		Auth: AuthConfig{
			Mode:                    getEnv("AUTH_MODE", AuthModeJWT),
			JWTSecret:               getEnv("JWT_SECRET", ""),
			FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Timeline: TimelineConfig{
			RecentBatch:     getEnvInt("TIMELINE_RECENT_BATCH", 10),
			OldBatch:        getEnvInt("TIMELINE_OLD_BATCH", 20),
			NewBatch:        getEnvInt("TIMELINE_NEW_BATCH", 10000),
			CommentsPreview: getEnvInt("TIMELINE_COMMENTS_PREVIEW", 3),
			NicknameMinLen:  getEnvInt("NICKNAME_MIN_LEN", 3),
			NicknameMaxLen:  getEnvInt("NICKNAME_MAX_LEN", 16),
		},
	}
}

// LoadFile overlays a YAML file onto cfg. ${VAR} references in the file are
// expanded from the environment.
func LoadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.By(isPort)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
	); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Timeline.Validate(); err != nil {
		return fmt.Errorf("timeline: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.PostgresConnStr == "" && c.SQLitePath == "" {
		return fmt.Errorf("POSTGRES_CONN_STR or SQLITE_PATH must be set")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MongoDatabase, validation.When(c.MongoURI != "", validation.Required)),
	)
}

func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeJWT, AuthModeFirebase)),
		validation.Field(&c.JWTSecret, validation.When(c.Mode == AuthModeJWT, validation.Required)),
		validation.Field(&c.FirebaseCredentialsPath, validation.When(c.Mode == AuthModeFirebase, validation.Required)),
	)
}

func (c *TimelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RecentBatch, validation.Required, validation.Min(1)),
		validation.Field(&c.OldBatch, validation.Required, validation.Min(1)),
		validation.Field(&c.NewBatch, validation.Required, validation.Min(1)),
		validation.Field(&c.CommentsPreview, validation.Min(0)),
		validation.Field(&c.NicknameMinLen, validation.Required, validation.Min(1)),
		validation.Field(&c.NicknameMaxLen, validation.Required, validation.Min(c.NicknameMinLen)),
	)
}

func isPort(value any) error {
	s, _ := value.(string)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("must be a port number")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}
