package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Backup   BackupConfig   `mapstructure:"backup"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type BackupConfig struct {
	LocalPath  string `mapstructure:"local_path"`
	MaxBackups int    `mapstructure:"max_backups"`
	Schedule   string `mapstructure:"schedule"`
	Timezone   string `mapstructure:"timezone"`
	Compress   bool   `mapstructure:"compress"`

	// Only the literal string "true" enables it; see Load.
	AutoEnabled bool `mapstructure:"-"`

	UploadTargets []UploadTarget `mapstructure:"upload_targets"`
}

type HTTPConfig struct {
	Addr         string   `mapstructure:"addr"`
	JWTSecret    string   `mapstructure:"jwt_secret"`
	AllowedRoles []string `mapstructure:"allowed_roles"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Google Drive: either a service account file or an OAuth client
	// secret plus refresh token.
	CredentialsFile  string `mapstructure:"credentials_file"`
	ClientSecretFile string `mapstructure:"client_secret_file"`
	RefreshToken     string `mapstructure:"refresh_token"`
	FolderID         string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

var envBindings = map[string]string{
	"database.url":        "DATABASE_URL",
	"backup.max_backups":  "MAX_BACKUPS",
	"backup.schedule":     "BACKUP_SCHEDULE",
	"backup.auto_enabled": "AUTO_BACKUP_ENABLED",
	"backup.timezone":     "TZ",
	"backup.local_path":   "BACKUP_DIR",
	"app.log_level":       "LOG_LEVEL",
	"app.log_file":        "LOG_FILE",
	"http.addr":           "HTTP_ADDR",
	"http.jwt_secret":     "JWT_SECRET",
}

// Load reads the optional YAML file at path and overlays the environment.
// A missing file is not an error; everything can come from env.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "custos")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("backup.local_path", "./backups")
	v.SetDefault("backup.max_backups", 10)
	v.SetDefault("backup.schedule", "0 2 * * *")
	v.SetDefault("backup.timezone", "Europe/Kiev")
	v.SetDefault("backup.auto_enabled", "false")
	v.SetDefault("backup.compress", false)
	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.allowed_roles", []string{"ADMIN"})

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Backup.AutoEnabled = v.GetString("backup.auto_enabled") == "true"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is not defined")
	}

	if c.Backup.LocalPath == "" {
		return fmt.Errorf("backup.local_path is required")
	}

	if c.Backup.MaxBackups < 1 {
		return fmt.Errorf("backup.max_backups must be at least 1, got %d", c.Backup.MaxBackups)
	}

	for i, target := range c.GetEnabledUploadTargets() {
		if err := target.validate(); err != nil {
			return fmt.Errorf("upload_targets[%d] (%s): %w", i, target.Type, err)
		}
	}

	return nil
}

func (t UploadTarget) validate() error {
	switch t.Type {
	case "s3":
		if t.Bucket == "" || t.Region == "" {
			return fmt.Errorf("bucket and region are required")
		}
	case "gdrive":
		if t.FolderID == "" {
			return fmt.Errorf("folder_id is required")
		}
		if t.CredentialsFile == "" && t.ClientSecretFile == "" {
			return fmt.Errorf("credentials_file or client_secret_file is required")
		}
	case "telegram":
		if t.BotToken == "" || t.ChatID == "" {
			return fmt.Errorf("bot_token and chat_id are required")
		}
	}
	return nil
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Backup.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}

// DriveOAuthClientSecret returns the client secret file of the first enabled
// Drive target that authenticates through OAuth.
func (c *Config) DriveOAuthClientSecret() string {
	for _, target := range c.GetEnabledUploadTargets() {
		if target.Type == "gdrive" && target.ClientSecretFile != "" {
			return target.ClientSecretFile
		}
	}
	return ""
}
