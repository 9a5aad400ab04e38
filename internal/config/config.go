// Package config loads server configuration from a TOML file with
// environment-variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	BaseURL string `toml:"base_url"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type EmailConfig struct {
	PostmarkToken string `toml:"postmark_token"`
	From          string `toml:"from"`
}

type PushConfig struct {
	VAPIDPublicKey  string `toml:"vapid_public_key"`
	VAPIDPrivateKey string `toml:"vapid_private_key"`
	Subscriber      string `toml:"subscriber"`
}

type BackupConfig struct {
	Passphrase  string `toml:"passphrase"`
	Interval    string `toml:"interval"`
	Keep        int    `toml:"keep"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
}

// IntervalDuration parses the interval string, defaulting to daily.
func (b BackupConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(b.Interval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Email    EmailConfig    `toml:"email"`
	Push     PushConfig     `toml:"push"`
	Backup   BackupConfig   `toml:"backup"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Path: "duet.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Interval: "24h",
			Keep:     30,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error; the defaults and environment win.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "DUET_HOST")
	setInt(&cfg.Server.Port, "DUET_PORT")
	setString(&cfg.Server.BaseURL, "DUET_BASE_URL")
	setString(&cfg.Database.Path, "DUET_DB_PATH")
	setString(&cfg.Log.Level, "DUET_LOG_LEVEL")
	setString(&cfg.Email.PostmarkToken, "DUET_POSTMARK_TOKEN")
	setString(&cfg.Email.From, "DUET_EMAIL_FROM")
	setString(&cfg.Push.VAPIDPublicKey, "DUET_VAPID_PUBLIC_KEY")
	setString(&cfg.Push.VAPIDPrivateKey, "DUET_VAPID_PRIVATE_KEY")
	setString(&cfg.Push.Subscriber, "DUET_VAPID_SUBSCRIBER")
	setString(&cfg.Backup.Passphrase, "DUET_BACKUP_PASSPHRASE")
	setString(&cfg.Backup.Interval, "DUET_BACKUP_INTERVAL")
	setInt(&cfg.Backup.Keep, "DUET_BACKUP_KEEP")
	setString(&cfg.Backup.S3Endpoint, "DUET_S3_ENDPOINT")
	setString(&cfg.Backup.S3Bucket, "DUET_S3_BUCKET")
	setString(&cfg.Backup.S3Region, "DUET_S3_REGION")
	setString(&cfg.Backup.S3AccessKey, "DUET_S3_ACCESS_KEY")
	setString(&cfg.Backup.S3SecretKey, "DUET_S3_SECRET_KEY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
