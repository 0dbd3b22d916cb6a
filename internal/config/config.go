// Package config loads the process-wide GlobalConfig that wires
// every other component: artifact/log roots, the Task Store database,
// the Credential Vault key, worker pool sizing, artifact compression,
// and the scheduler's timezone (SPEC_FULL.md §2.2, spec.md §6).
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"firestige.xyz/netbackup/internal/log"
)

// GlobalConfig is the root of the loaded configuration tree, following
// the teacher's internal/config/config.go nested-mapstructure-struct
// convention.
type GlobalConfig struct {
	Server    ServerConfig     `mapstructure:"server" yaml:"server"`
	Vault     VaultConfig      `mapstructure:"vault" yaml:"vault"`
	Worker    WorkerConfig     `mapstructure:"worker" yaml:"worker"`
	Artifact  ArtifactConfig   `mapstructure:"artifact" yaml:"artifact"`
	Scheduler SchedulerConfig  `mapstructure:"scheduler" yaml:"scheduler"`
	Log       log.LoggerConfig `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds the filesystem and database roots (spec.md §6).
type ServerConfig struct {
	ArtifactRoot string `mapstructure:"artifact_root" yaml:"artifact_root"`
	LogRoot      string `mapstructure:"log_root" yaml:"log_root"`
	DatabaseURL  string `mapstructure:"database_url" yaml:"database_url"`
	// Mode is "development" or "production". Production mode refuses
	// to start with an unset or default vault key (spec.md §9).
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// VaultConfig carries the Credential Vault's key source.
type VaultConfig struct {
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
}

// WorkerConfig tunes the Worker Pool and the per-device execute
// timeout (spec.md §4.6, §6).
type WorkerConfig struct {
	MaxConcurrentBackups int `mapstructure:"max_concurrent_backups" yaml:"max_concurrent_backups"`
	BackupTimeoutSeconds int `mapstructure:"backup_timeout_seconds" yaml:"backup_timeout_seconds"`
}

// BackupTimeout returns the configured execute timeout as a Duration.
func (w WorkerConfig) BackupTimeout() time.Duration {
	return time.Duration(w.BackupTimeoutSeconds) * time.Second
}

// ArtifactConfig tunes the Artifact Store (spec.md §4.4, §6).
type ArtifactConfig struct {
	CompressBackups bool `mapstructure:"compress_backups" yaml:"compress_backups"`
	EnableDiff      bool `mapstructure:"enable_diff" yaml:"enable_diff"`
}

// SchedulerConfig tunes the cron Scheduler (spec.md §4.7, §5).
type SchedulerConfig struct {
	Timezone            string `mapstructure:"timezone" yaml:"timezone"`
	MisfireGraceSeconds int    `mapstructure:"misfire_grace_seconds" yaml:"misfire_grace_seconds"`
}

// MisfireGrace returns the configured misfire grace window as a
// Duration.
func (s SchedulerConfig) MisfireGrace() time.Duration {
	return time.Duration(s.MisfireGraceSeconds) * time.Second
}

// Location resolves the configured timezone. An empty name means the
// spec.md default (Asia/Shanghai); a name that cannot be loaded falls
// back to UTC.
func (s SchedulerConfig) Location() *time.Location {
	name := s.Timezone
	if name == "" {
		name = "Asia/Shanghai"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads a GlobalConfig from path (YAML) if present, applies
// defaults, and overlays the environment variables named in spec.md
// §6. A missing config file is not an error: the environment and
// defaults are enough to run.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/netbackup")
	}

	setDefaults(v)
	bindEnv(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg GlobalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.artifact_root", "backups")
	v.SetDefault("server.log_root", "logs")
	v.SetDefault("server.database_url", "netbackup.db")
	v.SetDefault("server.mode", "development")

	v.SetDefault("worker.max_concurrent_backups", 10)
	v.SetDefault("worker.backup_timeout_seconds", 300)

	v.SetDefault("artifact.compress_backups", false)
	v.SetDefault("artifact.enable_diff", true)

	v.SetDefault("scheduler.timezone", "Asia/Shanghai")
	v.SetDefault("scheduler.misfire_grace_seconds", 300)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.colors", true)
}

// bindEnv wires the exact environment variable names spec.md §6
// recognizes onto their GlobalConfig fields, since their shape
// (flat, ALL_CAPS) doesn't match the nested mapstructure keys viper's
// AutomaticEnv would derive on its own.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("vault.encryption_key", "ENCRYPTION_KEY")
	_ = v.BindEnv("worker.max_concurrent_backups", "MAX_CONCURRENT_BACKUPS")
	_ = v.BindEnv("worker.backup_timeout_seconds", "BACKUP_TIMEOUT")
	_ = v.BindEnv("artifact.compress_backups", "COMPRESS_BACKUPS")
	_ = v.BindEnv("artifact.enable_diff", "ENABLE_DIFF")
	_ = v.BindEnv("server.database_url", "DATABASE_URL")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("scheduler.timezone", "NETBACKUP_SCHEDULER_TZ")
}

// InsecureDefaultVaultKey mirrors vault.InsecureDefaultKey without
// importing the vault package, avoiding a config<->vault import cycle
// risk as both packages grow.
const InsecureDefaultVaultKey = "netbackup-insecure-default-key"

// Validate enforces spec.md §9: the engine refuses to start in
// "production" mode without an explicit operator-provided vault key.
func (c GlobalConfig) Validate() error {
	if c.Server.Mode == "production" {
		if c.Vault.EncryptionKey == "" || c.Vault.EncryptionKey == InsecureDefaultVaultKey {
			return fmt.Errorf("config: refusing to start in production mode without an explicit ENCRYPTION_KEY")
		}
	}
	return nil
}

// Dump renders the effective configuration as YAML for `netbackupd
// config show`, with the vault key redacted so a pasted dump never
// leaks the secret that guards every stored credential (spec.md §9).
func (c GlobalConfig) Dump() (string, error) {
	redacted := c
	if redacted.Vault.EncryptionKey != "" {
		redacted.Vault.EncryptionKey = "********"
	}
	b, err := yaml.Marshal(redacted)
	if err != nil {
		return "", fmt.Errorf("config: marshal: %w", err)
	}
	return string(b), nil
}
