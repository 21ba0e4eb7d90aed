package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	LMS      LMSConfig      `mapstructure:"lms"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// MTProto account used to create and manage course chats
type TelegramConfig struct {
	APIID          int          `mapstructure:"api_id"`
	APIHash        string       `mapstructure:"api_hash"`
	SessionFile    string       `mapstructure:"session_file"`
	SyncPeriod     int          `mapstructure:"sync_period"`
	FullSyncPeriod int          `mapstructure:"full_sync_period"`
	FloodPause     int          `mapstructure:"flood_pause"`
	Folders        FolderConfig `mapstructure:"folders"`
}

type FolderConfig struct {
	Core      string `mapstructure:"core"`
	Electives string `mapstructure:"electives"`
	Other     string `mapstructure:"other"`
}

// statistics bot configuration (Bot API)
type BotConfig struct {
	Token   string        `mapstructure:"token"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// webhook server configuration
type WebhookConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	ListenPort string `mapstructure:"listen_port"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

// academic records service (course list import)
type LMSConfig struct {
	TokenURL     string `mapstructure:"token_url"`
	CoursesURL   string `mapstructure:"courses_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	SyncPeriod   int    `mapstructure:"sync_period"`
}

// HTTP API server configuration
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Mode       string `mapstructure:"mode"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Level     string            `mapstructure:"level"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

func (t TelegramConfig) SyncInterval() time.Duration {
	return time.Duration(t.SyncPeriod) * time.Second
}

func (t TelegramConfig) FullSyncInterval() time.Duration {
	return time.Duration(t.FullSyncPeriod) * time.Second
}

func (t TelegramConfig) FloodPauseInterval() time.Duration {
	return time.Duration(t.FloodPause) * time.Second
}

func (l LMSConfig) SyncInterval() time.Duration {
	return time.Duration(l.SyncPeriod) * time.Second
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.session_file", "sessions/main.json")
	v.SetDefault("telegram.sync_period", 60)
	v.SetDefault("telegram.full_sync_period", 1800)
	v.SetDefault("telegram.flood_pause", 5)
	v.SetDefault("telegram.folders.core", "Core")
	v.SetDefault("telegram.folders.electives", "Electives")
	v.SetDefault("telegram.folders.other", "Other")

	v.SetDefault("bot.webhook.listen_port", "8443")
	v.SetDefault("bot.webhook.cert_file", "")
	v.SetDefault("bot.webhook.key_file", "")

	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")

	v.SetDefault("lms.sync_period", 60)

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.level", "INFO")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
}
