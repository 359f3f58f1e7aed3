package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/sheetpattern/internal/db"
	"github.com/rpattn/sheetpattern/internal/recorder"
	"github.com/rpattn/sheetpattern/internal/session"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes environment overrides, e.g. SHEETPATTERN_DATABASE_HOST.
const EnvPrefix = "SHEETPATTERN"

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// RedisConfig selects the session store. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type RecorderConfig struct {
	HeaderRowIndex int
	Window         time.Duration
}

type LogConfig struct {
	Level string
}

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig
	Database db.Config
	Redis    RedisConfig
	Recorder RecorderConfig
	Log      LogConfig
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()
	recDefaults := recorder.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.max_conns", dbDefaults.MaxConns)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", session.DefaultTTL)

	v.SetDefault("recorder.header_row_index", recDefaults.HeaderRowIndex)
	v.SetDefault("recorder.window", recDefaults.Window)

	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from configPath when present, then applies
// SHEETPATTERN_* environment overrides on top of the defaults.
func Load(configPath string, logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		logger.Info("no config.yaml found, using defaults and env vars")
	} else {
		logger.Info("loaded config", zap.String("file", v.ConfigFileUsed()))
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Database: db.Config{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Recorder: RecorderConfig{
			HeaderRowIndex: v.GetInt("recorder.header_row_index"),
			Window:         v.GetDuration("recorder.window"),
		},
		Log: LogConfig{Level: v.GetString("log.level")},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Recorder.Window < 0 {
		return fmt.Errorf("recorder.window: %w", recorder.ErrInvalidWindow)
	}
	if c.Recorder.HeaderRowIndex < 0 {
		return fmt.Errorf("recorder.header_row_index: %w", recorder.ErrInvalidHeaderRow)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative")
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// RecorderSettings converts the recorder section for recorder.New.
func (c Config) RecorderSettings() recorder.Config {
	return recorder.Config{
		HeaderRowIndex: c.Recorder.HeaderRowIndex,
		Window:         c.Recorder.Window,
	}
}
