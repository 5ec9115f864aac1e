package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Web     WebConfig     `mapstructure:"web"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

// StorageConfig points at the key-value database file.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// WebConfig locates templates and static assets.
type WebConfig struct {
	Templates string `mapstructure:"templates"`
	Static    string `mapstructure:"static"`
}

// AdminConfig seeds a first user when the users collection is empty, so a
// fresh deployment has a working login.
type AdminConfig struct {
	Name     string `mapstructure:"name"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Environment variables that override individual settings.
var envOverrides = map[string]string{
	"server.port":    "PORT",
	"storage.path":   "DB_PATH",
	"admin.name":     "ADMIN_NAME",
	"admin.email":    "ADMIN_EMAIL",
	"admin.password": "ADMIN_PASSWORD",
}

// Load reads the configuration in priority order: code defaults, then an
// optional external YAML file, then environment overrides. When configPath
// is empty a config.yaml is searched in the usual locations.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.secure_cookie", false)
	v.SetDefault("storage.path", "procurement.db")
	v.SetDefault("web.templates", "web/templates")
	v.SetDefault("web.static", "web/static")
	v.SetDefault("admin.name", "")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err == nil {
			log.Printf("loaded config file: %s", v.ConfigFileUsed())
		}
	}

	for key, env := range envOverrides {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Server.Port != "" && !strings.HasPrefix(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}

	return &cfg, nil
}
