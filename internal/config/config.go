package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	SMTP     *SMTPConfig     `mapstructure:"smtp"`
}

type APIConfig struct {
	Environment        string        `mapstructure:"environment"`
	BaseURL            string        `mapstructure:"base_url"`
	Port               string        `mapstructure:"port"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Load reads the yml config file and applies environment overrides, e.g.
// API_JWT_SIGNING_KEY replaces api.jwt_signing_key.
func Load(path string) (*AppConfig, error) {
	viper.SetConfigFile(path)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("viper.ReadInConfig -> %w", err)
	}

	var conf AppConfig
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("viper.Unmarshal -> %w", err)
	}

	if conf.API.SweepInterval <= 0 {
		conf.API.SweepInterval = time.Minute
	}

	return &conf, nil
}

// Watch re-reads the config file on change and invokes onChange with the
// fresh values. Secrets rotated on disk are picked up without a restart.
func Watch(onChange func(*AppConfig)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		var conf AppConfig
		if err := viper.Unmarshal(&conf); err != nil {
			return
		}
		if conf.API.SweepInterval <= 0 {
			conf.API.SweepInterval = time.Minute
		}
		onChange(&conf)
	})
	viper.WatchConfig()
}
