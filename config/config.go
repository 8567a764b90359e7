package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Minio    MinioConfig    `yaml:"minio"`
	Renderer RendererConfig `yaml:"renderer"`
	Auth     AuthConfig     `yaml:"auth"`
	Store    StoreConfig    `yaml:"store"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// RendererConfig points at the external page-rasterizer API.
type RendererConfig struct {
	APIURL          string `yaml:"api_url"`
	APIToken        string `yaml:"api_token"`
	CallbackURL     string `yaml:"callback_url"`
	Seed            string `yaml:"seed"`
	PollSeconds     int    `yaml:"poll_seconds"`
	PollMaxAttempts int    `yaml:"poll_max_attempts"`
}

type AuthConfig struct {
	JWTSecret               string `yaml:"jwt_secret"`
	TokenExpireHours        int    `yaml:"token_expire_hours"`
	SigningTokenExpireHours int    `yaml:"signing_token_expire_hours"`
}

type StoreConfig struct {
	MaxDocuments       int `yaml:"max_documents"`
	MaxSessions        int `yaml:"max_sessions"`
	SessionIdleMinutes int `yaml:"session_idle_minutes"`
}

// ProfilesConfig optionally overrides the built-in constants of the three
// interaction profiles. Zero values mean "keep the default".
type ProfilesConfig struct {
	Desktop     ProfileConfig `yaml:"desktop"`
	Mobile      ProfileConfig `yaml:"mobile"`
	Performance ProfileConfig `yaml:"performance"`
}

type ProfileConfig struct {
	ZoomStep          float64 `yaml:"zoom_step"`
	Buffer            int     `yaml:"buffer"`
	InitialLoadCount  int     `yaml:"initial_load_count"`
	RetryLimit        int     `yaml:"retry_limit"`
	DefaultPageHeight float64 `yaml:"default_page_height"`
	PageGap           float64 `yaml:"page_gap"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Auth.SigningTokenExpireHours == 0 {
		cfg.Auth.SigningTokenExpireHours = 72
	}
	if cfg.Renderer.PollSeconds == 0 {
		cfg.Renderer.PollSeconds = 2
	}
	if cfg.Renderer.PollMaxAttempts == 0 {
		cfg.Renderer.PollMaxAttempts = 30
	}
	if cfg.Store.MaxDocuments == 0 {
		cfg.Store.MaxDocuments = 100
	}
	if cfg.Store.MaxSessions == 0 {
		cfg.Store.MaxSessions = 500
	}
	if cfg.Store.SessionIdleMinutes == 0 {
		cfg.Store.SessionIdleMinutes = 30
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
