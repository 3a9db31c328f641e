package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"interviewlink/native/internal/domain"
)

// Config holds the agent configuration.
type Config struct {
	SessionID string `mapstructure:"session_id"`
	Role      string `mapstructure:"role"`

	RelayURL string `mapstructure:"relay_url"`
	APIURL   string `mapstructure:"api_url"`

	STUNServers  []string      `mapstructure:"stun_servers"`
	TURNServer   string        `mapstructure:"turn_server"`
	TURNUser     string        `mapstructure:"turn_user"`
	TURNPass     string        `mapstructure:"turn_pass"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DisplayName  string        `mapstructure:"display_name"`
	LogLevel     string        `mapstructure:"log_level"`
}

// ParsedRole returns the validated role.
func (c *Config) ParsedRole() (domain.Role, error) {
	return domain.ParseRole(c.Role)
}

// ICEServers assembles the pion ICE server list from config.
func (c *Config) ICEServers() []domain.ICEServer {
	servers := make([]domain.ICEServer, 0, len(c.STUNServers)+1)
	for _, u := range c.STUNServers {
		servers = append(servers, domain.ICEServer{URL: u})
	}
	if c.TURNServer != "" {
		servers = append(servers, domain.ICEServer{
			URL:        c.TURNServer,
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}
	return servers
}

// Load reads configuration from an optional yaml file, a .env file (if
// present) and IVL_* environment variables. Environment variables take
// precedence over .env values, which take precedence over defaults.
func Load() (*Config, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("interviewlink")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("IVL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys to Unmarshal;
	// every key needs an explicit binding.
	for _, key := range []string{
		"session_id", "role", "relay_url", "api_url",
		"stun_servers", "turn_server", "turn_user", "turn_pass",
		"ping_interval", "poll_interval", "display_name", "log_level",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.SetDefault("relay_url", "ws://localhost:8080/ws")
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("stun_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("ping_interval", "30s")
	v.SetDefault("poll_interval", "5s")
	v.SetDefault("display_name", "guest")
	v.SetDefault("log_level", "info")

	// The yaml file is optional; env-only setups are fine.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.SessionID == "" {
		return nil, fmt.Errorf("IVL_SESSION_ID is required")
	}
	if _, err := cfg.ParsedRole(); err != nil {
		return nil, fmt.Errorf("IVL_ROLE: %w", err)
	}

	return &cfg, nil
}
