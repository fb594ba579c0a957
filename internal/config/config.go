package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment string `mapstructure:"environment"`

	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	DB struct {
		Host        string `mapstructure:"host"`
		Port        int    `mapstructure:"port"`
		User        string `mapstructure:"user"`
		Password    string `mapstructure:"password"`
		Name        string `mapstructure:"name"`
		SSLMode     string `mapstructure:"sslmode"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"db"`

	ObjectStore struct {
		ID   string `mapstructure:"id"`
		Name string `mapstructure:"name"`
		Root string `mapstructure:"root"`
	} `mapstructure:"object_store"`

	Auth struct {
		Issuer        string `mapstructure:"issuer"`
		ClientID      string `mapstructure:"client_id"`
		ClientSecret  string `mapstructure:"client_secret"`
		RedirectURL   string `mapstructure:"redirect_url"`
		DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	} `mapstructure:"auth"`

	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("environment", "dev")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("db.auto_migrate", true)
	viper.SetDefault("object_store.id", "primary")
	viper.SetDefault("object_store.name", "Primary disk storage")
	viper.SetDefault("object_store.root", "./data")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, everything can come from the
		// environment and defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Auth.Issuer = normalizeIssuer(config.Auth.Issuer)

	return &config, nil
}

// normalizeIssuer ensures the provided OIDC issuer string is in a predictable
// form. It removes any trailing slash and leaves the scheme and path intact,
// so users can paste the full URL from their provider's admin console.
func normalizeIssuer(input string) string {
	iss := strings.TrimSpace(input)
	return strings.TrimRight(iss, "/")
}
