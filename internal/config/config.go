package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ProductGrant maps a payment-provider product to the plan it buys.
// Credits fields are only meaningful for credit_pack products.
type ProductGrant struct {
	Plan              string `mapstructure:"plan"`
	Credits           int    `mapstructure:"credits"`
	CreditsExpiryDays int    `mapstructure:"creditsExpiryDays"`
}

type Config struct {
	APIPort  int `mapstructure:"apiPort"`
	Database struct {
		Type            string `mapstructure:"type"`
		Path            string `mapstructure:"path"`
		Host            string `mapstructure:"host"`
		Port            string `mapstructure:"port"`
		Name            string `mapstructure:"name"`
		User            string `mapstructure:"user"`
		Password        string `mapstructure:"password"`
		SSLMode         string `mapstructure:"sslMode"`
		MaxConns        int    `mapstructure:"maxConns"`
		MaxIdle         int    `mapstructure:"maxIdle"`
		ConnMaxLifetime string `mapstructure:"connMaxLifetime"`
	} `mapstructure:"database"`
	Session struct {
		Secret   string `mapstructure:"secret"`
		TTLHours int    `mapstructure:"ttlHours"`
	} `mapstructure:"session"`
	Limits struct {
		AnonymousGenerations int `mapstructure:"anonymousGenerations"`
		TrialGenerations     int `mapstructure:"trialGenerations"`
		TrialDays            int `mapstructure:"trialDays"`
	} `mapstructure:"limits"`
	Generation struct {
		BaseURL        string `mapstructure:"baseUrl"`
		APIKey         string `mapstructure:"apiKey"`
		Model          string `mapstructure:"model"`
		TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
		Count          int    `mapstructure:"count"`
	} `mapstructure:"generation"`
	Webhooks struct {
		HotmartToken string                  `mapstructure:"hotmartToken"`
		StripeSecret string                  `mapstructure:"stripeSecret"`
		Products     map[string]ProductGrant `mapstructure:"products"`
	} `mapstructure:"webhooks"`
	Storage struct {
		Endpoint        string `mapstructure:"endpoint"`
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		AccessKeyID     string `mapstructure:"accessKeyId"`
		SecretAccessKey string `mapstructure:"secretAccessKey"`
	} `mapstructure:"storage"`
	Domains struct {
		App    string `mapstructure:"app"`
		Secure bool   `mapstructure:"secure"`
	} `mapstructure:"domains"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A present-but-broken file is fatal; a missing one falls back
		// to env vars and defaults.
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, err
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("APIPort not specified, using default 8081")
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
		log.Println("Database type not specified, using default sqlite")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/data/explicae.db"
		log.Println("Database path not specified, using default /data/explicae.db")
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "require"
	}

	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 24
	}

	if cfg.Limits.AnonymousGenerations == 0 {
		cfg.Limits.AnonymousGenerations = 3
		log.Println("Anonymous generation limit not specified, using default 3")
	}
	if cfg.Limits.TrialGenerations == 0 {
		cfg.Limits.TrialGenerations = 8
		log.Println("Trial generation limit not specified, using default 8")
	}
	if cfg.Limits.TrialDays == 0 {
		cfg.Limits.TrialDays = 7
		log.Println("Trial duration not specified, using default 7 days")
	}

	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = 30
		log.Println("Generation timeout not specified, using default 30s")
	}
	if cfg.Generation.Count == 0 {
		cfg.Generation.Count = 3
	}

	if cfg.Domains.App == "" {
		cfg.Domains.App = "explicae.com.br"
		log.Println("App domain not specified, using default explicae.com.br")
	}
	if !v.IsSet("domains.secure") {
		env := os.Getenv("EXPLICAE_ENV")
		cfg.Domains.Secure = env == "prod"
		log.Printf("Domain security not specified, defaulting to %v based on environment", cfg.Domains.Secure)
	}

	return &cfg, nil
}
