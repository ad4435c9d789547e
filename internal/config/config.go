package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the typed view of configs/config.yml plus GREENHOUSE_* env overrides.
type Config struct {
	Port     string
	Log      LogConfig
	DB       DBConfig
	Auth     AuthConfig
	Feed     FeedConfig
	Decision DecisionConfig
	Schedule ScheduleConfig
	Influx   InfluxConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type DBConfig struct {
	Path string
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

type FeedConfig struct {
	BaseURL      string
	Key          string
	PollInterval time.Duration
	Timeout      time.Duration
}

type DecisionConfig struct {
	ServiceURL       string
	CallTimeout      time.Duration
	HealthTimeout    time.Duration
	FailureThreshold uint32
	ResetTimeout     time.Duration
	RateLimit        time.Duration
	MaxDataAge       time.Duration
	FallbackDuration time.Duration
	EvaluateOnIngest bool
}

type ScheduleConfig struct {
	Tick     time.Duration
	Timezone string
}

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// ErrDecisionServiceURL is the one unconditional start-up failure.
var ErrDecisionServiceURL = errors.New("decision.service_url is required")

const envPrefix = "GREENHOUSE"

// Load reads configs/config.yml (if present) and environment overrides.
// A .env file in the working directory is loaded first when it exists.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.path", "greenhouse.db")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("feed.poll_interval", 10*time.Second)
	v.SetDefault("feed.timeout", 5*time.Second)
	v.SetDefault("decision.call_timeout", 10*time.Second)
	v.SetDefault("decision.health_timeout", 5*time.Second)
	v.SetDefault("decision.failure_threshold", 3)
	v.SetDefault("decision.reset_timeout", 30*time.Second)
	v.SetDefault("decision.rate_limit", 5*time.Minute)
	v.SetDefault("decision.max_data_age", 10*time.Minute)
	v.SetDefault("decision.fallback_duration", 30*time.Minute)
	v.SetDefault("decision.evaluate_on_ingest", true)
	v.SetDefault("schedule.tick", time.Minute)
	v.SetDefault("schedule.timezone", "Asia/Ho_Chi_Minh")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port: v.GetString("port"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		DB: DBConfig{Path: v.GetString("db.path")},
		Auth: AuthConfig{
			SigningKey: v.GetString("auth.signing_key"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
		},
		Feed: FeedConfig{
			BaseURL:      v.GetString("feed.base_url"),
			Key:          v.GetString("feed.key"),
			PollInterval: v.GetDuration("feed.poll_interval"),
			Timeout:      v.GetDuration("feed.timeout"),
		},
		Decision: DecisionConfig{
			ServiceURL:       strings.TrimRight(v.GetString("decision.service_url"), "/"),
			CallTimeout:      v.GetDuration("decision.call_timeout"),
			HealthTimeout:    v.GetDuration("decision.health_timeout"),
			FailureThreshold: v.GetUint32("decision.failure_threshold"),
			ResetTimeout:     v.GetDuration("decision.reset_timeout"),
			RateLimit:        v.GetDuration("decision.rate_limit"),
			MaxDataAge:       v.GetDuration("decision.max_data_age"),
			FallbackDuration: v.GetDuration("decision.fallback_duration"),
			EvaluateOnIngest: v.GetBool("decision.evaluate_on_ingest"),
		},
		Schedule: ScheduleConfig{
			Tick:     v.GetDuration("schedule.tick"),
			Timezone: v.GetString("schedule.timezone"),
		},
		Influx: InfluxConfig{
			URL:    v.GetString("influx.url"),
			Token:  v.GetString("influx.token"),
			Org:    v.GetString("influx.org"),
			Bucket: v.GetString("influx.bucket"),
		},
	}
}

func (c *Config) validate() error {
	if c.Decision.ServiceURL == "" {
		return ErrDecisionServiceURL
	}
	if c.Feed.BaseURL == "" {
		return errors.New("feed.base_url is required")
	}
	if c.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required")
	}
	if c.Decision.FailureThreshold == 0 {
		return errors.New("decision.failure_threshold must be > 0")
	}
	if c.Influx.URL != "" && (c.Influx.Org == "" || c.Influx.Bucket == "") {
		return errors.New("influx.org and influx.bucket are required when influx.url is set")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}
