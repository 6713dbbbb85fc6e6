package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

var defaultEmailDomains = []string{
	"gmail.com", "outlook.com", "hotmail.com", "yahoo.com", "icloud.com",
	"ukr.net", "i.ua", "meta.ua", "proton.me",
}

type Config struct {
	Port         string
	DataBackend  string
	DatabaseURL  string
	SQLiteDBPath string

	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	PublicBaseURL string

	AllowedOrigins      []string
	AllowedEmailDomains []string
	DemoMode            bool
	ProfileCacheTTL     time.Duration

	AMQPURL       string
	AMQPExchange  string
	AMQPMailQueue string

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

// SetDefaults registers every key with its default so that AutomaticEnv can
// resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("data_backend", BackendPostgres)
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_db_path", "./data/fintrack.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "168h")
	v.SetDefault("reset_token_ttl", "1h")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("allowed_email_domains", strings.Join(defaultEmailDomains, ","))
	v.SetDefault("demo_mode", false)
	v.SetDefault("profile_cache_ttl", "5m")
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "fintrack")
	v.SetDefault("amqp_mail_queue", "mail_outbox")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "ledger_events")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("mail_from", "no-reply@fintrack.local")
}

// Load reads .env if present and resolves every key through v, which may
// already carry bound command line flags.
func Load(v *viper.Viper) (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	SetDefaults(v)
	v.AutomaticEnv()

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromViper(v *viper.Viper) *Config {
	return &Config{
		Port:                v.GetString("port"),
		DataBackend:         strings.ToLower(v.GetString("data_backend")),
		DatabaseURL:         v.GetString("database_url"),
		SQLiteDBPath:        v.GetString("sqlite_db_path"),
		JWTSecret:           v.GetString("jwt_secret"),
		TokenTTL:            v.GetDuration("token_ttl"),
		ResetTokenTTL:       v.GetDuration("reset_token_ttl"),
		PublicBaseURL:       strings.TrimRight(v.GetString("public_base_url"), "/"),
		AllowedOrigins:      splitList(v.GetString("allowed_origins")),
		AllowedEmailDomains: splitList(strings.ToLower(v.GetString("allowed_email_domains"))),
		DemoMode:            v.GetBool("demo_mode"),
		ProfileCacheTTL:     v.GetDuration("profile_cache_ttl"),
		AMQPURL:             v.GetString("amqp_url"),
		AMQPExchange:        v.GetString("amqp_exchange"),
		AMQPMailQueue:       v.GetString("amqp_mail_queue"),
		KafkaBrokers:        splitList(v.GetString("kafka_brokers")),
		KafkaTopic:          v.GetString("kafka_topic"),
		SMTPHost:            v.GetString("smtp_host"),
		SMTPPort:            v.GetInt("smtp_port"),
		SMTPUsername:        v.GetString("smtp_username"),
		SMTPPassword:        v.GetString("smtp_password"),
		MailFrom:            v.GetString("mail_from"),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when using the postgres backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLITE_DB_PATH cannot be empty when using the sqlite backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v",
			c.DataBackend, []string{BackendPostgres, BackendSQLite, BackendMemory}))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.ResetTokenTTL <= 0 {
		problems = append(problems, "RESET_TOKEN_TTL must be positive")
	}
	if c.ProfileCacheTTL <= 0 {
		problems = append(problems, "PROFILE_CACHE_TTL must be positive")
	}
	if _, err := url.ParseRequestURI(c.PublicBaseURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid PUBLIC_BASE_URL '%s'", c.PublicBaseURL))
	}
	if len(c.AllowedEmailDomains) == 0 {
		problems = append(problems, "ALLOWED_EMAIL_DOMAINS cannot be empty")
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL '%s': must use amqp:// or amqps://", c.AMQPURL))
		}
		if c.AMQPExchange == "" || c.AMQPMailQueue == "" {
			problems = append(problems, "AMQP_EXCHANGE and AMQP_MAIL_QUEUE are required when AMQP_URL is set")
		}
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		problems = append(problems, "KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.SMTPHost != "" && (c.SMTPPort < 1 || c.SMTPPort > 65535) {
		problems = append(problems, fmt.Sprintf("invalid SMTP_PORT %d", c.SMTPPort))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
