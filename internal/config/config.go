package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabaseDriver string // "sqlite" or "mongo"
	DatabasePath   string
	MongoURL       string
	MongoDatabase  string
	ClientURL      string // Allowed CORS origin and base for email links
	AllowNoOrigin  bool   // Set by --api to let non-browser clients through CORS
	JWTSecret      string
	LogLevel       string
	Production     bool

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string
	NATSURL  string

	TokenSweepSpec string
}

// ErrMissingJWTSecret is returned when no signing key is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// NewFlagSet declares the command line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Bool("api", false, "allow requests without an Origin header (API clients)")
	fs.Int("port", 0, "listen port (overrides PORT)")
	return fs
}

// Load loads configuration from a .env file, environment variables and
// parsed flags, falling back to defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("PORT", 4000)
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_PATH", "./uptask.db")
	v.SetDefault("MONGO_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "uptask")
	v.SetDefault("CLIENT_URL", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "UpTask <uptask_admin@uptask.local>")
	v.SetDefault("TOKEN_SWEEP_SPEC", "@every 10m")

	cfg := &Config{
		ServerPort:     v.GetInt("PORT"),
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabasePath:   v.GetString("DATABASE_PATH"),
		MongoURL:       v.GetString("MONGO_URL"),
		MongoDatabase:  v.GetString("MONGO_DATABASE"),
		ClientURL:      strings.TrimRight(v.GetString("CLIENT_URL"), "/"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		Production:     v.GetString("APP_ENV") == "production",
		SMTPHost:       v.GetString("SMTP_HOST"),
		SMTPPort:       v.GetInt("SMTP_PORT"),
		SMTPUser:       v.GetString("SMTP_USER"),
		SMTPPass:       v.GetString("SMTP_PASS"),
		MailFrom:       v.GetString("MAIL_FROM"),
		NATSURL:        v.GetString("NATS_URL"),
		TokenSweepSpec: v.GetString("TOKEN_SWEEP_SPEC"),
	}

	if flags != nil {
		if api, err := flags.GetBool("api"); err == nil {
			cfg.AllowNoOrigin = api
		}
		if port, err := flags.GetInt("port"); err == nil && port > 0 {
			cfg.ServerPort = port
		}
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	switch cfg.DatabaseDriver {
	case "sqlite", "mongo":
	default:
		return nil, errors.New("DATABASE_DRIVER must be sqlite or mongo")
	}
	return cfg, nil
}
