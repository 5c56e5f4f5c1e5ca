// Package config resolves lead server settings from flags, the process
// environment and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/notify"
)

const (
	ProviderNone    = "none"
	ProviderHTTP    = "http"
	ProviderRealtor = "realtor"

	LLMGemini    = "gemini"
	LLMAnthropic = "anthropic"
)

type Config struct {
	Addr string

	DatabaseDriver string
	DatabaseURL    string

	CaptchaSecret   string
	CaptchaDisabled bool

	LLMProvider     string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string

	PropertyProvider string
	PropertyAPIURL   string
	PropertyAPIKey   string

	SMTP              notify.SMTPConfig
	InternalRecipient string

	Archive leads.ArchiveConfig

	UnderwritingFile string
	OTLPEndpoint     string
}

// ArchiveEnabled reports whether lead archiving to object storage is set up.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Endpoint != "" && c.Archive.Bucket != ""
}

// MailEnabled reports whether SMTP credentials are present. Without them the
// server logs emails instead of sending them.
func (c *Config) MailEnabled() bool {
	return c.SMTP.Username != "" && c.SMTP.Password != ""
}

// Load reads .env (if present), parses args and then the environment. PORT
// overrides -addr, matching how the hosting platform injects the port.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("leadserver", flag.ContinueOnError)
	addr := fs.String("addr", ":5000", "listen address")
	dbDriver := fs.String("db-driver", "", "database driver: sqlite or postgres (env DATABASE_DRIVER)")
	dbURL := fs.String("db-url", "", "database DSN (env DATABASE_URL)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if env("PORT") == "" {
		cfg.Addr = *addr
	}
	cfg.DatabaseDriver = strings.ToLower(firstNonEmpty(*dbDriver, cfg.DatabaseDriver))
	cfg.DatabaseURL = firstNonEmpty(*dbURL, cfg.DatabaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads .env (if present) and the environment without validating.
// Callers that only need part of the pipeline validate what they use.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{Addr: ":5000"}
	if port := env("PORT"); port != "" {
		if strings.HasPrefix(port, ":") {
			cfg.Addr = port
		} else {
			cfg.Addr = ":" + port
		}
	}

	cfg.DatabaseDriver = strings.ToLower(firstNonEmpty(env("DATABASE_DRIVER"), "sqlite"))
	cfg.DatabaseURL = firstNonEmpty(env("DATABASE_URL"), "leads.db")

	cfg.CaptchaSecret = env("RECAPTCHA_SECRET_KEY")
	cfg.CaptchaDisabled = envBool("CAPTCHA_DISABLED", false)

	cfg.GeminiAPIKey = env("GEMINI_API_KEY")
	cfg.GeminiModel = env("GEMINI_MODEL")
	cfg.AnthropicAPIKey = env("ANTHROPIC_API_KEY")
	cfg.AnthropicModel = env("ANTHROPIC_MODEL")
	cfg.LLMProvider = strings.ToLower(firstNonEmpty(env("VALUATION_LLM_PROVIDER"), LLMGemini))

	cfg.PropertyProvider = strings.ToLower(firstNonEmpty(env("PROPERTY_PROVIDER"), ProviderNone))
	cfg.PropertyAPIURL = env("PROPERTY_API_URL")
	cfg.PropertyAPIKey = env("PROPERTY_API_KEY")

	port, err := envInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTP = notify.SMTPConfig{
		Host:     firstNonEmpty(env("SMTP_HOST"), "smtp.gmail.com"),
		Port:     port,
		Username: env("EMAIL_USER"),
		Password: env("EMAIL_PASS"),
		From:     env("EMAIL_FROM"),
	}
	cfg.InternalRecipient = firstNonEmpty(env("INTERNAL_EMAIL"), cfg.SMTP.Username)

	cfg.Archive = leads.ArchiveConfig{
		Endpoint:  env("LEAD_ARCHIVE_ENDPOINT"),
		Region:    firstNonEmpty(env("LEAD_ARCHIVE_REGION"), "us-east-1"),
		AccessKey: env("LEAD_ARCHIVE_ACCESS_KEY"),
		SecretKey: env("LEAD_ARCHIVE_SECRET_KEY"),
		Bucket:    env("LEAD_ARCHIVE_BUCKET"),
		UseSSL:    envBool("LEAD_ARCHIVE_USE_SSL", true),
	}

	cfg.UnderwritingFile = env("UNDERWRITING_FILE")
	cfg.OTLPEndpoint = env("OTEL_EXPORTER_OTLP_ENDPOINT")
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q: want sqlite or postgres", c.DatabaseDriver))
	}
	if !c.CaptchaDisabled && c.CaptchaSecret == "" {
		errs = append(errs, errors.New("RECAPTCHA_SECRET_KEY is required unless CAPTCHA_DISABLED=true"))
	}
	switch c.LLMProvider {
	case LLMGemini, LLMAnthropic:
	default:
		errs = append(errs, fmt.Errorf("VALUATION_LLM_PROVIDER %q: want gemini or anthropic", c.LLMProvider))
	}
	switch c.PropertyProvider {
	case ProviderNone, ProviderRealtor:
	case ProviderHTTP:
		if c.PropertyAPIURL == "" {
			errs = append(errs, errors.New("PROPERTY_API_URL is required for PROPERTY_PROVIDER=http"))
		}
	default:
		errs = append(errs, fmt.Errorf("PROPERTY_PROVIDER %q: want none, http or realtor", c.PropertyProvider))
	}
	return errors.Join(errs...)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envBool(key string, def bool) bool {
	raw := env(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	raw := env(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s %q: want a positive integer", key, raw)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
