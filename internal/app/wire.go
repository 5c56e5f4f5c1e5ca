// Package app assembles the lead pipeline collaborators from a Config. Both
// binaries share it so the server and the CLI appraise leads identically.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/joelkehle/propertylead/internal/captcha"
	"github.com/joelkehle/propertylead/internal/config"
	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/notify"
	"github.com/joelkehle/propertylead/internal/propertydata"
	"github.com/joelkehle/propertylead/internal/valuation"
)

func Provider(cfg *config.Config, logger *zap.Logger) propertydata.Provider {
	switch cfg.PropertyProvider {
	case config.ProviderHTTP:
		return propertydata.NewHTTPProvider(cfg.PropertyAPIURL, cfg.PropertyAPIKey)
	case config.ProviderRealtor:
		return propertydata.NewRealtorScraper(logger.Named("realtor"))
	default:
		return propertydata.Placeholder{}
	}
}

// Caller returns nil when the selected provider has no API key; the
// evaluator then reports every lead as needing manual review.
func Caller(ctx context.Context, cfg *config.Config, logger *zap.Logger) (valuation.LLMCaller, error) {
	switch cfg.LLMProvider {
	case config.LLMAnthropic:
		if cfg.AnthropicAPIKey == "" {
			logger.Warn("ANTHROPIC_API_KEY not set; valuations fall back to manual review")
			return nil, nil
		}
		return valuation.NewAnthropicCaller(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set; valuations fall back to manual review")
			return nil, nil
		}
		return valuation.NewGeminiCaller(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
}

func Appraiser(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*valuation.Appraiser, error) {
	costs := valuation.DefaultCostAssumptions()
	if cfg.UnderwritingFile != "" {
		var err error
		costs, err = valuation.LoadCostAssumptions(cfg.UnderwritingFile)
		if err != nil {
			return nil, err
		}
	}
	caller, err := Caller(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("valuation model: %w", err)
	}
	return valuation.NewAppraiser(valuation.NewEvaluator(caller, logger.Named("valuation")), costs), nil
}

func Mailer(cfg *config.Config, logger *zap.Logger) (notify.Mailer, error) {
	if !cfg.MailEnabled() {
		logger.Warn("EMAIL_USER/EMAIL_PASS not set; emails are logged, not sent")
		return notify.LogMailer{Logger: logger.Named("mail")}, nil
	}
	return notify.NewSMTPMailer(cfg.SMTP)
}

// Captcha returns nil when verification is disabled.
func Captcha(cfg *config.Config, logger *zap.Logger) captcha.Verifier {
	if cfg.CaptchaDisabled {
		logger.Warn("captcha verification disabled")
		return nil
	}
	return captcha.NewRecaptcha(cfg.CaptchaSecret)
}

func Archive(cfg *config.Config) (leads.Archive, error) {
	if !cfg.ArchiveEnabled() {
		return nil, nil
	}
	return leads.NewObjectArchive(cfg.Archive)
}
