// Package intake handles one property lead submission end to end: bot
// check, persistence, enrichment, valuation and notification.
package intake

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/propertylead/internal/captcha"
	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/notify"
	"github.com/joelkehle/propertylead/internal/propertydata"
	"github.com/joelkehle/propertylead/internal/valuation"
)

const (
	stageCaptcha        = "captcha"
	stagePersist        = "persist"
	stageArchive        = "archive"
	stageLookup         = "lookup"
	stageNotifyInternal = "notify_internal"
	stageNotifySeller   = "notify_seller"
)

var tracer = otel.Tracer("github.com/joelkehle/propertylead/internal/intake")

type Deps struct {
	// Captcha may be nil to skip bot verification.
	Captcha   captcha.Verifier
	Store     leads.Store
	Archive   leads.Archive
	Provider  propertydata.Provider
	Appraiser *valuation.Appraiser
	Mailer    notify.Mailer
	// InternalRecipient receives every internal appraisal.
	InternalRecipient string
	Logger            *zap.Logger
}

type Service struct {
	captcha    captcha.Verifier
	store      leads.Store
	archive    leads.Archive
	provider   propertydata.Provider
	appraiser  *valuation.Appraiser
	mailer     notify.Mailer
	internalTo string
	logger     *zap.Logger
}

func NewService(d Deps) *Service {
	if d.Provider == nil {
		d.Provider = propertydata.Placeholder{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		captcha:    d.Captcha,
		store:      d.Store,
		archive:    d.Archive,
		provider:   d.Provider,
		appraiser:  d.Appraiser,
		mailer:     d.Mailer,
		internalTo: strings.TrimSpace(d.InternalRecipient),
		logger:     d.Logger,
	}
}

type Receipt struct {
	LeadID         string
	Enriched       bool
	Valuated       bool
	SellerNotified bool
}

// Submit processes a raw form payload. The lead is stored before any
// enrichment or valuation; later failures never lose it. Enrichment and
// valuation failures degrade instead of failing the request. Captcha verifier
// outages and email failures do fail it, with a generic message.
func (s *Service) Submit(ctx context.Context, payload map[string]any) (rcpt Receipt, err error) {
	ctx, span := tracer.Start(ctx, "intake.submit", trace.WithSpanKind(trace.SpanKindServer))
	defer func() {
		span.SetAttributes(
			attribute.String("lead_id", rcpt.LeadID),
			attribute.Bool("enriched", rcpt.Enriched),
			attribute.Bool("valuated", rcpt.Valuated),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, StageNameFromError(err))
		}
		span.End()
	}()

	raw := leads.Form(payload)
	token := raw.String(leads.CaptchaField)
	if s.captcha != nil {
		if token == "" {
			return Receipt{}, newError(CodeCaptchaMissing, "Captcha missing", nil)
		}
		ok, err := s.captcha.Verify(ctx, token)
		if err != nil {
			s.logger.Error("captcha verification error", zap.Error(err))
			return Receipt{}, newError(CodeInternal, "Internal server error", &StageError{Stage: stageCaptcha, Err: err})
		}
		if !ok {
			return Receipt{}, newError(CodeCaptchaFailed, "Captcha failed", nil)
		}
	}
	form := raw.Without(leads.CaptchaField)

	id, err := s.store.Insert(ctx, form)
	if err != nil {
		s.logger.Error("lead insert failed", zap.Error(err))
		return Receipt{}, newError(CodePersistence, err.Error(), &StageError{Stage: stagePersist, Err: err})
	}
	rcpt.LeadID = id
	log := s.logger.With(zap.String("lead_id", id))

	if s.archive != nil {
		if err := s.archive.Put(ctx, id, form); err != nil {
			log.Warn("lead archive failed", zap.String("stage", stageArchive), zap.Error(err))
		}
	}

	rec, lookupErr := s.provider.Lookup(ctx, form.Address())
	switch {
	case lookupErr == nil && rec != nil:
		rcpt.Enriched = true
	case errors.Is(lookupErr, propertydata.ErrNoData):
		log.Info("no property record", zap.Error(lookupErr))
		rec, lookupErr = nil, nil
	case lookupErr != nil:
		log.Warn("property lookup failed", zap.String("stage", stageLookup), zap.Error(lookupErr))
		rec = nil
	}

	msgs := s.appraiser.Appraise(ctx, form, rec, lookupErr)
	rcpt.Valuated = msgs.Result != nil
	if msgs.Err != nil {
		log.Warn("valuation fell back to manual review", zap.Error(msgs.Err))
	}

	if err := s.notify(ctx, log, form, msgs, &rcpt); err != nil {
		log.Error("notification failed", zap.String("stage", StageNameFromError(err)), zap.Error(err))
		return rcpt, newError(CodeInternal, "Internal server error", err)
	}
	log.Info("lead processed",
		zap.Bool("enriched", rcpt.Enriched),
		zap.Bool("valuated", rcpt.Valuated),
		zap.Bool("seller_notified", rcpt.SellerNotified),
	)
	return rcpt, nil
}

func (s *Service) notify(ctx context.Context, log *zap.Logger, form leads.Form, msgs valuation.Messages, rcpt *Receipt) error {
	if s.internalTo != "" {
		err := s.mailer.Send(ctx, notify.Message{
			To:       []string{s.internalTo},
			Subject:  valuation.InternalSubject,
			Text:     msgs.Internal,
			Markdown: true,
		})
		if err != nil {
			return &StageError{Stage: stageNotifyInternal, Err: err}
		}
	} else {
		log.Warn("no internal recipient configured; internal appraisal not emailed")
	}

	email := form.String("email")
	if email == "" {
		return nil
	}
	if err := s.mailer.Send(ctx, notify.Message{
		To:      []string{email},
		Subject: valuation.SellerSubject,
		Text:    msgs.Seller,
	}); err != nil {
		return &StageError{Stage: stageNotifySeller, Err: err}
	}
	rcpt.SellerNotified = true
	return nil
}

// Recent exposes the store probe used by the health endpoint.
func (s *Service) Recent(ctx context.Context, limit int) ([]leads.Lead, error) {
	return s.store.Recent(ctx, limit)
}
