package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/notify"
	"github.com/joelkehle/propertylead/internal/propertydata"
	"github.com/joelkehle/propertylead/internal/valuation"
)

type fakeVerifier struct {
	ok    bool
	err   error
	calls int
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (bool, error) {
	f.calls++
	return f.ok, f.err
}

type fakeStore struct {
	err   error
	forms []leads.Form
}

func (f *fakeStore) Insert(_ context.Context, form leads.Form) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.forms = append(f.forms, form)
	return "lead-1", nil
}

func (f *fakeStore) Recent(_ context.Context, _ int) ([]leads.Lead, error) {
	out := make([]leads.Lead, 0, len(f.forms))
	for _, form := range f.forms {
		out = append(out, leads.Lead{ID: "lead-1", Form: form})
	}
	return out, nil
}

type fakeArchive struct {
	err error
	ids []string
}

func (f *fakeArchive) Put(_ context.Context, id string, _ leads.Form) error {
	f.ids = append(f.ids, id)
	return f.err
}

type fakeProvider struct {
	rec     *propertydata.Record
	err     error
	address string
}

func (f *fakeProvider) Lookup(_ context.Context, address string) (*propertydata.Record, error) {
	f.address = address
	return f.rec, f.err
}

type fakeMailer struct {
	sent   []notify.Message
	failOn string
}

func (f *fakeMailer) Send(_ context.Context, msg notify.Message) error {
	if f.failOn != "" && msg.Subject == f.failOn {
		return errors.New("smtp: 535 auth failed")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeCaller struct {
	out   string
	err   error
	calls int
}

func (f *fakeCaller) GenerateJSON(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.out, f.err
}

type harness struct {
	verifier *fakeVerifier
	store    *fakeStore
	archive  *fakeArchive
	provider *fakeProvider
	mailer   *fakeMailer
	caller   *fakeCaller
	logger   *zap.Logger
	svc      *Service
}

func newHarness() *harness {
	h := &harness{
		verifier: &fakeVerifier{ok: true},
		store:    &fakeStore{},
		archive:  &fakeArchive{},
		provider: &fakeProvider{err: propertydata.ErrNoData},
		mailer:   &fakeMailer{},
		caller:   &fakeCaller{out: `{"arv":{"base":200000},"rehab":{"total":20000},"estimated_condition":"Moderate","decision":"GO"}`},
	}
	h.build()
	return h
}

func (h *harness) build() {
	appraiser := valuation.NewAppraiser(valuation.NewEvaluator(h.caller, nil), valuation.DefaultCostAssumptions())
	h.svc = NewService(Deps{
		Captcha:           h.verifier,
		Store:             h.store,
		Archive:           h.archive,
		Provider:          h.provider,
		Appraiser:         appraiser,
		Mailer:            h.mailer,
		InternalRecipient: "team@example.com",
		Logger:            h.logger,
	})
}

func samplePayload() map[string]any {
	return map[string]any{
		"captcha": "tok",
		"name":    "Dana",
		"email":   "dana@example.com",
		"address": "12 Oak Rd",
		"city":    "Erie",
		"state":   "PA",
		"beds":    "3",
		"baths":   "2",
		"sqft":    "1500",
	}
}

func asIntakeError(t *testing.T, err error) *Error {
	t.Helper()
	var ie *Error
	if !errors.As(err, &ie) {
		t.Fatalf("expected *intake.Error, got %T %v", err, err)
	}
	return ie
}

func TestSubmitHappyPath(t *testing.T) {
	h := newHarness()
	rcpt, err := h.svc.Submit(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rcpt.LeadID != "lead-1" || !rcpt.Valuated || !rcpt.SellerNotified {
		t.Fatalf("unexpected receipt %+v", rcpt)
	}
	if len(h.store.forms) != 1 {
		t.Fatalf("expected one stored lead, got %d", len(h.store.forms))
	}
	if _, ok := h.store.forms[0]["captcha"]; ok {
		t.Fatal("captcha token must not be persisted")
	}
	if h.provider.address != "12 Oak Rd, Erie, PA" {
		t.Fatalf("unexpected lookup address %q", h.provider.address)
	}
	if len(h.archive.ids) != 1 || h.archive.ids[0] != "lead-1" {
		t.Fatalf("expected archive write, got %v", h.archive.ids)
	}
	if len(h.mailer.sent) != 2 {
		t.Fatalf("expected two emails, got %d", len(h.mailer.sent))
	}
	internal, seller := h.mailer.sent[0], h.mailer.sent[1]
	if internal.To[0] != "team@example.com" || internal.Subject != valuation.InternalSubject || !internal.Markdown {
		t.Fatalf("unexpected internal email %+v", internal)
	}
	if !strings.Contains(internal.Text, "DECISION: GO") || !strings.Contains(internal.Text, propertydata.NoDataMessage) {
		t.Fatalf("unexpected internal body: %s", internal.Text)
	}
	if seller.To[0] != "dana@example.com" || seller.Subject != valuation.SellerSubject {
		t.Fatalf("unexpected seller email %+v", seller)
	}
	if !strings.Contains(seller.Text, "$99,000") {
		t.Fatalf("seller email missing offer: %s", seller.Text)
	}
}

func TestSubmitMissingCaptcha(t *testing.T) {
	h := newHarness()
	p := samplePayload()
	delete(p, "captcha")
	_, err := h.svc.Submit(context.Background(), p)
	ie := asIntakeError(t, err)
	if ie.Status != 400 || ie.Message != "Captcha missing" {
		t.Fatalf("unexpected error %+v", ie)
	}
	if h.verifier.calls != 0 || len(h.store.forms) != 0 || h.caller.calls != 0 || len(h.mailer.sent) != 0 {
		t.Fatal("nothing may run after a missing captcha")
	}
}

func TestSubmitCaptchaRejected(t *testing.T) {
	h := newHarness()
	h.verifier.ok = false
	_, err := h.svc.Submit(context.Background(), samplePayload())
	ie := asIntakeError(t, err)
	if ie.Status != 400 || ie.Message != "Captcha failed" {
		t.Fatalf("unexpected error %+v", ie)
	}
	if len(h.store.forms) != 0 || h.caller.calls != 0 {
		t.Fatal("no persistence or valuation after captcha failure")
	}
}

func TestSubmitCaptchaVerifierOutageIsInternalError(t *testing.T) {
	h := newHarness()
	h.verifier.err = errors.New("dial tcp 142.250.80.4:443: i/o timeout")
	_, err := h.svc.Submit(context.Background(), samplePayload())
	ie := asIntakeError(t, err)
	if ie.Status != 500 || ie.Code != CodeInternal || ie.Message != "Internal server error" {
		t.Fatalf("unexpected error %+v", ie)
	}
	if StageNameFromError(err) != stageCaptcha {
		t.Fatalf("expected captcha stage, got %q", StageNameFromError(err))
	}
	if len(h.store.forms) != 0 || h.caller.calls != 0 || len(h.mailer.sent) != 0 {
		t.Fatal("nothing may run after a verifier outage")
	}
}

func TestSubmitPersistenceFailure(t *testing.T) {
	h := newHarness()
	h.store.err = errors.New("relation property_leads does not exist")
	_, err := h.svc.Submit(context.Background(), samplePayload())
	ie := asIntakeError(t, err)
	if ie.Status != 500 || ie.Code != CodePersistence {
		t.Fatalf("unexpected error %+v", ie)
	}
	if ie.Message != "relation property_leads does not exist" {
		t.Fatalf("expected store message, got %q", ie.Message)
	}
	if StageNameFromError(err) != stagePersist {
		t.Fatalf("expected persist stage, got %q", StageNameFromError(err))
	}
	if h.caller.calls != 0 || len(h.mailer.sent) != 0 {
		t.Fatal("no valuation or email after persistence failure")
	}
}

func TestSubmitLookupFailureDegrades(t *testing.T) {
	h := newHarness()
	h.provider.err = errors.New("scrape blocked by bot wall")
	rcpt, err := h.svc.Submit(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("lookup failure must not fail the request: %v", err)
	}
	if rcpt.Enriched {
		t.Fatal("expected unenriched receipt")
	}
	if !strings.Contains(h.mailer.sent[0].Text, "Enrichment unavailable (scrape blocked by bot wall)") {
		t.Fatalf("internal report should note degraded enrichment: %s", h.mailer.sent[0].Text)
	}
}

func TestSubmitEnrichedRecordFlowsToReport(t *testing.T) {
	h := newHarness()
	h.provider.err = nil
	h.provider.rec = &propertydata.Record{Address: "12 Oak Rd, Erie, PA 16501", Source: "api", AnnualTaxAmount: 2400}
	rcpt, err := h.svc.Submit(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !rcpt.Enriched {
		t.Fatal("expected enriched receipt")
	}
	body := h.mailer.sent[0].Text
	if !strings.Contains(body, "Enriched from api.") || !strings.Contains(body, "Encumbrances: $2,400.00") {
		t.Fatalf("unexpected internal body: %s", body)
	}
}

func TestSubmitModelFailureStillNotifies(t *testing.T) {
	h := newHarness()
	h.caller.out = "not json"
	rcpt, err := h.svc.Submit(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rcpt.Valuated {
		t.Fatal("expected fallback valuation")
	}
	if h.mailer.sent[1].Text != valuation.ManualReviewMessage {
		t.Fatalf("unexpected seller text %q", h.mailer.sent[1].Text)
	}
	if !strings.HasPrefix(h.mailer.sent[0].Text, "AI FAILED. Error:") {
		t.Fatalf("unexpected internal text %q", h.mailer.sent[0].Text)
	}
}

func TestSubmitWithoutSellerEmail(t *testing.T) {
	h := newHarness()
	p := samplePayload()
	delete(p, "email")
	rcpt, err := h.svc.Submit(context.Background(), p)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rcpt.SellerNotified || len(h.mailer.sent) != 1 {
		t.Fatalf("expected internal email only, sent=%d", len(h.mailer.sent))
	}
}

func TestSubmitEmailFailureIsInternalError(t *testing.T) {
	h := newHarness()
	h.mailer.failOn = valuation.SellerSubject
	rcpt, err := h.svc.Submit(context.Background(), samplePayload())
	ie := asIntakeError(t, err)
	if ie.Status != 500 || ie.Message != "Internal server error" {
		t.Fatalf("unexpected error %+v", ie)
	}
	if StageNameFromError(err) != stageNotifySeller {
		t.Fatalf("expected seller notify stage, got %q", StageNameFromError(err))
	}
	if rcpt.LeadID == "" || len(h.store.forms) != 1 {
		t.Fatal("lead must stay stored when email fails")
	}
}

func TestSubmitArchiveFailureIsIgnored(t *testing.T) {
	h := newHarness()
	h.archive.err = errors.New("bucket unavailable")
	if _, err := h.svc.Submit(context.Background(), samplePayload()); err != nil {
		t.Fatalf("archive failure must not fail the request: %v", err)
	}
}

func TestSubmitWithoutCaptchaVerifier(t *testing.T) {
	h := newHarness()
	h.svc.captcha = nil
	p := samplePayload()
	delete(p, "captcha")
	if _, err := h.svc.Submit(context.Background(), p); err != nil {
		t.Fatalf("captcha disabled: %v", err)
	}
}

func TestSubmitWithoutInternalRecipientLogsLeadID(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := newHarness()
	h.logger = zap.New(core)
	h.build()
	h.svc.internalTo = ""
	if _, err := h.svc.Submit(context.Background(), samplePayload()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	entries := logs.FilterMessageSnippet("no internal recipient").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["lead_id"]; got != "lead-1" {
		t.Fatalf("warning lead_id=%v", got)
	}
	if len(h.mailer.sent) != 1 || h.mailer.sent[0].Subject != valuation.SellerSubject {
		t.Fatalf("expected only the seller email, got %+v", h.mailer.sent)
	}
}
