package valuation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/propertydata"
)

const (
	SellerSubject   = "Your Property Evaluation"
	InternalSubject = "New Property Lead + AI Appraisal"

	ManualReviewMessage = "Thank you for your submission. We will follow up after manual review."
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatSellerMessage renders the seller-facing email. It carries only the
// address and the final offer; nothing about margins, rehab or reasoning.
func FormatSellerMessage(res Result, sellerName string) string {
	greeting := "Hello"
	if name := strings.TrimSpace(sellerName); name != "" {
		greeting += " " + name
	}
	offer := res.DealMath.OfferToSellerMax
	if math.IsNaN(offer) || math.IsInf(offer, 0) || math.Round(offer) <= 0 {
		return greeting + ",\n\nThank you for submitting your property details. " +
			"After a preliminary review, we are unable to extend a cash offer at this time."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n\n", greeting)
	fmt.Fprintf(&b, "Thank you for submitting your property at %s.\n", res.SubjectSummary.Address)
	fmt.Fprintf(&b, "We are pleased to present you with a preliminary cash offer.\n\n")
	fmt.Fprintf(&b, "Estimated Cash Offer: %s", FormatUSD(offer, 0))
	return b.String()
}

// FormatInternalReport renders the team-facing appraisal. The layout is
// plain text that also reads as markdown, so the mailer can attach an HTML
// rendering of the same body.
func FormatInternalReport(res Result, form leads.Form, rec *propertydata.Record, lookupErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INTERNAL AI APPRAISAL\n=======================\n\n")
	fmt.Fprintf(&b, "DECISION: %s\n\n", res.Decision)
	fmt.Fprintf(&b, "ADDRESS: %s\n\n", res.SubjectSummary.Address)
	condition := string(res.Condition)
	if condition == "" {
		condition = "Not assessed"
	}
	fmt.Fprintf(&b, "CONDITION: %s\n\n", condition)

	fmt.Fprintf(&b, "LIEN SURVIVABILITY\n-----------------------\n\n%s\n\n", res.LienNote)

	dm := res.DealMath
	fmt.Fprintf(&b, "DEAL METRICS\n-----------------------\n\n")
	fmt.Fprintf(&b, "- ARV: %s (Range: %s - %s)\n", FormatUSD(res.ARV.Base, 2), FormatUSD(res.ARV.Low, 2), FormatUSD(res.ARV.High, 2))
	fmt.Fprintf(&b, "- Reasoning: %s\n", sanitizeLine(res.ARV.Reasoning))
	fmt.Fprintf(&b, "- Rehab: %s\n", FormatUSD(res.Rehab.Total, 2))
	for _, li := range res.Rehab.LineItems {
		if li.Notes != "" {
			fmt.Fprintf(&b, "    - %s: %s (%s)\n", sanitizeLine(li.Item), FormatUSD(li.Total, 2), sanitizeLine(li.Notes))
		} else {
			fmt.Fprintf(&b, "    - %s: %s\n", sanitizeLine(li.Item), FormatUSD(li.Total, 2))
		}
	}
	fmt.Fprintf(&b, "- End Buyer Margin: %.1f%%\n", dm.Margin*100)
	fmt.Fprintf(&b, "- Holding Costs: %s\n", FormatUSD(dm.HoldingCosts, 2))
	fmt.Fprintf(&b, "- Encumbrances: %s\n", FormatUSD(dm.TotalEncumbrances, 2))
	fmt.Fprintf(&b, "- End Buyer MAO: %s\n", FormatUSD(dm.EndBuyerMAO, 2))
	fmt.Fprintf(&b, "- MAX OFFER: %s\n\n", FormatUSD(dm.OfferToSellerMax, 2))

	fmt.Fprintf(&b, "RISKS\n-----------------------\n\n")
	if len(res.Risks) == 0 {
		fmt.Fprintf(&b, "- None reported\n")
	}
	for _, r := range res.Risks {
		fmt.Fprintf(&b, "- %s: %s (Mitigation: %s)\n", r.Severity, sanitizeLine(r.Risk), sanitizeLine(r.Mitigation))
	}
	b.WriteString("\n")

	if res.Overview != "" {
		fmt.Fprintf(&b, "OVERVIEW\n-----------------------\n\n%s\n\n", res.Overview)
	}

	fmt.Fprintf(&b, "PROPERTY DATA\n-----------------------\n\n%s\n\n", enrichmentStatus(rec, lookupErr))
	writeRawData(&b, form, rec)
	return b.String()
}

// FallbackMessages is used whenever the model call or its output fails. The
// internal text keeps the error and the raw inputs for manual review.
func FallbackMessages(err error, form leads.Form, rec *propertydata.Record) Messages {
	var b strings.Builder
	fmt.Fprintf(&b, "AI FAILED. Error: %v\n\n", err)
	fmt.Fprintf(&b, "Form: %s\n\n", prettyJSON(form))
	fmt.Fprintf(&b, "API: %s", recordJSON(rec))
	return Messages{Seller: ManualReviewMessage, Internal: b.String(), Err: err}
}

// FormatUSD renders en-US currency, e.g. $99,000 or -$1,250.50.
func FormatUSD(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	if decimals <= 0 {
		return sign + "$" + usPrinter.Sprintf("%.0f", math.Round(v))
	}
	return sign + "$" + usPrinter.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}

func enrichmentStatus(rec *propertydata.Record, lookupErr error) string {
	switch {
	case lookupErr != nil:
		return fmt.Sprintf("Enrichment unavailable (%v). Appraisal is based on seller input only.", lookupErr)
	case rec == nil:
		return propertydata.NoDataMessage
	default:
		source := rec.Source
		if source == "" {
			source = "provider"
		}
		return "Enriched from " + source + "."
	}
}

func writeRawData(b *strings.Builder, form leads.Form, rec *propertydata.Record) {
	fmt.Fprintf(b, "RAW DATA\n=======================\n\n")
	fmt.Fprintf(b, "FORM:\n\n```json\n%s\n```\n\n", prettyJSON(form))
	fmt.Fprintf(b, "API:\n\n```json\n%s\n```\n", recordJSON(rec))
}

func recordJSON(rec *propertydata.Record) string {
	if rec == nil {
		return "{}"
	}
	return prettyJSON(rec)
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sanitizeLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if s == "" {
		return "-"
	}
	return s
}
