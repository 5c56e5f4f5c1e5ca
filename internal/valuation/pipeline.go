package valuation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/propertydata"
)

var tracer = otel.Tracer("github.com/joelkehle/propertylead/internal/valuation")

// Appraiser runs normalize, evaluate, deal math and formatting in order.
type Appraiser struct {
	evaluator *Evaluator
	costs     CostAssumptions
}

func NewAppraiser(evaluator *Evaluator, costs CostAssumptions) *Appraiser {
	return &Appraiser{evaluator: evaluator, costs: costs}
}

// Appraise always produces a pair of messages. A failed model call yields the
// manual-review fallback rather than an error.
func (a *Appraiser) Appraise(ctx context.Context, form leads.Form, rec *propertydata.Record, lookupErr error) Messages {
	ctx, span := tracer.Start(ctx, "valuation.appraise")
	defer span.End()

	req := Normalize(form, rec, a.costs)
	span.SetAttributes(
		attribute.String("sale_stage", string(req.Subject.SaleStage)),
		attribute.Bool("enriched", rec != nil && lookupErr == nil),
	)

	out := a.evaluate(ctx, req)
	if !out.OK() {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "valuation fell back to manual review")
		return FallbackMessages(out.Err, form, rec)
	}

	res := out.Result
	res.DealMath = ComputeDealMath(res.ARV.Base, res.Rehab.Total, res.Condition, a.costs, req.Subject.Encumbrances)
	span.SetAttributes(
		attribute.String("decision", string(res.Decision)),
		attribute.Float64("offer_to_seller_max", res.DealMath.OfferToSellerMax),
	)

	return Messages{
		Seller:   FormatSellerMessage(res, form.String("name")),
		Internal: FormatInternalReport(res, form, rec, lookupErr),
		Result:   &res,
	}
}

func (a *Appraiser) evaluate(ctx context.Context, req Request) Outcome {
	ctx, span := tracer.Start(ctx, "valuation.evaluate")
	defer span.End()
	out := a.evaluator.Evaluate(ctx, req)
	if !out.OK() {
		span.RecordError(out.Err)
	}
	return out
}
