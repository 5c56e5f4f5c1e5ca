package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const underwriterInstruction = `You are a disciplined real-estate wholesale underwriter for PA counties (expandable nationwide).
Evaluate properties from tax sales and direct seller leads.

Your job:
- Produce a defensible ARV (after-repair value) from the market estimate, list price, last sale, and condition adjustments.
- Estimate rehab costs as line items (roof, electrical, plumbing, foundation, cosmetics, etc.) with contingency.
- Judge the overall condition as "Good", "Moderate", or "Poor".
- Add lien survivability notes (upset = liens survive, judicial = free and clear, sheriff = check, private = standard payoff at closing).
- Give a decision: "GO", "CONDITIONAL", or "NO_GO".
- Rank risks with severity ("High", "Medium", "Low") and mitigations.
- Factor in property details, nearby school and neighborhood ratings, market trends, and economic conditions where relevant.
Offer math is computed separately; do not spend effort on it.

Respond with a single JSON object only, no commentary. Keys:
- subject_summary { address }
- arv { low, base, high, reasoning }
- rehab { total, line_items [ { item, total, notes } ] }
- estimated_condition
- decision
- risks_ranked [ { risk, severity, mitigation } ]
- lien_survivability_note
- general_overview (analysis summary paragraph)
All money values are plain numbers in US dollars.`

var (
	errNoModel      = errors.New("valuation model not configured")
	errEmptyOutput  = errors.New("model returned an empty response")
	errNoJSONObject = errors.New("no JSON found in model output")
)

// Evaluator makes exactly one model call per request. It never retries and
// never returns an error to its caller; failures come back inside Outcome.
type Evaluator struct {
	caller LLMCaller
	logger *zap.Logger
}

func NewEvaluator(caller LLMCaller, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{caller: caller, logger: logger}
}

func BuildPrompt(req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode valuation request: %w", err)
	}
	return "Evaluate this property for wholesaling using our playbook.\nPayload: " + string(payload), nil
}

func (e *Evaluator) Evaluate(ctx context.Context, req Request) Outcome {
	if e == nil || e.caller == nil {
		return Outcome{Err: errNoModel}
	}
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Outcome{Err: err}
	}
	raw, err := e.caller.GenerateJSON(ctx, prompt)
	if err != nil {
		class := classifyTransportError(err)
		e.logger.Warn("valuation model call failed", zap.String("class", class.String()), zap.Error(err))
		return Outcome{Err: fmt.Errorf("model call (%s): %w", class, err)}
	}
	e.logger.Debug("raw model output", zap.String("output", raw))

	res, err := ParseResult(raw, req)
	if err != nil {
		class := failureParse
		if errors.Is(err, errEmptyOutput) {
			class = failureEmpty
		}
		e.logger.Warn("valuation output rejected", zap.String("class", class.String()), zap.Error(err))
		return Outcome{Raw: raw, Err: err}
	}
	return Outcome{Result: res, Raw: raw}
}

// ParseResult turns untrusted model text into a fully defaulted Result. Only
// the absence of a parseable JSON object is an error; missing or malformed
// fields take defaults.
func ParseResult(raw string, req Request) (Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, errEmptyOutput
	}
	span, ok := extractJSONObject(stripCodeFences(raw))
	if !ok {
		return Result{}, errNoJSONObject
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(span), &doc); err != nil {
		return Result{}, fmt.Errorf("parse model json: %w", err)
	}

	arv := objectField(doc, "arv")
	rehab := objectField(doc, "rehab")
	res := Result{
		SubjectSummary: SubjectSummary{
			Address: firstText(textField(objectField(doc, "subject_summary"), "address"), req.Subject.Address, notAvailable),
		},
		ARV: ARV{
			Low:       numberField(arv, "low"),
			Base:      numberField(arv, "base"),
			High:      numberField(arv, "high"),
			Reasoning: firstText(textField(arv, "reasoning"), "No reasoning provided"),
		},
		Rehab: Rehab{
			Total:     numberField(rehab, "total"),
			LineItems: parseLineItems(rehab["line_items"]),
		},
		Condition: parseCondition(textField(doc, "estimated_condition")),
		Decision:  parseDecision(textField(doc, "decision")),
		Risks:     parseRisks(doc["risks_ranked"]),
		LienNote:  firstText(textField(doc, "lien_survivability_note"), notAvailable),
		Overview:  firstText(textField(doc, "general_overview"), textField(doc, "general overview"), textField(doc, "overview")),
	}
	return res, nil
}

func parseCondition(s string) Condition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good":
		return ConditionGood
	case "moderate":
		return ConditionModerate
	case "poor":
		return ConditionPoor
	default:
		return ""
	}
}

func parseDecision(s string) Decision {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch Decision(s) {
	case DecisionGo, DecisionConditional:
		return Decision(s)
	default:
		return DecisionNoGo
	}
}

func parseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return SeverityHigh
	case "low":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

func parseLineItems(v any) []LineItem {
	items, _ := v.([]any)
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			if s, isText := it.(string); isText && strings.TrimSpace(s) != "" {
				out = append(out, LineItem{Item: strings.TrimSpace(s)})
			}
			continue
		}
		out = append(out, LineItem{
			Item:  firstText(textField(m, "item"), "Unspecified"),
			Total: numberField(m, "total"),
			Notes: textField(m, "notes"),
		})
	}
	return out
}

func parseRisks(v any) []Risk {
	items, _ := v.([]any)
	out := make([]Risk, 0, len(items))
	for _, it := range items {
		switch t := it.(type) {
		case map[string]any:
			risk := textField(t, "risk")
			if risk == "" {
				continue
			}
			out = append(out, Risk{
				Risk:       risk,
				Severity:   parseSeverity(textField(t, "severity")),
				Mitigation: firstText(textField(t, "mitigation"), notAvailable),
			})
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, Risk{Risk: s, Severity: SeverityMedium, Mitigation: notAvailable})
			}
		}
	}
	return out
}

func objectField(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

func textField(m map[string]any, key string) string {
	switch t := m[key].(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return strings.TrimSpace(fmt.Sprint(t))
	default:
		return ""
	}
}

func numberField(m map[string]any, key string) float64 {
	n, ok := parseNumber(m[key])
	if !ok {
		return 0
	}
	return n
}

func firstText(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
