package valuation

import "github.com/joelkehle/propertylead/internal/propertydata"

type Condition string

const (
	ConditionGood     Condition = "Good"
	ConditionModerate Condition = "Moderate"
	ConditionPoor     Condition = "Poor"
)

type Decision string

const (
	DecisionGo          Decision = "GO"
	DecisionConditional Decision = "CONDITIONAL"
	DecisionNoGo        Decision = "NO_GO"
)

type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// SaleStage is the procedural context of the sale. It decides which liens
// survive a transfer.
type SaleStage string

const (
	SaleStageUpset    SaleStage = "upset"
	SaleStageJudicial SaleStage = "judicial"
	SaleStageSheriff  SaleStage = "sheriff"
	SaleStagePrivate  SaleStage = "private"
)

const notAvailable = "N/A"

type Encumbrances struct {
	TaxesOwed       float64 `json:"taxes_owed"`
	LiensOwed       float64 `json:"liens_owed"`
	MortgageBalance float64 `json:"mortgage_balance"`
}

type Subject struct {
	Address         string                `json:"address"`
	County          string                `json:"county"`
	Beds            float64               `json:"beds"`
	Baths           float64               `json:"baths"`
	Sqft            float64               `json:"sqft"`
	LotSqft         float64               `json:"lot_sqft"`
	YearBuilt       float64               `json:"year_built"`
	Zestimate       float64               `json:"zestimate,omitempty"`
	ListPrice       float64               `json:"list_price,omitempty"`
	LastSale        *propertydata.Sale    `json:"last_sale,omitempty"`
	SellerCondition map[string]any        `json:"seller_provided_condition"`
	Encumbrances    Encumbrances          `json:"known_liens_and_mortgage"`
	SaleStage       SaleStage             `json:"sale_stage"`
	NearbySchools   []propertydata.School `json:"nearby_schools,omitempty"`
	Description     string                `json:"description,omitempty"`
}

// Request is the canonical valuation input sent to the model. Built once per
// submission and never mutated afterwards.
type Request struct {
	Subject Subject         `json:"subject"`
	Costs   CostAssumptions `json:"cost_assumptions"`
}

type ARV struct {
	Low       float64 `json:"low"`
	Base      float64 `json:"base"`
	High      float64 `json:"high"`
	Reasoning string  `json:"reasoning"`
}

type LineItem struct {
	Item  string  `json:"item"`
	Total float64 `json:"total"`
	Notes string  `json:"notes,omitempty"`
}

type Rehab struct {
	Total     float64    `json:"total"`
	LineItems []LineItem `json:"line_items"`
}

type Risk struct {
	Risk       string   `json:"risk"`
	Severity   Severity `json:"severity"`
	Mitigation string   `json:"mitigation"`
}

type SubjectSummary struct {
	Address string `json:"address"`
}

// Result is the fully defaulted valuation. DealMath is always recomputed
// locally; whatever the model put there is ignored.
type Result struct {
	SubjectSummary SubjectSummary `json:"subject_summary"`
	ARV            ARV            `json:"arv"`
	Rehab          Rehab          `json:"rehab"`
	Condition      Condition      `json:"estimated_condition,omitempty"`
	DealMath       DealMath       `json:"deal_math"`
	Decision       Decision       `json:"decision"`
	Risks          []Risk         `json:"risks_ranked"`
	LienNote       string         `json:"lien_survivability_note"`
	Overview       string         `json:"general_overview,omitempty"`
}

// Outcome is the tagged result of one model call: either a Result or the
// error that forced the manual-review path.
type Outcome struct {
	Result Result
	Raw    string
	Err    error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Messages is the pair of texts handed to the mailer.
type Messages struct {
	Seller   string
	Internal string
	// Result is nil when valuation failed and fallback text was used.
	Result *Result
	Err    error
}
