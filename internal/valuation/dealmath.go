package valuation

import "github.com/shopspring/decimal"

const (
	marginGood    = 0.075
	marginDefault = 0.125
	marginPoor    = 0.175
)

type DealMath struct {
	TotalEncumbrances float64 `json:"total_encumbrances"`
	HoldingCosts      float64 `json:"holding_costs"`
	Margin            float64 `json:"end_buyer_margin"`
	EndBuyerMAO       float64 `json:"end_buyer_mao"`
	OfferToSellerMax  float64 `json:"offer_to_seller_max"`
}

// MarginFor is the end buyer's target margin for a condition. Moderate,
// absent and unrecognized conditions all take the default.
func MarginFor(c Condition) float64 {
	switch c {
	case ConditionGood:
		return marginGood
	case ConditionPoor:
		return marginPoor
	default:
		return marginDefault
	}
}

func (e Encumbrances) Total() float64 {
	return decimal.NewFromFloat(e.TaxesOwed).
		Add(decimal.NewFromFloat(e.LiensOwed)).
		Add(decimal.NewFromFloat(e.MortgageBalance)).
		InexactFloat64()
}

// ComputeDealMath derives the offer from ARV and rehab. Results are not
// clamped: a non-positive offer means there is no viable deal.
func ComputeDealMath(arvBase, rehabTotal float64, condition Condition, costs CostAssumptions, enc Encumbrances) DealMath {
	margin := MarginFor(condition)
	arv := decimal.NewFromFloat(arvBase)
	holding := arv.Mul(decimal.NewFromFloat(costs.HoldingCostsPctOfARV))
	mao := arv.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(margin))).
		Sub(decimal.NewFromFloat(rehabTotal)).
		Sub(decimal.NewFromFloat(costs.ClosingCosts)).
		Sub(holding)
	offer := mao.Sub(decimal.NewFromFloat(costs.WholesalerMinProfit))

	return DealMath{
		TotalEncumbrances: enc.Total(),
		HoldingCosts:      holding.InexactFloat64(),
		Margin:            margin,
		EndBuyerMAO:       mao.InexactFloat64(),
		OfferToSellerMax:  offer.InexactFloat64(),
	}
}
