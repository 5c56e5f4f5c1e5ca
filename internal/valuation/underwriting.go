package valuation

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultClosingCosts         = 10000
	DefaultHoldingCostsPctOfARV = 0.03
	DefaultWholesalerMinProfit  = 40000
)

type CostAssumptions struct {
	ClosingCosts         float64 `json:"closing_costs" yaml:"closing_costs"`
	HoldingCostsPctOfARV float64 `json:"holding_costs_pct_of_arv" yaml:"holding_costs_pct_of_arv"`
	WholesalerMinProfit  float64 `json:"wholesaler_min_profit" yaml:"wholesaler_min_profit"`
}

func DefaultCostAssumptions() CostAssumptions {
	return CostAssumptions{
		ClosingCosts:         DefaultClosingCosts,
		HoldingCostsPctOfARV: DefaultHoldingCostsPctOfARV,
		WholesalerMinProfit:  DefaultWholesalerMinProfit,
	}
}

func (c CostAssumptions) Validate() error {
	for name, v := range map[string]float64{
		"closing_costs":            c.ClosingCosts,
		"holding_costs_pct_of_arv": c.HoldingCostsPctOfARV,
		"wholesaler_min_profit":    c.WholesalerMinProfit,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %v", name, v)
		}
	}
	if c.HoldingCostsPctOfARV >= 1 {
		return fmt.Errorf("holding_costs_pct_of_arv must be a fraction below 1, got %v", c.HoldingCostsPctOfARV)
	}
	return nil
}

type costOverrides struct {
	ClosingCosts         *float64 `yaml:"closing_costs"`
	HoldingCostsPctOfARV *float64 `yaml:"holding_costs_pct_of_arv"`
	WholesalerMinProfit  *float64 `yaml:"wholesaler_min_profit"`
}

// LoadCostAssumptions reads overrides from a YAML file on top of the
// defaults. An empty path yields the defaults.
func LoadCostAssumptions(path string) (CostAssumptions, error) {
	costs := DefaultCostAssumptions()
	path = strings.TrimSpace(path)
	if path == "" {
		return costs, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return costs, fmt.Errorf("read underwriting file: %w", err)
	}
	return ParseCostAssumptions(b)
}

func ParseCostAssumptions(b []byte) (CostAssumptions, error) {
	costs := DefaultCostAssumptions()
	var o costOverrides
	if err := yaml.Unmarshal(b, &o); err != nil {
		return costs, fmt.Errorf("parse underwriting file: %w", err)
	}
	if o.ClosingCosts != nil {
		costs.ClosingCosts = *o.ClosingCosts
	}
	if o.HoldingCostsPctOfARV != nil {
		costs.HoldingCostsPctOfARV = *o.HoldingCostsPctOfARV
	}
	if o.WholesalerMinProfit != nil {
		costs.WholesalerMinProfit = *o.WholesalerMinProfit
	}
	if err := costs.Validate(); err != nil {
		return DefaultCostAssumptions(), err
	}
	return costs, nil
}
