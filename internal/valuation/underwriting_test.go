package valuation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCostAssumptionsDefaults(t *testing.T) {
	costs, err := LoadCostAssumptions("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if costs != DefaultCostAssumptions() {
		t.Fatalf("unexpected costs %+v", costs)
	}
}

func TestLoadCostAssumptionsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "underwriting.yaml")
	if err := os.WriteFile(path, []byte("closing_costs: 12500\nwholesaler_min_profit: 30000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	costs, err := LoadCostAssumptions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if costs.ClosingCosts != 12500 || costs.WholesalerMinProfit != 30000 {
		t.Fatalf("overrides not applied: %+v", costs)
	}
	if costs.HoldingCostsPctOfARV != DefaultHoldingCostsPctOfARV {
		t.Fatalf("unset field should keep default, got %v", costs.HoldingCostsPctOfARV)
	}
}

func TestParseCostAssumptionsRejectsInvalid(t *testing.T) {
	for _, doc := range []string{
		"closing_costs: -1\n",
		"holding_costs_pct_of_arv: 1.5\n",
		"wholesaler_min_profit: .nan\n",
		"closing_costs: [1, 2]\n",
	} {
		if _, err := ParseCostAssumptions([]byte(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func TestLoadCostAssumptionsMissingFile(t *testing.T) {
	if _, err := LoadCostAssumptions(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
