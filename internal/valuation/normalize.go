package valuation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/propertydata"
)

// conditionFields maps request keys to the form keys they are read from.
var conditionFields = []struct{ key, formKey string }{
	{"roof_age", "roof_age"},
	{"sewer_type", "sewer_type"},
	{"foundation_issues", "foundation"},
	{"electrical_issues", "electrical"},
	{"plumbing_condition", "plumbing_condition"},
	{"heating_fuel", "heating_fuel"},
	{"cooling_fuel", "cooling_fuel"},
	{"renovations", "renovations"},
	{"occupancy", "occupancy"},
	{"acreage", "acreage"},
	{"yearbuilt", "yearbuilt"},
	{"system_amperage", "system_amperage"},
	{"number_of_floors", "number_of_floors"},
	{"timeline", "timeline"},
	{"money_owed", "money_owed"},
}

// Normalize merges seller input with the optional property record into a
// Request. Seller values win; record values fill gaps; everything else falls
// back to zero or "N/A". rec may be nil.
func Normalize(form leads.Form, rec *propertydata.Record, costs CostAssumptions) Request {
	if rec == nil {
		rec = &propertydata.Record{}
	}

	subject := Subject{
		Address:   pickString(form.Address(), rec.Address),
		County:    pickString(form.String("county"), rec.County),
		Beds:      pickNumber(form, rec.Bedrooms, "beds"),
		Baths:     pickNumber(form, rec.Bathrooms, "baths"),
		Sqft:      pickNumber(form, rec.LivingAreaSqft, "sqft"),
		LotSqft:   pickNumber(form, rec.LotSizeSqft, "lot_sqft"),
		YearBuilt: pickNumber(form, rec.YearBuilt, "year_built", "yearbuilt"),
		Zestimate: pickNumber(form, rec.MarketEstimate, "zestimate"),
		ListPrice: validNumber(rec.ListPrice),
		Encumbrances: Encumbrances{
			TaxesOwed:       pickNumber(form, rec.AnnualTaxAmount, "owed_taxes"),
			LiensOwed:       pickNumber(form, 0, "owed_liens"),
			MortgageBalance: pickNumber(form, 0, "owed_mortgage"),
		},
		SaleStage:       ParseSaleStage(form.String("sale_stage")),
		SellerCondition: map[string]any{},
		NearbySchools:   rec.NearbySchools,
		Description:     rec.Description,
	}
	if rec.LastSale != nil && validNumber(rec.LastSale.Price) > 0 {
		sale := *rec.LastSale
		subject.LastSale = &sale
	}
	for _, f := range conditionFields {
		if v, ok := form.Value(f.formKey); ok {
			subject.SellerCondition[f.key] = v
		}
	}
	return Request{Subject: subject, Costs: costs}
}

// ParseSaleStage is case-insensitive; anything unrecognized is a private sale.
func ParseSaleStage(s string) SaleStage {
	switch SaleStage(strings.ToLower(strings.TrimSpace(s))) {
	case SaleStageUpset:
		return SaleStageUpset
	case SaleStageJudicial:
		return SaleStageJudicial
	case SaleStageSheriff:
		return SaleStageSheriff
	default:
		return SaleStagePrivate
	}
}

func pickString(seller, record string) string {
	if s := strings.TrimSpace(seller); s != "" {
		return s
	}
	if s := strings.TrimSpace(record); s != "" {
		return s
	}
	return notAvailable
}

func pickNumber(form leads.Form, record float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := form.Value(k); ok {
			if n, ok := parseNumber(v); ok {
				return n
			}
		}
	}
	return validNumber(record)
}

func validNumber(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return n
}

// parseNumber accepts JSON numbers and numeric text such as "1,500" or
// "$200,000". Negative, NaN and infinite values are rejected.
func parseNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		s := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(t))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0, false
	}
	return n, true
}
