// Package propertydata looks up public facts about a property by address.
// Every provider is best-effort: callers treat any error as "no record" and
// continue on seller-supplied data alone.
package propertydata

import (
	"context"
	"errors"
	"strings"
)

// ErrNoData marks a lookup that completed but found nothing usable.
var ErrNoData = errors.New("no public property info available")

// NoDataMessage is what the internal report shows when no provider is
// configured.
const NoDataMessage = "No public property info available. Appraisal is based on user input only."

type Sale struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type School struct {
	Name          string  `json:"name"`
	Rating        string  `json:"rating,omitempty"`
	DistanceMiles float64 `json:"distance_miles,omitempty"`
}

// Record is the enrichment payload. Zero numeric fields mean "unknown".
type Record struct {
	Address         string            `json:"streetAddress,omitempty"`
	County          string            `json:"county,omitempty"`
	Bedrooms        float64           `json:"bedrooms,omitempty"`
	Bathrooms       float64           `json:"bathrooms,omitempty"`
	LivingAreaSqft  float64           `json:"livingArea_sqft,omitempty"`
	LotSizeSqft     float64           `json:"lotSize_sqft,omitempty"`
	YearBuilt       float64           `json:"yearBuilt,omitempty"`
	AnnualTaxAmount float64           `json:"annualTaxAmount,omitempty"`
	MarketEstimate  float64           `json:"zestimate,omitempty"`
	ListPrice       float64           `json:"listPrice,omitempty"`
	LastSale        *Sale             `json:"lastSale,omitempty"`
	NearbySchools   []School          `json:"nearbySchools,omitempty"`
	Description     string            `json:"description,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
	Source          string            `json:"source,omitempty"`
}

type Provider interface {
	Lookup(ctx context.Context, address string) (*Record, error)
}

// Placeholder is used when no data source is configured.
type Placeholder struct{}

func (Placeholder) Lookup(_ context.Context, _ string) (*Record, error) {
	return nil, ErrNoData
}

func blankAddress(address string) bool {
	return strings.TrimSpace(address) == ""
}
