package propertydata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPProvider queries a JSON property-data API. Vendors disagree on field
// names, so each Record field is read from the first path that resolves.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimSpace(baseURL),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (p *HTTPProvider) Lookup(ctx context.Context, address string) (*Record, error) {
	if blankAddress(address) {
		return nil, fmt.Errorf("empty address: %w", ErrNoData)
	}
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("property api url: %w", err)
	}
	q := u.Query()
	q.Set("address", strings.TrimSpace(address))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-Api-Key", p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("property api request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read property api response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("property api status %d", resp.StatusCode)
	}
	return ParseRecordJSON(body)
}

// ParseRecordJSON maps a vendor payload onto a Record.
func ParseRecordJSON(body []byte) (*Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("property api returned invalid json")
	}
	root := gjson.ParseBytes(body)
	if data := root.Get("property"); data.IsObject() {
		root = data
	} else if data := root.Get("data"); data.IsObject() {
		root = data
	}

	rec := &Record{
		Address:         firstString(root, "streetAddress", "address.full", "formattedAddress", "address"),
		County:          firstString(root, "county", "address.county"),
		Bedrooms:        firstNumber(root, "bedrooms", "beds"),
		Bathrooms:       firstNumber(root, "bathrooms", "baths"),
		LivingAreaSqft:  firstNumber(root, "livingArea_sqft", "livingArea", "squareFootage", "sqft"),
		LotSizeSqft:     firstNumber(root, "lotSize_sqft", "lotSize", "lotSquareFootage"),
		YearBuilt:       firstNumber(root, "yearBuilt", "year_built"),
		AnnualTaxAmount: firstNumber(root, "annualTaxAmount", "taxAnnualAmount", "tax.amount"),
		MarketEstimate:  firstNumber(root, "zestimate", "estimate", "avm.value"),
		ListPrice:       firstNumber(root, "listPrice", "price"),
		Description:     firstString(root, "description"),
		Source:          "api",
	}
	if sale := root.Get("lastSale"); sale.Exists() {
		price := numberOf(sale.Get("price"))
		if price > 0 {
			rec.LastSale = &Sale{Date: sale.Get("date").String(), Price: price}
		}
	} else if price := firstNumber(root, "lastSalePrice"); price > 0 {
		rec.LastSale = &Sale{Date: firstString(root, "lastSaleDate"), Price: price}
	}
	root.Get("nearbySchools").ForEach(func(_, school gjson.Result) bool {
		name := school.Get("name").String()
		if name == "" {
			return true
		}
		rec.NearbySchools = append(rec.NearbySchools, School{
			Name:          name,
			Rating:        school.Get("rating").String(),
			DistanceMiles: numberOf(school.Get("distance")),
		})
		return true
	})
	if rec.empty() {
		return nil, ErrNoData
	}
	return rec, nil
}

func (r *Record) empty() bool {
	return r.Address == "" && r.Bedrooms == 0 && r.Bathrooms == 0 && r.LivingAreaSqft == 0 &&
		r.MarketEstimate == 0 && r.ListPrice == 0 && r.LastSale == nil
}

func firstString(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := root.Get(p); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}

func firstNumber(root gjson.Result, paths ...string) float64 {
	for _, p := range paths {
		if n := numberOf(root.Get(p)); n > 0 {
			return n
		}
	}
	return 0
}

func numberOf(v gjson.Result) float64 {
	switch v.Type {
	case gjson.Number:
		if v.Num < 0 {
			return 0
		}
		return v.Num
	case gjson.String:
		n, err := strconv.ParseFloat(strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(v.Str)), 64)
		if err != nil || n < 0 {
			return 0
		}
		return n
	default:
		return 0
	}
}
