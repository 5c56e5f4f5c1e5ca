package propertydata

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	realtorBaseURL   = "https://www.realtor.com/realestateandhomes-detail/"
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

// RealtorScraper renders a listing page in headless Chrome and reads the
// facts block. Listing sites change markup and throw bot walls often, so
// a failed scrape is expected and reported as ErrNoData.
type RealtorScraper struct {
	chromePath string
	timeout    time.Duration
	logger     *zap.Logger
}

func NewRealtorScraper(logger *zap.Logger) *RealtorScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtorScraper{
		chromePath: detectChromePath(),
		timeout:    45 * time.Second,
		logger:     logger,
	}
}

func (s *RealtorScraper) Lookup(ctx context.Context, address string) (*Record, error) {
	if blankAddress(address) {
		return nil, fmt.Errorf("empty address: %w", ErrNoData)
	}
	target := ListingURL(address)
	s.logger.Info("scraping listing", zap.String("url", target))

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 800),
	}
	if s.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(s.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var html string
	if err := chromedp.Run(taskCtx,
		emulation.SetUserAgentOverride(desktopUserAgent).WithAcceptLanguage("en-US"),
		emulation.SetDeviceMetricsOverride(1280, 800, 1, false),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("render listing: %w", err)
	}

	rec, err := ParseListingHTML(html)
	if err != nil {
		s.logger.Warn("listing parse failed", zap.String("url", target), zap.Error(err))
		return nil, err
	}
	return rec, nil
}

// ListingURL builds the detail-page URL: commas dropped, whitespace runs
// become hyphens.
func ListingURL(address string) string {
	a := strings.ReplaceAll(strings.TrimSpace(address), ",", "")
	return realtorBaseURL + strings.Join(strings.Fields(a), "-")
}

var metaPattern = regexp.MustCompile(`(?i)([\d.,]+)\s*(bed|bath|sqft|sq ft|acre)`)

// ParseListingHTML extracts a Record from a rendered listing page. A page
// without the main address block is a "no results" page or a bot wall.
func ParseListingHTML(html string) (*Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	mainAddress := strings.TrimSpace(doc.Find(`[data-testid="main-address"]`).First().Text())
	if mainAddress == "" {
		return nil, fmt.Errorf("main address block missing: %w", ErrNoData)
	}
	rec := &Record{Address: mainAddress, Source: "realtor"}

	price := strings.TrimSpace(doc.Find(`[data-testid="on-market-price-details"] > div > h3`).First().Text())
	rec.ListPrice = parseAmount(price)

	doc.Find(`[data-testid="property-meta-list-container"] li`).Each(func(_ int, li *goquery.Selection) {
		m := metaPattern.FindStringSubmatch(li.Text())
		if m == nil {
			return
		}
		n := parseAmount(m[1])
		switch strings.ToLower(m[2]) {
		case "bed":
			rec.Bedrooms = n
		case "bath":
			rec.Bathrooms = n
		case "sqft", "sq ft":
			rec.LivingAreaSqft = n
		case "acre":
			rec.LotSizeSqft = n * 43560
		}
	})

	details := map[string]string{}
	body := doc.Find(`div[data-testid="property-detail-body"]`).First()
	body.Find(`div > ul > li`).Each(func(_ int, li *goquery.Selection) {
		spans := li.Find("span")
		key := strings.TrimSpace(spans.First().Text())
		value := strings.TrimSpace(spans.Last().Text())
		if key != "" && value != "" && key != value {
			details[strings.TrimSuffix(key, ":")] = value
		}
	})
	if len(details) > 0 {
		rec.Details = details
	}
	applyDetails(rec, details)

	if body.Length() > 0 {
		if fragment, err := goquery.OuterHtml(body); err == nil {
			if md, err := htmltomarkdown.ConvertString(fragment); err == nil {
				rec.Description = strings.TrimSpace(md)
			}
		}
	}
	return rec, nil
}

func applyDetails(rec *Record, details map[string]string) {
	for k, v := range details {
		key := strings.ToLower(k)
		switch {
		case strings.Contains(key, "year built"):
			rec.YearBuilt = parseAmount(v)
		case strings.Contains(key, "county"):
			rec.County = v
		case strings.Contains(key, "tax") && strings.Contains(key, "annual"):
			rec.AnnualTaxAmount = parseAmount(v)
		case strings.Contains(key, "lot size") && rec.LotSizeSqft == 0:
			n := parseAmount(v)
			if strings.Contains(strings.ToLower(v), "acre") {
				n *= 43560
			}
			rec.LotSizeSqft = n
		}
	}
}

func parseAmount(s string) float64 {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func detectChromePath() string {
	if p := strings.TrimSpace(os.Getenv("CHROME_PATH")); p != "" {
		return p
	}
	for _, p := range []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
