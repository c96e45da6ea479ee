package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/37-Inc/goose.gifts/internal/models"
	"github.com/37-Inc/goose.gifts/internal/util"
)

// Hosts the adapter is allowed to fetch from.
var allowedHosts = map[string]bool{
	"www.amazon.com": true,
	"www.etsy.com":   true,
}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Client queries marketplace sources for a text query and returns raw product
// records. It does not deduplicate; that happens downstream.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	selectors  SelectorConfig
}

// New builds a marketplace search client. ratePerSec bounds outbound requests
// across all concurrent callers to respect marketplace rate limits.
func New(timeout time.Duration, ratePerSec float64, selectors SelectorConfig) *Client {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		selectors:  selectors,
	}
}

// Search runs the query against each requested source and returns the union
// of results. A source that fails is skipped; Search returns an error only
// when every source fails, transient if any failure was transient so the
// caller's retry logic can kick in.
func (c *Client) Search(ctx context.Context, query string, sources []models.Source) ([]models.RawProduct, error) {
	var products []models.RawProduct
	var lastErr error
	anyTransient := false
	succeeded := 0

	for _, source := range sources {
		var batch []models.RawProduct
		var err error
		switch source {
		case models.SourceAmazon:
			batch, err = c.searchAmazon(ctx, query)
		case models.SourceEtsy:
			batch, err = c.searchEtsy(ctx, query)
		default:
			err = fmt.Errorf("unknown product source %q", source)
		}

		if err != nil {
			slog.Warn("Marketplace search failed", "source", source, "query", query, "error", err)
			lastErr = err
			if IsTransient(err) {
				anyTransient = true
			}
			continue
		}
		succeeded++
		products = append(products, batch...)
	}

	if succeeded == 0 && lastErr != nil {
		err := fmt.Errorf("all sources failed for query %q: %w", query, lastErr)
		if anyTransient {
			return nil, markTransient(err)
		}
		return nil, err
	}
	return products, nil
}

func (c *Client) searchAmazon(ctx context.Context, query string) ([]models.RawProduct, error) {
	searchURL := "https://www.amazon.com/s?k=" + url.QueryEscape(query)
	doc, err := c.fetchDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return parseAmazonResults(doc, c.selectors.Amazon), nil
}

func (c *Client) searchEtsy(ctx context.Context, query string) ([]models.RawProduct, error) {
	searchURL := "https://www.etsy.com/search?q=" + url.QueryEscape(query)
	doc, err := c.fetchDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return parseEtsyResults(doc, c.selectors.Etsy), nil
}

func (c *Client) fetchDocument(ctx context.Context, urlStr string) (*goquery.Document, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %s: %w", urlStr, err)
	}
	if parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %s: only https allowed", parsedURL.Scheme)
	}
	if !allowedHosts[parsedURL.Hostname()] {
		return nil, fmt.Errorf("URL hostname %s is not in allowlist", parsedURL.Hostname())
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %s: %w", urlStr, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, markTransient(fmt.Errorf("failed to fetch URL %s: %w", urlStr, err))
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err := fmt.Errorf("failed to fetch URL %s: status code %d", urlStr, res.StatusCode)
		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			return nil, markTransient(err)
		}
		return nil, err
	}

	return goquery.NewDocumentFromReader(res.Body)
}

func parseAmazonResults(doc *goquery.Document, sel SourceSelectors) []models.RawProduct {
	var products []models.RawProduct
	doc.Find(sel.Item).Each(func(_ int, s *goquery.Selection) {
		asin := strings.TrimSpace(s.AttrOr(sel.SourceIDAttr, ""))
		title := strings.TrimSpace(s.Find(sel.Title).First().Text())
		if title == "" {
			return
		}

		href := strings.TrimSpace(s.Find(sel.Link).First().AttrOr("href", ""))
		productURL := absoluteURL("https://www.amazon.com", href)
		if productURL == "" && asin != "" {
			productURL = "https://www.amazon.com/dp/" + asin
		}
		if productURL == "" {
			return
		}

		products = append(products, models.RawProduct{
			SourceID: asin,
			Source:   models.SourceAmazon,
			Title:    title,
			ImageURL: strings.TrimSpace(s.Find(sel.Image).First().AttrOr("src", "")),
			Price:    util.ParsePrice(s.Find(sel.Price).First().Text()),
			URL:      productURL,
		})
	})
	return products
}

func parseEtsyResults(doc *goquery.Document, sel SourceSelectors) []models.RawProduct {
	var products []models.RawProduct
	doc.Find(sel.Item).Each(func(_ int, s *goquery.Selection) {
		listingID := strings.TrimSpace(s.AttrOr(sel.SourceIDAttr, ""))
		title := strings.TrimSpace(s.Find(sel.Title).First().Text())
		if title == "" {
			return
		}

		href := strings.TrimSpace(s.Find(sel.Link).First().AttrOr("href", ""))
		productURL := absoluteURL("https://www.etsy.com", href)
		if productURL == "" {
			return
		}

		products = append(products, models.RawProduct{
			SourceID: listingID,
			Source:   models.SourceEtsy,
			Title:    title,
			ImageURL: strings.TrimSpace(s.Find(sel.Image).First().AttrOr("src", "")),
			Price:    util.ParsePrice(s.Find(sel.Price).First().Text()),
			URL:      productURL,
		})
	})
	return products
}

func absoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "/") {
		return base + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return ""
}
