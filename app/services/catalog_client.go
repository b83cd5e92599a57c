// Package services contains external integrations such as the retailer
// catalog clients.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	businessflow "github.com/priceshield/priceshield-backend/business_flow"
	"github.com/priceshield/priceshield-backend/utils"
	"golang.org/x/time/rate"
)

// retailerEndpoint describes one VTEX storefront catalog API.
type retailerEndpoint struct {
	Key     string
	Name    string
	BaseURL string
	Active  bool
}

// The Peruvian supermarket chains all run VTEX storefronts, which expose the
// same public catalog search API under /api/catalog_system.
var defaultRetailers = []retailerEndpoint{
	{Key: "plazavea", Name: "Plaza Vea", BaseURL: "https://www.plazavea.com.pe", Active: true},
	{Key: "wong", Name: "Wong", BaseURL: "https://www.wong.pe", Active: true},
	{Key: "vivanda", Name: "Vivanda", BaseURL: "https://www.vivanda.com.pe", Active: true},
	{Key: "metro", Name: "Metro", BaseURL: "https://www.metro.pe", Active: true},
}

const catalogSearchPath = "/api/catalog_system/pub/products/search"

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// vtexProduct mirrors the subset of the VTEX catalog response the pipeline
// consumes.
type vtexProduct struct {
	ProductID    string      `json:"productId"`
	ProductName  string      `json:"productName"`
	Brand        string      `json:"brand"`
	Description  string      `json:"description"`
	LinkText     string      `json:"linkText"`
	Categories   []string    `json:"categories"`
	CategoryPath string      `json:"categoryPath"`
	Items        []vtexItem  `json:"items"`
	Images       []vtexImage `json:"images"`
}

type vtexItem struct {
	Sellers []vtexSeller `json:"sellers"`
	Images  []vtexImage  `json:"images"`
}

type vtexImage struct {
	ImageURL string `json:"imageUrl"`
}

type vtexSeller struct {
	CommertialOffer vtexOffer `json:"commertialOffer"`
}

// The misspelled field name is VTEX's, not ours.
type vtexOffer struct {
	Price             float64 `json:"Price"`
	ListPrice         float64 `json:"ListPrice"`
	AvailableQuantity float64 `json:"AvailableQuantity"`
}

// CatalogClient queries the retailer storefront APIs and normalizes their
// responses into raw listings. Requests are rate limited per client so bulk
// refreshes do not hammer the storefronts.
type CatalogClient struct {
	retailers  []retailerEndpoint
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

type CatalogClientOption func(*CatalogClient)

func WithRetailers(retailers []retailerEndpoint) CatalogClientOption {
	return func(c *CatalogClient) { c.retailers = retailers }
}

func WithRequestInterval(interval time.Duration) CatalogClientOption {
	return func(c *CatalogClient) {
		if interval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

func NewCatalogClient(timeout time.Duration, opts ...CatalogClientOption) *CatalogClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &CatalogClient{
		retailers:  defaultRetailers,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
		userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Retailers lists the supported catalogs.
func (c *CatalogClient) Retailers() []businessflow.RetailerInfo {
	out := make([]businessflow.RetailerInfo, 0, len(c.retailers))
	for _, r := range c.retailers {
		out = append(out, businessflow.RetailerInfo{Key: r.Key, Name: r.Name, Active: r.Active})
	}
	return out
}

// Search queries one retailer's catalog.
func (c *CatalogClient) Search(ctx context.Context, retailerKey, query string, limit int) ([]businessflow.RawListing, error) {
	endpoint, ok := c.endpoint(retailerKey)
	if !ok {
		return nil, businessflow.ErrUnknownRetailer
	}
	if !endpoint.Active {
		return nil, businessflow.ErrRetailerInactive
	}
	if limit <= 0 || limit > utils.DefaultSearchLimit {
		limit = utils.DefaultSearchLimit
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	products, err := c.fetch(ctx, endpoint, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s catalog: %w", endpoint.Name, err)
	}
	if len(products) > limit {
		products = products[:limit]
	}

	listings := make([]businessflow.RawListing, 0, len(products))
	observedAt := utils.UTCNow()
	for _, p := range products {
		l := normalizeProduct(p, endpoint, observedAt)
		if err := l.Valid(); err != nil {
			continue
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// SearchAll queries every active retailer sequentially. The limiter spaces
// the requests out.
func (c *CatalogClient) SearchAll(ctx context.Context, query string, limit int) (map[string][]businessflow.RawListing, map[string]error) {
	results := make(map[string][]businessflow.RawListing)
	errs := make(map[string]error)
	for _, r := range c.retailers {
		if !r.Active {
			continue
		}
		listings, err := c.Search(ctx, r.Key, query, limit)
		if err != nil {
			errs[r.Key] = err
			continue
		}
		results[r.Key] = listings
	}
	return results, errs
}

func (c *CatalogClient) endpoint(retailerKey string) (retailerEndpoint, bool) {
	for _, r := range c.retailers {
		if r.Key == retailerKey {
			return r, true
		}
	}
	return retailerEndpoint{}, false
}

func (c *CatalogClient) fetch(ctx context.Context, endpoint retailerEndpoint, query string, limit int) ([]vtexProduct, error) {
	params := url.Values{}
	params.Set("fq", "productName:"+query)
	params.Set("rows", strconv.Itoa(limit))
	params.Set("start", "0")

	reqURL := endpoint.BaseURL + catalogSearchPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "es-PE,es;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// VTEX answers 206 when the requested range is larger than one page.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var products []vtexProduct
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return products, nil
}

func normalizeProduct(p vtexProduct, endpoint retailerEndpoint, observedAt time.Time) businessflow.RawListing {
	listing := businessflow.RawListing{
		RetailerKey: endpoint.Key,
		Retailer:    endpoint.Name,
		RawName:     cleanProductName(p.ProductName),
		Brand:       p.Brand,
		Description: p.Description,
		Categories:  cleanCategories(p),
		URL:         productURL(p, endpoint),
		ObservedAt:  observedAt,
	}

	if offer, ok := firstOffer(p); ok {
		listing.Price = offer.Price
		listing.OriginalPrice = offer.Price
		if offer.ListPrice > offer.Price {
			listing.OriginalPrice = offer.ListPrice
			if offer.Price > 0 {
				listing.DiscountPercent = utils.RoundTo((offer.ListPrice-offer.Price)/offer.ListPrice*100, 2)
			}
		}
		listing.Available = offer.AvailableQuantity > 0
	}

	images := make([]string, 0, utils.MaxProductImages)
	appendImages := func(imgs []vtexImage) {
		for _, img := range imgs {
			if len(images) == utils.MaxProductImages {
				return
			}
			if img.ImageURL != "" {
				images = append(images, img.ImageURL)
			}
		}
	}
	if len(p.Items) > 0 {
		appendImages(p.Items[0].Images)
	}
	if len(images) == 0 {
		appendImages(p.Images)
	}
	listing.Images = images

	return listing
}

func firstOffer(p vtexProduct) (vtexOffer, bool) {
	if len(p.Items) == 0 || len(p.Items[0].Sellers) == 0 {
		return vtexOffer{}, false
	}
	return p.Items[0].Sellers[0].CommertialOffer, true
}

func cleanProductName(name string) string {
	name = htmlTagPattern.ReplaceAllString(name, "")
	return strings.Join(strings.Fields(name), " ")
}

func cleanCategories(p vtexProduct) []string {
	raw := p.Categories
	if len(raw) == 0 && p.CategoryPath != "" {
		raw = strings.Split(p.CategoryPath, "/")
	}
	out := make([]string, 0, len(raw))
	for _, cat := range raw {
		cat = strings.Trim(strings.TrimSpace(cat), "/")
		if cat != "" {
			out = append(out, cat)
		}
	}
	return out
}

func productURL(p vtexProduct, endpoint retailerEndpoint) string {
	if p.LinkText == "" {
		return ""
	}
	return endpoint.BaseURL + "/" + p.LinkText + "/p"
}
