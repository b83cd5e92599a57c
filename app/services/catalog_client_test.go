package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	businessflow "github.com/priceshield/priceshield-backend/business_flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vtexFixture() []vtexProduct {
	return []vtexProduct{
		{
			ProductID:   "101",
			ProductName: "Aceite Primor Premium 1L",
			Brand:       "Primor",
			LinkText:    "aceite-primor-premium-1l",
			Categories:  []string{"/Abarrotes/Aceites/"},
			Items: []vtexItem{{
				Sellers: []vtexSeller{{CommertialOffer: vtexOffer{
					Price:             12.90,
					ListPrice:         15.90,
					AvailableQuantity: 8,
				}}},
				Images: []vtexImage{{ImageURL: "https://img.example/aceite.jpg"}},
			}},
		},
		{
			ProductID:   "102",
			ProductName: "<b>Leche Gloria Entera</b> 1L",
			Brand:       "Gloria",
			LinkText:    "leche-gloria-entera-1l",
			Items: []vtexItem{{
				Sellers: []vtexSeller{{CommertialOffer: vtexOffer{
					Price:             4.50,
					ListPrice:         4.50,
					AvailableQuantity: 0,
				}}},
			}},
		},
		{
			// No sellers, so no price: dropped during validation.
			ProductID:   "103",
			ProductName: "Arroz Sin Precio",
		},
	}
}

func newTestCatalogServer(t *testing.T, status int, products []vtexProduct) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, catalogSearchPath, r.URL.Path)
		assert.Equal(t, "productName:aceite", r.URL.Query().Get("fq"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(products)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCatalogClient(baseURL string) *CatalogClient {
	return NewCatalogClient(5*time.Second,
		WithRetailers([]retailerEndpoint{
			{Key: "wong", Name: "Wong", BaseURL: baseURL, Active: true},
			{Key: "metro", Name: "Metro", BaseURL: baseURL, Active: false},
		}),
		WithRequestInterval(time.Millisecond),
	)
}

func TestCatalogClient_Search(t *testing.T) {
	srv := newTestCatalogServer(t, http.StatusOK, vtexFixture())
	client := newTestCatalogClient(srv.URL)

	listings, err := client.Search(context.Background(), "wong", "aceite", 10)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "wong", first.RetailerKey)
	assert.Equal(t, "Wong", first.Retailer)
	assert.Equal(t, "Aceite Primor Premium 1L", first.RawName)
	assert.Equal(t, "Primor", first.Brand)
	assert.Equal(t, 12.90, first.Price)
	assert.Equal(t, 15.90, first.OriginalPrice)
	assert.Equal(t, 18.87, first.DiscountPercent)
	assert.True(t, first.Available)
	assert.Equal(t, []string{"Abarrotes/Aceites"}, first.Categories)
	assert.Equal(t, srv.URL+"/aceite-primor-premium-1l/p", first.URL)
	assert.Equal(t, []string{"https://img.example/aceite.jpg"}, first.Images)

	second := listings[1]
	assert.Equal(t, "Leche Gloria Entera 1L", second.RawName)
	assert.Equal(t, 4.50, second.Price)
	assert.Equal(t, 4.50, second.OriginalPrice)
	assert.Zero(t, second.DiscountPercent)
	assert.False(t, second.Available)
}

func TestCatalogClient_SearchPartialContent(t *testing.T) {
	srv := newTestCatalogServer(t, http.StatusPartialContent, vtexFixture())
	client := newTestCatalogClient(srv.URL)

	listings, err := client.Search(context.Background(), "wong", "aceite", 10)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestCatalogClient_SearchErrors(t *testing.T) {
	t.Run("unknown retailer", func(t *testing.T) {
		client := newTestCatalogClient("http://unused.invalid")
		_, err := client.Search(context.Background(), "tottus", "aceite", 10)
		assert.ErrorIs(t, err, businessflow.ErrUnknownRetailer)
	})

	t.Run("inactive retailer", func(t *testing.T) {
		client := newTestCatalogClient("http://unused.invalid")
		_, err := client.Search(context.Background(), "metro", "aceite", 10)
		assert.ErrorIs(t, err, businessflow.ErrRetailerInactive)
	})

	t.Run("upstream failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		client := newTestCatalogClient(srv.URL)
		_, err := client.Search(context.Background(), "wong", "aceite", 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 503")
	})
}

func TestCatalogClient_SearchLimitApplied(t *testing.T) {
	many := make([]vtexProduct, 0, 5)
	for i := 0; i < 5; i++ {
		p := vtexFixture()[0]
		p.ProductName = p.ProductName + " " + string(rune('A'+i))
		many = append(many, p)
	}
	srv := newTestCatalogServer(t, http.StatusOK, many)
	client := newTestCatalogClient(srv.URL)

	listings, err := client.Search(context.Background(), "wong", "aceite", 3)
	require.NoError(t, err)
	assert.Len(t, listings, 3)
}

func TestCatalogClient_SearchAllSkipsInactive(t *testing.T) {
	srv := newTestCatalogServer(t, http.StatusOK, vtexFixture())
	client := newTestCatalogClient(srv.URL)

	results, errs := client.SearchAll(context.Background(), "aceite", 10)
	assert.Empty(t, errs)
	require.Contains(t, results, "wong")
	assert.NotContains(t, results, "metro")
}

func TestCatalogClient_Retailers(t *testing.T) {
	client := newTestCatalogClient("http://unused.invalid")
	retailers := client.Retailers()
	require.Len(t, retailers, 2)
	assert.Equal(t, "wong", retailers[0].Key)
	assert.True(t, retailers[0].Active)
	assert.False(t, retailers[1].Active)
}

func TestCleanProductName(t *testing.T) {
	assert.Equal(t, "Aceite Primor 1L", cleanProductName("  Aceite   Primor 1L "))
	assert.Equal(t, "Leche Gloria", cleanProductName("<span class=\"x\">Leche</span> Gloria"))
	assert.Equal(t, "", cleanProductName(""))
}

func TestCleanCategories(t *testing.T) {
	t.Run("categories field", func(t *testing.T) {
		p := vtexProduct{Categories: []string{"/Abarrotes/", " /Aceites/ ", ""}}
		assert.Equal(t, []string{"Abarrotes", "Aceites"}, cleanCategories(p))
	})

	t.Run("falls back to category path", func(t *testing.T) {
		p := vtexProduct{CategoryPath: "Lacteos/Leches"}
		assert.Equal(t, []string{"Lacteos", "Leches"}, cleanCategories(p))
	})
}
