package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestFixture struct {
	flow        IngestFlow
	productRepo *fakeProductRepo
	obsRepo     *fakeObservationRepo
	alertRepo   *fakeAlertRepo
	searchRepo  *fakeSearchHistoryRepo
}

func newIngestFixture() *ingestFixture {
	productRepo := newFakeProductRepo()
	obsRepo := newFakeObservationRepo()
	alertRepo := newFakeAlertRepo()
	searchRepo := newFakeSearchHistoryRepo()

	flow := NewIngestFlow(
		NewIdentityResolver(productRepo),
		NewPriceLedger(obsRepo),
		NewAlertPolicy(alertRepo),
		productRepo,
		searchRepo,
	)
	return &ingestFixture{
		flow:        flow,
		productRepo: productRepo,
		obsRepo:     obsRepo,
		alertRepo:   alertRepo,
		searchRepo:  searchRepo,
	}
}

func wongListing(name string, price float64) RawListing {
	return RawListing{
		RetailerKey: "wong",
		Retailer:    "Wong",
		RawName:     name,
		Price:       price,
		Available:   true,
		URL:         "https://www.wong.pe/p",
		Categories:  []string{"Abarrotes"},
		ObservedAt:  utils.UTCNow(),
	}
}

func TestIngestBatch_NewProduct(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	summary, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "aceite")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Received)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Observations)
	assert.Zero(t, summary.Updated)
	assert.Zero(t, summary.Alerts)

	record, err := fx.productRepo.ByUniqueID(ctx, "wong_aceite_primor_1l_primor")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Aceite Primor 1L", record.Name)
	assert.Equal(t, 12.90, record.Price)
	assert.Equal(t, utils.PENCurrency, record.Currency)
	assert.Equal(t, []string{"aceite"}, []string(record.SearchQueries))
	assert.Zero(t, record.UpdateCount)

	require.Len(t, fx.obsRepo.observations, 1)
	assert.Equal(t, 12.90, fx.obsRepo.observations[0].Price)
	assert.Equal(t, "wong_aceite_primor_1l_primor", fx.obsRepo.observations[0].ProductUniqueID)

	assert.Equal(t, 1, fx.searchRepo.touched["aceite"])
}

func TestIngestBatch_PriceChangeCreatesAlert(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	_, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "aceite")
	require.NoError(t, err)

	summary, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 11.50)}, "aceite")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Observations)
	assert.Equal(t, 1, summary.Alerts)
	assert.Zero(t, summary.Created)

	record, err := fx.productRepo.ByUniqueID(ctx, "wong_aceite_primor_1l_primor")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 11.50, record.Price)
	assert.Equal(t, 1, record.UpdateCount)

	require.Len(t, fx.obsRepo.observations, 2)
	assert.Equal(t, 11.50, fx.obsRepo.observations[1].Price)

	require.Len(t, fx.alertRepo.alerts, 1)
	alert := fx.alertRepo.alerts[0]
	assert.Equal(t, models.AlertDirectionDecrease, alert.Direction)
	assert.Equal(t, 12.90, alert.OldPrice)
	assert.Equal(t, 11.50, alert.NewPrice)
	assert.Equal(t, -10.9, alert.PercentageChange)
}

func TestIngestBatch_UnchangedPrice(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	_, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "aceite")
	require.NoError(t, err)

	summary, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "aceite")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Zero(t, summary.Observations)
	assert.Zero(t, summary.Alerts)

	// The record is still refreshed even when the price held steady.
	record, err := fx.productRepo.ByUniqueID(ctx, "wong_aceite_primor_1l_primor")
	require.NoError(t, err)
	assert.Equal(t, 1, record.UpdateCount)

	assert.Len(t, fx.obsRepo.observations, 1)
	assert.Empty(t, fx.alertRepo.alerts)
}

func TestIngestBatch_InsignificantChange(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	_, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "aceite")
	require.NoError(t, err)

	summary, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 13.00)}, "aceite")
	require.NoError(t, err)

	// The ledger records every change, but a ten cent move does not alert.
	assert.Equal(t, 1, summary.Observations)
	assert.Zero(t, summary.Alerts)
	assert.Len(t, fx.obsRepo.observations, 2)
	assert.Empty(t, fx.alertRepo.alerts)
}

func TestIngestBatch_InvalidListings(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	listings := []RawListing{
		wongListing("", 12.90),
		wongListing("Aceite Primor 1L", 0),
		wongListing("Aceite Primor 1L", -5),
		wongListing("Arroz Costeño Extra 5kg", 18.90),
	}
	summary, err := fx.flow.IngestBatch(ctx, listings, "despensa")
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Received)
	assert.Equal(t, 3, summary.Invalid)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, fx.searchRepo.touched["despensa"])
}

func TestIngestBatch_DuplicatesConsolidated(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	promo := wongListing("Aceite Primor 1L", 11.90)
	promo.OriginalPrice = 13.90
	listings := []RawListing{
		wongListing("Aceite Primor 1L", 10.50),
		promo,
	}
	summary, err := fx.flow.IngestBatch(ctx, listings, "aceite")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 1, summary.Created)

	// The promotional listing represents the identity despite the
	// cheaper plain one.
	record, err := fx.productRepo.ByUniqueID(ctx, "wong_aceite_primor_1l_primor")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 11.90, record.Price)
	assert.Equal(t, 13.90, record.OriginalPrice)
}

func TestIngestBatch_DistinctRetailersDistinctProducts(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	metro := wongListing("Aceite Primor 1L", 12.50)
	metro.RetailerKey = "metro"
	metro.Retailer = "Metro"

	summary, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90), metro}, "aceite")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Created)
	assert.Zero(t, summary.Duplicates)

	wongRecord, err := fx.productRepo.ByUniqueID(ctx, "wong_aceite_primor_1l_primor")
	require.NoError(t, err)
	require.NotNil(t, wongRecord)
	metroRecord, err := fx.productRepo.ByUniqueID(ctx, "metro_aceite_primor_1l_primor")
	require.NoError(t, err)
	require.NotNil(t, metroRecord)
}

func TestIngestBatch_SearchQueryAccumulates(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	_, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "aceite")
	require.NoError(t, err)
	_, err = fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "primor")
	require.NoError(t, err)
	_, err = fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "primor")
	require.NoError(t, err)

	record, err := fx.productRepo.ByUniqueID(ctx, "wong_aceite_primor_1l_primor")
	require.NoError(t, err)
	assert.Equal(t, []string{"aceite", "primor"}, []string(record.SearchQueries))
	assert.Equal(t, 2, fx.searchRepo.touched["primor"])
}

func TestIngestBatch_EmptySearchQuery(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	_, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "")
	require.NoError(t, err)

	assert.Empty(t, fx.searchRepo.touched)

	record, err := fx.productRepo.ByUniqueID(ctx, "wong_aceite_primor_1l_primor")
	require.NoError(t, err)
	assert.Empty(t, record.SearchQueries)
}

func TestIngestBatch_AlertCooldownAcrossBatches(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	_, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "aceite")
	require.NoError(t, err)

	first, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 11.50)}, "aceite")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Alerts)

	// A second significant move inside the cooldown window is observed
	// in the ledger but produces no second alert.
	second, err := fx.flow.IngestBatch(ctx, []RawListing{wongListing("Aceite Primor 1L", 12.90)}, "aceite")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Observations)
	assert.Zero(t, second.Alerts)
	assert.Len(t, fx.alertRepo.alerts, 1)

	assert.Len(t, fx.obsRepo.observations, 3)
}

func TestIngestBatch_ObservedAtPreserved(t *testing.T) {
	ctx := context.Background()
	fx := newIngestFixture()

	observed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	listing := wongListing("Aceite Primor 1L", 12.90)
	listing.ObservedAt = observed

	_, err := fx.flow.IngestBatch(ctx, []RawListing{listing}, "aceite")
	require.NoError(t, err)

	require.Len(t, fx.obsRepo.observations, 1)
	assert.Equal(t, observed, fx.obsRepo.observations[0].ObservedAt)

	record, err := fx.productRepo.ByUniqueID(ctx, "wong_aceite_primor_1l_primor")
	require.NoError(t, err)
	assert.Equal(t, observed, record.ScrapedAt)
}
