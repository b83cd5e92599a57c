// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/priceshield/priceshield-backend/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ProductRecordRepository defines operations for product records
type ProductRecordRepository interface {
	Repository[models.ProductRecord, models.ProductRecordFilter]
	ByUniqueID(ctx context.Context, uniqueID string) (*models.ProductRecord, error)
	Update(ctx context.Context, record *models.ProductRecord) error
	SearchByName(ctx context.Context, nameLike string, retailerKey string, orderBy string, limit int) ([]*models.ProductRecord, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]*models.ProductRecord, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]*models.ProductRecord, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	DistinctBrands(ctx context.Context) ([]string, error)
	LastUpdatedAt(ctx context.Context) (*time.Time, error)
	DeleteScrapedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PriceObservationRepository defines operations for the append-only price time series
type PriceObservationRepository interface {
	Repository[models.PriceObservation, models.PriceObservationFilter]
	LastByProduct(ctx context.Context, productUniqueID string) (*models.PriceObservation, error)
	ListByProduct(ctx context.Context, productUniqueID string, from, to time.Time) ([]*models.PriceObservation, error)
	DeleteObservedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertRepository defines operations for price change alerts
type AlertRepository interface {
	Repository[models.Alert, models.AlertFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.Alert, error)
	ListActiveByRetailer(ctx context.Context, retailerKey string, limit int) ([]*models.Alert, error)
	ListActiveByCategory(ctx context.Context, category string, limit int) ([]*models.Alert, error)
	ListByProduct(ctx context.Context, productUniqueID string, limit int) ([]*models.Alert, error)
	CountActiveUnread(ctx context.Context) (int64, error)
	HasRecentActive(ctx context.Context, productUniqueID string, since time.Time) (bool, error)
	MarkRead(ctx context.Context, id uuid.UUID) (bool, error)
	Ignore(ctx context.Context, id uuid.UUID) (bool, error)
	MarkReadByProduct(ctx context.Context, productUniqueID string) (int64, error)
	BulkMarkRead(ctx context.Context, ids []uuid.UUID) (int64, error)
	Summary(ctx context.Context) (*models.AlertSummary, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SearchHistoryRepository defines operations for the search history counters
type SearchHistoryRepository interface {
	Repository[models.SearchHistory, models.SearchHistoryFilter]
	Touch(ctx context.Context, query string, resultsCount int, at time.Time) error
	TopQueries(ctx context.Context, limit int) ([]*models.PopularSearch, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UpdateStatRepository defines operations for scheduled refresh statistics
type UpdateStatRepository interface {
	Repository[models.UpdateStat, models.UpdateStatFilter]
	Latest(ctx context.Context) (*models.UpdateStat, error)
}
