package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/utils"
	"gorm.io/gorm"
)

// AlertRepositoryImpl implements AlertRepository
type AlertRepositoryImpl struct {
	*BaseRepository[models.Alert, models.AlertFilter]
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &AlertRepositoryImpl{BaseRepository: NewBaseRepository[models.Alert, models.AlertFilter](db)}
}

func (r *AlertRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	db := r.getDB(ctx)
	var row models.Alert
	if err := db.Where("uuid = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *AlertRepositoryImpl) ListActive(ctx context.Context, limit, offset int) ([]*models.Alert, error) {
	active := true
	filter := models.AlertFilter{Active: &active}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

func (r *AlertRepositoryImpl) ListActiveByRetailer(ctx context.Context, retailerKey string, limit int) ([]*models.Alert, error) {
	active := true
	filter := models.AlertFilter{Active: &active, RetailerKey: &retailerKey}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, 0)
}

func (r *AlertRepositoryImpl) ListActiveByCategory(ctx context.Context, category string, limit int) ([]*models.Alert, error) {
	active := true
	filter := models.AlertFilter{Active: &active, Category: &category}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, 0)
}

func (r *AlertRepositoryImpl) ListByProduct(ctx context.Context, productUniqueID string, limit int) ([]*models.Alert, error) {
	filter := models.AlertFilter{ProductUniqueID: &productUniqueID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, 0)
}

func (r *AlertRepositoryImpl) CountActiveUnread(ctx context.Context) (int64, error) {
	active := true
	isRead := false
	return r.Count(ctx, models.AlertFilter{Active: &active, IsRead: &isRead})
}

// HasRecentActive reports whether an active alert for the product was created at or after since.
// Used by the alert policy cooldown gate.
func (r *AlertRepositoryImpl) HasRecentActive(ctx context.Context, productUniqueID string, since time.Time) (bool, error) {
	active := true
	return r.Exists(ctx, models.AlertFilter{
		ProductUniqueID: &productUniqueID,
		Active:          &active,
		CreatedAfter:    &since,
	})
}

func (r *AlertRepositoryImpl) MarkRead(ctx context.Context, id uuid.UUID) (bool, error) {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	res := db.Model(&models.Alert{}).
		Where("uuid = ? AND is_read = false", id).
		Updates(map[string]any{"is_read": true, "read_at": now, "updated_at": now})
	return res.RowsAffected > 0, res.Error
}

// Ignore deactivates an alert. Already inactive alerts stay untouched so an
// ignored alert is never resurrected or re-stamped.
func (r *AlertRepositoryImpl) Ignore(ctx context.Context, id uuid.UUID) (bool, error) {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	res := db.Model(&models.Alert{}).
		Where("uuid = ? AND active = true", id).
		Updates(map[string]any{"active": false, "ignored_at": now, "updated_at": now})
	return res.RowsAffected > 0, res.Error
}

func (r *AlertRepositoryImpl) MarkReadByProduct(ctx context.Context, productUniqueID string) (int64, error) {
	db := r.getDB(ctx)
	now := utils.UTCNow()
	res := db.Model(&models.Alert{}).
		Where("product_unique_id = ? AND active = true AND is_read = false", productUniqueID).
		Updates(map[string]any{"is_read": true, "read_at": now, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (r *AlertRepositoryImpl) BulkMarkRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := r.getDB(ctx)
	now := utils.UTCNow()
	res := db.Model(&models.Alert{}).
		Where("uuid IN ? AND is_read = false", ids).
		Updates(map[string]any{"is_read": true, "read_at": now, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (r *AlertRepositoryImpl) Summary(ctx context.Context) (*models.AlertSummary, error) {
	db := r.getDB(ctx)
	var summary models.AlertSummary
	err := db.Model(&models.Alert{}).
		Select(`COUNT(*) AS total_alerts,
			COUNT(*) FILTER (WHERE is_read = false) AS unread_alerts,
			COUNT(*) FILTER (WHERE is_read = true) AS read_alerts,
			COUNT(*) FILTER (WHERE direction = 'increase' AND is_read = false) AS price_increases,
			COUNT(*) FILTER (WHERE direction = 'decrease' AND is_read = false) AS price_decreases`).
		Where("active = true").
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *AlertRepositoryImpl) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("created_at < ?", cutoff).Delete(&models.Alert{})
	return res.RowsAffected, res.Error
}

func (r *AlertRepositoryImpl) applyFilter(db *gorm.DB, f models.AlertFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.ProductUniqueID != nil {
		db = db.Where("product_unique_id = ?", *f.ProductUniqueID)
	}
	if f.RetailerKey != nil {
		db = db.Where("retailer_key = ?", *f.RetailerKey)
	}
	if f.Category != nil {
		db = db.Where("? = ANY(categories)", *f.Category)
	}
	if f.Direction != nil {
		db = db.Where("direction = ?", *f.Direction)
	}
	if f.Active != nil {
		db = db.Where("active = ?", *f.Active)
	}
	if f.IsRead != nil {
		db = db.Where("is_read = ?", *f.IsRead)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *AlertRepositoryImpl) ByFilter(ctx context.Context, filter models.AlertFilter, orderBy string, limit, offset int) ([]*models.Alert, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Alert{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Alert
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AlertRepositoryImpl) Count(ctx context.Context, filter models.AlertFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Alert{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AlertRepositoryImpl) Exists(ctx context.Context, filter models.AlertFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
