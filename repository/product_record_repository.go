package repository

import (
	"context"
	"errors"
	"time"

	"github.com/priceshield/priceshield-backend/models"
	"gorm.io/gorm"
)

// ProductRecordRepositoryImpl implements ProductRecordRepository
type ProductRecordRepositoryImpl struct {
	*BaseRepository[models.ProductRecord, models.ProductRecordFilter]
}

func NewProductRecordRepository(db *gorm.DB) ProductRecordRepository {
	return &ProductRecordRepositoryImpl{BaseRepository: NewBaseRepository[models.ProductRecord, models.ProductRecordFilter](db)}
}

func (r *ProductRecordRepositoryImpl) ByUniqueID(ctx context.Context, uniqueID string) (*models.ProductRecord, error) {
	db := r.getDB(ctx)
	var row models.ProductRecord
	if err := db.Where("unique_id = ?", uniqueID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *ProductRecordRepositoryImpl) Update(ctx context.Context, record *models.ProductRecord) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}
	err = db.Save(record).Error
	return err
}

// SearchByName performs a case-insensitive substring search over stored product names.
// Plain ILIKE matching: search ranking is out of scope.
func (r *ProductRecordRepositoryImpl) SearchByName(ctx context.Context, nameLike string, retailerKey string, orderBy string, limit int) ([]*models.ProductRecord, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ProductRecord{}).Where("name ILIKE ?", "%"+nameLike+"%")
	if retailerKey != "" {
		query = query.Where("retailer_key = ?", retailerKey)
	}
	if orderBy == "" {
		orderBy = "price ASC"
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []*models.ProductRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProductRecordRepositoryImpl) ListRecent(ctx context.Context, since time.Time, limit int) ([]*models.ProductRecord, error) {
	filter := models.ProductRecordFilter{UpdatedAfter: &since}
	return r.ByFilter(ctx, filter, "last_updated_at DESC", limit, 0)
}

func (r *ProductRecordRepositoryImpl) ListByCategory(ctx context.Context, category string, limit int) ([]*models.ProductRecord, error) {
	db := r.getDB(ctx)
	var rows []*models.ProductRecord
	query := db.Model(&models.ProductRecord{}).
		Where("EXISTS (SELECT 1 FROM unnest(categories) c WHERE c ILIKE ?)", "%"+category+"%").
		Order("price ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProductRecordRepositoryImpl) DistinctCategories(ctx context.Context) ([]string, error) {
	db := r.getDB(ctx)
	var categories []string
	err := db.Model(&models.ProductRecord{}).
		Select("DISTINCT unnest(categories)").
		Order("unnest(categories)").
		Pluck("unnest(categories)", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *ProductRecordRepositoryImpl) DistinctBrands(ctx context.Context) ([]string, error) {
	db := r.getDB(ctx)
	var brands []string
	err := db.Model(&models.ProductRecord{}).
		Where("brand <> ''").
		Distinct("brand").
		Order("brand").
		Pluck("brand", &brands).Error
	if err != nil {
		return nil, err
	}
	return brands, nil
}

func (r *ProductRecordRepositoryImpl) LastUpdatedAt(ctx context.Context) (*time.Time, error) {
	db := r.getDB(ctx)
	var row models.ProductRecord
	if err := db.Order("last_updated_at DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.LastUpdatedAt, nil
}

func (r *ProductRecordRepositoryImpl) DeleteScrapedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("scraped_at < ?", cutoff).Delete(&models.ProductRecord{})
	return res.RowsAffected, res.Error
}

func (r *ProductRecordRepositoryImpl) applyFilter(db *gorm.DB, f models.ProductRecordFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UniqueID != nil {
		db = db.Where("unique_id = ?", *f.UniqueID)
	}
	if f.RetailerKey != nil {
		db = db.Where("retailer_key = ?", *f.RetailerKey)
	}
	if f.Brand != nil {
		db = db.Where("brand = ?", *f.Brand)
	}
	if f.Category != nil {
		db = db.Where("? = ANY(categories)", *f.Category)
	}
	if f.Available != nil {
		db = db.Where("available = ?", *f.Available)
	}
	if f.NameLike != nil {
		db = db.Where("name ILIKE ?", "%"+*f.NameLike+"%")
	}
	if f.ScrapedAfter != nil {
		db = db.Where("scraped_at >= ?", *f.ScrapedAfter)
	}
	if f.ScrapedBefore != nil {
		db = db.Where("scraped_at < ?", *f.ScrapedBefore)
	}
	if f.UpdatedAfter != nil {
		db = db.Where("last_updated_at >= ?", *f.UpdatedAfter)
	}
	return db
}

func (r *ProductRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.ProductRecordFilter, orderBy string, limit, offset int) ([]*models.ProductRecord, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ProductRecord{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ProductRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProductRecordRepositoryImpl) Count(ctx context.Context, filter models.ProductRecordFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ProductRecord{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ProductRecordRepositoryImpl) Exists(ctx context.Context, filter models.ProductRecordFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
