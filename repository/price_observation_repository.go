package repository

import (
	"context"
	"errors"
	"time"

	"github.com/priceshield/priceshield-backend/models"
	"gorm.io/gorm"
)

// PriceObservationRepositoryImpl implements PriceObservationRepository
type PriceObservationRepositoryImpl struct {
	*BaseRepository[models.PriceObservation, models.PriceObservationFilter]
}

func NewPriceObservationRepository(db *gorm.DB) PriceObservationRepository {
	return &PriceObservationRepositoryImpl{BaseRepository: NewBaseRepository[models.PriceObservation, models.PriceObservationFilter](db)}
}

func (r *PriceObservationRepositoryImpl) LastByProduct(ctx context.Context, productUniqueID string) (*models.PriceObservation, error) {
	db := r.getDB(ctx)
	var row models.PriceObservation
	err := db.Where("product_unique_id = ?", productUniqueID).
		Order("observed_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *PriceObservationRepositoryImpl) ListByProduct(ctx context.Context, productUniqueID string, from, to time.Time) ([]*models.PriceObservation, error) {
	filter := models.PriceObservationFilter{
		ProductUniqueID: &productUniqueID,
		ObservedAfter:   &from,
		ObservedBefore:  &to,
	}
	return r.ByFilter(ctx, filter, "observed_at ASC", 0, 0)
}

func (r *PriceObservationRepositoryImpl) DeleteObservedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("observed_at < ?", cutoff).Delete(&models.PriceObservation{})
	return res.RowsAffected, res.Error
}

func (r *PriceObservationRepositoryImpl) applyFilter(db *gorm.DB, f models.PriceObservationFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.ProductUniqueID != nil {
		db = db.Where("product_unique_id = ?", *f.ProductUniqueID)
	}
	if f.ObservedAfter != nil {
		db = db.Where("observed_at >= ?", *f.ObservedAfter)
	}
	if f.ObservedBefore != nil {
		db = db.Where("observed_at < ?", *f.ObservedBefore)
	}
	return db
}

func (r *PriceObservationRepositoryImpl) ByFilter(ctx context.Context, filter models.PriceObservationFilter, orderBy string, limit, offset int) ([]*models.PriceObservation, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PriceObservation{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.PriceObservation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PriceObservationRepositoryImpl) Count(ctx context.Context, filter models.PriceObservationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PriceObservation{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PriceObservationRepositoryImpl) Exists(ctx context.Context, filter models.PriceObservationFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
