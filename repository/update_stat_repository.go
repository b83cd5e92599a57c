package repository

import (
	"context"
	"errors"

	"github.com/priceshield/priceshield-backend/models"
	"gorm.io/gorm"
)

// UpdateStatRepositoryImpl implements UpdateStatRepository
type UpdateStatRepositoryImpl struct {
	*BaseRepository[models.UpdateStat, models.UpdateStatFilter]
}

func NewUpdateStatRepository(db *gorm.DB) UpdateStatRepository {
	return &UpdateStatRepositoryImpl{BaseRepository: NewBaseRepository[models.UpdateStat, models.UpdateStatFilter](db)}
}

func (r *UpdateStatRepositoryImpl) Latest(ctx context.Context) (*models.UpdateStat, error) {
	db := r.getDB(ctx)
	var row models.UpdateStat
	if err := db.Order("created_at DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *UpdateStatRepositoryImpl) applyFilter(db *gorm.DB, f models.UpdateStatFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UpdateType != nil {
		db = db.Where("update_type = ?", *f.UpdateType)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *UpdateStatRepositoryImpl) ByFilter(ctx context.Context, filter models.UpdateStatFilter, orderBy string, limit, offset int) ([]*models.UpdateStat, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.UpdateStat{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.UpdateStat
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *UpdateStatRepositoryImpl) Count(ctx context.Context, filter models.UpdateStatFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.UpdateStat{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UpdateStatRepositoryImpl) Exists(ctx context.Context, filter models.UpdateStatFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
