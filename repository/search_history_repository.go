package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/priceshield/priceshield-backend/models"
	"gorm.io/gorm"
)

// SearchHistoryRepositoryImpl implements SearchHistoryRepository
type SearchHistoryRepositoryImpl struct {
	*BaseRepository[models.SearchHistory, models.SearchHistoryFilter]
}

func NewSearchHistoryRepository(db *gorm.DB) SearchHistoryRepository {
	return &SearchHistoryRepositoryImpl{BaseRepository: NewBaseRepository[models.SearchHistory, models.SearchHistoryFilter](db)}
}

// Touch increments the daily counter for a query, creating the row on first use that day
func (r *SearchHistoryRepositoryImpl) Touch(ctx context.Context, query string, resultsCount int, at time.Time) error {
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

	query = strings.ToLower(strings.TrimSpace(query))
	day := at.UTC().Format("2006-01-02")

	var row models.SearchHistory
	err = db.Where("query = ? AND day = ?", query, day).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Create(&models.SearchHistory{
			Query:          query,
			Day:            day,
			ResultsCount:   resultsCount,
			SearchCount:    1,
			LastSearchedAt: at.UTC(),
		}).Error
		return err
	}
	if err != nil {
		return err
	}

	err = db.Model(&row).Updates(map[string]any{
		"search_count":     gorm.Expr("search_count + 1"),
		"results_count":    gorm.Expr("results_count + ?", resultsCount),
		"last_searched_at": at.UTC(),
	}).Error
	return err
}

func (r *SearchHistoryRepositoryImpl) TopQueries(ctx context.Context, limit int) ([]*models.PopularSearch, error) {
	db := r.getDB(ctx)
	var rows []*models.PopularSearch
	query := db.Model(&models.SearchHistory{}).
		Select(`query,
			SUM(search_count) AS search_count,
			SUM(results_count) AS total_results,
			MAX(last_searched_at) AS last_search`).
		Group("query").
		Order("search_count DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SearchHistoryRepositoryImpl) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("last_searched_at < ?", cutoff).Delete(&models.SearchHistory{})
	return res.RowsAffected, res.Error
}

func (r *SearchHistoryRepositoryImpl) applyFilter(db *gorm.DB, f models.SearchHistoryFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Query != nil {
		db = db.Where("query = ?", *f.Query)
	}
	if f.Day != nil {
		db = db.Where("day = ?", *f.Day)
	}
	if f.SearchedAfter != nil {
		db = db.Where("last_searched_at >= ?", *f.SearchedAfter)
	}
	if f.SearchedBefore != nil {
		db = db.Where("last_searched_at < ?", *f.SearchedBefore)
	}
	return db
}

func (r *SearchHistoryRepositoryImpl) ByFilter(ctx context.Context, filter models.SearchHistoryFilter, orderBy string, limit, offset int) ([]*models.SearchHistory, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SearchHistory{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.SearchHistory
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SearchHistoryRepositoryImpl) Count(ctx context.Context, filter models.SearchHistoryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SearchHistory{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SearchHistoryRepositoryImpl) Exists(ctx context.Context, filter models.SearchHistoryFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
