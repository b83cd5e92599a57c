package models

import (
	"time"

	"github.com/priceshield/priceshield-backend/utils"
	"gorm.io/gorm"
)

// SearchHistory tracks how often a search term has been used, one row per term per day
type SearchHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Query          string    `gorm:"size:256;not null;index:idx_search_history_query" json:"query"`
	ResultsCount   int       `gorm:"default:0" json:"results_count"`
	SearchCount    int       `gorm:"default:1" json:"search_count"`
	Day            string    `gorm:"size:10;not null;index:idx_search_history_day" json:"day"`
	LastSearchedAt time.Time `gorm:"index:idx_search_history_last_searched_at" json:"last_searched_at"`
}

// TableName returns the table name for the model
func (SearchHistory) TableName() string {
	return "search_history"
}

// BeforeCreate is called before creating a new record
func (s *SearchHistory) BeforeCreate(tx *gorm.DB) error {
	if s.LastSearchedAt.IsZero() {
		s.LastSearchedAt = utils.UTCNow()
	}
	if s.Day == "" {
		s.Day = s.LastSearchedAt.Format("2006-01-02")
	}
	if s.SearchCount == 0 {
		s.SearchCount = 1
	}
	return nil
}

// SearchHistoryFilter represents filter criteria for search history queries
type SearchHistoryFilter struct {
	ID             *uint
	Query          *string
	Day            *string
	SearchedAfter  *time.Time
	SearchedBefore *time.Time
}

// PopularSearch is an aggregated view over the search history
type PopularSearch struct {
	Query        string    `json:"query"`
	SearchCount  int64     `json:"search_count"`
	TotalResults int64     `json:"total_results"`
	LastSearch   time.Time `json:"last_search"`
}
