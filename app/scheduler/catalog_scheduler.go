// Package scheduler
package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"time"

	businessflow "github.com/priceshield/priceshield-backend/business_flow"
	"github.com/priceshield/priceshield-backend/config"
	"github.com/priceshield/priceshield-backend/models"
	"github.com/priceshield/priceshield-backend/repository"
	"github.com/priceshield/priceshield-backend/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrRefreshRunning is returned when a manual refresh is requested while one is in progress.
var ErrRefreshRunning = errors.New("catalog refresh already running")

// Status is a point-in-time snapshot of the scheduler state.
type Status struct {
	Enabled        bool               `json:"enabled"`
	Running        bool               `json:"running"`
	TermCount      int                `json:"term_count"`
	LastStartedAt  *time.Time         `json:"last_started_at,omitempty"`
	LastFinishedAt *time.Time         `json:"last_finished_at,omitempty"`
	LastStat       *models.UpdateStat `json:"last_stat,omitempty"`
}

// CatalogScheduler periodically refreshes the tracked catalog by re-running the
// popular search terms through ingestion, and prunes stale rows on a longer cadence.
type CatalogScheduler struct {
	catalog     businessflow.CatalogSource
	ingest      businessflow.IngestFlow
	productRepo repository.ProductRecordRepository
	obsRepo     repository.PriceObservationRepository
	alertRepo   repository.AlertRepository
	searchRepo  repository.SearchHistoryRepository
	statRepo    repository.UpdateStatRepository
	logger      *log.Logger
	cfg         config.SchedulerConfig

	mu             sync.Mutex
	running        bool
	lastStartedAt  *time.Time
	lastFinishedAt *time.Time
}

func NewCatalogScheduler(
	catalog businessflow.CatalogSource,
	ingest businessflow.IngestFlow,
	productRepo repository.ProductRecordRepository,
	obsRepo repository.PriceObservationRepository,
	alertRepo repository.AlertRepository,
	searchRepo repository.SearchHistoryRepository,
	statRepo repository.UpdateStatRepository,
	cfg config.SchedulerConfig,
	logCfg config.LoggingConfig,
) *CatalogScheduler {
	s := &CatalogScheduler{
		catalog:     catalog,
		ingest:      ingest,
		productRepo: productRepo,
		obsRepo:     obsRepo,
		alertRepo:   alertRepo,
		searchRepo:  searchRepo,
		statRepo:    statRepo,
		cfg:         cfg,
	}
	s.initSchedulerLogger(logCfg)
	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a rotated file
func (s *CatalogScheduler) initSchedulerLogger(logCfg config.LoggingConfig) {
	if logCfg.Output == "stdout" || logCfg.FilePath == "" {
		s.logger = log.New(os.Stdout, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   logCfg.FilePath,
		MaxSize:    logCfg.MaxSize,
		MaxAge:     logCfg.MaxAge,
		MaxBackups: logCfg.Backups,
		Compress:   logCfg.Compress,
	}
	var w io.Writer = rotator
	if logCfg.Output == "both" {
		w = io.MultiWriter(os.Stdout, rotator)
	}
	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	s.logger = log.New(w, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the refresh and cleanup loops in a background goroutine and returns a stop function
func (s *CatalogScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		refresh := time.NewTicker(s.cfg.RefreshInterval)
		defer refresh.Stop()
		cleanup := time.NewTicker(s.cfg.CleanupInterval)
		defer cleanup.Stop()

		s.runRefresh(ctx, "scheduled")

		for {
			select {
			case <-ctx.Done():
				return
			case <-refresh.C:
				s.runRefresh(ctx, "scheduled")
			case <-cleanup.C:
				s.runCleanup(ctx)
			}
		}
	}()

	return cancel
}

// ForceRefresh runs one refresh pass outside the schedule, e.g. from the admin endpoint.
// Only one refresh runs at a time.
func (s *CatalogScheduler) ForceRefresh(ctx context.Context) error {
	if s.isRunning() {
		return ErrRefreshRunning
	}
	go s.runRefresh(context.WithoutCancel(ctx), "manual")
	return nil
}

// Status reports the current scheduler state plus the most recent refresh outcome.
func (s *CatalogScheduler) Status(ctx context.Context) (*Status, error) {
	s.mu.Lock()
	st := &Status{
		Enabled:        s.cfg.Enabled,
		Running:        s.running,
		TermCount:      len(s.cfg.PopularTerms),
		LastStartedAt:  s.lastStartedAt,
		LastFinishedAt: s.lastFinishedAt,
	}
	s.mu.Unlock()

	stat, err := s.statRepo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	st.LastStat = stat
	return st, nil
}

func (s *CatalogScheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *CatalogScheduler) beginRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	now := utils.UTCNow()
	s.lastStartedAt = &now
	return true
}

func (s *CatalogScheduler) endRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	now := utils.UTCNow()
	s.lastFinishedAt = &now
}

func (s *CatalogScheduler) runRefresh(ctx context.Context, updateType string) {
	if !s.beginRun() {
		s.logger.Printf("scheduler: refresh already in progress, skipping %s run", updateType)
		return
	}
	defer s.endRun()

	started := utils.UTCNow()
	stat := &models.UpdateStat{
		StartedAt:  started,
		UpdateType: updateType,
	}

	s.logger.Printf("scheduler: starting %s refresh over %d terms", updateType, len(s.cfg.PopularTerms))

	for i, term := range s.cfg.PopularTerms {
		if ctx.Err() != nil {
			s.logger.Printf("scheduler: refresh cancelled after %d terms", stat.TermsProcessed)
			break
		}

		results, errs := s.catalog.SearchAll(ctx, term, s.cfg.TermLimit)
		for retailer, err := range errs {
			s.logger.Printf("scheduler: search %q on %s failed: %v", term, retailer, err)
			stat.Errors++
		}
		for _, listings := range results {
			if len(listings) == 0 {
				continue
			}
			summary, err := s.ingest.IngestBatch(ctx, listings, term)
			if err != nil {
				s.logger.Printf("scheduler: ingest %q failed: %v", term, err)
				stat.Errors++
				continue
			}
			stat.ProductsSaved += summary.Created
			stat.ProductsUpdated += summary.Updated
			stat.AlertsCreated += summary.Alerts
			stat.Errors += summary.Failures
		}
		stat.TermsProcessed++

		// Pace requests between terms to stay polite toward the retailer APIs
		if i < len(s.cfg.PopularTerms)-1 && s.cfg.TermDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.TermDelay):
			}
		}
	}

	stat.DurationSeconds = time.Since(started).Seconds()
	if err := s.statRepo.Save(context.WithoutCancel(ctx), stat); err != nil {
		s.logger.Printf("scheduler: save update stat failed: %v", err)
	}

	s.logger.Printf("scheduler: %s refresh finished in %.1fs: saved=%d updated=%d alerts=%d errors=%d terms=%d",
		updateType, stat.DurationSeconds, stat.ProductsSaved, stat.ProductsUpdated, stat.AlertsCreated, stat.Errors, stat.TermsProcessed)
}

func (s *CatalogScheduler) runCleanup(ctx context.Context) {
	now := utils.UTCNow()

	if n, err := s.productRepo.DeleteScrapedBefore(ctx, now.Add(-s.cfg.ProductMaxAge)); err != nil {
		s.logger.Printf("scheduler: cleanup stale products failed: %v", err)
	} else if n > 0 {
		s.logger.Printf("scheduler: removed %d products not seen for %s", n, s.cfg.ProductMaxAge)
	}

	if n, err := s.searchRepo.DeleteBefore(ctx, now.Add(-s.cfg.SearchMaxAge)); err != nil {
		s.logger.Printf("scheduler: cleanup search history failed: %v", err)
	} else if n > 0 {
		s.logger.Printf("scheduler: removed %d stale search history rows", n)
	}

	if n, err := s.obsRepo.DeleteObservedBefore(ctx, now.Add(-s.cfg.PriceMaxAge)); err != nil {
		s.logger.Printf("scheduler: cleanup price observations failed: %v", err)
	} else if n > 0 {
		s.logger.Printf("scheduler: removed %d old price observations", n)
	}

	if n, err := s.alertRepo.DeleteCreatedBefore(ctx, now.Add(-s.cfg.AlertMaxAge)); err != nil {
		s.logger.Printf("scheduler: cleanup alerts failed: %v", err)
	} else if n > 0 {
		s.logger.Printf("scheduler: removed %d old alerts", n)
	}
}
