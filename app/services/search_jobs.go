package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/priceshield/priceshield-backend/app/dto"
	businessflow "github.com/priceshield/priceshield-backend/business_flow"
	"github.com/priceshield/priceshield-backend/utils"
	"github.com/redis/go-redis/v9"
)

// SearchJobStatus is the lifecycle state of an async search job.
type SearchJobStatus string

const (
	SearchJobPending   SearchJobStatus = "pending"
	SearchJobRunning   SearchJobStatus = "running"
	SearchJobCompleted SearchJobStatus = "completed"
	SearchJobFailed    SearchJobStatus = "failed"
)

const (
	searchJobRedisPrefix = "search_jobs:"
	searchJobTTL         = 1 * time.Hour
)

// SearchJob is the tracked state of one submitted search.
type SearchJob struct {
	ID          string                      `json:"id"`
	Status      SearchJobStatus             `json:"status"`
	Request     dto.SubmitSearchJobRequest  `json:"request"`
	SubmittedAt time.Time                   `json:"submitted_at"`
	FinishedAt  *time.Time                  `json:"finished_at,omitempty"`
	Error       string                      `json:"error,omitempty"`
	Result      *dto.SearchProductsResponse `json:"result,omitempty"`
}

// SearchJobService runs catalog searches asynchronously through a bounded
// worker pool. Submitting returns immediately with a job id; callers poll
// for the result. Job state is mirrored to redis when a client is
// configured, with the in-memory map as the fallback.
type SearchJobService struct {
	flow    businessflow.ProductFlow
	rc      *redis.Client
	prefix  string
	queue   chan string
	workers int

	mu   sync.RWMutex
	jobs map[string]*SearchJob
}

func NewSearchJobService(flow businessflow.ProductFlow, rc *redis.Client, redisPrefix string, workers, queueSize int) *SearchJobService {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &SearchJobService{
		flow:    flow,
		rc:      rc,
		prefix:  redisPrefix + searchJobRedisPrefix,
		queue:   make(chan string, queueSize),
		workers: workers,
		jobs:    make(map[string]*SearchJob),
	}
}

// Start launches the worker pool. The returned function stops intake; workers
// drain when the context is cancelled.
func (s *SearchJobService) Start(ctx context.Context) func() {
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case jobID := <-s.queue:
					s.run(ctx, jobID)
				}
			}
		}()
	}
	return func() { wg.Wait() }
}

// Submit enqueues a search and returns its job id. A full queue is a
// client-visible failure, not a silent drop.
func (s *SearchJobService) Submit(ctx context.Context, req dto.SubmitSearchJobRequest) (*SearchJob, error) {
	job := &SearchJob{
		ID:          uuid.New().String(),
		Status:      SearchJobPending,
		Request:     req,
		SubmittedAt: utils.UTCNow(),
	}
	s.store(ctx, job)

	select {
	case s.queue <- job.ID:
		return job, nil
	default:
		s.mu.Lock()
		delete(s.jobs, job.ID)
		s.mu.Unlock()
		return nil, businessflow.NewBusinessError("SEARCH_QUEUE_FULL", "Search queue is full, retry later", nil)
	}
}

// Status looks a job up, preferring local state and falling back to redis.
func (s *SearchJobService) Status(ctx context.Context, jobID string) (*SearchJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if ok {
		copied := *job
		return &copied, nil
	}

	if s.rc != nil {
		if bs, err := s.rc.Get(ctx, s.prefix+jobID).Bytes(); err == nil && len(bs) > 0 {
			var out SearchJob
			if err := json.Unmarshal(bs, &out); err == nil {
				return &out, nil
			}
		}
	}
	return nil, businessflow.ErrSearchJobNotFound
}

func (s *SearchJobService) run(ctx context.Context, jobID string) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	s.transition(ctx, job, func(j *SearchJob) { j.Status = SearchJobRunning })

	req := &dto.SearchProductsRequest{
		Query:       job.Request.Query,
		Supermarket: job.Request.Supermarket,
		Limit:       job.Request.Limit,
		Save:        true,
	}
	result, err := s.flow.SearchProducts(ctx, req, nil)

	finished := utils.UTCNow()
	s.transition(ctx, job, func(j *SearchJob) {
		j.FinishedAt = &finished
		if err != nil {
			j.Status = SearchJobFailed
			j.Error = err.Error()
			return
		}
		j.Status = SearchJobCompleted
		j.Result = result
	})
	if err != nil {
		log.Printf("search job %s: %v", jobID, err)
	}
}

func (s *SearchJobService) transition(ctx context.Context, job *SearchJob, mutate func(*SearchJob)) {
	s.mu.Lock()
	mutate(job)
	copied := *job
	s.mu.Unlock()
	s.persist(ctx, &copied)
}

func (s *SearchJobService) store(ctx context.Context, job *SearchJob) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	copied := *job
	s.mu.Unlock()
	s.persist(ctx, &copied)
}

func (s *SearchJobService) persist(ctx context.Context, job *SearchJob) {
	if s.rc == nil {
		return
	}
	if bs, err := json.Marshal(job); err == nil {
		_ = s.rc.Set(ctx, s.prefix+job.ID, bs, searchJobTTL).Err()
	}
}
