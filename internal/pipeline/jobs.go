package pipeline

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safemeals/menu-analysis-service/internal/ai"
	"github.com/safemeals/menu-analysis-service/internal/models"
)

// ErrJobNotFound covers both unknown and expired job ids, and ids owned
// by a different user (ownership is never disclosed).
var ErrJobNotFound = errors.New("analysis job not found")

// Job tracks one in-flight or recently finished analysis. The quick
// verdict is set at creation and never changes; exactly one of
// completeFinal/fail moves the job out of PARTIAL, after which the job
// is immutable.
type Job struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	mu      sync.Mutex
	status  models.AnalysisStatus
	quick   models.QuickVerdict
	final   *models.FinalVerdict
	timings models.Timings
	failErr *ai.ProviderError

	done chan struct{}
}

// completeFinal publishes the final verdict. No-op if the job already left
// the PARTIAL state.
func (j *Job) completeFinal(final *models.FinalVerdict, timings models.Timings) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != models.AnalysisPartial {
		return
	}
	j.status = models.AnalysisFinal
	j.final = final
	j.timings = timings
	close(j.done)
}

// fail marks the job FAILED with the provider error that caused it.
func (j *Job) fail(perr *ai.ProviderError, timings models.Timings) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != models.AnalysisPartial {
		return
	}
	j.status = models.AnalysisFailed
	j.failErr = perr
	j.timings = timings
	close(j.done)
}

// Snapshot returns the job's current protocol response. For FAILED jobs
// the provider error is returned alongside so the transport layer can map
// it; the response itself still carries the quick verdict.
func (j *Job) Snapshot() (*models.AnalyzeResponse, *ai.ProviderError) {
	j.mu.Lock()
	defer j.mu.Unlock()

	quick := j.quick
	resp := &models.AnalyzeResponse{
		Status:      j.status,
		JobID:       j.ID,
		QuickResult: &quick,
		Timings:     j.timings,
	}
	if j.status == models.AnalysisFinal {
		resp.Result = j.final
	}
	return resp, j.failErr
}

// Done exposes the completion channel for deadline waits.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// JobStore is the in-memory registry of analysis jobs, keyed by job id.
// Finished jobs are retained for polling and swept out after the
// configured retention window.
type JobStore struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
}

// NewJobStore creates a store and starts its sweep loop.
func NewJobStore(retention time.Duration) *JobStore {
	if retention <= 0 {
		retention = 10 * time.Minute
	}
	s := &JobStore{
		jobs:      make(map[string]*Job),
		retention: retention,
	}
	go s.sweepLoop()
	return s
}

// Create registers a new PARTIAL job carrying the quick verdict.
func (s *JobStore) Create(userID string, quick models.QuickVerdict, quickMs int64) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
		status:    models.AnalysisPartial,
		quick:     quick,
		timings:   models.Timings{QuickMs: quickMs},
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

// Get returns the job if it exists and belongs to userID.
func (s *JobStore) Get(jobID, userID string) (*Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok || job.UserID != userID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *JobStore) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.sweep(time.Now())
	}
}

// sweep removes jobs older than the retention window. Still-running jobs
// past the window are removed too; their goroutine finishes into an
// unreferenced job.
func (s *JobStore) sweep(now time.Time) {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	removed := 0
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		log.Printf("[Jobs] Swept %d expired jobs", removed)
	}
}
