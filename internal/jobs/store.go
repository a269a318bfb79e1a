// Package jobs tracks the progress of long-running reconciliation jobs.
// State is in-memory only; a restart forgets every job, and callers are
// expected to treat an unknown job id as expired.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"invoice-reconciliation-service/internal/models"
)

// Store is a concurrency-safe registry of job progress keyed by job id.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*models.JobProgress
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*models.JobProgress),
	}
}

// Create registers a new pending job and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = &models.JobProgress{
		Status:    models.JobPending,
		UpdatedAt: time.Now().UTC(),
	}
	return id
}

// Update sets the status, progress, and message of a job. Updating an
// unknown id is a no-op; the job may have been pruned.
func (s *Store) Update(id string, status models.JobStatus, progress float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Progress = progress
	job.Message = message
	job.UpdatedAt = time.Now().UTC()
}

// Complete marks a job finished and attaches its result payload.
func (s *Store) Complete(id string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = models.JobCompleted
	job.Progress = 1.0
	job.Message = "completed"
	job.Data = data
	job.UpdatedAt = time.Now().UTC()
}

// Fail marks a job errored with the failure message.
func (s *Store) Fail(id string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = models.JobError
	job.Message = message
	job.UpdatedAt = time.Now().UTC()
}

// Get returns a copy of the job's progress. The second return is false
// for unknown ids.
func (s *Store) Get(id string) (models.JobProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.JobProgress{}, false
	}
	return *job, true
}

// Delete removes a job from the store.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
