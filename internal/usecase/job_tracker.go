package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Job is a background evaluation of one (project, language) pair.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	ProjectID    uuid.UUID  `json:"project_id"`
	Language     string     `json:"language"`
	State        RunState   `json:"state"`
	Error        string     `json:"error,omitempty"`
	EvaluationID *uuid.UUID `json:"evaluation_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// JobTracker keeps recent job states; entries expire after the TTL.
type JobTracker struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewJobTracker(ttl time.Duration) *JobTracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JobTracker{cache: cache.New(ttl, ttl)}
}

func (t *JobTracker) Put(job Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.SetDefault(job.ID.String(), job)
}

func (t *JobTracker) Get(id uuid.UUID) (Job, bool) {
	v, ok := t.cache.Get(id.String())
	if !ok {
		return Job{}, false
	}
	return v.(Job), true
}

// Update applies fn to a tracked job. It is a no-op for expired entries.
func (t *JobTracker) Update(id uuid.UUID, fn func(*Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.cache.Get(id.String())
	if !ok {
		return
	}
	job := v.(Job)
	fn(&job)
	job.UpdatedAt = time.Now()
	t.cache.SetDefault(id.String(), job)
}
