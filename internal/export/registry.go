package export

import (
	"sort"
	"sync"

	"github.com/gracehq/chms/internal/domain"
)

// Registry is the authoritative in-memory store of export job records for
// the process lifetime. All reads by the HTTP layer go through it; the
// orchestrator mutates jobs exclusively via Update, so progress polling and
// progress writes always observe a consistent snapshot.
type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*domain.ExportJob
	cancelled map[string]bool
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:      make(map[string]*domain.ExportJob),
		cancelled: make(map[string]bool),
	}
}

// Insert adds a new job record. The registry owns the stored copy from
// this point on.
func (r *Registry) Insert(job *domain.ExportJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *job
	stored.ContentTypes = append([]domain.ContentType(nil), job.ContentTypes...)
	r.jobs[job.ID] = &stored
}

// Get returns a snapshot copy of the job, so callers can never observe a
// half-applied progress update.
func (r *Registry) Get(id string) (domain.ExportJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ExportJob{}, false
	}
	return snapshot(job), true
}

// Update applies the mutation atomically with respect to concurrent reads.
// Returns false if the job does not exist.
func (r *Registry) Update(id string, mutate func(*domain.ExportJob)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	mutate(job)
	return true
}

// Delete removes the job record and returns its final snapshot.
func (r *Registry) Delete(id string) (domain.ExportJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.ExportJob{}, false
	}
	delete(r.jobs, id)
	delete(r.cancelled, id)
	return snapshot(job), true
}

// List returns a page of job snapshots sorted newest first, plus the total
// number of jobs in the registry.
func (r *Registry) List(page, limit int) ([]domain.ExportJob, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	r.mu.RLock()
	all := make([]domain.ExportJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		all = append(all, snapshot(job))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return []domain.ExportJob{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total
}

// MarkCancelled flags a job for cancellation. The orchestrator checks the
// flag between content types; terminal jobs are unaffected.
func (r *Registry) MarkCancelled(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; ok {
		r.cancelled[id] = true
	}
}

// IsCancelled reports whether the job has been flagged for cancellation.
func (r *Registry) IsCancelled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cancelled[id]
}

// ClearCancelled consumes the cancellation flag once the orchestrator has
// acted on it.
func (r *Registry) ClearCancelled(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancelled, id)
}

func snapshot(job *domain.ExportJob) domain.ExportJob {
	out := *job
	out.ContentTypes = append([]domain.ContentType(nil), job.ContentTypes...)
	return out
}
