package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gracehq/chms/internal/domain"
	"github.com/gracehq/chms/internal/logger"
	"github.com/gracehq/chms/internal/storage"
)

// Facade errors surfaced to the HTTP layer. Everything that happens inside
// the background pipeline is absorbed into the job's terminal state instead.
var (
	ErrInvalidRequest = errors.New("invalid export request")
	ErrJobNotFound    = errors.New("export job not found")
	ErrJobNotReady    = errors.New("export job is not ready")
	ErrQueueFull      = errors.New("export queue is full")
)

// Notifier is the boundary to the out-of-scope notification system. It is
// invoked once per job, after the job reaches a terminal state.
type Notifier interface {
	JobFinished(ctx context.Context, job domain.ExportJob)
}

// Config holds export pipeline configuration.
type Config struct {
	Workers   int
	QueueSize int
}

// Service is the export operation surface consumed by the HTTP layer, and
// the orchestrator that drives each job from creation to a terminal state.
type Service struct {
	registry   *Registry
	extractors map[domain.ContentType]Extractor
	encoder    Encoder
	packager   Packager
	store      storage.ArtifactStore
	notifier   Notifier
	logger     *logger.Logger

	queue     chan string
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewService creates the export service and starts its worker pool. Jobs
// are executed by a bounded number of workers pulling from a buffered
// queue, so a burst of export requests cannot exhaust the process.
func NewService(
	registry *Registry,
	extractors map[domain.ContentType]Extractor,
	store storage.ArtifactStore,
	notifier Notifier,
	log *logger.Logger,
	cfg *Config,
) *Service {
	workers := cfg.Workers
	if workers < 1 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 64
	}

	s := &Service{
		registry:   registry,
		extractors: extractors,
		store:      store,
		notifier:   notifier,
		logger:     log,
		queue:      make(chan string, queueSize),
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

// Close stops accepting jobs and waits for in-flight exports to finish.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}

func (s *Service) worker() {
	defer s.wg.Done()
	for jobID := range s.queue {
		s.run(jobID)
	}
}

// CreateRequest is the payload accepted by CreateExport.
type CreateRequest struct {
	ContentTypes []string             `json:"content_types" binding:"required"`
	Format       string               `json:"format" binding:"required"`
	Filters      domain.ExportFilters `json:"filters"`
	IncludeMedia bool                 `json:"include_media"`
	Compress     bool                 `json:"compress"`
	FileName     string               `json:"custom_file_name"`
}

// CreateResult is returned to the creating caller; all further interaction
// happens by polling the job ID.
type CreateResult struct {
	JobID            string `json:"job_id"`
	EstimatedSeconds int    `json:"estimated_seconds"`
}

var fileNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// CreateExport validates the request, registers the job as processing and
// hands it to the worker pool without blocking the caller.
func (s *Service) CreateExport(ctx context.Context, req *CreateRequest, createdBy string) (*CreateResult, error) {
	if len(req.ContentTypes) == 0 {
		return nil, fmt.Errorf("%w: at least one content type is required", ErrInvalidRequest)
	}

	contentTypes := make([]domain.ContentType, 0, len(req.ContentTypes))
	for _, raw := range req.ContentTypes {
		ct := domain.ContentType(raw)
		if _, ok := s.extractors[ct]; !ok {
			return nil, fmt.Errorf("%w: unknown content type %q", ErrInvalidRequest, raw)
		}
		contentTypes = append(contentTypes, ct)
	}

	format := domain.ExportFormat(req.Format)
	switch format {
	case domain.ExportFormatJSON, domain.ExportFormatCSV, domain.ExportFormatXML:
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidRequest, req.Format)
	}

	now := time.Now()
	fileName := fileNameSanitizer.ReplaceAllString(req.FileName, "-")
	if fileName == "" || fileName == "-" {
		fileName = "chms-export-" + now.Format("20060102-150405")
	}

	job := &domain.ExportJob{
		ID:           uuid.New().String(),
		ContentTypes: contentTypes,
		Format:       format,
		Filters:      req.Filters,
		IncludeMedia: req.IncludeMedia,
		Compress:     req.Compress,
		FileName:     fileName,
		Status:       domain.ExportStatusProcessing,
		CreatedAt:    now,
		CreatedBy:    createdBy,
	}
	s.registry.Insert(job)

	select {
	case s.queue <- job.ID:
	default:
		s.registry.Delete(job.ID)
		return nil, ErrQueueFull
	}

	s.logger.WithFields(logger.Fields{
		logger.FieldJobID: job.ID,
		"content_types":   req.ContentTypes,
		"format":          req.Format,
		"compress":        req.Compress,
	}).Info("Export job created")

	// Rough static heuristic; keeping creation cheap matters more than
	// estimate accuracy, which callers only use for polling cadence.
	estimate := 5 + 3*len(contentTypes)

	return &CreateResult{JobID: job.ID, EstimatedSeconds: estimate}, nil
}

// run drives a single job to a terminal state. Every failure inside the
// pipeline is captured here and recorded on the job; nothing propagates.
func (s *Service) run(jobID string) {
	ctx := logger.SetJobID(context.Background(), jobID)
	log := logger.FromContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			s.fail(ctx, jobID, fmt.Errorf("export panicked: %v", rec))
		}
	}()

	job, ok := s.registry.Get(jobID)
	if !ok {
		// rolled back before a worker picked it up
		return
	}
	if s.cancelled(ctx, jobID) {
		return
	}

	start := time.Now()
	log.WithField(logger.FieldCount, len(job.ContentTypes)).Info("Export job started")

	// Count total work first so progress has a denominator. A total of
	// zero is fine; an empty export is valid.
	total := 0
	for _, ct := range job.ContentTypes {
		count, err := s.extractors[ct].Count(ctx, job.Filters)
		if err != nil {
			s.fail(ctx, jobID, fmt.Errorf("failed to count %s: %w", ct, err))
			return
		}
		total += int(count)
	}
	s.registry.Update(jobID, func(j *domain.ExportJob) {
		j.TotalItems = total
	})

	// Extract each content type in selection order; content types are the
	// unit of progress granularity.
	result := make(map[domain.ContentType][]Record, len(job.ContentTypes))
	processed := 0
	for _, ct := range job.ContentTypes {
		if s.cancelled(ctx, jobID) {
			return
		}

		records, err := s.extractors[ct].Extract(ctx, job.Filters, job.IncludeMedia)
		if err != nil {
			s.fail(ctx, jobID, fmt.Errorf("failed to extract %s: %w", ct, err))
			return
		}
		result[ct] = records
		processed += len(records)

		s.registry.Update(jobID, func(j *domain.ExportJob) {
			j.ProcessedItems = processed
			if j.TotalItems > 0 {
				// extraction can see rows added after the count pass, so
				// the ratio is capped to keep progress within 0-100
				p := int(math.Round(float64(processed) / float64(j.TotalItems) * 100))
				if p > 100 {
					p = 100
				}
				j.Progress = p
			}
		})
		log.WithFields(logger.Fields{
			logger.FieldContentType: string(ct),
			logger.FieldCount:       len(records),
		}).Debug("Content type extracted")
	}

	// Last boundary check; a cancellation that landed during the final
	// extraction must not produce an artifact.
	if s.cancelled(ctx, jobID) {
		return
	}

	payloads, err := s.encoder.Encode(result, job.ContentTypes, job.Format, job.FileName)
	if err != nil {
		s.fail(ctx, jobID, err)
		return
	}

	// Multi-payload results (multi-type CSV) must still resolve to one
	// artifact, so the archive container is forced on for them.
	compress := job.Compress || len(payloads) > 1

	var buf bytes.Buffer
	artifactName := job.FileName + job.Format.Extension()
	if compress {
		artifactName = job.FileName + ".zip"
		if err := s.packager.Pack(&buf, payloads); err != nil {
			s.fail(ctx, jobID, err)
			return
		}
	} else {
		buf.Write(payloads[0].Data)
	}

	size := int64(buf.Len())
	filePath, err := s.store.Save(ctx, artifactName, &buf, size)
	if err != nil {
		s.fail(ctx, jobID, fmt.Errorf("failed to store artifact: %w", err))
		return
	}

	completedAt := time.Now()
	s.registry.Update(jobID, func(j *domain.ExportJob) {
		j.Status = domain.ExportStatusCompleted
		j.Progress = 100
		j.CompletedAt = &completedAt
		j.FilePath = filePath
		j.FileSize = size
	})

	log.WithFields(logger.Fields{
		logger.FieldSize:       size,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("Export job completed")

	s.notify(ctx, jobID)
}

// cancelled checks the job's cancellation flag at a content-type boundary.
// When set, the flag is consumed and the job is driven to its failed
// terminal state.
func (s *Service) cancelled(ctx context.Context, jobID string) bool {
	if !s.registry.IsCancelled(jobID) {
		return false
	}
	s.registry.ClearCancelled(jobID)
	s.fail(ctx, jobID, errors.New("export cancelled"))
	return true
}

// fail marks the job failed with the captured cause. The artifact path is
// never set on a failed job, so a partially written file is never linked.
func (s *Service) fail(ctx context.Context, jobID string, cause error) {
	completedAt := time.Now()
	s.registry.Update(jobID, func(j *domain.ExportJob) {
		j.Status = domain.ExportStatusFailed
		j.Error = cause.Error()
		j.CompletedAt = &completedAt
	})
	logger.FromContext(ctx).WithError(cause).Error("Export job failed")
	s.notify(ctx, jobID)
}

func (s *Service) notify(ctx context.Context, jobID string) {
	if s.notifier == nil {
		return
	}
	if job, ok := s.registry.Get(jobID); ok {
		s.notifier.JobFinished(ctx, job)
	}
}

// StatusResponse is the job status snapshot returned to polling callers.
type StatusResponse struct {
	JobID          string     `json:"job_id"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	TotalItems     int        `json:"total_items"`
	ProcessedItems int        `json:"processed_items"`
	FileName       string     `json:"file_name"`
	FileSize       int64      `json:"file_size,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	DownloadURL    string     `json:"download_url,omitempty"`
}

// GetStatus returns the current snapshot of a job.
func (s *Service) GetStatus(jobID string) (*StatusResponse, error) {
	job, ok := s.registry.Get(jobID)
	if !ok {
		return nil, ErrJobNotFound
	}
	return statusOf(&job), nil
}

func statusOf(job *domain.ExportJob) *StatusResponse {
	resp := &StatusResponse{
		JobID:          job.ID,
		Status:         string(job.Status),
		Progress:       job.Progress,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		FileName:       job.FileName,
		FileSize:       job.FileSize,
		CreatedAt:      job.CreatedAt,
		CompletedAt:    job.CompletedAt,
		Error:          job.Error,
	}
	if job.Status == domain.ExportStatusCompleted {
		resp.DownloadURL = "/api/v1/export/" + job.ID + "/download"
	}
	return resp
}

// Download opens the finished artifact for streaming. A job that exists but
// has not completed yet yields ErrJobNotReady, which callers must be able
// to tell apart from an unknown job.
func (s *Service) Download(ctx context.Context, jobID string) (io.ReadCloser, string, int64, error) {
	job, ok := s.registry.Get(jobID)
	if !ok {
		return nil, "", 0, ErrJobNotFound
	}
	if job.Status != domain.ExportStatusCompleted {
		return nil, "", 0, ErrJobNotReady
	}

	reader, size, err := s.store.Open(ctx, job.FilePath)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: artifact no longer exists", ErrJobNotFound)
	}
	return reader, path.Base(job.FilePath), size, nil
}

// HistoryPage is one page of job summaries, newest first.
type HistoryPage struct {
	Jobs  []*StatusResponse `json:"jobs"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ListHistory returns a page of job summaries sorted newest first.
func (s *Service) ListHistory(page, limit int) *HistoryPage {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	jobs, total := s.registry.List(page, limit)
	summaries := make([]*StatusResponse, 0, len(jobs))
	for i := range jobs {
		summaries = append(summaries, statusOf(&jobs[i]))
	}
	return &HistoryPage{Jobs: summaries, Total: total, Page: page, Limit: limit}
}

// DeleteExport removes the artifact and then the registry entry. A failed
// artifact removal is returned as a warning, not a fatal error; the entry
// is removed regardless. A job still processing is not removed directly:
// the running orchestrator owns its record, so deletion flags it for
// cancellation instead, the orchestrator fails it at the next content-type
// boundary, and the failed record can then be deleted normally.
func (s *Service) DeleteExport(ctx context.Context, jobID string) (string, error) {
	job, ok := s.registry.Get(jobID)
	if !ok {
		return "", ErrJobNotFound
	}

	if !job.Terminal() {
		s.registry.MarkCancelled(jobID)
		s.logger.WithField(logger.FieldJobID, jobID).Info("Export job cancellation requested")
		return "job is still processing; it will stop at the next content-type boundary and remain in history as failed", nil
	}

	var warning string
	if job.FilePath != "" {
		if err := s.store.Delete(ctx, job.FilePath); err != nil {
			warning = fmt.Sprintf("failed to remove artifact file: %v", err)
			s.logger.WithField(logger.FieldJobID, jobID).WithError(err).Warn("Failed to remove export artifact")
		}
	}

	s.registry.Delete(jobID)

	s.logger.WithField(logger.FieldJobID, jobID).Info("Export job deleted")
	return warning, nil
}
