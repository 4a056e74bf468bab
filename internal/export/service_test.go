package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gracehq/chms/internal/domain"
	"github.com/gracehq/chms/internal/logger"
	"github.com/gracehq/chms/internal/storage"
)

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Output: io.Discard, ServiceName: "chms-test"})
}

// stubExtractor serves canned records; gate, when set, blocks Extract until
// the channel is closed so tests can observe a job mid-flight.
type stubExtractor struct {
	records    []Record
	countErr   error
	extractErr error
	gate       chan struct{}
}

func (s *stubExtractor) Count(ctx context.Context, f domain.ExportFilters) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return int64(len(s.records)), nil
}

func (s *stubExtractor) Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error) {
	if s.gate != nil {
		<-s.gate
	}
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	return s.records, nil
}

func makeUsers(n int) []Record {
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, Record{
			"id":    fmt.Sprintf("u%d", i+1),
			"name":  fmt.Sprintf("User %d", i+1),
			"email": fmt.Sprintf("user%d@example.com", i+1),
		})
	}
	return records
}

func newTestService(t *testing.T, extractors map[domain.ContentType]Extractor, cfg *Config) (*Service, *Registry) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}
	if cfg == nil {
		cfg = &Config{Workers: 1, QueueSize: 8}
	}
	reg := NewRegistry()
	svc := NewService(reg, extractors, store, nil, testLogger(), cfg)
	t.Cleanup(svc.Close)
	return svc, reg
}

func waitTerminal(t *testing.T, svc *Service, jobID string) *StatusResponse {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("job %s did not reach a terminal state", jobID)
		default:
		}
		status, err := svc.GetStatus(jobID)
		if err != nil {
			t.Fatalf("unexpected status error: %v", err)
		}
		if status.Status != string(domain.ExportStatusProcessing) {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExportJSONCompletes(t *testing.T) {
	svc, reg := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{records: makeUsers(5)},
	}, nil)

	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"users"},
		Format:       "json",
		Filters:      domain.ExportFilters{DateRange: domain.DateRangeAll},
	}, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EstimatedSeconds != 8 {
		t.Errorf("estimated seconds = %d, want 8", result.EstimatedSeconds)
	}

	status := waitTerminal(t, svc, result.JobID)
	if status.Status != string(domain.ExportStatusCompleted) {
		t.Fatalf("status = %s (%s), want completed", status.Status, status.Error)
	}
	if status.TotalItems != 5 || status.ProcessedItems != 5 {
		t.Errorf("items = %d/%d, want 5/5", status.ProcessedItems, status.TotalItems)
	}
	if status.Progress != 100 {
		t.Errorf("progress = %d, want 100", status.Progress)
	}
	if status.DownloadURL == "" {
		t.Error("expected download URL on a completed job")
	}

	job, _ := reg.Get(result.JobID)
	if job.CreatedBy != "admin-1" {
		t.Errorf("created by = %q, want admin-1", job.CreatedBy)
	}

	reader, name, size, err := svc.Download(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("unexpected download error: %v", err)
	}
	defer reader.Close()
	if !strings.HasSuffix(name, ".json") {
		t.Errorf("artifact name = %q, want a .json file", name)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}
	if int64(len(data)) != size {
		t.Errorf("artifact size = %d, reported %d", len(data), size)
	}

	var decoded map[string][]map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if len(decoded["users"]) != 5 {
		t.Errorf("artifact users = %d, want 5", len(decoded["users"]))
	}
}

func TestExportCSVCompressedArchive(t *testing.T) {
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeBlogs:   &stubExtractor{records: []Record{{"id": "b1", "title": "Welcome"}}},
		domain.ContentTypeSermons: &stubExtractor{records: []Record{{"id": "s1", "title": "Grace"}}},
	}, nil)

	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"blogs", "sermons"},
		Format:       "csv",
		Compress:     true,
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := waitTerminal(t, svc, result.JobID)
	if status.Status != string(domain.ExportStatusCompleted) {
		t.Fatalf("status = %s (%s), want completed", status.Status, status.Error)
	}

	reader, name, size, err := svc.Download(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("unexpected download error: %v", err)
	}
	defer reader.Close()
	if !strings.HasSuffix(name, ".zip") {
		t.Errorf("artifact name = %q, want a .zip file", name)
	}

	data, _ := io.ReadAll(reader)
	zr, err := zip.NewReader(bytes.NewReader(data), size)
	if err != nil {
		t.Fatalf("artifact is not a valid zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive entries = %d, want 2", len(zr.File))
	}
	if zr.File[0].Name != "blogs.csv" || zr.File[1].Name != "sermons.csv" {
		t.Errorf("unexpected entries: %s, %s", zr.File[0].Name, zr.File[1].Name)
	}
}

func TestExportMultiTypeCSVForcesArchive(t *testing.T) {
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeBlogs:   &stubExtractor{records: []Record{{"id": "b1"}}},
		domain.ContentTypeSermons: &stubExtractor{records: []Record{{"id": "s1"}}},
	}, nil)

	// compress not requested, but two CSV payloads must still resolve to
	// a single artifact
	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"blogs", "sermons"},
		Format:       "csv",
		Compress:     false,
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitTerminal(t, svc, result.JobID)
	_, name, _, err := svc.Download(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("unexpected download error: %v", err)
	}
	if !strings.HasSuffix(name, ".zip") {
		t.Errorf("artifact name = %q, want forced .zip", name)
	}
}

func TestExportEmptySelectionCompletes(t *testing.T) {
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{records: nil},
	}, nil)

	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"users"},
		Format:       "json",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := waitTerminal(t, svc, result.JobID)
	if status.Status != string(domain.ExportStatusCompleted) {
		t.Fatalf("status = %s (%s), want completed", status.Status, status.Error)
	}
	if status.TotalItems != 0 || status.Progress != 100 {
		t.Errorf("total = %d, progress = %d; want 0 and 100", status.TotalItems, status.Progress)
	}

	reader, _, _, err := svc.Download(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("empty export must still produce an artifact: %v", err)
	}
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Errorf("empty artifact is not valid JSON: %v", err)
	}
}

func TestExportExtractionFailureFailsJob(t *testing.T) {
	svc, reg := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{records: makeUsers(2)},
		domain.ContentTypeBlogs: &stubExtractor{extractErr: errors.New("content store unreachable")},
	}, nil)

	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"users", "blogs"},
		Format:       "json",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := waitTerminal(t, svc, result.JobID)
	if status.Status != string(domain.ExportStatusFailed) {
		t.Fatalf("status = %s, want failed", status.Status)
	}
	if !strings.Contains(status.Error, "content store unreachable") {
		t.Errorf("error = %q, want the extraction cause", status.Error)
	}
	if status.DownloadURL != "" {
		t.Error("failed job must not advertise a download URL")
	}

	// no partial artifact may be linked from the job record
	job, _ := reg.Get(result.JobID)
	if job.FilePath != "" {
		t.Errorf("failed job has file path %q", job.FilePath)
	}
	if job.CompletedAt == nil {
		t.Error("failed job must record its completion time")
	}

	if _, _, _, err := svc.Download(context.Background(), result.JobID); !errors.Is(err, ErrJobNotReady) {
		t.Errorf("download on failed job = %v, want ErrJobNotReady", err)
	}
}

func TestCreateExportValidation(t *testing.T) {
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{},
	}, nil)

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{name: "empty selection", req: CreateRequest{Format: "json"}},
		{name: "unknown content type", req: CreateRequest{ContentTypes: []string{"podcasts"}, Format: "json"}},
		{name: "unsupported format", req: CreateRequest{ContentTypes: []string{"users"}, Format: "yaml"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateExport(context.Background(), &tc.req, "")
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}

	// nothing may have been registered
	if page := svc.ListHistory(1, 10); page.Total != 0 {
		t.Errorf("history total = %d after rejected requests, want 0", page.Total)
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{}, nil)
	if _, err := svc.GetStatus("does-not-exist"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestDownloadWhileProcessing(t *testing.T) {
	gate := make(chan struct{})
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{records: makeUsers(1), gate: gate},
	}, nil)

	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"users"},
		Format:       "json",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := svc.GetStatus(result.JobID)
	if err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	if status.Status != string(domain.ExportStatusProcessing) {
		t.Fatalf("status = %s, want processing", status.Status)
	}

	if _, _, _, err := svc.Download(context.Background(), result.JobID); !errors.Is(err, ErrJobNotReady) {
		t.Errorf("download while processing = %v, want ErrJobNotReady", err)
	}

	close(gate)
	waitTerminal(t, svc, result.JobID)
}

func TestDeleteExportCleansUp(t *testing.T) {
	svc, reg := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{records: makeUsers(3)},
	}, nil)

	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"users"},
		Format:       "json",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitTerminal(t, svc, result.JobID)

	job, _ := reg.Get(result.JobID)
	if job.FilePath == "" {
		t.Fatal("completed job must have an artifact path")
	}

	warning, err := svc.DeleteExport(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %s", warning)
	}

	if _, err := svc.GetStatus(result.JobID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("status after delete = %v, want ErrJobNotFound", err)
	}
	if _, err := os.Stat(job.FilePath); !os.IsNotExist(err) {
		t.Errorf("artifact still exists after delete: %v", err)
	}
}

func TestDeleteWhileProcessingCancelsJob(t *testing.T) {
	gate := make(chan struct{})
	svc, reg := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{records: makeUsers(3), gate: gate},
	}, nil)

	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"users"},
		Format:       "json",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	warning, err := svc.DeleteExport(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if warning == "" {
		t.Error("deleting a processing job must warn that it is being cancelled")
	}

	// the record survives until the orchestrator acknowledges
	if _, err := svc.GetStatus(result.JobID); err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}

	close(gate)
	status := waitTerminal(t, svc, result.JobID)
	if status.Status != string(domain.ExportStatusFailed) {
		t.Fatalf("status = %s, want failed", status.Status)
	}
	if !strings.Contains(status.Error, "cancelled") {
		t.Errorf("error = %q, want the cancellation cause", status.Error)
	}

	// no artifact may have been produced for a cancelled job
	job, _ := reg.Get(result.JobID)
	if job.FilePath != "" {
		t.Errorf("cancelled job has file path %q", job.FilePath)
	}

	// the failed record deletes normally
	if warning, err := svc.DeleteExport(context.Background(), result.JobID); err != nil || warning != "" {
		t.Fatalf("second delete = %q, %v; want clean removal", warning, err)
	}
	if _, err := svc.GetStatus(result.JobID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("status after delete = %v, want ErrJobNotFound", err)
	}
}

func TestDeleteUnknownJob(t *testing.T) {
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{}, nil)
	if _, err := svc.DeleteExport(context.Background(), "does-not-exist"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestCreateExportQueueFull(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	svc, _ := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{records: makeUsers(1), gate: gate},
	}, &Config{Workers: 1, QueueSize: 1})

	var sawQueueFull bool
	for i := 0; i < 5; i++ {
		_, err := svc.CreateExport(context.Background(), &CreateRequest{
			ContentTypes: []string{"users"},
			Format:       "json",
		}, "")
		if errors.Is(err, ErrQueueFull) {
			sawQueueFull = true
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !sawQueueFull {
		t.Error("expected ErrQueueFull once the worker and queue were saturated")
	}
}

// driftExtractor reports one count and then extracts more records, the way a
// live store can grow between the count pass and extraction.
type driftExtractor struct {
	count   int64
	records []Record
}

func (d *driftExtractor) Count(ctx context.Context, _ domain.ExportFilters) (int64, error) {
	return d.count, nil
}

func (d *driftExtractor) Extract(ctx context.Context, _ domain.ExportFilters, _ bool) ([]Record, error) {
	return d.records, nil
}

func TestProgressStaysWithinBoundsWhenCountsDrift(t *testing.T) {
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &driftExtractor{count: 3, records: makeUsers(5)},
	}, nil)

	result, err := svc.CreateExport(context.Background(), &CreateRequest{
		ContentTypes: []string{"users"},
		Format:       "json",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := waitTerminal(t, svc, result.JobID)
	if status.Status != string(domain.ExportStatusCompleted) {
		t.Fatalf("status = %s (%s), want completed", status.Status, status.Error)
	}
	if status.Progress != 100 {
		t.Errorf("progress = %d, want capped at 100", status.Progress)
	}
	if status.TotalItems != 3 || status.ProcessedItems != 5 {
		t.Errorf("items = %d/%d, want 5/3 recorded as-is", status.ProcessedItems, status.TotalItems)
	}
}

func TestListHistoryNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, map[domain.ContentType]Extractor{
		domain.ContentTypeUsers: &stubExtractor{records: makeUsers(1)},
	}, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		result, err := svc.CreateExport(context.Background(), &CreateRequest{
			ContentTypes: []string{"users"},
			Format:       "json",
		}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, result.JobID)
		waitTerminal(t, svc, result.JobID)
		time.Sleep(5 * time.Millisecond)
	}

	page := svc.ListHistory(1, 10)
	if page.Total != 3 {
		t.Fatalf("total = %d, want 3", page.Total)
	}
	if page.Jobs[0].JobID != ids[2] {
		t.Errorf("first history entry = %s, want most recent %s", page.Jobs[0].JobID, ids[2])
	}
}
