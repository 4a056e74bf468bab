package export

import (
	"context"
	"time"

	"github.com/gracehq/chms/internal/domain"
	"github.com/gracehq/chms/internal/repository"
)

// Record is one exported row in its projected shape. Keys are the exported
// field names; values are plain strings/numbers/bools or a nested reference
// map produced by memberRef.
type Record map[string]interface{}

// Extractor pulls one content collection out of the store. Extraction has
// no side effects and is safe to repeat.
type Extractor interface {
	// Count returns the number of records matching the filters.
	Count(ctx context.Context, f domain.ExportFilters) (int64, error)

	// Extract returns the matching records in a stable order. When
	// includeMedia is false, binary/attachment-bearing fields are omitted
	// from the record shape.
	Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error)
}

// NewExtractorTable builds the registered capability table mapping each
// content type to its extractor. The orchestrator dispatches through this
// table and stays free of per-type conditionals; adding a content type is a
// registration here, not a change to the export loop.
func NewExtractorTable(repo *repository.ContentRepository) map[domain.ContentType]Extractor {
	return map[domain.ContentType]Extractor{
		domain.ContentTypeBlogs:      &blogExtractor{repo: repo},
		domain.ContentTypeSermons:    &sermonExtractor{repo: repo},
		domain.ContentTypeEvents:     &eventExtractor{repo: repo},
		domain.ContentTypeUsers:      &memberExtractor{repo: repo},
		domain.ContentTypeMinistries: &ministryExtractor{repo: repo},
		domain.ContentTypeAttendance: &attendanceExtractor{repo: repo},
		domain.ContentTypeContacts:   &contactExtractor{repo: repo},
	}
}

// memberRef projects a referenced member down to a display-safe subset.
func memberRef(m *domain.Member) interface{} {
	if m == nil {
		return nil
	}
	return map[string]interface{}{
		"name":  m.Name,
		"email": m.Email,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

type blogExtractor struct {
	repo *repository.ContentRepository
}

func (e *blogExtractor) Count(ctx context.Context, f domain.ExportFilters) (int64, error) {
	return e.repo.CountBlogs(ctx, f)
}

func (e *blogExtractor) Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error) {
	blogs, err := e.repo.ListBlogs(ctx, f)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(blogs))
	for _, b := range blogs {
		rec := Record{
			"id":           b.ID,
			"title":        b.Title,
			"slug":         b.Slug,
			"content":      b.Content,
			"excerpt":      b.Excerpt,
			"category":     b.Category,
			"tags":         []string(b.Tags),
			"author":       memberRef(b.Author),
			"status":       b.Status,
			"published_at": formatTimePtr(b.PublishedAt),
			"created_at":   formatTime(b.CreatedAt),
		}
		if includeMedia {
			rec["cover_image"] = b.CoverImage
		}
		records = append(records, rec)
	}
	return records, nil
}

type sermonExtractor struct {
	repo *repository.ContentRepository
}

func (e *sermonExtractor) Count(ctx context.Context, f domain.ExportFilters) (int64, error) {
	return e.repo.CountSermons(ctx, f)
}

func (e *sermonExtractor) Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error) {
	sermons, err := e.repo.ListSermons(ctx, f)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(sermons))
	for _, s := range sermons {
		rec := Record{
			"id":          s.ID,
			"title":       s.Title,
			"description": s.Description,
			"category":    s.Category,
			"scripture":   []string(s.Scripture),
			"speaker":     memberRef(s.Speaker),
			"sermon_date": formatTime(s.SermonDate),
			"status":      s.Status,
			"created_at":  formatTime(s.CreatedAt),
		}
		if includeMedia {
			rec["video_url"] = s.VideoURL
			rec["audio_url"] = s.AudioURL
			rec["thumbnail_url"] = s.ThumbnailURL
		}
		records = append(records, rec)
	}
	return records, nil
}

type eventExtractor struct {
	repo *repository.ContentRepository
}

func (e *eventExtractor) Count(ctx context.Context, f domain.ExportFilters) (int64, error) {
	return e.repo.CountEvents(ctx, f)
}

func (e *eventExtractor) Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error) {
	events, err := e.repo.ListEvents(ctx, f)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(events))
	for _, ev := range events {
		rec := Record{
			"id":          ev.ID,
			"title":       ev.Title,
			"description": ev.Description,
			"location":    ev.Location,
			"start_time":  formatTime(ev.StartTime),
			"end_time":    formatTime(ev.EndTime),
			"capacity":    ev.Capacity,
			"status":      ev.Status,
			"created_at":  formatTime(ev.CreatedAt),
		}
		if includeMedia {
			rec["cover_image"] = ev.CoverImage
		}
		records = append(records, rec)
	}
	return records, nil
}

type memberExtractor struct {
	repo *repository.ContentRepository
}

func (e *memberExtractor) Count(ctx context.Context, f domain.ExportFilters) (int64, error) {
	return e.repo.CountMembers(ctx, f)
}

func (e *memberExtractor) Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error) {
	members, err := e.repo.ListMembers(ctx, f)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(members))
	for _, m := range members {
		rec := Record{
			"id":         m.ID,
			"name":       m.Name,
			"email":      m.Email,
			"phone":      m.Phone,
			"role":       m.Role,
			"active":     m.Active,
			"joined_at":  formatTimePtr(m.JoinedAt),
			"created_at": formatTime(m.CreatedAt),
		}
		if includeMedia {
			rec["avatar_url"] = m.AvatarURL
		}
		records = append(records, rec)
	}
	return records, nil
}

type ministryExtractor struct {
	repo *repository.ContentRepository
}

func (e *ministryExtractor) Count(ctx context.Context, f domain.ExportFilters) (int64, error) {
	return e.repo.CountMinistries(ctx, f)
}

func (e *ministryExtractor) Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error) {
	ministries, err := e.repo.ListMinistries(ctx, f)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(ministries))
	for _, m := range ministries {
		rec := Record{
			"id":               m.ID,
			"name":             m.Name,
			"description":      m.Description,
			"leader":           memberRef(m.Leader),
			"meeting_schedule": m.MeetingSchedule,
			"active":           m.Active,
			"created_at":       formatTime(m.CreatedAt),
		}
		if includeMedia {
			rec["cover_image"] = m.CoverImage
		}
		records = append(records, rec)
	}
	return records, nil
}

type attendanceExtractor struct {
	repo *repository.ContentRepository
}

func (e *attendanceExtractor) Count(ctx context.Context, f domain.ExportFilters) (int64, error) {
	return e.repo.CountAttendance(ctx, f)
}

func (e *attendanceExtractor) Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error) {
	entries, err := e.repo.ListAttendance(ctx, f)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(entries))
	for _, a := range entries {
		records = append(records, Record{
			"id":            a.ID,
			"member":        memberRef(a.Member),
			"service_type":  a.ServiceType,
			"service_date":  formatTime(a.ServiceDate),
			"status":        a.Status,
			"checked_in_by": a.CheckedInBy,
			"created_at":    formatTime(a.CreatedAt),
		})
	}
	return records, nil
}

type contactExtractor struct {
	repo *repository.ContentRepository
}

func (e *contactExtractor) Count(ctx context.Context, f domain.ExportFilters) (int64, error) {
	return e.repo.CountContacts(ctx, f)
}

func (e *contactExtractor) Extract(ctx context.Context, f domain.ExportFilters, includeMedia bool) ([]Record, error) {
	contacts, err := e.repo.ListContacts(ctx, f)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(contacts))
	for _, c := range contacts {
		records = append(records, Record{
			"id":          c.ID,
			"name":        c.Name,
			"email":       c.Email,
			"phone":       c.Phone,
			"subject":     c.Subject,
			"message":     c.Message,
			"status":      c.Status,
			"assigned_to": memberRef(c.AssignedTo),
			"replied_at":  formatTimePtr(c.RepliedAt),
			"created_at":  formatTime(c.CreatedAt),
		})
	}
	return records, nil
}
