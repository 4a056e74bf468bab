package domain

import "time"

// ExportStatus represents the lifecycle state of an export job.
// A job starts in ExportStatusProcessing and ends in exactly one of
// ExportStatusCompleted or ExportStatusFailed.
type ExportStatus string

const (
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// ContentType identifies one exportable content collection.
type ContentType string

const (
	ContentTypeBlogs      ContentType = "blogs"
	ContentTypeSermons    ContentType = "sermons"
	ContentTypeEvents     ContentType = "events"
	ContentTypeUsers      ContentType = "users"
	ContentTypeMinistries ContentType = "ministries"
	ContentTypeAttendance ContentType = "attendance"
	ContentTypeContacts   ContentType = "contacts"
)

// ExportFormat is the serialization format of an export artifact.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXML  ExportFormat = "xml"
)

// Extension returns the native file extension for the format.
func (f ExportFormat) Extension() string {
	return "." + string(f)
}

// DateRange is a preset window applied to each collection's date column.
type DateRange string

const (
	DateRangeAll    DateRange = "all"
	DateRange7Days  DateRange = "7days"
	DateRange30Days DateRange = "30days"
	DateRange90Days DateRange = "90days"
	DateRangeYear   DateRange = "year"
	DateRangeCustom DateRange = "custom"
)

// ExportFilters is applied uniformly across the selected content types,
// with per-type specialization (category/speaker only affect sermons and
// blogs, role/active only members and ministries).
type ExportFilters struct {
	DateRange DateRange  `json:"date_range"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Status    string     `json:"status,omitempty"`
	Category  string     `json:"category,omitempty"`
	Speaker   string     `json:"speaker,omitempty"`
	Role      string     `json:"role,omitempty"`
	Active    *bool      `json:"active,omitempty"`
}

// Bounds resolves the date-range preset into concrete window bounds
// relative to now. A nil bound means unbounded on that side.
func (f ExportFilters) Bounds(now time.Time) (*time.Time, *time.Time) {
	switch f.DateRange {
	case DateRange7Days:
		start := now.AddDate(0, 0, -7)
		return &start, nil
	case DateRange30Days:
		start := now.AddDate(0, 0, -30)
		return &start, nil
	case DateRange90Days:
		start := now.AddDate(0, 0, -90)
		return &start, nil
	case DateRangeYear:
		start := now.AddDate(-1, 0, 0)
		return &start, nil
	case DateRangeCustom:
		return f.StartDate, f.EndDate
	default:
		// "all", empty, or anything unrecognized means no window
		return nil, nil
	}
}

// ExportJob is the full lifecycle record of one export request.
// It lives in the job registry for the process lifetime; the orchestrator
// running the job is the only writer after creation.
type ExportJob struct {
	ID             string        `json:"id"`
	ContentTypes   []ContentType `json:"content_types"`
	Format         ExportFormat  `json:"format"`
	Filters        ExportFilters `json:"filters"`
	IncludeMedia   bool          `json:"include_media"`
	Compress       bool          `json:"compress"`
	FileName       string        `json:"file_name"`
	Status         ExportStatus  `json:"status"`
	Progress       int           `json:"progress"`
	TotalItems     int           `json:"total_items"`
	ProcessedItems int           `json:"processed_items"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	CreatedBy      string        `json:"created_by,omitempty"`
	FilePath       string        `json:"file_path,omitempty"`
	FileSize       int64         `json:"file_size,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *ExportJob) Terminal() bool {
	return j.Status == ExportStatusCompleted || j.Status == ExportStatusFailed
}
