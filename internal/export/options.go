package export

import "github.com/gracehq/chms/internal/domain"

// ContentTypeOption describes one exportable collection for API consumers:
// its exported field list and a rough size hint for UI expectations.
type ContentTypeOption struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Fields   []string `json:"fields"`
	SizeHint string   `json:"size_hint"`
}

// Options is the static export configuration catalog served by the options
// endpoint. It is configuration, not state.
type Options struct {
	ContentTypes []ContentTypeOption `json:"content_types"`
	Formats      []string            `json:"formats"`
	DateRanges   []string            `json:"date_ranges"`
}

// ExportOptions returns the supported content types, formats and filter
// presets.
func ExportOptions() Options {
	return Options{
		ContentTypes: []ContentTypeOption{
			{
				ID:       string(domain.ContentTypeBlogs),
				Label:    "Blog Posts",
				Fields:   []string{"id", "title", "slug", "content", "excerpt", "category", "tags", "author", "cover_image", "status", "published_at", "created_at"},
				SizeHint: "medium",
			},
			{
				ID:       string(domain.ContentTypeSermons),
				Label:    "Sermons",
				Fields:   []string{"id", "title", "description", "category", "scripture", "speaker", "sermon_date", "video_url", "audio_url", "thumbnail_url", "status", "created_at"},
				SizeHint: "medium",
			},
			{
				ID:       string(domain.ContentTypeEvents),
				Label:    "Events",
				Fields:   []string{"id", "title", "description", "location", "start_time", "end_time", "capacity", "cover_image", "status", "created_at"},
				SizeHint: "small",
			},
			{
				ID:       string(domain.ContentTypeUsers),
				Label:    "Members",
				Fields:   []string{"id", "name", "email", "phone", "role", "active", "avatar_url", "joined_at", "created_at"},
				SizeHint: "medium",
			},
			{
				ID:       string(domain.ContentTypeMinistries),
				Label:    "Ministries",
				Fields:   []string{"id", "name", "description", "leader", "meeting_schedule", "cover_image", "active", "created_at"},
				SizeHint: "small",
			},
			{
				ID:       string(domain.ContentTypeAttendance),
				Label:    "Attendance Records",
				Fields:   []string{"id", "member", "service_type", "service_date", "status", "checked_in_by", "created_at"},
				SizeHint: "large",
			},
			{
				ID:       string(domain.ContentTypeContacts),
				Label:    "Contact Submissions",
				Fields:   []string{"id", "name", "email", "phone", "subject", "message", "status", "assigned_to", "replied_at", "created_at"},
				SizeHint: "small",
			},
		},
		Formats: []string{
			string(domain.ExportFormatJSON),
			string(domain.ExportFormatCSV),
			string(domain.ExportFormatXML),
		},
		DateRanges: []string{
			string(domain.DateRangeAll),
			string(domain.DateRange7Days),
			string(domain.DateRange30Days),
			string(domain.DateRange90Days),
			string(domain.DateRangeYear),
			string(domain.DateRangeCustom),
		},
	}
}
