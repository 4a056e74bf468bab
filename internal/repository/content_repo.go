package repository

import (
	"context"
	"time"

	"github.com/gracehq/chms/internal/domain"
	"gorm.io/gorm"
)

// ContentRepository is the read-only query surface the export pipeline uses
// to pull content collections. Each collection gets a Count/List pair sharing
// the same filter scope, so counting and extraction always agree.
type ContentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// scoped applies the date-range window. Every collection is windowed on its
// creation timestamp, so a "last 30 days" export means the same thing across
// all selected content types.
func (r *ContentRepository) scoped(ctx context.Context, model interface{}, f domain.ExportFilters) *gorm.DB {
	q := r.db.WithContext(ctx).Model(model)
	start, end := f.Bounds(time.Now())
	if start != nil {
		q = q.Where("created_at >= ?", *start)
	}
	if end != nil {
		q = q.Where("created_at <= ?", *end)
	}
	return q
}

func (r *ContentRepository) blogQuery(ctx context.Context, f domain.ExportFilters) *gorm.DB {
	q := r.scoped(ctx, &domain.Blog{}, f)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	return q
}

// CountBlogs counts blog posts matching the export filters.
func (r *ContentRepository) CountBlogs(ctx context.Context, f domain.ExportFilters) (int64, error) {
	var count int64
	err := r.blogQuery(ctx, f).Count(&count).Error
	return count, err
}

// ListBlogs retrieves blog posts matching the export filters, oldest first,
// with the author reference preloaded.
func (r *ContentRepository) ListBlogs(ctx context.Context, f domain.ExportFilters) ([]domain.Blog, error) {
	var blogs []domain.Blog
	err := r.blogQuery(ctx, f).Preload("Author").Order("created_at ASC").Find(&blogs).Error
	return blogs, err
}

func (r *ContentRepository) sermonQuery(ctx context.Context, f domain.ExportFilters) *gorm.DB {
	q := r.scoped(ctx, &domain.Sermon{}, f)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Speaker != "" {
		q = q.Joins("Speaker").Where(`"Speaker"."name" = ?`, f.Speaker)
	}
	return q
}

// CountSermons counts sermons matching the export filters.
func (r *ContentRepository) CountSermons(ctx context.Context, f domain.ExportFilters) (int64, error) {
	var count int64
	err := r.sermonQuery(ctx, f).Count(&count).Error
	return count, err
}

// ListSermons retrieves sermons matching the export filters, oldest first,
// with the speaker reference preloaded.
func (r *ContentRepository) ListSermons(ctx context.Context, f domain.ExportFilters) ([]domain.Sermon, error) {
	var sermons []domain.Sermon
	err := r.sermonQuery(ctx, f).Preload("Speaker").Order("sermon_date ASC").Find(&sermons).Error
	return sermons, err
}

func (r *ContentRepository) eventQuery(ctx context.Context, f domain.ExportFilters) *gorm.DB {
	q := r.scoped(ctx, &domain.Event{}, f)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CountEvents counts events matching the export filters.
func (r *ContentRepository) CountEvents(ctx context.Context, f domain.ExportFilters) (int64, error) {
	var count int64
	err := r.eventQuery(ctx, f).Count(&count).Error
	return count, err
}

// ListEvents retrieves events matching the export filters, oldest first.
func (r *ContentRepository) ListEvents(ctx context.Context, f domain.ExportFilters) ([]domain.Event, error) {
	var events []domain.Event
	err := r.eventQuery(ctx, f).Order("start_time ASC").Find(&events).Error
	return events, err
}

func (r *ContentRepository) memberQuery(ctx context.Context, f domain.ExportFilters) *gorm.DB {
	q := r.scoped(ctx, &domain.Member{}, f)
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	return q
}

// CountMembers counts members matching the export filters.
func (r *ContentRepository) CountMembers(ctx context.Context, f domain.ExportFilters) (int64, error) {
	var count int64
	err := r.memberQuery(ctx, f).Count(&count).Error
	return count, err
}

// ListMembers retrieves members matching the export filters, oldest first.
func (r *ContentRepository) ListMembers(ctx context.Context, f domain.ExportFilters) ([]domain.Member, error) {
	var members []domain.Member
	err := r.memberQuery(ctx, f).Order("created_at ASC").Find(&members).Error
	return members, err
}

func (r *ContentRepository) ministryQuery(ctx context.Context, f domain.ExportFilters) *gorm.DB {
	q := r.scoped(ctx, &domain.Ministry{}, f)
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	return q
}

// CountMinistries counts ministries matching the export filters.
func (r *ContentRepository) CountMinistries(ctx context.Context, f domain.ExportFilters) (int64, error) {
	var count int64
	err := r.ministryQuery(ctx, f).Count(&count).Error
	return count, err
}

// ListMinistries retrieves ministries matching the export filters, oldest
// first, with the leader reference preloaded.
func (r *ContentRepository) ListMinistries(ctx context.Context, f domain.ExportFilters) ([]domain.Ministry, error) {
	var ministries []domain.Ministry
	err := r.ministryQuery(ctx, f).Preload("Leader").Order("created_at ASC").Find(&ministries).Error
	return ministries, err
}

func (r *ContentRepository) attendanceQuery(ctx context.Context, f domain.ExportFilters) *gorm.DB {
	q := r.scoped(ctx, &domain.AttendanceRecord{}, f)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CountAttendance counts attendance records matching the export filters.
func (r *ContentRepository) CountAttendance(ctx context.Context, f domain.ExportFilters) (int64, error) {
	var count int64
	err := r.attendanceQuery(ctx, f).Count(&count).Error
	return count, err
}

// ListAttendance retrieves attendance records matching the export filters,
// oldest first, with the member reference preloaded.
func (r *ContentRepository) ListAttendance(ctx context.Context, f domain.ExportFilters) ([]domain.AttendanceRecord, error) {
	var records []domain.AttendanceRecord
	err := r.attendanceQuery(ctx, f).Preload("Member").Order("service_date ASC").Find(&records).Error
	return records, err
}

func (r *ContentRepository) contactQuery(ctx context.Context, f domain.ExportFilters) *gorm.DB {
	q := r.scoped(ctx, &domain.Contact{}, f)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CountContacts counts contact submissions matching the export filters.
func (r *ContentRepository) CountContacts(ctx context.Context, f domain.ExportFilters) (int64, error) {
	var count int64
	err := r.contactQuery(ctx, f).Count(&count).Error
	return count, err
}

// ListContacts retrieves contact submissions matching the export filters,
// oldest first, with the assignee reference preloaded.
func (r *ContentRepository) ListContacts(ctx context.Context, f domain.ExportFilters) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := r.contactQuery(ctx, f).Preload("AssignedTo").Order("created_at ASC").Find(&contacts).Error
	return contacts, err
}
