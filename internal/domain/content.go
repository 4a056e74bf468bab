package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Member represents a registered member of the community. Exported under
// the "users" content type.
type Member struct {
	ID        string     `gorm:"type:text;primaryKey" json:"id"`
	Name      string     `gorm:"type:text;not null" json:"name"`
	Email     string     `gorm:"type:text;uniqueIndex:idx_members_email" json:"email"`
	Phone     string     `gorm:"type:text" json:"phone,omitempty"`
	Role      string     `gorm:"type:text;index:idx_members_role;default:member" json:"role"`
	Active    bool       `gorm:"default:true" json:"active"`
	AvatarURL string     `gorm:"type:text" json:"avatar_url,omitempty"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

// Blog represents a blog post.
type Blog struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	Title       string      `gorm:"type:text;not null" json:"title"`
	Slug        string      `gorm:"type:text;uniqueIndex:idx_blogs_slug" json:"slug"`
	Content     string      `gorm:"type:text" json:"content"`
	Excerpt     string      `gorm:"type:text" json:"excerpt,omitempty"`
	Category    string      `gorm:"type:text;index:idx_blogs_category" json:"category"`
	Tags        StringArray `gorm:"type:text" json:"tags"`
	AuthorID    string      `gorm:"type:text;index" json:"author_id"`
	Author      *Member     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CoverImage  string      `gorm:"type:text" json:"cover_image,omitempty"`
	Status      string      `gorm:"type:text;index:idx_blogs_status;default:published" json:"status"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Blog) TableName() string {
	return "blogs"
}

// Sermon represents a recorded or scheduled sermon.
type Sermon struct {
	ID           string      `gorm:"type:text;primaryKey" json:"id"`
	Title        string      `gorm:"type:text;not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description,omitempty"`
	Category     string      `gorm:"type:text;index:idx_sermons_category" json:"category"`
	Scripture    StringArray `gorm:"type:text" json:"scripture"`
	SpeakerID    string      `gorm:"type:text;index" json:"speaker_id"`
	Speaker      *Member     `gorm:"foreignKey:SpeakerID" json:"speaker,omitempty"`
	SermonDate   time.Time   `gorm:"index:idx_sermons_date" json:"sermon_date"`
	VideoURL     string      `gorm:"type:text" json:"video_url,omitempty"`
	AudioURL     string      `gorm:"type:text" json:"audio_url,omitempty"`
	ThumbnailURL string      `gorm:"type:text" json:"thumbnail_url,omitempty"`
	Status       string      `gorm:"type:text;index:idx_sermons_status;default:published" json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (Sermon) TableName() string {
	return "sermons"
}

// Event represents a scheduled community event.
type Event struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Location    string    `gorm:"type:text" json:"location,omitempty"`
	StartTime   time.Time `gorm:"index:idx_events_start" json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Capacity    int       `gorm:"default:0" json:"capacity"`
	CoverImage  string    `gorm:"type:text" json:"cover_image,omitempty"`
	Status      string    `gorm:"type:text;index:idx_events_status;default:upcoming" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

// Ministry represents a ministry or serving team.
type Ministry struct {
	ID              string    `gorm:"type:text;primaryKey" json:"id"`
	Name            string    `gorm:"type:text;not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	LeaderID        string    `gorm:"type:text;index" json:"leader_id"`
	Leader          *Member   `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	MeetingSchedule string    `gorm:"type:text" json:"meeting_schedule,omitempty"`
	CoverImage      string    `gorm:"type:text" json:"cover_image,omitempty"`
	Active          bool      `gorm:"default:true" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Ministry) TableName() string {
	return "ministries"
}

// AttendanceRecord represents one member's attendance at a service or event.
type AttendanceRecord struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	MemberID    string    `gorm:"type:text;index" json:"member_id"`
	Member      *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	ServiceType string    `gorm:"type:text;index:idx_attendance_service" json:"service_type"`
	ServiceDate time.Time `gorm:"index:idx_attendance_date" json:"service_date"`
	Status      string    `gorm:"type:text;default:present" json:"status"`
	CheckedInBy string    `gorm:"type:text" json:"checked_in_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// Contact represents a contact-form submission or prayer request.
type Contact struct {
	ID           string     `gorm:"type:text;primaryKey" json:"id"`
	Name         string     `gorm:"type:text;not null" json:"name"`
	Email        string     `gorm:"type:text" json:"email,omitempty"`
	Phone        string     `gorm:"type:text" json:"phone,omitempty"`
	Subject      string     `gorm:"type:text" json:"subject,omitempty"`
	Message      string     `gorm:"type:text" json:"message"`
	Status       string     `gorm:"type:text;index:idx_contacts_status;default:new" json:"status"`
	AssignedToID string     `gorm:"type:text;index" json:"assigned_to_id,omitempty"`
	AssignedTo   *Member    `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	RepliedAt    *time.Time `json:"replied_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
