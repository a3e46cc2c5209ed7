package models

import "time"

// AnnouncementAudience narrows who sees an announcement.
type AnnouncementAudience string

const (
	AudienceAll      AnnouncementAudience = "ALL"
	AudienceTeachers AnnouncementAudience = "TEACHERS"
	AudienceStudents AnnouncementAudience = "STUDENTS"
	AudienceParents  AnnouncementAudience = "PARENTS"
)

// Announcement is an admin-published notice shown on role dashboards.
type Announcement struct {
	ID        string               `db:"id" json:"id"`
	Title     string               `db:"title" json:"title"`
	Body      string               `db:"body" json:"body"`
	Audience  AnnouncementAudience `db:"audience" json:"audience"`
	CreatedBy string               `db:"created_by" json:"created_by"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`

	AuthorName string `db:"author_name" json:"author_name,omitempty"`
}

// AudienceForRole maps a viewer role to the audiences it may read.
func AudienceForRole(role UserRole) []AnnouncementAudience {
	switch role {
	case RoleTeacher:
		return []AnnouncementAudience{AudienceAll, AudienceTeachers}
	case RoleStudent:
		return []AnnouncementAudience{AudienceAll, AudienceStudents}
	case RoleParent:
		return []AnnouncementAudience{AudienceAll, AudienceParents}
	default:
		return []AnnouncementAudience{AudienceAll, AudienceTeachers, AudienceStudents, AudienceParents}
	}
}
