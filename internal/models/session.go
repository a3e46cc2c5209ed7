package models

import "time"

// Session is the per-browser-session record kept in Redis. It is the only
// cross-request mutable state the portal maintains.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Actor is the request-scoped identity handed to every service call. It is
// resolved once by the session middleware and carries the role-specific
// identifiers visibility checks key on.
type Actor struct {
	UserID    string
	Email     string
	Role      UserRole
	TeacherID string // teacher profile id, empty for orphaned teacher accounts
	StudentID string // student record id when the account belongs to a student
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsTeacher reports whether the actor holds the teacher role.
func (a Actor) IsTeacher() bool { return a.Role == RoleTeacher }
