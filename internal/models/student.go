package models

import "time"

// Student represents an enrolled student. Identity fields are immutable after
// enrollment; the class assignment changes on promotion or transfer. Students
// with dependent grade records are never hard-deleted.
type Student struct {
	ID            string    `db:"id" json:"id"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	FullName      string    `db:"full_name" json:"full_name"`
	RollNumber    string    `db:"roll_number" json:"roll_number"`
	ClassID       string    `db:"class_id" json:"class_id"`
	GuardianEmail string    `db:"guardian_email" json:"guardian_email"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	ClassName string `db:"class_name" json:"class_name,omitempty"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	ClassID  string
	Search   string
	Page     int
	PageSize int
}
