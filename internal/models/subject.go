package models

import "time"

// Subject is a taught discipline identified by a unique code.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassSubjectAssignment is the ternary curriculum relation: a subject taught
// in a class, optionally by a designated teacher. At most one row exists per
// (class, subject) pair; re-assignment replaces the whole set for the class.
type ClassSubjectAssignment struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	SubjectName string  `db:"subject_name" json:"subject_name,omitempty"`
	SubjectCode string  `db:"subject_code" json:"subject_code,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
