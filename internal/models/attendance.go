package models

import "time"

// AttendanceSummary keeps the per-year absence counters for a student. It is
// independent of subject and upserted alongside grade-sheet edits.
type AttendanceSummary struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	AcademicYear int       `db:"academic_year" json:"academic_year"`
	DaysAbsent   int       `db:"days_absent" json:"days_absent"`
	DaysLate     int       `db:"days_late" json:"days_late"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
