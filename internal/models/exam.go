package models

import "time"

// ExamType enumerates the ad hoc assessment kinds.
type ExamType string

const (
	ExamTypeTest       ExamType = "test"
	ExamTypeFinal      ExamType = "final"
	ExamTypeQuiz       ExamType = "quiz"
	ExamTypeAssignment ExamType = "assignment"
)

// Exam is an ad hoc assessment scoped to a class and subject, separate from
// the periodic grade mechanism.
type Exam struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Type         ExamType  `db:"exam_type" json:"type"`
	ClassID      string    `db:"class_id" json:"class_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	ExamDate     time.Time `db:"exam_date" json:"exam_date"`
	TotalMarks   float64   `db:"total_marks" json:"total_marks"`
	PassingMarks float64   `db:"passing_marks" json:"passing_marks"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	ClassName   string `db:"class_name" json:"class_name,omitempty"`
	SubjectName string `db:"subject_name" json:"subject_name,omitempty"`
}

// ExamGrade is one student's result for an exam, unique per (student, exam).
// Each mark-entry submission fully replaces the grade set for the exam.
type ExamGrade struct {
	ID            string    `db:"id" json:"id"`
	ExamID        string    `db:"exam_id" json:"exam_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	MarksObtained float64   `db:"marks_obtained" json:"marks_obtained"`
	Remarks       *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	StudentName string `db:"student_name" json:"student_name,omitempty"`
	RollNumber  string `db:"roll_number" json:"roll_number,omitempty"`
}

// ExamFilter scopes exam listings.
type ExamFilter struct {
	ClassID   string
	SubjectID string
	Type      string
	Page      int
	PageSize  int
}
