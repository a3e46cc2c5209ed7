package models

import (
	"time"

	"github.com/palava-labs/school-portal-api/internal/grading"
)

// PeriodicGradeRecord stores the eight raw score slots for one student,
// subject and academic year: three grading periods plus the exam for each
// semester. Every slot is nullable; a NULL slot is "no data", which is
// distinct from a legitimate score of zero. Records are created on first
// entry and only ever overwritten via upsert.
type PeriodicGradeRecord struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	AcademicYear int       `db:"academic_year" json:"academic_year"`
	Period1      *float64  `db:"period_1" json:"first_period"`
	Period2      *float64  `db:"period_2" json:"second_period"`
	Period3      *float64  `db:"period_3" json:"third_period"`
	Sem1Exam     *float64  `db:"sem_1_exam" json:"first_sem_exam"`
	Period4      *float64  `db:"period_4" json:"fourth_period"`
	Period5      *float64  `db:"period_5" json:"fifth_period"`
	Period6      *float64  `db:"period_6" json:"sixth_period"`
	Sem2Exam     *float64  `db:"sem_2_exam" json:"second_sem_exam"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Slots copies the raw score slots into the calculator input shape.
func (r *PeriodicGradeRecord) Slots() grading.Slots {
	return grading.Slots{
		Period1:  r.Period1,
		Period2:  r.Period2,
		Period3:  r.Period3,
		Sem1Exam: r.Sem1Exam,
		Period4:  r.Period4,
		Period5:  r.Period5,
		Period6:  r.Period6,
		Sem2Exam: r.Sem2Exam,
	}
}

// SheetCell is one rendered score slot with its remark and presentation hint.
type SheetCell struct {
	Score  *float64       `json:"score"`
	Remark grading.Remark `json:"remark"`
	Hint   grading.Hint   `json:"hint"`
	Locked bool           `json:"locked"`
}

// SheetRow is one subject row of an assembled grade sheet: the eight raw
// slots, the five derived averages, and per-cell classification.
type SheetRow struct {
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	SubjectCode string `json:"subject_code"`

	Period1  SheetCell `json:"first_period"`
	Period2  SheetCell `json:"second_period"`
	Period3  SheetCell `json:"third_period"`
	Sem1Exam SheetCell `json:"first_sem_exam"`
	Period4  SheetCell `json:"fourth_period"`
	Period5  SheetCell `json:"fifth_period"`
	Period6  SheetCell `json:"sixth_period"`
	Sem2Exam SheetCell `json:"second_sem_exam"`

	FirstBlockAvg  SheetCell `json:"first_block_avg"`
	FirstSemAvg    SheetCell `json:"first_sem_avg"`
	SecondBlockAvg SheetCell `json:"second_block_avg"`
	SecondSemAvg   SheetCell `json:"second_sem_avg"`
	FinalAvg       SheetCell `json:"final_avg"`
}

// SheetView is the full per-student report: one row per visible subject plus
// the year's attendance counters.
type SheetView struct {
	StudentID    string     `json:"student_id"`
	StudentName  string     `json:"student_name"`
	ClassID      string     `json:"class_id"`
	ClassName    string     `json:"class_name"`
	AcademicYear int        `json:"academic_year"`
	Rows         []SheetRow `json:"rows"`
	DaysAbsent   int        `json:"days_absent"`
	DaysLate     int        `json:"days_late"`
}
