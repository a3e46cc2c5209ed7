package grading

import "math"

// Average returns the arithmetic mean of the present values rounded to one
// decimal place. Nil entries are skipped, and a nil result means "no data";
// zero is a legitimate score and is never used as a stand-in for missing input.
func Average(values ...*float64) *float64 {
	var sum float64
	var count int
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		count++
	}
	if count == 0 {
		return nil
	}
	avg := math.Round(sum/float64(count)*10) / 10
	return &avg
}

// Averages holds the derived values for one subject row of a grade sheet.
type Averages struct {
	FirstBlock  *float64 `json:"first_block_avg"`
	FirstSem    *float64 `json:"first_sem_avg"`
	SecondBlock *float64 `json:"second_block_avg"`
	SecondSem   *float64 `json:"second_sem_avg"`
	Final       *float64 `json:"final_avg"`
}

// Compute derives the semester and final averages from the eight raw slots.
// The roll-up is a two-level hierarchical mean: each semester averages its
// three-period block average with the semester exam, and the final average is
// the mean of the two semester averages. Averaging the raw slots directly
// would give different results whenever slots are missing, so the composition
// order here is load-bearing.
func Compute(s Slots) Averages {
	firstBlock := Average(s.Period1, s.Period2, s.Period3)
	firstSem := Average(firstBlock, s.Sem1Exam)
	secondBlock := Average(s.Period4, s.Period5, s.Period6)
	secondSem := Average(secondBlock, s.Sem2Exam)
	return Averages{
		FirstBlock:  firstBlock,
		FirstSem:    firstSem,
		SecondBlock: secondBlock,
		SecondSem:   secondSem,
		Final:       Average(firstSem, secondSem),
	}
}

// Slots carries the eight raw periodic scores for one subject and year.
type Slots struct {
	Period1  *float64
	Period2  *float64
	Period3  *float64
	Sem1Exam *float64
	Period4  *float64
	Period5  *float64
	Period6  *float64
	Sem2Exam *float64
}
