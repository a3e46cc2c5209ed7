package grading

// Remark is the qualitative band attached to a score on rendered sheets.
type Remark string

const (
	RemarkNone        Remark = ""
	RemarkExcellent   Remark = "Excellent"
	RemarkVeryGood    Remark = "Very Good"
	RemarkGood        Remark = "Good"
	RemarkImprovement Remark = "Improvement Needed"
	RemarkFailure     Remark = "Below Failure"
)

// Hint is the presentation marker paired with a score.
type Hint string

const (
	HintNone    Hint = ""
	HintNormal  Hint = "normal"
	HintFailing Hint = "failing"
)

// PassMark is the lowest score that is not considered failing.
const PassMark = 70

// Classify maps a score to its remark band. Bands are evaluated top-down and
// are inclusive on their lower bound, so 94 is Excellent and 70 exactly is
// Improvement Needed. A missing score carries no remark.
func Classify(score *float64) Remark {
	switch {
	case score == nil:
		return RemarkNone
	case *score >= 94:
		return RemarkExcellent
	case *score >= 88:
		return RemarkVeryGood
	case *score >= 77:
		return RemarkGood
	case *score >= PassMark:
		return RemarkImprovement
	default:
		return RemarkFailure
	}
}

// ClassifyHint returns the visual marker for a score: failing below the pass
// mark, normal otherwise, none when the score is absent.
func ClassifyHint(score *float64) Hint {
	switch {
	case score == nil:
		return HintNone
	case *score < PassMark:
		return HintFailing
	default:
		return HintNormal
	}
}
