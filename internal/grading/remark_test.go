package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBands(t *testing.T) {
	cases := []struct {
		name  string
		score *float64
		want  Remark
	}{
		{"missing score", nil, RemarkNone},
		{"excellent lower bound", ptr(94), RemarkExcellent},
		{"just under excellent", ptr(93.9), RemarkVeryGood},
		{"very good lower bound", ptr(88), RemarkVeryGood},
		{"good lower bound", ptr(77), RemarkGood},
		{"improvement lower bound", ptr(70), RemarkImprovement},
		{"just under pass mark", ptr(69.99), RemarkFailure},
		{"zero", ptr(0), RemarkFailure},
		{"perfect", ptr(100), RemarkExcellent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.score))
		})
	}
}

func TestClassifyHint(t *testing.T) {
	assert.Equal(t, HintNone, ClassifyHint(nil))
	assert.Equal(t, HintFailing, ClassifyHint(ptr(69.999)))
	assert.Equal(t, HintNormal, ClassifyHint(ptr(70)))
	assert.Equal(t, HintNormal, ClassifyHint(ptr(100)))
}
