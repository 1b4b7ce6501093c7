package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		ratio float64
		want  Segment
	}{
		{0, Komuter},
		{7.5, Komuter},
		{15.0, Komuter},
		{15.0001, Transisi},
		{29.9999, Transisi},
		{30.0, Transisi},
		{30.0001, Rekreasi},
		{66.7, Rekreasi},
		{100, Rekreasi},
		{-3, Komuter},
		{140, Rekreasi},
		{math.NaN(), Unclassified},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestClassifyIsPure(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, Transisi, Classify(22.2))
	}
}

func TestCasualRatio(t *testing.T) {
	ratio, ok := CasualRatio(10, 100)
	assert.True(t, ok)
	assert.InDelta(t, 10.0, ratio, 1e-9)

	ratio, ok = CasualRatio(20, 30)
	assert.True(t, ok)
	assert.InDelta(t, 66.6667, ratio, 1e-4)

	ratio, ok = CasualRatio(0, 0)
	assert.False(t, ok)
	assert.True(t, math.IsNaN(ratio))
	assert.Equal(t, Unclassified, Classify(ratio))
}

func TestScenarioFromThreeDays(t *testing.T) {
	days := []struct{ casual, registered int }{
		{10, 90},
		{40, 60},
		{20, 10},
	}
	var got []Segment
	for _, d := range days {
		ratio, ok := CasualRatio(d.casual, d.casual+d.registered)
		assert.True(t, ok)
		got = append(got, Classify(ratio))
	}
	assert.Equal(t, []Segment{Komuter, Rekreasi, Rekreasi}, got)
}

func TestClamp(t *testing.T) {
	v, clamped := Clamp(-0.5)
	assert.True(t, clamped)
	assert.Equal(t, 0.0, v)

	v, clamped = Clamp(100.5)
	assert.True(t, clamped)
	assert.Equal(t, 100.0, v)

	v, clamped = Clamp(42)
	assert.False(t, clamped)
	assert.Equal(t, 42.0, v)
}

func TestParseAndString(t *testing.T) {
	s, ok := Parse("Transisi")
	assert.True(t, ok)
	assert.Equal(t, Transisi, s)

	_, ok = Parse("Komuters")
	assert.False(t, ok)

	assert.Equal(t, "Unclassified", Unclassified.String())
	assert.Equal(t, "Rekreasi", Rekreasi.String())
	assert.Equal(t, []Segment{Komuter, Transisi, Rekreasi}, Order)
}
