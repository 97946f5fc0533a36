package motivation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(n int) time.Time {
	return time.Date(2026, 7, n, 0, 0, 0, 0, time.UTC)
}

func calibrate(revenues ...int64) State {
	s := NewState("s-1")
	for i, r := range revenues {
		s = s.Advance(day(i+1), r)
	}
	return s
}

func TestAdvance_Calibration(t *testing.T) {
	t.Run("Mid", func(t *testing.T) {
		s := calibrate(50000, 55000, 60000)
		assert.True(t, s.Calibrated)
		assert.Equal(t, LevelMid, s.CurrentLevel)
		assert.Equal(t, 0, s.StreakDays)
	})

	t.Run("Top", func(t *testing.T) {
		s := calibrate(75000, 80000, 85000)
		assert.True(t, s.Calibrated)
		assert.Equal(t, LevelTop, s.CurrentLevel)
	})

	t.Run("IdleDaysDoNotCount", func(t *testing.T) {
		s := calibrate(50000, 0, 55000, 0)
		assert.False(t, s.Calibrated)
		assert.Equal(t, 2, s.CalibrationWorkedDays)
		assert.Equal(t, int64(105000), s.CalibrationRevenueSum)
		assert.Equal(t, LevelNone, s.CurrentLevel)
	})
}

func TestAdvance_Streak(t *testing.T) {
	t.Run("ResetsBelowThreshold", func(t *testing.T) {
		last := day(10)
		s := State{ParticipantID: "s-1", Calibrated: true, CurrentLevel: LevelTop, StreakDays: 3, LastEvalDay: &last}
		next := s.Advance(day(11), 70000)
		assert.Equal(t, 0, next.StreakDays)
		assert.Equal(t, 3, s.StreakDays)
	})

	t.Run("GrowsAboveThreshold", func(t *testing.T) {
		s := calibrate(50000, 55000, 60000)
		s = s.Advance(day(4), 60001)
		s = s.Advance(day(5), 61000)
		assert.Equal(t, 2, s.StreakDays)

		s = s.Advance(day(6), 60000)
		assert.Equal(t, 0, s.StreakDays)
	})

	t.Run("NotWorkingResets", func(t *testing.T) {
		s := calibrate(75000, 80000, 85000).Advance(day(4), 90000)
		assert.Equal(t, 1, s.StreakDays)
		assert.Equal(t, 0, s.Advance(day(5), 0).StreakDays)
	})
}

func TestAdvance_SameDayIsNoop(t *testing.T) {
	s := calibrate(50000)
	again := s.Advance(day(1), 50000)
	assert.Equal(t, s, again)

	earlier := s.Advance(day(1).AddDate(0, 0, -1), 50000)
	assert.Equal(t, s, earlier)
}

func TestLevelForAverage(t *testing.T) {
	assert.Equal(t, LevelNone, LevelForAverage(39999))
	assert.Equal(t, LevelWeak, LevelForAverage(40000))
	assert.Equal(t, LevelMid, LevelForAverage(55000))
	assert.Equal(t, LevelStrong, LevelForAverage(69999))
	assert.Equal(t, LevelTop, LevelForAverage(70000))
	assert.Equal(t, int64(80000), Threshold(LevelTop))
	assert.Equal(t, int64(40000), Threshold(LevelNone))
}
