// Package motivation tracks the per-participant calibration level and streak.
package motivation

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Level is the baseline performance tier assigned by calibration
type Level string

const (
	LevelNone   Level = "NONE"
	LevelWeak   Level = "WEAK"
	LevelMid    Level = "MID"
	LevelStrong Level = "STRONG"
	LevelTop    Level = "TOP"
)

// CalibrationDays is the number of worked days averaged to assign a level
const CalibrationDays = 3

// Threshold is the daily revenue a participant must exceed to extend a streak
func Threshold(level Level) int64 {
	switch level {
	case LevelWeak:
		return 50000
	case LevelMid:
		return 60000
	case LevelStrong:
		return 70000
	case LevelTop:
		return 80000
	default:
		return 40000
	}
}

// LevelForAverage maps an average daily revenue onto a level
func LevelForAverage(avg int64) Level {
	switch {
	case avg < 40000:
		return LevelNone
	case avg < 50000:
		return LevelWeak
	case avg < 60000:
		return LevelMid
	case avg < 70000:
		return LevelStrong
	default:
		return LevelTop
	}
}

// State is the mutable motivation row of one participant
type State struct {
	ParticipantID         string     `json:"participant_id"`
	Calibrated            bool       `json:"calibrated"`
	CalibrationWorkedDays int        `json:"calibration_worked_days"`
	CalibrationRevenueSum int64      `json:"calibration_revenue_sum"`
	CurrentLevel          Level      `json:"current_level"`
	StreakDays            int        `json:"streak_days"`
	LastEvalDay           *time.Time `json:"last_eval_day,omitempty"`
}

// NewState returns the initial, uncalibrated state
func NewState(participantID string) State {
	return State{ParticipantID: participantID, CurrentLevel: LevelNone}
}

// Advance evaluates one business day and returns the next state.
// Days at or before LastEvalDay leave the state untouched.
func (s State) Advance(day time.Time, revenue int64) State {
	if s.LastEvalDay != nil && !day.After(*s.LastEvalDay) {
		return s
	}

	next := s
	evaluated := day
	next.LastEvalDay = &evaluated
	if next.CurrentLevel == "" {
		next.CurrentLevel = LevelNone
	}

	if !s.Calibrated {
		if revenue > 0 {
			next.CalibrationWorkedDays++
			next.CalibrationRevenueSum += revenue
			if next.CalibrationWorkedDays >= CalibrationDays {
				next.CurrentLevel = LevelForAverage(next.CalibrationRevenueSum / int64(next.CalibrationWorkedDays))
				next.Calibrated = true
				next.StreakDays = 0
			}
		}
		return next
	}

	if revenue > Threshold(next.CurrentLevel) {
		next.StreakDays++
	} else {
		next.StreakDays = 0
	}
	return next
}

// Repository persists motivation states
type Repository interface {
	GetAll(ctx context.Context) (map[string]State, error)
	Save(ctx context.Context, states []State) error
	WithTx(tx pgx.Tx) Repository
}
