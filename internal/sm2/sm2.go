package sm2

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInput is returned when a quality rating or a review state is out of range.
var ErrInvalidInput = errors.New("sm2: invalid input")

// Quality is the learner's 0-5 self-assessment of recall.
type Quality int

const (
	MinQuality Quality = 0
	MaxQuality Quality = 5
)

// MaxIntervalDays is the longest interval the scheduler will hand out.
const MaxIntervalDays = math.MaxInt32

const (
	DefaultPassingGrade      = 3
	DefaultMinEaseFactor     = 1.3
	DefaultInitialEaseFactor = 2.5
)

// Params holds the tunables of the SM-2 variant.
type Params struct {
	PassingGrade      int     // ratings at or above this count as remembered
	MinEaseFactor     float64 // floor applied to every recomputed ease factor
	InitialEaseFactor float64 // ease factor given to new cards
}

// DefaultParams returns the classic SM-2 settings.
func DefaultParams() *Params {
	return &Params{
		PassingGrade:      DefaultPassingGrade,
		MinEaseFactor:     DefaultMinEaseFactor,
		InitialEaseFactor: DefaultInitialEaseFactor,
	}
}

// ReviewState holds the scheduling state of a card.
type ReviewState struct {
	IntervalDays int
	Repetitions  int
	EaseFactor   float64
	NextReviewAt time.Time
}

// NewState returns the state of a card that has never been reviewed. It is due at now.
func (p *Params) NewState(now time.Time) ReviewState {
	return ReviewState{
		IntervalDays: 1,
		Repetitions:  0,
		EaseFactor:   p.InitialEaseFactor,
		NextReviewAt: now,
	}
}

// NewState returns a fresh state using the default parameters.
func NewState(now time.Time) ReviewState {
	return DefaultParams().NewState(now)
}

// Validate reports whether the state can be fed to the scheduler.
func (s ReviewState) Validate() error {
	return s.validate(DefaultMinEaseFactor)
}

func (s ReviewState) validate(minEase float64) error {
	if s.IntervalDays < 1 || s.IntervalDays > MaxIntervalDays {
		return fmt.Errorf("%w: interval %d days outside [1, %d]", ErrInvalidInput, s.IntervalDays, MaxIntervalDays)
	}
	if s.Repetitions < 0 {
		return fmt.Errorf("%w: repetitions %d must not be negative", ErrInvalidInput, s.Repetitions)
	}
	if math.IsNaN(s.EaseFactor) || s.EaseFactor < minEase {
		return fmt.Errorf("%w: ease factor %.2f is below %.2f", ErrInvalidInput, s.EaseFactor, minEase)
	}
	return nil
}

// Due reports whether the card should be shown at now.
func (s ReviewState) Due(now time.Time) bool {
	return !s.NextReviewAt.After(now)
}

// Passed reports whether quality counts as a successful recall.
func (p *Params) Passed(quality Quality) bool {
	return int(quality) >= p.PassingGrade
}

// NextState calculates the state that follows a review graded with quality at now.
//
// The ease factor is recomputed on every review, failed ones included. A failed
// review resets repetitions to zero and the interval to one day.
func (p *Params) NextState(state ReviewState, quality Quality, now time.Time) (ReviewState, error) {
	if quality < MinQuality || quality > MaxQuality {
		return ReviewState{}, fmt.Errorf("%w: quality %d outside [%d, %d]", ErrInvalidInput, quality, MinQuality, MaxQuality)
	}
	if err := state.validate(p.MinEaseFactor); err != nil {
		return ReviewState{}, err
	}

	ease := p.nextEaseFactor(state.EaseFactor, quality)

	next := ReviewState{EaseFactor: ease}
	if !p.Passed(quality) {
		next.Repetitions = 0
		next.IntervalDays = 1
	} else {
		next.Repetitions = state.Repetitions + 1
		switch state.Repetitions {
		case 0:
			next.IntervalDays = 1
		case 1:
			next.IntervalDays = 6
		default:
			days := math.Round(float64(state.IntervalDays) * ease)
			if days > MaxIntervalDays {
				return ReviewState{}, fmt.Errorf("%w: next interval of %.0f days exceeds %d", ErrInvalidInput, days, MaxIntervalDays)
			}
			next.IntervalDays = int(days)
		}
	}
	next.NextReviewAt = NextDueDate(now, next.IntervalDays)
	return next, nil
}

// nextEaseFactor applies EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02)).
func (p *Params) nextEaseFactor(ease float64, quality Quality) float64 {
	d := float64(MaxQuality - quality)
	return math.Max(ease+(0.1-d*(0.08+d*0.02)), p.MinEaseFactor)
}

// ScheduleNext runs NextState with the default parameters and the current time.
func ScheduleNext(state ReviewState, quality Quality) (ReviewState, error) {
	return DefaultParams().NextState(state, quality, time.Now())
}

// NextDueDate returns now moved forward by intervalDays whole days.
func NextDueDate(now time.Time, intervalDays int) time.Time {
	return now.AddDate(0, 0, intervalDays)
}
