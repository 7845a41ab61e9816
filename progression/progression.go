// Package progression holds the experience, level and streak rules.
//
// Every function here is pure: callers pass in a snapshot of a player's
// progress and get the next snapshot back. Persisting the result, and doing
// so atomically, is the caller's job.
package progression

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for arguments outside an operation's domain.
// Callers must not apply any state change when they receive it.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Progress is the part of a player profile the rules operate on.
type Progress struct {
	TotalXP       int   `json:"total_xp"`
	Level         int   `json:"level"`
	CurrentStreak int   `json:"current_streak"`
	LongestStreak int   `json:"longest_streak"`
	LastQuestDate *Date `json:"last_quest_date"`
}

// New returns the progress of a freshly created player.
func New() Progress {
	return Progress{Level: 1}
}

// Award is the outcome of ApplyAward.
type Award struct {
	Progress  Progress `json:"progress"`
	LeveledUp bool     `json:"leveled_up"`
	NewLevel  int      `json:"new_level"`
}

// ApplyAward adds amount to the experience total and recomputes the level.
// Streak fields are left untouched.
func ApplyAward(p Progress, amount int) (Award, error) {
	if amount <= 0 {
		return Award{Progress: p, NewLevel: p.Level}, invalid("experience award must be positive, got %d", amount)
	}
	if p.TotalXP < 0 {
		return Award{Progress: p, NewLevel: p.Level}, invalid("total experience is negative: %d", p.TotalXP)
	}
	if amount > math.MaxInt-p.TotalXP {
		return Award{Progress: p, NewLevel: p.Level}, invalid("experience award %d overflows total %d", amount, p.TotalXP)
	}

	next := p
	next.TotalXP = p.TotalXP + amount
	next.Level = CalculateLevel(next.TotalXP)

	return Award{
		Progress:  next,
		LeveledUp: next.Level > p.Level,
		NewLevel:  next.Level,
	}, nil
}

// Validate reports the first broken invariant of p, if any.
func Validate(p Progress) error {
	switch {
	case p.TotalXP < 0:
		return invalid("total experience is negative: %d", p.TotalXP)
	case p.CurrentStreak < 0 || p.LongestStreak < 0:
		return invalid("streaks must be non-negative")
	case p.LongestStreak < p.CurrentStreak:
		return invalid("longest streak %d is below current streak %d", p.LongestStreak, p.CurrentStreak)
	case p.Level != CalculateLevel(p.TotalXP):
		return invalid("level %d does not match %d total experience", p.Level, p.TotalXP)
	}
	return nil
}
