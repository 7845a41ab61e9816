package progression

const (
	streakBonusPerDay = 10
	maxStreakBonus    = 100
)

// AdvanceStreak records a quest completion on today.
//
//   - first completion ever starts the streak at 1
//   - a completion the day after the last one extends it
//   - another completion on the same day leaves it as is
//   - anything else, including a last date after today, restarts it at 1
func AdvanceStreak(p Progress, today Date) Progress {
	next := p

	switch {
	case p.LastQuestDate == nil:
		next.CurrentStreak = 1
	case p.LastQuestDate.Equal(today.AddDays(-1)):
		next.CurrentStreak = p.CurrentStreak + 1
	case p.LastQuestDate.Equal(today):
		if next.CurrentStreak < 1 {
			next.CurrentStreak = 1
		}
	default:
		next.CurrentStreak = 1
	}

	next.LongestStreak = max(next.CurrentStreak, p.LongestStreak)
	last := today
	next.LastQuestDate = &last
	return next
}

// EffectiveStreak is the streak as a reader should see it on today: a streak
// whose last completion is older than yesterday has already lapsed even though
// the stored counter has not been reset yet.
func EffectiveStreak(p Progress, today Date) int {
	if p.LastQuestDate == nil {
		return 0
	}
	if p.LastQuestDate.Equal(today) || p.LastQuestDate.Equal(today.AddDays(-1)) {
		return p.CurrentStreak
	}
	return 0
}

// StreakBonus is the bonus experience shown for a streak: 10 per day, at most 100.
func StreakBonus(streak int) int {
	if streak <= 0 {
		return 0
	}
	return min(streak*streakBonusPerDay, maxStreakBonus)
}
