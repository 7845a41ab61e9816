package progression

import "math"

const (
	MaxLevel = 50

	baseLevelXP   = 100
	levelXPGrowth = 1.15
)

// levelXP[i] is the experience needed to go from level i+1 to i+2.
var levelXP = buildLevelTable()

func buildLevelTable() [MaxLevel]int {
	var table [MaxLevel]int
	for level := 1; level <= MaxLevel; level++ {
		table[level-1] = int(math.Floor(baseLevelXP * math.Pow(levelXPGrowth, float64(level-1))))
	}
	return table
}

// XPForLevel returns the experience needed to advance from level to level+1.
func XPForLevel(level int) (int, error) {
	if level < 1 || level > MaxLevel {
		return 0, invalid("level must be between 1 and %d, got %d", MaxLevel, level)
	}
	return levelXP[level-1], nil
}

// CumulativeXP returns the total experience at which level is reached.
func CumulativeXP(level int) (int, error) {
	if level < 1 || level > MaxLevel {
		return 0, invalid("level must be between 1 and %d, got %d", MaxLevel, level)
	}
	total := 0
	for l := 1; l < level; l++ {
		total += levelXP[l-1]
	}
	return total, nil
}

// CalculateLevel returns the level reached with totalXP, capped at MaxLevel.
// Negative totals yield level 1.
func CalculateLevel(totalXP int) int {
	level := 1
	required := 0
	for level < MaxLevel {
		next := levelXP[level-1]
		if required+next > totalXP {
			break
		}
		required += next
		level++
	}
	return level
}

// CalculateLevelChecked is CalculateLevel with negative totals rejected.
func CalculateLevelChecked(totalXP int) (int, error) {
	if totalXP < 0 {
		return 0, invalid("total experience must be non-negative, got %d", totalXP)
	}
	return CalculateLevel(totalXP), nil
}

// ProgressFraction returns how far totalXP is through currentLevel, in [0,1].
// A stale currentLevel below the real one clamps to 1.
func ProgressFraction(totalXP, currentLevel int) (float64, error) {
	floor, err := CumulativeXP(currentLevel)
	if err != nil {
		return 0, err
	}
	needed := levelXP[currentLevel-1]

	fraction := float64(totalXP-floor) / float64(needed)
	if fraction > 1 {
		return 1, nil
	}
	if fraction < 0 {
		return 0, nil
	}
	return fraction, nil
}

// XPToNextLevel returns the experience still missing to reach the next level.
// It is 0 once the level cap is reached.
func XPToNextLevel(totalXP int) int {
	level := CalculateLevel(totalXP)
	if level >= MaxLevel {
		return 0
	}
	next, _ := CumulativeXP(level + 1)
	return next - totalXP
}

// LevelStep describes one row of the level table.
type LevelStep struct {
	Level        int `json:"level"`
	XPToAdvance  int `json:"xp_to_advance"`
	CumulativeXP int `json:"cumulative_xp"`
}

// Table returns the full level table.
func Table() []LevelStep {
	steps := make([]LevelStep, 0, MaxLevel)
	total := 0
	for level := 1; level <= MaxLevel; level++ {
		steps = append(steps, LevelStep{
			Level:        level,
			XPToAdvance:  levelXP[level-1],
			CumulativeXP: total,
		})
		total += levelXP[level-1]
	}
	return steps
}
