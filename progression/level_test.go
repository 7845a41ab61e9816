package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPForLevel(t *testing.T) {
	first, err := XPForLevel(1)
	require.NoError(t, err)
	assert.Equal(t, 100, first)

	second, err := XPForLevel(2)
	require.NoError(t, err)
	assert.Equal(t, 114, second)

	third, err := XPForLevel(3)
	require.NoError(t, err)
	assert.Equal(t, 132, third)

	for _, level := range []int{0, -1, MaxLevel + 1} {
		_, err := XPForLevel(level)
		assert.ErrorIs(t, err, ErrInvalidInput, "level %d", level)
	}
}

func TestXPForLevelStrictlyIncreasing(t *testing.T) {
	for level := 1; level < MaxLevel; level++ {
		cur, err := XPForLevel(level)
		require.NoError(t, err)
		next, err := XPForLevel(level + 1)
		require.NoError(t, err)
		assert.Less(t, cur, next, "level %d", level)
	}
}

func TestCalculateLevel(t *testing.T) {
	cases := []struct {
		name    string
		totalXP int
		want    int
	}{
		{"zero", 0, 1},
		{"just below first threshold", 99, 1},
		{"exactly first threshold", 100, 2},
		{"between second and third", 213, 2},
		{"exactly third", 214, 3},
		{"huge", 1_000_000_000, MaxLevel},
		{"negative", -5, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateLevel(tc.totalXP))
		})
	}
}

func TestCalculateLevelMonotonicAndBounded(t *testing.T) {
	prev := CalculateLevel(0)
	for xp := 0; xp <= 200_000; xp += 37 {
		level := CalculateLevel(xp)
		assert.GreaterOrEqual(t, level, 1)
		assert.LessOrEqual(t, level, MaxLevel)
		assert.GreaterOrEqual(t, level, prev, "xp %d", xp)
		prev = level
	}
}

func TestCalculateLevelMatchesCumulativeThresholds(t *testing.T) {
	for level := 1; level <= MaxLevel; level++ {
		floor, err := CumulativeXP(level)
		require.NoError(t, err)
		assert.Equal(t, level, CalculateLevel(floor), "at threshold of level %d", level)
		if level > 1 {
			assert.Equal(t, level-1, CalculateLevel(floor-1), "just below level %d", level)
		}
	}
}

func TestCalculateLevelChecked(t *testing.T) {
	_, err := CalculateLevelChecked(-1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	level, err := CalculateLevelChecked(250)
	require.NoError(t, err)
	assert.Equal(t, 3, level)
}

func TestProgressFraction(t *testing.T) {
	f, err := ProgressFraction(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)

	f, err = ProgressFraction(50, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-9)

	f, err = ProgressFraction(157, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-9)

	// stale level: 5000 XP is far beyond level 1
	f, err = ProgressFraction(5000, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	// level ahead of the experience total never goes negative
	f, err = ProgressFraction(0, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)

	_, err = ProgressFraction(10, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ProgressFraction(10, MaxLevel+1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, 100, XPToNextLevel(0))
	assert.Equal(t, 40, XPToNextLevel(60))
	assert.Equal(t, 94, XPToNextLevel(120))
	assert.Equal(t, 0, XPToNextLevel(1_000_000_000))
}

func TestTable(t *testing.T) {
	table := Table()
	require.Len(t, table, MaxLevel)
	assert.Equal(t, LevelStep{Level: 1, XPToAdvance: 100, CumulativeXP: 0}, table[0])
	assert.Equal(t, LevelStep{Level: 2, XPToAdvance: 114, CumulativeXP: 100}, table[1])
	for i := 1; i < len(table); i++ {
		assert.Equal(t, table[i-1].CumulativeXP+table[i-1].XPToAdvance, table[i].CumulativeXP)
	}
}
