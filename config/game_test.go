package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	g := Default()

	assert.Equal(t, 3, g.Quests.DailyCount)
	assert.Equal(t, 10, g.Quests.MaxActive)
	assert.Equal(t, 24*time.Hour, g.QuestLifetime())
	assert.Equal(t, 15*time.Minute, g.RerollCooldown())
	assert.Equal(t, 50, g.XPReward(DifficultyEasy))
	assert.Equal(t, 100, g.XPReward(DifficultyMedium))
	assert.Equal(t, 200, g.XPReward(DifficultyHard))
	assert.Equal(t, []string{"Wanderer", "Bard", "Ranger", "Rogue", "Scholar"}, g.ClassNames())
	assert.Equal(t, 75, g.Verification.FallbackScore)
}

func TestNormalizeDifficulty(t *testing.T) {
	g := Default()
	assert.Equal(t, DifficultyHard, g.NormalizeDifficulty(" HARD "))
	assert.Equal(t, DifficultyEasy, g.NormalizeDifficulty("legendary"))
	assert.Equal(t, 50, g.XPReward("unknown"))
}

func TestClassLookup(t *testing.T) {
	g := Default()

	c, ok := g.Class("ranger")
	require.True(t, ok)
	assert.Equal(t, "Ranger", c.Name)

	_, ok = g.Class("Paladin")
	assert.False(t, ok)
	assert.Equal(t, "Wanderer", g.ClassOrDefault("Paladin").Name)
}

func TestFallbackQuests(t *testing.T) {
	g := Default()

	three := g.FallbackQuests(3)
	require.Len(t, three, 3)
	assert.Equal(t, "Yellow Discovery", three[0].Title)

	assert.Len(t, g.FallbackQuests(50), len(g.Fallback))
	assert.Empty(t, g.FallbackQuests(-1))

	three[0].Title = "mutated"
	assert.Equal(t, "Yellow Discovery", g.Fallback[0].Title)
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.toml")

	raw := string(defaultGameTOML) + "\n"
	raw = replaceOnce(raw, "daily_count = 3", "daily_count = 4")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Quests.DailyCount)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestParseRejectsBrokenConfig(t *testing.T) {
	_, err := Parse([]byte("quests = 3"))
	assert.Error(t, err)

	broken := replaceOnce(string(defaultGameTOML), "xp_base = 200", "xp_base = 0")
	_, err = Parse([]byte(broken))
	assert.ErrorContains(t, err, "hard")
}

func replaceOnce(s, old, new string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + new + s[i+len(old):]
		}
	}
	return s
}
