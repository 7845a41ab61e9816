// Package config loads the game tuning file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed game.toml
var defaultGameTOML []byte

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	DefaultClass = "Wanderer"
)

type Game struct {
	Quests       QuestRules      `toml:"quests"`
	Verification Verification    `toml:"verification"`
	Monetization Monetization    `toml:"monetization"`
	Classes      []PlayerClass   `toml:"classes"`
	Fallback     []FallbackQuest `toml:"fallback_quests"`
}

type QuestRules struct {
	DailyCount            int                   `toml:"daily_count"`
	MaxActive             int                   `toml:"max_active"`
	ExpirationHours       int                   `toml:"expiration_hours"`
	RerollCooldownMinutes int                   `toml:"reroll_cooldown_minutes"`
	Difficulties          map[string]Difficulty `toml:"difficulties"`
}

type Difficulty struct {
	Name    string `toml:"name"`
	XPBase  int    `toml:"xp_base"`
	Summary string `toml:"summary"`
}

type Verification struct {
	FallbackScore   int    `toml:"fallback_score"`
	FallbackComment string `toml:"fallback_comment"`
	MaxProofBytes   int64  `toml:"max_proof_bytes"`
}

type Monetization struct {
	HeroPriceMonthly float64 `toml:"hero_price_monthly"`
	HeroPriceYearly  float64 `toml:"hero_price_yearly"`
}

type PlayerClass struct {
	Name            string `toml:"name" json:"name"`
	Description     string `toml:"description" json:"description"`
	QuestPreference string `toml:"quest_preference" json:"quest_preference"`
}

type FallbackQuest struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Difficulty  string `toml:"difficulty"`
}

// Default returns the embedded tuning. It panics if the embedded file is broken,
// which the package tests guard against.
func Default() *Game {
	g, err := Parse(defaultGameTOML)
	if err != nil {
		panic(fmt.Sprintf("embedded game config: %v", err))
	}
	return g
}

// Load reads the tuning from path, or returns the embedded default when path is empty.
func Load(path string) (*Game, error) {
	if path == "" {
		return Parse(defaultGameTOML)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Game, error) {
	var g Game
	if err := toml.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("parse game config: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (g *Game) Validate() error {
	if g.Quests.DailyCount <= 0 {
		return fmt.Errorf("quests.daily_count must be positive")
	}
	if g.Quests.MaxActive < g.Quests.DailyCount {
		return fmt.Errorf("quests.max_active must be at least daily_count")
	}
	if g.Quests.ExpirationHours <= 0 {
		return fmt.Errorf("quests.expiration_hours must be positive")
	}
	for _, name := range []string{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		d, ok := g.Quests.Difficulties[name]
		if !ok || d.XPBase <= 0 {
			return fmt.Errorf("difficulty %q needs a positive xp_base", name)
		}
	}
	if _, ok := g.Class(DefaultClass); !ok {
		return fmt.Errorf("class %q must be defined", DefaultClass)
	}
	if g.Verification.FallbackScore < 1 || g.Verification.FallbackScore > 100 {
		return fmt.Errorf("verification.fallback_score must be within 1..100")
	}
	for _, q := range g.Fallback {
		if _, ok := g.Quests.Difficulties[q.Difficulty]; !ok {
			return fmt.Errorf("fallback quest %q has unknown difficulty %q", q.Title, q.Difficulty)
		}
	}
	if len(g.Fallback) < g.Quests.DailyCount {
		return fmt.Errorf("need at least %d fallback quests", g.Quests.DailyCount)
	}
	return nil
}

// Class looks a player class up by name, ignoring case.
func (g *Game) Class(name string) (PlayerClass, bool) {
	for _, c := range g.Classes {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return PlayerClass{}, false
}

// ClassOrDefault falls back to the Wanderer for unknown classes.
func (g *Game) ClassOrDefault(name string) PlayerClass {
	if c, ok := g.Class(name); ok {
		return c
	}
	c, _ := g.Class(DefaultClass)
	return c
}

func (g *Game) ClassNames() []string {
	names := make([]string, len(g.Classes))
	for i, c := range g.Classes {
		names[i] = c.Name
	}
	return names
}

// NormalizeDifficulty maps anything unrecognized to easy.
func (g *Game) NormalizeDifficulty(difficulty string) string {
	d := strings.ToLower(strings.TrimSpace(difficulty))
	if _, ok := g.Quests.Difficulties[d]; ok {
		return d
	}
	return DifficultyEasy
}

// XPReward is the experience reward attached to a quest of the given difficulty.
func (g *Game) XPReward(difficulty string) int {
	return g.Quests.Difficulties[g.NormalizeDifficulty(difficulty)].XPBase
}

func (g *Game) FallbackQuests(count int) []FallbackQuest {
	if count > len(g.Fallback) {
		count = len(g.Fallback)
	}
	if count < 0 {
		count = 0
	}
	out := make([]FallbackQuest, count)
	copy(out, g.Fallback[:count])
	return out
}

func (g *Game) QuestLifetime() time.Duration {
	return time.Duration(g.Quests.ExpirationHours) * time.Hour
}

func (g *Game) RerollCooldown() time.Duration {
	return time.Duration(g.Quests.RerollCooldownMinutes) * time.Minute
}
