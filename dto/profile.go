package dto

import "time"

type OnboardingRequest struct {
	Username    string `json:"username" validate:"required,username" example:"quest_hunter"`
	PlayerClass string `json:"player_class" validate:"required,player_class" example:"Ranger"`
}

type ProfileResponse struct {
	ID              string           `json:"id"`
	Email           string           `json:"email,omitempty"`
	Username        *string          `json:"username"`
	PlayerClass     string           `json:"player_class"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	Onboarded       bool             `json:"onboarded"`
	HasHeroPass     bool             `json:"has_hero_pass"`
	SubscriptionEnd *time.Time       `json:"subscription_end,omitempty"`
	Progress        ProgressResponse `json:"progress"`
	CreatedAt       time.Time        `json:"created_at"`
}

type ProgressResponse struct {
	Level           int     `json:"level"`
	MaxLevel        int     `json:"max_level"`
	TotalXP         int     `json:"total_xp"`
	LevelProgress   float64 `json:"level_progress"`
	XPToNextLevel   int     `json:"xp_to_next_level"`
	CurrentStreak   int     `json:"current_streak"`
	LongestStreak   int     `json:"longest_streak"`
	StreakBonus     int     `json:"streak_bonus"`
	LastQuestDate   string  `json:"last_quest_date,omitempty"`
	CompletedQuests int64   `json:"completed_quests"`
}

// ProfileCard is the public view of another player.
type ProfileCard struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	PlayerClass   string `json:"player_class"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	Level         int    `json:"level"`
	TotalXP       int    `json:"total_xp"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	HasHeroPass   bool   `json:"has_hero_pass"`
	Followers     int64  `json:"followers"`
	Following     int64  `json:"following"`
}

type SearchResult struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	PlayerClass string `json:"player_class"`
	Level       int    `json:"level"`
	Score       int    `json:"score"`
}

type PlayerClassResponse struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	QuestPreference string `json:"quest_preference"`
}
