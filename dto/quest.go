package dto

import "time"

type QuestResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	XPReward    int        `json:"xp_reward"`
	Status      string     `json:"status"`
	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GeneratedQuest is a quest as proposed by the quest oracle, before persistence.
type GeneratedQuest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	XPReward    int    `json:"xp_reward"`
}

// Verdict is the judge's ruling on a proof photo. Score is within 1..100.
type Verdict struct {
	Success bool   `json:"success"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

type Proof struct {
	Data     []byte
	MimeType string
}

type SubmitProofResponse struct {
	Verdict      Verdict           `json:"verdict"`
	CompletionID string            `json:"completion_id,omitempty"`
	XPAwarded    int               `json:"xp_awarded"`
	LeveledUp    bool              `json:"leveled_up"`
	NewLevel     int               `json:"new_level"`
	Progress     *ProgressResponse `json:"progress,omitempty"`
}
