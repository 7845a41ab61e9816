package model

import "time"

type Quest struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	UserID      string     `gorm:"index:idx_quest_user_status,priority:1;not null" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"not null" json:"description"`
	Difficulty  string     `gorm:"not null" json:"difficulty"`
	XPReward    int        `gorm:"not null" json:"xp_reward"`
	Status      string     `gorm:"index:idx_quest_user_status,priority:2;not null;default:active" json:"status"`
	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   time.Time  `gorm:"index" json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// QuestCompletion records a verified proof. A quest is completed at most once.
type QuestCompletion struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	QuestID     string    `gorm:"uniqueIndex;not null" json:"quest_id"`
	ProofObject string    `gorm:"not null" json:"-"`
	Score       int       `gorm:"not null" json:"score"`
	Comment     string    `json:"comment"`
	XPAwarded   int       `gorm:"not null" json:"xp_awarded"`
	CreatedAt   time.Time `json:"created_at"`

	Quest *Quest `gorm:"foreignKey:QuestID" json:"quest,omitempty"`
}
