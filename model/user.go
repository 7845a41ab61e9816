package model

import (
	"time"

	"github.com/sidequest-rpg/sidequest_api/progression"
	log "github.com/sirupsen/logrus"
)

// UserProfile is the single row holding a player's identity and progression.
// Version increments on every progression write.
type UserProfile struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	Email       string  `gorm:"index" json:"email,omitempty"`
	Username    *string `json:"username"`
	UsernameKey *string `gorm:"uniqueIndex" json:"-"`
	PlayerClass string  `gorm:"not null;default:Wanderer" json:"player_class"`
	AvatarURL   string  `json:"avatar_url,omitempty"`

	TotalXP       int    `gorm:"not null;default:0;index" json:"total_xp"`
	Level         int    `gorm:"not null;default:1" json:"level"`
	CurrentStreak int    `gorm:"not null;default:0;index" json:"current_streak"`
	LongestStreak int    `gorm:"not null;default:0" json:"longest_streak"`
	LastQuestDate string `gorm:"size:10" json:"last_quest_date,omitempty"`
	Version       int64  `gorm:"not null;default:0" json:"-"`

	HasHeroPass           bool       `gorm:"not null;default:false" json:"has_hero_pass"`
	SubscriptionProductID string     `json:"subscription_product_id,omitempty"`
	SubscriptionEnd       *time.Time `json:"subscription_end,omitempty"`
	LastRerollAt          *time.Time `json:"-"`

	OnboardedAt *time.Time `json:"onboarded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Progress converts the stored columns into an engine value. An unparsable
// last quest date is treated as absent.
func (u *UserProfile) Progress() progression.Progress {
	p := progression.Progress{
		TotalXP:       u.TotalXP,
		Level:         u.Level,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
	}
	if u.LastQuestDate != "" {
		d, err := progression.ParseDate(u.LastQuestDate)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"user_id":         u.ID,
				"last_quest_date": u.LastQuestDate,
			}).Error("Unreadable last quest date, streak will restart")
		} else {
			p.LastQuestDate = &d
		}
	}
	return p
}

func (u *UserProfile) SetProgress(p progression.Progress) {
	u.TotalXP = p.TotalXP
	u.Level = p.Level
	u.CurrentStreak = p.CurrentStreak
	u.LongestStreak = p.LongestStreak
	u.LastQuestDate = ""
	if p.LastQuestDate != nil {
		u.LastQuestDate = p.LastQuestDate.String()
	}
}

// HeroPassActive reports whether the pass is set and not past its end date.
func (u *UserProfile) HeroPassActive(now time.Time) bool {
	if !u.HasHeroPass {
		return false
	}
	return u.SubscriptionEnd == nil || u.SubscriptionEnd.After(now)
}

func (u *UserProfile) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return "Adventurer"
}
