package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/progression"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict is returned when a progression update keeps losing races.
var ErrVersionConflict = errors.New("profile was modified concurrently")

const progressUpdateAttempts = 3

type ProfileRepository struct {
	BaseRepository
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return NewProfileRepository(tx)
}

func (ds *ProfileRepository) GetProfile(userID string) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := ds.db.Where("id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetOrCreateProfile provisions a level 1 profile the first time a user is seen.
func (ds *ProfileRepository) GetOrCreateProfile(userID, email string) (*model.UserProfile, error) {
	profile := model.UserProfile{
		ID:          userID,
		Email:       email,
		PlayerClass: "Wanderer",
		Level:       1,
	}
	if err := ds.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error; err != nil {
		return nil, err
	}
	return ds.GetProfile(userID)
}

func (ds *ProfileRepository) UsernameTaken(username, excludeUserID string) (bool, error) {
	var count int64
	err := ds.db.Model(&model.UserProfile{}).
		Where("username_key = ? AND id <> ?", strings.ToLower(username), excludeUserID).
		Count(&count).Error
	return count > 0, err
}

func (ds *ProfileRepository) CompleteOnboarding(userID, username, playerClass string, now time.Time) error {
	key := strings.ToLower(username)
	res := ds.db.Model(&model.UserProfile{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"username":     username,
		"username_key": key,
		"player_class": playerClass,
		"onboarded_at": now,
		"updated_at":   now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateProgress runs fn against a fresh snapshot of the player's progress
// and commits the result only if nobody else wrote in between. Lost races
// are retried with a new snapshot. fn must be pure since it may run more
// than once.
func (ds *ProfileRepository) UpdateProgress(userID string, fn func(progression.Progress) (progression.Progress, error)) (*model.UserProfile, error) {
	for attempt := 1; attempt <= progressUpdateAttempts; attempt++ {
		profile, err := ds.GetProfile(userID)
		if err != nil {
			return nil, err
		}

		next, err := fn(profile.Progress())
		if err != nil {
			return nil, err
		}

		updated := *profile
		updated.SetProgress(next)
		updated.Version = profile.Version + 1
		updated.UpdatedAt = time.Now()

		res := ds.db.Model(&model.UserProfile{}).
			Where("id = ? AND version = ?", userID, profile.Version).
			Updates(map[string]interface{}{
				"total_xp":        updated.TotalXP,
				"level":           updated.Level,
				"current_streak":  updated.CurrentStreak,
				"longest_streak":  updated.LongestStreak,
				"last_quest_date": updated.LastQuestDate,
				"version":         updated.Version,
				"updated_at":      updated.UpdatedAt,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return &updated, nil
		}

		log.WithFields(log.Fields{
			"user_id": userID,
			"attempt": attempt,
			"version": profile.Version,
		}).Warn("Progress update lost a race, retrying")
	}

	return nil, fmt.Errorf("update progress for %s: %w", userID, ErrVersionConflict)
}

func (ds *ProfileRepository) UpdateSubscription(userID string, subscribed bool, productID string, end *time.Time) error {
	res := ds.db.Model(&model.UserProfile{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"has_hero_pass":           subscribed,
		"subscription_product_id": productID,
		"subscription_end":        end,
		"updated_at":              time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (ds *ProfileRepository) TouchReroll(userID string, at time.Time) error {
	return ds.db.Model(&model.UserProfile{}).Where("id = ?", userID).Update("last_reroll_at", at).Error
}

func (ds *ProfileRepository) TopByXP(limit int) ([]model.UserProfile, error) {
	var profiles []model.UserProfile
	err := ds.db.Where("username IS NOT NULL").
		Order("total_xp DESC").Order("created_at ASC").
		Limit(limit).Find(&profiles).Error
	return profiles, err
}

// TopByStreak only ranks streaks still alive on or after since.
func (ds *ProfileRepository) TopByStreak(limit int, since progression.Date) ([]model.UserProfile, error) {
	var profiles []model.UserProfile
	err := ds.db.Where("username IS NOT NULL AND current_streak > 0 AND last_quest_date >= ?", since.String()).
		Order("current_streak DESC").Order("total_xp DESC").
		Limit(limit).Find(&profiles).Error
	return profiles, err
}

func (ds *ProfileRepository) RankByXP(profile *model.UserProfile) (int, error) {
	var ahead int64
	err := ds.db.Model(&model.UserProfile{}).
		Where("username IS NOT NULL AND total_xp > ?", profile.TotalXP).
		Count(&ahead).Error
	return int(ahead) + 1, err
}

func (ds *ProfileRepository) RankByStreak(streak int, since progression.Date) (int, error) {
	var ahead int64
	err := ds.db.Model(&model.UserProfile{}).
		Where("username IS NOT NULL AND current_streak > ? AND last_quest_date >= ?", streak, since.String()).
		Count(&ahead).Error
	return int(ahead) + 1, err
}

// RecentlyActive returns onboarded profiles, most recently updated first.
func (ds *ProfileRepository) RecentlyActive(limit int) ([]model.UserProfile, error) {
	var profiles []model.UserProfile
	err := ds.db.Where("username IS NOT NULL").
		Order("updated_at DESC").
		Limit(limit).Find(&profiles).Error
	return profiles, err
}

func (ds *ProfileRepository) GetProfilesByIDs(ids []string) (map[string]*model.UserProfile, error) {
	out := make(map[string]*model.UserProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []model.UserProfile
	if err := ds.db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for i := range profiles {
		out[profiles[i].ID] = &profiles[i]
	}
	return out, nil
}
