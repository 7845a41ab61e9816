package repositories

import (
	"errors"
	"time"

	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/shared"
	"gorm.io/gorm"
)

// ErrQuestNotActive is returned when a transition requires an active quest.
var ErrQuestNotActive = errors.New("quest is not active")

type QuestRepository struct {
	BaseRepository
}

func NewQuestRepository(db *gorm.DB) *QuestRepository {
	return &QuestRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *QuestRepository) WithTx(tx *gorm.DB) *QuestRepository {
	return NewQuestRepository(tx)
}

func (ds *QuestRepository) CreateQuests(quests []model.Quest) error {
	if len(quests) == 0 {
		return nil
	}
	return ds.db.Create(&quests).Error
}

func (ds *QuestRepository) GetUserQuest(userID, questID string) (*model.Quest, error) {
	var quest model.Quest
	if err := ds.db.Where("id = ? AND user_id = ?", questID, userID).First(&quest).Error; err != nil {
		return nil, err
	}
	return &quest, nil
}

// active scopes a query to quests that are still open at now, even when the
// sweeper has not flipped their status yet.
func active(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? AND expires_at > ?", shared.QuestStatusActive, now)
	}
}

func (ds *QuestRepository) ListActive(userID string, now time.Time) ([]model.Quest, error) {
	var quests []model.Quest
	err := ds.db.Scopes(active(now)).Where("user_id = ?", userID).
		Order("created_at ASC").Find(&quests).Error
	return quests, err
}

// ListCreatedSince returns every quest created at or after since, regardless of status.
func (ds *QuestRepository) ListCreatedSince(userID string, since time.Time) ([]model.Quest, error) {
	var quests []model.Quest
	err := ds.db.Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").Find(&quests).Error
	return quests, err
}

func (ds *QuestRepository) CountActive(userID string, now time.Time) (int64, error) {
	var count int64
	err := ds.db.Model(&model.Quest{}).Scopes(active(now)).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (ds *QuestRepository) CountActiveCreatedSince(userID string, since, now time.Time) (int64, error) {
	var count int64
	err := ds.db.Model(&model.Quest{}).Scopes(active(now)).
		Where("user_id = ? AND created_at >= ?", userID, since).Count(&count).Error
	return count, err
}

func (ds *QuestRepository) DeleteActive(userID, questID string, now time.Time) error {
	res := ds.db.Scopes(active(now)).Where("id = ? AND user_id = ?", questID, userID).Delete(&model.Quest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrQuestNotActive
	}
	return nil
}

// CompleteQuest moves an active quest to completed. It affects at most one
// row, so two concurrent submissions cannot both succeed.
func (ds *QuestRepository) CompleteQuest(userID, questID string, now time.Time) error {
	res := ds.db.Model(&model.Quest{}).Scopes(active(now)).
		Where("id = ? AND user_id = ?", questID, userID).
		Updates(map[string]interface{}{
			"status":       shared.QuestStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrQuestNotActive
	}
	return nil
}

// ExpireOverdue flips every active quest past its deadline to expired.
func (ds *QuestRepository) ExpireOverdue(now time.Time) (int64, error) {
	res := ds.db.Model(&model.Quest{}).
		Where("status = ? AND expires_at <= ?", shared.QuestStatusActive, now).
		Updates(map[string]interface{}{
			"status":     shared.QuestStatusExpired,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (ds *QuestRepository) CreateCompletion(completion *model.QuestCompletion) error {
	return ds.db.Create(completion).Error
}

func (ds *QuestRepository) GetCompletion(completionID string) (*model.QuestCompletion, error) {
	var completion model.QuestCompletion
	if err := ds.db.Preload("Quest").Where("id = ?", completionID).First(&completion).Error; err != nil {
		return nil, err
	}
	return &completion, nil
}

func (ds *QuestRepository) CountCompletions(userID string) (int64, error) {
	var count int64
	err := ds.db.Model(&model.QuestCompletion{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
