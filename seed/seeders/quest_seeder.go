package seeders

import (
	"time"

	"github.com/google/uuid"
	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/services/repositories"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QuestSeeder hands every demo player a day's worth of quests from the
// offline pool.
type QuestSeeder struct {
	db   *gorm.DB
	game *config.Game
	now  func() time.Time
}

func NewQuestSeeder(db *gorm.DB, game *config.Game) *QuestSeeder {
	return &QuestSeeder{db: db, game: game, now: func() time.Time { return time.Now().UTC() }}
}

func (s *QuestSeeder) SeedQuests() error {
	quests := repositories.NewQuestRepository(s.db)
	profiles := repositories.NewProfileRepository(s.db)
	now := s.now()

	for _, p := range DemoPlayers {
		if _, err := profiles.GetProfile(p.ID); err != nil {
			log.WithField("user_id", p.ID).Warn("Profile missing, run the profile seeder first")
			continue
		}

		active, err := quests.CountActive(p.ID, now)
		if err != nil {
			return err
		}
		if active > 0 {
			log.WithField("username", p.Username).Info("Player already has active quests, skipping")
			continue
		}

		batch := s.questsFor(p.ID, now)
		if err := quests.CreateQuests(batch); err != nil {
			log.WithError(err).WithField("username", p.Username).Error("Error creating quests")
			return err
		}
		log.WithFields(log.Fields{"username": p.Username, "count": len(batch)}).Info("Created quests")
	}

	log.Info("Quest seeding completed successfully")
	return nil
}

func (s *QuestSeeder) questsFor(userID string, now time.Time) []model.Quest {
	pool := s.game.FallbackQuests(s.game.Quests.DailyCount)
	out := make([]model.Quest, 0, len(pool))
	for _, fq := range pool {
		id, _ := uuid.NewV7()
		difficulty := s.game.NormalizeDifficulty(fq.Difficulty)
		out = append(out, model.Quest{
			ID:          id.String(),
			UserID:      userID,
			Title:       fq.Title,
			Description: fq.Description,
			Difficulty:  difficulty,
			XPReward:    s.game.XPReward(difficulty),
			Status:      shared.QuestStatusActive,
			GeneratedAt: now,
			ExpiresAt:   now.Add(s.game.QuestLifetime()),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}
