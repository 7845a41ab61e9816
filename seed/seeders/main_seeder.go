package seeders

import (
	"github.com/sidequest-rpg/sidequest_api/config"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db   *gorm.DB
	game *config.Game
}

// NewMainSeeder creates a new main seeder
func NewMainSeeder(db *gorm.DB, game *config.Game) *MainSeeder {
	return &MainSeeder{db: db, game: game}
}

// SeedAll runs all seeders in the correct order
func (s *MainSeeder) SeedAll() error {
	log.Info("Starting database seeding...")

	// Quests belong to players, so players go first.
	if err := s.SeedProfilesOnly(); err != nil {
		log.WithError(err).Error("Profile seeding failed")
		return err
	}

	if err := s.SeedQuestsOnly(); err != nil {
		log.WithError(err).Error("Quest seeding failed")
		return err
	}

	log.Info("Database seeding completed successfully!")
	return nil
}

func (s *MainSeeder) SeedProfilesOnly() error {
	return NewProfileSeeder(s.db, s.game).SeedProfiles()
}

func (s *MainSeeder) SeedQuestsOnly() error {
	return NewQuestSeeder(s.db, s.game).SeedQuests()
}
