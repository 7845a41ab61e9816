package seeders

import (
	"errors"
	"time"

	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/progression"
	"github.com/sidequest-rpg/sidequest_api/services/repositories"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DemoPlayer describes a seeded player and the progress it starts with.
type DemoPlayer struct {
	ID          string
	Email       string
	Username    string
	PlayerClass string
	TotalXP     int
	Streak      int
	// DaysSinceQuest is how long ago the last quest was completed.
	DaysSinceQuest int
}

// DemoPlayers spans fresh, mid-game and lapsed players so both leaderboards
// have something to show.
var DemoPlayers = []DemoPlayer{
	{ID: "demo-wanderer", Email: "wanderer@sidequest.dev", Username: "wandering_wren", PlayerClass: "Wanderer", TotalXP: 0},
	{ID: "demo-bard", Email: "bard@sidequest.dev", Username: "ballad_bex", PlayerClass: "Bard", TotalXP: 420, Streak: 3, DaysSinceQuest: 0},
	{ID: "demo-ranger", Email: "ranger@sidequest.dev", Username: "moss_ranger", PlayerClass: "Ranger", TotalXP: 1350, Streak: 12, DaysSinceQuest: 1},
	{ID: "demo-rogue", Email: "rogue@sidequest.dev", Username: "chaos_kit", PlayerClass: "Rogue", TotalXP: 2900, Streak: 30, DaysSinceQuest: 5},
	{ID: "demo-scholar", Email: "scholar@sidequest.dev", Username: "quiet_quill", PlayerClass: "Scholar", TotalXP: 760, Streak: 7, DaysSinceQuest: 0},
}

// ProfileSeeder handles seeding demo players
type ProfileSeeder struct {
	db   *gorm.DB
	game *config.Game
	now  func() time.Time
}

func NewProfileSeeder(db *gorm.DB, game *config.Game) *ProfileSeeder {
	return &ProfileSeeder{db: db, game: game, now: func() time.Time { return time.Now().UTC() }}
}

// SeedProfiles creates the demo players. Players that already have progress
// are left alone so reseeding never rewinds a real session.
func (s *ProfileSeeder) SeedProfiles() error {
	profiles := repositories.NewProfileRepository(s.db)
	today := progression.DateOf(s.now())

	for _, p := range DemoPlayers {
		if _, ok := s.game.Class(p.PlayerClass); !ok {
			return errors.New("unknown player class " + p.PlayerClass)
		}

		existing, err := profiles.GetOrCreateProfile(p.ID, p.Email)
		if err != nil {
			log.WithError(err).WithField("user_id", p.ID).Error("Error creating profile")
			return err
		}
		if existing.OnboardedAt != nil {
			log.WithField("username", p.Username).Info("Profile already exists, skipping")
			continue
		}

		if err := profiles.CompleteOnboarding(p.ID, p.Username, p.PlayerClass, s.now()); err != nil {
			return err
		}

		if p.TotalXP > 0 {
			player := p
			_, err := profiles.UpdateProgress(p.ID, func(progression.Progress) (progression.Progress, error) {
				return demoProgress(player, today), nil
			})
			if err != nil {
				return err
			}
		}

		log.WithFields(log.Fields{
			"username": p.Username,
			"class":    p.PlayerClass,
			"xp":       p.TotalXP,
		}).Info("Created profile")
	}

	log.Info("Profile seeding completed successfully")
	return nil
}

func demoProgress(p DemoPlayer, today progression.Date) progression.Progress {
	last := today.AddDays(-p.DaysSinceQuest)
	return progression.Progress{
		TotalXP:       p.TotalXP,
		Level:         progression.CalculateLevel(p.TotalXP),
		CurrentStreak: p.Streak,
		LongestStreak: p.Streak,
		LastQuestDate: &last,
	}
}
