package services

import (
	"context"
	"testing"
	"time"

	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/progression"
	"github.com/sidequest-rpg/sidequest_api/services/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProfileFixture(t *testing.T) (*ProfileService, *gorm.DB, *memoryCache, *clock) {
	t.Helper()
	db := newTestDB(t)
	cache := newMemoryCache()
	clk := newClock("2024-03-10T10:00:00Z")

	svc, err := NewProfileService(db, config.Default(), cache)
	require.NoError(t, err)
	svc.now = clk.Now
	return svc, db, cache, clk
}

func onboard(t *testing.T, svc *ProfileService, id, username, class string) {
	t.Helper()
	require.NoError(t, svc.EnsureProfile(context.Background(), id, id+"@example.com"))
	_, err := svc.CompleteOnboarding(context.Background(), id, dto.OnboardingRequest{Username: username, PlayerClass: class})
	require.NoError(t, err)
}

func setProgress(t *testing.T, db *gorm.DB, id string, xp, streak int, last string) {
	t.Helper()
	date := progression.MustParseDate(last)
	_, err := repositories.NewProfileRepository(db).UpdateProgress(id, func(progression.Progress) (progression.Progress, error) {
		return progression.Progress{
			TotalXP:       xp,
			Level:         progression.CalculateLevel(xp),
			CurrentStreak: streak,
			LongestStreak: streak,
			LastQuestDate: &date,
		}, nil
	})
	require.NoError(t, err)
}

func TestEnsureProfileProvisionsOnce(t *testing.T) {
	svc, db, _, _ := newProfileFixture(t)

	require.NoError(t, svc.EnsureProfile(context.Background(), "u1", "u1@example.com"))
	require.NoError(t, svc.EnsureProfile(context.Background(), "u1", "other@example.com"))

	var count int64
	require.NoError(t, db.Model(&model.UserProfile{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	resp, err := svc.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", resp.Email)
	assert.False(t, resp.Onboarded)
	assert.Equal(t, 1, resp.Progress.Level)
	assert.Equal(t, progression.MaxLevel, resp.Progress.MaxLevel)
	assert.Zero(t, resp.Progress.TotalXP)
}

func TestGetProfileMissing(t *testing.T) {
	svc, _, _, _ := newProfileFixture(t)
	_, err := svc.GetProfile(context.Background(), "nobody")
	assert.Equal(t, 404, statusOf(t, err))
}

func TestCompleteOnboarding(t *testing.T) {
	svc, _, _, _ := newProfileFixture(t)
	require.NoError(t, svc.EnsureProfile(context.Background(), "u1", "u1@example.com"))

	resp, err := svc.CompleteOnboarding(context.Background(), "u1", dto.OnboardingRequest{Username: "Quest_Hunter", PlayerClass: "ranger"})
	require.NoError(t, err)
	assert.True(t, resp.Onboarded)
	require.NotNil(t, resp.Username)
	assert.Equal(t, "Quest_Hunter", *resp.Username)
	assert.Equal(t, "Ranger", resp.PlayerClass)

	// Re-onboarding keeps the caller's own name available to them.
	_, err = svc.CompleteOnboarding(context.Background(), "u1", dto.OnboardingRequest{Username: "quest_hunter", PlayerClass: "Bard"})
	require.NoError(t, err)
}

func TestCompleteOnboardingRejections(t *testing.T) {
	svc, _, _, _ := newProfileFixture(t)
	onboard(t, svc, "u1", "quest_hunter", "Ranger")
	require.NoError(t, svc.EnsureProfile(context.Background(), "u2", "u2@example.com"))

	_, err := svc.CompleteOnboarding(context.Background(), "u2", dto.OnboardingRequest{Username: "QUEST_HUNTER", PlayerClass: "Bard"})
	assert.Equal(t, 409, statusOf(t, err))

	_, err = svc.CompleteOnboarding(context.Background(), "u2", dto.OnboardingRequest{Username: "no spaces", PlayerClass: "Bard"})
	assert.Equal(t, 400, statusOf(t, err))

	_, err = svc.CompleteOnboarding(context.Background(), "u2", dto.OnboardingRequest{Username: "valid_name", PlayerClass: "Paladin"})
	assert.Equal(t, 400, statusOf(t, err))
}

func TestGetProgressShowsBrokenStreakAsZero(t *testing.T) {
	svc, db, _, clk := newProfileFixture(t)
	onboard(t, svc, "u1", "streaker", "Rogue")
	setProgress(t, db, "u1", 150, 4, "2024-03-09")

	progress, err := svc.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Level)
	assert.Equal(t, 4, progress.CurrentStreak)
	assert.Equal(t, "2024-03-09", progress.LastQuestDate)

	clk.Advance(48 * time.Hour)
	progress, err = svc.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, progress.CurrentStreak)
	assert.Zero(t, progress.StreakBonus)
	assert.Equal(t, 4, progress.LongestStreak)
}

func TestListClasses(t *testing.T) {
	svc, _, _, _ := newProfileFixture(t)
	classes := svc.ListClasses()
	require.Len(t, classes, 5)
	assert.Equal(t, "Wanderer", classes[0].Name)
}

func TestPublicProfileCardCachedUntilInvalidated(t *testing.T) {
	svc, db, _, _ := newProfileFixture(t)
	onboard(t, svc, "u1", "card_holder", "Scholar")

	card, err := svc.GetPublicProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "card_holder", card.Username)
	assert.Zero(t, card.TotalXP)

	setProgress(t, db, "u1", 300, 1, "2024-03-10")
	card, err = svc.GetPublicProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, card.TotalXP)

	svc.InvalidateCard("u1")
	card, err = svc.GetPublicProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 300, card.TotalXP)
	assert.Equal(t, 1, card.CurrentStreak)
}

func TestPublicProfileCardStreakLapsesWhileCached(t *testing.T) {
	svc, db, _, clk := newProfileFixture(t)
	onboard(t, svc, "u1", "card_holder", "Scholar")
	setProgress(t, db, "u1", 300, 5, "2024-03-10")

	card, err := svc.GetPublicProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, card.CurrentStreak)

	clk.Advance(72 * time.Hour)
	card, err = svc.GetPublicProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, card.CurrentStreak)
	assert.Equal(t, 5, card.LongestStreak)

	progress, err := svc.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, progress.CurrentStreak, card.CurrentStreak)
}

func TestPublicProfileCardHeroPassExpiresWhileCached(t *testing.T) {
	svc, db, _, clk := newProfileFixture(t)
	onboard(t, svc, "u1", "card_holder", "Scholar")
	end := clk.Now().Add(24 * time.Hour)
	require.NoError(t, db.Model(&model.UserProfile{}).Where("id = ?", "u1").Updates(map[string]interface{}{
		"has_hero_pass":    true,
		"subscription_end": end,
	}).Error)

	card, err := svc.GetPublicProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, card.HasHeroPass)

	clk.Advance(48 * time.Hour)
	card, err = svc.GetPublicProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, card.HasHeroPass)
}

func TestSearchPlayers(t *testing.T) {
	svc, _, _, _ := newProfileFixture(t)
	onboard(t, svc, "u1", "dragon_slayer", "Rogue")
	onboard(t, svc, "u2", "daisy", "Bard")
	onboard(t, svc, "u3", "moss_ranger", "Ranger")

	results, err := svc.SearchPlayers(context.Background(), "drgn", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "u1", results[0].ID)

	_, err = svc.SearchPlayers(context.Background(), "  ", 10)
	assert.Equal(t, 400, statusOf(t, err))
}

func TestLeaderboardXP(t *testing.T) {
	svc, db, cache, _ := newProfileFixture(t)
	onboard(t, svc, "u1", "alpha", "Bard")
	onboard(t, svc, "u2", "bravo", "Bard")
	onboard(t, svc, "u3", "charlie", "Bard")
	require.NoError(t, svc.EnsureProfile(context.Background(), "lurker", "lurker@example.com"))
	setProgress(t, db, "u1", 100, 1, "2024-03-10")
	setProgress(t, db, "u2", 500, 1, "2024-03-10")
	setProgress(t, db, "u3", 250, 1, "2024-03-10")

	board, err := svc.Leaderboard(context.Background(), LeaderboardXP, 0, "u3")
	require.NoError(t, err)
	require.Len(t, board.Entries, 3)
	assert.Equal(t, "u2", board.Entries[0].UserID)
	assert.Equal(t, 1, board.Entries[0].Rank)
	require.NotNil(t, board.UserRank)
	assert.Equal(t, 2, *board.UserRank)
	assert.Equal(t, 1, cache.sets)

	board, err = svc.Leaderboard(context.Background(), LeaderboardXP, 1, "lurker")
	require.NoError(t, err)
	assert.Len(t, board.Entries, 1)
	assert.Nil(t, board.UserRank)
	assert.Equal(t, 1, cache.sets, "second read is served from cache")

	_, err = svc.Leaderboard(context.Background(), LeaderboardXP, 101, "")
	assert.Equal(t, 400, statusOf(t, err))
	_, err = svc.Leaderboard(context.Background(), "karma", 10, "")
	assert.Equal(t, 400, statusOf(t, err))
}

func TestLeaderboardStreakSkipsBrokenStreaks(t *testing.T) {
	svc, db, _, _ := newProfileFixture(t)
	onboard(t, svc, "u1", "steady", "Ranger")
	onboard(t, svc, "u2", "lapsed", "Ranger")
	onboard(t, svc, "u3", "fresh", "Ranger")
	setProgress(t, db, "u1", 100, 5, "2024-03-09")
	setProgress(t, db, "u2", 900, 30, "2024-03-01")
	setProgress(t, db, "u3", 50, 2, "2024-03-10")

	board, err := svc.Leaderboard(context.Background(), LeaderboardStreak, 10, "u2")
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "u1", board.Entries[0].UserID)
	assert.Equal(t, "u3", board.Entries[1].UserID)
	assert.Nil(t, board.UserRank)

	board, err = svc.Leaderboard(context.Background(), LeaderboardStreak, 10, "u3")
	require.NoError(t, err)
	require.NotNil(t, board.UserRank)
	assert.Equal(t, 2, *board.UserRank)
}

func TestBuildProgress(t *testing.T) {
	profile := &model.UserProfile{TotalXP: 120, Level: 2, CurrentStreak: 3, LongestStreak: 7, LastQuestDate: "2024-03-10"}

	got := BuildProgress(profile, progression.MustParseDate("2024-03-11"))
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 3, got.CurrentStreak)
	assert.Equal(t, progression.StreakBonus(3), got.StreakBonus)
	assert.Equal(t, progression.XPToNextLevel(120), got.XPToNextLevel)
	assert.InDelta(t, 0.0, got.LevelProgress, 0.2)
}
