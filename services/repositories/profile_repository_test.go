package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/progression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGetOrCreateProfileIsIdempotent(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))

	first, err := repo.GetOrCreateProfile("u1", "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Level)
	assert.Equal(t, 0, first.TotalXP)
	assert.Equal(t, "Wanderer", first.PlayerClass)

	again, err := repo.GetOrCreateProfile("u1", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", again.Email)
}

func TestGetProfileNotFound(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))

	_, err := repo.GetProfile("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUsernameTakenIgnoresCase(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	seedProfile(t, repo, "u1", "QuestHunter")
	seedProfile(t, repo, "u2", "")

	taken, err := repo.UsernameTaken("questhunter", "u2")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.UsernameTaken("questhunter", "u1")
	require.NoError(t, err)
	assert.False(t, taken)

	err = repo.CompleteOnboarding("u2", "QUESTHUNTER", "Bard", time.Now())
	assert.Error(t, err)
}

func TestUpdateProgressCommitsAndBumpsVersion(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	seedProfile(t, repo, "u1", "hero")
	today := progression.MustParseDate("2024-03-10")

	updated, err := repo.UpdateProgress("u1", func(p progression.Progress) (progression.Progress, error) {
		award, err := progression.ApplyAward(p, 150)
		if err != nil {
			return p, err
		}
		return progression.AdvanceStreak(award.Progress, today), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 150, updated.TotalXP)
	assert.Equal(t, 2, updated.Level)
	assert.Equal(t, 1, updated.CurrentStreak)
	assert.Equal(t, "2024-03-10", updated.LastQuestDate)
	assert.EqualValues(t, 1, updated.Version)

	stored, err := repo.GetProfile("u1")
	require.NoError(t, err)
	assert.Equal(t, updated.TotalXP, stored.TotalXP)
	assert.Equal(t, updated.Version, stored.Version)
	require.NoError(t, progression.Validate(stored.Progress()))
}

func TestUpdateProgressPropagatesEngineErrors(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	seedProfile(t, repo, "u1", "hero")

	_, err := repo.UpdateProgress("u1", func(p progression.Progress) (progression.Progress, error) {
		award, err := progression.ApplyAward(p, 0)
		return award.Progress, err
	})
	assert.ErrorIs(t, err, progression.ErrInvalidInput)

	stored, err := repo.GetProfile("u1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, stored.Version)
	assert.Equal(t, 0, stored.TotalXP)
}

func TestUpdateProgressRetriesAfterLostRace(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfileRepository(db)
	seedProfile(t, repo, "u1", "hero")

	calls := 0
	updated, err := repo.UpdateProgress("u1", func(p progression.Progress) (progression.Progress, error) {
		calls++
		if calls == 1 {
			// Another writer lands between our read and our write.
			require.NoError(t, db.Model(&model.UserProfile{}).Where("id = ?", "u1").
				Updates(map[string]interface{}{"total_xp": 60, "version": 1}).Error)
		}
		award, err := progression.ApplyAward(p, 60)
		return award.Progress, err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 120, updated.TotalXP)
	assert.Equal(t, 2, updated.Level)
	assert.EqualValues(t, 2, updated.Version)
}

func TestUpdateProgressGivesUpWithConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfileRepository(db)
	seedProfile(t, repo, "u1", "hero")

	_, err := repo.UpdateProgress("u1", func(p progression.Progress) (progression.Progress, error) {
		require.NoError(t, db.Exec("UPDATE user_profiles SET version = version + 1 WHERE id = ?", "u1").Error)
		award, err := progression.ApplyAward(p, 10)
		return award.Progress, err
	})
	assert.True(t, errors.Is(err, ErrVersionConflict))
}

func TestLeaderboards(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfileRepository(db)
	seedProfile(t, repo, "a", "alpha")
	seedProfile(t, repo, "b", "bravo")
	seedProfile(t, repo, "c", "charlie")
	seedProfile(t, repo, "ghost", "")

	set := func(id string, xp, streak int, last string) {
		require.NoError(t, db.Model(&model.UserProfile{}).Where("id = ?", id).Updates(map[string]interface{}{
			"total_xp": xp, "level": progression.CalculateLevel(xp), "current_streak": streak, "last_quest_date": last,
		}).Error)
	}
	set("a", 500, 2, "2024-03-10")
	set("b", 900, 7, "2024-03-01")
	set("c", 100, 4, "2024-03-09")
	set("ghost", 5000, 50, "2024-03-10")

	top, err := repo.TopByXP(10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{top[0].ID, top[1].ID, top[2].ID})

	a, _ := repo.GetProfile("a")
	rank, err := repo.RankByXP(a)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	since := progression.MustParseDate("2024-03-09")
	streaks, err := repo.TopByStreak(10, since)
	require.NoError(t, err)
	require.Len(t, streaks, 2)
	assert.Equal(t, "c", streaks[0].ID)
	assert.Equal(t, "a", streaks[1].ID)

	rank, err = repo.RankByStreak(2, since)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
}

func TestUpdateSubscription(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	seedProfile(t, repo, "u1", "hero")

	end := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateSubscription("u1", true, "hero_monthly", &end))

	p, err := repo.GetProfile("u1")
	require.NoError(t, err)
	assert.True(t, p.HeroPassActive(time.Now()))
	assert.False(t, p.HeroPassActive(end.Add(time.Minute)))

	assert.ErrorIs(t, repo.UpdateSubscription("missing", true, "x", nil), gorm.ErrRecordNotFound)
}
