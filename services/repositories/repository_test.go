package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func seedProfile(t *testing.T, repo *ProfileRepository, id, username string) *model.UserProfile {
	t.Helper()

	profile, err := repo.GetOrCreateProfile(id, id+"@example.com")
	require.NoError(t, err)
	if username != "" {
		require.NoError(t, repo.CompleteOnboarding(id, username, "Wanderer", time.Now()))
		profile, err = repo.GetProfile(id)
		require.NoError(t, err)
	}
	return profile
}
