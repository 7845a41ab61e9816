package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPost(t *testing.T, db *gorm.DB, userID string, at time.Time) *model.Post {
	t.Helper()

	quests := NewQuestRepository(db)
	q := newQuest(userID, at)
	require.NoError(t, quests.CreateQuests([]model.Quest{q}))
	c := &model.QuestCompletion{ID: uuid.NewString(), UserID: userID, QuestID: q.ID, ProofObject: "quest-proofs/x.jpg", Score: 90, XPAwarded: 90}
	require.NoError(t, quests.CreateCompletion(c))

	post := &model.Post{ID: uuid.NewString(), UserID: userID, CompletionID: c.ID, Caption: "done", CreatedAt: at}
	require.NoError(t, NewSocialRepository(db).CreatePost(post))
	return post
}

func TestListRecentPostsPreloadsRelations(t *testing.T) {
	db := newTestDB(t)
	seedProfile(t, NewProfileRepository(db), "u1", "hero")
	repo := NewSocialRepository(db)

	older := seedPost(t, db, "u1", time.Now().Add(-time.Hour))
	newer := seedPost(t, db, "u1", time.Now())

	posts, err := repo.ListRecentPosts(50)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, newer.ID, posts[0].ID)
	assert.Equal(t, older.ID, posts[1].ID)
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "hero", *posts[0].Author.Username)
	require.NotNil(t, posts[0].Completion)
	require.NotNil(t, posts[0].Completion.Quest)
	assert.Equal(t, "Cloud Gazer", posts[0].Completion.Quest.Title)

	exists, err := repo.PostExistsForCompletion(newer.CompletionID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestToggleLike(t *testing.T) {
	db := newTestDB(t)
	repo := NewSocialRepository(db)
	post := seedPost(t, db, "u1", time.Now())

	liked, err := repo.ToggleLike(post.ID, "u2")
	require.NoError(t, err)
	assert.True(t, liked)

	counts, err := repo.CountLikes([]string{post.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[post.ID])

	mine, err := repo.LikedBy("u2", []string{post.ID})
	require.NoError(t, err)
	assert.True(t, mine[post.ID])

	liked, err = repo.ToggleLike(post.ID, "u2")
	require.NoError(t, err)
	assert.False(t, liked)

	counts, err = repo.CountLikes([]string{post.ID})
	require.NoError(t, err)
	assert.Zero(t, counts[post.ID])
}

func TestDeletePostOwnOnly(t *testing.T) {
	db := newTestDB(t)
	repo := NewSocialRepository(db)
	post := seedPost(t, db, "u1", time.Now())
	_, err := repo.ToggleLike(post.ID, "u2")
	require.NoError(t, err)

	assert.ErrorIs(t, repo.DeletePost(post.ID, "u2"), gorm.ErrRecordNotFound)
	require.NoError(t, repo.DeletePost(post.ID, "u1"))

	_, err = repo.GetPost(post.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	counts, err := repo.CountLikes([]string{post.ID})
	require.NoError(t, err)
	assert.Zero(t, counts[post.ID])
}

func TestToggleFollow(t *testing.T) {
	repo := NewSocialRepository(newTestDB(t))

	following, err := repo.ToggleFollow("u1", "u2")
	require.NoError(t, err)
	assert.True(t, following)

	is, err := repo.IsFollowing("u1", "u2")
	require.NoError(t, err)
	assert.True(t, is)

	followers, followingCount, err := repo.FollowCounts("u2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, followers)
	assert.Zero(t, followingCount)

	following, err = repo.ToggleFollow("u1", "u2")
	require.NoError(t, err)
	assert.False(t, following)
}
