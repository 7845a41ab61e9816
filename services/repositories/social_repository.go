package repositories

import (
	"time"

	"github.com/sidequest-rpg/sidequest_api/model"
	"gorm.io/gorm"
)

type SocialRepository struct {
	BaseRepository
}

func NewSocialRepository(db *gorm.DB) *SocialRepository {
	return &SocialRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *SocialRepository) CreatePost(post *model.Post) error {
	return ds.db.Create(post).Error
}

func (ds *SocialRepository) PostExistsForCompletion(completionID string) (bool, error) {
	var count int64
	err := ds.db.Model(&model.Post{}).Where("completion_id = ?", completionID).Count(&count).Error
	return count > 0, err
}

func (ds *SocialRepository) GetPost(postID string) (*model.Post, error) {
	var post model.Post
	if err := ds.db.Where("id = ?", postID).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post owned by userID together with its likes.
func (ds *SocialRepository) DeletePost(postID, userID string) error {
	return ds.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", postID, userID).Delete(&model.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("post_id = ?", postID).Delete(&model.Like{}).Error
	})
}

// ListRecentPosts returns the newest posts with author, completion and quest loaded.
func (ds *SocialRepository) ListRecentPosts(limit int) ([]model.Post, error) {
	var posts []model.Post
	err := ds.db.Preload("Author").Preload("Completion.Quest").
		Order("created_at DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (ds *SocialRepository) CountLikes(postIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID string
		Total  int64
	}
	err := ds.db.Model(&model.Like{}).Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).Group("post_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.PostID] = r.Total
	}
	return counts, nil
}

func (ds *SocialRepository) LikedBy(userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool)
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}

	var ids []string
	err := ds.db.Model(&model.Like{}).Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// ToggleLike flips the like state and returns the new state.
func (ds *SocialRepository) ToggleLike(postID, userID string) (bool, error) {
	liked := false
	err := ds.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&model.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Create(&model.Like{PostID: postID, UserID: userID, CreatedAt: time.Now()}).Error
	})
	return liked, err
}

func (ds *SocialRepository) ToggleFollow(followerID, followingID string) (bool, error) {
	following := false
	err := ds.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&model.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		following = true
		return tx.Create(&model.Follow{FollowerID: followerID, FollowingID: followingID, CreatedAt: time.Now()}).Error
	})
	return following, err
}

func (ds *SocialRepository) IsFollowing(followerID, followingID string) (bool, error) {
	var count int64
	err := ds.db.Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).Count(&count).Error
	return count > 0, err
}

func (ds *SocialRepository) FollowCounts(userID string) (followers, following int64, err error) {
	if err = ds.db.Model(&model.Follow{}).Where("following_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, err
	}
	err = ds.db.Model(&model.Follow{}).Where("follower_id = ?", userID).Count(&following).Error
	return followers, following, err
}
