package services

import (
	"context"
	"errors"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/model"
	"github.com/sidequest-rpg/sidequest_api/services/repositories"
	"github.com/sidequest-rpg/sidequest_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 50
)

type proofURLer interface {
	ProofURL(ctx context.Context, objectName string) (string, error)
}

// FeedService publishes quest completions and handles likes and follows.
type FeedService struct {
	appContext.DefaultService

	social   *repositories.SocialRepository
	quests   *repositories.QuestRepository
	profiles *repositories.ProfileRepository
	urls     proofURLer
	cards    cardInvalidator
	now      func() time.Time
}

const FEED_SVC = "feed_svc"

func (svc FeedService) Id() string {
	return FEED_SVC
}

func (svc *FeedService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *FeedService) Start() error {
	svc.init(
		svc.Service(DATABASE_SVC).(*DatabaseService).Db(),
		svc.Service(MINIO_SVC).(*MinIOService),
		svc.Service(PROFILE_SVC).(*ProfileService),
	)
	return nil
}

// NewFeedService builds the service outside the container. cards may be nil.
func NewFeedService(db *gorm.DB, urls proofURLer, cards cardInvalidator) *FeedService {
	svc := &FeedService{}
	svc.init(db, urls, cards)
	return svc
}

func (svc *FeedService) init(db *gorm.DB, urls proofURLer, cards cardInvalidator) {
	svc.social = repositories.NewSocialRepository(db)
	svc.quests = repositories.NewQuestRepository(db)
	svc.profiles = repositories.NewProfileRepository(db)
	svc.urls = urls
	svc.cards = cards
	svc.now = func() time.Time { return time.Now().UTC() }
}

// Feed returns the newest posts, decorated for viewer. viewer may be empty.
func (svc *FeedService) Feed(ctx context.Context, viewer string, limit int) ([]dto.FeedItem, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	posts, err := svc.social.ListRecentPosts(limit)
	if err != nil {
		return nil, HandleError(err)
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	likes, err := svc.social.CountLikes(ids)
	if err != nil {
		return nil, HandleError(err)
	}
	liked, err := svc.social.LikedBy(viewer, ids)
	if err != nil {
		return nil, HandleError(err)
	}

	items := make([]dto.FeedItem, 0, len(posts))
	for i := range posts {
		items = append(items, svc.feedItem(ctx, &posts[i], likes[posts[i].ID], liked[posts[i].ID]))
	}
	return items, nil
}

func (svc *FeedService) feedItem(ctx context.Context, post *model.Post, likes int64, liked bool) dto.FeedItem {
	item := dto.FeedItem{
		ID:        post.ID,
		Caption:   post.Caption,
		CreatedAt: post.CreatedAt,
		Likes:     likes,
		LikedByMe: liked,
	}

	if a := post.Author; a != nil {
		item.Author = dto.FeedAuthor{
			ID:          a.ID,
			Username:    a.DisplayName(),
			PlayerClass: a.PlayerClass,
			AvatarURL:   a.AvatarURL,
			Level:       a.Level,
		}
	}

	if c := post.Completion; c != nil {
		item.Completion = dto.FeedCompletion{
			ID:        c.ID,
			Score:     c.Score,
			Comment:   c.Comment,
			XPAwarded: c.XPAwarded,
		}
		if svc.urls != nil && c.ProofObject != "" {
			url, err := svc.urls.ProofURL(ctx, c.ProofObject)
			if err != nil {
				log.WithError(err).WithField("post_id", post.ID).Warn("Failed to presign proof URL")
			}
			item.Completion.ProofURL = url
		}
		if q := c.Quest; q != nil {
			item.Quest = dto.FeedQuest{
				Title:       q.Title,
				Description: q.Description,
				Difficulty:  q.Difficulty,
			}
		}
	}
	return item
}

// CreatePost shares one of the caller's completions. Each completion can be
// posted once.
func (svc *FeedService) CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*model.Post, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError(err, "Validation failed").WithData(dto.FormatValidationErrors(err))
	}

	completion, err := svc.quests.GetCompletion(req.CompletionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError(err, "Completion not found")
	}
	if err != nil {
		return nil, HandleError(err)
	}
	if completion.UserID != userID {
		return nil, shared.NewForbiddenError(nil, "You can only share your own completions")
	}

	exists, err := svc.social.PostExistsForCompletion(completion.ID)
	if err != nil {
		return nil, HandleError(err)
	}
	if exists {
		return nil, shared.NewConflictError(nil, "This completion has already been shared")
	}

	id, _ := uuid.NewV7()
	post := &model.Post{
		ID:           id.String(),
		UserID:       userID,
		CompletionID: completion.ID,
		Caption:      strings.TrimSpace(req.Caption),
		CreatedAt:    svc.now(),
	}
	if err := svc.social.CreatePost(post); err != nil {
		return nil, HandleError(err)
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"post_id": post.ID,
	}).Info("Post created")
	return post, nil
}

func (svc *FeedService) DeletePost(ctx context.Context, userID, postID string) error {
	if err := svc.social.DeletePost(postID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shared.NewNotFoundError(err, "Post not found")
		}
		return HandleError(err)
	}
	return nil
}

func (svc *FeedService) ToggleLike(ctx context.Context, userID, postID string) (*dto.LikeResponse, error) {
	if _, err := svc.social.GetPost(postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Post not found")
		}
		return nil, HandleError(err)
	}

	liked, err := svc.social.ToggleLike(postID, userID)
	if err != nil {
		return nil, HandleError(err)
	}
	counts, err := svc.social.CountLikes([]string{postID})
	if err != nil {
		return nil, HandleError(err)
	}
	return &dto.LikeResponse{Liked: liked, Likes: counts[postID]}, nil
}

func (svc *FeedService) ToggleFollow(ctx context.Context, followerID, followingID string) (*dto.FollowResponse, error) {
	if followerID == followingID {
		return nil, shared.NewBadRequestError(nil, "You cannot follow yourself")
	}
	if _, err := svc.profiles.GetProfile(followingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "Player not found")
		}
		return nil, HandleError(err)
	}

	following, err := svc.social.ToggleFollow(followerID, followingID)
	if err != nil {
		return nil, HandleError(err)
	}
	if svc.cards != nil {
		svc.cards.InvalidateCard(followerID)
		svc.cards.InvalidateCard(followingID)
	}
	return &dto.FollowResponse{Following: following}, nil
}

func (svc *FeedService) IsFollowing(ctx context.Context, followerID, followingID string) (*dto.FollowResponse, error) {
	following, err := svc.social.IsFollowing(followerID, followingID)
	if err != nil {
		return nil, HandleError(err)
	}
	return &dto.FollowResponse{Following: following}, nil
}
