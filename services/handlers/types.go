package handlers

import (
	"context"

	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/model"
)

type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	GetProgress(ctx context.Context, userID string) (*dto.ProgressResponse, error)
	CompleteOnboarding(ctx context.Context, userID string, req dto.OnboardingRequest) (*dto.ProfileResponse, error)
	GetPublicProfile(ctx context.Context, userID string) (*dto.ProfileCard, error)
	SearchPlayers(ctx context.Context, query string, limit int) ([]dto.SearchResult, error)
	Leaderboard(ctx context.Context, board string, limit int, viewerID string) (*dto.LeaderboardResponse, error)
	ListClasses() []dto.PlayerClassResponse
}

type QuestServiceInterface interface {
	GenerateDailyQuests(ctx context.Context, userID string) ([]dto.QuestResponse, error)
	ListActiveQuests(ctx context.Context, userID string) ([]dto.QuestResponse, error)
	ListTodayQuests(ctx context.Context, userID string) ([]dto.QuestResponse, error)
	RerollQuest(ctx context.Context, userID, questID string) (*dto.QuestResponse, error)
	SubmitProof(ctx context.Context, userID, questID string, proof dto.Proof) (*dto.SubmitProofResponse, error)
}

type FeedServiceInterface interface {
	Feed(ctx context.Context, viewer string, limit int) ([]dto.FeedItem, error)
	CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*model.Post, error)
	DeletePost(ctx context.Context, userID, postID string) error
	ToggleLike(ctx context.Context, userID, postID string) (*dto.LikeResponse, error)
	ToggleFollow(ctx context.Context, followerID, followingID string) (*dto.FollowResponse, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (*dto.FollowResponse, error)
}

type SubscriptionServiceInterface interface {
	Status(ctx context.Context, userID string) (*dto.SubscriptionStatus, error)
	Sync(ctx context.Context, secret string, req dto.SyncSubscriptionRequest) (*dto.SubscriptionStatus, error)
}
