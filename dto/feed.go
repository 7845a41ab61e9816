package dto

import "time"

type CreatePostRequest struct {
	CompletionID string `json:"completion_id" validate:"required"`
	Caption      string `json:"caption" validate:"max=280"`
}

type FeedAuthor struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	PlayerClass string `json:"player_class"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Level       int    `json:"level"`
}

type FeedCompletion struct {
	ID        string `json:"id"`
	ProofURL  string `json:"proof_url"`
	Score     int    `json:"score"`
	Comment   string `json:"comment"`
	XPAwarded int    `json:"xp_awarded"`
}

type FeedQuest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
}

type FeedItem struct {
	ID         string         `json:"id"`
	Caption    string         `json:"caption"`
	CreatedAt  time.Time      `json:"created_at"`
	Author     FeedAuthor     `json:"author"`
	Completion FeedCompletion `json:"completion"`
	Quest      FeedQuest      `json:"quest"`
	Likes      int64          `json:"likes"`
	LikedByMe  bool           `json:"liked_by_me"`
}

type LikeResponse struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

type FollowResponse struct {
	Following bool `json:"following"`
}
