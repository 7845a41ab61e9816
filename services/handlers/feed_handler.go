package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/shared"
)

type FeedHandler struct {
	feedSvc FeedServiceInterface
}

func NewFeedHandler(feedSvc FeedServiceInterface) *FeedHandler {
	return &FeedHandler{feedSvc: feedSvc}
}

// @Summary Get feed
// @Description Newest shared quest completions
// @Tags feed
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param limit query int false "Limit results (default 20, max 50)"
// @Success 200 {object} shared.Response{data=[]dto.FeedItem}
// @Router /api/v1/feed [get]
func (h *FeedHandler) GetFeed(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	items, err := h.feedSvc.Feed(c.UserContext(), shared.CurrentUserID(c), limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", items)
}

// @Summary Share a completion
// @Tags feed
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param createPostRequest body dto.CreatePostRequest true "Post"
// @Success 201 {object} shared.Response{data=model.Post}
// @Failure 409 {object} shared.Response
// @Router /api/v1/feed/posts [post]
func (h *FeedHandler) CreatePost(c *fiber.Ctx) error {
	var req dto.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	post, err := h.feedSvc.CreatePost(c.UserContext(), shared.CurrentUserID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Post created", post)
}

// @Summary Delete own post
// @Tags feed
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param postId path string true "Post ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/feed/posts/{postId} [delete]
func (h *FeedHandler) DeletePost(c *fiber.Ctx) error {
	if err := h.feedSvc.DeletePost(c.UserContext(), shared.CurrentUserID(c), c.Params("postId")); err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Post deleted", nil)
}

// @Summary Like or unlike a post
// @Tags feed
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param postId path string true "Post ID"
// @Success 200 {object} shared.Response{data=dto.LikeResponse}
// @Router /api/v1/feed/posts/{postId}/like [post]
func (h *FeedHandler) ToggleLike(c *fiber.Ctx) error {
	resp, err := h.feedSvc.ToggleLike(c.UserContext(), shared.CurrentUserID(c), c.Params("postId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Follow or unfollow a player
// @Tags social
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param userId path string true "User ID"
// @Success 200 {object} shared.Response{data=dto.FollowResponse}
// @Router /api/v1/social/follow/{userId} [post]
func (h *FeedHandler) ToggleFollow(c *fiber.Ctx) error {
	resp, err := h.feedSvc.ToggleFollow(c.UserContext(), shared.CurrentUserID(c), c.Params("userId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Check follow state
// @Tags social
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param userId path string true "User ID"
// @Success 200 {object} shared.Response{data=dto.FollowResponse}
// @Router /api/v1/social/follow/{userId} [get]
func (h *FeedHandler) IsFollowing(c *fiber.Ctx) error {
	resp, err := h.feedSvc.IsFollowing(c.UserContext(), shared.CurrentUserID(c), c.Params("userId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}
