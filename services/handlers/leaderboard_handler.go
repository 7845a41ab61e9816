package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/shared"
)

const (
	boardXP     = "xp"
	boardStreak = "streak"
)

type LeaderboardHandler struct {
	profileSvc ProfileServiceInterface
}

func NewLeaderboardHandler(profileSvc ProfileServiceInterface) *LeaderboardHandler {
	return &LeaderboardHandler{
		profileSvc: profileSvc,
	}
}

// @Summary Get XP Leaderboard
// @Description All-time leaderboard by total experience. Signed-in callers also get their own rank.
// @Tags leaderboard
// @Accept json
// @Produce json
// @Param limit query int false "Limit results (default 50, max 100)"
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Router /api/v1/leaderboard/xp [get]
func (h *LeaderboardHandler) GetXPLeaderboard(c *fiber.Ctx) error {
	return h.board(c, boardXP)
}

// @Summary Get Streak Leaderboard
// @Description Leaderboard by current streak, counting only streaks that are still alive
// @Tags leaderboard
// @Accept json
// @Produce json
// @Param limit query int false "Limit results (default 50, max 100)"
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Router /api/v1/leaderboard/streak [get]
func (h *LeaderboardHandler) GetStreakLeaderboard(c *fiber.Ctx) error {
	return h.board(c, boardStreak)
}

func (h *LeaderboardHandler) board(c *fiber.Ctx, board string) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	leaderboard, err := h.profileSvc.Leaderboard(c.UserContext(), board, limit, shared.CurrentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", leaderboard)
}
