package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/shared"
)

type ProfileHandler struct {
	profileSvc ProfileServiceInterface
}

func NewProfileHandler(profileSvc ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// @Summary Get own profile
// @Description Get the caller's profile, provisioned on first sight
// @Tags profile
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.ProfileResponse}
// @Router /api/v1/profile [get]
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.profileSvc.GetProfile(c.UserContext(), shared.CurrentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", profile)
}

// @Summary Complete onboarding
// @Description Pick a username and a player class
// @Tags profile
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param onboardingRequest body dto.OnboardingRequest true "Username and class"
// @Success 200 {object} shared.Response{data=dto.ProfileResponse}
// @Failure 409 {object} shared.Response
// @Router /api/v1/profile/onboarding [put]
func (h *ProfileHandler) CompleteOnboarding(c *fiber.Ctx) error {
	var req dto.OnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	profile, err := h.profileSvc.CompleteOnboarding(c.UserContext(), shared.CurrentUserID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Welcome, adventurer", profile)
}

// @Summary Get own progress
// @Description Level, experience and streak of the caller
// @Tags profile
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Router /api/v1/profile/progress [get]
func (h *ProfileHandler) GetProgress(c *fiber.Ctx) error {
	progress, err := h.profileSvc.GetProgress(c.UserContext(), shared.CurrentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", progress)
}

// @Summary Get player card
// @Description Public profile of another player
// @Tags profile
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} shared.Response{data=dto.ProfileCard}
// @Failure 404 {object} shared.Response
// @Router /api/v1/profile/{userId} [get]
func (h *ProfileHandler) GetPublicProfile(c *fiber.Ctx) error {
	card, err := h.profileSvc.GetPublicProfile(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", card)
}

// @Summary Search players
// @Description Fuzzy search over usernames of recently active players
// @Tags profile
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param q query string true "Search text"
// @Param limit query int false "Limit results (max 20)"
// @Success 200 {object} shared.Response{data=[]dto.SearchResult}
// @Router /api/v1/profile/search [get]
func (h *ProfileHandler) SearchPlayers(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	results, err := h.profileSvc.SearchPlayers(c.UserContext(), c.Query("q"), limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", results)
}

// @Summary List player classes
// @Tags progression
// @Produce json
// @Success 200 {object} shared.Response{data=[]dto.PlayerClassResponse}
// @Router /api/v1/progression/classes [get]
func (h *ProfileHandler) ListClasses(c *fiber.Ctx) error {
	return shared.ResponseJSON(c, fiber.StatusOK, "Success", h.profileSvc.ListClasses())
}
