package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/shared"
)

type SubscriptionHandler struct {
	subscriptionSvc SubscriptionServiceInterface
}

func NewSubscriptionHandler(subscriptionSvc SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionSvc: subscriptionSvc}
}

// @Summary Get Hero Pass status
// @Tags subscription
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.SubscriptionStatus}
// @Router /api/v1/subscription [get]
func (h *SubscriptionHandler) GetStatus(c *fiber.Ctx) error {
	status, err := h.subscriptionSvc.Status(c.UserContext(), shared.CurrentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", status)
}

// @Summary Sync Hero Pass
// @Description Billing webhook. Authenticated by a shared secret header.
// @Tags subscription
// @Accept json
// @Produce json
// @Param X-Webhook-Secret header string true "Webhook secret"
// @Param syncRequest body dto.SyncSubscriptionRequest true "Subscription state"
// @Success 200 {object} shared.Response{data=dto.SubscriptionStatus}
// @Failure 401 {object} shared.Response
// @Router /api/v1/subscription/sync [post]
func (h *SubscriptionHandler) Sync(c *fiber.Ctx) error {
	var req dto.SyncSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	status, err := h.subscriptionSvc.Sync(c.UserContext(), c.Get(shared.WebhookSecretHeader), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Subscription synced", status)
}
