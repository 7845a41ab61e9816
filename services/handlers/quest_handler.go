package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/shared"
)

type QuestHandler struct {
	questSvc      QuestServiceInterface
	maxProofBytes int64
}

func NewQuestHandler(questSvc QuestServiceInterface, maxProofBytes int64) *QuestHandler {
	return &QuestHandler{
		questSvc:      questSvc,
		maxProofBytes: maxProofBytes,
	}
}

// @Summary Generate daily quests
// @Description Hand out today's quests for the caller's class
// @Tags quests
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 201 {object} shared.Response{data=[]dto.QuestResponse}
// @Failure 409 {object} shared.Response
// @Router /api/v1/quests/daily [post]
func (h *QuestHandler) GenerateDailyQuests(c *fiber.Ctx) error {
	quests, err := h.questSvc.GenerateDailyQuests(c.UserContext(), shared.CurrentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Quests generated", quests)
}

// @Summary List active quests
// @Tags quests
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=[]dto.QuestResponse}
// @Router /api/v1/quests [get]
func (h *QuestHandler) ListActiveQuests(c *fiber.Ctx) error {
	quests, err := h.questSvc.ListActiveQuests(c.UserContext(), shared.CurrentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", quests)
}

// @Summary List today's quests
// @Description Every quest generated today, whatever its status
// @Tags quests
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=[]dto.QuestResponse}
// @Router /api/v1/quests/today [get]
func (h *QuestHandler) ListTodayQuests(c *fiber.Ctx) error {
	quests, err := h.questSvc.ListTodayQuests(c.UserContext(), shared.CurrentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", quests)
}

// @Summary Reroll a quest
// @Description Replace an active quest with a new one. Hero Pass holders skip the cooldown.
// @Tags quests
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param questId path string true "Quest ID"
// @Success 200 {object} shared.Response{data=dto.QuestResponse}
// @Failure 429 {object} shared.Response
// @Router /api/v1/quests/{questId}/reroll [post]
func (h *QuestHandler) RerollQuest(c *fiber.Ctx) error {
	quest, err := h.questSvc.RerollQuest(c.UserContext(), shared.CurrentUserID(c), c.Params("questId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Quest rerolled", quest)
}

// @Summary Submit quest proof
// @Description Upload a photo proving the quest was done. Accepted proofs complete the quest and award experience.
// @Tags quests
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param questId path string true "Quest ID"
// @Param proof formData file true "Proof photo (JPG, PNG, WEBP)"
// @Success 200 {object} shared.Response{data=dto.SubmitProofResponse}
// @Failure 409 {object} shared.Response
// @Router /api/v1/quests/{questId}/proof [post]
func (h *QuestHandler) SubmitProof(c *fiber.Ctx) error {
	proof, err := h.readProof(c)
	if err != nil {
		return err
	}

	resp, err := h.questSvc.SubmitProof(c.UserContext(), shared.CurrentUserID(c), c.Params("questId"), proof)
	if err != nil {
		return err
	}

	message := "Quest completed"
	if !resp.Verdict.Success {
		message = "Proof rejected"
	}
	return shared.ResponseJSON(c, fiber.StatusOK, message, resp)
}

func (h *QuestHandler) readProof(c *fiber.Ctx) (dto.Proof, error) {
	file, err := c.FormFile("proof")
	if err != nil {
		return dto.Proof{}, shared.NewBadRequestError(err, "No proof file provided")
	}
	if h.maxProofBytes > 0 && file.Size > h.maxProofBytes {
		return dto.Proof{}, shared.NewBadRequestError(nil, fmt.Sprintf("Proof image must be at most %d bytes", h.maxProofBytes))
	}

	f, err := file.Open()
	if err != nil {
		return dto.Proof{}, shared.NewBadRequestError(err, "Unreadable proof file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return dto.Proof{}, shared.NewBadRequestError(err, "Unreadable proof file")
	}

	mimeType := file.Header.Get(fiber.HeaderContentType)
	if mimeType == "" || strings.HasPrefix(mimeType, fiber.MIMEOctetStream) {
		mimeType = http.DetectContentType(data)
	}
	return dto.Proof{Data: data, MimeType: mimeType}, nil
}
