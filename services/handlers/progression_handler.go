package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sidequest-rpg/sidequest_api/dto"
	"github.com/sidequest-rpg/sidequest_api/progression"
	"github.com/sidequest-rpg/sidequest_api/shared"
)

var levelTable = buildLevelTable()

func buildLevelTable() []dto.LevelStepResponse {
	steps := progression.Table()
	out := make([]dto.LevelStepResponse, len(steps))
	for i, s := range steps {
		out[i] = dto.LevelStepResponse{Level: s.Level, XPToAdvance: s.XPToAdvance, CumulativeXP: s.CumulativeXP}
	}
	return out
}

// @Summary Level table
// @Description Experience needed for every level up to the cap
// @Tags progression
// @Produce json
// @Success 200 {object} shared.Response{data=[]dto.LevelStepResponse}
// @Router /api/v1/progression/levels [get]
func GetLevelTable(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return shared.ResponseJSON(c, fiber.StatusOK, "Success", levelTable)
}
