package dto

type LevelStepResponse struct {
	Level        int `json:"level"`
	XPToAdvance  int `json:"xp_to_advance"`
	CumulativeXP int `json:"cumulative_xp"`
}
