package dto

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	PlayerClass   string `json:"player_class"`
	Level         int    `json:"level"`
	TotalXP       int    `json:"total_xp"`
	CurrentStreak int    `json:"current_streak"`
}

type LeaderboardResponse struct {
	Board    string             `json:"board"`
	Entries  []LeaderboardEntry `json:"entries"`
	UserRank *int               `json:"user_rank,omitempty"`
}
