package models

import "time"

// Player represents a row in the players table. best_score is monotonic:
// it only ever increases over the lifetime of the row.
type Player struct {
	ID          string    `json:"id" bson:"_id"`
	Username    string    `json:"username,omitempty" bson:"username,omitempty"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	BestScore   int       `json:"best_score" bson:"best_score"`
	UpdatedAt   time.Time `json:"-" bson:"updated_at"`
}

// ScoreRequest is the JSON body for POST /score.
type ScoreRequest struct {
	InitData string `json:"initData"`
	Score    *int   `json:"score"`
}

// ScoreResponse is the success body for POST /score.
type ScoreResponse struct {
	OK          bool   `json:"ok"`
	Me          Player `json:"me"`
	RateLimited bool   `json:"rate_limited,omitempty"`
}

// ErrorResponse is the failure body for POST /score.
type ErrorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// LeaderboardEntry is one row of GET /leaderboard.
type LeaderboardEntry struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	BestScore   int    `json:"best_score"`
}

// LeaderboardResponse is the body of GET /leaderboard.
type LeaderboardResponse struct {
	Items []LeaderboardEntry `json:"items"`
}
