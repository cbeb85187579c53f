package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// MultiGameRecord aggregates one player's rounds in one multiplayer session.
// Round references are appended until RoundsPlayed reaches the room's round
// count; the completion stamp (ranking fields) is written exactly once.
type MultiGameRecord struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	RoomID uint `json:"room_id" gorm:"not null;index:idx_multi_room_user,unique"`
	UserID uint `json:"user_id" gorm:"not null;index:idx_multi_room_user,unique"`

	GameRecordIDs   UintList `json:"game_record_ids" gorm:"type:jsonb;not null"`
	RoundsPlayed    int      `json:"rounds_played" gorm:"not null;default:0"`
	TotalScore      int      `json:"total_score" gorm:"not null;default:0"`
	AverageScore    float64  `json:"average_score" gorm:"not null;default:0"`
	AverageDistance float64  `json:"average_distance" gorm:"not null;default:0"`

	IsCompleted    bool              `json:"is_completed" gorm:"not null;default:false"`
	FinalRanking   int               `json:"final_ranking"`
	TotalPlayers   int               `json:"total_players"`
	OpponentScores OpponentScoreList `json:"opponent_scores" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OpponentScore struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	TotalScore int    `json:"total_score"`
	Ranking    int    `json:"ranking"`
}

type UintList []uint

func (l UintList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *UintList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

type OpponentScoreList []OpponentScore

func (l OpponentScoreList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *OpponentScoreList) Scan(value interface{}) error {
	return scanJSON(value, l)
}
