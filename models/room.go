package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusRanking  RoomStatus = "ranking"
	RoomStatusFinished RoomStatus = "finished"
)

// Room is the multiplayer session aggregate. Players, settings and the
// per-round game state are stored as JSON columns so that every mutation is a
// single-row atomic save; Version backs the optimistic concurrency check on
// that save.
type Room struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	RoomKey   string       `json:"room_key" gorm:"uniqueIndex;not null"`
	HostID    uint         `json:"host_id" gorm:"not null"`
	Status    RoomStatus   `json:"status" gorm:"not null;default:'waiting'"`
	Players   PlayerList   `json:"players" gorm:"type:jsonb;not null"`
	Settings  RoomSettings `json:"settings" gorm:"type:jsonb;not null"`
	GameState *GameState   `json:"game_state,omitempty" gorm:"type:jsonb"`
	Version   int          `json:"-" gorm:"not null;default:0"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Player is embedded in the room document, never persisted on its own.
// List position is insertion order and is meaningful: host succession and
// ranking tie-breaks both use it.
type Player struct {
	UserID          uint            `json:"user_id"`
	Username        string          `json:"username"`
	IsHost          bool            `json:"is_host"`
	IsReady         bool            `json:"is_ready"`
	TotalScore      int             `json:"total_score"`
	GameScores      []int           `json:"game_scores"`
	HasGuessed      bool            `json:"has_guessed"`
	RespawnCount    int             `json:"respawn_count"`
	CurrentPosition *PlayerPosition `json:"current_position,omitempty"`
}

type PlayerPosition struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RoomSettings struct {
	MaxPlayers int `json:"max_players"`
	RoundCount int `json:"round_count"`
}

// GameState exists only once the first round has started; a waiting room has
// a nil GameState.
type GameState struct {
	CurrentRound        int        `json:"current_round"`
	TargetLocation      Location   `json:"target_location"`
	PlayerStartLocation Location   `json:"player_start_location"`
	InitialDistance     float64    `json:"initial_distance"`
	RoundStartTime      time.Time  `json:"round_start_time"`
	AllPlayersGuessed   bool       `json:"all_players_guessed"`
	RankingDisplayUntil *time.Time `json:"ranking_display_until,omitempty"`
}

type PlayerList []Player

func (p PlayerList) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PlayerList) Scan(value interface{}) error {
	return scanJSON(value, p)
}

func (s RoomSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *RoomSettings) Scan(value interface{}) error {
	return scanJSON(value, s)
}

func (g *GameState) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return json.Marshal(g)
}

func (g *GameState) Scan(value interface{}) error {
	return scanJSON(value, g)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.New("unsupported type for JSON column")
	}
}

// FindPlayer returns the player entry for userID and its list index, or nil
// and -1 if the user is not in the room.
func (r *Room) FindPlayer(userID uint) (*Player, int) {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i], i
		}
	}
	return nil, -1
}

func (r *Room) HasPlayer(userID uint) bool {
	_, idx := r.FindPlayer(userID)
	return idx >= 0
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= r.Settings.MaxPlayers
}

// AllPlayersReady requires at least 2 players; a lone ready host is not a
// startable room.
func (r *Room) AllPlayersReady() bool {
	if len(r.Players) < 2 {
		return false
	}
	for i := range r.Players {
		if !r.Players[i].IsReady {
			return false
		}
	}
	return true
}

func (r *Room) AllPlayersGuessed() bool {
	if len(r.Players) == 0 {
		return false
	}
	for i := range r.Players {
		if !r.Players[i].HasGuessed {
			return false
		}
	}
	return true
}

// IsActive reports whether the room still holds its players (a finished room
// no longer counts toward the one-active-room-per-user rule).
func (r *Room) IsActive() bool {
	return r.Status == RoomStatusWaiting || r.Status == RoomStatusPlaying || r.Status == RoomStatusRanking
}
