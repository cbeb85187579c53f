package models

import (
	"time"
)

type GameMode string

const (
	GameModeSolo  GameMode = "solo"
	GameModeMulti GameMode = "multi"
)

// GameRecord is an immutable fact: one player's outcome for one round.
// Created once when a guess (or solo session) completes, never updated.
type GameRecord struct {
	ID              uint     `json:"id" gorm:"primaryKey"`
	UserID          uint     `json:"user_id" gorm:"not null;index"`
	Mode            GameMode `json:"mode" gorm:"not null"`
	RoomID          *uint    `json:"room_id,omitempty" gorm:"index"`
	Round           int      `json:"round"`
	Score           int      `json:"score" gorm:"not null"`
	InitialDistance float64  `json:"initial_distance" gorm:"not null"`
	FinalDistance   float64  `json:"final_distance" gorm:"not null"`
	HintUsed        bool     `json:"hint_used" gorm:"not null;default:false"`

	StartLocation  Location `json:"start_location" gorm:"embedded;embeddedPrefix:start_"`
	TargetLocation Location `json:"target_location" gorm:"embedded;embeddedPrefix:target_"`
	FinalLocation  Location `json:"final_location" gorm:"embedded;embeddedPrefix:final_"`

	PlayedAt  time.Time `json:"played_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
