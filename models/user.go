package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`

	// Long-run statistics, updated as games complete
	SoloGamesPlayed  int `json:"solo_games_played" gorm:"not null;default:0"`
	SoloTotalScore   int `json:"solo_total_score" gorm:"not null;default:0"`
	SoloBestScore    int `json:"solo_best_score" gorm:"not null;default:0"`
	MultiGamesPlayed int `json:"multi_games_played" gorm:"not null;default:0"`
	MultiTotalScore  int `json:"multi_total_score" gorm:"not null;default:0"`
	MultiBestScore   int `json:"multi_best_score" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
