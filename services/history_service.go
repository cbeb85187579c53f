package services

import (
	"errors"

	"geoguess/models"

	"gorm.io/gorm"
)

// HistoryService persists the durable outcomes of play: immutable per-round
// GameRecord facts, per-session MultiGameRecord aggregates, and the long-run
// statistics on the user row.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// RecordMultiGuess stores the round fact and folds it into the player's
// session aggregate. A completed aggregate stays score-immutable, so a late
// record is still persisted as a fact but no longer counted.
func (s *HistoryService) RecordMultiGuess(room *models.Room, record *models.GameRecord) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(record).Error; err != nil {
		tx.Rollback()
		return err
	}

	var aggregate models.MultiGameRecord
	err := tx.Where("room_id = ? AND user_id = ?", room.ID, record.UserID).First(&aggregate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		aggregate = models.MultiGameRecord{
			RoomID:        room.ID,
			UserID:        record.UserID,
			GameRecordIDs: models.UintList{},
		}
	} else if err != nil {
		tx.Rollback()
		return err
	}

	if !aggregate.IsCompleted && aggregate.RoundsPlayed < room.Settings.RoundCount {
		n := float64(aggregate.RoundsPlayed)
		aggregate.GameRecordIDs = append(aggregate.GameRecordIDs, record.ID)
		aggregate.RoundsPlayed++
		aggregate.TotalScore += record.Score
		aggregate.AverageScore = float64(aggregate.TotalScore) / float64(aggregate.RoundsPlayed)
		aggregate.AverageDistance = (aggregate.AverageDistance*n + record.FinalDistance) / float64(aggregate.RoundsPlayed)
		if aggregate.RoundsPlayed >= room.Settings.RoundCount {
			aggregate.IsCompleted = true
		}

		if err := tx.Save(&aggregate).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}

// CompleteMultiSession stamps every participant's aggregate with the final
// ranking and an opponent snapshot, and rolls the outcome into their
// long-run multiplayer statistics. The ranking stamp is the idempotency
// marker, since the aggregate itself completes as soon as its last round
// record attaches; a repeated call has no further effect.
func (s *HistoryService) CompleteMultiSession(room *models.Room, ranking []RankingEntry) error {
	for _, entry := range ranking {
		var aggregate models.MultiGameRecord
		err := s.db.Where("room_id = ? AND user_id = ?", room.ID, entry.UserID).First(&aggregate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if aggregate.FinalRanking != 0 {
			continue
		}

		opponents := make(models.OpponentScoreList, 0, len(ranking)-1)
		for _, other := range ranking {
			if other.UserID == entry.UserID {
				continue
			}
			opponents = append(opponents, models.OpponentScore{
				UserID:     other.UserID,
				Username:   other.Username,
				TotalScore: other.TotalScore,
				Ranking:    other.Rank,
			})
		}

		aggregate.IsCompleted = true
		aggregate.FinalRanking = entry.Rank
		aggregate.TotalPlayers = len(ranking)
		aggregate.OpponentScores = opponents

		if err := s.db.Save(&aggregate).Error; err != nil {
			return err
		}

		if err := s.updateMultiStats(entry.UserID, entry.TotalScore); err != nil {
			return err
		}
	}
	return nil
}

// RecordSoloCompletion stores the solo session fact and updates the user's
// solo statistics.
func (s *HistoryService) RecordSoloCompletion(record *models.GameRecord) error {
	if err := s.db.Create(record).Error; err != nil {
		return err
	}

	var user models.User
	if err := s.db.First(&user, record.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	user.SoloGamesPlayed++
	user.SoloTotalScore += record.Score
	if record.Score > user.SoloBestScore {
		user.SoloBestScore = record.Score
	}
	return s.db.Save(&user).Error
}

func (s *HistoryService) updateMultiStats(userID uint, sessionScore int) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	user.MultiGamesPlayed++
	user.MultiTotalScore += sessionScore
	if sessionScore > user.MultiBestScore {
		user.MultiBestScore = sessionScore
	}
	return s.db.Save(&user).Error
}

// ListRecords returns the user's recent round facts, newest first,
// optionally filtered by mode.
func (s *HistoryService) ListRecords(userID uint, mode models.GameMode, limit int) ([]models.GameRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.db.Where("user_id = ?", userID)
	if mode != "" {
		query = query.Where("mode = ?", mode)
	}

	var records []models.GameRecord
	err := query.Order("played_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// ListMultiSessions returns the user's multiplayer session aggregates,
// newest first.
func (s *HistoryService) ListMultiSessions(userID uint, limit int) ([]models.MultiGameRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var sessions []models.MultiGameRecord
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&sessions).Error
	return sessions, err
}
