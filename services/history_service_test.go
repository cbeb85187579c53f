package services

import (
	"testing"
	"time"

	"geoguess/models"
)

func multiRecord(userID uint, roomID uint, round, score int, distance float64) *models.GameRecord {
	return &models.GameRecord{
		UserID:          userID,
		Mode:            models.GameModeMulti,
		RoomID:          &roomID,
		Round:           round,
		Score:           score,
		InitialDistance: 800,
		FinalDistance:   distance,
		PlayedAt:        time.Now(),
	}
}

func TestRecordMultiGuessAggregates(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryService(db)
	room := &models.Room{ID: 1, Settings: models.RoomSettings{MaxPlayers: 2, RoundCount: 3}}

	if err := history.RecordMultiGuess(room, multiRecord(10, room.ID, 1, 5000, 0)); err != nil {
		t.Fatalf("record round 1: %v", err)
	}
	if err := history.RecordMultiGuess(room, multiRecord(10, room.ID, 2, 3000, 400)); err != nil {
		t.Fatalf("record round 2: %v", err)
	}

	var aggregate models.MultiGameRecord
	if err := db.Where("room_id = ? AND user_id = ?", room.ID, 10).First(&aggregate).Error; err != nil {
		t.Fatalf("load aggregate: %v", err)
	}
	if aggregate.RoundsPlayed != 2 || aggregate.TotalScore != 8000 {
		t.Errorf("aggregate = %+v", aggregate)
	}
	if aggregate.AverageScore != 4000 {
		t.Errorf("average score = %v, want 4000", aggregate.AverageScore)
	}
	if aggregate.AverageDistance != 200 {
		t.Errorf("average distance = %v, want 200", aggregate.AverageDistance)
	}
	if len(aggregate.GameRecordIDs) != 2 {
		t.Errorf("record refs = %v", aggregate.GameRecordIDs)
	}
}

func TestAggregateCompletesAtFinalRound(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryService(db)
	room := &models.Room{ID: 3, Settings: models.RoomSettings{MaxPlayers: 2, RoundCount: 2}}

	if err := history.RecordMultiGuess(room, multiRecord(10, room.ID, 1, 5000, 0)); err != nil {
		t.Fatalf("record round 1: %v", err)
	}
	if err := history.RecordMultiGuess(room, multiRecord(10, room.ID, 2, 3000, 400)); err != nil {
		t.Fatalf("record round 2: %v", err)
	}

	// the aggregate completes the moment its last round attaches, even if
	// the room is abandoned and the session is never formally ended
	var aggregate models.MultiGameRecord
	if err := db.Where("room_id = ? AND user_id = ?", room.ID, 10).First(&aggregate).Error; err != nil {
		t.Fatalf("load aggregate: %v", err)
	}
	if !aggregate.IsCompleted {
		t.Error("aggregate not completed at final round")
	}
	if aggregate.FinalRanking != 0 {
		t.Errorf("final ranking = %d before session end", aggregate.FinalRanking)
	}

	// the formal session end still stamps the ranking afterwards
	ranking := []RankingEntry{{Rank: 1, UserID: 10, Username: "alice", TotalScore: 8000}}
	if err := history.CompleteMultiSession(room, ranking); err != nil {
		t.Fatalf("complete: %v", err)
	}
	db.Where("room_id = ? AND user_id = ?", room.ID, 10).First(&aggregate)
	if aggregate.FinalRanking != 1 || aggregate.TotalPlayers != 1 {
		t.Errorf("session end did not stamp the completed aggregate: %+v", aggregate)
	}
}

func TestCompletedAggregateIsScoreImmutable(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryService(db)
	room := &models.Room{ID: 2, Settings: models.RoomSettings{MaxPlayers: 2, RoundCount: 1}}

	if err := history.RecordMultiGuess(room, multiRecord(10, room.ID, 1, 5000, 0)); err != nil {
		t.Fatalf("record: %v", err)
	}

	ranking := []RankingEntry{{Rank: 1, UserID: 10, Username: "alice", TotalScore: 5000}}
	if err := history.CompleteMultiSession(room, ranking); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// a straggler after completion is stored as a fact but not counted
	if err := history.RecordMultiGuess(room, multiRecord(10, room.ID, 2, 4000, 100)); err != nil {
		t.Fatalf("late record: %v", err)
	}

	var aggregate models.MultiGameRecord
	db.Where("room_id = ? AND user_id = ?", room.ID, 10).First(&aggregate)
	if aggregate.TotalScore != 5000 || aggregate.RoundsPlayed != 1 {
		t.Errorf("completed aggregate mutated: %+v", aggregate)
	}

	var facts int64
	db.Model(&models.GameRecord{}).Where("user_id = ?", 10).Count(&facts)
	if facts != 2 {
		t.Errorf("fact count = %d, want 2", facts)
	}
}

func TestListRecordsFiltersAndOrders(t *testing.T) {
	db := newTestDB(t)
	history := NewHistoryService(db)
	user := createTestUser(t, db, "alice")

	older := &models.GameRecord{
		UserID:   user.ID,
		Mode:     models.GameModeSolo,
		Score:    1000,
		PlayedAt: time.Now().Add(-time.Hour),
	}
	newer := &models.GameRecord{
		UserID:   user.ID,
		Mode:     models.GameModeSolo,
		Score:    2000,
		PlayedAt: time.Now(),
	}
	roomID := uint(5)
	multi := &models.GameRecord{
		UserID:   user.ID,
		Mode:     models.GameModeMulti,
		RoomID:   &roomID,
		Score:    3000,
		PlayedAt: time.Now().Add(-2 * time.Hour),
	}
	for _, r := range []*models.GameRecord{older, newer, multi} {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}

	solo, err := history.ListRecords(user.ID, models.GameModeSolo, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(solo) != 2 || solo[0].Score != 2000 {
		t.Errorf("solo records = %+v", solo)
	}

	all, err := history.ListRecords(user.ID, "", 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all records = %d, want 3", len(all))
	}

	limited, err := history.ListRecords(user.ID, "", 1)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited records = %d, want 1", len(limited))
	}
}
