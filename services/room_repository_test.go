package services

import (
	"errors"
	"testing"
	"time"

	"geoguess/models"
)

func seedRoom(t *testing.T, repo *RoomRepository, key string) *models.Room {
	t.Helper()
	room := &models.Room{
		RoomKey: key,
		HostID:  1,
		Status:  models.RoomStatusWaiting,
		Players: models.PlayerList{{UserID: 1, Username: "alice", IsHost: true, IsReady: true, GameScores: []int{}}},
		Settings: models.RoomSettings{
			MaxPlayers: 4,
			RoundCount: 3,
		},
	}
	if err := repo.Create(room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func TestRoomSaveOptimisticConflict(t *testing.T) {
	repo := NewRoomRepository(newTestDB(t))
	room := seedRoom(t, repo, "123456")

	first, err := repo.FindByID(room.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := repo.FindByID(room.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	first.Players[0].IsReady = false
	if err := repo.Save(first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// the second copy is now stale; its save must not silently win
	second.Players[0].IsReady = true
	if err := repo.Save(second); !errors.Is(err, ErrRoomConflict) {
		t.Fatalf("stale save err = %v, want ErrRoomConflict", err)
	}

	reloaded, _ := repo.FindByID(room.ID)
	if reloaded.Players[0].IsReady {
		t.Error("stale save overwrote the fresh write")
	}
	if reloaded.Version != first.Version {
		t.Errorf("version = %d, want %d", reloaded.Version, first.Version)
	}
}

func TestRoomDeleteStaleVersionRefused(t *testing.T) {
	repo := NewRoomRepository(newTestDB(t))
	room := seedRoom(t, repo, "135790")

	// alice's leave loads the room and empties the roster
	stale, err := repo.FindByID(room.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	stale.Players = models.PlayerList{}

	// bob's join commits in between
	fresh, err := repo.FindByID(room.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fresh.Players = append(fresh.Players, models.Player{UserID: 2, Username: "bob", GameScores: []int{}})
	if err := repo.Save(fresh); err != nil {
		t.Fatalf("join save: %v", err)
	}

	// the stale delete must not land on bob's committed membership
	if err := repo.Delete(stale); !errors.Is(err, ErrRoomConflict) {
		t.Fatalf("stale delete err = %v, want ErrRoomConflict", err)
	}

	reloaded, err := repo.FindByID(room.ID)
	if err != nil {
		t.Fatalf("room deleted out from under a committed join: %v", err)
	}
	if !reloaded.HasPlayer(2) {
		t.Error("join was lost")
	}

	if err := repo.Delete(reloaded); err != nil {
		t.Fatalf("current-version delete: %v", err)
	}
	if _, err := repo.FindByID(room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("room survived a current-version delete: %v", err)
	}
}

func TestRoomSaveBumpsVersion(t *testing.T) {
	repo := NewRoomRepository(newTestDB(t))
	room := seedRoom(t, repo, "234567")

	v := room.Version
	room.Status = models.RoomStatusPlaying
	if err := repo.Save(room); err != nil {
		t.Fatalf("save: %v", err)
	}
	if room.Version != v+1 {
		t.Errorf("version = %d, want %d", room.Version, v+1)
	}
}

func TestRoomKeyUniqueIndex(t *testing.T) {
	repo := NewRoomRepository(newTestDB(t))
	seedRoom(t, repo, "345678")

	dup := &models.Room{
		RoomKey:  "345678",
		HostID:   2,
		Status:   models.RoomStatusWaiting,
		Players:  models.PlayerList{},
		Settings: models.RoomSettings{MaxPlayers: 4, RoundCount: 3},
	}
	if err := repo.Create(dup); err == nil {
		t.Fatal("duplicate room key accepted")
	}
}

func TestFindByKey(t *testing.T) {
	repo := NewRoomRepository(newTestDB(t))
	room := seedRoom(t, repo, "456789")

	found, err := repo.FindByKey("456789")
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if found.ID != room.ID {
		t.Errorf("found room %d, want %d", found.ID, room.ID)
	}
	if len(found.Players) != 1 || found.Players[0].Username != "alice" {
		t.Errorf("players did not round-trip: %+v", found.Players)
	}

	if _, err := repo.FindByKey("999999"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("missing key err = %v, want ErrRoomNotFound", err)
	}
}

func TestDeleteStale(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoomRepository(db)

	finished := seedRoom(t, repo, "567890")
	finished.Status = models.RoomStatusFinished
	if err := repo.Save(finished); err != nil {
		t.Fatalf("save: %v", err)
	}
	fresh := seedRoom(t, repo, "678901")

	// age the finished room past the cleanup threshold
	old := time.Now().Add(-2 * time.Hour)
	if err := db.Exec("UPDATE rooms SET updated_at = ? WHERE id = ?", old, finished.ID).Error; err != nil {
		t.Fatalf("age room: %v", err)
	}

	now := time.Now()
	deleted, err := repo.DeleteStale(now.Add(-1*time.Hour), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteStale: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := repo.FindByID(finished.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Error("stale finished room survived the sweep")
	}
	if _, err := repo.FindByID(fresh.ID); err != nil {
		t.Errorf("fresh room was swept: %v", err)
	}
}

func TestAllocateRoomKeyFormat(t *testing.T) {
	svc, _ := newTestRoomService(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		key, err := svc.AllocateRoomKey()
		if err != nil {
			t.Fatalf("AllocateRoomKey: %v", err)
		}
		if len(key) != 6 {
			t.Fatalf("key %q is not 6 digits", key)
		}
		for _, c := range key {
			if c < '0' || c > '9' {
				t.Fatalf("key %q contains a non-digit", key)
			}
		}
		if key[0] == '0' {
			t.Fatalf("key %q has a leading zero", key)
		}
		seen[key] = true
	}
	if len(seen) < 2 {
		t.Error("allocator produced a single key 20 times")
	}
}
