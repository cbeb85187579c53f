package services

import (
	"errors"
	"time"

	"geoguess/models"

	"gorm.io/gorm"
)

// RoomRepository is the persistence port for the Room aggregate. Every write
// is a single-row save; Save enforces optimistic concurrency through the
// room's version column.
type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) FindByID(roomID uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) FindByKey(roomKey string) (*models.Room, error) {
	var room models.Room
	if err := r.db.Where("room_key = ?", roomKey).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) KeyExists(roomKey string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Room{}).Where("room_key = ?", roomKey).Count(&count).Error
	return count > 0, err
}

// FindActiveByUser returns every non-finished room the user is listed in.
// Membership lives inside the players JSON column, so this scans the small
// set of live rooms rather than relying on an index.
func (r *RoomRepository) FindActiveByUser(userID uint) ([]models.Room, error) {
	var rooms []models.Room
	statuses := []models.RoomStatus{models.RoomStatusWaiting, models.RoomStatusPlaying, models.RoomStatusRanking}
	if err := r.db.Where("status IN ?", statuses).Find(&rooms).Error; err != nil {
		return nil, err
	}

	var active []models.Room
	for i := range rooms {
		if rooms[i].HasPlayer(userID) {
			active = append(active, rooms[i])
		}
	}
	return active, nil
}

func (r *RoomRepository) Create(room *models.Room) error {
	return r.db.Create(room).Error
}

// Save persists the full aggregate if and only if nobody else saved it since
// it was loaded. On a version mismatch nothing is written and ErrRoomConflict
// is returned; the caller reloads and retries its whole mutation.
func (r *RoomRepository) Save(room *models.Room) error {
	loadedVersion := room.Version
	room.Version = loadedVersion + 1

	result := r.db.Model(&models.Room{}).
		Where("id = ? AND version = ?", room.ID, loadedVersion).
		Select("host_id", "status", "players", "settings", "game_state", "version", "updated_at").
		Updates(room)
	if result.Error != nil {
		room.Version = loadedVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		room.Version = loadedVersion
		return ErrRoomConflict
	}
	return nil
}

// Delete removes the room outright. Rooms are deleted, not archived, once
// their last player leaves. Like Save, the delete only lands on the version
// the caller loaded; a concurrent save (a join racing the last leave) makes
// the delete a no-op and the caller reloads.
func (r *RoomRepository) Delete(room *models.Room) error {
	result := r.db.Where("id = ? AND version = ?", room.ID, room.Version).
		Delete(&models.Room{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoomConflict
	}
	return nil
}

// DeleteStale removes finished or abandoned rooms for the cleanup sweep.
func (r *RoomRepository) DeleteStale(finishedBefore, idleBefore time.Time) (int64, error) {
	result := r.db.Where("(status = ? AND updated_at < ?) OR updated_at < ?",
		models.RoomStatusFinished, finishedBefore, idleBefore).
		Delete(&models.Room{})
	return result.RowsAffected, result.Error
}
