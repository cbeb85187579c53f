package services

import (
	"fmt"
	"math/rand"
)

const (
	roomKeyMin     = 100000
	roomKeyMax     = 999999
	maxKeyAttempts = 1000
)

// AllocateRoomKey draws 6-digit keys at random until it finds one no existing
// room holds. The unique index on room_key remains the final arbiter against
// two allocators racing for the same draw; create retries allocation when
// that index rejects an insert.
func (s *RoomService) AllocateRoomKey() (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := fmt.Sprintf("%06d", roomKeyMin+rand.Intn(roomKeyMax-roomKeyMin+1))

		exists, err := s.rooms.KeyExists(key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
	}
	return "", ErrKeyspaceExhausted
}
