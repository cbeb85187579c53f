package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"geoguess/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	defaultMaxPlayers = 4
	defaultRoundCount = 3
	minRoomPlayers    = 2
	maxRoomPlayers    = 4
	maxRoundCount     = 5

	// attempts for the whole load-validate-mutate-save cycle before the
	// version conflict is surfaced to the caller
	maxSaveRetries = 5

	rankingDisplayWindow = 5 * time.Second
	roomStateTTL         = 2 * time.Hour
)

// RoomService drives the multiplayer room state machine:
// waiting -> playing -> ranking -> playing ... -> finished.
//
// There is no in-process locking; every command is an independent
// load-validate-mutate-save cycle against the room document, serialized by
// the optimistic version check in RoomRepository.Save and retried on
// conflict.
type RoomService struct {
	rooms   *RoomRepository
	users   *UserDirectory
	history *HistoryService
	redis   *redis.Client
	now     func() time.Time
}

func NewRoomService(db *gorm.DB, redisClient *redis.Client, history *HistoryService) *RoomService {
	return &RoomService{
		rooms:   NewRoomRepository(db),
		users:   NewUserDirectory(db),
		history: history,
		redis:   redisClient,
		now:     time.Now,
	}
}

// GuessResult is what a submitted guess earned, plus whether it closed the
// round.
type GuessResult struct {
	Score             int     `json:"score"`
	FinalDistance     float64 `json:"final_distance"`
	AllPlayersGuessed bool    `json:"all_players_guessed"`
}

type RankingEntry struct {
	Rank       int    `json:"rank"`
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	TotalScore int    `json:"total_score"`
	GameScores []int  `json:"game_scores"`
}

// CreateRoom opens a new waiting room with the host as its sole, ready
// player. The host is pulled out of any other active room first.
func (s *RoomService) CreateRoom(hostID uint, settings models.RoomSettings) (*models.Room, error) {
	if settings.MaxPlayers == 0 {
		settings.MaxPlayers = defaultMaxPlayers
	}
	if settings.RoundCount == 0 {
		settings.RoundCount = defaultRoundCount
	}
	if settings.MaxPlayers < minRoomPlayers || settings.MaxPlayers > maxRoomPlayers ||
		settings.RoundCount < 1 || settings.RoundCount > maxRoundCount {
		return nil, ErrInvalidSettings
	}

	username, err := s.users.DisplayName(hostID)
	if err != nil {
		return nil, err
	}

	if err := s.leaveActiveRooms(hostID, 0); err != nil {
		return nil, err
	}

	// The unique index on room_key is the final arbiter between two
	// allocators racing for the same key; retry the insert on a collision.
	for attempt := 0; attempt < 3; attempt++ {
		key, err := s.AllocateRoomKey()
		if err != nil {
			return nil, err
		}

		room := &models.Room{
			RoomKey:  key,
			HostID:   hostID,
			Status:   models.RoomStatusWaiting,
			Settings: settings,
			Players: models.PlayerList{{
				UserID:     hostID,
				Username:   username,
				IsHost:     true,
				IsReady:    true,
				GameScores: []int{},
			}},
		}

		err = s.rooms.Create(room)
		if err == nil {
			s.cacheRoomState(room)
			return room, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, ErrKeyspaceExhausted
}

// JoinRoom appends the user to a waiting room looked up by its shareable
// key. Like CreateRoom, it pulls the user out of any other active room.
func (s *RoomService) JoinRoom(roomKey string, userID uint) (*models.Room, error) {
	username, err := s.users.DisplayName(userID)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.FindByKey(roomKey)
	if err != nil {
		return nil, err
	}

	if err := s.leaveActiveRooms(userID, room.ID); err != nil {
		return nil, err
	}

	return s.withRoom(room.ID, func(room *models.Room) error {
		if room.Status != models.RoomStatusWaiting {
			return ErrRoomNotJoinable
		}
		if room.HasPlayer(userID) {
			return ErrAlreadyJoined
		}
		if room.IsFull() {
			return ErrRoomFull
		}

		room.Players = append(room.Players, models.Player{
			UserID:     userID,
			Username:   username,
			GameScores: []int{},
		})
		return nil
	})
}

// LeaveRoom removes the user from the room. The first remaining player by
// join order inherits the host role; an emptied room is deleted outright.
// If the departure leaves every remaining player having guessed, the round
// completes as if the last guess had just landed.
//
// The returned room is nil when the room was deleted.
func (s *RoomService) LeaveRoom(roomID uint, userID uint) (*models.Room, error) {
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		room, err := s.rooms.FindByID(roomID)
		if err != nil {
			return nil, err
		}

		player, idx := room.FindPlayer(userID)
		if idx < 0 {
			return nil, ErrNotAParticipant
		}
		wasHost := player.IsHost

		room.Players = append(room.Players[:idx], room.Players[idx+1:]...)

		if len(room.Players) == 0 {
			err := s.rooms.Delete(room)
			if err == nil {
				s.dropRoomState(room.RoomKey)
				return nil, nil
			}
			if errors.Is(err, ErrRoomConflict) {
				// Someone joined between our load and the delete; reload
				// and run the leave against the room they saved.
				continue
			}
			return nil, err
		}

		if wasHost {
			room.Players[0].IsHost = true
			room.HostID = room.Players[0].UserID
		}

		// The departed player may have been the last holdout of the round.
		if room.Status == models.RoomStatusPlaying && room.GameState != nil && room.AllPlayersGuessed() {
			s.enterRanking(room)
		}

		err = s.rooms.Save(room)
		if err == nil {
			s.cacheRoomState(room)
			return room, nil
		}
		if !errors.Is(err, ErrRoomConflict) {
			return nil, err
		}
	}
	return nil, ErrRoomConflict
}

// SetReady flips the user's ready flag. Allowed in any state; it only gates
// Start.
func (s *RoomService) SetReady(roomID uint, userID uint, ready bool) (*models.Room, error) {
	return s.withRoom(roomID, func(room *models.Room) error {
		player, idx := room.FindPlayer(userID)
		if idx < 0 {
			return ErrNotAParticipant
		}
		player.IsReady = ready
		return nil
	})
}

// StartGame begins round 1. Host-only, waiting rooms only, and every player
// of a 2+ roster must be ready.
func (s *RoomService) StartGame(roomID uint, userID uint, target, playerStart models.Location) (*models.Room, error) {
	if !target.Valid() || !playerStart.Valid() {
		return nil, ErrInvalidLocation
	}

	return s.withRoom(roomID, func(room *models.Room) error {
		if room.HostID != userID {
			return ErrNotHost
		}
		if room.Status != models.RoomStatusWaiting {
			return ErrWrongState
		}
		if len(room.Players) < minRoomPlayers {
			return ErrNotEnoughPlayers
		}
		if !room.AllPlayersReady() {
			return ErrNotAllReady
		}

		for i := range room.Players {
			room.Players[i].TotalScore = 0
			room.Players[i].GameScores = []int{}
			room.Players[i].HasGuessed = false
			room.Players[i].RespawnCount = 0
		}

		room.GameState = &models.GameState{
			CurrentRound:        1,
			TargetLocation:      target,
			PlayerStartLocation: playerStart,
			InitialDistance:     HaversineDistance(playerStart, target),
			RoundStartTime:      s.now(),
		}
		room.Status = models.RoomStatusPlaying
		return nil
	})
}

// SubmitGuess scores the user's guess for the current round and records it.
// The guess that completes the roster moves the room to ranking; the
// optimistic save guarantees exactly one call wins that transition.
func (s *RoomService) SubmitGuess(roomID uint, userID uint, guess models.Location, hintUsed bool) (*GuessResult, *models.Room, error) {
	if !guess.Valid() {
		return nil, nil, ErrInvalidLocation
	}

	var result GuessResult
	var round int
	var state models.GameState

	room, err := s.withRoom(roomID, func(room *models.Room) error {
		if room.Status != models.RoomStatusPlaying || room.GameState == nil {
			return ErrRoomNotPlaying
		}

		player, idx := room.FindPlayer(userID)
		if idx < 0 {
			return ErrNotAParticipant
		}
		if player.HasGuessed {
			return ErrAlreadyGuessed
		}

		finalDistance := HaversineDistance(guess, room.GameState.TargetLocation)
		score := CalculateScore(finalDistance, room.GameState.InitialDistance, hintUsed)

		player.GameScores = append(player.GameScores, score)
		player.TotalScore += score
		player.HasGuessed = true

		if room.AllPlayersGuessed() {
			s.enterRanking(room)
		}

		result = GuessResult{
			Score:             score,
			FinalDistance:     finalDistance,
			AllPlayersGuessed: room.GameState.AllPlayersGuessed,
		}
		round = room.GameState.CurrentRound
		state = *room.GameState
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// The guess is durably applied; record the history fact. A failure here
	// must not unwind the accepted guess.
	record := &models.GameRecord{
		UserID:          userID,
		Mode:            models.GameModeMulti,
		RoomID:          &room.ID,
		Round:           round,
		Score:           result.Score,
		InitialDistance: state.InitialDistance,
		FinalDistance:   result.FinalDistance,
		HintUsed:        hintUsed,
		StartLocation:   state.PlayerStartLocation,
		TargetLocation:  state.TargetLocation,
		FinalLocation:   guess,
		PlayedAt:        s.now(),
	}
	if err := s.history.RecordMultiGuess(room, record); err != nil {
		log.Printf("Failed to record guess history for user %d in room %d: %v", userID, room.ID, err)
	}

	return &result, room, nil
}

// AdvanceRound moves a fully-guessed room into its next round with a fresh
// target. Fails once all rounds are played; Complete finishes the game then.
func (s *RoomService) AdvanceRound(roomID uint, target, playerStart models.Location) (*models.Room, error) {
	if !target.Valid() || !playerStart.Valid() {
		return nil, ErrInvalidLocation
	}

	return s.withRoom(roomID, func(room *models.Room) error {
		if room.GameState == nil || !room.GameState.AllPlayersGuessed {
			return ErrRoundNotComplete
		}
		if room.GameState.CurrentRound >= room.Settings.RoundCount {
			return ErrAllRoundsComplete
		}

		for i := range room.Players {
			room.Players[i].HasGuessed = false
			room.Players[i].RespawnCount = 0
		}

		room.GameState.CurrentRound++
		room.GameState.TargetLocation = target
		room.GameState.PlayerStartLocation = playerStart
		room.GameState.InitialDistance = HaversineDistance(playerStart, target)
		room.GameState.RoundStartTime = s.now()
		room.GameState.AllPlayersGuessed = false
		room.GameState.RankingDisplayUntil = nil
		room.Status = models.RoomStatusPlaying
		return nil
	})
}

// CompleteGame finishes a room whose last round is fully guessed: final
// ranking, history stamps and long-run user statistics. Calling it again on
// a finished room returns the ranking without repeating the side effects.
func (s *RoomService) CompleteGame(roomID uint) ([]RankingEntry, *models.Room, error) {
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		room, err := s.rooms.FindByID(roomID)
		if err != nil {
			return nil, nil, err
		}

		if room.Status == models.RoomStatusFinished {
			return CurrentRanking(room), room, nil
		}
		if room.GameState == nil ||
			room.GameState.CurrentRound < room.Settings.RoundCount ||
			!room.GameState.AllPlayersGuessed {
			return nil, nil, ErrRoundsIncomplete
		}

		room.Status = models.RoomStatusFinished

		err = s.rooms.Save(room)
		if err == nil {
			s.cacheRoomState(room)
			ranking := CurrentRanking(room)
			// Only the call that won the finished transition stamps history.
			if err := s.history.CompleteMultiSession(room, ranking); err != nil {
				log.Printf("Failed to stamp session history for room %d: %v", room.ID, err)
			}
			return ranking, room, nil
		}
		if !errors.Is(err, ErrRoomConflict) {
			return nil, nil, err
		}
	}
	return nil, nil, ErrRoomConflict
}

// UpdatePosition stores the player's last known position during play.
func (s *RoomService) UpdatePosition(roomID uint, userID uint, position models.Location) (*models.Room, error) {
	if !position.Valid() {
		return nil, ErrInvalidLocation
	}

	return s.withRoom(roomID, func(room *models.Room) error {
		player, idx := room.FindPlayer(userID)
		if idx < 0 {
			return ErrNotAParticipant
		}
		player.CurrentPosition = &models.PlayerPosition{
			Lat:       position.Lat,
			Lng:       position.Lng,
			UpdatedAt: s.now(),
		}
		return nil
	})
}

// RecordRespawn counts a mid-round respawn; the counter resets each round.
func (s *RoomService) RecordRespawn(roomID uint, userID uint) (*models.Room, error) {
	return s.withRoom(roomID, func(room *models.Room) error {
		player, idx := room.FindPlayer(userID)
		if idx < 0 {
			return ErrNotAParticipant
		}
		player.RespawnCount++
		return nil
	})
}

func (s *RoomService) GetRoom(roomID uint) (*models.Room, error) {
	return s.rooms.FindByID(roomID)
}

func (s *RoomService) GetRoomByKey(roomKey string) (*models.Room, error) {
	return s.rooms.FindByKey(roomKey)
}

// CurrentRanking sorts players by total score descending. The sort is stable
// with no secondary key, so tied players keep their join order; ranks are
// the resulting positions 1..N.
func CurrentRanking(room *models.Room) []RankingEntry {
	players := make([]models.Player, len(room.Players))
	copy(players, room.Players)

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].TotalScore > players[j].TotalScore
	})

	ranking := make([]RankingEntry, len(players))
	for i, p := range players {
		ranking[i] = RankingEntry{
			Rank:       i + 1,
			UserID:     p.UserID,
			Username:   p.Username,
			TotalScore: p.TotalScore,
			GameScores: p.GameScores,
		}
	}
	return ranking
}

// enterRanking flips a fully-guessed room into the ranking display state.
// RankingDisplayUntil is advisory for the presentation layer; the engine
// never auto-advances when it elapses.
func (s *RoomService) enterRanking(room *models.Room) {
	room.Status = models.RoomStatusRanking
	room.GameState.AllPlayersGuessed = true
	until := s.now().Add(rankingDisplayWindow)
	room.GameState.RankingDisplayUntil = &until
}

// withRoom runs one load-validate-mutate-save cycle, retrying the whole
// cycle on an optimistic concurrency conflict.
func (s *RoomService) withRoom(roomID uint, mutate func(room *models.Room) error) (*models.Room, error) {
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		room, err := s.rooms.FindByID(roomID)
		if err != nil {
			return nil, err
		}

		if err := mutate(room); err != nil {
			return nil, err
		}

		err = s.rooms.Save(room)
		if err == nil {
			s.cacheRoomState(room)
			return room, nil
		}
		if !errors.Is(err, ErrRoomConflict) {
			return nil, err
		}
	}
	return nil, ErrRoomConflict
}

// leaveActiveRooms enforces the one-active-room-per-user rule before create
// and join. Absence from a room is not an error here.
func (s *RoomService) leaveActiveRooms(userID uint, exceptRoomID uint) error {
	rooms, err := s.rooms.FindActiveByUser(userID)
	if err != nil {
		return err
	}
	for i := range rooms {
		if rooms[i].ID == exceptRoomID {
			continue
		}
		if _, err := s.LeaveRoom(rooms[i].ID, userID); err != nil &&
			!errors.Is(err, ErrNotAParticipant) && !errors.Is(err, ErrRoomNotFound) {
			return err
		}
	}
	return nil
}

// RunCleanup deletes stale rooms on a fixed schedule: finished rooms after
// an hour, anything untouched for a day. Safe to run at any cadence.
func (s *RoomService) RunCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		now := s.now()
		deleted, err := s.rooms.DeleteStale(now.Add(-1*time.Hour), now.Add(-24*time.Hour))
		if err != nil {
			log.Printf("Room cleanup sweep failed: %v", err)
			continue
		}
		if deleted > 0 {
			log.Printf("Room cleanup sweep removed %d stale rooms", deleted)
		}
	}
}

// cacheRoomState mirrors the saved room into Redis for websocket state sync.
// Best effort: the database copy is authoritative.
func (s *RoomService) cacheRoomState(room *models.Room) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(room)
	if err != nil {
		log.Printf("Failed to marshal room state for %s: %v", room.RoomKey, err)
		return
	}
	if err := s.redis.Set(context.Background(), roomStateKey(room.RoomKey), data, roomStateTTL).Err(); err != nil {
		log.Printf("Failed to cache room state for %s: %v", room.RoomKey, err)
	}
}

func (s *RoomService) dropRoomState(roomKey string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(context.Background(), roomStateKey(roomKey)).Err(); err != nil {
		log.Printf("Failed to drop room state for %s: %v", roomKey, err)
	}
}

// CachedRoomState returns the Redis mirror of the room, falling back to the
// database (and refreshing the cache) on a miss.
func (s *RoomService) CachedRoomState(roomKey string) (*models.Room, error) {
	if s.redis != nil {
		data, err := s.redis.Get(context.Background(), roomStateKey(roomKey)).Result()
		if err == nil {
			var room models.Room
			if err := json.Unmarshal([]byte(data), &room); err == nil {
				return &room, nil
			}
			log.Printf("Failed to unmarshal cached room state for %s", roomKey)
		} else if err != redis.Nil {
			log.Printf("Redis error reading room state for %s: %v", roomKey, err)
		}
	}

	room, err := s.rooms.FindByKey(roomKey)
	if err != nil {
		return nil, err
	}
	s.cacheRoomState(room)
	return room, nil
}

func roomStateKey(roomKey string) string {
	return fmt.Sprintf("room:%s", roomKey)
}
