package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"geoguess/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const soloSessionTTL = 2 * time.Hour

// SoloSession is the whole state of a single-player game: a small value
// round-tripped through Redis between requests. There is no room and no
// roster; the session id is the only handle.
type SoloSession struct {
	ID              string          `json:"id"`
	UserID          uint            `json:"user_id"`
	TargetLocation  models.Location `json:"target_location"`
	StartLocation   models.Location `json:"start_location"`
	InitialDistance float64         `json:"initial_distance"`
	HintUsed        bool            `json:"hint_used"`
	RespawnCount    int             `json:"respawn_count"`
	Completed       bool            `json:"completed"`
	CreatedAt       time.Time       `json:"created_at"`
}

type SoloResult struct {
	Score         int     `json:"score"`
	FinalDistance float64 `json:"final_distance"`
	Session       *SoloSession
}

// SoloService runs the single-player mode. Operations on a missing,
// mismatched or already-completed session fail silently with a nil result;
// a stale client retry is not an error worth surfacing.
type SoloService struct {
	redis   *redis.Client
	history *HistoryService
	now     func() time.Time
}

func NewSoloService(redisClient *redis.Client, history *HistoryService) *SoloService {
	return &SoloService{
		redis:   redisClient,
		history: history,
		now:     time.Now,
	}
}

func (s *SoloService) CreateSession(userID uint, target, start models.Location) (*SoloSession, error) {
	if !target.Valid() || !start.Valid() {
		return nil, ErrInvalidLocation
	}

	session := &SoloSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		TargetLocation:  target,
		StartLocation:   start,
		InitialDistance: HaversineDistance(start, target),
		CreatedAt:       s.now(),
	}

	if err := s.storeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SoloService) GetSession(sessionID string) (*SoloSession, error) {
	return s.loadSession(sessionID)
}

// RecordHint marks the hint as used; the score divisor applies at
// completion. Returns nil on a missing or completed session.
func (s *SoloService) RecordHint(sessionID string) (*SoloSession, error) {
	session, err := s.loadSession(sessionID)
	if err != nil || session == nil || session.Completed {
		return nil, err
	}

	session.HintUsed = true
	if err := s.storeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// RecordRespawn counts a jump back to the start position.
func (s *SoloService) RecordRespawn(sessionID string) (*SoloSession, error) {
	session, err := s.loadSession(sessionID)
	if err != nil || session == nil || session.Completed {
		return nil, err
	}

	session.RespawnCount++
	if err := s.storeSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// CompleteSession scores the final guess, marks the session completed and
// records the outcome in history. Returns nil on a missing or
// already-completed session.
func (s *SoloService) CompleteSession(sessionID string, finalLocation models.Location) (*SoloResult, error) {
	if !finalLocation.Valid() {
		return nil, ErrInvalidLocation
	}

	session, err := s.loadSession(sessionID)
	if err != nil || session == nil || session.Completed {
		return nil, err
	}

	finalDistance := HaversineDistance(finalLocation, session.TargetLocation)
	score := CalculateScore(finalDistance, session.InitialDistance, session.HintUsed)

	session.Completed = true
	if err := s.storeSession(session); err != nil {
		return nil, err
	}

	record := &models.GameRecord{
		UserID:          session.UserID,
		Mode:            models.GameModeSolo,
		Score:           score,
		InitialDistance: session.InitialDistance,
		FinalDistance:   finalDistance,
		HintUsed:        session.HintUsed,
		StartLocation:   session.StartLocation,
		TargetLocation:  session.TargetLocation,
		FinalLocation:   finalLocation,
		PlayedAt:        s.now(),
	}
	if err := s.history.RecordSoloCompletion(record); err != nil {
		log.Printf("Failed to record solo history for user %d: %v", session.UserID, err)
	}

	return &SoloResult{
		Score:         score,
		FinalDistance: finalDistance,
		Session:       session,
	}, nil
}

func (s *SoloService) storeSession(session *SoloSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal solo session: %w", err)
	}
	return s.redis.Set(context.Background(), soloSessionKey(session.ID), data, soloSessionTTL).Err()
}

func (s *SoloService) loadSession(sessionID string) (*SoloSession, error) {
	data, err := s.redis.Get(context.Background(), soloSessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session SoloSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		log.Printf("Failed to unmarshal solo session %s: %v", sessionID, err)
		return nil, nil
	}
	return &session, nil
}

func soloSessionKey(sessionID string) string {
	return "solo:" + sessionID
}
