package services

import "errors"

// Engine-level failures. Handlers map these onto HTTP statuses; nothing here
// is fatal to the process.
var (
	// not found
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")

	// permission
	ErrNotHost = errors.New("only the host can perform this action")

	// invalid state
	ErrRoomNotJoinable   = errors.New("room is not accepting players")
	ErrRoomNotPlaying    = errors.New("room is not in a playing state")
	ErrWrongState        = errors.New("operation not allowed in current room state")
	ErrRoundNotComplete  = errors.New("current round is not complete")
	ErrAllRoundsComplete = errors.New("all rounds have been played")
	ErrRoundsIncomplete  = errors.New("game has rounds remaining")

	// precondition
	ErrRoomFull         = errors.New("room is full")
	ErrAlreadyJoined    = errors.New("user is already in this room")
	ErrNotAParticipant  = errors.New("user is not a participant of this room")
	ErrNotAllReady      = errors.New("not all players are ready")
	ErrAlreadyGuessed   = errors.New("guess already submitted for this round")
	ErrNotEnoughPlayers = errors.New("at least 2 players are required")

	// input
	ErrInvalidLocation = errors.New("coordinates out of range")
	ErrInvalidSettings = errors.New("invalid room settings")

	// concurrency
	ErrRoomConflict = errors.New("room was modified concurrently")

	// allocation
	ErrKeyspaceExhausted = errors.New("could not allocate a free room key")
)
