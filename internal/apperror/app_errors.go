package apperror

import "errors"

// board level.
var (
	ErrOccupiedCell  = errors.New("cell is already occupied")
	ErrOutOfRange    = errors.New("cell is out of range")
	ErrInvalidSymbol = errors.New("invalid player symbol")
)

// session level, the peer is re-prompted.
var (
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrInvalidVote      = errors.New("invalid rematch vote")
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrSessionFull      = errors.New("session already has two players")
	ErrUnknownPeer      = errors.New("peer is not attached to the session")
)

// transport level, fatal to the session.
var (
	ErrPeerDisconnected   = errors.New("peer disconnected")
	ErrFraming            = errors.New("malformed frame")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrUnsupportedMessage = errors.New("unsupported message type")
	ErrSessionClosed      = errors.New("session is closed")
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNoAvailableMoves = errors.New("no available moves")
)
