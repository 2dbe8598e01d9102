// Package protocol defines the versioned messages exchanged between the server and its peers
// and the length-prefixed framing used on raw streams.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
)

const Version = 1

type Type string

// server to peer.
const (
	TypeAssignSymbol     Type = "assign_symbol"
	TypeStateUpdate      Type = "state_update"
	TypeGameResult       Type = "game_result"
	TypeRematchPrompt    Type = "rematch_prompt"
	TypePeerDisconnected Type = "peer_disconnected"
	TypeSessionClosed    Type = "session_closed"
	TypeError            Type = "error"
)

// peer to server.
const (
	TypeMove        Type = "move"
	TypeRematchVote Type = "rematch_vote"
)

// Message is the envelope every payload travels in.
type Message struct {
	Version int             `json:"v"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type AssignSymbol struct {
	Symbol    entity.Symbol `json:"symbol"`
	SessionID string        `json:"session_id"`
	BoardSize int           `json:"board_size"`
}

type StateUpdate struct {
	Board        [][]entity.Symbol `json:"board"`
	ActiveSymbol entity.Symbol     `json:"active_symbol"`
	Round        int               `json:"round"`
}

type GameResult struct {
	Outcome entity.Outcome `json:"outcome"`
}

type RematchPrompt struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// RematchVote leaves Yes nil when the answer is missing.
type RematchVote struct {
	Yes *bool `json:"yes"`
}

// Move leaves a coordinate nil when the peer omitted it.
type Move struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

func NewMove(row, col int) Move {
	return Move{Row: &row, Col: &col}
}

func NewRematchVote(yes bool) RematchVote {
	return RematchVote{Yes: &yes}
}

type PeerDisconnected struct{}

type SessionClosed struct {
	Reason string `json:"reason"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Reasons carried by SessionClosed.
const (
	ReasonRematchDeclined = "rematch_declined"
	ReasonRematchTimeout  = "rematch_timeout"
	ReasonMoveTimeout     = "move_timeout"
	ReasonPeerLeft        = "peer_disconnected"
	ReasonProtocolError   = "protocol_error"
	ReasonServerShutdown  = "server_shutdown"
)

// New - wraps payload into a current-version envelope.
func New(msgType Type, payload any) (Message, error) {
	msg := Message{Version: Version, Type: msgType}

	if payload == nil {
		return msg, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}

	msg.Payload = raw

	return msg, nil
}

// MustNew - like New, for payloads that always marshal.
func MustNew(msgType Type, payload any) Message {
	msg, err := New(msgType, payload)
	if err != nil {
		panic(err)
	}

	return msg
}

// Decode - unmarshals the payload of msg into a T.
func Decode[T any](msg Message) (T, error) {
	var payload T

	if msg.Version != Version {
		return payload, fmt.Errorf("%w: %d", apperror.ErrUnsupportedVersion, msg.Version)
	}

	if len(msg.Payload) == 0 {
		return payload, fmt.Errorf("%w: %s without payload", apperror.ErrFraming, msg.Type)
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s payload: %w", apperror.ErrFraming, msg.Type, err)
	}

	return payload, nil
}

func NewError(err error) Message {
	return MustNew(TypeError, Error{Code: ErrorCode(err), Message: err.Error()})
}

// ErrorCode - maps an error to its stable wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, apperror.ErrOccupiedCell):
		return "occupied_cell"
	case errors.Is(err, apperror.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, apperror.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, apperror.ErrInvalidVote):
		return "invalid_vote"
	case errors.Is(err, apperror.ErrGameFinished):
		return "game_finished"
	case errors.Is(err, apperror.ErrGameIsNotStarted):
		return "game_not_started"
	case errors.Is(err, apperror.ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, apperror.ErrUnsupportedMessage):
		return "unsupported_message"
	case errors.Is(err, apperror.ErrFraming):
		return "framing_error"
	case errors.Is(err, apperror.ErrPeerDisconnected):
		return "peer_disconnected"
	default:
		return "internal"
	}
}
