package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
)

const (
	// MaxFrameSize bounds the body of one frame.
	MaxFrameSize = 64 << 10

	headerSize = 4
)

// WriteFrame - writes msg as a 4-byte big-endian length followed by the JSON body.
func WriteFrame(w io.Writer, msg Message) error {
	if msg.Version == 0 {
		msg.Version = Version
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: body of %d bytes exceeds %d", apperror.ErrFraming, len(body), MaxFrameSize)
	}

	buf := make([]byte, headerSize, headerSize+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body))) //nolint: gosec // bounded by MaxFrameSize
	buf = append(buf, body...)

	if _, err = w.Write(buf); err != nil {
		return fmt.Errorf("%w: failed to write frame: %w", apperror.ErrPeerDisconnected, err)
	}

	return nil
}

// ReadFrame - reads one frame. A clean close before a header reports ErrPeerDisconnected;
// a bad length, a truncated body or an undecodable envelope reports ErrFraming.
func ReadFrame(r io.Reader) (Message, error) {
	header, err := readHeader(r)
	if err != nil {
		return Message{}, err
	}

	length := binary.BigEndian.Uint32(header)
	if length == 0 || length > MaxFrameSize {
		return Message{}, fmt.Errorf("%w: invalid frame length %d", apperror.ErrFraming, length)
	}

	body, err := readPayload(r, length)
	if err != nil {
		return Message{}, err
	}

	var msg Message
	if err = json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: failed to decode envelope: %w", apperror.ErrFraming, err)
	}

	if err = validate(msg); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func readHeader(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)

	_, err := io.ReadFull(r, header)
	switch {
	case err == nil:
		return header, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: truncated header", apperror.ErrFraming)
	default:
		return nil, fmt.Errorf("%w: failed to read header: %w", apperror.ErrPeerDisconnected, err)
	}
}

func readPayload(r io.Reader, length uint32) ([]byte, error) {
	body := make([]byte, length)

	_, err := io.ReadFull(r, body)
	switch {
	case err == nil:
		return body, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: truncated body, want %d bytes", apperror.ErrFraming, length)
	default:
		return nil, fmt.Errorf("%w: failed to read body: %w", apperror.ErrPeerDisconnected, err)
	}
}

// Unmarshal - decodes one envelope carried by an already delimited transport message.
func Unmarshal(data []byte) (Message, error) {
	if len(data) == 0 || len(data) > MaxFrameSize {
		return Message{}, fmt.Errorf("%w: invalid message length %d", apperror.ErrFraming, len(data))
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: failed to decode envelope: %w", apperror.ErrFraming, err)
	}

	if err := validate(msg); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// Marshal - encodes msg for transports that delimit messages themselves.
func Marshal(msg Message) ([]byte, error) {
	if msg.Version == 0 {
		msg.Version = Version
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	if len(data) > MaxFrameSize {
		return nil, fmt.Errorf("%w: message of %d bytes exceeds %d", apperror.ErrFraming, len(data), MaxFrameSize)
	}

	return data, nil
}

func validate(msg Message) error {
	if msg.Version != Version {
		return fmt.Errorf("%w: %w %d", apperror.ErrFraming, apperror.ErrUnsupportedVersion, msg.Version)
	}

	if msg.Type == "" {
		return fmt.Errorf("%w: missing message type", apperror.ErrFraming)
	}

	return nil
}
