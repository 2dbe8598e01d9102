package websocket

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/protocol"
)

const closeGracePeriod = time.Second

// Conn carries one envelope per WebSocket message.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	ws.SetReadLimit(protocol.MaxFrameSize)

	return &Conn{
		ws:           ws,
		writeTimeout: writeTimeout,
	}
}

func (that *Conn) ReadMessage() (protocol.Message, error) {
	_, data, err := that.ws.ReadMessage()
	if err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			return protocol.Message{}, fmt.Errorf("%w: %w", apperror.ErrFraming, err)
		}

		return protocol.Message{}, fmt.Errorf("%w: %w", apperror.ErrPeerDisconnected, err)
	}

	msg, err := protocol.Unmarshal(data)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("failed to read from %s: %w", that.RemoteAddr(), err)
	}

	return msg, nil
}

func (that *Conn) WriteMessage(msg protocol.Message) error {
	data, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}

	if that.writeTimeout > 0 {
		if err = that.ws.SetWriteDeadline(time.Now().Add(that.writeTimeout)); err != nil {
			return fmt.Errorf("%w: failed to set write deadline: %w", apperror.ErrPeerDisconnected, err)
		}
	}

	if err = that.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: failed to write message: %w", apperror.ErrPeerDisconnected, err)
	}

	return nil
}

func (that *Conn) RemoteAddr() string {
	return that.ws.RemoteAddr().String()
}

// Close - sends a close frame and drops the connection.
func (that *Conn) Close() error {
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed")
	_ = that.ws.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(closeGracePeriod))

	if err := that.ws.Close(); err != nil {
		return fmt.Errorf("failed to close websocket: %w", err)
	}

	return nil
}
