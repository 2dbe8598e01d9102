package usecase

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/gato-backend/internal/protocol"
)

const inboundBuffer = 16

// Conn is a message-oriented connection to one peer. Reads and writes may run concurrently
// with each other, but never with themselves.
type Conn interface {
	ReadMessage() (protocol.Message, error)
	WriteMessage(msg protocol.Message) error
	RemoteAddr() string
	Close() error
}

// peer owns one connection and its listener goroutine.
type peer struct {
	id      string
	conn    Conn
	inbound chan protocol.Message

	done   chan struct{}
	paired chan struct{}
	quit   chan struct{}
	once   sync.Once
	err    error
}

func newPeer(conn Conn) *peer {
	return &peer{
		id:      uuid.NewString(),
		conn:    conn,
		inbound: make(chan protocol.Message, inboundBuffer),
		done:    make(chan struct{}),
		paired:  make(chan struct{}),
		quit:    make(chan struct{}),
	}
}

// listen - forwards messages until the connection fails or the peer is closed.
func (that *peer) listen() {
	defer close(that.done)

	for {
		msg, err := that.conn.ReadMessage()
		if err != nil {
			that.err = err
			return
		}

		select {
		case that.inbound <- msg:
		case <-that.quit:
			return
		}
	}
}

// cause - reports why the listener stopped; valid once done is closed.
func (that *peer) cause() error {
	<-that.done
	return that.err
}

func (that *peer) gone() bool {
	select {
	case <-that.done:
		return true
	default:
		return false
	}
}

func (that *peer) close() {
	that.once.Do(func() {
		close(that.quit)
		_ = that.conn.Close()
	})
}
