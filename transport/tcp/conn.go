package tcp

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/gato-backend/internal/protocol"
)

// Conn carries length-prefixed frames over a stream socket.
type Conn struct {
	conn         net.Conn
	reader       *bufio.Reader
	writeTimeout time.Duration

	writeMu sync.Mutex
}

func NewConn(conn net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writeTimeout: writeTimeout,
	}
}

func (that *Conn) ReadMessage() (protocol.Message, error) {
	msg, err := protocol.ReadFrame(that.reader)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("failed to read from %s: %w", that.RemoteAddr(), err)
	}

	return msg, nil
}

func (that *Conn) WriteMessage(msg protocol.Message) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if that.writeTimeout > 0 {
		if err := that.conn.SetWriteDeadline(time.Now().Add(that.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if err := protocol.WriteFrame(that.conn, msg); err != nil {
		return fmt.Errorf("failed to write to %s: %w", that.RemoteAddr(), err)
	}

	return nil
}

func (that *Conn) RemoteAddr() string {
	return that.conn.RemoteAddr().String()
}

func (that *Conn) Close() error {
	if err := that.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}
