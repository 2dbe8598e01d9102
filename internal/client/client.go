// Package client connects to the session server over TCP. Server messages are received on a
// background goroutine so a caller can wait for user input at the same time.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/gato-backend/internal/protocol"
	"github.com/rocketscienceinc/gato-backend/transport/tcp"
)

const eventBuffer = 32

type Client struct {
	conn   *tcp.Conn
	events chan protocol.Message
	quit   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

func Dial(ctx context.Context, address string, writeTimeout time.Duration) (*Client, error) {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}

	c := &Client{
		conn:   tcp.NewConn(conn, writeTimeout),
		events: make(chan protocol.Message, eventBuffer),
		quit:   make(chan struct{}),
	}

	go c.listen()

	return c, nil
}

func (that *Client) listen() {
	defer close(that.events)

	for {
		msg, err := that.conn.ReadMessage()
		if err != nil {
			that.mu.Lock()
			that.err = err
			that.mu.Unlock()

			return
		}

		select {
		case that.events <- msg:
		case <-that.quit:
			return
		}
	}
}

// Events - server messages in arrival order; closed when the connection ends.
func (that *Client) Events() <-chan protocol.Message {
	return that.events
}

// Err - the error that ended the connection, if any.
func (that *Client) Err() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.err
}

func (that *Client) SendMove(row, col int) error {
	return that.send(protocol.TypeMove, protocol.NewMove(row, col))
}

func (that *Client) SendVote(yes bool) error {
	return that.send(protocol.TypeRematchVote, protocol.NewRematchVote(yes))
}

func (that *Client) send(msgType protocol.Type, payload any) error {
	msg, err := protocol.New(msgType, payload)
	if err != nil {
		return err
	}

	if err = that.conn.WriteMessage(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	return nil
}

func (that *Client) Close() error {
	var err error

	that.once.Do(func() {
		close(that.quit)
		err = that.conn.Close()
	})

	return err
}
