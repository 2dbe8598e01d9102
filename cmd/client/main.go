// Command client plays a networked game against another client through the session server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rocketscienceinc/gato-backend/internal/client"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/protocol"
)

var (
	address = flag.String("address", "localhost:12345", "Session server address")
	timeout = flag.Duration("timeout", 10*time.Second, "Dial and write timeout")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c, err := client.Dial(dialCtx, *address, *timeout)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Println("connected, waiting for an opponent")

	lines := make(chan string)
	go readLines(lines)

	var (
		me     entity.Symbol
		voting bool
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-c.Events():
			if !ok {
				if err = c.Err(); err != nil {
					fmt.Println("connection closed:", err)
				}
				return nil
			}

			switch msg.Type {
			case protocol.TypeAssignSymbol:
				if assign, decodeErr := protocol.Decode[protocol.AssignSymbol](msg); decodeErr == nil {
					me = assign.Symbol
					fmt.Printf("you play %s on a %dx%d board\n", me, assign.BoardSize, assign.BoardSize)
				}
			case protocol.TypeStateUpdate:
				voting = false
				if update, decodeErr := protocol.Decode[protocol.StateUpdate](msg); decodeErr == nil {
					printState(update, me)
				}
			case protocol.TypeGameResult:
				if result, decodeErr := protocol.Decode[protocol.GameResult](msg); decodeErr == nil {
					fmt.Println("game over:", result.Outcome)
				}
			case protocol.TypeRematchPrompt:
				voting = true
				fmt.Print("rematch? [y/n] ")
			case protocol.TypePeerDisconnected:
				fmt.Println("your opponent left")
			case protocol.TypeSessionClosed:
				if closed, decodeErr := protocol.Decode[protocol.SessionClosed](msg); decodeErr == nil {
					fmt.Println("session closed:", closed.Reason)
				}
			case protocol.TypeError:
				if rejection, decodeErr := protocol.Decode[protocol.Error](msg); decodeErr == nil {
					fmt.Println("rejected:", rejection.Code)
				}
			}
		case line, ok := <-lines:
			if !ok || line == "quit" {
				return nil
			}

			if err = handleInput(c, line, voting); err != nil {
				fmt.Println(err)
			}
		}
	}
}

func handleInput(c *client.Client, line string, voting bool) error {
	if voting {
		return c.SendVote(strings.HasPrefix(strings.ToLower(line), "y"))
	}

	var row, col int
	if _, err := fmt.Sscan(line, &row, &col); err != nil {
		return errors.New("enter two numbers, e.g. 0 3")
	}

	return c.SendMove(row, col)
}

func printState(update protocol.StateUpdate, me entity.Symbol) {
	fmt.Println()
	for _, row := range update.Board {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = string(cell)
			if cell == entity.EmptyCell {
				cells[i] = "."
			}
		}
		fmt.Println(strings.Join(cells, " "))
	}

	switch update.ActiveSymbol {
	case entity.EmptyCell:
	case me:
		fmt.Print("your move (row col): ")
	default:
		fmt.Printf("waiting for %s\n", update.ActiveSymbol)
	}
}

func readLines(lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines <- strings.TrimSpace(scanner.Text())
	}
}
