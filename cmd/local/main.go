// Command local plays a game in the terminal without a server: two humans, a human against the
// bot, or the bot against itself.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rocketscienceinc/gato-backend/internal/config"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/service"
	"github.com/rocketscienceinc/gato-backend/internal/tictactoe"
)

var (
	configPath = flag.String("config", "config.yml", "Path to the config file")
	mode       = flag.String("mode", string(tictactoe.ModeHumanVsAI), "human-vs-human, human-vs-ai or ai-vs-ai")
	human      = flag.String("human", "X", "Side the human plays in human-vs-ai")
	depth      = flag.Int("depth", 0, "Search depth, the config value when 0")
	verbose    = flag.Bool("v", false, "Log bot decisions to stderr")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	gameMode, err := tictactoe.ParseMode(*mode)
	if err != nil {
		return err
	}

	humanSide, err := entity.ParseSymbol(*human)
	if err != nil {
		return err
	}

	searchDepth := conf.Game.SearchDepth
	if *depth > 0 {
		searchDepth = *depth
	}

	controller, err := tictactoe.NewGameController(logger, tictactoe.Options{
		Mode:      gameMode,
		BoardSize: conf.Game.BoardSize,
		Human:     humanSide,
	}, service.NewBotService(logger, searchDepth))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := &terminalSource{in: bufio.NewScanner(os.Stdin), out: os.Stdout}

	for {
		outcome, runErr := controller.Run(ctx, source)
		if runErr != nil {
			if errors.Is(runErr, io.EOF) || errors.Is(runErr, context.Canceled) {
				return nil
			}

			return runErr
		}

		fmt.Printf("\n%s\nResult: %s\n", controller.Board(), outcome)

		again, askErr := source.askYesNo("Play again? [y/n] ")
		if askErr != nil || !again {
			return nil
		}

		controller.Reset()
	}
}

// terminalSource reads "row col" lines from the terminal.
type terminalSource struct {
	in  *bufio.Scanner
	out io.Writer
}

func (that *terminalSource) NextMove(ctx context.Context, board *entity.Board, symbol entity.Symbol) (entity.Move, error) {
	fmt.Fprintf(that.out, "\n%s\n%s to move (row col): ", board, symbol)

	for {
		if err := ctx.Err(); err != nil {
			return entity.NoMove, err
		}

		line, err := that.readLine()
		if err != nil {
			return entity.NoMove, err
		}

		var move entity.Move
		if _, err = fmt.Sscan(line, &move.Row, &move.Col); err != nil {
			fmt.Fprint(that.out, "enter two numbers, e.g. 0 3: ")
			continue
		}

		return move, nil
	}
}

func (that *terminalSource) askYesNo(prompt string) (bool, error) {
	fmt.Fprint(that.out, prompt)

	line, err := that.readLine()
	if err != nil {
		return false, err
	}

	return strings.HasPrefix(strings.ToLower(line), "y"), nil
}

func (that *terminalSource) readLine() (string, error) {
	if !that.in.Scan() {
		if err := that.in.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		return "", io.EOF
	}

	return strings.TrimSpace(that.in.Text()), nil
}
