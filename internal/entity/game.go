package entity

import (
	"fmt"
	"time"
)

type OutcomeKind string

const (
	OutcomeInProgress OutcomeKind = "in_progress"
	OutcomeWin        OutcomeKind = "win"
	OutcomeDraw       OutcomeKind = "draw"
)

type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner Symbol      `json:"winner,omitempty"`
}

func InProgress() Outcome {
	return Outcome{Kind: OutcomeInProgress}
}

func Win(symbol Symbol) Outcome {
	return Outcome{Kind: OutcomeWin, Winner: symbol}
}

func Draw() Outcome {
	return Outcome{Kind: OutcomeDraw}
}

func (that Outcome) IsTerminal() bool {
	return that.Kind == OutcomeWin || that.Kind == OutcomeDraw
}

func (that Outcome) String() string {
	switch that.Kind {
	case OutcomeWin:
		return fmt.Sprintf("%s wins", that.Winner)
	case OutcomeDraw:
		return "draw"
	default:
		return "in progress"
	}
}

// GameResult is the record kept for every finished round.
type GameResult struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Round      int        `json:"round"`
	Outcome    Outcome    `json:"outcome"`
	Board      [][]Symbol `json:"board"`
	Moves      int        `json:"moves"`
	FinishedAt time.Time  `json:"finished_at"`
}

type ResultStats struct {
	XWins int64 `json:"x_wins"`
	OWins int64 `json:"o_wins"`
	Draws int64 `json:"draws"`
}

func (that *ResultStats) Total() int64 {
	return that.XWins + that.OWins + that.Draws
}

// Add - counts a finished outcome, in-progress outcomes are ignored.
func (that *ResultStats) Add(outcome Outcome) {
	switch {
	case outcome.Kind == OutcomeDraw:
		that.Draws++
	case outcome.Kind == OutcomeWin && outcome.Winner == PlayerX:
		that.XWins++
	case outcome.Kind == OutcomeWin && outcome.Winner == PlayerO:
		that.OWins++
	}
}
