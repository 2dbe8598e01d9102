// Package search picks moves with a depth-bounded minimax and alpha-beta pruning.
package search

import (
	"math"

	"github.com/rocketscienceinc/gato-backend/internal/entity"
)

const (
	DefaultDepth = 4

	// WinScore is returned for terminal positions and is never exceeded by Evaluate on a live board.
	WinScore    = 1000
	ThreatScore = 100
)

type Result struct {
	Move  entity.Move `json:"move"`
	Score int         `json:"score"`
	Nodes int         `json:"nodes"`
}

type Engine struct {
	depth int
}

func NewEngine(depth int) *Engine {
	if depth < 1 {
		depth = DefaultDepth
	}

	return &Engine{depth: depth}
}

func (that *Engine) Depth() int {
	return that.depth
}

// BestMove - returns the move that maximizes the score for symbol. Candidates are tried in
// row-major order and a later candidate replaces the current one only with a strictly greater
// score. The caller's board is never touched; the search mutates and undoes a private copy.
//
// An immediate win is returned without searching. Otherwise a cell that would complete
// the opponent's line is taken and scored.
func (that *Engine) BestMove(board *entity.Board, symbol entity.Symbol) Result {
	best := Result{Move: entity.NoMove, Score: math.MinInt}

	if !symbol.IsPlayer() {
		best.Score = 0
		return best
	}

	s := &searcher{
		board:    board.Clone(),
		me:       symbol,
		opponent: symbol.Opponent(),
	}

	if move, ok := s.finishingMove(s.me); ok {
		return Result{Move: move, Score: WinScore, Nodes: s.nodes}
	}

	if move, ok := s.finishingMove(s.opponent); ok {
		_, _ = s.board.ApplyMove(move.Row, move.Col, s.me)
		score := s.minimax(that.depth, false, math.MinInt, math.MaxInt)
		s.board.UndoMove(move.Row, move.Col)

		return Result{Move: move, Score: score, Nodes: s.nodes}
	}

	size := s.board.Size()
	for row := range size {
		for col := range size {
			if s.board.At(row, col) != entity.EmptyCell {
				continue
			}

			if _, err := s.board.ApplyMove(row, col, s.me); err != nil {
				continue
			}

			score := s.minimax(that.depth, false, math.MinInt, math.MaxInt)
			s.board.UndoMove(row, col)

			if score > best.Score {
				best.Move = entity.Move{Row: row, Col: col}
				best.Score = score
			}
		}
	}

	best.Nodes = s.nodes
	if best.Move.IsNone() {
		best.Score = 0
	}

	return best
}

// Evaluate - scores a non-terminal board from symbol's point of view: every line holding
// exactly one empty cell and the rest of one player's marks counts ThreatScore for that player.
func Evaluate(board *entity.Board, symbol entity.Symbol) int {
	opponent := symbol.Opponent()
	needed := board.Size() - 1
	score := 0

	for line := range board.LineCount() {
		tally := board.Tally(line)
		if tally.Empty != 1 {
			continue
		}

		if tally.Count(symbol) == needed {
			score += ThreatScore
		} else if tally.Count(opponent) == needed {
			score -= ThreatScore
		}
	}

	return score
}

type searcher struct {
	board    *entity.Board
	me       entity.Symbol
	opponent entity.Symbol
	nodes    int
}

// finishingMove - first empty cell, row-major, that completes a line for symbol.
func (that *searcher) finishingMove(symbol entity.Symbol) (entity.Move, bool) {
	if that.board.Winner() != entity.EmptyCell {
		return entity.NoMove, false
	}

	for _, move := range that.board.EmptyCells() {
		if _, err := that.board.ApplyMove(move.Row, move.Col, symbol); err != nil {
			continue
		}

		that.nodes++
		won := that.board.Winner() == symbol
		that.board.UndoMove(move.Row, move.Col)

		if won {
			return move, true
		}
	}

	return entity.NoMove, false
}

func (that *searcher) minimax(depth int, maximizing bool, alpha, beta int) int {
	that.nodes++

	switch that.board.Winner() {
	case that.me:
		return WinScore
	case that.opponent:
		return -WinScore
	}

	if that.board.IsFull() {
		return 0
	}

	if depth == 0 {
		return Evaluate(that.board, that.me)
	}

	mover := that.opponent
	best := math.MaxInt
	if maximizing {
		mover = that.me
		best = math.MinInt
	}

	size := that.board.Size()
	for row := range size {
		for col := range size {
			if that.board.At(row, col) != entity.EmptyCell {
				continue
			}

			if _, err := that.board.ApplyMove(row, col, mover); err != nil {
				continue
			}

			score := that.minimax(depth-1, !maximizing, alpha, beta)
			that.board.UndoMove(row, col)

			if maximizing {
				best = max(best, score)
				alpha = max(alpha, score)
			} else {
				best = min(best, score)
				beta = min(beta, score)
			}

			if beta <= alpha {
				return best
			}
		}
	}

	return best
}
