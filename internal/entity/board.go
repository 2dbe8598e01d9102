package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
)

const DefaultBoardSize = 4

type Symbol string

const (
	EmptyCell Symbol = ""
	PlayerX   Symbol = "X"
	PlayerO   Symbol = "O"
)

func (that Symbol) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

// Opponent - returns the other player's symbol, EmptyCell stays EmptyCell.
func (that Symbol) Opponent() Symbol {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

func ParseSymbol(raw string) (Symbol, error) {
	switch s := Symbol(strings.ToUpper(strings.TrimSpace(raw))); s {
	case PlayerX, PlayerO:
		return s, nil
	default:
		return EmptyCell, fmt.Errorf("%w: %q", apperror.ErrInvalidSymbol, raw)
	}
}

type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NoMove is returned by searches over boards without empty cells.
var NoMove = Move{Row: -1, Col: -1}

func (that Move) IsNone() bool {
	return that == NoMove
}

// LineTally counts the symbols on one winning line.
type LineTally struct {
	X     int
	O     int
	Empty int
}

func (that LineTally) Count(symbol Symbol) int {
	switch symbol {
	case PlayerX:
		return that.X
	case PlayerO:
		return that.O
	default:
		return that.Empty
	}
}

// Board is an N x N grid. Lines are scanned rows first, then columns, then the main
// diagonal and finally the anti-diagonal.
type Board struct {
	size   int
	cells  []Symbol
	filled int
	lines  [][]int
}

func NewBoard(size int) *Board {
	if size < 1 {
		size = DefaultBoardSize
	}

	return &Board{
		size:  size,
		cells: make([]Symbol, size*size),
		lines: buildLines(size),
	}
}

// BoardFromRows - builds a board from a row-major snapshot.
func BoardFromRows(rows [][]Symbol) (*Board, error) {
	board := NewBoard(len(rows))

	for row, cells := range rows {
		if len(cells) != len(rows) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", apperror.ErrOutOfRange, row, len(cells), len(rows))
		}

		for col, cell := range cells {
			if cell == EmptyCell {
				continue
			}

			if _, err := board.ApplyMove(row, col, cell); err != nil {
				return nil, fmt.Errorf("failed to restore cell (%d, %d): %w", row, col, err)
			}
		}
	}

	return board, nil
}

func buildLines(size int) [][]int {
	lines := make([][]int, 0, 2*size+2)

	for row := range size {
		line := make([]int, size)
		for col := range size {
			line[col] = row*size + col
		}
		lines = append(lines, line)
	}

	for col := range size {
		line := make([]int, size)
		for row := range size {
			line[row] = row*size + col
		}
		lines = append(lines, line)
	}

	diagonal := make([]int, size)
	antiDiagonal := make([]int, size)
	for i := range size {
		diagonal[i] = i*size + i
		antiDiagonal[i] = i*size + (size - 1 - i)
	}

	return append(lines, diagonal, antiDiagonal)
}

func (that *Board) Size() int {
	return that.size
}

func (that *Board) inRange(row, col int) bool {
	return row >= 0 && row < that.size && col >= 0 && col < that.size
}

// At - returns the symbol at (row, col), EmptyCell for coordinates off the board.
func (that *Board) At(row, col int) Symbol {
	if !that.inRange(row, col) {
		return EmptyCell
	}

	return that.cells[row*that.size+col]
}

// ApplyMove - places symbol on an empty cell and returns the number of occupied cells.
// A rejected move leaves the board untouched.
func (that *Board) ApplyMove(row, col int, symbol Symbol) (int, error) {
	if !symbol.IsPlayer() {
		return that.filled, fmt.Errorf("%w: %q", apperror.ErrInvalidSymbol, symbol)
	}

	if !that.inRange(row, col) {
		return that.filled, fmt.Errorf("%w: (%d, %d) on a %dx%d board", apperror.ErrOutOfRange, row, col, that.size, that.size)
	}

	idx := row*that.size + col
	if that.cells[idx] != EmptyCell {
		return that.filled, fmt.Errorf("%w: (%d, %d)", apperror.ErrOccupiedCell, row, col)
	}

	that.cells[idx] = symbol
	that.filled++

	return that.filled, nil
}

// UndoMove - clears (row, col). Clearing an empty or off-board cell is a no-op.
func (that *Board) UndoMove(row, col int) {
	if !that.inRange(row, col) {
		return
	}

	idx := row*that.size + col
	if that.cells[idx] == EmptyCell {
		return
	}

	that.cells[idx] = EmptyCell
	that.filled--
}

func (that *Board) LineCount() int {
	return len(that.lines)
}

func (that *Board) Tally(line int) LineTally {
	var tally LineTally

	for _, idx := range that.lines[line] {
		switch that.cells[idx] {
		case PlayerX:
			tally.X++
		case PlayerO:
			tally.O++
		default:
			tally.Empty++
		}
	}

	return tally
}

// Winner - returns the symbol of the first complete line in scan order, or EmptyCell.
func (that *Board) Winner() Symbol {
	for line := range that.lines {
		tally := that.Tally(line)

		if tally.X == that.size {
			return PlayerX
		}

		if tally.O == that.size {
			return PlayerO
		}
	}

	return EmptyCell
}

func (that *Board) IsFull() bool {
	return that.filled == len(that.cells)
}

func (that *Board) Filled() int {
	return that.filled
}

func (that *Board) Outcome() Outcome {
	if winner := that.Winner(); winner != EmptyCell {
		return Win(winner)
	}

	if that.IsFull() {
		return Draw()
	}

	return InProgress()
}

// EmptyCells - lists free cells in row-major order.
func (that *Board) EmptyCells() []Move {
	moves := make([]Move, 0, len(that.cells)-that.filled)

	for idx, cell := range that.cells {
		if cell == EmptyCell {
			moves = append(moves, Move{Row: idx / that.size, Col: idx % that.size})
		}
	}

	return moves
}

func (that *Board) Clone() *Board {
	cells := make([]Symbol, len(that.cells))
	copy(cells, that.cells)

	return &Board{
		size:   that.size,
		cells:  cells,
		filled: that.filled,
		lines:  that.lines,
	}
}

// Rows - returns a copy of the grid, row by row.
func (that *Board) Rows() [][]Symbol {
	rows := make([][]Symbol, that.size)

	for row := range that.size {
		rows[row] = make([]Symbol, that.size)
		copy(rows[row], that.cells[row*that.size:(row+1)*that.size])
	}

	return rows
}

func (that *Board) String() string {
	var sb strings.Builder

	for row := range that.size {
		for col := range that.size {
			if col > 0 {
				sb.WriteByte(' ')
			}

			cell := that.At(row, col)
			if cell == EmptyCell {
				sb.WriteByte('.')
				continue
			}

			sb.WriteString(string(cell))
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
