package chess

import (
	"fmt"
	"sort"
	"strings"
)

// Board is an 8x8 grid plus per-color position sets and king caches derived
// from it. Every mutating method keeps the derived state in step with the grid.
type Board struct {
	grid      [boardSize][boardSize]*Piece
	positions [2]map[Position]struct{}
	kings     [2]Position
	hasKing   [2]bool
	round     int
}

func NewBoard() *Board {
	return &Board{positions: [2]map[Position]struct{}{{}, {}}}
}

var backRank = [boardSize]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewStandardBoard returns the starting position.
func NewStandardBoard() *Board {
	b := NewBoard()
	for col := 1; col <= boardSize; col++ {
		b.place(Position{Row: 1, Col: col}, &Piece{Type: backRank[col-1], Color: White})
		b.place(Position{Row: 2, Col: col}, &Piece{Type: Pawn, Color: White})
		b.place(Position{Row: 7, Col: col}, &Piece{Type: Pawn, Color: Black})
		b.place(Position{Row: 8, Col: col}, &Piece{Type: backRank[col-1], Color: Black})
	}
	return b
}

func (b *Board) at(pos Position) *Piece {
	if !pos.Valid() {
		return nil
	}
	return b.grid[pos.Row-1][pos.Col-1]
}

// PieceAt returns a copy of the piece on pos.
func (b *Board) PieceAt(pos Position) (Piece, bool) {
	p := b.at(pos)
	if p == nil {
		return Piece{}, false
	}
	return *p, true
}

// Place puts a fresh copy of piece on pos, replacing any occupant.
func (b *Board) Place(pos Position, piece Piece) {
	if !pos.Valid() || !piece.Type.valid() {
		return
	}
	b.place(pos, &piece)
}

// Remove clears pos and returns what was there.
func (b *Board) Remove(pos Position) (Piece, bool) {
	p := b.remove(pos)
	if p == nil {
		return Piece{}, false
	}
	return *p, true
}

func (b *Board) place(pos Position, p *Piece) {
	b.remove(pos)
	if p == nil {
		return
	}
	b.grid[pos.Row-1][pos.Col-1] = p
	b.positions[p.Color][pos] = struct{}{}
	if p.Type == King {
		b.kings[p.Color] = pos
		b.hasKing[p.Color] = true
	}
}

func (b *Board) remove(pos Position) *Piece {
	p := b.at(pos)
	if p == nil {
		return nil
	}
	b.grid[pos.Row-1][pos.Col-1] = nil
	delete(b.positions[p.Color], pos)
	if p.Type == King && b.kings[p.Color] == pos {
		b.hasKing[p.Color] = false
	}
	return p
}

// Relocate moves the piece on move.Start to move.End, capturing any occupant.
// A pawn reaching the far rank becomes move.Promotion; without a valid choice
// the board is left untouched and ErrPromotionRequired is returned.
func (b *Board) Relocate(move Move) (*Piece, error) {
	p := b.at(move.Start)
	if p == nil {
		return nil, fmt.Errorf("relocate %s: %w", move, ErrEmptySquare)
	}
	promote := p.Type == Pawn && move.End.Row == p.Color.promotionRow()
	if promote {
		if move.Promotion == NoPieceType {
			return nil, ErrPromotionRequired
		}
		if !move.Promotion.promotable() {
			return nil, invalidMove("cannot promote to " + move.Promotion.String())
		}
	}

	b.remove(move.Start)
	captured := b.remove(move.End)
	p.movesTaken++
	if promote {
		p.Type = move.Promotion
	}
	p.lastMoveRound = b.round
	b.place(move.End, p)
	return captured, nil
}

// Positions lists the squares held by color in row-major order.
func (b *Board) Positions(color Color) []Position {
	out := make([]Position, 0, len(b.positions[color]))
	for pos := range b.positions[color] {
		out = append(out, pos)
	}
	sortPositions(out)
	return out
}

func (b *Board) KingPosition(color Color) (Position, bool) {
	return b.kings[color], b.hasKing[color]
}

func (b *Board) Round() int         { return b.round }
func (b *Board) SetRound(round int) { b.round = round }

// Copy returns an independent deep copy, derived state included.
func (b *Board) Copy() *Board {
	c := NewBoard()
	c.round = b.round
	for color := range b.positions {
		for pos := range b.positions[color] {
			c.place(pos, b.at(pos).clone())
		}
	}
	return c
}

// Equal compares grid contents and round. Derived sets are recomputable and not compared.
func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.round != o.round {
		return false
	}
	for r := 0; r < boardSize; r++ {
		for c := 0; c < boardSize; c++ {
			x, y := b.grid[r][c], o.grid[r][c]
			if (x == nil) != (y == nil) {
				return false
			}
			if x != nil && *x != *y {
				return false
			}
		}
	}
	return true
}

func (b *Board) String() string {
	var sb strings.Builder
	for row := boardSize; row >= 1; row-- {
		sb.WriteString(fmt.Sprintf("%d |", row))
		for col := 1; col <= boardSize; col++ {
			if p := b.at(Position{Row: row, Col: col}); p != nil {
				sb.WriteString(p.String())
			} else {
				sb.WriteByte(' ')
			}
			sb.WriteByte('|')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   a b c d e f g h\n")
	return sb.String()
}

func sortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Row != ps[j].Row {
			return ps[i].Row < ps[j].Row
		}
		return ps[i].Col < ps[j].Col
	})
}
