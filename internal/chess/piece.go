package chess

import (
	"fmt"
	"strings"
)

// Color identifies a side. The numeric value is the wire ordinal.
type Color int8

const (
	White Color = 0
	Black Color = 1
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == Black {
		return "BLACK"
	}
	return "WHITE"
}

// homeRow is the back rank of the color, promotionRow the rank its pawns promote on.
func (c Color) homeRow() int {
	if c == Black {
		return 8
	}
	return 1
}

func (c Color) promotionRow() int {
	if c == Black {
		return 1
	}
	return 8
}

func (c Color) forward() int {
	if c == Black {
		return -1
	}
	return 1
}

func ParseColor(s string) (Color, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WHITE", "W":
		return White, nil
	case "BLACK", "B":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// PieceType is a chess piece kind. The zero value means "no piece" and is used
// for moves without a promotion choice.
type PieceType int8

const (
	NoPieceType PieceType = iota
	King
	Queen
	Bishop
	Knight
	Rook
	Pawn
)

var pieceTypeNames = [...]string{"", "KING", "QUEEN", "BISHOP", "KNIGHT", "ROOK", "PAWN"}

func (t PieceType) String() string {
	if t < 0 || int(t) >= len(pieceTypeNames) {
		return fmt.Sprintf("PieceType(%d)", int(t))
	}
	return pieceTypeNames[t]
}

// Symbol is the upper-case letter used in diagrams and notation.
func (t PieceType) Symbol() byte {
	switch t {
	case King:
		return 'K'
	case Queen:
		return 'Q'
	case Bishop:
		return 'B'
	case Knight:
		return 'N'
	case Rook:
		return 'R'
	case Pawn:
		return 'P'
	}
	return ' '
}

func (t PieceType) valid() bool { return t >= King && t <= Pawn }

// promotable reports whether a pawn may become t.
func (t PieceType) promotable() bool {
	return t == Queen || t == Bishop || t == Knight || t == Rook
}

// ordinal is the 0-based wire index (KING=0 ... PAWN=5).
func (t PieceType) ordinal() byte { return byte(t - 1) }

func pieceTypeFromOrdinal(b byte) (PieceType, bool) {
	t := PieceType(b) + 1
	return t, t.valid()
}

func ParsePieceType(s string) (PieceType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return NoPieceType, nil
	}
	for i, name := range pieceTypeNames {
		if i > 0 && name == s {
			return PieceType(i), nil
		}
	}
	switch s {
	case "K":
		return King, nil
	case "Q":
		return Queen, nil
	case "B":
		return Bishop, nil
	case "N":
		return Knight, nil
	case "R":
		return Rook, nil
	case "P":
		return Pawn, nil
	}
	return NoPieceType, fmt.Errorf("unknown piece type %q", s)
}

// Piece is a colored piece plus the history needed for castling and en passant.
// movesTaken and lastMoveRound change only through Board.Relocate.
type Piece struct {
	Type  PieceType
	Color Color

	movesTaken    int
	lastMoveRound int
}

func NewPiece(t PieceType, c Color) Piece { return Piece{Type: t, Color: c} }

func (p Piece) MovesTaken() int    { return p.movesTaken }
func (p Piece) LastMoveRound() int { return p.lastMoveRound }
func (p Piece) HasMoved() bool     { return p.movesTaken > 0 }

func (p Piece) String() string {
	s := p.Type.Symbol()
	if p.Color == Black {
		s = s - 'A' + 'a'
	}
	return string(s)
}

func (p *Piece) clone() *Piece {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
