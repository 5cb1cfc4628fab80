package chess

import (
	"fmt"
	"strings"
)

const boardSize = 8

// Position is a 1-based square coordinate. Row 1 is white's back rank, column 1 is the a-file.
type Position struct {
	Row int
	Col int
}

func NewPosition(row, col int) Position { return Position{Row: row, Col: col} }

func (p Position) Valid() bool {
	return p.Row >= 1 && p.Row <= boardSize && p.Col >= 1 && p.Col <= boardSize
}

// Offset returns the shifted position, or false when it falls off the board.
func (p Position) Offset(dRow, dCol int) (Position, bool) {
	next := Position{Row: p.Row + dRow, Col: p.Col + dCol}
	if !next.Valid() {
		return Position{}, false
	}
	return next, true
}

func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return string(rune('a'+p.Col-1)) + string(rune('0'+p.Row))
}

// ParsePosition accepts algebraic squares such as "e4".
func ParsePosition(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	p := Position{Row: int(s[1] - '0'), Col: int(s[0]-'a') + 1}
	if !p.Valid() {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	return p, nil
}
