package chess

import "strings"

// Move is a start/end pair with an optional promotion choice. Two moves are
// equal when start and end match; the promotion piece is ignored so a client
// can discover a promoting move first and resubmit it with a choice.
type Move struct {
	Start     Position
	End       Position
	Promotion PieceType
}

func NewMove(start, end Position) Move { return Move{Start: start, End: end} }

func (m Move) WithPromotion(t PieceType) Move {
	m.Promotion = t
	return m
}

func (m Move) Equal(o Move) bool { return m.Start == o.Start && m.End == o.End }

// String renders coordinate notation, e.g. "e7e8q".
func (m Move) String() string {
	s := m.Start.String() + m.End.String()
	if m.Promotion != NoPieceType {
		s += strings.ToLower(string(m.Promotion.Symbol()))
	}
	return s
}

func containsMove(moves []Move, m Move) bool {
	for _, c := range moves {
		if c.Equal(m) {
			return true
		}
	}
	return false
}
