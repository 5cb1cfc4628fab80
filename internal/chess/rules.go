package chess

// SpecialRule is one of the move categories not covered by ordinary piece
// movement. The set is closed; dispatch goes through the switch statements below.
type SpecialRule uint8

const (
	RuleNone SpecialRule = iota
	RuleEnPassant
	RuleCastling
)

var specialRules = [...]SpecialRule{RuleEnPassant, RuleCastling}

func (r SpecialRule) String() string {
	switch r {
	case RuleEnPassant:
		return "en_passant"
	case RuleCastling:
		return "castling"
	}
	return "none"
}

func (r SpecialRule) validMoves(b *Board, pos Position) []Move {
	switch r {
	case RuleEnPassant:
		return enPassantMoves(b, pos)
	case RuleCastling:
		return castlingMoves(b, pos)
	}
	return nil
}

// applySideEffect runs after the primitive relocation landed on end and
// returns any piece displaced by the rule.
func (r SpecialRule) applySideEffect(b *Board, end Position) *Piece {
	switch r {
	case RuleEnPassant:
		return enPassantCapture(b, end)
	case RuleCastling:
		return castleRook(b, end)
	}
	return nil
}

func specialMoves(b *Board, pos Position) []Move {
	var out []Move
	for _, r := range specialRules {
		out = append(out, r.validMoves(b, pos)...)
	}
	return out
}

// pertinentRule finds the rule that would generate move. It must run before
// the board is mutated.
func pertinentRule(b *Board, move Move) SpecialRule {
	for _, r := range specialRules {
		if containsMove(r.validMoves(b, move.Start), move) {
			return r
		}
	}
	return RuleNone
}

func enPassantMoves(b *Board, pos Position) []Move {
	p := b.at(pos)
	if p == nil || p.Type != Pawn {
		return nil
	}
	var out []Move
	for _, side := range []int{-1, 1} {
		adj, ok := pos.Offset(0, side)
		if !ok {
			continue
		}
		victim := b.at(adj)
		if victim == nil || victim.Type != Pawn || victim.Color == p.Color || !justDoubleStepped(b, adj, victim) {
			continue
		}
		if end, ok := adj.Offset(p.Color.forward(), 0); ok {
			out = append(out, Move{Start: pos, End: end})
		}
	}
	return out
}

// justDoubleStepped: the pawn's only move was last round and left it on its fourth rank.
func justDoubleStepped(b *Board, pos Position, p *Piece) bool {
	if p.movesTaken != 1 || p.lastMoveRound != b.round-1 {
		return false
	}
	return pos.Row == p.Color.homeRow()+3*p.Color.forward()
}

func enPassantCapture(b *Board, end Position) *Piece {
	mover := b.at(end)
	if mover == nil {
		return nil
	}
	passed, ok := end.Offset(-mover.Color.forward(), 0)
	if !ok {
		return nil
	}
	return b.remove(passed)
}

func castlingMoves(b *Board, pos Position) []Move {
	king := b.at(pos)
	if king == nil || king.Type != King || king.HasMoved() || inCheck(b, king.Color) {
		return nil
	}
	var out []Move
	for _, side := range []struct{ rookCol, kingDest int }{{8, 7}, {1, 3}} {
		rookPos := Position{Row: pos.Row, Col: side.rookCol}
		rook := b.at(rookPos)
		if rook == nil || rook.Type != Rook || rook.Color != king.Color || rook.HasMoved() {
			continue
		}
		if !clearBetween(b, pos, rookPos) {
			continue
		}
		dest := Position{Row: pos.Row, Col: side.kingDest}
		if transitAttacked(b, pos, dest, king.Color.Opponent()) {
			continue
		}
		out = append(out, Move{Start: pos, End: dest})
	}
	return out
}

func clearBetween(b *Board, a, c Position) bool {
	lo, hi := a.Col, c.Col
	if lo > hi {
		lo, hi = hi, lo
	}
	for col := lo + 1; col < hi; col++ {
		if b.at(Position{Row: a.Row, Col: col}) != nil {
			return false
		}
	}
	return true
}

// transitAttacked checks every square the king crosses, destination included.
func transitAttacked(b *Board, from, to Position, by Color) bool {
	step := 1
	if to.Col < from.Col {
		step = -1
	}
	for col := from.Col + step; ; col += step {
		if attackedBy(b, Position{Row: from.Row, Col: col}, by) {
			return true
		}
		if col == to.Col {
			return false
		}
	}
}

func castleRook(b *Board, kingEnd Position) *Piece {
	from, to := Position{Row: kingEnd.Row, Col: 8}, Position{Row: kingEnd.Row, Col: 6}
	if kingEnd.Col == 3 {
		from, to = Position{Row: kingEnd.Row, Col: 1}, Position{Row: kingEnd.Row, Col: 4}
	}
	captured, err := b.Relocate(Move{Start: from, End: to})
	if err != nil {
		return nil
	}
	return captured
}
