package chess

// targetRule decides whether a ray may land on an occupied or empty square.
type targetRule func(mover Color, occupant *Piece) bool

func standardTarget(mover Color, occ *Piece) bool   { return occ == nil || occ.Color != mover }
func pawnAttackTarget(mover Color, occ *Piece) bool { return occ != nil && occ.Color != mover }
func pawnAdvanceTarget(_ Color, occ *Piece) bool    { return occ == nil }

type direction struct{ dRow, dCol int }

const unbounded = boardSize

var (
	orthogonal = []direction{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	diagonal   = []direction{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	allLines   = append(append([]direction{}, orthogonal...), diagonal...)
	knightHops = []direction{{1, 2}, {-1, 2}, {1, -2}, {-1, -2}, {2, 1}, {-2, 1}, {2, -1}, {-2, -1}}
)

// castRay walks from `from` in one direction for at most maxSteps squares and
// stops at the first occupied square, including it only when rule allows.
func castRay(b *Board, from Position, dir direction, maxSteps int, mover Color, rule targetRule, out []Move) []Move {
	cur := from
	for step := 0; step < maxSteps; step++ {
		next, ok := cur.Offset(dir.dRow, dir.dCol)
		if !ok {
			break
		}
		occ := b.at(next)
		if rule(mover, occ) {
			out = append(out, Move{Start: from, End: next})
		}
		if occ != nil {
			break
		}
		cur = next
	}
	return out
}

// RawMoves are the piece's ordinary moves from pos, without special rules or
// self-check filtering.
func RawMoves(b *Board, pos Position) []Move {
	p := b.at(pos)
	if p == nil {
		return nil
	}
	var out []Move
	switch p.Type {
	case King:
		for _, d := range allLines {
			out = castRay(b, pos, d, 1, p.Color, standardTarget, out)
		}
	case Queen:
		for _, d := range allLines {
			out = castRay(b, pos, d, unbounded, p.Color, standardTarget, out)
		}
	case Rook:
		for _, d := range orthogonal {
			out = castRay(b, pos, d, unbounded, p.Color, standardTarget, out)
		}
	case Bishop:
		for _, d := range diagonal {
			out = castRay(b, pos, d, unbounded, p.Color, standardTarget, out)
		}
	case Knight:
		for _, d := range knightHops {
			out = castRay(b, pos, d, 1, p.Color, standardTarget, out)
		}
	case Pawn:
		fwd := p.Color.forward()
		dist := 1
		if p.movesTaken == 0 && pos.Row == p.Color.homeRow()+fwd {
			dist = 2
		}
		out = castRay(b, pos, direction{fwd, 0}, dist, p.Color, pawnAdvanceTarget, out)
		out = castRay(b, pos, direction{fwd, -1}, 1, p.Color, pawnAttackTarget, out)
		out = castRay(b, pos, direction{fwd, 1}, 1, p.Color, pawnAttackTarget, out)
	}
	return out
}

// attackedBy reports whether any piece of color could capture on target.
// Pawns attack diagonally only, so their forward pushes do not count.
func attackedBy(b *Board, target Position, color Color) bool {
	for pos := range b.positions[color] {
		p := b.at(pos)
		if p.Type == Pawn {
			fwd := p.Color.forward()
			if target.Row == pos.Row+fwd && (target.Col == pos.Col-1 || target.Col == pos.Col+1) {
				return true
			}
			continue
		}
		for _, m := range RawMoves(b, pos) {
			if m.End == target {
				return true
			}
		}
	}
	return false
}

// inCheck reports whether color's king is attacked on b.
func inCheck(b *Board, color Color) bool {
	king, ok := b.KingPosition(color)
	if !ok {
		return false
	}
	return attackedBy(b, king, color.Opponent())
}
