// Package notation renders engine positions and moves in FEN and SAN.
// SAN goes through github.com/corentings/chess/v2 so the text matches what
// other chess tools print.
package notation

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-chess-server/internal/chess"
)

// FEN renders g. The halfmove clock is always 0 since the engine keeps no
// capture history.
func FEN(g *chess.Game) string {
	b := g.Board()
	var sb strings.Builder
	for row := 8; row >= 1; row-- {
		empty := 0
		for col := 1; col <= 8; col++ {
			p, ok := b.PieceAt(chess.NewPosition(row, col))
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(p.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if row > 1 {
			sb.WriteByte('/')
		}
	}

	side := "w"
	if g.Turn() == chess.Black {
		side = "b"
	}
	return fmt.Sprintf("%s %s %s %s 0 %d", sb.String(), side, castling(b), enPassantTarget(b, g.Turn()), g.Round()/2+1)
}

func castling(b *chess.Board) string {
	var out string
	for _, c := range []chess.Color{chess.White, chess.Black} {
		row := 1
		if c == chess.Black {
			row = 8
		}
		king, ok := b.PieceAt(chess.NewPosition(row, 5))
		if !ok || king.Type != chess.King || king.Color != c || king.HasMoved() {
			continue
		}
		for _, side := range []struct {
			col  int
			flag string
		}{{8, "K"}, {1, "Q"}} {
			rook, ok := b.PieceAt(chess.NewPosition(row, side.col))
			if !ok || rook.Type != chess.Rook || rook.Color != c || rook.HasMoved() {
				continue
			}
			if c == chess.Black {
				out += strings.ToLower(side.flag)
			} else {
				out += side.flag
			}
		}
	}
	if out == "" {
		return "-"
	}
	return out
}

// enPassantTarget is the square behind a pawn that double-stepped last round.
func enPassantTarget(b *chess.Board, toMove chess.Color) string {
	mover := toMove.Opponent()
	row, behind := 4, 3
	if mover == chess.Black {
		row, behind = 5, 6
	}
	for col := 1; col <= 8; col++ {
		p, ok := b.PieceAt(chess.NewPosition(row, col))
		if !ok || p.Type != chess.Pawn || p.Color != mover {
			continue
		}
		if p.MovesTaken() == 1 && p.LastMoveRound() == b.Round()-1 {
			return chess.NewPosition(behind, col).String()
		}
	}
	return "-"
}

// SAN renders m as played from g. It falls back to coordinate text when the
// position or move cannot be translated.
func SAN(g *chess.Game, m chess.Move) string {
	opt, err := nchess.FEN(FEN(g))
	if err != nil {
		return m.String()
	}
	pos := nchess.NewGame(opt).Position()
	mv, err := nchess.UCINotation{}.Decode(pos, m.String())
	if err != nil {
		return m.String()
	}
	return nchess.AlgebraicNotation{}.Encode(pos, mv)
}
