package chess

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Outcome summarizes a side's situation after a move.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeCheck
	OutcomeCheckmate
	OutcomeStalemate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCheck:
		return "check"
	case OutcomeCheckmate:
		return "checkmate"
	case OutcomeStalemate:
		return "stalemate"
	}
	return "none"
}

// Game is the turn state machine and the only mutator of its board.
// Terminal states (checkmate, resignation) are tracked by the caller.
type Game struct {
	board *Board
	turn  Color
}

func NewGame() *Game {
	return &Game{board: NewStandardBoard(), turn: White}
}

// NewGameFromBoard takes ownership of b.
func NewGameFromBoard(b *Board, turn Color) *Game {
	return &Game{board: b, turn: turn}
}

func (g *Game) Turn() Color { return g.turn }
func (g *Game) Round() int  { return g.board.round }

// Board returns a copy of the current board.
func (g *Game) Board() *Board { return g.board.Copy() }

func (g *Game) PieceAt(pos Position) (Piece, bool) { return g.board.PieceAt(pos) }

func (g *Game) Copy() *Game { return &Game{board: g.board.Copy(), turn: g.turn} }

// ValidMoves lists the legal moves of the piece on pos, including castling and
// en passant, minus any that would leave its own king attacked. Sorted by destination.
func (g *Game) ValidMoves(pos Position) []Move {
	return legalMoves(g.board, pos)
}

func legalMoves(b *Board, pos Position) []Move {
	p := b.at(pos)
	if p == nil {
		return nil
	}
	candidates := append(RawMoves(b, pos), specialMoves(b, pos)...)
	out := make([]Move, 0, len(candidates))
	for _, m := range candidates {
		if containsMove(out, m) {
			continue
		}
		if leavesKingSafe(b, m, p.Color) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].End.Row != out[j].End.Row {
			return out[i].End.Row < out[j].End.Row
		}
		return out[i].End.Col < out[j].End.Col
	})
	return out
}

// leavesKingSafe plays m on a scratch copy, auto-queening an unresolved promotion.
func leavesKingSafe(b *Board, m Move, mover Color) bool {
	scratch := b.Copy()
	if p := scratch.at(m.Start); p != nil && p.Type == Pawn && m.End.Row == p.Color.promotionRow() && !m.Promotion.promotable() {
		m.Promotion = Queen
	}
	if err := execute(scratch, m, pertinentRule(b, m)); err != nil {
		return false
	}
	return !inCheck(scratch, mover)
}

func execute(b *Board, m Move, rule SpecialRule) error {
	if _, err := b.Relocate(m); err != nil {
		return err
	}
	if rule != RuleNone {
		rule.applySideEffect(b, m.End)
	}
	return nil
}

// MakeMove validates and plays m. A rejected move leaves board and turn untouched.
func (g *Game) MakeMove(m Move) error {
	p := g.board.at(m.Start)
	if p == nil || p.Color != g.turn {
		return invalidMove("incorrect starting position")
	}
	if !containsMove(g.ValidMoves(m.Start), m) {
		return invalidMove(fmt.Sprintf("%s is not legal for %s", m, p.Type))
	}
	if king, ok := g.board.KingPosition(g.turn.Opponent()); ok && king == m.End {
		return invalidMove("cannot capture the king")
	}
	if g.ShouldPromotionOccur(m) {
		if m.Promotion == NoPieceType {
			return ErrPromotionRequired
		}
		if !m.Promotion.promotable() {
			return invalidMove("cannot promote to " + m.Promotion.String())
		}
	}

	rule := pertinentRule(g.board, m)
	if err := execute(g.board, m, rule); err != nil {
		return err
	}
	g.turn = g.turn.Opponent()
	g.board.round++
	return nil
}

func (g *Game) IsInCheck(color Color) bool { return inCheck(g.board, color) }

// IsInStalemate is true when color has no legal move. It is also true in
// checkmate; use Status to classify a position.
func (g *Game) IsInStalemate(color Color) bool {
	for pos := range g.board.positions[color] {
		if len(legalMoves(g.board, pos)) > 0 {
			return false
		}
	}
	return true
}

func (g *Game) IsInCheckmate(color Color) bool {
	return g.IsInStalemate(color) && g.IsInCheck(color)
}

// Status classifies color's position. Checkmate is tested before stalemate,
// since a mated side also has no legal moves.
func (g *Game) Status(color Color) Outcome {
	switch {
	case g.IsInCheckmate(color):
		return OutcomeCheckmate
	case g.IsInCheck(color):
		return OutcomeCheck
	case g.IsInStalemate(color):
		return OutcomeStalemate
	}
	return OutcomeNone
}

// ShouldPromotionOccur reports whether m moves a pawn onto its far rank.
func (g *Game) ShouldPromotionOccur(m Move) bool {
	p := g.board.at(m.Start)
	return p != nil && p.Type == Pawn && m.End.Row == p.Color.promotionRow()
}

type gameJSON struct {
	CurrentTeam Color  `json:"currentTeam"`
	ChessBoard  string `json:"chessBoard"`
	Round       int    `json:"round"`
}

func (g *Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameJSON{CurrentTeam: g.turn, ChessBoard: g.board.EncodeString(), Round: g.board.round})
}

func (g *Game) UnmarshalJSON(data []byte) error {
	var raw gameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b, err := DecodeBoardString(raw.ChessBoard)
	if err != nil {
		return err
	}
	b.round = raw.Round
	g.board = b
	g.turn = raw.CurrentTeam
	return nil
}
