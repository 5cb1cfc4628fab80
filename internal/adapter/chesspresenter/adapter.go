package chesspresenter

import (
	"fmt"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

func ToDTOPosition(p chess.Position) chessdto.Position {
	return chessdto.Position{Row: p.Row, Column: p.Col}
}

func ToDTOMove(m chess.Move) chessdto.Move {
	out := chessdto.Move{StartPosition: ToDTOPosition(m.Start), EndPosition: ToDTOPosition(m.End)}
	if m.Promotion != chess.NoPieceType {
		out.PromotionPiece = m.Promotion.String()
	}
	return out
}

// FromDTOMove validates coordinates and the promotion name. Legality is left
// to the engine.
func FromDTOMove(m chessdto.Move) (chess.Move, error) {
	start := chess.NewPosition(m.StartPosition.Row, m.StartPosition.Column)
	end := chess.NewPosition(m.EndPosition.Row, m.EndPosition.Column)
	if !start.Valid() || !end.Valid() {
		return chess.Move{}, fmt.Errorf("%w: position off board", domain.ErrBadRequest)
	}
	promo, err := chess.ParsePieceType(m.PromotionPiece)
	if err != nil {
		return chess.Move{}, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	return chess.NewMove(start, end).WithPromotion(promo), nil
}

func ToDTOSnapshot(g *chess.Game) chessdto.GameSnapshot {
	if g == nil {
		return chessdto.GameSnapshot{}
	}
	return chessdto.GameSnapshot{
		CurrentTeam: g.Turn().String(),
		ChessBoard:  g.Board().EncodeString(),
		Round:       g.Round(),
	}
}

// FromDTOSnapshot rebuilds a game from a LOAD_GAME payload.
func FromDTOSnapshot(s chessdto.GameSnapshot) (*chess.Game, error) {
	turn, err := chess.ParseColor(s.CurrentTeam)
	if err != nil {
		return nil, err
	}
	b, err := chess.DecodeBoardString(s.ChessBoard)
	if err != nil {
		return nil, err
	}
	b.SetRound(s.Round)
	return chess.NewGameFromBoard(b, turn), nil
}

func ToLoadGame(rec *domain.GameRecord) chessdto.LoadGameMessage {
	return chessdto.NewLoadGame(ToDTOSnapshot(rec.Game), string(rec.State), rec.GameName)
}

func ToDTOSummary(rec *domain.GameRecord) chessdto.GameSummary {
	return chessdto.GameSummary{
		GameID:        rec.ID,
		WhiteUsername: rec.WhiteUsername,
		BlackUsername: rec.BlackUsername,
		GameName:      rec.GameName,
		State:         string(rec.State),
	}
}

func ToDTOSummaries(recs []*domain.GameRecord) []chessdto.GameSummary {
	out := make([]chessdto.GameSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, ToDTOSummary(r))
	}
	return out
}
