package chesspresenter

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
)

// Presenter turns server messages into console text for a client. It never
// touches the connection; output goes through the write callback.
type Presenter struct {
	write       func(text string) error
	perspective chess.Color
}

func NewPresenter(write func(text string) error, perspective chess.Color) *Presenter {
	return &Presenter{write: write, perspective: perspective}
}

func (p *Presenter) SetPerspective(c chess.Color) { p.perspective = c }

func (p *Presenter) Show(msg chessdto.ServerMessage) error {
	if p == nil || p.write == nil {
		return nil
	}
	switch m := msg.(type) {
	case chessdto.LoadGameMessage:
		game, err := FromDTOSnapshot(m.Game)
		if err != nil {
			return p.write("ERROR: unreadable board: " + err.Error())
		}
		return p.write(Diagram(game, p.perspective, m.Name, m.State))
	case chessdto.NotificationMessage:
		return p.write(m.Message)
	case chessdto.ErrorMessage:
		return p.write(m.ErrorMessage)
	}
	return nil
}

// Diagram draws the board with perspective's pieces at the bottom.
func Diagram(g *chess.Game, perspective chess.Color, name, state string) string {
	var sb strings.Builder
	if name != "" {
		fmt.Fprintf(&sb, "%s [%s]\n", name, state)
	}
	rows, cols := []int{8, 7, 6, 5, 4, 3, 2, 1}, []int{1, 2, 3, 4, 5, 6, 7, 8}
	files := "   a b c d e f g h"
	if perspective == chess.Black {
		rows, cols = []int{1, 2, 3, 4, 5, 6, 7, 8}, []int{8, 7, 6, 5, 4, 3, 2, 1}
		files = "   h g f e d c b a"
	}
	for _, row := range rows {
		fmt.Fprintf(&sb, "%d |", row)
		for _, col := range cols {
			if piece, ok := g.PieceAt(chess.NewPosition(row, col)); ok {
				sb.WriteString(piece.String())
			} else {
				sb.WriteByte(' ')
			}
			sb.WriteByte('|')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(files)
	fmt.Fprintf(&sb, "\n%s to move\n", g.Turn())
	return sb.String()
}
