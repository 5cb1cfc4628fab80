package chesspresenter

import (
	"strings"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/msgcat"
	"go.uber.org/zap"
)

const (
	keyJoinedPlayer   = "notify.joined_player"
	keyJoinedObserver = "notify.joined_observer"
	keyMoved          = "notify.moved"
	keyCheckmate      = "notify.checkmate"
	keyCheck          = "notify.check"
	keyStalemate      = "notify.stalemate"
	keyLeft           = "notify.left"
	keyResigned       = "notify.resigned"
)

// fallbacks mirror the embedded catalog and are used when a template
// override fails to render.
var fallbacks = map[string]string{
	keyJoinedPlayer:   "%s joined the game.",
	keyJoinedObserver: "%s is observing the Game",
	keyCheckmate:      "%s is checkmated!",
	keyCheck:          "%s is in Check!",
	keyStalemate:      "Stalemate!",
	keyLeft:           "%s left the Game",
	keyResigned:       "%s has Resigned.",
}

// Formatter renders player-facing notification text.
type Formatter struct {
	catalog *msgcat.Catalog
	logger  *zap.Logger
}

func NewFormatter(catalog *msgcat.Catalog, logger *zap.Logger) *Formatter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Formatter{catalog: catalog, logger: logger}
}

func (f *Formatter) render(key string, data map[string]string) string {
	if f != nil && f.catalog != nil {
		out, err := f.catalog.Render(key, data)
		if err == nil {
			return out
		}
		f.logger.Warn("msg_render_failed", zap.String("key", key), zap.Error(err))
	}
	if key == keyMoved {
		return "Move made by " + data["User"] + ": " + data["Move"]
	}
	return strings.Replace(fallbacks[key], "%s", data["User"], 1)
}

func (f *Formatter) JoinedPlayer(username string) string {
	return f.render(keyJoinedPlayer, map[string]string{"User": username})
}

func (f *Formatter) JoinedObserver(username string) string {
	return f.render(keyJoinedObserver, map[string]string{"User": username})
}

func (f *Formatter) Moved(username, san string) string {
	return f.render(keyMoved, map[string]string{"User": username, "Move": san})
}

func (f *Formatter) Left(username string) string {
	return f.render(keyLeft, map[string]string{"User": username})
}

func (f *Formatter) Resigned(username string) string {
	return f.render(keyResigned, map[string]string{"User": username})
}

// Outcome describes the situation of the side to move after a move. It
// reports false when there is nothing to announce.
func (f *Formatter) Outcome(rec *domain.GameRecord, outcome chess.Outcome) (string, bool) {
	side := rec.Game.Turn()
	name := rec.Player(side)
	if name == "" {
		name = side.String()
	}
	switch outcome {
	case chess.OutcomeCheckmate:
		return f.render(keyCheckmate, map[string]string{"User": name}), true
	case chess.OutcomeCheck:
		return f.render(keyCheck, map[string]string{"User": name}), true
	case chess.OutcomeStalemate:
		return f.render(keyStalemate, map[string]string{"User": name}), true
	}
	return "", false
}
