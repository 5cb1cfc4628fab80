package pvp

import (
	"context"
	"sync"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
)

// Conn is one connected client. Send must be safe for concurrent use.
type Conn interface {
	Send(ctx context.Context, data []byte) error
}

// SessionInfo is what the router knows about a joined connection.
// It is never persisted.
type SessionInfo struct {
	GameID   int
	Username string
	Color    chess.Color
	Player   bool
	Verbose  bool
}

// Role renders the session side for logs: WHITE, BLACK or OBSERVER.
func (s SessionInfo) Role() string {
	if !s.Player {
		return "OBSERVER"
	}
	return s.Color.String()
}

type session struct {
	mu   sync.Mutex
	info SessionInfo
}

func (s *session) snapshot() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// gameInfo routes messages for one game. It is dropped from the registry
// once the last participant leaves; removed tells late joiners to retry.
type gameInfo struct {
	routeMu   sync.Mutex
	players   [2]Conn
	observers map[Conn]struct{}
	removed   bool
}

func (g *gameInfo) empty() bool {
	return g.players[chess.White] == nil && g.players[chess.Black] == nil && len(g.observers) == 0
}

// recipients lists participants in a stable order: white, black, observers.
func (g *gameInfo) recipients() []Conn {
	out := make([]Conn, 0, 2+len(g.observers))
	for _, c := range g.players {
		if c != nil {
			out = append(out, c)
		}
	}
	for c := range g.observers {
		out = append(out, c)
	}
	return out
}

// MoveResult is handed back to the dispatcher for broadcasting.
type MoveResult struct {
	Record *domain.GameRecord
	Before *chess.Game
	Mover  SessionInfo
	// Outcome is the situation of the side now to move.
	Outcome chess.Outcome
}
