package pvp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/store"
	"go.uber.org/zap"
)

// Router owns the in-memory game and session registries of one server.
//
// Each game has two locks: the routing lock inside gameInfo guards who is
// connected, and the move lock from moveLock serializes read, validate,
// mutate and persist. No call holds both at once.
type Router struct {
	store  store.Games
	logger *zap.Logger

	games     sync.Map // int -> *gameInfo
	sessions  sync.Map // Conn -> *session
	moveLocks sync.Map // int -> *sync.Mutex
}

func NewRouter(games store.Games, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{store: games, logger: logger}
}

// Join attaches conn to gameID. A nil color joins as observer; otherwise the
// persisted record must already name username for that color.
func (r *Router) Join(ctx context.Context, gameID int, conn Conn, color *chess.Color, username string) (*domain.GameRecord, error) {
	rec, err := r.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	info := SessionInfo{GameID: gameID, Username: username}
	if color != nil {
		if rec.Player(*color) != username {
			return nil, fmt.Errorf("%w: %s does not hold %s in game %d", domain.ErrUnauthorized, username, color, gameID)
		}
		info.Color, info.Player = *color, true
	}

	s := &session{info: info}
	if _, loaded := r.sessions.LoadOrStore(conn, s); loaded {
		return nil, fmt.Errorf("%w: connection already joined a game", domain.ErrBadRequest)
	}
	if err := r.attach(gameID, conn, info); err != nil {
		r.sessions.CompareAndDelete(conn, s)
		return nil, err
	}
	r.logger.Info("pvp_join",
		zap.Int("game_id", gameID),
		zap.String("username", username),
		zap.String("role", info.Role()),
	)
	return rec, nil
}

func (r *Router) attach(gameID int, conn Conn, info SessionInfo) error {
	for {
		v, _ := r.games.LoadOrStore(gameID, &gameInfo{observers: make(map[Conn]struct{})})
		g := v.(*gameInfo)
		g.routeMu.Lock()
		if g.removed {
			g.routeMu.Unlock()
			continue
		}
		defer g.routeMu.Unlock()
		if !info.Player {
			g.observers[conn] = struct{}{}
			return nil
		}
		if held := g.players[info.Color]; held != nil && held != conn {
			return fmt.Errorf("%w: %s is already connected in game %d", domain.ErrAlreadyTaken, info.Color, gameID)
		}
		g.players[info.Color] = conn
		return nil
	}
}

// Leave detaches conn. The persisted color slot is cleared afterwards, and
// only while the leaver still holds it.
func (r *Router) Leave(ctx context.Context, conn Conn) (SessionInfo, error) {
	v, ok := r.sessions.Load(conn)
	if !ok {
		return SessionInfo{}, domain.ErrNotJoined
	}
	s := v.(*session)
	info := s.snapshot()

	if err := r.detach(info.GameID, conn); err != nil {
		return info, err
	}

	var err error
	if info.Player {
		err = r.store.ClearGamePlayer(ctx, info.GameID, info.Color, info.Username)
	}
	r.sessions.CompareAndDelete(conn, s)
	r.logger.Info("pvp_leave",
		zap.Int("game_id", info.GameID),
		zap.String("username", info.Username),
		zap.String("role", info.Role()),
		zap.Error(err),
	)
	return info, err
}

func (r *Router) detach(gameID int, conn Conn) error {
	v, ok := r.games.Load(gameID)
	if !ok {
		return domain.ErrNotJoined
	}
	g := v.(*gameInfo)
	g.routeMu.Lock()
	defer g.routeMu.Unlock()

	found := false
	for i, c := range g.players {
		if c == conn {
			g.players[i] = nil
			found = true
		}
	}
	if _, ok := g.observers[conn]; ok {
		delete(g.observers, conn)
		found = true
	}
	if !found {
		return domain.ErrNotJoined
	}
	if g.empty() {
		g.removed = true
		r.games.CompareAndDelete(gameID, g)
	}
	return nil
}

// SetVerbose opts conn into state snapshots after resignations.
func (r *Router) SetVerbose(conn Conn) error {
	v, ok := r.sessions.Load(conn)
	if !ok {
		return domain.ErrNotJoined
	}
	s := v.(*session)
	s.mu.Lock()
	s.info.Verbose = true
	s.mu.Unlock()
	return nil
}

func (r *Router) Session(conn Conn) (SessionInfo, bool) {
	v, ok := r.sessions.Load(conn)
	if !ok {
		return SessionInfo{}, false
	}
	return v.(*session).snapshot(), true
}

// Participants returns the connections currently routed for gameID.
func (r *Router) Participants(gameID int) []Conn {
	v, ok := r.games.Load(gameID)
	if !ok {
		return nil
	}
	g := v.(*gameInfo)
	g.routeMu.Lock()
	defer g.routeMu.Unlock()
	return g.recipients()
}

// Send encodes msg and writes it to conn.
func (r *Router) Send(ctx context.Context, conn Conn, msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return conn.Send(ctx, raw)
}

// Broadcast sends msg to every participant of gameID except exclude (which
// may be nil). Failed recipients are logged and skipped.
func (r *Router) Broadcast(ctx context.Context, gameID int, exclude Conn, msg any) error {
	return r.fanOut(ctx, gameID, msg, func(c Conn) bool { return c != exclude })
}

// BroadcastVerbose sends msg only to participants that asked for it.
func (r *Router) BroadcastVerbose(ctx context.Context, gameID int, msg any) error {
	return r.fanOut(ctx, gameID, msg, func(c Conn) bool {
		info, ok := r.Session(c)
		return ok && info.Verbose
	})
}

func (r *Router) fanOut(ctx context.Context, gameID int, msg any, keep func(Conn) bool) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	for _, c := range r.Participants(gameID) {
		if !keep(c) {
			continue
		}
		if err := c.Send(ctx, raw); err != nil {
			r.logger.Warn("pvp_broadcast_send_failed", zap.Int("game_id", gameID), zap.Error(err))
		}
	}
	return nil
}

// Clear forgets every game and session.
func (r *Router) Clear() {
	r.games.Clear()
	r.sessions.Clear()
	r.moveLocks.Clear()
}

func (r *Router) moveLock(gameID int) *sync.Mutex {
	v, _ := r.moveLocks.LoadOrStore(gameID, &sync.Mutex{})
	return v.(*sync.Mutex)
}
