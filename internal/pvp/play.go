package pvp

import (
	"context"
	"fmt"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"go.uber.org/zap"
)

// MakeMove checks out the game, validates and applies move, and checks the
// result back in, all under the game's move lock. Concurrent movers are
// totally ordered; the loser sees a stale turn and gets ErrNotYourTurn.
func (r *Router) MakeMove(ctx context.Context, conn Conn, move chess.Move) (*MoveResult, error) {
	sess, ok := r.Session(conn)
	if !ok {
		return nil, domain.ErrNotJoined
	}
	if !sess.Player {
		return nil, domain.ErrNotYourTurn
	}

	mu := r.moveLock(sess.GameID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := r.store.GetGame(ctx, sess.GameID)
	if err != nil {
		return nil, err
	}
	if rec.State.Finished() {
		return nil, domain.ErrGameAlreadyEnded
	}
	game := rec.Game
	if game.Turn() != sess.Color || rec.Player(sess.Color) != sess.Username {
		return nil, domain.ErrNotYourTurn
	}

	before := game.Copy()
	if err := game.MakeMove(move); err != nil {
		return nil, err
	}
	if err := r.store.UpdateSerializedGame(ctx, rec.ID, game); err != nil {
		return nil, err
	}

	outcome := game.Status(game.Turn())
	switch outcome {
	case chess.OutcomeCheckmate:
		rec.State = domain.StateCheckmate
	case chess.OutcomeStalemate:
		rec.State = domain.StateStalemate
	}
	if rec.State.Finished() {
		if err := r.store.UpdateGameState(ctx, rec.ID, rec.State); err != nil {
			return nil, err
		}
	}

	r.logger.Info("pvp_move",
		zap.Int("game_id", rec.ID),
		zap.String("username", sess.Username),
		zap.String("move", move.String()),
		zap.Int("round", game.Round()),
		zap.String("outcome", outcome.String()),
	)
	return &MoveResult{Record: rec, Before: before, Mover: sess, Outcome: outcome}, nil
}

// Resign marks the game RESIGNED. Observers cannot resign.
func (r *Router) Resign(ctx context.Context, conn Conn) (*domain.GameRecord, SessionInfo, error) {
	sess, ok := r.Session(conn)
	if !ok {
		return nil, sess, domain.ErrNotJoined
	}
	if !sess.Player {
		return nil, sess, domain.ErrObserverResign
	}

	mu := r.moveLock(sess.GameID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := r.store.GetGame(ctx, sess.GameID)
	if err != nil {
		return nil, sess, err
	}
	if rec.State.Finished() {
		return nil, sess, fmt.Errorf("%w: game %d is %s", domain.ErrGameAlreadyEnded, rec.ID, rec.State)
	}
	if err := r.store.UpdateGameState(ctx, rec.ID, domain.StateResigned); err != nil {
		return nil, sess, err
	}
	rec.State = domain.StateResigned
	r.logger.Info("pvp_resign", zap.Int("game_id", rec.ID), zap.String("username", sess.Username))
	return rec, sess, nil
}
