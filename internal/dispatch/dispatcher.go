// Package dispatch turns inbound WebSocket commands into router calls and
// fans the resulting server messages out to the game's participants.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/cheese-chess-server/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/chess/notation"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/pvp"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"go.uber.org/zap"
)

// Identity resolves an auth token to a username.
type Identity interface {
	ResolveAuthToken(ctx context.Context, token string) (string, error)
}

type Dispatcher struct {
	router    *pvp.Router
	identity  Identity
	formatter *chesspresenter.Formatter
	logger    *zap.Logger
}

func New(router *pvp.Router, identity Identity, formatter *chesspresenter.Formatter, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{router: router, identity: identity, formatter: formatter, logger: logger}
}

// Handle processes one raw command from conn. Failures are reported to conn
// alone as an ERROR message.
func (d *Dispatcher) Handle(ctx context.Context, conn pvp.Conn, raw []byte) {
	err := d.handle(ctx, conn, raw)
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrDataAccess) {
		d.logger.Error("ws_command_failed", zap.Error(err))
	} else {
		d.logger.Info("ws_command_rejected", zap.Error(err))
	}
	if sendErr := d.router.Send(ctx, conn, chessdto.NewError(domain.UserMessage(err))); sendErr != nil {
		d.logger.Warn("ws_error_send_failed", zap.Error(sendErr))
	}
}

func (d *Dispatcher) handle(ctx context.Context, conn pvp.Conn, raw []byte) error {
	cmd, err := chessdto.DecodeCommand(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	head := cmd.Header()
	username, err := d.identity.ResolveAuthToken(ctx, head.AuthToken)
	if err != nil {
		return err
	}

	switch c := cmd.(type) {
	case chessdto.JoinPlayerCommand:
		color, err := chess.ParseColor(c.PlayerColor)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
		}
		return d.join(ctx, conn, head.GameID, &color, username)
	case chessdto.JoinObserverCommand:
		return d.join(ctx, conn, head.GameID, nil, username)
	case chessdto.MakeMoveCommand:
		if err := d.requireSession(conn, head.GameID, username); err != nil {
			return err
		}
		return d.makeMove(ctx, conn, c.Move)
	case chessdto.LeaveCommand:
		if err := d.requireSession(conn, head.GameID, username); err != nil {
			return err
		}
		return d.leave(ctx, conn)
	case chessdto.ResignCommand:
		if err := d.requireSession(conn, head.GameID, username); err != nil {
			return err
		}
		return d.resign(ctx, conn)
	case chessdto.VerboseCommand:
		if err := d.requireSession(conn, head.GameID, username); err != nil {
			return err
		}
		return d.router.SetVerbose(conn)
	}
	return fmt.Errorf("%w: %T", chessdto.ErrUnknownCommand, cmd)
}

// requireSession checks that conn joined gameID as username.
func (d *Dispatcher) requireSession(conn pvp.Conn, gameID int, username string) error {
	info, ok := d.router.Session(conn)
	if !ok {
		return domain.ErrNotJoined
	}
	if info.GameID != gameID || info.Username != username {
		return fmt.Errorf("%w: session is %s in game %d", domain.ErrUnauthorized, info.Username, info.GameID)
	}
	return nil
}

func (d *Dispatcher) join(ctx context.Context, conn pvp.Conn, gameID int, color *chess.Color, username string) error {
	rec, err := d.router.Join(ctx, gameID, conn, color, username)
	if err != nil {
		return err
	}
	if err := d.router.Send(ctx, conn, chesspresenter.ToLoadGame(rec)); err != nil {
		d.logger.Warn("ws_load_game_send_failed", zap.Int("game_id", gameID), zap.Error(err))
	}
	note := d.formatter.JoinedObserver(username)
	if color != nil {
		note = d.formatter.JoinedPlayer(username)
	}
	return d.router.Broadcast(ctx, gameID, conn, chessdto.NewNotification(note))
}

func (d *Dispatcher) makeMove(ctx context.Context, conn pvp.Conn, dto chessdto.Move) error {
	move, err := chesspresenter.FromDTOMove(dto)
	if err != nil {
		return err
	}
	res, err := d.router.MakeMove(ctx, conn, move)
	if err != nil {
		return err
	}
	id := res.Record.ID
	if err := d.router.Broadcast(ctx, id, nil, chesspresenter.ToLoadGame(res.Record)); err != nil {
		return err
	}
	moved := d.formatter.Moved(res.Mover.Username, notation.SAN(res.Before, move))
	if err := d.router.Broadcast(ctx, id, conn, chessdto.NewNotification(moved)); err != nil {
		return err
	}
	if note, ok := d.formatter.Outcome(res.Record, res.Outcome); ok {
		return d.router.Broadcast(ctx, id, nil, chessdto.NewNotification(note))
	}
	return nil
}

func (d *Dispatcher) leave(ctx context.Context, conn pvp.Conn) error {
	info, err := d.router.Leave(ctx, conn)
	if errors.Is(err, domain.ErrNotJoined) {
		return err
	}
	if err != nil {
		// The session is already detached; the slot stays claimed.
		d.logger.Warn("ws_leave_clear_failed", zap.Int("game_id", info.GameID), zap.Error(err))
	}
	return d.router.Broadcast(ctx, info.GameID, nil, chessdto.NewNotification(d.formatter.Left(info.Username)))
}

func (d *Dispatcher) resign(ctx context.Context, conn pvp.Conn) error {
	rec, info, err := d.router.Resign(ctx, conn)
	if err != nil {
		return err
	}
	if err := d.router.Broadcast(ctx, rec.ID, nil, chessdto.NewNotification(d.formatter.Resigned(info.Username))); err != nil {
		return err
	}
	return d.router.BroadcastVerbose(ctx, rec.ID, chesspresenter.ToLoadGame(rec))
}

// Closed detaches conn after its transport went away and tells the rest of
// the game. Connections that never joined are ignored.
func (d *Dispatcher) Closed(ctx context.Context, conn pvp.Conn) {
	if _, ok := d.router.Session(conn); !ok {
		return
	}
	if err := d.leave(ctx, conn); err != nil && !errors.Is(err, domain.ErrNotJoined) {
		d.logger.Warn("ws_close_leave_failed", zap.Error(err))
	}
}
