package domain

import (
	"errors"

	"github.com/park285/cheese-chess-server/internal/chess"
)

var (
	ErrInvalidMove      = chess.ErrInvalidMove
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrGameAlreadyEnded = errors.New("game already ended")
	ErrGameNotFound     = errors.New("game not found")
	ErrAlreadyTaken     = errors.New("already taken")
	ErrDataAccess       = errors.New("data access failure")
	ErrBadRequest       = errors.New("bad request")
	ErrObserverResign   = errors.New("observer cannot resign")
	ErrNotJoined        = errors.New("connection not joined")
)

// UserMessage is the text shown to players for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, chess.ErrPromotionRequired):
		return "Promotion piece required!"
	case errors.Is(err, ErrInvalidMove):
		return "Invalid Move!"
	case errors.Is(err, ErrObserverResign):
		return "Can't Resign as Observer"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotJoined):
		return "Not Authorized!"
	case errors.Is(err, ErrNotYourTurn):
		return "Not your turn to Move!"
	case errors.Is(err, ErrGameAlreadyEnded):
		return "Game has already ended!"
	case errors.Is(err, ErrGameNotFound):
		return "Game ID not recognized!"
	case errors.Is(err, ErrAlreadyTaken):
		return "Already Taken!"
	case errors.Is(err, ErrBadRequest):
		return "Bad Request!"
	case errors.Is(err, ErrDataAccess):
		return "Data access failure!"
	}
	return err.Error()
}
