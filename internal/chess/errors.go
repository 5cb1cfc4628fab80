package chess

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMove = errors.New("invalid move")
	// ErrPromotionRequired is returned when a pawn reaches the far rank without a promotion choice.
	ErrPromotionRequired = fmt.Errorf("%w: promotion piece required", ErrInvalidMove)
	ErrEmptySquare       = errors.New("no piece on square")
	ErrCorruptBoard      = errors.New("corrupt board encoding")
)

func invalidMove(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidMove, reason)
}
