package store

import (
	"context"
	"fmt"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
)

// Games is the persistence collaborator of the session router. Every
// method returns a copy; callers never share a record with the store.
type Games interface {
	CreateGame(ctx context.Context, name string, game *chess.Game) (int, error)
	GetGame(ctx context.Context, id int) (*domain.GameRecord, error)
	ListGames(ctx context.Context) ([]*domain.GameRecord, error)
	// UpdateGamePlayer claims color for username. It fails with
	// domain.ErrAlreadyTaken when another user holds the slot.
	UpdateGamePlayer(ctx context.Context, id int, color chess.Color, username string) error
	// ClearGamePlayer empties the slot only while username still holds it.
	ClearGamePlayer(ctx context.Context, id int, color chess.Color, username string) error
	UpdateGameState(ctx context.Context, id int, state domain.GameState) error
	UpdateSerializedGame(ctx context.Context, id int, game *chess.Game) error
}

type Users interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, username string) (*domain.User, error)
}

type Tokens interface {
	CreateAuthToken(ctx context.Context, username string) (domain.AuthToken, error)
	// ResolveAuthToken returns domain.ErrUnauthorized for unknown tokens.
	ResolveAuthToken(ctx context.Context, token string) (string, error)
	DeleteAuthToken(ctx context.Context, token string) error
}

type Store interface {
	Games
	Users
	Tokens
	Clear(ctx context.Context) error
	Close() error
}

// WithTokens routes token calls to tokens and everything else to base.
func WithTokens(base Store, tokens TokenStore) Store {
	return &split{Store: base, tokens: tokens}
}

// TokenStore is a Tokens backend with its own lifecycle.
type TokenStore interface {
	Tokens
	Clear(ctx context.Context) error
	Close() error
}

type split struct {
	Store
	tokens TokenStore
}

func (s *split) CreateAuthToken(ctx context.Context, username string) (domain.AuthToken, error) {
	return s.tokens.CreateAuthToken(ctx, username)
}

func (s *split) ResolveAuthToken(ctx context.Context, token string) (string, error) {
	return s.tokens.ResolveAuthToken(ctx, token)
}

func (s *split) DeleteAuthToken(ctx context.Context, token string) error {
	return s.tokens.DeleteAuthToken(ctx, token)
}

func (s *split) Clear(ctx context.Context) error {
	if err := s.Store.Clear(ctx); err != nil {
		return err
	}
	return s.tokens.Clear(ctx)
}

func (s *split) Close() error {
	err := s.tokens.Close()
	if cerr := s.Store.Close(); cerr != nil {
		return cerr
	}
	return err
}

func dataAccess(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrDataAccess, err)
}
