package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"

	corechess "github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/pvp"
	"github.com/park285/cheese-chess-server/internal/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const maxGameNameRunes = 64

type Config struct {
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service is the account and lobby side of the server: users, tokens and
// game records. Live play goes through the pvp router.
type Service struct {
	store    store.Store
	router   *pvp.Router
	renderer BoardRenderer
	cfg      Config
	logger   *zap.Logger
}

func NewService(st store.Store, router *pvp.Router, renderer BoardRenderer, cfg Config, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, errors.New("chess service requires a store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = NewSVGBoardRenderer()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cfg.BcryptCost)
	}
	return &Service{store: st, router: router, renderer: renderer, cfg: cfg, logger: logger}, nil
}

func (s *Service) Register(ctx context.Context, username, password, email string) (domain.AuthToken, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.AuthToken{}, fmt.Errorf("%w: username and password are required", domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return domain.AuthToken{}, fmt.Errorf("%w: hash password: %v", domain.ErrBadRequest, err)
	}
	user := domain.User{Username: username, PasswordHash: string(hash), Email: strings.TrimSpace(email)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return domain.AuthToken{}, err
	}
	s.logger.Info("user_registered", zap.String("username", username))
	return s.store.CreateAuthToken(ctx, username)
}

// Login checks the password and issues a fresh token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (domain.AuthToken, error) {
	user, err := s.store.GetUser(ctx, strings.TrimSpace(username))
	if err != nil {
		return domain.AuthToken{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.AuthToken{}, fmt.Errorf("%w: bad credentials", domain.ErrUnauthorized)
	}
	return s.store.CreateAuthToken(ctx, user.Username)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteAuthToken(ctx, token)
}

func (s *Service) ResolveAuthToken(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: missing auth token", domain.ErrUnauthorized)
	}
	return s.store.ResolveAuthToken(ctx, token)
}

// CreateGame stores a fresh standard game in state UNFINISHED.
func (s *Service) CreateGame(ctx context.Context, token, name string) (int, error) {
	username, err := s.ResolveAuthToken(ctx, token)
	if err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxGameNameRunes {
		return 0, fmt.Errorf("%w: game name must be 1-%d characters", domain.ErrBadRequest, maxGameNameRunes)
	}
	id, err := s.store.CreateGame(ctx, name, corechess.NewGame())
	if err != nil {
		return 0, err
	}
	s.logger.Info("game_created", zap.Int("game_id", id), zap.String("game_name", name), zap.String("username", username))
	return id, nil
}

func (s *Service) ListGames(ctx context.Context, token string) ([]*domain.GameRecord, error) {
	if _, err := s.ResolveAuthToken(ctx, token); err != nil {
		return nil, err
	}
	return s.store.ListGames(ctx)
}

// JoinGame claims color in game id for the token's user. An empty color is
// an observer and only checks that the game exists.
func (s *Service) JoinGame(ctx context.Context, token string, id int, color string) error {
	username, err := s.ResolveAuthToken(ctx, token)
	if err != nil {
		return err
	}
	if _, err := s.store.GetGame(ctx, id); err != nil {
		if errors.Is(err, domain.ErrGameNotFound) {
			return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
		}
		return err
	}
	if strings.TrimSpace(color) == "" {
		return nil
	}
	c, err := corechess.ParseColor(color)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	if err := s.store.UpdateGamePlayer(ctx, id, c, username); err != nil {
		return err
	}
	s.logger.Info("game_seat_claimed", zap.Int("game_id", id), zap.String("username", username), zap.String("color", c.String()))
	return nil
}

// Clear wipes persisted data and the live session registries.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	if s.router != nil {
		s.router.Clear()
	}
	s.logger.Warn("store_cleared")
	return nil
}

// RenderBoard draws the stored game id as PNG from perspective.
func (s *Service) RenderBoard(ctx context.Context, token string, id int, perspective corechess.Color) ([]byte, error) {
	if _, err := s.ResolveAuthToken(ctx, token); err != nil {
		return nil, err
	}
	rec, err := s.store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderPNG(ctx, rec.Game, RenderOptions{
		Perspective: perspective,
		Title:       rec.GameName,
		State:       string(rec.State),
	})
}
