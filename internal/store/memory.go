package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
)

// Memory is the store used when neither Postgres nor Redis is configured.
type Memory struct {
	mu sync.RWMutex

	nextID int
	games  map[int]*domain.GameRecord
	users  map[string]domain.User
	tokens map[string]string // token -> username
}

func NewMemory() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.nextID = 0
	m.games = make(map[int]*domain.GameRecord)
	m.users = make(map[string]domain.User)
	m.tokens = make(map[string]string)
}

func (m *Memory) CreateGame(ctx context.Context, name string, game *chess.Game) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.games[m.nextID] = &domain.GameRecord{
		ID:       m.nextID,
		GameName: strings.TrimSpace(name),
		Game:     game.Copy(),
		State:    domain.StateUnfinished,
	}
	return m.nextID, nil
}

func (m *Memory) GetGame(ctx context.Context, id int) (*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) ListGames(ctx context.Context) ([]*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.GameRecord, 0, len(m.games))
	for _, rec := range m.games {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateGamePlayer(ctx context.Context, id int, color chess.Color, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return domain.ErrGameNotFound
	}
	if held := rec.Player(color); held != "" && held != username {
		return domain.ErrAlreadyTaken
	}
	rec.SetPlayer(color, username)
	return nil
}

func (m *Memory) ClearGamePlayer(ctx context.Context, id int, color chess.Color, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return domain.ErrGameNotFound
	}
	if rec.Player(color) == username {
		rec.SetPlayer(color, "")
	}
	return nil
}

func (m *Memory) UpdateGameState(ctx context.Context, id int, state domain.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return domain.ErrGameNotFound
	}
	rec.State = state
	return nil
}

func (m *Memory) UpdateSerializedGame(ctx context.Context, id int, game *chess.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return domain.ErrGameNotFound
	}
	rec.Game = game.Copy()
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.Username]; exists {
		return domain.ErrAlreadyTaken
	}
	m.users[u.Username] = u
	return nil
}

func (m *Memory) GetUser(ctx context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return &u, nil
}

func (m *Memory) CreateAuthToken(ctx context.Context, username string) (domain.AuthToken, error) {
	tok := domain.AuthToken{Token: uuid.NewString(), Username: username}
	m.mu.Lock()
	m.tokens[tok.Token] = username
	m.mu.Unlock()
	return tok, nil
}

func (m *Memory) ResolveAuthToken(ctx context.Context, token string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	username, ok := m.tokens[token]
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return username, nil
}

func (m *Memory) DeleteAuthToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; !ok {
		return domain.ErrUnauthorized
	}
	delete(m.tokens, token)
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.reset()
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
