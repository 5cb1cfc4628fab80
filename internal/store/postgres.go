package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/obslog"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS chess_users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS chess_auth_tokens (
	token      TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS chess_games (
	game_id        SERIAL PRIMARY KEY,
	white_username TEXT,
	black_username TEXT,
	game_name      TEXT NOT NULL,
	game           JSONB NOT NULL,
	state          TEXT NOT NULL
);`

// pqUniqueViolation is the SQLSTATE for a duplicate key.
const pqUniqueViolation = "23505"

type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// playerColumn maps a color to its slot column. Never built from input.
func playerColumn(color chess.Color) string {
	if color == chess.Black {
		return "black_username"
	}
	return "white_username"
}

func (p *Postgres) CreateGame(ctx context.Context, name string, game *chess.Game) (int, error) {
	raw, err := json.Marshal(game)
	if err != nil {
		return 0, err
	}
	const q = `INSERT INTO chess_games (game_name, game, state) VALUES ($1, $2::jsonb, $3) RETURNING game_id`
	var id int
	if err := p.db.QueryRowContext(ctx, q, strings.TrimSpace(name), string(raw), string(domain.StateUnfinished)).Scan(&id); err != nil {
		return 0, dataAccess("insert game", err)
	}
	obslog.L().Info("pg_game_create", zap.Int("game_id", id), zap.String("game_name", name))
	return id, nil
}

const selectGame = `SELECT game_id, COALESCE(white_username, ''), COALESCE(black_username, ''), game_name, game, state FROM chess_games`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.GameRecord, error) {
	var (
		rec   domain.GameRecord
		raw   []byte
		state string
	)
	if err := row.Scan(&rec.ID, &rec.WhiteUsername, &rec.BlackUsername, &rec.GameName, &raw, &state); err != nil {
		return nil, err
	}
	rec.Game = &chess.Game{}
	if err := json.Unmarshal(raw, rec.Game); err != nil {
		return nil, fmt.Errorf("decode game %d: %w", rec.ID, err)
	}
	rec.State = domain.GameState(state)
	return &rec, nil
}

func (p *Postgres) GetGame(ctx context.Context, id int) (*domain.GameRecord, error) {
	rec, err := scanRecord(p.db.QueryRowContext(ctx, selectGame+` WHERE game_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, dataAccess("get game", err)
	}
	return rec, nil
}

func (p *Postgres) ListGames(ctx context.Context) ([]*domain.GameRecord, error) {
	rows, err := p.db.QueryContext(ctx, selectGame+` ORDER BY game_id`)
	if err != nil {
		return nil, dataAccess("list games", err)
	}
	defer rows.Close()
	out := []*domain.GameRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, dataAccess("list games", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("list games", err)
	}
	return out, nil
}

func (p *Postgres) UpdateGamePlayer(ctx context.Context, id int, color chess.Color, username string) error {
	col := playerColumn(color)
	q := `UPDATE chess_games SET ` + col + ` = $2 WHERE game_id = $1 AND (` + col + ` IS NULL OR ` + col + ` = '' OR ` + col + ` = $2)`
	res, err := p.db.ExecContext(ctx, q, id, username)
	if err != nil {
		return dataAccess("update game player", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := p.GetGame(ctx, id); err != nil {
		return err
	}
	return domain.ErrAlreadyTaken
}

func (p *Postgres) ClearGamePlayer(ctx context.Context, id int, color chess.Color, username string) error {
	col := playerColumn(color)
	q := `UPDATE chess_games SET ` + col + ` = NULL WHERE game_id = $1 AND ` + col + ` = $2`
	if _, err := p.db.ExecContext(ctx, q, id, username); err != nil {
		return dataAccess("clear game player", err)
	}
	return nil
}

func (p *Postgres) UpdateGameState(ctx context.Context, id int, state domain.GameState) error {
	return p.execOne(ctx, "update game state", `UPDATE chess_games SET state = $2 WHERE game_id = $1`, id, string(state))
}

func (p *Postgres) UpdateSerializedGame(ctx context.Context, id int, game *chess.Game) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return err
	}
	return p.execOne(ctx, "update game", `UPDATE chess_games SET game = $2::jsonb WHERE game_id = $1`, id, string(raw))
}

func (p *Postgres) execOne(ctx context.Context, op, q string, id int, arg any) error {
	res, err := p.db.ExecContext(ctx, q, id, arg)
	if err != nil {
		return dataAccess(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u domain.User) error {
	const q = `INSERT INTO chess_users (username, password_hash, email) VALUES ($1, $2, $3)`
	if _, err := p.db.ExecContext(ctx, q, u.Username, u.PasswordHash, u.Email); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.ErrAlreadyTaken
		}
		return dataAccess("insert user", err)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT username, password_hash, email FROM chess_users WHERE username = $1`
	var u domain.User
	err := p.db.QueryRowContext(ctx, q, username).Scan(&u.Username, &u.PasswordHash, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, dataAccess("get user", err)
	}
	return &u, nil
}

func (p *Postgres) CreateAuthToken(ctx context.Context, username string) (domain.AuthToken, error) {
	tok := domain.AuthToken{Token: uuid.NewString(), Username: username}
	const q = `INSERT INTO chess_auth_tokens (token, username) VALUES ($1, $2)`
	if _, err := p.db.ExecContext(ctx, q, tok.Token, username); err != nil {
		return domain.AuthToken{}, dataAccess("insert auth token", err)
	}
	return tok, nil
}

func (p *Postgres) ResolveAuthToken(ctx context.Context, token string) (string, error) {
	var username string
	err := p.db.QueryRowContext(ctx, `SELECT username FROM chess_auth_tokens WHERE token = $1`, token).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrUnauthorized
	}
	if err != nil {
		return "", dataAccess("resolve auth token", err)
	}
	return username, nil
}

func (p *Postgres) DeleteAuthToken(ctx context.Context, token string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM chess_auth_tokens WHERE token = $1`, token)
	if err != nil {
		return dataAccess("delete auth token", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUnauthorized
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context) error {
	const q = `TRUNCATE chess_games, chess_auth_tokens, chess_users RESTART IDENTITY`
	if _, err := p.db.ExecContext(ctx, q); err != nil {
		return dataAccess("clear", err)
	}
	return nil
}
