package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxTxRetries = 8

// errUnchanged aborts a WATCH transaction without writing.
var errUnchanged = errors.New("record unchanged")

// Redis keeps games, users and auth tokens in Redis. Record updates run as
// WATCH transactions so concurrent writers never lose each other's changes.
type Redis struct {
	rdb      *redis.Client
	tokenTTL time.Duration
}

func NewRedis(redisURL string, tokenTTL time.Duration) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, tokenTTL: tokenTTL}, nil
}

func (s *Redis) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func gameKey(id int) string          { return "chess:game:" + strconv.Itoa(id) }
func userKey(username string) string { return "chess:user:" + strings.TrimSpace(username) }
func tokenKey(token string) string   { return "chess:token:" + strings.TrimSpace(token) }

const (
	gameSeqKey   = "chess:game:seq"
	gameIndexKey = "chess:games"
)

func (s *Redis) CreateGame(ctx context.Context, name string, game *chess.Game) (int, error) {
	n, err := s.rdb.Incr(ctx, gameSeqKey).Result()
	if err != nil {
		return 0, dataAccess("create game", err)
	}
	rec := &domain.GameRecord{ID: int(n), GameName: strings.TrimSpace(name), Game: game, State: domain.StateUnfinished}
	raw, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, gameKey(rec.ID), raw, 0)
	pipe.SAdd(ctx, gameIndexKey, rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, dataAccess("create game", err)
	}
	obslog.L().Info("redis_game_create", zap.Int("game_id", rec.ID), zap.String("game_name", rec.GameName))
	return rec.ID, nil
}

func (s *Redis) GetGame(ctx context.Context, id int) (*domain.GameRecord, error) {
	raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, dataAccess("get game", err)
	}
	return decodeRecord(raw)
}

func (s *Redis) ListGames(ctx context.Context) ([]*domain.GameRecord, error) {
	ids, err := s.rdb.SMembers(ctx, gameIndexKey).Result()
	if err != nil {
		return nil, dataAccess("list games", err)
	}
	out := make([]*domain.GameRecord, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		keys = append(keys, gameKey(n))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, dataAccess("list games", err)
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decodeRecord([]byte(str))
		if err != nil {
			obslog.L().Warn("redis_game_decode_failed", zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Redis) UpdateGamePlayer(ctx context.Context, id int, color chess.Color, username string) error {
	return s.mutate(ctx, id, "update game player", func(rec *domain.GameRecord) error {
		held := rec.Player(color)
		if held == username {
			return errUnchanged
		}
		if held != "" {
			return domain.ErrAlreadyTaken
		}
		rec.SetPlayer(color, username)
		return nil
	})
}

func (s *Redis) ClearGamePlayer(ctx context.Context, id int, color chess.Color, username string) error {
	return s.mutate(ctx, id, "clear game player", func(rec *domain.GameRecord) error {
		if rec.Player(color) != username {
			return errUnchanged
		}
		rec.SetPlayer(color, "")
		return nil
	})
}

func (s *Redis) UpdateGameState(ctx context.Context, id int, state domain.GameState) error {
	return s.mutate(ctx, id, "update game state", func(rec *domain.GameRecord) error {
		rec.State = state
		return nil
	})
}

func (s *Redis) UpdateSerializedGame(ctx context.Context, id int, game *chess.Game) error {
	return s.mutate(ctx, id, "update game", func(rec *domain.GameRecord) error {
		rec.Game = game
		return nil
	})
}

// mutate runs fn inside a WATCH on the game key and retries when another
// writer got there first.
func (s *Redis) mutate(ctx context.Context, id int, op string, fn func(rec *domain.GameRecord) error) error {
	key := gameKey(id)
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return domain.ErrGameNotFound
			}
			if err != nil {
				return err
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
			newRaw, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, newRaw, 0)
				return nil
			})
			return err
		}, key)
		switch {
		case err == nil, errors.Is(err, errUnchanged):
			return nil
		case errors.Is(err, redis.TxFailedErr):
			obslog.L().Debug("redis_tx_retry", zap.Int("game_id", id), zap.String("op", op), zap.Int("attempt", attempt))
			continue
		case errors.Is(err, domain.ErrGameNotFound), errors.Is(err, domain.ErrAlreadyTaken), errors.Is(err, domain.ErrDataAccess):
			return err
		default:
			return dataAccess(op, err)
		}
	}
	return dataAccess(op, redis.TxFailedErr)
}

func decodeRecord(raw []byte) (*domain.GameRecord, error) {
	var rec domain.GameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, dataAccess("decode game", err)
	}
	return &rec, nil
}

func (s *Redis) CreateUser(ctx context.Context, u domain.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, userKey(u.Username), raw, 0).Result()
	if err != nil {
		return dataAccess("create user", err)
	}
	if !ok {
		return domain.ErrAlreadyTaken
	}
	return nil
}

func (s *Redis) GetUser(ctx context.Context, username string) (*domain.User, error) {
	raw, err := s.rdb.Get(ctx, userKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, dataAccess("get user", err)
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, dataAccess("decode user", err)
	}
	return &u, nil
}

func (s *Redis) CreateAuthToken(ctx context.Context, username string) (domain.AuthToken, error) {
	tok := domain.AuthToken{Token: uuid.NewString(), Username: username}
	if err := s.rdb.Set(ctx, tokenKey(tok.Token), username, s.tokenTTL).Err(); err != nil {
		return domain.AuthToken{}, dataAccess("create auth token", err)
	}
	return tok, nil
}

func (s *Redis) ResolveAuthToken(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", domain.ErrUnauthorized
	}
	username, err := s.rdb.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrUnauthorized
	}
	if err != nil {
		return "", dataAccess("resolve auth token", err)
	}
	return username, nil
}

func (s *Redis) DeleteAuthToken(ctx context.Context, token string) error {
	n, err := s.rdb.Del(ctx, tokenKey(token)).Result()
	if err != nil {
		return dataAccess("delete auth token", err)
	}
	if n == 0 {
		return domain.ErrUnauthorized
	}
	return nil
}

// Clear removes every key this store owns.
func (s *Redis) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, "chess:*", 256).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return dataAccess("clear", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return dataAccess("clear", err)
	}
	return nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
