package chessbuilder

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/park285/cheese-chess-server/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess-server/internal/config"
	"github.com/park285/cheese-chess-server/internal/dispatch"
	"github.com/park285/cheese-chess-server/internal/httpapi"
	"github.com/park285/cheese-chess-server/internal/msgcat"
	"github.com/park285/cheese-chess-server/internal/pvp"
	svcchess "github.com/park285/cheese-chess-server/internal/service/chess"
	"github.com/park285/cheese-chess-server/internal/store"
	"go.uber.org/zap"
)

// Deps is the assembled server. Handler serves both REST and /connect.
type Deps struct {
	Store      store.Store
	Router     *pvp.Router
	Service    *svcchess.Service
	Dispatcher *dispatch.Dispatcher
	Handler    http.Handler
	Backend    string
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	st, backend, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("store_opened", zap.String("backend", backend))

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}

	router := pvp.NewRouter(st, logger.Named("pvp"))
	service, err := svcchess.NewService(st, router, svcchess.NewSVGBoardRenderer(), svcchess.Config{BcryptCost: cfg.BcryptCost}, logger.Named("lobby"))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	formatter := chesspresenter.NewFormatter(cat, logger)
	d := dispatch.New(router, service, formatter, logger.Named("ws"))
	ws := dispatch.NewWSHandler(d, dispatch.WSOptions{
		OriginPatterns: cfg.AllowedOrigins,
		PingInterval:   cfg.WSPingInterval,
	})
	handler := httpapi.NewHandler(service, ws, httpapi.Options{AllowedOrigins: cfg.AllowedOrigins}, logger.Named("http"))

	return &Deps{
		Store:      st,
		Router:     router,
		Service:    service,
		Dispatcher: d,
		Handler:    handler,
		Backend:    backend,
	}, nil
}

func (d *Deps) Close() error {
	if d == nil || d.Store == nil {
		return nil
	}
	d.Router.Clear()
	return d.Store.Close()
}

// openStore picks the backend from the configured URLs:
// postgres, postgres+redis tokens, redis, or memory.
func openStore(cfg *config.AppConfig) (store.Store, string, error) {
	pgURL := strings.TrimSpace(cfg.DatabaseURL)
	redisURL := strings.TrimSpace(cfg.RedisURL)

	switch {
	case pgURL != "":
		pg, err := store.NewPostgres(pgURL)
		if err != nil {
			return nil, "", fmt.Errorf("init postgres: %w", err)
		}
		if redisURL == "" {
			return pg, "postgres", nil
		}
		tokens, err := store.NewRedis(redisURL, cfg.AuthTokenTTL)
		if err != nil {
			_ = pg.Close()
			return nil, "", fmt.Errorf("init redis tokens: %w", err)
		}
		return store.WithTokens(pg, tokens), "postgres+redis", nil
	case redisURL != "":
		rs, err := store.NewRedis(redisURL, cfg.AuthTokenTTL)
		if err != nil {
			return nil, "", fmt.Errorf("init redis: %w", err)
		}
		return rs, "redis", nil
	default:
		return store.NewMemory(), "memory", nil
	}
}
