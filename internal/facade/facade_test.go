package facade

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-chess-server/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess-server/internal/dispatch"
	"github.com/park285/cheese-chess-server/internal/httpapi"
	"github.com/park285/cheese-chess-server/internal/msgcat"
	"github.com/park285/cheese-chess-server/internal/pvp"
	svc "github.com/park285/cheese-chess-server/internal/service/chess"
	"github.com/park285/cheese-chess-server/internal/store"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"golang.org/x/crypto/bcrypt"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewMemory()
	router := pvp.NewRouter(st, nil)
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	lobby, err := svc.NewService(st, router, nil, svc.Config{BcryptCost: bcrypt.MinCost}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	d := dispatch.New(router, lobby, chesspresenter.NewFormatter(cat, nil), nil)
	ws := dispatch.NewWSHandler(d, dispatch.WSOptions{})
	srv := httptest.NewServer(httpapi.NewHandler(lobby, ws, httpapi.Options{}, nil))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/connect"
}

type inbox chan chessdto.ServerMessage

func (in inbox) next(t *testing.T) chessdto.ServerMessage {
	t.Helper()
	select {
	case m := <-in:
		return m
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a server message")
		return nil
	}
}

func connect(t *testing.T, srv *httptest.Server, token string) (*GameConnection, inbox) {
	t.Helper()
	gc := NewGameConnection(wsURL(srv), token)
	gc.SetPingInterval(0)
	in := make(inbox, 16)
	gc.OnMessage(func(m chessdto.ServerMessage) { in <- m })
	if err := gc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = gc.Close(ctx)
	})
	return gc, in
}

func TestClientLobbyFlow(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL, WithRetry(1))

	if _, err := c.CreateGame(ctx, "x"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("create before login err = %v", err)
	}
	if err := c.Register(ctx, "alice", "pw", "a@x"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if c.Username() != "alice" || c.Token() == "" {
		t.Fatalf("auth state = %q %q", c.Username(), c.Token())
	}
	id, err := c.CreateGame(ctx, "casual")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if err := c.JoinGame(ctx, id, "BLACK"); err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	games, err := c.ListGames(ctx)
	if err != nil || len(games) != 1 || games[0].BlackUsername != "alice" {
		t.Fatalf("ListGames = %+v, %v", games, err)
	}
	png, err := c.BoardPNG(ctx, id, "black")
	if err != nil || len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatalf("BoardPNG = %d bytes, %v", len(png), err)
	}

	other := NewClient(srv.URL)
	if err := other.Register(ctx, "alice", "pw", ""); err == nil {
		t.Fatalf("duplicate register should fail")
	} else {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden || !strings.HasPrefix(apiErr.Message, "Error: ") {
			t.Fatalf("duplicate register err = %v", err)
		}
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := c.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
}

func TestGameConnectionPlaysAMove(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	alice, bob := NewClient(srv.URL), NewClient(srv.URL)
	if err := alice.Register(ctx, "alice", "pw", ""); err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	if err := bob.Register(ctx, "bob", "pw", ""); err != nil {
		t.Fatalf("Register bob: %v", err)
	}
	id, err := alice.CreateGame(ctx, "match")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if err := alice.JoinGame(ctx, id, "WHITE"); err != nil {
		t.Fatalf("join white: %v", err)
	}
	if err := bob.JoinGame(ctx, id, "BLACK"); err != nil {
		t.Fatalf("join black: %v", err)
	}

	aConn, aIn := connect(t, srv, alice.Token())
	bConn, bIn := connect(t, srv, bob.Token())

	if err := aConn.JoinPlayer(ctx, id, "WHITE"); err != nil {
		t.Fatalf("JoinPlayer: %v", err)
	}
	if _, ok := aIn.next(t).(chessdto.LoadGameMessage); !ok {
		t.Fatalf("white did not get LOAD_GAME")
	}
	if err := bConn.JoinPlayer(ctx, id, "BLACK"); err != nil {
		t.Fatalf("JoinPlayer: %v", err)
	}
	if _, ok := bIn.next(t).(chessdto.LoadGameMessage); !ok {
		t.Fatalf("black did not get LOAD_GAME")
	}
	if n, ok := aIn.next(t).(chessdto.NotificationMessage); !ok || n.Message != "bob joined the game." {
		t.Fatalf("join notification = %+v", n)
	}

	move := chessdto.Move{StartPosition: chessdto.Position{Row: 2, Column: 5}, EndPosition: chessdto.Position{Row: 4, Column: 5}}
	if err := aConn.MakeMove(ctx, id, move); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	lg, ok := bIn.next(t).(chessdto.LoadGameMessage)
	if !ok || lg.Game.CurrentTeam != "BLACK" {
		t.Fatalf("black LOAD_GAME after move = %+v", lg)
	}
	if n, ok := bIn.next(t).(chessdto.NotificationMessage); !ok || n.Message != "Move made by alice: e4" {
		t.Fatalf("move notification = %+v", n)
	}

	if err := bConn.MakeMove(ctx, id, move); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if e, ok := bIn.next(t).(chessdto.ErrorMessage); !ok || e.ErrorMessage != "ERROR: Invalid Move!" {
		t.Fatalf("error = %+v", e)
	}

	if err := bConn.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// White's LOAD_GAME from its own move arrives before the departure.
	if _, ok := aIn.next(t).(chessdto.LoadGameMessage); !ok {
		t.Fatalf("white did not get its LOAD_GAME")
	}
	if n, ok := aIn.next(t).(chessdto.NotificationMessage); !ok || n.Message != "bob left the Game" {
		t.Fatalf("close notification = %+v", n)
	}
	if bConn.State() != StateDisconnected {
		t.Fatalf("state after close = %s", bConn.State())
	}
}
