package chess

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	corechess "github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/pvp"
	"github.com/park285/cheese-chess-server/internal/store"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	svc, err := NewService(st, pvp.NewRouter(st, nil), nil, Config{BcryptCost: bcrypt.MinCost}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, st
}

func TestRegisterLoginLogout(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	tok, err := svc.Register(ctx, "alice", "pw", "a@example.com")
	if err != nil || tok.Username != "alice" || tok.Token == "" {
		t.Fatalf("Register = %+v, %v", tok, err)
	}
	u, err := st.GetUser(ctx, "alice")
	if err != nil || u.PasswordHash == "pw" {
		t.Fatalf("password stored in clear or missing: %+v, %v", u, err)
	}
	if _, err := svc.Register(ctx, "alice", "other", ""); !errors.Is(err, domain.ErrAlreadyTaken) {
		t.Fatalf("duplicate register err = %v", err)
	}
	if _, err := svc.Register(ctx, " ", "pw", ""); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("blank username err = %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "pw"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unknown user err = %v", err)
	}
	second, err := svc.Login(ctx, "alice", "pw")
	if err != nil || second.Token == tok.Token {
		t.Fatalf("Login = %+v, %v", second, err)
	}

	if err := svc.Logout(ctx, tok.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ResolveAuthToken(ctx, tok.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("token survived logout: %v", err)
	}
	if name, err := svc.ResolveAuthToken(ctx, second.Token); err != nil || name != "alice" {
		t.Fatalf("other token = %q, %v", name, err)
	}
	if err := svc.Logout(ctx, tok.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("double logout err = %v", err)
	}
}

func TestLobby(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, _ := svc.Register(ctx, "alice", "pw", "")
	bob, _ := svc.Register(ctx, "bob", "pw", "")

	if _, err := svc.CreateGame(ctx, "bogus", "g"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unauthorized create err = %v", err)
	}
	if _, err := svc.CreateGame(ctx, alice.Token, "  "); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("blank name err = %v", err)
	}
	id, err := svc.CreateGame(ctx, alice.Token, "first")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	if err := svc.JoinGame(ctx, alice.Token, id, "WHITE"); err != nil {
		t.Fatalf("join white: %v", err)
	}
	if err := svc.JoinGame(ctx, alice.Token, id, "WHITE"); err != nil {
		t.Fatalf("rejoin same color should be idempotent: %v", err)
	}
	if err := svc.JoinGame(ctx, bob.Token, id, "WHITE"); !errors.Is(err, domain.ErrAlreadyTaken) {
		t.Fatalf("taken color err = %v", err)
	}
	if err := svc.JoinGame(ctx, bob.Token, id, "PURPLE"); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("bad color err = %v", err)
	}
	if err := svc.JoinGame(ctx, bob.Token, id+1, "BLACK"); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("unknown game err = %v", err)
	}
	if err := svc.JoinGame(ctx, bob.Token, id, ""); err != nil {
		t.Fatalf("observe: %v", err)
	}

	games, err := svc.ListGames(ctx, bob.Token)
	if err != nil || len(games) != 1 {
		t.Fatalf("ListGames = %v, %v", games, err)
	}
	g := games[0]
	if g.ID != id || g.WhiteUsername != "alice" || g.BlackUsername != "" || g.State != domain.StateUnfinished {
		t.Fatalf("listed game = %+v", g)
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := svc.ListGames(ctx, bob.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("tokens should be gone after clear: %v", err)
	}
}

func TestRenderBoard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, _ := svc.Register(ctx, "alice", "pw", "")
	id, err := svc.CreateGame(ctx, alice.Token, "render")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	for _, side := range []corechess.Color{corechess.White, corechess.Black} {
		raw, err := svc.RenderBoard(ctx, alice.Token, id, side)
		if err != nil {
			t.Fatalf("RenderBoard(%s): %v", side, err)
		}
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("png.Decode: %v", err)
		}
		if b := img.Bounds(); b.Dx() != boardPixels+sideMargin*2 || b.Dy() != boardPixels+topMargin+bottomMargin {
			t.Fatalf("image size = %v", b)
		}
	}
	if _, err := svc.RenderBoard(ctx, alice.Token, id+5, corechess.White); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("missing game err = %v", err)
	}
}

func TestBoardViewFlipsForBlack(t *testing.T) {
	a1 := corechess.NewPosition(1, 1)
	if row, col := newBoardView(corechess.White, image.Point{}).cell(a1); row != 7 || col != 0 {
		t.Fatalf("white a1 = %d,%d", row, col)
	}
	if row, col := newBoardView(corechess.Black, image.Point{}).cell(a1); row != 0 || col != 7 {
		t.Fatalf("black a1 = %d,%d", row, col)
	}
}

