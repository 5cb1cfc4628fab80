package pvp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/park285/cheese-chess-server/internal/chess"
	"github.com/park285/cheese-chess-server/internal/domain"
	"github.com/park285/cheese-chess-server/internal/store"
)

type fakeConn struct {
	name string
	fail bool

	mu   sync.Mutex
	msgs []string
}

func (c *fakeConn) Send(ctx context.Context, data []byte) error {
	if c.fail {
		return errors.New("connection closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, string(data))
	return nil
}

func (c *fakeConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func colorPtr(c chess.Color) *chess.Color { return &c }

// newTestGame creates a game held by alice (white) and bob (black).
func newTestGame(t *testing.T) (*Router, *store.Memory, int) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	id, err := st.CreateGame(ctx, "test", chess.NewGame())
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if err := st.UpdateGamePlayer(ctx, id, chess.White, "alice"); err != nil {
		t.Fatalf("claim white: %v", err)
	}
	if err := st.UpdateGamePlayer(ctx, id, chess.Black, "bob"); err != nil {
		t.Fatalf("claim black: %v", err)
	}
	return NewRouter(st, nil), st, id
}

func joinPlayers(t *testing.T, r *Router, id int) (white, black *fakeConn) {
	t.Helper()
	ctx := context.Background()
	white, black = &fakeConn{name: "white"}, &fakeConn{name: "black"}
	if _, err := r.Join(ctx, id, white, colorPtr(chess.White), "alice"); err != nil {
		t.Fatalf("join white: %v", err)
	}
	if _, err := r.Join(ctx, id, black, colorPtr(chess.Black), "bob"); err != nil {
		t.Fatalf("join black: %v", err)
	}
	return white, black
}

func move(t *testing.T, s string) chess.Move {
	t.Helper()
	from, err := chess.ParsePosition(s[:2])
	if err != nil {
		t.Fatalf("ParsePosition: %v", err)
	}
	to, err := chess.ParsePosition(s[2:4])
	if err != nil {
		t.Fatalf("ParsePosition: %v", err)
	}
	return chess.NewMove(from, to)
}

func TestJoinChecksColorClaim(t *testing.T) {
	r, _, id := newTestGame(t)
	ctx := context.Background()

	if _, err := r.Join(ctx, id, &fakeConn{}, colorPtr(chess.White), "mallory"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong user as white err = %v", err)
	}
	if _, err := r.Join(ctx, id+1, &fakeConn{}, nil, "mallory"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("unknown game err = %v", err)
	}

	obs := &fakeConn{}
	rec, err := r.Join(ctx, id, obs, nil, "mallory")
	if err != nil || rec.ID != id {
		t.Fatalf("observer join = %v, %v", rec, err)
	}
	if info, ok := r.Session(obs); !ok || info.Player || info.Role() != "OBSERVER" {
		t.Fatalf("observer session = %+v %v", info, ok)
	}
	if _, err := r.Join(ctx, id, obs, nil, "mallory"); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("double join err = %v", err)
	}

	white := &fakeConn{}
	if _, err := r.Join(ctx, id, white, colorPtr(chess.White), "alice"); err != nil {
		t.Fatalf("alice as white: %v", err)
	}
	if _, err := r.Join(ctx, id, &fakeConn{}, colorPtr(chess.White), "alice"); !errors.Is(err, domain.ErrAlreadyTaken) {
		t.Fatalf("second white connection err = %v", err)
	}
	if n := len(r.Participants(id)); n != 2 {
		t.Fatalf("participants = %d, want 2", n)
	}
}

func TestMakeMoveValidatesTurnAndState(t *testing.T) {
	r, st, id := newTestGame(t)
	ctx := context.Background()
	white, black := joinPlayers(t, r, id)
	obs := &fakeConn{}
	if _, err := r.Join(ctx, id, obs, nil, "carol"); err != nil {
		t.Fatalf("observer join: %v", err)
	}

	if _, err := r.MakeMove(ctx, black, move(t, "e7e5")); !errors.Is(err, domain.ErrNotYourTurn) {
		t.Fatalf("black first err = %v", err)
	}
	if _, err := r.MakeMove(ctx, obs, move(t, "e2e4")); !errors.Is(err, domain.ErrNotYourTurn) {
		t.Fatalf("observer move err = %v", err)
	}
	if _, err := r.MakeMove(ctx, white, move(t, "e2e5")); !errors.Is(err, domain.ErrInvalidMove) {
		t.Fatalf("illegal move err = %v", err)
	}
	if _, err := r.MakeMove(ctx, &fakeConn{}, move(t, "e2e4")); !errors.Is(err, domain.ErrNotJoined) {
		t.Fatalf("unjoined err = %v", err)
	}

	plies := []struct {
		conn *fakeConn
		mv   string
	}{{white, "f2f3"}, {black, "e7e5"}, {white, "g2g4"}, {black, "d8h4"}}
	var res *MoveResult
	for _, p := range plies {
		var err error
		if res, err = r.MakeMove(ctx, p.conn, move(t, p.mv)); err != nil {
			t.Fatalf("MakeMove %s: %v", p.mv, err)
		}
	}
	if res.Outcome != chess.OutcomeCheckmate || res.Record.State != domain.StateCheckmate {
		t.Fatalf("outcome/state = %s/%s", res.Outcome, res.Record.State)
	}
	if res.Mover.Username != "bob" || res.Before.Turn() != chess.Black {
		t.Fatalf("mover/before = %+v/%s", res.Mover, res.Before.Turn())
	}
	rec, _ := st.GetGame(ctx, id)
	if rec.State != domain.StateCheckmate || rec.Game.Round() != 4 {
		t.Fatalf("persisted state/round = %s/%d", rec.State, rec.Game.Round())
	}
	if _, err := r.MakeMove(ctx, white, move(t, "a2a3")); !errors.Is(err, domain.ErrGameAlreadyEnded) {
		t.Fatalf("move after mate err = %v", err)
	}
}

func TestConcurrentMovesAreTotallyOrdered(t *testing.T) {
	r, st, id := newTestGame(t)
	ctx := context.Background()
	white, _ := joinPlayers(t, r, id)

	// Two submissions for the same ply: exactly one lands.
	moves := []string{"e2e4", "d2d4"}
	errs := make([]error, len(moves))
	var wg sync.WaitGroup
	for i, m := range moves {
		wg.Add(1)
		go func(i int, m chess.Move) {
			defer wg.Done()
			_, errs[i] = r.MakeMove(ctx, white, m)
		}(i, move(t, m))
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, domain.ErrNotYourTurn):
			t.Fatalf("unexpected err %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful moves = %d, want 1", ok)
	}
	rec, _ := st.GetGame(ctx, id)
	if rec.Game.Round() != 1 || rec.Game.Turn() != chess.Black {
		t.Fatalf("persisted round/turn = %d/%s", rec.Game.Round(), rec.Game.Turn())
	}
}

func TestConcurrentColorsNeverLoseAMove(t *testing.T) {
	r, st, id := newTestGame(t)
	ctx := context.Background()
	white, black := joinPlayers(t, r, id)

	wm, bm := move(t, "e2e4"), move(t, "e7e5")
	var wg sync.WaitGroup
	var werr, berr error
	wg.Add(2)
	go func() { defer wg.Done(); _, werr = r.MakeMove(ctx, white, wm) }()
	go func() { defer wg.Done(); _, berr = r.MakeMove(ctx, black, bm) }()
	wg.Wait()

	if werr != nil {
		t.Fatalf("white move: %v", werr)
	}
	rec, _ := st.GetGame(ctx, id)
	switch {
	case berr == nil:
		if rec.Game.Round() != 2 {
			t.Fatalf("both applied but round = %d", rec.Game.Round())
		}
	case errors.Is(berr, domain.ErrNotYourTurn):
		if rec.Game.Round() != 1 {
			t.Fatalf("black rejected but round = %d", rec.Game.Round())
		}
	default:
		t.Fatalf("black move: %v", berr)
	}
}

func TestResign(t *testing.T) {
	r, st, id := newTestGame(t)
	ctx := context.Background()
	white, _ := joinPlayers(t, r, id)
	obs := &fakeConn{}
	if _, err := r.Join(ctx, id, obs, nil, "carol"); err != nil {
		t.Fatalf("observer join: %v", err)
	}

	if _, _, err := r.Resign(ctx, obs); !errors.Is(err, domain.ErrObserverResign) {
		t.Fatalf("observer resign err = %v", err)
	}
	rec, sess, err := r.Resign(ctx, white)
	if err != nil || rec.State != domain.StateResigned || sess.Username != "alice" {
		t.Fatalf("Resign = %v %+v %v", rec, sess, err)
	}
	if got, _ := st.GetGame(ctx, id); got.State != domain.StateResigned {
		t.Fatalf("persisted state = %s", got.State)
	}
	if _, _, err := r.Resign(ctx, white); !errors.Is(err, domain.ErrGameAlreadyEnded) {
		t.Fatalf("second resign err = %v", err)
	}
}

func TestLeaveClearsOwnSlotOnly(t *testing.T) {
	r, st, id := newTestGame(t)
	ctx := context.Background()
	white, black := joinPlayers(t, r, id)

	info, err := r.Leave(ctx, white)
	if err != nil || info.Username != "alice" {
		t.Fatalf("Leave white = %+v %v", info, err)
	}
	if rec, _ := st.GetGame(ctx, id); rec.WhiteUsername != "" || rec.BlackUsername != "bob" {
		t.Fatalf("slots after white left = %q/%q", rec.WhiteUsername, rec.BlackUsername)
	}
	if _, err := r.Leave(ctx, white); !errors.Is(err, domain.ErrNotJoined) {
		t.Fatalf("double leave err = %v", err)
	}

	// bob's slot is handed to carol behind his back; his leave must not clear it.
	if err := st.ClearGamePlayer(ctx, id, chess.Black, "bob"); err != nil {
		t.Fatalf("ClearGamePlayer: %v", err)
	}
	if err := st.UpdateGamePlayer(ctx, id, chess.Black, "carol"); err != nil {
		t.Fatalf("UpdateGamePlayer: %v", err)
	}
	if _, err := r.Leave(ctx, black); err != nil {
		t.Fatalf("Leave black: %v", err)
	}
	if rec, _ := st.GetGame(ctx, id); rec.BlackUsername != "carol" {
		t.Fatalf("black slot = %q, want carol", rec.BlackUsername)
	}
	if p := r.Participants(id); p != nil {
		t.Fatalf("game info should be dropped, participants = %v", p)
	}

	// The game can be joined again after its routing entry was dropped.
	if _, err := r.Join(ctx, id, &fakeConn{}, nil, "dave"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
}

func TestBroadcastRouting(t *testing.T) {
	r, _, id := newTestGame(t)
	ctx := context.Background()
	white, black := joinPlayers(t, r, id)
	obs := &fakeConn{}
	broken := &fakeConn{fail: true}
	for _, c := range []*fakeConn{obs, broken} {
		if _, err := r.Join(ctx, id, c, nil, "watcher"); err != nil {
			t.Fatalf("observer join: %v", err)
		}
	}

	if err := r.Broadcast(ctx, id, white, map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(white.received()) != 0 || len(black.received()) != 1 || len(obs.received()) != 1 {
		t.Fatalf("broadcast counts w=%d b=%d o=%d", len(white.received()), len(black.received()), len(obs.received()))
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(black.received()[0]), &got); err != nil || got["message"] != "hi" {
		t.Fatalf("payload = %v %v", got, err)
	}

	if err := r.SetVerbose(obs); err != nil {
		t.Fatalf("SetVerbose: %v", err)
	}
	if err := r.SetVerbose(&fakeConn{}); !errors.Is(err, domain.ErrNotJoined) {
		t.Fatalf("SetVerbose unjoined err = %v", err)
	}
	if err := r.BroadcastVerbose(ctx, id, map[string]string{"message": "state"}); err != nil {
		t.Fatalf("BroadcastVerbose: %v", err)
	}
	if len(obs.received()) != 2 || len(black.received()) != 1 || len(white.received()) != 0 {
		t.Fatalf("verbose counts w=%d b=%d o=%d", len(white.received()), len(black.received()), len(obs.received()))
	}

	r.Clear()
	if _, ok := r.Session(obs); ok || r.Participants(id) != nil {
		t.Fatalf("Clear left registry entries")
	}
}
