package notation

import (
	"testing"

	"github.com/park285/cheese-chess-server/internal/chess"
)

func mv(t *testing.T, s string) chess.Move {
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

func play(t *testing.T, g *chess.Game, moves ...string) {
	t.Helper()
	for _, s := range moves {
		if err := g.MakeMove(mv(t, s)); err != nil {
			t.Fatalf("MakeMove(%s): %v", s, err)
		}
	}
}

func TestFEN(t *testing.T) {
	g := chess.NewGame()
	if got, want := FEN(g), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"; got != want {
		t.Fatalf("start FEN = %q, want %q", got, want)
	}
	play(t, g, "e2e4")
	if got, want := FEN(g), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"; got != want {
		t.Fatalf("after e4 = %q, want %q", got, want)
	}
	play(t, g, "e7e5", "g1f3", "a7a6", "h1g1")
	if got, want := FEN(g), "rnbqkbnr/1ppp1ppp/p7/4p3/4P3/5N2/PPPP1PPP/RNBQKBR1 b Qkq - 0 3"; got != want {
		t.Fatalf("after rook move = %q, want %q", got, want)
	}
}

func TestSAN(t *testing.T) {
	g := chess.NewGame()
	if got := SAN(g, mv(t, "e2e4")); got != "e4" {
		t.Fatalf("SAN(e2e4) = %q", got)
	}
	if got := SAN(g, mv(t, "g1f3")); got != "Nf3" {
		t.Fatalf("SAN(g1f3) = %q", got)
	}

	play(t, g, "e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6")
	if got := SAN(g, mv(t, "e1g1")); got != "O-O" {
		t.Fatalf("SAN(e1g1) = %q", got)
	}
}
