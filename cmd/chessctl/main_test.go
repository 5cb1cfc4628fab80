package main

import (
	"testing"

	"github.com/park285/cheese-chess-server/internal/chess"
)

func TestParseMove(t *testing.T) {
	m, err := parseMove("E7E8q")
	if err != nil {
		t.Fatalf("parseMove: %v", err)
	}
	if m.String() != "e7e8q" || m.Promotion != chess.Queen {
		t.Fatalf("move = %s promo=%v", m, m.Promotion)
	}
	for _, bad := range []string{"", "e2", "e2e9", "e7e8x", "e2e4e5"} {
		if _, err := parseMove(bad); err == nil {
			t.Fatalf("parseMove(%q) should fail", bad)
		}
	}
}

func TestGameAndColor(t *testing.T) {
	id, c, err := gameAndColor("12", "black")
	if err != nil || id != 12 || c != chess.Black {
		t.Fatalf("gameAndColor = %d %v %v", id, c, err)
	}
	if _, _, err := gameAndColor("x", "white"); err == nil {
		t.Fatalf("bad id should fail")
	}
	if _, _, err := gameAndColor("1", "green"); err == nil {
		t.Fatalf("bad color should fail")
	}
}
