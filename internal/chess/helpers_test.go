package chess

import (
	"strings"
	"testing"
)

func sq(t *testing.T, s string) Position {
	t.Helper()
	p, err := ParsePosition(s)
	if err != nil {
		t.Fatalf("ParsePosition(%q): %v", s, err)
	}
	return p
}

func mv(t *testing.T, s string) Move {
	t.Helper()
	if len(s) < 4 {
		t.Fatalf("bad move literal %q", s)
	}
	m := Move{Start: sq(t, s[:2]), End: sq(t, s[2:4])}
	if len(s) == 5 {
		pt, err := ParsePieceType(s[4:])
		if err != nil {
			t.Fatalf("bad promotion in %q: %v", s, err)
		}
		m.Promotion = pt
	}
	return m
}

// diagram builds a board from eight rank strings, rank 8 first.
// Upper case is white, lower case black, '.' empty.
func diagram(t *testing.T, ranks ...string) *Board {
	t.Helper()
	if len(ranks) != 8 {
		t.Fatalf("diagram needs 8 ranks, got %d", len(ranks))
	}
	b := NewBoard()
	for i, line := range ranks {
		line = strings.ReplaceAll(line, " ", "")
		if len(line) != 8 {
			t.Fatalf("rank %d has %d squares", 8-i, len(line))
		}
		for j, ch := range line {
			if ch == '.' {
				continue
			}
			pt, err := ParsePieceType(strings.ToUpper(string(ch)))
			if err != nil {
				t.Fatalf("bad piece %q: %v", ch, err)
			}
			color := White
			if ch >= 'a' && ch <= 'z' {
				color = Black
			}
			b.Place(Position{Row: 8 - i, Col: j + 1}, NewPiece(pt, color))
		}
	}
	return b
}

func play(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, s := range moves {
		if err := g.MakeMove(mv(t, s)); err != nil {
			t.Fatalf("MakeMove(%s): %v\n%s", s, err, g.board)
		}
	}
}

func ends(moves []Move) map[Position]bool {
	out := make(map[Position]bool, len(moves))
	for _, m := range moves {
		out[m.End] = true
	}
	return out
}
